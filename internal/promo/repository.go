// AngelaMos | 2026
// repository.go

package promo

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/voice-tutor/internal/core"
)

// Repository is the promo ledger. Unknown, inactive and exhausted codes
// are reported as a nil *Code, not as errors.
//
// Redeem does not check for an earlier redemption by the same user: the
// redemption row is insert-if-absent but the counter is bumped on every
// call, so callers must consult HasRedeemed first.
type Repository interface {
	Validate(ctx context.Context, code string) (*Code, error)
	HasRedeemed(ctx context.Context, userID int64, code string) (bool, error)
	Redeem(ctx context.Context, userID int64, code string) error
	Seed(ctx context.Context, defs []Definition) (int, error)
}

type repository struct {
	db core.DB
}

func NewRepository(db core.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Validate(ctx context.Context, code string) (*Code, error) {
	query := `
		SELECT code, duration_days, max_uses, current_uses, is_active
		FROM promo_codes
		WHERE code = $1 AND is_active AND current_uses < max_uses`

	var c Code
	err := r.db.GetContext(ctx, &c, query, Normalize(code))
	if core.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, core.StoreError("validate promo code", err)
	}

	return &c, nil
}

func (r *repository) HasRedeemed(
	ctx context.Context,
	userID int64,
	code string,
) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM promo_redemptions WHERE user_id = $1 AND code = $2)`

	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, userID, Normalize(code)); err != nil {
		return false, core.StoreError("check promo redemption", err)
	}

	return exists, nil
}

func (r *repository) Redeem(ctx context.Context, userID int64, code string) error {
	code = Normalize(code)

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		increment := `
			UPDATE promo_codes
			SET current_uses = current_uses + 1
			WHERE code = $1 AND is_active AND current_uses < max_uses`

		result, err := tx.ExecContext(ctx, increment, code)
		if err != nil {
			return core.StoreError("increment promo usage", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return core.StoreError("increment promo usage", err)
		}
		if rows == 0 {
			return fmt.Errorf("redeem %s: %w", code, core.ErrPromoExhausted)
		}

		record := `
			INSERT INTO promo_redemptions (user_id, code, used_at)
			VALUES ($1, $2, NOW())
			ON CONFLICT (user_id, code) DO NOTHING`

		if _, err := tx.ExecContext(ctx, record, userID, code); err != nil {
			return core.StoreError("record promo redemption", err)
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("redeem promo code: %w", err)
	}

	return nil
}

func (r *repository) Seed(ctx context.Context, defs []Definition) (int, error) {
	query := `
		INSERT INTO promo_codes (code, duration_days, max_uses, current_uses, is_active)
		VALUES ($1, $2, $3, 0, TRUE)
		ON CONFLICT (code) DO NOTHING`

	inserted := 0
	for _, d := range defs {
		result, err := r.db.ExecContext(ctx, query, Normalize(d.Code), d.DurationDays, d.MaxUses)
		if err != nil {
			return inserted, core.StoreError("seed promo code", err)
		}
		if n, err := result.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	return inserted, nil
}
