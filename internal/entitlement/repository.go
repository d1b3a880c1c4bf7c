// AngelaMos | 2026
// repository.go

package entitlement

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/carterperez-dev/voice-tutor/internal/core"
)

// Repository is the entitlement store. GetActive is a read with a side
// effect: an active grant found past its expiry is flipped inactive before
// nil is returned.
type Repository interface {
	GetActive(ctx context.Context, userID int64, now time.Time) (*Grant, error)
	Activate(ctx context.Context, params ActivateParams) (*Grant, error)
	History(ctx context.Context, userID int64) ([]Grant, error)
}

type repository struct {
	db core.DB
}

func NewRepository(db core.DB) Repository {
	return &repository{db: db}
}

const grantColumns = `id, user_id, kind, starts_at, expires_at, is_active, payment_ref`

func (r *repository) GetActive(
	ctx context.Context,
	userID int64,
	now time.Time,
) (*Grant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM grants
		WHERE user_id = $1 AND is_active
		LIMIT 1`

	var grant Grant
	err := r.db.GetContext(ctx, &grant, query, userID)
	if core.IsNoRows(err) {
		return nil, nil
	}
	if err != nil {
		return nil, core.StoreError("get active grant", err)
	}

	if grant.EntitledAt(now) {
		return &grant, nil
	}

	expire := `
		UPDATE grants
		SET is_active = FALSE
		WHERE id = $1 AND is_active`

	if _, err := r.db.ExecContext(ctx, expire, grant.ID); err != nil {
		return nil, core.StoreError("expire grant", err)
	}

	return nil, nil
}

func (r *repository) Activate(
	ctx context.Context,
	params ActivateParams,
) (*Grant, error) {
	var grant Grant

	err := core.InTx(ctx, r.db, func(tx *sqlx.Tx) error {
		// Serialises concurrent activations for the same user so the
		// deactivate+insert pair cannot interleave.
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, params.UserID); err != nil {
			return err
		}

		deactivate := `
			UPDATE grants
			SET is_active = FALSE
			WHERE user_id = $1 AND is_active`

		if _, err := tx.ExecContext(ctx, deactivate, params.UserID); err != nil {
			return err
		}

		insert := `
			INSERT INTO grants (user_id, kind, starts_at, expires_at, is_active, payment_ref)
			VALUES ($1, $2, $3, $4, TRUE, $5)
			RETURNING ` + grantColumns

		return tx.GetContext(ctx, &grant, insert,
			params.UserID,
			string(params.Kind),
			params.StartsAt,
			params.ExpiresAt,
			params.PaymentRef,
		)
	})
	if err != nil {
		return nil, core.StoreError("activate grant", err)
	}

	return &grant, nil
}

func (r *repository) History(ctx context.Context, userID int64) ([]Grant, error) {
	query := `
		SELECT ` + grantColumns + `
		FROM grants
		WHERE user_id = $1
		ORDER BY id DESC`

	var grants []Grant
	if err := r.db.SelectContext(ctx, &grants, query, userID); err != nil {
		return nil, core.StoreError("list grants", err)
	}

	return grants, nil
}
