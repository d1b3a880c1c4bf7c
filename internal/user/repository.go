// AngelaMos | 2026
// repository.go

package user

import (
	"context"
	"fmt"

	"github.com/carterperez-dev/voice-tutor/internal/core"
)

type Repository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, user *User) error
}

type repository struct {
	db core.DBTX
}

func NewRepository(db core.DBTX) Repository {
	return &repository{db: db}
}

// Create is idempotent on id. When a concurrent first contact already
// inserted the row, Create loads it into user with a second statement,
// whose snapshot includes the other transaction's commit.
func (r *repository) Create(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, first_name, last_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
		RETURNING id, username, first_name, last_name, created_at, updated_at`

	err := r.db.GetContext(ctx, user, query,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
	)
	if err == nil {
		return nil
	}
	if !core.IsNoRows(err) {
		return core.StoreError("create user", err)
	}

	existing, err := r.GetByID(ctx, user.ID)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	*user = *existing

	return nil
}

func (r *repository) GetByID(ctx context.Context, id int64) (*User, error) {
	query := `
		SELECT id, username, first_name, last_name, created_at, updated_at
		FROM users
		WHERE id = $1`

	var user User
	err := r.db.GetContext(ctx, &user, query, id)
	if core.IsNoRows(err) {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	if err != nil {
		return nil, core.StoreError("get user", err)
	}

	return &user, nil
}

func (r *repository) UpdateProfile(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET username = $2, first_name = $3, last_name = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`

	err := r.db.GetContext(ctx, &user.UpdatedAt, query,
		user.ID,
		user.Username,
		user.FirstName,
		user.LastName,
	)
	if core.IsNoRows(err) {
		return fmt.Errorf("update user: %w", core.ErrNotFound)
	}
	if err != nil {
		return core.StoreError("update user", err)
	}

	return nil
}
