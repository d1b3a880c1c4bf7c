// AngelaMos | 2026
// service.go

package user

import (
	"context"
	"errors"
	"log/slog"

	"github.com/carterperez-dev/voice-tutor/internal/core"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetOrCreate(ctx context.Context, p Profile) (*User, error) {
	existing, err := s.repo.GetByID(ctx, p.ID)
	if err == nil {
		if !existing.needsRefresh(p) {
			return existing, nil
		}
		s.refresh(existing, p)
		if err := s.repo.UpdateProfile(ctx, existing); err != nil {
			// stale display attributes are not worth failing the request
			slog.WarnContext(ctx, "refresh user profile",
				"user_id", p.ID,
				"error", err,
			)
		}
		return existing, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return nil, err
	}

	created := &User{
		ID:        p.ID,
		Username:  optional(p.Username),
		FirstName: optional(p.FirstName),
		LastName:  optional(p.LastName),
	}
	if err := s.repo.Create(ctx, created); err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "user created", "user_id", p.ID)
	return created, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) refresh(u *User, p Profile) {
	if p.Username != "" {
		u.Username = optional(p.Username)
	}
	if p.FirstName != "" {
		u.FirstName = optional(p.FirstName)
	}
	if p.LastName != "" {
		u.LastName = optional(p.LastName)
	}
}
