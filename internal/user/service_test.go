// AngelaMos | 2026
// service_test.go

package user

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carterperez-dev/voice-tutor/internal/core"
)

type memoryRepo struct {
	rows      map[int64]User
	updates   int
	updateErr error
	getErr    error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{rows: make(map[int64]User)}
}

func (m *memoryRepo) Create(_ context.Context, u *User) error {
	if existing, ok := m.rows[u.ID]; ok {
		*u = existing
		return nil
	}
	m.rows[u.ID] = *u
	return nil
}

func (m *memoryRepo) GetByID(_ context.Context, id int64) (*User, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	u, ok := m.rows[id]
	if !ok {
		return nil, fmt.Errorf("get user: %w", core.ErrNotFound)
	}
	return &u, nil
}

func (m *memoryRepo) UpdateProfile(_ context.Context, u *User) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.updates++
	m.rows[u.ID] = *u
	return nil
}

func TestGetOrCreateCreatesOnce(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo)

	u, err := svc.GetOrCreate(ctx, Profile{ID: 9, FirstName: "Lucía"})
	require.NoError(t, err)
	assert.Equal(t, "Lucía", u.DisplayName())
	assert.Nil(t, u.Username)

	again, err := svc.GetOrCreate(ctx, Profile{ID: 9, FirstName: "Lucía"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), again.ID)
	assert.Len(t, repo.rows, 1)
	assert.Zero(t, repo.updates)
}

func TestGetOrCreateRefreshesChangedProfile(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo)

	_, err := svc.GetOrCreate(ctx, Profile{ID: 9, FirstName: "Lucía"})
	require.NoError(t, err)

	u, err := svc.GetOrCreate(ctx, Profile{ID: 9, Username: "lucia_es"})
	require.NoError(t, err)
	require.NotNil(t, u.Username)
	assert.Equal(t, "lucia_es", *u.Username)
	assert.Equal(t, "Lucía", *u.FirstName, "empty fields never overwrite")
	assert.Equal(t, 1, repo.updates)
}

func TestGetOrCreateToleratesRefreshFailure(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryRepo()
	svc := NewService(repo)

	_, err := svc.GetOrCreate(ctx, Profile{ID: 9})
	require.NoError(t, err)

	repo.updateErr = errors.New("db down")
	u, err := svc.GetOrCreate(ctx, Profile{ID: 9, LastName: "García"})
	require.NoError(t, err)
	assert.Equal(t, int64(9), u.ID)
}

func TestGetOrCreatePropagatesStoreErrors(t *testing.T) {
	repo := newMemoryRepo()
	repo.getErr = core.StoreError("get user", errors.New("conn reset"))

	_, err := NewService(repo).GetOrCreate(context.Background(), Profile{ID: 9})
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
}
