// AngelaMos | 2026
// users.go

package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/carterperez-dev/voice-tutor/internal/user"
)

type Users struct {
	mu    sync.Mutex
	users map[int64]*user.User

	Err error
}

func NewUsers() *Users {
	return &Users{users: make(map[int64]*user.User)}
}

func (u *Users) GetOrCreate(_ context.Context, p user.Profile) (*user.User, error) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.Err != nil {
		return nil, u.Err
	}
	if existing, ok := u.users[p.ID]; ok {
		return existing, nil
	}

	created := &user.User{ID: p.ID, CreatedAt: time.Now(), UpdatedAt: time.Now()}
	if p.Username != "" {
		created.Username = &p.Username
	}
	if p.FirstName != "" {
		created.FirstName = &p.FirstName
	}
	if p.LastName != "" {
		created.LastName = &p.LastName
	}
	u.users[p.ID] = created
	return created, nil
}

func (u *Users) Count() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return len(u.users)
}
