// AngelaMos | 2026
// entity.go

package user

import (
	"time"
)

type User struct {
	ID        int64     `db:"id"`
	Username  *string   `db:"username"`
	FirstName *string   `db:"first_name"`
	LastName  *string   `db:"last_name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Profile is the display data the transport knows about a sender. Empty
// fields mean "unknown" and never overwrite stored values.
type Profile struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
}

func (u *User) DisplayName() string {
	if u.FirstName != nil && *u.FirstName != "" {
		return *u.FirstName
	}
	return "friend"
}

func (u *User) needsRefresh(p Profile) bool {
	return differs(u.Username, p.Username) ||
		differs(u.FirstName, p.FirstName) ||
		differs(u.LastName, p.LastName)
}

func differs(stored *string, incoming string) bool {
	if incoming == "" {
		return false
	}
	return stored == nil || *stored != incoming
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
