// AngelaMos | 2026
// entity.go

package promo

import (
	"strings"
	"time"
)

type Code struct {
	Code         string `db:"code"`
	DurationDays int    `db:"duration_days"`
	MaxUses      int    `db:"max_uses"`
	CurrentUses  int    `db:"current_uses"`
	Active       bool   `db:"is_active"`
}

func (c *Code) Redeemable() bool {
	return c.Active && c.CurrentUses < c.MaxUses
}

type Redemption struct {
	UserID int64     `db:"user_id"`
	Code   string    `db:"code"`
	UsedAt time.Time `db:"used_at"`
}

type Definition struct {
	Code         string
	DurationDays int
	MaxUses      int
}

// Normalize is applied to every code before it reaches the ledger.
func Normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
