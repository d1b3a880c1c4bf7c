// AngelaMos | 2026
// entity.go

package entitlement

import (
	"time"
)

type Kind string

const (
	KindMonthly Kind = "monthly"
	KindYearly  Kind = "yearly"
	KindPromo   Kind = "promo"
)

func (k Kind) Valid() bool {
	switch k {
	case KindMonthly, KindYearly, KindPromo:
		return true
	}
	return false
}

func (k Kind) DisplayName() string {
	switch k {
	case KindMonthly:
		return "Monthly"
	case KindYearly:
		return "Yearly"
	case KindPromo:
		return "Promo Code"
	}
	return "Unknown"
}

// Grant rows only ever move from active to inactive.
type Grant struct {
	ID         int64     `db:"id"`
	UserID     int64     `db:"user_id"`
	Kind       Kind      `db:"kind"`
	StartsAt   time.Time `db:"starts_at"`
	ExpiresAt  time.Time `db:"expires_at"`
	Active     bool      `db:"is_active"`
	PaymentRef *string   `db:"payment_ref"`
}

// EntitledAt reports whether the grant confers access at now. The expiry
// instant itself is already outside the grant.
func (g *Grant) EntitledAt(now time.Time) bool {
	return g.Active && now.Before(g.ExpiresAt)
}

type ActivateParams struct {
	UserID     int64
	Kind       Kind
	StartsAt   time.Time
	ExpiresAt  time.Time
	PaymentRef *string
}
