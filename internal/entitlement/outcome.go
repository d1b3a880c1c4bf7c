// AngelaMos | 2026
// outcome.go

package entitlement

import (
	"time"
)

type PaymentResult int

const (
	PaymentActivated PaymentResult = iota
	PaymentUnknownProduct
)

type PaymentOutcome struct {
	Result  PaymentResult
	Product Product
	Grant   *Grant
}

func (o PaymentOutcome) Activated() bool {
	return o.Result == PaymentActivated
}

type PromoResult int

const (
	PromoInvalidCode PromoResult = iota
	PromoAlreadyUsed
	PromoSuccess
)

func (r PromoResult) String() string {
	switch r {
	case PromoInvalidCode:
		return "invalid_code"
	case PromoAlreadyUsed:
		return "already_used"
	case PromoSuccess:
		return "success"
	}
	return "unknown"
}

// PromoOutcome carries the normalised code. DurationDays and Grant are
// only set on PromoSuccess.
type PromoOutcome struct {
	Result       PromoResult
	Code         string
	DurationDays int
	Grant        *Grant
}

type Status struct {
	Entitled  bool
	Kind      Kind
	ExpiresAt time.Time
}
