// AngelaMos | 2026
// service.go

package entitlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/carterperez-dev/voice-tutor/internal/analytics"
	"github.com/carterperez-dev/voice-tutor/internal/core"
	"github.com/carterperez-dev/voice-tutor/internal/metrics"
	"github.com/carterperez-dev/voice-tutor/internal/promo"
	"github.com/carterperez-dev/voice-tutor/internal/user"
)

const (
	MethodPayment   = "payment"
	MethodPromoCode = "promo_code"
)

type UserProvider interface {
	GetOrCreate(ctx context.Context, p user.Profile) (*user.User, error)
}

type Service struct {
	grants  Repository
	promos  promo.Repository
	users   UserProvider
	catalog *Catalog
	sink    analytics.Sink
	loc     *time.Location
	now     func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLocation(loc *time.Location) Option {
	return func(s *Service) { s.loc = loc }
}

func NewService(
	grants Repository,
	promos promo.Repository,
	users UserProvider,
	catalog *Catalog,
	sink analytics.Sink,
	opts ...Option,
) *Service {
	if sink == nil {
		sink = analytics.Noop{}
	}
	s := &Service{
		grants:  grants,
		promos:  promos,
		users:   users,
		catalog: catalog,
		sink:    sink,
		loc:     time.Local,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Catalog() *Catalog {
	return s.catalog
}

func (s *Service) GetOrCreateUser(ctx context.Context, p user.Profile) (*user.User, error) {
	u, err := s.users.GetOrCreate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("get or create user: %w", err)
	}
	return u, nil
}

// IsEntitled may write: an expired active grant is deactivated as part of
// the check.
func (s *Service) IsEntitled(ctx context.Context, userID int64) (bool, error) {
	grant, err := s.grants.GetActive(ctx, userID, s.now())
	if err != nil {
		return false, fmt.Errorf("check entitlement: %w", err)
	}
	return grant != nil, nil
}

func (s *Service) Status(ctx context.Context, userID int64) (Status, error) {
	grant, err := s.grants.GetActive(ctx, userID, s.now())
	if err != nil {
		return Status{}, fmt.Errorf("load entitlement status: %w", err)
	}
	if grant == nil {
		return Status{}, nil
	}
	return Status{
		Entitled:  true,
		Kind:      grant.Kind,
		ExpiresAt: grant.ExpiresAt,
	}, nil
}

func (s *Service) ActivateByPayment(
	ctx context.Context,
	userID int64,
	productCode string,
	paymentRef string,
) (PaymentOutcome, error) {
	product, ok := s.catalog.Lookup(productCode)
	if !ok {
		return PaymentOutcome{Result: PaymentUnknownProduct}, nil
	}

	var ref *string
	if paymentRef != "" {
		ref = &paymentRef
	}

	grant, err := s.activate(ctx, userID, product.Kind, product.DurationDays, ref)
	if err != nil {
		return PaymentOutcome{}, err
	}

	metrics.RecordActivation(string(product.Kind), MethodPayment)

	return PaymentOutcome{
		Result:  PaymentActivated,
		Product: product,
		Grant:   grant,
	}, nil
}

// ActivateByPromo records the redemption before activating the grant. A
// crash between the two leaves the code spent without a grant.
func (s *Service) ActivateByPromo(
	ctx context.Context,
	userID int64,
	code string,
) (PromoOutcome, error) {
	code = promo.Normalize(code)
	out := PromoOutcome{Code: code}

	pc, err := s.promos.Validate(ctx, code)
	if err != nil {
		return PromoOutcome{}, fmt.Errorf("validate promo code: %w", err)
	}
	if pc == nil {
		return s.promoFailed(ctx, userID, out, PromoInvalidCode), nil
	}

	used, err := s.promos.HasRedeemed(ctx, userID, code)
	if err != nil {
		return PromoOutcome{}, fmt.Errorf("check promo redemption: %w", err)
	}
	if used {
		return s.promoFailed(ctx, userID, out, PromoAlreadyUsed), nil
	}

	if err := s.promos.Redeem(ctx, userID, code); err != nil {
		if errors.Is(err, core.ErrPromoExhausted) {
			return s.promoFailed(ctx, userID, out, PromoInvalidCode), nil
		}
		return PromoOutcome{}, err
	}

	grant, err := s.activate(ctx, userID, KindPromo, pc.DurationDays, nil)
	if err != nil {
		slog.ErrorContext(ctx, "promo redeemed but grant activation failed",
			"user_id", userID,
			"code", code,
			"error", err,
		)
		return PromoOutcome{}, err
	}

	metrics.RecordActivation(string(KindPromo), MethodPromoCode)
	metrics.RecordPromoAttempt(PromoSuccess.String())

	s.sink.Track(ctx, analytics.EventPromoCodeSuccess, userID, analytics.Properties{
		"promo_code":    code,
		"duration_days": pc.DurationDays,
	})
	s.sink.Track(ctx, analytics.EventSubscriptionActivated, userID, analytics.Properties{
		"subscription_type": string(KindPromo),
		"method":            MethodPromoCode,
		"duration_days":     pc.DurationDays,
	})

	out.Result = PromoSuccess
	out.DurationDays = pc.DurationDays
	out.Grant = grant
	return out, nil
}

func (s *Service) activate(
	ctx context.Context,
	userID int64,
	kind Kind,
	days int,
	ref *string,
) (*Grant, error) {
	now := s.now()
	grant, err := s.grants.Activate(ctx, ActivateParams{
		UserID:     userID,
		Kind:       kind,
		StartsAt:   now,
		ExpiresAt:  ExpiryFor(now, days, s.loc),
		PaymentRef: ref,
	})
	if err != nil {
		return nil, fmt.Errorf("activate %s grant: %w", kind, err)
	}

	slog.InfoContext(ctx, "grant activated",
		"user_id", userID,
		"kind", string(kind),
		"expires_at", grant.ExpiresAt,
	)
	return grant, nil
}

func (s *Service) promoFailed(
	ctx context.Context,
	userID int64,
	out PromoOutcome,
	result PromoResult,
) PromoOutcome {
	metrics.RecordPromoAttempt(result.String())
	s.sink.Track(ctx, analytics.EventPromoCodeFailed, userID, analytics.Properties{
		"promo_code": out.Code,
		"reason":     result.String(),
	})
	out.Result = result
	return out
}
