// AngelaMos | 2026
// reconciler.go

package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/carterperez-dev/voice-tutor/internal/analytics"
	"github.com/carterperez-dev/voice-tutor/internal/entitlement"
	"github.com/carterperez-dev/voice-tutor/internal/metrics"
)

const (
	payloadPrefix   = "sub_"
	PreCheckoutFail = "Payment error"
)

type Activator interface {
	ActivateByPayment(
		ctx context.Context,
		userID int64,
		productCode string,
		paymentRef string,
	) (entitlement.PaymentOutcome, error)
}

type Confirmation struct {
	UserID    int64
	Payload   string
	Amount    int
	Currency  string
	ChargeRef string
}

// Reconciler turns confirmed payments into grants. Duplicate deliveries of
// the same confirmation activate again and restart the expiry clock.
type Reconciler struct {
	activator Activator
	catalog   *entitlement.Catalog
	sink      analytics.Sink
}

func NewReconciler(
	activator Activator,
	catalog *entitlement.Catalog,
	sink analytics.Sink,
) *Reconciler {
	if sink == nil {
		sink = analytics.Noop{}
	}
	return &Reconciler{
		activator: activator,
		catalog:   catalog,
		sink:      sink,
	}
}

func (r *Reconciler) ParseProduct(payload string) (entitlement.Product, bool) {
	return r.catalog.MatchPrefix(payload)
}

// PreCheckout accepts any subscription payload. The product itself is
// resolved only once the payment is confirmed.
func (r *Reconciler) PreCheckout(payload string) (bool, string) {
	if strings.HasPrefix(payload, payloadPrefix) {
		return true, ""
	}
	return false, PreCheckoutFail
}

func (r *Reconciler) OnPaymentConfirmed(
	ctx context.Context,
	c Confirmation,
) (entitlement.PaymentOutcome, error) {
	product, ok := r.ParseProduct(c.Payload)
	if !ok {
		metrics.RecordPayment("unrecognized")
		slog.WarnContext(ctx, "unrecognized payment payload",
			"user_id", c.UserID,
			"payload", c.Payload,
			"charge_ref", c.ChargeRef,
		)
		return entitlement.PaymentOutcome{Result: entitlement.PaymentUnknownProduct}, nil
	}

	out, err := r.activator.ActivateByPayment(ctx, c.UserID, product.Code, c.ChargeRef)
	if err != nil {
		metrics.RecordPayment("failed")
		return entitlement.PaymentOutcome{}, fmt.Errorf("reconcile payment %s: %w", c.ChargeRef, err)
	}
	if !out.Activated() {
		metrics.RecordPayment("unrecognized")
		return out, nil
	}

	metrics.RecordPayment("activated")
	slog.InfoContext(ctx, "payment reconciled",
		"user_id", c.UserID,
		"product", product.Code,
		"amount", c.Amount,
		"currency", c.Currency,
		"charge_ref", c.ChargeRef,
	)

	r.sink.Track(ctx, analytics.EventPaymentCompleted, c.UserID, analytics.Properties{
		"subscription_type": product.Code,
		"amount":            c.Amount,
		"currency":          c.Currency,
		"charge_id":         c.ChargeRef,
	})
	r.sink.Track(ctx, analytics.EventRevenue, c.UserID, analytics.Properties{
		"amount":   c.Amount,
		"currency": c.Currency,
		"product":  product.Code,
	})
	r.sink.Track(ctx, analytics.EventSubscriptionActivated, c.UserID, analytics.Properties{
		"subscription_type": string(product.Kind),
		"method":            entitlement.MethodPayment,
		"duration_days":     product.DurationDays,
	})

	return out, nil
}
