// AngelaMos | 2026
// events.go

package analytics

import (
	"context"
)

const (
	EventCommandUsed           = "command_used"
	EventCallbackPressed       = "callback_pressed"
	EventMessageReceived       = "message_received"
	EventPaymentCompleted      = "payment_completed"
	EventRevenue               = "$revenue"
	EventErrorOccurred         = "error_occurred"
	EventSubscriptionActivated = "subscription_activated"
	EventPromoCodeSuccess      = "promo_code_success"
	EventPromoCodeFailed       = "promo_code_failed"
)

type Properties map[string]any

// Sink is fire-and-forget: Track must not block the caller on network I/O
// and delivery failures are never returned.
type Sink interface {
	Track(ctx context.Context, event string, userID int64, props Properties)
}

type Noop struct{}

func (Noop) Track(context.Context, string, int64, Properties) {}

var _ Sink = Noop{}
