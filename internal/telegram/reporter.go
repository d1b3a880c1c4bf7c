// AngelaMos | 2026
// reporter.go

package telegram

import (
	"context"
	"log/slog"

	"github.com/carterperez-dev/voice-tutor/internal/entitlement"
	"github.com/carterperez-dev/voice-tutor/internal/voice"
)

// Reporter renders pipeline outcomes as chat messages. Send failures are
// logged and dropped; the pipeline has already reached its terminal state.
type Reporter struct {
	messenger Messenger
	catalog   *entitlement.Catalog
}

func NewReporter(messenger Messenger, catalog *entitlement.Catalog) *Reporter {
	return &Reporter{messenger: messenger, catalog: catalog}
}

func (r *Reporter) NotEntitled(ctx context.Context, userID int64) {
	r.send(ctx, userID, notEntitled(r.catalog.Products()))
}

func (r *Reporter) NothingToRetry(ctx context.Context, userID int64) {
	r.send(ctx, userID, nothingToRetry)
}

func (r *Reporter) Processing(ctx context.Context, userID int64) {
	r.send(ctx, userID, processingMessage)
}

func (r *Reporter) Delivered(ctx context.Context, userID int64, d voice.Delivery) {
	r.send(ctx, userID, feedbackMessage(d.Feedback))

	if err := r.messenger.SendVoice(ctx, userID, d.Audio); err != nil {
		slog.WarnContext(ctx, "deliver voice reply",
			"user_id", userID,
			"error", err,
		)
	}

	r.send(ctx, userID, replyTranscript(d.Reply))
}

func (r *Reporter) RetryableFailure(ctx context.Context, userID int64) {
	r.send(ctx, userID, retryOffer)
}

func (r *Reporter) Failure(ctx context.Context, userID int64) {
	r.send(ctx, userID, genericFailure)
}

func (r *Reporter) send(ctx context.Context, userID int64, msg Message) {
	if err := r.messenger.SendText(ctx, userID, msg); err != nil {
		slog.WarnContext(ctx, "send message",
			"user_id", userID,
			"error", err,
		)
	}
}

var _ voice.Reporter = (*Reporter)(nil)
