// AngelaMos | 2026
// coordinator.go

package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/carterperez-dev/voice-tutor/internal/analytics"
	"github.com/carterperez-dev/voice-tutor/internal/core"
	"github.com/carterperez-dev/voice-tutor/internal/gemini"
	"github.com/carterperez-dev/voice-tutor/internal/metrics"
	"github.com/carterperez-dev/voice-tutor/internal/state"
)

type Result string

const (
	ResultDelivered      Result = "delivered"
	ResultNotEntitled    Result = "not_entitled"
	ResultNothingToRetry Result = "nothing_to_retry"
	ResultRetryable      Result = "retryable_failure"
	ResultFailed         Result = "failed"
)

const (
	modeFresh = "fresh"
	modeRetry = "retry"
)

type Input struct {
	FileID   string
	Duration int
}

type Options struct {
	// RecheckOnRetry re-runs the entitlement gate for retries of a cached
	// payload. Off, a retry is processed even if the grant has since lapsed.
	RecheckOnRetry bool
}

type Coordinator struct {
	entitlements EntitlementChecker
	downloader   Downloader
	tutor        Tutor
	transcoder   Transcoder
	cache        state.RetryCache
	reporter     Reporter
	sink         analytics.Sink
	opts         Options
}

func NewCoordinator(
	entitlements EntitlementChecker,
	downloader Downloader,
	tutor Tutor,
	transcoder Transcoder,
	cache state.RetryCache,
	reporter Reporter,
	sink analytics.Sink,
	opts Options,
) *Coordinator {
	if sink == nil {
		sink = analytics.Noop{}
	}
	return &Coordinator{
		entitlements: entitlements,
		downloader:   downloader,
		tutor:        tutor,
		transcoder:   transcoder,
		cache:        cache,
		reporter:     reporter,
		sink:         sink,
		opts:         opts,
	}
}

// Process runs one pipeline invocation. A nil input means the user asked
// to retry their last failed message.
func (c *Coordinator) Process(ctx context.Context, userID int64, input *Input) Result {
	mode := modeFresh
	if input == nil {
		mode = modeRetry
	}

	ctx, span := core.StartSpan(ctx, "voice.process",
		attribute.Int64("user.id", userID),
		attribute.String("pipeline.mode", mode),
	)
	defer span.End()

	result := c.process(ctx, userID, input)

	span.SetAttributes(attribute.String("pipeline.result", string(result)))
	metrics.RecordPipelineRun(mode, string(result))
	return result
}

func (c *Coordinator) process(ctx context.Context, userID int64, input *Input) Result {
	var payload state.Payload

	if input == nil {
		cached, err := c.cache.Get(ctx, userID)
		if err != nil {
			return c.fatal(ctx, userID, "load retry payload", err)
		}
		if cached == nil {
			c.reporter.NothingToRetry(ctx, userID)
			return ResultNothingToRetry
		}
		payload = *cached

		if c.opts.RecheckOnRetry {
			if res, ok := c.gate(ctx, userID); !ok {
				return res
			}
		}
	} else {
		if res, ok := c.gate(ctx, userID); !ok {
			return res
		}
		payload = state.Payload{FileID: input.FileID}

		c.sink.Track(ctx, analytics.EventMessageReceived, userID, analytics.Properties{
			"message_type": "voice",
			"duration":     input.Duration,
		})
	}

	c.reporter.Processing(ctx, userID)

	if !payload.Downloaded() {
		var audio []byte
		err := c.stage(ctx, "download", func(ctx context.Context) error {
			var err error
			audio, err = c.downloader.Download(ctx, payload.FileID)
			return err
		})
		if err != nil {
			return c.retryable(ctx, userID, payload, "download", err)
		}
		payload.Audio = audio
	}

	var analysis gemini.Analysis
	err := c.stage(ctx, "analysis", func(ctx context.Context) error {
		var err error
		analysis, err = c.tutor.Analyze(ctx, payload.Audio)
		return err
	})
	if err != nil {
		return c.retryable(ctx, userID, payload, "analysis", err)
	}

	var pcm []byte
	err = c.stage(ctx, "synthesis", func(ctx context.Context) error {
		var err error
		pcm, err = c.tutor.Synthesize(ctx, analysis.Reply)
		return err
	})
	if err != nil {
		return c.retryable(ctx, userID, payload, "synthesis", err)
	}

	var ogg []byte
	err = c.stage(ctx, "transcode", func(ctx context.Context) error {
		var err error
		ogg, err = c.transcoder.PCMToOggOpus(ctx, pcm)
		return err
	})
	if err != nil {
		return c.retryable(ctx, userID, payload, "transcode", err)
	}

	if err := c.cache.Remove(ctx, userID); err != nil {
		slog.WarnContext(ctx, "clear retry payload",
			"user_id", userID,
			"error", err,
		)
	}

	c.reporter.Delivered(ctx, userID, Delivery{
		Feedback: analysis.Feedback,
		Reply:    analysis.Reply,
		Audio:    ogg,
	})
	return ResultDelivered
}

func (c *Coordinator) gate(ctx context.Context, userID int64) (Result, bool) {
	ok, err := c.entitlements.IsEntitled(ctx, userID)
	if err != nil {
		return c.fatal(ctx, userID, "check entitlement", err), false
	}
	if !ok {
		c.reporter.NotEntitled(ctx, userID)
		return ResultNotEntitled, false
	}
	return "", true
}

func (c *Coordinator) stage(
	ctx context.Context,
	name string,
	fn func(context.Context) error,
) error {
	ctx, span := core.StartSpan(ctx, "voice."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	metrics.ObserveStage(name, time.Since(start).Seconds())

	if err != nil {
		core.SetSpanError(ctx, err)
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// retryable stores the payload again even when it came from the cache so
// the user can keep retrying.
func (c *Coordinator) retryable(
	ctx context.Context,
	userID int64,
	payload state.Payload,
	stage string,
	cause error,
) Result {
	slog.WarnContext(ctx, "voice pipeline stage failed",
		"user_id", userID,
		"stage", stage,
		"error", cause,
	)
	c.sink.Track(ctx, analytics.EventErrorOccurred, userID, analytics.Properties{
		"error_type":  "voice_pipeline",
		"stage":       stage,
		"error_class": errorClass(cause),
	})

	if err := c.cache.Put(ctx, userID, payload); err != nil {
		return c.fatal(ctx, userID, "store retry payload", err)
	}

	c.reporter.RetryableFailure(ctx, userID)
	return ResultRetryable
}

// errorClass buckets a failure for analytics. Raw error text can carry
// upstream URLs and never leaves the process.
func errorClass(err error) string {
	var apiErr *gemini.APIError
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &netErr) && netErr.Timeout():
		return "timeout"
	case errors.As(err, &apiErr):
		return "api_status"
	case errors.Is(err, gemini.ErrMalformedResponse):
		return "malformed_response"
	default:
		return "error"
	}
}

func (c *Coordinator) fatal(ctx context.Context, userID int64, op string, err error) Result {
	slog.ErrorContext(ctx, op,
		"user_id", userID,
		"error", err,
	)
	core.SetSpanError(ctx, err)
	c.reporter.Failure(ctx, userID)
	return ResultFailed
}
