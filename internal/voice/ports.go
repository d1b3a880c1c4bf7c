// AngelaMos | 2026
// ports.go

package voice

import (
	"context"

	"github.com/carterperez-dev/voice-tutor/internal/gemini"
)

type EntitlementChecker interface {
	IsEntitled(ctx context.Context, userID int64) (bool, error)
}

type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

type Tutor interface {
	Analyze(ctx context.Context, audio []byte) (gemini.Analysis, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type Transcoder interface {
	PCMToOggOpus(ctx context.Context, pcm []byte) ([]byte, error)
}

type Delivery struct {
	Feedback string
	Reply    string
	Audio    []byte
}

// Reporter is how the coordinator talks back to the user. Exactly one
// terminal method is called per Process; Processing may precede it.
type Reporter interface {
	NotEntitled(ctx context.Context, userID int64)
	NothingToRetry(ctx context.Context, userID int64)
	Processing(ctx context.Context, userID int64)
	Delivered(ctx context.Context, userID int64, d Delivery)
	RetryableFailure(ctx context.Context, userID int64)
	Failure(ctx context.Context, userID int64)
}
