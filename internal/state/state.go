// AngelaMos | 2026
// state.go

package state

import (
	"context"
)

// Payload is the voice input held for a user-initiated retry. Audio is
// empty when the failure happened before the download finished.
type Payload struct {
	FileID string `json:"file_id"`
	Audio  []byte `json:"audio_base64,omitempty"`
}

func (p *Payload) Downloaded() bool {
	return len(p.Audio) > 0
}

// RetryCache entries have no expiry; they live until overwritten, removed
// or the backing store is flushed.
type RetryCache interface {
	Put(ctx context.Context, userID int64, p Payload) error
	Get(ctx context.Context, userID int64) (*Payload, error)
	Remove(ctx context.Context, userID int64) error
}

// WaitSet tracks users who were prompted for a promo code and whose next
// text message should be read as one.
type WaitSet interface {
	Add(ctx context.Context, userID int64) error
	Remove(ctx context.Context, userID int64) error
	Contains(ctx context.Context, userID int64) (bool, error)
}
