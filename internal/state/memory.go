// AngelaMos | 2026
// memory.go

package state

import (
	"context"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/carterperez-dev/voice-tutor/internal/metrics"
)

type MemoryRetryCache struct {
	entries *xsync.MapOf[int64, Payload]
}

func NewMemoryRetryCache() *MemoryRetryCache {
	return &MemoryRetryCache{entries: xsync.NewMapOf[int64, Payload]()}
}

func (c *MemoryRetryCache) Put(_ context.Context, userID int64, p Payload) error {
	c.entries.Store(userID, p)
	metrics.RetryCacheEntries.Set(float64(c.entries.Size()))
	return nil
}

func (c *MemoryRetryCache) Get(_ context.Context, userID int64) (*Payload, error) {
	p, ok := c.entries.Load(userID)
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *MemoryRetryCache) Remove(_ context.Context, userID int64) error {
	c.entries.Delete(userID)
	metrics.RetryCacheEntries.Set(float64(c.entries.Size()))
	return nil
}

// MemoryWaitSet expires flags lazily on Contains. A zero ttl keeps flags
// until removed.
type MemoryWaitSet struct {
	ttl     time.Duration
	now     func() time.Time
	waiting *xsync.MapOf[int64, time.Time]
}

func NewMemoryWaitSet(ttl time.Duration) *MemoryWaitSet {
	return &MemoryWaitSet{
		ttl:     ttl,
		now:     time.Now,
		waiting: xsync.NewMapOf[int64, time.Time](),
	}
}

func (w *MemoryWaitSet) Add(_ context.Context, userID int64) error {
	var exp time.Time
	if w.ttl > 0 {
		exp = w.now().Add(w.ttl)
	}
	w.waiting.Store(userID, exp)
	return nil
}

func (w *MemoryWaitSet) Remove(_ context.Context, userID int64) error {
	w.waiting.Delete(userID)
	return nil
}

func (w *MemoryWaitSet) Contains(_ context.Context, userID int64) (bool, error) {
	exp, ok := w.waiting.Load(userID)
	if !ok {
		return false, nil
	}
	if !exp.IsZero() && !w.now().Before(exp) {
		w.waiting.Delete(userID)
		return false, nil
	}
	return true, nil
}

var (
	_ RetryCache = (*MemoryRetryCache)(nil)
	_ WaitSet    = (*MemoryWaitSet)(nil)
)
