// AngelaMos | 2026
// redis.go

package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/voice-tutor/internal/core"
)

const (
	retryKeyPart = "retry:"
	waitKeyPart  = "promo_wait:"
)

type RedisRetryCache struct {
	rdb   *redis.Client
	keyNS string
}

func NewRedisRetryCache(rdb *redis.Client, keyPrefix string) *RedisRetryCache {
	return &RedisRetryCache{rdb: rdb, keyNS: keyPrefix + retryKeyPart}
}

func (c *RedisRetryCache) key(userID int64) string {
	return c.keyNS + strconv.FormatInt(userID, 10)
}

func (c *RedisRetryCache) Put(ctx context.Context, userID int64, p Payload) error {
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode retry payload: %w", err)
	}
	if err := c.rdb.Set(ctx, c.key(userID), b, 0).Err(); err != nil {
		return core.StoreError("put retry payload", err)
	}
	return nil
}

func (c *RedisRetryCache) Get(ctx context.Context, userID int64) (*Payload, error) {
	val, err := c.rdb.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, core.StoreError("get retry payload", err)
	}

	var p Payload
	if err := json.Unmarshal(val, &p); err != nil {
		return nil, fmt.Errorf("decode retry payload: %w", err)
	}
	return &p, nil
}

func (c *RedisRetryCache) Remove(ctx context.Context, userID int64) error {
	if err := c.rdb.Del(ctx, c.key(userID)).Err(); err != nil {
		return core.StoreError("remove retry payload", err)
	}
	return nil
}

type RedisWaitSet struct {
	rdb   *redis.Client
	keyNS string
	ttl   time.Duration
}

func NewRedisWaitSet(rdb *redis.Client, keyPrefix string, ttl time.Duration) *RedisWaitSet {
	return &RedisWaitSet{rdb: rdb, keyNS: keyPrefix + waitKeyPart, ttl: ttl}
}

func (w *RedisWaitSet) key(userID int64) string {
	return w.keyNS + strconv.FormatInt(userID, 10)
}

func (w *RedisWaitSet) Add(ctx context.Context, userID int64) error {
	if err := w.rdb.Set(ctx, w.key(userID), "1", w.ttl).Err(); err != nil {
		return core.StoreError("add promo wait", err)
	}
	return nil
}

func (w *RedisWaitSet) Remove(ctx context.Context, userID int64) error {
	if err := w.rdb.Del(ctx, w.key(userID)).Err(); err != nil {
		return core.StoreError("remove promo wait", err)
	}
	return nil
}

func (w *RedisWaitSet) Contains(ctx context.Context, userID int64) (bool, error) {
	n, err := w.rdb.Exists(ctx, w.key(userID)).Result()
	if err != nil {
		return false, core.StoreError("check promo wait", err)
	}
	return n > 0, nil
}

var (
	_ RetryCache = (*RedisRetryCache)(nil)
	_ WaitSet    = (*RedisWaitSet)(nil)
)
