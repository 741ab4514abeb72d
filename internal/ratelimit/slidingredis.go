package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Decision is the outcome of registering one request against a window.
type Decision struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// Window is a sliding-window counter backed by Redis sorted sets.
type Window struct {
	Client *redis.Client
	Prefix string
	Clock  func() time.Time
}

func (w Window) now() time.Time {
	if w.Clock != nil {
		return w.Clock()
	}
	return time.Now()
}

// Allow records a request for key and reports whether it fits within max
// requests per span. A nil client or non-positive limit allows everything.
func (w Window) Allow(ctx context.Context, key string, span time.Duration, max int) (Decision, error) {
	now := w.now()
	resetAt := now.Add(span)
	if w.Client == nil || max <= 0 || span <= 0 {
		return Decision{Allowed: true, Remaining: max, ResetAt: resetAt}, nil
	}

	redisKey := w.Prefix + key
	cutoff := float64(now.Add(-span).UnixNano())

	pipe := w.Client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("%f", cutoff))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixNano()), Member: uuid.NewString()})
	count := pipe.ZCard(ctx, redisKey)
	pipe.Expire(ctx, redisKey, span)
	if _, err := pipe.Exec(ctx); err != nil {
		return Decision{ResetAt: resetAt}, fmt.Errorf("rate window %s: %w", key, err)
	}

	current := int(count.Val())
	remaining := max - current
	if remaining < 0 {
		remaining = 0
	}
	return Decision{Allowed: current <= max, Remaining: remaining, ResetAt: resetAt}, nil
}
