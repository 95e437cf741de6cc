package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/narthex/vouch/internal/uuid"
)

// RedisLimiter shares sliding-window counters across server instances
// through Redis sorted sets. If Redis is unreachable the limiter
// denies: unlimited request creation is worse than a stalled login.
type RedisLimiter struct {
	client  *redis.Client
	cfg     Config
	timeout time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter creates a limiter backed by the given Redis client.
func NewRedisLimiter(client *redis.Client, cfg Config) *RedisLimiter {
	return &RedisLimiter{
		client:  client,
		cfg:     cfg,
		timeout: 2 * time.Second,
	}
}

func (l *RedisLimiter) Allow(identity, origin string, now time.Time) error {
	ctx, cancel := context.WithTimeout(context.Background(), l.timeout)
	defer cancel()

	idCount, err := l.windowCount(ctx, "vouch:rl:id:"+identity, now)
	if err != nil {
		return fmt.Errorf("rate limit backend: %w", err)
	}
	originCount, err := l.windowCount(ctx, "vouch:rl:origin:"+origin, now)
	if err != nil {
		return fmt.Errorf("rate limit backend: %w", err)
	}
	if idCount >= int64(l.cfg.PerIdentity) || originCount >= int64(l.cfg.PerOrigin) {
		return ErrLimited
	}

	if err := l.record(ctx, "vouch:rl:id:"+identity, now); err != nil {
		return fmt.Errorf("rate limit backend: %w", err)
	}
	if err := l.record(ctx, "vouch:rl:origin:"+origin, now); err != nil {
		return fmt.Errorf("rate limit backend: %w", err)
	}
	return nil
}

// windowCount trims entries outside the window and counts the rest.
func (l *RedisLimiter) windowCount(ctx context.Context, key string, now time.Time) (int64, error) {
	cutoff := now.Add(-l.cfg.Window).UnixNano()
	pipe := l.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", cutoff))
	count := pipe.ZCard(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return count.Val(), nil
}

func (l *RedisLimiter) record(ctx context.Context, key string, now time.Time) error {
	// Unique member per attempt; two attempts in the same instant must
	// both count.
	pipe := l.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now.UnixNano()), Member: uuid.New()})
	pipe.Expire(ctx, key, l.cfg.Window)
	_, err := pipe.Exec(ctx)
	return err
}
