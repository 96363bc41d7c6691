// Package throttle counts failed logins per email within a fixed window.
package throttle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Limiter decides whether a login attempt for an email may proceed.
// Implementations must not depend on whether the account exists.
type Limiter interface {
	Allowed(ctx context.Context, email string) (bool, error)
	Fail(ctx context.Context, email string) error
	Reset(ctx context.Context, email string) error
}

// Noop never blocks.
type Noop struct{}

func (Noop) Allowed(context.Context, string) (bool, error) { return true, nil }
func (Noop) Fail(context.Context, string) error            { return nil }
func (Noop) Reset(context.Context, string) error           { return nil }

// counterStore is the slice of Redis the limiter needs.
type counterStore interface {
	Incr(ctx context.Context, key string) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration) error
	Get(ctx context.Context, key string) (int64, error)
	Del(ctx context.Context, key string) error
}

type redisStore struct {
	client redis.UniversalClient
}

func (s redisStore) Incr(ctx context.Context, key string) (int64, error) {
	return s.client.Incr(ctx, key).Result()
}

func (s redisStore) Expire(ctx context.Context, key string, ttl time.Duration) error {
	return s.client.Expire(ctx, key, ttl).Err()
}

func (s redisStore) Get(ctx context.Context, key string) (int64, error) {
	n, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

func (s redisStore) Del(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

// RedisLimiter blocks an email once limit failures land within window. The
// window starts at the first failure and is not extended by later ones.
type RedisLimiter struct {
	store  counterStore
	limit  int64
	window time.Duration
}

func NewRedisLimiter(client redis.UniversalClient, limit int, window time.Duration) *RedisLimiter {
	return newLimiter(redisStore{client: client}, limit, window)
}

func newLimiter(store counterStore, limit int, window time.Duration) *RedisLimiter {
	if limit <= 0 {
		limit = 5
	}
	if window <= 0 {
		window = 15 * time.Minute
	}
	return &RedisLimiter{store: store, limit: int64(limit), window: window}
}

// Key is the counter key for email; raw addresses never reach Redis.
func Key(email string) string {
	sum := sha256.Sum256([]byte(strings.ToLower(strings.TrimSpace(email))))
	return "valutx:login-failures:" + hex.EncodeToString(sum[:])
}

func (l *RedisLimiter) Allowed(ctx context.Context, email string) (bool, error) {
	n, err := l.store.Get(ctx, Key(email))
	if err != nil {
		return true, fmt.Errorf("read failure counter: %w", err)
	}
	return n < l.limit, nil
}

func (l *RedisLimiter) Fail(ctx context.Context, email string) error {
	key := Key(email)
	n, err := l.store.Incr(ctx, key)
	if err != nil {
		return fmt.Errorf("incr failure counter: %w", err)
	}
	if n == 1 {
		if err := l.store.Expire(ctx, key, l.window); err != nil {
			return fmt.Errorf("expire failure counter: %w", err)
		}
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, email string) error {
	if err := l.store.Del(ctx, Key(email)); err != nil {
		return fmt.Errorf("reset failure counter: %w", err)
	}
	return nil
}
