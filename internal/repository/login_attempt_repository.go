package repository

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// LoginAttemptRepository counts failed logins per key inside a fixed window.
type LoginAttemptRepository interface {
	Failures(ctx context.Context, key string) (int64, error)
	RecordFailure(ctx context.Context, key string, window time.Duration) (int64, error)
	Reset(ctx context.Context, key string) error
}

type loginAttemptRepository struct {
	client *redis.Client
	prefix string
}

// NewLoginAttemptRepository returns a Redis-backed counter. Keys are namespaced by prefix.
func NewLoginAttemptRepository(client *redis.Client, prefix string) LoginAttemptRepository {
	if prefix == "" {
		prefix = "login_failures"
	}
	return &loginAttemptRepository{client: client, prefix: prefix}
}

func (r *loginAttemptRepository) key(k string) string {
	return r.prefix + ":" + k
}

func (r *loginAttemptRepository) Failures(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Get(ctx, r.key(key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return n, err
}

// RecordFailure increments the counter; the window starts at the first failure.
func (r *loginAttemptRepository) RecordFailure(ctx context.Context, key string, window time.Duration) (int64, error) {
	k := r.key(key)
	n, err := r.client.Incr(ctx, k).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := r.client.Expire(ctx, k, window).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}

func (r *loginAttemptRepository) Reset(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}
