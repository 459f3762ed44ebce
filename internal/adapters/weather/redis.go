package weather

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/alejandrodnm/tabot/internal/domain"
	"github.com/alejandrodnm/tabot/internal/ports"
)

// HashReader is the subset of *redis.Client the reader needs.
type HashReader interface {
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

// Redis reads conditions from a hash of category to condition kept up to date
// by an external classifier.
//
// Key schema:
//
//	{key} - hash, field = category, value = condition label
type Redis struct {
	rdb HashReader
	key string
}

func NewRedis(rdb HashReader, key string) *Redis {
	return &Redis{rdb: rdb, key: key}
}

// NewRedisClient opens a client and verifies connectivity.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("weather.NewRedisClient: ping: %w", err)
	}
	return rdb, nil
}

func (r *Redis) All(ctx context.Context) (map[string]string, error) {
	m, err := r.rdb.HGetAll(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("weather.Redis: hgetall %s: %w", r.key, err)
	}
	return m, nil
}

func (r *Redis) One(ctx context.Context, category string) (string, error) {
	c, err := r.rdb.HGet(ctx, r.key, category).Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("weather.Redis: %s: %w", category, domain.ErrUnknownCategory)
	}
	if err != nil {
		return "", fmt.Errorf("weather.Redis: hget %s %s: %w", r.key, category, err)
	}
	return c, nil
}

var _ ports.ConditionReader = (*Redis)(nil)
