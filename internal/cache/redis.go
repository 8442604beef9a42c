package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pulsehub/channel-pulse/internal/metrics"
)

// Redis is a Store backed by a shared Redis instance. Every backend failure
// degrades to a cache miss or a dropped write; nothing propagates to callers.
type Redis struct {
	rdb    *redis.Client
	prefix string
	logger *slog.Logger
}

// RedisOptions holds Redis connection settings.
type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Prefix   string
}

// NewRedis creates a Redis-backed store with connection validation.
func NewRedis(opts RedisOptions, logger *slog.Logger) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "channelpulse"
	}

	return &Redis{rdb: rdb, prefix: prefix, logger: logger}, nil
}

func (r *Redis) key(k string) string {
	return r.prefix + ":" + k
}

// Get returns the value for key; any backend error reads as a miss.
func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			r.logger.Debug("redis get failed, treating as miss", "key", key, "error", err)
		}
		metrics.CacheHits.WithLabelValues("redis", "miss").Inc()
		return nil, false
	}
	metrics.CacheHits.WithLabelValues("redis", "hit").Inc()
	return val, true
}

// Set stores value under key with the given TTL; failures are dropped.
func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if err := r.rdb.Set(ctx, r.key(key), value, ttl).Err(); err != nil {
		r.logger.Debug("redis set failed, dropping write", "key", key, "error", err)
	}
}

// Delete removes key; failures are dropped.
func (r *Redis) Delete(ctx context.Context, key string) {
	if err := r.rdb.Del(ctx, r.key(key)).Err(); err != nil {
		r.logger.Debug("redis del failed", "key", key, "error", err)
	}
}

// Clear drops every key under this store's prefix.
func (r *Redis) Clear(ctx context.Context) {
	iter := r.rdb.Scan(ctx, 0, r.prefix+":*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			r.logger.Debug("redis del failed during clear", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		r.logger.Debug("redis scan failed during clear", "error", err)
	}
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.rdb.Close()
}
