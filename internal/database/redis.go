package database

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/qbank-composer/internal/config"
)

// NewRedisClient opens the client used for persisted compositions, event
// fan-out and the usage queue. The read timeout must outlast the worker's
// BLPop poll, so it is left to go-redis, which extends it for blocking calls.
func NewRedisClient(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	if opt.DialTimeout == 0 {
		opt.DialTimeout = 3 * time.Second
	}

	rdb := redis.NewClient(opt)

	ping := func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	if err := withRetry(ctx, log, "redis", ping); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Info().
		Str("addr", opt.Addr).
		Int("db", opt.DB).
		Int("pool_size", opt.PoolSize).
		Msg("Redis connected")

	return rdb, nil
}
