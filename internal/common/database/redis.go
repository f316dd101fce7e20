package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"tulipai-funnel/internal/common/config"
	"tulipai-funnel/internal/common/logger"

	"github.com/redis/go-redis/v9"
)

var ErrRedisAddressMissing = errors.New("redis address is empty")

// Redis holds the client backing wizard drafts.
type Redis struct {
	Client *redis.Client
}

// OpenRedis builds the client. Drafts are small single-key writes, so the
// pool stays small.
func OpenRedis(cfg config.RedisConfig) (*Redis, error) {
	if cfg.Address == "" {
		return nil, ErrRedisAddressMissing
	}
	return &Redis{Client: redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 1,
	})}, nil
}

// ConnectRedis opens the client and waits for PONG.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig, policy RetryPolicy, log logger.Logger) (*Redis, error) {
	r, err := OpenRedis(cfg)
	if err != nil {
		return nil, err
	}
	if err := WaitReady(ctx, "redis", r, policy, log); err != nil {
		r.Close()
		return nil, err
	}
	log.Info("redis connected", map[string]interface{}{"address": cfg.Address, "db": cfg.DB})
	return r, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) Close() error {
	if r.Client == nil {
		return nil
	}
	return r.Client.Close()
}
