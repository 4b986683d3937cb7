package messaging

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/logging"
)

func NewRedisClient(ctx context.Context, cfg *config.RedisConfig, logger logging.Logger) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Host,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("can't connect to redis at %s: %w", cfg.Host, err)
	}
	logger.WithField("addr", cfg.Host).WithField("db", cfg.DB).Info("connected to redis")
	return rdb, nil
}
