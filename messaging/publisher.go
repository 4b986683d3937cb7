package messaging

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sugawarayuuta/sonnet"

	"github.com/prisma-monitor/indexer/config"
	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/utils"
)

type Publisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// RedisCommander is the subset of the redis client used for publishing.
type RedisCommander interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

type RedisPublisher struct {
	client  RedisCommander
	backoff utils.Backoff
	logger  logging.Logger
}

func NewRedisPublisher(client RedisCommander, cfg *config.PublisherConfig, logger logging.Logger) *RedisPublisher {
	return &RedisPublisher{
		client: client,
		backoff: utils.Backoff{
			MaxAttempts:  cfg.MaxAttempts,
			InitialDelay: cfg.RetryDelay,
			Multiplier:   1,
		},
		logger: logger,
	}
}

// Publish marshals payload to JSON and publishes it, retrying on transport errors.
func (p *RedisPublisher) Publish(ctx context.Context, channel string, payload interface{}) error {
	data, err := sonnet.Marshal(payload)
	if err != nil {
		PublishResults.WithLabelValues(channel, "error").Inc()
		return fmt.Errorf("can't marshal %s payload: %w", channel, err)
	}
	logger := p.logger.WithField("channel", channel)
	err = utils.WithBackoff(ctx, p.backoff, logger, "publish", func() error {
		return p.client.Publish(ctx, channel, string(data)).Err()
	})
	if err != nil {
		PublishResults.WithLabelValues(channel, "error").Inc()
		return fmt.Errorf("can't publish to %s: %w", channel, err)
	}
	PublishResults.WithLabelValues(channel, "ok").Inc()
	return nil
}

// NopPublisher drops every message.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, interface{}) error {
	return nil
}
