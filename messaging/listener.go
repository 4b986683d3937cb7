package messaging

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/prisma-monitor/indexer/logging"
	"github.com/prisma-monitor/indexer/utils"
)

const (
	subscribeConfirmTimeout = 5 * time.Second
	reconnectDelay          = 5 * time.Second
)

type Handler func(ctx context.Context, payload []byte) error

// Subscriber is implemented by *redis.Client.
type Subscriber interface {
	Subscribe(ctx context.Context, channels ...string) *redis.PubSub
}

// Listener relays pub/sub messages to the handler registered for their channel.
type Listener struct {
	client   Subscriber
	handlers map[string]Handler
	logger   logging.Logger
}

func NewListener(client Subscriber, logger logging.Logger) *Listener {
	return &Listener{
		client:   client,
		handlers: make(map[string]Handler, len(Channels)),
		logger:   logger,
	}
}

func (l *Listener) RegisterHandler(channel string, handler Handler) {
	l.handlers[channel] = handler
}

// Run blocks until ctx is cancelled, re-subscribing after connection failures.
func (l *Listener) Run(ctx context.Context) {
	channels := make([]string, 0, len(l.handlers))
	for _, channel := range Channels {
		if _, ok := l.handlers[channel]; ok {
			channels = append(channels, channel)
		}
	}
	for attempt := 1; ; attempt++ {
		err := l.listen(ctx, channels)
		if ctx.Err() != nil {
			l.logger.Info("stopping redis listener")
			return
		}
		l.logger.WithError(err).WithField("attempt", attempt).Warn("redis subscription lost, reconnecting")
		ListenerReconnects.Inc()
		if utils.ContextSleep(ctx, reconnectDelay) == nil {
			return
		}
	}
}

func (l *Listener) listen(ctx context.Context, channels []string) error {
	pubsub := l.client.Subscribe(ctx, channels...)
	defer func() {
		if err := pubsub.Close(); err != nil {
			l.logger.WithError(err).Error("can't close redis subscription")
		}
	}()

	receiveCtx, cancel := context.WithTimeout(ctx, subscribeConfirmTimeout)
	_, err := pubsub.Receive(receiveCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("can't confirm subscription: %w", err)
	}
	l.logger.WithField("channels", channels).Info("subscribed to redis channels")

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription channel closed")
			}
			l.Dispatch(ctx, msg.Channel, []byte(msg.Payload))
		}
	}
}

// Dispatch runs the handler of channel. Handler errors and panics are logged, never propagated.
func (l *Listener) Dispatch(ctx context.Context, channel string, payload []byte) {
	handler, ok := l.handlers[channel]
	if !ok {
		ReceivedMessages.WithLabelValues(channel, "unknown").Inc()
		l.logger.WithField("channel", channel).Warn("no handler for channel")
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			ReceivedMessages.WithLabelValues(channel, "panic").Inc()
			l.logger.WithFields(map[string]interface{}{
				"channel": channel,
				"panic":   rec,
				"stack":   string(debug.Stack()),
			}).Error("panic in message handler")
		}
	}()
	if err := handler(ctx, payload); err != nil {
		ReceivedMessages.WithLabelValues(channel, "error").Inc()
		l.logger.WithError(err).WithField("channel", channel).Error("can't handle message")
		return
	}
	ReceivedMessages.WithLabelValues(channel, "ok").Inc()
}
