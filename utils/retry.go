package utils

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/prisma-monitor/indexer/logging"
)

type Backoff struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
	Jitter       bool
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return backoff.Permanent(err)
}

// WithBackoff calls fn until it succeeds, returns a permanent error, or runs out of attempts.
func WithBackoff(ctx context.Context, cfg Backoff, logger logging.Logger, operation string, fn func() error) error {
	attempts := cfg.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
	}

	attempt := 0
	err := backoff.RetryNotify(func() error {
		attempt++
		return fn()
	}, cfg.policy(ctx, attempts), func(err error, next time.Duration) {
		logger.WithError(err).WithFields(logrus.Fields{
			"attempt":      attempt,
			"max_attempts": attempts,
			"retry_in":     next.String(),
		}).Warnf("%s failed, retrying", operation)
	})
	switch {
	case err == nil:
		if attempt > 1 {
			logger.WithField("attempts", attempt).Infof("%s succeeded after retries", operation)
		}
		return nil
	case ctx.Err() != nil:
		return fmt.Errorf("%s cancelled: %w", operation, ctx.Err())
	case attempt < attempts:
		return err
	default:
		return fmt.Errorf("%s failed after %d attempts: %w", operation, attempt, err)
	}
}

func (cfg Backoff) policy(ctx context.Context, attempts int) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.InitialDelay
	b.Multiplier = cfg.Multiplier
	if b.Multiplier <= 0 {
		b.Multiplier = 1
	}
	b.MaxInterval = cfg.MaxDelay
	if b.MaxInterval <= 0 {
		b.MaxInterval = time.Duration(math.MaxInt64)
	}
	b.RandomizationFactor = 0
	if cfg.Jitter {
		b.RandomizationFactor = 0.15
	}
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(attempts-1)), ctx)
}
