package tokens

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetryPolicy bounds how a sync step is retried. Only the offline sync retries; request
// handling never does.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

func withRetry(ctx context.Context, policy RetryPolicy, logger *zap.Logger, step string, fn func(context.Context) error) error {
	maxRetries := policy.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	delay := policy.BaseDelay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	for attempt := 0; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if attempt >= maxRetries {
			return err
		}
		logger.Warn("retrying",
			zap.String("step", step),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		delay *= 2
	}
}
