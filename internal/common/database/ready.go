// Package database opens the stores behind the funnel: Postgres for
// submissions, Redis for wizard drafts and Elasticsearch for the admin
// search index.
package database

import (
	"context"
	"fmt"
	"time"

	"tulipai-funnel/internal/common/logger"
)

// Pinger is anything whose connectivity can be checked.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// RetryPolicy controls how long startup waits for a dependency.
type RetryPolicy struct {
	Attempts     int
	InitialDelay time.Duration
	PingTimeout  time.Duration
}

// StartupPolicy is used by the server; dependencies may come up after it.
var StartupPolicy = RetryPolicy{Attempts: 5, InitialDelay: 2 * time.Second, PingTimeout: 5 * time.Second}

// OncePolicy pings a single time, for short-lived commands.
var OncePolicy = RetryPolicy{Attempts: 1, PingTimeout: 5 * time.Second}

// WaitReady pings p until it answers, doubling the delay between attempts.
// It gives up early when ctx is done.
func WaitReady(ctx context.Context, name string, p Pinger, policy RetryPolicy, log logger.Logger) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}
	delay := policy.InitialDelay

	var err error
	for i := 1; i <= attempts; i++ {
		err = ping(ctx, p, policy.PingTimeout)
		if err == nil {
			if i > 1 {
				log.Info(name+" reachable", map[string]interface{}{"attempt": i})
			}
			return nil
		}
		if i == attempts {
			break
		}

		log.Warn(name+" not reachable, retrying", map[string]interface{}{
			"error":       err.Error(),
			"attempt":     i,
			"maxAttempts": attempts,
			"nextRetryIn": delay.String(),
		})
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("%s unavailable after %d attempts: %w", name, attempts, err)
}

func ping(ctx context.Context, p Pinger, timeout time.Duration) error {
	if timeout <= 0 {
		return p.Ping(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return p.Ping(ctx)
}
