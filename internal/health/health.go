// Package health implements the bounded health-polling gate described in
// spec.md §4.7: await an initial delay, then probe up to a maximum number
// of attempts, sleeping between (but not after) attempts, never raising.
package health

import (
	"context"
	"time"

	"muster/pkg/logging"
)

// Probe reports success or failure for one health check. It must never
// panic; the poller treats any returned error as a failed attempt.
type Probe func(ctx context.Context) (bool, error)

// Options configures a Wait call. Zero values fall back to the spec
// defaults: 10 attempts, 2s interval, no initial delay.
type Options struct {
	Label        string
	MaxAttempts  int
	Interval     time.Duration
	InitialDelay time.Duration
}

const (
	defaultMaxAttempts = 10
	defaultInterval    = 2 * time.Second
)

func (o Options) withDefaults() Options {
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = defaultMaxAttempts
	}
	if o.Interval <= 0 {
		o.Interval = defaultInterval
	}
	return o
}

// Wait polls probe until it succeeds, the attempt budget is exhausted, or
// ctx is cancelled. It returns true on the first success and false on
// exhaustion or cancellation; it never returns an error.
func Wait(ctx context.Context, probe Probe, opts Options) bool {
	opts = opts.withDefaults()

	if opts.InitialDelay > 0 {
		if !sleep(ctx, opts.InitialDelay) {
			return false
		}
	}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		ok, err := probe(ctx)
		if err != nil {
			logging.Debug("HealthPoller", "%s: attempt %d/%d failed: %v", opts.Label, attempt, opts.MaxAttempts, err)
		} else if ok {
			return true
		}

		if attempt < opts.MaxAttempts {
			if !sleep(ctx, opts.Interval) {
				return false
			}
		}
	}

	logging.Warn("HealthPoller", "%s: exhausted %d attempts", opts.Label, opts.MaxAttempts)
	return false
}

// sleep blocks for d or until ctx is cancelled, reporting whether it
// completed the full duration.
func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
