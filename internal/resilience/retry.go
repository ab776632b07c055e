package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// RetryConfig controls [Retry].
type RetryConfig struct {
	// Attempts is the total number of calls, the first included. Default: 3.
	Attempts int

	// Initial is the delay before the second attempt. Default: 1s.
	Initial time.Duration

	// Max caps a single delay. Zero means no cap.
	Max time.Duration

	// Multiplier grows the delay after every failed attempt. Default: 2.
	Multiplier float64

	// Sleep overrides how a delay is waited out. Default: a timer that
	// returns early with ctx.Err() when ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying. [Retry] returns it (unwrapped)
// immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// Retry calls fn until it succeeds, returns a [Permanent] error, or the
// attempts are used up. Delays between attempts grow exponentially: with the
// defaults they are 1s and 2s. The returned error wraps the last failure.
func Retry(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	if cfg.Attempts <= 0 {
		cfg.Attempts = 3
	}
	if cfg.Initial <= 0 {
		cfg.Initial = time.Second
	}
	if cfg.Multiplier < 1 {
		cfg.Multiplier = 2
	}
	if cfg.Sleep == nil {
		cfg.Sleep = sleep
	}

	delay := cfg.Initial
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt >= cfg.Attempts {
			return fmt.Errorf("resilience: %d attempts failed: %w", attempt, err)
		}

		slog.Debug("retrying after failure", "attempt", attempt, "delay", delay, "err", err)
		if serr := cfg.Sleep(ctx, delay); serr != nil {
			return fmt.Errorf("resilience: retry interrupted: %w", errors.Join(serr, err))
		}
		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if cfg.Max > 0 && delay > cfg.Max {
			delay = cfg.Max
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
