package resilience

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrAllFailed matches every [FailoverError].
var ErrAllFailed = errors.New("resilience: all providers failed")

// FallbackConfig configures the circuit breaker created for each backend in
// a [FallbackGroup]. The breaker name is set to the backend name.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// Attempt records how one backend failed during a failover run.
type Attempt struct {
	Backend string
	Err     error
}

// Skipped reports whether the backend was not called because its breaker
// was open.
func (a Attempt) Skipped() bool { return errors.Is(a.Err, ErrCircuitOpen) }

// FailoverError is returned when no backend of a [FallbackGroup] produced a
// result. It matches [ErrAllFailed] and every recorded failure with
// [errors.Is].
type FailoverError struct {
	Attempts []Attempt
}

func (e *FailoverError) Error() string {
	if len(e.Attempts) == 0 {
		return ErrAllFailed.Error() + ": no providers configured"
	}
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Backend + ": " + a.Err.Error()
	}
	return ErrAllFailed.Error() + ": " + strings.Join(parts, "; ")
}

func (e *FailoverError) Unwrap() []error {
	errs := make([]error, 0, len(e.Attempts)+1)
	errs = append(errs, ErrAllFailed)
	for _, a := range e.Attempts {
		errs = append(errs, a.Err)
	}
	return errs
}

type backend[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup is an ordered failover chain of backends of the same type,
// each behind its own circuit breaker. Backends must all be added before the
// group is used concurrently.
type FallbackGroup[T any] struct {
	backends []backend[T]
	cfg      FallbackConfig
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the preferred
// backend.
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a backend. Backends are tried in the order they were
// added.
func (fg *FallbackGroup[T]) AddFallback(name string, v T) {
	cb := fg.cfg.CircuitBreaker
	cb.Name = name
	fg.backends = append(fg.backends, backend[T]{name: name, value: v, breaker: NewCircuitBreaker(cb)})
}

// Len returns the number of backends, primary included.
func (fg *FallbackGroup[T]) Len() int { return len(fg.backends) }

// States reports the breaker state of every backend by name.
func (fg *FallbackGroup[T]) States() map[string]State {
	out := make(map[string]State, len(fg.backends))
	for _, b := range fg.backends {
		out[b.name] = b.breaker.State()
	}
	return out
}

// Execute is [ExecuteWithResult] for calls without a result.
func (fg *FallbackGroup[T]) Execute(ctx context.Context, fn func(ctx context.Context, name string, v T) error) error {
	_, err := ExecuteWithResult(ctx, fg, func(ctx context.Context, name string, v T) (struct{}, error) {
		return struct{}{}, fn(ctx, name, v)
	})
	return err
}

// ExecuteWithResult calls fn with each backend of fg in order and returns the
// first successful result. Backends with an open breaker are skipped. When
// ctx is done no further backend is tried and the context error is
// returned; otherwise a complete failure is a [*FailoverError].
func ExecuteWithResult[T any, R any](ctx context.Context, fg *FallbackGroup[T], fn func(ctx context.Context, name string, v T) (R, error)) (R, error) {
	var zero R
	failed := &FailoverError{}
	for i := range fg.backends {
		b := &fg.backends[i]
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("resilience: %s: %w", b.name, err)
		}

		var result R
		err := b.breaker.Execute(func() error {
			var callErr error
			result, callErr = fn(ctx, b.name, b.value)
			return callErr
		})
		if err == nil {
			if len(failed.Attempts) > 0 {
				slog.Info("provider failover succeeded", "provider", b.name, "skipped", len(failed.Attempts))
			}
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, fmt.Errorf("resilience: %s: %w", b.name, ctxErr)
		}

		a := Attempt{Backend: b.name, Err: err}
		failed.Attempts = append(failed.Attempts, a)
		if a.Skipped() {
			slog.Debug("skipping provider with open circuit", "provider", b.name)
			continue
		}
		slog.Warn("provider failed, trying next", "provider", b.name, "err", err)
	}
	return zero, failed
}
