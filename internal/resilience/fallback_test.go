package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newGroup(t *testing.T, cb CircuitBreakerConfig) *FallbackGroup[string] {
	t.Helper()
	fg := NewFallbackGroup("primary", "primary", FallbackConfig{CircuitBreaker: cb})
	fg.AddFallback("secondary", "secondary")
	return fg
}

func TestFallbackGroup_Execute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		failing  map[string]bool
		wantCall string
		wantErr  error
	}{
		{"primary succeeds", nil, "primary", nil},
		{"failover to secondary", map[string]bool{"primary": true}, "secondary", nil},
		{"all fail", map[string]bool{"primary": true, "secondary": true}, "", ErrAllFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			fg := newGroup(t, CircuitBreakerConfig{MaxFailures: 3})
			var called string
			err := fg.Execute(context.Background(), func(_ context.Context, name, v string) error {
				if name != v {
					t.Errorf("entry name %q does not match value %q", name, v)
				}
				if tt.failing[v] {
					return errTest
				}
				called = v
				return nil
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && !errors.Is(err, errTest) {
				t.Errorf("err = %v, want it to wrap the last failure", err)
			}
			if called != tt.wantCall {
				t.Errorf("called = %q, want %q", called, tt.wantCall)
			}
		})
	}
}

func TestFallbackGroup_SkipsOpenProvider(t *testing.T) {
	t.Parallel()

	fg := newGroup(t, CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})
	primaryCalls := 0
	for range 2 {
		_ = fg.Execute(context.Background(), func(_ context.Context, _, v string) error {
			if v == "primary" {
				primaryCalls++
				return errTest
			}
			return nil
		})
	}

	states := fg.States()
	if states["primary"] != StateOpen || states["secondary"] != StateClosed {
		t.Fatalf("states = %v, want primary open and secondary closed", states)
	}

	var called string
	err := fg.Execute(context.Background(), func(_ context.Context, _, v string) error {
		if v == "primary" {
			primaryCalls++
		}
		called = v
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if called != "secondary" || primaryCalls != 2 {
		t.Errorf("called = %q after %d primary calls, want secondary after 2", called, primaryCalls)
	}
}

func TestFallbackGroup_StopsOnCanceledContext(t *testing.T) {
	t.Parallel()

	fg := newGroup(t, CircuitBreakerConfig{})
	ctx, cancel := context.WithCancel(context.Background())

	var calls []string
	err := fg.Execute(ctx, func(_ context.Context, name, _ string) error {
		calls = append(calls, name)
		cancel()
		return errTest
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if len(calls) != 1 {
		t.Errorf("calls = %v, want only the primary", calls)
	}
}

func TestExecuteWithResult(t *testing.T) {
	t.Parallel()

	fg := NewFallbackGroup(10, "ten", FallbackConfig{CircuitBreaker: CircuitBreakerConfig{MaxFailures: 3}})
	fg.AddFallback("twenty", 20)
	if fg.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", fg.Len())
	}

	result, err := ExecuteWithResult(context.Background(), fg, func(_ context.Context, _ string, v int) (int, error) {
		if v == 10 {
			return 0, errTest
		}
		return v * 2, nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result != 40 {
		t.Fatalf("result = %d, want 40", result)
	}
}

func TestFallbackGroup_FailoverErrorListsAttempts(t *testing.T) {
	t.Parallel()

	fg := newGroup(t, CircuitBreakerConfig{MaxFailures: 1, ResetTimeout: time.Hour})
	down := errors.New("503 overloaded")
	_ = fg.Execute(context.Background(), func(_ context.Context, name, _ string) error {
		if name == "primary" {
			return errTest
		}
		return nil
	})

	err := fg.Execute(context.Background(), func(context.Context, string, string) error { return down })
	var fe *FailoverError
	if !errors.As(err, &fe) {
		t.Fatalf("err = %T %v, want *FailoverError", err, err)
	}
	if len(fe.Attempts) != 2 {
		t.Fatalf("attempts = %+v, want two", fe.Attempts)
	}
	if a := fe.Attempts[0]; a.Backend != "primary" || !a.Skipped() {
		t.Errorf("first attempt = %+v, want primary skipped", a)
	}
	if a := fe.Attempts[1]; a.Backend != "secondary" || a.Skipped() || !errors.Is(a.Err, down) {
		t.Errorf("second attempt = %+v, want secondary failed with %v", a, down)
	}
	want := "resilience: all providers failed: primary: resilience: circuit breaker is open; secondary: 503 overloaded"
	if err.Error() != want {
		t.Errorf("Error() = %q\nwant      %q", err.Error(), want)
	}
}

func TestFailoverError_Empty(t *testing.T) {
	t.Parallel()

	err := error(&FailoverError{})
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("empty FailoverError does not match ErrAllFailed")
	}
	if err.Error() != "resilience: all providers failed: no providers configured" {
		t.Errorf("Error() = %q", err.Error())
	}
}
