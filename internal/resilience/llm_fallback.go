package resilience

import (
	"context"

	"github.com/MrWong99/glyphfix/internal/observe"
	"github.com/MrWong99/glyphfix/pkg/provider/llm"
)

// LLMFallback implements [llm.Provider] with automatic failover across the
// configured scoring models. Each backend has its own circuit breaker.
type LLMFallback struct {
	group   *FallbackGroup[llm.Provider]
	metrics *observe.Metrics
}

var _ llm.Provider = (*LLMFallback)(nil)

// LLMOption configures an [LLMFallback].
type LLMOption func(*LLMFallback)

// WithLLMMetrics records one provider request per attempted backend and a
// provider error for every failed attempt.
func WithLLMMetrics(m *observe.Metrics) LLMOption {
	return func(f *LLMFallback) {
		f.metrics = m
	}
}

// NewLLMFallback creates an [LLMFallback] with primary as the preferred backend.
func NewLLMFallback(primary llm.Provider, primaryName string, cfg FallbackConfig, opts ...LLMOption) *LLMFallback {
	f := &LLMFallback{group: NewFallbackGroup(primary, primaryName, cfg)}
	for _, o := range opts {
		o(f)
	}
	return f
}

// AddFallback registers an additional provider as a fallback.
func (f *LLMFallback) AddFallback(name string, provider llm.Provider) {
	f.group.AddFallback(name, provider)
}

// States reports the breaker state of every backend by name.
func (f *LLMFallback) States() map[string]State {
	return f.group.States()
}

// Complete sends the request to the first healthy provider and returns its
// response.
func (f *LLMFallback) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return ExecuteWithResult(ctx, f.group, func(ctx context.Context, name string, p llm.Provider) (*llm.CompletionResponse, error) {
		resp, err := p.Complete(ctx, req)
		if f.metrics != nil {
			status := "ok"
			if err != nil {
				status = "error"
				f.metrics.RecordProviderError(ctx, name, "complete")
			}
			f.metrics.RecordProviderRequest(ctx, name, status)
		}
		return resp, err
	})
}
