package resilience

import (
	"context"
	"errors"
	"testing"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/glyphfix/internal/observe"
	"github.com/MrWong99/glyphfix/pkg/provider/llm"
	llmmock "github.com/MrWong99/glyphfix/pkg/provider/llm/mock"
)

func TestLLMFallback_Complete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		primaryErr  error
		wantContent string
		wantErr     error
	}{
		{"primary answers", nil, "from primary", nil},
		{"failover", errors.New("primary down"), "from secondary", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			primary := &llmmock.Provider{
				CompleteResponse: &llm.CompletionResponse{Content: "from primary"},
				CompleteErr:      tt.primaryErr,
			}
			secondary := &llmmock.Provider{
				CompleteResponse: &llm.CompletionResponse{Content: "from secondary"},
			}
			fb := NewLLMFallback(primary, "primary", FallbackConfig{})
			fb.AddFallback("secondary", secondary)

			resp, err := fb.Complete(context.Background(), llm.CompletionRequest{
				Messages: []llm.Message{{Role: llm.RoleUser, Content: "score"}},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if resp.Content != tt.wantContent {
				t.Errorf("content = %q, want %q", resp.Content, tt.wantContent)
			}
			if len(primary.Calls()) != 1 {
				t.Errorf("primary called %d times, want 1", len(primary.Calls()))
			}
		})
	}
}

func TestLLMFallback_AllFail(t *testing.T) {
	t.Parallel()

	fb := NewLLMFallback(&llmmock.Provider{CompleteErr: errors.New("a down")}, "a", FallbackConfig{})
	fb.AddFallback("b", &llmmock.Provider{CompleteErr: errors.New("b down")})

	_, err := fb.Complete(context.Background(), llm.CompletionRequest{})
	if !errors.Is(err, ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
	if got := fb.States(); len(got) != 2 {
		t.Errorf("States() = %v, want two entries", got)
	}
}

func TestLLMFallback_RecordsProviderMetrics(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	fb := NewLLMFallback(&llmmock.Provider{CompleteErr: errors.New("down")}, "moonshot",
		FallbackConfig{}, WithLLMMetrics(m))
	fb.AddFallback("ollama", &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: "{}"}})

	if _, err := fb.Complete(context.Background(), llm.CompletionRequest{}); err != nil {
		t.Fatalf("Complete: %v", err)
	}

	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	got := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, met := range sm.Metrics {
			sum, ok := met.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				provider, _ := dp.Attributes.Value("provider")
				got[met.Name+"/"+provider.AsString()] += dp.Value
			}
		}
	}

	want := map[string]int64{
		"glyphfix.provider.requests/moonshot": 1,
		"glyphfix.provider.requests/ollama":   1,
		"glyphfix.provider.errors/moonshot":   1,
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %d, want %d (all: %v)", k, got[k], v, got)
		}
	}
	if got["glyphfix.provider.errors/ollama"] != 0 {
		t.Errorf("unexpected error recorded for the healthy provider")
	}
}
