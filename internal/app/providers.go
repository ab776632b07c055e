package app

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/glyphfix/internal/config"
	"github.com/MrWong99/glyphfix/internal/observe"
	"github.com/MrWong99/glyphfix/internal/resilience"
	"github.com/MrWong99/glyphfix/pkg/provider/llm"
	"github.com/MrWong99/glyphfix/pkg/provider/llm/anyllm"
	"github.com/MrWong99/glyphfix/pkg/provider/llm/openai"
)

// RegisterProviders wires the built-in scorer backends into reg:
//
//   - "openai" talks to any OpenAI-compatible endpoint through openai-go,
//     which is how Moonshot and similar services are reached.
//   - "anyllm" picks an any-llm-go backend from options.backend.
//   - every any-llm-go backend name ("anthropic", "ollama", ...) selects
//     that backend directly.
func RegisterProviders(reg *config.Registry) {
	reg.RegisterLLM("openai", func(entry config.ProviderEntry) (llm.Provider, error) {
		var opts []openai.Option
		if entry.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(entry.BaseURL))
		}
		if org := optString(entry.Options, "organization"); org != "" {
			opts = append(opts, openai.WithOrganization(org))
		}
		if v := optString(entry.Options, "timeout"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("options.timeout: %w", err)
			}
			opts = append(opts, openai.WithTimeout(d))
		}
		return openai.New(entry.APIKey, entry.Model, opts...)
	})

	reg.RegisterLLM("anyllm", func(entry config.ProviderEntry) (llm.Provider, error) {
		backend := optString(entry.Options, "backend")
		if backend == "" {
			return nil, errors.New("options.backend is required")
		}
		return newAnyLLM(backend, entry)
	})

	for _, backend := range anyllm.Backends {
		if backend == "openai" {
			continue
		}
		reg.RegisterLLM(backend, func(entry config.ProviderEntry) (llm.Provider, error) {
			return newAnyLLM(backend, entry)
		})
	}

	for _, name := range reg.LLMNames() {
		slog.Debug("registered scorer provider", "name", name)
	}
}

func newAnyLLM(backend string, entry config.ProviderEntry) (llm.Provider, error) {
	var opts []anyllmlib.Option
	if entry.APIKey != "" {
		opts = append(opts, anyllmlib.WithAPIKey(entry.APIKey))
	}
	if entry.BaseURL != "" {
		opts = append(opts, anyllmlib.WithBaseURL(entry.BaseURL))
	}
	return anyllm.New(backend, entry.Model, opts...)
}

// BuildScorerLLM creates every configured scorer provider and chains them
// behind circuit breakers, the first entry being the primary. It returns
// nil when no provider is configured.
func BuildScorerLLM(cfg config.ScorerConfig, reg *config.Registry, m *observe.Metrics) (llm.Provider, error) {
	var fb *resilience.LLMFallback
	for i, entry := range cfg.Providers {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, fmt.Errorf("app: scorer provider %d: %w", i, err)
		}
		name := entry.Name
		if entry.Model != "" {
			name += "/" + entry.Model
		}
		if fb == nil {
			fb = resilience.NewLLMFallback(p, name, resilience.FallbackConfig{
				CircuitBreaker: resilience.CircuitBreakerConfig{
					OnStateChange: func(name string, from, to resilience.State) {
						slog.Warn("scorer provider breaker changed state",
							"provider", name, "from", from, "to", to)
					},
				},
			}, resilience.WithLLMMetrics(m))
		} else {
			fb.AddFallback(name, p)
		}
		slog.Info("scorer provider created", "name", name, "primary", i == 0)
	}
	if fb == nil {
		return nil, nil
	}
	return fb, nil
}

// optString extracts a string value from a provider Options map. Returns ""
// if the map is nil, the key is absent, or the value is not a string.
func optString(opts map[string]any, key string) string {
	s, _ := opts[key].(string)
	return s
}
