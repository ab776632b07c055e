package config

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/antzucaro/matchr"

	"github.com/MrWong99/glyphfix/pkg/provider/llm"
)

// ErrProviderNotRegistered is returned by [Registry.CreateLLM] when no
// factory has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// LLMFactory builds a scoring provider from its configuration entry.
type LLMFactory func(ProviderEntry) (llm.Provider, error)

// Registry maps scorer provider names to factories. Names are matched
// case-insensitively. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]LLMFactory
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]LLMFactory)}
}

func registryKey(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

// RegisterLLM registers factory under name, replacing any earlier one.
func (r *Registry) RegisterLLM(name string, factory LLMFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[registryKey(name)] = factory
}

// LLMNames returns the registered provider names, sorted.
func (r *Registry) LLMNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Sorted(maps.Keys(r.factories))
}

// CreateLLM builds the provider registered under entry.Name. An unknown name
// yields [ErrProviderNotRegistered], naming the closest registered provider
// when one is a plausible typo.
func (r *Registry) CreateLLM(entry ProviderEntry) (llm.Provider, error) {
	key := registryKey(entry.Name)
	r.mu.RLock()
	factory, ok := r.factories[key]
	r.mu.RUnlock()
	if !ok {
		if hint := r.closest(key); hint != "" {
			return nil, fmt.Errorf("%w: %q (did you mean %q?)", ErrProviderNotRegistered, entry.Name, hint)
		}
		return nil, fmt.Errorf("%w: %q", ErrProviderNotRegistered, entry.Name)
	}
	p, err := factory(entry)
	if err != nil {
		return nil, fmt.Errorf("config: create provider %q: %w", entry.Name, err)
	}
	return p, nil
}

// closest returns the registered name within edit distance 2 of key, the
// alphabetically first on ties, or "".
func (r *Registry) closest(key string) string {
	if key == "" {
		return ""
	}
	best, bestDist := "", 3
	for _, name := range r.LLMNames() {
		if d := matchr.Levenshtein(key, name); d < bestDist {
			best, bestDist = name, d
		}
	}
	return best
}
