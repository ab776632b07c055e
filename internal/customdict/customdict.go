// Package customdict stores course-specific identifiers (class, function
// and variable names used by an assignment) that extend the lexicon.
//
// Words live in a Redis set so several daemons share one dictionary; a
// [Memory] store serves tests and deployments without Redis. The lexicon
// itself stays immutable: callers build an extended copy with [Extend]
// whenever the dictionary changes.
package customdict

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/MrWong99/glyphfix/internal/lexicon"
)

// ErrInvalidWord is returned when a word does not have identifier syntax.
var ErrInvalidWord = errors.New("customdict: invalid word")

// DefaultKey is the Redis set holding the words.
const DefaultKey = "glyphfix:dictionary"

// Store is a set of custom identifiers. Implementations must be safe for
// concurrent use.
type Store interface {
	// Add inserts word. Adding an existing word is not an error.
	Add(ctx context.Context, word string) error

	// Remove deletes word. Removing a missing word is not an error.
	Remove(ctx context.Context, word string) error

	// List returns all words, sorted.
	List(ctx context.Context) ([]string, error)

	// Ping reports whether the backing store is reachable.
	Ping(ctx context.Context) error
}

// Validate returns [ErrInvalidWord] unless word is an identifier.
func Validate(word string) error {
	if !lexicon.IsIdentifier(word) {
		return fmt.Errorf("%w: %q", ErrInvalidWord, word)
	}
	return nil
}

// Extend returns base extended with every word in s.
func Extend(ctx context.Context, s Store, base *lexicon.Lexicon) (*lexicon.Lexicon, error) {
	words, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(words) == 0 {
		return base, nil
	}
	return base.With(words...), nil
}

// Redis keeps the words in a Redis set.
type Redis struct {
	client redis.UniversalClient
	key    string
}

var _ Store = (*Redis)(nil)

// NewRedis returns a store over client using the set key. An empty key
// selects [DefaultKey].
func NewRedis(client redis.UniversalClient, key string) *Redis {
	if key == "" {
		key = DefaultKey
	}
	return &Redis{client: client, key: key}
}

// Add implements [Store].
func (r *Redis) Add(ctx context.Context, word string) error {
	if err := Validate(word); err != nil {
		return err
	}
	if err := r.client.SAdd(ctx, r.key, word).Err(); err != nil {
		return fmt.Errorf("customdict: add %q: %w", word, err)
	}
	return nil
}

// Remove implements [Store].
func (r *Redis) Remove(ctx context.Context, word string) error {
	if err := r.client.SRem(ctx, r.key, word).Err(); err != nil {
		return fmt.Errorf("customdict: remove %q: %w", word, err)
	}
	return nil
}

// List implements [Store].
func (r *Redis) List(ctx context.Context) ([]string, error) {
	words, err := r.client.SMembers(ctx, r.key).Result()
	if err != nil {
		return nil, fmt.Errorf("customdict: list: %w", err)
	}
	slices.Sort(words)
	return words, nil
}

// Ping implements [Store].
func (r *Redis) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("customdict: ping: %w", err)
	}
	return nil
}

// Memory is an in-process [Store].
type Memory struct {
	mu    sync.RWMutex
	words map[string]struct{}
}

var _ Store = (*Memory)(nil)

// NewMemory returns a store seeded with words. Invalid words are skipped.
func NewMemory(words ...string) *Memory {
	m := &Memory{words: make(map[string]struct{}, len(words))}
	for _, w := range words {
		if Validate(w) == nil {
			m.words[w] = struct{}{}
		}
	}
	return m
}

// Add implements [Store].
func (m *Memory) Add(_ context.Context, word string) error {
	if err := Validate(word); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.words[word] = struct{}{}
	return nil
}

// Remove implements [Store].
func (m *Memory) Remove(_ context.Context, word string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.words, word)
	return nil
}

// List implements [Store].
func (m *Memory) List(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.words))
	for w := range m.words {
		out = append(out, w)
	}
	slices.Sort(out)
	return out, nil
}

// Ping implements [Store]. It always succeeds.
func (m *Memory) Ping(context.Context) error { return nil }
