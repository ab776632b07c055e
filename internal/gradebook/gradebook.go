// Package gradebook keeps the history of graded submissions.
//
// Every [Record] carries a content digest of the problem and the corrected
// source, so resubmitting identical work for the same problem can return the
// stored grade instead of running the compiler and the scorer again.
package gradebook

import (
	"context"
	"encoding/hex"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/zeebo/blake3"

	"github.com/MrWong99/glyphfix/internal/compile"
	"github.com/MrWong99/glyphfix/internal/score"
)

// ErrNotFound is returned when no record matches a lookup.
var ErrNotFound = errors.New("gradebook: record not found")

// DefaultRecentLimit is used by Recent when limit <= 0.
const DefaultRecentLimit = 20

// Record is one graded submission.
type Record struct {
	ID        uuid.UUID       `json:"id"`
	Digest    string          `json:"digest"`
	Problem   string          `json:"problem"`
	Source    string          `json:"source"`
	Compile   *compile.Result `json:"compile,omitempty"`
	Score     *score.Report   `json:"score,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// NewRecord returns a record with a fresh id, digest and creation time.
func NewRecord(problem, source string, c *compile.Result, s *score.Report) Record {
	return Record{
		ID:        uuid.New(),
		Digest:    Digest(problem, source),
		Problem:   problem,
		Source:    source,
		Compile:   c,
		Score:     s,
		CreatedAt: time.Now().UTC(),
	}
}

// Digest returns the hex BLAKE3 hash identifying source graded against
// problem.
func Digest(problem, source string) string {
	h := blake3.New()
	h.Write([]byte(problem))
	h.Write([]byte{0})
	h.Write([]byte(source))
	return hex.EncodeToString(h.Sum(nil))
}

// Store persists records. Implementations must be safe for concurrent use.
type Store interface {
	// Save inserts r.
	Save(ctx context.Context, r Record) error

	// Get returns the record with id or [ErrNotFound].
	Get(ctx context.Context, id uuid.UUID) (*Record, error)

	// FindByDigest returns the newest record with digest or [ErrNotFound].
	FindByDigest(ctx context.Context, digest string) (*Record, error)

	// Recent returns up to limit records, newest first.
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// MemStore is an in-process [Store].
type MemStore struct {
	mu      sync.RWMutex
	records []Record
}

var _ Store = (*MemStore)(nil)

// NewMemStore returns an empty store.
func NewMemStore() *MemStore { return &MemStore{} }

// Save implements [Store].
func (m *MemStore) Save(_ context.Context, r Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

// Get implements [Store].
func (m *MemStore) Get(_ context.Context, id uuid.UUID) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.records {
		if m.records[i].ID == id {
			r := m.records[i]
			return &r, nil
		}
	}
	return nil, ErrNotFound
}

// FindByDigest implements [Store].
func (m *MemStore) FindByDigest(_ context.Context, digest string) (*Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var found *Record
	for i := range m.records {
		r := &m.records[i]
		if r.Digest == digest && (found == nil || !r.CreatedAt.Before(found.CreatedAt)) {
			found = r
		}
	}
	if found == nil {
		return nil, ErrNotFound
	}
	out := *found
	return &out, nil
}

// Recent implements [Store].
func (m *MemStore) Recent(_ context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	m.mu.RLock()
	out := slices.Clone(m.records)
	m.mu.RUnlock()

	// Later saves win ties on CreatedAt.
	slices.Reverse(out)
	slices.SortStableFunc(out, func(a, b Record) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
