// Package postgres provides a PostgreSQL-backed [gradebook.Store].
//
// Compile results and score reports are stored as JSONB next to the
// corrected source, indexed by digest for duplicate-submission lookups.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//	_ = store.Save(ctx, gradebook.NewRecord(problem, src, res, rep))
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/glyphfix/internal/compile"
	"github.com/MrWong99/glyphfix/internal/gradebook"
	"github.com/MrWong99/glyphfix/internal/score"
)

const ddlGrades = `
CREATE TABLE IF NOT EXISTS grades (
    id          UUID         PRIMARY KEY,
    digest      TEXT         NOT NULL,
    problem     TEXT         NOT NULL DEFAULT '',
    source      TEXT         NOT NULL,
    compile     JSONB,
    score       JSONB,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_grades_digest
    ON grades (digest, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_grades_created_at
    ON grades (created_at DESC);
`

// Migrate creates the grades table and its indexes. It is idempotent and
// safe to call on every start.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlGrades); err != nil {
		return fmt.Errorf("gradebook postgres: migrate: %w", err)
	}
	return nil
}

// Store is a [gradebook.Store] over a pgx connection pool. All methods are
// safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

var _ gradebook.Store = (*Store)(nil)

// NewStore connects to dsn, verifies the connection and runs [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("gradebook postgres: parse dsn: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gradebook postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("gradebook postgres: ping: %w", err)
	}
	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Ping checks the connection for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Close releases all pooled connections.
func (s *Store) Close() {
	s.pool.Close()
}

// Save implements [gradebook.Store].
func (s *Store) Save(ctx context.Context, r gradebook.Record) error {
	const q = `
		INSERT INTO grades (id, digest, problem, source, compile, score, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	compileJSON, err := marshalNullable(r.Compile)
	if err != nil {
		return fmt.Errorf("gradebook postgres: encode compile result: %w", err)
	}
	scoreJSON, err := marshalNullable(r.Score)
	if err != nil {
		return fmt.Errorf("gradebook postgres: encode score: %w", err)
	}
	_, err = s.pool.Exec(ctx, q,
		r.ID, r.Digest, r.Problem, r.Source, compileJSON, scoreJSON, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("gradebook postgres: save: %w", err)
	}
	return nil
}

const selectRecord = `
	SELECT id, digest, problem, source, compile, score, created_at
	FROM   grades`

// Get implements [gradebook.Store].
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*gradebook.Record, error) {
	rows, err := s.pool.Query(ctx, selectRecord+` WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("gradebook postgres: get: %w", err)
	}
	return collectOne(rows)
}

// FindByDigest implements [gradebook.Store].
func (s *Store) FindByDigest(ctx context.Context, digest string) (*gradebook.Record, error) {
	rows, err := s.pool.Query(ctx,
		selectRecord+` WHERE digest = $1 ORDER BY created_at DESC LIMIT 1`, digest)
	if err != nil {
		return nil, fmt.Errorf("gradebook postgres: find by digest: %w", err)
	}
	return collectOne(rows)
}

// Recent implements [gradebook.Store].
func (s *Store) Recent(ctx context.Context, limit int) ([]gradebook.Record, error) {
	if limit <= 0 {
		limit = gradebook.DefaultRecentLimit
	}
	rows, err := s.pool.Query(ctx, selectRecord+` ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("gradebook postgres: recent: %w", err)
	}
	records, err := pgx.CollectRows(rows, scanRecord)
	if err != nil {
		return nil, fmt.Errorf("gradebook postgres: recent: %w", err)
	}
	return records, nil
}

func collectOne(rows pgx.Rows) (*gradebook.Record, error) {
	r, err := pgx.CollectExactlyOneRow(rows, scanRecord)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, gradebook.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gradebook postgres: scan: %w", err)
	}
	return &r, nil
}

func scanRecord(row pgx.CollectableRow) (gradebook.Record, error) {
	var (
		r                      gradebook.Record
		compileJSON, scoreJSON []byte
	)
	if err := row.Scan(&r.ID, &r.Digest, &r.Problem, &r.Source, &compileJSON, &scoreJSON, &r.CreatedAt); err != nil {
		return r, err
	}
	if compileJSON != nil {
		r.Compile = new(compile.Result)
		if err := json.Unmarshal(compileJSON, r.Compile); err != nil {
			return r, fmt.Errorf("decode compile result: %w", err)
		}
	}
	if scoreJSON != nil {
		r.Score = new(score.Report)
		if err := json.Unmarshal(scoreJSON, r.Score); err != nil {
			return r, fmt.Errorf("decode score: %w", err)
		}
	}
	r.CreatedAt = r.CreatedAt.UTC()
	return r, nil
}

// marshalNullable encodes v as JSON, or returns nil for a nil pointer so the
// column is stored as SQL NULL.
func marshalNullable[T any](v *T) ([]byte, error) {
	if v == nil {
		return nil, nil
	}
	return json.Marshal(v)
}
