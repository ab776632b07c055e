// Package grade runs a recognised submission through the whole grading
// chain: correction, compilation, model scoring and persistence.
//
// A [Grader] degrades instead of failing where it can. Without a compiler
// the residual syntax report of the corrected text stands in for the
// compile log; a scorer that cannot be reached yields a [score.Failed]
// report flagged for review. A submission whose corrected text was already
// graded against the same problem returns the stored record.
package grade

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/glyphfix/internal/compile"
	"github.com/MrWong99/glyphfix/internal/correct"
	"github.com/MrWong99/glyphfix/internal/gradebook"
	"github.com/MrWong99/glyphfix/internal/observe"
	"github.com/MrWong99/glyphfix/internal/score"
	"github.com/MrWong99/glyphfix/internal/syntaxcheck"
)

// ErrEmptySubmission is returned by [Grader.Grade] when the request carries
// no source text.
var ErrEmptySubmission = errors.New("grade: empty submission")

// submissionName is the file name the corrected source is compiled as.
const submissionName = "submission.cpp"

// Corrector repairs recognised source text. Satisfied by
// [*correct.Pipeline] and [*correct.Current].
type Corrector interface {
	Correct(ctx context.Context, raw []byte) (*correct.Result, error)
}

// Compiler compiles a source file. Satisfied by [*compile.Compiler].
type Compiler interface {
	Compile(ctx context.Context, src string) (*compile.Result, error)
}

// Scorer grades corrected source. Satisfied by [*score.Scorer].
type Scorer interface {
	Score(ctx context.Context, sub score.Submission) (*score.Report, error)
}

// Request is one submission to grade.
type Request struct {
	// Source is the recognised, uncorrected text in any encoding.
	Source []byte

	// Problem is the assignment statement. Empty selects the grader's
	// default problem.
	Problem string

	// Tests maps test case names to whether they passed.
	Tests map[string]bool
}

// Outcome is the result of [Grader.Grade].
type Outcome struct {
	Record gradebook.Record

	// Corrections are the substitutions made to the submitted text. Empty
	// when the record was served from the gradebook.
	Corrections []correct.Correction

	// Cached is set when an identical submission had already been graded.
	Cached bool
}

// Option is a functional option for configuring a [Grader].
type Option func(*Grader)

// WithCompiler sets the compiler. When nil (the default), the residual
// syntax report is used as compile log.
func WithCompiler(c Compiler) Option {
	return func(g *Grader) { g.compiler = c }
}

// WithScorer sets the scorer. When nil (the default), records carry no
// score.
func WithScorer(s Scorer) Option {
	return func(g *Grader) { g.scorer = s }
}

// WithStore sets where records are kept. Default: a
// [gradebook.MemStore].
func WithStore(s gradebook.Store) Option {
	return func(g *Grader) {
		if s != nil {
			g.store = s
		}
	}
}

// WithProblem sets the problem statement used for requests without one.
func WithProblem(p string) Option {
	return func(g *Grader) { g.problem = p }
}

// WithMetrics tracks grades in flight on m.
func WithMetrics(m *observe.Metrics) Option {
	return func(g *Grader) { g.metrics = m }
}

// Grader chains correction, compilation and scoring. It is safe for
// concurrent use.
type Grader struct {
	corrector Corrector
	compiler  Compiler
	scorer    Scorer
	store     gradebook.Store
	problem   string
	metrics   *observe.Metrics
}

// New returns a Grader correcting with c.
func New(c Corrector, opts ...Option) *Grader {
	g := &Grader{
		corrector: c,
		store:     gradebook.NewMemStore(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Store returns the gradebook the grader saves to.
func (g *Grader) Store() gradebook.Store { return g.store }

// Grade corrects, compiles, scores and stores req. Errors are returned for
// an empty request, for a context that ends and for storage failures.
func (g *Grader) Grade(ctx context.Context, req Request) (*Outcome, error) {
	if len(strings.TrimSpace(string(req.Source))) == 0 {
		return nil, ErrEmptySubmission
	}
	if g.metrics != nil {
		defer g.metrics.GradeStarted(ctx)()
	}

	ctx, span := observe.StartSpan(ctx, "grade.Grade")
	defer span.End()
	log := observe.Logger(ctx)

	corrected, err := g.corrector.Correct(ctx, req.Source)
	if err != nil {
		return nil, observe.Fail(span, fmt.Errorf("grade: correct: %w", err))
	}

	problem := req.Problem
	if problem == "" {
		problem = g.problem
	}

	prev, err := g.store.FindByDigest(ctx, gradebook.Digest(problem, corrected.Text))
	switch {
	case err == nil:
		span.SetAttributes(attribute.Bool("cached", true))
		log.Info("submission already graded", "id", prev.ID)
		return &Outcome{Record: *prev, Corrections: []correct.Correction{}, Cached: true}, nil
	case !errors.Is(err, gradebook.ErrNotFound):
		return nil, observe.Fail(span, fmt.Errorf("grade: lookup: %w", err))
	}

	cres, compileLog, err := g.compile(ctx, corrected.Text)
	if err != nil {
		return nil, observe.Fail(span, err)
	}

	var rep *score.Report
	if g.scorer != nil {
		rep, err = g.scorer.Score(ctx, score.Submission{
			Problem:    problem,
			Source:     corrected.Text,
			CompileLog: compileLog,
			Tests:      req.Tests,
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("grade: score: %w", ctxErr)
			}
			log.Warn("scoring failed, storing a report flagged for review", "err", err)
			rep = score.Failed(err)
		}
	}

	rec := gradebook.NewRecord(problem, corrected.Text, cres, rep)
	if err := g.store.Save(ctx, rec); err != nil {
		return nil, observe.Fail(span, fmt.Errorf("grade: save: %w", err))
	}
	span.SetAttributes(
		attribute.String("grade.id", rec.ID.String()),
		attribute.Int("corrections", len(corrected.Corrections)),
	)
	log.Info("submission graded",
		"id", rec.ID,
		"corrections", len(corrected.Corrections),
		"compiled", cres != nil && cres.Success,
		"scored", rep != nil,
	)
	return &Outcome{Record: rec, Corrections: corrected.Corrections}, nil
}

// compile builds text in a scratch directory. It returns the compile result
// (nil when no compiler ran) and the log handed to the scorer.
func (g *Grader) compile(ctx context.Context, text string) (*compile.Result, string, error) {
	if g.compiler == nil {
		return nil, g.offlineLog(ctx, text), nil
	}

	dir, err := os.MkdirTemp("", "glyphfix-grade-*")
	if err != nil {
		return nil, "", fmt.Errorf("grade: scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, submissionName)
	if err := os.WriteFile(src, []byte(text), 0o644); err != nil {
		return nil, "", fmt.Errorf("grade: write source: %w", err)
	}

	res, err := g.compiler.Compile(ctx, src)
	if errors.Is(err, compile.ErrCompilerNotFound) {
		observe.Logger(ctx).Warn("compiler not installed, using syntax report as compile log", "err", err)
		return nil, g.offlineLog(ctx, text), nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("grade: compile: %w", err)
	}
	res.File = submissionName
	res.Output = ""
	if res.Success {
		return res, "", nil
	}
	return res, res.Log(), nil
}

func (g *Grader) offlineLog(ctx context.Context, text string) string {
	rep, err := syntaxcheck.Check(ctx, []byte(text))
	if err != nil {
		observe.Logger(ctx).Warn("syntax check failed", "err", err)
		return ""
	}
	lines := make([]string, len(rep.Issues))
	for i, is := range rep.Issues {
		lines[i] = submissionName + ":" + is.String()
	}
	return strings.Join(lines, "\n")
}
