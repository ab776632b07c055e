package correct

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/MrWong99/glyphfix/internal/correct/charfix"
	"github.com/MrWong99/glyphfix/internal/correct/normalize"
	"github.com/MrWong99/glyphfix/internal/correct/syntax"
	"github.com/MrWong99/glyphfix/internal/correct/tokenfix"
	"github.com/MrWong99/glyphfix/internal/lexicon"
	"github.com/MrWong99/glyphfix/internal/observe"
	"github.com/MrWong99/glyphfix/internal/source"
)

// Tuning holds the empirical constants of the correction stages.
type Tuning struct {
	// DigitWindow is the number of characters on each side inspected by the
	// digit/letter confidence gates.
	DigitWindow int

	// StreamWindow is the number of characters on each side searched for a
	// stream identifier when orienting an angle glyph.
	StreamWindow int

	// TokenThreshold and HeaderThreshold are the scores a dictionary or
	// header suggestion must exceed to be applied.
	TokenThreshold  float64
	HeaderThreshold float64

	// TokenLengthDelta and HeaderLengthDelta bound the length difference
	// between a token and a candidate.
	TokenLengthDelta  int
	HeaderLengthDelta int

	// EdgeBonus is added per matching first and last character of a token
	// suggestion; AffixBonus once for a header sharing a two-character prefix
	// or suffix.
	EdgeBonus  float64
	AffixBonus float64

	// SplicePolicy selects how accepted suggestions replace a token.
	SplicePolicy tokenfix.SplicePolicy
}

// DefaultTuning returns the tuning the stages use when not configured.
func DefaultTuning() Tuning {
	return Tuning{
		DigitWindow:       3,
		StreamWindow:      10,
		TokenThreshold:    0.7,
		HeaderThreshold:   0.8,
		TokenLengthDelta:  2,
		HeaderLengthDelta: 3,
		EdgeBonus:         0.1,
		AffixBonus:        0.15,
		SplicePolicy:      tokenfix.Replace,
	}
}

// Option is a functional option for configuring a [Pipeline].
type Option func(*Pipeline)

// WithLexicon sets the vocabulary shared by all stages. Default:
// [lexicon.Default].
func WithLexicon(l *lexicon.Lexicon) Option {
	return func(p *Pipeline) {
		if l != nil {
			p.lex = l
		}
	}
}

// WithTuning sets the stage constants. Default: [DefaultTuning].
func WithTuning(t Tuning) Option {
	return func(p *Pipeline) {
		p.tuning = t
	}
}

// WithMetrics records stage durations and correction counts to m.
// When nil (the default), no metrics are recorded.
func WithMetrics(m *observe.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithStages replaces the built-in stages. Intended for tests and for
// running a subset of the pipeline.
func WithStages(stages ...Stage) Option {
	return func(p *Pipeline) {
		p.stages = stages
	}
}

// Pipeline is the four-stage correction pipeline. It holds no mutable state
// and is safe for concurrent use; one Pipeline can correct many documents in
// parallel.
type Pipeline struct {
	lex     *lexicon.Lexicon
	tuning  Tuning
	metrics *observe.Metrics
	stages  []Stage
}

// NewPipeline constructs a [Pipeline] with the supplied options.
func NewPipeline(opts ...Option) *Pipeline {
	p := &Pipeline{
		lex:    lexicon.Default(),
		tuning: DefaultTuning(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.stages == nil {
		t := p.tuning
		p.stages = []Stage{
			charfix.New(
				charfix.WithLexicon(p.lex),
				charfix.WithDigitWindow(t.DigitWindow),
				charfix.WithStreamWindow(t.StreamWindow),
			),
			tokenfix.New(
				tokenfix.WithLexicon(p.lex),
				tokenfix.WithTokenThreshold(t.TokenThreshold),
				tokenfix.WithHeaderThreshold(t.HeaderThreshold),
				tokenfix.WithLengthDelta(t.TokenLengthDelta, t.HeaderLengthDelta),
				tokenfix.WithBonuses(t.EdgeBonus, t.AffixBonus),
				tokenfix.WithSplicePolicy(t.SplicePolicy),
			),
			syntax.New(syntax.WithLexicon(p.lex)),
		}
	}
	return p
}

// Lexicon returns the vocabulary the pipeline was built with.
func (p *Pipeline) Lexicon() *lexicon.Lexicon { return p.lex }

// Stages returns the stages run after normalisation, in order.
func (p *Pipeline) Stages() []Stage { return p.stages }

// Correct normalises raw and runs every stage over it.
//
// Malformed text never causes an error. The only error is ctx being done
// before a stage starts.
func (p *Pipeline) Correct(ctx context.Context, raw []byte) (*Result, error) {
	ctx, span := observe.StartSpan(ctx, "correct.Pipeline.Correct",
		trace.WithAttributes(attribute.Int("input.bytes", len(raw))),
	)
	defer span.End()

	start := time.Now()
	text := normalize.Text(normalize.Decode(raw))
	p.recordStage(ctx, "normalize", start)

	doc := source.Split(text)
	result := &Result{Corrections: []Correction{}}

	for _, st := range p.stages {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("correct: %s: %w", st.Name(), err)
		}
		var edits []source.Edit
		doc, edits = p.runStage(ctx, st, doc)
		result.Corrections = append(result.Corrections, fromEdits(st.Name(), edits)...)
	}

	result.Text = doc.String()
	result.Lines = len(doc)
	span.SetAttributes(attribute.Int("corrections", len(result.Corrections)))
	observe.Logger(ctx).Debug("correction finished",
		"lines", result.Lines,
		"corrections", len(result.Corrections),
		"duration", time.Since(start),
	)
	return result, nil
}

// CorrectString is [Pipeline.Correct] for text that is already decoded.
func (p *Pipeline) CorrectString(ctx context.Context, text string) (*Result, error) {
	return p.Correct(ctx, []byte(text))
}

func (p *Pipeline) runStage(ctx context.Context, st Stage, doc source.Document) (source.Document, []source.Edit) {
	_, span := observe.StartSpan(ctx, "correct."+st.Name())
	defer span.End()

	start := time.Now()
	out, edits := st.Apply(doc)
	p.recordStage(ctx, st.Name(), start)

	if len(out) != len(doc) {
		// A stage broke the line-count contract; keep its input instead.
		slog.Error("correction stage changed line count, discarding its output",
			"stage", st.Name(), "before", len(doc), "after", len(out))
		return doc, nil
	}
	if p.metrics != nil {
		for _, e := range edits {
			p.metrics.RecordCorrection(ctx, st.Name(), e.Rule)
		}
	}
	span.SetAttributes(attribute.Int("edits", len(edits)))
	return out, edits
}

func (p *Pipeline) recordStage(ctx context.Context, stage string, start time.Time) {
	if p.metrics != nil {
		p.metrics.RecordStage(ctx, stage, time.Since(start).Seconds())
	}
}

// CorrectFile reads in, corrects it and writes the corrected text to out.
// A missing input yields an error matching both [ErrNotFound] and
// [fs.ErrNotExist]; the pipeline is not entered.
func (p *Pipeline) CorrectFile(ctx context.Context, in, out string) (*Result, error) {
	raw, err := os.ReadFile(in)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
		}
		return nil, fmt.Errorf("correct: read %s: %w", in, err)
	}
	res, err := p.Correct(ctx, raw)
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(out, []byte(res.Text), 0o644); err != nil {
		return nil, fmt.Errorf("correct: write %s: %w", out, err)
	}
	slog.Info("corrected file", "in", in, "out", out, "corrections", len(res.Corrections))
	return res, nil
}

// FileJob names one input and output path for [Pipeline.CorrectFiles].
type FileJob struct {
	In  string
	Out string
}

// CorrectFiles corrects jobs concurrently, running at most workers at once
// (unbounded when workers <= 0). Results are returned in job order. The
// first failure cancels the remaining jobs and is returned.
func (p *Pipeline) CorrectFiles(ctx context.Context, jobs []FileJob, workers int) ([]*Result, error) {
	results := make([]*Result, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for i, j := range jobs {
		g.Go(func() error {
			res, err := p.CorrectFile(gctx, j.In, j.Out)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
