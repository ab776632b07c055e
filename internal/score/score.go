// Package score grades corrected C++ submissions with a language model.
//
// The [Scorer] sends the problem statement, the corrected code, the compile
// log and a test summary to an [llm.Provider] and asks for a JSON rubric:
// compilability (0-20), correctness (0-50), code quality (0-20) and
// readability (0-10). The response is validated against an embedded JSON
// schema. A response that cannot be parsed yields a degraded [Report] with a
// confidence of 0.1 instead of an error, so it is always flagged for review.
//
// Provider failures are retried with exponential backoff. For failover
// across several models, pass a [resilience.LLMFallback] as the provider.
package score

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/glyphfix/internal/observe"
	"github.com/MrWong99/glyphfix/internal/resilience"
	"github.com/MrWong99/glyphfix/pkg/provider/llm"
)

// ErrEmptySource is returned by [Scorer.Score] for a submission without code.
var ErrEmptySource = errors.New("score: empty source")

// Rubric maxima.
const (
	MaxCompilability = 20
	MaxCorrectness   = 50
	MaxCodeQuality   = 20
	MaxReadability   = 10
	MaxTotal         = MaxCompilability + MaxCorrectness + MaxCodeQuality + MaxReadability
)

const (
	defaultTemperature     = 0.1
	defaultMaxTokens       = 2000
	defaultReviewThreshold = 0.7

	// defaultConfidence is assumed when the model omits its confidence.
	defaultConfidence = 0.8

	// degradedConfidence marks a report built from an unparseable response.
	degradedConfidence = 0.1
)

// Submission is one piece of work to grade.
type Submission struct {
	// Problem is the assignment statement.
	Problem string `json:"problem"`

	// Source is the (corrected) C++ code.
	Source string `json:"source"`

	// CompileLog holds compiler diagnostics. Empty means the code compiled
	// cleanly.
	CompileLog string `json:"compile_log,omitempty"`

	// Tests maps test case names to whether they passed.
	Tests map[string]bool `json:"tests,omitempty"`
}

// Scores holds the per-criterion points.
type Scores struct {
	Compilability float64 `json:"compilability"`
	Correctness   float64 `json:"correctness"`
	CodeQuality   float64 `json:"code_quality"`
	Readability   float64 `json:"readability"`
}

// Sum returns the total of all criteria.
func (s Scores) Sum() float64 {
	return s.Compilability + s.Correctness + s.CodeQuality + s.Readability
}

// Report is the grading outcome of one submission.
type Report struct {
	Scores      Scores   `json:"scores"`
	Total       float64  `json:"total"`
	Rationale   string   `json:"rationale"`
	Suggestions []string `json:"suggestions"`
	Confidence  float64  `json:"confidence"`

	// NeedsReview is set when Confidence is below the review threshold.
	NeedsReview  bool   `json:"needs_review"`
	ReviewReason string `json:"review_reason,omitempty"`

	// Degraded is set when the model response could not be parsed.
	Degraded bool `json:"degraded,omitempty"`
}

// Option is a functional option for configuring a [Scorer].
type Option func(*Scorer)

// WithTemperature sets the sampling temperature. Default: 0.1.
func WithTemperature(t float64) Option {
	return func(s *Scorer) {
		s.temperature = t
	}
}

// WithMaxTokens caps the response length. Default: 2000.
func WithMaxTokens(n int) Option {
	return func(s *Scorer) {
		if n > 0 {
			s.maxTokens = n
		}
	}
}

// WithReviewThreshold sets the confidence below which a report needs manual
// review. Default: 0.7.
func WithReviewThreshold(t float64) Option {
	return func(s *Scorer) {
		s.reviewThreshold = t
	}
}

// WithRetry configures how provider failures are retried. Default: three
// attempts with delays of 1s and 2s.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(s *Scorer) {
		s.retry = cfg
	}
}

// WithMetrics records scoring latency and review counts to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Scorer) {
		s.metrics = m
	}
}

// Scorer grades submissions. It is safe for concurrent use.
type Scorer struct {
	llm             llm.Provider
	temperature     float64
	maxTokens       int
	reviewThreshold float64
	retry           resilience.RetryConfig
	metrics         *observe.Metrics
}

// New returns a [Scorer] backed by provider.
func New(provider llm.Provider, opts ...Option) *Scorer {
	s := &Scorer{
		llm:             provider,
		temperature:     defaultTemperature,
		maxTokens:       defaultMaxTokens,
		reviewThreshold: defaultReviewThreshold,
		retry:           resilience.RetryConfig{Attempts: 3, Initial: time.Second},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score grades sub. Errors are returned for an empty source, for a context
// that ends, and when every attempt to reach the provider failed.
func (s *Scorer) Score(ctx context.Context, sub Submission) (*Report, error) {
	if strings.TrimSpace(sub.Source) == "" {
		return nil, ErrEmptySource
	}

	ctx, span := observe.StartSpan(ctx, "score.Score")
	defer span.End()
	start := time.Now()

	req := llm.CompletionRequest{
		SystemPrompt: systemPrompt,
		Temperature:  s.temperature,
		MaxTokens:    s.maxTokens,
		JSON:         true,
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: buildPrompt(sub)}},
	}

	var resp *llm.CompletionResponse
	err := resilience.Retry(ctx, s.retry, func(ctx context.Context) error {
		r, err := s.llm.Complete(ctx, req)
		if errors.Is(err, llm.ErrInvalidRequest) {
			return resilience.Permanent(err)
		}
		if err != nil {
			return err
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("score: complete: %w", err)
	}

	rep, perr := parseResponse(resp.Content)
	if perr != nil {
		observe.Logger(ctx).Warn("unparseable scoring response, returning degraded report",
			"err", perr, "content_len", len(resp.Content))
		rep = degraded()
	}
	s.review(rep)

	if s.metrics != nil {
		s.metrics.RecordScore(ctx, time.Since(start).Seconds(), rep.NeedsReview)
	}
	span.SetAttributes(
		attribute.Float64("total", rep.Total),
		attribute.Float64("confidence", rep.Confidence),
		attribute.Bool("degraded", rep.Degraded),
	)
	return rep, nil
}

func (s *Scorer) review(r *Report) {
	if r.Confidence < s.reviewThreshold {
		r.NeedsReview = true
		r.ReviewReason = "low confidence, manual review recommended"
	}
}

// Failed builds the report stored when scoring could not run at all.
func Failed(err error) *Report {
	return &Report{
		Suggestions:  []string{},
		NeedsReview:  true,
		ReviewReason: "scoring failed: " + err.Error(),
		Degraded:     true,
	}
}

func degraded() *Report {
	return &Report{
		Rationale:   "failed to parse scoring response",
		Suggestions: []string{"check the code format and completeness"},
		Confidence:  degradedConfidence,
		Degraded:    true,
	}
}
