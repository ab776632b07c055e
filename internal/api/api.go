// Package api serves the glyphfix HTTP interface: correction, recognition
// import, grading, grade history and the custom dictionary, next to the
// health probes and the Prometheus scrape endpoint.
//
// Every response body is JSON. Failures use the shape
//
//	{"error": {"code": "NOT_FOUND", "message": "..."}}
//
// Request bodies larger than the configured limit are rejected with 413.
package api

import (
	"context"
	"net/http"

	"github.com/MrWong99/glyphfix/internal/correct"
	"github.com/MrWong99/glyphfix/internal/customdict"
	"github.com/MrWong99/glyphfix/internal/grade"
	"github.com/MrWong99/glyphfix/internal/gradebook"
	"github.com/MrWong99/glyphfix/internal/health"
	"github.com/MrWong99/glyphfix/internal/observe"
	"github.com/MrWong99/glyphfix/internal/recognize"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// Option is a functional option for configuring a [Server].
type Option func(*Server)

// WithRecognizer sets the recognition importer. Default:
// [recognize.PaddleJSON].
func WithRecognizer(r recognize.Recognizer) Option {
	return func(s *Server) {
		if r != nil {
			s.recognizer = r
		}
	}
}

// WithGrader enables the grading routes. The grade history is read from
// the grader's store.
func WithGrader(g *grade.Grader) Option {
	return func(s *Server) { s.grader = g }
}

// WithDictionary enables the dictionary routes. onChange runs after every
// successful add or remove, typically to rebuild the pipeline.
func WithDictionary(d customdict.Store, onChange func(ctx context.Context) error) Option {
	return func(s *Server) {
		s.dict = d
		s.onDictChange = onChange
	}
}

// WithHealth serves /healthz and /readyz from h.
func WithHealth(h *health.Handler) Option {
	return func(s *Server) { s.health = h }
}

// WithMetrics records request durations on m. Default:
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithMetricsHandler serves h on GET /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) { s.metricsHandler = h }
}

// WithMaxBodyBytes sets the request body limit. Default:
// [DefaultMaxBodyBytes].
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// Server routes API requests. Construct with [New].
type Server struct {
	pipeline       *correct.Current
	recognizer     recognize.Recognizer
	grader         *grade.Grader
	dict           customdict.Store
	onDictChange   func(ctx context.Context) error
	health         *health.Handler
	metrics        *observe.Metrics
	metricsHandler http.Handler
	maxBody        int64
}

// New returns a Server correcting with the pipeline held by p.
func New(p *correct.Current, opts ...Option) *Server {
	s := &Server{
		pipeline:   p,
		recognizer: recognize.PaddleJSON{},
		metrics:    observe.DefaultMetrics(),
		maxBody:    DefaultMaxBodyBytes,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed and instrumented handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/v1/correct", s.handleCorrect)
	mux.HandleFunc("POST /api/v1/recognize", s.handleRecognize)

	if s.grader != nil {
		mux.HandleFunc("POST /api/v1/grade", s.handleGrade)
		mux.HandleFunc("GET /api/v1/grades", s.handleListGrades)
		mux.HandleFunc("GET /api/v1/grades/{id}", s.handleGetGrade)
	}
	if s.dict != nil {
		mux.HandleFunc("GET /api/v1/dictionary", s.handleListWords)
		mux.HandleFunc("POST /api/v1/dictionary", s.handleAddWord)
		mux.HandleFunc("DELETE /api/v1/dictionary/{word}", s.handleRemoveWord)
	}
	if s.health != nil {
		s.health.Register(mux)
	}
	if s.metricsHandler != nil {
		mux.Handle("GET /metrics", s.metricsHandler)
	}

	return observe.Middleware(s.metrics)(mux)
}

// gradebook returns the store grades are read from.
func (s *Server) gradebook() gradebook.Store { return s.grader.Store() }
