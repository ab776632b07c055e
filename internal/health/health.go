// Package health serves the liveness and readiness probes of the glyphfix
// daemon.
//
// /healthz answers 200 as long as the process can serve HTTP and reports its
// uptime. /readyz runs every registered [Checker] and answers 503 when any of
// them fails. Optional dependencies (no Redis or Postgres configured) simply
// register no checker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Status values used in reports.
const (
	StatusOK   = "ok"
	StatusFail = "fail"
)

// Checker is a named readiness check.
type Checker struct {
	// Name labels the check in the report (e.g. "compiler", "redis").
	Name string

	// Check probes the dependency and may return a short detail such as a
	// version string. It must respect context cancellation.
	Check func(ctx context.Context) (detail string, err error)
}

// Pinger is satisfied by clients with a context-aware health probe, such as
// a pgx pool or the custom dictionary.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingChecker adapts p to a [Checker].
func PingChecker(name string, p Pinger) Checker {
	return Checker{Name: name, Check: func(ctx context.Context) (string, error) {
		return "", p.Ping(ctx)
	}}
}

// VersionChecker reports the first line of version as its detail and fails
// when version errors or returns nothing. The compiler is probed this way.
func VersionChecker(name string, version func(ctx context.Context) (string, error)) Checker {
	return Checker{Name: name, Check: func(ctx context.Context) (string, error) {
		v, err := version(ctx)
		if err != nil {
			return "", err
		}
		first, _, _ := strings.Cut(strings.TrimSpace(v), "\n")
		if first == "" {
			return "", errors.New(name + " reported no version")
		}
		return first, nil
	}}
}

// Result is the outcome of one check.
type Result struct {
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

// Report is the body of a probe response.
type Report struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime,omitempty"`
	Checks map[string]Result `json:"checks,omitempty"`
}

// Ready reports whether every check passed.
func (r Report) Ready() bool { return r.Status == StatusOK }

// Handler serves /healthz and /readyz. The checker list is fixed at
// construction.
type Handler struct {
	checkers []Checker
	started  time.Time
	now      func() time.Time
}

// New creates a [Handler] that runs checkers on each /readyz request.
func New(checkers ...Checker) *Handler {
	return &Handler{
		checkers: append([]Checker(nil), checkers...),
		started:  time.Now(),
		now:      time.Now,
	}
}

// Check runs all checkers concurrently, each under its own deadline derived
// from ctx, and collects their results.
func (h *Handler) Check(ctx context.Context) Report {
	results := make([]Result, len(h.checkers))
	var wg sync.WaitGroup
	for i, c := range h.checkers {
		wg.Go(func() {
			results[i] = h.probe(ctx, c)
		})
	}
	wg.Wait()

	rep := Report{Status: StatusOK, Checks: make(map[string]Result, len(h.checkers))}
	for i, c := range h.checkers {
		if results[i].Status != StatusOK {
			rep.Status = StatusFail
		}
		rep.Checks[c.Name] = results[i]
	}
	return rep
}

func (h *Handler) probe(ctx context.Context, c Checker) Result {
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	start := h.now()
	detail, err := c.Check(ctx)
	res := Result{Status: StatusOK, Detail: detail, LatencyMS: h.now().Sub(start).Milliseconds()}
	if err != nil {
		res.Status = StatusFail
		res.Error = err.Error()
	}
	return res
}

// Healthz always answers 200 with the process uptime.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	uptime := h.now().Sub(h.started).Truncate(time.Second)
	writeJSON(w, http.StatusOK, Report{Status: StatusOK, Uptime: uptime.String()})
}

// Readyz answers 200 when every check passes and 503 otherwise.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	rep := h.Check(r.Context())
	status := http.StatusOK
	if !rep.Ready() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, rep)
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
