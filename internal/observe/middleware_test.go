package observe

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

const incomingTraceID = "4bf92f3577b34da6a3ce929d0e0e4736"

// gradeAPI serves GET /api/v1/grades/{id} with status behind [Middleware].
func gradeAPI(m *Metrics, status int, seen *string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/grades/{id}", func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = CorrelationID(r.Context())
		}
		w.WriteHeader(status)
	})
	return Middleware(m)(mux)
}

func TestMiddlewareCorrelationHeader(t *testing.T) {
	recordSpans(t)
	m, _ := newTestMetrics(t)

	tests := []struct {
		name        string
		traceparent string
		want        string
	}{
		{name: "new trace"},
		{
			name:        "continued trace",
			traceparent: "00-" + incomingTraceID + "-00f067aa0ba902b7-01",
			want:        incomingTraceID,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			req := httptest.NewRequest(http.MethodGet, "/api/v1/grades/42", nil)
			if tt.traceparent != "" {
				req.Header.Set("traceparent", tt.traceparent)
			}
			rec := httptest.NewRecorder()
			gradeAPI(m, http.StatusOK, &seen).ServeHTTP(rec, req)

			if !hexTraceID.MatchString(seen) {
				t.Fatalf("handler saw correlation id %q", seen)
			}
			if tt.want != "" && seen != tt.want {
				t.Errorf("correlation id = %q, want %q", seen, tt.want)
			}
			if got := rec.Header().Get("X-Correlation-ID"); got != seen {
				t.Errorf("X-Correlation-ID = %q, want %q", got, seen)
			}
		})
	}
}

func TestMiddlewareSpanNamedAfterRoute(t *testing.T) {
	exp := recordSpans(t)
	m, _ := newTestMetrics(t)

	rec := httptest.NewRecorder()
	gradeAPI(m, http.StatusNotFound, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/grades/0b6f6f0e", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	spans := exp.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if want := "HTTP GET /api/v1/grades/{id}"; spans[0].Name != want {
		t.Errorf("span name = %q, want %q", spans[0].Name, want)
	}
	attrs := attribute.NewSet(spans[0].Attributes...)
	if v, ok := attrs.Value("http.response.status_code"); !ok || v.AsInt64() != http.StatusNotFound {
		t.Errorf("http.response.status_code = %v, want 404", v)
	}
	if v, ok := attrs.Value("http.route"); !ok || v.AsString() != "GET /api/v1/grades/{id}" {
		t.Errorf("http.route = %v", v)
	}
}

func TestMiddlewareDurationLabelledByRoute(t *testing.T) {
	recordSpans(t)
	m, reader := newTestMetrics(t)
	h := gradeAPI(m, http.StatusOK, nil)

	for _, path := range []string{"/api/v1/grades/a", "/api/v1/grades/b", "/nowhere"} {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	met := findMetric(collect(t, reader), "glyphfix.http.request.duration")
	if met == nil {
		t.Fatal("request duration not recorded")
	}
	hist, ok := met.Data.(metricdata.Histogram[float64])
	if !ok {
		t.Fatalf("request duration is %T, want histogram", met.Data)
	}
	counts := map[string]uint64{}
	for _, dp := range hist.DataPoints {
		path, _ := dp.Attributes.Value("path")
		counts[path.AsString()] += dp.Count
	}
	want := map[string]uint64{"GET /api/v1/grades/{id}": 2, unmatchedRoute: 1}
	for route, n := range want {
		if counts[route] != n {
			t.Errorf("samples for %q = %d, want %d (all: %v)", route, counts[route], n, counts)
		}
	}
	if len(counts) != len(want) {
		t.Errorf("unexpected path labels: %v", counts)
	}
}

func TestMiddlewareMarksServerErrors(t *testing.T) {
	exp := recordSpans(t)
	m, _ := newTestMetrics(t)
	buf := captureLogs(t)

	h := Middleware(m)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":"not ready"}`))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/readyz", nil))

	spans := exp.GetSpans()
	if len(spans) != 1 || spans[0].Status.Code != codes.Error {
		t.Fatalf("spans = %v, want one failed span", spans)
	}
	attrs := attribute.NewSet(spans[0].Attributes...)
	if v, _ := attrs.Value("http.response.body.size"); v.AsInt64() != int64(len(`{"error":"not ready"}`)) {
		t.Errorf("http.response.body.size = %v", v)
	}
	if out := buf.String(); !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "status=503") {
		t.Errorf("log line = %s, want an error-level entry with status 503", out)
	}
}
