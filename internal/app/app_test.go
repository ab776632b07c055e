package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/MrWong99/glyphfix/internal/app"
	"github.com/MrWong99/glyphfix/internal/config"
	"github.com/MrWong99/glyphfix/internal/correct/tokenfix"
	"github.com/MrWong99/glyphfix/internal/customdict"
	"github.com/MrWong99/glyphfix/internal/gradebook"
	"github.com/MrWong99/glyphfix/internal/observe"
	"github.com/MrWong99/glyphfix/pkg/provider/llm"
	llmmock "github.com/MrWong99/glyphfix/pkg/provider/llm/mock"
)

// testConfig returns a defaulted config whose compiler does not exist, so
// grading falls back to the syntax report.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Compiler.Path = filepath.Join(t.TempDir(), "no-such-compiler")
	return cfg
}

func testMetrics(t *testing.T) *observe.Metrics {
	t.Helper()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewManualReader()))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func newApp(t *testing.T, cfg *config.Config, providers *app.Providers, opts ...app.Option) *app.App {
	t.Helper()
	base := []app.Option{
		app.WithDictionary(customdict.NewMemory()),
		app.WithGradebook(gradebook.NewMemStore()),
		app.WithMetrics(testMetrics(t)),
	}
	a, err := app.New(context.Background(), cfg, providers, append(base, opts...)...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { _ = a.Shutdown(context.Background()) })
	return a
}

func TestNew_ServesAPI(t *testing.T) {
	t.Parallel()

	a := newApp(t, testConfig(t), nil)
	srv := httptest.NewServer(a.Handler())
	t.Cleanup(srv.Close)

	resp, err := srv.Client().Post(srv.URL+"/api/v1/correct", "text/plain", strings.NewReader("int x = 5\n"))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	var body struct{ Text string }
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Text != "int x = 5;\n" {
		t.Errorf("text = %q", body.Text)
	}

	// The missing compiler makes the daemon unready.
	ready, err := srv.Client().Get(srv.URL + "/readyz")
	if err != nil {
		t.Fatal(err)
	}
	ready.Body.Close()
	if ready.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("readyz = %d, want 503", ready.StatusCode)
	}
}

func TestNew_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	h := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusTeapot) })
	for _, enabled := range []bool{true, false} {
		cfg := testConfig(t)
		cfg.Observability.MetricsEnabled = enabled
		a := newApp(t, cfg, nil, app.WithMetricsHandler(h))

		rec := httptest.NewRecorder()
		a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		want := http.StatusNotFound
		if enabled {
			want = http.StatusTeapot
		}
		if rec.Code != want {
			t.Errorf("metrics_enabled=%v: status = %d, want %d", enabled, rec.Code, want)
		}
	}
}

func TestGrade_UsesScorer(t *testing.T) {
	t.Parallel()

	p := &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: `{
		"scores": {"compilability": 20, "correctness": 40, "code_quality": 15, "readability": 8},
		"total": 83, "rationale": "ok", "suggestions": [], "confidence": 0.9}`}}
	cfg := testConfig(t)
	cfg.Scorer.Problem = "declare x"
	a := newApp(t, cfg, &app.Providers{Scorer: p})

	rec := httptest.NewRecorder()
	a.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/grade",
		strings.NewReader(`{"source": "int x = 5\n"}`)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d; body: %s", rec.Code, rec.Body)
	}
	var got struct {
		Problem string
		Score   struct{ Total float64 }
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Problem != "declare x" || got.Score.Total != 83 {
		t.Errorf("grade = %+v", got)
	}
	if n := len(p.Calls()); n != 1 {
		t.Errorf("provider calls = %d, want 1", n)
	}
}

func TestRebuild_UsesDictionary(t *testing.T) {
	t.Parallel()

	dict := customdict.NewMemory()
	a := newApp(t, testConfig(t), nil, app.WithDictionary(dict))
	if a.Pipeline().Load().Lexicon().Contains("StackFrame") {
		t.Fatal("word known before it was added")
	}

	ctx := context.Background()
	if err := dict.Add(ctx, "StackFrame"); err != nil {
		t.Fatal(err)
	}
	if err := a.Rebuild(ctx); err != nil {
		t.Fatalf("Rebuild: %v", err)
	}
	if !a.Pipeline().Load().Lexicon().Contains("StackFrame") {
		t.Error("dictionary word missing after rebuild")
	}
}

func TestApplyConfig(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	a := newApp(t, cfg, nil)
	ctx := context.Background()
	before := a.Pipeline().Load()

	same := *cfg
	if err := a.ApplyConfig(ctx, cfg, &same); err != nil {
		t.Fatal(err)
	}
	if a.Pipeline().Load() != before {
		t.Error("unchanged config rebuilt the pipeline")
	}

	next := *cfg
	next.Correction.ExtraIdentifiers = []string{"Widget"}
	next.Correction.TokenThreshold = 0.85
	if err := a.ApplyConfig(ctx, cfg, &next); err != nil {
		t.Fatal(err)
	}
	p := a.Pipeline().Load()
	if p == before {
		t.Fatal("correction change did not rebuild the pipeline")
	}
	if !p.Lexicon().Contains("Widget") {
		t.Error("extra identifier missing after reload")
	}
}

func TestTuning(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Correction.SplicePolicy = "overlay"
	cfg.Correction.HeaderAffixBonus = 0.2

	got := app.Tuning(cfg.Correction)
	if got.SplicePolicy != tokenfix.Overlay || got.AffixBonus != 0.2 || got.DigitWindow != 3 {
		t.Errorf("Tuning = %+v", got)
	}

	cfg.Correction.SplicePolicy = "bogus"
	if got := app.Tuning(cfg.Correction); got.SplicePolicy != tokenfix.Replace {
		t.Errorf("invalid policy mapped to %v", got.SplicePolicy)
	}
}

func TestNewCompiler(t *testing.T) {
	t.Parallel()

	c := app.NewCompiler(config.CompilerConfig{Path: "clang++", Timeout: time.Second}, nil)
	if c.Path() != "clang++" {
		t.Errorf("Path = %q", c.Path())
	}
	if app.NewCompiler(config.CompilerConfig{}, nil).Path() != "g++" {
		t.Error("empty path did not default to g++")
	}
}

func TestRegisterProviders(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	app.RegisterProviders(reg)
	names := reg.LLMNames()
	for _, want := range []string{"openai", "anyllm", "anthropic", "ollama"} {
		if !slices.Contains(names, want) {
			t.Errorf("provider %q not registered; have %v", want, names)
		}
	}

	if _, err := reg.CreateLLM(config.ProviderEntry{Name: "anyllm", Model: "m"}); err == nil {
		t.Error("anyllm without options.backend succeeded")
	}
}

func TestBuildScorerLLM(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	var created []string
	reg.RegisterLLM("fake", func(e config.ProviderEntry) (llm.Provider, error) {
		created = append(created, e.Model)
		return &llmmock.Provider{CompleteResponse: &llm.CompletionResponse{Content: e.Model}}, nil
	})

	p, err := app.BuildScorerLLM(config.ScorerConfig{}, reg, nil)
	if err != nil || p != nil {
		t.Fatalf("no providers: p = %v, err = %v", p, err)
	}

	p, err = app.BuildScorerLLM(config.ScorerConfig{Providers: []config.ProviderEntry{
		{Name: "fake", Model: "primary"},
		{Name: "fake", Model: "backup"},
	}}, reg, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !slices.Equal(created, []string{"primary", "backup"}) {
		t.Errorf("created = %v", created)
	}
	resp, err := p.Complete(context.Background(), llm.CompletionRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if resp.Content != "primary" {
		t.Errorf("answered by %q, want primary", resp.Content)
	}

	_, err = app.BuildScorerLLM(config.ScorerConfig{Providers: []config.ProviderEntry{{Name: "nope"}}}, reg, nil)
	if !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("err = %v, want ErrProviderNotRegistered", err)
	}
}

func TestShutdown_Idempotent(t *testing.T) {
	t.Parallel()

	a := newApp(t, testConfig(t), nil)
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
	if err := a.Shutdown(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestNew_UnreachableRedis(t *testing.T) {
	t.Parallel()

	cfg := testConfig(t)
	cfg.Dictionary.RedisAddr = "127.0.0.1:1"
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := app.New(ctx, cfg, nil,
		app.WithGradebook(gradebook.NewMemStore()),
		app.WithMetrics(testMetrics(t)),
	)
	if err == nil {
		t.Fatal("New succeeded with an unreachable Redis")
	}
}
