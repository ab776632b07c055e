// Package app wires all glyphfix subsystems into a running server.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves HTTP until the context ends, and Shutdown tears
// everything down in order.
//
// For testing, inject implementations via functional options
// (WithDictionary, WithGradebook, etc.). When an option is not provided,
// New creates real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrWong99/glyphfix/internal/api"
	"github.com/MrWong99/glyphfix/internal/compile"
	"github.com/MrWong99/glyphfix/internal/config"
	"github.com/MrWong99/glyphfix/internal/correct"
	"github.com/MrWong99/glyphfix/internal/correct/tokenfix"
	"github.com/MrWong99/glyphfix/internal/customdict"
	"github.com/MrWong99/glyphfix/internal/grade"
	"github.com/MrWong99/glyphfix/internal/gradebook"
	"github.com/MrWong99/glyphfix/internal/gradebook/postgres"
	"github.com/MrWong99/glyphfix/internal/health"
	"github.com/MrWong99/glyphfix/internal/lexicon"
	"github.com/MrWong99/glyphfix/internal/observe"
	"github.com/MrWong99/glyphfix/internal/resilience"
	"github.com/MrWong99/glyphfix/internal/score"
	"github.com/MrWong99/glyphfix/pkg/provider/llm"
)

// Providers holds the external model backends. Nil means not configured.
// Populated by main.go via the config registry.
type Providers struct {
	Scorer llm.Provider
}

// App owns all subsystem lifetimes and serves the glyphfix API.
type App struct {
	cfg            *config.Config
	providers      *Providers
	metrics        *observe.Metrics
	metricsHandler http.Handler

	// mu guards correction, the settings the current pipeline was built
	// from.
	mu         sync.Mutex
	correction config.CorrectionConfig

	pipeline *correct.Current
	dict     customdict.Store
	grades   gradebook.Store
	compiler *compile.Compiler
	scorer   *score.Scorer
	grader   *grade.Grader
	checkers []health.Checker
	handler  http.Handler

	// closers are called in order during Shutdown.
	closers []func() error

	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithDictionary injects a custom dictionary instead of connecting to Redis.
func WithDictionary(d customdict.Store) Option {
	return func(a *App) { a.dict = d }
}

// WithGradebook injects a grade store instead of connecting to PostgreSQL.
func WithGradebook(s gradebook.Store) Option {
	return func(a *App) { a.grades = s }
}

// WithMetrics sets the instruments all subsystems record to. Default:
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// WithMetricsHandler serves h on /metrics when observability.metrics_enabled
// is set.
func WithMetricsHandler(h http.Handler) Option {
	return func(a *App) { a.metricsHandler = h }
}

// New creates an App by wiring all subsystems together. A configured Redis
// or PostgreSQL that cannot be reached is an error.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	a := &App{
		cfg:        cfg,
		providers:  providers,
		correction: cfg.Correction,
	}
	for _, o := range opts {
		o(a)
	}
	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}
	if a.providers == nil {
		a.providers = &Providers{}
	}

	if err := a.initDictionary(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init dictionary: %w", err)
	}
	if err := a.initGradebook(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: init gradebook: %w", err)
	}

	a.compiler = NewCompiler(cfg.Compiler, a.metrics)
	a.checkers = append(a.checkers, health.VersionChecker("compiler", a.compiler.Version))

	if a.providers.Scorer != nil {
		a.scorer = NewScorer(a.providers.Scorer, cfg.Scorer, a.metrics)
	} else {
		slog.Warn("no scorer provider configured; grades carry no score")
	}

	a.pipeline = correct.NewCurrent(correct.NewPipeline(correct.WithMetrics(a.metrics)))
	if err := a.Rebuild(ctx); err != nil {
		a.closeAll()
		return nil, fmt.Errorf("app: build pipeline: %w", err)
	}

	gopts := []grade.Option{
		grade.WithCompiler(a.compiler),
		grade.WithStore(a.grades),
		grade.WithProblem(cfg.Scorer.Problem),
		grade.WithMetrics(a.metrics),
	}
	if a.scorer != nil {
		gopts = append(gopts, grade.WithScorer(a.scorer))
	}
	a.grader = grade.New(a.pipeline, gopts...)

	aopts := []api.Option{
		api.WithGrader(a.grader),
		api.WithDictionary(a.dict, a.Rebuild),
		api.WithHealth(health.New(a.checkers...)),
		api.WithMetrics(a.metrics),
		api.WithMaxBodyBytes(cfg.Server.MaxUploadBytes),
	}
	if cfg.Observability.MetricsEnabled && a.metricsHandler != nil {
		aopts = append(aopts, api.WithMetricsHandler(a.metricsHandler))
	}
	a.handler = api.New(a.pipeline, aopts...).Handler()

	return a, nil
}

// initDictionary connects the custom dictionary or keeps it in memory.
func (a *App) initDictionary(ctx context.Context) error {
	if a.dict != nil {
		return nil
	}
	dc := a.cfg.Dictionary
	if dc.RedisAddr == "" {
		a.dict = customdict.NewMemory()
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     dc.RedisAddr,
		Password: dc.RedisPassword,
		DB:       dc.RedisDB,
	})
	a.closers = append(a.closers, client.Close)

	d := customdict.NewRedis(client, dc.Key)
	if err := d.Ping(ctx); err != nil {
		return err
	}
	a.dict = d
	a.checkers = append(a.checkers, health.PingChecker("redis", d))
	slog.Info("custom dictionary connected", "addr", dc.RedisAddr, "key", dc.Key)
	return nil
}

// initGradebook connects the PostgreSQL grade store or keeps grades in
// memory.
func (a *App) initGradebook(ctx context.Context) error {
	if a.grades != nil {
		return nil
	}
	dsn := a.cfg.Gradebook.PostgresDSN
	if dsn == "" {
		a.grades = gradebook.NewMemStore()
		return nil
	}

	store, err := postgres.NewStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.grades = store
	a.checkers = append(a.checkers, health.PingChecker("postgres", store))
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	slog.Info("gradebook connected")
	return nil
}

// NewCompiler builds the compiler described by cfg.
func NewCompiler(cfg config.CompilerConfig, m *observe.Metrics) *compile.Compiler {
	return compile.New(
		compile.WithPath(cfg.Path),
		compile.WithFlags(cfg.Flags),
		compile.WithTimeout(cfg.Timeout),
		compile.WithOutputDir(cfg.OutputDir),
		compile.WithMetrics(m),
	)
}

// NewScorer builds a scorer over p with the settings in cfg.
func NewScorer(p llm.Provider, cfg config.ScorerConfig, m *observe.Metrics) *score.Scorer {
	return score.New(p,
		score.WithTemperature(cfg.Temperature),
		score.WithMaxTokens(cfg.MaxTokens),
		score.WithReviewThreshold(cfg.ReviewThreshold),
		score.WithRetry(resilience.RetryConfig{
			Attempts:   cfg.Retries,
			Initial:    time.Second,
			Max:        30 * time.Second,
			Multiplier: 2,
		}),
		score.WithMetrics(m),
	)
}

// Tuning converts the correction settings to pipeline constants. Invalid
// splice policies fall back to [tokenfix.Replace]; [config.Validate] has
// already rejected them for loaded files.
func Tuning(c config.CorrectionConfig) correct.Tuning {
	policy, ok := tokenfix.ParseSplicePolicy(c.SplicePolicy)
	if !ok {
		policy = tokenfix.Replace
	}
	return correct.Tuning{
		DigitWindow:       c.DigitWindow,
		StreamWindow:      c.StreamWindow,
		TokenThreshold:    c.TokenThreshold,
		HeaderThreshold:   c.HeaderThreshold,
		TokenLengthDelta:  c.TokenLengthDelta,
		HeaderLengthDelta: c.HeaderLengthDelta,
		EdgeBonus:         c.EdgeBonus,
		AffixBonus:        c.HeaderAffixBonus,
		SplicePolicy:      policy,
	}
}

// Lexicon returns the default vocabulary extended with the configured
// extra identifiers.
func Lexicon(c config.CorrectionConfig) *lexicon.Lexicon {
	lex := lexicon.Default()
	if len(c.ExtraIdentifiers) > 0 {
		lex = lex.With(c.ExtraIdentifiers...)
	}
	return lex
}

// Rebuild builds a new pipeline from the current correction settings and
// custom dictionary and makes it current.
func (a *App) Rebuild(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	lex, err := customdict.Extend(ctx, a.dict, Lexicon(a.correction))
	if err != nil {
		return fmt.Errorf("app: load custom dictionary: %w", err)
	}
	a.pipeline.Store(correct.NewPipeline(
		correct.WithLexicon(lex),
		correct.WithTuning(Tuning(a.correction)),
		correct.WithMetrics(a.metrics),
	))
	slog.Debug("correction pipeline rebuilt", "vocabulary", lex.Len())
	return nil
}

// ApplyConfig applies the hot-reloadable parts of newCfg and logs the
// settings that need a restart.
func (a *App) ApplyConfig(ctx context.Context, oldCfg, newCfg *config.Config) error {
	d := config.Diff(oldCfg, newCfg)
	if len(d.RestartRequired) > 0 {
		slog.Warn("config changes require a restart to take effect", "sections", d.RestartRequired)
	}
	if !d.CorrectionChanged() {
		return nil
	}

	a.mu.Lock()
	prev := a.correction
	a.correction = newCfg.Correction
	a.correction.ExtraIdentifiers = slices.Clone(newCfg.Correction.ExtraIdentifiers)
	a.mu.Unlock()

	if err := a.Rebuild(ctx); err != nil {
		a.mu.Lock()
		a.correction = prev
		a.mu.Unlock()
		return err
	}
	slog.Info("correction settings reloaded", "fields", d.CorrectionFields)
	return nil
}

// Pipeline returns the handle of the pipeline in effect.
func (a *App) Pipeline() *correct.Current { return a.pipeline }

// Grader returns the grading chain.
func (a *App) Grader() *grade.Grader { return a.grader }

// Handler returns the HTTP handler serving the API.
func (a *App) Handler() http.Handler { return a.handler }

// Run serves HTTP on server.listen_addr and blocks until ctx is cancelled.
// When ctx is done, Run returns context.Canceled (or the underlying cause).
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.Server.ListenAddr,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	a.closers = append([]func() error{func() error {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	}}, a.closers...)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := a.cfg.Server.TLS; tls != nil {
			err = srv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = srv.ListenAndServe()
		}
		errCh <- err
	}()

	slog.Info("http server listening", "addr", srv.Addr, "tls", a.cfg.Server.TLS != nil)
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown tears down all subsystems in order, the HTTP server first. It
// respects the context deadline: if ctx expires before all closers finish,
// remaining closers are skipped and the context error is returned.
func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error
	a.stopOnce.Do(func() {
		slog.Info("shutting down", "closers", len(a.closers))
		for i, closer := range a.closers {
			select {
			case <-ctx.Done():
				slog.Warn("shutdown deadline exceeded", "remaining", len(a.closers)-i)
				shutdownErr = ctx.Err()
				return
			default:
			}
			if err := closer(); err != nil {
				slog.Warn("closer error", "index", i, "err", err)
			}
		}
		slog.Info("shutdown complete")
	})
	return shutdownErr
}

// closeAll releases what New opened before failing.
func (a *App) closeAll() {
	for _, c := range a.closers {
		_ = c()
	}
}
