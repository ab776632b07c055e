package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/glyphfix/internal/correct/tokenfix"
	"github.com/MrWong99/glyphfix/internal/lexicon"
)

// ValidProviderNames lists the scorer provider names known to the daemon.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = []string{
	"openai", "anyllm", "anthropic", "gemini", "ollama", "deepseek",
	"mistral", "groq", "llamacpp", "llamafile",
}

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr     = ":8080"
	DefaultMaxUploadBytes = 1 << 20
	DefaultCompilerPath   = "g++"
	DefaultCompileTimeout = 60 * time.Second
	DefaultCompileWorkers = 4
	DefaultDictionaryKey  = "glyphfix:dictionary"
	DefaultServiceName    = "glyphfix"
)

// DefaultCompilerFlags are passed to the compiler when none are configured.
var DefaultCompilerFlags = []string{"-std=c++17", "-Wall", "-Wextra"}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills in defaults and
// validates the result. An empty document yields the default config.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse is [LoadFromReader] over an in-memory document.
func Parse(data []byte) (*Config, error) {
	return LoadFromReader(bytes.NewReader(data))
}

// ApplyDefaults replaces zero values in cfg with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.MaxUploadBytes == 0 {
		cfg.Server.MaxUploadBytes = DefaultMaxUploadBytes
	}

	c := &cfg.Correction
	setInt(&c.DigitWindow, 3)
	setInt(&c.StreamWindow, 10)
	setFloat(&c.TokenThreshold, 0.7)
	setFloat(&c.HeaderThreshold, 0.8)
	setInt(&c.TokenLengthDelta, 2)
	setInt(&c.HeaderLengthDelta, 3)
	setFloat(&c.EdgeBonus, 0.1)
	setFloat(&c.HeaderAffixBonus, 0.15)
	if c.SplicePolicy == "" {
		c.SplicePolicy = tokenfix.Replace.String()
	}

	if cfg.Compiler.Path == "" {
		cfg.Compiler.Path = DefaultCompilerPath
	}
	if cfg.Compiler.Flags == nil {
		cfg.Compiler.Flags = slices.Clone(DefaultCompilerFlags)
	}
	if cfg.Compiler.Timeout == 0 {
		cfg.Compiler.Timeout = DefaultCompileTimeout
	}
	setInt(&cfg.Compiler.Workers, DefaultCompileWorkers)

	setFloat(&cfg.Scorer.Temperature, 0.1)
	setInt(&cfg.Scorer.MaxTokens, 2000)
	setFloat(&cfg.Scorer.ReviewThreshold, 0.7)
	setInt(&cfg.Scorer.Retries, 3)

	if cfg.Dictionary.Key == "" {
		cfg.Dictionary.Key = DefaultDictionaryKey
	}
	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = DefaultServiceName
	}
}

func setInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func setFloat(v *float64, def float64) {
	if *v == 0 {
		*v = def
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxUploadBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_upload_bytes %d must not be negative", cfg.Server.MaxUploadBytes))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	errs = append(errs, validateCorrection(&cfg.Correction)...)

	// Compiler
	if cfg.Compiler.Timeout < 0 {
		errs = append(errs, fmt.Errorf("compiler.timeout %s must not be negative", cfg.Compiler.Timeout))
	}
	if cfg.Compiler.Workers < 0 {
		errs = append(errs, fmt.Errorf("compiler.workers %d must not be negative", cfg.Compiler.Workers))
	}

	// Scorer
	seen := make(map[string]int, len(cfg.Scorer.Providers))
	for i, p := range cfg.Scorer.Providers {
		prefix := fmt.Sprintf("scorer.providers[%d]", i)
		if p.Name == "" {
			errs = append(errs, fmt.Errorf("%s.name is required", prefix))
			continue
		}
		if p.Model == "" {
			errs = append(errs, fmt.Errorf("%s.model is required", prefix))
		}
		key := p.Name + "/" + p.Model
		if prev, ok := seen[key]; ok {
			errs = append(errs, fmt.Errorf("%s duplicates scorer.providers[%d] (%s)", prefix, prev, key))
		}
		seen[key] = i
		validateProviderName(p.Name)
	}
	if len(cfg.Scorer.Providers) == 0 {
		slog.Warn("no scorer providers configured; grading will return compile results without a score")
	}
	if t := cfg.Scorer.Temperature; t < 0 || t > 2 {
		errs = append(errs, fmt.Errorf("scorer.temperature %.2f is out of range [0, 2]", t))
	}
	if cfg.Scorer.MaxTokens < 0 {
		errs = append(errs, fmt.Errorf("scorer.max_tokens %d must not be negative", cfg.Scorer.MaxTokens))
	}
	if r := cfg.Scorer.ReviewThreshold; r < 0 || r > 1 {
		errs = append(errs, fmt.Errorf("scorer.review_threshold %.2f is out of range [0, 1]", r))
	}
	if cfg.Scorer.Retries < 0 {
		errs = append(errs, fmt.Errorf("scorer.retries %d must not be negative", cfg.Scorer.Retries))
	}

	// Dictionary
	if cfg.Dictionary.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("dictionary.redis_db %d must not be negative", cfg.Dictionary.RedisDB))
	}
	if cfg.Gradebook.PostgresDSN == "" {
		slog.Debug("gradebook.postgres_dsn is empty; grades are kept in memory")
	}

	return errors.Join(errs...)
}

func validateCorrection(c *CorrectionConfig) []error {
	var errs []error
	for _, f := range []struct {
		name string
		v    int
	}{
		{"digit_window", c.DigitWindow},
		{"stream_window", c.StreamWindow},
		{"token_length_delta", c.TokenLengthDelta},
		{"header_length_delta", c.HeaderLengthDelta},
	} {
		if f.v < 0 {
			errs = append(errs, fmt.Errorf("correction.%s %d must not be negative", f.name, f.v))
		}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"token_threshold", c.TokenThreshold},
		{"header_threshold", c.HeaderThreshold},
		{"edge_bonus", c.EdgeBonus},
		{"header_affix_bonus", c.HeaderAffixBonus},
	} {
		if f.v < 0 || f.v > 1 {
			errs = append(errs, fmt.Errorf("correction.%s %.2f is out of range [0, 1]", f.name, f.v))
		}
	}
	if _, ok := tokenfix.ParseSplicePolicy(c.SplicePolicy); !ok {
		errs = append(errs, fmt.Errorf("correction.splice_policy %q is invalid; valid values: replace, overlay", c.SplicePolicy))
	}
	for i, w := range c.ExtraIdentifiers {
		if !lexicon.IsIdentifier(w) {
			errs = append(errs, fmt.Errorf("correction.extra_identifiers[%d] %q is not an identifier", i, w))
		}
	}
	return errs
}

// validateProviderName logs a warning if name is not in [ValidProviderNames].
func validateProviderName(name string) {
	if slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown scorer provider name; may be a typo or a provider registered by an extension",
		"name", name,
		"known", ValidProviderNames,
	)
}
