package config_test

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/MrWong99/glyphfix/internal/config"
)

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: loud
correction:
  header_threshold: 2
scorer:
  retries: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected validation errors, got nil")
	}
	for _, want := range []string{"server.log_level", "correction.header_threshold", "scorer.retries"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error should mention %q, got: %v", want, err)
		}
	}
}

func TestValidate_DirectCall(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	if err := config.Validate(cfg); err != nil {
		t.Fatalf("defaults should validate, got: %v", err)
	}

	cfg.Correction.SplicePolicy = "sideways"
	if err := config.Validate(cfg); err == nil {
		t.Fatal("expected error for invalid splice policy")
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Correction: config.CorrectionConfig{StreamWindow: 6},
		Compiler:   config.CompilerConfig{Flags: []string{}},
	}
	config.ApplyDefaults(cfg)

	if cfg.Correction.StreamWindow != 6 {
		t.Errorf("stream_window = %d, want 6", cfg.Correction.StreamWindow)
	}
	if len(cfg.Compiler.Flags) != 0 {
		t.Errorf("explicit empty flags replaced with %v", cfg.Compiler.Flags)
	}
}

func TestApplyDefaults_FlagsAreCopied(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{}
	config.ApplyDefaults(cfg)
	cfg.Compiler.Flags[0] = "-std=c++98"

	if config.DefaultCompilerFlags[0] == "-std=c++98" {
		t.Fatal("ApplyDefaults aliased DefaultCompilerFlags")
	}
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "glyphfix.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Compiler.Path != "clang++" {
		t.Errorf("compiler.path = %q, want clang++", cfg.Compiler.Path)
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()

	for _, name := range []string{"openai", "anthropic", "ollama", "gemini"} {
		if !slices.Contains(config.ValidProviderNames, name) {
			t.Errorf("ValidProviderNames should contain %q", name)
		}
	}
}

func TestLoad_ExampleConfig(t *testing.T) {
	t.Parallel()
	cfg, err := config.Load(filepath.Join("..", "..", "configs", "example.yaml"))
	if err != nil {
		t.Fatalf("configs/example.yaml does not load: %v", err)
	}
	if len(cfg.Scorer.Providers) != 1 || cfg.Scorer.Providers[0].Model != "moonshot-v1-8k" {
		t.Errorf("providers = %+v", cfg.Scorer.Providers)
	}
	if !slices.Equal(cfg.Correction.ExtraIdentifiers, []string{"studentCount", "printMatrix"}) {
		t.Errorf("extra_identifiers = %v", cfg.Correction.ExtraIdentifiers)
	}
	if !cfg.Observability.MetricsEnabled {
		t.Error("metrics_enabled not read")
	}
}
