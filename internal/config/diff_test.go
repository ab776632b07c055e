package config_test

import (
	"slices"
	"testing"
	"time"

	"github.com/MrWong99/glyphfix/internal/config"
)

func baseConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{ListenAddr: ":8080", LogLevel: config.LogInfo},
		Correction: config.CorrectionConfig{
			DigitWindow:      3,
			TokenThreshold:   0.7,
			SplicePolicy:     "replace",
			ExtraIdentifiers: []string{"scores"},
		},
		Compiler: config.CompilerConfig{Path: "g++", Timeout: time.Minute},
		Scorer: config.ScorerConfig{
			Providers: []config.ProviderEntry{{Name: "openai", Model: "gpt-4o"}},
		},
	}
}

func TestDiff_NoChanges(t *testing.T) {
	t.Parallel()

	d := config.Diff(baseConfig(), baseConfig())
	if !d.Empty() {
		t.Errorf("expected empty diff, got %+v", d)
	}
	if d.CorrectionChanged() {
		t.Error("expected CorrectionChanged=false")
	}
}

func TestDiff_LogLevelChanged(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	new.Server.LogLevel = config.LogDebug

	d := config.Diff(old, new)
	if !d.LogLevelChanged {
		t.Error("expected LogLevelChanged=true")
	}
	if d.NewLogLevel != config.LogDebug {
		t.Errorf("NewLogLevel = %q, want debug", d.NewLogLevel)
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("log level should not require restart, got %v", d.RestartRequired)
	}
}

func TestDiff_CorrectionFields(t *testing.T) {
	t.Parallel()

	old, new := baseConfig(), baseConfig()
	new.Correction.TokenThreshold = 0.8
	new.Correction.SplicePolicy = "overlay"
	new.Correction.ExtraIdentifiers = append(new.Correction.ExtraIdentifiers, "total")

	d := config.Diff(old, new)
	want := []string{"extra_identifiers", "splice_policy", "token_threshold"}
	if !slices.Equal(d.CorrectionFields, want) {
		t.Errorf("CorrectionFields = %v, want %v", d.CorrectionFields, want)
	}
	if !d.CorrectionChanged() {
		t.Error("expected CorrectionChanged=true")
	}
	if len(d.RestartRequired) != 0 {
		t.Errorf("correction changes should not require restart, got %v", d.RestartRequired)
	}
}

func TestDiff_RestartRequired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*config.Config)
		want   []string
	}{
		{
			name:   "listen addr",
			mutate: func(c *config.Config) { c.Server.ListenAddr = ":9090" },
			want:   []string{"server.listen_addr"},
		},
		{
			name: "tls enabled",
			mutate: func(c *config.Config) {
				c.Server.TLS = &config.TLSConfig{CertFile: "c.pem", KeyFile: "k.pem"}
			},
			want: []string{"server.tls"},
		},
		{
			name:   "compiler path",
			mutate: func(c *config.Config) { c.Compiler.Path = "clang++" },
			want:   []string{"compiler"},
		},
		{
			name:   "scorer model",
			mutate: func(c *config.Config) { c.Scorer.Providers[0].Model = "gpt-4o-mini" },
			want:   []string{"scorer"},
		},
		{
			name: "gradebook and dictionary",
			mutate: func(c *config.Config) {
				c.Dictionary.RedisAddr = "localhost:6379"
				c.Gradebook.PostgresDSN = "postgres://localhost/glyphfix"
			},
			want: []string{"dictionary", "gradebook"},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			old, new := baseConfig(), baseConfig()
			tc.mutate(new)
			d := config.Diff(old, new)
			if !slices.Equal(d.RestartRequired, tc.want) {
				t.Errorf("RestartRequired = %v, want %v", d.RestartRequired, tc.want)
			}
			if d.Empty() {
				t.Error("expected non-empty diff")
			}
		})
	}
}
