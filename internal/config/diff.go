package config

import (
	"maps"
	"reflect"
	"slices"
)

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// CorrectionFields lists the changed correction settings by YAML name.
	// All of them are applied by rebuilding the pipeline.
	CorrectionFields []string

	// RestartRequired lists the changed top-level sections (or fields) that
	// only take effect after a restart.
	RestartRequired []string
}

// CorrectionChanged reports whether any correction setting changed.
func (d ConfigDiff) CorrectionChanged() bool { return len(d.CorrectionFields) > 0 }

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && len(d.CorrectionFields) == 0 && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	d.CorrectionFields = diffCorrection(&old.Correction, &new.Correction)

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if old.Server.MaxUploadBytes != new.Server.MaxUploadBytes {
		d.RestartRequired = append(d.RestartRequired, "server.max_upload_bytes")
	}
	if !reflect.DeepEqual(old.Server.TLS, new.Server.TLS) {
		d.RestartRequired = append(d.RestartRequired, "server.tls")
	}
	sections := []struct {
		name     string
		old, new any
	}{
		{"compiler", old.Compiler, new.Compiler},
		{"scorer", old.Scorer, new.Scorer},
		{"dictionary", old.Dictionary, new.Dictionary},
		{"gradebook", old.Gradebook, new.Gradebook},
		{"observability", old.Observability, new.Observability},
	}
	for _, s := range sections {
		if !reflect.DeepEqual(s.old, s.new) {
			d.RestartRequired = append(d.RestartRequired, s.name)
		}
	}
	return d
}

// diffCorrection returns the sorted YAML names of the changed correction
// fields.
func diffCorrection(old, new *CorrectionConfig) []string {
	changed := map[string]bool{
		"digit_window":        old.DigitWindow != new.DigitWindow,
		"stream_window":       old.StreamWindow != new.StreamWindow,
		"token_threshold":     old.TokenThreshold != new.TokenThreshold,
		"header_threshold":    old.HeaderThreshold != new.HeaderThreshold,
		"token_length_delta":  old.TokenLengthDelta != new.TokenLengthDelta,
		"header_length_delta": old.HeaderLengthDelta != new.HeaderLengthDelta,
		"edge_bonus":          old.EdgeBonus != new.EdgeBonus,
		"header_affix_bonus":  old.HeaderAffixBonus != new.HeaderAffixBonus,
		"splice_policy":       old.SplicePolicy != new.SplicePolicy,
		"extra_identifiers":   !slices.Equal(old.ExtraIdentifiers, new.ExtraIdentifiers),
	}
	var out []string
	for _, name := range slices.Sorted(maps.Keys(changed)) {
		if changed[name] {
			out = append(out, name)
		}
	}
	return out
}
