// Package rules is a small ordered rewrite engine for line-level OCR repairs.
//
// A [Rule] pairs a regular expression with a replacement template (or a
// rewrite function) and an optional guard. A [Set] applies its rules in
// order; every rule sees the output of the previous one. Matches that start
// inside a comment or quoted literal are left alone. Each rule builds a fresh
// output line from the match offsets of the current input, so a rewrite that
// changes the line length never invalidates the offsets of a later match.
package rules

import (
	"regexp"
	"strings"

	"github.com/MrWong99/glyphfix/internal/source"
)

// Env carries per-line context computed by the caller for rule guards.
type Env struct {
	// InRepairedLoop is set while the line lies inside the body of a loop
	// whose header needed loop-variable repairs.
	InRepairedLoop bool
}

// Rule is one rewrite.
type Rule struct {
	// Name identifies the rule in correction records.
	Name string

	// Pattern selects the text to rewrite.
	Pattern *regexp.Regexp

	// Template is expanded with [regexp.Regexp.ExpandString] ($1, ${name}).
	// Ignored when Rewrite is set.
	Template string

	// Rewrite computes the replacement from the matched text. Returning the
	// match unchanged declines the rewrite.
	Rewrite func(match string) string

	// Guard, when set, must return true for the rule to run on a line.
	Guard func(line string, env Env) bool
}

// Hit records one applied rewrite. Offset is the byte offset of the match in
// the line the rule ran on.
type Hit struct {
	Rule        string
	Offset      int
	Original    string
	Replacement string
}

// Edit converts h into a deterministic edit on 1-based line n.
func (h Hit) Edit(n int) source.Edit {
	return source.Edit{
		Line: n, Column: h.Offset, Original: h.Original, Replacement: h.Replacement,
		Confidence: 1, Rule: h.Rule,
	}
}

// Set is an ordered list of rules.
type Set []Rule

// Apply runs every rule of s over line and returns the rewritten line with
// the rewrites in application order.
func (s Set) Apply(line string, env Env) (string, []Hit) {
	var hits []Hit
	for _, r := range s {
		var h []Hit
		line, h = r.apply(line, env)
		hits = append(hits, h...)
	}
	return line, hits
}

func (r Rule) apply(line string, env Env) (string, []Hit) {
	if r.Guard != nil && !r.Guard(line, env) {
		return line, nil
	}
	matches := r.Pattern.FindAllStringSubmatchIndex(line, -1)
	if len(matches) == 0 {
		return line, nil
	}
	mask := source.Protect(line)

	var (
		b    strings.Builder
		hits []Hit
		last int
	)
	for _, m := range matches {
		start, end := m[0], m[1]
		if mask.Protected(start) {
			continue
		}
		orig := line[start:end]
		var repl string
		if r.Rewrite != nil {
			repl = r.Rewrite(orig)
		} else {
			repl = string(r.Pattern.ExpandString(nil, r.Template, line, m))
		}
		if repl == orig {
			continue
		}
		b.WriteString(line[last:start])
		b.WriteString(repl)
		last = end
		hits = append(hits, Hit{Rule: r.Name, Offset: start, Original: orig, Replacement: repl})
	}
	if len(hits) == 0 {
		return line, nil
	}
	b.WriteString(line[last:])
	return b.String(), hits
}
