// Package tokenfix replaces tokens that are not valid C++ vocabulary with the
// closest dictionary word, and misspelled standard header names with the
// closest known header.
//
// Similarity is normalised Levenshtein distance with small bonuses for
// matching edge characters. A suggestion is applied only when its score
// clears the configured threshold; otherwise the token is left unchanged.
// Composite stream operators are repaired before any token is examined.
package tokenfix

import (
	"regexp"
	"strings"

	"github.com/MrWong99/glyphfix/internal/lexicon"
	"github.com/MrWong99/glyphfix/internal/rules"
	"github.com/MrWong99/glyphfix/internal/source"
)

const (
	defaultTokenThreshold  = 0.70
	defaultHeaderThreshold = 0.80
	defaultTokenDelta      = 2
	defaultHeaderDelta     = 3
	defaultEdgeBonus       = 0.10
	defaultAffixBonus      = 0.15
)

var (
	// headerNameRe locates the header name following an include keyword.
	headerNameRe = regexp.MustCompile(`^\s*[<"\[{(]?\s*([\w/.+]+)`)

	// numericRe accepts integer and floating literals as they appear after
	// tokenisation on identifier characters.
	numericRe = regexp.MustCompile(`^(0[xX][0-9A-Fa-f]+|0[bB][01]+|[0-9]+([eE][0-9]+)?)([uU]?[lL]{0,2}|[lL]{1,2}[uU]|[fF])$`)
)

// Option configures a [Corrector].
type Option func(*Corrector)

// WithLexicon sets the vocabulary suggestions are drawn from.
// Default: [lexicon.Default].
func WithLexicon(l *lexicon.Lexicon) Option {
	return func(c *Corrector) {
		if l != nil {
			c.lex = l
		}
	}
}

// WithTokenThreshold sets the minimum score a general token suggestion must
// exceed. Default: 0.70.
func WithTokenThreshold(t float64) Option {
	return func(c *Corrector) { c.tokenThreshold = t }
}

// WithHeaderThreshold sets the minimum score a header suggestion must
// exceed. Default: 0.80.
func WithHeaderThreshold(t float64) Option {
	return func(c *Corrector) { c.headerThreshold = t }
}

// WithLengthDelta sets the maximum length difference, in characters, between
// a token and a candidate word (token) or header (header). Defaults: 2 and 3.
func WithLengthDelta(token, header int) Option {
	return func(c *Corrector) {
		if token >= 0 {
			c.tokenDelta = token
		}
		if header >= 0 {
			c.headerDelta = header
		}
	}
}

// WithBonuses sets the per-edge bonus for token suggestions and the affix
// bonus for header suggestions. Defaults: 0.10 and 0.15.
func WithBonuses(edge, affix float64) Option {
	return func(c *Corrector) {
		c.edgeBonus = edge
		c.affixBonus = affix
	}
}

// WithSplicePolicy sets how accepted suggestions are written into the line.
// Default: [Replace].
func WithSplicePolicy(p SplicePolicy) Option {
	return func(c *Corrector) { c.policy = p }
}

// Corrector is the token-level correction stage. It is safe for concurrent
// use.
type Corrector struct {
	lex             *lexicon.Lexicon
	tokenThreshold  float64
	headerThreshold float64
	tokenDelta      int
	headerDelta     int
	edgeBonus       float64
	affixBonus      float64
	policy          SplicePolicy
}

// New returns a Corrector configured by opts.
func New(opts ...Option) *Corrector {
	c := &Corrector{
		lex:             lexicon.Default(),
		tokenThreshold:  defaultTokenThreshold,
		headerThreshold: defaultHeaderThreshold,
		tokenDelta:      defaultTokenDelta,
		headerDelta:     defaultHeaderDelta,
		edgeBonus:       defaultEdgeBonus,
		affixBonus:      defaultAffixBonus,
		policy:          Replace,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name returns the stage name used in correction records and metrics.
func (c *Corrector) Name() string { return "tokenfix" }

// Apply corrects every line of doc. The result has the same number of lines.
func (c *Corrector) Apply(doc source.Document) (source.Document, []source.Edit) {
	out := make(source.Document, len(doc))
	var edits []source.Edit
	for i, line := range doc {
		var e []source.Edit
		out[i], e = c.Line(i+1, line)
		edits = append(edits, e...)
	}
	return out, edits
}

// Suggest ranks dictionary words for token, best first. Only words within the
// configured length difference are considered.
func (c *Corrector) Suggest(token string) []Candidate {
	return rank(token, c.lex.Words(), c.tokenDelta, edgeBonus(c.edgeBonus))
}

// SuggestHeader ranks known header names for name, best first.
func (c *Corrector) SuggestHeader(name string) []Candidate {
	return rank(name, c.lex.Headers(), c.headerDelta, affixBonus(c.affixBonus))
}

// Valid reports whether tok needs no dictionary correction.
func (c *Corrector) Valid(tok string) bool {
	return c.lex.Contains(tok) || lexicon.IsIdentifier(tok) || numericRe.MatchString(tok)
}

type replacement struct {
	start, end int
	text       string
	cand       Candidate
	rule       string
}

// Line corrects a single line. n is the 1-based line number recorded in the
// returned edits.
func (c *Corrector) Line(n int, line string) (string, []source.Edit) {
	var edits []source.Edit
	for _, set := range []rules.Set{rules.Mixed(), rules.Stream()} {
		var hits []rules.Hit
		line, hits = set.Apply(line, rules.Env{})
		for _, h := range hits {
			edits = append(edits, h.Edit(n))
		}
	}

	code := line[:source.CommentStart(line)]
	mask := source.Protect(line)

	var reps []replacement
	if at := source.IncludeEnd(code); at >= 0 {
		if r, ok := c.header(code, at); ok {
			reps = append(reps, r)
		}
	} else {
		for _, t := range source.Tokenize(code) {
			if t.Kind != source.Word || t.Len() <= 1 || mask.Any(t.Start, t.End) || c.Valid(t.Text) {
				continue
			}
			cands := c.Suggest(t.Text)
			if len(cands) == 0 || cands[0].Score <= c.tokenThreshold {
				continue
			}
			reps = append(reps, replacement{start: t.Start, end: t.End, text: t.Text, cand: cands[0], rule: "dictionary"})
		}
	}
	if len(reps) == 0 {
		return line, edits
	}

	var b strings.Builder
	prev := 0
	for _, r := range reps {
		repl := splice(r.text, r.cand.Word, c.policy)
		b.WriteString(line[prev:r.start])
		b.WriteString(repl)
		prev = r.end
		edits = append(edits, source.Edit{
			Line: n, Column: r.start, Original: r.text, Replacement: repl,
			Confidence: r.cand.Score, Rule: r.rule,
		})
	}
	b.WriteString(line[prev:])
	return b.String(), edits
}

// header suggests a replacement for the header named after the include
// keyword ending at offset at. Known headers and names containing a path
// separator or extension are left alone.
func (c *Corrector) header(code string, at int) (replacement, bool) {
	m := headerNameRe.FindStringSubmatchIndex(code[at:])
	if m == nil {
		return replacement{}, false
	}
	start, end := at+m[2], at+m[3]
	name := code[start:end]
	if c.lex.IsHeader(name) || strings.ContainsAny(name, "/.") {
		return replacement{}, false
	}
	cands := c.SuggestHeader(name)
	if len(cands) == 0 || cands[0].Score <= c.headerThreshold || cands[0].Word == name {
		return replacement{}, false
	}
	return replacement{start: start, end: end, text: name, cand: cands[0], rule: "header-name"}, true
}
