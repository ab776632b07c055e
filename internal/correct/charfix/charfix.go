// Package charfix repairs single-glyph recognition errors that a token level
// view cannot resolve: composite stream operators, known garbled words,
// full-width angle brackets, digit/letter look-alikes and full-width
// punctuation.
//
// Every substitution other than known-error and full-width folding is gated
// by the characters around it. Comments and quoted literals are never
// touched.
package charfix

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/MrWong99/glyphfix/internal/lexicon"
	"github.com/MrWong99/glyphfix/internal/rules"
	"github.com/MrWong99/glyphfix/internal/source"
)

const (
	defaultDigitWindow  = 3
	defaultStreamWindow = 10
)

// Option configures a [Corrector].
type Option func(*Corrector)

// WithLexicon sets the vocabulary used for known errors and membership
// checks. Default: [lexicon.Default].
func WithLexicon(l *lexicon.Lexicon) Option {
	return func(c *Corrector) {
		if l != nil {
			c.lex = l
		}
	}
}

// WithDigitWindow sets the number of characters on each side inspected by
// the digit/letter gates. Default: 3.
func WithDigitWindow(n int) Option {
	return func(c *Corrector) {
		if n > 0 {
			c.digitWindow = n
		}
	}
}

// WithStreamWindow sets the number of characters on each side searched for a
// stream identifier when orienting an angle glyph. Default: 10.
func WithStreamWindow(n int) Option {
	return func(c *Corrector) {
		if n > 0 {
			c.streamWindow = n
		}
	}
}

// Corrector is the character-level correction stage. It is safe for
// concurrent use.
type Corrector struct {
	lex          *lexicon.Lexicon
	digitWindow  int
	streamWindow int
}

// New returns a Corrector configured by opts.
func New(opts ...Option) *Corrector {
	c := &Corrector{
		lex:          lexicon.Default(),
		digitWindow:  defaultDigitWindow,
		streamWindow: defaultStreamWindow,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Name returns the stage name used in correction records and metrics.
func (c *Corrector) Name() string { return "charfix" }

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

// Line corrects a single line. n is the 1-based line number recorded in the
// returned edits.
func (c *Corrector) Line(n int, line string) (string, []source.Edit) {
	line, hits := rules.Mixed().Apply(line, rules.Env{})
	edits := make([]source.Edit, 0, len(hits))
	for _, h := range hits {
		edits = append(edits, h.Edit(n))
	}

	mask := source.Protect(line)
	includeEnd := source.IncludeEnd(line)
	inInclude := func(at int) bool { return includeEnd >= 0 && at >= includeEnd }

	var b strings.Builder
	b.Grow(len(line) + 8)
	record := func(at int, orig, repl, rule string) {
		b.WriteString(repl)
		edits = append(edits, source.Edit{
			Line: n, Column: at, Original: orig, Replacement: repl, Confidence: 1, Rule: rule,
		})
	}

	for i := 0; i < len(line); {
		r, size := utf8.DecodeRuneInString(line[i:])
		if mask.Protected(i) {
			b.WriteString(line[i : i+size])
			i += size
			continue
		}

		if source.IsIdentRune(r) {
			j := wordEnd(line, i)
			unit := line[i:j]
			if fixed, ok := c.lex.KnownError(unit); ok {
				record(i, unit, fixed, "known-error")
			} else {
				fixed, wordEdits := c.fixWord(n, line, i, unit)
				b.WriteString(fixed)
				edits = append(edits, wordEdits...)
			}
			i = j
			continue
		}

		conf, ok := lexicon.Confusable(r)
		switch {
		case !ok:
			b.WriteString(line[i : i+size])
		case conf.Class == lexicon.Angle:
			if inInclude(i) {
				record(i, line[i:i+size], conf.Replacement, "header-angle")
			} else {
				record(i, line[i:i+size], c.streamOperator(line, i, size), "stream-angle")
			}
		case conf.Class == lexicon.Delimiter:
			if inInclude(i) {
				record(i, line[i:i+size], conf.Replacement, "header-delimiter")
			} else {
				b.WriteString(line[i : i+size])
			}
		case conf.Class == lexicon.Width:
			record(i, line[i:i+size], conf.Replacement, "full-width")
		default:
			b.WriteString(line[i : i+size])
		}
		i += size
	}
	return b.String(), edits
}

// fixWord applies the gated digit/letter substitutions inside one word that
// starts at byte offset at of line.
func (c *Corrector) fixWord(n int, line string, at int, word string) (string, []source.Edit) {
	rs := []rune(word)
	identLike := unicode.IsLetter(rs[0]) || rs[0] == '_'
	numberLike := unicode.IsDigit(rs[0])
	if (identLike && c.lex.Contains(word)) || (!identLike && !numberLike) {
		return word, nil
	}

	var edits []source.Edit
	out := make([]rune, len(rs))
	copy(out, rs)
	off := at
	for k, r := range rs {
		pos := off
		off += utf8.RuneLen(r)

		conf, ok := lexicon.Confusable(r)
		if !ok {
			continue
		}
		apply := false
		switch conf.Class {
		case lexicon.DigitToLetter:
			apply = identLike &&
				k > 0 && k < len(rs)-1 &&
				isLetter(rs[k-1]) && isLetter(rs[k+1]) &&
				windowHas(line, pos, c.digitWindow, isLetter)
		case lexicon.LetterToDigit:
			adjacent := (k > 0 && unicode.IsDigit(rs[k-1])) || (k < len(rs)-1 && unicode.IsDigit(rs[k+1]))
			suffix := k == len(rs)-1 && r == 'l'
			apply = numberLike && k > 0 && adjacent && !suffix &&
				windowHas(line, pos, c.digitWindow, unicode.IsDigit)
		}
		if !apply {
			continue
		}
		repl, _ := utf8.DecodeRuneInString(conf.Replacement)
		out[k] = repl
		rule := "digit-to-letter"
		if conf.Class == lexicon.LetterToDigit {
			rule = "letter-to-digit"
		}
		edits = append(edits, source.Edit{
			Line: n, Column: pos, Original: string(r), Replacement: conf.Replacement,
			Confidence: 1, Rule: rule,
		})
	}
	return string(out), edits
}

// streamOperator picks "<<" or ">>" for a lone angle glyph at byte offset at
// from the nearest stream cue within the stream window. Output wins ties and
// is the default.
func (c *Corrector) streamOperator(line string, at, size int) string {
	before := lastRunes(line[:at], c.streamWindow)
	after := firstRunes(line[at+size:], c.streamWindow)

	inDist, outDist := -1, -1
	nearest := func(d *int, dist int) {
		if *d < 0 || dist < *d {
			*d = dist
		}
	}
	lb, la := strings.ToLower(before), strings.ToLower(after)
	for _, cue := range []string{"cin", ">>"} {
		if k := strings.LastIndex(lb, cue); k >= 0 {
			nearest(&inDist, len(lb)-k-len(cue))
		}
		if k := strings.Index(la, cue); k >= 0 {
			nearest(&inDist, k)
		}
	}
	for _, cue := range []string{"cout", "cerr", "clog", "endl", "<<"} {
		if k := strings.LastIndex(lb, cue); k >= 0 {
			nearest(&outDist, len(lb)-k-len(cue))
		}
		if k := strings.Index(la, cue); k >= 0 {
			nearest(&outDist, k)
		}
	}
	if inDist >= 0 && (outDist < 0 || inDist < outDist) {
		return ">>"
	}
	return "<<"
}

func wordEnd(line string, i int) int {
	for i < len(line) {
		r, size := utf8.DecodeRuneInString(line[i:])
		if !source.IsIdentRune(r) {
			break
		}
		i += size
	}
	return i
}

// windowHas reports whether any rune within n runes on either side of the
// rune at byte offset at satisfies pred.
func windowHas(line string, at, n int, pred func(rune) bool) bool {
	_, size := utf8.DecodeRuneInString(line[at:])
	for _, r := range lastRunes(line[:at], n) {
		if pred(r) {
			return true
		}
	}
	for _, r := range firstRunes(line[at+size:], n) {
		if pred(r) {
			return true
		}
	}
	return false
}

func lastRunes(s string, n int) string {
	i := len(s)
	for k := 0; k < n && i > 0; k++ {
		_, size := utf8.DecodeLastRuneInString(s[:i])
		i -= size
	}
	return s[i:]
}

func firstRunes(s string, n int) string {
	i := 0
	for k := 0; k < n && i < len(s); k++ {
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return s[:i]
}

func isLetter(r rune) bool {
	return unicode.IsLetter(r)
}
