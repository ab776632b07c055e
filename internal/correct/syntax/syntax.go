// Package syntax performs the structural repairs of the correction pipeline:
// bracket balancing over the whole document, include delimiter repair,
// stream operator completion, a few verbatim literal fix-ups and statement
// terminator insertion.
package syntax

import (
	"strings"

	"github.com/MrWong99/glyphfix/internal/lexicon"
	"github.com/MrWong99/glyphfix/internal/rules"
	"github.com/MrWong99/glyphfix/internal/source"
)

// Option configures a [Repairer].
type Option func(*Repairer)

// WithLexicon sets the vocabulary used to tell standard headers from user
// headers. Default: [lexicon.Default].
func WithLexicon(l *lexicon.Lexicon) Option {
	return func(r *Repairer) {
		if l != nil {
			r.lex = l
		}
	}
}

// Repairer is the syntactic repair stage. It is safe for concurrent use.
type Repairer struct {
	lex *lexicon.Lexicon
}

// New returns a Repairer configured by opts.
func New(opts ...Option) *Repairer {
	r := &Repairer{lex: lexicon.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Name returns the stage name used in correction records and metrics.
func (r *Repairer) Name() string { return "syntax" }

// Apply balances brackets, then repairs each line in turn: include
// delimiters, stream operators, literal fix-ups and finally terminators.
// The result has the same number of lines as doc.
func (r *Repairer) Apply(doc source.Document) (source.Document, []source.Edit) {
	out, edits := Balance(doc)

	var (
		loops   loopTracker
		inBlock bool
	)
	startsInBlock := make([]bool, len(out))
	for i, line := range out {
		n := i + 1

		var e []source.Edit
		line, e = r.Include(n, line)
		edits = append(edits, e...)

		line, hits := rules.Stream().Apply(line, rules.Env{})
		edits = appendHits(edits, n, hits)

		line, header, hits := literals(line, loops.active())
		edits = appendHits(edits, n, hits)

		startsInBlock[i] = inBlock
		var mask source.Mask
		mask, inBlock = source.ProtectFrom(line, inBlock)
		loops.advance(blank(line, mask.Protected), header)
		out[i] = line
	}

	for i, line := range out {
		var e []source.Edit
		out[i], e = r.Terminate(i+1, line, nextCode(out, startsInBlock, i), startsInBlock[i])
		edits = append(edits, e...)
	}
	return out, edits
}

// literals applies the literal fix-ups to line. header reports that a loop
// header was repaired; index fix-ups then also apply to the rest of the line,
// which holds the loop body when the loop is written on one line.
func literals(line string, inLoop bool) (out string, header bool, hits []rules.Hit) {
	out, hits = rules.Literal().Apply(line, rules.Env{InRepairedLoop: inLoop})
	for _, h := range hits {
		if rules.IsLoopRule(h.Rule) {
			header = true
			break
		}
	}
	if header && !inLoop {
		var more []rules.Hit
		out, more = rules.Literal().Apply(out, rules.Env{InRepairedLoop: true})
		hits = append(hits, more...)
	}
	return out, header, hits
}

// nextCode returns the first line after i that holds code outside comments,
// or "" when there is none.
func nextCode(doc source.Document, startsInBlock []bool, i int) string {
	for j := i + 1; j < len(doc); j++ {
		if startsInBlock[j] {
			continue
		}
		if strings.TrimSpace(doc[j][:source.CommentStart(doc[j])]) != "" {
			return doc[j]
		}
	}
	return ""
}

func appendHits(edits []source.Edit, n int, hits []rules.Hit) []source.Edit {
	for _, h := range hits {
		edits = append(edits, h.Edit(n))
	}
	return edits
}
