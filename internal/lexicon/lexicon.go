// Package lexicon holds the immutable vocabulary used to judge and repair
// recognised tokens: keywords, standard-library identifiers and standard
// header names, the single-glyph confusable table and the known-error map.
//
// A [Lexicon] is built once and never mutated. Extending it with course
// specific identifiers produces a new value via [Lexicon.With], so a lexicon
// can be shared by any number of concurrently running pipelines without
// locking.
package lexicon

import (
	"regexp"
	"slices"
	"sync"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IsIdentifier reports whether s has identifier syntax.
func IsIdentifier(s string) bool {
	return identRe.MatchString(s)
}

// Lexicon is a read-only set of valid words partitioned into keywords,
// library identifiers and header names.
type Lexicon struct {
	keywords map[string]struct{}
	library  map[string]struct{}
	headers  map[string]struct{}

	// words are the identifier-syntax members of all partitions, sorted.
	words []string
	// headerWords are the identifier-syntax header names, sorted.
	headerWords []string

	known map[string]string
}

var (
	defaultOnce sync.Once
	defaultLex  *Lexicon
)

// Default returns the built-in lexicon. The value is constructed on first use
// and shared afterwards.
func Default() *Lexicon {
	defaultOnce.Do(func() {
		defaultLex = New(keywords, library, headers)
	})
	return defaultLex
}

// New builds a lexicon from the three partitions.
func New(kw, lib, hdr []string) *Lexicon {
	l := &Lexicon{
		keywords: toSet(kw),
		library:  toSet(lib),
		headers:  toSet(hdr),
	}
	l.index()
	return l
}

// With returns a new lexicon whose library partition additionally contains
// extra. Entries without identifier syntax are ignored. l is not modified.
func (l *Lexicon) With(extra ...string) *Lexicon {
	lib := make(map[string]struct{}, len(l.library)+len(extra))
	for w := range l.library {
		lib[w] = struct{}{}
	}
	for _, w := range extra {
		if IsIdentifier(w) {
			lib[w] = struct{}{}
		}
	}
	n := &Lexicon{keywords: l.keywords, library: lib, headers: l.headers}
	n.index()
	return n
}

func (l *Lexicon) index() {
	seen := make(map[string]struct{})
	for _, set := range []map[string]struct{}{l.keywords, l.library, l.headers} {
		for w := range set {
			if _, dup := seen[w]; dup || !IsIdentifier(w) {
				continue
			}
			seen[w] = struct{}{}
			l.words = append(l.words, w)
		}
	}
	slices.Sort(l.words)
	for h := range l.headers {
		if IsIdentifier(h) {
			l.headerWords = append(l.headerWords, h)
		}
	}
	slices.Sort(l.headerWords)
	l.known = buildKnownErrors(l)
}

// IsKeyword reports whether w is a reserved word.
func (l *Lexicon) IsKeyword(w string) bool { return has(l.keywords, w) }

// IsLibrary reports whether w is a library identifier.
func (l *Lexicon) IsLibrary(w string) bool { return has(l.library, w) }

// IsHeader reports whether w is a standard header name.
func (l *Lexicon) IsHeader(w string) bool { return has(l.headers, w) }

// Contains reports whether w belongs to any partition.
func (l *Lexicon) Contains(w string) bool {
	return l.IsKeyword(w) || l.IsLibrary(w) || l.IsHeader(w)
}

// Words returns every identifier-syntax member in sorted order. The returned
// slice must not be modified.
func (l *Lexicon) Words() []string { return l.words }

// Headers returns the identifier-syntax header names in sorted order. The
// returned slice must not be modified.
func (l *Lexicon) Headers() []string { return l.headerWords }

// Len returns the number of distinct identifier-syntax members.
func (l *Lexicon) Len() int { return len(l.words) }

// KnownError returns the correction for a known garbled word.
func (l *Lexicon) KnownError(unit string) (string, bool) {
	c, ok := l.known[unit]
	return c, ok
}

func toSet(words []string) map[string]struct{} {
	s := make(map[string]struct{}, len(words))
	for _, w := range words {
		s[w] = struct{}{}
	}
	return s
}

func has(s map[string]struct{}, w string) bool {
	_, ok := s[w]
	return ok
}
