package tokenfix

import (
	"slices"
	"unicode/utf8"

	"github.com/antzucaro/matchr"
)

// Candidate is one dictionary suggestion for an unrecognised token.
type Candidate struct {
	Word  string
	Score float64
}

// bonusFunc returns the additive score adjustment for candidate w given the
// unrecognised token.
type bonusFunc func(token, w string) float64

// edgeBonus rewards a shared first and a shared last character separately.
func edgeBonus(per float64) bonusFunc {
	return func(token, w string) float64 {
		var b float64
		tf, _ := utf8.DecodeRuneInString(token)
		wf, _ := utf8.DecodeRuneInString(w)
		if tf == wf {
			b += per
		}
		tl, _ := utf8.DecodeLastRuneInString(token)
		wl, _ := utf8.DecodeLastRuneInString(w)
		if tl == wl {
			b += per
		}
		return b
	}
}

// affixBonus rewards a candidate that starts with the first two characters
// or ends with the last two characters of the token, once.
func affixBonus(bonus float64) bonusFunc {
	return func(token, w string) float64 {
		tr, wr := []rune(token), []rune(w)
		if len(tr) < 2 || len(wr) < 2 {
			return 0
		}
		if slices.Equal(wr[:2], tr[:2]) || slices.Equal(wr[len(wr)-2:], tr[len(tr)-2:]) {
			return bonus
		}
		return 0
	}
}

// similarity is 1 - distance/maxLen plus bonus, clamped to 1.
func similarity(token, w string, bonus bonusFunc) float64 {
	tl, wl := utf8.RuneCountInString(token), utf8.RuneCountInString(w)
	longest := max(tl, wl)
	if longest == 0 {
		return 0
	}
	s := 1 - float64(matchr.Levenshtein(token, w))/float64(longest)
	if bonus != nil {
		s += bonus(token, w)
	}
	return min(s, 1)
}

// rank scores every candidate whose length is within maxDelta runes of token
// and returns them best first. Candidates with equal scores keep their order
// in words.
func rank(token string, words []string, maxDelta int, bonus bonusFunc) []Candidate {
	tl := utf8.RuneCountInString(token)
	var out []Candidate
	for _, w := range words {
		d := utf8.RuneCountInString(w) - tl
		if d < -maxDelta || d > maxDelta {
			continue
		}
		out = append(out, Candidate{Word: w, Score: similarity(token, w, bonus)})
	}
	slices.SortStableFunc(out, func(a, b Candidate) int {
		switch {
		case a.Score > b.Score:
			return -1
		case a.Score < b.Score:
			return 1
		}
		return 0
	})
	return out
}

// SplicePolicy selects how an accepted suggestion is written over the token
// it replaces.
type SplicePolicy int

const (
	// Replace substitutes the whole token with the suggestion.
	Replace SplicePolicy = iota

	// Overlay writes the suggestion over the token position by position. A
	// longer suggestion extends the token; a shorter one leaves the token's
	// surplus characters in place.
	Overlay
)

// ParseSplicePolicy maps a configuration value to a policy. Unknown values
// report false.
func ParseSplicePolicy(s string) (SplicePolicy, bool) {
	switch s {
	case "", "replace":
		return Replace, true
	case "overlay":
		return Overlay, true
	}
	return Replace, false
}

// String returns the configuration spelling of p.
func (p SplicePolicy) String() string {
	if p == Overlay {
		return "overlay"
	}
	return "replace"
}

func splice(orig, suggestion string, p SplicePolicy) string {
	if p == Replace {
		return suggestion
	}
	o, s := []rune(orig), []rune(suggestion)
	n := min(len(o), len(s))
	copy(o[:n], s[:n])
	if len(s) > len(o) {
		o = append(o, s[len(o):]...)
	}
	return string(o)
}
