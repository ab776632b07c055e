package lexicon

// minVariantLen keeps two-letter words such as "do" out of variant
// generation; their glyph variants ("d0") are plausible identifiers.
const minVariantLen = 3

// buildKnownErrors merges the curated error list with variants of every
// lexicon word in which one or two letters were read as look-alike digits.
// Variants that are themselves lexicon members, that consist only of digits,
// or that could stem from two different words are discarded.
func buildKnownErrors(l *Lexicon) map[string]string {
	gen := make(map[string]string)
	ambiguous := make(map[string]struct{})
	for _, w := range l.words {
		if len(w) < minVariantLen {
			continue
		}
		for _, v := range variants(w) {
			if l.Contains(v) || allDigits(v) {
				continue
			}
			if prev, ok := gen[v]; ok && prev != w {
				ambiguous[v] = struct{}{}
				continue
			}
			gen[v] = w
		}
	}
	for v := range ambiguous {
		delete(gen, v)
	}
	for k, v := range curated {
		gen[k] = v
	}
	return gen
}

// variants returns w with every single and every pair of swappable letters
// replaced by their digit look-alike. w must be ASCII.
func variants(w string) []string {
	var pos []int
	for i := 0; i < len(w); i++ {
		if _, ok := glyphSwaps[rune(w[i])]; ok {
			pos = append(pos, i)
		}
	}
	var out []string
	for a := 0; a < len(pos); a++ {
		b := []byte(w)
		b[pos[a]] = byte(glyphSwaps[rune(w[pos[a]])])
		out = append(out, string(b))
		for c := a + 1; c < len(pos); c++ {
			bb := []byte(string(b))
			bb[pos[c]] = byte(glyphSwaps[rune(w[pos[c]])])
			out = append(out, string(bb))
		}
	}
	return out
}

func allDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}
