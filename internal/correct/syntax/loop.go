package syntax

import "strings"

// loopTracker follows brace depth line by line to know whether the current
// line lies in the body of a loop whose header needed repairs.
type loopTracker struct {
	depth int

	// bases holds, per open repaired loop, the brace depth outside its body.
	bases []int
}

func (t *loopTracker) active() bool { return len(t.bases) > 0 }

// advance consumes one line. code is the line with comments and literals
// blanked; header reports that the line holds a repaired loop header.
//
// A header that opens a brace starts a body that lasts until the depth drops
// back. A header ending in ')' starts a body on the next line, which either
// opens a brace or is the single statement of the loop.
func (t *loopTracker) advance(code string, header bool) {
	stmt := strings.TrimSpace(code)
	if stmt == "" {
		return
	}
	before := t.depth
	t.depth = max(t.depth+strings.Count(code, "{")-strings.Count(code, "}"), 0)

	kept := t.bases[:0]
	for _, base := range t.bases {
		if t.depth > base {
			kept = append(kept, base)
		}
	}
	t.bases = kept

	if header && (t.depth > before || strings.HasSuffix(stmt, ")")) {
		t.bases = append(t.bases, before)
	}
}

// blank returns line with every protected byte replaced by a space.
func blank(line string, protected func(int) bool) string {
	b := []byte(line)
	for i := range b {
		if protected(i) {
			b[i] = ' '
		}
	}
	return string(b)
}
