package source

// Mask marks protected bytes of one line. Protected bytes belong to a comment
// or a quoted literal and must not be modified by character or token level
// corrections.
type Mask []bool

// Protected reports whether byte offset i is protected. Offsets outside the
// line are never protected.
func (m Mask) Protected(i int) bool {
	return i >= 0 && i < len(m) && m[i]
}

// Any reports whether any byte in [start, end) is protected.
func (m Mask) Any(start, end int) bool {
	for i := max(start, 0); i < end && i < len(m); i++ {
		if m[i] {
			return true
		}
	}
	return false
}

// Protect computes the protected mask for line. A byte is protected when it
// lies at or after a '//' marker, inside a terminated "..." or '...' literal
// (backslash escapes honoured), or inside a /* ... */ comment. An unterminated
// quote protects nothing; an unterminated block comment protects the rest of
// the line.
func Protect(line string) Mask {
	m, _ := ProtectFrom(line, false)
	return m
}

// ProtectFrom is [Protect] with block-comment state carried across lines.
// inBlock reports whether the line starts inside a block comment opened on an
// earlier line; the second result reports whether the line ends inside one.
func ProtectFrom(line string, inBlock bool) (Mask, bool) {
	m := make(Mask, len(line))
	i := 0
	if inBlock {
		end := indexFrom(line, "*/", 0)
		if end < 0 {
			fill(m, 0, len(line))
			return m, true
		}
		fill(m, 0, end+2)
		i = end + 2
	}
	for i < len(line) {
		c := line[i]
		switch {
		case c == '/' && i+1 < len(line) && line[i+1] == '/':
			fill(m, i, len(line))
			return m, false
		case c == '/' && i+1 < len(line) && line[i+1] == '*':
			end := indexFrom(line, "*/", i+2)
			if end < 0 {
				fill(m, i, len(line))
				return m, true
			}
			fill(m, i, end+2)
			i = end + 2
		case c == '"' || c == '\'':
			end := closingQuote(line, i)
			if end < 0 {
				i++
				continue
			}
			fill(m, i, end+1)
			i = end + 1
		default:
			i++
		}
	}
	return m, false
}

// CommentStart returns the byte offset of the first comment marker ('//' or
// '/*') outside a quoted literal, or len(line) when the line has none.
func CommentStart(line string) int {
	i := 0
	for i < len(line) {
		c := line[i]
		switch {
		case c == '/' && i+1 < len(line) && (line[i+1] == '/' || line[i+1] == '*'):
			return i
		case c == '"' || c == '\'':
			if end := closingQuote(line, i); end >= 0 {
				i = end + 1
				continue
			}
			i++
		default:
			i++
		}
	}
	return len(line)
}

// closingQuote returns the offset of the quote closing the literal opened at
// open, or -1 when the literal is not terminated on this line.
func closingQuote(line string, open int) int {
	q := line[open]
	for j := open + 1; j < len(line); j++ {
		switch line[j] {
		case '\\':
			j++
		case q:
			return j
		}
	}
	return -1
}

func indexFrom(s, sub string, from int) int {
	for j := from; j+len(sub) <= len(s); j++ {
		if s[j:j+len(sub)] == sub {
			return j
		}
	}
	return -1
}

func fill(m Mask, from, to int) {
	for k := from; k < to && k < len(m); k++ {
		m[k] = true
	}
}
