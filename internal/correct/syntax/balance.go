package syntax

import (
	"strings"

	"github.com/MrWong99/glyphfix/internal/source"
)

var closers = map[byte]byte{'(': ')', '[': ']', '{': '}'}

type opener struct {
	ch   byte
	line int
}

// Balance makes the brackets of doc nest. Outside comments and literals, a
// closer that does not match the innermost open bracket is rewritten to
// match it, a closer with nothing open is deleted, and every bracket still
// open at the end is closed at the end of the code on its own line.
func Balance(doc source.Document) (source.Document, []source.Edit) {
	out, edits := balance(doc)
	// A closer appended to an earlier line can cross a bracket that was
	// closed further down. The second scan only ever coerces.
	out, more := balance(out)
	return out, append(edits, more...)
}

func balance(doc source.Document) (source.Document, []source.Edit) {
	out := make(source.Document, len(doc))
	var (
		edits   []source.Edit
		stack   []opener
		inBlock bool
	)
	// startsInBlock[i] reports whether line i begins inside a block comment.
	startsInBlock := make([]bool, len(doc))
	for i, line := range doc {
		startsInBlock[i] = inBlock
		var mask source.Mask
		mask, inBlock = source.ProtectFrom(line, inBlock)

		var b strings.Builder
		b.Grow(len(line))
		for j := 0; j < len(line); j++ {
			c := line[j]
			if mask.Protected(j) {
				b.WriteByte(c)
				continue
			}
			switch c {
			case '(', '[', '{':
				stack = append(stack, opener{ch: c, line: i})
			case ')', ']', '}':
				if len(stack) == 0 {
					edits = append(edits, bracketEdit(i, j, string(c), "", "bracket-spurious"))
					continue
				}
				want := closers[stack[len(stack)-1].ch]
				stack = stack[:len(stack)-1]
				if c != want {
					edits = append(edits, bracketEdit(i, j, string(c), string(want), "bracket-coerce"))
					c = want
				}
			}
			b.WriteByte(c)
		}
		out[i] = b.String()
	}

	for k := len(stack) - 1; k >= 0; k-- {
		o := stack[k]
		line := out[o.line]
		at := codeEnd(line, startsInBlock[o.line])
		closer := string(closers[o.ch])
		out[o.line] = line[:at] + closer + line[at:]
		edits = append(edits, bracketEdit(o.line, at, "", closer, "bracket-close"))
	}
	return out, edits
}

// codeEnd returns the offset just past the last unprotected non-blank byte of
// line, so text inserted there lands before any trailing comment.
func codeEnd(line string, inBlock bool) int {
	mask, _ := source.ProtectFrom(line, inBlock)
	for j := len(line) - 1; j >= 0; j-- {
		if !mask.Protected(j) && line[j] != ' ' && line[j] != '\t' {
			return j + 1
		}
	}
	return len(line)
}

func bracketEdit(line, col int, orig, repl, rule string) source.Edit {
	return source.Edit{Line: line + 1, Column: col, Original: orig, Replacement: repl, Confidence: 1, Rule: rule}
}
