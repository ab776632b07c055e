package syntax

import (
	"regexp"

	"github.com/MrWong99/glyphfix/internal/source"
)

// directiveRe splits an include directive into prefix, left delimiter,
// header name and right delimiter, keeping the whitespace between them.
var directiveRe = regexp.MustCompile(`(?i)^(\s*#\s*include\s*)([<"\[{(]?)(\s*)([\w/.+-]+)(\s*)([>"\]})]?)`)

// Include repairs the delimiters of an include directive. Standard headers
// get angle brackets. Other headers keep a well-formed pair; a broken or
// missing pair becomes quotes unless one side already is an angle bracket.
// Lines that are not include directives are returned unchanged.
func (r *Repairer) Include(n int, line string) (string, []source.Edit) {
	m := directiveRe.FindStringSubmatchIndex(line)
	if m == nil {
		return line, nil
	}
	left, name, right := line[m[4]:m[5]], line[m[8]:m[9]], line[m[12]:m[13]]

	var wantL, wantR string
	switch {
	case r.lex.IsHeader(name):
		wantL, wantR = "<", ">"
	case left == "<" && right == ">", left == `"` && right == `"`:
		return line, nil
	case left == "<" || right == ">":
		wantL, wantR = "<", ">"
	default:
		wantL, wantR = `"`, `"`
	}
	if left == wantL && right == wantR {
		return line, nil
	}

	gap, end := line[m[10]:m[11]], m[13]
	if right == "" {
		gap, end = "", m[10]
	}
	repl := wantL + line[m[6]:m[7]] + name + gap + wantR
	out := line[:m[4]] + repl + line[end:]
	return out, []source.Edit{{
		Line: n, Column: m[4], Original: line[m[4]:end], Replacement: repl,
		Confidence: 1, Rule: "include-delimiters",
	}}
}
