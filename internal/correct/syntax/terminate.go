package syntax

import (
	"regexp"
	"strings"

	"github.com/MrWong99/glyphfix/internal/source"
)

var (
	// blockStartRe matches statements that open a construct and never take
	// a terminator of their own.
	blockStartRe = regexp.MustCompile(`^(for|if|while|switch|else|struct|class|namespace|public|private|protected|try|catch|do|case|default|template|enum|union)\b`)

	// controlRe matches a control-flow header, optionally after the brace
	// closing the previous block ("} else if (x)").
	controlRe = regexp.MustCompile(`^\}?\s*(else\s+)?(for|if|while|switch|catch)\s*\(`)

	// doWhileRe matches the tail of a do-while loop, which does take one.
	doWhileRe = regexp.MustCompile(`^\}\s*while\s*\(.*\)$`)

	declRe = regexp.MustCompile(`^(class|struct|namespace|enum)(\s+class)?\s+\w+(\s*:[^;]*)?(\s*\{)?$`)

	bracketOnlyRe = regexp.MustCompile(`^[(){}\[\]\s]+$`)

	// funcDefRe matches a function signature: a return type, a name and a
	// parameter list, optionally followed by qualifiers and an opening brace.
	funcDefRe = regexp.MustCompile(`^([A-Za-z_][\w:]*)(\s*<[^()]*>)?[\s*&]+[\w:~]+\s*\([^)]*\)\s*(const\s*)?(noexcept\s*)?(override\s*)?\{?$`)

	// continuationRe matches the start of a line that continues the
	// expression of the line before it.
	continuationRe = regexp.MustCompile(`^(<<|>>|->|&&|\|\||[.?:,)=/%]|[-+]([^-+]|$))`)

	statementRes = []*regexp.Regexp{
		regexp.MustCompile(`[A-Za-z_]\w*\s*=`),
		regexp.MustCompile(`[A-Za-z_]\w*\s*\(`),
		regexp.MustCompile(`\b(cout|cerr|clog)\s*<<`),
		regexp.MustCompile(`\bcin\s*>>`),
		regexp.MustCompile(`\breturn\b`),
		regexp.MustCompile(`[A-Za-z_]\w*\s*[-+*/%&|^]=`),
		regexp.MustCompile(`[A-Za-z_]\w*\s*[-+*/%]`),
		regexp.MustCompile(`[A-Za-z_]\w*\s*$`),
		regexp.MustCompile(`[A-Za-z_]\w*\s*\[[^\]]*\]\s*$`),
	}
)

// notFunctionStart lists leading words that make a signature-shaped line a
// statement ("return add(a, b)").
var notFunctionStart = map[string]bool{
	"return": true, "delete": true, "throw": true, "new": true,
	"else": true, "goto": true, "co_return": true, "co_yield": true,
}

// Terminate appends a statement terminator to line when it reads as a
// complete statement that lacks one. It is [Repairer.Terminate] without
// look-ahead or comment state.
func Terminate(line string) string {
	out, _ := terminate(1, line, "", false)
	return out
}

// Terminate appends a statement terminator to line when it reads as a
// complete statement. next is the following line that holds code, used to
// recognise a statement continued there; inBlock reports whether line starts
// inside a block comment.
func (r *Repairer) Terminate(n int, line, next string, inBlock bool) (string, []source.Edit) {
	out, e := terminate(n, line, next, inBlock)
	if e == nil {
		return out, nil
	}
	return out, []source.Edit{*e}
}

func terminate(n int, line, next string, inBlock bool) (string, *source.Edit) {
	if inBlock {
		return line, nil
	}
	code := strings.TrimRight(line[:source.CommentStart(line)], " \t")
	stmt := strings.TrimSpace(code)
	if !needsTerminator(stmt) {
		return line, nil
	}
	if next = strings.TrimSpace(next[:source.CommentStart(next)]); continuationRe.MatchString(next) {
		return line, nil
	}
	return code + ";" + line[len(code):], &source.Edit{
		Line: n, Column: len(code), Replacement: ";", Confidence: 1, Rule: "terminator",
	}
}

func needsTerminator(stmt string) bool {
	switch {
	case stmt == "":
		return false
	case doWhileRe.MatchString(stmt):
		return true
	case strings.HasSuffix(stmt, ";"),
		strings.HasPrefix(stmt, "#"),
		blockStartRe.MatchString(stmt),
		controlRe.MatchString(stmt),
		declRe.MatchString(stmt),
		bracketOnlyRe.MatchString(stmt),
		endsOpen(stmt):
		return false
	}
	if !looksLikeStatement(stmt) {
		return false
	}
	if m := funcDefRe.FindStringSubmatch(stmt); m != nil && !notFunctionStart[m[1]] {
		return false
	}
	return true
}

// endsOpen reports whether stmt ends with a brace or a character that leaves
// the statement unfinished: a separator, a line splice, a label colon, an
// opening bracket or a binary operator.
func endsOpen(stmt string) bool {
	if strings.HasSuffix(stmt, "++") || strings.HasSuffix(stmt, "--") {
		return false
	}
	return strings.ContainsRune("{},\\:([+-*/%&|^=<>!?~.", rune(stmt[len(stmt)-1]))
}

func looksLikeStatement(stmt string) bool {
	for _, re := range statementRes {
		if re.MatchString(stmt) {
			return true
		}
	}
	return false
}
