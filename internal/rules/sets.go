package rules

import (
	"regexp"
	"unicode/utf8"
)

var (
	cinRe     = regexp.MustCompile(`\bcin\b`)
	forLineRe = regexp.MustCompile(`\bfor\s*\(`)
)

// mixed collapses composite renderings of the doubled stream operators:
// full-width and half-width glyphs mixed together, and tripled operators.
var mixed = Set{
	{
		Name:     "mixed-pair",
		Pattern:  regexp.MustCompile(`《〉|〈》`),
		Template: "<<",
	},
	{
		Name:    "open-run",
		Pattern: regexp.MustCompile(`[<《〈＜]{2,}`),
		Rewrite: func(m string) string {
			if m != "<<" && (hasGlyph(m) || utf8.RuneCountInString(m) > 2) {
				return "<<"
			}
			return m
		},
	},
	{
		Name:    "close-run",
		Pattern: regexp.MustCompile(`[>》〉＞]{2,}`),
		Rewrite: func(m string) string {
			if hasGlyph(m) {
				return ">>"
			}
			return m
		},
	},
	{
		// Plain ">>>" is a valid closer of nested templates, so it is only
		// collapsed on lines that read from an input stream.
		Name:     "close-triple",
		Pattern:  regexp.MustCompile(`>{3,}`),
		Template: ">>",
		Guard:    func(line string, _ Env) bool { return cinRe.MatchString(line) },
	},
}

// stream completes or truncates operators written directly after a stream
// identifier, orienting them by the identifier's direction.
var stream = Set{
	{
		Name:     "stream-glyph-out",
		Pattern:  regexp.MustCompile(`\b(cout|cerr|clog|endl)(\s*)[《〈＜》〉＞]`),
		Template: "$1$2<<",
	},
	{
		Name:     "stream-glyph-in",
		Pattern:  regexp.MustCompile(`\bcin(\s*)[《〈＜》〉＞]`),
		Template: "cin$1>>",
	},
	{
		Name:     "stream-out-triple",
		Pattern:  regexp.MustCompile(`\b(cout|cerr|clog)(\s*)<{3,}`),
		Template: "$1$2<<",
	},
	{
		Name:     "stream-in-triple",
		Pattern:  regexp.MustCompile(`\bcin(\s*)>{3,}`),
		Template: "cin$1>>",
	},
	{
		Name:     "stream-out-single",
		Pattern:  regexp.MustCompile(`\b(cout|cerr|clog)(\s*)<([^<=]|$)`),
		Template: "$1$2<<$3",
	},
	{
		Name:     "stream-in-single",
		Pattern:  regexp.MustCompile(`\bcin(\s*)>([^>=]|$)`),
		Template: "cin$1>>$2",
	},
	{
		Name:     "endl-single",
		Pattern:  regexp.MustCompile(`(^|[^<])<(\s*)endl\b`),
		Template: "$1<<${2}endl",
	},
}

// literal fixes a handful of verbatim corruptions of loop variables and of
// the program entry point.
var literal = Set{
	{
		Name:     "loop-init",
		Pattern:  regexp.MustCompile(`\b(?:1nt|int)(\s+)1(\s*)=`),
		Template: "int${1}i${2}=",
		Guard:    forGuard,
	},
	{
		Name:     "loop-compare",
		Pattern:  regexp.MustCompile(`([;(]\s*)1(\s*)(<=?|!=)`),
		Template: "${1}i${2}${3}",
		Guard:    forGuard,
	},
	{
		Name:     "loop-increment",
		Pattern:  regexp.MustCompile(`\b1(\s*)\+\+`),
		Template: "i${1}++",
		Guard:    forGuard,
	},
	{
		Name:     "loop-preincrement",
		Pattern:  regexp.MustCompile(`\+\+(\s*)1\b`),
		Template: "++${1}i",
		Guard:    forGuard,
	},
	{
		Name:     "loop-index",
		Pattern:  regexp.MustCompile(`\[(\s*)1(\s*)\]`),
		Template: "[${1}i${2}]",
		Guard:    func(_ string, env Env) bool { return env.InRepairedLoop },
	},
	{
		Name:     "entry-point",
		Pattern:  regexp.MustCompile(`\bma[1l]n(\s*)\(`),
		Template: "main${1}(",
	},
}

// Mixed returns the composite-operator rules shared by the character and
// token stages.
func Mixed() Set { return mixed }

// Stream returns the stream-operator rules shared by the token and syntax
// stages.
func Stream() Set { return stream }

// Literal returns the verbatim fix-up rules of the syntax stage.
func Literal() Set { return literal }

// IsLoopRule reports whether the named rule repairs a loop header.
func IsLoopRule(name string) bool {
	switch name {
	case "loop-init", "loop-compare", "loop-increment", "loop-preincrement":
		return true
	}
	return false
}

func forGuard(line string, _ Env) bool {
	return forLineRe.MatchString(line)
}

func hasGlyph(s string) bool {
	for _, r := range s {
		if r != '<' && r != '>' {
			return true
		}
	}
	return false
}
