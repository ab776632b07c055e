// Package source models a recognised source transcript as an ordered list of
// lines and provides the lexical helpers shared by every correction stage:
// protected-span detection, comment location and a small tokenizer.
//
// All offsets in this package are byte offsets into a single line. The
// scanners only ever branch on ASCII bytes, so byte offsets always fall on
// UTF-8 rune boundaries.
package source

import "strings"

// Document is an ordered sequence of lines. Line order is significant and is
// never changed by any stage; stages only rewrite line content.
type Document []string

// Split breaks text into lines on '\n'. Line terminators must already be
// normalised. A trailing newline yields a final empty line so that
// [Document.String] reproduces the input exactly.
func Split(text string) Document {
	return Document(strings.Split(text, "\n"))
}

// String joins the lines back into text with '\n' separators.
func (d Document) String() string {
	return strings.Join(d, "\n")
}

// Clone returns a copy of d that shares no backing array with it.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	copy(out, d)
	return out
}

// Edit records a single substitution made by a stage. Line is 1-based, Column
// is the 0-based byte offset of the edit within the line as it was before the
// stage rewrote it.
type Edit struct {
	Line        int
	Column      int
	Original    string
	Replacement string

	// Confidence is 1 for deterministic rules and the similarity score for
	// dictionary suggestions.
	Confidence float64

	// Rule names the rule or heuristic that produced the edit.
	Rule string
}
