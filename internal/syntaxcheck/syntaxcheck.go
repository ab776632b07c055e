// Package syntaxcheck reports the syntax errors left in a corrected C++
// source. It parses with tree-sitter, which recovers from errors and marks
// them in the tree, so every residual problem is listed in one pass without
// a compiler installed.
package syntaxcheck

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

// Issue kinds.
const (
	KindError   = "error"
	KindMissing = "missing"
)

// maxSnippet bounds Issue.Text in bytes.
const maxSnippet = 40

// Issue is one syntax problem.
type Issue struct {
	// Line is 1-based, Column a 0-based byte offset.
	Line   int    `json:"line"`
	Column int    `json:"column"`
	Kind   string `json:"kind"`

	// Node is the expected token for a missing node, or the grammar symbol
	// tree-sitter could not complete.
	Node string `json:"node,omitempty"`

	// Text is the start of the unparseable source.
	Text string `json:"text,omitempty"`
}

func (i Issue) String() string {
	if i.Kind == KindMissing {
		return fmt.Sprintf("%d:%d: missing %q", i.Line, i.Column, i.Node)
	}
	return fmt.Sprintf("%d:%d: syntax error near %q", i.Line, i.Column, i.Text)
}

// Report lists the issues in source order.
type Report struct {
	Issues []Issue `json:"issues"`
}

// Clean reports whether no issues were found.
func (r Report) Clean() bool { return len(r.Issues) == 0 }

// Check parses src as C++ and collects ERROR and MISSING nodes.
func Check(ctx context.Context, src []byte) (Report, error) {
	rep := Report{Issues: []Issue{}}
	if len(src) == 0 {
		return rep, nil
	}

	parser := sitter.NewParser()
	parser.SetLanguage(cpp.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return rep, fmt.Errorf("syntaxcheck: parse: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if !root.HasError() {
		return rep, nil
	}
	collect(root, src, &rep.Issues)
	return rep, nil
}

func collect(n *sitter.Node, src []byte, out *[]Issue) {
	switch {
	case n.IsMissing():
		p := n.StartPoint()
		*out = append(*out, Issue{
			Line:   int(p.Row) + 1,
			Column: int(p.Column),
			Kind:   KindMissing,
			Node:   n.Type(),
		})
		return
	case n.IsError():
		p := n.StartPoint()
		*out = append(*out, Issue{
			Line:   int(p.Row) + 1,
			Column: int(p.Column),
			Kind:   KindError,
			Text:   snippet(n.Content(src)),
		})
		return
	case !n.HasError():
		return
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		collect(n.Child(i), src, out)
	}
}

// snippet returns the first line of s, cut to maxSnippet bytes on a rune
// boundary.
func snippet(s string) string {
	s, _, _ = strings.Cut(s, "\n")
	s = strings.TrimSpace(s)
	if len(s) <= maxSnippet {
		return s
	}
	cut := maxSnippet
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
