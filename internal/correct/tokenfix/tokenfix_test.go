package tokenfix_test

import (
	"testing"

	"github.com/MrWong99/glyphfix/internal/correct/tokenfix"
	"github.com/MrWong99/glyphfix/internal/source"
)

func TestLine(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "valid line untouched", in: "int x = 0;", want: "int x = 0;"},
		{name: "digit-leading keyword", in: "1nt x = 0;", want: "int x = 0;"},
		{name: "homoglyph identifier", in: "  cоut << x;", want: "  cout << x;"},
		{name: "misspelled header", in: "#include <iostrem>", want: "#include <iostream>"},
		{name: "truncated header", in: "#include <vectr>", want: "#include <vector>"},
		{name: "standard header untouched", in: "#include <iostream>", want: "#include <iostream>"},
		{name: "path header untouched", in: "#include <bits/stdc++.h>", want: "#include <bits/stdc++.h>"},
		{name: "user header untouched", in: `#include "board.h"`, want: `#include "board.h"`},
		{name: "hex literal", in: "x = 0x1F;", want: "x = 0x1F;"},
		{name: "suffixed literal", in: "y = 10ULL;", want: "y = 10ULL;"},
		{name: "exponent literal", in: "z = 1e5;", want: "z = 1e5;"},
		{name: "string literal untouched", in: `s = "1nt";`, want: `s = "1nt";`},
		{name: "comment untouched", in: "x = 1; // 1nt", want: "x = 1; // 1nt"},
		{name: "single character untouched", in: "ф = 1;", want: "ф = 1;"},
		{name: "unknown token without close match", in: "9zq = 1;", want: "9zq = 1;"},
		{name: "stream operator completed", in: `cout< "hi";`, want: `cout<< "hi";`},
		{name: "input operator truncated", in: "cin>>> x;", want: "cin>> x;"},
		{name: "mixed glyph run", in: "cout 《〉 x;", want: "cout << x;"},
	}

	c := tokenfix.New()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, _ := c.Line(1, tt.in)
			if got != tt.want {
				t.Errorf("Line(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestSplicePolicy(t *testing.T) {
	t.Parallel()

	// The Cyrillic "о" keeps the token out of identifier syntax; the best
	// suggestion "cout" is one character shorter than the token.
	const in = "cоutt << x;"

	replaced, _ := tokenfix.New().Line(1, in)
	if want := "cout << x;"; replaced != want {
		t.Errorf("replace: got %q, want %q", replaced, want)
	}

	overlaid, _ := tokenfix.New(tokenfix.WithSplicePolicy(tokenfix.Overlay)).Line(1, in)
	if want := "coutt << x;"; overlaid != want {
		t.Errorf("overlay: got %q, want %q", overlaid, want)
	}
}

func TestParseSplicePolicy(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]tokenfix.SplicePolicy{
		"":        tokenfix.Replace,
		"replace": tokenfix.Replace,
		"overlay": tokenfix.Overlay,
	} {
		got, ok := tokenfix.ParseSplicePolicy(in)
		if !ok || got != want {
			t.Errorf("ParseSplicePolicy(%q) = %v, %v; want %v, true", in, got, ok, want)
		}
		if ok && got.String() != want.String() {
			t.Errorf("String mismatch for %q", in)
		}
	}
	if _, ok := tokenfix.ParseSplicePolicy("merge"); ok {
		t.Error("ParseSplicePolicy(merge) reported ok")
	}
}

func TestThresholdGatesSuggestion(t *testing.T) {
	t.Parallel()

	strict := tokenfix.New(tokenfix.WithTokenThreshold(0.9))
	if got, _ := strict.Line(1, "1nt x = 0;"); got != "1nt x = 0;" {
		t.Errorf("strict threshold rewrote line to %q", got)
	}
}

func TestSuggestRanksBestFirst(t *testing.T) {
	t.Parallel()

	c := tokenfix.New()
	cands := c.Suggest("1nt")
	if len(cands) == 0 {
		t.Fatal("no candidates")
	}
	if cands[0].Word != "int" {
		t.Errorf("best candidate = %q, want int", cands[0].Word)
	}
	for i := 1; i < len(cands); i++ {
		if cands[i].Score > cands[i-1].Score {
			t.Fatalf("candidates not sorted at %d: %v > %v", i, cands[i].Score, cands[i-1].Score)
		}
	}

	h := c.SuggestHeader("iostrem")
	if len(h) == 0 || h[0].Word != "iostream" || h[0].Score != 1 {
		t.Errorf("SuggestHeader(iostrem) best = %+v, want iostream with clamped score 1", h)
	}
}

func TestApplyRecordsConfidence(t *testing.T) {
	t.Parallel()

	doc := source.Document{"#include <iostrem>", "", "1nt main() {", "}"}
	out, edits := tokenfix.New().Apply(doc)
	if len(out) != len(doc) {
		t.Fatalf("line count %d, want %d", len(out), len(doc))
	}
	if out[0] != "#include <iostream>" || out[2] != "int main() {" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(edits) != 2 {
		t.Fatalf("got %d edits, want 2: %+v", len(edits), edits)
	}
	for _, e := range edits {
		if e.Confidence <= 0.7 || e.Confidence > 1 {
			t.Errorf("edit %+v has confidence outside (0.7, 1]", e)
		}
	}
	if edits[1].Line != 3 || edits[1].Column != 0 || edits[1].Original != "1nt" {
		t.Errorf("unexpected edit position %+v", edits[1])
	}
}
