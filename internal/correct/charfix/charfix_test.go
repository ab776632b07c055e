package charfix_test

import (
	"testing"

	"github.com/MrWong99/glyphfix/internal/correct/charfix"
	"github.com/MrWong99/glyphfix/internal/lexicon"
	"github.com/MrWong99/glyphfix/internal/source"
)

func TestLine(t *testing.T) {
	t.Parallel()

	c := charfix.New()
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"known error word", "c0ut << x;", "cout << x;"},
		{"known error include", "#1nclude <iostream>", "#include <iostream>"},
		{"digit between letters", "ab1cd = 2;", "abicd = 2;"},
		{"digits only untouched", "x = 12345;", "x = 12345;"},
		{"trailing digit untouched", "a1 = b0;", "a1 = b0;"},
		{"letter inside number", "x = 1O0;", "x = 100;"},
		{"long suffix untouched", "x = 10l;", "x = 10l;"},
		{"lexicon member untouched", "char16_t c;", "char16_t c;"},
		{"output angle glyph", "cout 《 x;", "cout << x;"},
		{"input angle glyph", "cin 》 x;", "cin >> x;"},
		{"default angle glyph", "x 〈 y;", "x << y;"},
		{"header angle glyphs", "#include 《iostream》", "#include <iostream>"},
		{"header bracket delimiters", "#include [iostream]", "#include <iostream>"},
		{"brackets outside include", "if (a[0]) {", "if (a[0]) {"},
		{"include-like identifier", "bool included(int x) {", "bool included(int x) {"},
		{"full-width semicolon", "x = 1；", "x = 1;"},
		{"curly quotes", "cout << “hi”;", `cout << "hi";`},
		{"mixed operator", "cout <《 x;", "cout << x;"},
		{"string untouched", `s = "c0ut 《";`, `s = "c0ut 《";`},
		{"comment untouched", "x = 1; // c0ut 《", "x = 1; // c0ut 《"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got, _ := c.Line(1, tt.in); got != tt.want {
				t.Errorf("Line(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestConfidenceGateWindow(t *testing.T) {
	t.Parallel()

	// With a one-character window the letters two positions away no longer
	// count, but the flanking letters still do.
	c := charfix.New(charfix.WithDigitWindow(1))
	if got, _ := c.Line(1, "ab1cd"); got != "abicd" {
		t.Errorf("flanked digit: got %q", got)
	}
	if got, _ := c.Line(1, "9 1 9"); got != "9 1 9" {
		t.Errorf("digit among digits: got %q", got)
	}
}

func TestApplyKeepsLineCountAndRecordsEdits(t *testing.T) {
	t.Parallel()

	c := charfix.New()
	doc := source.Document{"#1nclude [iostream]", "", "int ma1n() {", "  c0ut 《 1；", "}"}
	out, edits := c.Apply(doc)
	if len(out) != len(doc) {
		t.Fatalf("line count changed: %d -> %d", len(doc), len(out))
	}
	want := source.Document{"#include <iostream>", "", "int main() {", "  cout << 1;", "}"}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i+1, out[i], want[i])
		}
	}
	if len(edits) == 0 {
		t.Fatal("expected edits")
	}
	for _, e := range edits {
		if e.Line < 1 || e.Line > len(doc) || e.Rule == "" || e.Confidence != 1 {
			t.Errorf("malformed edit %+v", e)
		}
	}
}

func TestWithLexiconProtectsCustomWords(t *testing.T) {
	t.Parallel()

	base := charfix.New()
	if got, _ := base.Line(1, "rgb2hsv(x);"); got != "rgb2hsv(x);" {
		t.Fatalf("digit 2 is not confusable, got %q", got)
	}
	custom := charfix.New(charfix.WithLexicon(lexicon.Default().With("st0re")))
	if got, _ := custom.Line(1, "st0re(x);"); got != "st0re(x);" {
		t.Errorf("custom lexicon word was rewritten: %q", got)
	}
	if got, _ := base.Line(1, "st0re(x);"); got != "store(x);" {
		t.Errorf("without custom word: got %q", got)
	}
}
