package lexicon_test

import (
	"slices"
	"testing"

	"github.com/MrWong99/glyphfix/internal/lexicon"
)

func TestDefaultPartitions(t *testing.T) {
	t.Parallel()

	lex := lexicon.Default()
	if !lex.IsKeyword("while") || lex.IsKeyword("cout") {
		t.Error("keyword partition mismatch")
	}
	if !lex.IsLibrary("cout") || !lex.IsHeader("iostream") || !lex.IsHeader("bits/stdc++.h") {
		t.Error("library/header partition mismatch")
	}
	if lex.Contains("c0ut") {
		t.Error("garbled word must not be a member")
	}
	if !slices.IsSorted(lex.Words()) || !slices.IsSorted(lex.Headers()) {
		t.Error("Words and Headers must be sorted")
	}
	if slices.Contains(lex.Headers(), "stdio.h") {
		t.Error("Headers must only list identifier-syntax names")
	}
	if lexicon.Default() != lex {
		t.Error("Default must return a shared instance")
	}
}

func TestWithDoesNotMutate(t *testing.T) {
	t.Parallel()

	base := lexicon.Default()
	ext := base.With("Stack", "push_item", "not-an-ident")
	if base.Contains("Stack") {
		t.Error("With modified the receiver")
	}
	if !ext.IsLibrary("Stack") || !ext.IsLibrary("push_item") {
		t.Error("With did not add identifiers")
	}
	if ext.Contains("not-an-ident") {
		t.Error("With accepted a non-identifier")
	}
	if ext.Len() != base.Len()+2 {
		t.Errorf("Len = %d, want %d", ext.Len(), base.Len()+2)
	}
}

func TestKnownError(t *testing.T) {
	t.Parallel()

	lex := lexicon.Default()
	tests := []struct {
		unit string
		want string
		ok   bool
	}{
		{"1nclude", "include", true},
		{"c0ut", "cout", true},
		{"retrn", "return", true},
		{"wh1le", "while", true},
		{"5td", "std", true},      // generated
		{"vect0r", "vector", true}, // curated and generated agree
		{"10stream", "iostream", true},
		{"cout", "", false},
		{"d0", "", false}, // two-letter words are not varied
		{"123", "", false},
	}
	for _, tt := range tests {
		got, ok := lex.KnownError(tt.unit)
		if ok != tt.ok || got != tt.want {
			t.Errorf("KnownError(%q) = %q, %v; want %q, %v", tt.unit, got, ok, tt.want, tt.ok)
		}
	}
}

func TestConfusable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		r     rune
		want  string
		class lexicon.Class
	}{
		{'《', "<", lexicon.Angle},
		{'〉', ">", lexicon.Angle},
		{'1', "i", lexicon.DigitToLetter},
		{'O', "0", lexicon.LetterToDigit},
		{'{', "<", lexicon.Delimiter},
		{'；', ";", lexicon.Width},
		{'（', "(", lexicon.Width},
		{'“', `"`, lexicon.Width},
	}
	for _, tt := range tests {
		c, ok := lexicon.Confusable(tt.r)
		if !ok || c.Replacement != tt.want || c.Class != tt.class {
			t.Errorf("Confusable(%q) = %+v, %v; want %q class %d", tt.r, c, ok, tt.want, tt.class)
		}
	}
	if _, ok := lexicon.Confusable(':'); ok {
		t.Error("ASCII colon must not be confusable")
	}
	if _, ok := lexicon.Confusable('a'); ok {
		t.Error("plain letters must not be confusable")
	}
}

func TestStreamDirection(t *testing.T) {
	t.Parallel()

	if lexicon.StreamDirection("cin") != lexicon.Input {
		t.Error("cin should be an input stream")
	}
	if lexicon.StreamDirection("cerr") != lexicon.Output || lexicon.StreamDirection("endl") != lexicon.Output {
		t.Error("cerr/endl should be output streams")
	}
	if lexicon.StreamDirection("x") != lexicon.NoStream {
		t.Error("x is not a stream")
	}
}
