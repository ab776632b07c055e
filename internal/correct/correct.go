// Package correct defines the OCR correction pipeline for recognised C++
// source code.
//
// Text recognised from a photographed or scanned listing is rarely
// compilable as is: look-alike glyphs replace operators and letters,
// identifiers are misspelled, and brackets or terminators go missing. The
// [Pipeline] repairs such text in four fixed stages:
//
//  1. Normalisation: decoding with a single-byte fallback, byte-order-mark
//     removal and line terminator unification.
//  2. Character correction: composite operators, known garbled words and
//     context-gated glyph substitutions ([charfix]).
//  3. Token correction: dictionary suggestions for tokens that are not valid
//     vocabulary and for misspelled header names ([tokenfix]).
//  4. Syntactic repair: bracket balancing, include delimiters, stream
//     operators, literal fix-ups and statement terminators ([syntax]).
//
// Every stage keeps the number of lines. A correction the pipeline is not
// confident about is declined rather than reported as an error; only I/O
// around the pipeline can fail.
//
// Each [Correction] records which stage and rule produced it, so callers can
// audit or display every change.
package correct

import (
	"errors"

	"github.com/MrWong99/glyphfix/internal/correct/charfix"
	"github.com/MrWong99/glyphfix/internal/correct/syntax"
	"github.com/MrWong99/glyphfix/internal/correct/tokenfix"
	"github.com/MrWong99/glyphfix/internal/source"
)

// ErrNotFound is returned by [Pipeline.CorrectFile] when the input file does
// not exist. The returned error also wraps [fs.ErrNotExist].
var ErrNotFound = errors.New("correct: input not found")

// Stage is one line-count-preserving pass of the pipeline.
//
// Implementations must be safe for concurrent use.
type Stage interface {
	// Name identifies the stage in corrections, spans and metrics.
	Name() string

	// Apply returns the corrected document and the edits it made. The
	// returned document has exactly as many lines as doc. Apply must not
	// modify doc.
	Apply(doc source.Document) (source.Document, []source.Edit)
}

// Ensure the built-in stages satisfy the Stage interface at compile time.
var (
	_ Stage = (*charfix.Corrector)(nil)
	_ Stage = (*tokenfix.Corrector)(nil)
	_ Stage = (*syntax.Repairer)(nil)
)

// Correction captures a single substitution made by the pipeline.
type Correction struct {
	// Stage is the name of the stage that made the substitution.
	Stage string `json:"stage"`

	// Line is the 1-based line number.
	Line int `json:"line"`

	// Column is the 0-based byte offset within the line as the stage saw it.
	Column int `json:"column"`

	// Original is the replaced text. Empty for pure insertions.
	Original string `json:"original"`

	// Corrected is the inserted text. Empty for pure deletions.
	Corrected string `json:"corrected"`

	// Confidence is 1 for deterministic rules and the similarity score for
	// dictionary suggestions.
	Confidence float64 `json:"confidence"`

	// Rule names the rule or heuristic that fired.
	Rule string `json:"rule"`
}

// Result is the output of a [Pipeline.Correct] call.
type Result struct {
	// Text is the corrected source text.
	Text string `json:"text"`

	// Corrections lists every substitution in the order it was applied. An
	// empty (non-nil) slice means the text needed no corrections.
	Corrections []Correction `json:"corrections"`

	// Lines is the number of '\n'-separated lines in Text.
	Lines int `json:"lines"`
}

// ByStage counts the corrections per stage name.
func (r *Result) ByStage() map[string]int {
	out := make(map[string]int)
	for _, c := range r.Corrections {
		out[c.Stage]++
	}
	return out
}

func fromEdits(stage string, edits []source.Edit) []Correction {
	out := make([]Correction, len(edits))
	for i, e := range edits {
		out[i] = Correction{
			Stage:      stage,
			Line:       e.Line,
			Column:     e.Column,
			Original:   e.Original,
			Corrected:  e.Replacement,
			Confidence: e.Confidence,
			Rule:       e.Rule,
		}
	}
	return out
}
