// Package recognize reads the output of an upstream OCR engine into source
// lines. Recognition itself happens outside glyphfix; this package is the
// boundary where recognised text enters the correction pipeline.
package recognize

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Lines are the recognised text lines of one page, top to bottom.
type Lines []string

// Source joins the lines into a document with one trailing newline per
// line. An empty Lines yields "".
func (l Lines) Source() string {
	var sb strings.Builder
	for _, line := range l {
		sb.WriteString(line)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// Recognizer turns OCR output into lines.
type Recognizer interface {
	Recognize(ctx context.Context, r io.Reader) (Lines, error)
}

// PaddleJSON reads the res.json written by PaddleOCR and returns its
// rec_texts array.
type PaddleJSON struct {
	// Logger receives warnings. Default: slog.Default().
	Logger *slog.Logger
}

var _ Recognizer = PaddleJSON{}

type paddleResult struct {
	RecTexts  *[]string `json:"rec_texts"`
	RecScores []float64 `json:"rec_scores"`
}

// Recognize decodes a PaddleOCR result. A document without rec_texts yields
// empty Lines and a warning; malformed JSON is an error.
func (p PaddleJSON) Recognize(ctx context.Context, r io.Reader) (Lines, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	var res paddleResult
	if err := json.NewDecoder(r).Decode(&res); err != nil {
		return nil, fmt.Errorf("recognize: decode paddle result: %w", err)
	}
	log := p.Logger
	if log == nil {
		log = slog.Default()
	}
	if res.RecTexts == nil {
		log.WarnContext(ctx, "paddle result has no rec_texts, returning an empty document")
		return Lines{}, nil
	}
	if n := len(res.RecScores); n > 0 && n != len(*res.RecTexts) {
		log.DebugContext(ctx, "rec_scores length differs from rec_texts",
			"texts", len(*res.RecTexts), "scores", n)
	}
	return Lines(*res.RecTexts), nil
}

// File opens path and runs rec over it.
func File(ctx context.Context, rec Recognizer, path string) (Lines, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	defer f.Close()
	return rec.Recognize(ctx, f)
}
