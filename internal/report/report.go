// Package report writes batch compile and grade results as an xlsx
// workbook for instructors to review.
package report

import (
	"fmt"
	"io"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/MrWong99/glyphfix/internal/compile"
	"github.com/MrWong99/glyphfix/internal/score"
)

// Sheet names.
const (
	ResultsSheet = "Results"
	SummarySheet = "Summary"
)

// maxDiagnostic bounds the diagnostic column.
const maxDiagnostic = 140

// Row is one file of a batch. Score is nil when the file was not graded.
type Row struct {
	Result *compile.Result
	Score  *score.Report
}

var resultHeaders = []string{
	"File", "Success", "Time (s)", "Return Code", "First Error", "Score", "Needs Review",
}

// WriteWorkbook writes rows to w as an xlsx workbook with a Results sheet
// (one line per file) and a Summary sheet (aggregate statistics).
func WriteWorkbook(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", ResultsSheet); err != nil {
		return fmt.Errorf("report: rename sheet: %w", err)
	}
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return fmt.Errorf("report: add summary sheet: %w", err)
	}

	for i, h := range resultHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(ResultsSheet, cell, h)
	}

	results := make([]*compile.Result, 0, len(rows))
	var scored int
	var scoreSum float64
	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(ResultsSheet, cell, v)
		}
		if res := r.Result; res != nil {
			results = append(results, res)
			write(1, filepath.Base(res.File))
			write(2, res.Success)
			write(3, res.Duration.Seconds())
			write(4, res.ReturnCode)
			write(5, truncate(res.FirstDiagnostic(), maxDiagnostic))
		}
		if s := r.Score; s != nil {
			write(6, s.Total)
			write(7, s.NeedsReview)
			scored++
			scoreSum += s.Total
		}
	}
	_ = f.SetColWidth(ResultsSheet, "A", "A", 28)
	_ = f.SetColWidth(ResultsSheet, "E", "E", 60)

	st := compile.Summarize(results)
	summary := [][2]any{
		{"Total Files", st.Total},
		{"Successful", st.Successful},
		{"Failed", st.Failed},
		{"Success Rate (%)", st.SuccessRate},
		{"Total Compile Time (s)", st.TotalTime.Seconds()},
		{"Average Compile Time (s)", st.AverageTime.Seconds()},
	}
	if scored > 0 {
		summary = append(summary,
			[2]any{"Graded", scored},
			[2]any{"Average Score", scoreSum / float64(scored)},
		)
	}
	for i, kv := range summary {
		a, _ := excelize.CoordinatesToCellName(1, i+1)
		b, _ := excelize.CoordinatesToCellName(2, i+1)
		_ = f.SetCellValue(SummarySheet, a, kv[0])
		_ = f.SetCellValue(SummarySheet, b, kv[1])
	}
	_ = f.SetColWidth(SummarySheet, "A", "A", 26)

	if idx, err := f.GetSheetIndex(ResultsSheet); err == nil {
		f.SetActiveSheet(idx)
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("report: write xlsx: %w", err)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
