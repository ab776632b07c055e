package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MrWong99/glyphfix/internal/app"
	"github.com/MrWong99/glyphfix/internal/compile"
	"github.com/MrWong99/glyphfix/internal/config"
	"github.com/MrWong99/glyphfix/internal/correct"
	"github.com/MrWong99/glyphfix/internal/grade"
	"github.com/MrWong99/glyphfix/internal/gradebook"
	"github.com/MrWong99/glyphfix/internal/gradebook/postgres"
	"github.com/MrWong99/glyphfix/internal/recognize"
	"github.com/MrWong99/glyphfix/internal/report"
	"github.com/MrWong99/glyphfix/internal/score"
	"github.com/MrWong99/glyphfix/internal/syntaxcheck"
)

// CorrectCmd corrects one recognised source file.
type CorrectCmd struct {
	In      string `arg:"" type:"existingfile" help:"Recognised source file."`
	Out     string `short:"o" type:"path" help:"Write the corrected source here instead of stdout."`
	Verbose bool   `short:"v" help:"List every correction on stderr."`
}

func (c *CorrectCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	p, err := g.pipeline(ctx, cfg)
	if err != nil {
		return err
	}

	var res *correct.Result
	if c.Out != "" {
		res, err = p.CorrectFile(ctx, c.In, c.Out)
	} else {
		var raw []byte
		if raw, err = os.ReadFile(c.In); err == nil {
			res, err = p.Correct(ctx, raw)
		}
	}
	if err != nil {
		return err
	}
	if c.Out == "" {
		fmt.Fprint(g.Stdout, res.Text)
	}
	if c.Verbose {
		for _, corr := range res.Corrections {
			fmt.Fprintf(g.Stderr, "%s:%d:%d: %s/%s %q -> %q\n",
				filepath.Base(c.In), corr.Line, corr.Column, corr.Stage, corr.Rule, corr.Original, corr.Corrected)
		}
	}
	fmt.Fprintf(g.Stderr, "%d corrections\n", len(res.Corrections))
	return nil
}

// RecognizeCmd converts a PaddleOCR result into source text.
type RecognizeCmd struct {
	In      string `arg:"" type:"existingfile" help:"PaddleOCR res.json file."`
	Out     string `short:"o" type:"path" help:"Write the source here instead of stdout."`
	Correct bool   `help:"Run the correction pipeline over the recognised text."`
}

func (c *RecognizeCmd) Run(ctx context.Context, g *Globals) error {
	lines, err := recognize.File(ctx, recognize.PaddleJSON{}, c.In)
	if err != nil {
		return err
	}
	text := lines.Source()
	if c.Correct {
		cfg, err := g.load()
		if err != nil {
			return err
		}
		p, err := g.pipeline(ctx, cfg)
		if err != nil {
			return err
		}
		res, err := p.CorrectString(ctx, text)
		if err != nil {
			return err
		}
		text = res.Text
	}
	if c.Out == "" {
		fmt.Fprint(g.Stdout, text)
		return nil
	}
	return os.WriteFile(c.Out, []byte(text), 0o644)
}

// CompileCmd compiles one file or every source under a directory.
type CompileCmd struct {
	Path    string `arg:"" type:"path" help:"Source file or directory."`
	Report  string `type:"path" help:"Write an xlsx report to this file."`
	Workers int    `help:"Concurrent compilations (default: compiler.workers)."`
}

func (c *CompileCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	files, err := sources(c.Path)
	if err != nil {
		return err
	}
	workers := c.Workers
	if workers <= 0 {
		workers = cfg.Compiler.Workers
	}

	comp := app.NewCompiler(cfg.Compiler, nil)
	results, err := comp.Batch(ctx, files, workers)
	if err != nil {
		return err
	}

	rows := make([]report.Row, len(results))
	for i, r := range results {
		rows[i] = report.Row{Result: r}
		status := "ok"
		if !r.Success {
			status = "FAIL"
		}
		fmt.Fprintf(g.Stdout, "%-4s %s (%.2fs)", status, r.File, r.Duration.Seconds())
		if d := r.FirstDiagnostic(); !r.Success && d != "" {
			fmt.Fprintf(g.Stdout, ": %s", d)
		}
		fmt.Fprintln(g.Stdout)
	}
	st := compile.Summarize(results)
	fmt.Fprintf(g.Stdout, "%d/%d compiled (%.2f%%), total %.2fs, average %.2fs\n",
		st.Successful, st.Total, st.SuccessRate, st.TotalTime.Seconds(), st.AverageTime.Seconds())

	if c.Report == "" {
		return nil
	}
	return writeReport(c.Report, rows)
}

// sources returns path itself or the sources discovered under it.
func sources(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return []string{path}, nil
	}
	files, err := compile.Discover(path)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no C++ sources under %s", path)
	}
	return files, nil
}

func writeReport(path string, rows []report.Row) error {
	var buf bytes.Buffer
	if err := report.WriteWorkbook(&buf, rows); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// GradeCmd corrects, compiles and scores one submission.
type GradeCmd struct {
	File    string   `arg:"" type:"existingfile" help:"Recognised source file."`
	Problem string   `short:"p" help:"Problem statement (default: scorer.problem)."`
	Pass    []string `help:"Names of passed test cases."`
	Fail    []string `help:"Names of failed test cases."`
}

func (c *GradeCmd) Run(ctx context.Context, g *Globals) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	p, err := g.pipeline(ctx, cfg)
	if err != nil {
		return err
	}
	src, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}

	opts := []grade.Option{
		grade.WithCompiler(app.NewCompiler(cfg.Compiler, nil)),
		grade.WithProblem(cfg.Scorer.Problem),
	}
	sc, err := scorer(cfg)
	if err != nil {
		return err
	}
	if sc != nil {
		opts = append(opts, grade.WithScorer(sc))
	}
	if dsn := cfg.Gradebook.PostgresDSN; dsn != "" {
		store, err := postgres.NewStore(ctx, dsn)
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, grade.WithStore(store))
	}

	var tests map[string]bool
	if len(c.Pass)+len(c.Fail) > 0 {
		tests = make(map[string]bool, len(c.Pass)+len(c.Fail))
		for _, name := range c.Pass {
			tests[name] = true
		}
		for _, name := range c.Fail {
			tests[name] = false
		}
	}

	out, err := grade.New(p, opts...).Grade(ctx, grade.Request{
		Source:  src,
		Problem: c.Problem,
		Tests:   tests,
	})
	if err != nil {
		return err
	}
	enc := json.NewEncoder(g.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(gradeOutput{Record: out.Record, Corrections: len(out.Corrections), Cached: out.Cached})
}

type gradeOutput struct {
	gradebook.Record
	Corrections int  `json:"corrections"`
	Cached      bool `json:"cached"`
}

// scorer builds the configured scorer, or nil when none is configured.
func scorer(cfg *config.Config) (*score.Scorer, error) {
	reg := config.NewRegistry()
	app.RegisterProviders(reg)
	p, err := app.BuildScorerLLM(cfg.Scorer, reg, nil)
	if err != nil || p == nil {
		return nil, err
	}
	return app.NewScorer(p, cfg.Scorer, nil), nil
}

// CheckCmd reports residual syntax errors.
type CheckCmd struct {
	File    string `arg:"" type:"existingfile" help:"Source file."`
	Correct bool   `help:"Check the corrected text instead of the file as is."`
}

// errSyntax is returned when the checked file has syntax issues.
var errSyntax = errors.New("syntax issues found")

func (c *CheckCmd) Run(ctx context.Context, g *Globals) error {
	src, err := os.ReadFile(c.File)
	if err != nil {
		return err
	}
	if c.Correct {
		cfg, err := g.load()
		if err != nil {
			return err
		}
		p, err := g.pipeline(ctx, cfg)
		if err != nil {
			return err
		}
		res, err := p.Correct(ctx, src)
		if err != nil {
			return err
		}
		src = []byte(res.Text)
	}

	rep, err := syntaxcheck.Check(ctx, src)
	if err != nil {
		return err
	}
	name := filepath.Base(c.File)
	for _, is := range rep.Issues {
		fmt.Fprintf(g.Stdout, "%s:%s\n", name, is)
	}
	if !rep.Clean() {
		return fmt.Errorf("%s: %d %w", name, len(rep.Issues), errSyntax)
	}
	fmt.Fprintf(g.Stdout, "%s: no syntax issues\n", name)
	return nil
}
