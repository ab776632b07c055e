package grade_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/MrWong99/glyphfix/internal/compile"
	"github.com/MrWong99/glyphfix/internal/correct"
	"github.com/MrWong99/glyphfix/internal/grade"
	"github.com/MrWong99/glyphfix/internal/gradebook"
	"github.com/MrWong99/glyphfix/internal/score"
)

const program = "#include <iostream>\nint main() { return 0; }\n"

// verbatim returns its input unchanged.
type verbatim struct{}

func (verbatim) Correct(_ context.Context, raw []byte) (*correct.Result, error) {
	return &correct.Result{Text: string(raw), Corrections: []correct.Correction{}, Lines: 3}, nil
}

type fakeCompiler struct {
	mu     sync.Mutex
	calls  int
	seen   string
	result *compile.Result
	err    error
}

func (f *fakeCompiler) Compile(_ context.Context, src string) (*compile.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	data, err := os.ReadFile(src)
	if err != nil {
		return nil, err
	}
	f.seen = string(data)
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	r.File = src
	return &r, nil
}

type fakeScorer struct {
	mu   sync.Mutex
	subs []score.Submission
	rep  *score.Report
	err  error
}

func (f *fakeScorer) Score(_ context.Context, sub score.Submission) (*score.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs = append(f.subs, sub)
	return f.rep, f.err
}

func TestGrade(t *testing.T) {
	t.Parallel()

	comp := &fakeCompiler{result: &compile.Result{Success: true, Output: "/tmp/x/submission"}}
	sc := &fakeScorer{rep: &score.Report{Total: 88, Confidence: 0.9}}
	store := gradebook.NewMemStore()
	g := grade.New(verbatim{},
		grade.WithCompiler(comp),
		grade.WithScorer(sc),
		grade.WithStore(store),
	)

	ctx := context.Background()
	out, err := g.Grade(ctx, grade.Request{
		Source:  []byte(program),
		Problem: "print nothing",
		Tests:   map[string]bool{"t1": true},
	})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	if out.Cached {
		t.Error("first grade reported as cached")
	}
	if comp.seen != program {
		t.Errorf("compiler saw %q", comp.seen)
	}

	rec := out.Record
	if rec.Compile == nil || rec.Compile.File != "submission.cpp" || rec.Compile.Output != "" {
		t.Errorf("compile result = %+v, want scratch paths stripped", rec.Compile)
	}
	if rec.Score == nil || rec.Score.Total != 88 {
		t.Errorf("score = %+v", rec.Score)
	}
	if rec.Digest != gradebook.Digest("print nothing", program) {
		t.Error("digest does not cover problem and corrected source")
	}

	if len(sc.subs) != 1 {
		t.Fatalf("scorer calls = %d", len(sc.subs))
	}
	sub := sc.subs[0]
	if sub.CompileLog != "" || sub.Problem != "print nothing" || !sub.Tests["t1"] {
		t.Errorf("submission = %+v", sub)
	}

	got, err := store.Get(ctx, rec.ID)
	if err != nil {
		t.Fatalf("record not stored: %v", err)
	}
	if got.Score.Total != 88 {
		t.Errorf("stored total = %v", got.Score.Total)
	}
}

func TestGrade_DuplicateIsServedFromStore(t *testing.T) {
	t.Parallel()

	comp := &fakeCompiler{result: &compile.Result{Success: true}}
	sc := &fakeScorer{rep: &score.Report{Total: 50, Confidence: 0.9}}
	g := grade.New(verbatim{}, grade.WithCompiler(comp), grade.WithScorer(sc))

	ctx := context.Background()
	first, err := g.Grade(ctx, grade.Request{Source: []byte(program), Problem: "p"})
	if err != nil {
		t.Fatal(err)
	}
	second, err := g.Grade(ctx, grade.Request{Source: []byte(program), Problem: "p"})
	if err != nil {
		t.Fatal(err)
	}
	if !second.Cached || second.Record.ID != first.Record.ID {
		t.Errorf("second grade = cached %v id %v, want cached %v", second.Cached, second.Record.ID, first.Record.ID)
	}
	if comp.calls != 1 || len(sc.subs) != 1 {
		t.Errorf("compiler calls = %d, scorer calls = %d, want 1 each", comp.calls, len(sc.subs))
	}

	other, err := g.Grade(ctx, grade.Request{Source: []byte(program), Problem: "another problem"})
	if err != nil {
		t.Fatal(err)
	}
	if other.Cached {
		t.Error("same source for a different problem was served from the store")
	}
}

func TestGrade_CompileFailureFeedsScorer(t *testing.T) {
	t.Parallel()

	comp := &fakeCompiler{result: &compile.Result{
		ReturnCode: 1,
		Stderr:     "submission.cpp:2:5: error: expected ';'",
	}}
	sc := &fakeScorer{rep: &score.Report{Total: 10, Confidence: 0.9}}
	g := grade.New(verbatim{}, grade.WithCompiler(comp), grade.WithScorer(sc))

	out, err := g.Grade(context.Background(), grade.Request{Source: []byte(program)})
	if err != nil {
		t.Fatal(err)
	}
	if out.Record.Compile.Success {
		t.Error("compile result reported success")
	}
	if got := sc.subs[0].CompileLog; got != "submission.cpp:2:5: error: expected ';'" {
		t.Errorf("CompileLog = %q", got)
	}
}

func TestGrade_WithoutCompiler(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name string
		comp grade.Compiler
	}{
		{"not configured", nil},
		{"not installed", &fakeCompiler{err: compile.ErrCompilerNotFound}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			sc := &fakeScorer{rep: &score.Report{Confidence: 0.9}}
			opts := []grade.Option{grade.WithScorer(sc)}
			if tc.comp != nil {
				opts = append(opts, grade.WithCompiler(tc.comp))
			}
			out, err := grade.New(verbatim{}, opts...).Grade(context.Background(),
				grade.Request{Source: []byte(program)})
			if err != nil {
				t.Fatal(err)
			}
			if out.Record.Compile != nil {
				t.Errorf("Compile = %+v, want nil", out.Record.Compile)
			}
			if got := sc.subs[0].CompileLog; got != "" {
				t.Errorf("clean source produced compile log %q", got)
			}
		})
	}
}

func TestGrade_CompilerError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	g := grade.New(verbatim{}, grade.WithCompiler(&fakeCompiler{err: boom}))
	_, err := g.Grade(context.Background(), grade.Request{Source: []byte(program)})
	if !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapping boom", err)
	}
}

func TestGrade_ScorerFailureIsStored(t *testing.T) {
	t.Parallel()

	sc := &fakeScorer{err: errors.New("provider down")}
	store := gradebook.NewMemStore()
	g := grade.New(verbatim{}, grade.WithScorer(sc), grade.WithStore(store))

	out, err := g.Grade(context.Background(), grade.Request{Source: []byte(program)})
	if err != nil {
		t.Fatalf("Grade: %v", err)
	}
	rep := out.Record.Score
	if rep == nil || !rep.Degraded || !rep.NeedsReview {
		t.Errorf("score = %+v, want a degraded report flagged for review", rep)
	}
	if recent, _ := store.Recent(context.Background(), 0); len(recent) != 1 {
		t.Errorf("stored %d records, want 1", len(recent))
	}
}

func TestGrade_DefaultProblem(t *testing.T) {
	t.Parallel()

	sc := &fakeScorer{rep: &score.Report{Confidence: 0.9}}
	g := grade.New(verbatim{}, grade.WithScorer(sc), grade.WithProblem("implement a stack"))

	out, err := g.Grade(context.Background(), grade.Request{Source: []byte(program)})
	if err != nil {
		t.Fatal(err)
	}
	if out.Record.Problem != "implement a stack" || sc.subs[0].Problem != "implement a stack" {
		t.Errorf("problem = %q / %q", out.Record.Problem, sc.subs[0].Problem)
	}
}

func TestGrade_EmptySubmission(t *testing.T) {
	t.Parallel()

	g := grade.New(verbatim{})
	for _, src := range []string{"", "  \n\t"} {
		if _, err := g.Grade(context.Background(), grade.Request{Source: []byte(src)}); !errors.Is(err, grade.ErrEmptySubmission) {
			t.Errorf("Grade(%q) err = %v, want ErrEmptySubmission", src, err)
		}
	}
}

func TestGrade_NoScorer(t *testing.T) {
	t.Parallel()

	out, err := grade.New(verbatim{}).Grade(context.Background(), grade.Request{Source: []byte(program)})
	if err != nil {
		t.Fatal(err)
	}
	if out.Record.Score != nil {
		t.Errorf("Score = %+v, want nil without a scorer", out.Record.Score)
	}
}
