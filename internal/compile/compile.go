// Package compile checks corrected sources with a native C++ compiler.
//
// A [Compiler] runs one compiler process per source file under a timeout and
// reports the outcome as a [Result]. A failed compilation is a result, not an
// error: errors are reserved for a missing compiler, a missing source file or
// a cancelled context. [Batch] compiles many files concurrently and
// [Summarize] aggregates their results.
package compile

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/MrWong99/glyphfix/internal/observe"
)

// ErrCompilerNotFound is returned when the configured compiler executable
// cannot be found or started.
var ErrCompilerNotFound = errors.New("compile: compiler not found")

// TimeoutMessage is reported as stderr of a compilation that exceeded its
// timeout.
const TimeoutMessage = "compilation timed out"

// Defaults used by [New].
const (
	DefaultPath    = "g++"
	DefaultTimeout = 60 * time.Second
)

// DefaultFlags are passed before the source file when none are configured.
var DefaultFlags = []string{"-std=c++17", "-Wall", "-Wextra"}

// versionTimeout bounds the compiler --version probe.
const versionTimeout = 10 * time.Second

// Result is the outcome of compiling one source file.
type Result struct {
	File       string        `json:"file"`
	Success    bool          `json:"success"`
	Output     string        `json:"output,omitempty"`
	Command    string        `json:"command"`
	Stdout     string        `json:"stdout"`
	Stderr     string        `json:"stderr"`
	ReturnCode int           `json:"return_code"`
	Duration   time.Duration `json:"duration"`
	TimedOut   bool          `json:"timed_out,omitempty"`
}

// FirstDiagnostic returns the first non-empty line of the compiler's stderr,
// or "" when there is none.
func (r *Result) FirstDiagnostic() string {
	for line := range strings.Lines(r.Stderr) {
		if s := strings.TrimSpace(line); s != "" {
			return s
		}
	}
	return ""
}

// Log returns the diagnostics to hand to a grader: stderr followed by stdout.
func (r *Result) Log() string {
	return strings.TrimSpace(r.Stderr + "\n" + r.Stdout)
}

// Option is a functional option for configuring a [Compiler].
type Option func(*Compiler)

// WithPath sets the compiler executable. Default: [DefaultPath].
func WithPath(path string) Option {
	return func(c *Compiler) {
		if path != "" {
			c.path = path
		}
	}
}

// WithFlags sets the flags passed before the source file. Default:
// [DefaultFlags]. An empty, non-nil slice passes no flags.
func WithFlags(flags []string) Option {
	return func(c *Compiler) {
		if flags != nil {
			c.flags = slices.Clone(flags)
		}
	}
}

// WithTimeout bounds a single compilation. Default: [DefaultTimeout].
func WithTimeout(d time.Duration) Option {
	return func(c *Compiler) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithOutputDir keeps compiled binaries in dir. When unset, every
// compilation builds into a temporary directory that is removed afterwards
// and [Result.Output] is empty.
func WithOutputDir(dir string) Option {
	return func(c *Compiler) {
		c.outputDir = dir
	}
}

// WithMetrics records compile durations and outcomes to m.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Compiler) {
		c.metrics = m
	}
}

// Compiler runs a native compiler. It is safe for concurrent use.
type Compiler struct {
	path      string
	flags     []string
	timeout   time.Duration
	outputDir string
	metrics   *observe.Metrics
}

// New constructs a [Compiler] with the supplied options.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		path:    DefaultPath,
		flags:   slices.Clone(DefaultFlags),
		timeout: DefaultTimeout,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Path returns the configured compiler executable.
func (c *Compiler) Path() string { return c.path }

// Version runs the compiler with --version and returns the first line of its
// output. Returns [ErrCompilerNotFound] when the executable is missing.
func (c *Compiler) Version(ctx context.Context) (string, error) {
	bin, err := c.lookPath()
	if err != nil {
		return "", err
	}
	ctx, cancel := context.WithTimeout(ctx, versionTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, bin, "--version").Output()
	if err != nil {
		return "", fmt.Errorf("compile: %s --version: %w", c.path, err)
	}
	first, _, _ := strings.Cut(string(out), "\n")
	return strings.TrimSpace(first), nil
}

func (c *Compiler) lookPath() (string, error) {
	bin, err := exec.LookPath(c.path)
	if err != nil {
		return "", fmt.Errorf("%w: %q: %w", ErrCompilerNotFound, c.path, err)
	}
	return bin, nil
}

// Compile compiles src into a binary named after its stem.
//
// A timeout yields a result with TimedOut set and stderr [TimeoutMessage].
// An error is returned when src does not exist (wrapping [fs.ErrNotExist]),
// when the compiler is missing ([ErrCompilerNotFound]) or when ctx is done.
func (c *Compiler) Compile(ctx context.Context, src string) (*Result, error) {
	if _, err := os.Stat(src); err != nil {
		return nil, fmt.Errorf("compile: source %s: %w", src, err)
	}
	bin, err := c.lookPath()
	if err != nil {
		return nil, err
	}

	ctx, span := observe.StartSpan(ctx, "compile.Compile",
		trace.WithAttributes(attribute.String("file", src)),
	)
	defer span.End()

	outDir := c.outputDir
	if outDir == "" {
		tmp, err := os.MkdirTemp("", "glyphfix-build-")
		if err != nil {
			return nil, fmt.Errorf("compile: create build dir: %w", err)
		}
		defer os.RemoveAll(tmp)
		outDir = tmp
	} else if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("compile: create output dir: %w", err)
	}

	out := filepath.Join(outDir, outputName(src))
	args := append(slices.Clone(c.flags), src, "-o", out)

	cctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(cctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	res := &Result{
		File:    src,
		Command: strings.Join(append([]string{c.path}, args...), " "),
	}

	start := time.Now()
	runErr := cmd.Run()
	res.Duration = time.Since(start)
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()

	var exitErr *exec.ExitError
	switch {
	case ctx.Err() != nil:
		return nil, fmt.Errorf("compile: %s: %w", src, ctx.Err())
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		res.TimedOut = true
		res.ReturnCode = -1
		res.Stderr = TimeoutMessage
	case runErr == nil:
		res.Success = true
		if c.outputDir != "" {
			res.Output = out
		}
	case errors.As(runErr, &exitErr):
		res.ReturnCode = exitErr.ExitCode()
	case errors.Is(runErr, exec.ErrNotFound), errors.Is(runErr, fs.ErrNotExist):
		return nil, fmt.Errorf("%w: %q: %w", ErrCompilerNotFound, c.path, runErr)
	default:
		return nil, fmt.Errorf("compile: run %s: %w", c.path, runErr)
	}

	if c.metrics != nil {
		c.metrics.RecordCompile(ctx, res.Success, res.Duration.Seconds())
	}
	span.SetAttributes(
		attribute.Bool("success", res.Success),
		attribute.Int("return_code", res.ReturnCode),
	)
	observe.Logger(ctx).Debug("compiled",
		"file", src,
		"success", res.Success,
		"return_code", res.ReturnCode,
		"timed_out", res.TimedOut,
		"duration", res.Duration,
	)
	return res, nil
}

func outputName(src string) string {
	name := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return name
}
