// Command glyphfixctl corrects, compiles, checks and grades recognised C++
// sources from the command line.
package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/redis/go-redis/v9"

	"github.com/MrWong99/glyphfix/internal/app"
	"github.com/MrWong99/glyphfix/internal/config"
	"github.com/MrWong99/glyphfix/internal/correct"
	"github.com/MrWong99/glyphfix/internal/customdict"
)

// Globals are the flags shared by every command.
type Globals struct {
	Config   string `short:"c" type:"path" help:"YAML configuration supplying correction, compiler and scorer settings."`
	LogLevel string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log verbosity (${enum})."`

	Stdout io.Writer `kong:"-"`
	Stderr io.Writer `kong:"-"`
}

// CLI defines the command-line interface of glyphfixctl.
type CLI struct {
	Globals

	Correct   CorrectCmd   `cmd:"" help:"Correct a recognised source file"`
	Recognize RecognizeCmd `cmd:"" help:"Convert a PaddleOCR result to source text"`
	Compile   CompileCmd   `cmd:"" help:"Compile a source file or every source in a directory"`
	Grade     GradeCmd     `cmd:"" help:"Correct, compile and score a submission"`
	Check     CheckCmd     `cmd:"" help:"Report residual syntax errors"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cli := CLI{Globals: Globals{Stdout: os.Stdout, Stderr: os.Stderr}}
	k := kong.Parse(&cli,
		kong.Name("glyphfixctl"),
		kong.Description("OCR correction and grading for handwritten or printed C++ listings"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{Compact: true}),
		kong.Bind(&cli.Globals),
		kong.BindTo(ctx, (*context.Context)(nil)),
	)
	slog.SetDefault(newLogger(config.LogLevel(cli.LogLevel), cli.Stderr))

	err := k.Run()
	stop()
	k.FatalIfErrorf(err)
}

// load returns the configuration named by --config, or the defaults.
func (g *Globals) load() (*config.Config, error) {
	if g.Config == "" {
		cfg := &config.Config{}
		config.ApplyDefaults(cfg)
		return cfg, nil
	}
	return config.Load(g.Config)
}

// pipeline builds the correction pipeline described by cfg, including the
// custom dictionary when one is configured.
func (g *Globals) pipeline(ctx context.Context, cfg *config.Config) (*correct.Pipeline, error) {
	lex := app.Lexicon(cfg.Correction)
	if addr := cfg.Dictionary.RedisAddr; addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: cfg.Dictionary.RedisPassword,
			DB:       cfg.Dictionary.RedisDB,
		})
		defer client.Close()
		var err error
		lex, err = customdict.Extend(ctx, customdict.NewRedis(client, cfg.Dictionary.Key), lex)
		if err != nil {
			return nil, err
		}
	}
	return correct.NewPipeline(
		correct.WithLexicon(lex),
		correct.WithTuning(app.Tuning(cfg.Correction)),
	), nil
}

func newLogger(level config.LogLevel, w io.Writer) *slog.Logger {
	var lvl slog.Level
	switch level {
	case config.LogDebug:
		lvl = slog.LevelDebug
	case config.LogInfo:
		lvl = slog.LevelInfo
	case config.LogError:
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}
