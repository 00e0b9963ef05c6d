// Command xltag fills tag-based xlsx templates from JSON or YAML data.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/javajack/xltag"
)

// ExitError is an error type that carries a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

const usage = `xltag - fill xlsx templates with JSON or YAML data.

Usage:
  xltag fill     -template t.xlsx -data d.json -out o.xlsx [-sheet S]... [-config c.yaml]
  xltag describe -template t.xlsx [-sheet S]...
  xltag validate -template t.xlsx [-sheet S]...

Run "xltag <command> -h" for the options of a command.
`

// run dispatches the subcommand. Output goes to outW, diagnostics to errW.
func run(ctx context.Context, outW, errW io.Writer, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(outW, usage)
		return &ExitError{Code: 2, Message: "missing command"}
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "fill", "describe", "validate":
	case "-h", "--help", "help":
		fmt.Fprint(outW, usage)
		return nil
	default:
		return &ExitError{Code: 2, Message: fmt.Sprintf("unknown command %q", cmd)}
	}

	cfg, done, err := parseFlags(cmd, rest, outW)
	if err != nil || done {
		return err
	}

	logger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	opts := []xltag.Option{
		xltag.WithTemplate(cfg.Template),
		xltag.WithSheets(cfg.Sheets...),
		xltag.WithLogger(logger),
		xltag.WithImageTimeout(cfg.ImageTimeout),
		xltag.WithMaxImageBytes(cfg.MaxImageBytes),
		xltag.WithMaxScopeDepth(cfg.MaxScopeDepth),
		xltag.WithRecalculateOnOpen(cfg.RecalculateOnOpen),
	}
	t := xltag.NewTemplater(opts...)

	switch cmd {
	case "describe":
		out, err := t.Describe()
		if err != nil {
			return err
		}
		fmt.Fprint(outW, out)
		return nil

	case "validate":
		issues, err := t.Validate()
		if err != nil {
			return err
		}
		failed := false
		for _, issue := range issues {
			fmt.Fprintln(outW, issue)
			if issue.Severity == xltag.SeverityError {
				failed = true
			}
		}
		if failed {
			return &ExitError{Code: 1, Message: fmt.Sprintf("%d issue(s) found", len(issues))}
		}
		return nil

	default:
		data, err := LoadData(cfg.Data)
		if err != nil {
			return err
		}
		if err := t.Fill(ctx, data, cfg.Output); err != nil {
			return err
		}
		logger.Info("template filled", "template", cfg.Template, "output", cfg.Output)
		return nil
	}
}

// sheetList collects repeated -sheet flags.
type sheetList []string

func (s *sheetList) String() string     { return strings.Join(*s, ",") }
func (s *sheetList) Set(v string) error { *s = append(*s, v); return nil }

// parseFlags builds the Config for cmd: config file first, then explicitly set flags.
func parseFlags(cmd string, args []string, output io.Writer) (*Config, bool, error) {
	flagSet := flag.NewFlagSet("xltag "+cmd, flag.ContinueOnError)
	flagSet.SetOutput(output)

	configFlag := flagSet.String("config", "", "Path to a YAML config file.")
	templateFlag := flagSet.String("template", "", "Path to the xlsx template.")
	dataFlag := flagSet.String("data", "", "Path to the JSON or YAML data file.")
	outFlag := flagSet.String("out", "", "Path of the xlsx file to write.")
	var sheets sheetList
	flagSet.Var(&sheets, "sheet", "Sheet to render (repeatable, default: first sheet).")
	timeoutFlag := flagSet.Duration("image-timeout", 0, "Timeout for each image download.")
	depthFlag := flagSet.Int("max-scope-depth", 0, "Maximum nesting of {@name} scopes.")
	recalcFlag := flagSet.Bool("recalc", true, "Ask Excel to recalculate formulas on open.")
	logFormatFlag := flagSet.String("log-format", "", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	cfg, err := LoadConfig(*configFlag)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "template":
			cfg.Template = *templateFlag
		case "data":
			cfg.Data = *dataFlag
		case "out":
			cfg.Output = *outFlag
		case "sheet":
			cfg.Sheets = sheets
		case "image-timeout":
			cfg.ImageTimeout = *timeoutFlag
		case "max-scope-depth":
			cfg.MaxScopeDepth = *depthFlag
		case "recalc":
			cfg.RecalculateOnOpen = *recalcFlag
		case "log-format":
			cfg.LogFormat = strings.ToLower(*logFormatFlag)
		case "log-level":
			cfg.LogLevel = strings.ToLower(*logLevelFlag)
		}
	})

	validateFn := cfg.Validate
	if cmd != "fill" {
		validateFn = cfg.ValidateTemplateOnly
	}
	if err := validateFn(); err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	return cfg, false, nil
}

// newLogger creates a slog.Logger writing text or JSON at the given level.
func newLogger(levelStr, formatStr string, outW io.Writer) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if formatStr == "json" {
		handler = slog.NewJSONHandler(outW, handlerOpts)
	} else {
		handler = slog.NewTextHandler(outW, handlerOpts)
	}
	return slog.New(handler)
}
