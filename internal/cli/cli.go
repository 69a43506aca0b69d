package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vk/bndl/internal/app"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

const buildUsage = `
bndl - A monorepo-aware TypeScript build tool.

Usage:
  bndl [options] [INPUT]
  bndl convert [options] [TSCONFIG]

Arguments:
  INPUT
    File or directory to compile, relative to the current directory. Defaults to ".".

Options:
`

const convertUsage = `
bndl convert - Print the compiler options derived from a tsconfig.json.

Usage:
  bndl convert [options] [TSCONFIG]

Options:
`

// sharedFlags are accepted by every command.
type sharedFlags struct {
	project   string
	outDir    string
	minify    bool
	logLevel  string
	logFormat string
	settings  string
}

func (s *sharedFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&s.project, "project", "", "Path to the project config file. Defaults to tsconfig.json.")
	fs.StringVar(&s.project, "p", "", "Path to the project config file (shorthand).")
	fs.StringVar(&s.outDir, "outDir", "", "Specify an output folder for all emitted files.")
	fs.BoolVar(&s.minify, "minify", false, "Minify the output.")
	fs.BoolVar(&s.minify, "m", false, "Minify the output (shorthand).")
	fs.StringVar(&s.logLevel, "log-level", "", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	fs.StringVar(&s.logFormat, "log-format", "", "Log output format. Options: 'text' or 'json'.")
	fs.StringVar(&s.settings, "settings", "bndl.hcl", "Path to the bndl settings file.")
}

func (s *sharedFlags) validate() error {
	s.logFormat = strings.ToLower(s.logFormat)
	switch s.logFormat {
	case "", "text", "json":
	default:
		return &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	s.logLevel = strings.ToLower(s.logLevel)
	switch s.logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}
	return nil
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	if len(args) > 0 && args[0] == app.CommandConvert {
		return parseConvert(args[1:], output)
	}

	flagSet := newFlagSet("bndl", buildUsage, output)
	var shared sharedFlags
	shared.register(flagSet)
	clean := flagSet.Bool("clean", false, "Clean the output folder before building.")
	noBundle := flagSet.Bool("no-bundle", false, "Disable bundling of internal monorepo dependencies.")
	onlyBundle := flagSet.Bool("only-bundle", false, "Skip compilation and only bundle internal dependencies.")
	var watch bool
	flagSet.BoolVar(&watch, "watch", false, "Watch the input for changes and recompile.")
	flagSet.BoolVar(&watch, "w", false, "Watch the input for changes and recompile (shorthand).")
	exec := flagSet.String("exec", "", "Command to run, and restart after every rebuild, in watch mode.")
	workers := flagSet.Int("workers", 0, "Number of concurrent compile workers. 0 uses one per CPU.")
	publish := flagSet.Bool("publish", false, "Upload the output folder to S3-compatible storage after the build.")
	notifyURL := flagSet.String("notify-url", "", "socket.io server notified after every rebuild in watch mode.")
	healthPort := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server in watch mode. 0 is disabled.")

	if len(args) == 0 {
		slog.Debug("No arguments provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	positional, err := parseInterleaved(flagSet, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if len(positional) > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected at most one input path, got %d", len(positional))}
	}
	if err := shared.validate(); err != nil {
		return nil, false, err
	}
	slog.Debug("Arguments parsed successfully.", "positional", positional)

	cfg := app.Config{
		Command:         app.CommandBuild,
		Project:         shared.project,
		OutDir:          shared.outDir,
		SettingsPath:    shared.settings,
		Minify:          shared.minify,
		LogLevel:        shared.logLevel,
		LogFormat:       shared.logFormat,
		Clean:           *clean,
		NoBundle:        *noBundle,
		OnlyBundle:      *onlyBundle,
		Watch:           watch,
		Publish:         *publish,
		Exec:            *exec,
		NotifyURL:       *notifyURL,
		Workers:         *workers,
		HealthcheckPort: *healthPort,
	}
	if len(positional) == 1 {
		cfg.Input = positional[0]
	}
	return finish(cfg)
}

func parseConvert(args []string, output io.Writer) (*app.Config, bool, error) {
	flagSet := newFlagSet("bndl convert", convertUsage, output)
	var shared sharedFlags
	shared.register(flagSet)
	var save bool
	flagSet.BoolVar(&save, "save", false, "Save the options to "+app.ConvertFile+" instead of printing them.")
	flagSet.BoolVar(&save, "s", false, "Save the options (shorthand).")

	positional, err := parseInterleaved(flagSet, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if len(positional) > 1 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("expected at most one tsconfig path, got %d", len(positional))}
	}
	if err := shared.validate(); err != nil {
		return nil, false, err
	}

	cfg := app.Config{
		Command:      app.CommandConvert,
		Project:      shared.project,
		OutDir:       shared.outDir,
		SettingsPath: shared.settings,
		Minify:       shared.minify,
		LogLevel:     shared.logLevel,
		LogFormat:    shared.logFormat,
		Save:         save,
	}
	if len(positional) == 1 && cfg.Project == "" {
		cfg.Project = positional[0]
	}
	return finish(cfg)
}

func finish(cfg app.Config) (*app.Config, bool, error) {
	config, err := app.NewConfig(cfg)
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}

func newFlagSet(name, usage string, output io.Writer) *flag.FlagSet {
	flagSet := flag.NewFlagSet(name, flag.ContinueOnError)
	flagSet.SetOutput(output)
	flagSet.Usage = func() {
		fmt.Fprint(output, usage)
		flagSet.PrintDefaults()
	}
	return flagSet
}

// parseInterleaved parses flags that may appear before, between or after
// positional arguments. Everything after a "--" terminator is positional.
func parseInterleaved(flagSet *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := flagSet.Parse(args); err != nil {
			return nil, err
		}
		rest := flagSet.Args()
		if consumed := len(args) - len(rest); consumed > 0 && args[consumed-1] == "--" {
			return append(positional, rest...), nil
		}
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}
