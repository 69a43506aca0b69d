package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vk/bndl/internal/compiler"
	"github.com/vk/bndl/internal/config"
	"github.com/vk/bndl/internal/ctxlog"
	"github.com/vk/bndl/internal/registry"
	"github.com/vk/bndl/internal/tsconfig"
)

// App encapsulates the application's dependencies, configuration, and
// lifecycle.
type App struct {
	outW   io.Writer
	errW   io.Writer
	logger *slog.Logger

	cfg      *Config
	settings *config.Settings
	cwd      string

	registry *registry.Registry
	resolver *tsconfig.Resolver
	compiler compiler.Compiler
}

// Option customizes an App.
type Option func(*App)

// WithCompiler replaces the esbuild compiler.
func WithCompiler(c compiler.Compiler) Option {
	return func(a *App) { a.compiler = c }
}

// NewApp builds an App. Settings are layered from the settings file, the
// environment and finally cfg itself. Logs go to errW; command output such
// as `convert` goes to outW.
func NewApp(outW, errW io.Writer, cfg *Config, loader config.Loader, opts ...Option) (*App, error) {
	cwd := cfg.Cwd
	if cwd == "" {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
		cwd = wd
	}
	cwd, err := filepath.Abs(cwd)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	// Until the settings are known, log with whatever the flags asked for.
	bootLogger := newLogger(cfg.LogLevel, cfg.LogFormat, errW)
	ctx := ctxlog.WithLogger(context.Background(), bootLogger)

	settingsPath := cfg.SettingsPath
	if !filepath.IsAbs(settingsPath) {
		settingsPath = filepath.Join(cwd, settingsPath)
	}
	settings, err := loader.Load(ctx, settingsPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	lookup := cfg.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	envSettings, err := config.FromEnv(lookup)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings from environment: %w", err)
	}
	settings.Override(envSettings)
	settings.Override(cfg.settings())
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	logger := newLogger(settings.LogLevel, settings.LogFormat, errW)
	logger.Debug("Logger configured successfully.", "level", settings.LogLevel, "format", settings.LogFormat)

	reg := registry.New(cwd)
	a := &App{
		outW:     outW,
		errW:     errW,
		logger:   logger,
		cfg:      cfg,
		settings: settings,
		cwd:      cwd,
		registry: reg,
		resolver: tsconfig.NewResolver(cwd, reg),
		compiler: compiler.NewEsbuild(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Settings returns the effective tool settings.
func (a *App) Settings() *config.Settings {
	return a.settings
}

// Run executes the flow selected by the configuration. The returned error
// is fatal for the invocation.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.", "command", a.cfg.Command, "cwd", a.cwd)

	var err error
	switch {
	case a.cfg.Command == CommandConvert:
		err = a.convert(ctx)
	case a.cfg.OnlyBundle:
		err = a.onlyBundle(ctx)
	case a.cfg.Watch:
		err = a.watch(ctx)
	default:
		err = a.build(ctx)
	}

	a.logger.Debug("App.Run method finished.")
	return err
}
