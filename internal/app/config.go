package app

import (
	"errors"
	"fmt"

	"github.com/vk/bndl/internal/config"
	"github.com/vk/bndl/internal/tsconfig"
)

// Commands understood by App.Run.
const (
	CommandBuild   = "build"
	CommandConvert = "convert"
)

// ConvertFile is where `convert --save` writes the compiler options.
const ConvertFile = ".bndlrc.json"

// Config holds everything the command line decided for one invocation.
type Config struct {
	Command      string
	Input        string // file or directory to build; defaults to "."
	Project      string // tsconfig path; "." means the default
	OutDir       string // overrides the resolved outDir when set
	SettingsPath string

	Clean      bool
	NoBundle   bool
	OnlyBundle bool
	Minify     bool
	Watch      bool
	Publish    bool
	Save       bool

	// Settings overrides. Zero values leave the lower layers alone.
	Exec            string
	NotifyURL       string
	Workers         int
	LogLevel        string
	LogFormat       string
	HealthcheckPort int

	// Cwd is the package directory; empty means the process working
	// directory.
	Cwd string
	// LookupEnv reads the environment settings layer; nil means
	// os.LookupEnv.
	LookupEnv config.LookupFunc
}

// NewConfig applies defaults and rejects contradictory options.
func NewConfig(cfg Config) (*Config, error) {
	if cfg.Command == "" {
		cfg.Command = CommandBuild
	}
	if cfg.Command != CommandBuild && cfg.Command != CommandConvert {
		return nil, fmt.Errorf("unknown command %q", cfg.Command)
	}
	if cfg.Project == "" || cfg.Project == "." {
		cfg.Project = tsconfig.DefaultFile
	}
	if cfg.Input == "" {
		cfg.Input = "."
	}
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = config.DefaultFile
	}

	if cfg.OnlyBundle && cfg.NoBundle {
		return nil, errors.New("--only-bundle and --no-bundle cannot be combined")
	}
	if cfg.OnlyBundle && cfg.Watch {
		return nil, errors.New("--only-bundle and --watch cannot be combined")
	}
	if cfg.Publish && cfg.Watch {
		return nil, errors.New("--publish is not available in watch mode")
	}
	if cfg.Exec != "" && !cfg.Watch {
		return nil, errors.New("--exec requires --watch")
	}
	if cfg.Workers < 0 {
		return nil, fmt.Errorf("invalid workers %d: must not be negative", cfg.Workers)
	}
	if cfg.HealthcheckPort < 0 {
		return nil, fmt.Errorf("invalid healthcheck port %d", cfg.HealthcheckPort)
	}
	return &cfg, nil
}

// settings is the command-line layer of the tool settings.
func (c *Config) settings() *config.Settings {
	return &config.Settings{
		Workers:   c.Workers,
		LogLevel:  c.LogLevel,
		LogFormat: c.LogFormat,
		Exec:      c.Exec,
		NotifyURL: c.NotifyURL,
	}
}
