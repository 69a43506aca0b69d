package config

import (
	"context"
	"fmt"
)

// DefaultFile is the settings file looked up in the working directory.
const DefaultFile = "bndl.hcl"

// Loader is the interface for a format-specific settings loader.
type Loader interface {
	// Load reads settings from path. A missing file yields empty settings.
	Load(ctx context.Context, path string) (*Settings, error)
}

// Settings holds tool defaults. Zero values mean "not set".
type Settings struct {
	Workers             int
	LogLevel            string
	LogFormat           string
	Exec                string
	NotifyURL           string
	DeclarationsCommand []string
	Ignore              []string
	Publish             *Publish
}

// Publish describes the S3-compatible target for --publish.
type Publish struct {
	Endpoint  string
	Bucket    string
	Prefix    string
	Region    string
	AccessKey string
	SecretKey string
	// UseSSL is nil when the layer does not set it.
	UseSSL    *bool
}

// Override copies every field set in other over s. Lists replace, they do
// not append.
func (s *Settings) Override(other *Settings) {
	if other == nil {
		return
	}
	if other.Workers != 0 {
		s.Workers = other.Workers
	}
	if other.LogLevel != "" {
		s.LogLevel = other.LogLevel
	}
	if other.LogFormat != "" {
		s.LogFormat = other.LogFormat
	}
	if other.Exec != "" {
		s.Exec = other.Exec
	}
	if other.NotifyURL != "" {
		s.NotifyURL = other.NotifyURL
	}
	if len(other.DeclarationsCommand) > 0 {
		s.DeclarationsCommand = other.DeclarationsCommand
	}
	if len(other.Ignore) > 0 {
		s.Ignore = other.Ignore
	}
	if other.Publish != nil {
		if s.Publish == nil {
			s.Publish = &Publish{}
		}
		s.Publish.override(other.Publish)
	}
}

func (p *Publish) override(other *Publish) {
	if other.Endpoint != "" {
		p.Endpoint = other.Endpoint
	}
	if other.Bucket != "" {
		p.Bucket = other.Bucket
	}
	if other.Prefix != "" {
		p.Prefix = other.Prefix
	}
	if other.Region != "" {
		p.Region = other.Region
	}
	if other.AccessKey != "" {
		p.AccessKey = other.AccessKey
	}
	if other.SecretKey != "" {
		p.SecretKey = other.SecretKey
	}
	if other.UseSSL != nil {
		useSSL := *other.UseSSL
		p.UseSSL = &useSSL
	}
}

// Secure reports whether the target is reached over TLS.
func (p *Publish) Secure() bool {
	return p.UseSSL != nil && *p.UseSSL
}

// Validate checks the values that have a closed set of options.
func (s *Settings) Validate() error {
	switch s.LogLevel {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: must be 'debug', 'info', 'warn', or 'error'", s.LogLevel)
	}
	switch s.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid log format %q: must be 'text' or 'json'", s.LogFormat)
	}
	if s.Workers < 0 {
		return fmt.Errorf("invalid workers %d: must not be negative", s.Workers)
	}
	return nil
}

// Validate reports whether the target is complete enough to upload to.
func (p *Publish) Validate() error {
	if p == nil {
		return fmt.Errorf("publishing is not configured")
	}
	if p.Endpoint == "" {
		return fmt.Errorf("publish endpoint is not set")
	}
	if p.Bucket == "" {
		return fmt.Errorf("publish bucket is not set")
	}
	return nil
}
