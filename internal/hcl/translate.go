package hcl

import "github.com/vk/bndl/internal/config"

// translate converts the HCL-specific schema into the agnostic settings.
func translate(f *settingsFile) *config.Settings {
	s := &config.Settings{
		Workers:             deref(f.Workers),
		LogLevel:            deref(f.LogLevel),
		LogFormat:           deref(f.LogFormat),
		Exec:                deref(f.Exec),
		NotifyURL:           deref(f.NotifyURL),
		DeclarationsCommand: f.DeclarationsCommand,
		Ignore:              f.Ignore,
	}
	if p := f.Publish; p != nil {
		s.Publish = &config.Publish{
			Endpoint:  p.Endpoint,
			Bucket:    p.Bucket,
			Prefix:    deref(p.Prefix),
			Region:    deref(p.Region),
			AccessKey: deref(p.AccessKey),
			SecretKey: deref(p.SecretKey),
			UseSSL:    p.UseSSL,
		}
	}
	return s
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
