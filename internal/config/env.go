package config

import (
	"fmt"
	"strconv"
)

// Environment variables read by FromEnv.
const (
	EnvLogLevel    = "BNDL_LOG_LEVEL"
	EnvLogFormat   = "BNDL_LOG_FORMAT"
	EnvWorkers     = "BNDL_WORKERS"
	EnvNotifyURL   = "BNDL_NOTIFY_URL"
	EnvS3Endpoint  = "BNDL_S3_ENDPOINT"
	EnvS3Bucket    = "BNDL_S3_BUCKET"
	EnvS3AccessKey = "BNDL_S3_ACCESS_KEY"
	EnvS3SecretKey = "BNDL_S3_SECRET_KEY"
	EnvS3Region    = "BNDL_S3_REGION"
	EnvS3UseSSL    = "BNDL_S3_USE_SSL"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// FromEnv builds the settings layer described by the BNDL_* variables.
func FromEnv(lookup LookupFunc) (*Settings, error) {
	get := func(key string) string {
		v, _ := lookup(key)
		return v
	}

	s := &Settings{
		LogLevel:  get(EnvLogLevel),
		LogFormat: get(EnvLogFormat),
		NotifyURL: get(EnvNotifyURL),
	}
	if v := get(EnvWorkers); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvWorkers, err)
		}
		s.Workers = n
	}

	p := &Publish{
		Endpoint:  get(EnvS3Endpoint),
		Bucket:    get(EnvS3Bucket),
		AccessKey: get(EnvS3AccessKey),
		SecretKey: get(EnvS3SecretKey),
		Region:    get(EnvS3Region),
	}
	if v := get(EnvS3UseSSL); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvS3UseSSL, err)
		}
		p.UseSSL = &b
	}
	if *p != (Publish{}) {
		s.Publish = p
	}
	return s, nil
}
