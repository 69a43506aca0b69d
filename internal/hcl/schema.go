package hcl

// settingsFile is the top-level structure of a bndl.hcl file.
type settingsFile struct {
	Workers             *int          `hcl:"workers,optional"`
	LogLevel            *string       `hcl:"log_level,optional"`
	LogFormat           *string       `hcl:"log_format,optional"`
	Exec                *string       `hcl:"exec,optional"`
	NotifyURL           *string       `hcl:"notify_url,optional"`
	DeclarationsCommand []string      `hcl:"declarations_command,optional"`
	Ignore              []string      `hcl:"ignore,optional"`
	Publish             *publishBlock `hcl:"publish,block"`
}

type publishBlock struct {
	Endpoint  string  `hcl:"endpoint"`
	Bucket    string  `hcl:"bucket"`
	Prefix    *string `hcl:"prefix,optional"`
	Region    *string `hcl:"region,optional"`
	AccessKey *string `hcl:"access_key,optional"`
	SecretKey *string `hcl:"secret_key,optional"`
	UseSSL    *bool   `hcl:"use_ssl,optional"`
}
