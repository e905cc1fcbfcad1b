package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/saturnines/domo-export/pkg/errors"
)

// ValidationError describes one invalid config field
type ValidationError struct {
	Field   string
	Message string
}

// Returns the string representation of validation error
func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors collects every failed check of one load
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, v := range e {
		msgs = append(msgs, v.Error())
	}
	return "validation errors: " + strings.Join(msgs, "; ")
}

// Validator checks one aspect of a loaded Config
type Validator interface {
	Validate(cfg *Config) []ValidationError
}

// DefaultValueSetter Handles the interface for setting default values
type DefaultValueSetter interface {
	SetDefaults(cfg *Config)
}

// VariableExpander defines the interface for expanding variables
type VariableExpander interface {
	Expand(data []byte) []byte
}

// EnvExpander implements VariableExpander using environment variables
type EnvExpander struct{}

// Expand expands environment variables with the given data
func (e *EnvExpander) Expand(data []byte) []byte {
	expanded := os.Expand(string(data), os.Getenv)
	return []byte(expanded)
}

// EnvOverlay fills config fields left blank by the file from the environment
type EnvOverlay struct {
	Getenv func(string) string
}

// Apply copies DOMO_* variables into empty fields of cfg
func (o *EnvOverlay) Apply(cfg *Config) {
	getenv := o.Getenv
	if getenv == nil {
		getenv = os.Getenv
	}

	fill := func(dst *string, key string) {
		if *dst == "" {
			*dst = getenv(key)
		}
	}
	fill(&cfg.Credentials.ClientID, EnvClientID)
	fill(&cfg.Credentials.ClientSecret, EnvClientSecret)
	fill(&cfg.Credentials.DatasetID, EnvDatasetID)
	fill(&cfg.API.BaseURL, EnvBaseURL)
}

// Loader builds a Config from an optional YAML file, the environment and overrides
type Loader struct {
	expander      VariableExpander
	env           *EnvOverlay
	overrides     []func(*Config)
	defaultSetter DefaultValueSetter
	validators    []Validator
}

// NewLoader creates a new Loader with the given components
func NewLoader(
	expander VariableExpander,
	defaultSetter DefaultValueSetter,
	validators ...Validator,
) *Loader {
	return &Loader{
		expander:      expander,
		defaultSetter: defaultSetter,
		validators:    validators,
	}
}

// NewDefaultLoader wires the environment, the defaults and every built-in validator
func NewDefaultLoader(outputDir string) *Loader {
	return NewLoader(
		&EnvExpander{},
		&Defaults{OutputDir: outputDir},
		&APIValidator{},
		&ExportValidator{},
		&OutputValidator{},
	).WithEnv(&EnvOverlay{})
}

// WithEnv sets the environment overlay
func (l *Loader) WithEnv(env *EnvOverlay) *Loader {
	l.env = env
	return l
}

// WithOverride registers a function applied after the file and the environment, before defaults
func (l *Loader) WithOverride(fn func(*Config)) *Loader {
	l.overrides = append(l.overrides, fn)
	return l
}

// Load a config from a YAML file. An empty path loads from the environment only.
func (l *Loader) Load(path string) (*Config, error) {
	if path == "" {
		return l.Parse(nil)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "read config file")
	}

	return l.Parse(data)
}

// Parse parses a yaml config
func (l *Loader) Parse(data []byte) (*Config, error) {
	if l.expander != nil && len(data) > 0 {
		data = l.expander.Expand(data)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.WrapError(err, errors.ErrConfiguration, "parse YAML")
	}

	if l.env != nil {
		l.env.Apply(&cfg)
	}
	for _, override := range l.overrides {
		override(&cfg)
	}
	if l.defaultSetter != nil {
		l.defaultSetter.SetDefaults(&cfg)
	}

	// Missing credentials get their own error so the caller can name the variable
	if err := cfg.Credentials.Validate(); err != nil {
		return nil, err
	}

	var all ValidationErrors
	for _, validator := range l.validators {
		all = append(all, validator.Validate(&cfg)...)
	}
	if len(all) > 0 {
		return nil, errors.WrapError(all, errors.ErrConfiguration, "validate config")
	}

	return &cfg, nil
}

// Validate fails with a MissingCredentialError when either credential is absent or blank
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" {
		return errors.WrapError(&errors.MissingCredentialError{Variable: EnvClientID}, errors.ErrConfiguration, "validate credentials")
	}
	if strings.TrimSpace(c.ClientSecret) == "" {
		return errors.WrapError(&errors.MissingCredentialError{Variable: EnvClientSecret}, errors.ErrConfiguration, "validate credentials")
	}
	return nil
}

// Defaults implements DefaultValueSetter for Config
type Defaults struct {
	OutputDir string // directory for the default output file, usually the executable's
}

// SetDefaults sets default values for Config
func (d *Defaults) SetDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = DefaultBaseURL
	}
	cfg.API.BaseURL = strings.TrimRight(cfg.API.BaseURL, "/")

	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = DefaultTimeout
	}

	if cfg.Export.Limit == 0 {
		cfg.Export.Limit = DefaultLimit
	}

	if cfg.Output.Path == "" {
		cfg.Output.Path = filepath.Join(d.OutputDir, DefaultOutputFile)
	}
}

// APIValidator checks the base URL and timeout
type APIValidator struct{}

// Validate checks that the API section is usable
func (v *APIValidator) Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	u, err := url.Parse(cfg.API.BaseURL)
	switch {
	case cfg.API.BaseURL == "":
		errs = append(errs, ValidationError{Field: "api.base_url", Message: "is required"})
	case err != nil:
		errs = append(errs, ValidationError{Field: "api.base_url", Message: err.Error()})
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, ValidationError{Field: "api.base_url", Message: fmt.Sprintf("unsupported scheme %q", u.Scheme)})
	case u.Host == "":
		errs = append(errs, ValidationError{Field: "api.base_url", Message: "host is required"})
	}

	if cfg.API.Timeout < 0 {
		errs = append(errs, ValidationError{Field: "api.timeout", Message: "must not be negative"})
	}

	return errs
}

// ExportValidator checks the row window requested per dataset
type ExportValidator struct{}

// Validate checks limit and offset
func (v *ExportValidator) Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	if cfg.Export.Limit <= 0 {
		errs = append(errs, ValidationError{Field: "export.limit", Message: "must be positive"})
	}
	if cfg.Export.Offset < 0 {
		errs = append(errs, ValidationError{Field: "export.offset", Message: "must not be negative"})
	}
	return errs
}

// OutputValidator checks the output section
type OutputValidator struct{}

// Validate checks path and preview size
func (v *OutputValidator) Validate(cfg *Config) []ValidationError {
	var errs []ValidationError
	if cfg.Output.Path == "" {
		errs = append(errs, ValidationError{Field: "output.path", Message: "is required"})
	}
	if cfg.Output.PreviewLines() < 0 {
		errs = append(errs, ValidationError{Field: "output.preview", Message: "must not be negative"})
	}
	return errs
}
