package config

import "time"

// Environment variables read by EnvOverlay
const (
	EnvClientID     = "DOMO_CLIENT_ID"
	EnvClientSecret = "DOMO_CLIENT_SECRET"
	EnvDatasetID    = "DOMO_DATASET_ID"
	EnvBaseURL      = "DOMO_BASE_URL"
)

// Defaults applied by Defaults.SetDefaults
const (
	DefaultBaseURL    = "https://api.domo.com"
	DefaultTimeout    = 30 * time.Second
	DefaultLimit      = 3
	DefaultOutputFile = "combined_datasets.csv"
	DefaultPreview    = 5
)

// Config represents the full config for one export run
type Config struct {
	API         API         `yaml:"api"`
	Credentials Credentials `yaml:"credentials"`
	Export      Export      `yaml:"export"`
	Output      Output      `yaml:"output"`
}

// API holds the remote endpoint settings. Endpoint paths are fixed, only the host moves.
type API struct {
	BaseURL string        `yaml:"base_url,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// Credentials contains the OAuth client credentials
type Credentials struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	DatasetID    string `yaml:"dataset_id,omitempty"` // reserved, not consumed by the export flow
}

// Export controls the per-dataset data request
type Export struct {
	Limit  int `yaml:"limit,omitempty"`  // rows requested per dataset
	Offset int `yaml:"offset,omitempty"` // first row requested per dataset
}

// Output controls where the combined CSV goes and how much of it is echoed back
type Output struct {
	Path    string `yaml:"path,omitempty"`
	Preview *int   `yaml:"preview,omitempty"` // nil means DefaultPreview, 0 disables
}

// PreviewLines returns the configured preview size
func (o Output) PreviewLines() int {
	if o.Preview == nil {
		return DefaultPreview
	}
	return *o.Preview
}
