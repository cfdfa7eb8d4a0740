// Package config holds process configuration and its loading rules.
package config

import "context"

// DefaultTokenSecret is used when no secret is configured. Respondent tokens
// signed with it are only fit for local development.
const DefaultTokenSecret = "synap-insights-dev-secret"

// Config contains process configuration.
type Config struct {
	// Addr is the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// SQLitePath selects the SQLite store. Empty keeps everything in memory.
	SQLitePath string `koanf:"sqlite_path"`

	// MigrationsDir overrides the embedded schema migrations when set.
	MigrationsDir string `koanf:"migrations_dir"`

	// SeedCatalog is a YAML question catalogue imported when the store is empty.
	SeedCatalog string `koanf:"seed_catalog"`

	// BaseURL prefixes the survey links handed out for distributions.
	BaseURL string `koanf:"base_url"`

	TokenSecret   string `koanf:"token_secret"`
	TokenTTLHours int    `koanf:"token_ttl_hours"`

	// PageSize is the number of response rows fetched per store round trip.
	PageSize int `koanf:"page_size"`

	MetricsEnabled bool `koanf:"metrics_enabled"`
	CORSEnabled    bool `koanf:"cors_enabled"`

	// StaticDir, when set, is served at / for the survey front-end.
	StaticDir string `koanf:"static_dir"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		Addr:           ":8080",
		LogLevel:       "info",
		BaseURL:        "http://localhost:8080",
		TokenSecret:    DefaultTokenSecret,
		TokenTTLHours:  72,
		PageSize:       1000,
		MetricsEnabled: true,
		CORSEnabled:    true,
	}
}
