// Package config defines the environment-driven configuration for the export
// service, loaded with github.com/caarlos0/env. Each concern lives in its own
// file:
//   - auth.go: service-account / OAuth credentials
//   - export.go: export pipeline and scheduler tuning
//   - http.go: management API server
//   - storage.go: state directory, optional Postgres sink, optional Redis
//   - observability.go: metrics sink
package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct composing the
// per-concern configs.
type AppConfig struct {
	// IsDev controls development mode behavior (plain-text logs, relaxed
	// credential requirements). Set DEV=true for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Auth holds the background service-account credentials.
	Auth AuthConfig

	// Export holds pipeline tuning.
	Export ExportConfig

	// HTTP holds the management API server configuration.
	HTTP HTTPConfig

	// State holds the flat-document state directory.
	State StateConfig

	// Postgres configures the optional external-database export sink.
	Postgres PostgresConfig `envPrefix:"DB_"`

	// Redis configures the optional shared session cache.
	Redis RedisConfig `envPrefix:"REDIS_"`

	// Observability holds the metrics sink configuration.
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env. Called
// after env parsing.
func (c *AppConfig) Sanitize() {
	c.Export.Sanitize()
	c.HTTP.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks NODE_ENV as a fallback for the DEV flag; the previous
// deployment tooling set only NODE_ENV.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
