package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
)

// Config holds the configuration for the Haven API and the notifier worker.
// Environment variables are parsed from the HAVEN_ prefix, e.g.
// HAVEN_HTTP_PORT, HAVEN_POSTGRES_DSN.
type Config struct {
	HTTPPort int `envconfig:"HTTP_PORT" default:"8080"`

	PostgresDSN string `envconfig:"POSTGRES_DSN" default:""`

	// AuthMode selects how bearer tokens are verified:
	//   jwt        - verify locally with JWTSecret (HS256)
	//   introspect - call the identity provider's introspection endpoint
	AuthMode      string `envconfig:"AUTH_MODE" default:"jwt"`
	JWTSecret     string `envconfig:"JWT_SECRET" default:""`
	IntrospectURL string `envconfig:"INTROSPECT_URL" default:""`

	// CORSOrigins lists allowed origins for browser clients.
	CORSOrigins []string `envconfig:"CORS_ORIGINS" default:"*"`

	// Notifier (outbox worker) tuning.
	NotifierBatchSize       int `envconfig:"NOTIFIER_BATCH_SIZE" default:"100"`
	NotifierIntervalSeconds int `envconfig:"NOTIFIER_INTERVAL_SECONDS" default:"2"`

	// Pagination caps.
	DefaultPageSize int `envconfig:"DEFAULT_PAGE_SIZE" default:"20"`
	MaxPageSize     int `envconfig:"MAX_PAGE_SIZE" default:"100"`
}

// New creates a Config by parsing HAVEN_-prefixed environment variables.
func New() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("HAVEN", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints not expressible as envconfig tags.
func (c *Config) Validate() error {
	switch c.AuthMode {
	case "jwt":
		if c.JWTSecret == "" {
			return fmt.Errorf("HAVEN_JWT_SECRET is required when AUTH_MODE=jwt")
		}
	case "introspect":
		if c.IntrospectURL == "" {
			return fmt.Errorf("HAVEN_INTROSPECT_URL is required when AUTH_MODE=introspect")
		}
	default:
		return fmt.Errorf("unsupported AUTH_MODE: %s", c.AuthMode)
	}
	if c.DefaultPageSize <= 0 || c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("invalid page size configuration (default=%d max=%d)", c.DefaultPageSize, c.MaxPageSize)
	}
	return nil
}

// GetHTTPAddr returns the HTTP server address.
func (c *Config) GetHTTPAddr() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}
