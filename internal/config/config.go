// Package config loads service configuration from the environment.
package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"
	"github.com/rs/zerolog"
)

// Store drivers.
const (
	StoreDriverFile   = "file"
	StoreDriverSQLite = "sqlite"
)

// Config holds the configuration for the access service.
// Variables are read without a prefix so existing deployments keep their names.
type Config struct {
	Port int `envconfig:"PORT" default:"3000"`

	// Reservation storage
	StoreDriver      string `envconfig:"STORE_DRIVER" default:"file"`
	ReservationsFile string `envconfig:"RESERVATIONS_FILE" default:"./data/reservations.json"`
	SQLitePath       string `envconfig:"SQLITE_PATH" default:"./data/str-access.db"`

	// Property configuration (JSON with comments, or YAML by extension)
	PropertiesFile string `envconfig:"PROPERTIES_FILE" default:"./data/properties.json"`

	// CORS
	FrontendOrigins []string `envconfig:"FRONTEND_ORIGIN" default:"http://localhost:5173"`

	// Empty disables webhook signature verification.
	WebhookSecret string `envconfig:"HOSPITABLE_WEBHOOK_SECRET" default:""`

	PhaseScanSchedule string `envconfig:"PHASE_SCAN_SCHEDULE" default:"@every 1m"`

	DebugEndpoints bool   `envconfig:"DEBUG_ENDPOINTS" default:"true"`
	StaticDir      string `envconfig:"STATIC_DIR" default:""`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
}

// New parses the environment into a Config and validates it.
func New() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process environment variables: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks values envconfig cannot constrain on its own.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverFile, StoreDriverSQLite:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER: %s", c.StoreDriver)
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid PORT: %d", c.Port)
	}
	return nil
}

// Log writes the loaded configuration, without secrets, to the logger.
func (c *Config) Log(log zerolog.Logger) {
	log.Info().
		Int("port", c.Port).
		Str("store_driver", c.StoreDriver).
		Str("reservations_file", c.ReservationsFile).
		Str("sqlite_path", c.SQLitePath).
		Str("properties_file", c.PropertiesFile).
		Strs("allowed_origins", c.FrontendOrigins).
		Bool("webhook_secret_present", c.WebhookSecret != "").
		Str("phase_scan_schedule", c.PhaseScanSchedule).
		Bool("debug_endpoints", c.DebugEndpoints).
		Msg("Configuration loaded")
}

// HTTPAddr returns the listen address for the HTTP server.
func (c *Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.Port)
}
