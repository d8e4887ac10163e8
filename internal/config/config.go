// Package config loads procstate settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process-wide settings. CLI flags override these values.
type Config struct {
	DB          string        `env:"PROCSTATE_DB"`
	LogLevel    string        `env:"PROCSTATE_LOG_LEVEL"    envDefault:"info"`
	LogFormat   string        `env:"PROCSTATE_LOG_FORMAT"   envDefault:"text"`
	AutoCancel  bool          `env:"PROCSTATE_AUTO_CANCEL"`
	WaitTimeout time.Duration `env:"PROCSTATE_WAIT_TIMEOUT" envDefault:"5s"`

	// OTelEndpoint is the OTLP/HTTP collector URL. Tracing is off when empty.
	OTelEndpoint string `env:"PROCSTATE_OTEL_ENDPOINT"`
	OTelEnabled  bool   `env:"PROCSTATE_OTEL_ENABLED" envDefault:"true"`
}

// Load parses the environment into a Config and validates it.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks enumerated fields.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format %q (must be text or json)", c.LogFormat)
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be positive, got %s", c.WaitTimeout)
	}
	return nil
}

// ParseLevel maps a level name to a slog level.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("invalid log level %q", name)
	}
}
