/*
Package config loads the server configuration from the environment.

All knobs have defaults that work for local development, so a bare
`go run ./cmd/server` starts a working instance. A .env file in the
working directory is honored when present.
*/
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every runtime setting of the timekeeping server.
type Config struct {
	// HTTP
	Host string `env:"TIMEKEEPING_HOST" envDefault:"0.0.0.0"`
	Port int    `env:"TIMEKEEPING_PORT" envDefault:"8080"`

	// Storage
	DBPath string `env:"TIMEKEEPING_DB_PATH" envDefault:"./data/timekeeping.db"`

	// Holiday calendar
	Canton string `env:"TIMEKEEPING_CANTON" envDefault:"ZH"`

	// Scheduler: how often the background job checks that holiday
	// definitions exist, and how many years beyond the current one it
	// keeps generated.
	HolidayCheckInterval  time.Duration `env:"TIMEKEEPING_HOLIDAY_CHECK_INTERVAL" envDefault:"24h"`
	HolidayLookaheadYears int           `env:"TIMEKEEPING_HOLIDAY_LOOKAHEAD_YEARS" envDefault:"1"`

	// Logging
	LogLevel string `env:"TIMEKEEPING_LOG_LEVEL" envDefault:"info"`
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	return cfg, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
