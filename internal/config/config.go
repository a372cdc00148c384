// Package config loads the bot's settings from the environment.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting. Only the token is required.
type Config struct {
	Token        string        `env:"DISCORD_BOT_TOKEN"`
	Prefix       string        `env:"MOTIVE_BOT_PREFIX"         envDefault:"!"`
	Locale       string        `env:"MOTIVE_BOT_LOCALE"         envDefault:"en"`
	ChannelsFile string        `env:"MOTIVE_BOT_CHANNELS_FILE"`
	MaxInFlight  int           `env:"MOTIVE_BOT_MAX_INFLIGHT"   envDefault:"8"`
	CallTimeout  time.Duration `env:"MOTIVE_BOT_CALL_TIMEOUT"   envDefault:"15s"`
	LogLevel     string        `env:"MOTIVE_BOT_LOG_LEVEL"      envDefault:"info"`
	LogFormat    string        `env:"MOTIVE_BOT_LOG_FORMAT"     envDefault:"text"`
	MetricsAddr  string        `env:"MOTIVE_BOT_METRICS_ADDR"`
}

// Load parses the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks settings needed to connect.
func (c Config) Validate() error {
	var errs []error
	if c.Token == "" {
		errs = append(errs, errors.New("DISCORD_BOT_TOKEN is required"))
	}
	if c.Prefix == "" {
		errs = append(errs, errors.New("MOTIVE_BOT_PREFIX must not be empty"))
	}
	if c.MaxInFlight < 1 {
		errs = append(errs, fmt.Errorf("MOTIVE_BOT_MAX_INFLIGHT must be positive, got %d", c.MaxInFlight))
	}
	return errors.Join(errs...)
}
