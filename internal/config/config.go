// Package config loads eventsim settings from the environment.
//
// An optional .env file is read first; variables already set in the process
// environment take precedence over it. Command-line flags override both.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

var (
	// ErrParsingConfig is returned when environment variables cannot be parsed into Config
	ErrParsingConfig = errors.New("failed to parse environment variables into config")

	// ErrInvalidConfig is returned when a parsed value is out of range
	ErrInvalidConfig = errors.New("invalid configuration")
)

// Config holds process-wide settings.
type Config struct {
	LogLevel  string `env:"EVENTSIM_LOG_LEVEL" envDefault:"info"`
	Format    string `env:"EVENTSIM_FORMAT" envDefault:"text"`
	TraceDB   string `env:"EVENTSIM_TRACE_DB"`
	MaxCycles int64  `env:"EVENTSIM_MAX_CYCLES" envDefault:"0"`
	Debug     bool   `env:"EVENTSIM_DEBUG"`
}

// Load reads the given .env files (or ./.env if present, when none are
// given) and parses the environment into a Config.
//
// Naming a file that does not exist is an error; a missing default .env
// is not.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		// The .env file might not exist and that's ok
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, fmt.Errorf("load env files: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c Config) Validate() error {
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: format %q (want text or json)", ErrInvalidConfig, c.Format)
	}
	if c.MaxCycles < 0 {
		return fmt.Errorf("%w: max cycles %d is negative", ErrInvalidConfig, c.MaxCycles)
	}
	return nil
}

// Level returns the configured slog level, defaulting to Info.
func (c Config) Level() slog.Level {
	level, err := ParseLevel(c.LogLevel)
	if err != nil {
		return slog.LevelInfo
	}
	return level
}

// ParseLevel maps debug|info|warn|error (any case) to a slog level.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("%w: log level %q", ErrInvalidConfig, s)
}
