// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - New returns a Config populated with defaults.
// - Load layers a .env file, an optional YAML file and BLINDTEST_ env vars on top.
// - Validate reports every problem wrapped in ErrInvalidConfig.
package config

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata" // zones resolve even on hosts without zoneinfo
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the slog handler: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// Timezone is the IANA zone used for local-midnight dates and the
	// registration window. "Local" uses the host zone.
	Timezone string `koanf:"timezone"`

	// StoreDriver selects the persistence backend: memory, postgres or sqlite.
	StoreDriver string `koanf:"store_driver"`

	// StoreDSN is the driver connection string (ignored for memory).
	StoreDSN string `koanf:"store_dsn"`

	// RegistrationOpenHour and RegistrationCloseHour bound the daily
	// window [open, close) in local hours.
	RegistrationOpenHour  int `koanf:"registration_open_hour"`
	RegistrationCloseHour int `koanf:"registration_close_hour"`

	// WeightLastPlayed and WeightTotalPlays seed the probability settings
	// the first time the store is used.
	WeightLastPlayed float64 `koanf:"weight_last_played"`
	WeightTotalPlays float64 `koanf:"weight_total_plays"`

	// NeverPlayedDays is the days-since-last-play sentinel for participants
	// who never hosted.
	NeverPlayedDays int `koanf:"never_played_days"`

	// JitterMin and JitterMax bound the random score multiplier.
	JitterMin float64 `koanf:"jitter_min"`
	JitterMax float64 `koanf:"jitter_max"`

	// AllowMockDate exposes the /debug/mock-date endpoints.
	AllowMockDate bool `koanf:"allow_mock_date"`

	// DefaultTitle and DefaultSkipReason fill completion and skip fields
	// left empty by callers.
	DefaultTitle      string `koanf:"default_title"`
	DefaultSkipReason string `koanf:"default_skip_reason"`
}

// New creates a Config with defaults. Context is accepted first to follow
// the project-wide convention.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:              "info",
		LogFormat:             "text",
		Addr:                  ":9080",
		Timezone:              "Local",
		StoreDriver:           DriverMemory,
		RegistrationOpenHour:  10,
		RegistrationCloseHour: 11,
		WeightLastPlayed:      0.7,
		WeightTotalPlays:      0.3,
		NeverPlayedDays:       365,
		JitterMin:             0.9,
		JitterMax:             1.1,
		DefaultTitle:          "Untitled",
		DefaultSkipReason:     "No reason given",
	}
}

// Location resolves Timezone.
func (c *Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Validate checks ranges and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Addr) == "" {
		errs = append(errs, errors.New("addr must not be empty"))
	}
	if c.RegistrationOpenHour < 0 || c.RegistrationOpenHour > 23 {
		errs = append(errs, fmt.Errorf("registration_open_hour %d out of range [0,23]", c.RegistrationOpenHour))
	}
	if c.RegistrationCloseHour < 1 || c.RegistrationCloseHour > 24 {
		errs = append(errs, fmt.Errorf("registration_close_hour %d out of range [1,24]", c.RegistrationCloseHour))
	}
	if c.RegistrationOpenHour >= c.RegistrationCloseHour {
		errs = append(errs, errors.New("registration_open_hour must be before registration_close_hour"))
	}
	if c.WeightLastPlayed < 0 || c.WeightLastPlayed > 1 {
		errs = append(errs, fmt.Errorf("weight_last_played %v out of range [0,1]", c.WeightLastPlayed))
	}
	if c.WeightTotalPlays < 0 || c.WeightTotalPlays > 1 {
		errs = append(errs, fmt.Errorf("weight_total_plays %v out of range [0,1]", c.WeightTotalPlays))
	}
	if c.NeverPlayedDays < 1 {
		errs = append(errs, errors.New("never_played_days must be positive"))
	}
	if c.JitterMin <= 0 || c.JitterMax < c.JitterMin {
		errs = append(errs, errors.New("jitter bounds must satisfy 0 < jitter_min <= jitter_max"))
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite:
		if strings.TrimSpace(c.StoreDSN) == "" {
			errs = append(errs, fmt.Errorf("store_dsn is required for driver %q", c.StoreDriver))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store_driver %q", c.StoreDriver))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}
