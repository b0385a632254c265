// Package config loads process configuration from the environment, after
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
)

const (
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	// DBPath is empty when unset; the store then picks its default path.
	DBPath         string `env:"SKILLCERT_DB"`
	SessionBackend string `env:"SKILLCERT_SESSION_BACKEND" envDefault:"sqlite"`

	// Scheduler
	AuditSchedule string        `env:"SKILLCERT_AUDIT_SCHEDULE" envDefault:"0 3 * * *"`
	SweepInterval time.Duration `env:"SKILLCERT_SWEEP_INTERVAL" envDefault:"30s"`
	Timezone      string        `env:"SKILLCERT_TIMEZONE" envDefault:"UTC"`

	// Certification levels
	PassLevel       int `env:"SKILLCERT_PASS_LEVEL" envDefault:"3"`
	AuthorLevel     int `env:"SKILLCERT_AUTHOR_LEVEL" envDefault:"5"`
	MinConfirmLevel int `env:"SKILLCERT_MIN_CONFIRM_LEVEL" envDefault:"1"`

	AutoSubmitMaxElapsed time.Duration `env:"SKILLCERT_AUTOSUBMIT_MAX_ELAPSED" envDefault:"2m"`

	MetricsAddr string `env:"SKILLCERT_METRICS_ADDR" envDefault:":9464"`
	LogLevel    string `env:"SKILLCERT_LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"SKILLCERT_LOG_FORMAT" envDefault:"text"`
}

// Load reads the given .env files (".env" when none are named; a missing
// file is not an error), then parses and validates the environment.
// Variables already set in the environment win over the files.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error
	switch c.SessionBackend {
	case BackendSQLite, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("SKILLCERT_SESSION_BACKEND: want %q or %q, got %q", BackendSQLite, BackendMemory, c.SessionBackend))
	}
	if _, err := cron.ParseStandard(c.AuditSchedule); err != nil {
		errs = append(errs, fmt.Errorf("SKILLCERT_AUDIT_SCHEDULE: %w", err))
	}
	if c.SweepInterval < time.Second {
		errs = append(errs, fmt.Errorf("SKILLCERT_SWEEP_INTERVAL: must be at least 1s, got %s", c.SweepInterval))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("SKILLCERT_TIMEZONE: %w", err))
	}
	for name, v := range map[string]int{
		"SKILLCERT_PASS_LEVEL":        c.PassLevel,
		"SKILLCERT_AUTHOR_LEVEL":      c.AuthorLevel,
		"SKILLCERT_MIN_CONFIRM_LEVEL": c.MinConfirmLevel,
	} {
		if v <= 0 {
			errs = append(errs, fmt.Errorf("%s: must be positive, got %d", name, v))
		}
	}
	if c.AutoSubmitMaxElapsed <= 0 {
		errs = append(errs, fmt.Errorf("SKILLCERT_AUTOSUBMIT_MAX_ELAPSED: must be positive, got %s", c.AutoSubmitMaxElapsed))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("SKILLCERT_LOG_FORMAT: want text or json, got %q", c.LogFormat))
	}
	return errors.Join(errs...)
}

// Location is the scheduler time zone. Validate has already checked it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
