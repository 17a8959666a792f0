// Package app assembles the process configuration and the shared stores used
// by the api, worker and healthctl binaries.
package app

import (
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/ovaphlow/pitchfork/service-health-ingest/internal/config"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/database"
	"github.com/ovaphlow/pitchfork/service-health-ingest/pkg/utilities"
)

// Config is the effective configuration of one process.
type Config struct {
	Database   database.Config         `yaml:"database"`
	Ingest     config.IngestConfig     `yaml:"ingest"`
	RateLimit  config.RateLimitConfig  `yaml:"rate_limit"`
	Batch      config.BatchConfig      `yaml:"batch"`
	Validation config.ValidationConfig `yaml:"validation"`
	Runner     config.RunnerConfig     `yaml:"runner"`
	Archive    config.ArchiveConfig    `yaml:"archive"`
	Auth       config.AuthConfig       `yaml:"-"`
	Log        utilities.Config        `yaml:"log"`
}

func ConfigFromEnv() Config {
	return Config{
		Database:   database.ConfigFromEnv(),
		Ingest:     config.IngestConfigFromEnv(),
		RateLimit:  config.RateLimitConfigFromEnv(),
		Batch:      config.BatchConfigFromEnv(),
		Validation: config.ValidationConfigFromEnv(),
		Runner:     config.RunnerConfigFromEnv(),
		Archive:    config.ArchiveConfigFromEnv(),
		Auth:       config.AuthConfigFromEnv(),
		Log:        utilities.ConfigFromEnv(),
	}
}

// Validate joins the errors of every section.
func (c *Config) Validate() error {
	var errs []error
	if err := c.Ingest.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("ingest: %w", err))
	}
	if err := c.Batch.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("batch: %w", err))
	}
	if err := c.Validation.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("validation: %w", err))
	}
	if c.Runner.MaxConcurrent <= 0 {
		errs = append(errs, errors.New("runner: max concurrent must be > 0"))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database: url is required"))
	}
	return errors.Join(errs...)
}

// Redacted masks credentials embedded in connection URLs.
func (c Config) Redacted() Config {
	out := c
	out.Database = c.Database.Redacted()
	out.RateLimit.RedisURL = database.RedactDSN(c.RateLimit.RedisURL)
	out.Auth = config.AuthConfig{}
	return out
}

// YAML renders the redacted configuration.
func (c Config) YAML() ([]byte, error) {
	b, err := yaml.Marshal(c.Redacted())
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}
	return b, nil
}
