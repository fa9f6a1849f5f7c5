// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 SelfReg Contributors

// Package config loads service configuration from defaults, an optional
// YAML file, command-line flags, and a couple of environment fallbacks,
// in that order of precedence (later wins).
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Config holds the full service configuration.
type Config struct {
	HTTPAddr          string        `koanf:"http_addr"`
	ObservabilityAddr string        `koanf:"observability_addr"`
	DatabaseURL       string        `koanf:"database_url"`
	SessionSecret     string        `koanf:"session_secret"`
	SessionTTL        time.Duration `koanf:"session_ttl"`
	RememberFor       time.Duration `koanf:"remember_for"`
	PageSize          int           `koanf:"page_size"`
	LogFormat         string        `koanf:"log_format"`
	Blob              BlobConfig    `koanf:"blob"`
}

// BlobConfig configures the profile-photo blob store.
type BlobConfig struct {
	// Driver selects the backend: "s3" or "memory".
	Driver    string `koanf:"driver"`
	Bucket    string `koanf:"bucket"`
	Region    string `koanf:"region"`
	Endpoint  string `koanf:"endpoint"`
	PathStyle bool   `koanf:"path_style"`
}

// Default returns the configuration defaults.
func Default() Config {
	return Config{
		HTTPAddr:          ":8080",
		ObservabilityAddr: "127.0.0.1:9100",
		SessionTTL:        24 * time.Hour,
		RememberFor:       30 * 24 * time.Hour,
		PageSize:          20,
		LogFormat:         "json",
		Blob: BlobConfig{
			Driver: "memory",
		},
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// empty), and the given flag set (skipped when nil). DATABASE_URL and
// SELFREG_SESSION_SECRET environment variables fill those two values when
// nothing else set them.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load config file").
				With("path", path).
				Wrap(err)
		}
	}

	if flags != nil {
		// Flag names use dashes; config keys use underscores.
		provider := posflag.ProviderWithValue(flags, ".", k, func(key, value string) (string, any) {
			return strings.ReplaceAll(key, "-", "_"), value
		})
		if err := k.Load(provider, nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("operation", "load flags").
				Wrap(err)
		}
	}

	cfg := Default()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").
			With("operation", "unmarshal config").
			Wrap(err)
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if cfg.SessionSecret == "" {
		cfg.SessionSecret = os.Getenv("SELFREG_SESSION_SECRET")
	}

	return &cfg, nil
}

// Validate checks the invariants a running server depends on.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return oops.Code("CONFIG_INVALID").Errorf("database_url is required (or set DATABASE_URL)")
	}
	if c.SessionSecret == "" {
		return oops.Code("CONFIG_INVALID").Errorf("session_secret is required (or set SELFREG_SESSION_SECRET)")
	}
	if c.PageSize <= 0 {
		return oops.Code("CONFIG_INVALID").Errorf("page_size must be positive")
	}
	return nil
}
