// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the muzzle CLI configuration.
//
// Values come from defaults, then an optional YAML file, then MUZZLE_*
// environment variables. Command-line flags are applied by the caller last.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/AleutianMuzzle/pkg/logging"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/collector"
	"github.com/AleutianAI/AleutianMuzzle/services/muzzle/telemetry"
)

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid config")

// configValidate checks the struct tags below. "loglevel" accepts any
// level pkg/logging can parse.
var configValidate *validator.Validate

func init() {
	configValidate = validator.New()
	_ = configValidate.RegisterValidation("loglevel", validateLogLevel)
}

func validateLogLevel(fl validator.FieldLevel) bool {
	_, err := logging.ParseLevel(fl.Field().String())
	return err == nil
}

// Config is the full CLI configuration.
type Config struct {
	Storage   StorageConfig    `yaml:"storage"`
	Logging   LoggingConfig    `yaml:"logging"`
	Collector CollectorConfig  `yaml:"collector"`
	Matcher   MatcherConfig    `yaml:"matcher"`
	Telemetry telemetry.Config `yaml:"telemetry"`
}

// StorageConfig locates the artifact database.
type StorageConfig struct {
	Path       string        `yaml:"path" validate:"required"`
	SyncWrites bool          `yaml:"sync_writes"`
	GCInterval time.Duration `yaml:"gc_interval"`
}

// LoggingConfig controls pkg/logging.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"loglevel"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// CollectorConfig feeds collector options.
type CollectorConfig struct {
	// HelperPrefixes classify helper classes and are stored in artifacts.
	HelperPrefixes []string `yaml:"helper_prefixes"`

	// LibraryPrefixes mark helpers that are library instrumentation.
	LibraryPrefixes []string `yaml:"library_prefixes"`

	// PlatformPrefixes are never recorded as references.
	PlatformPrefixes []string `yaml:"platform_prefixes"`

	VirtualField VirtualFieldConfig `yaml:"virtual_field"`
}

// VirtualFieldConfig names the virtual field declaration call.
type VirtualFieldConfig struct {
	Owner      string `yaml:"owner" validate:"required"`
	Method     string `yaml:"method" validate:"required"`
	Descriptor string `yaml:"descriptor" validate:"required,startswith=("`
}

// MatcherConfig tunes matching.
type MatcherConfig struct {
	CacheShards int `yaml:"cache_shards" validate:"gte=1,lte=4096"`

	// Parallelism bounds concurrent scope checks in one run.
	Parallelism int `yaml:"parallelism" validate:"gte=1"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Storage: StorageConfig{
			Path:       filepath.Join(".muzzle", "db"),
			SyncWrites: true,
			GCInterval: 10 * time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
		Collector: CollectorConfig{
			PlatformPrefixes: []string{"java."},
			VirtualField: VirtualFieldConfig{
				Owner:      collector.DefaultVirtualFieldOwner,
				Method:     collector.DefaultVirtualFieldMethod,
				Descriptor: collector.DefaultVirtualFieldDescriptor,
			},
		},
		Matcher: MatcherConfig{
			CacheShards: 32,
			Parallelism: 4,
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Load returns the defaults overlaid with path (when it exists) and the
// environment, validated.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := loadFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("load config file: %w", err)
		}
	}
	loadFromEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("MUZZLE_DB"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("MUZZLE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("MUZZLE_LOG_DIR"); v != "" {
		cfg.Logging.Dir = v
	}
	if v := os.Getenv("MUZZLE_PARALLELISM"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Matcher.Parallelism = i
		}
	}
}

// Validate checks every section.
//
// # Outputs
//
//   - error: Wraps ErrInvalidConfig and names the failing fields.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := c.Telemetry.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// CollectorOptions converts the collector section into options.
func (c Config) CollectorOptions() []collector.Option {
	opts := []collector.Option{
		collector.WithVirtualFieldMethod(c.Collector.VirtualField.Owner, c.Collector.VirtualField.Method, c.Collector.VirtualField.Descriptor),
	}
	if len(c.Collector.LibraryPrefixes) > 0 {
		opts = append(opts, collector.WithLibraryClassifier(collector.PrefixClassifier(c.Collector.LibraryPrefixes...)))
	}
	if len(c.Collector.PlatformPrefixes) > 0 {
		opts = append(opts, collector.WithPlatformPrefixes(c.Collector.PlatformPrefixes...))
	}
	return opts
}
