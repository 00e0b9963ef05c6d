package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// Config is the run configuration. It is read from an optional YAML file and
// then overridden by command-line flags.
type Config struct {
	Template          string        `yaml:"template" validate:"required"`
	Data              string        `yaml:"data" validate:"required"`
	Output            string        `yaml:"output" validate:"required"`
	Sheets            []string      `yaml:"sheets,omitempty" validate:"dive,required"`
	ImageTimeout      time.Duration `yaml:"image_timeout,omitempty" validate:"gte=0"`
	MaxImageBytes     int64         `yaml:"max_image_bytes,omitempty" validate:"gte=0"`
	MaxScopeDepth     int           `yaml:"max_scope_depth,omitempty" validate:"gte=0,lte=1024"`
	RecalculateOnOpen bool          `yaml:"recalculate_on_open"`
	LogLevel          string        `yaml:"log_level" validate:"oneof=debug info warn error"`
	LogFormat         string        `yaml:"log_format" validate:"oneof=text json"`
}

// DefaultConfig returns a new Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ImageTimeout:      30 * time.Second,
		MaxImageBytes:     10 << 20,
		MaxScopeDepth:     32,
		RecalculateOnOpen: true,
		LogLevel:          "info",
		LogFormat:         "text",
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Relative paths in the config file are relative to the file itself.
	dir := filepath.Dir(path)
	for _, p := range []*string{&cfg.Template, &cfg.Data, &cfg.Output} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
	return cfg, nil
}

// Validate checks the config for the fill command.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// ValidateTemplateOnly checks the config for commands that only read a template.
func (c *Config) ValidateTemplateOnly() error {
	if err := validate.StructExcept(c, "Data", "Output"); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadData reads the data tree from a JSON or YAML file, picked by extension.
func LoadData(path string) (any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read data file %q: %w", path, err)
	}

	var data any
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parse yaml data %q: %w", path, err)
		}
	default:
		if err := json.Unmarshal(raw, &data); err != nil {
			return nil, fmt.Errorf("parse json data %q: %w", path, err)
		}
	}
	return data, nil
}
