package models

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration. Values come from an optional YAML file
// and are overridden by CLI flags.
type Config struct {
	Scan     ScanConfig     `yaml:"scan"`
	Storage  StorageConfig  `yaml:"storage"`
	Registry RegistryConfig `yaml:"registry"`
}

type ScanConfig struct {
	Timeout           string `yaml:"timeout"`
	StylesheetTimeout string `yaml:"stylesheet_timeout"`
	MaxStylesheets    int    `yaml:"max_stylesheets"`
	LogoTimeout       string `yaml:"logo_timeout"`
	DownloadLogo      bool   `yaml:"download_logo"`
	UserAgent         string `yaml:"user_agent"`
}

type StorageConfig struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
}

type RegistryConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Timeout:           "15s",
			StylesheetTimeout: "5s",
			MaxStylesheets:    3,
			LogoTimeout:       "10s",
		},
		Storage:  StorageConfig{Dir: "design-assets"},
		Registry: RegistryConfig{Path: "design-scan.db"},
	}
}

// LoadConfig reads a YAML config file on top of DefaultConfig.
// A missing file is not an error.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file '%s': %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that every duration parses and limits are sane.
func (c *Config) Validate() error {
	for name, value := range map[string]string{
		"scan.timeout":            c.Scan.Timeout,
		"scan.stylesheet_timeout": c.Scan.StylesheetTimeout,
		"scan.logo_timeout":       c.Scan.LogoTimeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, value, err)
		}
	}
	if c.Scan.MaxStylesheets < 0 {
		return fmt.Errorf("invalid scan.max_stylesheets %d: must not be negative", c.Scan.MaxStylesheets)
	}
	return nil
}

// ScanTimeout returns scan.timeout, or fallback when unset.
func (c *Config) ScanTimeout(fallback time.Duration) time.Duration {
	return parseDurationOr(c.Scan.Timeout, fallback)
}

// StylesheetTimeout returns scan.stylesheet_timeout, or fallback when unset.
func (c *Config) StylesheetTimeout(fallback time.Duration) time.Duration {
	return parseDurationOr(c.Scan.StylesheetTimeout, fallback)
}

// LogoTimeout returns scan.logo_timeout, or fallback when unset.
func (c *Config) LogoTimeout(fallback time.Duration) time.Duration {
	return parseDurationOr(c.Scan.LogoTimeout, fallback)
}

func parseDurationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
