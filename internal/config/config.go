// Package config provides configuration management for cfmd.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Defaults applied by WithDefaults.
const (
	DefaultOutputDir   = "."
	DefaultConcurrency = 4
	DefaultAssetsDir   = "assets"
	MaxConcurrency     = 32
)

// Config holds the cfmd configuration.
type Config struct {
	URL          string `yaml:"url"`
	Email        string `yaml:"email"`
	APIToken     string `yaml:"api_token"`
	DefaultSpace string `yaml:"default_space,omitempty"`
	OutputDir    string `yaml:"output_dir,omitempty"`
	Concurrency  int    `yaml:"concurrency,omitempty"`
	AssetsDir    string `yaml:"assets_dir,omitempty"`
	ExportedBy   string `yaml:"exported_by,omitempty"`
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	if c.URL == "" {
		return errors.New("url is required")
	}
	if c.Email == "" {
		return errors.New("email is required")
	}
	if c.APIToken == "" {
		return errors.New("api_token is required")
	}

	// Validate URL scheme
	if !strings.HasPrefix(c.URL, "https://") {
		return errors.New("url must use https")
	}

	if c.Concurrency < 0 || c.Concurrency > MaxConcurrency {
		return fmt.Errorf("concurrency must be between 1 and %d", MaxConcurrency)
	}
	if c.AssetsDir != "" && (filepath.IsAbs(c.AssetsDir) || strings.Contains(c.AssetsDir, "..")) {
		return errors.New("assets_dir must be a relative path inside the output directory")
	}

	return nil
}

// NormalizeURL ensures the URL has the /wiki suffix for Confluence Cloud.
func (c *Config) NormalizeURL() {
	c.URL = strings.TrimSuffix(c.URL, "/")
	if !strings.HasSuffix(c.URL, "/wiki") {
		c.URL = c.URL + "/wiki"
	}
}

// WithDefaults returns a copy with unset export settings filled in.
func (c Config) WithDefaults() Config {
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.Concurrency == 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.AssetsDir == "" {
		c.AssetsDir = DefaultAssetsDir
	}
	return c
}

// LoadFromEnv overrides fields from the environment. CFMD_* variables win
// over ATLASSIAN_* ones; empty or unparsable values are ignored.
func (c *Config) LoadFromEnv() {
	for _, f := range Fields {
		if name := f.EnvSource(); name != "" {
			f.set(c, os.Getenv(name))
		}
	}
}

// DefaultConfigPath returns the default configuration file path.
func DefaultConfigPath() string {
	// Try XDG config directory first
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "cfmd", "config.yml")
	}

	// Fall back to ~/.config/cfmd/config.yml
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".cfmd", "config.yml")
	}

	return filepath.Join(home, ".config", "cfmd", "config.yml")
}

// Save writes the configuration to the specified path.
func (c *Config) Save(path string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write with restricted permissions (user read/write only)
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Load reads the configuration from the specified path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &cfg, nil
}

// LoadWithEnv loads configuration from file and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	cfg, err := Load(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		// If file doesn't exist, start with empty config
		cfg = &Config{}
	}

	cfg.LoadFromEnv()
	return cfg, nil
}
