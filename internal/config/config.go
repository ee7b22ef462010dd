// Package config loads settings for the syncdemo driver from a YAML file.
// Configuration covers:
//  1. LogLevel     — logging verbosity ("debug", "info", "warn", "error")
//  2. RunTimeout   — how long a single demo run is allowed to take
//  3. Workers      — default producer/consumer fan-out for demos that scale with it
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared across syncdemo's subcommands.
type Config struct {
	LogLevel   string        `yaml:"log_level"`
	RunTimeout time.Duration `yaml:"run_timeout"`
	Workers    int           `yaml:"workers"`
}

// Default returns a Config populated with the driver's built-in defaults.
func Default() *Config {
	return &Config{
		LogLevel:   "info",
		RunTimeout: 30 * time.Second,
		Workers:    4,
	}
}

// Load reads a YAML file at path and overlays it onto the defaults. A
// missing path is not an error: Load returns the defaults unchanged.
func Load(path string) (*Config, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = 30 * time.Second
	}
	if c.Workers <= 0 {
		c.Workers = 4
	}

	return c, nil
}
