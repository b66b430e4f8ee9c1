// Package config loads service configuration from TOML files with an
// environment-specific overlay and environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"github.com/bjaus/apikit/logging"
	"github.com/bjaus/apikit/pagination"
)

const (
	// OverlayConfigPattern is the file name pattern for environment-specific overlays.
	OverlayConfigPattern = "config.%s.toml"

	// EnvServiceEnv selects the overlay file.
	EnvServiceEnv = "APIKIT_ENV"
)

// Config represents the root service configuration.
type Config struct {
	Server        ServerConfig        `toml:"server"`
	API           APIConfig           `toml:"api"`
	Logging       logging.Config      `toml:"logging"`
	Pagination    pagination.Config   `toml:"pagination"`
	Serialization SerializationConfig `toml:"serialization"`
	RateLimit     RateLimitConfig     `toml:"ratelimit"`
}

// Load reads the file at path and applies the overlay selected by
// APIKIT_ENV from the same directory. An empty path yields an empty
// configuration. Call Finalize on the result.
func Load(path string) (*Config, error) {
	if path == "" {
		return &Config{}, nil
	}

	cfg, err := load(path)
	if err != nil {
		return nil, err
	}

	if overlay := overlayPath(filepath.Dir(path)); overlay != "" {
		o, err := load(overlay)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", overlay, err)
		}
		cfg.Merge(o)
	}
	return cfg, nil
}

// Parse decodes a TOML document without reading overlays.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *Config) Finalize() error {
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if err := c.Logging.Finalize(); err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	if err := c.Pagination.Finalize(); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	if err := c.Serialization.Finalize(); err != nil {
		return fmt.Errorf("serialization: %w", err)
	}
	if err := c.RateLimit.Finalize(); err != nil {
		return fmt.Errorf("ratelimit: %w", err)
	}
	return nil
}

// Merge applies values from overlay configuration that differ from zero values.
func (c *Config) Merge(overlay *Config) {
	c.Server.Merge(&overlay.Server)
	c.API.Merge(&overlay.API)
	c.Logging.Merge(&overlay.Logging)
	c.Pagination.Merge(&overlay.Pagination)
	c.Serialization.Merge(&overlay.Serialization)
	c.RateLimit.Merge(&overlay.RateLimit)
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

func overlayPath(dir string) string {
	env := os.Getenv(EnvServiceEnv)
	if env == "" {
		return ""
	}
	p := filepath.Join(dir, fmt.Sprintf(OverlayConfigPattern, env))
	if _, err := os.Stat(p); err != nil {
		return ""
	}
	return p
}
