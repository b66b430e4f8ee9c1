package config

import (
	"fmt"
	"os"
	"strings"
)

// Environment variable names for API configuration.
const (
	EnvAPIPrefix  = "APIKIT_API_PREFIX"
	EnvAPIBaseURL = "APIKIT_API_BASE_URL"
)

// APIConfig holds the public shape of the API.
type APIConfig struct {
	Prefix      string `toml:"prefix"`
	Title       string `toml:"title"`
	Version     string `toml:"version"`
	Description string `toml:"description"`
	// BaseURL is where clients reach the service; exported collections use it.
	BaseURL string `toml:"base_url"`
	// MaxBodyBytes caps request bodies; zero disables the limit.
	MaxBodyBytes int64 `toml:"max_body_bytes"`
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies non-zero values from overlay onto the receiver.
func (c *APIConfig) Merge(overlay *APIConfig) {
	if overlay.Prefix != "" {
		c.Prefix = overlay.Prefix
	}
	if overlay.Title != "" {
		c.Title = overlay.Title
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	if overlay.Description != "" {
		c.Description = overlay.Description
	}
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.MaxBodyBytes != 0 {
		c.MaxBodyBytes = overlay.MaxBodyBytes
	}
}

func (c *APIConfig) loadDefaults() {
	if c.Prefix == "" {
		c.Prefix = "/api/v1/"
	}
	if c.Title == "" {
		c.Title = "API"
	}
	if c.Version == "" {
		c.Version = "1.0.0"
	}
	if c.BaseURL == "" {
		c.BaseURL = "http://localhost:8080"
	}
	if c.MaxBodyBytes == 0 {
		c.MaxBodyBytes = 1 << 20
	}
}

func (c *APIConfig) loadEnv() {
	if v := os.Getenv(EnvAPIPrefix); v != "" {
		c.Prefix = v
	}
	if v := os.Getenv(EnvAPIBaseURL); v != "" {
		c.BaseURL = v
	}
}

func (c *APIConfig) validate() error {
	if !strings.HasPrefix(c.Prefix, "/") || !strings.HasSuffix(c.Prefix, "/") {
		return fmt.Errorf("prefix %q must begin and end with a slash", c.Prefix)
	}
	if strings.HasSuffix(c.BaseURL, "/") {
		return fmt.Errorf("base_url %q must not end with a slash", c.BaseURL)
	}
	if c.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must not be negative")
	}
	return nil
}
