package config

import (
	"fmt"
	"os"
	"time"
)

// Environment variable names for server configuration.
const (
	EnvServerAddr            = "APIKIT_SERVER_ADDR"
	EnvServerRouter          = "APIKIT_SERVER_ROUTER"
	EnvServerShutdownTimeout = "APIKIT_SERVER_SHUTDOWN_TIMEOUT"
)

// Host routers the service can mount registries on.
const (
	RouterMux = "mux"
	RouterChi = "chi"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr            string `toml:"addr"`
	Router          string `toml:"router"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// ShutdownTimeoutDuration parses and returns the shutdown timeout as a time.Duration.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge applies non-zero values from overlay onto the receiver.
func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Addr != "" {
		c.Addr = overlay.Addr
	}
	if overlay.Router != "" {
		c.Router = overlay.Router
	}
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.Router == "" {
		c.Router = RouterMux
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(EnvServerAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvServerRouter); v != "" {
		c.Router = v
	}
	if v := os.Getenv(EnvServerShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
}

func (c *ServerConfig) validate() error {
	if c.Router != RouterMux && c.Router != RouterChi {
		return fmt.Errorf("invalid router %q (must be %s or %s)", c.Router, RouterMux, RouterChi)
	}
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}
