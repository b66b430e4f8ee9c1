package config

import (
	"fmt"
	"os"
	"strconv"
)

// Environment variable names for rate limit configuration.
const (
	EnvRateLimitRPS   = "APIKIT_RATELIMIT_RPS"
	EnvRateLimitBurst = "APIKIT_RATELIMIT_BURST"
)

// RateLimitConfig holds per-client request limits. A zero rate disables
// limiting.
type RateLimitConfig struct {
	RPS   float64 `toml:"rps"`
	Burst int     `toml:"burst"`
}

// Enabled reports whether requests are limited.
func (c *RateLimitConfig) Enabled() bool { return c.RPS > 0 }

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *RateLimitConfig) Finalize() error {
	if v := os.Getenv(EnvRateLimitRPS); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			c.RPS = f
		}
	}
	if v := os.Getenv(EnvRateLimitBurst); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Burst = n
		}
	}
	if c.RPS > 0 && c.Burst == 0 {
		c.Burst = max(1, int(c.RPS))
	}
	if c.RPS < 0 || c.Burst < 0 {
		return fmt.Errorf("rps and burst must not be negative")
	}
	return nil
}

// Merge applies non-zero values from overlay onto the receiver.
func (c *RateLimitConfig) Merge(overlay *RateLimitConfig) {
	if overlay.RPS != 0 {
		c.RPS = overlay.RPS
	}
	if overlay.Burst != 0 {
		c.Burst = overlay.Burst
	}
}
