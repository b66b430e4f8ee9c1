package config

import (
	"fmt"
	"os"
	"strconv"
)

// EnvSerializationMaxDepth overrides the nesting limit.
const EnvSerializationMaxDepth = "APIKIT_SERIALIZATION_MAX_DEPTH"

// SerializationConfig holds serializer settings.
type SerializationConfig struct {
	MaxDepth int `toml:"max_depth"`
}

// Finalize applies defaults, loads environment overrides, and validates the configuration.
func (c *SerializationConfig) Finalize() error {
	if c.MaxDepth == 0 {
		c.MaxDepth = 32
	}
	if v := os.Getenv(EnvSerializationMaxDepth); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxDepth = n
		}
	}
	if c.MaxDepth < 1 {
		return fmt.Errorf("max_depth must be positive")
	}
	return nil
}

// Merge applies non-zero values from overlay onto the receiver.
func (c *SerializationConfig) Merge(overlay *SerializationConfig) {
	if overlay.MaxDepth != 0 {
		c.MaxDepth = overlay.MaxDepth
	}
}
