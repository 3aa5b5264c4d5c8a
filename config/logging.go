package config

import (
	"fmt"
	"strings"
)

// LoggingConfig defines application log output.
type LoggingConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `json:"level"`
	// Console switches to human readable output. APP_ENV=dev has the same
	// effect.
	Console bool `json:"console"`
}

// SetDefaults applies sane defaults.
func (c *LoggingConfig) SetDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
}

// Validate checks mandatory fields.
func (c LoggingConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("unknown level %s", c.Level)
	}
}
