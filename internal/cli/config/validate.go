package config

import (
	"fmt"
	"slices"
	"strings"
)

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !slices.Contains(OutputFormats, c.OutputFormat) {
		return fmt.Errorf("unknown output format %q (available: %s)", c.OutputFormat, strings.Join(OutputFormats, ", "))
	}
	if !slices.Contains(LogLevels, c.LogLevel) {
		return fmt.Errorf("unknown log level %q (available: %s)", c.LogLevel, strings.Join(LogLevels, ", "))
	}
	if !slices.Contains(LogFormats, c.LogFormat) {
		return fmt.Errorf("unknown log format %q (available: %s)", c.LogFormat, strings.Join(LogFormats, ", "))
	}
	if c.Eval.MaxDepth < 0 {
		return fmt.Errorf("eval.max_depth must not be negative, got %d", c.Eval.MaxDepth)
	}
	if c.Eval.MaxInputLength < 0 {
		return fmt.Errorf("eval.max_input_length must not be negative, got %d", c.Eval.MaxInputLength)
	}
	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch.workers must not be negative, got %d", c.Batch.Workers)
	}
	if c.Server.CacheSize < 0 {
		return fmt.Errorf("server.cache_size must not be negative, got %d", c.Server.CacheSize)
	}
	return c.History.Validate()
}

// Validate checks the history store settings. Settings are only checked
// when history is enabled.
func (h HistoryConfig) Validate() error {
	if !h.Enabled {
		return nil
	}
	if !slices.Contains(HistoryDrivers, h.Driver) {
		return fmt.Errorf("unknown history driver %q (available: %s)\nHint: set history.driver in leapcalc.yaml", h.Driver, strings.Join(HistoryDrivers, ", "))
	}
	if h.DSN == "" {
		return fmt.Errorf("history.dsn is required when history is enabled")
	}
	return nil
}
