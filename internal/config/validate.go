package config

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateLogging(); err != nil {
		return err
	}
	if err := c.validateWeights(); err != nil {
		return err
	}
	if err := c.validateRecords(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn or error", c.Logging.Level)
	}
}

func (c *Config) validateWeights() error {
	if c.Weights.TimeoutSeconds < 0 {
		return errors.New("weights.timeout_seconds must be positive")
	}
	return nil
}

func (c *Config) validateRecords() error {
	switch c.Records.Format {
	case "json", "yaml":
	default:
		return fmt.Errorf("records.format %q must be json or yaml", c.Records.Format)
	}
	if filepath.Base(c.Records.DefaultFilename) != c.Records.DefaultFilename {
		return fmt.Errorf("records.default_filename %q must be a file name, not a path", c.Records.DefaultFilename)
	}
	return nil
}
