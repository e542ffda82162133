package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWeights(); err != nil {
		return err
	}
	if err := c.normalizeCatalog(); err != nil {
		return err
	}
	c.normalizeRecords()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = filepath.Join(c.Paths.DataDir, "logs")
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeWeights() error {
	if value, ok := os.LookupEnv(weightsCacheEnvVar); ok && strings.TrimSpace(value) != "" {
		c.Weights.CacheDir = value
	}
	if strings.TrimSpace(c.Weights.CacheDir) == "" {
		c.Weights.CacheDir = defaultWeightsCacheDir()
	}
	var err error
	if c.Weights.CacheDir, err = expandPath(c.Weights.CacheDir); err != nil {
		return fmt.Errorf("weights.cache_dir: %w", err)
	}
	if c.Weights.TimeoutSeconds == 0 {
		c.Weights.TimeoutSeconds = defaultWeightsTimeout
	}
	return nil
}

func (c *Config) normalizeCatalog() error {
	if strings.TrimSpace(c.Catalog.Path) == "" {
		c.Catalog.Path = filepath.Join(c.Paths.DataDir, "catalog.db")
	}
	var err error
	if c.Catalog.Path, err = expandPath(c.Catalog.Path); err != nil {
		return fmt.Errorf("catalog.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeRecords() {
	c.Records.DefaultFilename = strings.TrimSpace(c.Records.DefaultFilename)
	if c.Records.DefaultFilename == "" {
		c.Records.DefaultFilename = defaultRecordsFilename
	}
	c.Records.Format = strings.ToLower(strings.TrimSpace(c.Records.Format))
	switch c.Records.Format {
	case "":
		c.Records.Format = defaultRecordsFormat
	case "yml":
		c.Records.Format = "yaml"
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	outputs := c.Logging.OutputPaths[:0]
	for _, out := range c.Logging.OutputPaths {
		if out = strings.TrimSpace(out); out != "" {
			outputs = append(outputs, out)
		}
	}
	c.Logging.OutputPaths = outputs
}
