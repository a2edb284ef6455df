package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeNests()
	c.normalizeBatch()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("ROOKERY_SAVEDIR"); ok && strings.TrimSpace(value) != "" {
		c.Paths.SaveDir = strings.TrimSpace(value)
	}
	if strings.TrimSpace(c.Paths.SaveDir) == "" {
		c.Paths.SaveDir = defaultSaveDir
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		c.Paths.StateDir = defaultStateDir
	}

	var err error
	if c.Paths.SaveDir, err = expandPath(c.Paths.SaveDir); err != nil {
		return fmt.Errorf("paths.savedir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.StateDir, err = expandPath(c.Paths.StateDir); err != nil {
		return fmt.Errorf("paths.state_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeNests() {
	c.Nests.OutputFormat = strings.ToLower(strings.TrimSpace(c.Nests.OutputFormat))
	c.Nests.OutputFormat = strings.TrimPrefix(c.Nests.OutputFormat, ".")
	switch c.Nests.OutputFormat {
	case "":
		c.Nests.OutputFormat = defaultOutputFormat
	case "json":
		c.Nests.OutputFormat = "geojson"
	}
	c.Nests.DefaultCRS = strings.TrimSpace(c.Nests.DefaultCRS)
}

func (c *Config) normalizeBatch() {
	if c.Batch.Workers <= 0 {
		c.Batch.Workers = defaultBatchWorkers
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
	if value, ok := os.LookupEnv("ROOKERY_LOG_LEVEL"); ok && strings.TrimSpace(value) != "" {
		c.Logging.Level = value
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}
