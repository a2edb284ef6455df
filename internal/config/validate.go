package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrValidation marks configuration values that failed validation.
var ErrValidation = errors.New("invalid configuration")

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	for _, check := range []func() error{c.validatePaths, c.validateNests, c.validateLogging} {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %w", ErrValidation, err)
		}
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.SaveDir) == "" {
		return errors.New("paths.savedir must be set")
	}
	if strings.TrimSpace(c.Paths.StateDir) == "" {
		return errors.New("paths.state_dir must be set")
	}
	return nil
}

func (c *Config) validateNests() error {
	if c.Nests.MinScore < 0 || c.Nests.MinScore > 1 {
		return errors.New("nests.min_score must be between 0 and 1")
	}
	if c.Nests.MinDetections < 0 {
		return errors.New("nests.min_detections must be non-negative")
	}
	if c.Nests.MinConsecDetects < 0 {
		return errors.New("nests.min_consec_detects must be non-negative")
	}
	if !slices.Contains(OutputFormats, c.Nests.OutputFormat) {
		return fmt.Errorf("nests.output_format must be one of %s, got %q", strings.Join(OutputFormats, ", "), c.Nests.OutputFormat)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("logging.level must be one of debug, info, warn, error, got %q", c.Logging.Level)
	}
}
