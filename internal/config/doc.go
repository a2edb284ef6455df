// Package config loads, normalizes, and validates rookery configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment overrides such as
// ROOKERY_SAVEDIR. The Config type centralizes the nest thresholds, output
// format, and directories the CLI needs so every command resolves them the
// same way.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical formats, and clear validation errors.
package config
