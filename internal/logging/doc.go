// Package logging assembles structured slog loggers and formatting helpers used
// across rookery.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes standard field keys so nest processing, batch runs, and
// the CLI tag log lines with the same site, year, and run identifiers. The
// package also provides a no-op logger for tests and wiring code that cannot
// fail.
package logging
