// Package main hosts the rookery CLI entrypoint and command graph.
//
// The Cobra-based command tree turns terminal invocations into nest
// processing runs, survey calendar inspection, nest table display, run
// history queries, preflight checks, log viewing, and configuration
// scaffolding. It centralizes
// configuration resolution and structured logging setup so subcommands can
// focus on presentation.
//
// Add new behaviour to the internal packages first and surface it here
// through a dedicated command or flag.
package main
