// Package logs reads the rookery log file for the `rookery logs` command.
//
// Last lines are collected through a fixed ring so memory stays bounded
// regardless of file size. Follow mode polls from a byte offset until the
// caller's context is cancelled.
package logs
