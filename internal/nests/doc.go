// Package nests turns per-date bird detections into discrete nest records.
//
// A target (a presumed physical nest tracked under one target_ind across
// survey dates) becomes a Nest when enough of its detections clear the score
// threshold, either in total or as a run of back-to-back survey dates. The
// survey calendar that defines "back-to-back" is built per (Site, Year) from
// every detection in the input, not from the target's own dates.
//
// Everything here is pure and synchronous: Process takes an in-memory slice
// and returns rows in target first-appearance order, so identical input yields
// identical output. Reading and writing tables lives in internal/vectorio.
package nests
