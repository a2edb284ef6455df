// Package batch runs nest processing over many detection files.
//
// Inputs are files or directories; directories are walked for supported
// detection tables. Each file is read, aggregated into nests, written to
// {savedir}/{site}_{year}_processed_nests.{ext} and recorded in the run
// ledger. Files run on a bounded worker pool and fail independently: one bad
// file is reported in the joined error while the others are still written.
package batch
