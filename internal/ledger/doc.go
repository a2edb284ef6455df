// Package ledger persists a record of every nest processing run in a SQLite
// database under the configured state directory.
//
// Each processed input file produces one Run row identifying the batch it
// belonged to, the thresholds applied, how many targets were examined, how
// many nests were written, and whether the run succeeded. The ledger is
// append-only apart from Clear, and is what `rookery history` reads.
package ledger
