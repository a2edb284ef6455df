// Package preflight provides readiness checks for the filesystem paths and
// state that rookery depends on.
//
// These checks run in two contexts:
//   - The batch runner calls RunAll before processing files. If a required
//     check fails the batch stops before touching any input.
//   - The CLI "rookery check" command prints every result as a table.
package preflight
