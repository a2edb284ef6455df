// Package textutil normalizes the free-text values that flow through nest
// processing: species labels and the site tokens used in output file names.
package textutil
