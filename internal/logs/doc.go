// Package logs reads the sedori log file for `sedori logs`.
//
// Last returns the final N lines with bounded memory; Follow polls for
// appended lines until its context is canceled and restarts from the top
// when the file is truncated or rotated.
package logs
