// Package preflight provides readiness checks for the filesystem paths,
// alert store, and notification endpoint that sedori depends on.
//
// "sedori doctor" runs RunAll and prints one row per Result. The compare
// command runs the directory checks before a batch so a read-only data dir is
// reported before minutes of image scoring are wasted.
//
// Each check is gated by its config toggle; disabled features are skipped.
package preflight
