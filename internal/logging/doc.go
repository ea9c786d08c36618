// Package logging assembles structured slog loggers and formatting helpers used
// across sedori.
//
// It owns the console/JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so engine and workflow code can tag log
// lines with alert IDs, candidate IDs, and batch run IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
