// Package notifications delivers sedori events to ntfy.
//
// NewService returns a no-op implementation when no topic is configured, so
// callers never branch on whether notifications are enabled. The
// [notifications] ingest and errors switches suppress individual event kinds
// without disabling the transport.
package notifications
