// Package main hosts the sedori CLI entrypoint and command graph.
//
// The Cobra-based command tree scores candidate listings against a source
// listing, ingests qualifying results into the alert store, and walks alerts
// through the resale workflow. It centralizes configuration resolution and
// logger setup so subcommands only deal with presentation.
//
// Keep this package lean: scoring lives in internal/similarity and workflow
// rules live in internal/alerts. Commands here parse flags, call those
// packages, and render tables or JSON.
package main
