// Package services defines shared utilities consumed by the similarity engine,
// the alert store, and the CLI host.
//
// Key responsibilities:
//   - Context helpers that stamp alert IDs, candidate IDs, and batch run
//     identifiers for logging.
//   - Structured error markers plus the Wrap helper so every layer reports a
//     stable error kind (image_decode, invalid_input, not_found,
//     illegal_transition, persistence) instead of a generic failure.
//
// Use these helpers when wiring new components so operational behaviour
// (error classification, observability) stays uniform across the tool.
package services
