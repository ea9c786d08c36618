// Package alerts owns the persistent collection of tracked resale candidates
// and the workflow state machine that governs them.
//
// Every alert starts in StatePending and moves forward through
//
//	pending -> yay | nay
//	yay -> purchased -> shipped -> received -> posted -> sold
//
// nay and sold are terminal. Single transitions always follow the graph one
// edge at a time. Bulk transitions use the store's Policy: PolicyStrict applies
// the same graph, PolicyDirect lets an operator jump forward along the chain
// (for example marking backfilled purchases) but never backwards and never out
// of a terminal state.
//
// The Store serializes mutations behind a single writer lock, persists the
// whole collection on every mutation through a Backend, and only commits the
// in-memory change after the backend reports success. Reads take a read lock
// and return copies. Bulk operations report per-id outcomes in a BulkReport
// and flush once.
//
// Two backends exist: JSONBackend (a single JSON document written with
// temp-file-and-rename under an advisory file lock) and SQLiteBackend
// (one transaction per save). Alert IDs are never reused; the next ID is
// persisted alongside the collection.
package alerts
