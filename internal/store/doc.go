// Package store provides SQLite-backed storage for recorded runs.
//
// A run row holds what was executed (program and params) and how it ended;
// its trace_events rows hold the recorded trace, one row per event, keyed by
// (run_id, idx). Stored runs are diagnostics: they are read back for
// inspection and for replay checks, never to resume a Control.
//
// # Determinism
//
//   - Trace rows are ordered by idx, the recorder's index, never by time
//   - Event values and params are stored as canonical JSON
//   - Runs are listed in insertion order
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
package store
