// Package store provides a SQLite archive of parse runs.
//
// A run records which template parsed which input and the records it
// produced:
//   - Blobs: template and input text, content-addressed by digest
//   - Runs: one row per parse, with template, input and records digests
//   - Records: the output sequence of a run, one canonical JSON row each
//
// Archived runs can be replayed: the stored template is recompiled, the
// stored input re-parsed, and the records digest compared with the original.
//
// # Ordering
//
//   - Runs are ordered by seq INTEGER (logical clock), NEVER timestamps
//   - All list queries use ORDER BY seq ASC, id ASC COLLATE BINARY
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Digests are computed via internal/ir/hash.go using RFC 8785 canonical
// JSON and SHA-256 with domain separation.
package store
