// Package ir provides the shared data types for textfsm: the template AST
// produced by the front end and the record model produced by the engine.
//
// This package contains type definitions and their value-level operations
// only. All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - A Value is exactly one of Scalar or List (sealed interface)
//   - A Record never holds a List where its declaration says Scalar
//   - Output ordering is the order records were finished, never sorted
//   - Canonical JSON (sorted keys, NFC strings) is the only form used for digests
package ir
