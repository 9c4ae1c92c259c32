// Package engine drives input lines through a compiled state table.
//
// The Interpreter is a synchronous, single-goroutine state machine. For each
// line it evaluates the current state's rules in order; a matching rule
// binds its captures into the current record, then applies its record action
// (Record, Clear, Clearall) and its line action (Next, Continue, a new
// state, or Error).
//
// Record gating: a Record action emits the current record only if at least
// one value was assigned since the record started and every Required value is
// present. Otherwise the action is a no-op and the current record is kept.
//
// Filldown values survive Record and Clear; Clearall resets them.
//
// End of input: unless the state is End, the interpreter switches to EOF and
// evaluates one empty line there. Without a template-defined EOF state that
// line matches a catch-all rule that attempts a final Record.
//
// A compiled StateTable is immutable and may be shared by any number of
// interpreters. An Interpreter itself is not safe for concurrent use.
package engine
