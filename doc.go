// Package golite is a memory-safe, type-safe interface to an embedded
// SQLite engine. It wraps the engine's error-code C interface behind
// ownership-scoped Go types: connections, prepared statements (with an LRU
// statement cache), row iterators, transaction and savepoint guards, typed
// value conversion, online backup, and incremental blob I/O.
//
// Every fallible engine call is checked and surfaced as a *Error carrying
// an ErrKind plus the engine's own result codes and message. Resources
// release exactly once and every release path is idempotent, so deferred
// Close calls are always safe.
//
// A Conn and everything derived from it belong to one goroutine at a time.
// Distinct connections are independent; to share one connection across
// goroutines, guard it with your own mutex. Interrupt is the one cross-
// goroutine call.
package golite
