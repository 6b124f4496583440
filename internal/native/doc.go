// Package native owns the raw SQLite objects: the sqlite3* connection
// handle, sqlite3_stmt* statement handles, and the backup and blob handles
// derived from them. It is the only package that talks to
// modernc.org/sqlite/lib and the only one that handles C memory.
//
// Every function checks the engine's result code and converts failures into
// *Error values carrying the primary code, the extended code, and the
// engine's diagnostic message unmodified. Callers above this package never
// see a raw result code.
//
// Handles are single-owner and not safe for concurrent use. Close and
// Finalize release the underlying object exactly once; calling them again
// is a no-op.
package native
