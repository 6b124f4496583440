package native

import (
	"unsafe"

	"modernc.org/libc"
	"modernc.org/libc/sys/types"
	lib "modernc.org/sqlite/lib"
)

// Stmt wraps one sqlite3_stmt* object. The statement belongs to exactly one
// owner at a time and must be finalized before its Handle is closed.
type Stmt struct {
	h         *Handle
	stmt      uintptr
	finalized bool
}

// Finalize releases the statement object. The first call wins; subsequent
// calls are no-ops. The error, if any, reflects the most recent evaluation
// of the statement and is usually ignorable during cleanup.
func (s *Stmt) Finalize() error {
	if s.finalized {
		return nil
	}
	s.finalized = true
	rc := lib.Xsqlite3_finalize(s.h.tls, s.stmt)
	s.stmt = 0
	if rc != lib.SQLITE_OK {
		return s.h.callError(rc)
	}
	return nil
}

// Finalized reports whether Finalize has run.
func (s *Stmt) Finalized() bool { return s.finalized }

// Step evaluates the statement. row is true for SQLITE_ROW, false for
// SQLITE_DONE; any other code resets the statement and returns the error.
func (s *Stmt) Step() (row bool, err error) {
	switch rc := lib.Xsqlite3_step(s.h.tls, s.stmt); rc & 0xff {
	case ResultRow:
		return true, nil
	case ResultDone:
		return false, nil
	default:
		err := s.h.callError(rc)
		lib.Xsqlite3_reset(s.h.tls, s.stmt)
		return false, err
	}
}

// Reset rewinds the statement so it can be evaluated again. Bound parameter
// values are retained.
func (s *Stmt) Reset() error {
	if rc := lib.Xsqlite3_reset(s.h.tls, s.stmt); rc != lib.SQLITE_OK {
		return s.h.callError(rc)
	}
	return nil
}

// ClearBindings sets every parameter back to NULL.
func (s *Stmt) ClearBindings() error {
	if rc := lib.Xsqlite3_clear_bindings(s.h.tls, s.stmt); rc != lib.SQLITE_OK {
		return s.h.callError(rc)
	}
	return nil
}

// BindParameterCount reports the number of parameters (the largest ?NNN
// index for numbered parameters).
func (s *Stmt) BindParameterCount() int {
	return int(lib.Xsqlite3_bind_parameter_count(s.h.tls, s.stmt))
}

// BindParameterName returns the name of the 1-based parameter i, or "" for
// a nameless parameter. The name includes its prefix character.
func (s *Stmt) BindParameterName(i int) string {
	p := lib.Xsqlite3_bind_parameter_name(s.h.tls, s.stmt, int32(i))
	if p == 0 {
		return ""
	}
	return libc.GoString(p)
}

// BindParameterIndex returns the 1-based index of the named parameter, or 0
// when no parameter has that name. The name must include its prefix.
func (s *Stmt) BindParameterIndex(name string) int {
	cname, err := libc.CString(name)
	if err != nil {
		return 0
	}
	defer libc.Xfree(s.h.tls, cname)
	return int(lib.Xsqlite3_bind_parameter_index(s.h.tls, s.stmt, cname))
}

// BindInt64 binds v to the 1-based parameter i.
func (s *Stmt) BindInt64(i int, v int64) error {
	if rc := lib.Xsqlite3_bind_int64(s.h.tls, s.stmt, int32(i), v); rc != lib.SQLITE_OK {
		return s.h.callError(rc)
	}
	return nil
}

// BindDouble binds v to the 1-based parameter i.
func (s *Stmt) BindDouble(i int, v float64) error {
	if rc := lib.Xsqlite3_bind_double(s.h.tls, s.stmt, int32(i), v); rc != lib.SQLITE_OK {
		return s.h.callError(rc)
	}
	return nil
}

// BindNull binds NULL to the 1-based parameter i.
func (s *Stmt) BindNull(i int) error {
	if rc := lib.Xsqlite3_bind_null(s.h.tls, s.stmt, int32(i)); rc != lib.SQLITE_OK {
		return s.h.callError(rc)
	}
	return nil
}

// BindText binds v to the 1-based parameter i. The bytes are copied into
// engine-owned memory that the engine frees.
func (s *Stmt) BindText(i int, v string) error {
	n := types.Size_t(len(v))
	if n == 0 {
		n = 1
	}
	p, err := malloc(s.h.tls, n)
	if err != nil {
		return err
	}
	copyIn(p, []byte(v))
	if rc := lib.Xsqlite3_bind_text(s.h.tls, s.stmt, int32(i), p, int32(len(v)), freeFuncPtr); rc != lib.SQLITE_OK {
		return s.h.callError(rc)
	}
	return nil
}

// BindBlob binds v to the 1-based parameter i. The bytes are copied into
// engine-owned memory that the engine frees. A nil or empty slice binds a
// zero-length blob, not NULL.
func (s *Stmt) BindBlob(i int, v []byte) error {
	if len(v) == 0 {
		if rc := lib.Xsqlite3_bind_blob(s.h.tls, s.stmt, int32(i), emptyCString, 0, 0); rc != lib.SQLITE_OK {
			return s.h.callError(rc)
		}
		return nil
	}
	p, err := malloc(s.h.tls, types.Size_t(len(v)))
	if err != nil {
		return err
	}
	copyIn(p, v)
	if rc := lib.Xsqlite3_bind_blob(s.h.tls, s.stmt, int32(i), p, int32(len(v)), freeFuncPtr); rc != lib.SQLITE_OK {
		return s.h.callError(rc)
	}
	return nil
}

// BindZeroBlob binds a blob of n zero bytes to the 1-based parameter i,
// reserving space for later incremental writes.
func (s *Stmt) BindZeroBlob(i int, n int64) error {
	if rc := lib.Xsqlite3_bind_zeroblob64(s.h.tls, s.stmt, int32(i), uint64(n)); rc != lib.SQLITE_OK {
		return s.h.callError(rc)
	}
	return nil
}

// ColumnCount reports the number of columns the statement produces.
func (s *Stmt) ColumnCount() int {
	return int(lib.Xsqlite3_column_count(s.h.tls, s.stmt))
}

// DataCount reports the number of columns in the current row, zero when no
// row is available.
func (s *Stmt) DataCount() int {
	return int(lib.Xsqlite3_data_count(s.h.tls, s.stmt))
}

// ColumnName returns the name of the 0-based column i.
func (s *Stmt) ColumnName(i int) string {
	p := lib.Xsqlite3_column_name(s.h.tls, s.stmt, int32(i))
	if p == 0 {
		return ""
	}
	return libc.GoString(p)
}

// ColumnType reports the storage class of column i in the current row.
func (s *Stmt) ColumnType(i int) int32 {
	return lib.Xsqlite3_column_type(s.h.tls, s.stmt, int32(i))
}

// ColumnInt64 reads column i of the current row as an integer.
func (s *Stmt) ColumnInt64(i int) int64 {
	return lib.Xsqlite3_column_int64(s.h.tls, s.stmt, int32(i))
}

// ColumnDouble reads column i of the current row as a float.
func (s *Stmt) ColumnDouble(i int) float64 {
	return lib.Xsqlite3_column_double(s.h.tls, s.stmt, int32(i))
}

// ColumnText reads column i of the current row as a string. The bytes are
// copied out of engine memory before returning.
func (s *Stmt) ColumnText(i int) string {
	p := lib.Xsqlite3_column_text(s.h.tls, s.stmt, int32(i))
	n := int(lib.Xsqlite3_column_bytes(s.h.tls, s.stmt, int32(i)))
	return goStringN(p, n)
}

// ColumnBlob reads column i of the current row as a byte slice. The bytes
// are copied out of engine memory before returning.
func (s *Stmt) ColumnBlob(i int) []byte {
	p := lib.Xsqlite3_column_blob(s.h.tls, s.stmt, int32(i))
	if p == 0 {
		return nil
	}
	n := int(lib.Xsqlite3_column_bytes(s.h.tls, s.stmt, int32(i)))
	out := make([]byte, n)
	copy(out, libc.GoBytes(p, n))
	return out
}

func copyIn(p uintptr, b []byte) {
	copy(unsafe.Slice((*byte)(unsafe.Pointer(p)), len(b)), b)
}
