package native

import (
	"fmt"
	"sync"
	"unsafe"

	"modernc.org/libc"
	"modernc.org/libc/sys/types"
	lib "modernc.org/sqlite/lib"
)

// ptrSize is the size of a C object pointer slot.
const ptrSize = types.Size_t(unsafe.Sizeof(uintptr(0)))

var (
	initOnce   sync.Once
	initRC     int32
	threadMode int32
)

// initlib runs the one-time engine initialization and records the threading
// mode the engine was compiled with. sqlite3_initialize is cheap to call
// but the documentation asks for it to happen before any other interface.
func initlib(tls *libc.TLS) {
	initOnce.Do(func() {
		initRC = lib.Xsqlite3_initialize(tls)
		threadMode = lib.Xsqlite3_threadsafe(tls)
	})
}

// ThreadSafe reports whether the engine build carries mutex support.
// Connections are still opened NOMUTEX by default; the library's contract is
// single-owner confinement, and this check only verifies the build once.
func ThreadSafe() bool {
	tls := libc.NewTLS()
	defer tls.Close()
	initlib(tls)
	return threadMode != 0
}

// Error is a failed engine call: the primary result code, the extended
// result code, and the connection's diagnostic message at the time of the
// failure. The numeric codes and message are preserved verbatim.
type Error struct {
	Code     int32
	Extended int32
	Message  string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("sqlite error %d", e.Extended)
	}
	return fmt.Sprintf("%s (%d)", e.Message, e.Extended)
}

// Primary returns the primary (low 8 bits) result code.
func (e *Error) Primary() int32 { return e.Code & 0xff }

// Handle wraps one sqlite3* connection object together with the libc thread
// state it was created on. A Handle is confined to a single owner; it is
// closed exactly once.
type Handle struct {
	tls    *libc.TLS
	db     uintptr
	closed bool
}

// Open opens a connection with sqlite3_open_v2, forwarding flags verbatim,
// and enables extended result codes. On failure the partially opened object
// is released before returning.
func Open(path string, flags int32) (*Handle, error) {
	tls := libc.NewTLS()
	initlib(tls)
	if initRC != lib.SQLITE_OK {
		tls.Close()
		return nil, &Error{Code: initRC, Extended: initRC, Message: "engine initialization failed"}
	}

	cpath, err := libc.CString(path)
	if err != nil {
		tls.Close()
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer libc.Xfree(tls, cpath)

	dbPtr, err := malloc(tls, ptrSize)
	if err != nil {
		tls.Close()
		return nil, fmt.Errorf("open %q: %w", path, err)
	}
	defer libc.Xfree(tls, dbPtr)

	rc := lib.Xsqlite3_open_v2(tls, cpath, dbPtr, flags, 0)
	h := &Handle{tls: tls, db: *(*uintptr)(unsafe.Pointer(dbPtr))}
	if h.db == 0 {
		// Not even enough memory for the sqlite3 object itself.
		tls.Close()
		return nil, &Error{Code: rc, Extended: rc, Message: "out of memory"}
	}
	if rc != lib.SQLITE_OK {
		// open_v2 may return an object just so the error can be read off it.
		nerr := h.callError(rc)
		lib.Xsqlite3_close_v2(tls, h.db)
		tls.Close()
		return nil, nerr
	}
	lib.Xsqlite3_extended_result_codes(tls, h.db, 1)
	return h, nil
}

// Close releases the connection object and the thread state. The first call
// wins; subsequent calls are no-ops.
func (h *Handle) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	rc := lib.Xsqlite3_close(h.tls, h.db)
	var err error
	if rc != lib.SQLITE_OK {
		err = h.callError(rc)
		// A BUSY close means some derived object is still alive. Switch to
		// zombie close so the connection is reclaimed once they are gone.
		if rc == lib.SQLITE_BUSY {
			lib.Xsqlite3_close_v2(h.tls, h.db)
		}
	}
	h.db = 0
	h.tls.Close()
	h.tls = nil
	return err
}

// Closed reports whether Close has run.
func (h *Handle) Closed() bool { return h.closed }

// Exec runs zero or more SQL statements with sqlite3_exec, discarding any
// produced rows and stopping on the first failure.
func (h *Handle) Exec(sql string) error {
	csql, err := libc.CString(sql)
	if err != nil {
		return fmt.Errorf("exec: %w", err)
	}
	defer libc.Xfree(h.tls, csql)
	if rc := lib.Xsqlite3_exec(h.tls, h.db, csql, 0, 0, 0); rc != lib.SQLITE_OK {
		return h.callError(rc)
	}
	return nil
}

// Prepare compiles the first statement in sql with sqlite3_prepare_v3.
// persistent hints the engine that the statement will be reused and kept.
// trailing reports the number of bytes of sql after the compiled statement.
// A nil *Stmt with nil error means sql held only whitespace or comments.
func (h *Handle) Prepare(sql string, persistent bool) (stmt *Stmt, trailing int, err error) {
	csql, err := libc.CString(sql)
	if err != nil {
		return nil, 0, fmt.Errorf("prepare: %w", err)
	}
	defer libc.Xfree(h.tls, csql)

	stmtPtr, err := malloc(h.tls, ptrSize)
	if err != nil {
		return nil, 0, fmt.Errorf("prepare: %w", err)
	}
	defer libc.Xfree(h.tls, stmtPtr)
	tailPtr, err := malloc(h.tls, ptrSize)
	if err != nil {
		return nil, 0, fmt.Errorf("prepare: %w", err)
	}
	defer libc.Xfree(h.tls, tailPtr)

	var flags uint32
	if persistent {
		flags = lib.SQLITE_PREPARE_PERSISTENT
	}
	rc := lib.Xsqlite3_prepare_v3(h.tls, h.db, csql, -1, flags, stmtPtr, tailPtr)
	if rc != lib.SQLITE_OK {
		return nil, 0, h.callError(rc)
	}

	tail := *(*uintptr)(unsafe.Pointer(tailPtr))
	trailing = len(sql) - int(tail-csql)

	p := *(*uintptr)(unsafe.Pointer(stmtPtr))
	if p == 0 {
		return nil, trailing, nil
	}
	return &Stmt{h: h, stmt: p}, trailing, nil
}

// BusyTimeout installs the engine's built-in busy handler with the given
// interval in milliseconds. Non-positive disables busy waiting.
func (h *Handle) BusyTimeout(ms int) {
	lib.Xsqlite3_busy_timeout(h.tls, h.db, int32(ms))
}

// Interrupt aborts any in-flight operation on the connection. Safe to call
// from another goroutine while an operation is blocked, but not after Close.
func (h *Handle) Interrupt() {
	lib.Xsqlite3_interrupt(h.tls, h.db)
}

// Changes reports the number of rows modified by the most recent statement.
func (h *Handle) Changes() int64 {
	return int64(lib.Xsqlite3_changes(h.tls, h.db))
}

// LastInsertRowID reports the rowid of the most recent successful INSERT.
func (h *Handle) LastInsertRowID() int64 {
	return lib.Xsqlite3_last_insert_rowid(h.tls, h.db)
}

// Autocommit reports whether the connection is outside an explicit
// transaction.
func (h *Handle) Autocommit() bool {
	return lib.Xsqlite3_get_autocommit(h.tls, h.db) != 0
}

// Readonly reports whether the named database ("main" for the primary one)
// was opened read-only.
func (h *Handle) Readonly(db string) bool {
	cdb, err := libc.CString(db)
	if err != nil {
		return false
	}
	defer libc.Xfree(h.tls, cdb)
	return lib.Xsqlite3_db_readonly(h.tls, h.db, cdb) == 1
}

// callError reads the extended code and message off the connection for a
// failed call that returned rc.
func (h *Handle) callError(rc int32) *Error {
	e := &Error{Code: rc & 0xff, Extended: rc}
	if ext := lib.Xsqlite3_extended_errcode(h.tls, h.db); ext != 0 {
		e.Extended = ext
		e.Code = ext & 0xff
	}
	if p := lib.Xsqlite3_errmsg(h.tls, h.db); p != 0 {
		e.Message = libc.GoString(p)
	} else if p := lib.Xsqlite3_errstr(h.tls, rc); p != 0 {
		e.Message = libc.GoString(p)
	}
	return e
}

func malloc(tls *libc.TLS, n types.Size_t) (uintptr, error) {
	p := libc.Xmalloc(tls, n)
	if p == 0 {
		return 0, fmt.Errorf("out of memory")
	}
	return p, nil
}

func goStringN(p uintptr, n int) string {
	if p == 0 || n <= 0 {
		return ""
	}
	return string(unsafe.Slice((*byte)(unsafe.Pointer(p)), n))
}

// cFuncPointer converts a top-level function to a C function pointer using
// the layout described in https://golang.org/s/go11func. Closures must not
// be passed.
func cFuncPointer[T any](f T) uintptr {
	return *(*uintptr)(unsafe.Pointer(&struct{ f T }{f}))
}

var freeFuncPtr = cFuncPointer(libc.Xfree)

func mustCString(s string) uintptr {
	p, err := libc.CString(s)
	if err != nil {
		panic(err)
	}
	return p
}

var emptyCString = mustCString("")
