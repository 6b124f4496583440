package native

import (
	lib "modernc.org/sqlite/lib"
)

// Open flags, forwarded verbatim to sqlite3_open_v2.
const (
	OpenReadOnly     = int32(lib.SQLITE_OPEN_READONLY)
	OpenReadWrite    = int32(lib.SQLITE_OPEN_READWRITE)
	OpenCreate       = int32(lib.SQLITE_OPEN_CREATE)
	OpenURI          = int32(lib.SQLITE_OPEN_URI)
	OpenMemory       = int32(lib.SQLITE_OPEN_MEMORY)
	OpenNoMutex      = int32(lib.SQLITE_OPEN_NOMUTEX)
	OpenFullMutex    = int32(lib.SQLITE_OPEN_FULLMUTEX)
	OpenSharedCache  = int32(lib.SQLITE_OPEN_SHAREDCACHE)
	OpenPrivateCache = int32(lib.SQLITE_OPEN_PRIVATECACHE)
)

// Storage classes reported by sqlite3_column_type.
const (
	TypeInteger = int32(lib.SQLITE_INTEGER)
	TypeFloat   = int32(lib.SQLITE_FLOAT)
	TypeText    = int32(lib.SQLITE_TEXT)
	TypeBlob    = int32(lib.SQLITE_BLOB)
	TypeNull    = int32(lib.SQLITE_NULL)
)

// Primary result codes the layers above branch on. The full code set stays
// inside *Error; these are only the ones with dedicated handling.
const (
	ResultOK         = int32(lib.SQLITE_OK)
	ResultError      = int32(lib.SQLITE_ERROR)
	ResultBusy       = int32(lib.SQLITE_BUSY)
	ResultLocked     = int32(lib.SQLITE_LOCKED)
	ResultReadOnly   = int32(lib.SQLITE_READONLY)
	ResultConstraint = int32(lib.SQLITE_CONSTRAINT)
	ResultMismatch   = int32(lib.SQLITE_MISMATCH)
	ResultRange      = int32(lib.SQLITE_RANGE)
	ResultMisuse     = int32(lib.SQLITE_MISUSE)
	ResultInterrupt  = int32(lib.SQLITE_INTERRUPT)
	ResultRow        = int32(lib.SQLITE_ROW)
	ResultDone       = int32(lib.SQLITE_DONE)
)
