package native

import (
	"unsafe"

	"modernc.org/libc"
	"modernc.org/libc/sys/types"
	lib "modernc.org/sqlite/lib"
)

// Backup wraps one sqlite3_backup object copying pages from a source
// connection's database into a destination connection's database.
type Backup struct {
	dst      *Handle
	p        uintptr
	finished bool
}

// BackupInit starts an online backup of src.srcName into dst.dstName. The
// database names are usually "main". On failure the error is read off the
// destination connection, per the backup API contract.
func BackupInit(dst *Handle, dstName string, src *Handle, srcName string) (*Backup, error) {
	cdst, err := libc.CString(dstName)
	if err != nil {
		return nil, err
	}
	defer libc.Xfree(dst.tls, cdst)
	csrc, err := libc.CString(srcName)
	if err != nil {
		return nil, err
	}
	defer libc.Xfree(dst.tls, csrc)

	p := lib.Xsqlite3_backup_init(dst.tls, dst.db, cdst, src.db, csrc)
	if p == 0 {
		return nil, dst.callError(lib.Xsqlite3_errcode(dst.tls, dst.db))
	}
	return &Backup{dst: dst, p: p}, nil
}

// Step copies up to n pages (all remaining pages when n < 0). done is true
// once the source has been fully copied. Busy and Locked conditions are
// returned as errors; the backup object stays valid and Step may be called
// again.
func (b *Backup) Step(n int) (done bool, err error) {
	switch rc := lib.Xsqlite3_backup_step(b.dst.tls, b.p, int32(n)); rc & 0xff {
	case ResultOK:
		return false, nil
	case ResultDone:
		return true, nil
	default:
		return false, b.dst.callError(rc)
	}
}

// Remaining reports the number of pages still to be copied after the most
// recent Step.
func (b *Backup) Remaining() int {
	return int(lib.Xsqlite3_backup_remaining(b.dst.tls, b.p))
}

// PageCount reports the total page count of the source database as of the
// most recent Step.
func (b *Backup) PageCount() int {
	return int(lib.Xsqlite3_backup_pagecount(b.dst.tls, b.p))
}

// Finish releases the backup object. The first call wins; subsequent calls
// are no-ops. The returned error reflects any earlier Step failure.
func (b *Backup) Finish() error {
	if b.finished {
		return nil
	}
	b.finished = true
	rc := lib.Xsqlite3_backup_finish(b.dst.tls, b.p)
	b.p = 0
	if rc != lib.SQLITE_OK {
		return b.dst.callError(rc)
	}
	return nil
}

// Blob wraps one sqlite3_blob object opened for incremental I/O on a single
// BLOB or TEXT cell.
type Blob struct {
	h      *Handle
	p      uintptr
	closed bool
}

// BlobOpen opens the cell located by db.table.column at rowid for
// incremental I/O. writable selects read-write access.
func BlobOpen(h *Handle, db, table, column string, rowid int64, writable bool) (*Blob, error) {
	cdb, err := libc.CString(db)
	if err != nil {
		return nil, err
	}
	defer libc.Xfree(h.tls, cdb)
	ctable, err := libc.CString(table)
	if err != nil {
		return nil, err
	}
	defer libc.Xfree(h.tls, ctable)
	ccolumn, err := libc.CString(column)
	if err != nil {
		return nil, err
	}
	defer libc.Xfree(h.tls, ccolumn)

	blobPtr, err := malloc(h.tls, ptrSize)
	if err != nil {
		return nil, err
	}
	defer libc.Xfree(h.tls, blobPtr)

	var flags int32
	if writable {
		flags = 1
	}
	rc := lib.Xsqlite3_blob_open(h.tls, h.db, cdb, ctable, ccolumn, rowid, flags, blobPtr)
	if rc != lib.SQLITE_OK {
		return nil, h.callError(rc)
	}
	return &Blob{h: h, p: *(*uintptr)(unsafe.Pointer(blobPtr))}, nil
}

// Size reports the size in bytes of the open cell.
func (b *Blob) Size() int64 {
	return int64(lib.Xsqlite3_blob_bytes(b.h.tls, b.p))
}

// ReadAt copies len(buf) bytes starting at off into buf.
func (b *Blob) ReadAt(buf []byte, off int64) error {
	if len(buf) == 0 {
		return nil
	}
	p, err := malloc(b.h.tls, types.Size_t(len(buf)))
	if err != nil {
		return err
	}
	defer libc.Xfree(b.h.tls, p)
	if rc := lib.Xsqlite3_blob_read(b.h.tls, b.p, p, int32(len(buf)), int32(off)); rc != lib.SQLITE_OK {
		return b.h.callError(rc)
	}
	copy(buf, libc.GoBytes(p, len(buf)))
	return nil
}

// WriteAt copies buf into the cell starting at off. The cell cannot grow;
// writes past the end fail.
func (b *Blob) WriteAt(buf []byte, off int64) error {
	if len(buf) == 0 {
		return nil
	}
	p, err := malloc(b.h.tls, types.Size_t(len(buf)))
	if err != nil {
		return err
	}
	defer libc.Xfree(b.h.tls, p)
	copyIn(p, buf)
	if rc := lib.Xsqlite3_blob_write(b.h.tls, b.p, p, int32(len(buf)), int32(off)); rc != lib.SQLITE_OK {
		return b.h.callError(rc)
	}
	return nil
}

// Reopen moves the handle to the same column of a different row, which is
// cheaper than closing and reopening.
func (b *Blob) Reopen(rowid int64) error {
	if rc := lib.Xsqlite3_blob_reopen(b.h.tls, b.p, rowid); rc != lib.SQLITE_OK {
		return b.h.callError(rc)
	}
	return nil
}

// Close releases the blob object. The first call wins; subsequent calls are
// no-ops.
func (b *Blob) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	rc := lib.Xsqlite3_blob_close(b.h.tls, b.p)
	b.p = 0
	if rc != lib.SQLITE_OK {
		return b.h.callError(rc)
	}
	return nil
}
