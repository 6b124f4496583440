package golite

import (
	"io"

	"github.com/dshills/golite/internal/native"
)

// BlobIO is an incremental I/O handle on a single BLOB or TEXT cell. It
// implements io.Reader, io.Writer, io.Seeker, and io.Closer over the cell's
// bytes. The cell cannot grow; reserve space with a ZeroBlob bind and write
// into it.
type BlobIO struct {
	conn   *Conn
	b      *native.Blob
	size   int64
	off    int64
	closed bool
}

// OpenBlob opens the cell at db.table.column, row rowid, for incremental
// I/O. db is usually "main". writable selects read-write access.
func (c *Conn) OpenBlob(db, table, column string, rowid int64, writable bool) (*BlobIO, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	nb, err := native.BlobOpen(c.h, db, table, column, rowid, writable)
	if err != nil {
		return nil, mapNative(err)
	}
	b := &BlobIO{conn: c, b: nb, size: nb.Size()}
	c.blobs[b] = struct{}{}
	return b, nil
}

func (b *BlobIO) usable() error {
	if b.conn.closed {
		return contractErr(KindConnClosed, "blob used after connection Close")
	}
	if b.closed {
		return contractErr(KindMisuse, "blob used after Close")
	}
	return nil
}

// Size reports the cell's size in bytes.
func (b *BlobIO) Size() int64 { return b.size }

// Read implements io.Reader.
func (b *BlobIO) Read(p []byte) (int, error) {
	if err := b.usable(); err != nil {
		return 0, err
	}
	if b.off >= b.size {
		return 0, io.EOF
	}
	n := len(p)
	if rest := b.size - b.off; int64(n) > rest {
		n = int(rest)
	}
	if err := mapNative(b.b.ReadAt(p[:n], b.off)); err != nil {
		return 0, err
	}
	b.off += int64(n)
	return n, nil
}

// Write implements io.Writer. Writes past the end of the cell fail without
// writing anything; the cell cannot be resized through this handle.
func (b *BlobIO) Write(p []byte) (int, error) {
	if err := b.usable(); err != nil {
		return 0, err
	}
	if b.off+int64(len(p)) > b.size {
		return 0, contractErr(KindMisuse, "write past end of %d-byte blob", b.size)
	}
	if err := mapNative(b.b.WriteAt(p, b.off)); err != nil {
		return 0, err
	}
	b.off += int64(len(p))
	return len(p), nil
}

// Seek implements io.Seeker.
func (b *BlobIO) Seek(offset int64, whence int) (int64, error) {
	if err := b.usable(); err != nil {
		return 0, err
	}
	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = b.off + offset
	case io.SeekEnd:
		abs = b.size + offset
	default:
		return 0, contractErr(KindMisuse, "invalid seek whence %d", whence)
	}
	if abs < 0 {
		return 0, contractErr(KindMisuse, "seek before start of blob")
	}
	b.off = abs
	return abs, nil
}

// Reopen moves the handle to the same column of a different row and rewinds
// it, which is cheaper than closing and reopening.
func (b *BlobIO) Reopen(rowid int64) error {
	if err := b.usable(); err != nil {
		return err
	}
	if err := mapNative(b.b.Reopen(rowid)); err != nil {
		return err
	}
	b.size = b.b.Size()
	b.off = 0
	return nil
}

// Close releases the handle. The first call wins; subsequent calls are
// no-ops.
func (b *BlobIO) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	delete(b.conn.blobs, b)
	if b.conn.closed {
		return nil
	}
	return mapNative(b.b.Close())
}
