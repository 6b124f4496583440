package golite

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBlobTable(t *testing.T, conn *Conn, sizes ...int64) []int64 {
	t.Helper()
	require.NoError(t, conn.ExecuteBatch("CREATE TABLE files (data BLOB)"))
	rowids := make([]int64, 0, len(sizes))
	for _, n := range sizes {
		_, err := conn.Execute("INSERT INTO files (data) VALUES (?)", ZeroBlob(n))
		require.NoError(t, err)
		rowids = append(rowids, conn.LastInsertRowID())
	}
	return rowids
}

func TestBlobWriteRead(t *testing.T) {
	conn := setupConn(t)
	rowids := setupBlobTable(t, conn, 16)

	blob, err := conn.OpenBlob("main", "files", "data", rowids[0], true)
	require.NoError(t, err)
	defer blob.Close()
	assert.Equal(t, int64(16), blob.Size())

	payload := []byte("0123456789abcdef")
	n, err := blob.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, 16, n)

	_, err = blob.Seek(0, io.SeekStart)
	require.NoError(t, err)
	got, err := io.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// The written bytes are visible through a plain query too.
	var stored []byte
	require.NoError(t, conn.QueryRow("SELECT data FROM files WHERE rowid = ?", []any{rowids[0]}, &stored))
	assert.Equal(t, payload, stored)
}

func TestBlobZeroBlobReservesZeros(t *testing.T) {
	conn := setupConn(t)
	rowids := setupBlobTable(t, conn, 8)

	blob, err := conn.OpenBlob("main", "files", "data", rowids[0], false)
	require.NoError(t, err)
	defer blob.Close()

	got, err := io.ReadAll(blob)
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{0}, 8), got)
}

func TestBlobCannotGrow(t *testing.T) {
	conn := setupConn(t)
	rowids := setupBlobTable(t, conn, 4)

	blob, err := conn.OpenBlob("main", "files", "data", rowids[0], true)
	require.NoError(t, err)
	defer blob.Close()

	_, err = blob.Write([]byte("12345"))
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindMisuse, kind)

	// A partial write inside the cell still works.
	n, err := blob.Write([]byte("1234"))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestBlobReadOnlyHandleRejectsWrites(t *testing.T) {
	conn := setupConn(t)
	rowids := setupBlobTable(t, conn, 4)

	blob, err := conn.OpenBlob("main", "files", "data", rowids[0], false)
	require.NoError(t, err)
	defer blob.Close()

	_, err = blob.Write([]byte("1234"))
	require.Error(t, err)
}

func TestBlobSeek(t *testing.T) {
	conn := setupConn(t)
	rowids := setupBlobTable(t, conn, 10)

	blob, err := conn.OpenBlob("main", "files", "data", rowids[0], true)
	require.NoError(t, err)
	defer blob.Close()

	_, err = blob.Write([]byte("0123456789"))
	require.NoError(t, err)

	pos, err := blob.Seek(-4, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(6), pos)

	buf := make([]byte, 4)
	n, err := blob.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("6789"), buf)

	_, err = blob.Read(buf)
	assert.Equal(t, io.EOF, err)

	_, err = blob.Seek(-1, io.SeekStart)
	require.Error(t, err)
}

func TestBlobReopen(t *testing.T) {
	conn := setupConn(t)
	rowids := setupBlobTable(t, conn, 4, 6)

	blob, err := conn.OpenBlob("main", "files", "data", rowids[0], true)
	require.NoError(t, err)
	defer blob.Close()

	_, err = blob.Write([]byte("aaaa"))
	require.NoError(t, err)

	require.NoError(t, blob.Reopen(rowids[1]))
	assert.Equal(t, int64(6), blob.Size())
	_, err = blob.Write([]byte("bbbbbb"))
	require.NoError(t, err)

	var first, second []byte
	require.NoError(t, conn.QueryRow("SELECT data FROM files WHERE rowid = ?", []any{rowids[0]}, &first))
	require.NoError(t, conn.QueryRow("SELECT data FROM files WHERE rowid = ?", []any{rowids[1]}, &second))
	assert.Equal(t, []byte("aaaa"), first)
	assert.Equal(t, []byte("bbbbbb"), second)
}

func TestBlobCloseIdempotent(t *testing.T) {
	conn := setupConn(t)
	rowids := setupBlobTable(t, conn, 1)

	blob, err := conn.OpenBlob("main", "files", "data", rowids[0], false)
	require.NoError(t, err)
	require.NoError(t, blob.Close())
	require.NoError(t, blob.Close())

	_, err = blob.Read(make([]byte, 1))
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindMisuse, kind)
}

func TestBlobAfterConnClose(t *testing.T) {
	conn := setupConn(t)
	rowids := setupBlobTable(t, conn, 4)

	blob, err := conn.OpenBlob("main", "files", "data", rowids[0], true)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	buf := make([]byte, 4)
	require.NotPanics(t, func() {
		_, err = blob.Read(buf)
	})
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindConnClosed, kind)

	_, err = blob.Write(buf)
	kind, _ = KindOf(err)
	assert.Equal(t, KindConnClosed, kind)

	_, err = blob.Seek(0, io.SeekStart)
	kind, _ = KindOf(err)
	assert.Equal(t, KindConnClosed, kind)

	err = blob.Reopen(rowids[0])
	kind, _ = KindOf(err)
	assert.Equal(t, KindConnClosed, kind)

	require.NoError(t, blob.Close())
}

func TestBlobOpenMissingRow(t *testing.T) {
	conn := setupConn(t)
	setupBlobTable(t, conn, 1)

	_, err := conn.OpenBlob("main", "files", "data", 999, false)
	require.Error(t, err)
}
