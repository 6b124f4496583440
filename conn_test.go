package golite

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupConn(t *testing.T) *Conn {
	t.Helper()
	conn, err := OpenInMemory()
	require.NoError(t, err)
	require.NotNil(t, conn)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func setupPeopleTable(t *testing.T, conn *Conn) {
	t.Helper()
	err := conn.ExecuteBatch(`
		CREATE TABLE people (
			id INTEGER PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			age INTEGER
		);
	`)
	require.NoError(t, err)
}

func TestOpenInMemory(t *testing.T) {
	conn := setupConn(t)
	assert.False(t, conn.Readonly())
	assert.False(t, conn.InTransaction())
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	conn, err := Open(path, 0)
	require.NoError(t, err)
	setupPeopleTable(t, conn)
	_, err = conn.Execute("INSERT INTO people (name, age) VALUES (?, ?)", "alice", 30)
	require.NoError(t, err)
	require.NoError(t, conn.Close())

	// Reopen read-only and verify the row survived.
	ro, err := Open(path, OpenReadOnly)
	require.NoError(t, err)
	defer ro.Close()
	assert.True(t, ro.Readonly())

	var name string
	err = ro.QueryRow("SELECT name FROM people WHERE age = ?", []any{30}, &name)
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	_, err = ro.Execute("INSERT INTO people (name) VALUES ('bob')")
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindReadOnly, kind)
}

func TestOpenMissingReadOnly(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.db"), OpenReadOnly)
	require.Error(t, err)
}

func TestCloseIdempotent(t *testing.T) {
	conn := setupConn(t)
	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())

	err := conn.ExecuteBatch("SELECT 1")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindConnClosed, kind)

	_, err = conn.Prepare("SELECT 1")
	kind, _ = KindOf(err)
	assert.Equal(t, KindConnClosed, kind)
}

func TestCloseFinalizesOpenStatements(t *testing.T) {
	conn := setupConn(t)
	stmt, err := conn.Prepare("SELECT 1")
	require.NoError(t, err)
	cached, err := conn.PrepareCached("SELECT 2")
	require.NoError(t, err)

	require.NoError(t, conn.Close())
	require.NoError(t, stmt.Close())
	require.NoError(t, cached.Close())
}

func TestExecuteBatch(t *testing.T) {
	conn := setupConn(t)
	err := conn.ExecuteBatch(`
		CREATE TABLE a (x INTEGER);
		CREATE TABLE b (y INTEGER);
		INSERT INTO a VALUES (1);
		INSERT INTO b VALUES (2);
	`)
	require.NoError(t, err)

	var x, y int64
	require.NoError(t, conn.QueryRow("SELECT x FROM a", nil, &x))
	require.NoError(t, conn.QueryRow("SELECT y FROM b", nil, &y))
	assert.Equal(t, int64(1), x)
	assert.Equal(t, int64(2), y)

	// Batch stops at the first failing statement.
	err = conn.ExecuteBatch("INSERT INTO a VALUES (3); INSERT INTO nope VALUES (4);")
	require.Error(t, err)
	var n int64
	require.NoError(t, conn.QueryRow("SELECT count(*) FROM a", nil, &n))
	assert.Equal(t, int64(2), n)
}

func TestExecute(t *testing.T) {
	conn := setupConn(t)
	setupPeopleTable(t, conn)

	n, err := conn.Execute("INSERT INTO people (name, age) VALUES (?, ?)", "alice", 30)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), conn.LastInsertRowID())

	n, err = conn.Execute("UPDATE people SET age = age + 1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), conn.Changes())
}

func TestPrepareRejectsEmptyAndMulti(t *testing.T) {
	conn := setupConn(t)

	_, err := conn.Prepare("")
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindMisuse, kind)

	_, err = conn.Prepare("   \n\t")
	kind, _ = KindOf(err)
	assert.Equal(t, KindMisuse, kind)

	_, err = conn.Prepare("-- just a comment")
	kind, _ = KindOf(err)
	assert.Equal(t, KindMisuse, kind)

	_, err = conn.Prepare("SELECT 1; SELECT 2")
	kind, _ = KindOf(err)
	assert.Equal(t, KindMisuse, kind)

	// A single statement with a trailing semicolon is fine.
	stmt, err := conn.Prepare("SELECT 1;")
	require.NoError(t, err)
	require.NoError(t, stmt.Close())
}

func TestPrepareSyntaxError(t *testing.T) {
	conn := setupConn(t)
	_, err := conn.Prepare("SELEC 1")
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindEngine, kind)

	var e *Error
	require.ErrorAs(t, err, &e)
	assert.NotZero(t, e.Code)
	assert.NotEmpty(t, e.Message)
}

func TestBusyReported(t *testing.T) {
	path := filepath.Join(t.TempDir(), "busy.db")
	a, err := Open(path, 0)
	require.NoError(t, err)
	defer a.Close()
	b, err := Open(path, 0)
	require.NoError(t, err)
	defer b.Close()

	setupPeopleTable(t, a)

	tx, err := a.Begin(Exclusive)
	require.NoError(t, err)
	defer tx.Rollback()

	_, err = b.Execute("INSERT INTO people (name) VALUES ('bob')")
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindBusy, kind)
}

func TestSetBusyTimeout(t *testing.T) {
	conn := setupConn(t)
	require.NoError(t, conn.SetBusyTimeout(50*time.Millisecond))
	require.NoError(t, conn.SetBusyTimeout(0))
}

func TestForeignKeysOption(t *testing.T) {
	conn, err := OpenInMemory(WithForeignKeys())
	require.NoError(t, err)
	defer conn.Close()

	err = conn.ExecuteBatch(`
		CREATE TABLE parent (id INTEGER PRIMARY KEY);
		CREATE TABLE child (pid INTEGER REFERENCES parent(id));
	`)
	require.NoError(t, err)

	_, err = conn.Execute("INSERT INTO child (pid) VALUES (42)")
	require.Error(t, err)
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindConstraint, kind)
}
