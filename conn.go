package golite

import (
	"strings"
	"sync"
	"time"

	"github.com/dshills/golite/internal/native"
)

// OpenFlags select how Open creates the connection. They are forwarded
// verbatim to the engine.
type OpenFlags int32

const (
	OpenReadOnly     = OpenFlags(native.OpenReadOnly)
	OpenReadWrite    = OpenFlags(native.OpenReadWrite)
	OpenCreate       = OpenFlags(native.OpenCreate)
	OpenURI          = OpenFlags(native.OpenURI)
	OpenMemory       = OpenFlags(native.OpenMemory)
	OpenNoMutex      = OpenFlags(native.OpenNoMutex)
	OpenFullMutex    = OpenFlags(native.OpenFullMutex)
	OpenSharedCache  = OpenFlags(native.OpenSharedCache)
	OpenPrivateCache = OpenFlags(native.OpenPrivateCache)
)

// DefaultOpenFlags create the database when missing and open it for
// writing.
const DefaultOpenFlags = OpenReadWrite | OpenCreate

// Option configures a connection at Open time.
type Option func(*config)

type config struct {
	busyTimeout   time.Duration
	cacheCapacity int
	foreignKeys   bool
}

// WithBusyTimeout installs the engine's busy handler so lock contention
// waits up to d before reporting Busy.
func WithBusyTimeout(d time.Duration) Option {
	return func(c *config) { c.busyTimeout = d }
}

// WithCacheCapacity sets the prepared statement cache capacity.
// Non-positive disables the cache.
func WithCacheCapacity(n int) Option {
	return func(c *config) { c.cacheCapacity = n }
}

// WithForeignKeys turns foreign key enforcement on at open.
func WithForeignKeys() Option {
	return func(c *config) { c.foreignKeys = true }
}

var (
	threadOnce sync.Once
	threadOK   bool
)

// ensureThreadSafe verifies once per process that the engine build carries
// mutex support. Connections are still single-owner; the check only
// guarantees that distinct connections may live on distinct goroutines.
func ensureThreadSafe() error {
	threadOnce.Do(func() { threadOK = native.ThreadSafe() })
	if !threadOK {
		return contractErr(KindMisuse, "engine built without thread safety")
	}
	return nil
}

// Conn is one database connection. A Conn and everything derived from it
// (statements, rows, transactions, backups, blobs) belong to a single
// goroutine at a time; wrap the Conn in your own mutex to share it.
type Conn struct {
	h       *native.Handle
	cache   *stmtCache
	stmts   map[*Stmt]struct{}
	backups map[*Backup]struct{}
	blobs   map[*BlobIO]struct{}
	tx      *Tx
	closed  bool
}

// Open opens the database at path. Zero flags mean DefaultOpenFlags. The
// connection is opened without engine-level mutexes unless OpenFullMutex is
// passed, per the single-owner contract.
func Open(path string, flags OpenFlags, opts ...Option) (*Conn, error) {
	if err := ensureThreadSafe(); err != nil {
		return nil, err
	}
	cfg := config{cacheCapacity: DefaultCacheCapacity}
	for _, o := range opts {
		o(&cfg)
	}
	if flags == 0 {
		flags = DefaultOpenFlags
	}
	if flags&OpenFullMutex == 0 {
		flags |= OpenNoMutex
	}
	h, err := native.Open(path, int32(flags))
	if err != nil {
		return nil, mapNative(err)
	}
	c := &Conn{
		h:       h,
		cache:   newStmtCache(cfg.cacheCapacity),
		stmts:   make(map[*Stmt]struct{}),
		backups: make(map[*Backup]struct{}),
		blobs:   make(map[*BlobIO]struct{}),
	}
	if cfg.busyTimeout > 0 {
		h.BusyTimeout(int(cfg.busyTimeout / time.Millisecond))
	}
	if cfg.foreignKeys {
		if err := h.Exec("PRAGMA foreign_keys = ON;"); err != nil {
			h.Close()
			return nil, mapNative(err)
		}
	}
	return c, nil
}

// OpenInMemory opens a fresh private in-memory database.
func OpenInMemory(opts ...Option) (*Conn, error) {
	return Open(":memory:", DefaultOpenFlags|OpenMemory, opts...)
}

func (c *Conn) usable() error {
	if c.closed {
		return contractErr(KindConnClosed, "connection used after Close")
	}
	return nil
}

// Close finalizes every open statement and resident cache entry, then
// releases the connection. The first call wins; subsequent calls are
// no-ops.
func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	// Derived objects go first so the handle itself can close cleanly.
	for b := range c.backups {
		b.closed = true
		delete(b.src.backups, b)
		delete(b.dst.backups, b)
		b.b.Finish()
	}
	c.backups = nil
	for b := range c.blobs {
		b.closed = true
		b.b.Close()
	}
	c.blobs = nil
	for s := range c.stmts {
		if s.rows != nil {
			s.rows.closed = true
			s.rows = nil
		}
		s.closed = true
		s.raw.Finalize()
	}
	c.stmts = nil
	c.cache.clear()
	if c.tx != nil {
		// Closing mid-transaction rolls back implicitly; the guard is
		// resolved so a deferred Rollback stays a no-op instead of
		// touching the dead handle.
		c.tx.finish()
	}
	return mapNative(c.h.Close())
}

// ExecuteBatch runs one or more SQL statements separated by semicolons,
// discarding any rows they produce. The first failure stops the batch.
func (c *Conn) ExecuteBatch(sql string) error {
	if err := c.usable(); err != nil {
		return err
	}
	return mapNative(c.h.Exec(sql))
}

// Execute prepares sql through the statement cache, runs it with args, and
// reports the number of rows changed.
func (c *Conn) Execute(sql string, args ...any) (int64, error) {
	stmt, err := c.PrepareCached(sql)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()
	return stmt.Execute(args...)
}

// QueryRow prepares sql through the statement cache, runs it with args, and
// decodes the single expected row into dest.
func (c *Conn) QueryRow(sql string, args []any, dest ...any) error {
	stmt, err := c.PrepareCached(sql)
	if err != nil {
		return err
	}
	defer stmt.Close()
	return stmt.QueryRow(args, dest...)
}

// Prepare compiles sql into a caller-owned statement. sql must hold exactly
// one statement; trailing content beyond whitespace is rejected.
func (c *Conn) Prepare(sql string) (*Stmt, error) {
	return c.prepare(sql, false)
}

// PrepareCached returns a statement for sql, checking it out of the
// connection's cache when resident and compiling it otherwise. Closing the
// statement returns it to the cache.
func (c *Conn) PrepareCached(sql string) (*Stmt, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	if s, ok := c.cache.get(sql); ok {
		s.closed = false
		c.stmts[s] = struct{}{}
		return s, nil
	}
	return c.prepare(sql, true)
}

func (c *Conn) prepare(sql string, cached bool) (*Stmt, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(sql) == "" {
		return nil, contractErr(KindMisuse, "empty SQL")
	}
	raw, trailing, err := c.h.Prepare(sql, cached)
	if err != nil {
		return nil, mapNative(err)
	}
	if raw == nil {
		return nil, contractErr(KindMisuse, "SQL holds no statement")
	}
	if rest := strings.TrimSpace(sql[len(sql)-trailing:]); rest != "" {
		raw.Finalize()
		return nil, contractErr(KindMisuse, "SQL holds more than one statement")
	}
	s := &Stmt{
		conn:       c,
		raw:        raw,
		sql:        sql,
		paramCount: raw.BindParameterCount(),
		colCount:   raw.ColumnCount(),
		cached:     cached,
		borrowed:   cached,
	}
	c.stmts[s] = struct{}{}
	return s, nil
}

// SetBusyTimeout replaces the connection's busy handler interval.
// Non-positive disables busy waiting.
func (c *Conn) SetBusyTimeout(d time.Duration) error {
	if err := c.usable(); err != nil {
		return err
	}
	c.h.BusyTimeout(int(d / time.Millisecond))
	return nil
}

// SetCacheCapacity changes the statement cache capacity, finalizing evicted
// residents immediately when shrinking.
func (c *Conn) SetCacheCapacity(n int) {
	if c.closed {
		return
	}
	c.cache.resize(n)
}

// ClearCache evicts and finalizes every resident cache entry. Checked-out
// statements are unaffected.
func (c *Conn) ClearCache() {
	if c.closed {
		return
	}
	c.cache.clear()
}

// CachedStatementCount reports the number of resident cache entries.
func (c *Conn) CachedStatementCount() int {
	return c.cache.len()
}

// Interrupt aborts the connection's in-flight operation, which fails with
// an Interrupted error. Interrupt is the one call safe to make from another
// goroutine, but never after Close.
func (c *Conn) Interrupt() {
	if c.closed {
		return
	}
	c.h.Interrupt()
}

// Changes reports the number of rows changed by the most recent statement.
func (c *Conn) Changes() int64 {
	if c.closed {
		return 0
	}
	return c.h.Changes()
}

// LastInsertRowID reports the rowid of the most recent successful INSERT.
func (c *Conn) LastInsertRowID() int64 {
	if c.closed {
		return 0
	}
	return c.h.LastInsertRowID()
}

// InTransaction reports whether an explicit transaction is open.
func (c *Conn) InTransaction() bool {
	return !c.closed && !c.h.Autocommit()
}

// Readonly reports whether the primary database was opened read-only.
func (c *Conn) Readonly() bool {
	return !c.closed && c.h.Readonly("main")
}
