package golite

import (
	"fmt"
)

// TxBehavior selects the locking behavior of BEGIN.
type TxBehavior int

const (
	// Deferred acquires locks lazily, on first use.
	Deferred TxBehavior = iota
	// Immediate takes a write lock at BEGIN.
	Immediate
	// Exclusive takes an exclusive lock at BEGIN.
	Exclusive
)

func (b TxBehavior) String() string {
	switch b {
	case Immediate:
		return "IMMEDIATE"
	case Exclusive:
		return "EXCLUSIVE"
	default:
		return "DEFERRED"
	}
}

// Tx is a transaction guard. It resolves exactly once, through Commit or
// Rollback; Rollback on an already-resolved guard is a no-op, so
// `defer tx.Rollback()` makes abandonment roll back.
type Tx struct {
	conn     *Conn
	resolved bool
	sps      []*Savepoint
	seq      int
}

// Begin opens a transaction. Only one guard may be live per connection; a
// second Begin before the first resolves is a contract error.
func (c *Conn) Begin(behavior TxBehavior) (*Tx, error) {
	if err := c.usable(); err != nil {
		return nil, err
	}
	if c.tx != nil && !c.tx.resolved {
		return nil, contractErr(KindTxActive, "transaction already open")
	}
	if err := mapNative(c.h.Exec("BEGIN " + behavior.String())); err != nil {
		return nil, err
	}
	tx := &Tx{conn: c}
	c.tx = tx
	return tx, nil
}

// Transaction runs fn inside a transaction, committing when fn returns nil
// and rolling back when it returns an error or panics. A panic is rethrown
// after the rollback.
func (c *Conn) Transaction(behavior TxBehavior, fn func(*Tx) error) error {
	tx, err := c.Begin(behavior)
	if err != nil {
		return err
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}
	return tx.Commit()
}

// Commit commits the transaction and consumes the guard. When COMMIT itself
// fails the transaction stays open and the guard stays live, so the caller
// can retry or roll back.
func (t *Tx) Commit() error {
	if t.conn.closed {
		return contractErr(KindConnClosed, "transaction used after connection Close")
	}
	if t.resolved {
		return contractErr(KindTxResolved, "transaction already resolved")
	}
	if err := mapNative(t.conn.h.Exec("COMMIT")); err != nil {
		return err
	}
	t.finish()
	return nil
}

// Rollback rolls the transaction back and consumes the guard. On an
// already-resolved guard it is a no-op, making it safe to defer
// unconditionally.
func (t *Tx) Rollback() error {
	if t.resolved {
		return nil
	}
	if t.conn.closed {
		// Close already rolled the transaction back with the handle.
		t.finish()
		return nil
	}
	err := mapNative(t.conn.h.Exec("ROLLBACK"))
	t.finish()
	return err
}

func (t *Tx) finish() {
	t.resolved = true
	for _, sp := range t.sps {
		sp.resolved = true
	}
	t.sps = nil
	if t.conn.tx == t {
		t.conn.tx = nil
	}
}

// Savepoint is one frame of a transaction's savepoint stack. Frames resolve
// exactly once and strictly last-in-first-out.
type Savepoint struct {
	tx       *Tx
	name     string
	resolved bool
}

// Name returns the savepoint's identifier.
func (sp *Savepoint) Name() string { return sp.name }

// Savepoint pushes a new savepoint frame. An empty name gets a generated
// one; explicit names must be plain identifiers.
func (t *Tx) Savepoint(name string) (*Savepoint, error) {
	if t.conn.closed {
		return nil, contractErr(KindConnClosed, "transaction used after connection Close")
	}
	if t.resolved {
		return nil, contractErr(KindTxResolved, "transaction already resolved")
	}
	if name == "" {
		t.seq++
		name = fmt.Sprintf("golite_sp_%d", t.seq)
	} else if !validSavepointName(name) {
		return nil, contractErr(KindMisuse, "savepoint name %q is not an identifier", name)
	}
	if err := mapNative(t.conn.h.Exec("SAVEPOINT " + name)); err != nil {
		return nil, err
	}
	sp := &Savepoint{tx: t, name: name}
	t.sps = append(t.sps, sp)
	return sp, nil
}

// Release commits the savepoint's work into the enclosing frame and pops
// it. Only the innermost open frame may be released; anything else is an
// ordering error that leaves the stack unchanged.
func (sp *Savepoint) Release() error {
	if err := sp.checkTop(); err != nil {
		return err
	}
	if err := mapNative(sp.tx.conn.h.Exec("RELEASE " + sp.name)); err != nil {
		return err
	}
	sp.pop()
	return nil
}

// Rollback undoes the work since the savepoint and pops it. Only the
// innermost open frame may be rolled back. On an already-resolved frame it
// is a no-op, mirroring Tx.Rollback for deferred cleanup.
func (sp *Savepoint) Rollback() error {
	if sp.resolved {
		return nil
	}
	if err := sp.checkTop(); err != nil {
		return err
	}
	// ROLLBACK TO rewinds but leaves the frame on the engine's stack;
	// RELEASE pops it so the name can be reused.
	if err := mapNative(sp.tx.conn.h.Exec("ROLLBACK TO " + sp.name)); err != nil {
		return err
	}
	if err := mapNative(sp.tx.conn.h.Exec("RELEASE " + sp.name)); err != nil {
		return err
	}
	sp.pop()
	return nil
}

func (sp *Savepoint) checkTop() error {
	if sp.tx.conn.closed {
		return contractErr(KindConnClosed, "savepoint used after connection Close")
	}
	if sp.resolved {
		return contractErr(KindTxResolved, "savepoint %s already resolved", sp.name)
	}
	if sp.tx.resolved {
		return contractErr(KindTxResolved, "transaction already resolved")
	}
	stack := sp.tx.sps
	if len(stack) == 0 || stack[len(stack)-1] != sp {
		return contractErr(KindSavepointOrder, "savepoint %s is not the innermost open frame", sp.name)
	}
	return nil
}

func (sp *Savepoint) pop() {
	sp.resolved = true
	sp.tx.sps = sp.tx.sps[:len(sp.tx.sps)-1]
}

func validSavepointName(name string) bool {
	for i, r := range name {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}
