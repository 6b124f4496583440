package golite

import (
	"github.com/dshills/golite/internal/native"
)

// Stmt is a prepared statement. A Stmt belongs to the connection that
// prepared it and follows the connection's single-owner contract. Cached
// statements (from PrepareCached) return to the connection's cache on
// Close; caller-owned statements (from Prepare) are finalized.
type Stmt struct {
	conn       *Conn
	raw        *native.Stmt
	sql        string
	paramCount int
	colCount   int

	cached   bool
	borrowed bool
	closed   bool
	rows     *Rows
}

// SQL returns the statement's source text.
func (s *Stmt) SQL() string { return s.sql }

// ParamCount reports the number of parameters the statement declares.
func (s *Stmt) ParamCount() int { return s.paramCount }

// ColumnCount reports the number of result columns the statement produces.
// Zero for statements that produce no rows.
func (s *Stmt) ColumnCount() int { return s.colCount }

// ColumnName returns the name of the 0-based result column i.
func (s *Stmt) ColumnName(i int) string {
	if s.closed || i < 0 || i >= s.colCount {
		return ""
	}
	return s.raw.ColumnName(i)
}

func (s *Stmt) usable() error {
	switch {
	case s.conn.closed:
		return contractErr(KindConnClosed, "statement used after connection Close")
	case s.closed:
		return contractErr(KindStmtFinalized, "statement used after Close")
	case s.rows != nil:
		return contractErr(KindMisuse, "statement is borrowed by an open Rows")
	default:
		return nil
	}
}

// Bind binds v to the 1-based parameter i. Out-of-range indexes are
// rejected before the engine is called.
func (s *Stmt) Bind(i int, v any) error {
	if err := s.usable(); err != nil {
		return err
	}
	if i < 1 || i > s.paramCount {
		return contractErr(KindParamIndex, "parameter index %d out of range [1, %d]", i, s.paramCount)
	}
	return s.bindIndex(i, v)
}

// BindName binds v to the named parameter. The name must include its prefix
// character (":", "@", or "$"). Unknown names are rejected before the
// engine is called.
func (s *Stmt) BindName(name string, v any) error {
	if err := s.usable(); err != nil {
		return err
	}
	i := s.raw.BindParameterIndex(name)
	if i == 0 {
		return contractErr(KindParamName, "statement has no parameter named %q", name)
	}
	return s.bindIndex(i, v)
}

func (s *Stmt) bindIndex(i int, v any) error {
	// ZeroBlob has no Value representation; it reserves engine-side space.
	if zb, ok := v.(ZeroBlob); ok {
		return mapNative(s.raw.BindZeroBlob(i, int64(zb)))
	}
	val, err := bindValue(v)
	if err != nil {
		return err
	}
	switch val.Type() {
	case TypeInteger:
		n, _ := val.Int64()
		return mapNative(s.raw.BindInt64(i, n))
	case TypeReal:
		f, _ := val.Float()
		return mapNative(s.raw.BindDouble(i, f))
	case TypeText:
		t, _ := val.Text()
		return mapNative(s.raw.BindText(i, t))
	case TypeBlob:
		b, _ := val.Blob()
		return mapNative(s.raw.BindBlob(i, b))
	default:
		return mapNative(s.raw.BindNull(i))
	}
}

// bindArgs rewinds the statement and, when positional args are supplied,
// replaces every binding with them. With no args the values bound through
// Bind/BindName are retained, so bind-then-execute works.
func (s *Stmt) bindArgs(args []any) error {
	if err := mapNative(s.raw.Reset()); err != nil {
		return err
	}
	if len(args) == 0 {
		return nil
	}
	if len(args) > s.paramCount {
		return contractErr(KindParamIndex, "%d arguments for %d parameters", len(args), s.paramCount)
	}
	if err := mapNative(s.raw.ClearBindings()); err != nil {
		return err
	}
	for i, a := range args {
		if err := s.bindIndex(i+1, a); err != nil {
			return err
		}
	}
	return nil
}

// Execute runs a statement that produces no rows and reports the number of
// rows it changed. A row-producing statement is an ExecuteReturnedRows
// error; use Query for those.
func (s *Stmt) Execute(args ...any) (int64, error) {
	if err := s.usable(); err != nil {
		return 0, err
	}
	if err := s.bindArgs(args); err != nil {
		return 0, err
	}
	row, err := s.raw.Step()
	if err != nil {
		return 0, mapNative(err)
	}
	if row {
		s.raw.Reset()
		return 0, contractErr(KindExecuteReturnedRows, "statement produced rows; use Query")
	}
	n := s.conn.h.Changes()
	if err := mapNative(s.raw.Reset()); err != nil {
		return n, err
	}
	return n, nil
}

// Query runs the statement and returns a forward-only row iterator. The
// Rows holds an exclusive borrow of the statement until it is closed; using
// the statement while the Rows is open is a contract error.
func (s *Stmt) Query(args ...any) (*Rows, error) {
	if err := s.usable(); err != nil {
		return nil, err
	}
	if err := s.bindArgs(args); err != nil {
		return nil, err
	}
	r := &Rows{stmt: s}
	s.rows = r
	return r, nil
}

// QueryRow runs the statement expecting exactly one row and decodes it into
// dest. Zero rows is a NoRows error; extra rows beyond the first are
// discarded.
func (s *Stmt) QueryRow(args []any, dest ...any) error {
	rows, err := s.Query(args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return contractErr(KindNoRows, "query returned no rows")
	}
	return rows.Scan(dest...)
}

// Reset rewinds the statement so it can be evaluated again. Bound values
// are retained.
func (s *Stmt) Reset() error {
	if err := s.usable(); err != nil {
		return err
	}
	return mapNative(s.raw.Reset())
}

// ClearBindings sets every parameter back to NULL.
func (s *Stmt) ClearBindings() error {
	if err := s.usable(); err != nil {
		return err
	}
	return mapNative(s.raw.ClearBindings())
}

// Close releases the statement. A cached statement returns to its
// connection's cache; a caller-owned statement is finalized. An open Rows
// is closed first. Close is idempotent.
func (s *Stmt) Close() error {
	if s.closed {
		return nil
	}
	if s.rows != nil {
		s.rows.Close()
	}
	s.closed = true
	delete(s.conn.stmts, s)
	if s.cached && !s.conn.closed {
		s.conn.cache.put(s)
		return nil
	}
	return mapNative(s.raw.Finalize())
}

// columnValue reads the 0-based column i of the current row.
func (s *Stmt) columnValue(i int) Value {
	switch s.raw.ColumnType(i) {
	case native.TypeInteger:
		return Integer(s.raw.ColumnInt64(i))
	case native.TypeFloat:
		return Real(s.raw.ColumnDouble(i))
	case native.TypeText:
		return Text(s.raw.ColumnText(i))
	case native.TypeBlob:
		return Blob(s.raw.ColumnBlob(i))
	default:
		return Null()
	}
}

// Rows is a forward-only iterator over a query's results. It holds an
// exclusive borrow of its statement until Close. Rows cannot be restarted;
// run the statement again for a fresh iterator.
type Rows struct {
	stmt   *Stmt
	err    error
	hasRow bool
	done   bool
	closed bool
}

// Next advances to the next row. It returns false at the end of the results
// or on error; check Err after the loop.
func (r *Rows) Next() bool {
	if r.closed || r.done || r.err != nil {
		return false
	}
	row, err := r.stmt.raw.Step()
	if err != nil {
		r.err = mapNative(err)
		r.hasRow = false
		r.done = true
		return false
	}
	r.hasRow = row
	if !row {
		r.done = true
	}
	return row
}

// Err returns the error that stopped iteration, if any.
func (r *Rows) Err() error { return r.err }

// ColumnCount reports the number of columns in the result.
func (r *Rows) ColumnCount() int { return r.stmt.colCount }

// ColumnName returns the name of the 0-based column i.
func (r *Rows) ColumnName(i int) string { return r.stmt.ColumnName(i) }

// ColumnValue reads column i of the current row as a Value.
func (r *Rows) ColumnValue(i int) (Value, error) {
	if !r.hasRow || r.closed {
		return Value{}, contractErr(KindMisuse, "no current row; call Next first")
	}
	if i < 0 || i >= r.stmt.colCount {
		return Value{}, contractErr(KindMisuse, "column index %d out of range [0, %d)", i, r.stmt.colCount)
	}
	return r.stmt.columnValue(i), nil
}

// Scan decodes the current row's columns into dest, left to right. Each
// target goes through the value conversion rules; the first failure wins
// and later targets are left untouched.
func (r *Rows) Scan(dest ...any) error {
	if !r.hasRow || r.closed {
		return contractErr(KindMisuse, "no current row; call Next first")
	}
	if len(dest) > r.stmt.colCount {
		return contractErr(KindMisuse, "%d scan targets for %d columns", len(dest), r.stmt.colCount)
	}
	for i, d := range dest {
		if err := scanValue(r.stmt.columnValue(i), d); err != nil {
			return err
		}
	}
	return nil
}

// Close ends iteration, resets the statement, and releases the borrow.
// Close is idempotent.
func (r *Rows) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.hasRow = false
	r.stmt.rows = nil
	return mapNative(r.stmt.raw.Reset())
}
