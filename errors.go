package golite

import (
	"errors"
	"fmt"

	"github.com/dshills/golite/internal/native"
)

// ErrKind classifies every error the library produces. Engine-reported
// conditions carry the native result codes alongside the kind; contract and
// conversion errors are detected before the engine is ever called.
type ErrKind int

const (
	// KindEngine is the catch-all for native failures without a dedicated
	// kind. Code, Extended, and Message are preserved verbatim.
	KindEngine ErrKind = iota
	// KindConstraint is a violated UNIQUE, NOT NULL, CHECK, or FOREIGN KEY
	// constraint.
	KindConstraint
	// KindBusy means another connection holds a conflicting lock and the
	// busy timeout, if any, expired.
	KindBusy
	// KindLocked means a conflicting lock is held within this process.
	KindLocked
	// KindReadOnly means a write was attempted on a read-only database.
	KindReadOnly
	// KindInterrupted means the operation was aborted by Interrupt.
	KindInterrupted
	// KindTypeMismatch is a storage-class mismatch or an out-of-range
	// numeric narrowing during value conversion.
	KindTypeMismatch
	// KindNullConversion is a NULL decoded into a non-optional target.
	KindNullConversion
	// KindParamIndex is a bind index outside the statement's declared
	// parameter count.
	KindParamIndex
	// KindParamName is a bind name the statement does not declare.
	KindParamName
	// KindExecuteReturnedRows means Execute was called on a row-producing
	// statement.
	KindExecuteReturnedRows
	// KindNoRows means exactly one row was expected and none arrived.
	KindNoRows
	// KindSavepointOrder is a savepoint released or rolled back out of
	// LIFO order.
	KindSavepointOrder
	// KindStmtFinalized is a statement used after Close.
	KindStmtFinalized
	// KindConnClosed is a connection used after Close.
	KindConnClosed
	// KindTxActive means Begin was called while a transaction is open.
	KindTxActive
	// KindTxResolved is a transaction guard used after commit or rollback.
	KindTxResolved
	// KindMisuse covers remaining caller-contract violations: statements
	// used while a row iterator holds them, multi-statement SQL passed to
	// Prepare, empty SQL, and similar.
	KindMisuse
)

func (k ErrKind) String() string {
	switch k {
	case KindEngine:
		return "engine failure"
	case KindConstraint:
		return "constraint violation"
	case KindBusy:
		return "database busy"
	case KindLocked:
		return "database locked"
	case KindReadOnly:
		return "database read-only"
	case KindInterrupted:
		return "interrupted"
	case KindTypeMismatch:
		return "type mismatch"
	case KindNullConversion:
		return "unexpected null"
	case KindParamIndex:
		return "invalid parameter index"
	case KindParamName:
		return "invalid parameter name"
	case KindExecuteReturnedRows:
		return "execute returned rows"
	case KindNoRows:
		return "no rows returned"
	case KindSavepointOrder:
		return "savepoint out of order"
	case KindStmtFinalized:
		return "statement finalized"
	case KindConnClosed:
		return "connection closed"
	case KindTxActive:
		return "transaction already active"
	case KindTxResolved:
		return "transaction already resolved"
	case KindMisuse:
		return "misuse"
	default:
		return fmt.Sprintf("ErrKind(%d)", int(k))
	}
}

// Error is the library's error type. Kind is always set; Code and Extended
// carry the native result codes for engine-reported failures and are zero
// for contract and conversion errors.
type Error struct {
	Kind     ErrKind
	Code     int32
	Extended int32
	Message  string
	cause    error
}

func (e *Error) Error() string {
	switch {
	case e.Message == "":
		return "golite: " + e.Kind.String()
	case e.Extended != 0:
		return fmt.Sprintf("golite: %s: %s (%d)", e.Kind, e.Message, e.Extended)
	default:
		return fmt.Sprintf("golite: %s: %s", e.Kind, e.Message)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Is matches any *Error with the same Kind, so callers can branch with
// errors.Is(err, &Error{Kind: KindBusy}).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// KindOf extracts the ErrKind from err. ok is false when err was not
// produced by this library.
func KindOf(err error) (kind ErrKind, ok bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// mapNative classifies a native-layer error into the public taxonomy. The
// primary result code selects the kind; codes and message pass through
// untouched.
func mapNative(err error) error {
	if err == nil {
		return nil
	}
	var ne *native.Error
	if !errors.As(err, &ne) {
		return err
	}
	kind := KindEngine
	switch ne.Primary() {
	case native.ResultConstraint:
		kind = KindConstraint
	case native.ResultBusy:
		kind = KindBusy
	case native.ResultLocked:
		kind = KindLocked
	case native.ResultReadOnly:
		kind = KindReadOnly
	case native.ResultInterrupt:
		kind = KindInterrupted
	case native.ResultMismatch:
		kind = KindTypeMismatch
	case native.ResultRange:
		kind = KindParamIndex
	}
	return &Error{Kind: kind, Code: ne.Primary(), Extended: ne.Extended, Message: ne.Message, cause: ne}
}

// contractErr builds a caller-contract or conversion error.
func contractErr(kind ErrKind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
