package golite

import (
	"fmt"

	"github.com/dshills/golite/internal/native"
)

// ValueType is the engine's storage class for a stored value.
type ValueType int32

const (
	TypeInteger ValueType = ValueType(native.TypeInteger)
	TypeReal    ValueType = ValueType(native.TypeFloat)
	TypeText    ValueType = ValueType(native.TypeText)
	TypeBlob    ValueType = ValueType(native.TypeBlob)
	TypeNull    ValueType = ValueType(native.TypeNull)
)

func (t ValueType) String() string {
	switch t {
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeText:
		return "TEXT"
	case TypeBlob:
		return "BLOB"
	case TypeNull:
		return "NULL"
	default:
		return fmt.Sprintf("ValueType(%d)", int32(t))
	}
}

// Value is one storage value: exactly one of NULL, a 64-bit integer, a
// 64-bit float, text, or a blob. Values are immutable after creation;
// constructors copy byte slices so later mutation of the source cannot
// reach a Value.
type Value struct {
	typ ValueType
	n   int64
	f   float64
	s   string
	b   []byte
}

// Null returns the NULL value.
func Null() Value { return Value{typ: TypeNull} }

// Integer returns an INTEGER value.
func Integer(v int64) Value { return Value{typ: TypeInteger, n: v} }

// Real returns a REAL value.
func Real(v float64) Value { return Value{typ: TypeReal, f: v} }

// Text returns a TEXT value.
func Text(s string) Value { return Value{typ: TypeText, s: s} }

// Blob returns a BLOB value holding a copy of b. A nil slice is a
// zero-length blob, not NULL.
func Blob(b []byte) Value {
	cp := make([]byte, len(b))
	copy(cp, b)
	return Value{typ: TypeBlob, b: cp}
}

// Type reports the value's storage class.
func (v Value) Type() ValueType { return v.typ }

// IsNull reports whether the value is NULL.
func (v Value) IsNull() bool { return v.typ == TypeNull }

// Int64 returns the value as an integer. NULL and non-integer storage
// classes are conversion errors; no coercion is performed.
func (v Value) Int64() (int64, error) {
	switch v.typ {
	case TypeInteger:
		return v.n, nil
	case TypeNull:
		return 0, contractErr(KindNullConversion, "NULL where INTEGER was requested")
	default:
		return 0, contractErr(KindTypeMismatch, "%s where INTEGER was requested", v.typ)
	}
}

// Float returns the value as a float. Integer values widen to float, the
// one documented lossy-free coercion; everything else is an error.
func (v Value) Float() (float64, error) {
	switch v.typ {
	case TypeReal:
		return v.f, nil
	case TypeInteger:
		return float64(v.n), nil
	case TypeNull:
		return 0, contractErr(KindNullConversion, "NULL where REAL was requested")
	default:
		return 0, contractErr(KindTypeMismatch, "%s where REAL was requested", v.typ)
	}
}

// Text returns the value as a string. Only TEXT converts.
func (v Value) Text() (string, error) {
	switch v.typ {
	case TypeText:
		return v.s, nil
	case TypeNull:
		return "", contractErr(KindNullConversion, "NULL where TEXT was requested")
	default:
		return "", contractErr(KindTypeMismatch, "%s where TEXT was requested", v.typ)
	}
}

// Blob returns the value as a byte slice. Only BLOB converts. The returned
// slice is a copy.
func (v Value) Blob() ([]byte, error) {
	switch v.typ {
	case TypeBlob:
		cp := make([]byte, len(v.b))
		copy(cp, v.b)
		return cp, nil
	case TypeNull:
		return nil, contractErr(KindNullConversion, "NULL where BLOB was requested")
	default:
		return nil, contractErr(KindTypeMismatch, "%s where BLOB was requested", v.typ)
	}
}

func (v Value) String() string {
	switch v.typ {
	case TypeInteger:
		return fmt.Sprintf("%d", v.n)
	case TypeReal:
		return fmt.Sprintf("%g", v.f)
	case TypeText:
		return v.s
	case TypeBlob:
		return fmt.Sprintf("x'%x'", v.b)
	default:
		return "NULL"
	}
}
