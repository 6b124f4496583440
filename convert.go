package golite

import (
	"encoding/json"
	"math"
	"time"
)

// Binder converts an application value into a storage Value for parameter
// binding. Implement it to bind custom types.
type Binder interface {
	BindValue() (Value, error)
}

// Scanner converts a storage Value into an application value during row
// decoding. Implement it on a pointer type to decode custom types.
type Scanner interface {
	ScanValue(v Value) error
}

// ZeroBlob binds a blob of the given length filled with zeros, reserving
// space for later incremental writes through OpenBlob.
type ZeroBlob int64

// JSON wraps a tree-shaped value. Binding marshals V to TEXT; scanning
// unmarshals TEXT or BLOB into V, which must be a pointer.
type JSON struct {
	V any
}

// BindValue implements Binder.
func (j JSON) BindValue() (Value, error) {
	b, err := json.Marshal(j.V)
	if err != nil {
		return Value{}, &Error{Kind: KindTypeMismatch, Message: "marshal json: " + err.Error(), cause: err}
	}
	return Text(string(b)), nil
}

// ScanValue implements Scanner.
func (j JSON) ScanValue(v Value) error {
	var raw []byte
	switch v.Type() {
	case TypeText:
		s, _ := v.Text()
		raw = []byte(s)
	case TypeBlob:
		raw, _ = v.Blob()
	case TypeNull:
		return contractErr(KindNullConversion, "NULL where JSON was requested")
	default:
		return contractErr(KindTypeMismatch, "%s where JSON was requested", v.Type())
	}
	if err := json.Unmarshal(raw, j.V); err != nil {
		return &Error{Kind: KindTypeMismatch, Message: "unmarshal json: " + err.Error(), cause: err}
	}
	return nil
}

// timeFormat is the text encoding used for time.Time values. Integer
// columns additionally decode as Unix seconds.
const timeFormat = time.RFC3339Nano

// bindValue converts an application value into a Value. Pointers are the
// optional wrapper: a nil pointer binds NULL, a non-nil pointer defers to
// the pointed-to value.
func bindValue(v any) (Value, error) {
	switch x := v.(type) {
	case nil:
		return Null(), nil
	case Value:
		return x, nil
	case bool:
		if x {
			return Integer(1), nil
		}
		return Integer(0), nil
	case int:
		return Integer(int64(x)), nil
	case int8:
		return Integer(int64(x)), nil
	case int16:
		return Integer(int64(x)), nil
	case int32:
		return Integer(int64(x)), nil
	case int64:
		return Integer(x), nil
	case uint:
		return bindUint64(uint64(x))
	case uint8:
		return Integer(int64(x)), nil
	case uint16:
		return Integer(int64(x)), nil
	case uint32:
		return Integer(int64(x)), nil
	case uint64:
		return bindUint64(x)
	case float32:
		return Real(float64(x)), nil
	case float64:
		return Real(x), nil
	case string:
		return Text(x), nil
	case []byte:
		return Blob(x), nil
	case time.Time:
		return Text(x.Format(timeFormat)), nil
	case *int:
		if x == nil {
			return Null(), nil
		}
		return Integer(int64(*x)), nil
	case *int64:
		if x == nil {
			return Null(), nil
		}
		return Integer(*x), nil
	case *float64:
		if x == nil {
			return Null(), nil
		}
		return Real(*x), nil
	case *string:
		if x == nil {
			return Null(), nil
		}
		return Text(*x), nil
	case *[]byte:
		if x == nil {
			return Null(), nil
		}
		return Blob(*x), nil
	case *bool:
		if x == nil {
			return Null(), nil
		}
		return bindValue(*x)
	case *time.Time:
		if x == nil {
			return Null(), nil
		}
		return Text(x.Format(timeFormat)), nil
	case Binder:
		return x.BindValue()
	default:
		return Value{}, contractErr(KindTypeMismatch, "cannot bind value of type %T", v)
	}
}

func bindUint64(x uint64) (Value, error) {
	if x > math.MaxInt64 {
		return Value{}, contractErr(KindTypeMismatch, "uint64 value %d overflows INTEGER", x)
	}
	return Integer(int64(x)), nil
}

// scanValue decodes v into dest. dest must be a pointer. A NULL decodes
// successfully only into a double pointer (the optional wrapper, set to
// nil) or a Scanner that accepts it; any other target is a
// NullConversion error. Storage-class mismatches and out-of-range
// narrowings are TypeMismatch errors; the only silent widening is
// integer to float.
func scanValue(v Value, dest any) error {
	switch d := dest.(type) {
	case *Value:
		*d = v
		return nil
	case *int:
		return scanInt(v, math.MinInt, math.MaxInt, func(n int64) { *d = int(n) })
	case *int8:
		return scanInt(v, math.MinInt8, math.MaxInt8, func(n int64) { *d = int8(n) })
	case *int16:
		return scanInt(v, math.MinInt16, math.MaxInt16, func(n int64) { *d = int16(n) })
	case *int32:
		return scanInt(v, math.MinInt32, math.MaxInt32, func(n int64) { *d = int32(n) })
	case *int64:
		n, err := v.Int64()
		if err != nil {
			return err
		}
		*d = n
		return nil
	case *uint:
		n, err := v.Int64()
		if err != nil {
			return err
		}
		if n < 0 || uint64(n) > math.MaxUint {
			return contractErr(KindTypeMismatch, "INTEGER value %d out of range for uint", n)
		}
		*d = uint(n)
		return nil
	case *uint8:
		return scanInt(v, 0, math.MaxUint8, func(n int64) { *d = uint8(n) })
	case *uint16:
		return scanInt(v, 0, math.MaxUint16, func(n int64) { *d = uint16(n) })
	case *uint32:
		return scanInt(v, 0, math.MaxUint32, func(n int64) { *d = uint32(n) })
	case *uint64:
		n, err := v.Int64()
		if err != nil {
			return err
		}
		if n < 0 {
			return contractErr(KindTypeMismatch, "INTEGER value %d out of range for uint64", n)
		}
		*d = uint64(n)
		return nil
	case *float32:
		f, err := v.Float()
		if err != nil {
			return err
		}
		*d = float32(f)
		return nil
	case *float64:
		f, err := v.Float()
		if err != nil {
			return err
		}
		*d = f
		return nil
	case *bool:
		n, err := v.Int64()
		if err != nil {
			return err
		}
		*d = n != 0
		return nil
	case *string:
		s, err := v.Text()
		if err != nil {
			return err
		}
		*d = s
		return nil
	case *[]byte:
		b, err := v.Blob()
		if err != nil {
			return err
		}
		*d = b
		return nil
	case *time.Time:
		return scanTime(v, d)
	case **int64:
		if v.IsNull() {
			*d = nil
			return nil
		}
		n, err := v.Int64()
		if err != nil {
			return err
		}
		*d = &n
		return nil
	case **float64:
		if v.IsNull() {
			*d = nil
			return nil
		}
		f, err := v.Float()
		if err != nil {
			return err
		}
		*d = &f
		return nil
	case **string:
		if v.IsNull() {
			*d = nil
			return nil
		}
		s, err := v.Text()
		if err != nil {
			return err
		}
		*d = &s
		return nil
	case **[]byte:
		if v.IsNull() {
			*d = nil
			return nil
		}
		b, err := v.Blob()
		if err != nil {
			return err
		}
		*d = &b
		return nil
	case **bool:
		if v.IsNull() {
			*d = nil
			return nil
		}
		var b bool
		if err := scanValue(v, &b); err != nil {
			return err
		}
		*d = &b
		return nil
	case **time.Time:
		if v.IsNull() {
			*d = nil
			return nil
		}
		var t time.Time
		if err := scanTime(v, &t); err != nil {
			return err
		}
		*d = &t
		return nil
	case Scanner:
		return d.ScanValue(v)
	default:
		return contractErr(KindTypeMismatch, "cannot scan into value of type %T", dest)
	}
}

func scanInt(v Value, lo, hi int64, set func(int64)) error {
	n, err := v.Int64()
	if err != nil {
		return err
	}
	if n < lo || n > hi {
		return contractErr(KindTypeMismatch, "INTEGER value %d out of range [%d, %d]", n, lo, hi)
	}
	set(n)
	return nil
}

func scanTime(v Value, d *time.Time) error {
	switch v.Type() {
	case TypeText:
		s, _ := v.Text()
		t, err := time.Parse(timeFormat, s)
		if err != nil {
			if t, err2 := time.Parse(time.RFC3339, s); err2 == nil {
				*d = t
				return nil
			}
			return &Error{Kind: KindTypeMismatch, Message: "parse time: " + err.Error(), cause: err}
		}
		*d = t
		return nil
	case TypeInteger:
		n, _ := v.Int64()
		*d = time.Unix(n, 0).UTC()
		return nil
	case TypeNull:
		return contractErr(KindNullConversion, "NULL where time was requested")
	default:
		return contractErr(KindTypeMismatch, "%s where time was requested", v.Type())
	}
}
