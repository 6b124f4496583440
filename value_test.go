package golite

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValueConstructors(t *testing.T) {
	assert.Equal(t, TypeNull, Null().Type())
	assert.Equal(t, TypeInteger, Integer(1).Type())
	assert.Equal(t, TypeReal, Real(1.5).Type())
	assert.Equal(t, TypeText, Text("hi").Type())
	assert.Equal(t, TypeBlob, Blob([]byte{1}).Type())

	assert.True(t, Null().IsNull())
	assert.False(t, Integer(0).IsNull())
}

func TestValueStrictAccess(t *testing.T) {
	n, err := Integer(42).Int64()
	require.NoError(t, err)
	assert.Equal(t, int64(42), n)

	// TEXT does not coerce to INTEGER even when it looks numeric.
	_, err = Text("42").Int64()
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindTypeMismatch, kind)

	_, err = Null().Int64()
	kind, _ = KindOf(err)
	assert.Equal(t, KindNullConversion, kind)

	_, err = Real(1.5).Text()
	kind, _ = KindOf(err)
	assert.Equal(t, KindTypeMismatch, kind)

	_, err = Text("x").Blob()
	kind, _ = KindOf(err)
	assert.Equal(t, KindTypeMismatch, kind)
}

func TestValueIntegerWidensToFloat(t *testing.T) {
	f, err := Integer(7).Float()
	require.NoError(t, err)
	assert.Equal(t, 7.0, f)

	// The widening is one-directional.
	_, err = Real(7.0).Int64()
	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindTypeMismatch, kind)
}

func TestValueBlobIsolation(t *testing.T) {
	src := []byte{1, 2, 3}
	v := Blob(src)
	src[0] = 99

	got, err := v.Blob()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, got)

	got[1] = 99
	again, err := v.Blob()
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
}

func TestValueEmptyBlobIsNotNull(t *testing.T) {
	v := Blob(nil)
	assert.Equal(t, TypeBlob, v.Type())
	assert.False(t, v.IsNull())
	b, err := v.Blob()
	require.NoError(t, err)
	assert.Len(t, b, 0)
}

func TestValueRoundTrip(t *testing.T) {
	conn := setupConn(t)
	require.NoError(t, conn.ExecuteBatch("CREATE TABLE vals (v)"))

	// Each stored value must come back with the same storage class and
	// payload.
	for _, in := range []Value{
		Null(),
		Integer(-9223372036854775808),
		Integer(9223372036854775807),
		Real(3.141592653589793),
		Text(""),
		Text("naïve ☃"),
		Blob(nil),
		Blob([]byte{0, 1, 2, 0xff}),
	} {
		_, err := conn.Execute("DELETE FROM vals")
		require.NoError(t, err)
		_, err = conn.Execute("INSERT INTO vals (v) VALUES (?)", in)
		require.NoError(t, err)

		var out Value
		require.NoError(t, conn.QueryRow("SELECT v FROM vals", nil, &out))
		assert.Equal(t, in.Type(), out.Type(), "value %v", in)
		assert.Equal(t, in, out, "value %v", in)
	}
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "NULL", Null().String())
	assert.Equal(t, "42", Integer(42).String())
	assert.Equal(t, "1.5", Real(1.5).String())
	assert.Equal(t, "hi", Text("hi").String())
	assert.Equal(t, "x'00ff'", Blob([]byte{0, 0xff}).String())
}
