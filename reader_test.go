package resources

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaderFindDataPosition(t *testing.T) {
	r := openContainer(t, map[string]any{
		"a": int32(1),
		"b": int32(2),
		"c": int32(3),
	})
	require.Equal(t, 3, r.Count())

	pos, err := r.FindDataPosition("b")
	require.NoError(t, err)
	require.NotEqual(t, NotFound, pos)

	value, code, err := r.LoadValueAt(pos)
	require.NoError(t, err)
	assert.Equal(t, TypeInt32, code)
	assert.Equal(t, int32(2), value)

	pos, err = r.FindDataPosition("z")
	require.NoError(t, err)
	assert.Equal(t, NotFound, pos)
}

func TestReaderHashCollision(t *testing.T) {
	require.Equal(t, HashName("bC"), HashName("cb"))

	r := openContainer(t, map[string]any{
		"bC":    "upper",
		"cb":    "lower",
		"other": "x",
	})

	for name, want := range map[string]string{"bC": "upper", "cb": "lower"} {
		pos, err := r.FindDataPosition(name)
		require.NoError(t, err)
		require.NotEqual(t, NotFound, pos, name)
		got, ok, err := r.LoadStringAt(pos)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, want, got)
	}

	pos, err := r.FindDataPosition("bc")
	require.NoError(t, err)
	assert.Equal(t, NotFound, pos)
}

func TestReaderRoundTrip(t *testing.T) {
	r := openContainer(t, map[string]any{
		"greeting": "hello",
		"count":    int32(42),
		"flag":     true,
	})

	tests := []struct {
		name  string
		value any
		code  TypeCode
	}{
		{name: "greeting", value: "hello", code: TypeString},
		{name: "count", value: int32(42), code: TypeInt32},
		{name: "flag", value: true, code: TypeBoolean},
	}

	for _, tc := range tests {
		pos, err := r.FindDataPosition(tc.name)
		require.NoError(t, err)
		value, code, err := r.LoadValueAt(pos)
		require.NoError(t, err)
		assert.Equal(t, tc.code, code, tc.name)
		assert.Equal(t, tc.value, value, tc.name)
	}
}

func TestReaderTypedValues(t *testing.T) {
	placed := time.Date(2024, 5, 18, 10, 30, 0, 123456700, time.UTC)
	price, err := NewDecimal(big.NewInt(-1250), 2)
	require.NoError(t, err)

	values := map[string]any{
		"null":     nil,
		"char":     Char('x'),
		"byte":     uint8(200),
		"sbyte":    int8(-5),
		"int16":    int16(-300),
		"uint16":   uint16(60000),
		"uint32":   uint32(4000000000),
		"int64":    int64(-1 << 40),
		"int":      7,
		"uint64":   uint64(1 << 63),
		"single":   float32(1.5),
		"double":   3.25,
		"decimal":  price,
		"datetime": placed,
		"timespan": 90 * time.Minute,
		"bytes":    []byte{1, 2, 3},
	}
	r := openContainer(t, values)

	want := map[string]struct {
		value any
		code  TypeCode
	}{
		"null":     {nil, TypeNull},
		"char":     {Char('x'), TypeChar},
		"byte":     {uint8(200), TypeByte},
		"sbyte":    {int8(-5), TypeSByte},
		"int16":    {int16(-300), TypeInt16},
		"uint16":   {uint16(60000), TypeUInt16},
		"uint32":   {uint32(4000000000), TypeUInt32},
		"int64":    {int64(-1 << 40), TypeInt64},
		"int":      {int64(7), TypeInt64},
		"uint64":   {uint64(1 << 63), TypeUInt64},
		"single":   {float32(1.5), TypeSingle},
		"double":   {3.25, TypeDouble},
		"decimal":  {price, TypeDecimal},
		"datetime": {placed, TypeDateTime},
		"timespan": {90 * time.Minute, TypeTimeSpan},
		"bytes":    {[]byte{1, 2, 3}, TypeByteArray},
	}

	for name, expected := range want {
		pos, err := r.FindDataPosition(name)
		require.NoError(t, err, name)
		value, code, err := r.LoadValueAt(pos)
		require.NoError(t, err, name)
		assert.Equal(t, expected.code, code, name)
		if at, ok := expected.value.(time.Time); ok {
			assert.True(t, at.Equal(value.(time.Time)), "%s: got %v", name, value)
			continue
		}
		assert.Equal(t, expected.value, value, name)
	}

	assert.Equal(t, "-12.50", price.String())
}

func TestReaderStreamIsBounded(t *testing.T) {
	r := openContainer(t, map[string]any{
		"logo":  bytes.NewReader([]byte("stream-data")),
		"after": "trailing value",
	})

	pos, err := r.FindDataPosition("logo")
	require.NoError(t, err)
	value, code, err := r.LoadValueAt(pos)
	require.NoError(t, err)
	require.Equal(t, TypeStream, code)

	stream, ok := value.(*io.SectionReader)
	require.True(t, ok, "got %T", value)
	assert.Equal(t, int64(len("stream-data")), stream.Size())

	data, err := io.ReadAll(stream)
	require.NoError(t, err)
	assert.Equal(t, "stream-data", string(data))
}

func TestReaderLoadStringAt(t *testing.T) {
	r := openContainer(t, map[string]any{
		"text":  "hello",
		"empty": nil,
		"count": int32(1),
	})

	pos, err := r.FindDataPosition("empty")
	require.NoError(t, err)
	_, ok, err := r.LoadStringAt(pos)
	require.NoError(t, err)
	assert.False(t, ok)

	pos, err = r.FindDataPosition("count")
	require.NoError(t, err)
	_, _, err = r.LoadStringAt(pos)
	assert.ErrorIs(t, err, ErrTypeMismatch)
}

func TestReaderBoundsSafety(t *testing.T) {
	data := buildContainer(t, map[string]any{"blob": []byte{1, 2, 3, 4}})

	// cut the blob payload short, the declared length now exceeds the stream
	truncated := data[:len(data)-2]
	r, err := NewReader(BytesSource(truncated))
	require.NoError(t, err)

	pos, err := r.FindDataPosition("blob")
	require.NoError(t, err)
	_, _, err = r.LoadValueAt(pos)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrCorruptContainer)

	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, "blob length", rerr.Op)
}

func TestReaderRejectsCorruptHeaders(t *testing.T) {
	valid := buildContainer(t, map[string]any{"a": "x", "b": "y"})

	mutate := func(fn func([]byte) []byte) []byte {
		return fn(append([]byte(nil), valid...))
	}
	parsed, err := NewReader(BytesSource(valid))
	require.NoError(t, err)
	// the data section offset is the last int32 before the name section
	dataOffsetAt := int(parsed.nameSectionOffset) - 4

	tests := []struct {
		name string
		data []byte
	}{
		{name: "empty", data: nil},
		{name: "bad magic", data: mutate(func(b []byte) []byte { b[0] ^= 0xff; return b })},
		{name: "header version zero", data: mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[4:], 0)
			return b
		})},
		{name: "truncated header", data: valid[:20]},
		{name: "data offset past end", data: mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[dataOffsetAt:], uint32(len(b)+10))
			return b
		})},
		{name: "negative data offset", data: mutate(func(b []byte) []byte {
			binary.LittleEndian.PutUint32(b[dataOffsetAt:], 0xffffffff)
			return b
		})},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewReader(BytesSource(tc.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptContainer)
		})
	}
}

func TestReaderRejectsUnknownFormatVersion(t *testing.T) {
	data := rawContainer(1, 3, nil, nil, []rawEntry{{name: "a", payload: stringPayload("x")}})
	_, err := NewReader(BytesSource(data))
	assert.ErrorIs(t, err, ErrCorruptContainer)
}

func TestReaderSkipsNewerHeader(t *testing.T) {
	data := rawContainer(7, FormatVersion, []byte("a header from the future"), nil, []rawEntry{
		{name: "greeting", payload: stringPayload("hello")},
	})

	r, err := NewReader(BytesSource(data))
	require.NoError(t, err)

	pos, err := r.FindDataPosition("greeting")
	require.NoError(t, err)
	got, ok, err := r.LoadStringAt(pos)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hello", got)
}

func TestReaderLegacyTypeTable(t *testing.T) {
	index := func(i uint32, rest ...byte) []byte {
		e := newEncoder()
		e.WriteLength(i)
		e.buf.Write(rest)
		return e.Bytes()
	}
	str := newEncoder()
	str.WriteString("hi")
	num := newEncoder()
	num.WriteInt32(7)

	typeNames := []string{"System.String, mscorlib", "System.Int32", "Acme.Point, Acme"}
	entries := []rawEntry{
		{name: "s", payload: index(0, str.Bytes()...)},
		{name: "n", payload: index(1, num.Bytes()...)},
		{name: "p", payload: index(2, 3, '1', ',', '2')},
	}
	data := rawContainer(1, 1, nil, typeNames, entries)

	registry := NewTypeRegistry()
	registry.Register("Acme.Point", func(data []byte) (any, error) {
		return "point(" + string(data) + ")", nil
	})

	r, err := NewReader(BytesSource(data), WithReaderTypeRegistry(registry))
	require.NoError(t, err)
	assert.Equal(t, int32(1), r.FormatVersion())
	assert.Equal(t, typeNames, r.TypeTable())

	load := func(name string) (any, TypeCode, error) {
		pos, err := r.FindDataPosition(name)
		require.NoError(t, err)
		require.NotEqual(t, NotFound, pos)
		return r.LoadValueAt(pos)
	}

	value, code, err := load("s")
	require.NoError(t, err)
	assert.Equal(t, TypeString, code)
	assert.Equal(t, "hi", value)

	value, code, err = load("n")
	require.NoError(t, err)
	assert.Equal(t, TypeInt32, code)
	assert.Equal(t, int32(7), value)

	value, code, err = load("p")
	require.NoError(t, err)
	assert.True(t, code.IsUserType())
	assert.Equal(t, "point(1,2)", value)

	typeName, raw, ok, err := r.ResourceData("p")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Acme.Point, Acme", typeName)
	assert.Equal(t, []byte{3, '1', ',', '2'}, raw)
}

func TestReaderUserTypeWithoutDecoder(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.AddResourceData("point", "Acme.Point", []byte{1, 2}))
	data, err := w.Bytes()
	require.NoError(t, err)

	r, err := NewReader(BytesSource(data))
	require.NoError(t, err)
	pos, err := r.FindDataPosition("point")
	require.NoError(t, err)
	_, _, err = r.LoadValueAt(pos)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestReaderUnknownTypeCode(t *testing.T) {
	e := newEncoder()
	e.WriteLength(0x30)
	e.WriteInt32(1)
	data := rawContainer(1, FormatVersion, nil, nil, []rawEntry{
		{name: "odd", payload: e.Bytes()},
		{name: "fine", payload: stringPayload("still readable")},
	})

	r, err := NewReader(BytesSource(data))
	require.NoError(t, err)

	pos, err := r.FindDataPosition("odd")
	require.NoError(t, err)
	_, _, err = r.LoadValueAt(pos)
	assert.ErrorIs(t, err, ErrUnsupportedType)

	pos, err = r.FindDataPosition("fine")
	require.NoError(t, err)
	got, ok, err := r.LoadStringAt(pos)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "still readable", got)
}

func TestReaderEnumerateNameOrder(t *testing.T) {
	r := openContainer(t, map[string]any{"a": int32(1), "b": int32(2), "c": int32(3)})

	collect := func() ([]string, []any) {
		var names []string
		var values []any
		e := r.Enumerate()
		for e.Next() {
			value, _, err := e.Value()
			require.NoError(t, err)
			names = append(names, e.Name())
			values = append(values, value)
		}
		require.NoError(t, e.Err())
		return names, values
	}

	names, values := collect()
	// name section order follows the hash order: a, c, b
	assert.Equal(t, []string{"a", "c", "b"}, names)
	assert.Equal(t, []any{int32(1), int32(3), int32(2)}, values)

	again, _ := collect()
	assert.Equal(t, names, again)
}

func TestReaderResourceData(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.AddResource("blob", []byte{1, 2, 3}))
	require.NoError(t, w.AddResource("text", "x"))
	require.NoError(t, w.AddResourceData("point", "Acme.Point", []byte{9, 9}))
	data, err := w.Bytes()
	require.NoError(t, err)

	r, err := NewReader(BytesSource(data))
	require.NoError(t, err)

	typeName, raw, ok, err := r.ResourceData("blob")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "ByteArray", typeName)
	assert.Equal(t, []byte{3, 0, 0, 0, 1, 2, 3}, raw)

	typeName, raw, ok, err = r.ResourceData("point")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Acme.Point", typeName)
	assert.Equal(t, []byte{2, 9, 9}, raw)

	_, _, ok, err = r.ResourceData("missing")
	require.NoError(t, err)
	assert.False(t, ok)
}
