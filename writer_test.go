package resources

import (
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterRejectsDuplicateNames(t *testing.T) {
	w := NewWriter()
	require.NoError(t, w.AddResource("title", "a"))
	assert.Error(t, w.AddResource("title", "b"))
	assert.Error(t, w.AddResourceData("title", "Acme.Point", nil))
	// names are case-sensitive
	assert.NoError(t, w.AddResource("Title", "c"))
	assert.Equal(t, 2, w.Len())
}

func TestWriterRejectsUnsupportedValues(t *testing.T) {
	w := NewWriter()

	err := w.AddResource("point", struct{ X, Y int }{1, 2})
	assert.ErrorIs(t, err, ErrUnsupportedType)

	err = w.AddResource("ancient", time.Date(-1, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Error(t, err)

	assert.Error(t, w.AddResource("decimal", Decimal{Flags: 0x1}))
	assert.Error(t, w.AddResourceData("user", "", []byte{1}))
}

func TestWriterHeaderLayout(t *testing.T) {
	data := buildContainer(t, map[string]any{"a": "x"})

	assert.Equal(t, MagicNumber, binary.LittleEndian.Uint32(data[0:]))
	assert.Equal(t, uint32(HeaderVersion), binary.LittleEndian.Uint32(data[4:]))

	r, err := NewReader(BytesSource(data))
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, r.FormatVersion())
	assert.Equal(t, 1, r.Count())
	assert.Empty(t, r.TypeTable())
}

func TestWriterEmptyContainer(t *testing.T) {
	data, err := NewWriter().Bytes()
	require.NoError(t, err)

	r, err := NewReader(BytesSource(data))
	require.NoError(t, err)
	assert.Equal(t, 0, r.Count())

	pos, err := r.FindDataPosition("anything")
	require.NoError(t, err)
	assert.Equal(t, NotFound, pos)

	e := r.Enumerate()
	assert.False(t, e.Next())
	assert.NoError(t, e.Err())
}

func TestWriterCopiesByteSlices(t *testing.T) {
	blob := []byte{1, 2, 3}
	w := NewWriter()
	require.NoError(t, w.AddResource("blob", blob))
	blob[0] = 9

	data, err := w.Bytes()
	require.NoError(t, err)
	r, err := NewReader(BytesSource(data))
	require.NoError(t, err)

	pos, err := r.FindDataPosition("blob")
	require.NoError(t, err)
	value, _, err := r.LoadValueAt(pos)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, value)
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in    string
		want  string
		scale uint8
		err   bool
	}{
		{in: "12.50", want: "12.50", scale: 2},
		{in: "-0.001", want: "-0.001", scale: 3},
		{in: "42", want: "42", scale: 0},
		{in: "", err: true},
		{in: "1.2.3", err: true},
		{in: "abc", err: true},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			d, err := ParseDecimal(tc.in)
			if tc.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, d.String())
			assert.Equal(t, tc.scale, d.Scale())
		})
	}
}
