package resources

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

// Writer accumulates named values and generates a resource container.
type Writer struct {
	entries   map[string]pendingResource
	typeNames []string
	typeIndex map[string]int
}

type pendingResource struct {
	name     string
	code     TypeCode
	value    any
	userData []byte
}

// NewWriter returns an empty container writer.
func NewWriter() *Writer {
	return &Writer{
		entries:   make(map[string]pendingResource),
		typeIndex: make(map[string]int),
	}
}

// Len returns the number of resources added so far.
func (w *Writer) Len() int {
	return len(w.entries)
}

// AddResource stores value under name. Supported values are nil, string, bool,
// Char, the sized integer and float types, int and uint (stored as 64-bit),
// Decimal, time.Time, time.Duration, []byte and io.Reader (stored as a stream).
func (w *Writer) AddResource(name string, value any) error {
	if err := w.checkName(name); err != nil {
		return err
	}

	entry := pendingResource{name: name, value: value}
	switch v := value.(type) {
	case nil:
		entry.code = TypeNull
	case string:
		entry.code = TypeString
	case bool:
		entry.code = TypeBoolean
	case Char:
		entry.code = TypeChar
	case uint8:
		entry.code = TypeByte
	case int8:
		entry.code = TypeSByte
	case int16:
		entry.code = TypeInt16
	case uint16:
		entry.code = TypeUInt16
	case int32:
		entry.code = TypeInt32
	case uint32:
		entry.code = TypeUInt32
	case int64:
		entry.code = TypeInt64
	case int:
		entry.code, entry.value = TypeInt64, int64(v)
	case uint64:
		entry.code = TypeUInt64
	case uint:
		entry.code, entry.value = TypeUInt64, uint64(v)
	case float32:
		entry.code = TypeSingle
	case float64:
		entry.code = TypeDouble
	case Decimal:
		if !v.valid() {
			return fmt.Errorf("resources: resource %q: invalid decimal flags 0x%08x", name, v.Flags)
		}
		entry.code = TypeDecimal
	case time.Time:
		ticks := timeToTicks(v)
		if ticks < 0 || ticks > maxDateTimeTicks {
			return fmt.Errorf("resources: resource %q: time %s out of range", name, v)
		}
		entry.code, entry.value = TypeDateTime, ticks
	case time.Duration:
		entry.code, entry.value = TypeTimeSpan, int64(v/100)
	case []byte:
		entry.code, entry.value = TypeByteArray, append([]byte(nil), v...)
	case io.Reader:
		data, err := io.ReadAll(v)
		if err != nil {
			return fmt.Errorf("resources: resource %q: read stream: %w", name, err)
		}
		entry.code, entry.value = TypeStream, data
	default:
		return &Error{Kind: ErrUnsupportedType, Op: "add resource", Name: name, Offset: -1, Detail: fmt.Sprintf("%T", value)}
	}

	w.entries[name] = entry
	return nil
}

// AddResourceData stores an already serialized value of a user type. Readers
// decode it through a TypeDecoder registered for typeName.
func (w *Writer) AddResourceData(name, typeName string, data []byte) error {
	if err := w.checkName(name); err != nil {
		return err
	}
	if typeName == "" {
		return errors.New("resources: empty user type name")
	}
	idx, ok := w.typeIndex[typeName]
	if !ok {
		idx = len(w.typeNames)
		w.typeNames = append(w.typeNames, typeName)
		w.typeIndex[typeName] = idx
	}
	w.entries[name] = pendingResource{
		name:     name,
		code:     TypeStartOfUserTypes + TypeCode(idx),
		userData: append([]byte(nil), data...),
	}
	return nil
}

func (w *Writer) checkName(name string) error {
	if _, exists := w.entries[name]; exists {
		return fmt.Errorf("resources: duplicate resource name %q", name)
	}
	return nil
}

// Bytes generates the container into memory.
func (w *Writer) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := w.Generate(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Generate writes the container to out. Entries are ordered by name hash so
// readers can binary search the index.
func (w *Writer) Generate(out io.Writer) error {
	sorted := make([]pendingResource, 0, len(w.entries))
	for _, entry := range w.entries {
		sorted = append(sorted, entry)
	}
	sort.Slice(sorted, func(i, j int) bool {
		hi, hj := HashName(sorted[i].name), HashName(sorted[j].name)
		if hi != hj {
			return hi < hj
		}
		return sorted[i].name < sorted[j].name
	})

	data := newEncoder()
	dataOffsets := make([]int32, len(sorted))
	for i, entry := range sorted {
		if data.Len() > math.MaxInt32 {
			return errors.New("resources: data section exceeds 2GiB")
		}
		dataOffsets[i] = int32(data.Len())
		if err := data.writeValue(entry); err != nil {
			return err
		}
	}

	names := newEncoder()
	hashes := make([]int32, len(sorted))
	positions := make([]int32, len(sorted))
	for i, entry := range sorted {
		hashes[i] = HashName(entry.name)
		positions[i] = int32(names.Len())
		names.WriteString(entry.name)
		names.WriteInt32(dataOffsets[i])
	}

	header := newEncoder()
	header.WriteUint32(MagicNumber)
	header.WriteInt32(HeaderVersion)
	header.WriteString(ReaderTypeName)
	header.WriteString(SetTypeName)
	header.WriteInt32(FormatVersion)
	header.WriteInt32(int32(len(sorted)))
	header.WriteInt32(int32(len(w.typeNames)))
	for _, name := range w.typeNames {
		header.WriteString(name)
	}
	header.pad8()
	for _, h := range hashes {
		header.WriteInt32(h)
	}
	for _, p := range positions {
		header.WriteInt32(p)
	}

	dataSectionOffset := int64(header.Len()) + 4 + int64(names.Len())
	if dataSectionOffset+int64(data.Len()) > math.MaxInt32 {
		return errors.New("resources: container exceeds 2GiB")
	}
	header.WriteInt32(int32(dataSectionOffset))

	for _, section := range [][]byte{header.Bytes(), names.Bytes(), data.Bytes()} {
		if _, err := out.Write(section); err != nil {
			return fmt.Errorf("resources: write container: %w", err)
		}
	}
	return nil
}

// encoder provides little-endian and 7-bit length prefixed writes.
type encoder struct {
	buf bytes.Buffer
}

func newEncoder() *encoder {
	return &encoder{}
}

func (e *encoder) Bytes() []byte {
	return e.buf.Bytes()
}

func (e *encoder) Len() int {
	return e.buf.Len()
}

// WriteLength writes v as an unsigned LEB128 value.
func (e *encoder) WriteLength(v uint32) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		e.buf.WriteByte(b)
		if v == 0 {
			break
		}
	}
}

func (e *encoder) WriteString(s string) {
	e.WriteLength(uint32(len(s)))
	e.buf.WriteString(s)
}

func (e *encoder) WriteUint16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) WriteUint32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	e.buf.Write(b[:])
}

func (e *encoder) WriteInt32(v int32) {
	e.WriteUint32(uint32(v))
}

func (e *encoder) WriteUint64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// pad8 pads to the next 8-byte boundary with the PAD pattern.
func (e *encoder) pad8() {
	pattern := []byte("PAD")
	for i := 0; e.buf.Len()&7 != 0; i++ {
		e.buf.WriteByte(pattern[i%len(pattern)])
	}
}

func (e *encoder) writeBlob(data []byte) error {
	if len(data) > math.MaxInt32 {
		return errors.New("resources: blob exceeds 2GiB")
	}
	e.WriteInt32(int32(len(data)))
	e.buf.Write(data)
	return nil
}

func (e *encoder) writeValue(entry pendingResource) error {
	e.WriteLength(uint32(entry.code))
	if entry.code.IsUserType() {
		e.WriteLength(uint32(len(entry.userData)))
		e.buf.Write(entry.userData)
		return nil
	}

	switch entry.code {
	case TypeNull:
	case TypeString:
		e.WriteString(entry.value.(string))
	case TypeBoolean:
		if entry.value.(bool) {
			e.buf.WriteByte(1)
		} else {
			e.buf.WriteByte(0)
		}
	case TypeChar:
		e.WriteUint16(uint16(entry.value.(Char)))
	case TypeByte:
		e.buf.WriteByte(entry.value.(uint8))
	case TypeSByte:
		e.buf.WriteByte(byte(entry.value.(int8)))
	case TypeInt16:
		e.WriteUint16(uint16(entry.value.(int16)))
	case TypeUInt16:
		e.WriteUint16(entry.value.(uint16))
	case TypeInt32:
		e.WriteInt32(entry.value.(int32))
	case TypeUInt32:
		e.WriteUint32(entry.value.(uint32))
	case TypeInt64, TypeDateTime, TypeTimeSpan:
		e.WriteUint64(uint64(entry.value.(int64)))
	case TypeUInt64:
		e.WriteUint64(entry.value.(uint64))
	case TypeSingle:
		e.WriteUint32(math.Float32bits(entry.value.(float32)))
	case TypeDouble:
		e.WriteUint64(math.Float64bits(entry.value.(float64)))
	case TypeDecimal:
		d := entry.value.(Decimal)
		e.WriteUint32(d.Lo)
		e.WriteUint32(d.Mid)
		e.WriteUint32(d.Hi)
		e.WriteUint32(d.Flags)
	case TypeByteArray, TypeStream:
		return e.writeBlob(entry.value.([]byte))
	default:
		return fmt.Errorf("resources: resource %q: cannot encode %s", entry.name, entry.code)
	}
	return nil
}
