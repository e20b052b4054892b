package resources

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"
)

const (
	// MagicNumber opens every resource container.
	MagicNumber uint32 = 0xBEEFCACE

	// HeaderVersion is the header layout written by Writer.
	HeaderVersion int32 = 1

	// FormatVersion is the data section layout written by Writer.
	FormatVersion int32 = 2

	// ReaderTypeName identifies this decoder in version 1 headers.
	ReaderTypeName = "goliatone.resources.Reader"

	// SetTypeName identifies the resource set type in version 1 headers.
	SetTypeName = "goliatone.resources.ResourceSet"

	// NotFound is returned by FindDataPosition for absent names.
	NotFound int32 = -1
)

const (
	ticksPerSecond   int64 = 10_000_000
	unixEpochTicks   int64 = 621_355_968_000_000_000
	maxDateTimeTicks int64 = 3_155_378_975_999_999_999
)

// Reader decodes one resource container. Header and name index are parsed
// eagerly; values are decoded on demand. A Reader shares a single cursor across
// calls and is not safe for concurrent use.
type Reader struct {
	src      Source
	closer   io.Closer
	cur      *cursor
	registry *TypeRegistry

	headerVersion int32
	formatVersion int32
	setTypeName   string
	typeTable     []string

	hashes    []int32
	positions []int32

	nameSectionOffset int64
	dataSectionOffset int64

	// sorted data offsets, built on first ResourceData call
	dataOffsets []int32
}

// ReaderOption customises a Reader.
type ReaderOption func(*Reader)

// WithReaderTypeRegistry resolves user type values through registry.
func WithReaderTypeRegistry(registry *TypeRegistry) ReaderOption {
	return func(r *Reader) {
		r.registry = registry
	}
}

// withReaderCloser hands ownership of an OS resource to the reader.
func withReaderCloser(closer io.Closer) ReaderOption {
	return func(r *Reader) {
		r.closer = closer
	}
}

// NewReader parses the container header from src.
func NewReader(src Source, opts ...ReaderOption) (*Reader, error) {
	if src == nil {
		return nil, corruptf("open", -1, "nil source")
	}
	r := &Reader{src: src, cur: newCursor(src)}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

// OpenReader opens and parses a container file.
func OpenReader(path string, opts ...ReaderOption) (*Reader, error) {
	src, closer, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	r, err := NewReader(src, append(opts, withReaderCloser(closer))...)
	if err != nil {
		closer.Close()
		return nil, fmt.Errorf("resources: %s: %w", path, err)
	}
	return r, nil
}

func (r *Reader) readHeader() error {
	c := r.cur
	const op = "header"

	magic, err := c.readUint32(op)
	if err != nil {
		return err
	}
	if magic != MagicNumber {
		return corruptf(op, 0, "bad magic number 0x%08x", magic)
	}

	r.headerVersion, err = c.readInt32(op)
	if err != nil {
		return err
	}
	switch {
	case r.headerVersion == 1:
		readerType, err := c.readString(op)
		if err != nil {
			return err
		}
		if readerType != ReaderTypeName {
			return corruptf(op, c.pos, "unknown reader type %q", readerType)
		}
		if r.setTypeName, err = c.readString(op); err != nil {
			return err
		}
	case r.headerVersion > 1:
		skip, err := c.readInt32(op)
		if err != nil {
			return err
		}
		if err := c.skip(op, int64(skip)); err != nil {
			return err
		}
	default:
		return corruptf(op, 4, "invalid header version %d", r.headerVersion)
	}

	r.formatVersion, err = c.readInt32(op)
	if err != nil {
		return err
	}
	if r.formatVersion != 1 && r.formatVersion != 2 {
		return corruptf(op, c.pos-4, "unsupported format version %d", r.formatVersion)
	}

	count, err := c.readInt32(op)
	if err != nil {
		return err
	}
	if count < 0 {
		return corruptf(op, c.pos-4, "negative resource count %d", count)
	}

	typeCount, err := c.readInt32(op)
	if err != nil {
		return err
	}
	if typeCount < 0 {
		return corruptf(op, c.pos-4, "negative type count %d", typeCount)
	}
	// every type name takes at least one byte
	if int64(typeCount) > c.remaining() {
		return corruptf(op, c.pos, "type count %d exceeds container size", typeCount)
	}
	r.typeTable = make([]string, typeCount)
	for i := range r.typeTable {
		if r.typeTable[i], err = c.readString("type table"); err != nil {
			return err
		}
	}

	if pad := c.pos & 7; pad != 0 {
		if err := c.skip("padding", 8-pad); err != nil {
			return err
		}
	}

	if r.hashes, err = c.readInt32Array("name hashes", int(count)); err != nil {
		return err
	}
	if r.positions, err = c.readInt32Array("name positions", int(count)); err != nil {
		return err
	}

	dataOffset, err := c.readInt32("data section")
	if err != nil {
		return err
	}
	r.nameSectionOffset = c.pos
	r.dataSectionOffset = int64(dataOffset)
	if r.dataSectionOffset < r.nameSectionOffset || r.dataSectionOffset > c.limit {
		return corruptf("data section", c.pos-4, "data section offset %d outside [%d,%d]",
			dataOffset, r.nameSectionOffset, c.limit)
	}

	nameSectionLen := r.dataSectionOffset - r.nameSectionOffset
	for i, pos := range r.positions {
		if pos < 0 || int64(pos) >= nameSectionLen {
			return corruptf("name positions", r.nameSectionOffset, "entry %d points to %d outside name section of %d bytes",
				i, pos, nameSectionLen)
		}
	}
	return nil
}

// Count returns the number of resources in the container.
func (r *Reader) Count() int {
	return len(r.hashes)
}

// FormatVersion returns the data section layout version (1 or 2).
func (r *Reader) FormatVersion() int32 {
	return r.formatVersion
}

// TypeTable returns the user type names recorded in the header.
func (r *Reader) TypeTable() []string {
	return append([]string(nil), r.typeTable...)
}

func (r *Reader) dataSectionLen() int64 {
	return r.cur.limit - r.dataSectionOffset
}

// FindDataPosition returns the data offset of name, or NotFound.
func (r *Reader) FindDataPosition(name string) (int32, error) {
	idx := r.findIndex(name)
	if idx < 0 {
		return NotFound, nil
	}
	hash := r.hashes[idx]
	for idx > 0 && r.hashes[idx-1] == hash {
		idx--
	}
	for ; idx < len(r.hashes) && r.hashes[idx] == hash; idx++ {
		match, dataPos, err := r.compareNameAt(idx, name)
		if err != nil {
			return NotFound, err
		}
		if match {
			return dataPos, nil
		}
	}
	return NotFound, nil
}

// findIndex binary searches the hash array for any entry with the hash of name.
func (r *Reader) findIndex(name string) int {
	hash := HashName(name)
	lo, hi := 0, len(r.hashes)-1
	for lo <= hi {
		mid := int(uint(lo+hi) >> 1)
		switch h := r.hashes[mid]; {
		case h == hash:
			return mid
		case h < hash:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return -1
}

func (r *Reader) compareNameAt(idx int, name string) (bool, int32, error) {
	const op = "name section"
	c := r.cur
	if err := c.seek(op, r.nameSectionOffset+int64(r.positions[idx])); err != nil {
		return false, NotFound, err
	}
	n, err := c.readLength(op)
	if err != nil {
		return false, NotFound, err
	}
	if n != int64(len(name)) {
		return false, NotFound, nil
	}
	stored, err := c.readBytes(op, n)
	if err != nil {
		return false, NotFound, err
	}
	if string(stored) != name {
		return false, NotFound, nil
	}
	dataPos, err := r.readDataPosition()
	if err != nil {
		return false, NotFound, err
	}
	return true, dataPos, nil
}

func (r *Reader) readDataPosition() (int32, error) {
	const op = "name section"
	at := r.cur.pos
	dataPos, err := r.cur.readInt32(op)
	if err != nil {
		return NotFound, err
	}
	if dataPos < 0 || int64(dataPos) >= r.dataSectionLen() {
		return NotFound, corruptf(op, at, "data position %d outside data section of %d bytes", dataPos, r.dataSectionLen())
	}
	return dataPos, nil
}

// entryAt reads the name and data position of the idx-th index entry.
func (r *Reader) entryAt(idx int) (string, int32, error) {
	if err := r.cur.seek("name section", r.nameSectionOffset+int64(r.positions[idx])); err != nil {
		return "", NotFound, err
	}
	name, err := r.cur.readString("name section")
	if err != nil {
		return "", NotFound, err
	}
	dataPos, err := r.readDataPosition()
	if err != nil {
		return "", NotFound, err
	}
	return name, dataPos, nil
}

func (r *Reader) seekData(dataPos int32) error {
	if dataPos < 0 || int64(dataPos) >= r.dataSectionLen() {
		return corruptf("data section", r.dataSectionOffset+int64(dataPos),
			"data position %d outside data section of %d bytes", dataPos, r.dataSectionLen())
	}
	return r.cur.seek("data section", r.dataSectionOffset+int64(dataPos))
}

// readTypeCode reads the type tag of a value, translating version 1 type
// table indexes into type codes. typeName is set for user types.
func (r *Reader) readTypeCode() (code TypeCode, typeName string, err error) {
	at := r.cur.pos
	raw, err := r.cur.readLength("type code")
	if err != nil {
		return 0, "", err
	}
	if r.formatVersion == 1 {
		if raw >= int64(len(r.typeTable)) {
			return 0, "", corruptf("type code", at, "type index %d outside table of %d", raw, len(r.typeTable))
		}
		name := r.typeTable[raw]
		if legacy, ok := legacyTypeCode(name); ok {
			return legacy, "", nil
		}
		return TypeStartOfUserTypes + TypeCode(raw), name, nil
	}

	code = TypeCode(raw)
	if code.IsUserType() {
		idx := int64(code - TypeStartOfUserTypes)
		if idx >= int64(len(r.typeTable)) {
			return 0, "", corruptf("type code", at, "user type %d outside table of %d", idx, len(r.typeTable))
		}
		return code, r.typeTable[idx], nil
	}
	return code, "", nil
}

// LoadValueAt decodes the value stored at dataPos. Null values decode to nil.
func (r *Reader) LoadValueAt(dataPos int32) (any, TypeCode, error) {
	if err := r.seekData(dataPos); err != nil {
		return nil, 0, err
	}
	code, typeName, err := r.readTypeCode()
	if err != nil {
		return nil, 0, err
	}
	value, err := r.decodeValue(code, typeName)
	if err != nil {
		return nil, code, err
	}
	return value, code, nil
}

// LoadStringAt decodes a string value at dataPos. ok is false for Null values;
// any other type fails with ErrTypeMismatch.
func (r *Reader) LoadStringAt(dataPos int32) (value string, ok bool, err error) {
	if err := r.seekData(dataPos); err != nil {
		return "", false, err
	}
	code, _, err := r.readTypeCode()
	if err != nil {
		return "", false, err
	}
	switch code {
	case TypeNull:
		return "", false, nil
	case TypeString:
		s, err := r.cur.readString("string value")
		if err != nil {
			return "", false, err
		}
		return s, true, nil
	default:
		return "", false, typeMismatch("", TypeString.String(), code)
	}
}

func (r *Reader) decodeValue(code TypeCode, typeName string) (any, error) {
	c := r.cur
	const op = "value"

	switch code {
	case TypeNull:
		return nil, nil
	case TypeString:
		return c.readString(op)
	case TypeBoolean:
		b, err := c.readByte(op)
		return b != 0, err
	case TypeChar:
		v, err := c.readUint16(op)
		return Char(v), err
	case TypeByte:
		return c.readByte(op)
	case TypeSByte:
		b, err := c.readByte(op)
		return int8(b), err
	case TypeInt16:
		v, err := c.readUint16(op)
		return int16(v), err
	case TypeUInt16:
		return c.readUint16(op)
	case TypeInt32:
		return c.readInt32(op)
	case TypeUInt32:
		return c.readUint32(op)
	case TypeInt64:
		v, err := c.readUint64(op)
		return int64(v), err
	case TypeUInt64:
		return c.readUint64(op)
	case TypeSingle:
		v, err := c.readUint32(op)
		return math.Float32frombits(v), err
	case TypeDouble:
		v, err := c.readUint64(op)
		return math.Float64frombits(v), err
	case TypeDecimal:
		return r.decodeDecimal()
	case TypeDateTime:
		at := c.pos
		v, err := c.readUint64(op)
		if err != nil {
			return nil, err
		}
		ticks := int64(v)
		if ticks < 0 || ticks > maxDateTimeTicks {
			return nil, corruptf(op, at, "date time ticks %d out of range", ticks)
		}
		return ticksToTime(ticks), nil
	case TypeTimeSpan:
		at := c.pos
		v, err := c.readUint64(op)
		if err != nil {
			return nil, err
		}
		ticks := int64(v)
		if ticks > math.MaxInt64/100 || ticks < math.MinInt64/100 {
			return nil, &Error{Kind: ErrUnsupportedType, Op: op, Offset: at, Detail: fmt.Sprintf("time span of %d ticks overflows time.Duration", ticks)}
		}
		return time.Duration(ticks * 100), nil
	case TypeByteArray:
		n, err := r.readBlobLength()
		if err != nil {
			return nil, err
		}
		return c.readBytes(op, n)
	case TypeStream:
		n, err := r.readBlobLength()
		if err != nil {
			return nil, err
		}
		// a bounded view over the source; the cursor does not need to advance
		return io.NewSectionReader(r.src, c.pos, n), nil
	}

	if code.IsUserType() {
		return r.decodeUserType(typeName)
	}
	return nil, &Error{Kind: ErrUnsupportedType, Op: op, Offset: c.pos, Detail: code.String()}
}

func (r *Reader) readBlobLength() (int64, error) {
	c := r.cur
	at := c.pos
	n, err := c.readInt32("blob length")
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, corruptf("blob length", at, "negative length %d", n)
	}
	if int64(n) > c.remaining() {
		return 0, corruptf("blob length", at, "length %d exceeds %d remaining", n, c.remaining())
	}
	return int64(n), nil
}

func (r *Reader) decodeDecimal() (Decimal, error) {
	c := r.cur
	at := c.pos
	var words [4]uint32
	for i := range words {
		v, err := c.readUint32("decimal")
		if err != nil {
			return Decimal{}, err
		}
		words[i] = v
	}
	d := Decimal{Lo: words[0], Mid: words[1], Hi: words[2], Flags: words[3]}
	if !d.valid() {
		return Decimal{}, corruptf("decimal", at, "invalid decimal flags 0x%08x", d.Flags)
	}
	return d, nil
}

func (r *Reader) decodeUserType(typeName string) (any, error) {
	c := r.cur
	at := c.pos
	n, err := c.readLength("user type")
	if err != nil {
		return nil, err
	}
	data, err := c.readBytes("user type", n)
	if err != nil {
		return nil, err
	}
	dec, ok := r.registry.Lookup(typeName)
	if !ok {
		return nil, &Error{Kind: ErrUnsupportedType, Op: "value", Offset: at, Detail: fmt.Sprintf("no decoder registered for %q", typeName)}
	}
	value, err := dec(data)
	if err != nil {
		return nil, fmt.Errorf("resources: decode %s: %w", typeName, err)
	}
	return value, nil
}

// ResourceData returns the type name and raw payload bytes of name without
// decoding the value. The payload extends to the next greater data offset, or
// to the end of the container for the last value.
func (r *Reader) ResourceData(name string) (typeName string, data []byte, ok bool, err error) {
	dataPos, err := r.FindDataPosition(name)
	if err != nil || dataPos == NotFound {
		return "", nil, false, err
	}
	if err := r.ensureDataOffsets(); err != nil {
		return "", nil, false, err
	}

	end := r.dataSectionLen()
	idx := sort.Search(len(r.dataOffsets), func(i int) bool { return r.dataOffsets[i] > dataPos })
	if idx < len(r.dataOffsets) {
		end = int64(r.dataOffsets[idx])
	}

	if err := r.seekData(dataPos); err != nil {
		return "", nil, false, err
	}
	code, userName, err := r.readTypeCode()
	if err != nil {
		return "", nil, false, err
	}
	start := r.cur.pos - r.dataSectionOffset
	if end < start {
		return "", nil, false, corruptf("resource data", r.cur.pos, "value of %q overlaps the next value", name)
	}
	data, err = r.cur.readBytes("resource data", end-start)
	if err != nil {
		return "", nil, false, err
	}

	typeName = code.String()
	if userName != "" {
		typeName = userName
	}
	return typeName, data, true, nil
}

func (r *Reader) ensureDataOffsets() error {
	if r.dataOffsets != nil || len(r.positions) == 0 {
		return nil
	}
	offsets := make([]int32, len(r.positions))
	for i := range r.positions {
		_, dataPos, err := r.entryAt(i)
		if err != nil {
			return err
		}
		offsets[i] = dataPos
	}
	sort.Slice(offsets, func(i, j int) bool { return offsets[i] < offsets[j] })
	r.dataOffsets = offsets
	return nil
}

// Enumerate returns a fresh enumerator over every entry in name section order.
func (r *Reader) Enumerate() *Enumerator {
	order := make([]int, len(r.positions))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return r.positions[order[i]] < r.positions[order[j]]
	})
	return &Enumerator{r: r, order: order, idx: -1}
}

// Close releases the source if the reader owns it.
func (r *Reader) Close() error {
	if r == nil || r.closer == nil {
		return nil
	}
	closer := r.closer
	r.closer = nil
	return closer.Close()
}

// Enumerator walks the entries of a Reader. Each step re-seeks the shared
// cursor, so it must not be interleaved with other calls on the same Reader
// from different goroutines.
type Enumerator struct {
	r       *Reader
	order   []int
	idx     int
	name    string
	dataPos int32
	err     error
}

// Next advances to the next entry.
func (e *Enumerator) Next() bool {
	if e.err != nil || e.idx+1 >= len(e.order) {
		return false
	}
	e.idx++
	e.name, e.dataPos, e.err = e.r.entryAt(e.order[e.idx])
	return e.err == nil
}

// Name returns the current entry name.
func (e *Enumerator) Name() string {
	return e.name
}

// DataPosition returns the current entry data offset.
func (e *Enumerator) DataPosition() int32 {
	return e.dataPos
}

// Value decodes the current entry value.
func (e *Enumerator) Value() (any, TypeCode, error) {
	return e.r.LoadValueAt(e.dataPos)
}

// Err returns the error that stopped the enumeration, if any.
func (e *Enumerator) Err() error {
	return e.err
}

func ticksToTime(ticks int64) time.Time {
	d := ticks - unixEpochTicks
	sec := d / ticksPerSecond
	rem := d % ticksPerSecond
	if rem < 0 {
		rem += ticksPerSecond
		sec--
	}
	return time.Unix(sec, rem*100).UTC()
}

func timeToTicks(t time.Time) int64 {
	t = t.UTC()
	return t.Unix()*ticksPerSecond + unixEpochTicks + int64(t.Nanosecond())/100
}
