package resources

import (
	"encoding/binary"
	"io"
	"math"
	"unicode/utf8"
)

// maxLengthPrefixBytes bounds a 7-bit encoded length to 32 bits.
const maxLengthPrefixBytes = 5

// cursor reads little-endian values from a Source at a tracked position and
// refuses to move past limit. It is not safe for concurrent use.
type cursor struct {
	src     Source
	pos     int64
	limit   int64
	scratch [16]byte
}

func newCursor(src Source) *cursor {
	return &cursor{src: src, limit: src.Size()}
}

func (c *cursor) remaining() int64 {
	return c.limit - c.pos
}

func (c *cursor) seek(op string, off int64) error {
	if off < 0 || off > c.limit {
		return corruptf(op, off, "seek outside container bounds [0,%d]", c.limit)
	}
	c.pos = off
	return nil
}

func (c *cursor) skip(op string, n int64) error {
	if n < 0 || n > c.remaining() {
		return corruptf(op, c.pos, "skip of %d bytes exceeds %d remaining", n, c.remaining())
	}
	c.pos += n
	return nil
}

func (c *cursor) readInto(op string, buf []byte) error {
	if int64(len(buf)) > c.remaining() {
		return corruptf(op, c.pos, "read of %d bytes exceeds %d remaining", len(buf), c.remaining())
	}
	n, err := c.src.ReadAt(buf, c.pos)
	if n < len(buf) {
		if err == nil {
			err = io.ErrUnexpectedEOF
		}
		return corruptCause(op, c.pos, err)
	}
	c.pos += int64(n)
	return nil
}

func (c *cursor) readBytes(op string, n int64) ([]byte, error) {
	if n < 0 || n > c.remaining() {
		return nil, corruptf(op, c.pos, "length %d exceeds %d remaining", n, c.remaining())
	}
	buf := make([]byte, n)
	if err := c.readInto(op, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *cursor) readByte(op string) (byte, error) {
	if err := c.readInto(op, c.scratch[:1]); err != nil {
		return 0, err
	}
	return c.scratch[0], nil
}

func (c *cursor) readUint16(op string) (uint16, error) {
	if err := c.readInto(op, c.scratch[:2]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(c.scratch[:2]), nil
}

func (c *cursor) readUint32(op string) (uint32, error) {
	if err := c.readInto(op, c.scratch[:4]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(c.scratch[:4]), nil
}

func (c *cursor) readInt32(op string) (int32, error) {
	v, err := c.readUint32(op)
	return int32(v), err
}

func (c *cursor) readUint64(op string) (uint64, error) {
	if err := c.readInto(op, c.scratch[:8]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(c.scratch[:8]), nil
}

// readLength reads a 7-bit encoded unsigned length that must fit an int32.
func (c *cursor) readLength(op string) (int64, error) {
	start := c.pos
	var result uint64
	var shift uint
	for i := 0; i < maxLengthPrefixBytes; i++ {
		b, err := c.readByte(op)
		if err != nil {
			return 0, err
		}
		result |= uint64(b&0x7f) << shift
		if b&0x80 == 0 {
			if result > math.MaxInt32 {
				return 0, corruptf(op, start, "length %d overflows int32", result)
			}
			return int64(result), nil
		}
		shift += 7
	}
	return 0, corruptf(op, start, "7-bit encoded length longer than %d bytes", maxLengthPrefixBytes)
}

// readString reads a 7-bit length prefixed UTF-8 string.
func (c *cursor) readString(op string) (string, error) {
	start := c.pos
	n, err := c.readLength(op)
	if err != nil {
		return "", err
	}
	data, err := c.readBytes(op, n)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", corruptf(op, start, "invalid UTF-8 in string")
	}
	return string(data), nil
}

// readInt32Array reads count little-endian int32 values in one read.
func (c *cursor) readInt32Array(op string, count int) ([]int32, error) {
	size := int64(count) * 4
	if size > c.remaining() {
		return nil, corruptf(op, c.pos, "%d entries exceed %d remaining bytes", count, c.remaining())
	}
	raw, err := c.readBytes(op, size)
	if err != nil {
		return nil, err
	}
	out := make([]int32, count)
	for i := range out {
		out[i] = int32(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}
