package resources

import (
	"fmt"
	"math/big"
	"strings"
)

// Locale is the culture model consumed by the fallback sequence and the grovelers.
type Locale interface {
	// Name returns the canonical locale name, "" for the invariant locale
	Name() string
	// Parent returns the next less specific locale; the invariant locale is its own parent
	Parent() Locale
	// IsInvariant reports whether this is the culture-neutral root
	IsInvariant() bool
}

// TypeCode identifies how a value is encoded in the data section.
type TypeCode uint32

const (
	TypeNull     TypeCode = 0x00
	TypeString   TypeCode = 0x01
	TypeBoolean  TypeCode = 0x02
	TypeChar     TypeCode = 0x03
	TypeByte     TypeCode = 0x04
	TypeSByte    TypeCode = 0x05
	TypeInt16    TypeCode = 0x06
	TypeUInt16   TypeCode = 0x07
	TypeInt32    TypeCode = 0x08
	TypeUInt32   TypeCode = 0x09
	TypeInt64    TypeCode = 0x0a
	TypeUInt64   TypeCode = 0x0b
	TypeSingle   TypeCode = 0x0c
	TypeDouble   TypeCode = 0x0d
	TypeDecimal  TypeCode = 0x0e
	TypeDateTime TypeCode = 0x0f
	TypeTimeSpan TypeCode = 0x10

	// TypeLastPrimitive is the highest code whose values are cached in locators.
	TypeLastPrimitive = TypeTimeSpan

	TypeByteArray TypeCode = 0x20
	TypeStream    TypeCode = 0x21

	// TypeStartOfUserTypes is the first code handed out to registered user types.
	TypeStartOfUserTypes TypeCode = 0x40
)

var typeCodeNames = map[TypeCode]string{
	TypeNull:      "Null",
	TypeString:    "String",
	TypeBoolean:   "Boolean",
	TypeChar:      "Char",
	TypeByte:      "Byte",
	TypeSByte:     "SByte",
	TypeInt16:     "Int16",
	TypeUInt16:    "UInt16",
	TypeInt32:     "Int32",
	TypeUInt32:    "UInt32",
	TypeInt64:     "Int64",
	TypeUInt64:    "UInt64",
	TypeSingle:    "Single",
	TypeDouble:    "Double",
	TypeDecimal:   "Decimal",
	TypeDateTime:  "DateTime",
	TypeTimeSpan:  "TimeSpan",
	TypeByteArray: "ByteArray",
	TypeStream:    "Stream",
}

// legacyTypeNames maps version 1 type table entries to type codes.
var legacyTypeNames = map[string]TypeCode{
	"System.String":                   TypeString,
	"System.Boolean":                  TypeBoolean,
	"System.Char":                     TypeChar,
	"System.Byte":                     TypeByte,
	"System.SByte":                    TypeSByte,
	"System.Int16":                    TypeInt16,
	"System.UInt16":                   TypeUInt16,
	"System.Int32":                    TypeInt32,
	"System.UInt32":                   TypeUInt32,
	"System.Int64":                    TypeInt64,
	"System.UInt64":                   TypeUInt64,
	"System.Single":                   TypeSingle,
	"System.Double":                   TypeDouble,
	"System.Decimal":                  TypeDecimal,
	"System.DateTime":                 TypeDateTime,
	"System.TimeSpan":                 TypeTimeSpan,
	"System.Byte[]":                   TypeByteArray,
	"System.IO.MemoryStream":          TypeStream,
	"System.IO.UnmanagedMemoryStream": TypeStream,
}

func (c TypeCode) String() string {
	if name, ok := typeCodeNames[c]; ok {
		return name
	}
	if c >= TypeStartOfUserTypes {
		return fmt.Sprintf("UserType(%d)", uint32(c-TypeStartOfUserTypes))
	}
	return fmt.Sprintf("TypeCode(0x%02x)", uint32(c))
}

// IsPrimitive reports whether values of this type are small enough to be cached.
func (c TypeCode) IsPrimitive() bool {
	return c <= TypeLastPrimitive
}

// IsUserType reports whether the code lies in the user type range.
func (c TypeCode) IsUserType() bool {
	return c >= TypeStartOfUserTypes
}

// legacyTypeCode resolves a version 1 type table entry, ignoring assembly qualification.
func legacyTypeCode(typeName string) (TypeCode, bool) {
	name := typeName
	if idx := strings.Index(name, ","); idx >= 0 {
		name = name[:idx]
	}
	code, ok := legacyTypeNames[strings.TrimSpace(name)]
	return code, ok
}

// Char is a single UTF-16 code unit stored with TypeChar.
type Char uint16

// Decimal is a 96-bit integer scaled by a power of ten, stored as four 32-bit words.
type Decimal struct {
	Lo, Mid, Hi uint32
	Flags       uint32
}

const (
	decimalSignMask  = 0x80000000
	decimalScaleMask = 0x00ff0000
	decimalScaleBits = 16
)

// NewDecimal builds a Decimal from an unscaled integer and a scale in [0,28].
func NewDecimal(unscaled *big.Int, scale uint8) (Decimal, error) {
	if scale > 28 {
		return Decimal{}, fmt.Errorf("resources: decimal scale %d out of range", scale)
	}
	abs := new(big.Int).Abs(unscaled)
	if abs.BitLen() > 96 {
		return Decimal{}, fmt.Errorf("resources: decimal %s overflows 96 bits", unscaled)
	}
	words := make([]uint32, 3)
	mask := big.NewInt(0xffffffff)
	tmp := new(big.Int).Set(abs)
	for i := range words {
		words[i] = uint32(new(big.Int).And(tmp, mask).Uint64())
		tmp.Rsh(tmp, 32)
	}
	d := Decimal{Lo: words[0], Mid: words[1], Hi: words[2], Flags: uint32(scale) << decimalScaleBits}
	if unscaled.Sign() < 0 {
		d.Flags |= decimalSignMask
	}
	return d, nil
}

// Scale returns the power of ten the integer is divided by.
func (d Decimal) Scale() uint8 {
	return uint8((d.Flags & decimalScaleMask) >> decimalScaleBits)
}

// Negative reports whether the sign bit is set.
func (d Decimal) Negative() bool {
	return d.Flags&decimalSignMask != 0
}

// Unscaled returns the signed 96-bit integer part.
func (d Decimal) Unscaled() *big.Int {
	v := new(big.Int).SetUint64(uint64(d.Hi))
	v.Lsh(v, 32).Or(v, new(big.Int).SetUint64(uint64(d.Mid)))
	v.Lsh(v, 32).Or(v, new(big.Int).SetUint64(uint64(d.Lo)))
	if d.Negative() {
		v.Neg(v)
	}
	return v
}

// Rat returns the exact value as a rational number.
func (d Decimal) Rat() *big.Rat {
	den := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(d.Scale())), nil)
	return new(big.Rat).SetFrac(d.Unscaled(), den)
}

func (d Decimal) String() string {
	return d.Rat().FloatString(int(d.Scale()))
}

func (d Decimal) valid() bool {
	return d.Flags&^(decimalSignMask|decimalScaleMask) == 0 && d.Scale() <= 28
}

// ParseDecimal parses a plain decimal literal such as "-12.50". The number of
// fractional digits becomes the scale.
func ParseDecimal(s string) (Decimal, error) {
	text := strings.TrimSpace(s)
	digits := strings.TrimLeft(text, "+-")
	whole, frac, _ := strings.Cut(digits, ".")
	if whole == "" && frac == "" || len(frac) > 28 {
		return Decimal{}, fmt.Errorf("resources: invalid decimal %q", s)
	}
	unscaled, ok := new(big.Int).SetString(whole+frac, 10)
	if !ok || strings.ContainsAny(whole+frac, "+-") {
		return Decimal{}, fmt.Errorf("resources: invalid decimal %q", s)
	}
	if strings.HasPrefix(text, "-") {
		unscaled.Neg(unscaled)
	}
	return NewDecimal(unscaled, uint8(len(frac)))
}
