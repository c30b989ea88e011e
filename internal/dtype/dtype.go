// Package dtype defines the primitive element types an argument or a storage
// buffer can carry, together with the little-endian codecs used to read and
// write single elements of raw storage.
package dtype

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/x448/float16"
	"github.com/zclconf/go-cty/cty"
)

// DType is a primitive element type.
type DType uint8

const (
	Invalid DType = iota
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	F16
	F32
	F64
)

var names = [...]string{
	Invalid: "invalid",
	I8:      "i8",
	I16:     "i16",
	I32:     "i32",
	I64:     "i64",
	U8:      "u8",
	U16:     "u16",
	U32:     "u32",
	U64:     "u64",
	F16:     "f16",
	F32:     "f32",
	F64:     "f64",
}

var sizes = [...]int{
	I8: 1, I16: 2, I32: 4, I64: 8,
	U8: 1, U16: 2, U32: 4, U64: 8,
	F16: 2, F32: 4, F64: 8,
}

// aliases maps the long spellings accepted in configuration files.
var aliases = map[string]DType{
	"int8": I8, "int16": I16, "int32": I32, "int64": I64,
	"uint8": U8, "uint16": U16, "uint32": U32, "uint64": U64,
	"float16": F16, "float32": F32, "float64": F64,
	"half": F16, "float": F32, "double": F64,
}

// All returns every valid dtype in declaration order.
func All() []DType {
	return []DType{I8, I16, I32, I64, U8, U16, U32, U64, F16, F32, F64}
}

// Parse returns the DType for a short ("f32") or long ("float32") name.
func Parse(name string) (DType, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for dt := I8; dt <= F64; dt++ {
		if names[dt] == n {
			return dt, nil
		}
	}
	if dt, ok := aliases[n]; ok {
		return dt, nil
	}
	return Invalid, fmt.Errorf("unknown dtype %q", name)
}

func (d DType) String() string {
	if int(d) < len(names) {
		return names[d]
	}
	return fmt.Sprintf("dtype(%d)", uint8(d))
}

// Valid reports whether d is one of the declared element types.
func (d DType) Valid() bool {
	return d >= I8 && d <= F64
}

// Size is the width of one element in bytes.
func (d DType) Size() int {
	if !d.Valid() {
		return 0
	}
	return sizes[d]
}

// IsFloat reports whether d is a floating point type.
func (d DType) IsFloat() bool {
	return d == F16 || d == F32 || d == F64
}

// IsSigned reports whether d is a signed integer type.
func (d DType) IsSigned() bool {
	return d >= I8 && d <= I64
}

// CtyType is the cty type configuration values of this dtype convert to.
func (d DType) CtyType() cty.Type {
	return cty.Number
}

// PutFloat64 encodes v as a d-typed element into b. Integers truncate.
func (d DType) PutFloat64(b []byte, v float64) {
	switch d {
	case F16:
		binary.LittleEndian.PutUint16(b, float16.Fromfloat32(float32(v)).Bits())
	case F32:
		binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
	case F64:
		binary.LittleEndian.PutUint64(b, math.Float64bits(v))
	default:
		d.PutInt64(b, int64(v))
	}
}

// Float64 decodes one d-typed element from b.
func (d DType) Float64(b []byte) float64 {
	switch d {
	case F16:
		return float64(float16.Frombits(binary.LittleEndian.Uint16(b)).Float32())
	case F32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	case F64:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	case U64:
		return float64(binary.LittleEndian.Uint64(b))
	default:
		return float64(d.Int64(b))
	}
}

// PutInt64 encodes v as a d-typed element into b.
func (d DType) PutInt64(b []byte, v int64) {
	switch d {
	case I8, U8:
		b[0] = byte(v)
	case I16, U16:
		binary.LittleEndian.PutUint16(b, uint16(v))
	case I32, U32:
		binary.LittleEndian.PutUint32(b, uint32(v))
	case I64, U64:
		binary.LittleEndian.PutUint64(b, uint64(v))
	default:
		d.PutFloat64(b, float64(v))
	}
}

// Int64 decodes one d-typed element from b. Floats truncate toward zero.
func (d DType) Int64(b []byte) int64 {
	switch d {
	case I8:
		return int64(int8(b[0]))
	case U8:
		return int64(b[0])
	case I16:
		return int64(int16(binary.LittleEndian.Uint16(b)))
	case U16:
		return int64(binary.LittleEndian.Uint16(b))
	case I32:
		return int64(int32(binary.LittleEndian.Uint32(b)))
	case U32:
		return int64(binary.LittleEndian.Uint32(b))
	case I64, U64:
		return int64(binary.LittleEndian.Uint64(b))
	default:
		return int64(d.Float64(b))
	}
}
