package marshal

import (
	"encoding/binary"
	"math"

	"github.com/tetratelabs/wazero/api"
)

// encodeValue converts a Go scalar into the native slot of type t.
func encodeValue(t ValueType, arg any) (uint64, bool) {
	switch t {
	case I32:
		n, ok := asInt64(arg)
		return api.EncodeI32(int32(n)), ok
	case U32:
		n, ok := asInt64(arg)
		return api.EncodeU32(uint32(n)), ok
	case I64:
		n, ok := asInt64(arg)
		return api.EncodeI64(n), ok
	case F32:
		x, ok := asFloat64(arg)
		return api.EncodeF32(float32(x)), ok
	case F64:
		x, ok := asFloat64(arg)
		return api.EncodeF64(x), ok
	case Bool:
		b, ok := arg.(bool)
		if b {
			return 1, ok
		}
		return 0, ok
	}
	return 0, false
}

// decodeValue converts a native slot of type t into the matching Go scalar.
func decodeValue(t ValueType, slot uint64) any {
	switch t {
	case I32:
		return api.DecodeI32(slot)
	case U32:
		return api.DecodeU32(slot)
	case I64:
		return int64(slot)
	case F32:
		return api.DecodeF32(slot)
	case F64:
		return api.DecodeF64(slot)
	case Bool:
		return uint32(slot) != 0
	}
	return slot
}

func asInt64(arg any) (int64, bool) {
	switch v := arg.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	}
	return 0, false
}

func asFloat64(arg any) (float64, bool) {
	switch v := arg.(type) {
	case float32:
		return float64(v), true
	case float64:
		return v, true
	}
	n, ok := asInt64(arg)
	return float64(n), ok
}

// number is the set of caller element types accepted for primitive arrays.
type number interface {
	~int32 | ~uint32 | ~int64 | ~uint64 | ~float32 | ~float64
}

// encodeElems writes src into buf as native elements of type t, casting each
// element.
func encodeElems[T number](t ValueType, src []T, buf []byte) {
	w := int(t.Width())
	for i, v := range src {
		b := buf[i*w : (i+1)*w]
		switch t {
		case I32:
			binary.LittleEndian.PutUint32(b, uint32(int32(v)))
		case U32:
			binary.LittleEndian.PutUint32(b, uint32(v))
		case I64:
			binary.LittleEndian.PutUint64(b, uint64(int64(v)))
		case F32:
			binary.LittleEndian.PutUint32(b, math.Float32bits(float32(v)))
		case F64:
			binary.LittleEndian.PutUint64(b, math.Float64bits(float64(v)))
		case Bool:
			if v != 0 {
				b[0] = 1
			} else {
				b[0] = 0
			}
		}
	}
}

// decodeElems reads native elements of type t from buf into dst, casting each
// element to the caller's element type.
func decodeElems[T number](t ValueType, buf []byte, dst []T) {
	w := int(t.Width())
	for i := range dst {
		b := buf[i*w : (i+1)*w]
		switch t {
		case I32:
			dst[i] = T(int32(binary.LittleEndian.Uint32(b)))
		case U32:
			dst[i] = T(binary.LittleEndian.Uint32(b))
		case I64:
			dst[i] = T(int64(binary.LittleEndian.Uint64(b)))
		case F32:
			dst[i] = T(math.Float32frombits(binary.LittleEndian.Uint32(b)))
		case F64:
			dst[i] = T(math.Float64frombits(binary.LittleEndian.Uint64(b)))
		case Bool:
			if b[0] != 0 {
				dst[i] = 1
			} else {
				dst[i] = 0
			}
		}
	}
}
