package series

import (
	"math"
	"strings"
	"unsafe"

	"github.com/arloliu/tdm/blockindex"
	"github.com/arloliu/tdm/endian"
	"github.com/arloliu/tdm/format"
	"github.com/arloliu/tdm/schema"
)

// Decode materializes a channel's resolved blocks into a Series.
//
// Blocks are decoded independently and concatenated in declared order, so
// whole-channel decoding and per-block decoding always agree. Degraded
// channels and channels with zero usable blocks yield an empty Series, not
// an error.
func Decode(ch *schema.Channel, blocks []blockindex.Block) *Series {
	switch {
	case ch.Degraded:
		return &Series{dtype: format.TypeInvalid}
	case ch.Rep == format.RepImplicitLinear:
		return decodeImplicit(ch)
	case ch.Rep == format.RepRawLinear:
		return decodeRawLinear(ch, blocks)
	default:
		return decodeExplicit(ch, blocks)
	}
}

// decodeImplicit generates offset + i*increment without binary backing.
func decodeImplicit(ch *schema.Channel) *Series {
	s := &Series{dtype: format.TypeFloat64, declared: ch.GenCount}
	s.f64 = make([]float64, ch.GenCount)
	for i := range s.f64 {
		s.f64[i] = ch.GenOffset + ch.GenSlope*float64(i)
	}

	return s
}

// decodeRawLinear decodes the raw blocks numerically and scales each value
// as offset + slope*raw. The effective element type is always float64.
func decodeRawLinear(ch *schema.Channel, blocks []blockindex.Block) *Series {
	raw := decodeExplicit(ch, blocks)
	s := &Series{dtype: format.TypeFloat64, declared: ch.DeclaredLength()}
	s.f64 = make([]float64, raw.Len())
	for i := range s.f64 {
		v, err := raw.FloatAt(i)
		if err != nil {
			// Non-numeric raw types cannot be scaled; treat as empty.
			return &Series{dtype: format.TypeFloat64, declared: ch.DeclaredLength()}
		}
		s.f64[i] = ch.GenOffset + ch.GenSlope*v
	}

	return s
}

// decodeExplicit concatenates the typed decodings of each block.
func decodeExplicit(ch *schema.Channel, blocks []blockindex.Block) *Series {
	s := &Series{dtype: ch.Type, declared: ch.DeclaredLength()}

	var total int
	for i := range blocks {
		total += blocks[i].Count
	}
	s.grow(total)

	for i := range blocks {
		s.appendBlock(&blocks[i], ch.Order)
	}

	return s
}

// grow pre-allocates the backing slice for the given element count.
func (s *Series) grow(n int) {
	switch s.dtype {
	case format.TypeInt8:
		s.i8 = make([]int8, 0, n)
	case format.TypeInt16:
		s.i16 = make([]int16, 0, n)
	case format.TypeInt32:
		s.i32 = make([]int32, 0, n)
	case format.TypeInt64:
		s.i64 = make([]int64, 0, n)
	case format.TypeUint8:
		s.u8 = make([]uint8, 0, n)
	case format.TypeUint16:
		s.u16 = make([]uint16, 0, n)
	case format.TypeUint32:
		s.u32 = make([]uint32, 0, n)
	case format.TypeUint64:
		s.u64 = make([]uint64, 0, n)
	case format.TypeFloat32:
		s.f32 = make([]float32, 0, n)
	case format.TypeFloat64:
		s.f64 = make([]float64, 0, n)
	case format.TypeBool:
		s.bl = make([]bool, 0, n)
	case format.TypeString:
		s.str = make([]string, 0, n)
	}
}

// appendBlock decodes one resolved block onto the backing slice.
func (s *Series) appendBlock(blk *blockindex.Block, order endian.EndianEngine) {
	if blk.Count == 0 {
		return
	}
	if s.dtype == format.TypeString {
		s.appendStrings(blk)
		return
	}

	data, stride := blk.Data, blk.Stride

	// Contiguous blocks in host byte order reinterpret the buffer directly
	// instead of element-wise assembly.
	if stride == s.dtype.Size() && endian.CompareNativeEndian(order) {
		if s.appendNative(data, blk.Count) {
			return
		}
	}

	for i := 0; i < blk.Count; i++ {
		off := i * stride
		switch s.dtype {
		case format.TypeInt8:
			s.i8 = append(s.i8, int8(data[off]))
		case format.TypeUint8:
			s.u8 = append(s.u8, data[off])
		case format.TypeBool:
			s.bl = append(s.bl, data[off] != 0)
		case format.TypeInt16:
			s.i16 = append(s.i16, int16(order.Uint16(data[off:off+2])))
		case format.TypeUint16:
			s.u16 = append(s.u16, order.Uint16(data[off:off+2]))
		case format.TypeInt32:
			s.i32 = append(s.i32, int32(order.Uint32(data[off:off+4])))
		case format.TypeUint32:
			s.u32 = append(s.u32, order.Uint32(data[off:off+4]))
		case format.TypeInt64:
			s.i64 = append(s.i64, int64(order.Uint64(data[off:off+8])))
		case format.TypeUint64:
			s.u64 = append(s.u64, order.Uint64(data[off:off+8]))
		case format.TypeFloat32:
			s.f32 = append(s.f32, math.Float32frombits(order.Uint32(data[off:off+4])))
		case format.TypeFloat64:
			s.f64 = append(s.f64, math.Float64frombits(order.Uint64(data[off:off+8])))
		}
	}
}

// appendNative bulk-copies a contiguous host-order buffer for the wide
// numeric types. Returns false when the type has no native fast path.
func (s *Series) appendNative(data []byte, count int) bool {
	if count == 0 {
		return true
	}
	base := unsafe.Pointer(&data[0])

	switch s.dtype {
	case format.TypeFloat64:
		s.f64 = append(s.f64, unsafe.Slice((*float64)(base), count)...)
	case format.TypeFloat32:
		s.f32 = append(s.f32, unsafe.Slice((*float32)(base), count)...)
	case format.TypeInt64:
		s.i64 = append(s.i64, unsafe.Slice((*int64)(base), count)...)
	case format.TypeUint64:
		s.u64 = append(s.u64, unsafe.Slice((*uint64)(base), count)...)
	case format.TypeInt32:
		s.i32 = append(s.i32, unsafe.Slice((*int32)(base), count)...)
	case format.TypeUint32:
		s.u32 = append(s.u32, unsafe.Slice((*uint32)(base), count)...)
	default:
		return false
	}

	return true
}

// appendStrings decodes a string block: variable-length when a length table
// is present, otherwise fixed-width windows trimmed of trailing padding.
func (s *Series) appendStrings(blk *blockindex.Block) {
	if blk.Lengths != nil {
		var off int64
		for _, l := range blk.Lengths {
			s.str = append(s.str, string(blk.Data[off:off+int64(l)]))
			off += int64(l)
		}

		return
	}

	width := blk.Stride
	for i := 0; i < blk.Count; i++ {
		window := blk.Data[i*width : i*width+blk.ElemSize]
		s.str = append(s.str, strings.TrimRight(string(window), "\x00 "))
	}
}

// Empty returns an empty Series of the given type. Used for degraded
// channels so query results stay uniform.
func Empty(dtype format.DataType) *Series {
	return &Series{dtype: dtype}
}
