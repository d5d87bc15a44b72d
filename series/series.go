// Package series materializes a channel's resolved blocks into a typed,
// randomly indexable sequence of sample values.
//
// A Series is a read-only projection: multi-block channels are concatenated
// in declared block order, so observable element order always matches the
// metadata's declared order. Numeric types decode by direct byte
// reinterpretation honoring the channel's byte order; booleans decode one
// byte per element with zero as false; fixed-length strings are fixed-width
// windows trimmed of trailing padding; variable-length strings are cut by
// their companion length table. Implicit linear channels are generated
// without any binary backing, and raw linear channels scale each decoded
// value as offset + slope*raw.
package series

import (
	"fmt"
	"iter"
	"slices"

	"github.com/arloliu/tdm/errs"
	"github.com/arloliu/tdm/format"
)

// Series is the decoded, indexable representation of one channel's values.
//
// The backing buffer is materialized once at decode time; element access is
// O(1). A Series holds no reference to the binary resource it was decoded
// from and stays valid after the owning file is closed.
type Series struct {
	dtype    format.DataType
	declared uint64

	// Exactly one backing slice is non-nil, matching dtype.
	i8  []int8
	i16 []int16
	i32 []int32
	i64 []int64
	u8  []uint8
	u16 []uint16
	u32 []uint32
	u64 []uint64
	f32 []float32
	f64 []float64
	bl  []bool
	str []string
}

// Type returns the channel's effective element type.
func (s *Series) Type() format.DataType {
	return s.dtype
}

// Len returns the number of decoded elements.
func (s *Series) Len() int {
	switch s.dtype {
	case format.TypeInt8:
		return len(s.i8)
	case format.TypeInt16:
		return len(s.i16)
	case format.TypeInt32:
		return len(s.i32)
	case format.TypeInt64:
		return len(s.i64)
	case format.TypeUint8:
		return len(s.u8)
	case format.TypeUint16:
		return len(s.u16)
	case format.TypeUint32:
		return len(s.u32)
	case format.TypeUint64:
		return len(s.u64)
	case format.TypeFloat32:
		return len(s.f32)
	case format.TypeFloat64:
		return len(s.f64)
	case format.TypeBool:
		return len(s.bl)
	case format.TypeString:
		return len(s.str)
	default:
		return 0
	}
}

// DeclaredLength returns the element count the metadata declared.
// A Series whose Len is below this value was degraded during load
// (truncated data or an unreachable resource).
func (s *Series) DeclaredLength() uint64 {
	return s.declared
}

// Degraded reports whether fewer elements than declared were decoded.
func (s *Series) Degraded() bool {
	return uint64(s.Len()) < s.declared
}

// At returns element i as its natural Go type.
// Fails with errs.ErrIndexOutOfRange for invalid indices.
func (s *Series) At(i int) (any, error) {
	if err := s.check(i); err != nil {
		return nil, err
	}

	switch s.dtype {
	case format.TypeInt8:
		return s.i8[i], nil
	case format.TypeInt16:
		return s.i16[i], nil
	case format.TypeInt32:
		return s.i32[i], nil
	case format.TypeInt64:
		return s.i64[i], nil
	case format.TypeUint8:
		return s.u8[i], nil
	case format.TypeUint16:
		return s.u16[i], nil
	case format.TypeUint32:
		return s.u32[i], nil
	case format.TypeUint64:
		return s.u64[i], nil
	case format.TypeFloat32:
		return s.f32[i], nil
	case format.TypeFloat64:
		return s.f64[i], nil
	case format.TypeBool:
		return s.bl[i], nil
	default:
		return s.str[i], nil
	}
}

// FloatAt returns numeric element i converted to float64.
// Fails with errs.ErrNotNumeric for boolean and string channels.
func (s *Series) FloatAt(i int) (float64, error) {
	if err := s.check(i); err != nil {
		return 0, err
	}

	switch s.dtype {
	case format.TypeInt8:
		return float64(s.i8[i]), nil
	case format.TypeInt16:
		return float64(s.i16[i]), nil
	case format.TypeInt32:
		return float64(s.i32[i]), nil
	case format.TypeInt64:
		return float64(s.i64[i]), nil
	case format.TypeUint8:
		return float64(s.u8[i]), nil
	case format.TypeUint16:
		return float64(s.u16[i]), nil
	case format.TypeUint32:
		return float64(s.u32[i]), nil
	case format.TypeUint64:
		return float64(s.u64[i]), nil
	case format.TypeFloat32:
		return float64(s.f32[i]), nil
	case format.TypeFloat64:
		return s.f64[i], nil
	default:
		return 0, fmt.Errorf("%w: type %s", errs.ErrNotNumeric, s.dtype)
	}
}

// IntAt returns integer element i converted to int64.
// Fails with errs.ErrNotNumeric for float, boolean, and string channels.
func (s *Series) IntAt(i int) (int64, error) {
	if err := s.check(i); err != nil {
		return 0, err
	}

	switch s.dtype {
	case format.TypeInt8:
		return int64(s.i8[i]), nil
	case format.TypeInt16:
		return int64(s.i16[i]), nil
	case format.TypeInt32:
		return int64(s.i32[i]), nil
	case format.TypeInt64:
		return s.i64[i], nil
	case format.TypeUint8:
		return int64(s.u8[i]), nil
	case format.TypeUint16:
		return int64(s.u16[i]), nil
	case format.TypeUint32:
		return int64(s.u32[i]), nil
	case format.TypeUint64:
		return int64(s.u64[i]), nil
	default:
		return 0, fmt.Errorf("%w: type %s", errs.ErrNotNumeric, s.dtype)
	}
}

// StringAt returns string element i. Only valid for string channels.
func (s *Series) StringAt(i int) (string, error) {
	if err := s.check(i); err != nil {
		return "", err
	}
	if s.dtype != format.TypeString {
		return "", fmt.Errorf("%w: StringAt on type %s", errs.ErrUnsupportedChannelType, s.dtype)
	}

	return s.str[i], nil
}

// BoolAt returns boolean element i. Only valid for boolean channels.
func (s *Series) BoolAt(i int) (bool, error) {
	if err := s.check(i); err != nil {
		return false, err
	}
	if s.dtype != format.TypeBool {
		return false, fmt.Errorf("%w: BoolAt on type %s", errs.ErrUnsupportedChannelType, s.dtype)
	}

	return s.bl[i], nil
}

// Floats returns every element converted to float64 in a fresh slice.
// Fails with errs.ErrNotNumeric for boolean and string channels.
func (s *Series) Floats() ([]float64, error) {
	if !s.dtype.IsNumeric() {
		return nil, fmt.Errorf("%w: type %s", errs.ErrNotNumeric, s.dtype)
	}
	if s.dtype == format.TypeFloat64 {
		return slices.Clone(s.f64), nil
	}

	out := make([]float64, s.Len())
	for i := range out {
		out[i], _ = s.FloatAt(i)
	}

	return out, nil
}

// Export returns a copy of the backing buffer as a contiguous typed slice
// matching the channel's declared element type ([]int8, []float32, []string,
// ...). Mutating the returned slice does not affect the Series.
func (s *Series) Export() any {
	switch s.dtype {
	case format.TypeInt8:
		return slices.Clone(s.i8)
	case format.TypeInt16:
		return slices.Clone(s.i16)
	case format.TypeInt32:
		return slices.Clone(s.i32)
	case format.TypeInt64:
		return slices.Clone(s.i64)
	case format.TypeUint8:
		return slices.Clone(s.u8)
	case format.TypeUint16:
		return slices.Clone(s.u16)
	case format.TypeUint32:
		return slices.Clone(s.u32)
	case format.TypeUint64:
		return slices.Clone(s.u64)
	case format.TypeFloat32:
		return slices.Clone(s.f32)
	case format.TypeFloat64:
		return slices.Clone(s.f64)
	case format.TypeBool:
		return slices.Clone(s.bl)
	case format.TypeString:
		return slices.Clone(s.str)
	default:
		return nil
	}
}

// All returns an iterator over (index, value) pairs in element order.
//
// Example:
//
//	for i, v := range view.All() {
//	    fmt.Printf("[%d] %v\n", i, v)
//	}
func (s *Series) All() iter.Seq2[int, any] {
	return func(yield func(int, any) bool) {
		n := s.Len()
		for i := 0; i < n; i++ {
			v, _ := s.At(i)
			if !yield(i, v) {
				return
			}
		}
	}
}

func (s *Series) check(i int) error {
	if i < 0 || i >= s.Len() {
		return fmt.Errorf("%w: element %d of %d", errs.ErrIndexOutOfRange, i, s.Len())
	}

	return nil
}
