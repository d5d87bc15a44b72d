package blockindex

import (
	"fmt"

	"github.com/arloliu/tdm/endian"
	"github.com/arloliu/tdm/errs"
	"github.com/arloliu/tdm/format"
	"github.com/arloliu/tdm/schema"
)

// Block is one resolved, validated run of raw bytes contributing to a
// channel. Data is stride-packed exactly as stored; decoding it is the array
// view layer's job.
type Block struct {
	// Data holds the block's raw bytes, covering Count elements.
	Data []byte
	// Stride is the byte distance between consecutive elements in Data.
	// Zero for variable-length string blocks.
	Stride int
	// ElemSize is the fixed element width, zero for string blocks.
	ElemSize int
	// Count is the validated element count, never above the declared count.
	Count int
	// Truncated reports whether validation clamped the declared count.
	Truncated bool
	// Lengths holds the per-element byte lengths for string blocks.
	Lengths []uint32
}

// Resolve maps every BlockRef of a channel onto validated raw bytes.
//
// The returned warnings wrap errs.ErrTruncatedData for clamped blocks and
// errs.ErrResourceNotFound for blocks whose resource failed to open. Blocks
// are independent: a failing block contributes zero elements without
// discarding earlier valid ones.
func Resolve(set *Set, ch *schema.Channel) ([]Block, []error) {
	if ch.Degraded || ch.Rep == format.RepImplicitLinear {
		return nil, nil
	}

	blocks := make([]Block, 0, len(ch.Blocks))
	var warnings []error

	for i := range ch.Blocks {
		ref := &ch.Blocks[i]

		res, err := set.Get(ref.Resource)
		if err != nil {
			warnings = append(warnings, fmt.Errorf("channel %q block %d: %w", ch.Name, i, err))
			continue
		}

		var blk Block
		switch {
		case ch.Type == format.TypeString && ref.LengthRef != nil:
			blk, err = resolveString(res, ref, ch.Order)
		case ch.Type == format.TypeString:
			// Fixed-length strings: stride-wide byte windows.
			blk, err = resolveFixed(res, ref, int(ref.Stride))
		default:
			blk, err = resolveFixed(res, ref, ch.Type.Size())
		}
		if err != nil {
			warnings = append(warnings, fmt.Errorf("channel %q block %d: %w", ch.Name, i, err))
		}
		blocks = append(blocks, blk)
	}

	return blocks, warnings
}

// resolveFixed validates and reads a fixed-width block. When the declared
// extent exceeds the resource the count is clamped to the valid prefix and
// an ErrTruncatedData warning is returned alongside the usable block.
func resolveFixed(res *Resource, ref *schema.BlockRef, elemSize int) (Block, error) {
	blk := Block{Stride: int(ref.Stride), ElemSize: elemSize}
	if elemSize <= 0 || ref.Stride <= 0 {
		return blk, fmt.Errorf("%w: block has no element width", errs.ErrTruncatedData)
	}

	count := validCount(res.Size(), ref.Offset, ref.Stride, int64(elemSize), ref.Count)
	blk.Count = count
	blk.Truncated = uint64(count) < ref.Count

	if count > 0 {
		// Last element may end before the stride does.
		span := int64(count-1)*ref.Stride + int64(elemSize)
		data, err := res.bytes(ref.Offset, span)
		if err != nil {
			return Block{Stride: blk.Stride, ElemSize: elemSize}, err
		}
		blk.Data = data
	}

	if blk.Truncated {
		return blk, fmt.Errorf("%w: declared %d elements, resource %q holds %d",
			errs.ErrTruncatedData, ref.Count, res.Name(), count)
	}

	return blk, nil
}

// resolveString validates and reads a variable-length string block via its
// companion length table. The valid prefix is the longest run of elements
// whose cumulative byte lengths fit inside the resource.
func resolveString(res *Resource, ref *schema.BlockRef, order endian.EndianEngine) (Block, error) {
	var blk Block
	if ref.LengthRef == nil {
		// The schema mapper resolves length tables up front; reaching this
		// point without one is a metadata defect.
		return blk, fmt.Errorf("%w: string block has no length table", errs.ErrUnsupportedChannelType)
	}

	lengths, truncatedTable, err := readLengthTable(res, ref, order)
	if err != nil {
		return blk, err
	}

	// Clamp to the prefix of elements whose payload bytes are in bounds.
	var span int64
	count := 0
	for _, l := range lengths {
		next := span + int64(l)
		if ref.Offset+next > res.Size() {
			break
		}
		span = next
		count++
	}

	blk.Count = count
	blk.Lengths = lengths[:count]
	blk.Truncated = truncatedTable || uint64(count) < ref.Count
	if count > 0 {
		data, err := res.bytes(ref.Offset, span)
		if err != nil {
			return Block{}, err
		}
		blk.Data = data
	}

	if blk.Truncated {
		return blk, fmt.Errorf("%w: declared %d strings, resource %q holds %d",
			errs.ErrTruncatedData, ref.Count, res.Name(), count)
	}

	return blk, nil
}

// readLengthTable reads the uint32 length entries backing a string block,
// clamped to the table's own valid prefix.
func readLengthTable(res *Resource, ref *schema.BlockRef, order endian.EndianEngine) ([]uint32, bool, error) {
	lt := ref.LengthRef
	if lt.Resource != res.Name() {
		// Length tables live beside their data in every known exporter's
		// output; cross-resource tables are not a supported layout.
		return nil, false, fmt.Errorf("%w: length table resource %q differs from data resource %q",
			errs.ErrUnsupportedChannelType, lt.Resource, res.Name())
	}

	declared := min(lt.Count, ref.Count)
	count := validCount(res.Size(), lt.Offset, lt.Stride, 4, declared)
	if count == 0 {
		return nil, declared > 0, nil
	}

	span := int64(count-1)*lt.Stride + 4
	raw, err := res.bytes(lt.Offset, span)
	if err != nil {
		return nil, false, err
	}

	// Length tables share the channel's byte order.
	lengths := make([]uint32, count)
	for i := range lengths {
		off := int64(i) * lt.Stride
		lengths[i] = order.Uint32(raw[off : off+4])
	}

	return lengths, uint64(count) < declared, nil
}

// validCount returns how many stride-spaced elements of width elemSize fit
// inside size bytes starting at offset, capped at declared.
func validCount(size, offset, stride, elemSize int64, declared uint64) int {
	if declared == 0 || offset < 0 || offset+elemSize > size {
		return 0
	}

	fit := (size-offset-elemSize)/stride + 1
	if uint64(fit) < declared {
		return int(fit)
	}

	return int(declared)
}
