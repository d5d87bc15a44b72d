// Package schema maps the generic TDM metadata tree onto the typed object
// graph this module serves queries from: Document → ChannelGroup → Channel →
// BlockRef.
//
// The mapping is best-effort. A channel with an unrecognized type token, a
// dangling usi reference, or a variable-length string channel without its
// length table is kept as a degraded placeholder with a recorded Warning, so
// one bad channel never blocks access to the rest of the file. Positional
// indices stay contiguous and follow document order.
package schema

import (
	"github.com/arloliu/tdm/endian"
	"github.com/arloliu/tdm/format"
	"github.com/arloliu/tdm/internal/hash"
)

// BlockRef identifies one run of elements inside a binary resource.
//
// A BlockRef is owned exclusively by its Channel. Stride equals the element
// size for contiguous storage; interleaved block_bm storage declares a wider
// stride, so element k of the block lives at Offset + k*Stride.
type BlockRef struct {
	// Resource names the binary payload stream (the file element's url).
	Resource string
	// Offset is the byte offset of element 0 within the resource.
	Offset int64
	// Stride is the byte distance between consecutive elements.
	Stride int64
	// Count is the declared number of elements in the block.
	Count uint64
	// LengthRef points at the companion uint32 length table for
	// variable-length string blocks. Nil for fixed-width types.
	LengthRef *BlockRef
}

// Channel is a single named sequence of typed sample values.
type Channel struct {
	// Name is the channel name, empty when the metadata declares none.
	Name string
	// Unit is the channel's unit string, empty when absent.
	Unit string
	// Type is the declared scalar type. TypeInvalid for degraded channels.
	Type format.DataType
	// Order is the byte order the channel's blocks are stored in.
	Order endian.EndianEngine
	// Rep is how the channel's local column stores values.
	Rep format.Representation
	// GenOffset and GenSlope are the generation parameters for
	// implicit_linear (offset, increment) and raw_linear (offset, slope)
	// representations.
	GenOffset float64
	GenSlope  float64
	// GenCount is the generated element count for implicit_linear channels.
	GenCount uint64
	// Blocks holds the channel's block references in declared order.
	// Empty for implicit_linear and for valid empty channels.
	Blocks []BlockRef
	// Degraded marks a channel that failed to map (unsupported type,
	// dangling reference, missing length table). It stays addressable by
	// index and yields an empty sequence.
	Degraded bool
}

// DeclaredLength returns the channel's declared total element count: the sum
// of its block counts, or the generated count for implicit_linear channels.
func (c *Channel) DeclaredLength() uint64 {
	if c.Rep == format.RepImplicitLinear {
		return c.GenCount
	}

	var total uint64
	for i := range c.Blocks {
		total += c.Blocks[i].Count
	}

	return total
}

// ChannelGroup is a named, ordered collection of channels.
type ChannelGroup struct {
	// Name is the group name, empty when the metadata declares none.
	Name string
	// Channels holds the group's channels in document order.
	Channels []*Channel

	nameIndex map[uint64]int // hash.ID(name) → last-defined channel index
}

// IndexOf returns the positional index of the named channel.
// When several channels share a name, the last-defined one wins.
func (g *ChannelGroup) IndexOf(name string) (int, bool) {
	idx, ok := g.nameIndex[hash.ID(name)]
	return idx, ok
}

// buildNameIndex rebuilds the name → index map. Later definitions overwrite
// earlier ones.
func (g *ChannelGroup) buildNameIndex() {
	g.nameIndex = make(map[uint64]int, len(g.Channels))
	for i, ch := range g.Channels {
		g.nameIndex[hash.ID(ch.Name)] = i
	}
}

// Resource describes one binary payload stream the metadata references.
type Resource struct {
	// Name is the resource name as referenced by BlockRefs (the url).
	Name string
	// Order is the file-level default byte order for blocks in this
	// resource.
	Order endian.EndianEngine
}

// Warning records one localized load-time problem.
type Warning struct {
	// Group and Channel locate the affected channel. Channel is -1 for
	// group-level problems, both are -1 for file-level ones.
	Group   int
	Channel int
	// Name is the affected channel or resource name.
	Name string
	// Err wraps one of the errs sentinels.
	Err error
}

// Document is the typed root of a mapped TDM metadata document.
type Document struct {
	// Exporter is the tool that wrote the file, from documentation/exporter.
	Exporter string
	// Resources lists the binary payload streams in declaration order.
	Resources []Resource
	// Groups holds the channel groups in document order.
	Groups []*ChannelGroup
	// Warnings holds the problems recorded during the best-effort mapping.
	Warnings []Warning
}

// NumChannels returns the total channel count across all groups.
func (d *Document) NumChannels() int {
	var n int
	for _, g := range d.Groups {
		n += len(g.Channels)
	}

	return n
}

// Resource returns the named resource declaration.
func (d *Document) Resource(name string) (Resource, bool) {
	for _, r := range d.Resources {
		if r.Name == name {
			return r, true
		}
	}

	return Resource{}, false
}
