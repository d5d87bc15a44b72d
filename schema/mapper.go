package schema

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/arloliu/tdm/endian"
	"github.com/arloliu/tdm/errs"
	"github.com/arloliu/tdm/format"
	"github.com/arloliu/tdm/xmltree"
)

// usiRefPattern extracts usi identifiers from reference text such as
// `#xpointer(id("usi12") id("usi13"))`.
var usiRefPattern = regexp.MustCompile(`id\("([^"]+)"\)`)

// refIDs returns the usi identifiers contained in a reference text, in order.
func refIDs(text string) []string {
	matches := usiRefPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m[1])
	}

	return ids
}

// blockDecl is a raw block descriptor from usi:include, before it is bound
// to a channel.
type blockDecl struct {
	id        string
	resource  string
	offset    int64
	count     uint64
	stride    int64 // 0 means contiguous (element size)
	typeToken string
	dtype     format.DataType
	typeOK    bool
	order     endian.EndianEngine
	lengthID  string
}

// mapper carries the per-document lookup state of one Map run.
type mapper struct {
	doc     *Document
	blocks  map[string]blockDecl
	chans   map[string]*xmltree.Node // tdm_channel by usi id
	columns map[string]*xmltree.Node // localcolumn by usi id
	seqs    map[string]*xmltree.Node // *_sequence by usi id
	colRows map[string]uint64        // localcolumn id → submatrix number_of_rows
}

// Map translates a parsed TDM metadata tree into the typed Document graph.
//
// Structural problems (missing include/data sections, unparsable block
// descriptors, unknown byte-order tokens) fail with errs.ErrMalformedMetadata.
// Channel-level problems degrade only the affected channel and are recorded
// on Document.Warnings.
func Map(root *xmltree.Node) (*Document, error) {
	m := &mapper{
		doc:     &Document{},
		blocks:  make(map[string]blockDecl),
		chans:   make(map[string]*xmltree.Node),
		columns: make(map[string]*xmltree.Node),
		seqs:    make(map[string]*xmltree.Node),
		colRows: make(map[string]uint64),
	}

	if doc := root.Child("documentation"); doc != nil {
		m.doc.Exporter = doc.ChildText("exporter")
	}

	include, err := root.RequireChild("include")
	if err != nil {
		return nil, err
	}
	if err := m.mapInclude(include); err != nil {
		return nil, err
	}

	data, err := root.RequireChild("data")
	if err != nil {
		return nil, err
	}
	m.indexData(data)

	for gi, groupNode := range data.ChildList("tdm_channelgroup") {
		group := &ChannelGroup{Name: groupNode.ChildText("name")}
		for ci, usi := range refIDs(groupNode.ChildText("channels")) {
			group.Channels = append(group.Channels, m.mapChannel(usi, gi, ci))
		}
		group.buildNameIndex()
		m.doc.Groups = append(m.doc.Groups, group)
	}

	return m.doc, nil
}

// mapInclude reads the binary resource declarations and their block
// descriptors.
func (m *mapper) mapInclude(include *xmltree.Node) error {
	files := include.ChildList("file")
	if len(files) == 0 {
		return fmt.Errorf("%w: include section declares no binary resource", errs.ErrMalformedMetadata)
	}

	for _, file := range files {
		url, err := file.RequireAttr("url")
		if err != nil {
			return err
		}

		order := endian.GetLittleEndianEngine()
		if token, ok := file.Attr("byteOrder"); ok {
			order, ok = endian.Parse(token)
			if !ok {
				return fmt.Errorf("%w: unknown byte order %q on resource %q", errs.ErrMalformedMetadata, token, url)
			}
		}
		m.doc.Resources = append(m.doc.Resources, Resource{Name: url, Order: order})

		// NI exporters write either block_bm (interleaved) or block
		// (contiguous) descriptors, never both.
		blocks := file.ChildList("block_bm")
		if len(blocks) == 0 {
			blocks = file.ChildList("block")
		}
		for _, b := range blocks {
			decl, err := m.parseBlock(b, url, order)
			if err != nil {
				return err
			}
			m.blocks[decl.id] = decl
		}
	}

	return nil
}

// parseBlock reads one block / block_bm descriptor. An unrecognized value
// type is not fatal here; it degrades the referring channel later.
func (m *mapper) parseBlock(b *xmltree.Node, resource string, fileOrder endian.EndianEngine) (blockDecl, error) {
	decl := blockDecl{resource: resource, order: fileOrder}

	var err error
	if decl.id, err = b.RequireAttr("id"); err != nil {
		return decl, err
	}
	if decl.offset, err = int64Attr(b, "byteOffset"); err != nil {
		return decl, err
	}
	if decl.count, err = uint64Attr(b, "length"); err != nil {
		return decl, err
	}
	if decl.typeToken, err = b.RequireAttr("valueType"); err != nil {
		return decl, err
	}
	decl.dtype, decl.typeOK = format.ParseValueType(decl.typeToken)

	if v, ok := b.Attr("blockSize"); ok {
		decl.stride, err = strconv.ParseInt(v, 10, 64)
		if err != nil || decl.stride < 0 {
			return decl, fmt.Errorf("%w: block %q has invalid blockSize %q", errs.ErrMalformedMetadata, decl.id, v)
		}
	}
	if token, ok := b.Attr("byteOrder"); ok {
		decl.order, ok = endian.Parse(token)
		if !ok {
			return decl, fmt.Errorf("%w: unknown byte order %q on block %q", errs.ErrMalformedMetadata, token, decl.id)
		}
	}
	decl.lengthID = b.AttrOr("lengthId", "")

	return decl, nil
}

// indexData builds the usi-id lookup tables for the reference chains inside
// usi:data.
func (m *mapper) indexData(data *xmltree.Node) {
	for _, c := range data.Children {
		id, ok := c.Attr("id")
		if !ok {
			continue
		}
		switch {
		case c.Name == "tdm_channel":
			m.chans[id] = c
		case c.Name == "localcolumn":
			m.columns[id] = c
		case strings.HasSuffix(c.Name, "_sequence"):
			m.seqs[id] = c
		case c.Name == "submatrix":
			rows, err := strconv.ParseUint(c.ChildText("number_of_rows"), 10, 64)
			if err != nil {
				continue
			}
			for _, colID := range refIDs(c.ChildText("local_columns")) {
				m.colRows[colID] = rows
			}
		}
	}
}

// mapChannel binds one tdm_channel reference to a typed Channel. Never
// fails: problems produce a degraded placeholder plus a Warning so the
// group's positional indices stay contiguous.
func (m *mapper) mapChannel(usi string, gi, ci int) *Channel {
	ch := &Channel{Order: endian.GetLittleEndianEngine()}

	node, ok := m.chans[usi]
	if !ok {
		return m.degrade(ch, gi, ci, fmt.Errorf("%w: dangling channel reference %q", errs.ErrMalformedMetadata, usi))
	}
	ch.Name = node.ChildText("name")
	ch.Unit = node.ChildText("unit_string")

	declaredToken := node.ChildText("datatype")
	declaredType, declaredOK := format.ParseChannelType(declaredToken)

	column := m.column(node)
	if column == nil {
		// No storage at all. Valid empty channel when the declared type is
		// recognized, degraded otherwise.
		if declaredToken != "" && declaredOK {
			ch.Type = declaredType
			return ch
		}

		return m.degrade(ch, gi, ci, fmt.Errorf("%w: channel %q declares type %q and no storage",
			errs.ErrUnsupportedChannelType, ch.Name, declaredToken))
	}

	repToken := column.ChildText("sequence_representation")
	rep, ok := format.ParseRepresentation(repToken)
	if !ok {
		return m.degrade(ch, gi, ci, fmt.Errorf("%w: channel %q has unknown sequence representation %q",
			errs.ErrUnsupportedChannelType, ch.Name, repToken))
	}
	ch.Rep = rep
	ch.GenOffset, ch.GenSlope = generationParams(column)

	if rep == format.RepImplicitLinear {
		// Generated values, no TDX backing. Element count comes from the
		// enclosing submatrix.
		ch.Type = format.TypeFloat64
		if declaredOK && declaredToken != "" {
			ch.Type = declaredType
		}
		colID, _ := column.Attr("id")
		ch.GenCount = m.colRows[colID]

		return ch
	}

	return m.bindBlocks(ch, column, declaredToken, declaredType, declaredOK, gi, ci)
}

// column resolves a tdm_channel's local_columns reference, or nil.
func (m *mapper) column(channel *xmltree.Node) *xmltree.Node {
	ids := refIDs(channel.ChildText("local_columns"))
	if len(ids) == 0 {
		return nil
	}

	return m.columns[ids[0]]
}

// bindBlocks resolves the localcolumn → sequence → block chain and attaches
// the channel's BlockRefs.
func (m *mapper) bindBlocks(ch *Channel, column *xmltree.Node, declaredToken string, declaredType format.DataType, declaredOK bool, gi, ci int) *Channel {
	blockIDs := m.sequenceBlocks(column)
	if len(blockIDs) == 0 {
		if declaredToken != "" && !declaredOK {
			return m.degrade(ch, gi, ci, fmt.Errorf("%w: channel %q declares unknown type %q",
				errs.ErrUnsupportedChannelType, ch.Name, declaredToken))
		}
		if declaredOK && declaredToken != "" {
			ch.Type = declaredType
		}

		// Recognized type, zero blocks: valid empty channel.
		return ch
	}

	for _, id := range blockIDs {
		decl, ok := m.blocks[id]
		if !ok {
			return m.degrade(ch, gi, ci, fmt.Errorf("%w: channel %q references undeclared block %q",
				errs.ErrMalformedMetadata, ch.Name, id))
		}
		if !decl.typeOK {
			return m.degrade(ch, gi, ci, fmt.Errorf("%w: channel %q block %q has value type %q",
				errs.ErrUnsupportedChannelType, ch.Name, id, decl.typeToken))
		}

		if ch.Type == format.TypeInvalid {
			// First block fixes the channel's type and byte order.
			ch.Type = decl.dtype
			ch.Order = decl.order
		} else if decl.dtype != ch.Type {
			return m.degrade(ch, gi, ci, fmt.Errorf("%w: channel %q mixes value types %s and %s",
				errs.ErrUnsupportedChannelType, ch.Name, ch.Type, decl.dtype))
		}

		ref := BlockRef{
			Resource: decl.resource,
			Offset:   decl.offset,
			Stride:   decl.stride,
			Count:    decl.count,
		}
		if ref.Stride == 0 {
			ref.Stride = int64(decl.dtype.Size())
		}

		if decl.dtype == format.TypeString {
			switch {
			case decl.lengthID != "":
				// Variable-length strings: byte length of the block is the
				// sum of its length-table entries.
				lengthRef, err := m.lengthTable(decl)
				if err != nil {
					return m.degrade(ch, gi, ci, fmt.Errorf("channel %q: %w", ch.Name, err))
				}
				ref.LengthRef = lengthRef
				ref.Stride = 0
			case decl.stride > 0:
				// Fixed-length strings: blockSize-wide windows, padding
				// trimmed at decode time.
				ref.Stride = decl.stride
			default:
				return m.degrade(ch, gi, ci, fmt.Errorf("%w: channel %q string block %q has no length table",
					errs.ErrUnsupportedChannelType, ch.Name, id))
			}
		}

		ch.Blocks = append(ch.Blocks, ref)
	}

	return ch
}

// sequenceBlocks collects the block ids referenced by a localcolumn's value
// sequence, concatenated in document order.
func (m *mapper) sequenceBlocks(column *xmltree.Node) []string {
	var out []string
	for _, seqID := range refIDs(column.ChildText("values")) {
		seq, ok := m.seqs[seqID]
		if !ok {
			continue
		}
		for _, values := range seq.ChildList("values") {
			if ext, ok := values.Attr("external"); ok {
				out = append(out, strings.Fields(ext)...)
			}
		}
	}

	return out
}

// lengthTable resolves a string block's companion length-table block.
// Absence of the table is an unsupported-type failure, not silent truncation.
func (m *mapper) lengthTable(decl blockDecl) (*BlockRef, error) {
	if decl.lengthID == "" {
		return nil, fmt.Errorf("%w: string block %q has no length table", errs.ErrUnsupportedChannelType, decl.id)
	}
	lt, ok := m.blocks[decl.lengthID]
	if !ok {
		return nil, fmt.Errorf("%w: string block %q references undeclared length table %q",
			errs.ErrUnsupportedChannelType, decl.id, decl.lengthID)
	}

	stride := lt.stride
	if stride == 0 {
		stride = 4
	}

	return &BlockRef{
		Resource: lt.resource,
		Offset:   lt.offset,
		Stride:   stride,
		Count:    lt.count,
	}, nil
}

// degrade marks a channel unusable, records the warning, and keeps the
// placeholder addressable by index.
func (m *mapper) degrade(ch *Channel, gi, ci int, err error) *Channel {
	ch.Degraded = true
	ch.Type = format.TypeInvalid
	ch.Blocks = nil
	m.doc.Warnings = append(m.doc.Warnings, Warning{Group: gi, Channel: ci, Name: ch.Name, Err: err})

	return ch
}

// generationParams reads the two generation parameters of a localcolumn
// (offset and increment for implicit_linear, offset and slope for
// raw_linear). Defaults are the identity mapping.
func generationParams(column *xmltree.Node) (offset, slope float64) {
	offset, slope = 0, 1
	fields := strings.Fields(column.ChildText("generation_parameters"))
	if len(fields) >= 1 {
		if v, err := strconv.ParseFloat(fields[0], 64); err == nil {
			offset = v
		}
	}
	if len(fields) >= 2 {
		if v, err := strconv.ParseFloat(fields[1], 64); err == nil {
			slope = v
		}
	}

	return offset, slope
}

func int64Attr(n *xmltree.Node, name string) (int64, error) {
	raw, err := n.RequireAttr(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%w: element <%s> has invalid %s %q", errs.ErrMalformedMetadata, n.Name, name, raw)
	}

	return v, nil
}

func uint64Attr(n *xmltree.Node, name string) (uint64, error) {
	raw, err := n.RequireAttr(name)
	if err != nil {
		return 0, err
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: element <%s> has invalid %s %q", errs.ErrMalformedMetadata, n.Name, name, raw)
	}

	return v, nil
}
