package tdm

import (
	"fmt"
	"io"

	"github.com/arloliu/tdm/blockindex"
	"github.com/arloliu/tdm/errs"
	"github.com/arloliu/tdm/internal/collision"
	"github.com/arloliu/tdm/internal/hash"
	"github.com/arloliu/tdm/schema"
	"github.com/arloliu/tdm/series"
)

// cacheKey identifies one channel's materialized view.
type cacheKey struct {
	group   int
	channel int
}

// File is an open TDM/TDX file pair.
//
// A File owns its binary resources: they are opened lazily on the first
// channel access that needs them and closed exactly once by Close. Channel
// views are cached per (group, channel) for the File's lifetime and the
// cache is dropped on Close. A File is not safe for concurrent use, but
// independent File instances over the same underlying files do not
// interfere.
type File struct {
	doc       *schema.Document
	resources *blockindex.Set
	cache     map[cacheKey]*series.Series
	warnings  []schema.Warning
	closers   []io.Closer

	byName       map[uint64]cacheKey // hash.ID(name) → last-defined channel
	byQualified  map[uint64]cacheKey // hash.ChannelID(group, name) → last-defined channel
	hashReliable bool                // false when distinct names collided; lookups scan instead

	closed bool
}

// newFile wires a mapped document to its resource set and builds the name
// lookup tables.
func newFile(doc *schema.Document, resources *blockindex.Set, closers []io.Closer) *File {
	f := &File{
		doc:         doc,
		resources:   resources,
		cache:       make(map[cacheKey]*series.Series),
		warnings:    doc.Warnings,
		closers:     closers,
		byName:      make(map[uint64]cacheKey),
		byQualified: make(map[uint64]cacheKey),
	}

	tracker := collision.NewTracker()
	for gi, g := range doc.Groups {
		for ci, ch := range g.Channels {
			key := cacheKey{group: gi, channel: ci}
			f.byName[hash.ID(ch.Name)] = key
			f.byQualified[hash.ChannelID(g.Name, ch.Name)] = key
			tracker.Track(ch.Name, hash.ID(ch.Name))
			tracker.Track(g.Name+"\x1f"+ch.Name, hash.ChannelID(g.Name, ch.Name))
		}
	}
	f.hashReliable = !tracker.HasCollision()

	return f
}

// Close releases the File's binary resources and invalidates every cached
// channel view. Safe to call more than once.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	f.cache = nil

	err := f.resources.Close()
	for _, c := range f.closers {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	f.closers = nil

	return err
}

// Exporter returns the tool that wrote the file, from the metadata's
// documentation section.
func (f *File) Exporter() string {
	return f.doc.Exporter
}

// NumGroups returns the number of channel groups.
func (f *File) NumGroups() int {
	return len(f.doc.Groups)
}

// NumChannels returns the number of channels in the given group.
func (f *File) NumChannels(group int) (int, error) {
	g, err := f.group(group)
	if err != nil {
		return 0, err
	}

	return len(g.Channels), nil
}

// GroupName returns the name of the channel group at the given index.
func (f *File) GroupName(group int) (string, error) {
	g, err := f.group(group)
	if err != nil {
		return "", err
	}

	return g.Name, nil
}

// GroupIndex returns the index of the first channel group with the given
// name. Fails with errs.ErrGroupNotFound when no group matches.
func (f *File) GroupIndex(name string) (int, error) {
	for i, g := range f.doc.Groups {
		if g.Name == name {
			return i, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", errs.ErrGroupNotFound, name)
}

// ChannelName returns the name of the channel at the given indices.
func (f *File) ChannelName(group, channel int) (string, error) {
	ch, err := f.channelMeta(group, channel)
	if err != nil {
		return "", err
	}

	return ch.Name, nil
}

// ChannelUnit returns the unit string of the channel at the given indices,
// empty when the metadata declares none.
func (f *File) ChannelUnit(group, channel int) (string, error) {
	ch, err := f.channelMeta(group, channel)
	if err != nil {
		return "", err
	}

	return ch.Unit, nil
}

// Channel returns the decoded view of the channel at the given indices.
//
// The first access resolves and decodes the channel's blocks; the view is
// then cached for the File's lifetime. Fails with errs.ErrIndexOutOfRange
// for invalid indices and errs.ErrFileClosed after Close. Degraded channels
// return a valid view whose Len is below its DeclaredLength (possibly
// empty), never an error.
func (f *File) Channel(group, channel int) (*series.Series, error) {
	if f.closed {
		return nil, errs.ErrFileClosed
	}
	ch, err := f.channelMeta(group, channel)
	if err != nil {
		return nil, err
	}

	key := cacheKey{group: group, channel: channel}
	if view, ok := f.cache[key]; ok {
		return view, nil
	}

	blocks, warns := blockindex.Resolve(f.resources, ch)
	for _, werr := range warns {
		f.warnings = append(f.warnings, schema.Warning{
			Group:   group,
			Channel: channel,
			Name:    ch.Name,
			Err:     werr,
		})
	}

	view := series.Decode(ch, blocks)
	f.cache[key] = view

	return view, nil
}

// ChannelByName returns the view of the named channel inside the given
// group. When several channels share the name, the last-defined one wins.
// Fails with errs.ErrChannelNotFound when no channel matches.
func (f *File) ChannelByName(group int, name string) (*series.Series, error) {
	g, err := f.group(group)
	if err != nil {
		return nil, err
	}
	idx, ok := g.IndexOf(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q in group %d", errs.ErrChannelNotFound, name, group)
	}

	return f.Channel(group, idx)
}

// ChannelDict returns every channel in the group keyed by name.
//
// On a name collision only the last-defined channel's view is reachable by
// name; Channel(group, index) still reaches all of them.
func (f *File) ChannelDict(group int) (map[string]*series.Series, error) {
	g, err := f.group(group)
	if err != nil {
		return nil, err
	}

	dict := make(map[string]*series.Series, len(g.Channels))
	for i, ch := range g.Channels {
		view, err := f.Channel(group, i)
		if err != nil {
			return nil, err
		}
		dict[ch.Name] = view
	}

	return dict, nil
}

// Lookup returns the view of the channel with the given name anywhere in
// the file. When several channels share the name, the last one in document
// order wins. Fails with errs.ErrChannelNotFound when no channel matches.
func (f *File) Lookup(name string) (*series.Series, error) {
	if !f.hashReliable {
		return f.lookupScan("", name)
	}
	key, ok := f.byName[hash.ID(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrChannelNotFound, name)
	}

	return f.Channel(key.group, key.channel)
}

// LookupIn returns the view of the channel with the given name inside the
// named group. Fails with errs.ErrChannelNotFound when no channel matches.
func (f *File) LookupIn(groupName, name string) (*series.Series, error) {
	if !f.hashReliable {
		return f.lookupScan(groupName, name)
	}
	key, ok := f.byQualified[hash.ChannelID(groupName, name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q in group %q", errs.ErrChannelNotFound, name, groupName)
	}

	return f.Channel(key.group, key.channel)
}

// lookupScan is the exact-match fallback used when name hashes collided.
// Last-defined wins, matching the hash-map policy. An empty groupName
// matches any group.
func (f *File) lookupScan(groupName, name string) (*series.Series, error) {
	found := cacheKey{group: -1}
	for gi, g := range f.doc.Groups {
		if groupName != "" && g.Name != groupName {
			continue
		}
		for ci, ch := range g.Channels {
			if ch.Name == name {
				found = cacheKey{group: gi, channel: ci}
			}
		}
	}
	if found.group < 0 {
		return nil, fmt.Errorf("%w: %q", errs.ErrChannelNotFound, name)
	}

	return f.Channel(found.group, found.channel)
}

// Warnings returns the load problems recorded so far: schema-mapping
// warnings from open time plus block-resolution warnings from channels
// accessed since. Open with WithEagerLoad to collect everything up front.
func (f *File) Warnings() []schema.Warning {
	return f.warnings
}

// materializeAll decodes every channel, populating the cache and the
// warning list. Used by WithEagerLoad.
func (f *File) materializeAll() error {
	for gi, g := range f.doc.Groups {
		for ci := range g.Channels {
			if _, err := f.Channel(gi, ci); err != nil {
				return err
			}
		}
	}

	return nil
}

// group bounds-checks a group index.
func (f *File) group(group int) (*schema.ChannelGroup, error) {
	if group < 0 || group >= len(f.doc.Groups) {
		return nil, fmt.Errorf("%w: group %d of %d", errs.ErrIndexOutOfRange, group, len(f.doc.Groups))
	}

	return f.doc.Groups[group], nil
}

// channelMeta bounds-checks both indices and returns the schema channel.
func (f *File) channelMeta(group, channel int) (*schema.Channel, error) {
	g, err := f.group(group)
	if err != nil {
		return nil, err
	}
	if channel < 0 || channel >= len(g.Channels) {
		return nil, fmt.Errorf("%w: channel %d of %d in group %d",
			errs.ErrIndexOutOfRange, channel, len(g.Channels), group)
	}

	return g.Channels[channel], nil
}
