// Package tdm reads National Instruments TDM/TDX file pairs: an XML metadata
// document describing channel groups, channels, and their storage layout,
// paired with raw binary files holding the sample values.
//
// Channels are exposed as typed, randomly indexable views over the binary
// payload. Loading is best-effort: a channel with an unsupported type or
// truncated data degrades only itself and is recorded as a warning, while
// every other channel stays accessible.
//
// # Basic Usage
//
// Opening a file pair and reading a channel:
//
//	f, err := tdm.OpenFile("measurement.tdm")
//	if err != nil {
//	    return err
//	}
//	defer f.Close()
//
//	speed, err := f.Channel(0, 0)
//	if err != nil {
//	    return err
//	}
//	for i, v := range speed.All() {
//	    fmt.Printf("[%d] %v\n", i, v)
//	}
//
// Fetching a whole group keyed by channel name:
//
//	dict, err := f.ChannelDict(0)
//	if err != nil {
//	    return err
//	}
//	vals, _ := dict["Speed"].Floats()
//
// Searching channel names by substring:
//
//	for _, m := range f.ChannelSearch("Temp") {
//	    fmt.Printf("group %d channel %d: %s\n", m.Group, m.Channel, m.Name)
//	}
//
// # Package Structure
//
// This package is the query façade. The underlying layers are usable on
// their own for advanced cases:
//
//   - xmltree parses the metadata into a generic element tree
//   - schema maps the tree onto the typed Document → ChannelGroup →
//     Channel → BlockRef graph
//   - blockindex resolves block references against the binary resources and
//     validates their extents
//   - series decodes resolved blocks into typed, indexable views
//
// # Degraded Channels
//
// Load-time problems never abort an open. A channel whose data cannot be
// fully decoded exposes the valid prefix; callers detect degradation by
// comparing a view's Len against its DeclaredLength, and Warnings lists the
// recorded causes.
package tdm
