package tdm

import "strings"

// ChannelMatch is one channel-search result.
type ChannelMatch struct {
	// Group and Channel are the positional indices of the matching channel.
	Group   int
	Channel int
	// Name is the channel's full name.
	Name string
}

// GroupMatch is one group-search result.
type GroupMatch struct {
	// Index is the positional index of the matching group.
	Index int
	// Name is the group's full name.
	Name string
}

// ChannelSearch returns every channel whose name contains term as a
// substring, scanning all groups and channels in document order.
//
// Matching is case-sensitive as a fixed policy. An empty term matches every
// channel. No match yields an empty result, not an error.
func (f *File) ChannelSearch(term string) []ChannelMatch {
	var out []ChannelMatch
	for gi, g := range f.doc.Groups {
		for ci, ch := range g.Channels {
			if strings.Contains(ch.Name, term) {
				out = append(out, ChannelMatch{Group: gi, Channel: ci, Name: ch.Name})
			}
		}
	}

	return out
}

// GroupSearch returns every channel group whose name contains term as a
// substring, in document order. The matching policy is the same as
// ChannelSearch.
func (f *File) GroupSearch(term string) []GroupMatch {
	var out []GroupMatch
	for gi, g := range f.doc.Groups {
		if strings.Contains(g.Name, term) {
			out = append(out, GroupMatch{Index: gi, Name: g.Name})
		}
	}

	return out
}
