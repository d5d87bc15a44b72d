// Package hash computes the 64-bit identifiers used by the name lookup maps.
package hash

import "github.com/cespare/xxhash/v2"

// ID computes the xxHash64 of the given name.
func ID(name string) uint64 {
	return xxhash.Sum64String(name)
}

// ChannelID computes the xxHash64 of a group-qualified channel name.
// Group and channel name are separated by a unit separator byte so that
// ("ab","c") and ("a","bc") never collide structurally.
func ChannelID(group, name string) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(group)
	_, _ = d.Write([]byte{0x1f})
	_, _ = d.WriteString(name)

	return d.Sum64()
}
