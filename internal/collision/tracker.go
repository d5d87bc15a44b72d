// Package collision detects xxHash64 collisions among channel names.
//
// Name lookups key their maps by 64-bit name hashes. Distinct names hashing
// to the same identifier would make such a lookup return the wrong channel,
// so the tracker records every (hash, name) pair during index construction
// and reports whether any distinct names collided. When a collision is
// present the caller falls back to exact name comparison.
package collision

// Tracker records name hashes and detects collisions between distinct names.
type Tracker struct {
	names    map[uint64]string
	collided bool
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{names: make(map[uint64]string)}
}

// Track records one name with its hash. Re-tracking the same name is not a
// collision; two distinct names sharing a hash is.
func (t *Tracker) Track(name string, id uint64) {
	if existing, ok := t.names[id]; ok && existing != name {
		t.collided = true
		return
	}
	t.names[id] = name
}

// HasCollision reports whether any two distinct tracked names share a hash.
func (t *Tracker) HasCollision() bool {
	return t.collided
}
