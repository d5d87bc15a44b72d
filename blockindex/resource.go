// Package blockindex resolves a channel's block references against open
// binary resources and validates their byte extents.
//
// Resolution is deliberately separate from decoding: this package only
// locates and bounds-checks raw bytes, so failures stay localized the way
// the error taxonomy requires. Blocks are validated independently; a block
// whose declared extent exceeds its resource is clamped to the valid prefix
// (errs.ErrTruncatedData) without invalidating earlier blocks, and a block
// whose resource cannot be opened contributes nothing while the rest of the
// channel stays readable.
package blockindex

import (
	"fmt"
	"io"
	"os"

	"github.com/arloliu/tdm/errs"
)

// Resource is one open binary payload stream (typically a TDX file).
type Resource struct {
	name   string
	r      io.ReaderAt
	size   int64
	closer io.Closer
}

// NewResource wraps an already-open reader. The closer may be nil for
// readers the caller owns (e.g. bytes.Reader in tests).
func NewResource(name string, r io.ReaderAt, size int64, closer io.Closer) *Resource {
	return &Resource{name: name, r: r, size: size, closer: closer}
}

// OpenFileResource opens a binary resource from the filesystem.
// Fails with errs.ErrResourceNotFound when the file cannot be opened.
func OpenFileResource(name, path string) (*Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrResourceNotFound, path, err)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrResourceNotFound, path, err)
	}

	return &Resource{name: name, r: f, size: st.Size(), closer: f}, nil
}

// Name returns the resource name as referenced from the metadata.
func (r *Resource) Name() string { return r.name }

// Size returns the resource's byte length.
func (r *Resource) Size() int64 { return r.size }

// ReadAt reads len(p) bytes starting at off.
func (r *Resource) ReadAt(p []byte, off int64) (int, error) {
	return r.r.ReadAt(p, off)
}

// bytes reads an n-byte span starting at off.
func (r *Resource) bytes(off, n int64) ([]byte, error) {
	if n == 0 {
		return nil, nil
	}
	buf := make([]byte, n)
	if _, err := r.r.ReadAt(buf, off); err != nil {
		return nil, fmt.Errorf("reading %s [%d:%d]: %w", r.name, off, off+n, err)
	}

	return buf, nil
}

// Close releases the underlying stream. Safe to call more than once.
func (r *Resource) Close() error {
	if r.closer == nil {
		return nil
	}
	c := r.closer
	r.closer = nil

	return c.Close()
}

// Opener locates and opens a named binary resource on first use.
type Opener func(name string) (*Resource, error)

// Set is the collection of binary resources owned by one File. Resources
// are opened lazily on first access and closed exactly once by Close.
// A Set is not safe for concurrent use; independent Sets over the same
// underlying files do not interfere.
type Set struct {
	open   Opener
	opened map[string]*Resource
	failed map[string]error // open failures, so each resource fails once
	closed bool
}

// NewSet creates a resource set with the given opener.
func NewSet(open Opener) *Set {
	return &Set{
		open:   open,
		opened: make(map[string]*Resource),
		failed: make(map[string]error),
	}
}

// Get returns the named resource, opening it on first use.
func (s *Set) Get(name string) (*Resource, error) {
	if s.closed {
		return nil, errs.ErrFileClosed
	}
	if res, ok := s.opened[name]; ok {
		return res, nil
	}
	if err, ok := s.failed[name]; ok {
		return nil, err
	}

	res, err := s.open(name)
	if err != nil {
		s.failed[name] = err
		return nil, err
	}
	s.opened[name] = res

	return res, nil
}

// Close closes every opened resource exactly once. The first error wins but
// every resource is still closed.
func (s *Set) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	var firstErr error
	for _, res := range s.opened {
		if err := res.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.opened = nil

	return firstErr
}
