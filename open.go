package tdm

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"

	"github.com/arloliu/tdm/blockindex"
	"github.com/arloliu/tdm/errs"
	"github.com/arloliu/tdm/schema"
	"github.com/arloliu/tdm/xmltree"
)

// OpenFile opens a TDM/TDX file pair starting from the metadata document.
//
// Binary resources are located next to the metadata under the names the
// metadata declares, unless overridden with WithBinaryPath or WithResource.
// They are opened lazily on first channel access.
//
// Three metadata packagings are recognized by content sniffing:
//   - a plain .tdm XML document
//   - a gzip-compressed document (.tdm.gz)
//   - a zip archive holding the .tdm and its .tdx members
//
// Fails with errs.ErrResourceNotFound when the metadata file is missing and
// errs.ErrMalformedMetadata when it cannot be parsed. Per-channel problems
// do not fail the open; they are recorded on Warnings.
func OpenFile(path string, opts ...Option) (*File, error) {
	cfg, err := applyOptions(opts...)
	if err != nil {
		return nil, err
	}

	magic, err := sniff(path)
	if err != nil {
		return nil, err
	}

	switch magic {
	case magicZip:
		return openZip(path, cfg)
	case magicGzip:
		return openGzip(path, cfg)
	default:
		return openPlain(path, cfg)
	}
}

// Open reads a TDM metadata document from an already-decoded XML text
// stream. Binary resources must be supplied with WithResource or
// WithBinaryPath; there is no co-located resolution for streams.
func Open(r io.Reader, opts ...Option) (*File, error) {
	cfg, err := applyOptions(opts...)
	if err != nil {
		return nil, err
	}

	doc, err := parseMetadata(r)
	if err != nil {
		return nil, err
	}

	return assemble(doc, cfg, nil, func(name string) (*blockindex.Resource, error) {
		return nil, fmt.Errorf("%w: %q (no resource location for stream input)", errs.ErrResourceNotFound, name)
	})
}

type magicKind int

const (
	magicPlain magicKind = iota
	magicZip
	magicGzip
)

// sniff identifies the metadata packaging from the file's magic bytes.
func sniff(path string) (magicKind, error) {
	f, err := os.Open(path)
	if err != nil {
		return magicPlain, fmt.Errorf("%w: %s: %v", errs.ErrResourceNotFound, path, err)
	}
	defer f.Close()

	var magic [4]byte
	n, _ := io.ReadFull(f, magic[:])

	switch {
	case n >= 4 && magic[0] == 'P' && magic[1] == 'K' && magic[2] == 0x03 && magic[3] == 0x04:
		return magicZip, nil
	case n >= 2 && magic[0] == 0x1f && magic[1] == 0x8b:
		return magicGzip, nil
	default:
		return magicPlain, nil
	}
}

// openPlain opens an uncompressed metadata document with co-located
// resources.
func openPlain(path string, cfg *config) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrResourceNotFound, path, err)
	}
	defer f.Close()

	doc, err := parseMetadata(f)
	if err != nil {
		return nil, err
	}

	return assemble(doc, cfg, nil, dirOpener(filepath.Dir(path)))
}

// openGzip opens a gzip-compressed metadata document with co-located
// resources.
func openGzip(path string, cfg *config) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrResourceNotFound, path, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrMalformedMetadata, path, err)
	}
	defer zr.Close()

	doc, err := parseMetadata(zr)
	if err != nil {
		return nil, err
	}

	return assemble(doc, cfg, nil, dirOpener(filepath.Dir(path)))
}

// openZip opens a zip archive holding the metadata document and its binary
// resources as members.
func openZip(path string, cfg *config) (*File, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrMalformedMetadata, path, err)
	}
	zr.RegisterDecompressor(zip.Deflate, func(r io.Reader) io.ReadCloser {
		return flate.NewReader(r)
	})

	meta := findMember(&zr.Reader, ".tdm")
	if meta == nil {
		zr.Close()
		return nil, fmt.Errorf("%w: %s holds no .tdm member", errs.ErrMalformedMetadata, path)
	}

	mr, err := meta.Open()
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("%w: %s: %v", errs.ErrMalformedMetadata, path, err)
	}
	doc, perr := parseMetadata(mr)
	mr.Close()
	if perr != nil {
		zr.Close()
		return nil, perr
	}

	f, err := assemble(doc, cfg, []io.Closer{zr}, zipOpener(&zr.Reader))
	if err != nil {
		zr.Close()
		return nil, err
	}

	return f, nil
}

// parseMetadata runs the XML parse and the schema mapping.
func parseMetadata(r io.Reader) (*schema.Document, error) {
	root, err := xmltree.Parse(r)
	if err != nil {
		return nil, err
	}

	return schema.Map(root)
}

// assemble wires the mapped document, the resource opener chain, and the
// open options into a File. On failure every already-acquired handle is
// released.
func assemble(doc *schema.Document, cfg *config, closers []io.Closer, base blockindex.Opener) (*File, error) {
	set := blockindex.NewSet(func(name string) (*blockindex.Resource, error) {
		if res, ok := cfg.resources[name]; ok {
			return res, nil
		}
		if path, ok := cfg.binaryPaths[name]; ok {
			return blockindex.OpenFileResource(name, path)
		}

		return base(name)
	})

	f := newFile(doc, set, closers)
	if cfg.eager {
		if err := f.materializeAll(); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

// dirOpener resolves resources next to the metadata document.
// Resource names are flattened to their base name so a metadata url cannot
// escape the directory.
func dirOpener(dir string) blockindex.Opener {
	return func(name string) (*blockindex.Resource, error) {
		return blockindex.OpenFileResource(name, filepath.Join(dir, filepath.Base(name)))
	}
}

// zipOpener resolves resources among archive members by base name,
// case-insensitively. Members are read fully into memory because zip
// members do not support random access.
func zipOpener(zr *zip.Reader) blockindex.Opener {
	return func(name string) (*blockindex.Resource, error) {
		want := filepath.Base(name)
		for _, member := range zr.File {
			if !strings.EqualFold(filepath.Base(member.Name), want) {
				continue
			}
			rc, err := member.Open()
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", errs.ErrResourceNotFound, name, err)
			}
			data, err := io.ReadAll(rc)
			rc.Close()
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", errs.ErrResourceNotFound, name, err)
			}

			return blockindex.NewResource(name, bytes.NewReader(data), int64(len(data)), nil), nil
		}

		return nil, fmt.Errorf("%w: no archive member named %q", errs.ErrResourceNotFound, name)
	}
}

// findMember returns the first archive member with the given extension,
// case-insensitively.
func findMember(zr *zip.Reader, ext string) *zip.File {
	for _, member := range zr.File {
		if strings.EqualFold(filepath.Ext(member.Name), ext) {
			return member
		}
	}

	return nil
}
