package tdm

import (
	"io"

	"github.com/arloliu/tdm/blockindex"
	"github.com/arloliu/tdm/internal/options"
)

// config collects the open-time settings of a File.
type config struct {
	// binaryPaths maps resource names declared in the metadata to explicit
	// filesystem paths, overriding co-located resolution.
	binaryPaths map[string]string
	// resources holds pre-opened binary streams keyed by resource name.
	resources map[string]*blockindex.Resource
	// eager materializes every channel at open time instead of lazily.
	eager bool
}

// Option configures OpenFile and Open.
type Option = options.Option[*config]

// WithBinaryPath overrides where the named binary resource is located.
// Without this option resources resolve next to the metadata document under
// the name the metadata declares.
func WithBinaryPath(name, path string) Option {
	return options.NoError(func(c *config) {
		if c.binaryPaths == nil {
			c.binaryPaths = make(map[string]string)
		}
		c.binaryPaths[name] = path
	})
}

// WithResource supplies an already-open binary stream for the named
// resource. The stream is not closed by File.Close unless closer is
// non-nil.
func WithResource(name string, r io.ReaderAt, size int64, closer io.Closer) Option {
	return options.NoError(func(c *config) {
		if c.resources == nil {
			c.resources = make(map[string]*blockindex.Resource)
		}
		c.resources[name] = blockindex.NewResource(name, r, size, closer)
	})
}

// WithEagerLoad materializes every channel during OpenFile instead of on
// first access. With eager loading, Warnings reports all degraded channels
// immediately after open.
func WithEagerLoad() Option {
	return options.NoError(func(c *config) {
		c.eager = true
	})
}

func applyOptions(opts ...Option) (*config, error) {
	cfg := &config{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}
