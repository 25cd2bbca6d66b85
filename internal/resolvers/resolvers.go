// Package resolvers holds the startup registration list of location
// resolvers. Order matters: the first resolver that supports an identifier
// is the one used.
package resolvers

import (
	"time"

	"github.com/lehigh-university-libraries/imgreader/internal/location"
	"github.com/lehigh-university-libraries/imgreader/internal/resolvers/file"
	"github.com/lehigh-university-libraries/imgreader/internal/resolvers/gcs"
	"github.com/lehigh-university-libraries/imgreader/internal/resolvers/s3"
	"github.com/lehigh-university-libraries/imgreader/internal/resolvers/web"
)

// Options configures the built-in resolvers
type Options struct {
	BaseDir     string
	HTTPTimeout time.Duration
	S3Endpoint  string
	S3Region    string
	GCSEndpoint string
}

// Default returns the built-in resolvers in registration order
func Default(opts Options) []location.Resolver {
	return []location.Resolver{
		file.New(opts.BaseDir),
		web.New(opts.HTTPTimeout),
		s3.New(opts.S3Endpoint, opts.S3Region),
		gcs.New(opts.GCSEndpoint),
	}
}

// NewRegistry builds a registry from the built-in resolvers
func NewRegistry(opts Options) (*location.Registry, error) {
	return location.NewRegistry(Default(opts)...)
}
