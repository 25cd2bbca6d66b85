package file

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lehigh-university-libraries/imgreader/internal/location"
)

// ErrRemoteHost is returned for file URIs naming a host other than localhost
var ErrRemoteHost = errors.New("file URI names a remote host")

// Resolver resolves file: URIs and bare paths. It does not take credentials.
type Resolver struct {
	// BaseDir anchors relative paths. Empty means the working directory.
	BaseDir string
}

// New returns a file resolver
func New(baseDir string) *Resolver {
	return &Resolver{BaseDir: baseDir}
}

func (r *Resolver) Name() string { return "file" }

func (r *Resolver) Supports(id location.Identifier) bool {
	return id.Scheme() == "file"
}

// Resolve checks that the path exists and is a regular file
func (r *Resolver) Resolve(ctx context.Context, id location.Identifier) (location.Location, error) {
	u := id.URL()
	if u.Host != "" && u.Host != "localhost" {
		return nil, fmt.Errorf("%w: %q", ErrRemoteHost, u.Host)
	}
	path := u.Path
	if path == "" {
		// file:relative/path parses as opaque
		path = u.Opaque
	}
	path = filepath.FromSlash(path)
	if path == "" {
		return nil, fmt.Errorf("identifier %q has no path", id.String())
	}
	if !filepath.IsAbs(path) && r.BaseDir != "" {
		path = filepath.Join(r.BaseDir, path)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	return &Location{uri: id.String(), Path: path, Size: info.Size()}, nil
}

// Location is a file on the local filesystem
type Location struct {
	uri  string
	Path string
	Size int64
}

func (l *Location) URI() string { return l.uri }

func (l *Location) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f, err := os.Open(l.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}

func (l *Location) String() string { return l.Path }
