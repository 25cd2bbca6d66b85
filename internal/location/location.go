// Package location maps image identifiers (URIs) to concrete, readable
// locations through an explicitly constructed registry of resolvers.
//
// Some resolvers can also resolve with connection credentials. That
// capability is optional and always checked by the caller before use.
package location

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"
)

// Identifier is a parsed, immutable reference to an image resource
type Identifier struct {
	raw string
	url *url.URL
}

// ParseIdentifier parses a raw URI. Bare paths become file identifiers.
func ParseIdentifier(raw string) (Identifier, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Identifier{}, fmt.Errorf("empty identifier")
	}

	if filepath.IsAbs(trimmed) || !strings.Contains(trimmed, ":") {
		return Identifier{
			raw: raw,
			url: &url.URL{Scheme: "file", Path: filepath.ToSlash(trimmed)},
		}, nil
	}

	u, err := url.Parse(trimmed)
	if err != nil {
		return Identifier{}, fmt.Errorf("failed to parse identifier %q: %w", raw, err)
	}
	if u.Scheme == "" {
		u.Scheme = "file"
	}
	u.Scheme = strings.ToLower(u.Scheme)
	return Identifier{raw: raw, url: u}, nil
}

// MustParseIdentifier is like ParseIdentifier but panics on error
func MustParseIdentifier(raw string) Identifier {
	id, err := ParseIdentifier(raw)
	if err != nil {
		panic(err)
	}
	return id
}

// String returns the identifier as it was supplied
func (id Identifier) String() string {
	return id.raw
}

// Scheme returns the lower-cased URI scheme
func (id Identifier) Scheme() string {
	if id.url == nil {
		return ""
	}
	return id.url.Scheme
}

// URL returns a copy of the parsed URL
func (id Identifier) URL() *url.URL {
	if id.url == nil {
		return &url.URL{}
	}
	u := *id.url
	return &u
}

// Location is a concrete, decode-ready reference to image bytes. A
// location belongs to the caller that requested it and lives for a single
// row.
type Location interface {
	// URI returns the identifier the location was resolved from
	URI() string
	// Open returns a reader over the image bytes
	Open(ctx context.Context) (io.ReadCloser, error)
}

// Resolver maps identifiers it supports to locations
type Resolver interface {
	Name() string
	Supports(id Identifier) bool
	Resolve(ctx context.Context, id Identifier) (Location, error)
}

// AuthAwareResolver is implemented by resolvers that can resolve using
// connection credentials. The credentials are only valid for the duration
// of the call and must not be retained by the resolver.
type AuthAwareResolver interface {
	Resolver
	ResolveWithAuth(ctx context.Context, id Identifier, creds *Credentials) (Location, error)
}

// SupportsAuth reports whether the resolver implements AuthAwareResolver
func SupportsAuth(r Resolver) bool {
	_, ok := r.(AuthAwareResolver)
	return ok
}
