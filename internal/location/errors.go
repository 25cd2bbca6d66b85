package location

import (
	"errors"
	"fmt"
)

var (
	// ErrNoResolverFound is returned when no registered resolver claims an identifier
	ErrNoResolverFound = errors.New("no resolver found")

	// ErrUnsupportedAuthResolution is returned when credentials are supplied
	// but the selected resolver cannot resolve with them
	ErrUnsupportedAuthResolution = errors.New("resolver does not support authenticated resolution")

	// ErrResolutionFailed is returned when a resolver produced no location
	ErrResolutionFailed = errors.New("resolution failed")
)

// ResolveError describes a failed resolution of one identifier
type ResolveError struct {
	URI      string
	Resolver string
	Err      error
}

func (e *ResolveError) Error() string {
	if e.Resolver == "" {
		return fmt.Sprintf("resolve %q: %v", e.URI, e.Err)
	}
	return fmt.Sprintf("resolve %q with %s resolver: %v", e.URI, e.Resolver, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }
