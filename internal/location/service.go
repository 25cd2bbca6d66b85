package location

import (
	"context"
	"fmt"
	"log/slog"
)

// Service resolves identifiers through a registry
type Service struct {
	registry *Registry
}

// NewService creates a resolution service backed by registry
func NewService(registry *Registry) *Service {
	return &Service{registry: registry}
}

// Registry returns the registry the service resolves against
func (s *Service) Registry() *Registry {
	return s.registry
}

// Resolve maps id to a location. When creds is non-nil the selected
// resolver must support authenticated resolution; credentials are never
// dropped silently. Errors are *ResolveError values wrapping one of
// ErrNoResolverFound, ErrUnsupportedAuthResolution or ErrResolutionFailed.
func (s *Service) Resolve(ctx context.Context, id Identifier, creds *Credentials) (Location, error) {
	resolver, err := s.registry.ResolverFor(id)
	if err != nil {
		return nil, &ResolveError{URI: id.String(), Err: err}
	}

	var loc Location
	if creds != nil {
		authResolver, ok := resolver.(AuthAwareResolver)
		if !ok {
			return nil, &ResolveError{URI: id.String(), Resolver: resolver.Name(), Err: ErrUnsupportedAuthResolution}
		}
		slog.Debug("Resolving with credentials", "uri", id.String(), "resolver", resolver.Name())
		loc, err = authResolver.ResolveWithAuth(ctx, id, creds)
	} else {
		slog.Debug("Resolving", "uri", id.String(), "resolver", resolver.Name())
		loc, err = resolver.Resolve(ctx, id)
	}

	if err != nil {
		return nil, &ResolveError{URI: id.String(), Resolver: resolver.Name(), Err: fmt.Errorf("%w: %w", ErrResolutionFailed, err)}
	}
	if loc == nil {
		return nil, &ResolveError{URI: id.String(), Resolver: resolver.Name(), Err: ErrResolutionFailed}
	}
	return loc, nil
}

// ResolveString parses raw and resolves it
func (s *Service) ResolveString(ctx context.Context, raw string, creds *Credentials) (Location, error) {
	id, err := ParseIdentifier(raw)
	if err != nil {
		return nil, &ResolveError{URI: raw, Err: fmt.Errorf("%w: %w", ErrResolutionFailed, err)}
	}
	return s.Resolve(ctx, id, creds)
}
