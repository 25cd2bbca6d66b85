package location

import (
	"fmt"
)

// Registry holds an ordered, fixed set of resolvers. It is built once at
// startup and only read afterwards, so it is safe for concurrent use.
type Registry struct {
	resolvers []Resolver
}

// NewRegistry creates a registry from an explicit registration list.
// Resolver names must be unique.
func NewRegistry(resolvers ...Resolver) (*Registry, error) {
	seen := make(map[string]struct{}, len(resolvers))
	list := make([]Resolver, 0, len(resolvers))
	for i, r := range resolvers {
		if r == nil {
			return nil, fmt.Errorf("resolver at position %d is nil", i)
		}
		if _, ok := seen[r.Name()]; ok {
			return nil, fmt.Errorf("resolver %q already registered", r.Name())
		}
		seen[r.Name()] = struct{}{}
		list = append(list, r)
	}
	return &Registry{resolvers: list}, nil
}

// MustNewRegistry is like NewRegistry but panics on error
func MustNewRegistry(resolvers ...Resolver) *Registry {
	r, err := NewRegistry(resolvers...)
	if err != nil {
		panic(err)
	}
	return r
}

// ResolverFor returns the first registered resolver that supports id.
// The result only depends on id and the registration order.
func (r *Registry) ResolverFor(id Identifier) (Resolver, error) {
	for _, res := range r.resolvers {
		if res.Supports(id) {
			return res, nil
		}
	}
	return nil, fmt.Errorf("%w for %q (scheme %q)", ErrNoResolverFound, id.String(), id.Scheme())
}

// Names returns resolver names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.resolvers))
	for i, res := range r.resolvers {
		names[i] = res.Name()
	}
	return names
}

// Len returns the number of registered resolvers
func (r *Registry) Len() int {
	return len(r.resolvers)
}
