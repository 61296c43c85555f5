package model

import (
	"fmt"
	"strings"
)

// Registry holds entity type definitions. Types are defined once during
// application setup; after setup a registry is safe for concurrent reads.
type Registry struct {
	types map[string]*Type
	order []*Type
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*Type)}
}

// Define registers a new entity type under name. Names are normalized to
// lowercase and must start with a letter, followed by letters, digits, or
// underscores. The optional guarded names are merged with the reserved
// operation names; neither gains accessor behavior on Set or exposure via
// Get. Returns ErrInvalidType for a malformed name and ErrTypeDefined for a
// duplicate.
func (r *Registry) Define(name string, guarded ...string) (*Type, error) {
	normalized := strings.ToLower(strings.TrimSpace(name))
	if !validTypeName(normalized) {
		return nil, fmt.Errorf("define %q: %w", name, ErrInvalidType)
	}
	if _, ok := r.types[normalized]; ok {
		return nil, fmt.Errorf("define %q: %w", normalized, ErrTypeDefined)
	}
	t := newType(normalized, guarded)
	r.types[normalized] = t
	r.order = append(r.order, t)
	return t, nil
}

// Lookup returns the type registered under name (case-insensitive).
// Returns ErrTypeUnknown when no such type is defined.
func (r *Registry) Lookup(name string) (*Type, error) {
	t, ok := r.types[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("lookup %q: %w", name, ErrTypeUnknown)
	}
	return t, nil
}

// Types returns every defined type in definition order.
func (r *Registry) Types() []*Type {
	out := make([]*Type, len(r.order))
	copy(out, r.order)
	return out
}

// validTypeName reports whether name is a usable type name: non-empty,
// leading letter, then letters, digits, or underscores. Type names double as
// storage identifiers (table names, resource paths), so the character set is
// deliberately narrow.
func validTypeName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r == '_' && i > 0:
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
