package model

import "context"

// Service is the persistence contract a Type is bound to. Any conforming
// backend (in-memory map, remote HTTP resource, embedded database) is
// interchangeable without entity code changes. Every operation may reach an
// external store and honors the given context for cancellation and deadlines.
// Implementations must be safe for concurrent use.
type Service interface {
	// Save persists e. A record lacking persisted identity is created and
	// the new identity is assigned via e.SetID; a record with identity is
	// updated in place.
	Save(ctx context.Context, e *Entity) error

	// Delete removes the record matching e's identity. Silently succeeds
	// with no effect when e lacks persisted identity.
	Delete(ctx context.Context, e *Entity) error

	// Fetch returns the field map of the record with the given id,
	// including the "id" entry. Returns ErrNotFound when no record exists;
	// absence is a valid outcome, distinct from an empty field map.
	Fetch(ctx context.Context, id int64) (map[string]any, error)

	// All returns the field maps of every record. Enumeration order is
	// backend-defined.
	All(ctx context.Context) ([]map[string]any, error)

	// Where returns the field maps of records whose field equals value.
	// Equality is the only supported predicate.
	Where(ctx context.Context, field string, value any) ([]map[string]any, error)

	// Exists reports whether a record with the given id is present.
	Exists(ctx context.Context, id int64) (bool, error)
}
