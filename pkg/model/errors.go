package model

import "errors"

// Registry and binding errors.
var (
	ErrInvalidType  = errors.New("invalid entity type")
	ErrTypeDefined  = errors.New("entity type already defined")
	ErrTypeUnknown  = errors.New("entity type not defined")
	ErrNilService   = errors.New("service is nil")
	ErrNotBound     = errors.New("no service bound to entity type")
	ErrAlreadyBound = errors.New("service already bound to entity type")
)

// Relation errors.
var (
	ErrUnknownRelation = errors.New("relation target type not declared")
)

// Backend operation outcomes. ErrNotFound is a valid result of a lookup, not
// a failure. ErrLookup and ErrPersistence classify backend failures; the
// wrapped chain also carries the backend's own error, so errors.Is matches
// either.
var (
	ErrNotFound    = errors.New("record not found")
	ErrLookup      = errors.New("lookup failed")
	ErrPersistence = errors.New("persistence failed")
)
