// Package sqlite provides the public API for the SQLite-backed persistence
// store. It exposes the store lifecycle and configuration while keeping the
// table and query mechanics internal.
package sqlite

import (
	"github.com/mesh-intelligence/shelf/internal/sqlite"
)

// DefaultFile is the database file name used when Config.File is empty.
const DefaultFile = sqlite.DefaultFile

// Config describes where a Store keeps its data.
type Config = sqlite.Config

// Store is an attachable persistence layer serving any number of entity
// types from one database file. Request a model.Service per type with
// Service and bind it to the matching registry type.
type Store = sqlite.Store

// Store lifecycle errors.
var (
	ErrDetached        = sqlite.ErrDetached
	ErrAlreadyAttached = sqlite.ErrAlreadyAttached
	ErrInvalidTypeName = sqlite.ErrInvalidTypeName
)

// NewStore creates an unattached store; call Attach with a Config before
// requesting services.
//
// Example:
//
//	store := sqlite.NewStore()
//	err := store.Attach(sqlite.Config{DataDir: ".shelf"})
//	defer store.Detach()
func NewStore() *Store {
	return sqlite.NewStore()
}
