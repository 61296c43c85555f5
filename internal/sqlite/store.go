// Package sqlite implements the embedded database persistence service for
// shelf entity types. A Store owns one database file. Each entity type gets
// its own table holding an integer primary key and a JSON document of fields,
// created on first use, so the schema follows whatever types the caller
// defines. Attach opens the file, Service hands out per-type services, and
// Detach closes everything.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/mesh-intelligence/shelf/pkg/model"
)

// DefaultFile is the database file name used when Config.File is empty.
const DefaultFile = "shelf.db"

// Store lifecycle errors.
var (
	// ErrDetached is returned when an operation runs against a store that
	// is not attached.
	ErrDetached = errors.New("store is detached")

	// ErrAlreadyAttached is returned by Attach on an attached store.
	ErrAlreadyAttached = errors.New("store is already attached")

	// ErrInvalidTypeName is returned by Service for a name that cannot
	// serve as a table identifier.
	ErrInvalidTypeName = errors.New("invalid type name")
)

// catalogDDL records every type the store has seen, so dumps and tooling can
// enumerate tables without poking at sqlite internals.
const catalogDDL = `CREATE TABLE IF NOT EXISTS shelf_types (
    name TEXT PRIMARY KEY
);`

// Config describes where a Store keeps its data.
type Config struct {
	// DataDir holds the database file. Created if it does not exist.
	// Empty means the current directory.
	DataDir string

	// File is the database file name inside DataDir. Empty means
	// DefaultFile.
	File string
}

// Validate checks the configuration for problems Attach would trip over.
func (c Config) Validate() error {
	if c.File != "" && c.File != filepath.Base(c.File) {
		return fmt.Errorf("file %q must be a bare name, not a path", c.File)
	}
	return nil
}

func (c Config) path() string {
	dir := c.DataDir
	if dir == "" {
		dir = "."
	}
	file := c.File
	if file == "" {
		file = DefaultFile
	}
	return filepath.Join(dir, file)
}

// Store is an attachable SQLite-backed persistence layer. One Store serves
// any number of entity types, each through its own Service.
type Store struct {
	mu       sync.RWMutex
	attached bool
	config   Config
	db       *sql.DB
	services map[string]*service
}

// NewStore creates an unattached store. Call Attach before requesting
// services.
func NewStore() *Store {
	return &Store{services: make(map[string]*service)}
}

// Attach opens the database file described by config, creating DataDir if
// needed. Returns ErrAlreadyAttached on an attached store.
func (s *Store) Attach(config Config) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.attached {
		return ErrAlreadyAttached
	}
	if err := config.Validate(); err != nil {
		return err
	}

	dataDir := config.DataDir
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return err
	}

	db, err := sql.Open("sqlite", config.path())
	if err != nil {
		return err
	}

	// The catalog exec doubles as the connection check; sql.Open alone
	// never touches the file.
	if _, err := db.Exec(catalogDDL); err != nil {
		db.Close()
		return fmt.Errorf("initializing catalog: %w", err)
	}

	s.db = db
	s.config = config
	s.attached = true
	return nil
}

// Detach closes the database. After Detach all services return ErrDetached.
// Detach is idempotent.
func (s *Store) Detach() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil // idempotent
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			return err
		}
		s.db = nil
	}

	s.attached = false
	s.services = make(map[string]*service)
	return nil
}

// Service returns the persistence service for the named entity type,
// creating its table on first request. The name must be a lowercase
// identifier, which every registry-defined type name already is.
// Returns ErrDetached if the store is not attached.
func (s *Store) Service(name string) (model.Service, error) {
	return s.serviceFor(name)
}

func (s *Store) serviceFor(name string) (*service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.attached {
		return nil, ErrDetached
	}
	name = strings.ToLower(strings.TrimSpace(name))
	if !validTableName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTypeName, name)
	}

	if svc, ok := s.services[name]; ok {
		return svc, nil
	}

	table := tableName(name)
	ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    fields TEXT NOT NULL
);`, table)
	if _, err := s.db.Exec(ddl); err != nil {
		return nil, fmt.Errorf("creating table %s: %w", table, err)
	}
	if _, err := s.db.Exec(
		"INSERT OR IGNORE INTO shelf_types (name) VALUES (?)", name); err != nil {
		return nil, fmt.Errorf("cataloging type %s: %w", name, err)
	}

	svc := &service{store: s, name: name, table: table}
	s.services[name] = svc
	return svc, nil
}

// Types returns the names of every type the store has created a table for,
// in lexical order. Returns ErrDetached if the store is not attached.
func (s *Store) Types() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.attached {
		return nil, ErrDetached
	}

	rows, err := s.db.Query("SELECT name FROM shelf_types ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning catalog: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// tableName maps a type name to its table. The prefix keeps entity tables
// clear of the catalog and of sqlite's own names.
func tableName(name string) string {
	return "entity_" + name
}

// validTableName reports whether name is safe to splice into DDL: a
// lowercase letter followed by lowercase letters, digits, or underscores.
func validTableName(name string) bool {
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
