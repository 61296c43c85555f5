// Package memstore provides a thread-safe in-memory model.Service. Records
// live in a map keyed by identity; enumeration follows insertion order.
// Handy as the default backend in tests and short-lived tools.
package memstore

import (
	"context"
	"encoding/json"
	"reflect"
	"sync"

	"github.com/mesh-intelligence/shelf/pkg/model"
)

// Store is an in-memory implementation of model.Service. The zero value is
// not usable; create stores with New.
type Store struct {
	mu      sync.RWMutex
	records map[int64]map[string]any
	order   []int64
	lastID  int64
}

var _ model.Service = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{records: make(map[int64]map[string]any)}
}

// Save creates or updates the record for e. A create draws the next identity
// from the store's sequence and assigns it via e.SetID; an update stores the
// fields under the existing identity, inserting when the identity is unknown
// to the store.
func (s *Store) Save(_ context.Context, e *model.Entity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	id, ok := e.ID()
	if !ok {
		s.lastID++
		id = s.lastID
		e.SetID(id)
	} else if id > s.lastID {
		s.lastID = id
	}
	if _, present := s.records[id]; !present {
		s.order = append(s.order, id)
	}
	fields := e.Fields()
	fields[model.FieldID] = id
	s.records[id] = fields
	return nil
}

// Delete removes exactly the record matching e's identity. An entity without
// persisted identity, or an identity the store does not know, is a silent
// no-op.
func (s *Store) Delete(_ context.Context, e *model.Entity) error {
	id, ok := e.ID()
	if !ok {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, present := s.records[id]; !present {
		return nil
	}
	delete(s.records, id)
	for i, known := range s.order {
		if known == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

// Fetch returns a copy of the record with the given id, or model.ErrNotFound.
func (s *Store) Fetch(_ context.Context, id int64) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	fields, ok := s.records[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return copyFields(fields), nil
}

// All returns copies of every record in insertion order.
func (s *Store) All(_ context.Context) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]map[string]any, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, copyFields(s.records[id]))
	}
	return out, nil
}

// Where returns copies of the records whose field equals value, in insertion
// order. Numeric values compare across kinds, so a record stored with
// int64(1) matches a query for 1 or 1.0.
func (s *Store) Where(_ context.Context, field string, value any) ([]map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []map[string]any{}
	for _, id := range s.order {
		if valueEqual(s.records[id][field], value) {
			out = append(out, copyFields(s.records[id]))
		}
	}
	return out, nil
}

// Exists reports whether a record with the given id is present.
func (s *Store) Exists(_ context.Context, id int64) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.records[id]
	return ok, nil
}

// Len returns the number of stored records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// valueEqual compares field values for the equality filter. Numeric kinds
// normalize to float64 before comparing; everything else must match by
// ordinary equality, guarded against uncomparable values.
func valueEqual(a, b any) bool {
	fa, aNum := asFloat(a)
	fb, bNum := asFloat(b)
	if aNum || bNum {
		return aNum && bNum && fa == fb
	}
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if !reflect.TypeOf(a).Comparable() || !reflect.TypeOf(b).Comparable() {
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
