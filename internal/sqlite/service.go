package sqlite

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mesh-intelligence/shelf/pkg/model"
)

// service implements model.Service for a single entity type. All methods
// take the store's read lock only to pin attach state; the database
// serializes its own writes.
type service struct {
	store *Store
	name  string
	table string
}

var _ model.Service = (*service)(nil)

// Save inserts the entity's fields as a new row when it has no identity,
// assigning the generated id, and upserts the row matching its identity
// otherwise.
func (s *service) Save(ctx context.Context, e *model.Entity) error {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	if !s.store.attached {
		return ErrDetached
	}

	doc, err := encodeFields(e.Fields())
	if err != nil {
		return fmt.Errorf("encoding %s fields: %w", s.name, err)
	}

	id, ok := e.ID()
	if !ok {
		res, err := s.store.db.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (fields) VALUES (?)", s.table), doc)
		if err != nil {
			return fmt.Errorf("inserting %s: %w", s.name, err)
		}
		newID, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading %s id: %w", s.name, err)
		}
		e.SetID(newID)
		return nil
	}

	_, err = s.store.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, fields) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET fields = excluded.fields`, s.table),
		id, doc)
	if err != nil {
		return fmt.Errorf("upserting %s %d: %w", s.name, id, err)
	}
	return nil
}

// Delete removes the row matching the entity's identity. An entity without
// identity, or one whose row is already gone, is a silent no-op.
func (s *service) Delete(ctx context.Context, e *model.Entity) error {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	if !s.store.attached {
		return ErrDetached
	}

	id, ok := e.ID()
	if !ok {
		return nil
	}

	_, err := s.store.db.ExecContext(ctx,
		fmt.Sprintf("DELETE FROM %s WHERE id = ?", s.table), id)
	if err != nil {
		return fmt.Errorf("deleting %s %d: %w", s.name, id, err)
	}
	return nil
}

// Fetch returns the field map of the row with the given id, including the
// "id" entry. Returns model.ErrNotFound when no row exists.
func (s *service) Fetch(ctx context.Context, id int64) (map[string]any, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	if !s.store.attached {
		return nil, ErrDetached
	}

	var doc []byte
	err := s.store.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT fields FROM %s WHERE id = ?", s.table), id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("fetching %s %d: %w", s.name, id, err)
	}
	return decodeFields(doc, id)
}

// All returns the field maps of every row in id order, which for generated
// ids is creation order.
func (s *service) All(ctx context.Context) ([]map[string]any, error) {
	return s.query(ctx,
		fmt.Sprintf("SELECT id, fields FROM %s ORDER BY id", s.table))
}

// Where returns the field maps of rows whose field equals value, compared
// inside sqlite via json_extract. A nil value matches JSON null.
func (s *service) Where(ctx context.Context, field string, value any) ([]map[string]any, error) {
	path := fieldPath(field)
	if value == nil {
		return s.query(ctx,
			fmt.Sprintf("SELECT id, fields FROM %s WHERE json_type(fields, ?) = 'null' ORDER BY id", s.table),
			path)
	}
	// json.Number would bind as text and never match a stored number.
	if n, ok := value.(json.Number); ok {
		if i, err := n.Int64(); err == nil {
			value = i
		} else if f, err := n.Float64(); err == nil {
			value = f
		} else {
			value = n.String()
		}
	}
	return s.query(ctx,
		fmt.Sprintf("SELECT id, fields FROM %s WHERE json_extract(fields, ?) = ? ORDER BY id", s.table),
		path, value)
}

// Exists reports whether a row with the given id is present.
func (s *service) Exists(ctx context.Context, id int64) (bool, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	if !s.store.attached {
		return false, ErrDetached
	}

	var one int
	err := s.store.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT 1 FROM %s WHERE id = ?", s.table), id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking %s %d: %w", s.name, id, err)
	}
	return true, nil
}

func (s *service) query(ctx context.Context, stmt string, args ...any) ([]map[string]any, error) {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	if !s.store.attached {
		return nil, ErrDetached
	}

	rows, err := s.store.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", s.name, err)
	}
	defer rows.Close()

	results := []map[string]any{}
	for rows.Next() {
		var id int64
		var doc []byte
		if err := rows.Scan(&id, &doc); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", s.name, err)
		}
		fields, err := decodeFields(doc, id)
		if err != nil {
			return nil, err
		}
		results = append(results, fields)
	}
	return results, rows.Err()
}

// encodeFields marshals a field map for the fields column. Identity lives in
// the id column, never in the document.
func encodeFields(fields map[string]any) ([]byte, error) {
	delete(fields, model.FieldID)
	return json.Marshal(fields)
}

// decodeFields unmarshals a fields document and splices the row id back in.
// Numbers decode as json.Number so integer identities survive the trip.
func decodeFields(doc []byte, id int64) (map[string]any, error) {
	fields := make(map[string]any)
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()
	if err := dec.Decode(&fields); err != nil {
		return nil, fmt.Errorf("decoding fields: %w", err)
	}
	fields[model.FieldID] = id
	return fields, nil
}

// fieldPath builds the json path for a field name. Quoting keeps names with
// dots or spaces addressing a single key.
func fieldPath(field string) string {
	return `$."` + field + `"`
}
