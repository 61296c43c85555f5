package sqlite

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/shelf/pkg/model"
)

// Export writes every record of the named type to path as JSON lines, one
// record per line with the id inlined. Records land in id order and map keys
// marshal sorted, so successive exports of the same data diff cleanly.
func (s *Store) Export(ctx context.Context, name, path string) error {
	svc, err := s.serviceFor(name)
	if err != nil {
		return err
	}
	records, err := svc.All(ctx)
	if err != nil {
		return err
	}

	lines := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("encoding %s record: %w", name, err)
		}
		lines = append(lines, line)
	}
	return writeJSONL(path, lines)
}

// Import reads JSON lines from path into the named type's table and returns
// the number of records imported. Records carrying an id upsert in place;
// records without one get a fresh id. Malformed lines are skipped.
func (s *Store) Import(ctx context.Context, name, path string) (int, error) {
	svc, err := s.serviceFor(name)
	if err != nil {
		return 0, err
	}
	raw, err := readJSONL(path)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, line := range raw {
		fields := make(map[string]any)
		dec := json.NewDecoder(bytes.NewReader(line))
		dec.UseNumber()
		if err := dec.Decode(&fields); err != nil {
			continue
		}
		id, hasID, ok := importID(fields)
		if !ok {
			continue
		}
		doc, err := encodeFields(fields)
		if err != nil {
			continue
		}
		if err := svc.insertRaw(ctx, id, hasID, doc); err != nil {
			return imported, err
		}
		imported++
	}
	return imported, nil
}

// insertRaw writes one encoded document, reusing the Save statements without
// an entity in hand.
func (s *service) insertRaw(ctx context.Context, id int64, hasID bool, doc []byte) error {
	s.store.mu.RLock()
	defer s.store.mu.RUnlock()

	if !s.store.attached {
		return ErrDetached
	}

	if !hasID {
		_, err := s.store.db.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (fields) VALUES (?)", s.table), doc)
		if err != nil {
			return fmt.Errorf("importing %s: %w", s.name, err)
		}
		return nil
	}
	_, err := s.store.db.ExecContext(ctx,
		fmt.Sprintf(`INSERT INTO %s (id, fields) VALUES (?, ?)
			ON CONFLICT(id) DO UPDATE SET fields = excluded.fields`, s.table),
		id, doc)
	if err != nil {
		return fmt.Errorf("importing %s %d: %w", s.name, id, err)
	}
	return nil
}

// importID pulls the identity out of a decoded record. The second result
// reports whether an id was present, the third whether the record is usable
// at all; a non-integer id marks the record malformed.
func importID(fields map[string]any) (int64, bool, bool) {
	v, ok := fields[model.FieldID]
	if !ok {
		return 0, false, true
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, false, false
	}
	id, err := num.Int64()
	if err != nil {
		return 0, false, false
	}
	return id, true, true
}

// readJSONL reads a JSON-lines file, returning each non-empty, parseable
// line. Malformed lines are skipped so a hand-edited file cannot wedge an
// import.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to path using the temp-file, fsync,
// rename pattern, so readers never observe a partial file.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
