package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
)

// FileRecorder appends entries to a file as JSON lines. Safe for concurrent
// use; entries receive sequence numbers in write order.
type FileRecorder struct {
	mu      sync.Mutex
	file    *os.File
	encoder *json.Encoder
	seq     atomic.Int64
}

var _ Recorder = (*FileRecorder)(nil)

// NewFileRecorder opens path for appending, creating it if needed.
func NewFileRecorder(path string) (*FileRecorder, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("audit: open %s: %w", path, err)
	}
	return &FileRecorder{
		file:    file,
		encoder: json.NewEncoder(file),
	}, nil
}

// Record writes entry as one JSON line, assigning its sequence number.
func (r *FileRecorder) Record(entry Entry) error {
	entry.Seq = r.seq.Add(1)

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return fmt.Errorf("audit: recorder is closed")
	}
	if err := r.encoder.Encode(entry); err != nil {
		return fmt.Errorf("audit: write entry: %w", err)
	}
	return nil
}

// Close flushes and releases the underlying file. Record after Close fails.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.file == nil {
		return nil
	}
	err := r.file.Close()
	r.file = nil
	r.encoder = nil
	return err
}
