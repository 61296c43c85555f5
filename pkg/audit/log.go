package audit

import (
	"log/slog"

	"github.com/mesh-intelligence/shelf/pkg/logging"
)

// NopRecorder discards all entries. Use it when auditing is disabled.
type NopRecorder struct{}

// Record discards the entry. Always returns nil.
func (NopRecorder) Record(_ Entry) error {
	return nil
}

var _ Recorder = NopRecorder{}

// LogRecorder forwards entries to a slog logger at info level.
type LogRecorder struct {
	log *slog.Logger
}

var _ Recorder = (*LogRecorder)(nil)

// NewLogRecorder builds a recorder writing to log. A nil log discards.
func NewLogRecorder(log *slog.Logger) *LogRecorder {
	if log == nil {
		log = logging.Nop()
	}
	return &LogRecorder{log: log}
}

// Record logs the entry's topic with its identifying attributes.
func (r *LogRecorder) Record(entry Entry) error {
	attrs := []any{
		"type", entry.Type,
		"trace", entry.TraceID,
	}
	if entry.EntityID != 0 {
		attrs = append(attrs, "id", entry.EntityID)
	}
	if entry.Field != "" {
		attrs = append(attrs, "field", entry.Field)
	}
	r.log.Info(entry.Topic, attrs...)
	return nil
}
