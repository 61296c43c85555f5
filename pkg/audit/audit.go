// Package audit records entity lifecycle events. Recorders subscribe through
// the ordinary notification channel, the same surface available to any UI or
// cache layer, so the entity core needs no knowledge of auditing.
package audit

import (
	"time"

	"github.com/google/uuid"

	"github.com/mesh-intelligence/shelf/pkg/model"
)

// Entry is one recorded lifecycle event.
type Entry struct {
	// Seq is a monotonically increasing sequence number, assigned by
	// recorders that persist entries.
	Seq int64 `json:"seq,omitempty"`

	// Time is when the event was observed.
	Time time.Time `json:"time"`

	// TraceID correlates entries from one attachment or observation
	// stream.
	TraceID string `json:"traceId"`

	// Type is the entity type name.
	Type string `json:"type"`

	// EntityID is the entity's persisted identity, zero while the entity
	// is unpersisted.
	EntityID int64 `json:"entityId,omitempty"`

	// Topic is the lifecycle topic observed.
	Topic string `json:"topic"`

	// Field is the mutated field or relation name, set for updated.
	Field string `json:"field,omitempty"`
}

// Recorder consumes entries. Record errors are the recorder's to report;
// event delivery cannot fail. A recorder shared by entities on multiple
// goroutines must be safe for concurrent use.
type Recorder interface {
	Record(entry Entry) error
}

// Attach subscribes rec to every topic of e and returns a detach func that
// removes the subscriptions. Entries carry a trace ID minted per attachment.
func Attach(e *model.Entity, rec Recorder) func() {
	trace := newTraceID()
	fn := entryListener(trace, rec)
	subs := make([]*model.Subscription, 0, len(model.Topics()))
	for _, topic := range model.Topics() {
		subs = append(subs, e.On(topic, fn))
	}
	return func() {
		for _, sub := range subs {
			e.Off(sub)
		}
	}
}

// Observe registers rec on every entity of t minted after this call,
// including each one's created event. Entries carry a trace ID minted per
// observation stream.
func Observe(t *model.Type, rec Recorder) {
	t.Observe(entryListener(newTraceID(), rec))
}

func entryListener(trace string, rec Recorder) model.Listener {
	return func(ev model.Event) {
		entry := Entry{
			Time:    time.Now(),
			TraceID: trace,
			Topic:   string(ev.Topic),
			Field:   ev.Field,
		}
		if ev.Entity != nil {
			entry.Type = ev.Entity.Type().Name()
			if id, ok := ev.Entity.ID(); ok {
				entry.EntityID = id
			}
		}
		_ = rec.Record(entry)
	}
}

// newTraceID returns a UUID v7, falling back to v4 if v7 generation fails.
func newTraceID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}
