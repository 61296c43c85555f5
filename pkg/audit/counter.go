package audit

import (
	"sync/atomic"

	"github.com/mesh-intelligence/shelf/pkg/model"
)

// Counter tallies entries per topic. All counters use atomic operations, so
// one Counter can serve entities on multiple goroutines.
type Counter struct {
	created  atomic.Int64
	updated  atomic.Int64
	changed  atomic.Int64
	saving   atomic.Int64
	saved    atomic.Int64
	deleting atomic.Int64
	deleted  atomic.Int64
	other    atomic.Int64
}

var _ Recorder = (*Counter)(nil)

// NewCounter returns a zeroed counter.
func NewCounter() *Counter {
	return &Counter{}
}

// Record tallies the entry's topic. Always returns nil.
func (c *Counter) Record(entry Entry) error {
	switch model.Topic(entry.Topic) {
	case model.TopicCreated:
		c.created.Add(1)
	case model.TopicUpdated:
		c.updated.Add(1)
	case model.TopicChanged:
		c.changed.Add(1)
	case model.TopicSaving:
		c.saving.Add(1)
	case model.TopicSaved:
		c.saved.Add(1)
	case model.TopicDeleting:
		c.deleting.Add(1)
	case model.TopicDeleted:
		c.deleted.Add(1)
	default:
		c.other.Add(1)
	}
	return nil
}

// Count returns the tally for one topic.
func (c *Counter) Count(topic model.Topic) int64 {
	switch topic {
	case model.TopicCreated:
		return c.created.Load()
	case model.TopicUpdated:
		return c.updated.Load()
	case model.TopicChanged:
		return c.changed.Load()
	case model.TopicSaving:
		return c.saving.Load()
	case model.TopicSaved:
		return c.saved.Load()
	case model.TopicDeleting:
		return c.deleting.Load()
	case model.TopicDeleted:
		return c.deleted.Load()
	}
	return c.other.Load()
}

// Snapshot returns the current tallies keyed by topic.
func (c *Counter) Snapshot() map[model.Topic]int64 {
	out := make(map[model.Topic]int64, len(model.Topics()))
	for _, topic := range model.Topics() {
		out[topic] = c.Count(topic)
	}
	return out
}
