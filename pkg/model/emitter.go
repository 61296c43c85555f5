package model

// Topic names a lifecycle or change event emitted by an entity.
type Topic string

// Topics emitted by entities during mutation and persistence.
const (
	TopicCreated  Topic = "created"
	TopicUpdated  Topic = "updated"
	TopicChanged  Topic = "changed"
	TopicSaving   Topic = "saving"
	TopicSaved    Topic = "saved"
	TopicDeleting Topic = "deleting"
	TopicDeleted  Topic = "deleted"
)

// topics lists every topic in emission-relevant order.
var topics = []Topic{
	TopicCreated,
	TopicUpdated,
	TopicChanged,
	TopicSaving,
	TopicSaved,
	TopicDeleting,
	TopicDeleted,
}

// Topics returns all topics entities emit.
func Topics() []Topic {
	out := make([]Topic, len(topics))
	copy(out, topics)
	return out
}

// Event is the payload delivered to listeners. Entity is the emitting
// instance. Field and Value are set for TopicUpdated and name the mutated
// field or relation and its new value.
type Event struct {
	Topic  Topic
	Entity *Entity
	Field  string
	Value  any
}

// Listener receives events synchronously on the emitting goroutine.
// Listeners cannot veto the action that triggered the event.
type Listener func(Event)

// Subscription identifies a single listener registration. The same listener
// function registered twice yields two subscriptions and fires twice.
type Subscription struct {
	topic Topic
	fn    Listener
}

// Emitter is a synchronous publish/subscribe channel for named topics.
// Listeners fire in registration order on the calling goroutine. An Emitter
// is not synchronized; it shares its owning entity's single-goroutine
// ownership model.
type Emitter struct {
	subs map[Topic][]*Subscription
}

// NewEmitter returns an empty emitter.
func NewEmitter() *Emitter {
	return &Emitter{subs: make(map[Topic][]*Subscription)}
}

// On registers fn for topic and returns the subscription handle.
// Registrations are not deduplicated.
func (em *Emitter) On(topic Topic, fn Listener) *Subscription {
	sub := &Subscription{topic: topic, fn: fn}
	em.subs[topic] = append(em.subs[topic], sub)
	return sub
}

// Off removes the registration identified by sub. No-op when sub is nil or
// was already removed. The registration list is copied on removal so that an
// emission in progress keeps its snapshot intact.
func (em *Emitter) Off(sub *Subscription) {
	if sub == nil {
		return
	}
	regs := em.subs[sub.topic]
	for i, s := range regs {
		if s == sub {
			next := make([]*Subscription, 0, len(regs)-1)
			next = append(next, regs[:i]...)
			next = append(next, regs[i+1:]...)
			em.subs[sub.topic] = next
			return
		}
	}
}

// Listeners reports the number of registrations for topic.
func (em *Emitter) Listeners(topic Topic) int {
	return len(em.subs[topic])
}

// Emit delivers event to every listener registered for its topic when the
// call starts, in registration order. Listeners added or removed during
// delivery take effect on the next emission. A panicking listener does not
// stop delivery to later listeners; the first panic value is re-raised once
// every listener has run.
func (em *Emitter) Emit(event Event) {
	var first any
	for _, sub := range em.subs[event.Topic] {
		if p := deliver(sub.fn, event); p != nil && first == nil {
			first = p
		}
	}
	if first != nil {
		panic(first)
	}
}

// deliver invokes fn and converts a listener panic into a return value.
func deliver(fn Listener, event Event) (panicked any) {
	defer func() {
		panicked = recover()
	}()
	fn(event)
	return nil
}
