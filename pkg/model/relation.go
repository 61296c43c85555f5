package model

import "fmt"

// relationSet holds the related instances of one target type for one entity:
// deduplicated by pointer identity, iterated in insertion order.
type relationSet struct {
	items []*Entity
}

func (s *relationSet) contains(e *Entity) bool {
	for _, item := range s.items {
		if item == e {
			return true
		}
	}
	return false
}

func (s *relationSet) add(e *Entity) {
	s.items = append(s.items, e)
}

func (s *relationSet) remove(e *Entity) {
	for i, item := range s.items {
		if item == e {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// Relate declares on this entity's type that it can hold related instances
// of target. Instance-level convenience for Type.Relate; the declaration is
// type-level either way.
func (e *Entity) Relate(target *Type, name ...string) error {
	return e.typ.Relate(target, name...)
}

// Related returns the distinct related types declared for this entity's
// type, in declaration order. Not the related instances; Get resolves those.
func (e *Entity) Related() []*Type {
	out := make([]*Type, 0, len(e.typ.relations))
	for i := range e.typ.relations {
		out = append(out, e.typ.relations[i].target)
	}
	return out
}

// With adds related to the set keyed by related's type. Fails with
// ErrUnknownRelation when that type was never declared via Relate, mutating
// nothing. A successful add subscribes to related: its deleting event prunes
// it from the set and drops both subscriptions, and its changed events
// re-emit as this entity's changed. The add then fires updated (field set to
// the exposed relation name, value to related) and changed on this entity.
// Adding an instance already in the set is a no-op and fires nothing.
func (e *Entity) With(related *Entity) error {
	if related == nil {
		return fmt.Errorf("with %s: nil entity: %w", e.typ.name, ErrUnknownRelation)
	}
	decl := e.typ.relationOf(related.typ)
	if decl == nil {
		return fmt.Errorf("with %s: %s: %w", e.typ.name, related.typ.name, ErrUnknownRelation)
	}
	set := e.relations[related.typ]
	if set == nil {
		set = &relationSet{}
		e.relations[related.typ] = set
	}
	if set.contains(related) {
		return nil
	}
	set.add(related)
	var deleting, changed *Subscription
	deleting = related.On(TopicDeleting, func(Event) {
		set.remove(related)
		related.Off(deleting)
		related.Off(changed)
	})
	changed = related.On(TopicChanged, func(Event) {
		e.Emit(TopicChanged)
	})
	e.emitter.Emit(Event{Topic: TopicUpdated, Entity: e, Field: decl.name, Value: related})
	e.Emit(TopicChanged)
	return nil
}

// relatedItems returns a copy of the relation set for target. Empty, not
// nil, when nothing was added yet.
func (e *Entity) relatedItems(target *Type) []*Entity {
	set := e.relations[target]
	if set == nil {
		return []*Entity{}
	}
	out := make([]*Entity, len(set.items))
	copy(out, set.items)
	return out
}
