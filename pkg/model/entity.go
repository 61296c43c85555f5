package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// FieldID is the identity field name. An entity is persisted iff it carries
// this field with a numeric value; that is the sole criterion deciding
// create-vs-update on save and delete eligibility.
const FieldID = "id"

// Entity is one record of a defined type: a dynamic field map plus relation
// sets keyed by related type. Entities are minted by Type.New and broadcast
// lifecycle and change events through a per-instance emitter. An entity is
// owned by the goroutine currently mutating it; the core takes no locks.
type Entity struct {
	typ         *Type
	fields      map[string]any
	relations   map[*Type]*relationSet
	emitter     *Emitter
	constructed bool
}

// Type returns the entity's type.
func (e *Entity) Type() *Type {
	return e.typ
}

// On registers fn for topic on this entity's channel.
func (e *Entity) On(topic Topic, fn Listener) *Subscription {
	return e.emitter.On(topic, fn)
}

// Off removes the registration identified by sub.
func (e *Entity) Off(sub *Subscription) {
	e.emitter.Off(sub)
}

// Emit broadcasts a payloadless event for topic on this entity's channel.
// External code drives propagation by hand this way, for example emitting
// TopicDeleting to prune the entity from every relation set holding it.
func (e *Entity) Emit(topic Topic) {
	e.emitter.Emit(Event{Topic: topic, Entity: e})
}

// Set stores value under name. On a non-guarded name after construction the
// call behaves as the accessor write and fires updated then changed, once
// each, synchronously. Guarded names and initializer fields store the raw
// value silently.
func (e *Entity) Set(name string, value any) {
	e.fields[name] = value
	if !e.constructed || e.typ.guarded[name] {
		return
	}
	e.emitter.Emit(Event{Topic: TopicUpdated, Entity: e, Field: name, Value: value})
	e.Emit(TopicChanged)
}

// Get returns the value stored under name, or the relation set exposed under
// name, or nil. Field lookup always shadows relation lookup; relation lookup
// tries the exposed relation name first, then the case-normalized target
// type name. Relation hits return a copied []*Entity.
func (e *Entity) Get(name string) any {
	return e.GetOr(name, nil)
}

// GetOr is Get with an explicit fallback for when neither a field nor a
// relation resolves.
func (e *Entity) GetOr(name string, fallback any) any {
	if v, ok := e.fields[name]; ok {
		return v
	}
	if set, ok := e.relationLookup(name); ok {
		return set
	}
	return fallback
}

// relationLookup resolves name against declared relations: first the exposed
// relation name (unless guarded), then the lowercased target type name.
func (e *Entity) relationLookup(name string) ([]*Entity, bool) {
	for i := range e.typ.relations {
		decl := &e.typ.relations[i]
		if decl.name == name && !e.typ.guarded[decl.name] {
			return e.relatedItems(decl.target), true
		}
	}
	lower := strings.ToLower(name)
	for i := range e.typ.relations {
		decl := &e.typ.relations[i]
		if decl.target.name == lower {
			return e.relatedItems(decl.target), true
		}
	}
	return nil, false
}

// Fields returns a copy of the field map. Services persist from this.
func (e *Entity) Fields() map[string]any {
	out := make(map[string]any, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// ID returns the entity's numeric identity as int64.
func (e *Entity) ID() (int64, bool) {
	return asID(e.fields[FieldID])
}

// Persisted reports whether the entity carries a numeric id field.
func (e *Entity) Persisted() bool {
	_, ok := e.ID()
	return ok
}

// SetID stores the identity field without firing events. Services call this
// when a create assigns a fresh identity.
func (e *Entity) SetID(id int64) {
	e.fields[FieldID] = id
}

// Save persists the entity through the bound service: resolve the service
// (an unbound type fails fast, before any event), fire saving, run the
// before-save hook, delegate to the service, fire saved. A hook or backend
// error propagates to the caller and saved does not fire. Backend failures
// wrap ErrPersistence alongside the backend's own error.
func (e *Entity) Save(ctx context.Context) error {
	svc, err := e.typ.Service()
	if err != nil {
		return err
	}
	e.Emit(TopicSaving)
	if fn := e.typ.beforeSave; fn != nil {
		if err := fn(ctx, e); err != nil {
			return err
		}
	}
	if err := svc.Save(ctx, e); err != nil {
		return fmt.Errorf("save %s: %w", e.typ.name, errors.Join(ErrPersistence, err))
	}
	e.Emit(TopicSaved)
	return nil
}

/// Delete asks the bound service to forget the record: resolve the service,
// fire deleting, run the before-delete hook, delegate, fire deleted. The
// in-memory entity is never erased. An entity lacking persisted identity
// skips the backend call but still fires deleting and deleted, so relation
// sets prune regardless of persistence. Abort rules mirror Save.
func (e *Entity) Delete(ctx context.Context) error {
	svc, err := e.typ.Service()
	if err != nil {
		return err
	}
	e.Emit(TopicDeleting)
	if fn := e.typ.beforeDelete; fn != nil {
		if err := fn(ctx, e); err != nil {
			return err
		}
	}
	if e.Persisted() {
		if err := svc.Delete(ctx, e); err != nil {
			return fmt.Errorf("delete %s: %w", e.typ.name, errors.Join(ErrPersistence, err))
		}
	}
	e.Emit(TopicDeleted)
	return nil
}

// asID coerces a field value to the canonical int64 identity. Every Go
// numeric kind counts, as do whole floats (JSON decoding yields float64) and
// json.Number. Anything else, including fractional floats and numeric
// strings, does not.
func asID(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint:
		return int64(n), uint64(n) <= math.MaxInt64
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), n <= math.MaxInt64
	case float32:
		return asID(float64(n))
	case float64:
		if n != math.Trunc(n) || n < math.MinInt64 || n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	}
	return 0, false
}
