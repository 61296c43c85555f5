package model

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Reserved operation names. These are guarded on every type so that a field
// or relation cannot shadow an entity operation.
var reservedNames = []string{
	"save", "delete", "on", "off", "emit",
	"get", "set", "with", "relate", "related",
}

// Hook runs synchronously before the backend call of a save or delete.
// A non-nil error aborts the operation before the backend is reached and
// before the success event fires.
type Hook func(ctx context.Context, e *Entity) error

// relation is a type-level declaration that entities of the owning type hold
// a set of target instances, exposed under name.
type relation struct {
	target *Type
	name   string
}

// Type describes one entity class: its guarded names, relation declarations,
// lifecycle hooks, observers, and the service binding. Types are minted by
// Registry.Define and shared by every entity of the class.
type Type struct {
	name         string
	guarded      map[string]bool
	relations    []relation
	service      Service
	beforeSave   Hook
	beforeDelete Hook
	observers    []Listener
}

func newType(name string, guarded []string) *Type {
	t := &Type{
		name:    name,
		guarded: make(map[string]bool, len(reservedNames)+len(guarded)),
	}
	for _, n := range reservedNames {
		t.guarded[n] = true
	}
	for _, n := range guarded {
		if n = strings.TrimSpace(n); n != "" {
			t.guarded[n] = true
		}
	}
	return t
}

// Name returns the normalized type name.
func (t *Type) Name() string {
	return t.name
}

// Guarded returns the guarded names of this type, sorted.
func (t *Type) Guarded() []string {
	out := make([]string, 0, len(t.guarded))
	for n := range t.guarded {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// IsGuarded reports whether name is guarded on this type.
func (t *Type) IsGuarded(name string) bool {
	return t.guarded[name]
}

// Bind attaches svc as the persistence service of this type. Exactly one
// binding is allowed; a second call returns ErrAlreadyBound.
func (t *Type) Bind(svc Service) error {
	if svc == nil {
		return fmt.Errorf("bind %s: %w", t.name, ErrNilService)
	}
	if t.service != nil {
		return fmt.Errorf("bind %s: %w", t.name, ErrAlreadyBound)
	}
	t.service = svc
	return nil
}

// Service returns the bound service. Returns ErrNotBound when no service was
// bound, so misconfiguration fails fast instead of panicking on first use.
func (t *Type) Service() (Service, error) {
	if t.service == nil {
		return nil, fmt.Errorf("%s: %w", t.name, ErrNotBound)
	}
	return t.service, nil
}

// SetBeforeSave installs the hook run before every backend save.
func (t *Type) SetBeforeSave(fn Hook) {
	t.beforeSave = fn
}

// SetBeforeDelete installs the hook run before every backend delete.
func (t *Type) SetBeforeDelete(fn Hook) {
	t.beforeDelete = fn
}

// Observe registers fn as a listener on every entity minted after this call,
// subscribed to all topics before initializer fields apply. Observers are
// how construction's created event becomes observable, since no caller can
// subscribe to an instance before New returns.
func (t *Type) Observe(fn Listener) {
	if fn != nil {
		t.observers = append(t.observers, fn)
	}
}

// Relate declares that entities of this type hold a set of target instances.
// The set is exposed through Get under the given name, or under the
// pluralized lowercase target name when name is omitted or empty. Declaring
// the same target again updates the exposed name. Guarded names keep the
// declaration but suppress exposure.
func (t *Type) Relate(target *Type, name ...string) error {
	if target == nil {
		return fmt.Errorf("relate %s: %w", t.name, ErrInvalidType)
	}
	exposed := ""
	if len(name) > 0 {
		exposed = strings.TrimSpace(name[0])
	}
	if exposed == "" {
		exposed = pluralize(target.name)
	}
	for i := range t.relations {
		if t.relations[i].target == target {
			t.relations[i].name = exposed
			return nil
		}
	}
	t.relations = append(t.relations, relation{target: target, name: exposed})
	return nil
}

// relationOf returns the declaration for target, or nil.
func (t *Type) relationOf(target *Type) *relation {
	for i := range t.relations {
		if t.relations[i].target == target {
			return &t.relations[i]
		}
	}
	return nil
}

// New mints an entity of this type from an initializer field map. Every key
// is stored through the ordinary set path, but construction fires no updated
// or changed events; exactly one created event fires after all fields are
// applied. Type observers are subscribed before fields apply.
func (t *Type) New(fields map[string]any) *Entity {
	e := &Entity{
		typ:       t,
		fields:    make(map[string]any, len(fields)),
		relations: make(map[*Type]*relationSet),
		emitter:   NewEmitter(),
	}
	for _, fn := range t.observers {
		for _, topic := range topics {
			e.emitter.On(topic, fn)
		}
	}
	for name, value := range fields {
		e.Set(name, value)
	}
	e.constructed = true
	e.Emit(TopicCreated)
	return e
}

// All fetches every record from the bound service and maps each field map
// into a new entity, preserving backend enumeration order.
func (t *Type) All(ctx context.Context) ([]*Entity, error) {
	svc, err := t.Service()
	if err != nil {
		return nil, err
	}
	rows, err := svc.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("all %s: %w", t.name, errors.Join(ErrLookup, err))
	}
	return t.mint(rows), nil
}

// Where fetches records whose field equals value and maps each into a new
// entity, preserving backend order.
func (t *Type) Where(ctx context.Context, field string, value any) ([]*Entity, error) {
	svc, err := t.Service()
	if err != nil {
		return nil, err
	}
	rows, err := svc.Where(ctx, field, value)
	if err != nil {
		return nil, fmt.Errorf("where %s.%s: %w", t.name, field, errors.Join(ErrLookup, err))
	}
	return t.mint(rows), nil
}

// Find fetches the record with the given id and maps it into a new entity.
// A missing record surfaces as an error matching ErrNotFound, never as an
// entity with empty fields; a record that exists but carries no fields
// beyond its id is a valid, distinct result.
func (t *Type) Find(ctx context.Context, id int64) (*Entity, error) {
	svc, err := t.Service()
	if err != nil {
		return nil, err
	}
	row, err := svc.Fetch(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("find %s %d: %w", t.name, id, err)
		}
		return nil, fmt.Errorf("find %s %d: %w", t.name, id, errors.Join(ErrLookup, err))
	}
	return t.New(row), nil
}

// Exists reports whether a record with the given id is present.
func (t *Type) Exists(ctx context.Context, id int64) (bool, error) {
	svc, err := t.Service()
	if err != nil {
		return false, err
	}
	ok, err := svc.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("exists %s %d: %w", t.name, id, errors.Join(ErrLookup, err))
	}
	return ok, nil
}

func (t *Type) mint(rows []map[string]any) []*Entity {
	out := make([]*Entity, 0, len(rows))
	for _, row := range rows {
		out = append(out, t.New(row))
	}
	return out
}

// pluralize derives the default relation name from a type name: "user" to
// "users", "box" to "boxes", "category" to "categories".
func pluralize(name string) string {
	switch {
	case name == "":
		return name
	case strings.HasSuffix(name, "s"), strings.HasSuffix(name, "x"),
		strings.HasSuffix(name, "z"), strings.HasSuffix(name, "ch"),
		strings.HasSuffix(name, "sh"):
		return name + "es"
	case strings.HasSuffix(name, "y") && len(name) > 1 && !isVowel(name[len(name)-2]):
		return name[:len(name)-1] + "ies"
	default:
		return name + "s"
	}
}

func isVowel(b byte) bool {
	switch b {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
