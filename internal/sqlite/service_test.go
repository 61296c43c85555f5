package sqlite

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/shelf/pkg/model"
)

// setupStore creates an attached store on a throwaway directory with a
// cleanup-deferred detach.
func setupStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore()
	require.NoError(t, s.Attach(Config{DataDir: t.TempDir()}))
	t.Cleanup(func() { s.Detach() })
	return s
}

// noteType defines a fresh "note" entity type in its own registry.
func noteType(t *testing.T) *model.Type {
	t.Helper()
	typ, err := model.NewRegistry().Define("note")
	require.NoError(t, err)
	return typ
}

func TestServiceSaveAssignsSequentialIDs(t *testing.T) {
	s := setupStore(t)
	typ := noteType(t)
	svc, err := s.Service("note")
	require.NoError(t, err)
	ctx := context.Background()

	first := typ.New(map[string]any{"title": "one"})
	require.NoError(t, svc.Save(ctx, first))
	second := typ.New(map[string]any{"title": "two"})
	require.NoError(t, svc.Save(ctx, second))

	id1, ok := first.ID()
	require.True(t, ok)
	id2, ok := second.ID()
	require.True(t, ok)
	assert.Equal(t, int64(1), id1)
	assert.Equal(t, int64(2), id2)
}

func TestServiceSaveUpdatesInPlace(t *testing.T) {
	s := setupStore(t)
	typ := noteType(t)
	svc, err := s.Service("note")
	require.NoError(t, err)
	ctx := context.Background()

	e := typ.New(map[string]any{"title": "draft"})
	require.NoError(t, svc.Save(ctx, e))
	e.Set("title", "final")
	require.NoError(t, svc.Save(ctx, e))

	id, _ := e.ID()
	fields, err := svc.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "final", fields["title"])

	all, err := svc.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1, "update must not create a second row")
}

func TestServiceFetch(t *testing.T) {
	s := setupStore(t)
	typ := noteType(t)
	svc, err := s.Service("note")
	require.NoError(t, err)
	ctx := context.Background()

	e := typ.New(map[string]any{"title": "findable", "count": 42})
	require.NoError(t, svc.Save(ctx, e))
	id, _ := e.ID()

	fields, err := svc.Fetch(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, fields[model.FieldID], "fetch includes the id entry")
	assert.Equal(t, "findable", fields["title"])
	assert.Equal(t, json.Number("42"), fields["count"],
		"numbers come back as json.Number")
}

func TestServiceFetchNotFound(t *testing.T) {
	s := setupStore(t)
	svc, err := s.Service("note")
	require.NoError(t, err)

	_, err = svc.Fetch(context.Background(), 99)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestServiceAllReturnsCreationOrder(t *testing.T) {
	s := setupStore(t)
	typ := noteType(t)
	svc, err := s.Service("note")
	require.NoError(t, err)
	ctx := context.Background()

	for _, title := range []string{"a", "b", "c"} {
		require.NoError(t, svc.Save(ctx, typ.New(map[string]any{"title": title})))
	}

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "a", all[0]["title"])
	assert.Equal(t, "b", all[1]["title"])
	assert.Equal(t, "c", all[2]["title"])
}

func TestServiceAllEmpty(t *testing.T) {
	s := setupStore(t)
	svc, err := s.Service("note")
	require.NoError(t, err)

	all, err := svc.All(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestServiceWhere(t *testing.T) {
	s := setupStore(t)
	typ := noteType(t)
	svc, err := s.Service("note")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, typ.New(map[string]any{"state": "pending", "priority": 1, "done": false})))
	require.NoError(t, svc.Save(ctx, typ.New(map[string]any{"state": "pending", "priority": 2, "done": true})))
	require.NoError(t, svc.Save(ctx, typ.New(map[string]any{"state": "done", "priority": 2, "done": true})))

	tests := []struct {
		name  string
		field string
		value any
		want  int
	}{
		{name: "string match", field: "state", value: "pending", want: 2},
		{name: "int match", field: "priority", value: 2, want: 2},
		{name: "int64 match", field: "priority", value: int64(1), want: 1},
		{name: "float match", field: "priority", value: 2.0, want: 2},
		{name: "bool match", field: "done", value: true, want: 2},
		{name: "no match", field: "state", value: "archived", want: 0},
		{name: "unknown field", field: "missing", value: "x", want: 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := svc.Where(ctx, tc.field, tc.value)
			require.NoError(t, err)
			assert.Len(t, got, tc.want)
		})
	}
}

func TestServiceWhereNil(t *testing.T) {
	s := setupStore(t)
	typ := noteType(t)
	svc, err := s.Service("note")
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, svc.Save(ctx, typ.New(map[string]any{"title": "explicit", "owner": nil})))
	require.NoError(t, svc.Save(ctx, typ.New(map[string]any{"title": "absent"})))

	got, err := svc.Where(ctx, "owner", nil)
	require.NoError(t, err)
	require.Len(t, got, 1, "nil matches stored null, not a missing field")
	assert.Equal(t, "explicit", got[0]["title"])
}

func TestServiceDelete(t *testing.T) {
	s := setupStore(t)
	typ := noteType(t)
	svc, err := s.Service("note")
	require.NoError(t, err)
	ctx := context.Background()

	keep := typ.New(map[string]any{"title": "keep"})
	drop := typ.New(map[string]any{"title": "drop"})
	require.NoError(t, svc.Save(ctx, keep))
	require.NoError(t, svc.Save(ctx, drop))

	require.NoError(t, svc.Delete(ctx, drop))

	all, err := svc.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "keep", all[0]["title"])

	// Absent rows and unpersisted entities are silent no-ops.
	require.NoError(t, svc.Delete(ctx, drop))
	require.NoError(t, svc.Delete(ctx, typ.New(nil)))
}

func TestServiceExists(t *testing.T) {
	s := setupStore(t)
	typ := noteType(t)
	svc, err := s.Service("note")
	require.NoError(t, err)
	ctx := context.Background()

	e := typ.New(map[string]any{"title": "here"})
	require.NoError(t, svc.Save(ctx, e))
	id, _ := e.ID()

	ok, err := svc.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Exists(ctx, id+1)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestServiceThroughBoundType(t *testing.T) {
	s := setupStore(t)
	registry := model.NewRegistry()
	users, err := registry.Define("user")
	require.NoError(t, err)
	svc, err := s.Service("user")
	require.NoError(t, err)
	require.NoError(t, users.Bind(svc))
	ctx := context.Background()

	u := users.New(map[string]any{"name": "Ann"})
	require.NoError(t, u.Save(ctx))
	require.True(t, u.Persisted())

	found, err := users.Find(ctx, mustID(t, u))
	require.NoError(t, err)
	assert.Equal(t, "Ann", found.Get("name"))

	rows, err := users.Where(ctx, "name", "Ann")
	require.NoError(t, err)
	assert.Len(t, rows, 1)

	require.NoError(t, u.Delete(ctx))
	_, err = users.Find(ctx, mustID(t, u))
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func mustID(t *testing.T, e *model.Entity) int64 {
	t.Helper()
	id, ok := e.ID()
	require.True(t, ok)
	return id
}
