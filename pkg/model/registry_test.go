package model

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryDefine(t *testing.T) {
	tests := []struct {
		name     string
		typeName string
		wantErr  error
		wantName string
	}{
		{name: "simple name", typeName: "user", wantName: "user"},
		{name: "uppercase normalized", typeName: "User", wantName: "user"},
		{name: "surrounding space trimmed", typeName: "  post  ", wantName: "post"},
		{name: "underscore and digits", typeName: "audit_log2", wantName: "audit_log2"},
		{name: "empty rejected", typeName: "", wantErr: ErrInvalidType},
		{name: "leading digit rejected", typeName: "9lives", wantErr: ErrInvalidType},
		{name: "leading underscore rejected", typeName: "_user", wantErr: ErrInvalidType},
		{name: "inner space rejected", typeName: "user name", wantErr: ErrInvalidType},
		{name: "punctuation rejected", typeName: "user;drop", wantErr: ErrInvalidType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()

			typ, err := reg.Define(tt.typeName)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, typ)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantName, typ.Name())
			}
		})
	}
}

func TestRegistryDefineDuplicate(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Define("user")
	require.NoError(t, err)

	_, err = reg.Define("User")

	assert.ErrorIs(t, err, ErrTypeDefined, "names collide case-insensitively")
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry()
	users, err := reg.Define("user")
	require.NoError(t, err)

	found, err := reg.Lookup("USER")
	require.NoError(t, err)
	assert.Same(t, users, found)

	_, err = reg.Lookup("ghost")
	assert.ErrorIs(t, err, ErrTypeUnknown)
}

func TestRegistryTypesInDefinitionOrder(t *testing.T) {
	reg := NewRegistry()
	users, err := reg.Define("user")
	require.NoError(t, err)
	posts, err := reg.Define("post")
	require.NoError(t, err)
	tags, err := reg.Define("tag")
	require.NoError(t, err)

	assert.Equal(t, []*Type{users, posts, tags}, reg.Types())
}

func TestTypeGuardedMergesReservedAndExtras(t *testing.T) {
	users := defineType(t, "user", "secret", " padded ")

	assert.True(t, users.IsGuarded("save"))
	assert.True(t, users.IsGuarded("relate"))
	assert.True(t, users.IsGuarded("secret"))
	assert.True(t, users.IsGuarded("padded"))
	assert.False(t, users.IsGuarded("name"))
	assert.Contains(t, users.Guarded(), "with")
}

func TestTypeBindExactlyOnce(t *testing.T) {
	users := defineType(t, "user")
	first := newFakeService()
	second := newFakeService()

	require.NoError(t, users.Bind(first))

	err := users.Bind(second)
	assert.ErrorIs(t, err, ErrAlreadyBound)

	svc, err := users.Service()
	require.NoError(t, err)
	assert.Same(t, first, svc, "the first binding stands")
}

func TestTypeBindNilService(t *testing.T) {
	users := defineType(t, "user")
	assert.ErrorIs(t, users.Bind(nil), ErrNilService)
}

func TestTypeServiceUnbound(t *testing.T) {
	users := defineType(t, "user")

	_, err := users.Service()

	assert.ErrorIs(t, err, ErrNotBound)
}

func TestTypeAllMapsRowsToEntities(t *testing.T) {
	users := defineType(t, "user")
	svc := newFakeService()
	require.NoError(t, users.Bind(svc))
	require.NoError(t, users.New(map[string]any{"name": "Ann"}).Save(context.Background()))
	require.NoError(t, users.New(map[string]any{"name": "Beth"}).Save(context.Background()))

	all, err := users.All(context.Background())

	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ann", all[0].Get("name"), "backend order is preserved")
	assert.Equal(t, "Beth", all[1].Get("name"))
	assert.Same(t, users, all[0].Type())
}

func TestTypeAllConstructsThroughObservers(t *testing.T) {
	users := defineType(t, "user")
	svc := newFakeService()
	require.NoError(t, users.Bind(svc))
	require.NoError(t, users.New(map[string]any{"name": "Ann"}).Save(context.Background()))

	created := 0
	users.Observe(func(ev Event) {
		if ev.Topic == TopicCreated {
			created++
		}
	})

	_, err := users.All(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, created, "each mapped row goes through the standard constructor path")
}

func TestTypeWhereYieldsOneEntityPerRow(t *testing.T) {
	users := defineType(t, "user")
	svc := newFakeService()
	require.NoError(t, users.Bind(svc))
	require.NoError(t, users.New(map[string]any{"name": "Ann", "active": 1}).Save(context.Background()))
	require.NoError(t, users.New(map[string]any{"name": "Beth", "active": 0}).Save(context.Background()))
	require.NoError(t, users.New(map[string]any{"name": "Cleo", "active": 1}).Save(context.Background()))

	matched, err := users.Where(context.Background(), "active", 1)

	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, "Ann", matched[0].Get("name"))
	assert.Equal(t, "Cleo", matched[1].Get("name"))
}

func TestTypeFindReturnsEntity(t *testing.T) {
	users := defineType(t, "user")
	svc := newFakeService()
	require.NoError(t, users.Bind(svc))
	u := users.New(map[string]any{"name": "Ann"})
	require.NoError(t, u.Save(context.Background()))
	id, _ := u.ID()

	found, err := users.Find(context.Background(), id)

	require.NoError(t, err)
	assert.Equal(t, "Ann", found.Get("name"))
	assert.True(t, found.Persisted())
}

func TestTypeFindNotFoundIsDistinguishable(t *testing.T) {
	users := defineType(t, "user")
	svc := newFakeService()
	require.NoError(t, users.Bind(svc))

	// A record that exists but carries no fields beyond its identity.
	svc.records[5] = map[string]any{FieldID: int64(5)}
	svc.order = append(svc.order, 5)

	empty, err := users.Find(context.Background(), 5)
	require.NoError(t, err)
	assert.Len(t, empty.Fields(), 1)

	missing, err := users.Find(context.Background(), 99)
	assert.Nil(t, missing)
	assert.ErrorIs(t, err, ErrNotFound,
		"absence is an error outcome, never an entity with empty fields")
	assert.NotErrorIs(t, err, ErrLookup, "absence is not a lookup failure")
}

func TestTypeLookupFailuresWrapErrLookup(t *testing.T) {
	boom := errors.New("backend down")

	tests := []struct {
		name string
		call func(*Type) error
		set  func(*fakeService)
	}{
		{
			name: "all",
			call: func(typ *Type) error { _, err := typ.All(context.Background()); return err },
			set:  func(s *fakeService) { s.allErr = boom },
		},
		{
			name: "where",
			call: func(typ *Type) error { _, err := typ.Where(context.Background(), "a", 1); return err },
			set:  func(s *fakeService) { s.whereErr = boom },
		},
		{
			name: "find",
			call: func(typ *Type) error { _, err := typ.Find(context.Background(), 1); return err },
			set:  func(s *fakeService) { s.fetchErr = boom },
		},
		{
			name: "exists",
			call: func(typ *Type) error { _, err := typ.Exists(context.Background(), 1); return err },
			set:  func(s *fakeService) { s.existsErr = boom },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := defineType(t, "user")
			svc := newFakeService()
			tt.set(svc)
			require.NoError(t, users.Bind(svc))

			err := tt.call(users)

			assert.ErrorIs(t, err, ErrLookup)
			assert.ErrorIs(t, err, boom, "the backend error stays matchable")
			assert.NotErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestTypeStaticSurfaceUnbound(t *testing.T) {
	users := defineType(t, "user")
	ctx := context.Background()

	_, errAll := users.All(ctx)
	_, errWhere := users.Where(ctx, "a", 1)
	_, errFind := users.Find(ctx, 1)
	_, errExists := users.Exists(ctx, 1)

	for _, err := range []error{errAll, errWhere, errFind, errExists} {
		assert.ErrorIs(t, err, ErrNotBound)
	}
}

func TestTypeExists(t *testing.T) {
	users := defineType(t, "user")
	svc := newFakeService()
	require.NoError(t, users.Bind(svc))
	u := users.New(nil)
	require.NoError(t, u.Save(context.Background()))
	id, _ := u.ID()

	ok, err := users.Exists(context.Background(), id)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = users.Exists(context.Background(), id+1)
	require.NoError(t, err)
	assert.False(t, ok)
}
