package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoTypes defines the user/post pair with the relation declared, the
// standard fixture for relation tests.
func twoTypes(t *testing.T) (*Type, *Type) {
	t.Helper()
	reg := NewRegistry()
	users, err := reg.Define("user")
	require.NoError(t, err)
	posts, err := reg.Define("post")
	require.NoError(t, err)
	require.NoError(t, users.Relate(posts))
	return users, posts
}

func TestWithAddsToRelationSet(t *testing.T) {
	users, posts := twoTypes(t)
	u := users.New(map[string]any{"name": "Ann"})
	p := posts.New(map[string]any{"title": "x"})

	require.NoError(t, u.With(p))

	related := u.Related()
	require.Len(t, related, 1)
	assert.Same(t, posts, related[0])

	set, ok := u.Get("posts").([]*Entity)
	require.True(t, ok)
	assert.Equal(t, []*Entity{p}, set)
}

func TestWithFiresUpdatedThenChanged(t *testing.T) {
	users, posts := twoTypes(t)
	u := users.New(nil)
	p := posts.New(nil)
	log := &eventLog{}
	log.watch(u)

	require.NoError(t, u.With(p))

	require.Equal(t, []Topic{TopicUpdated, TopicChanged}, log.topics())
	assert.Equal(t, "posts", log.events[0].Field)
	assert.Same(t, p, log.events[0].Value.(*Entity))
}

func TestWithUndeclaredTypeFails(t *testing.T) {
	reg := NewRegistry()
	users, err := reg.Define("user")
	require.NoError(t, err)
	posts, err := reg.Define("post")
	require.NoError(t, err)

	u := users.New(nil)
	p := posts.New(nil)
	log := &eventLog{}
	log.watch(u)

	err = u.With(p)

	assert.ErrorIs(t, err, ErrUnknownRelation)
	assert.Empty(t, log.topics(), "a failed with fires nothing")
	assert.Empty(t, u.Related())
	assert.Nil(t, u.Get("posts"), "no relation set is created")
	assert.Equal(t, 0, p.emitter.Listeners(TopicDeleting), "no listeners were installed")
}

func TestWithNilEntityFails(t *testing.T) {
	users, _ := twoTypes(t)
	u := users.New(nil)

	assert.ErrorIs(t, u.With(nil), ErrUnknownRelation)
}

func TestWithDeduplicatesByIdentity(t *testing.T) {
	users, posts := twoTypes(t)
	u := users.New(nil)
	p := posts.New(nil)
	require.NoError(t, u.With(p))
	log := &eventLog{}
	log.watch(u)

	require.NoError(t, u.With(p))

	assert.Empty(t, log.topics(), "re-adding an instance is a silent no-op")
	set := u.Get("posts").([]*Entity)
	assert.Len(t, set, 1)
	assert.Equal(t, 1, p.emitter.Listeners(TopicDeleting), "listeners are not doubled")
}

func TestRelatedDeletingPrunesSet(t *testing.T) {
	users, posts := twoTypes(t)
	u := users.New(nil)
	p := posts.New(nil)
	require.NoError(t, u.With(p))

	p.Emit(TopicDeleting)

	set := u.Get("posts").([]*Entity)
	assert.Empty(t, set)
	assert.Equal(t, 0, p.emitter.Listeners(TopicDeleting), "subscriptions are dropped on removal")
	assert.Equal(t, 0, p.emitter.Listeners(TopicChanged))
}

func TestRelatedChangedBubbles(t *testing.T) {
	users, posts := twoTypes(t)
	u := users.New(nil)
	p := posts.New(nil)
	require.NoError(t, u.With(p))
	log := &eventLog{}
	log.watch(u)

	p.Set("title", "updated title")

	assert.Equal(t, []Topic{TopicChanged}, log.topics(),
		"a related entity's changed re-emits as this entity's changed only")
}

func TestRelatedChangedStopsBubblingAfterRemoval(t *testing.T) {
	users, posts := twoTypes(t)
	u := users.New(nil)
	p := posts.New(nil)
	require.NoError(t, u.With(p))
	p.Emit(TopicDeleting)
	log := &eventLog{}
	log.watch(u)

	p.Emit(TopicChanged)

	assert.Empty(t, log.topics(), "removed instances no longer propagate changed")
}

func TestWithDoesNotCreateInverseRelation(t *testing.T) {
	reg := NewRegistry()
	users, err := reg.Define("user")
	require.NoError(t, err)
	posts, err := reg.Define("post")
	require.NoError(t, err)
	require.NoError(t, users.Relate(posts))
	require.NoError(t, posts.Relate(users))

	u := users.New(nil)
	p := posts.New(nil)
	require.NoError(t, u.With(p))

	assert.Empty(t, p.Get("users").([]*Entity),
		"the inverse relation set stays empty until declared by a with of its own")
}

func TestRelateCustomName(t *testing.T) {
	reg := NewRegistry()
	users, err := reg.Define("user")
	require.NoError(t, err)
	posts, err := reg.Define("post")
	require.NoError(t, err)
	require.NoError(t, users.Relate(posts, "entries"))

	u := users.New(nil)
	p := posts.New(nil)
	require.NoError(t, u.With(p))

	set, ok := u.Get("entries").([]*Entity)
	require.True(t, ok)
	assert.Equal(t, []*Entity{p}, set)
}

func TestRelateRedeclareUpdatesName(t *testing.T) {
	users, posts := twoTypes(t)
	require.NoError(t, users.Relate(posts, "articles"))

	u := users.New(nil)
	p := posts.New(nil)
	require.NoError(t, u.With(p))

	assert.NotNil(t, u.Get("articles"))
	assert.Len(t, u.Related(), 1, "redeclaring does not duplicate the declaration")
}

func TestRelateGuardedNameSuppressesExposure(t *testing.T) {
	reg := NewRegistry()
	users, err := reg.Define("user")
	require.NoError(t, err)
	posts, err := reg.Define("post")
	require.NoError(t, err)
	require.NoError(t, users.Relate(posts, "get"))

	u := users.New(nil)
	p := posts.New(nil)
	require.NoError(t, u.With(p), "the declaration itself stands")

	assert.Nil(t, u.Get("get"), "a guarded relation name is not exposed")
	set, ok := u.Get("post").([]*Entity)
	require.True(t, ok, "type-name lookup still works")
	assert.Equal(t, []*Entity{p}, set)
}

func TestRelateNilTarget(t *testing.T) {
	users, _ := twoTypes(t)
	assert.ErrorIs(t, users.Relate(nil), ErrInvalidType)
}

func TestGetRelationReturnsCopy(t *testing.T) {
	users, posts := twoTypes(t)
	u := users.New(nil)
	p := posts.New(nil)
	require.NoError(t, u.With(p))

	set := u.Get("posts").([]*Entity)
	set[0] = nil

	fresh := u.Get("posts").([]*Entity)
	assert.Same(t, p, fresh[0], "callers cannot mutate the underlying set")
}

func TestUserPostScenario(t *testing.T) {
	reg := NewRegistry()
	users, err := reg.Define("user")
	require.NoError(t, err)
	posts, err := reg.Define("post")
	require.NoError(t, err)

	user := users.New(map[string]any{"name": "Ann"})
	require.NoError(t, user.Relate(posts))
	post := posts.New(map[string]any{"title": "x"})
	require.NoError(t, user.With(post))

	require.Equal(t, []*Type{posts}, user.Related())
	set, ok := user.Get("posts").([]*Entity)
	require.True(t, ok)
	assert.Contains(t, set, post)
}

func TestPluralize(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{name: "user", want: "users"},
		{name: "post", want: "posts"},
		{name: "box", want: "boxes"},
		{name: "class", want: "classes"},
		{name: "dish", want: "dishes"},
		{name: "match", want: "matches"},
		{name: "category", want: "categories"},
		{name: "day", want: "days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pluralize(tt.name))
		})
	}
}
