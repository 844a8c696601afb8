package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGroupLifecycle(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ada := e.user(t, "ada")
	bob := e.user(t, "bob")
	eve := e.user(t, "eve")

	_, err := e.svc.Groups.Create(ctx, ada, "  ", "", "")
	assert.ErrorIs(t, err, ErrInvalidInput)

	g, err := e.svc.Groups.Create(ctx, ada, "Go Study", " weekly ", "")
	require.NoError(t, err)
	assert.Equal(t, "weekly", g.Description)
	assert.Equal(t, []primitive.ObjectID{ada.ID}, g.Members)

	_, err = e.svc.Posts.Create(ctx, bob, CreatePostInput{Content: "let me in", GroupID: &g.ID})
	assert.ErrorIs(t, err, ErrForbidden)

	g, err = e.svc.Groups.Join(ctx, bob, g.ID)
	require.NoError(t, err)
	assert.True(t, g.HasMember(bob.ID))

	p, err := e.svc.Posts.Create(ctx, bob, CreatePostInput{Content: "hello group", GroupID: &g.ID})
	require.NoError(t, err)

	// group posts stay out of the main feed and away from non-members
	feed, err := e.svc.Posts.Feed(ctx, eve, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, feed.Posts)
	_, err = e.svc.Posts.Get(ctx, eve, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.svc.Groups.Posts(ctx, eve, g.ID, 1, 10)
	assert.ErrorIs(t, err, ErrForbidden)

	page, err := e.svc.Groups.Posts(ctx, ada, g.ID, 1, 10)
	require.NoError(t, err)
	require.Len(t, page.Posts, 1)
	assert.Equal(t, "hello group", page.Posts[0].Content)

	name := "Go Readers"
	_, err = e.svc.Groups.Update(ctx, bob, g.ID, GroupInput{Name: &name})
	assert.ErrorIs(t, err, ErrForbidden)
	g, err = e.svc.Groups.Update(ctx, ada, g.ID, GroupInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Go Readers", g.Name)

	_, err = e.svc.Groups.Leave(ctx, ada, g.ID)
	assert.ErrorIs(t, err, ErrInvalidInput)
	g, err = e.svc.Groups.Leave(ctx, bob, g.ID)
	require.NoError(t, err)
	assert.False(t, g.HasMember(bob.ID))

	assert.ErrorIs(t, e.svc.Groups.Delete(ctx, bob, g.ID), ErrForbidden)
	require.NoError(t, e.svc.Groups.Delete(ctx, ada, g.ID))

	_, err = e.svc.Groups.Get(ctx, g.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = e.store.Posts.ByID(ctx, p.ID)
	assert.Error(t, err)
	u, _ := e.store.Users.ByID(ctx, bob.ID)
	assert.Empty(t, u.Posts)
}

func TestGroupList(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ada := e.user(t, "ada")
	for _, name := range []string{"one", "two", "three"} {
		_, err := e.svc.Groups.Create(ctx, ada, name, "", "")
		require.NoError(t, err)
	}
	list, err := e.svc.Groups.List(ctx, 1, 2)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = e.svc.Groups.Join(ctx, ada, primitive.NewObjectID())
	assert.ErrorIs(t, err, ErrNotFound)
}
