package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"edunet/auth"
	"edunet/database"
	"edunet/database/memory"
	"edunet/models"
	"edunet/presence"
	"edunet/push"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(ev Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) ofType(t string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

type pushMock struct{ mock.Mock }

func (m *pushMock) Send(userID primitive.ObjectID, msg push.Message) { m.Called(userID, msg) }
func (m *pushMock) PublicKey() string                                { return "test-key" }

type env struct {
	svc      *Services
	store    *database.Store
	events   *recorder
	push     *pushMock
	presence *presence.Memory
	tokens   *auth.TokenManager
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		store:    memory.New(),
		events:   &recorder{},
		push:     &pushMock{},
		presence: presence.NewMemory(),
		tokens:   auth.NewTokenManager("services-test-secret", time.Hour),
	}
	e.push.On("Send", mock.Anything, mock.Anything).Return()

	clock := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	e.svc = New(Deps{
		Store:    e.store,
		Tokens:   e.tokens,
		Presence: e.presence,
		Push:     e.push,
		Events:   e.events,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			clock = clock.Add(time.Second)
			return clock
		},
	})
	return e
}

func (e *env) user(t *testing.T, name string) Actor {
	t.Helper()
	u := &models.User{
		ID:       primitive.NewObjectID(),
		Username: name,
		Email:    name + "@example.com",
		Role:     models.RoleUser,
	}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return Actor{ID: u.ID, Role: u.Role}
}

func (e *env) admin(t *testing.T, name string) Actor {
	t.Helper()
	a := e.user(t, name)
	role := models.RoleAdmin
	require.NoError(t, e.store.Users.Update(context.Background(), a.ID, database.UserUpdate{Role: &role}))
	a.Role = models.RoleAdmin
	return a
}

// befriend makes a and b follow each other.
func (e *env) befriend(t *testing.T, a, b Actor) {
	t.Helper()
	ctx := context.Background()
	_, err := e.svc.Social.Follow(ctx, a.ID, b.ID)
	require.NoError(t, err)
	_, err = e.svc.Social.Follow(ctx, b.ID, a.ID)
	require.NoError(t, err)
}

func (e *env) post(t *testing.T, author Actor, content, visibility string) *models.PostView {
	t.Helper()
	p, err := e.svc.Posts.Create(context.Background(), author, CreatePostInput{Content: content, Visibility: visibility})
	require.NoError(t, err)
	return p
}

func (e *env) notifications(t *testing.T, userID primitive.ObjectID) []models.Notification {
	t.Helper()
	list, err := e.store.Notifications.ForUser(context.Background(), userID, false, 0)
	require.NoError(t, err)
	return list
}
