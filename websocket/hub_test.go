package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"edunet/auth"
	"edunet/database"
	"edunet/database/memory"
	"edunet/models"
	"edunet/presence"
	"edunet/services"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type testEnv struct {
	hub     *Hub
	svc     *services.Services
	store   *database.Store
	tracker presence.Tracker
	tokens  *auth.TokenManager
	url     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, presence.NewMemory())
}

func newTestEnvWith(t *testing.T, tracker presence.Tracker) *testEnv {
	t.Helper()
	e := &testEnv{
		store:   memory.New(),
		tracker: tracker,
		tokens:  auth.NewTokenManager("hub-test-secret", time.Hour),
	}
	e.hub = NewHub(e.tokens, e.tracker)
	e.svc = services.New(services.Deps{Store: e.store, Tokens: e.tokens, Presence: e.tracker, Events: e.hub})
	e.hub.Bind(e.svc)
	go e.hub.Start()

	srv := httptest.NewServer(e.hub)
	t.Cleanup(func() {
		e.hub.Close()
		srv.Close()
	})
	e.url = "ws" + strings.TrimPrefix(srv.URL, "http")
	return e
}

func (e *testEnv) user(t *testing.T, name string) primitive.ObjectID {
	t.Helper()
	u := &models.User{ID: primitive.NewObjectID(), Username: name, Email: name + "@example.com", Role: models.RoleUser}
	require.NoError(t, e.store.Users.Create(context.Background(), u))
	return u.ID
}

func (e *testEnv) dial(t *testing.T, id primitive.ObjectID) *websocket.Conn {
	t.Helper()
	token, _, err := e.tokens.Issue(id.Hex(), models.RoleUser)
	require.NoError(t, err)
	conn, _, err := websocket.DefaultDialer.Dial(e.url+"?token="+token, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	f := expect(t, conn, "connected")
	assert.Equal(t, id.Hex(), f.Payload["userId"])
	return conn
}

type frame struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

// expect reads frames until one of type want arrives. Presence frames from
// other connections may be interleaved and are skipped; anything else fails.
func expect(t *testing.T, conn *websocket.Conn, want string) frame {
	t.Helper()
	for {
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		var f frame
		require.NoError(t, conn.ReadJSON(&f))
		if f.Type == want {
			return f
		}
		require.Equal(t, "presence", f.Type, "unexpected %s frame", f.Type)
	}
}

func send(t *testing.T, conn *websocket.Conn, eventType string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": eventType, "payload": payload}))
}

func TestRejectsMissingOrBadToken(t *testing.T) {
	e := newTestEnv(t)

	for _, url := range []string{e.url, e.url + "?token=garbage"} {
		_, resp, err := websocket.DefaultDialer.Dial(url, nil)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}
}

func TestPresenceFollowsSockets(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ada := e.user(t, "ada")

	first := e.dial(t, ada)
	f := expect(t, first, "presence")
	assert.Equal(t, true, f.Payload["online"])
	require.Eventually(t, func() bool {
		online, _ := e.tracker.IsOnline(ctx, ada)
		return online
	}, 2*time.Second, 10*time.Millisecond)

	second := e.dial(t, ada)
	require.Eventually(t, func() bool { return e.hub.Connected() == 2 }, 2*time.Second, 10*time.Millisecond)

	// closing one of two sockets keeps the user online
	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return e.hub.Connected() == 1 }, 2*time.Second, 10*time.Millisecond)
	online, err := e.tracker.IsOnline(ctx, ada)
	require.NoError(t, err)
	assert.True(t, online)

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool {
		online, _ := e.tracker.IsOnline(ctx, ada)
		return !online
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		u, err := e.store.Users.ByID(ctx, ada)
		return err == nil && !u.IsOnline
	}, 2*time.Second, 10*time.Millisecond)
}

// slowTracker delays SetOffline so an offline write is still running when
// the user reconnects.
type slowTracker struct {
	*presence.Memory
	delay time.Duration
}

func (s *slowTracker) SetOffline(ctx context.Context, userID primitive.ObjectID) error {
	time.Sleep(s.delay)
	return s.Memory.SetOffline(ctx, userID)
}

func TestReconnectStaysOnline(t *testing.T) {
	e := newTestEnvWith(t, &slowTracker{Memory: presence.NewMemory(), delay: 300 * time.Millisecond})
	ctx := context.Background()
	ada := e.user(t, "ada")

	online := func() bool {
		tracked, _ := e.tracker.IsOnline(ctx, ada)
		u, err := e.store.Users.ByID(ctx, ada)
		return tracked && err == nil && u.IsOnline
	}

	first := e.dial(t, ada)
	require.Eventually(t, online, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, first.Close())
	require.Eventually(t, func() bool { return e.hub.Connected() == 0 }, 2*time.Second, 5*time.Millisecond)
	e.dial(t, ada)

	require.Eventually(t, online, 2*time.Second, 10*time.Millisecond)
	assert.Never(t, func() bool { return !online() }, 600*time.Millisecond, 20*time.Millisecond)
	assert.Equal(t, 1, e.hub.Connected())
}

func TestStatusQueueKeepsLatestState(t *testing.T) {
	q := newStatusQueue()
	ada, bob := primitive.NewObjectID(), primitive.NewObjectID()

	q.put(ada, false)
	q.put(bob, true)
	q.put(ada, true)

	id, online, ok := q.next()
	require.True(t, ok)
	assert.Equal(t, ada, id)
	assert.True(t, online)

	id, online, ok = q.next()
	require.True(t, ok)
	assert.Equal(t, bob, id)
	assert.True(t, online)

	_, _, ok = q.next()
	assert.False(t, ok)
}

func TestPingPong(t *testing.T) {
	e := newTestEnv(t)
	conn := e.dial(t, e.user(t, "ada"))

	send(t, conn, "ping", nil)
	f := expect(t, conn, "pong")
	assert.NotNil(t, f.Payload["time"])

	send(t, conn, "dance", nil)
	f = expect(t, conn, "error")
	assert.Contains(t, f.Payload["message"], "unknown event type")
}

func TestConversationRoom(t *testing.T) {
	e := newTestEnv(t)
	ctx := context.Background()
	ada := e.user(t, "ada")
	bob := e.user(t, "bob")
	eve := e.user(t, "eve")
	conv, _, err := e.svc.Messaging.FindOrCreateConversation(ctx, ada, []primitive.ObjectID{bob})
	require.NoError(t, err)

	adaConn := e.dial(t, ada)
	bobConn := e.dial(t, bob)
	eveConn := e.dial(t, eve)

	send(t, eveConn, "joinConversation", map[string]string{"conversationId": conv.ID.Hex()})
	f := expect(t, eveConn, "error")
	assert.Equal(t, "you are not part of this conversation", f.Payload["message"])

	for _, c := range []*websocket.Conn{adaConn, bobConn} {
		send(t, c, "joinConversation", map[string]string{"conversationId": conv.ID.Hex()})
		f = expect(t, c, "conversationJoined")
		assert.Equal(t, conv.ID.Hex(), f.Payload["conversationId"])
	}

	// bob is in the room and is the receiver, but gets the message once
	_, err = e.svc.Messaging.SendMessage(ctx, ada, bob, "hello bob")
	require.NoError(t, err)
	f = expect(t, bobConn, "newMessage")
	assert.Equal(t, "hello bob", f.Payload["text"])
	send(t, bobConn, "ping", nil)
	expect(t, bobConn, "pong")

	f = expect(t, adaConn, "newMessage")
	assert.Equal(t, ada.Hex(), f.Payload["senderId"])

	send(t, adaConn, "typing_start", map[string]string{"conversationId": conv.ID.Hex()})
	f = expect(t, bobConn, "typing_start")
	assert.Equal(t, ada.Hex(), f.Payload["userId"])
	// the typist does not hear itself, and outsiders cannot type into the room
	send(t, eveConn, "typing_end", map[string]string{"conversationId": conv.ID.Hex()})
	send(t, eveConn, "ping", nil)
	expect(t, eveConn, "pong")
	send(t, adaConn, "ping", nil)
	expect(t, adaConn, "pong")
	send(t, bobConn, "ping", nil)
	expect(t, bobConn, "pong")

	send(t, bobConn, "leaveConversation", map[string]string{"conversationId": conv.ID.Hex()})
	send(t, bobConn, "ping", nil)
	expect(t, bobConn, "pong")
	send(t, adaConn, "typing_end", map[string]string{"conversationId": conv.ID.Hex()})
	send(t, adaConn, "ping", nil)
	expect(t, adaConn, "pong")
	send(t, bobConn, "ping", nil)
	expect(t, bobConn, "pong")
}

func TestBroadcastChat(t *testing.T) {
	e := newTestEnv(t)
	ada := e.user(t, "ada")
	adaConn := e.dial(t, ada)
	bobConn := e.dial(t, e.user(t, "bob"))

	send(t, adaConn, "send_message", map[string]any{"text": "hi all", "senderId": "spoofed"})
	for _, c := range []*websocket.Conn{adaConn, bobConn} {
		f := expect(t, c, "receive_message")
		assert.Equal(t, "hi all", f.Payload["text"])
		assert.Equal(t, ada.Hex(), f.Payload["senderId"])
	}
}

func TestSendNotification(t *testing.T) {
	e := newTestEnv(t)
	ada := e.user(t, "ada")
	bob := e.user(t, "bob")
	adaConn := e.dial(t, ada)
	bobConn := e.dial(t, bob)

	send(t, adaConn, "sendNotification", map[string]string{"userId": bob.Hex(), "message": "look at this", "type": "share"})
	f := expect(t, bobConn, "newNotification")
	assert.Equal(t, "look at this", f.Payload["message"])
	assert.Equal(t, "share", f.Payload["type"])

	send(t, adaConn, "sendNotification", map[string]string{"userId": "nope"})
	f = expect(t, adaConn, "error")
	assert.Equal(t, "invalid userId", f.Payload["message"])

	send(t, adaConn, "sendNotification", map[string]string{"userId": primitive.NewObjectID().Hex(), "message": "hello?"})
	f = expect(t, adaConn, "error")
	assert.Equal(t, "user not found", f.Payload["message"])

	list, err := e.store.Notifications.ForUser(context.Background(), bob, false, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func newPipe(h *Hub, buffer int) *Client {
	return &Client{
		hub:    h,
		userID: primitive.NewObjectID(),
		send:   make(chan []byte, buffer),
		rooms:  make(map[string]struct{}),
	}
}

func TestDispatchUnionsTargets(t *testing.T) {
	h := NewHub(nil, nil)
	c := newPipe(h, 8)
	h.add(c)
	require.Len(t, c.send, 2) // connected, presence

	h.rooms["conversation:x"] = map[*Client]struct{}{c: {}}
	h.dispatch(delivery{data: []byte(`{}`), room: "conversation:x", users: []primitive.ObjectID{c.userID}})
	assert.Len(t, c.send, 3)

	h.dispatch(delivery{data: []byte(`{}`), room: "conversation:x", except: c})
	assert.Len(t, c.send, 3)
}

func TestSlowClientIsDropped(t *testing.T) {
	h := NewHub(nil, nil)
	c := newPipe(h, 1)
	h.add(c) // connected fills the buffer, the presence frame overflows it

	assert.Empty(t, h.clients)
	assert.Empty(t, h.users)
	_, open := <-c.send
	assert.True(t, open)
	_, open = <-c.send
	assert.False(t, open)
}
