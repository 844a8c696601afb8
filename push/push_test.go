package push

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"edunet/database"
	"edunet/database/memory"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func browserSubscription(t *testing.T, endpoint string) webpush.Subscription {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return webpush.Subscription{
		Endpoint: endpoint,
		Keys: webpush.Keys{
			P256dh: base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
			Auth:   base64.RawURLEncoding.EncodeToString(secret),
		},
	}
}

func newSender(t *testing.T, status int) (*WebPush, *database.Store, *int32, string) {
	t.Helper()
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)

	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	store := memory.New()
	s := New(store.Subscriptions, pub, priv, "test@example.com").(*WebPush)
	return s, store, &hits, srv.URL
}

func TestNew_WithoutKeysIsNop(t *testing.T) {
	s := New(memory.New().Subscriptions, "", "", "")
	assert.IsType(t, Nop{}, s)
	assert.Empty(t, s.PublicKey())
}

func TestDeliver_NoSubscription(t *testing.T) {
	s, _, hits, _ := newSender(t, http.StatusCreated)
	require.NoError(t, s.Deliver(context.Background(), primitive.NewObjectID(), Message{Title: "hi"}))
	assert.Zero(t, atomic.LoadInt32(hits))
}

func TestDeliver_Success(t *testing.T) {
	s, store, hits, url := newSender(t, http.StatusCreated)
	ctx := context.Background()
	user := primitive.NewObjectID()
	require.NoError(t, store.Subscriptions.Upsert(ctx, user, browserSubscription(t, url)))

	require.NoError(t, s.Deliver(ctx, user, Message{Title: "New message", Body: "hello"}))
	assert.EqualValues(t, 1, atomic.LoadInt32(hits))

	_, err := store.Subscriptions.ForUser(ctx, user)
	assert.NoError(t, err)
}

func TestDeliver_GoneDeletesSubscription(t *testing.T) {
	s, store, _, url := newSender(t, http.StatusGone)
	ctx := context.Background()
	user := primitive.NewObjectID()
	require.NoError(t, store.Subscriptions.Upsert(ctx, user, browserSubscription(t, url)))

	require.NoError(t, s.Deliver(ctx, user, Message{Title: "x"}))

	_, err := store.Subscriptions.ForUser(ctx, user)
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestTruncate(t *testing.T) {
	long := strings.Repeat("é", maxBody+5)
	got := truncate(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, maxBody+3, len([]rune(got)))
	assert.Equal(t, "short", truncate("short"))
}
