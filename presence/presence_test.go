package presence

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestMemory(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	now := time.Now()
	m.now = func() time.Time { return now }

	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	require.NoError(t, m.SetOnline(ctx, a))
	require.NoError(t, m.SetOnline(ctx, b))

	online, _ := m.IsOnline(ctx, a)
	assert.True(t, online)
	n, _ := m.OnlineCount(ctx)
	assert.EqualValues(t, 2, n)

	require.NoError(t, m.SetOffline(ctx, a))
	online, _ = m.IsOnline(ctx, a)
	assert.False(t, online)

	now = now.Add(TTL + time.Second)
	online, _ = m.IsOnline(ctx, b)
	assert.False(t, online)
	n, _ = m.OnlineCount(ctx)
	assert.Zero(t, n)
}

func TestRedis(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := Open(ctx, addr, "", 0)
	require.NoError(t, err)
	defer rdb.Close()

	r := NewRedis(rdb)
	id := primitive.NewObjectID()
	require.NoError(t, r.SetOnline(ctx, id))
	online, err := r.IsOnline(ctx, id)
	require.NoError(t, err)
	assert.True(t, online)

	n, err := r.OnlineCount(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, n, int64(1))

	require.NoError(t, r.SetOffline(ctx, id))
	online, _ = r.IsOnline(ctx, id)
	assert.False(t, online)
}
