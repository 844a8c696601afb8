// Package presence tracks which users currently hold an open socket.
package presence

import (
	"context"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TTL bounds how long a user stays online without a heartbeat.
const TTL = 5 * time.Minute

type Tracker interface {
	// SetOnline marks the user online. Calling it again refreshes the TTL.
	SetOnline(ctx context.Context, userID primitive.ObjectID) error
	SetOffline(ctx context.Context, userID primitive.ObjectID) error
	IsOnline(ctx context.Context, userID primitive.ObjectID) (bool, error)
	OnlineCount(ctx context.Context) (int64, error)
}

// Memory is a process-local Tracker.
type Memory struct {
	mu     sync.Mutex
	online map[primitive.ObjectID]time.Time // expiry
	ttl    time.Duration
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{online: make(map[primitive.ObjectID]time.Time), ttl: TTL, now: time.Now}
}

func (m *Memory) SetOnline(_ context.Context, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.online[userID] = m.now().Add(m.ttl)
	return nil
}

func (m *Memory) SetOffline(_ context.Context, userID primitive.ObjectID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.online, userID)
	return nil
}

func (m *Memory) IsOnline(_ context.Context, userID primitive.ObjectID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	exp, ok := m.online[userID]
	return ok && m.now().Before(exp), nil
}

func (m *Memory) OnlineCount(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	var n int64
	for id, exp := range m.online {
		if now.Before(exp) {
			n++
		} else {
			delete(m.online, id)
		}
	}
	return n, nil
}
