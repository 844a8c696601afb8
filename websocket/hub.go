// Package websocket is the real-time channel. A single hub goroutine owns every
// client, room and per-user socket set; everything else talks to it over
// channels.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"edunet/auth"
	"edunet/logger"
	"edunet/metrics"
	"edunet/presence"
	"edunet/services"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 30 * time.Second
	maxMessageSize  = 4 << 10
	sendBuffer      = 256
	opTimeout       = 10 * time.Second
	presenceRefresh = time.Minute
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type fields = map[string]any

func encode(eventType string, payload any) ([]byte, error) {
	return json.Marshal(outbound{Type: eventType, Payload: payload})
}

// delivery is one encoded frame and the sockets it goes to. The targets are
// unioned, so a socket that is both in room and owned by one of users gets the
// frame once.
type delivery struct {
	data    []byte
	all     bool
	room    string
	users   []primitive.ObjectID
	clients []*Client
	except  *Client

	// memberOnly drops the frame unless except is in room.
	memberOnly bool
}

type membership struct {
	client *Client
	room   string
	reply  []byte
}

type Hub struct {
	tokens   *auth.TokenManager
	presence presence.Tracker
	svc      *services.Services

	clients map[*Client]struct{}
	users   map[primitive.ObjectID]map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	deliver    chan delivery
	done       chan struct{}
	closeOnce  sync.Once

	status *statusQueue

	connected atomic.Int64
}

func NewHub(tokens *auth.TokenManager, tracker presence.Tracker) *Hub {
	return &Hub{
		tokens:     tokens,
		presence:   tracker,
		clients:    make(map[*Client]struct{}),
		users:      make(map[primitive.ObjectID]map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		deliver:    make(chan delivery, sendBuffer),
		done:       make(chan struct{}),
		status:     newStatusQueue(),
	}
}

// Bind gives the hub the services its client events call into. The services
// themselves publish through the hub, so this happens after both exist.
func (h *Hub) Bind(svc *services.Services) { h.svc = svc }

// Start runs the hub loop until Close.
func (h *Hub) Start() {
	go h.statusLoop()
	for {
		select {
		case c := <-h.register:
			h.add(c)
		case c := <-h.unregister:
			h.remove(c)
		case m := <-h.join:
			if _, ok := h.clients[m.client]; !ok {
				continue
			}
			members := h.rooms[m.room]
			if members == nil {
				members = make(map[*Client]struct{})
				h.rooms[m.room] = members
			}
			members[m.client] = struct{}{}
			m.client.rooms[m.room] = struct{}{}
			if m.reply != nil {
				h.enqueue(m.client, m.reply)
			}
		case m := <-h.leave:
			h.leaveRoom(m.client, m.room)
		case d := <-h.deliver:
			h.dispatch(d)
		case <-h.done:
			for c := range h.clients {
				close(c.send)
				metrics.WSClients.Dec()
			}
			h.clients = map[*Client]struct{}{}
			h.users = map[primitive.ObjectID]map[*Client]struct{}{}
			h.rooms = map[string]map[*Client]struct{}{}
			h.connected.Store(0)
			return
		}
	}
}

// Close stops the hub and closes every socket.
func (h *Hub) Close() {
	h.closeOnce.Do(func() { close(h.done) })
}

// Connected returns the number of open sockets.
func (h *Hub) Connected() int { return int(h.connected.Load()) }

// Publish implements services.Publisher.
func (h *Hub) Publish(ev services.Event) {
	data, err := encode(ev.Type, ev.Payload)
	if err != nil {
		logger.Log.Error("encode websocket event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	h.send(delivery{data: data, all: ev.Broadcast, room: ev.Room, users: ev.Users})
}

func (h *Hub) send(d delivery) {
	select {
	case h.deliver <- d:
	case <-h.done:
	}
}

func (h *Hub) drop(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) add(c *Client) {
	h.clients[c] = struct{}{}
	sockets := h.users[c.userID]
	if sockets == nil {
		sockets = make(map[*Client]struct{})
		h.users[c.userID] = sockets
	}
	sockets[c] = struct{}{}
	h.connected.Store(int64(len(h.clients)))
	metrics.WSClients.Inc()
	logger.Log.Debug("websocket client registered",
		zap.String("user", c.userID.Hex()),
		zap.Int("clients", len(h.clients)))

	if data, err := encode("connected", fields{
		"userId":  c.userID.Hex(),
		"message": "WebSocket connected successfully",
		"time":    time.Now().Unix(),
	}); err == nil {
		h.enqueue(c, data)
	}
	if len(sockets) == 1 {
		h.setStatus(c.userID, true)
	}
}

func (h *Hub) remove(c *Client) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	for room := range c.rooms {
		h.leaveRoom(c, room)
	}
	h.connected.Store(int64(len(h.clients)))
	metrics.WSClients.Dec()
	logger.Log.Debug("websocket client unregistered",
		zap.String("user", c.userID.Hex()),
		zap.Int("clients", len(h.clients)))

	sockets := h.users[c.userID]
	delete(sockets, c)
	if len(sockets) == 0 {
		delete(h.users, c.userID)
		h.setStatus(c.userID, false)
	}
}

func (h *Hub) leaveRoom(c *Client, room string) {
	delete(c.rooms, room)
	members := h.rooms[room]
	delete(members, c)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// enqueue never blocks the hub. A client whose buffer is full is dropped.
func (h *Hub) enqueue(c *Client, data []byte) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		logger.Log.Warn("websocket send buffer full, dropping client", zap.String("user", c.userID.Hex()))
		h.remove(c)
	}
}

func (h *Hub) dispatch(d delivery) {
	targets := make(map[*Client]struct{})
	if d.all {
		for c := range h.clients {
			targets[c] = struct{}{}
		}
	}
	for c := range h.rooms[d.room] {
		targets[c] = struct{}{}
	}
	for _, id := range d.users {
		for c := range h.users[id] {
			targets[c] = struct{}{}
		}
	}
	for _, c := range d.clients {
		targets[c] = struct{}{}
	}
	if d.memberOnly {
		if _, ok := h.rooms[d.room][d.except]; !ok {
			return
		}
	}
	delete(targets, d.except)
	for c := range targets {
		h.enqueue(c, d.data)
	}
}

// setStatus runs on the hub goroutine: the presence frame goes out directly and
// the store write is queued for the status worker.
func (h *Hub) setStatus(userID primitive.ObjectID, online bool) {
	if data, err := encode("presence", fields{"userId": userID.Hex(), "online": online}); err == nil {
		h.dispatch(delivery{data: data, all: true})
	}
	h.status.put(userID, online)
}

// statusQueue keeps the newest online state per user until the status worker
// writes it. A single worker drains it in order.
type statusQueue struct {
	mu      sync.Mutex
	pending map[primitive.ObjectID]bool
	order   []primitive.ObjectID
	wake    chan struct{}
}

func newStatusQueue() *statusQueue {
	return &statusQueue{pending: make(map[primitive.ObjectID]bool), wake: make(chan struct{}, 1)}
}

func (q *statusQueue) put(userID primitive.ObjectID, online bool) {
	q.mu.Lock()
	if _, ok := q.pending[userID]; !ok {
		q.order = append(q.order, userID)
	}
	q.pending[userID] = online
	q.mu.Unlock()

	select {
	case q.wake <- struct{}{}:
	default:
	}
}

// next pops the oldest queued user and its latest state.
func (q *statusQueue) next() (primitive.ObjectID, bool, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.order) == 0 {
		return primitive.NilObjectID, false, false
	}
	userID := q.order[0]
	q.order = q.order[1:]
	online := q.pending[userID]
	delete(q.pending, userID)
	return userID, online, true
}

// statusLoop persists online transitions until the hub closes.
func (h *Hub) statusLoop() {
	for {
		select {
		case <-h.status.wake:
		case <-h.done:
			return
		}
		for {
			userID, online, ok := h.status.next()
			if !ok {
				break
			}
			h.writeStatus(userID, online)
		}
	}
}

func (h *Hub) writeStatus(userID primitive.ObjectID, online bool) {
	if h.svc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := h.svc.Accounts.SetStatus(ctx, userID, online); err != nil {
		logger.Log.Warn("update online status",
			zap.String("user", userID.Hex()),
			zap.Bool("online", online),
			zap.Error(err))
	}
}

// ServeHTTP authenticates the token query parameter (or a Bearer header) and
// upgrades the connection.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("token")
	if raw == "" {
		raw = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	if raw == "" {
		http.Error(w, "Token required", http.StatusUnauthorized)
		return
	}
	claims, err := h.tokens.Parse(raw)
	if err != nil {
		logger.Log.Debug("websocket token rejected", zap.Error(err))
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		http.Error(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := &Client{
		hub:    h,
		conn:   conn,
		userID: userID,
		send:   make(chan []byte, sendBuffer),
		rooms:  make(map[string]struct{}),
	}
	select {
	case h.register <- c:
	case <-h.done:
		conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}
