package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"edunet/logger"
	"edunet/models"
	"edunet/services"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type inbound struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID primitive.ObjectID
	send   chan []byte

	// rooms is owned by the hub goroutine.
	rooms map[string]struct{}

	lastBeat time.Time
}

func (c *Client) readPump() {
	defer func() {
		c.hub.drop(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.heartbeat()
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("websocket read error", zap.String("user", c.userID.Hex()), zap.Error(err))
			}
			return
		}
		var msg inbound
		if err := json.Unmarshal(data, &msg); err != nil {
			c.fail("malformed message")
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// heartbeat refreshes the presence TTL, at most once per presenceRefresh.
func (c *Client) heartbeat() {
	if c.hub.presence == nil || time.Since(c.lastBeat) < presenceRefresh {
		return
	}
	c.lastBeat = time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if err := c.hub.presence.SetOnline(ctx, c.userID); err != nil {
		logger.Log.Warn("presence heartbeat", zap.String("user", c.userID.Hex()), zap.Error(err))
	}
}

func (c *Client) handle(msg inbound) {
	switch msg.Type {
	case "send_message":
		c.relayChat(msg.Payload)
	case "joinConversation":
		c.joinConversation(msg.Payload)
	case "leaveConversation":
		c.leaveConversation(msg.Payload)
	case "sendNotification":
		c.sendNotification(msg.Payload)
	case "typing_start", "typing_end":
		c.relayTyping(msg.Type, msg.Payload)
	case "ping":
		c.reply("pong", fields{"time": time.Now().Unix()})
	default:
		c.fail("unknown event type: " + msg.Type)
	}
}

func (c *Client) reply(eventType string, payload any) {
	data, err := encode(eventType, payload)
	if err != nil {
		logger.Log.Error("encode websocket reply", zap.String("type", eventType), zap.Error(err))
		return
	}
	c.hub.send(delivery{data: data, clients: []*Client{c}})
}

func (c *Client) fail(message string) {
	c.reply("error", fields{"message": message})
}

// failWith reports client-caused service errors verbatim and hides the rest.
func (c *Client) failWith(op string, err error) {
	for _, known := range []error{services.ErrInvalidInput, services.ErrNotFound, services.ErrForbidden, services.ErrConflict, services.ErrUnavailable} {
		if errors.Is(err, known) {
			c.fail(err.Error())
			return
		}
	}
	logger.Log.Error("websocket "+op, zap.String("user", c.userID.Hex()), zap.Error(err))
	c.fail("internal error")
}

func (c *Client) ready() bool {
	if c.hub.svc == nil {
		c.fail("service unavailable")
		return false
	}
	return true
}

// relayChat is the open chat demo: every socket, the sender included, gets the
// message stamped with the sender's id.
func (c *Client) relayChat(raw json.RawMessage) {
	payload := fields{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &payload); err != nil {
			c.fail("payload must be an object")
			return
		}
	}
	payload["senderId"] = c.userID.Hex()
	payload["timestamp"] = time.Now().Unix()
	data, err := encode("receive_message", payload)
	if err != nil {
		c.fail("payload cannot be relayed")
		return
	}
	c.hub.send(delivery{data: data, all: true})
}

type conversationRef struct {
	ConversationID string `json:"conversationId"`
}

func (c *Client) conversationID(raw json.RawMessage) (primitive.ObjectID, bool) {
	var ref conversationRef
	if err := json.Unmarshal(raw, &ref); err != nil {
		c.fail("payload must be an object")
		return primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(ref.ConversationID)
	if err != nil {
		c.fail("invalid conversationId")
		return primitive.NilObjectID, false
	}
	return id, true
}

func (c *Client) joinConversation(raw json.RawMessage) {
	id, ok := c.conversationID(raw)
	if !ok || !c.ready() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if _, err := c.hub.svc.Messaging.Conversation(ctx, c.userID, id); err != nil {
		c.failWith("join conversation", err)
		return
	}
	reply, err := encode("conversationJoined", fields{"conversationId": id.Hex()})
	if err != nil {
		return
	}
	select {
	case c.hub.join <- membership{client: c, room: services.ConversationRoom(id), reply: reply}:
	case <-c.hub.done:
	}
}

func (c *Client) leaveConversation(raw json.RawMessage) {
	id, ok := c.conversationID(raw)
	if !ok {
		return
	}
	select {
	case c.hub.leave <- membership{client: c, room: services.ConversationRoom(id)}:
	case <-c.hub.done:
	}
}

// relayTyping forwards typing indicators to the other members of a room the
// sender has joined.
func (c *Client) relayTyping(eventType string, raw json.RawMessage) {
	id, ok := c.conversationID(raw)
	if !ok {
		return
	}
	data, err := encode(eventType, fields{
		"conversationId": id.Hex(),
		"userId":         c.userID.Hex(),
		"timestamp":      time.Now().Unix(),
	})
	if err != nil {
		return
	}
	c.hub.send(delivery{data: data, room: services.ConversationRoom(id), except: c, memberOnly: true})
}

type notificationRequest struct {
	UserID  string `json:"userId"`
	Message string `json:"message"`
	PostID  string `json:"postId"`
	Type    string `json:"type"`
}

func (c *Client) sendNotification(raw json.RawMessage) {
	var req notificationRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		c.fail("payload must be an object")
		return
	}
	target, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		c.fail("invalid userId")
		return
	}
	in := services.NotifyInput{
		UserID:  target,
		ActorID: c.userID,
		Type:    models.NotificationType(req.Type),
		Message: req.Message,
	}
	if in.Type == "" {
		in.Type = models.NotificationMessage
	}
	if req.PostID != "" {
		postID, err := primitive.ObjectIDFromHex(req.PostID)
		if err != nil {
			c.fail("invalid postId")
			return
		}
		in.PostID = &postID
	}
	if !c.ready() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	if _, err := c.hub.svc.Notifications.Notify(ctx, in); err != nil {
		c.failWith("send notification", err)
	}
}
