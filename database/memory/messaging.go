package memory

import (
	"context"
	"slices"
	"time"

	"edunet/database"
	"edunet/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type conversationRepo struct{ *state }

func cloneConversation(c *models.Conversation) *models.Conversation {
	out := *c
	out.Participants = cloneIDs(c.Participants)
	return &out
}

func (r *conversationRepo) FindOrCreate(ctx context.Context, participants []primitive.ObjectID) (*models.Conversation, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.conversations {
		if slices.Equal(c.Participants, participants) {
			return cloneConversation(c), false, nil
		}
	}
	now := time.Now().UTC()
	c := &models.Conversation{
		ID:            primitive.NewObjectID(),
		Participants:  cloneIDs(participants),
		LastMessageAt: now,
		CreatedAt:     now,
	}
	r.conversations[c.ID] = c
	return cloneConversation(c), true, nil
}

func (r *conversationRepo) ByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conversations[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneConversation(c), nil
}

func (r *conversationRepo) ForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	r.mu.RLock()
	out := []models.Conversation{}
	for _, c := range r.conversations {
		if c.HasParticipant(userID) {
			out = append(out, *cloneConversation(c))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Conversation) int {
		if c := b.LastMessageAt.Compare(a.LastMessageAt); c != 0 {
			return c
		}
		return compareIDs(b.ID, a.ID)
	})
	return out, nil
}

func (r *conversationRepo) Touch(ctx context.Context, id primitive.ObjectID, lastMessage string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[id]
	if !ok {
		return database.ErrNotFound
	}
	c.LastMessage = lastMessage
	c.LastMessageAt = at
	return nil
}

type messageRepo struct{ *state }

func (r *messageRepo) Create(ctx context.Context, m *models.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	c := *m
	r.messages[m.ID] = &c
	return nil
}

func (r *messageRepo) ByConversation(ctx context.Context, conversationID primitive.ObjectID, page database.Page) ([]models.Message, error) {
	r.mu.RLock()
	out := []models.Message{}
	for _, m := range r.messages {
		if m.ConversationID == conversationID {
			out = append(out, *m)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Message) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return window(out, page), nil
}

func (r *messageRepo) MarkRead(ctx context.Context, conversationID, readerID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for _, m := range r.messages {
		if m.ConversationID == conversationID && m.ReceiverID == readerID && !m.IsRead {
			m.IsRead = true
			n++
		}
	}
	return n, nil
}

type notificationRepo struct{ *state }

func cloneNotification(n *models.Notification) *models.Notification {
	out := *n
	out.PostID = cloneID(n.PostID)
	return &out
}

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	r.notifications[n.ID] = cloneNotification(n)
	return nil
}

func (r *notificationRepo) ForUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	r.mu.RLock()
	out := []models.Notification{}
	for _, n := range r.notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, *cloneNotification(n))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Notification) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(b.ID, a.ID)
	})
	return window(out, database.Page{Limit: limit}), nil
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, v := range r.notifications {
		if v.UserID == userID && !v.IsRead {
			n++
		}
	}
	return n, nil
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return false, nil
	}
	n.IsRead = true
	return true, nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	for _, n := range r.notifications {
		if n.UserID == userID && !n.IsRead {
			n.IsRead = true
			count++
		}
	}
	return count, nil
}

func (r *notificationRepo) DeleteForUser(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, n := range r.notifications {
		if n.UserID == userID || n.ActorID == userID {
			delete(r.notifications, id)
		}
	}
	return nil
}
