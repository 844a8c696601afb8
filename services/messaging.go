package services

import (
	"context"
	"strings"
	"time"

	"edunet/database"
	"edunet/models"
	"edunet/push"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxMessageLen = 5000

// ConversationRoom names the socket room of a conversation.
func ConversationRoom(id primitive.ObjectID) string {
	return "conversation:" + id.Hex()
}

type Messaging struct {
	store  *database.Store
	events Publisher
	push   push.Sender
	now    func() time.Time
}

// FindOrCreateConversation returns the conversation between me and others.
func (s *Messaging) FindOrCreateConversation(ctx context.Context, me primitive.ObjectID, others []primitive.ObjectID) (*models.Conversation, bool, error) {
	participants := models.ParticipantSet(append([]primitive.ObjectID{me}, others...)...)
	if len(participants) < 2 {
		return nil, false, InvalidInput("a conversation needs at least one other participant")
	}
	found, err := s.store.Users.ByIDs(ctx, participants)
	if err != nil {
		return nil, false, err
	}
	if len(found) != len(participants) {
		return nil, false, notFound("participant")
	}
	return s.store.Conversations.FindOrCreate(ctx, participants)
}

// SendMessage stores the message and then pushes it to the conversation room,
// the receiver's sockets and the receiver's browsers. Delivery is best effort.
func (s *Messaging) SendMessage(ctx context.Context, me, receiverID primitive.ObjectID, text string) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, InvalidInput("message text is required")
	}
	if len([]rune(text)) > maxMessageLen {
		return nil, InvalidInput("message is too long")
	}
	if receiverID == me {
		return nil, InvalidInput("you cannot message yourself")
	}
	sender, err := s.store.Users.ByID(ctx, me)
	if err != nil {
		return nil, lookup(err, "user")
	}
	if _, err := s.store.Users.ByID(ctx, receiverID); err != nil {
		return nil, lookup(err, "receiver")
	}

	conv, _, err := s.store.Conversations.FindOrCreate(ctx, models.ParticipantSet(me, receiverID))
	if err != nil {
		return nil, err
	}
	m := &models.Message{
		ID:             primitive.NewObjectID(),
		ConversationID: conv.ID,
		SenderID:       me,
		ReceiverID:     receiverID,
		Text:           text,
		CreatedAt:      s.now(),
	}
	if err := s.store.Messages.Create(ctx, m); err != nil {
		return nil, err
	}
	if err := s.store.Conversations.Touch(ctx, conv.ID, text, m.CreatedAt); err != nil {
		return nil, lookup(err, "conversation")
	}

	s.events.Publish(Event{
		Type:    "newMessage",
		Payload: m,
		Room:    ConversationRoom(conv.ID),
		Users:   []primitive.ObjectID{receiverID},
	})
	s.push.Send(receiverID, push.Message{
		Title: sender.Summary().Name + " sent a message",
		Body:  text,
		URL:   "/messages/" + conv.ID.Hex(),
	})
	return m, nil
}

// Conversations lists my conversations, most recently active first.
func (s *Messaging) Conversations(ctx context.Context, me primitive.ObjectID) ([]models.ConversationView, error) {
	convs, err := s.store.Conversations.ForUser(ctx, me)
	if err != nil {
		return nil, err
	}
	partners := make([]primitive.ObjectID, 0, len(convs))
	for i := range convs {
		partners = append(partners, partnerOf(&convs[i], me))
	}
	people, err := summaries(ctx, s.store.Users, partners)
	if err != nil {
		return nil, err
	}
	out := make([]models.ConversationView, 0, len(convs))
	for i := range convs {
		out = append(out, models.ConversationView{Conversation: &convs[i], Partner: people[partners[i]]})
	}
	return out, nil
}

func partnerOf(c *models.Conversation, me primitive.ObjectID) primitive.ObjectID {
	for _, id := range c.Participants {
		if id != me {
			return id
		}
	}
	return me
}

// Conversation loads a conversation the caller takes part in.
func (s *Messaging) Conversation(ctx context.Context, me, id primitive.ObjectID) (*models.Conversation, error) {
	conv, err := s.store.Conversations.ByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "conversation")
	}
	if !conv.HasParticipant(me) {
		return nil, forbidden("you are not part of this conversation")
	}
	return conv, nil
}

// Messages lists a conversation oldest first and marks what I received as read.
func (s *Messaging) Messages(ctx context.Context, me, id primitive.ObjectID, page, limit int) ([]models.Message, error) {
	conv, err := s.Conversation(ctx, me, id)
	if err != nil {
		return nil, err
	}
	if _, err := s.store.Messages.MarkRead(ctx, conv.ID, me); err != nil {
		return nil, err
	}
	w := database.Page{}
	if limit > 0 {
		w = Paging(page, limit)
	}
	return s.store.Messages.ByConversation(ctx, conv.ID, w)
}
