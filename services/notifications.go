package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"edunet/database"
	"edunet/logger"
	"edunet/metrics"
	"edunet/models"
	"edunet/push"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const notificationListLimit = 50

type Notifications struct {
	store  *database.Store
	events Publisher
	push   push.Sender
	now    func() time.Time
}

type NotifyInput struct {
	UserID  primitive.ObjectID
	ActorID primitive.ObjectID
	Type    models.NotificationType
	PostID  *primitive.ObjectID
	Message string
}

// Notify persists a notification and then pushes it over the socket and web
// push. Self-notifications are skipped and return nil. Only the write can fail
// the call.
func (s *Notifications) Notify(ctx context.Context, in NotifyInput) (*models.Notification, error) {
	if in.UserID == in.ActorID {
		return nil, nil
	}
	if !in.Type.Valid() {
		return nil, InvalidInput("unknown notification type")
	}
	if _, err := s.store.Users.ByID(ctx, in.UserID); err != nil {
		return nil, lookup(err, "user")
	}

	msg := strings.TrimSpace(in.Message)
	if msg == "" {
		msg = s.defaultMessage(ctx, in.ActorID, in.Type)
	}

	n := &models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    in.UserID,
		ActorID:   in.ActorID,
		Message:   msg,
		PostID:    in.PostID,
		Type:      in.Type,
		CreatedAt: s.now(),
	}
	if err := s.store.Notifications.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	metrics.Notifications.WithLabelValues(string(n.Type)).Inc()

	s.events.Publish(Event{Type: "newNotification", Payload: n, Users: []primitive.ObjectID{n.UserID}})
	s.push.Send(n.UserID, push.Message{Title: "EduNet", Body: n.Message, URL: notificationURL(n)})
	return n, nil
}

// notifyQuietly is for side effects of other operations, where a failed
// notification must not fail the operation itself.
func (s *Notifications) notifyQuietly(ctx context.Context, in NotifyInput) {
	if _, err := s.Notify(ctx, in); err != nil {
		logger.Log.Warn("notification dropped",
			zap.String("type", string(in.Type)),
			zap.String("user", in.UserID.Hex()),
			zap.Error(err))
	}
}

func (s *Notifications) defaultMessage(ctx context.Context, actorID primitive.ObjectID, t models.NotificationType) string {
	name := "Someone"
	if actor, err := s.store.Users.ByID(ctx, actorID); err == nil {
		name = actor.Summary().Name
	}
	switch t {
	case models.NotificationLike:
		return name + " liked your post"
	case models.NotificationComment:
		return name + " commented on your post"
	case models.NotificationShare:
		return name + " shared your post"
	case models.NotificationFollow:
		return name + " started following you"
	case models.NotificationMessage:
		return name + " sent you a message"
	}
	return name + " interacted with you"
}

func notificationURL(n *models.Notification) string {
	if n.PostID != nil {
		return "/posts/" + n.PostID.Hex()
	}
	if n.Type == models.NotificationFollow {
		return "/users/" + n.ActorID.Hex()
	}
	return "/notifications"
}

func (s *Notifications) List(ctx context.Context, me primitive.ObjectID, unreadOnly bool) ([]models.Notification, error) {
	return s.store.Notifications.ForUser(ctx, me, unreadOnly, notificationListLimit)
}

func (s *Notifications) UnreadCount(ctx context.Context, me primitive.ObjectID) (int64, error) {
	return s.store.Notifications.CountUnread(ctx, me)
}

func (s *Notifications) MarkRead(ctx context.Context, me, id primitive.ObjectID) error {
	ok, err := s.store.Notifications.MarkRead(ctx, id, me)
	if err != nil {
		return err
	}
	if !ok {
		return notFound("notification")
	}
	return nil
}

func (s *Notifications) MarkAllRead(ctx context.Context, me primitive.ObjectID) (int64, error) {
	return s.store.Notifications.MarkAllRead(ctx, me)
}

// Subscribe stores the caller's browser push subscription, replacing any
// earlier one.
func (s *Notifications) Subscribe(ctx context.Context, me primitive.ObjectID, sub webpush.Subscription) error {
	if sub.Endpoint == "" || sub.Keys.P256dh == "" || sub.Keys.Auth == "" {
		return InvalidInput("subscription endpoint and keys are required")
	}
	return s.store.Subscriptions.Upsert(ctx, me, sub)
}

// PushPublicKey is the VAPID key browsers subscribe with. Empty when web push
// is off.
func (s *Notifications) PushPublicKey() string { return s.push.PublicKey() }
