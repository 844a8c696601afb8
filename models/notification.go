package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationShare   NotificationType = "share"
	NotificationFollow  NotificationType = "follow"
	NotificationMessage NotificationType = "message"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationLike, NotificationComment, NotificationShare, NotificationFollow, NotificationMessage:
		return true
	}
	return false
}

type Notification struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID  `bson:"userId" json:"userId"`
	ActorID   primitive.ObjectID  `bson:"actorId" json:"actorId"`
	Message   string              `bson:"message" json:"message"`
	PostID    *primitive.ObjectID `bson:"postId,omitempty" json:"postId,omitempty"`
	Type      NotificationType    `bson:"type" json:"type"`
	IsRead    bool                `bson:"isRead" json:"isRead"`
	CreatedAt time.Time           `bson:"createdAt" json:"createdAt"`
}
