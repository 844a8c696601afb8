package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	PostID    primitive.ObjectID `bson:"postId" json:"postId"`
	UserID    primitive.ObjectID `bson:"userId" json:"userId"`
	Content   string             `bson:"content" json:"content"`
	Media     []string           `bson:"media,omitempty" json:"media,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type CommentView struct {
	*Comment
	User Summary `json:"user"`
}
