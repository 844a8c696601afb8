package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	VisibilityPublic  = "public"
	VisibilityFriends = "friends"
	VisibilityPrivate = "private"
)

type Post struct {
	ID         primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID   `bson:"userId" json:"userId"`
	Content    string               `bson:"content" json:"content"`
	Media      []string             `bson:"media" json:"media"`
	TagID      *primitive.ObjectID  `bson:"tagId,omitempty" json:"tagId,omitempty"`
	Visibility string               `bson:"visibility" json:"visibility"`
	Likes      []primitive.ObjectID `bson:"likes" json:"likes"`
	Comments   []primitive.ObjectID `bson:"comments" json:"comments"`
	GroupID    *primitive.ObjectID  `bson:"groupId,omitempty" json:"groupId,omitempty"`
	Shares     int                  `bson:"shares" json:"shares"`
	CreatedAt  time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt  time.Time            `bson:"updatedAt" json:"updatedAt"`
}

func (p *Post) LikedBy(userID primitive.ObjectID) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}

// PostView is a post as returned to clients, with its author and tag resolved.
type PostView struct {
	*Post
	User         Summary `json:"user"`
	Tag          string  `json:"tag,omitempty"`
	LikesCount   int     `json:"likesCount"`
	CommentCount int     `json:"commentsCount"`
	Liked        bool    `json:"liked"`
}

func ValidVisibility(v string) bool {
	return v == VisibilityPublic || v == VisibilityFriends || v == VisibilityPrivate
}
