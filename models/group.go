package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Group struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Name        string               `bson:"name" json:"name"`
	Description string               `bson:"description" json:"description"`
	Avatar      string               `bson:"avatar" json:"avatar"`
	Members     []primitive.ObjectID `bson:"members" json:"members"`
	AdminID     primitive.ObjectID   `bson:"adminId" json:"adminId"`
	Posts       []primitive.ObjectID `bson:"posts" json:"posts"`
	CreatedAt   time.Time            `bson:"createdAt" json:"createdAt"`
}

func (g *Group) HasMember(userID primitive.ObjectID) bool {
	for _, id := range g.Members {
		if id == userID {
			return true
		}
	}
	return false
}
