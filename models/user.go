package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"

	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

type User struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username     string             `bson:"username" json:"username"`
	Email        string             `bson:"email" json:"email"`
	PasswordHash *string            `bson:"passwordHash,omitempty" json:"-"`
	AuthProvider string             `bson:"authProvider" json:"authProvider"`
	GoogleID     *string            `bson:"googleId,omitempty" json:"-"`
	Role         string             `bson:"role" json:"role"`

	// Profile fields
	Name   string `bson:"name" json:"name"`
	Avatar string `bson:"avatar" json:"avatar"`
	Bio    string `bson:"bio" json:"bio"`
	School string `bson:"school" json:"school"`

	Followers  []primitive.ObjectID `bson:"followers" json:"followers"`
	Followings []primitive.ObjectID `bson:"followings" json:"followings"`
	Friends    []primitive.ObjectID `bson:"friends" json:"friends"`
	Posts      []primitive.ObjectID `bson:"posts" json:"posts"`

	IsOnline   bool      `bson:"isOnline" json:"isOnline"`
	LastActive time.Time `bson:"lastActive" json:"lastActive"`
	CreatedAt  time.Time `bson:"createdAt" json:"createdAt"`
}

func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// Summary is the compact author/partner shape embedded in list responses.
type Summary struct {
	ID       primitive.ObjectID `json:"id"`
	Username string             `json:"username"`
	Name     string             `json:"name"`
	Avatar   string             `json:"avatar"`
	IsOnline bool               `json:"isOnline"`
}

const FallbackAvatar = "https://upload.wikimedia.org/wikipedia/commons/8/89/Portrait_Placeholder.png"

func (u *User) Summary() Summary {
	s := Summary{ID: u.ID, Username: u.Username, Name: u.Name, Avatar: u.Avatar, IsOnline: u.IsOnline}
	if s.Avatar == "" {
		s.Avatar = FallbackAvatar
	}
	if s.Name == "" {
		s.Name = u.Username
	}
	return s
}

// UnknownSummary stands in for users that were deleted after being referenced.
func UnknownSummary(id primitive.ObjectID) Summary {
	return Summary{ID: id, Name: "Unknown User", Avatar: FallbackAvatar}
}
