package database

import (
	"context"
	"errors"
	"time"

	"edunet/models"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrNotFound  = errors.New("document not found")
	ErrDuplicate = errors.New("duplicate key")
	ErrInvalidID = errors.New("invalid id")
)

// ParseID parses a hex ObjectID, returning ErrInvalidID for malformed input.
func ParseID(hex string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, ErrInvalidID
	}
	return id, nil
}

// Page is a skip/limit window. A zero Limit means no limit.
type Page struct {
	Skip  int64
	Limit int64
}

// UserList names one of the id arrays kept on a user document.
type UserList string

const (
	ListFollowers  UserList = "followers"
	ListFollowings UserList = "followings"
	ListFriends    UserList = "friends"
	ListPosts      UserList = "posts"
)

// UserUpdate holds the fields of a user that may be $set. Nil fields are left alone.
type UserUpdate struct {
	Username     *string
	Name         *string
	Avatar       *string
	Bio          *string
	School       *string
	Role         *string
	AuthProvider *string
	GoogleID     *string
	LastActive   *time.Time
}

func (u UserUpdate) Empty() bool {
	return u.Username == nil && u.Name == nil && u.Avatar == nil && u.Bio == nil &&
		u.School == nil && u.Role == nil && u.AuthProvider == nil && u.GoogleID == nil &&
		u.LastActive == nil
}

type UserRepository interface {
	Create(ctx context.Context, u *models.User) error
	ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	ByEmail(ctx context.Context, email string) (*models.User, error)
	ByUsername(ctx context.Context, username string) (*models.User, error)
	ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
	Search(ctx context.Context, query string, limit int64) ([]models.User, error)
	List(ctx context.Context, page Page) ([]models.User, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, upd UserUpdate) error
	SetStatus(ctx context.Context, id primitive.ObjectID, online bool, at time.Time) error
	AddToList(ctx context.Context, id primitive.ObjectID, list UserList, value primitive.ObjectID) error
	RemoveFromList(ctx context.Context, id primitive.ObjectID, list UserList, value primitive.ObjectID) error
	// RemoveEverywhere pulls value from the relationship lists of every user.
	RemoveEverywhere(ctx context.Context, value primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}

// PostFilter selects posts. When Viewer is set and Admin is false, only posts
// visible to the viewer are returned: public ones, the viewer's own, and
// friends-only posts written by one of Friends.
type PostFilter struct {
	UserID        *primitive.ObjectID
	TagID         *primitive.ObjectID
	GroupID       *primitive.ObjectID
	ExcludeGroups bool
	Viewer        primitive.ObjectID
	Friends       []primitive.ObjectID
	Admin         bool
}

type PostUpdate struct {
	Content    *string
	Media      *[]string
	TagID      *primitive.ObjectID
	Visibility *string
}

type PostRepository interface {
	Create(ctx context.Context, p *models.Post) error
	ByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	Find(ctx context.Context, f PostFilter, page Page) ([]models.Post, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, upd PostUpdate) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Post, error)
	// AddLike reports whether the like was added; false means it was already present.
	AddLike(ctx context.Context, postID, userID primitive.ObjectID) (bool, error)
	// RemoveLike reports whether a like was removed.
	RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (bool, error)
	RemoveLikesBy(ctx context.Context, userID primitive.ObjectID) error
	AddComment(ctx context.Context, postID, commentID primitive.ObjectID) error
	RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) error
	IncShares(ctx context.Context, postID primitive.ObjectID) (int, error)
}

type CommentRepository interface {
	Create(ctx context.Context, c *models.Comment) error
	ByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error)
	ByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteByPost(ctx context.Context, postID primitive.ObjectID) error
	// DeleteByUser removes every comment written by userID and returns them.
	DeleteByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Comment, error)
}

type TagRepository interface {
	FindOrCreate(ctx context.Context, name string) (*models.Tag, error)
	ByName(ctx context.Context, name string) (*models.Tag, error)
	ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Tag, error)
	List(ctx context.Context) ([]models.Tag, error)
}

type GroupUpdate struct {
	Name        *string
	Description *string
	Avatar      *string
}

type GroupRepository interface {
	Create(ctx context.Context, g *models.Group) error
	ByID(ctx context.Context, id primitive.ObjectID) (*models.Group, error)
	List(ctx context.Context, page Page) ([]models.Group, error)
	Count(ctx context.Context) (int64, error)
	Update(ctx context.Context, id primitive.ObjectID, upd GroupUpdate) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	AddMember(ctx context.Context, id, userID primitive.ObjectID) error
	RemoveMember(ctx context.Context, id, userID primitive.ObjectID) error
	RemoveMemberEverywhere(ctx context.Context, userID primitive.ObjectID) error
	AddPost(ctx context.Context, id, postID primitive.ObjectID) error
	RemovePost(ctx context.Context, id, postID primitive.ObjectID) error
}

type ConversationRepository interface {
	// FindOrCreate returns the conversation whose participant set equals
	// participants, creating it if needed. participants must already be
	// normalised with models.ParticipantSet.
	FindOrCreate(ctx context.Context, participants []primitive.ObjectID) (*models.Conversation, bool, error)
	ByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error)
	ForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error)
	Touch(ctx context.Context, id primitive.ObjectID, lastMessage string, at time.Time) error
}

type MessageRepository interface {
	Create(ctx context.Context, m *models.Message) error
	ByConversation(ctx context.Context, conversationID primitive.ObjectID, page Page) ([]models.Message, error)
	// MarkRead flags every unread message addressed to readerID in the conversation.
	MarkRead(ctx context.Context, conversationID, readerID primitive.ObjectID) (int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ForUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error)
	CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error)
	// MarkRead reports whether a notification owned by userID was matched.
	MarkRead(ctx context.Context, id, userID primitive.ObjectID) (bool, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	DeleteForUser(ctx context.Context, userID primitive.ObjectID) error
}

type ReportRepository interface {
	Create(ctx context.Context, r *models.Report) error
	ByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error)
	List(ctx context.Context, status string, page Page) ([]models.Report, error)
	HasPending(ctx context.Context, reporterID, targetID primitive.ObjectID) (bool, error)
	CountPending(ctx context.Context) (int64, error)
	SetStatus(ctx context.Context, id primitive.ObjectID, status string) error
}

type SubscriptionRepository interface {
	Upsert(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error
	ForUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error)
	DeleteForUser(ctx context.Context, userID primitive.ObjectID) error
}

// Store groups the repositories of every collection.
type Store struct {
	Users         UserRepository
	Posts         PostRepository
	Comments      CommentRepository
	Tags          TagRepository
	Groups        GroupRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	Notifications NotificationRepository
	Reports       ReportRepository
	Subscriptions SubscriptionRepository
}
