package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edunet/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	CollUsers         = "users"
	CollPosts         = "posts"
	CollComments      = "comments"
	CollTags          = "tags"
	CollGroups        = "groups"
	CollConversations = "conversations"
	CollMessages      = "messages"
	CollNotifications = "notifications"
	CollReports       = "reports"
	CollSubscriptions = "subscriptions"
)

const connectAttempts = 3

// Connect dials MongoDB, retrying a few times, and pings the server.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	var lastErr error
	for i := 1; i <= connectAttempts; i++ {
		client, err := dial(ctx, uri)
		if err == nil {
			return client, nil
		}
		lastErr = err
		logger.Log.Warn("mongodb connection attempt failed", zap.Int("attempt", i), zap.Error(err))
		if i < connectAttempts {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(2 * time.Second):
			}
		}
	}
	return nil, fmt.Errorf("connect mongodb: %w", lastErr)
}

func dial(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func Disconnect(client *mongo.Client) error {
	if client == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the unique and lookup indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	unique := options.Index().SetUnique(true)
	specs := map[string][]mongo.IndexModel{
		CollUsers: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
		},
		CollPosts: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "tagId", Value: 1}}},
			{Keys: bson.D{{Key: "groupId", Value: 1}}},
		},
		CollComments:      {{Keys: bson.D{{Key: "postId", Value: 1}, {Key: "createdAt", Value: 1}}}},
		CollTags:          {{Keys: bson.D{{Key: "name", Value: 1}}, Options: unique}},
		CollConversations: {{Keys: bson.D{{Key: "participants", Value: 1}}}},
		CollMessages:      {{Keys: bson.D{{Key: "conversationId", Value: 1}, {Key: "createdAt", Value: 1}}}},
		CollNotifications: {{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}}},
		CollReports:       {{Keys: bson.D{{Key: "status", Value: 1}}}},
		CollSubscriptions: {{Keys: bson.D{{Key: "userId", Value: 1}}, Options: unique}},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}

// NewStore returns repositories backed by the collections of db.
func NewStore(db *mongo.Database) *Store {
	return &Store{
		Users:         &userRepo{c: db.Collection(CollUsers)},
		Posts:         &postRepo{c: db.Collection(CollPosts)},
		Comments:      &commentRepo{c: db.Collection(CollComments)},
		Tags:          &tagRepo{c: db.Collection(CollTags)},
		Groups:        &groupRepo{c: db.Collection(CollGroups)},
		Conversations: &conversationRepo{c: db.Collection(CollConversations)},
		Messages:      &messageRepo{c: db.Collection(CollMessages)},
		Notifications: &notificationRepo{c: db.Collection(CollNotifications)},
		Reports:       &reportRepo{c: db.Collection(CollReports)},
		Subscriptions: &subscriptionRepo{c: db.Collection(CollSubscriptions)},
	}
}

// translate maps driver errors onto the package sentinels.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

func findOptions(page Page, sort bson.D) *options.FindOptions {
	opts := options.Find().SetSort(sort)
	if page.Skip > 0 {
		opts.SetSkip(page.Skip)
	}
	if page.Limit > 0 {
		opts.SetLimit(page.Limit)
	}
	return opts
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []T{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
