package database

import (
	"context"
	"time"

	"edunet/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type conversationRepo struct{ c *mongo.Collection }

// FindOrCreate matches the participants array exactly. Arrays are stored
// sorted, so equality on the array is equality on the set.
func (r *conversationRepo) FindOrCreate(ctx context.Context, participants []primitive.ObjectID) (*models.Conversation, bool, error) {
	now := time.Now().UTC()
	filter := bson.M{"participants": participants}
	res, err := r.c.UpdateOne(ctx, filter,
		bson.M{"$setOnInsert": bson.M{
			"participants":  participants,
			"lastMessage":   "",
			"lastMessageAt": now,
			"createdAt":     now,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return nil, false, translate(err)
	}

	var conv models.Conversation
	if err := r.c.FindOne(ctx, filter).Decode(&conv); err != nil {
		return nil, false, translate(err)
	}
	return &conv, res.UpsertedCount == 1, nil
}

func (r *conversationRepo) ByID(ctx context.Context, id primitive.ObjectID) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&conv); err != nil {
		return nil, translate(err)
	}
	return &conv, nil
}

func (r *conversationRepo) ForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Conversation, error) {
	cur, err := r.c.Find(ctx, bson.M{"participants": userID}, findOptions(Page{}, bson.D{{Key: "lastMessageAt", Value: -1}}))
	return decodeAll[models.Conversation](ctx, cur, err)
}

func (r *conversationRepo) Touch(ctx context.Context, id primitive.ObjectID, lastMessage string, at time.Time) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"lastMessage":   lastMessage,
		"lastMessageAt": at,
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
