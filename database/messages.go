package database

import (
	"context"

	"edunet/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type messageRepo struct{ c *mongo.Collection }

func (r *messageRepo) Create(ctx context.Context, m *models.Message) error {
	if m.ID.IsZero() {
		m.ID = primitive.NewObjectID()
	}
	_, err := r.c.InsertOne(ctx, m)
	return translate(err)
}

func (r *messageRepo) ByConversation(ctx context.Context, conversationID primitive.ObjectID, page Page) ([]models.Message, error) {
	opts := findOptions(page, bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := r.c.Find(ctx, bson.M{"conversationId": conversationID}, opts)
	return decodeAll[models.Message](ctx, cur, err)
}

func (r *messageRepo) MarkRead(ctx context.Context, conversationID, readerID primitive.ObjectID) (int64, error) {
	res, err := r.c.UpdateMany(ctx,
		bson.M{"conversationId": conversationID, "receiverId": readerID, "isRead": false},
		bson.M{"$set": bson.M{"isRead": true}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
