package database

import (
	"context"

	"edunet/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type notificationRepo struct{ c *mongo.Collection }

func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	_, err := r.c.InsertOne(ctx, n)
	return translate(err)
}

func (r *notificationRepo) ForUser(ctx context.Context, userID primitive.ObjectID, unreadOnly bool, limit int64) ([]models.Notification, error) {
	filter := bson.M{"userId": userID}
	if unreadOnly {
		filter["isRead"] = false
	}
	opts := findOptions(Page{Limit: limit}, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.c.Find(ctx, filter, opts)
	return decodeAll[models.Notification](ctx, cur, err)
}

func (r *notificationRepo) CountUnread(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return r.c.CountDocuments(ctx, bson.M{"userId": userID, "isRead": false})
}

func (r *notificationRepo) MarkRead(ctx context.Context, id, userID primitive.ObjectID) (bool, error) {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id, "userId": userID}, bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

func (r *notificationRepo) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := r.c.UpdateMany(ctx, bson.M{"userId": userID, "isRead": false}, bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

func (r *notificationRepo) DeleteForUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.c.DeleteMany(ctx, bson.M{"$or": bson.A{
		bson.M{"userId": userID},
		bson.M{"actorId": userID},
	}})
	return err
}
