package database

import (
	"context"

	"edunet/models"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type subscriptionRepo struct{ c *mongo.Collection }

// Upsert keeps a single subscription per user, replacing any previous one.
func (r *subscriptionRepo) Upsert(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error {
	_, err := r.c.UpdateOne(ctx,
		bson.M{"userId": userID},
		bson.M{"$set": bson.M{"userId": userID, "sub": sub}},
		options.Update().SetUpsert(true),
	)
	return translate(err)
}

func (r *subscriptionRepo) ForUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error) {
	var s models.PushSubscription
	if err := r.c.FindOne(ctx, bson.M{"userId": userID}).Decode(&s); err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *subscriptionRepo) DeleteForUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.c.DeleteOne(ctx, bson.M{"userId": userID})
	return err
}
