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

type tagRepo struct{ c *mongo.Collection }

// FindOrCreate upserts on the unique name index. name must already be normalised.
func (r *tagRepo) FindOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	var t models.Tag
	err := r.c.FindOneAndUpdate(ctx,
		bson.M{"name": name},
		bson.M{"$setOnInsert": bson.M{"name": name, "createdAt": time.Now().UTC()}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&t)
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *tagRepo) ByName(ctx context.Context, name string) (*models.Tag, error) {
	var t models.Tag
	if err := r.c.FindOne(ctx, bson.M{"name": name}).Decode(&t); err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *tagRepo) ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Tag, error) {
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	cur, err := r.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return decodeAll[models.Tag](ctx, cur, err)
}

func (r *tagRepo) List(ctx context.Context) ([]models.Tag, error) {
	cur, err := r.c.Find(ctx, bson.M{}, findOptions(Page{}, bson.D{{Key: "name", Value: 1}}))
	return decodeAll[models.Tag](ctx, cur, err)
}
