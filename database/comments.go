package database

import (
	"context"

	"edunet/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type commentRepo struct{ c *mongo.Collection }

func (r *commentRepo) Create(ctx context.Context, cm *models.Comment) error {
	if cm.ID.IsZero() {
		cm.ID = primitive.NewObjectID()
	}
	_, err := r.c.InsertOne(ctx, cm)
	return translate(err)
}

func (r *commentRepo) ByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	var cm models.Comment
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&cm); err != nil {
		return nil, translate(err)
	}
	return &cm, nil
}

func (r *commentRepo) ByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	cur, err := r.c.Find(ctx, bson.M{"postId": postID}, findOptions(Page{}, bson.D{{Key: "createdAt", Value: 1}, {Key: "_id", Value: 1}}))
	return decodeAll[models.Comment](ctx, cur, err)
}

func (r *commentRepo) Count(ctx context.Context) (int64, error) {
	return r.c.CountDocuments(ctx, bson.M{})
}

func (r *commentRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *commentRepo) DeleteByPost(ctx context.Context, postID primitive.ObjectID) error {
	_, err := r.c.DeleteMany(ctx, bson.M{"postId": postID})
	return err
}

func (r *commentRepo) DeleteByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Comment, error) {
	cur, err := r.c.Find(ctx, bson.M{"userId": userID})
	comments, err := decodeAll[models.Comment](ctx, cur, err)
	if err != nil {
		return nil, err
	}
	if _, err := r.c.DeleteMany(ctx, bson.M{"userId": userID}); err != nil {
		return nil, err
	}
	return comments, nil
}
