package database

import (
	"context"

	"edunet/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type groupRepo struct{ c *mongo.Collection }

func (r *groupRepo) Create(ctx context.Context, g *models.Group) error {
	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	if g.Members == nil {
		g.Members = []primitive.ObjectID{}
	}
	if g.Posts == nil {
		g.Posts = []primitive.ObjectID{}
	}
	_, err := r.c.InsertOne(ctx, g)
	return translate(err)
}

func (r *groupRepo) ByID(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	var g models.Group
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

func (r *groupRepo) List(ctx context.Context, page Page) ([]models.Group, error) {
	cur, err := r.c.Find(ctx, bson.M{}, findOptions(page, bson.D{{Key: "createdAt", Value: -1}}))
	return decodeAll[models.Group](ctx, cur, err)
}

func (r *groupRepo) Count(ctx context.Context) (int64, error) {
	return r.c.CountDocuments(ctx, bson.M{})
}

func (r *groupRepo) Update(ctx context.Context, id primitive.ObjectID, upd GroupUpdate) error {
	set := bson.M{}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Description != nil {
		set["description"] = *upd.Description
	}
	if upd.Avatar != nil {
		set["avatar"] = *upd.Avatar
	}
	if len(set) == 0 {
		return nil
	}
	return r.update(ctx, id, bson.M{"$set": set})
}

func (r *groupRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *groupRepo) AddMember(ctx context.Context, id, userID primitive.ObjectID) error {
	return r.update(ctx, id, bson.M{"$addToSet": bson.M{"members": userID}})
}

func (r *groupRepo) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) error {
	return r.update(ctx, id, bson.M{"$pull": bson.M{"members": userID}})
}

func (r *groupRepo) RemoveMemberEverywhere(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.c.UpdateMany(ctx, bson.M{"members": userID}, bson.M{"$pull": bson.M{"members": userID}})
	return err
}

func (r *groupRepo) AddPost(ctx context.Context, id, postID primitive.ObjectID) error {
	return r.update(ctx, id, bson.M{"$addToSet": bson.M{"posts": postID}})
}

func (r *groupRepo) RemovePost(ctx context.Context, id, postID primitive.ObjectID) error {
	return r.update(ctx, id, bson.M{"$pull": bson.M{"posts": postID}})
}

func (r *groupRepo) update(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
