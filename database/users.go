package database

import (
	"context"
	"regexp"
	"time"

	"edunet/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type userRepo struct{ c *mongo.Collection }

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	// $addToSet fails on null, so the lists must exist as empty arrays.
	for _, l := range []*[]primitive.ObjectID{&u.Followers, &u.Followings, &u.Friends, &u.Posts} {
		if *l == nil {
			*l = []primitive.ObjectID{}
		}
	}
	_, err := r.c.InsertOne(ctx, u)
	return translate(err)
}

func (r *userRepo) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var u models.User
	if err := r.c.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *userRepo) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *userRepo) ByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.findOne(ctx, bson.M{"username": username})
}

func (r *userRepo) ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if len(ids) == 0 {
		return []models.User{}, nil
	}
	cur, err := r.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	return decodeAll[models.User](ctx, cur, err)
}

func (r *userRepo) Search(ctx context.Context, query string, limit int64) ([]models.User, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"username": pattern},
		bson.M{"name": pattern},
	}}
	cur, err := r.c.Find(ctx, filter, findOptions(Page{Limit: limit}, bson.D{{Key: "username", Value: 1}}))
	return decodeAll[models.User](ctx, cur, err)
}

func (r *userRepo) List(ctx context.Context, page Page) ([]models.User, error) {
	cur, err := r.c.Find(ctx, bson.M{}, findOptions(page, bson.D{{Key: "createdAt", Value: -1}}))
	return decodeAll[models.User](ctx, cur, err)
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	return r.c.CountDocuments(ctx, bson.M{})
}

func (r *userRepo) Update(ctx context.Context, id primitive.ObjectID, upd UserUpdate) error {
	set := bson.M{}
	if upd.Username != nil {
		set["username"] = *upd.Username
	}
	if upd.Name != nil {
		set["name"] = *upd.Name
	}
	if upd.Avatar != nil {
		set["avatar"] = *upd.Avatar
	}
	if upd.Bio != nil {
		set["bio"] = *upd.Bio
	}
	if upd.School != nil {
		set["school"] = *upd.School
	}
	if upd.Role != nil {
		set["role"] = *upd.Role
	}
	if upd.AuthProvider != nil {
		set["authProvider"] = *upd.AuthProvider
	}
	if upd.GoogleID != nil {
		set["googleId"] = *upd.GoogleID
	}
	if upd.LastActive != nil {
		set["lastActive"] = *upd.LastActive
	}
	if len(set) == 0 {
		return nil
	}
	return r.updateOne(ctx, id, bson.M{"$set": set})
}

func (r *userRepo) SetStatus(ctx context.Context, id primitive.ObjectID, online bool, at time.Time) error {
	return r.updateOne(ctx, id, bson.M{"$set": bson.M{"isOnline": online, "lastActive": at}})
}

func (r *userRepo) AddToList(ctx context.Context, id primitive.ObjectID, list UserList, value primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{"$addToSet": bson.M{string(list): value}})
}

func (r *userRepo) RemoveFromList(ctx context.Context, id primitive.ObjectID, list UserList, value primitive.ObjectID) error {
	return r.updateOne(ctx, id, bson.M{"$pull": bson.M{string(list): value}})
}

func (r *userRepo) RemoveEverywhere(ctx context.Context, value primitive.ObjectID) error {
	_, err := r.c.UpdateMany(ctx, bson.M{}, bson.M{"$pull": bson.M{
		string(ListFollowers):  value,
		string(ListFollowings): value,
		string(ListFriends):    value,
	}})
	return err
}

func (r *userRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepo) updateOne(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return translate(err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
