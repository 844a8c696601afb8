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

type postRepo struct{ c *mongo.Collection }

func (r *postRepo) Create(ctx context.Context, p *models.Post) error {
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Likes == nil {
		p.Likes = []primitive.ObjectID{}
	}
	if p.Comments == nil {
		p.Comments = []primitive.ObjectID{}
	}
	if p.Media == nil {
		p.Media = []string{}
	}
	_, err := r.c.InsertOne(ctx, p)
	return translate(err)
}

func (r *postRepo) ByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var p models.Post
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func postQuery(f PostFilter) bson.M {
	q := bson.M{}
	if f.UserID != nil {
		q["userId"] = *f.UserID
	}
	if f.TagID != nil {
		q["tagId"] = *f.TagID
	}
	if f.GroupID != nil {
		q["groupId"] = *f.GroupID
	} else if f.ExcludeGroups {
		q["groupId"] = bson.M{"$exists": false}
	}
	if !f.Viewer.IsZero() && !f.Admin {
		friends := f.Friends
		if friends == nil {
			friends = []primitive.ObjectID{}
		}
		q["$or"] = bson.A{
			bson.M{"visibility": models.VisibilityPublic},
			bson.M{"userId": f.Viewer},
			bson.M{"visibility": models.VisibilityFriends, "userId": bson.M{"$in": friends}},
		}
	}
	return q
}

func (r *postRepo) Find(ctx context.Context, f PostFilter, page Page) ([]models.Post, error) {
	opts := findOptions(page, bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cur, err := r.c.Find(ctx, postQuery(f), opts)
	return decodeAll[models.Post](ctx, cur, err)
}

func (r *postRepo) Count(ctx context.Context) (int64, error) {
	return r.c.CountDocuments(ctx, bson.M{})
}

func (r *postRepo) Update(ctx context.Context, id primitive.ObjectID, upd PostUpdate) error {
	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Content != nil {
		set["content"] = *upd.Content
	}
	if upd.Media != nil {
		set["media"] = *upd.Media
	}
	if upd.TagID != nil {
		set["tagId"] = *upd.TagID
	}
	if upd.Visibility != nil {
		set["visibility"] = *upd.Visibility
	}
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := r.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepo) ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Post, error) {
	cur, err := r.c.Find(ctx, bson.M{"userId": userID})
	return decodeAll[models.Post](ctx, cur, err)
}

// AddLike only matches when userID is not yet in likes, so two concurrent
// likes from the same user modify the document once.
func (r *postRepo) AddLike(ctx context.Context, postID, userID primitive.ObjectID) (bool, error) {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": postID, "likes": bson.M{"$ne": userID}},
		bson.M{"$addToSet": bson.M{"likes": userID}},
	)
	if err != nil {
		return false, err
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	return false, r.exists(ctx, postID)
}

func (r *postRepo) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (bool, error) {
	res, err := r.c.UpdateOne(ctx,
		bson.M{"_id": postID, "likes": userID},
		bson.M{"$pull": bson.M{"likes": userID}},
	)
	if err != nil {
		return false, err
	}
	if res.ModifiedCount == 1 {
		return true, nil
	}
	return false, r.exists(ctx, postID)
}

func (r *postRepo) RemoveLikesBy(ctx context.Context, userID primitive.ObjectID) error {
	_, err := r.c.UpdateMany(ctx, bson.M{"likes": userID}, bson.M{"$pull": bson.M{"likes": userID}})
	return err
}

func (r *postRepo) AddComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	return r.push(ctx, postID, bson.M{"$push": bson.M{"comments": commentID}})
}

func (r *postRepo) RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	return r.push(ctx, postID, bson.M{"$pull": bson.M{"comments": commentID}})
}

func (r *postRepo) IncShares(ctx context.Context, postID primitive.ObjectID) (int, error) {
	var p models.Post
	err := r.c.FindOneAndUpdate(ctx,
		bson.M{"_id": postID},
		bson.M{"$inc": bson.M{"shares": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&p)
	if err != nil {
		return 0, translate(err)
	}
	return p.Shares, nil
}

func (r *postRepo) push(ctx context.Context, postID primitive.ObjectID, update bson.M) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": postID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *postRepo) exists(ctx context.Context, id primitive.ObjectID) error {
	n, err := r.c.CountDocuments(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
