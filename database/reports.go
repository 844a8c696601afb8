package database

import (
	"context"

	"edunet/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type reportRepo struct{ c *mongo.Collection }

func (r *reportRepo) Create(ctx context.Context, rep *models.Report) error {
	if rep.ID.IsZero() {
		rep.ID = primitive.NewObjectID()
	}
	_, err := r.c.InsertOne(ctx, rep)
	return translate(err)
}

func (r *reportRepo) ByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	var rep models.Report
	if err := r.c.FindOne(ctx, bson.M{"_id": id}).Decode(&rep); err != nil {
		return nil, translate(err)
	}
	return &rep, nil
}

func (r *reportRepo) List(ctx context.Context, status string, page Page) ([]models.Report, error) {
	filter := bson.M{}
	if status != "" {
		filter["status"] = status
	}
	cur, err := r.c.Find(ctx, filter, findOptions(page, bson.D{{Key: "createdAt", Value: -1}}))
	return decodeAll[models.Report](ctx, cur, err)
}

func (r *reportRepo) HasPending(ctx context.Context, reporterID, targetID primitive.ObjectID) (bool, error) {
	n, err := r.c.CountDocuments(ctx, bson.M{
		"reporterId": reporterID,
		"targetId":   targetID,
		"status":     models.ReportPending,
	})
	return n > 0, err
}

func (r *reportRepo) CountPending(ctx context.Context) (int64, error) {
	return r.c.CountDocuments(ctx, bson.M{"status": models.ReportPending})
}

func (r *reportRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	res, err := r.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
