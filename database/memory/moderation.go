package memory

import (
	"context"
	"slices"

	"edunet/database"
	"edunet/models"

	"github.com/SherClockHolmes/webpush-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type reportRepo struct{ *state }

func (r *reportRepo) Create(ctx context.Context, rep *models.Report) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rep.ID.IsZero() {
		rep.ID = primitive.NewObjectID()
	}
	c := *rep
	r.reports[rep.ID] = &c
	return nil
}

func (r *reportRepo) ByID(ctx context.Context, id primitive.ObjectID) (*models.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rep, ok := r.reports[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := *rep
	return &c, nil
}

func (r *reportRepo) List(ctx context.Context, status string, page database.Page) ([]models.Report, error) {
	r.mu.RLock()
	out := []models.Report{}
	for _, rep := range r.reports {
		if status == "" || rep.Status == status {
			out = append(out, *rep)
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Report) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(b.ID, a.ID)
	})
	return window(out, page), nil
}

func (r *reportRepo) HasPending(ctx context.Context, reporterID, targetID primitive.ObjectID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rep := range r.reports {
		if rep.ReporterID == reporterID && rep.TargetID == targetID && rep.Status == models.ReportPending {
			return true, nil
		}
	}
	return false, nil
}

func (r *reportRepo) CountPending(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, rep := range r.reports {
		if rep.Status == models.ReportPending {
			n++
		}
	}
	return n, nil
}

func (r *reportRepo) SetStatus(ctx context.Context, id primitive.ObjectID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rep, ok := r.reports[id]
	if !ok {
		return database.ErrNotFound
	}
	rep.Status = status
	return nil
}

type subscriptionRepo struct{ *state }

func (r *subscriptionRepo) Upsert(ctx context.Context, userID primitive.ObjectID, sub webpush.Subscription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.subscriptions[userID]; ok {
		existing.Sub = sub
		return nil
	}
	r.subscriptions[userID] = &models.PushSubscription{ID: primitive.NewObjectID(), UserID: userID, Sub: sub}
	return nil
}

func (r *subscriptionRepo) ForUser(ctx context.Context, userID primitive.ObjectID) (*models.PushSubscription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.subscriptions[userID]
	if !ok {
		return nil, database.ErrNotFound
	}
	c := *s
	return &c, nil
}

func (r *subscriptionRepo) DeleteForUser(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.subscriptions, userID)
	return nil
}
