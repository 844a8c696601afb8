package services

import (
	"context"
	"strings"
	"time"

	"edunet/database"
	"edunet/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Reports struct {
	store *database.Store
	now   func() time.Time
}

// Create files a report. A reporter may hold one pending report per target.
func (s *Reports) Create(ctx context.Context, actor Actor, targetType string, targetID primitive.ObjectID, reason string) (*models.Report, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, InvalidInput("a reason is required")
	}
	switch targetType {
	case models.ReportTargetPost:
		if _, err := s.store.Posts.ByID(ctx, targetID); err != nil {
			return nil, lookup(err, "post")
		}
	case models.ReportTargetUser:
		if targetID == actor.ID {
			return nil, InvalidInput("you cannot report yourself")
		}
		if _, err := s.store.Users.ByID(ctx, targetID); err != nil {
			return nil, lookup(err, "user")
		}
	default:
		return nil, InvalidInput("targetType must be Post or User")
	}

	pending, err := s.store.Reports.HasPending(ctx, actor.ID, targetID)
	if err != nil {
		return nil, err
	}
	if pending {
		return nil, conflict("you already reported this")
	}

	r := &models.Report{
		ID:         primitive.NewObjectID(),
		ReporterID: actor.ID,
		TargetID:   targetID,
		TargetType: targetType,
		Reason:     reason,
		Status:     models.ReportPending,
		CreatedAt:  s.now(),
	}
	if err := s.store.Reports.Create(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *Reports) List(ctx context.Context, status string, page, limit int) ([]models.Report, error) {
	switch status {
	case "", models.ReportPending, models.ReportResolved, models.ReportDismissed:
	default:
		return nil, InvalidInput("unknown report status")
	}
	return s.store.Reports.List(ctx, status, Paging(page, limit))
}

// SetStatus resolves or dismisses a report.
func (s *Reports) SetStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Report, error) {
	if status != models.ReportResolved && status != models.ReportDismissed {
		return nil, InvalidInput("status must be resolved or dismissed")
	}
	if err := s.store.Reports.SetStatus(ctx, id, status); err != nil {
		return nil, lookup(err, "report")
	}
	r, err := s.store.Reports.ByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "report")
	}
	return r, nil
}
