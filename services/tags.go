package services

import (
	"context"

	"edunet/models"
)

func (s *Posts) Tags(ctx context.Context) ([]models.Tag, error) {
	return s.store.Tags.List(ctx)
}

// CreateTag returns the existing tag when the normalised name is taken.
func (s *Posts) CreateTag(ctx context.Context, name string) (*models.Tag, error) {
	name = normalizeTag(name)
	if name == "" {
		return nil, InvalidInput("tag name is required")
	}
	if len(name) > 50 {
		return nil, InvalidInput("tag name is too long")
	}
	return s.store.Tags.FindOrCreate(ctx, name)
}
