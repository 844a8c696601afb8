package services

import (
	"context"

	"edunet/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type LikeResult struct {
	Liked      bool `json:"liked"`
	LikesCount int  `json:"likesCount"`
}

// ToggleLike likes the post, or removes the like when the caller already likes it.
func (s *Posts) ToggleLike(ctx context.Context, actor Actor, id primitive.ObjectID) (*LikeResult, error) {
	p, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if p.LikedBy(actor.ID) {
		return s.unlike(ctx, actor, p)
	}
	return s.like(ctx, actor, p)
}

func (s *Posts) Like(ctx context.Context, actor Actor, id primitive.ObjectID) (*LikeResult, error) {
	p, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.like(ctx, actor, p)
}

func (s *Posts) Unlike(ctx context.Context, actor Actor, id primitive.ObjectID) (*LikeResult, error) {
	p, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.unlike(ctx, actor, p)
}

func (s *Posts) like(ctx context.Context, actor Actor, p *models.Post) (*LikeResult, error) {
	added, err := s.store.Posts.AddLike(ctx, p.ID, actor.ID)
	if err != nil {
		return nil, lookup(err, "post")
	}
	if added {
		s.notify.notifyQuietly(ctx, NotifyInput{UserID: p.UserID, ActorID: actor.ID, Type: models.NotificationLike, PostID: &p.ID})
	}
	return s.likeState(ctx, actor, p.ID)
}

func (s *Posts) unlike(ctx context.Context, actor Actor, p *models.Post) (*LikeResult, error) {
	if _, err := s.store.Posts.RemoveLike(ctx, p.ID, actor.ID); err != nil {
		return nil, lookup(err, "post")
	}
	return s.likeState(ctx, actor, p.ID)
}

func (s *Posts) likeState(ctx context.Context, actor Actor, id primitive.ObjectID) (*LikeResult, error) {
	p, err := s.store.Posts.ByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "post")
	}
	return &LikeResult{Liked: p.LikedBy(actor.ID), LikesCount: len(p.Likes)}, nil
}

func (s *Posts) Likers(ctx context.Context, actor Actor, id primitive.ObjectID) ([]models.Summary, error) {
	p, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return summaryList(ctx, s.store.Users, p.Likes)
}
