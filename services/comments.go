package services

import (
	"context"
	"errors"
	"strings"

	"edunet/database"
	"edunet/logger"
	"edunet/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const maxCommentLen = 2000

func (s *Posts) AddComment(ctx context.Context, actor Actor, postID primitive.ObjectID, content string, mediaURLs []string) (*models.CommentView, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, InvalidInput("comment content is required")
	}
	if len([]rune(content)) > maxCommentLen {
		return nil, InvalidInput("comment is too long")
	}
	p, err := s.visible(ctx, actor, postID)
	if err != nil {
		return nil, err
	}

	c := &models.Comment{
		ID:        primitive.NewObjectID(),
		PostID:    p.ID,
		UserID:    actor.ID,
		Content:   content,
		Media:     mediaURLs,
		CreatedAt: s.now(),
	}
	if err := s.store.Comments.Create(ctx, c); err != nil {
		return nil, err
	}
	if err := s.store.Posts.AddComment(ctx, p.ID, c.ID); err != nil {
		logger.Log.Warn("append comment to post", zap.String("comment", c.ID.Hex()), zap.Error(err))
	}
	s.notify.notifyQuietly(ctx, NotifyInput{UserID: p.UserID, ActorID: actor.ID, Type: models.NotificationComment, PostID: &p.ID})

	authors, err := summaries(ctx, s.store.Users, []primitive.ObjectID{actor.ID})
	if err != nil {
		return nil, err
	}
	return &models.CommentView{Comment: c, User: authors[actor.ID]}, nil
}

// Comments lists the comments of a post, oldest first.
func (s *Posts) Comments(ctx context.Context, actor Actor, postID primitive.ObjectID) ([]models.CommentView, error) {
	if _, err := s.visible(ctx, actor, postID); err != nil {
		return nil, err
	}
	comments, err := s.store.Comments.ByPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, 0, len(comments))
	for i := range comments {
		ids = append(ids, comments[i].UserID)
	}
	authors, err := summaries(ctx, s.store.Users, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.CommentView, 0, len(comments))
	for i := range comments {
		out = append(out, models.CommentView{Comment: &comments[i], User: authors[comments[i].UserID]})
	}
	return out, nil
}

// DeleteComment is allowed for the comment author, the post author and admins.
func (s *Posts) DeleteComment(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	c, err := s.store.Comments.ByID(ctx, id)
	if err != nil {
		return lookup(err, "comment")
	}
	allowed := c.UserID == actor.ID || actor.IsAdmin()
	if !allowed {
		p, err := s.store.Posts.ByID(ctx, c.PostID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return err
		}
		allowed = p != nil && p.UserID == actor.ID
	}
	if !allowed {
		return forbidden("you cannot delete this comment")
	}

	if err := s.store.Comments.Delete(ctx, id); err != nil {
		return lookup(err, "comment")
	}
	if err := s.store.Posts.RemoveComment(ctx, c.PostID, id); err != nil && !errors.Is(err, database.ErrNotFound) {
		logger.Log.Warn("unlink comment from post", zap.String("comment", id.Hex()), zap.Error(err))
	}
	return nil
}
