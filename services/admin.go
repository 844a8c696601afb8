package services

import (
	"context"
	"errors"
	"fmt"

	"edunet/database"
	"edunet/logger"
	"edunet/models"
	"edunet/presence"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Admin struct {
	store    *database.Store
	presence presence.Tracker
	posts    *Posts
}

type Stats struct {
	Users          int64 `json:"users"`
	Posts          int64 `json:"posts"`
	Comments       int64 `json:"comments"`
	Groups         int64 `json:"groups"`
	PendingReports int64 `json:"pendingReports"`
	OnlineUsers    int64 `json:"onlineUsers"`
}

func (s *Admin) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	counters := []struct {
		dst *int64
		fn  func(context.Context) (int64, error)
	}{
		{&st.Users, s.store.Users.Count},
		{&st.Posts, s.store.Posts.Count},
		{&st.Comments, s.store.Comments.Count},
		{&st.Groups, s.store.Groups.Count},
		{&st.PendingReports, s.store.Reports.CountPending},
		{&st.OnlineUsers, s.presence.OnlineCount},
	}
	for _, c := range counters {
		n, err := c.fn(ctx)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}
	return &st, nil
}

func (s *Admin) Users(ctx context.Context, page, limit int) ([]models.User, error) {
	return s.store.Users.List(ctx, Paging(page, limit))
}

func (s *Admin) SetRole(ctx context.Context, actor Actor, id primitive.ObjectID, role string) (*models.User, error) {
	if role != models.RoleUser && role != models.RoleAdmin {
		return nil, InvalidInput("role must be user or admin")
	}
	if id == actor.ID {
		return nil, InvalidInput("you cannot change your own role")
	}
	if err := s.store.Users.Update(ctx, id, database.UserUpdate{Role: &role}); err != nil {
		return nil, lookup(err, "user")
	}
	u, err := s.store.Users.ByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "user")
	}
	return u, nil
}

// DeleteUser removes a user with their posts, comments, likes, memberships,
// notifications and push subscription, and drops their id from every other
// user's relationship lists. Groups they administer are kept.
func (s *Admin) DeleteUser(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	if id == actor.ID {
		return InvalidInput("you cannot delete your own account here")
	}
	if _, err := s.store.Users.ByID(ctx, id); err != nil {
		return lookup(err, "user")
	}

	posts, err := s.store.Posts.ByUser(ctx, id)
	if err != nil {
		return err
	}
	for i := range posts {
		if err := s.posts.remove(ctx, &posts[i]); err != nil {
			return fmt.Errorf("delete post %s: %w", posts[i].ID.Hex(), err)
		}
	}

	comments, err := s.store.Comments.DeleteByUser(ctx, id)
	if err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	for _, c := range comments {
		if err := s.store.Posts.RemoveComment(ctx, c.PostID, c.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
			logger.Log.Warn("unlink comment", zap.String("comment", c.ID.Hex()), zap.Error(err))
		}
	}

	steps := []struct {
		name string
		fn   func(context.Context, primitive.ObjectID) error
	}{
		{"likes", s.store.Posts.RemoveLikesBy},
		{"relationships", s.store.Users.RemoveEverywhere},
		{"memberships", s.store.Groups.RemoveMemberEverywhere},
		{"notifications", s.store.Notifications.DeleteForUser},
		{"subscription", s.store.Subscriptions.DeleteForUser},
		{"presence", s.presence.SetOffline},
	}
	for _, st := range steps {
		if err := st.fn(ctx, id); err != nil {
			return fmt.Errorf("remove %s: %w", st.name, err)
		}
	}

	if err := s.store.Users.Delete(ctx, id); err != nil {
		return lookup(err, "user")
	}
	logger.Log.Info("user deleted", zap.String("user", id.Hex()), zap.String("by", actor.ID.Hex()))
	return nil
}

// DeletePost removes any post, as the author could.
func (s *Admin) DeletePost(ctx context.Context, id primitive.ObjectID) error {
	p, err := s.store.Posts.ByID(ctx, id)
	if err != nil {
		return lookup(err, "post")
	}
	return s.posts.remove(ctx, p)
}
