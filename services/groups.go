package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"edunet/database"
	"edunet/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Groups struct {
	store *database.Store
	posts *Posts
	now   func() time.Time
}

type GroupInput struct {
	Name        *string
	Description *string
	Avatar      *string
}

func (s *Groups) Create(ctx context.Context, actor Actor, name, description, avatar string) (*models.Group, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, InvalidInput("group name is required")
	}
	g := &models.Group{
		ID:          primitive.NewObjectID(),
		Name:        name,
		Description: strings.TrimSpace(description),
		Avatar:      strings.TrimSpace(avatar),
		Members:     []primitive.ObjectID{actor.ID},
		AdminID:     actor.ID,
		Posts:       []primitive.ObjectID{},
		CreatedAt:   s.now(),
	}
	if err := s.store.Groups.Create(ctx, g); err != nil {
		return nil, err
	}
	return g, nil
}

func (s *Groups) List(ctx context.Context, page, limit int) ([]models.Group, error) {
	return s.store.Groups.List(ctx, Paging(page, limit))
}

func (s *Groups) Get(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	g, err := s.store.Groups.ByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "group")
	}
	return g, nil
}

func (s *Groups) Join(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Group, error) {
	if err := s.store.Groups.AddMember(ctx, id, actor.ID); err != nil {
		return nil, lookup(err, "group")
	}
	return s.Get(ctx, id)
}

func (s *Groups) Leave(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Group, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.AdminID == actor.ID {
		return nil, InvalidInput("the group admin cannot leave the group")
	}
	if err := s.store.Groups.RemoveMember(ctx, id, actor.ID); err != nil {
		return nil, lookup(err, "group")
	}
	return s.Get(ctx, id)
}

func (s *Groups) managed(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Group, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if g.AdminID != actor.ID && !actor.IsAdmin() {
		return nil, forbidden("only the group admin can manage this group")
	}
	return g, nil
}

func (s *Groups) Update(ctx context.Context, actor Actor, id primitive.ObjectID, in GroupInput) (*models.Group, error) {
	if _, err := s.managed(ctx, actor, id); err != nil {
		return nil, err
	}
	upd := database.GroupUpdate{Name: trimPtr(in.Name), Description: trimPtr(in.Description), Avatar: trimPtr(in.Avatar)}
	if upd.Name != nil && *upd.Name == "" {
		return nil, InvalidInput("group name is required")
	}
	if err := s.store.Groups.Update(ctx, id, upd); err != nil {
		return nil, lookup(err, "group")
	}
	return s.Get(ctx, id)
}

// Delete removes the group and every post published in it.
func (s *Groups) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	g, err := s.managed(ctx, actor, id)
	if err != nil {
		return err
	}
	posts, err := s.store.Posts.Find(ctx, database.PostFilter{GroupID: &g.ID}, database.Page{})
	if err != nil {
		return err
	}
	for i := range posts {
		if err := s.posts.remove(ctx, &posts[i]); err != nil {
			return fmt.Errorf("delete group post %s: %w", posts[i].ID.Hex(), err)
		}
	}
	if err := s.store.Groups.Delete(ctx, id); err != nil {
		return lookup(err, "group")
	}
	return nil
}

// Posts lists a group's posts for its members.
func (s *Groups) Posts(ctx context.Context, actor Actor, id primitive.ObjectID, page, limit int) (*FeedPage, error) {
	g, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !g.HasMember(actor.ID) && !actor.IsAdmin() {
		return nil, forbidden("only group members can see group posts")
	}
	f := database.PostFilter{GroupID: &g.ID, Viewer: actor.ID, Admin: actor.IsAdmin()}
	if !f.Admin {
		me, err := s.store.Users.ByID(ctx, actor.ID)
		if err != nil {
			return nil, lookup(err, "user")
		}
		f.Friends = me.Friends
	}
	return s.posts.page(ctx, actor, f, page, limit)
}
