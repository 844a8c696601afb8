package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"edunet/database"
	"edunet/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type commentRepo struct{ *state }

func cloneComment(c *models.Comment) *models.Comment {
	out := *c
	out.Media = slices.Clone(c.Media)
	return &out
}

func (r *commentRepo) Create(ctx context.Context, c *models.Comment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	r.comments[c.ID] = cloneComment(c)
	return nil
}

func (r *commentRepo) ByID(ctx context.Context, id primitive.ObjectID) (*models.Comment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.comments[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneComment(c), nil
}

func (r *commentRepo) ByPost(ctx context.Context, postID primitive.ObjectID) ([]models.Comment, error) {
	r.mu.RLock()
	out := []models.Comment{}
	for _, c := range r.comments {
		if c.PostID == postID {
			out = append(out, *cloneComment(c))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Comment) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(a.ID, b.ID)
	})
	return out, nil
}

func (r *commentRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.comments)), nil
}

func (r *commentRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.comments[id]; !ok {
		return database.ErrNotFound
	}
	delete(r.comments, id)
	return nil
}

func (r *commentRepo) DeleteByPost(ctx context.Context, postID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, c := range r.comments {
		if c.PostID == postID {
			delete(r.comments, id)
		}
	}
	return nil
}

func (r *commentRepo) DeleteByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Comment{}
	for id, c := range r.comments {
		if c.UserID == userID {
			out = append(out, *c)
			delete(r.comments, id)
		}
	}
	return out, nil
}

type tagRepo struct{ *state }

func (r *tagRepo) FindOrCreate(ctx context.Context, name string) (*models.Tag, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tags {
		if t.Name == name {
			out := *t
			return &out, nil
		}
	}
	t := &models.Tag{ID: primitive.NewObjectID(), Name: name, CreatedAt: time.Now().UTC()}
	r.tags[t.ID] = t
	out := *t
	return &out, nil
}

func (r *tagRepo) ByName(ctx context.Context, name string) (*models.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, t := range r.tags {
		if t.Name == name {
			out := *t
			return &out, nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *tagRepo) ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Tag, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.Tag{}
	for _, id := range ids {
		if t, ok := r.tags[id]; ok {
			out = append(out, *t)
		}
	}
	return out, nil
}

func (r *tagRepo) List(ctx context.Context) ([]models.Tag, error) {
	r.mu.RLock()
	out := make([]models.Tag, 0, len(r.tags))
	for _, t := range r.tags {
		out = append(out, *t)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Tag) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

type groupRepo struct{ *state }

func cloneGroup(g *models.Group) *models.Group {
	out := *g
	out.Members = cloneIDs(g.Members)
	out.Posts = cloneIDs(g.Posts)
	return &out
}

func (r *groupRepo) Create(ctx context.Context, g *models.Group) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.ID.IsZero() {
		g.ID = primitive.NewObjectID()
	}
	r.groups[g.ID] = cloneGroup(g)
	return nil
}

func (r *groupRepo) ByID(ctx context.Context, id primitive.ObjectID) (*models.Group, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.groups[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneGroup(g), nil
}

func (r *groupRepo) List(ctx context.Context, page database.Page) ([]models.Group, error) {
	r.mu.RLock()
	out := make([]models.Group, 0, len(r.groups))
	for _, g := range r.groups {
		out = append(out, *cloneGroup(g))
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Group) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(b.ID, a.ID)
	})
	return window(out, page), nil
}

func (r *groupRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.groups)), nil
}

func (r *groupRepo) Update(ctx context.Context, id primitive.ObjectID, upd database.GroupUpdate) error {
	return r.mutate(id, func(g *models.Group) {
		if upd.Name != nil {
			g.Name = *upd.Name
		}
		if upd.Description != nil {
			g.Description = *upd.Description
		}
		if upd.Avatar != nil {
			g.Avatar = *upd.Avatar
		}
	})
}

func (r *groupRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.groups[id]; !ok {
		return database.ErrNotFound
	}
	delete(r.groups, id)
	return nil
}

func (r *groupRepo) AddMember(ctx context.Context, id, userID primitive.ObjectID) error {
	return r.mutate(id, func(g *models.Group) { g.Members, _ = addID(g.Members, userID) })
}

func (r *groupRepo) RemoveMember(ctx context.Context, id, userID primitive.ObjectID) error {
	return r.mutate(id, func(g *models.Group) { g.Members, _ = pullID(g.Members, userID) })
}

func (r *groupRepo) RemoveMemberEverywhere(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, g := range r.groups {
		g.Members, _ = pullID(g.Members, userID)
	}
	return nil
}

func (r *groupRepo) AddPost(ctx context.Context, id, postID primitive.ObjectID) error {
	return r.mutate(id, func(g *models.Group) { g.Posts, _ = addID(g.Posts, postID) })
}

func (r *groupRepo) RemovePost(ctx context.Context, id, postID primitive.ObjectID) error {
	return r.mutate(id, func(g *models.Group) { g.Posts, _ = pullID(g.Posts, postID) })
}

func (r *groupRepo) mutate(id primitive.ObjectID, fn func(*models.Group)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.groups[id]
	if !ok {
		return fmt.Errorf("group %s: %w", id.Hex(), database.ErrNotFound)
	}
	fn(g)
	return nil
}
