package memory

import (
	"context"
	"slices"
	"time"

	"edunet/database"
	"edunet/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type postRepo struct{ *state }

func clonePost(p *models.Post) *models.Post {
	c := *p
	c.Media = slices.Clone(p.Media)
	if c.Media == nil {
		c.Media = []string{}
	}
	c.Likes = cloneIDs(p.Likes)
	c.Comments = cloneIDs(p.Comments)
	c.TagID = cloneID(p.TagID)
	c.GroupID = cloneID(p.GroupID)
	return &c
}

func matchPost(p *models.Post, f database.PostFilter) bool {
	if f.UserID != nil && p.UserID != *f.UserID {
		return false
	}
	if f.TagID != nil && (p.TagID == nil || *p.TagID != *f.TagID) {
		return false
	}
	if f.GroupID != nil {
		if p.GroupID == nil || *p.GroupID != *f.GroupID {
			return false
		}
	} else if f.ExcludeGroups && p.GroupID != nil {
		return false
	}
	if f.Viewer.IsZero() || f.Admin {
		return true
	}
	switch {
	case p.Visibility == models.VisibilityPublic:
		return true
	case p.UserID == f.Viewer:
		return true
	case p.Visibility == models.VisibilityFriends:
		return slices.Contains(f.Friends, p.UserID)
	}
	return false
}

func (r *postRepo) Create(ctx context.Context, p *models.Post) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	r.posts[p.ID] = clonePost(p)
	return nil
}

func (r *postRepo) ByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.posts[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return clonePost(p), nil
}

func (r *postRepo) Find(ctx context.Context, f database.PostFilter, page database.Page) ([]models.Post, error) {
	r.mu.RLock()
	out := []models.Post{}
	for _, p := range r.posts {
		if matchPost(p, f) {
			out = append(out, *clonePost(p))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Post) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(b.ID, a.ID)
	})
	return window(out, page), nil
}

func (r *postRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.posts)), nil
}

func (r *postRepo) Update(ctx context.Context, id primitive.ObjectID, upd database.PostUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[id]
	if !ok {
		return database.ErrNotFound
	}
	if upd.Content != nil {
		p.Content = *upd.Content
	}
	if upd.Media != nil {
		p.Media = slices.Clone(*upd.Media)
	}
	if upd.TagID != nil {
		p.TagID = cloneID(upd.TagID)
	}
	if upd.Visibility != nil {
		p.Visibility = *upd.Visibility
	}
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (r *postRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.posts[id]; !ok {
		return database.ErrNotFound
	}
	delete(r.posts, id)
	return nil
}

func (r *postRepo) ByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Post, error) {
	uid := userID
	return r.Find(ctx, database.PostFilter{UserID: &uid}, database.Page{})
}

func (r *postRepo) AddLike(ctx context.Context, postID, userID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok {
		return false, database.ErrNotFound
	}
	var added bool
	p.Likes, added = addID(p.Likes, userID)
	return added, nil
}

func (r *postRepo) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok {
		return false, database.ErrNotFound
	}
	var removed bool
	p.Likes, removed = pullID(p.Likes, userID)
	return removed, nil
}

func (r *postRepo) RemoveLikesBy(ctx context.Context, userID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.posts {
		p.Likes, _ = pullID(p.Likes, userID)
	}
	return nil
}

func (r *postRepo) AddComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok {
		return database.ErrNotFound
	}
	p.Comments = append(p.Comments, commentID)
	return nil
}

func (r *postRepo) RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok {
		return database.ErrNotFound
	}
	p.Comments, _ = pullID(p.Comments, commentID)
	return nil
}

func (r *postRepo) IncShares(ctx context.Context, postID primitive.ObjectID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.posts[postID]
	if !ok {
		return 0, database.ErrNotFound
	}
	p.Shares++
	return p.Shares, nil
}
