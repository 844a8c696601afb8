package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"edunet/database"
	"edunet/logger"
	"edunet/media"
	"edunet/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Posts covers posts and everything hanging off them: likes, comments,
// shares and tags.
type Posts struct {
	store  *database.Store
	notify *Notifications
	media  media.Uploader
	now    func() time.Time
}

type CreatePostInput struct {
	Content    string
	Media      []string
	Tag        string
	Visibility string
	GroupID    *primitive.ObjectID
}

type UpdatePostInput struct {
	Content    *string
	Media      *[]string
	Tag        *string
	Visibility *string
}

type FeedPage struct {
	Posts   []models.PostView `json:"posts"`
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
	HasMore bool              `json:"hasMore"`
}

func normalizeTag(name string) string {
	return strings.ToLower(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(name), "#")))
}

func (s *Posts) Create(ctx context.Context, actor Actor, in CreatePostInput) (*models.PostView, error) {
	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.Media) == 0 {
		return nil, InvalidInput("post content or media is required")
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !models.ValidVisibility(visibility) {
		return nil, InvalidInput("visibility must be public, friends or private")
	}

	if in.GroupID != nil {
		g, err := s.store.Groups.ByID(ctx, *in.GroupID)
		if err != nil {
			return nil, lookup(err, "group")
		}
		if !g.HasMember(actor.ID) {
			return nil, forbidden("only group members can post in this group")
		}
	}

	now := s.now()
	p := &models.Post{
		ID:         primitive.NewObjectID(),
		UserID:     actor.ID,
		Content:    content,
		Media:      in.Media,
		Visibility: visibility,
		GroupID:    in.GroupID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if tag := normalizeTag(in.Tag); tag != "" {
		t, err := s.store.Tags.FindOrCreate(ctx, tag)
		if err != nil {
			return nil, fmt.Errorf("tag: %w", err)
		}
		p.TagID = &t.ID
	}

	if err := s.store.Posts.Create(ctx, p); err != nil {
		return nil, err
	}
	if err := s.store.Users.AddToList(ctx, actor.ID, database.ListPosts, p.ID); err != nil {
		logger.Log.Warn("append post to user", zap.String("post", p.ID.Hex()), zap.Error(err))
	}
	if p.GroupID != nil {
		if err := s.store.Groups.AddPost(ctx, *p.GroupID, p.ID); err != nil {
			logger.Log.Warn("append post to group", zap.String("post", p.ID.Hex()), zap.Error(err))
		}
	}
	return s.view(ctx, actor.ID, p)
}

// canView applies the visibility rules to a single post.
func (s *Posts) canView(ctx context.Context, actor Actor, p *models.Post) (bool, error) {
	if actor.IsAdmin() || p.UserID == actor.ID {
		return true, nil
	}
	if p.GroupID != nil {
		g, err := s.store.Groups.ByID(ctx, *p.GroupID)
		if err != nil && !errors.Is(err, database.ErrNotFound) {
			return false, err
		}
		if g == nil || !g.HasMember(actor.ID) {
			return false, nil
		}
	}
	switch p.Visibility {
	case models.VisibilityPublic:
		return true, nil
	case models.VisibilityFriends:
		me, err := s.store.Users.ByID(ctx, actor.ID)
		if err != nil {
			return false, lookup(err, "user")
		}
		return containsID(me.Friends, p.UserID), nil
	}
	return false, nil
}

// visible loads a post the actor is allowed to see. Hidden posts are reported
// as missing.
func (s *Posts) visible(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Post, error) {
	p, err := s.store.Posts.ByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "post")
	}
	ok, err := s.canView(ctx, actor, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound("post")
	}
	return p, nil
}

func (s *Posts) Get(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.PostView, error) {
	p, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.view(ctx, actor.ID, p)
}

func (s *Posts) owned(ctx context.Context, actor Actor, id primitive.ObjectID) (*models.Post, error) {
	p, err := s.store.Posts.ByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "post")
	}
	if p.UserID != actor.ID && !actor.IsAdmin() {
		return nil, forbidden("only the author can change this post")
	}
	return p, nil
}

func (s *Posts) Update(ctx context.Context, actor Actor, id primitive.ObjectID, in UpdatePostInput) (*models.PostView, error) {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	upd := database.PostUpdate{Media: in.Media}
	if in.Content != nil {
		content := strings.TrimSpace(*in.Content)
		upd.Content = &content
	}
	if in.Visibility != nil {
		if !models.ValidVisibility(*in.Visibility) {
			return nil, InvalidInput("visibility must be public, friends or private")
		}
		upd.Visibility = in.Visibility
	}
	if in.Tag != nil {
		if tag := normalizeTag(*in.Tag); tag != "" {
			t, err := s.store.Tags.FindOrCreate(ctx, tag)
			if err != nil {
				return nil, fmt.Errorf("tag: %w", err)
			}
			upd.TagID = &t.ID
		}
	}

	content, mediaCount := p.Content, len(p.Media)
	if upd.Content != nil {
		content = *upd.Content
	}
	if upd.Media != nil {
		mediaCount = len(*upd.Media)
	}
	if content == "" && mediaCount == 0 {
		return nil, InvalidInput("post content or media is required")
	}

	if err := s.store.Posts.Update(ctx, id, upd); err != nil {
		return nil, lookup(err, "post")
	}
	updated, err := s.store.Posts.ByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "post")
	}
	return s.view(ctx, actor.ID, updated)
}

func (s *Posts) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	p, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	return s.remove(ctx, p)
}

// remove deletes a post with its comments and unlinks it from its author and group.
func (s *Posts) remove(ctx context.Context, p *models.Post) error {
	if err := s.store.Comments.DeleteByPost(ctx, p.ID); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	if err := s.store.Posts.Delete(ctx, p.ID); err != nil {
		return lookup(err, "post")
	}
	if err := s.store.Users.RemoveFromList(ctx, p.UserID, database.ListPosts, p.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
		logger.Log.Warn("unlink post from user", zap.String("post", p.ID.Hex()), zap.Error(err))
	}
	if p.GroupID != nil {
		if err := s.store.Groups.RemovePost(ctx, *p.GroupID, p.ID); err != nil && !errors.Is(err, database.ErrNotFound) {
			logger.Log.Warn("unlink post from group", zap.String("post", p.ID.Hex()), zap.Error(err))
		}
	}
	return nil
}

func (s *Posts) viewerFilter(ctx context.Context, actor Actor) (database.PostFilter, error) {
	f := database.PostFilter{Viewer: actor.ID, Admin: actor.IsAdmin(), ExcludeGroups: true}
	if f.Admin {
		return f, nil
	}
	me, err := s.store.Users.ByID(ctx, actor.ID)
	if err != nil {
		return f, lookup(err, "user")
	}
	f.Friends = me.Friends
	return f, nil
}

// Feed lists public posts, the caller's own posts and friends-only posts of
// friends, newest first. Group posts are only listed inside their group.
func (s *Posts) Feed(ctx context.Context, actor Actor, page, limit int) (*FeedPage, error) {
	f, err := s.viewerFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	return s.page(ctx, actor, f, page, limit)
}

func (s *Posts) UserPosts(ctx context.Context, actor Actor, userID primitive.ObjectID, page, limit int) (*FeedPage, error) {
	if _, err := s.store.Users.ByID(ctx, userID); err != nil {
		return nil, lookup(err, "user")
	}
	f, err := s.viewerFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	f.UserID = &userID
	return s.page(ctx, actor, f, page, limit)
}

func (s *Posts) TagPosts(ctx context.Context, actor Actor, name string, page, limit int) (*FeedPage, error) {
	t, err := s.store.Tags.ByName(ctx, normalizeTag(name))
	if err != nil {
		return nil, lookup(err, "tag")
	}
	f, err := s.viewerFilter(ctx, actor)
	if err != nil {
		return nil, err
	}
	f.TagID = &t.ID
	return s.page(ctx, actor, f, page, limit)
}

// page fetches one extra row to learn whether another page exists.
func (s *Posts) page(ctx context.Context, actor Actor, f database.PostFilter, page, limit int) (*FeedPage, error) {
	w := Paging(page, limit)
	probe := w
	probe.Limit++
	posts, err := s.store.Posts.Find(ctx, f, probe)
	if err != nil {
		return nil, err
	}
	more := int64(len(posts)) > w.Limit
	if more {
		posts = posts[:w.Limit]
	}
	views, err := s.views(ctx, actor.ID, posts)
	if err != nil {
		return nil, err
	}
	return &FeedPage{
		Posts:   views,
		Page:    int(w.Skip/w.Limit) + 1,
		Limit:   int(w.Limit),
		HasMore: more,
	}, nil
}

func (s *Posts) view(ctx context.Context, viewer primitive.ObjectID, p *models.Post) (*models.PostView, error) {
	views, err := s.views(ctx, viewer, []models.Post{*p})
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// views resolves authors and tags for a batch of posts.
func (s *Posts) views(ctx context.Context, viewer primitive.ObjectID, posts []models.Post) ([]models.PostView, error) {
	authorIDs := make([]primitive.ObjectID, 0, len(posts))
	tagIDs := make([]primitive.ObjectID, 0, len(posts))
	for i := range posts {
		authorIDs = append(authorIDs, posts[i].UserID)
		if posts[i].TagID != nil {
			tagIDs = append(tagIDs, *posts[i].TagID)
		}
	}
	authors, err := summaries(ctx, s.store.Users, authorIDs)
	if err != nil {
		return nil, err
	}
	tags, err := s.store.Tags.ByIDs(ctx, uniqueIDs(tagIDs))
	if err != nil {
		return nil, err
	}
	tagNames := make(map[primitive.ObjectID]string, len(tags))
	for _, t := range tags {
		tagNames[t.ID] = t.Name
	}

	out := make([]models.PostView, 0, len(posts))
	for i := range posts {
		p := &posts[i]
		v := models.PostView{
			Post:         p,
			User:         authors[p.UserID],
			LikesCount:   len(p.Likes),
			CommentCount: len(p.Comments),
			Liked:        p.LikedBy(viewer),
		}
		if p.TagID != nil {
			v.Tag = tagNames[*p.TagID]
		}
		out = append(out, v)
	}
	return out, nil
}

func (s *Posts) UploadMedia(ctx context.Context, actor Actor, file io.Reader) (string, error) {
	publicID := actor.ID.Hex() + "_" + s.now().Format("20060102150405.000000")
	url, err := s.media.Upload(ctx, file, media.FolderPosts, strings.ReplaceAll(publicID, ".", ""))
	if errors.Is(err, media.ErrDisabled) {
		return "", &reasonError{kind: ErrUnavailable, msg: "media uploads are not configured"}
	}
	return url, err
}

// Share bumps the share counter and tells the author.
func (s *Posts) Share(ctx context.Context, actor Actor, id primitive.ObjectID) (int, error) {
	p, err := s.visible(ctx, actor, id)
	if err != nil {
		return 0, err
	}
	shares, err := s.store.Posts.IncShares(ctx, id)
	if err != nil {
		return 0, lookup(err, "post")
	}
	s.notify.notifyQuietly(ctx, NotifyInput{UserID: p.UserID, ActorID: actor.ID, Type: models.NotificationShare, PostID: &p.ID})
	return shares, nil
}
