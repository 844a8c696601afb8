package handlers

import (
	"context"
	"net/http"

	"edunet/services"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type CreatePostRequest struct {
	Content    string   `json:"content"`
	Media      []string `json:"media" binding:"omitempty,dive,url"`
	Tag        string   `json:"tag"`
	Visibility string   `json:"visibility" binding:"omitempty,oneof=public friends private"`
	GroupID    string   `json:"groupId" binding:"omitempty,objectid"`
}

func (h *Handler) CreatePost(c *gin.Context) {
	var req CreatePostRequest
	if !bind(c, &req) {
		return
	}
	in := services.CreatePostInput{
		Content:    req.Content,
		Media:      req.Media,
		Tag:        req.Tag,
		Visibility: req.Visibility,
	}
	if req.GroupID != "" {
		id, _ := primitive.ObjectIDFromHex(req.GroupID)
		in.GroupID = &id
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.svc.Posts.Create(ctx, actor(c), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Post created successfully", "post": p})
}

func (h *Handler) Feed(c *gin.Context) {
	page, limit := paging(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.Posts.Feed(ctx, actor(c), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// UploadPostMedia stores one file from the media form field and returns its
// URL for use in a later CreatePost.
func (h *Handler) UploadPostMedia(c *gin.Context) {
	fh, err := c.FormFile("media")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media file is required"})
		return
	}
	file, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "media file cannot be read"})
		return
	}
	defer file.Close()

	ctx, cancel := requestContext(c)
	defer cancel()
	url, err := h.svc.Posts.UploadMedia(ctx, actor(c), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"url": url})
}

func (h *Handler) UserPosts(c *gin.Context) {
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}
	page, limit := paging(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.Posts.UserPosts(ctx, actor(c), userID, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) GetPost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.svc.Posts.Get(ctx, actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

type UpdatePostRequest struct {
	Content    *string   `json:"content"`
	Media      *[]string `json:"media"`
	Tag        *string   `json:"tag"`
	Visibility *string   `json:"visibility" binding:"omitempty,oneof=public friends private"`
}

func (h *Handler) UpdatePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req UpdatePostRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	p, err := h.svc.Posts.Update(ctx, actor(c), id, services.UpdatePostInput{
		Content:    req.Content,
		Media:      req.Media,
		Tag:        req.Tag,
		Visibility: req.Visibility,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post updated", "post": p})
}

func (h *Handler) DeletePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Posts.Delete(ctx, actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (h *Handler) ToggleLike(c *gin.Context) {
	h.likeAction(c, h.svc.Posts.ToggleLike)
}

func (h *Handler) Like(c *gin.Context) {
	h.likeAction(c, h.svc.Posts.Like)
}

func (h *Handler) Unlike(c *gin.Context) {
	h.likeAction(c, h.svc.Posts.Unlike)
}

func (h *Handler) likeAction(c *gin.Context, fn func(context.Context, services.Actor, primitive.ObjectID) (*services.LikeResult, error)) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := fn(ctx, actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handler) Likers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.svc.Posts.Likers(ctx, actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

func (h *Handler) SharePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	shares, err := h.svc.Posts.Share(ctx, actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post shared", "shares": shares})
}

func (h *Handler) Comments(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.svc.Posts.Comments(ctx, actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"comments": list, "count": len(list)})
}

type CommentRequest struct {
	Content string   `json:"content" binding:"required"`
	Media   []string `json:"media" binding:"omitempty,dive,url"`
}

func (h *Handler) AddComment(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req CommentRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	comment, err := h.svc.Posts.AddComment(ctx, actor(c), id, req.Content, req.Media)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Comment added", "comment": comment})
}

func (h *Handler) DeleteComment(c *gin.Context) {
	id, ok := pathID(c, "commentId")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Posts.DeleteComment(ctx, actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

func (h *Handler) Tags(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	tags, err := h.svc.Posts.Tags(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"tags": tags, "count": len(tags)})
}

type TagRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *Handler) CreateTag(c *gin.Context) {
	var req TagRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	tag, err := h.svc.Posts.CreateTag(ctx, req.Name)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, tag)
}

func (h *Handler) TagPosts(c *gin.Context) {
	page, limit := paging(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.Posts.TagPosts(ctx, actor(c), c.Param("name"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
