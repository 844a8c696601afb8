package handlers

import (
	"net/http"

	"edunet/services"

	"github.com/gin-gonic/gin"
)

type CreateGroupRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Avatar      string `json:"avatar" binding:"omitempty,url"`
}

func (h *Handler) CreateGroup(c *gin.Context) {
	var req CreateGroupRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	g, err := h.svc.Groups.Create(ctx, actor(c), req.Name, req.Description, req.Avatar)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Group created", "group": g})
}

func (h *Handler) Groups(c *gin.Context) {
	page, limit := paging(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	groups, err := h.svc.Groups.List(ctx, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"groups": groups, "count": len(groups)})
}

func (h *Handler) GetGroup(c *gin.Context) {
	id, ok := pathID(c, "groupId")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	g, err := h.svc.Groups.Get(ctx, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, g)
}

type UpdateGroupRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Avatar      *string `json:"avatar" binding:"omitempty,url"`
}

func (h *Handler) UpdateGroup(c *gin.Context) {
	id, ok := pathID(c, "groupId")
	if !ok {
		return
	}
	var req UpdateGroupRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	g, err := h.svc.Groups.Update(ctx, actor(c), id, services.GroupInput{
		Name:        req.Name,
		Description: req.Description,
		Avatar:      req.Avatar,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group updated", "group": g})
}

func (h *Handler) DeleteGroup(c *gin.Context) {
	id, ok := pathID(c, "groupId")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Groups.Delete(ctx, actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Group deleted"})
}

func (h *Handler) JoinGroup(c *gin.Context) {
	id, ok := pathID(c, "groupId")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	g, err := h.svc.Groups.Join(ctx, actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Joined group", "group": g})
}

func (h *Handler) LeaveGroup(c *gin.Context) {
	id, ok := pathID(c, "groupId")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	g, err := h.svc.Groups.Leave(ctx, actor(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Left group", "group": g})
}

func (h *Handler) GroupPosts(c *gin.Context) {
	id, ok := pathID(c, "groupId")
	if !ok {
		return
	}
	page, limit := paging(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.Groups.Posts(ctx, actor(c), id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
