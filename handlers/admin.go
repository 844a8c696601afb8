package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Stats(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	st, err := h.svc.Admin.Stats(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h *Handler) AdminUsers(c *gin.Context) {
	page, limit := paging(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	users, err := h.svc.Admin.Users(ctx, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "count": len(users)})
}

type RoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user admin"`
}

func (h *Handler) SetRole(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req RoleRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.svc.Admin.SetRole(ctx, actor(c), id, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Role updated", "user": u})
}

func (h *Handler) AdminDeleteUser(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Admin.DeleteUser(ctx, actor(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User deleted"})
}

func (h *Handler) AdminDeletePost(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Admin.DeletePost(ctx, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Post deleted"})
}

func (h *Handler) Reports(c *gin.Context) {
	page, limit := paging(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	list, err := h.svc.Reports.List(ctx, c.Query("status"), page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": list, "count": len(list)})
}

type ReportStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=resolved dismissed"`
}

func (h *Handler) UpdateReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req ReportStatusRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.svc.Reports.SetStatus(ctx, id, req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report updated", "report": r})
}
