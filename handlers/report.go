package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type ReportRequest struct {
	TargetType string `json:"targetType" binding:"required,oneof=Post User"`
	TargetID   string `json:"targetId" binding:"required,objectid"`
	Reason     string `json:"reason" binding:"required"`
}

func (h *Handler) CreateReport(c *gin.Context) {
	var req ReportRequest
	if !bind(c, &req) {
		return
	}
	target, _ := primitive.ObjectIDFromHex(req.TargetID)
	ctx, cancel := requestContext(c)
	defer cancel()

	r, err := h.svc.Reports.Create(ctx, actor(c), req.TargetType, target, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Report submitted", "report": r})
}
