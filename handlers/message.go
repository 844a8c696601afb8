package handlers

import (
	"net/http"

	"edunet/middleware"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func (h *Handler) Conversations(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	convs, err := h.svc.Messaging.Conversations(ctx, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"conversations": convs, "count": len(convs)})
}

type ConversationRequest struct {
	Participants []string `json:"participants" binding:"required,min=1,dive,objectid"`
}

// CreateConversation returns the existing conversation between the caller and
// participants, or creates it.
func (h *Handler) CreateConversation(c *gin.Context) {
	var req ConversationRequest
	if !bind(c, &req) {
		return
	}
	others := make([]primitive.ObjectID, 0, len(req.Participants))
	for _, p := range req.Participants {
		id, _ := primitive.ObjectIDFromHex(p)
		others = append(others, id)
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	conv, created, err := h.svc.Messaging.FindOrCreateConversation(ctx, middleware.UserID(c), others)
	if err != nil {
		respondError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, gin.H{"conversation": conv, "created": created})
}

// Messages lists a conversation oldest first. Without a limit the whole
// history is returned.
func (h *Handler) Messages(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	page, limit := paging(c)
	ctx, cancel := requestContext(c)
	defer cancel()

	msgs, err := h.svc.Messaging.Messages(ctx, middleware.UserID(c), id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs, "count": len(msgs)})
}

type SendMessageRequest struct {
	ReceiverID string `json:"receiverId" binding:"required,objectid"`
	Text       string `json:"text" binding:"required"`
}

func (h *Handler) SendMessage(c *gin.Context) {
	var req SendMessageRequest
	if !bind(c, &req) {
		return
	}
	receiver, _ := primitive.ObjectIDFromHex(req.ReceiverID)
	ctx, cancel := requestContext(c)
	defer cancel()

	msg, err := h.svc.Messaging.SendMessage(ctx, middleware.UserID(c), receiver, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Message sent", "data": msg})
}
