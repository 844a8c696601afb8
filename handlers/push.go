package handlers

import (
	"net/http"

	"edunet/middleware"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
)

func (h *Handler) VapidPublicKey(c *gin.Context) {
	key := h.svc.Notifications.PushPublicKey()
	if key == "" {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "VAPID public key not configured"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": key})
}

// SubscribePush takes the browser's PushSubscription JSON as the body.
func (h *Handler) SubscribePush(c *gin.Context) {
	var sub webpush.Subscription
	if !bind(c, &sub) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Notifications.Subscribe(ctx, middleware.UserID(c), sub); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Push subscription saved successfully"})
}
