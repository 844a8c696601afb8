package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"edunet/auth"
	"edunet/database"
	"edunet/logger"
	"edunet/models"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	ctxUserID = "userId"
	ctxRole   = "role"
)

// Auth accepts a Bearer token in the Authorization header, or a token query
// parameter for WebSocket and EventSource clients.
func Auth(tm *auth.TokenManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		// CORS preflight
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		raw, ok := bearer(c)
		if !ok {
			unauthorized(c, "Authentication required", "No authorization token provided")
			return
		}

		claims, err := tm.Parse(raw)
		if err != nil {
			logger.Log.Debug("jwt validation failed", zap.Error(err))
			unauthorized(c, "Invalid token", "Token validation failed")
			return
		}
		id, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			unauthorized(c, "Invalid token", "Token subject is not a user id")
			return
		}

		c.Set(ctxUserID, id)
		c.Set(ctxRole, claims.Role)
		c.Next()
	}
}

func bearer(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" {
		token := c.Query("token")
		return token, token != ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func unauthorized(c *gin.Context, errMsg, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
		"error":   errMsg,
		"message": message,
	})
}

// RoleLookup returns the stored role of a user, or an error matching
// database.ErrNotFound when the account is gone.
type RoleLookup func(ctx context.Context, userID primitive.ObjectID) (string, error)

// AdminOnly must run after Auth. With a lookup the role is read from the store
// rather than the token, so a demoted or deleted admin loses access at once.
func AdminOnly(lookup RoleLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if lookup != nil {
			role, err := lookup(c.Request.Context(), UserID(c))
			switch {
			case errors.Is(err, database.ErrNotFound):
				unauthorized(c, "Account not found", "The account for this token no longer exists")
				return
			case err != nil:
				logger.Log.Error("role lookup failed", zap.String("user", UserID(c).Hex()), zap.Error(err))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
				return
			}
			c.Set(ctxRole, role)
		}
		if Role(c) != models.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Admin access required"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or the nil id outside Auth.
func UserID(c *gin.Context) primitive.ObjectID {
	if v, ok := c.Get(ctxUserID); ok {
		if id, ok := v.(primitive.ObjectID); ok {
			return id
		}
	}
	return primitive.NilObjectID
}

func Role(c *gin.Context) string {
	return c.GetString(ctxRole)
}

func IsAdmin(c *gin.Context) bool {
	return Role(c) == models.RoleAdmin
}

// SetIdentity stores an identity on the context the way Auth does.
func SetIdentity(c *gin.Context, id primitive.ObjectID, role string) {
	c.Set(ctxUserID, id)
	c.Set(ctxRole, role)
}
