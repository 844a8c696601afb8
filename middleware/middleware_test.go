package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"edunet/auth"
	"edunet/database"
	"edunet/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newRouter(tm *auth.TokenManager) *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger())
	r.GET("/me", Auth(tm), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"id": UserID(c).Hex(), "role": Role(c)})
	})
	r.GET("/admin", Auth(tm), AdminOnly(nil), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return r
}

func TestAuth(t *testing.T) {
	tm := auth.NewTokenManager("middleware-test-secret", time.Hour)
	r := newRouter(tm)
	id := primitive.NewObjectID()
	token, _, err := tm.Issue(id.Hex(), models.RoleUser)
	require.NoError(t, err)

	tests := []struct {
		name   string
		target string
		header string
		code   int
	}{
		{"no token", "/me", "", http.StatusUnauthorized},
		{"malformed header", "/me", "Token " + token, http.StatusUnauthorized},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized},
		{"bearer header", "/me", "Bearer " + token, http.StatusOK},
		{"query token", "/me?token=" + token, "", http.StatusOK},
		{"non admin", "/admin", "Bearer " + token, http.StatusForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
			assert.NotEmpty(t, w.Header().Get(RequestIDHeader))
			if tt.code == http.StatusOK {
				assert.Contains(t, w.Body.String(), id.Hex())
			}
		})
	}
}

func TestAdminOnly(t *testing.T) {
	tm := auth.NewTokenManager("middleware-test-secret", time.Hour)
	r := newRouter(tm)
	token, _, err := tm.Issue(primitive.NewObjectID().Hex(), models.RoleAdmin)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAdminOnlyUsesStoredRole(t *testing.T) {
	tm := auth.NewTokenManager("middleware-test-secret", time.Hour)
	roles := map[primitive.ObjectID]string{}
	lookup := func(_ context.Context, id primitive.ObjectID) (string, error) {
		role, ok := roles[id]
		if !ok {
			return "", database.ErrNotFound
		}
		return role, nil
	}
	r := gin.New()
	r.GET("/admin", Auth(tm), AdminOnly(lookup), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"role": Role(c)})
	})

	demoted, promoted, deleted := primitive.NewObjectID(), primitive.NewObjectID(), primitive.NewObjectID()
	roles[demoted] = models.RoleUser
	roles[promoted] = models.RoleAdmin

	tests := []struct {
		name      string
		id        primitive.ObjectID
		claimRole string
		code      int
	}{
		{"demoted admin token", demoted, models.RoleAdmin, http.StatusForbidden},
		{"deleted admin token", deleted, models.RoleAdmin, http.StatusUnauthorized},
		{"promoted user token", promoted, models.RoleUser, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _, err := tm.Issue(tt.id.Hex(), tt.claimRole)
			require.NoError(t, err)
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			assert.Equal(t, tt.code, w.Code)
		})
	}

	lookupErr := func(context.Context, primitive.ObjectID) (string, error) { return "", errors.New("db down") }
	r = gin.New()
	r.GET("/admin", Auth(tm), AdminOnly(lookupErr), func(c *gin.Context) { c.Status(http.StatusOK) })
	token, _, err := tm.Issue(promoted.Hex(), models.RoleAdmin)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimit(t *testing.T) {
	l := NewIPRateLimiter(0.001, 2)
	r := gin.New()
	r.Use(RateLimit(l))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// a different client has its own bucket
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	l.Sweep(-time.Second)
	assert.Empty(t, l.visitors)
}

func TestRequestLogger_KeepsIncomingID(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(), Metrics())
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeader))
}
