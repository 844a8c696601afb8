package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"edunet/auth"
	"edunet/database"
	"edunet/database/memory"
	"edunet/handlers"
	"edunet/middleware"
	"edunet/models"
	"edunet/presence"
	"edunet/services"
	"edunet/websocket"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type app struct {
	router *gin.Engine
	store  *database.Store
}

func newApp(t *testing.T, limiter *middleware.IPRateLimiter) *app {
	t.Helper()
	store := memory.New()
	tokens := auth.NewTokenManager("routes-test-secret", time.Hour)
	tracker := presence.NewMemory()
	hub := websocket.NewHub(tokens, tracker)
	svc := services.New(services.Deps{Store: store, Tokens: tokens, Presence: tracker, Events: hub})
	hub.Bind(svc)
	go hub.Start()
	t.Cleanup(hub.Close)

	return &app{
		router: SetupRouter(Options{
			Handler: handlers.New(svc),
			Tokens:  tokens,
			Hub:     hub,
			Limiter: limiter,
			Origins: []string{"http://localhost:3000"},
			Roles:   svc.Accounts.Role,
		}),
		store: store,
	}
}

func (a *app) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// register creates an account and returns its token and id.
func (a *app) register(t *testing.T, name string) (string, string) {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/api/auth/register", "", gin.H{
		"username": name,
		"email":    name + "@example.com",
		"password": "secret123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	body := decode(t, rec)
	user := body["user"].(map[string]any)
	return body["token"].(string), user["id"].(string)
}

func TestRegisterLoginMe(t *testing.T) {
	a := newApp(t, nil)
	token, _ := a.register(t, "ada")

	rec := a.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "ada2", "email": "ada@example.com", "password": "secret123"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/auth/register", "", gin.H{"username": "bob", "email": "not-an-email", "password": "secret123"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "email must be a valid email", decode(t, rec)["error"])

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong-pass"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "ADA@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, decode(t, rec)["token"])

	rec = a.do(t, http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada", decode(t, rec)["username"])
	assert.NotContains(t, rec.Body.String(), "passwordHash")

	rec = a.do(t, http.MethodGet, "/api/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestPostFlow(t *testing.T) {
	a := newApp(t, nil)
	adaToken, adaID := a.register(t, "ada")
	bobToken, _ := a.register(t, "bob")

	rec := a.do(t, http.MethodPost, "/api/posts", adaToken, gin.H{"content": "hello edunet", "tag": "intro"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	post := decode(t, rec)["post"].(map[string]any)
	postID := post["id"].(string)
	assert.Equal(t, "intro", post["tag"])

	rec = a.do(t, http.MethodPost, "/api/posts", adaToken, gin.H{"content": "x", "visibility": "everyone"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/posts/feed?limit=5", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode(t, rec)
	assert.Len(t, feed["posts"], 1)
	assert.Equal(t, false, feed["hasMore"])

	rec = a.do(t, http.MethodPost, "/api/posts/"+postID+"/like", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decode(t, rec)["liked"])

	rec = a.do(t, http.MethodPost, "/api/posts/"+postID+"/comments", bobToken, gin.H{"content": "welcome"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/posts/not-an-id", bobToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodGet, "/api/posts/"+primitive.NewObjectID().Hex(), bobToken, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = a.do(t, http.MethodDelete, "/api/posts/"+postID, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/auth/notifications/unread-count", adaToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 2, decode(t, rec)["count"])

	rec = a.do(t, http.MethodGet, "/api/posts/user/"+adaID, bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["posts"], 1)

	rec = a.do(t, http.MethodGet, "/api/posts/tags/intro/posts", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["posts"], 1)
}

func TestMessagingRoutes(t *testing.T) {
	a := newApp(t, nil)
	adaToken, _ := a.register(t, "ada")
	bobToken, bobID := a.register(t, "bob")

	rec := a.do(t, http.MethodPost, "/api/auth/messages", adaToken, gin.H{"receiverId": "nope", "text": "hi"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "receiverId must be a valid id", decode(t, rec)["error"])

	rec = a.do(t, http.MethodPost, "/api/auth/messages", adaToken, gin.H{"receiverId": bobID, "text": "hi bob"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = a.do(t, http.MethodGet, "/api/auth/conversations", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	convs := decode(t, rec)["conversations"].([]any)
	require.Len(t, convs, 1)
	convID := convs[0].(map[string]any)["id"].(string)

	rec = a.do(t, http.MethodGet, "/api/auth/conversations/"+convID+"/messages", bobToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	msgs := decode(t, rec)["messages"].([]any)
	require.Len(t, msgs, 1)
	assert.Equal(t, true, msgs[0].(map[string]any)["isRead"])

	rec = a.do(t, http.MethodPost, "/api/auth/conversations", adaToken, gin.H{"participants": []string{bobID}})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["created"])
}

func TestAdminRoutes(t *testing.T) {
	a := newApp(t, nil)
	token, id := a.register(t, "root")

	rec := a.do(t, http.MethodGet, "/api/admin/stats", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	uid, err := primitive.ObjectIDFromHex(id)
	require.NoError(t, err)
	setRole := func(role string) {
		require.NoError(t, a.store.Users.Update(context.Background(), uid, database.UserUpdate{Role: &role}))
	}

	// the stored role wins over the one in the token
	setRole(models.RoleAdmin)
	rec = a.do(t, http.MethodGet, "/api/admin/stats", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["users"])

	rec = a.do(t, http.MethodPut, "/api/admin/reports/"+primitive.NewObjectID().Hex(), token, gin.H{"status": "archived"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/api/auth/login", "", gin.H{"email": "root@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, rec.Code)
	adminToken := decode(t, rec)["token"].(string)

	setRole(models.RoleUser)
	rec = a.do(t, http.MethodGet, "/api/admin/stats", adminToken, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	require.NoError(t, a.store.Users.Delete(context.Background(), uid))
	rec = a.do(t, http.MethodGet, "/api/admin/users", adminToken, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiscRoutes(t *testing.T) {
	a := newApp(t, nil)

	rec := a.do(t, http.MethodGet, "/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode(t, rec)["status"])
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = a.do(t, http.MethodGet, "/api/nothing-here", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Endpoint not found", decode(t, rec)["error"])

	rec = a.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/auth/push/vapid-public-key", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = a.do(t, http.MethodGet, "/api/auth/google/url", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRateLimitedAPI(t *testing.T) {
	a := newApp(t, middleware.NewIPRateLimiter(0.001, 1))

	rec := a.do(t, http.MethodPost, "/api/auth/login", "", gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = a.do(t, http.MethodPost, "/api/auth/login", "", gin.H{})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	// health checks are not limited
	rec = a.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}
