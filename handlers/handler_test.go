package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"edunet/database"
	"edunet/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
	RegisterValidators()
}

func errorBody(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body["error"]
}

func TestRespondError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"invalid input", services.InvalidInput("content is required"), http.StatusBadRequest, "content is required"},
		{"bad id", database.ErrInvalidID, http.StatusBadRequest, "invalid id"},
		{"unauthorized", fmt.Errorf("%w: expired", services.ErrUnauthorized), http.StatusUnauthorized, ""},
		{"forbidden", services.ErrForbidden, http.StatusForbidden, services.ErrForbidden.Error()},
		{"not found", services.ErrNotFound, http.StatusNotFound, services.ErrNotFound.Error()},
		{"repository miss", database.ErrNotFound, http.StatusNotFound, "document not found"},
		{"conflict", services.ErrConflict, http.StatusConflict, services.ErrConflict.Error()},
		{"unavailable", services.ErrUnavailable, http.StatusServiceUnavailable, services.ErrUnavailable.Error()},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout, "Internal server error"},
		{"unexpected", errors.New("socket closed"), http.StatusInternalServerError, "Internal server error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			respondError(c, tt.err)

			assert.Equal(t, tt.status, w.Code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, errorBody(t, w))
			}
		})
	}
}

type sampleRequest struct {
	Email    string `json:"email" binding:"required,email"`
	TargetID string `json:"targetId" binding:"required,objectid"`
	Kind     string `json:"kind" binding:"omitempty,oneof=Post User"`
	Note     string `json:"reasonText" binding:"omitempty,max=5"`
}

func TestBindMessages(t *testing.T) {
	r := gin.New()
	r.POST("/", func(c *gin.Context) {
		var req sampleRequest
		if !bind(c, &req) {
			return
		}
		c.Status(http.StatusNoContent)
	})

	tests := []struct {
		name   string
		body   string
		status int
		msg    string
	}{
		{"valid", `{"email":"a@b.io","targetId":"507f1f77bcf86cd799439011"}`, http.StatusNoContent, ""},
		{"malformed json", `{"email":`, http.StatusBadRequest, "Invalid request body"},
		{"missing fields", `{}`, http.StatusBadRequest, "email is required; targetId is required"},
		{"bad email", `{"email":"nope","targetId":"507f1f77bcf86cd799439011"}`, http.StatusBadRequest, "email must be a valid email"},
		{"bad id", `{"email":"a@b.io","targetId":"123"}`, http.StatusBadRequest, "targetId must be a valid id"},
		{"bad enum", `{"email":"a@b.io","targetId":"507f1f77bcf86cd799439011","kind":"Group"}`, http.StatusBadRequest, "kind must be one of: Post User"},
		{"json key", `{"email":"a@b.io","targetId":"507f1f77bcf86cd799439011","reasonText":"too long"}`, http.StatusBadRequest, "reasonText failed max validation"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(tt.body))
			req.Header.Set("Content-Type", "application/json")
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, errorBody(t, w))
			}
		})
	}
}

func TestPathIDAndPaging(t *testing.T) {
	r := gin.New()
	r.GET("/items/:id", func(c *gin.Context) {
		id, ok := pathID(c, "id")
		if !ok {
			return
		}
		page, limit := paging(c)
		c.JSON(http.StatusOK, gin.H{"id": id.Hex(), "page": page, "limit": limit})
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/xyz", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid id", errorBody(t, w))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/items/507f1f77bcf86cd799439011?page=2&limit=oops", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		ID    string `json:"id"`
		Page  int    `json:"page"`
		Limit int    `json:"limit"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "507f1f77bcf86cd799439011", body.ID)
	assert.Equal(t, 2, body.Page)
	assert.Equal(t, 0, body.Limit)
}
