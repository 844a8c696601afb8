package handlers

import (
	"net/http"

	"edunet/middleware"
	"edunet/services"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Username string `json:"username" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	School   string `json:"school"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.Accounts.Register(ctx, services.RegisterInput{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		School:   req.School,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, authResponse(res, "Account created successfully"))
}

func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.Accounts.Login(ctx, req.Email, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse(res, "Login successful"))
}

func authResponse(res *services.AuthResult, message string) gin.H {
	return gin.H{
		"message":   message,
		"token":     res.Token,
		"expiresAt": res.ExpiresAt,
		"user":      res.User,
		"isNewUser": res.IsNewUser,
	}
}

func (h *Handler) Me(c *gin.Context) {
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.svc.Accounts.Me(ctx, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

type UpdateProfileRequest struct {
	Username *string `json:"username"`
	Name     *string `json:"name"`
	Bio      *string `json:"bio"`
	School   *string `json:"school"`
}

func (h *Handler) UpdateMe(c *gin.Context) {
	var req UpdateProfileRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	u, err := h.svc.Accounts.UpdateProfile(ctx, middleware.UserID(c), services.ProfileInput{
		Username: req.Username,
		Name:     req.Name,
		Bio:      req.Bio,
		School:   req.School,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated", "user": u})
}

// UploadAvatar expects a multipart form with the image in the avatar field.
func (h *Handler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file is required"})
		return
	}
	file, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "avatar file cannot be read"})
		return
	}
	defer file.Close()

	ctx, cancel := requestContext(c)
	defer cancel()
	u, err := h.svc.Accounts.UploadAvatar(ctx, middleware.UserID(c), file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Avatar updated", "avatar": u.Avatar, "user": u})
}

type StatusRequest struct {
	IsOnline *bool `json:"isOnline" binding:"required"`
}

func (h *Handler) SetStatus(c *gin.Context) {
	var req StatusRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	if err := h.svc.Accounts.SetStatus(ctx, middleware.UserID(c), *req.IsOnline); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Status updated", "isOnline": *req.IsOnline})
}
