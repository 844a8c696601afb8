package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	stateCookie    = "oauth_state"
	stateCookieAge = 10 * 60
)

func setStateCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, value, maxAge, "/api/auth/google", "", gin.Mode() == gin.ReleaseMode, true)
}

// GoogleURL returns the consent URL and pins its state to the browser in a
// short-lived cookie.
func (h *Handler) GoogleURL(c *gin.Context) {
	url, state, err := h.svc.Accounts.GoogleAuthURL()
	if err != nil {
		respondError(c, err)
		return
	}
	setStateCookie(c, state, stateCookieAge)
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// GoogleCallback completes the OAuth code flow started by GoogleURL.
func (h *Handler) GoogleCallback(c *gin.Context) {
	expected, _ := c.Cookie(stateCookie)
	setStateCookie(c, "", -1)
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.Accounts.GoogleCallback(ctx, c.Query("code"), c.Query("state"), expected)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse(res, "Authentication successful"))
}

type GoogleCredentialRequest struct {
	Credential string `json:"credential" binding:"required"`
}

// GoogleCredential signs in with a Google Identity Services credential.
func (h *Handler) GoogleCredential(c *gin.Context) {
	var req GoogleCredentialRequest
	if !bind(c, &req) {
		return
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	res, err := h.svc.Accounts.GoogleCredential(ctx, req.Credential)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, authResponse(res, "Authentication successful"))
}
