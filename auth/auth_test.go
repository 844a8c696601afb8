package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/idtoken"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret-test-secret-test-secret", time.Hour)

	raw, exp, err := m.Issue("abc123", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), exp, 5*time.Second)

	claims, err := m.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "abc123", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestTokenManager_Rejects(t *testing.T) {
	m := NewTokenManager("secret-one", time.Hour)
	other := NewTokenManager("secret-two", time.Hour)

	raw, _, err := other.Issue("abc", "user")
	require.NoError(t, err)
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenManager("secret-one", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	raw, _, err = expired.Issue("abc", "user")
	require.NoError(t, err)
	_, err = m.Parse(raw)
	assert.ErrorIs(t, err, ErrInvalidToken)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{UserID: "abc"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = m.Parse(none)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}

func TestVerifyCredential_RejectsForgedSignature(t *testing.T) {
	p := NewGoogleProvider("client.apps.googleusercontent.com", "secret", "")
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":            "https://accounts.google.com",
		"aud":            "client.apps.googleusercontent.com",
		"email":          "admin@example.com",
		"email_verified": true,
		"exp":            time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("attacker"))
	require.NoError(t, err)

	_, err = p.VerifyCredential(context.Background(), forged)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyCredential_Claims(t *testing.T) {
	p := NewGoogleProvider("client", "secret", "")
	claims := map[string]any{
		"email":          "ada@example.com",
		"email_verified": true,
		"name":           "Ada",
		"picture":        "https://example.com/a.png",
	}
	issuer := "accounts.google.com"
	var gotAudience string
	p.validate = func(_ context.Context, _, audience string) (*idtoken.Payload, error) {
		gotAudience = audience
		return &idtoken.Payload{Issuer: issuer, Audience: audience, Subject: "g-1", Claims: claims}, nil
	}

	u, err := p.VerifyCredential(context.Background(), "cred")
	require.NoError(t, err)
	assert.Equal(t, "client", gotAudience)
	assert.Equal(t, "g-1", u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.Equal(t, "Ada", u.DisplayName())

	claims["email_verified"] = false
	_, err = p.VerifyCredential(context.Background(), "cred")
	assert.ErrorIs(t, err, ErrInvalidToken)

	claims["email_verified"] = true
	issuer = "https://evil.example.com"
	_, err = p.VerifyCredential(context.Background(), "cred")
	assert.ErrorIs(t, err, ErrInvalidToken)

	p.validate = func(context.Context, string, string) (*idtoken.Payload, error) {
		return nil, errors.New("idtoken: token expired")
	}
	_, err = p.VerifyCredential(context.Background(), "cred")
	assert.ErrorIs(t, err, ErrInvalidToken)

	var disabled *GoogleProvider
	_, err = disabled.VerifyCredential(context.Background(), "cred")
	assert.ErrorIs(t, err, ErrGoogleDisabled)
}

func TestNewState(t *testing.T) {
	a, b := NewState(), NewState()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestGoogleProvider_Disabled(t *testing.T) {
	p := NewGoogleProvider("", "", "")
	assert.Nil(t, p)
	_, err := p.AuthURL("state")
	assert.ErrorIs(t, err, ErrGoogleDisabled)
}

func TestGoogleProvider_AuthURL(t *testing.T) {
	p := NewGoogleProvider("client", "secret", "http://localhost/cb")
	url, err := p.AuthURL("xyz")
	require.NoError(t, err)
	assert.Contains(t, url, "client_id=client")
	assert.Contains(t, url, "state=xyz")
}

// googleStub serves a token endpoint and a userinfo endpoint returning profile.
func googleStub(t *testing.T, p *GoogleProvider, profile map[string]any) {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"access_token": "at", "token_type": "Bearer", "expires_in": 3600})
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer at" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(profile)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	p.conf.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}
	p.userInfoURL = srv.URL + "/userinfo"
}

func TestGoogleProvider_Exchange(t *testing.T) {
	p := NewGoogleProvider("client", "secret", "http://localhost/cb")
	googleStub(t, p, map[string]any{"id": "g-7", "email": "ada@example.com", "verified_email": true, "name": "Ada"})

	u, err := p.Exchange(context.Background(), "code")
	require.NoError(t, err)
	assert.Equal(t, "g-7", u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.True(t, u.VerifiedEmail)
}

func TestGoogleProvider_ExchangeRejectsUnverifiedEmail(t *testing.T) {
	p := NewGoogleProvider("client", "secret", "http://localhost/cb")
	googleStub(t, p, map[string]any{"id": "g-8", "email": "admin@example.com", "verified_email": false})

	u, err := p.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.Nil(t, u)
}
