package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/idtoken"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

var ErrGoogleDisabled = errors.New("google oauth not configured")

// GoogleUser is the subset of Google profile data used to sign a user in.
type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
}

// DisplayName falls back to the given and family names.
func (g GoogleUser) DisplayName() string {
	if g.Name != "" {
		return g.Name
	}
	if g.GivenName != "" || g.FamilyName != "" {
		return g.GivenName + " " + g.FamilyName
	}
	return ""
}

type GoogleProvider struct {
	conf        *oauth2.Config
	userInfoURL string
	validate    func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// NewGoogleProvider returns nil when the client id or secret is missing.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &GoogleProvider{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
		validate:    idtoken.Validate,
	}
}

// NewState returns a random value for the OAuth state parameter.
func NewState() string { return uuid.NewString() }

func (p *GoogleProvider) AuthURL(state string) (string, error) {
	if p == nil {
		return "", ErrGoogleDisabled
	}
	return p.conf.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// Exchange trades an authorization code for a token and fetches the profile.
// A profile whose email Google has not verified is rejected with ErrInvalidToken.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleUser, error) {
	if p == nil {
		return nil, ErrGoogleDisabled
	}
	tok, err := p.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.conf.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch userinfo: status %d", resp.StatusCode)
	}

	var u GoogleUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if !u.VerifiedEmail {
		return nil, fmt.Errorf("%w: email not verified", ErrInvalidToken)
	}
	return &u, nil
}

var googleIssuers = map[string]bool{
	"accounts.google.com":         true,
	"https://accounts.google.com": true,
}

// VerifyCredential checks a Google Identity Services credential against
// Google's signing keys, our client id as audience, the issuer and expiry,
// and returns the verified profile.
func (p *GoogleProvider) VerifyCredential(ctx context.Context, credential string) (*GoogleUser, error) {
	if p == nil {
		return nil, ErrGoogleDisabled
	}
	payload, err := p.validate(ctx, credential, p.conf.ClientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !googleIssuers[payload.Issuer] {
		return nil, fmt.Errorf("%w: unexpected issuer %q", ErrInvalidToken, payload.Issuer)
	}
	if verified, _ := payload.Claims["email_verified"].(bool); !verified {
		return nil, fmt.Errorf("%w: email not verified", ErrInvalidToken)
	}
	u := &GoogleUser{
		ID:            payload.Subject,
		Email:         stringClaim(payload.Claims, "email"),
		VerifiedEmail: true,
		Name:          stringClaim(payload.Claims, "name"),
		GivenName:     stringClaim(payload.Claims, "given_name"),
		FamilyName:    stringClaim(payload.Claims, "family_name"),
		Picture:       stringClaim(payload.Claims, "picture"),
	}
	if u.Email == "" {
		return nil, fmt.Errorf("%w: credential has no email", ErrInvalidToken)
	}
	return u, nil
}

func stringClaim(claims map[string]any, key string) string {
	if s, ok := claims[key].(string); ok {
		return s
	}
	return ""
}
