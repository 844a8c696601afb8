package services

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"edunet/auth"
	"edunet/database"
	"edunet/logger"
	"edunet/media"
	"edunet/models"
	"edunet/presence"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

const (
	minPasswordLen = 6
	searchLimit    = 20
)

type Accounts struct {
	store    *database.Store
	tokens   *auth.TokenManager
	google   *auth.GoogleProvider
	presence presence.Tracker
	media    media.Uploader
	now      func() time.Time
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Name     string
	School   string
}

type AuthResult struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
	IsNewUser bool         `json:"isNewUser"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validUsername(name string) error {
	n := utf8.RuneCountInString(name)
	if n < 3 || n > 30 {
		return InvalidInput("username must be between 3 and 30 characters")
	}
	if strings.ContainsAny(name, " \t\n@") {
		return InvalidInput("username cannot contain spaces or @")
	}
	return nil
}

func (s *Accounts) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = normalizeEmail(in.Email)
	if err := validUsername(in.Username); err != nil {
		return nil, err
	}
	if !strings.Contains(in.Email, "@") {
		return nil, InvalidInput("a valid email is required")
	}
	if len(in.Password) < minPasswordLen {
		return nil, InvalidInput("password must be at least 6 characters")
	}

	if _, err := s.store.Users.ByEmail(ctx, in.Email); err == nil {
		return nil, conflict("email already registered")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}
	if _, err := s.store.Users.ByUsername(ctx, in.Username); err == nil {
		return nil, conflict("username already taken")
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}
	now := s.now()
	u := &models.User{
		ID:           primitive.NewObjectID(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: &hash,
		AuthProvider: models.ProviderEmail,
		Role:         models.RoleUser,
		Name:         strings.TrimSpace(in.Name),
		School:       strings.TrimSpace(in.School),
		LastActive:   now,
		CreatedAt:    now,
	}
	if err := s.store.Users.Create(ctx, u); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, conflict("email or username already registered")
		}
		return nil, err
	}
	return s.issue(u, true)
}

func (s *Accounts) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	u, err := s.store.Users.ByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, database.ErrNotFound) {
		return nil, unauthorized("invalid email or password")
	}
	if err != nil {
		return nil, err
	}
	if u.PasswordHash == nil {
		return nil, unauthorized("this account uses Google sign-in")
	}
	if !auth.CheckPassword(*u.PasswordHash, password) {
		return nil, unauthorized("invalid email or password")
	}

	now := s.now()
	if err := s.store.Users.Update(ctx, u.ID, database.UserUpdate{LastActive: &now}); err != nil {
		logger.Log.Warn("update last active", zap.String("user", u.ID.Hex()), zap.Error(err))
	}
	u.LastActive = now
	return s.issue(u, false)
}

var errGoogleDisabled = &reasonError{kind: ErrUnavailable, msg: "Google OAuth not configured"}

// GoogleAuthURL returns the consent URL and the state the callback must echo.
func (s *Accounts) GoogleAuthURL() (url, state string, err error) {
	state = auth.NewState()
	url, err = s.google.AuthURL(state)
	if errors.Is(err, auth.ErrGoogleDisabled) {
		return "", "", errGoogleDisabled
	}
	if err != nil {
		return "", "", err
	}
	return url, state, nil
}

// GoogleCallback completes the code flow. state is the value Google sent back,
// expected the one handed out with the consent URL.
func (s *Accounts) GoogleCallback(ctx context.Context, code, state, expected string) (*AuthResult, error) {
	if s.google == nil {
		return nil, errGoogleDisabled
	}
	if state == "" || subtle.ConstantTimeCompare([]byte(state), []byte(expected)) != 1 {
		return nil, unauthorized("invalid OAuth state")
	}
	if code == "" {
		return nil, InvalidInput("authorization code missing")
	}
	gu, err := s.google.Exchange(ctx, code)
	if errors.Is(err, auth.ErrInvalidToken) {
		logger.Log.Info("google profile rejected", zap.Error(err))
		return nil, unauthorized("Google account email is not verified")
	}
	if err != nil {
		return nil, err
	}
	return s.GoogleLogin(ctx, gu)
}

// GoogleCredential signs in with a Google Identity Services credential once
// its signature, audience and expiry check out.
func (s *Accounts) GoogleCredential(ctx context.Context, credential string) (*AuthResult, error) {
	gu, err := s.google.VerifyCredential(ctx, credential)
	if errors.Is(err, auth.ErrGoogleDisabled) {
		return nil, errGoogleDisabled
	}
	if err != nil {
		logger.Log.Info("google credential rejected", zap.Error(err))
		return nil, unauthorized("invalid Google credential")
	}
	return s.GoogleLogin(ctx, gu)
}

// GoogleLogin signs in the user with the Google account's email, creating the
// account on first use.
func (s *Accounts) GoogleLogin(ctx context.Context, gu *auth.GoogleUser) (*AuthResult, error) {
	email := normalizeEmail(gu.Email)
	if email == "" {
		return nil, InvalidInput("email not provided by Google")
	}
	now := s.now()

	u, err := s.store.Users.ByEmail(ctx, email)
	switch {
	case errors.Is(err, database.ErrNotFound):
		u = newGoogleUser(gu, email, now)
		if err := s.store.Users.Create(ctx, u); err != nil {
			return nil, err
		}
		logger.Log.Info("user created from google", zap.String("user", u.ID.Hex()))
		return s.issue(u, true)
	case err != nil:
		return nil, err
	}

	upd := database.UserUpdate{LastActive: &now}
	if u.GoogleID == nil && gu.ID != "" {
		upd.GoogleID = &gu.ID
	}
	if (u.Avatar == "" || u.Avatar == models.FallbackAvatar) && gu.Picture != "" {
		upd.Avatar = &gu.Picture
		u.Avatar = gu.Picture
	}
	if err := s.store.Users.Update(ctx, u.ID, upd); err != nil {
		logger.Log.Warn("update google user", zap.String("user", u.ID.Hex()), zap.Error(err))
	}
	u.LastActive = now
	return s.issue(u, false)
}

func newGoogleUser(gu *auth.GoogleUser, email string, now time.Time) *models.User {
	username := usernameFromEmail(email)
	name := gu.DisplayName()
	if name == "" {
		name = username
	}
	avatar := gu.Picture
	if avatar == "" {
		avatar = models.FallbackAvatar
	}
	var googleID *string
	if gu.ID != "" {
		id := gu.ID
		googleID = &id
	}
	return &models.User{
		ID:           primitive.NewObjectID(),
		Username:     username,
		Email:        email,
		AuthProvider: models.ProviderGoogle,
		GoogleID:     googleID,
		Role:         models.RoleUser,
		Name:         name,
		Avatar:       avatar,
		LastActive:   now,
		CreatedAt:    now,
	}
}

// usernameFromEmail takes the local part without dots and adds a short random suffix.
func usernameFromEmail(email string) string {
	local, _, _ := strings.Cut(email, "@")
	local = strings.ReplaceAll(local, ".", "")
	if local == "" {
		return "user_" + primitive.NewObjectID().Hex()[16:]
	}
	return local + "_" + primitive.NewObjectID().Hex()[20:]
}

func (s *Accounts) issue(u *models.User, created bool) (*AuthResult, error) {
	token, exp, err := s.tokens.Issue(u.ID.Hex(), u.Role)
	if err != nil {
		return nil, err
	}
	return &AuthResult{Token: token, ExpiresAt: exp, User: u, IsNewUser: created}, nil
}

func (s *Accounts) Me(ctx context.Context, me primitive.ObjectID) (*models.User, error) {
	u, err := s.store.Users.ByID(ctx, me)
	if err != nil {
		return nil, lookup(err, "user")
	}
	return u, nil
}

// Role returns the stored role of a user. A missing user yields the
// repository's database.ErrNotFound unchanged.
func (s *Accounts) Role(ctx context.Context, id primitive.ObjectID) (string, error) {
	u, err := s.store.Users.ByID(ctx, id)
	if err != nil {
		return "", err
	}
	return u.Role, nil
}

// Profile is the public view of a user.
type Profile struct {
	models.Summary
	Bio             string    `json:"bio"`
	School          string    `json:"school"`
	Role            string    `json:"role"`
	FollowersCount  int       `json:"followersCount"`
	FollowingsCount int       `json:"followingsCount"`
	FriendsCount    int       `json:"friendsCount"`
	PostsCount      int       `json:"postsCount"`
	IsFollowing     bool      `json:"isFollowing"`
	IsFriend        bool      `json:"isFriend"`
	LastActive      time.Time `json:"lastActive"`
	CreatedAt       time.Time `json:"createdAt"`
}

func (s *Accounts) Profile(ctx context.Context, viewer, id primitive.ObjectID) (*Profile, error) {
	u, err := s.store.Users.ByID(ctx, id)
	if err != nil {
		return nil, lookup(err, "user")
	}
	return &Profile{
		Summary:         u.Summary(),
		Bio:             u.Bio,
		School:          u.School,
		Role:            u.Role,
		FollowersCount:  len(u.Followers),
		FollowingsCount: len(u.Followings),
		FriendsCount:    len(u.Friends),
		PostsCount:      len(u.Posts),
		IsFollowing:     containsID(u.Followers, viewer),
		IsFriend:        containsID(u.Friends, viewer),
		LastActive:      u.LastActive,
		CreatedAt:       u.CreatedAt,
	}, nil
}

type ProfileInput struct {
	Username *string
	Name     *string
	Bio      *string
	School   *string
}

func (s *Accounts) UpdateProfile(ctx context.Context, me primitive.ObjectID, in ProfileInput) (*models.User, error) {
	upd := database.UserUpdate{Name: trimPtr(in.Name), Bio: trimPtr(in.Bio), School: trimPtr(in.School)}
	if in.Username != nil {
		name := strings.TrimSpace(*in.Username)
		if err := validUsername(name); err != nil {
			return nil, err
		}
		upd.Username = &name
	}
	if upd.Empty() {
		return nil, InvalidInput("no changes to update")
	}

	if err := s.store.Users.Update(ctx, me, upd); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, conflict("username already taken")
		}
		return nil, lookup(err, "user")
	}
	return s.Me(ctx, me)
}

func (s *Accounts) UploadAvatar(ctx context.Context, me primitive.ObjectID, file io.Reader) (*models.User, error) {
	url, err := s.media.Upload(ctx, file, media.FolderAvatars, me.Hex())
	if errors.Is(err, media.ErrDisabled) {
		return nil, &reasonError{kind: ErrUnavailable, msg: "media uploads are not configured"}
	}
	if err != nil {
		return nil, err
	}
	if err := s.store.Users.Update(ctx, me, database.UserUpdate{Avatar: &url}); err != nil {
		return nil, lookup(err, "user")
	}
	return s.Me(ctx, me)
}

func (s *Accounts) Search(ctx context.Context, query string) ([]models.Summary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, InvalidInput("search query is required")
	}
	users, err := s.store.Users.Search(ctx, query, searchLimit)
	if err != nil {
		return nil, err
	}
	out := make([]models.Summary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out, nil
}

// SetStatus records the online flag on the user and mirrors it to presence.
func (s *Accounts) SetStatus(ctx context.Context, me primitive.ObjectID, online bool) error {
	if err := s.store.Users.SetStatus(ctx, me, online, s.now()); err != nil {
		return lookup(err, "user")
	}
	var err error
	if online {
		err = s.presence.SetOnline(ctx, me)
	} else {
		err = s.presence.SetOffline(ctx, me)
	}
	if err != nil {
		logger.Log.Warn("presence update failed", zap.String("user", me.Hex()), zap.Error(err))
	}
	return nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
