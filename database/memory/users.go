package memory

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"edunet/database"
	"edunet/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type userRepo struct{ *state }

func cloneUser(u *models.User) *models.User {
	c := *u
	c.Followers = cloneIDs(u.Followers)
	c.Followings = cloneIDs(u.Followings)
	c.Friends = cloneIDs(u.Friends)
	c.Posts = cloneIDs(u.Posts)
	return &c
}

func (r *userRepo) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, other := range r.users {
		if other.Email == u.Email {
			return fmt.Errorf("%w: email %s", database.ErrDuplicate, u.Email)
		}
		if other.Username == u.Username {
			return fmt.Errorf("%w: username %s", database.ErrDuplicate, u.Username)
		}
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	r.users[u.ID] = cloneUser(u)
	return nil
}

func (r *userRepo) ByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *userRepo) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, u := range r.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, database.ErrNotFound
}

func (r *userRepo) ByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *userRepo) ByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *userRepo) ByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []models.User{}
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, *cloneUser(u))
		}
	}
	return out, nil
}

func (r *userRepo) Search(ctx context.Context, query string, limit int64) ([]models.User, error) {
	r.mu.RLock()
	q := strings.ToLower(query)
	out := []models.User{}
	for _, u := range r.users {
		if strings.Contains(strings.ToLower(u.Username), q) || strings.Contains(strings.ToLower(u.Name), q) {
			out = append(out, *cloneUser(u))
		}
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.User) int { return strings.Compare(a.Username, b.Username) })
	return window(out, database.Page{Limit: limit}), nil
}

func (r *userRepo) List(ctx context.Context, page database.Page) ([]models.User, error) {
	r.mu.RLock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *cloneUser(u))
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(b.ID, a.ID)
	})
	return window(out, page), nil
}

func (r *userRepo) Count(ctx context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.users)), nil
}

func (r *userRepo) Update(ctx context.Context, id primitive.ObjectID, upd database.UserUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return database.ErrNotFound
	}
	if upd.Username != nil {
		for oid, other := range r.users {
			if oid != id && other.Username == *upd.Username {
				return fmt.Errorf("%w: username %s", database.ErrDuplicate, *upd.Username)
			}
		}
		u.Username = *upd.Username
	}
	if upd.Name != nil {
		u.Name = *upd.Name
	}
	if upd.Avatar != nil {
		u.Avatar = *upd.Avatar
	}
	if upd.Bio != nil {
		u.Bio = *upd.Bio
	}
	if upd.School != nil {
		u.School = *upd.School
	}
	if upd.Role != nil {
		u.Role = *upd.Role
	}
	if upd.AuthProvider != nil {
		u.AuthProvider = *upd.AuthProvider
	}
	if upd.GoogleID != nil {
		v := *upd.GoogleID
		u.GoogleID = &v
	}
	if upd.LastActive != nil {
		u.LastActive = *upd.LastActive
	}
	return nil
}

func (r *userRepo) SetStatus(ctx context.Context, id primitive.ObjectID, online bool, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.IsOnline = online
	u.LastActive = at
	return nil
}

func userList(m *models.User, list database.UserList) *[]primitive.ObjectID {
	switch list {
	case database.ListFollowers:
		return &m.Followers
	case database.ListFollowings:
		return &m.Followings
	case database.ListFriends:
		return &m.Friends
	case database.ListPosts:
		return &m.Posts
	}
	panic("memory: unknown user list " + string(list))
}

func (r *userRepo) AddToList(ctx context.Context, id primitive.ObjectID, list database.UserList, value primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return database.ErrNotFound
	}
	l := userList(u, list)
	*l, _ = addID(*l, value)
	return nil
}

func (r *userRepo) RemoveFromList(ctx context.Context, id primitive.ObjectID, list database.UserList, value primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[id]
	if !ok {
		return database.ErrNotFound
	}
	l := userList(u, list)
	*l, _ = pullID(*l, value)
	return nil
}

func (r *userRepo) RemoveEverywhere(ctx context.Context, value primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		u.Followers, _ = pullID(u.Followers, value)
		u.Followings, _ = pullID(u.Followings, value)
		u.Friends, _ = pullID(u.Friends, value)
	}
	return nil
}

func (r *userRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.users[id]; !ok {
		return database.ErrNotFound
	}
	delete(r.users, id)
	return nil
}
