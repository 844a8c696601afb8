// Package services holds the domain rules of the social network. Handlers and
// the WebSocket hub call into it; it reaches storage only through
// database.Store.
package services

import (
	"context"
	"time"

	"edunet/auth"
	"edunet/database"
	"edunet/media"
	"edunet/models"
	"edunet/presence"
	"edunet/push"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Event is a real-time message. It reaches the members of Room, the sockets
// of Users, or everyone when Broadcast is set. Each socket gets it once.
type Event struct {
	Type      string
	Payload   any
	Room      string
	Users     []primitive.ObjectID
	Broadcast bool
}

// Publisher delivers events on a best-effort basis.
type Publisher interface {
	Publish(ev Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID   primitive.ObjectID
	Role string
}

func (a Actor) IsAdmin() bool { return a.Role == models.RoleAdmin }

type Deps struct {
	Store    *database.Store
	Tokens   *auth.TokenManager
	Google   *auth.GoogleProvider
	Presence presence.Tracker
	Media    media.Uploader
	Push     push.Sender
	Events   Publisher
	Now      func() time.Time
}

type Services struct {
	Accounts      *Accounts
	Social        *Social
	Posts         *Posts
	Groups        *Groups
	Messaging     *Messaging
	Notifications *Notifications
	Reports       *Reports
	Admin         *Admin
}

func New(d Deps) *Services {
	if d.Presence == nil {
		d.Presence = presence.NewMemory()
	}
	if d.Media == nil {
		d.Media = media.Disabled{}
	}
	if d.Push == nil {
		d.Push = push.Nop{}
	}
	if d.Events == nil {
		d.Events = nopPublisher{}
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}

	notifications := &Notifications{store: d.Store, events: d.Events, push: d.Push, now: d.Now}
	posts := &Posts{store: d.Store, notify: notifications, media: d.Media, now: d.Now}
	return &Services{
		Accounts:      &Accounts{store: d.Store, tokens: d.Tokens, google: d.Google, presence: d.Presence, media: d.Media, now: d.Now},
		Social:        &Social{store: d.Store, notify: notifications},
		Posts:         posts,
		Groups:        &Groups{store: d.Store, posts: posts, now: d.Now},
		Messaging:     &Messaging{store: d.Store, events: d.Events, push: d.Push, now: d.Now},
		Notifications: notifications,
		Reports:       &Reports{store: d.Store, now: d.Now},
		Admin:         &Admin{store: d.Store, presence: d.Presence, posts: posts},
	}
}

// Pagination bounds.
const (
	DefaultLimit = 10
	MaxLimit     = 50
	MaxPage      = 100000
)

// Paging converts a 1-based page number and a page size into a window,
// clamping the size to MaxLimit and the page to MaxPage.
func Paging(page, limit int) database.Page {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if limit < 1 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	return database.Page{Skip: int64((page - 1) * limit), Limit: int64(limit)}
}

// summaries resolves ids to user summaries in the order given. Ids of deleted
// users map to a placeholder.
func summaries(ctx context.Context, users database.UserRepository, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Summary, error) {
	found, err := users.ByIDs(ctx, uniqueIDs(ids))
	if err != nil {
		return nil, err
	}
	out := make(map[primitive.ObjectID]models.Summary, len(ids))
	for i := range found {
		out[found[i].ID] = found[i].Summary()
	}
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = models.UnknownSummary(id)
		}
	}
	return out, nil
}

func summaryList(ctx context.Context, users database.UserRepository, ids []primitive.ObjectID) ([]models.Summary, error) {
	found, err := users.ByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]models.Summary, 0, len(found))
	for i := range found {
		out = append(out, found[i].Summary())
	}
	return out, nil
}

func uniqueIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func containsID(ids []primitive.ObjectID, id primitive.ObjectID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
