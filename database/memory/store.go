// Package memory is an in-process implementation of database.Store. It keeps
// the same semantics as the Mongo repositories and backs the tests and
// STORE=memory runs.
package memory

import (
	"bytes"
	"slices"
	"sync"

	"edunet/database"
	"edunet/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type state struct {
	mu            sync.RWMutex
	users         map[primitive.ObjectID]*models.User
	posts         map[primitive.ObjectID]*models.Post
	comments      map[primitive.ObjectID]*models.Comment
	tags          map[primitive.ObjectID]*models.Tag
	groups        map[primitive.ObjectID]*models.Group
	conversations map[primitive.ObjectID]*models.Conversation
	messages      map[primitive.ObjectID]*models.Message
	notifications map[primitive.ObjectID]*models.Notification
	reports       map[primitive.ObjectID]*models.Report
	subscriptions map[primitive.ObjectID]*models.PushSubscription // keyed by user id
}

// New returns an empty store.
func New() *database.Store {
	s := &state{
		users:         make(map[primitive.ObjectID]*models.User),
		posts:         make(map[primitive.ObjectID]*models.Post),
		comments:      make(map[primitive.ObjectID]*models.Comment),
		tags:          make(map[primitive.ObjectID]*models.Tag),
		groups:        make(map[primitive.ObjectID]*models.Group),
		conversations: make(map[primitive.ObjectID]*models.Conversation),
		messages:      make(map[primitive.ObjectID]*models.Message),
		notifications: make(map[primitive.ObjectID]*models.Notification),
		reports:       make(map[primitive.ObjectID]*models.Report),
		subscriptions: make(map[primitive.ObjectID]*models.PushSubscription),
	}
	return &database.Store{
		Users:         &userRepo{s},
		Posts:         &postRepo{s},
		Comments:      &commentRepo{s},
		Tags:          &tagRepo{s},
		Groups:        &groupRepo{s},
		Conversations: &conversationRepo{s},
		Messages:      &messageRepo{s},
		Notifications: &notificationRepo{s},
		Reports:       &reportRepo{s},
		Subscriptions: &subscriptionRepo{s},
	}
}

func cloneIDs(ids []primitive.ObjectID) []primitive.ObjectID {
	if ids == nil {
		return []primitive.ObjectID{}
	}
	return slices.Clone(ids)
}

func cloneID(id *primitive.ObjectID) *primitive.ObjectID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}

func addID(ids []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	if slices.Contains(ids, id) {
		return ids, false
	}
	return append(ids, id), true
}

func pullID(ids []primitive.ObjectID, id primitive.ObjectID) ([]primitive.ObjectID, bool) {
	out := slices.DeleteFunc(ids, func(v primitive.ObjectID) bool { return v == id })
	return out, len(out) != len(ids)
}

func compareIDs(a, b primitive.ObjectID) int {
	return bytes.Compare(a[:], b[:])
}

func window[T any](items []T, page database.Page) []T {
	if page.Skip > 0 {
		if page.Skip >= int64(len(items)) {
			return []T{}
		}
		items = items[page.Skip:]
	}
	if page.Limit > 0 && page.Limit < int64(len(items)) {
		items = items[:page.Limit]
	}
	return items
}
