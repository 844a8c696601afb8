package services

import (
	"context"
	"fmt"

	"edunet/database"
	"edunet/logger"
	"edunet/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type Social struct {
	store  *database.Store
	notify *Notifications
}

type listEdit struct {
	user  primitive.ObjectID
	list  database.UserList
	value primitive.ObjectID
}

type FollowResult struct {
	Following bool `json:"following"`
	Friends   bool `json:"friends"`
}

// Follow is idempotent. When target already follows me the two become friends.
// Lists are updated one document at a time; a failure midway is logged and
// returned without rolling back the earlier writes.
func (s *Social) Follow(ctx context.Context, me, target primitive.ObjectID) (*FollowResult, error) {
	if me == target {
		return nil, InvalidInput("you cannot follow yourself")
	}
	other, err := s.store.Users.ByID(ctx, target)
	if err != nil {
		return nil, lookup(err, "user")
	}
	alreadyFollowing := containsID(other.Followers, me)
	mutual := containsID(other.Followings, me)

	steps := []listEdit{
		{me, database.ListFollowings, target},
		{target, database.ListFollowers, me},
	}
	if mutual {
		steps = append(steps,
			listEdit{me, database.ListFriends, target},
			listEdit{target, database.ListFriends, me},
		)
	}
	for _, st := range steps {
		if err := s.store.Users.AddToList(ctx, st.user, st.list, st.value); err != nil {
			logger.Log.Error("follow partially applied",
				zap.String("user", st.user.Hex()),
				zap.String("list", string(st.list)),
				zap.Error(err))
			return nil, fmt.Errorf("update %s: %w", st.list, err)
		}
	}

	if !alreadyFollowing {
		s.notify.notifyQuietly(ctx, NotifyInput{UserID: target, ActorID: me, Type: models.NotificationFollow})
	}
	return &FollowResult{Following: true, Friends: mutual}, nil
}

func (s *Social) Unfollow(ctx context.Context, me, target primitive.ObjectID) (*FollowResult, error) {
	if me == target {
		return nil, InvalidInput("you cannot unfollow yourself")
	}
	if _, err := s.store.Users.ByID(ctx, target); err != nil {
		return nil, lookup(err, "user")
	}

	pulls := []listEdit{
		{me, database.ListFollowings, target},
		{target, database.ListFollowers, me},
		{me, database.ListFriends, target},
		{target, database.ListFriends, me},
	}
	for _, p := range pulls {
		if err := s.store.Users.RemoveFromList(ctx, p.user, p.list, p.value); err != nil {
			logger.Log.Error("unfollow partially applied",
				zap.String("user", p.user.Hex()),
				zap.String("list", string(p.list)),
				zap.Error(err))
			return nil, fmt.Errorf("update %s: %w", p.list, err)
		}
	}
	return &FollowResult{}, nil
}

func (s *Social) list(ctx context.Context, userID primitive.ObjectID, pick func(*models.User) []primitive.ObjectID) ([]models.Summary, error) {
	u, err := s.store.Users.ByID(ctx, userID)
	if err != nil {
		return nil, lookup(err, "user")
	}
	return summaryList(ctx, s.store.Users, pick(u))
}

func (s *Social) Followers(ctx context.Context, userID primitive.ObjectID) ([]models.Summary, error) {
	return s.list(ctx, userID, func(u *models.User) []primitive.ObjectID { return u.Followers })
}

func (s *Social) Followings(ctx context.Context, userID primitive.ObjectID) ([]models.Summary, error) {
	return s.list(ctx, userID, func(u *models.User) []primitive.ObjectID { return u.Followings })
}

func (s *Social) Friends(ctx context.Context, userID primitive.ObjectID) ([]models.Summary, error) {
	return s.list(ctx, userID, func(u *models.User) []primitive.ObjectID { return u.Friends })
}
