package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestParticipantSet(t *testing.T) {
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()

	assert.Equal(t, ParticipantSet(a, b), ParticipantSet(b, a))
	assert.Equal(t, ParticipantSet(a, b), ParticipantSet(b, a, b))
	assert.Len(t, ParticipantSet(a, a), 1)
}

func TestUserSummaryFallbacks(t *testing.T) {
	u := &User{ID: primitive.NewObjectID(), Username: "ada"}
	s := u.Summary()
	assert.Equal(t, "ada", s.Name)
	assert.Equal(t, FallbackAvatar, s.Avatar)
}
