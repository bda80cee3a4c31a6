package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/chatdir/internal/store"
)

func TestPickUserPublicData_DropsPrivateFields(t *testing.T) {
	req := require.New(t)
	avatar := "http://x/a.png"
	u := &store.User{
		ID:           "u1",
		Username:     "alice",
		Email:        "alice@x.io",
		Avatar:       &avatar,
		PasswordHash: "$2a$10$secret",
		Chats:        []string{"c1"},
		CreatedAt:    time.Now(),
	}

	data, err := json.Marshal(PickUserPublicData(u))
	req.NoError(err)
	req.JSONEq(`{"id":"u1","username":"alice","email":"alice@x.io","avatar":"http://x/a.png"}`, string(data))
}

func TestFoundUser_FlattensPublicFields(t *testing.T) {
	req := require.New(t)
	found := FoundUser{
		PublicUser: PublicUser{ID: "u2", Username: "bob", Email: "bob@x.io"},
		Chat:       SummarizeChat(&store.Chat{ID: "c1", Participants: []string{"u1", "u2"}}),
	}

	var decoded map[string]any
	data, err := json.Marshal(found)
	req.NoError(err)
	req.NoError(json.Unmarshal(data, &decoded))
	req.Equal("u2", decoded["id"])
	req.Nil(decoded["avatar"])
	chat, ok := decoded["chat"].(map[string]any)
	req.True(ok)
	req.Equal("c1", chat["id"])
}

func TestPickChatData_KeepsParticipantOrder(t *testing.T) {
	req := require.New(t)
	pc := &PopulatedChat{
		Chat: &store.Chat{ID: "c1", Participants: []string{"u2", "u1"}},
		Users: []*store.User{
			{ID: "u2", Username: "bob", PasswordHash: "h2"},
			{ID: "u1", Username: "alice", PasswordHash: "h1"},
		},
	}

	view := PickChatData(pc)
	req.Equal("c1", view.ID)
	req.Len(view.Users, 2)
	req.Equal("u2", view.Users[0].ID)
	req.Equal("u1", view.Users[1].ID)

	data, err := json.Marshal(view)
	req.NoError(err)
	req.NotContains(string(data), "h1")
}

func TestSummarizeChat_EmptyParticipants(t *testing.T) {
	summary := SummarizeChat(&store.Chat{ID: "c1"})
	require.NotNil(t, summary.Users)
	require.Empty(t, summary.Users)
}

func TestPickMessageData(t *testing.T) {
	view := PickMessageData(&store.Message{ID: "m1", ChatID: "c1", UserID: "u1", Text: "hi"})
	require.Equal(t, "u1", view.User)
	require.NotNil(t, view.LikedBy)
}

func TestCoreError_Matching(t *testing.T) {
	req := require.New(t)
	err := fmt.Errorf("wrapped: %w", NotFound("No user by following id", store.ErrNotFound))

	req.True(IsNotFound(err))
	req.True(errors.Is(err, store.ErrNotFound))
	req.False(errors.Is(err, ErrBadRequest))
	req.Equal(ErrCodeNotFound, CodeOf(err))
	req.Equal("", CodeOf(errors.New("plain")))

	req.ErrorIs(BadRequest("x"), ErrBadRequest)
	req.ErrorIs(Forbidden("x"), ErrForbidden)

	cause := errors.New("token is expired")
	unauth := Unauthorized("invalid token", cause)
	req.ErrorIs(unauth, ErrUnauthorized)
	req.ErrorIs(unauth, cause)
	req.False(errors.Is(unauth, ErrForbidden))
	req.Equal(ErrCodeUnauthorized, CodeOf(unauth))
}
