package messages

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/chatdir/internal/core"
	"github.com/vovakirdan/chatdir/internal/store"
	"github.com/vovakirdan/chatdir/internal/store/sqlite"
)

type testEnv struct {
	svc   *Service
	st    *sqlite.SQLiteStore
	chat  *store.Chat
	alice string
	bob   string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	alice := &store.User{Username: "alice", Email: "alice@x.io"}
	bob := &store.User{Username: "bob", Email: "bob@x.io"}
	require.NoError(t, st.CreateUser(ctx, alice))
	require.NoError(t, st.CreateUser(ctx, bob))

	key := store.DirectKey(alice.ID, bob.ID)
	chat := &store.Chat{Participants: []string{alice.ID, bob.ID}, DirectKey: &key}
	require.NoError(t, st.CreateChat(ctx, chat))

	return &testEnv{svc: New(st), st: st, chat: chat, alice: alice.ID, bob: bob.ID}
}

func TestSendAndList(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	for _, text := range []string{"hi", "hello", "how are you"} {
		msg, err := env.svc.Send(ctx, env.chat.ID, env.alice, text)
		req.NoError(err)
		req.Equal(text, msg.Text)
		req.Equal(env.alice, msg.UserID)
		req.Empty(msg.LikedBy)
	}

	page, err := env.svc.List(ctx, env.chat.ID, env.bob, 2, nil)
	req.NoError(err)
	req.Len(page, 2)

	all, err := env.svc.List(ctx, env.chat.ID, env.bob, 0, nil)
	req.NoError(err)
	req.Len(all, 3)
	req.Equal("how are you", all[0].Text)
	req.Equal("hi", all[2].Text)
}

func TestSend_ValidatesText(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Send(ctx, env.chat.ID, env.alice, "  ")
	req.ErrorIs(err, core.ErrBadRequest)

	_, err = env.svc.Send(ctx, env.chat.ID, env.alice, strings.Repeat("x", MaxTextLength+1))
	req.ErrorIs(err, core.ErrBadRequest)
}

func TestOutsider_IsForbidden(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	carol := &store.User{Username: "carol", Email: "carol@x.io"}
	req.NoError(env.st.CreateUser(ctx, carol))

	_, err := env.svc.Send(ctx, env.chat.ID, carol.ID, "let me in")
	req.ErrorIs(err, core.ErrForbidden)

	_, err = env.svc.List(ctx, env.chat.ID, carol.ID, 10, nil)
	req.ErrorIs(err, core.ErrForbidden)

	msg, err := env.svc.Send(ctx, env.chat.ID, env.alice, "private")
	req.NoError(err)
	_, err = env.svc.Like(ctx, msg.ID, carol.ID)
	req.ErrorIs(err, core.ErrForbidden)
}

func TestUnknownChatAndMessage(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.svc.Send(ctx, "nope", env.alice, "hi")
	req.ErrorIs(err, core.ErrNotFound)

	_, err = env.svc.Like(ctx, "nope", env.alice)
	req.ErrorIs(err, core.ErrNotFound)
}

func TestLike_Idempotent(t *testing.T) {
	req := require.New(t)
	env := newTestEnv(t)
	ctx := context.Background()

	msg, err := env.svc.Send(ctx, env.chat.ID, env.alice, "like me")
	req.NoError(err)

	liked, err := env.svc.Like(ctx, msg.ID, env.bob)
	req.NoError(err)
	req.Equal([]string{env.bob}, liked.LikedBy)

	again, err := env.svc.Like(ctx, msg.ID, env.bob)
	req.NoError(err)
	req.Equal([]string{env.bob}, again.LikedBy)
	req.True(liked.UpdatedAt.Equal(again.UpdatedAt))

	both, err := env.svc.Like(ctx, msg.ID, env.alice)
	req.NoError(err)
	req.Equal([]string{env.bob, env.alice}, both.LikedBy)
}
