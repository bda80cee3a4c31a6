package users_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/chatdir/internal/core"
	"github.com/vovakirdan/chatdir/internal/service/chats"
	"github.com/vovakirdan/chatdir/internal/service/users"
	"github.com/vovakirdan/chatdir/internal/store"
	"github.com/vovakirdan/chatdir/internal/store/sqlite"
)

type fixture struct {
	st    *sqlite.SQLiteStore
	chats *chats.Service
	users *users.Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	st, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	chatSvc := chats.New(st)
	return &fixture{
		st:    st,
		chats: chatSvc,
		users: users.New(st, chatSvc),
	}
}

func (f *fixture) user(t *testing.T, username, email string) *store.User {
	t.Helper()

	u := &store.User{Username: username, Email: email, PasswordHash: "secret-hash"}
	require.NoError(t, f.st.CreateUser(context.Background(), u))
	return u
}

func TestFindUsers_ReportsSharedChat(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	me := f.user(t, "me", "me@x.io")
	alice := f.user(t, "alice", "alice@x.io")
	alicia := f.user(t, "alicia", "alicia@x.io")
	f.user(t, "bob", "bob@x.io")

	created, ok, err := f.chats.CreateDirectChat(ctx, me.ID, alice.ID)
	req.NoError(err)
	req.True(ok)

	// When searching for "ali"
	found, err := f.users.FindUsers(ctx, "ali", me.ID)
	req.NoError(err)

	// Then both matches come back and only alice carries a chat
	req.Len(found, 2)
	req.Equal(alice.ID, found[0].ID)
	req.NotNil(found[0].Chat)
	req.Equal(created.Chat.ID, found[0].Chat.ID)
	req.ElementsMatch([]string{me.ID, alice.ID}, found[0].Chat.Users)
	req.Equal(alicia.ID, found[1].ID)
	req.Nil(found[1].Chat)
}

func TestFindUsers_ExcludesRequester(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	alice := f.user(t, "alice", "alice@x.io")
	f.user(t, "alex", "alex@x.io")

	found, err := f.users.FindUsers(ctx, "al", alice.ID)
	req.NoError(err)
	req.Len(found, 1)
	req.Equal("alex", found[0].Username)
	for _, u := range found {
		req.NotEqual(alice.ID, u.ID)
	}
}

func TestFindUsers_MatchesEmailSubstring(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)

	me := f.user(t, "me", "me@x.io")
	f.user(t, "zed", "zed@corp.example")

	found, err := f.users.FindUsers(context.Background(), "CORP", me.ID)
	req.NoError(err)
	req.Len(found, 1)
	req.Equal("zed", found[0].Username)
}

func TestFindUsers_NoMatchReturnsEmpty(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	me := f.user(t, "me", "me@x.io")

	found, err := f.users.FindUsers(context.Background(), "nobody", me.ID)
	req.NoError(err)
	req.NotNil(found)
	req.Empty(found)

	data, err := json.Marshal(found)
	req.NoError(err)
	req.JSONEq(`[]`, string(data))
}

func TestFindUsers_EmptyValueListsEveryoneElse(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	me := f.user(t, "me", "me@x.io")
	f.user(t, "bob", "bob@x.io")
	f.user(t, "carol", "carol@x.io")

	found, err := f.users.FindUsers(context.Background(), "", me.ID)
	req.NoError(err)
	req.Len(found, 2)
	req.Equal("bob", found[0].Username)
	req.Equal("carol", found[1].Username)
}

func TestFindUsers_ValueIsNotTrimmed(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	me := f.user(t, "me", "me@x.io")
	f.user(t, "bobby", "bobby@x.io")
	f.user(t, "big bob", "bb@x.io")

	found, err := f.users.FindUsers(context.Background(), " bob", me.ID)
	req.NoError(err)
	req.Len(found, 1)
	req.Equal("big bob", found[0].Username)
}

func TestFindUsers_FoldsNonASCIICase(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	me := f.user(t, "me", "me@x.io")
	f.user(t, "Élise", "elise@x.io")
	f.user(t, "ÉMILE", "emile@x.io")

	found, err := f.users.FindUsers(context.Background(), "élise", me.ID)
	req.NoError(err)
	req.Len(found, 1)
	req.Equal("Élise", found[0].Username)

	found, err = f.users.FindUsers(context.Background(), "émile", me.ID)
	req.NoError(err)
	req.Len(found, 1)
	req.Equal("ÉMILE", found[0].Username)
}

func TestFindUsers_JSONHasNullChatAndNoPassword(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	me := f.user(t, "me", "me@x.io")
	f.user(t, "bob", "bob@x.io")

	found, err := f.users.FindUsers(context.Background(), "bob", me.ID)
	req.NoError(err)

	data, err := json.Marshal(found)
	req.NoError(err)

	var decoded []map[string]any
	req.NoError(json.Unmarshal(data, &decoded))
	req.Len(decoded, 1)
	chat, present := decoded[0]["chat"]
	req.True(present)
	req.Nil(chat)
	req.NotContains(decoded[0], "password")
	req.NotContains(decoded[0], "password_hash")
	req.NotContains(string(data), "secret-hash")
}

func TestUpdateAvatar(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "alice@x.io")

	res, err := f.users.UpdateAvatar(ctx, alice.ID, "http://x/y.png")
	req.NoError(err)
	req.NotNil(res.Avatar)
	req.Equal("http://x/y.png", *res.Avatar)

	// Other fields are untouched
	stored, err := f.users.GetByID(ctx, alice.ID)
	req.NoError(err)
	req.Equal("alice", stored.Username)
	req.Equal("alice@x.io", stored.Email)
	req.Equal("secret-hash", stored.PasswordHash)
}

func TestUpdateUsername(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "alice@x.io")
	f.user(t, "bob", "bob@x.io")

	res, err := f.users.UpdateUsername(ctx, alice.ID, "bob")
	req.NoError(err)
	req.Equal("bob", res.Username)

	stored, err := f.users.FindByIDPublic(ctx, alice.ID)
	req.NoError(err)
	req.Equal("bob", stored.Username)
	req.Equal("alice@x.io", stored.Email)
	req.Nil(stored.Avatar)
}

func TestUpdate_UnknownUserIsNotFound(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.users.UpdateAvatar(ctx, "999", "http://x/y.png")
	req.ErrorIs(err, core.ErrNotFound)

	_, err = f.users.UpdateUsername(ctx, "999", "someone")
	req.ErrorIs(err, core.ErrNotFound)

	var ce *core.CoreError
	req.True(errors.As(err, &ce))
	req.Equal("No user by following id", ce.Message)
}

func TestFindByIDPublic(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice", "alice@x.io")

	pub, err := f.users.FindByIDPublic(ctx, alice.ID)
	req.NoError(err)

	data, err := json.Marshal(pub)
	req.NoError(err)
	req.JSONEq(`{"id":"`+alice.ID+`","username":"alice","email":"alice@x.io","avatar":null}`, string(data))

	_, err = f.users.FindByIDPublic(ctx, "missing")
	req.ErrorIs(err, core.ErrNotFound)
}

func TestGetUserDataWithChats_PreservesOrder(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	ctx := context.Background()

	me := f.user(t, "me", "me@x.io")
	bob := f.user(t, "bob", "bob@x.io")
	carol := f.user(t, "carol", "carol@x.io")

	withBob, _, err := f.chats.CreateDirectChat(ctx, me.ID, bob.ID)
	req.NoError(err)
	withCarol, _, err := f.chats.CreateDirectChat(ctx, carol.ID, me.ID)
	req.NoError(err)

	user, err := f.users.GetByID(ctx, me.ID)
	req.NoError(err)
	req.Equal([]string{withBob.Chat.ID, withCarol.Chat.ID}, user.Chats)

	data, err := f.users.GetUserDataWithChats(ctx, user)
	req.NoError(err)
	req.Equal(me.ID, data.User.ID)
	req.Len(data.Chats, 2)
	req.Equal(withBob.Chat.ID, data.Chats[0].ID)
	req.Equal(withCarol.Chat.ID, data.Chats[1].ID)

	// Participants keep chat order and carry only public fields
	req.Equal(carol.ID, data.Chats[1].Users[0].ID)
	req.Equal(me.ID, data.Chats[1].Users[1].ID)

	raw, err := json.Marshal(data)
	req.NoError(err)
	req.NotContains(string(raw), "secret-hash")
}

func TestGetUserDataWithChats_NoChats(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	me := f.user(t, "me", "me@x.io")

	data, err := f.users.GetUserDataWithChats(context.Background(), me)
	req.NoError(err)
	req.NotNil(data.Chats)
	req.Empty(data.Chats)
}

func TestGetUserDataWithChats_StaleChatIsNotFound(t *testing.T) {
	req := require.New(t)
	f := newFixture(t)
	me := f.user(t, "me", "me@x.io")
	me.Chats = []string{"gone"}

	_, err := f.users.GetUserDataWithChats(context.Background(), me)
	req.ErrorIs(err, core.ErrNotFound)
}
