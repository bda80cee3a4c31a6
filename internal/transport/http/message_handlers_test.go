package http

import (
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/vovakirdan/chatdir/internal/core"
)

func setupChat(t *testing.T, srv *testServer) (chatID, aliceToken, bobToken, bobID string) {
	t.Helper()

	_, aliceToken = srv.createUser(t, "alice")
	bob, bobToken := srv.createUser(t, "bob")

	w := srv.do(t, http.MethodPost, "/api/chats", aliceToken, CreateChatRequest{UserID: bob.ID})
	expectStatus(t, w, http.StatusCreated)
	return decode[core.ChatView](t, w).ID, aliceToken, bobToken, bob.ID
}

func TestSendAndListMessages(t *testing.T) {
	srv := newTestServer(t)
	chatID, aliceToken, bobToken, _ := setupChat(t, srv)

	var sent []core.MessageView
	for _, text := range []string{"first", "second", "third"} {
		w := srv.do(t, http.MethodPost, "/api/chats/"+chatID+"/messages", aliceToken, SendMessageRequest{Text: text})
		expectStatus(t, w, http.StatusCreated)
		sent = append(sent, decode[core.MessageView](t, w))
		time.Sleep(2 * time.Millisecond)
	}

	w := srv.do(t, http.MethodGet, "/api/chats/"+chatID+"/messages?limit=2", bobToken, nil)
	expectStatus(t, w, http.StatusOK)
	page := decode[[]core.MessageView](t, w)
	if len(page) != 2 || page[0].Text != "third" || page[1].Text != "second" {
		t.Fatalf("unexpected page: %+v", page)
	}

	before := url.QueryEscape(page[1].CreatedAt.Format(time.RFC3339Nano))
	w = srv.do(t, http.MethodGet, "/api/chats/"+chatID+"/messages?before="+before, bobToken, nil)
	expectStatus(t, w, http.StatusOK)
	older := decode[[]core.MessageView](t, w)
	if len(older) != 1 || older[0].ID != sent[0].ID {
		t.Fatalf("unexpected older page: %+v", older)
	}
}

func TestListMessages_BadQuery(t *testing.T) {
	srv := newTestServer(t)
	chatID, aliceToken, _, _ := setupChat(t, srv)

	for _, q := range []string{"limit=abc", "limit=-1", "before=yesterday"} {
		w := srv.do(t, http.MethodGet, "/api/chats/"+chatID+"/messages?"+q, aliceToken, nil)
		expectStatus(t, w, http.StatusBadRequest)
	}
}

func TestSendMessage_Errors(t *testing.T) {
	srv := newTestServer(t)
	chatID, aliceToken, _, _ := setupChat(t, srv)
	_, carolToken := srv.createUser(t, "carol")

	w := srv.do(t, http.MethodPost, "/api/chats/"+chatID+"/messages", aliceToken, map[string]string{})
	expectStatus(t, w, http.StatusBadRequest)

	w = srv.do(t, http.MethodPost, "/api/chats/"+chatID+"/messages", carolToken, SendMessageRequest{Text: "hi"})
	expectStatus(t, w, http.StatusForbidden)

	w = srv.do(t, http.MethodPost, "/api/chats/missing/messages", aliceToken, SendMessageRequest{Text: "hi"})
	expectStatus(t, w, http.StatusNotFound)
}

func TestLikeMessage(t *testing.T) {
	srv := newTestServer(t)
	chatID, aliceToken, bobToken, bobID := setupChat(t, srv)

	w := srv.do(t, http.MethodPost, "/api/chats/"+chatID+"/messages", aliceToken, SendMessageRequest{Text: "like me"})
	expectStatus(t, w, http.StatusCreated)
	msg := decode[core.MessageView](t, w)

	for i := 0; i < 2; i++ {
		w = srv.do(t, http.MethodPost, "/api/messages/"+msg.ID+"/like", bobToken, nil)
		expectStatus(t, w, http.StatusOK)
		liked := decode[core.MessageView](t, w)
		if len(liked.LikedBy) != 1 || liked.LikedBy[0] != bobID {
			t.Fatalf("attempt %d: unexpected likes %v", i, liked.LikedBy)
		}
	}

	w = srv.do(t, http.MethodPost, "/api/messages/missing/like", bobToken, nil)
	expectStatus(t, w, http.StatusNotFound)
}
