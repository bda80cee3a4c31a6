package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/chatdir/internal/auth"
	"github.com/vovakirdan/chatdir/internal/config"
	"github.com/vovakirdan/chatdir/internal/service/chats"
	"github.com/vovakirdan/chatdir/internal/service/messages"
	"github.com/vovakirdan/chatdir/internal/service/users"
	"github.com/vovakirdan/chatdir/internal/store"
	"github.com/vovakirdan/chatdir/internal/store/sqlite"
)

type testServer struct {
	router *gin.Engine
	store  *sqlite.SQLiteStore
	jwt    *auth.JWTConfig
}

// newTestServer wires the router over an in-memory SQLite store.
func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := sqlite.New(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	jwtConfig := &auth.JWTConfig{
		Secret: []byte("test-secret"),
		Issuer: "test",
		TTL:    time.Hour,
	}
	chatSvc := chats.New(st)
	svc := Services{
		Auth:     auth.NewService(st, jwtConfig),
		Users:    users.New(st, chatSvc),
		Chats:    chatSvc,
		Messages: messages.New(st),
	}

	cfg := config.Default()
	logger := zerolog.Nop()

	return &testServer{
		router: NewRouter(svc, &cfg, &logger),
		store:  st,
		jwt:    jwtConfig,
	}
}

// createUser inserts a user and returns it with a bearer token.
func (s *testServer) createUser(t *testing.T, username string) (*store.User, string) {
	t.Helper()

	u := &store.User{Username: username, Email: username + "@example.com", PasswordHash: "hash"}
	if err := s.store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	token, err := auth.GenerateToken(s.jwt, u.ID)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	return u, token
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return s.serve(req)
}

func (s *testServer) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, status int) {
	t.Helper()

	if w.Code != status {
		t.Fatalf("expected status %d (%s), got %d: %s", status, http.StatusText(status), w.Code, w.Body.String())
	}
}

func generateTokenFor(s *testServer, userID string) (string, error) {
	return auth.GenerateToken(s.jwt, userID)
}
