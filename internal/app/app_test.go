package app

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/chatdir/internal/config"
)

func TestOpenStore_SQLite(t *testing.T) {
	req := require.New(t)
	cfg := config.Default()
	cfg.Store.Driver = config.DriverSQLite
	cfg.Store.SQLitePath = filepath.Join(t.TempDir(), "chatdir.db")

	st, err := OpenStore(context.Background(), &cfg)
	req.NoError(err)
	t.Cleanup(func() { _ = st.Close() })

	svc := NewServices(st, &cfg)
	req.NotNil(svc.Users)
	req.NotNil(svc.Chats)
	req.NotNil(svc.Messages)
	req.NotNil(svc.Auth)
}

func TestOpenStore_UnknownDriver(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = "redis"

	_, err := OpenStore(context.Background(), &cfg)
	require.ErrorContains(t, err, "redis")
}

func TestJWTConfig(t *testing.T) {
	cfg := config.Default()
	cfg.JWT.Secret = "s3cret"
	cfg.JWT.TTL = time.Minute

	jwt := JWTConfig(&cfg)
	require.Equal(t, []byte("s3cret"), jwt.Secret)
	require.Equal(t, "chatdir", jwt.Issuer)
	require.Equal(t, time.Minute, jwt.TTL)
}
