package store

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotFound is wrapped by every lookup that yields no document.
	ErrNotFound = errors.New("not found")
	// ErrConflict is wrapped when a write violates a uniqueness constraint.
	ErrConflict = errors.New("conflict")
)

// User represents a user document.
// Chats holds the ids of chats the user participates in, in join order.
type User struct {
	ID           string
	Username     string
	Email        string
	Avatar       *string
	PasswordHash string
	Chats        []string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserUpdate lists the mutable profile fields. Nil fields are left untouched.
type UserUpdate struct {
	Username *string
	Avatar   *string
}

// Chat represents a chat document.
type Chat struct {
	ID           string
	Participants []string
	DirectKey    *string // set for one-to-one chats: "dm:{minUserId}:{maxUserId}"
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Message represents a persisted chat message.
// ChatID and UserID are references only; the message owns neither.
type Message struct {
	ID        string
	ChatID    string
	UserID    string
	Text      string
	LikedBy   []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DirectKey returns the lookup key of the one-to-one chat between two users.
// The key does not depend on argument order.
func DirectKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return fmt.Sprintf("dm:%s:%s", a, b)
}

// UserStore handles user persistence.
type UserStore interface {
	// CreateUser inserts a user. An empty ID is filled in by the store.
	CreateUser(ctx context.Context, user *User) error

	// GetUserByID retrieves a user by ID.
	GetUserByID(ctx context.Context, id string) (*User, error)

	// GetUsersByIDs retrieves the users that exist among ids, in no particular order.
	GetUsersByIDs(ctx context.Context, ids []string) ([]*User, error)

	// SearchUsers returns users whose username or email contains value,
	// case-insensitively, excluding excludeID. Only id, username, email and
	// avatar are populated on the results.
	SearchUsers(ctx context.Context, value, excludeID string) ([]*User, error)

	// UpdateUser applies upd to the user and returns the updated document.
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (*User, error)
}

// ChatStore handles chat persistence.
type ChatStore interface {
	// CreateChat inserts a chat and appends its id to every participant's chat list.
	CreateChat(ctx context.Context, chat *Chat) error

	// GetChatByID retrieves a chat by ID.
	GetChatByID(ctx context.Context, id string) (*Chat, error)

	// GetChatsByIDs retrieves the chats that exist among ids, in no particular order.
	GetChatsByIDs(ctx context.Context, ids []string) ([]*Chat, error)

	// GetChatsByDirectKeys retrieves the direct chats matching keys, in no particular order.
	GetChatsByDirectKeys(ctx context.Context, keys []string) ([]*Chat, error)
}

// MessageStore handles message persistence.
type MessageStore interface {
	// SaveMessage persists a message to storage.
	SaveMessage(ctx context.Context, msg *Message) error

	// GetMessageByID retrieves a message by ID.
	GetMessageByID(ctx context.Context, id string) (*Message, error)

	// ListMessages retrieves messages of a chat, newest first.
	// If before is set, only messages created strictly earlier are returned.
	ListMessages(ctx context.Context, chatID string, limit int, before *time.Time) ([]*Message, error)

	// LikeMessage adds userID to the message's likedBy set and returns the message.
	LikeMessage(ctx context.Context, id, userID string) (*Message, error)
}

// Store aggregates all storage interfaces.
type Store interface {
	UserStore
	ChatStore
	MessageStore

	// Close closes the underlying database connection.
	Close() error
}
