package messages

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/vovakirdan/chatdir/internal/core"
	"github.com/vovakirdan/chatdir/internal/store"
)

const (
	// DefaultLimit is the page size used when the caller gives none.
	DefaultLimit = 50
	// MaxLimit caps a single page.
	MaxLimit = 100
	// MaxTextLength is the longest accepted message body, in bytes.
	MaxTextLength = 4096
)

// Store is the persistence the message service needs.
type Store interface {
	store.ChatStore
	store.MessageStore
}

// Service provides message operations scoped to chat participants.
type Service struct {
	store Store
}

// New creates a new message service.
func New(st Store) *Service {
	return &Service{
		store: st,
	}
}

// Send stores a new message authored by userID in chatID.
func (s *Service) Send(ctx context.Context, chatID, userID, text string) (*store.Message, error) {
	if strings.TrimSpace(text) == "" {
		return nil, core.BadRequest("message text is required")
	}
	if len(text) > MaxTextLength {
		return nil, core.BadRequest("message text is too long")
	}

	if err := s.requireParticipant(ctx, chatID, userID); err != nil {
		return nil, err
	}

	msg := &store.Message{
		ChatID: chatID,
		UserID: userID,
		Text:   text,
	}
	if err := s.store.SaveMessage(ctx, msg); err != nil {
		return nil, fmt.Errorf("save message: %w", err)
	}

	return msg, nil
}

// List returns a page of chatID's messages, newest first.
func (s *Service) List(ctx context.Context, chatID, userID string, limit int, before *time.Time) ([]*store.Message, error) {
	if err := s.requireParticipant(ctx, chatID, userID); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	msgs, err := s.store.ListMessages(ctx, chatID, limit, before)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}

// Like adds userID to the message's likedBy set. Liking twice is a no-op.
func (s *Service) Like(ctx context.Context, messageID, userID string) (*store.Message, error) {
	msg, err := s.store.GetMessageByID(ctx, messageID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("No message by following id", err)
		}
		return nil, fmt.Errorf("find message: %w", err)
	}

	if err := s.requireParticipant(ctx, msg.ChatID, userID); err != nil {
		return nil, err
	}

	msg, err = s.store.LikeMessage(ctx, messageID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, core.NotFound("No message by following id", err)
		}
		return nil, fmt.Errorf("like message: %w", err)
	}
	return msg, nil
}

func (s *Service) requireParticipant(ctx context.Context, chatID, userID string) error {
	chat, err := s.store.GetChatByID(ctx, chatID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return core.NotFound("No chat by following id", err)
		}
		return fmt.Errorf("find chat: %w", err)
	}
	if !lo.Contains(chat.Participants, userID) {
		return core.Forbidden("not a participant of this chat")
	}
	return nil
}
