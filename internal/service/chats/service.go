package chats

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/vovakirdan/chatdir/internal/core"
	"github.com/vovakirdan/chatdir/internal/store"
)

// Store is the persistence the chat service needs.
type Store interface {
	store.UserStore
	store.ChatStore
}

// Service answers chat existence and retrieval questions for other services.
type Service struct {
	store Store
}

// New creates a new chat service.
func New(st Store) *Service {
	return &Service{
		store: st,
	}
}

// CheckIfChatExist returns the direct chat between the two users, or nil if
// they have none.
func (s *Service) CheckIfChatExist(ctx context.Context, users [2]string) (*core.ChatSummary, error) {
	chats, err := s.store.GetChatsByDirectKeys(ctx, []string{store.DirectKey(users[0], users[1])})
	if err != nil {
		return nil, fmt.Errorf("find direct chat: %w", err)
	}
	if len(chats) == 0 {
		return nil, nil
	}
	return core.SummarizeChat(chats[0]), nil
}

// FindDirectChats is the batched form of CheckIfChatExist: it returns the
// direct chat userID shares with each of otherIDs, keyed by the other user.
// Users without a shared chat are absent from the map.
func (s *Service) FindDirectChats(ctx context.Context, userID string, otherIDs []string) (map[string]*core.ChatSummary, error) {
	result := make(map[string]*core.ChatSummary, len(otherIDs))
	if len(otherIDs) == 0 {
		return result, nil
	}

	keys := lo.Uniq(lo.Map(otherIDs, func(other string, _ int) string {
		return store.DirectKey(userID, other)
	}))

	chats, err := s.store.GetChatsByDirectKeys(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("find direct chats: %w", err)
	}

	byKey := make(map[string]*store.Chat, len(chats))
	for _, c := range chats {
		if c.DirectKey != nil {
			byKey[*c.DirectKey] = c
		}
	}

	for _, other := range otherIDs {
		if c, ok := byKey[store.DirectKey(userID, other)]; ok {
			result[other] = core.SummarizeChat(c)
		}
	}

	return result, nil
}

// GetOneChat returns a chat with its participants populated.
func (s *Service) GetOneChat(ctx context.Context, chatID string) (*core.PopulatedChat, error) {
	chats, err := s.GetChats(ctx, []string{chatID})
	if err != nil {
		return nil, err
	}
	return chats[0], nil
}

// GetChats is the batched form of GetOneChat. The result is index-aligned
// with chatIDs. If any id does not resolve the whole call fails with NotFound.
func (s *Service) GetChats(ctx context.Context, chatIDs []string) ([]*core.PopulatedChat, error) {
	if len(chatIDs) == 0 {
		return []*core.PopulatedChat{}, nil
	}

	chats, err := s.store.GetChatsByIDs(ctx, lo.Uniq(chatIDs))
	if err != nil {
		return nil, fmt.Errorf("find chats: %w", err)
	}
	chatsByID := lo.KeyBy(chats, func(c *store.Chat) string { return c.ID })

	userIDs := lo.Uniq(lo.FlatMap(chats, func(c *store.Chat, _ int) []string { return c.Participants }))
	users, err := s.store.GetUsersByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("find chat participants: %w", err)
	}
	usersByID := lo.KeyBy(users, func(u *store.User) string { return u.ID })

	result := make([]*core.PopulatedChat, len(chatIDs))
	for i, id := range chatIDs {
		c, ok := chatsByID[id]
		if !ok {
			return nil, core.NotFound("No chat by following id: "+id, store.ErrNotFound)
		}

		participants := make([]*store.User, 0, len(c.Participants))
		for _, p := range c.Participants {
			if u, ok := usersByID[p]; ok {
				participants = append(participants, u)
			}
		}
		result[i] = &core.PopulatedChat{Chat: c, Users: participants}
	}

	return result, nil
}

// CreateDirectChat returns the direct chat between userID and otherID,
// creating it if needed. created reports whether a new chat was made.
func (s *Service) CreateDirectChat(ctx context.Context, userID, otherID string) (chat *core.PopulatedChat, created bool, err error) {
	if userID == otherID {
		return nil, false, core.BadRequest("cannot start a chat with yourself")
	}

	if _, err := s.store.GetUserByID(ctx, otherID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, false, core.NotFound("No user by following id", err)
		}
		return nil, false, fmt.Errorf("find user: %w", err)
	}

	existing, err := s.CheckIfChatExist(ctx, [2]string{userID, otherID})
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		chat, err = s.GetOneChat(ctx, existing.ID)
		return chat, false, err
	}

	key := store.DirectKey(userID, otherID)
	newChat := &store.Chat{
		Participants: []string{userID, otherID},
		DirectKey:    &key,
	}
	if err := s.store.CreateChat(ctx, newChat); err != nil {
		if !errors.Is(err, store.ErrConflict) {
			return nil, false, fmt.Errorf("create chat: %w", err)
		}
		// lost a race with a concurrent create
		existing, err = s.CheckIfChatExist(ctx, [2]string{userID, otherID})
		if err != nil {
			return nil, false, err
		}
		if existing == nil {
			return nil, false, fmt.Errorf("create chat: %w", store.ErrConflict)
		}
		chat, err = s.GetOneChat(ctx, existing.ID)
		return chat, false, err
	}

	chat, err = s.GetOneChat(ctx, newChat.ID)
	return chat, true, err
}
