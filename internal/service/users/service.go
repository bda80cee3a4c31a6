package users

import (
	"context"
	"errors"
	"fmt"

	"github.com/samber/lo"

	"github.com/vovakirdan/chatdir/internal/core"
	"github.com/vovakirdan/chatdir/internal/store"
)

const errNoUser = "No user by following id"

// ChatLookup resolves chats on behalf of the user directory.
type ChatLookup interface {
	// FindDirectChats returns the direct chat userID shares with each of
	// otherIDs, keyed by the other user id. Missing keys mean no chat.
	FindDirectChats(ctx context.Context, userID string, otherIDs []string) (map[string]*core.ChatSummary, error)

	// GetChats returns the chats with participants populated, index-aligned
	// with chatIDs.
	GetChats(ctx context.Context, chatIDs []string) ([]*core.PopulatedChat, error)
}

// AvatarResult is returned by UpdateAvatar.
type AvatarResult struct {
	Avatar *string `json:"avatar"`
}

// UsernameResult is returned by UpdateUsername.
type UsernameResult struct {
	Username string `json:"username"`
}

// Service is the user directory: search, profile updates and profile reads.
// Every value it returns goes through the public projections in core.
type Service struct {
	users store.UserStore
	chats ChatLookup
}

// New creates a new user directory service.
func New(users store.UserStore, chats ChatLookup) *Service {
	return &Service{
		users: users,
		chats: chats,
	}
}

// FindUsers searches usernames and emails for value and reports, for each
// match, the direct chat it shares with userID. userID is never returned.
// value is used as given; an empty value matches every other user.
func (s *Service) FindUsers(ctx context.Context, value, userID string) ([]core.FoundUser, error) {
	candidates, err := s.users.SearchUsers(ctx, value, userID)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	if len(candidates) == 0 {
		return []core.FoundUser{}, nil
	}

	ids := lo.Map(candidates, func(u *store.User, _ int) string { return u.ID })
	chats, err := s.chats.FindDirectChats(ctx, userID, ids)
	if err != nil {
		return nil, fmt.Errorf("check chats: %w", err)
	}

	return lo.Map(candidates, func(u *store.User, _ int) core.FoundUser {
		return core.FoundUser{
			PublicUser: core.PickUserPublicData(u),
			Chat:       chats[u.ID],
		}
	}), nil
}

// UpdateAvatar replaces the user's avatar and returns the stored value.
func (s *Service) UpdateAvatar(ctx context.Context, userID, avatar string) (*AvatarResult, error) {
	user, err := s.users.UpdateUser(ctx, userID, store.UserUpdate{Avatar: &avatar})
	if err != nil {
		return nil, mapUserErr(err)
	}
	return &AvatarResult{Avatar: user.Avatar}, nil
}

// UpdateUsername replaces the user's username and returns the stored value.
// Uniqueness is not checked.
func (s *Service) UpdateUsername(ctx context.Context, userID, username string) (*UsernameResult, error) {
	user, err := s.users.UpdateUser(ctx, userID, store.UserUpdate{Username: &username})
	if err != nil {
		return nil, mapUserErr(err)
	}
	return &UsernameResult{Username: user.Username}, nil
}

// FindByIDPublic returns the public fields of a user.
func (s *Service) FindByIDPublic(ctx context.Context, userID string) (core.PublicUser, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return core.PublicUser{}, err
	}
	return core.PickUserPublicData(user), nil
}

// GetByID returns the full user document. It is meant for callers inside the
// process; the result carries private fields.
func (s *Service) GetByID(ctx context.Context, userID string) (*store.User, error) {
	user, err := s.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, mapUserErr(err)
	}
	return user, nil
}

// GetUserDataWithChats assembles the user's public profile and every chat in
// user.Chats, in the same order. A chat id that no longer resolves fails the
// whole call with NotFound.
func (s *Service) GetUserDataWithChats(ctx context.Context, user *store.User) (*core.UserWithChats, error) {
	populated, err := s.chats.GetChats(ctx, user.Chats)
	if err != nil {
		return nil, err
	}

	return &core.UserWithChats{
		User: core.PickUserPublicData(user),
		Chats: lo.Map(populated, func(pc *core.PopulatedChat, _ int) core.ChatView {
			return core.PickChatData(pc)
		}),
	}, nil
}

func mapUserErr(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return core.NotFound(errNoUser, err)
	}
	return err
}
