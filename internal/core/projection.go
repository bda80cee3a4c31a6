package core

import (
	"time"

	"github.com/samber/lo"

	"github.com/vovakirdan/chatdir/internal/store"
)

// PublicUser is the subset of user fields any caller may see.
// Fields are copied one by one; new store fields stay private until listed here.
type PublicUser struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	Email    string  `json:"email"`
	Avatar   *string `json:"avatar"`
}

// PickUserPublicData projects a user onto its public fields.
func PickUserPublicData(u *store.User) PublicUser {
	return PublicUser{
		ID:       u.ID,
		Username: u.Username,
		Email:    u.Email,
		Avatar:   u.Avatar,
	}
}

// ChatSummary describes a chat without resolving its participants.
type ChatSummary struct {
	ID        string    `json:"id"`
	Users     []string  `json:"users"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SummarizeChat builds the summary of a chat.
func SummarizeChat(c *store.Chat) *ChatSummary {
	users := c.Participants
	if users == nil {
		users = []string{}
	}
	return &ChatSummary{
		ID:        c.ID,
		Users:     users,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

// PopulatedChat is a chat with its participants resolved to user documents,
// in participant order. It still carries private user fields.
type PopulatedChat struct {
	Chat  *store.Chat
	Users []*store.User
}

// ChatView is the public shape of a populated chat.
type ChatView struct {
	ID        string       `json:"id"`
	Users     []PublicUser `json:"users"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// PickChatData strips private participant fields from a populated chat.
func PickChatData(pc *PopulatedChat) ChatView {
	return ChatView{
		ID: pc.Chat.ID,
		Users: lo.Map(pc.Users, func(u *store.User, _ int) PublicUser {
			return PickUserPublicData(u)
		}),
		CreatedAt: pc.Chat.CreatedAt,
		UpdatedAt: pc.Chat.UpdatedAt,
	}
}

// FoundUser is one search result: public user fields plus the direct chat
// shared with the searcher, or null.
type FoundUser struct {
	PublicUser
	Chat *ChatSummary `json:"chat"`
}

// UserWithChats is a user's public profile with its full chat list.
type UserWithChats struct {
	User  PublicUser `json:"user"`
	Chats []ChatView `json:"chats"`
}
