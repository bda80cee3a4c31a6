package core

import (
	"time"

	"github.com/vovakirdan/chatdir/internal/store"
)

// MessageView is the public shape of a chat message.
type MessageView struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	User      string    `json:"user"`
	Text      string    `json:"text"`
	LikedBy   []string  `json:"liked_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PickMessageData copies the public fields of a message.
func PickMessageData(m *store.Message) MessageView {
	likedBy := m.LikedBy
	if likedBy == nil {
		likedBy = []string{}
	}
	return MessageView{
		ID:        m.ID,
		ChatID:    m.ChatID,
		User:      m.UserID,
		Text:      m.Text,
		LikedBy:   likedBy,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
