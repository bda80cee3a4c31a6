package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/vovakirdan/chatdir/internal/store"
)

type userDoc struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty"`
	Username     string               `bson:"username"`
	Email        string               `bson:"email"`
	Avatar       *string              `bson:"avatar,omitempty"`
	PasswordHash string               `bson:"password,omitempty"`
	Chats        []primitive.ObjectID `bson:"chats"`
	CreatedAt    time.Time            `bson:"createdAt"`
	UpdatedAt    time.Time            `bson:"updatedAt"`
}

type chatDoc struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	Users     []primitive.ObjectID `bson:"users"`
	DirectKey *string              `bson:"directKey,omitempty"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

type messageDoc struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty"`
	ChatID    primitive.ObjectID   `bson:"chatId"`
	User      primitive.ObjectID   `bson:"user"`
	Text      string               `bson:"text"`
	LikedBy   []primitive.ObjectID `bson:"likedBy"`
	CreatedAt time.Time            `bson:"createdAt"`
	UpdatedAt time.Time            `bson:"updatedAt"`
}

func (d *userDoc) toStore() *store.User {
	return &store.User{
		ID:           d.ID.Hex(),
		Username:     d.Username,
		Email:        d.Email,
		Avatar:       d.Avatar,
		PasswordHash: d.PasswordHash,
		Chats:        hexes(d.Chats),
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (d *chatDoc) toStore() *store.Chat {
	return &store.Chat{
		ID:           d.ID.Hex(),
		Participants: hexes(d.Users),
		DirectKey:    d.DirectKey,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}

func (d *messageDoc) toStore() *store.Message {
	return &store.Message{
		ID:        d.ID.Hex(),
		ChatID:    d.ChatID.Hex(),
		UserID:    d.User.Hex(),
		Text:      d.Text,
		LikedBy:   hexes(d.LikedBy),
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func hexes(ids []primitive.ObjectID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.Hex()
	}
	return out
}

// objectIDs parses ids, dropping the ones that cannot name a document.
func objectIDs(ids []string) []primitive.ObjectID {
	out := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		out = append(out, oid)
	}
	return out
}
