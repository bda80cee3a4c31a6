package mongodb

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/vovakirdan/chatdir/internal/store"
)

const (
	usersCollection    = "users"
	chatsCollection    = "chats"
	messagesCollection = "messages"
)

// MongoStore implements store.Store on top of a MongoDB database.
type MongoStore struct {
	client   *mongo.Client // nil when the database handle is borrowed
	users    *mongo.Collection
	chats    *mongo.Collection
	messages *mongo.Collection
	timeout  time.Duration
}

// New connects to uri, pings the deployment and ensures indexes.
func New(ctx context.Context, uri, database string, timeout time.Duration) (*MongoStore, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	if err := client.Ping(connectCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	s := NewWithDatabase(client.Database(database), timeout)
	s.client = client

	if err := s.EnsureIndexes(connectCtx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return s, nil
}

// NewWithDatabase wraps an existing database handle. Close does not disconnect it.
func NewWithDatabase(db *mongo.Database, timeout time.Duration) *MongoStore {
	return &MongoStore{
		users:    db.Collection(usersCollection),
		chats:    db.Collection(chatsCollection),
		messages: db.Collection(messagesCollection),
		timeout:  timeout,
	}
}

// EnsureIndexes creates the indexes the queries rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}

	_, err = s.chats.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "directKey", Value: 1}}, Options: options.Index().SetUnique(true).SetSparse(true)},
		{Keys: bson.D{{Key: "users", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create chat indexes: %w", err)
	}

	_, err = s.messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "chatId", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create message indexes: %w", err)
	}

	return nil
}

// Close disconnects the client if the store owns it.
func (s *MongoStore) Close() error {
	if s.client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.client.Disconnect(ctx)
}

func (s *MongoStore) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// ==== UserStore implementation ====

// CreateUser inserts a user.
func (s *MongoStore) CreateUser(ctx context.Context, user *store.User) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	oid := primitive.NewObjectID()
	if user.ID != "" {
		var err error
		if oid, err = primitive.ObjectIDFromHex(user.ID); err != nil {
			return fmt.Errorf("invalid user id %q: %w", user.ID, err)
		}
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := userDoc{
		ID:           oid,
		Username:     user.Username,
		Email:        user.Email,
		Avatar:       user.Avatar,
		PasswordHash: user.PasswordHash,
		Chats:        objectIDs(user.Chats),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := s.users.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert user %s: %w", user.Email, store.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}

	user.ID = oid.Hex()
	user.Chats = hexes(doc.Chats)
	user.CreatedAt = now
	user.UpdatedAt = now
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *MongoStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}

	var doc userDoc
	if err := s.users.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	return doc.toStore(), nil
}

// GetUsersByIDs retrieves the users that exist among ids.
func (s *MongoStore) GetUsersByIDs(ctx context.Context, ids []string) ([]*store.User, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []*store.User{}, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*store.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toStore())
	}
	return users, nil
}

// SearchUsers matches value as a literal, case-insensitive substring of
// username or email. Only public fields are read from the collection.
func (s *MongoStore) SearchUsers(ctx context.Context, value, excludeID string) ([]*store.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(value), Options: "i"}
	filter := bson.M{
		"$or": bson.A{
			bson.M{"username": pattern},
			bson.M{"email": pattern},
		},
	}
	if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
		filter["_id"] = bson.M{"$ne": oid}
	}

	opts := options.Find().SetProjection(bson.D{
		{Key: "_id", Value: 1},
		{Key: "email", Value: 1},
		{Key: "avatar", Value: 1},
		{Key: "username", Value: 1},
	})

	cursor, err := s.users.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}

	var docs []userDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}

	users := make([]*store.User, 0, len(docs))
	for i := range docs {
		users = append(users, docs[i].toStore())
	}
	return users, nil
}

// UpdateUser applies upd and returns the updated user.
func (s *MongoStore) UpdateUser(ctx context.Context, id string, upd store.UserUpdate) (*store.User, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}

	set := bson.M{"updatedAt": time.Now().UTC()}
	if upd.Username != nil {
		set["username"] = *upd.Username
	}
	if upd.Avatar != nil {
		set["avatar"] = *upd.Avatar
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc userDoc
	err = s.users.FindOneAndUpdate(ctx, bson.M{"_id": oid}, bson.M{"$set": set}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}

	return doc.toStore(), nil
}

// ==== ChatStore implementation ====

// CreateChat inserts a chat and appends its id to the participants' chat lists.
func (s *MongoStore) CreateChat(ctx context.Context, chat *store.Chat) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	oid := primitive.NewObjectID()
	if chat.ID != "" {
		var err error
		if oid, err = primitive.ObjectIDFromHex(chat.ID); err != nil {
			return fmt.Errorf("invalid chat id %q: %w", chat.ID, err)
		}
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := chatDoc{
		ID:        oid,
		Users:     objectIDs(chat.Participants),
		DirectKey: chat.DirectKey,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.chats.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert chat: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert chat: %w", err)
	}

	_, err := s.users.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": doc.Users}},
		bson.M{
			"$addToSet": bson.M{"chats": oid},
			"$set":      bson.M{"updatedAt": now},
		},
	)
	if err != nil {
		return fmt.Errorf("link chat to users: %w", err)
	}

	chat.ID = oid.Hex()
	chat.Participants = hexes(doc.Users)
	chat.CreatedAt = now
	chat.UpdatedAt = now
	return nil
}

// GetChatByID retrieves a chat by ID.
func (s *MongoStore) GetChatByID(ctx context.Context, id string) (*store.Chat, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("chat %s: %w", id, store.ErrNotFound)
	}

	var doc chatDoc
	if err := s.chats.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("chat %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find chat: %w", err)
	}

	return doc.toStore(), nil
}

// GetChatsByIDs retrieves the chats that exist among ids.
func (s *MongoStore) GetChatsByIDs(ctx context.Context, ids []string) ([]*store.Chat, error) {
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return []*store.Chat{}, nil
	}
	return s.findChats(ctx, bson.M{"_id": bson.M{"$in": oids}})
}

// GetChatsByDirectKeys retrieves the direct chats matching keys.
func (s *MongoStore) GetChatsByDirectKeys(ctx context.Context, keys []string) ([]*store.Chat, error) {
	if len(keys) == 0 {
		return []*store.Chat{}, nil
	}
	return s.findChats(ctx, bson.M{"directKey": bson.M{"$in": keys}})
}

func (s *MongoStore) findChats(ctx context.Context, filter bson.M) ([]*store.Chat, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	cursor, err := s.chats.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find chats: %w", err)
	}

	var docs []chatDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode chats: %w", err)
	}

	chats := make([]*store.Chat, 0, len(docs))
	for i := range docs {
		chats = append(chats, docs[i].toStore())
	}
	return chats, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message to storage.
func (s *MongoStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	chatID, err := primitive.ObjectIDFromHex(msg.ChatID)
	if err != nil {
		return fmt.Errorf("chat %s: %w", msg.ChatID, store.ErrNotFound)
	}
	userID, err := primitive.ObjectIDFromHex(msg.UserID)
	if err != nil {
		return fmt.Errorf("user %s: %w", msg.UserID, store.ErrNotFound)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	doc := messageDoc{
		ID:        primitive.NewObjectID(),
		ChatID:    chatID,
		User:      userID,
		Text:      msg.Text,
		LikedBy:   []primitive.ObjectID{},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.messages.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	msg.ID = doc.ID.Hex()
	msg.LikedBy = []string{}
	msg.CreatedAt = now
	msg.UpdatedAt = now
	return nil
}

// GetMessageByID retrieves a message by ID.
func (s *MongoStore) GetMessageByID(ctx context.Context, id string) (*store.Message, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", id, store.ErrNotFound)
	}

	var doc messageDoc
	if err := s.messages.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("message %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("find message: %w", err)
	}

	return doc.toStore(), nil
}

// ListMessages retrieves messages from a chat, newest first.
func (s *MongoStore) ListMessages(ctx context.Context, chatID string, limit int, before *time.Time) ([]*store.Message, error) {
	oid, err := primitive.ObjectIDFromHex(chatID)
	if err != nil {
		return []*store.Message{}, nil
	}

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	filter := bson.M{"chatId": oid}
	if before != nil {
		filter["createdAt"] = bson.M{"$lt": before.UTC()}
	}
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(int64(limit))

	cursor, err := s.messages.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find messages: %w", err)
	}

	var docs []messageDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode messages: %w", err)
	}

	messages := make([]*store.Message, 0, len(docs))
	for i := range docs {
		messages = append(messages, docs[i].toStore())
	}
	return messages, nil
}

// LikeMessage appends userID to likedBy unless it is already there.
// updatedAt only moves when the set actually grows.
func (s *MongoStore) LikeMessage(ctx context.Context, id, userID string) (*store.Message, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("message %s: %w", id, store.ErrNotFound)
	}
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, fmt.Errorf("user %s: %w", userID, store.ErrNotFound)
	}

	updateCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc messageDoc
	err = s.messages.FindOneAndUpdate(updateCtx,
		bson.M{"_id": oid, "likedBy": bson.M{"$ne": uid}},
		bson.M{
			"$push": bson.M{"likedBy": uid},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
		opts,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// either missing or already liked
			return s.GetMessageByID(ctx, id)
		}
		return nil, fmt.Errorf("like message: %w", err)
	}

	return doc.toStore(), nil
}
