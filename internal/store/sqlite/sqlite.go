package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	"github.com/vovakirdan/chatdir/internal/store"
	"github.com/vovakirdan/chatdir/internal/utils"
)

//go:embed schema.sql
var schema string

const (
	driverName = "sqlite3_chatdir"
	dsnParams  = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
)

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("contains_fold", containsFold, true)
		},
	})
}

// SQLiteStore implements store.Store for SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLite store and applies the schema.
// dbPath is the path to the SQLite database file.
func New(dbPath string) (*SQLiteStore, error) {
	return NewWithSetup(dbPath, func(db *sql.DB) error {
		_, err := db.Exec(schema)
		return err
	})
}

// NewWithSetup creates a new SQLite store and runs a setup function.
// Useful for tests that seed rows right after the schema is applied.
func NewWithSetup(dbPath string, setup func(*sql.DB) error) (*SQLiteStore, error) {
	db, err := sql.Open(driverName, dbPath+dsnParams)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite works best with single connection; it also keeps :memory: databases alive
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if setup != nil {
		if err := setup(db); err != nil {
			db.Close()
			return nil, fmt.Errorf("setup: %w", err)
		}
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Schema returns the DDL applied by New.
func Schema() string {
	return schema
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ==== UserStore implementation ====

// CreateUser inserts a user.
func (s *SQLiteStore) CreateUser(ctx context.Context, user *store.User) error {
	if user.ID == "" {
		user.ID = utils.NewID()
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	query := `
		INSERT INTO users (id, username, email, avatar, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query,
		user.ID, user.Username, user.Email, nullString(user.Avatar), user.PasswordHash, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert user %s: %w", user.Email, store.ErrConflict)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	if user.Chats == nil {
		user.Chats = []string{}
	}
	return nil
}

// GetUserByID retrieves a user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (*store.User, error) {
	query := `
		SELECT id, username, email, avatar, password_hash, created_at, updated_at
		FROM users
		WHERE id = ?
	`
	user, err := scanUser(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query user: %w", err)
	}

	chats, err := s.chatIDsByUser(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	user.Chats = chats[id]
	if user.Chats == nil {
		user.Chats = []string{}
	}

	return user, nil
}

// GetUsersByIDs retrieves the users that exist among ids.
func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []string) ([]*store.User, error) {
	if len(ids) == 0 {
		return []*store.User{}, nil
	}

	query := `
		SELECT id, username, email, avatar, password_hash, created_at, updated_at
		FROM users
		WHERE id IN (` + placeholders(len(ids)) + `)
	`
	rows, err := s.db.QueryContext(ctx, query, toArgs(ids)...)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0, len(ids))
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	chats, err := s.chatIDsByUser(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		u.Chats = chats[u.ID]
		if u.Chats == nil {
			u.Chats = []string{}
		}
	}

	return users, nil
}

// SearchUsers matches value as a literal, case-insensitive substring of
// username or email. Matching goes through contains_fold since LIKE only
// folds ASCII.
func (s *SQLiteStore) SearchUsers(ctx context.Context, value, excludeID string) ([]*store.User, error) {
	query := `
		SELECT id, username, email, avatar
		FROM users
		WHERE id <> ? AND (contains_fold(username, ?) OR contains_fold(email, ?))
		ORDER BY rowid
	`
	rows, err := s.db.QueryContext(ctx, query, excludeID, value, value)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	users := make([]*store.User, 0)
	for rows.Next() {
		var (
			u      store.User
			avatar sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &avatar); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.Avatar = stringPtr(avatar)
		users = append(users, &u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	return users, nil
}

// UpdateUser applies upd and returns the updated user.
func (s *SQLiteStore) UpdateUser(ctx context.Context, id string, upd store.UserUpdate) (*store.User, error) {
	sets := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}
	if upd.Username != nil {
		sets = append(sets, "username = ?")
		args = append(args, *upd.Username)
	}
	if upd.Avatar != nil {
		sets = append(sets, "avatar = ?")
		args = append(args, *upd.Avatar)
	}
	args = append(args, id)

	query := `UPDATE users SET ` + strings.Join(sets, ", ") + ` WHERE id = ?`
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("user %s: %w", id, store.ErrNotFound)
	}

	return s.GetUserByID(ctx, id)
}

// chatIDsByUser returns the chat ids of each user, in join order.
func (s *SQLiteStore) chatIDsByUser(ctx context.Context, userIDs []string) (map[string][]string, error) {
	query := `
		SELECT user_id, chat_id
		FROM chat_members
		WHERE user_id IN (` + placeholders(len(userIDs)) + `)
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, toArgs(userIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query user chats: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string, len(userIDs))
	for rows.Next() {
		var userID, chatID string
		if err := rows.Scan(&userID, &chatID); err != nil {
			return nil, fmt.Errorf("scan user chat: %w", err)
		}
		result[userID] = append(result[userID], chatID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate user chats: %w", err)
	}

	return result, nil
}

// ==== ChatStore implementation ====

// CreateChat inserts a chat with its participants in a single transaction.
func (s *SQLiteStore) CreateChat(ctx context.Context, chat *store.Chat) error {
	if chat.ID == "" {
		chat.ID = utils.NewID()
	}
	now := time.Now().UTC()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO chats (id, direct_key, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, chat.ID, nullString(chat.DirectKey), now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert chat: %w", store.ErrConflict)
		}
		return fmt.Errorf("insert chat: %w", err)
	}

	for _, userID := range chat.Participants {
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO chat_members (chat_id, user_id)
			VALUES (?, ?)
		`, chat.ID, userID)
		if err != nil {
			return fmt.Errorf("add chat member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetChatByID retrieves a chat by ID.
func (s *SQLiteStore) GetChatByID(ctx context.Context, id string) (*store.Chat, error) {
	chats, err := s.GetChatsByIDs(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	if len(chats) == 0 {
		return nil, fmt.Errorf("chat %s: %w", id, store.ErrNotFound)
	}
	return chats[0], nil
}

// GetChatsByIDs retrieves the chats that exist among ids.
func (s *SQLiteStore) GetChatsByIDs(ctx context.Context, ids []string) ([]*store.Chat, error) {
	if len(ids) == 0 {
		return []*store.Chat{}, nil
	}
	return s.queryChats(ctx, "id", ids)
}

// GetChatsByDirectKeys retrieves the direct chats matching keys.
func (s *SQLiteStore) GetChatsByDirectKeys(ctx context.Context, keys []string) ([]*store.Chat, error) {
	if len(keys) == 0 {
		return []*store.Chat{}, nil
	}
	return s.queryChats(ctx, "direct_key", keys)
}

func (s *SQLiteStore) queryChats(ctx context.Context, column string, values []string) ([]*store.Chat, error) {
	query := `
		SELECT id, direct_key, created_at, updated_at
		FROM chats
		WHERE ` + column + ` IN (` + placeholders(len(values)) + `)
	`
	rows, err := s.db.QueryContext(ctx, query, toArgs(values)...)
	if err != nil {
		return nil, fmt.Errorf("query chats: %w", err)
	}
	defer rows.Close()

	chats := make([]*store.Chat, 0, len(values))
	for rows.Next() {
		var (
			chat      store.Chat
			directKey sql.NullString
		)
		if err := rows.Scan(&chat.ID, &directKey, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan chat: %w", err)
		}
		chat.DirectKey = stringPtr(directKey)
		chats = append(chats, &chat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chats: %w", err)
	}
	if len(chats) == 0 {
		return chats, nil
	}

	chatIDs := make([]string, 0, len(chats))
	for _, c := range chats {
		chatIDs = append(chatIDs, c.ID)
	}
	members, err := s.membersByChat(ctx, chatIDs)
	if err != nil {
		return nil, err
	}
	for _, c := range chats {
		c.Participants = members[c.ID]
	}

	return chats, nil
}

// membersByChat returns the participant ids of each chat, in join order.
func (s *SQLiteStore) membersByChat(ctx context.Context, chatIDs []string) (map[string][]string, error) {
	query := `
		SELECT chat_id, user_id
		FROM chat_members
		WHERE chat_id IN (` + placeholders(len(chatIDs)) + `)
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, toArgs(chatIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query chat members: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string, len(chatIDs))
	for rows.Next() {
		var chatID, userID string
		if err := rows.Scan(&chatID, &userID); err != nil {
			return nil, fmt.Errorf("scan chat member: %w", err)
		}
		result[chatID] = append(result[chatID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate chat members: %w", err)
	}

	return result, nil
}

// ==== MessageStore implementation ====

// SaveMessage persists a message to storage.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *store.Message) error {
	if msg.ID == "" {
		msg.ID = utils.NewID()
	}
	now := time.Now().UTC()
	msg.CreatedAt = now
	msg.UpdatedAt = now
	msg.LikedBy = []string{}

	query := `
		INSERT INTO messages (id, chat_id, user_id, text, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := s.db.ExecContext(ctx, query, msg.ID, msg.ChatID, msg.UserID, msg.Text, now, now)
	if err != nil {
		return fmt.Errorf("insert message: %w", err)
	}

	return nil
}

// GetMessageByID retrieves a message by ID.
func (s *SQLiteStore) GetMessageByID(ctx context.Context, id string) (*store.Message, error) {
	query := `
		SELECT id, chat_id, user_id, text, created_at, updated_at
		FROM messages
		WHERE id = ?
	`
	var msg store.Message
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&msg.ID,
		&msg.ChatID,
		&msg.UserID,
		&msg.Text,
		&msg.CreatedAt,
		&msg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	likes, err := s.likesByMessage(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	msg.LikedBy = likesOrEmpty(likes[id])

	return &msg, nil
}

// ListMessages retrieves messages from a chat, newest first.
func (s *SQLiteStore) ListMessages(ctx context.Context, chatID string, limit int, before *time.Time) ([]*store.Message, error) {
	query := `
		SELECT id, chat_id, user_id, text, created_at, updated_at
		FROM messages
		WHERE chat_id = ?
	`
	args := []any{chatID}
	if before != nil {
		query += ` AND created_at < ?`
		args = append(args, before.UTC())
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer rows.Close()

	messages := make([]*store.Message, 0, limit)
	for rows.Next() {
		var msg store.Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.UserID, &msg.Text, &msg.CreatedAt, &msg.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		messages = append(messages, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}
	if len(messages) == 0 {
		return messages, nil
	}

	ids := make([]string, 0, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
	}
	likes, err := s.likesByMessage(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range messages {
		m.LikedBy = likesOrEmpty(likes[m.ID])
	}

	return messages, nil
}

// LikeMessage adds userID to the likedBy set of a message.
// updated_at only moves when the set actually grows.
func (s *SQLiteStore) LikeMessage(ctx context.Context, id, userID string) (*store.Message, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, `SELECT 1 FROM messages WHERE id = ?`, id).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("message %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("query message: %w", err)
	}

	result, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO message_likes (message_id, user_id)
		VALUES (?, ?)
	`, id, userID)
	if err != nil {
		return nil, fmt.Errorf("insert like: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("get rows affected: %w", err)
	}
	if affected > 0 {
		_, err = tx.ExecContext(ctx, `UPDATE messages SET updated_at = ? WHERE id = ?`, time.Now().UTC(), id)
		if err != nil {
			return nil, fmt.Errorf("touch message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return s.GetMessageByID(ctx, id)
}

func (s *SQLiteStore) likesByMessage(ctx context.Context, messageIDs []string) (map[string][]string, error) {
	query := `
		SELECT message_id, user_id
		FROM message_likes
		WHERE message_id IN (` + placeholders(len(messageIDs)) + `)
		ORDER BY seq
	`
	rows, err := s.db.QueryContext(ctx, query, toArgs(messageIDs)...)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}
	defer rows.Close()

	result := make(map[string][]string, len(messageIDs))
	for rows.Next() {
		var messageID, userID string
		if err := rows.Scan(&messageID, &userID); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		result[messageID] = append(result[messageID], userID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate likes: %w", err)
	}

	return result, nil
}

// ==== helpers ====

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*store.User, error) {
	var (
		user   store.User
		avatar sql.NullString
	)
	if err := row.Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&avatar,
		&user.PasswordHash,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	user.Avatar = stringPtr(avatar)
	return &user, nil
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func toArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// containsFold reports 1 when substr occurs in s under Unicode lower-casing.
func containsFold(s, substr string) int {
	if strings.Contains(strings.ToLower(s), strings.ToLower(substr)) {
		return 1
	}
	return 0
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}

func likesOrEmpty(likes []string) []string {
	if likes == nil {
		return []string{}
	}
	return likes
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}
