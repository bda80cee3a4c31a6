// Package seed loads fixture users and chats into a store.
package seed

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/vovakirdan/chatdir/internal/auth"
	"github.com/vovakirdan/chatdir/internal/store"
	"github.com/vovakirdan/chatdir/internal/utils"
)

// File is the on-disk fixture format.
type File struct {
	Users []UserFixture `yaml:"users"`
	// Chats lists participants by username. Two-member chats become direct chats.
	Chats [][]string `yaml:"chats"`
}

// UserFixture describes one seeded user.
type UserFixture struct {
	ID       string  `yaml:"id"`
	Username string  `yaml:"username"`
	Email    string  `yaml:"email"`
	Avatar   *string `yaml:"avatar"`
	Password string  `yaml:"password"`
}

// Result reports what Apply created.
type Result struct {
	Users map[string]string // username -> id
	Chats []string
}

// Load reads and parses a fixture file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return Parse(data)
}

// Parse decodes fixture YAML.
func Parse(data []byte) (*File, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &f, nil
}

// Apply inserts the fixture into st. Users that already exist (same email)
// are skipped; chats referencing unknown usernames fail the call.
func Apply(ctx context.Context, st store.Store, f *File) (*Result, error) {
	res := &Result{Users: make(map[string]string, len(f.Users))}

	for _, fx := range f.Users {
		if fx.Username == "" || fx.Email == "" {
			return nil, fmt.Errorf("seed user needs username and email")
		}
		if fx.ID != "" && !utils.IsID(fx.ID) {
			return nil, fmt.Errorf("seed user %s: id %q is not an object id", fx.Username, fx.ID)
		}

		user := &store.User{
			ID:       fx.ID,
			Username: fx.Username,
			Email:    fx.Email,
			Avatar:   fx.Avatar,
		}
		if fx.Password != "" {
			hash, err := auth.HashPassword(fx.Password)
			if err != nil {
				return nil, err
			}
			user.PasswordHash = hash
		}

		if err := st.CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return nil, fmt.Errorf("seed user %s: %w", fx.Username, err)
		}
		res.Users[fx.Username] = user.ID
	}

	for _, members := range f.Chats {
		ids := make([]string, 0, len(members))
		for _, name := range members {
			id, ok := res.Users[name]
			if !ok {
				return nil, fmt.Errorf("seed chat: unknown user %q", name)
			}
			ids = append(ids, id)
		}
		if len(ids) < 2 {
			return nil, fmt.Errorf("seed chat needs at least two members")
		}

		chat := &store.Chat{Participants: ids}
		if len(ids) == 2 {
			key := store.DirectKey(ids[0], ids[1])
			chat.DirectKey = &key
		}
		if err := st.CreateChat(ctx, chat); err != nil {
			if errors.Is(err, store.ErrConflict) {
				continue
			}
			return nil, fmt.Errorf("seed chat: %w", err)
		}
		res.Chats = append(res.Chats, chat.ID)
	}

	return res, nil
}
