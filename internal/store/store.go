// Package store owns the durable user state: a single JSON file holding every
// user record plus the token index derived from it. The whole file is loaded
// once at startup and rewritten after every mutation.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"texts-bot/internal/models"
)

// ErrNotFound is returned when a lookup does not resolve to a known user.
var ErrNotFound = errors.New("user not found")

type state struct {
	Users  map[string]*models.User `json:"users"`
	Tokens map[string]string       `json:"tokens"`
}

// rawState keeps user records opaque so one malformed record cannot fail the
// whole load.
type rawState struct {
	Users  map[string]json.RawMessage `json:"users"`
	Tokens map[string]string          `json:"tokens"`
}

// FileStore is the process-wide user store backed by a single JSON file.
// Bot updates and HTTP requests run on separate goroutines, so the in-memory
// state is guarded by a mutex; reads never touch the disk.
type FileStore struct {
	mu    sync.RWMutex
	path  string
	state state
}

// Open reads the data file at path, creating an empty one if it does not
// exist. An unreadable file or invalid JSON is a startup failure; malformed
// individual user records are repaired instead of rejected.
func Open(path string) (*FileStore, error) {
	s := &FileStore{
		path: path,
		state: state{
			Users:  make(map[string]*models.User),
			Tokens: make(map[string]string),
		},
	}

	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		if err := s.save(); err != nil {
			return nil, fmt.Errorf("failed to initialize data file: %w", err)
		}
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read data file: %w", err)
	}

	var parsed rawState
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse data file %s: %w", path, err)
	}

	s.state = sanitize(parsed)
	return s, nil
}

// sanitize turns whatever was persisted into a consistent state: every user
// gets fully populated texts and a non-empty token, and the token index is
// rebuilt from the user records. Raw index entries are applied additively
// afterwards and only when the token is free and the user exists; entries
// conflicting with the rebuilt index are dropped.
func sanitize(raw rawState) state {
	next := state{
		Users:  make(map[string]*models.User),
		Tokens: make(map[string]string),
	}

	ids := make([]string, 0, len(raw.Users))
	for id := range raw.Users {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		user, ok := sanitizeUser(raw.Users[id])
		if !ok {
			continue
		}
		next.Users[id] = user
		next.Tokens[user.Token] = id
	}

	for token, id := range raw.Tokens {
		if _, taken := next.Tokens[token]; taken {
			continue
		}
		if _, known := next.Users[id]; known {
			next.Tokens[token] = id
		}
	}

	return next
}

// sanitizeUser repairs a single persisted record. Records that are not JSON
// objects are dropped; everything else is filled with defaults field by field.
func sanitizeUser(raw json.RawMessage) (*models.User, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false
	}

	user := &models.User{Texts: models.DefaultTexts()}

	if v, ok := fields["token"]; ok {
		_ = json.Unmarshal(v, &user.Token)
	}
	if user.Token == "" {
		user.Token = uuid.NewString()
	}

	if v, ok := fields["texts"]; ok {
		var texts map[string]string
		if err := json.Unmarshal(v, &texts); err == nil {
			if title, ok := texts["title"]; ok {
				user.Texts.Title = title
			}
			if subtitle, ok := texts["subtitle"]; ok {
				user.Texts.Subtitle = subtitle
			}
			if body, ok := texts["body"]; ok {
				user.Texts.Body = body
			}
		}
	}

	if v, ok := fields["subscriptionExpiresAt"]; ok {
		var t time.Time
		if err := json.Unmarshal(v, &t); err == nil {
			user.SubscriptionExpiresAt = &t
		}
	}
	if v, ok := fields["updatedAt"]; ok {
		var t time.Time
		if err := json.Unmarshal(v, &t); err == nil {
			user.UpdatedAt = &t
		}
	}

	return user, true
}

// save writes the current state to disk. A temp file plus rename keeps a
// concurrent crash from leaving a half-written data file behind. Callers must
// hold the write lock.
func (s *FileStore) save() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	payload, err := json.MarshalIndent(s.state, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o644); err != nil {
		return fmt.Errorf("failed to write data file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace data file: %w", err)
	}
	return nil
}
