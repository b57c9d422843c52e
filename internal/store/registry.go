package store

import (
	"github.com/google/uuid"

	"texts-bot/internal/models"
)

// EnsureUser returns the user for the given chat id, creating one with a
// fresh token and default texts on first contact. A newly created user is
// persisted before the call returns; existing users are returned as-is
// without touching the disk.
func (s *FileStore) EnsureUser(id string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.state.Users[id]; ok {
		return *user, nil
	}

	user := &models.User{
		Token: uuid.NewString(),
		Texts: models.DefaultTexts(),
	}
	s.state.Users[id] = user
	s.state.Tokens[user.Token] = id

	if err := s.save(); err != nil {
		return models.User{}, err
	}
	return *user, nil
}

// FindByToken resolves an access token to its user via the index. A token
// that does not resolve returns ErrNotFound, including the case of a stale
// index entry pointing at a missing record.
func (s *FileStore) FindByToken(token string) (models.User, string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.state.Tokens[token]
	if !ok {
		return models.User{}, "", ErrNotFound
	}
	user, ok := s.state.Users[id]
	if !ok {
		return models.User{}, "", ErrNotFound
	}
	return *user, id, nil
}

// Update applies fn to the user's record and persists the store before
// returning the updated copy. fn must not change the token. Returns
// ErrNotFound for an unknown id.
func (s *FileStore) Update(id string, fn func(*models.User)) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.state.Users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}

	fn(user)

	if err := s.save(); err != nil {
		return models.User{}, err
	}
	return *user, nil
}

// UserCount reports how many users are registered.
func (s *FileStore) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.state.Users)
}
