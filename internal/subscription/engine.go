// Package subscription decides whether a user's paid window is active and
// extends it in whole UTC calendar days.
package subscription

import (
	"errors"
	"time"

	"texts-bot/internal/models"
	"texts-bot/internal/store"
)

// ErrInvalidDays is returned when an extension is requested for a
// non-positive number of days.
var ErrInvalidDays = errors.New("days must be a positive number")

// IsActive reports whether the subscription is active at the given instant.
// An expiry equal to now counts as lapsed.
func IsActive(user models.User, now time.Time) bool {
	return user.SubscriptionExpiresAt != nil && user.SubscriptionExpiresAt.After(now)
}

// Engine mutates subscription windows through the store. It carries the
// configured default duration used for payment events.
type Engine struct {
	store       *store.FileStore
	defaultDays int
}

func NewEngine(st *store.FileStore, defaultDays int) *Engine {
	return &Engine{store: st, defaultDays: defaultDays}
}

// DefaultDays returns the configured subscription duration.
func (e *Engine) DefaultDays() int { return e.defaultDays }

// Extend advances the user's expiry by days calendar days: from the current
// expiry while the subscription is still active (renewing early adds to the
// remaining time), from now once it has lapsed. The user is created on first
// contact. The store is persisted before the updated user is returned.
func (e *Engine) Extend(id string, days int, now time.Time) (models.User, error) {
	if days <= 0 {
		return models.User{}, ErrInvalidDays
	}

	if _, err := e.store.EnsureUser(id); err != nil {
		return models.User{}, err
	}

	return e.store.Update(id, func(user *models.User) {
		start := now
		if IsActive(*user, now) {
			start = *user.SubscriptionExpiresAt
		}
		expires := start.UTC().AddDate(0, 0, days)
		user.SubscriptionExpiresAt = &expires
	})
}
