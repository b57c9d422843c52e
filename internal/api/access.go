// Package api exposes the token-gated content API consumed by the mobile
// app: the access decision over a bearer token and the HTTP handlers that
// translate it into responses.
package api

import (
	"errors"
	"strings"
	"time"

	"texts-bot/internal/models"
	"texts-bot/internal/store"
	"texts-bot/internal/subscription"
	"texts-bot/pkg/logger"
)

// Decision tags the outcome of resolving a token.
type Decision int

const (
	DecisionContent Decision = iota
	DecisionSubscriptionInactive
	DecisionInvalidToken
	DecisionBadRequest
)

// AccessResult is the outcome of resolving a token at a point in time.
// User is populated for DecisionContent and DecisionSubscriptionInactive.
type AccessResult struct {
	Decision Decision
	User     models.User
}

// Service resolves tokens against the store. It is a pure reader: no request
// ever mutates user state.
type Service struct {
	store   *store.FileStore
	botLink string
	log     *logger.Logger
}

func NewService(st *store.FileStore, botLink string, log *logger.Logger) *Service {
	return &Service{store: st, botLink: botLink, log: log}
}

// ResolveAccess maps a token to one of the four access outcomes. The token is
// trimmed before lookup; empty or whitespace-only input is a caller error.
func (s *Service) ResolveAccess(token string, now time.Time) AccessResult {
	token = strings.TrimSpace(token)
	if token == "" {
		return AccessResult{Decision: DecisionBadRequest}
	}

	user, _, err := s.store.FindByToken(token)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.log.Errorw("token lookup failed", "error", err)
		}
		return AccessResult{Decision: DecisionInvalidToken}
	}

	if !subscription.IsActive(user, now) {
		return AccessResult{Decision: DecisionSubscriptionInactive, User: user}
	}
	return AccessResult{Decision: DecisionContent, User: user}
}
