package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/render"

	"texts-bot/internal/models"
)

type subscriptionInfo struct {
	Active    bool       `json:"active"`
	ExpiresAt *time.Time `json:"expires_at"`
}

type textsResponse struct {
	Data         models.Texts     `json:"data"`
	LastUpdated  *time.Time       `json:"last_updated"`
	Subscription subscriptionInfo `json:"subscription"`
}

type errorResponse struct {
	Error        string            `json:"error"`
	BotLink      *string           `json:"bot_link"`
	Subscription *subscriptionInfo `json:"subscription,omitempty"`
}

type healthResponse struct {
	Status  string  `json:"status"`
	Users   int     `json:"users"`
	BotLink *string `json:"bot_link"`
}

// HandleTexts serves GET /texts: the current texts for an active subscriber,
// or one of the error shapes the mobile client knows how to recover from.
func (s *Service) HandleTexts(w http.ResponseWriter, r *http.Request) {
	result := s.ResolveAccess(tokenFromRequest(r), time.Now())

	switch result.Decision {
	case DecisionBadRequest:
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, errorResponse{
			Error:   "Token is required",
			BotLink: s.link(),
		})

	case DecisionInvalidToken:
		s.log.Infow("texts requested with unknown token")
		render.Status(r, http.StatusUnauthorized)
		render.JSON(w, r, errorResponse{
			Error:   "Invalid token. Request a new one in the Telegram bot.",
			BotLink: s.link(),
		})

	case DecisionSubscriptionInactive:
		render.Status(r, http.StatusForbidden)
		render.JSON(w, r, errorResponse{
			Error:   "Subscription is not active.",
			BotLink: s.link(),
			Subscription: &subscriptionInfo{
				Active:    false,
				ExpiresAt: result.User.SubscriptionExpiresAt,
			},
		})

	default:
		render.JSON(w, r, textsResponse{
			Data:        result.User.Texts,
			LastUpdated: result.User.UpdatedAt,
			Subscription: subscriptionInfo{
				Active:    true,
				ExpiresAt: result.User.SubscriptionExpiresAt,
			},
		})
	}
}

// HandleHealth serves GET /health.
func (s *Service) HandleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, healthResponse{
		Status:  "ok",
		Users:   s.store.UserCount(),
		BotLink: s.link(),
	})
}

// tokenFromRequest extracts the access token: a non-empty Authorization
// bearer value wins over the token query parameter.
func tokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		if token := strings.TrimSpace(strings.TrimPrefix(h, "Bearer ")); token != "" {
			return token
		}
	}
	return strings.TrimSpace(r.URL.Query().Get("token"))
}

func (s *Service) link() *string {
	if s.botLink == "" {
		return nil
	}
	link := s.botLink
	return &link
}
