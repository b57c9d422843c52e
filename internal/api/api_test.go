package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"texts-bot/internal/models"
	"texts-bot/internal/store"
	"texts-bot/pkg/logger"
)

const testBotLink = "https://t.me/test_bot"

// newTestService builds a service over a store with one active subscriber and
// one lapsed one, returning their tokens.
func newTestService(t *testing.T) (svc *Service, activeToken, inactiveToken string) {
	t.Helper()

	st, err := store.Open(filepath.Join(t.TempDir(), "data.json"))
	require.NoError(t, err)

	active, err := st.EnsureUser("1")
	require.NoError(t, err)
	expires := time.Now().UTC().AddDate(0, 0, 1)
	updated := time.Now().UTC()
	_, err = st.Update("1", func(u *models.User) {
		u.Texts = models.Texts{Title: "T", Subtitle: "S", Body: "B"}
		u.SubscriptionExpiresAt = &expires
		u.UpdatedAt = &updated
	})
	require.NoError(t, err)

	inactive, err := st.EnsureUser("2")
	require.NoError(t, err)

	return NewService(st, testBotLink, logger.New()), active.Token, inactive.Token
}

func TestResolveAccess(t *testing.T) {
	svc, activeToken, inactiveToken := newTestService(t)
	now := time.Now()

	tests := []struct {
		name  string
		token string
		want  Decision
	}{
		{name: "empty token", token: "", want: DecisionBadRequest},
		{name: "whitespace token", token: "   ", want: DecisionBadRequest},
		{name: "unknown token", token: "unknown-token", want: DecisionInvalidToken},
		{name: "inactive subscription", token: inactiveToken, want: DecisionSubscriptionInactive},
		{name: "active subscription", token: activeToken, want: DecisionContent},
		{name: "token trimmed before lookup", token: "  " + activeToken + "  ", want: DecisionContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := svc.ResolveAccess(tt.token, now)
			assert.Equal(t, tt.want, result.Decision)
		})
	}
}

func TestResolveAccessCarriesUser(t *testing.T) {
	svc, activeToken, inactiveToken := newTestService(t)
	now := time.Now()

	result := svc.ResolveAccess(activeToken, now)
	require.Equal(t, DecisionContent, result.Decision)
	assert.Equal(t, models.Texts{Title: "T", Subtitle: "S", Body: "B"}, result.User.Texts)
	assert.NotNil(t, result.User.SubscriptionExpiresAt)
	assert.NotNil(t, result.User.UpdatedAt)

	result = svc.ResolveAccess(inactiveToken, now)
	require.Equal(t, DecisionSubscriptionInactive, result.Decision)
	assert.Nil(t, result.User.SubscriptionExpiresAt)
}

func doTexts(t *testing.T, svc *Service, url string, header string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, url, nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()

	svc.HandleTexts(w, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHandleTextsMissingToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	w, body := doTexts(t, svc, "/texts", "")

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Token is required", body["error"])
	assert.Equal(t, testBotLink, body["bot_link"])
}

func TestHandleTextsInvalidToken(t *testing.T) {
	svc, _, _ := newTestService(t)

	w, body := doTexts(t, svc, "/texts", "Bearer unknown-token")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Invalid token. Request a new one in the Telegram bot.", body["error"])
	assert.Equal(t, testBotLink, body["bot_link"])
}

func TestHandleTextsInactiveSubscription(t *testing.T) {
	svc, _, inactiveToken := newTestService(t)

	w, body := doTexts(t, svc, "/texts?token="+inactiveToken, "")

	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "Subscription is not active.", body["error"])

	sub, ok := body["subscription"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, sub["active"])
	assert.Nil(t, sub["expires_at"])
}

func TestHandleTextsContent(t *testing.T) {
	svc, activeToken, _ := newTestService(t)

	w, body := doTexts(t, svc, "/texts", "Bearer "+activeToken)

	assert.Equal(t, http.StatusOK, w.Code)

	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "T", data["title"])
	assert.Equal(t, "S", data["subtitle"])
	assert.Equal(t, "B", data["body"])
	assert.NotNil(t, body["last_updated"])

	sub, ok := body["subscription"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, true, sub["active"])
	assert.NotNil(t, sub["expires_at"])
}

func TestHandleTextsHeaderWinsOverQuery(t *testing.T) {
	svc, activeToken, _ := newTestService(t)

	w, _ := doTexts(t, svc, "/texts?token=unknown-token", "Bearer "+activeToken)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleTextsEmptyBearerFallsBackToQuery(t *testing.T) {
	svc, activeToken, _ := newTestService(t)

	w, _ := doTexts(t, svc, "/texts?token="+activeToken, "Bearer ")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandleHealth(t *testing.T) {
	svc, _, _ := newTestService(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	svc.HandleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, float64(2), body["users"])
	assert.Equal(t, testBotLink, body["bot_link"])
}
