package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-token", cfg.Telegram.Token)
	assert.Equal(t, "data.json", cfg.Storage.DataFile)
	assert.Equal(t, 19900, cfg.Subscription.Price)
	assert.Equal(t, "RUB", cfg.Subscription.Currency)
	assert.Equal(t, 30, cfg.Subscription.DurationDays)
	assert.Equal(t, "3000", cfg.Server.Port)
	assert.Empty(t, cfg.Payment.ProviderToken)
	assert.Empty(t, cfg.Subscription.ActivationSecret)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("TELEGRAM_BOT_LINK", "https://t.me/override_bot")
	t.Setenv("TEXTS_FILE", "/tmp/state.json")
	t.Setenv("PAYMENT_PROVIDER_TOKEN", "provider-token")
	t.Setenv("SUBSCRIPTION_PRICE", "5000")
	t.Setenv("SUBSCRIPTION_CURRENCY", "EUR")
	t.Setenv("SUBSCRIPTION_DURATION_DAYS", "7")
	t.Setenv("SUBSCRIPTION_ACTIVATION_SECRET", "s3cret")
	t.Setenv("PORT", "8081")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://t.me/override_bot", cfg.Telegram.LinkOverride)
	assert.Equal(t, "/tmp/state.json", cfg.Storage.DataFile)
	assert.Equal(t, "provider-token", cfg.Payment.ProviderToken)
	assert.Equal(t, 5000, cfg.Subscription.Price)
	assert.Equal(t, "EUR", cfg.Subscription.Currency)
	assert.Equal(t, 7, cfg.Subscription.DurationDays)
	assert.Equal(t, "s3cret", cfg.Subscription.ActivationSecret)
	assert.Equal(t, "8081", cfg.Server.Port)
}

func TestLoadBadIntFallsBack(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "test-token")
	t.Setenv("SUBSCRIPTION_PRICE", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 19900, cfg.Subscription.Price)
}
