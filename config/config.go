// config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram struct {
		Token        string
		LinkOverride string
	}
	Storage struct {
		DataFile string
	}
	Payment struct {
		ProviderToken string
	}
	Subscription struct {
		Price            int
		Currency         string
		DurationDays     int
		ActivationSecret string
	}
	Server struct {
		Port string
	}
	ShutdownTimeout time.Duration
}

// Load loads the configuration from a config file if one is found, falling
// back to environment variables otherwise.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")

	// Set default values
	v.SetDefault("ShutdownTimeout", 10*time.Second)
	v.SetDefault("Storage.DataFile", "data.json")
	v.SetDefault("Subscription.Price", 19900)
	v.SetDefault("Subscription.Currency", "RUB")
	v.SetDefault("Subscription.DurationDays", 30)
	v.SetDefault("Server.Port", "3000")

	v.AutomaticEnv()

	// If no config file exists, build the config from environment variables.
	if err := v.ReadInConfig(); err != nil {
		cfg := &Config{}

		cfg.Telegram.Token = os.Getenv("TELEGRAM_BOT_TOKEN")
		cfg.Telegram.LinkOverride = os.Getenv("TELEGRAM_BOT_LINK")
		cfg.Storage.DataFile = getEnvOr("TEXTS_FILE", "data.json")
		cfg.Payment.ProviderToken = os.Getenv("PAYMENT_PROVIDER_TOKEN")
		cfg.Subscription.Price = getEnvIntOr("SUBSCRIPTION_PRICE", 19900)
		cfg.Subscription.Currency = getEnvOr("SUBSCRIPTION_CURRENCY", "RUB")
		cfg.Subscription.DurationDays = getEnvIntOr("SUBSCRIPTION_DURATION_DAYS", 30)
		cfg.Subscription.ActivationSecret = os.Getenv("SUBSCRIPTION_ACTIVATION_SECRET")
		cfg.Server.Port = getEnvOr("PORT", "3000")
		cfg.ShutdownTimeout = 10 * time.Second

		return cfg, nil
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Helper function to get environment variable with default value
func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOr(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
