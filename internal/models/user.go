// internal/models/user.go
package models

import (
	"time"
)

// Texts is the set of fields shown by the mobile app. All three fields are
// always populated; values missing from the data file fall back to defaults.
type Texts struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
	Body     string `json:"body"`
}

// DefaultTexts returns the placeholder set every new user starts with.
func DefaultTexts() Texts {
	return Texts{
		Title:    "Ваш заголовок появится здесь",
		Subtitle: "Обновите текст через Telegram-бота",
		Body:     "После оплаты подписки вы сможете задать свои тексты командой /set_texts.",
	}
}

// User is a single bot user, keyed in the store by chat id. The token is
// assigned once at creation and is never reassigned to another user.
type User struct {
	Token                 string     `json:"token"`
	Texts                 Texts      `json:"texts"`
	SubscriptionExpiresAt *time.Time `json:"subscriptionExpiresAt"`
	UpdatedAt             *time.Time `json:"updatedAt"`
}
