package bot

import (
	"errors"
	"strings"

	"texts-bot/internal/models"
)

var errTextsFormat = errors.New("Формат: /set_texts Заголовок | Подзаголовок | Основной текст")

// parseTexts splits the /set_texts payload into its three parts. All three
// must be present, separated by "|".
func parseTexts(raw string) (models.Texts, error) {
	parts := strings.Split(raw, "|")
	if len(parts) != 3 {
		return models.Texts{}, errTextsFormat
	}
	return models.Texts{
		Title:    strings.TrimSpace(parts[0]),
		Subtitle: strings.TrimSpace(parts[1]),
		Body:     strings.TrimSpace(parts[2]),
	}, nil
}
