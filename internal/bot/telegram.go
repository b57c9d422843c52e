package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"texts-bot/internal/models"
	"texts-bot/internal/store"
	"texts-bot/internal/subscription"
	"texts-bot/pkg/logger"
)

// Options carries the bot-facing configuration. An empty ProviderToken turns
// /subscribe into a placeholder message; an empty ActivationSecret disables
// the /activate command entirely.
type Options struct {
	LinkOverride     string
	ProviderToken    string
	ActivationSecret string
	Price            int
	Currency         string
}

type TelegramBot struct {
	bot    *tgbotapi.BotAPI
	store  *store.FileStore
	engine *subscription.Engine
	logger *logger.Logger
	opts   Options
	link   string
}

func New(token string, opts Options, st *store.FileStore, engine *subscription.Engine, logger *logger.Logger) (*TelegramBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}

	logger.Infow("Authorized on Telegram", "username", api.Self.UserName)

	link := opts.LinkOverride
	if link == "" {
		link = fmt.Sprintf("https://t.me/%s", api.Self.UserName)
	}

	return &TelegramBot{
		bot:    api,
		store:  st,
		engine: engine,
		logger: logger,
		opts:   opts,
		link:   link,
	}, nil
}

// Link returns the resolved bot link handed to API error responses.
func (t *TelegramBot) Link() string { return t.link }

// Start begins receiving updates from Telegram via polling.
func (t *TelegramBot) Start(ctx context.Context) error {
	// Remove any existing webhook so polling can take over.
	_, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{
		DropPendingUpdates: true,
	})
	if err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}

	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60

	updates := t.bot.GetUpdatesChan(updateConfig)

	t.logger.Infow("Started receiving Telegram updates")

	go t.handleUpdates(ctx, updates)

	return nil
}

// Stop gracefully shuts down the bot.
func (t *TelegramBot) Stop(ctx context.Context) error {
	t.bot.StopReceivingUpdates()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(500 * time.Millisecond):
		return nil
	}
}

func (t *TelegramBot) handleUpdates(ctx context.Context, updates tgbotapi.UpdatesChannel) {
	for update := range updates {
		go func(update tgbotapi.Update) {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Errorw("Recovered from panic while processing update", "error", r)
				}
			}()

			switch {
			case update.PreCheckoutQuery != nil:
				t.handlePreCheckout(update.PreCheckoutQuery)
			case update.Message != nil && update.Message.SuccessfulPayment != nil:
				t.handleSuccessfulPayment(update.Message)
			case update.Message != nil && update.Message.IsCommand():
				t.handleCommand(update.Message)
			}
		}(update)
	}
}

func (t *TelegramBot) handleCommand(message *tgbotapi.Message) {
	command := message.Command()
	chatID := message.Chat.ID

	t.logger.Infow("Handling command", "command", command, "chat_id", chatID)

	switch command {
	case "start":
		t.handleStart(chatID)
	case "help":
		t.handleHelp(chatID)
	case "status":
		t.handleStatus(chatID)
	case "my_token":
		t.handleMyToken(chatID)
	case "subscribe":
		t.handleSubscribe(chatID)
	case "activate":
		t.handleActivate(chatID, message.CommandArguments())
	case "set_texts":
		t.handleSetTexts(chatID, message.CommandArguments())
	case "set_title":
		t.handleSetField(chatID, message.CommandArguments(), "/set_title", func(texts models.Texts, value string) models.Texts {
			texts.Title = value
			return texts
		})
	case "set_subtitle":
		t.handleSetField(chatID, message.CommandArguments(), "/set_subtitle", func(texts models.Texts, value string) models.Texts {
			texts.Subtitle = value
			return texts
		})
	case "set_body":
		t.handleSetField(chatID, message.CommandArguments(), "/set_body", func(texts models.Texts, value string) models.Texts {
			texts.Body = value
			return texts
		})
	default:
		t.send(chatID, "Неизвестная команда. Используйте /help для списка команд.")
	}
}

func (t *TelegramBot) handleStart(chatID int64) {
	user, err := t.store.EnsureUser(chatKey(chatID))
	if err != nil {
		t.logger.Errorw("Failed to ensure user", "error", err, "chat_id", chatID)
		t.send(chatID, "Извините, произошла ошибка. Пожалуйста, попробуйте позже.")
		return
	}

	instructions := []string{
		"Добро пожаловать! Используйте команды:",
		"/status — проверить статус подписки",
		"/my_token — получить токен для входа в приложение",
		"/set_texts Заголовок | Подзаголовок | Основной текст — обновить тексты",
		"/set_title <текст> — обновить только заголовок",
		"/set_subtitle <текст> — обновить подзаголовок",
		"/set_body <текст> — обновить основной текст",
	}
	if t.opts.ProviderToken != "" {
		instructions = append([]string{instructions[0], "/subscribe — оплатить подписку на месяц"}, instructions[1:]...)
	} else {
		instructions = append([]string{instructions[0], "/subscribe — запросить оплату (требуется подключение платежей Telegram)"}, instructions[1:]...)
	}

	subscriptionInfo := "Подписка не активна"
	if subscription.IsActive(user, time.Now()) {
		subscriptionInfo = fmt.Sprintf("Подписка активна до %s", formatExpiry(user.SubscriptionExpiresAt))
	}

	lines := []string{
		strings.Join(instructions, "\n"),
		"",
		fmt.Sprintf("Ваш токен: %s", user.Token),
		subscriptionInfo,
		fmt.Sprintf("Ссылка на бота: %s", t.link),
	}
	t.send(chatID, strings.Join(lines, "\n"))
}

func (t *TelegramBot) handleHelp(chatID int64) {
	commands := []string{"/status", "/subscribe", "/my_token", "/set_texts", "/set_title", "/set_subtitle", "/set_body"}
	var b strings.Builder
	b.WriteString("Доступные команды:\n")
	for _, cmd := range commands {
		fmt.Fprintf(&b, "• %s\n", cmd)
	}
	fmt.Fprintf(&b, "\nСсылка на бота: %s", t.link)
	t.send(chatID, b.String())
}

func (t *TelegramBot) handleStatus(chatID int64) {
	user, err := t.store.EnsureUser(chatKey(chatID))
	if err != nil {
		t.logger.Errorw("Failed to ensure user", "error", err, "chat_id", chatID)
		t.send(chatID, "Извините, произошла ошибка. Пожалуйста, попробуйте позже.")
		return
	}

	status := "не активна"
	if subscription.IsActive(user, time.Now()) {
		status = "активна"
	}
	expires := "не оформлена"
	if user.SubscriptionExpiresAt != nil {
		expires = fmt.Sprintf("до %s", formatExpiry(user.SubscriptionExpiresAt))
	}
	t.send(chatID, fmt.Sprintf("Подписка %s %s.", status, expires))
}

func (t *TelegramBot) handleMyToken(chatID int64) {
	user, err := t.store.EnsureUser(chatKey(chatID))
	if err != nil {
		t.logger.Errorw("Failed to ensure user", "error", err, "chat_id", chatID)
		t.send(chatID, "Извините, произошла ошибка. Пожалуйста, попробуйте позже.")
		return
	}
	t.send(chatID, fmt.Sprintf("Ваш токен: %s", user.Token))
}

func (t *TelegramBot) handleSubscribe(chatID int64) {
	if t.opts.ProviderToken == "" {
		t.send(chatID, fmt.Sprintf(
			"Платёжный провайдер не настроен. Свяжитесь с администратором или используйте секретную команду для продления. Ссылка на бота: %s",
			t.link,
		))
		return
	}

	payload := fmt.Sprintf("subscription-%d", time.Now().UnixMilli())
	invoice := tgbotapi.NewInvoice(
		chatID,
		"Месячная подписка",
		fmt.Sprintf("Доступ к персональному контенту в приложении на %d дней.", t.engine.DefaultDays()),
		payload,
		t.opts.ProviderToken,
		"subscription",
		t.opts.Currency,
		[]tgbotapi.LabeledPrice{{Label: "1 месяц", Amount: t.opts.Price}},
	)
	if _, err := t.bot.Send(invoice); err != nil {
		t.logger.Errorw("Failed to send invoice", "error", err, "chat_id", chatID)
		t.send(chatID, "Извините, не удалось выставить счёт. Пожалуйста, попробуйте позже.")
	}
}

func (t *TelegramBot) handleActivate(chatID int64, args string) {
	if t.opts.ActivationSecret == "" {
		t.send(chatID, "Неизвестная команда. Используйте /help для списка команд.")
		return
	}

	fields := strings.Fields(args)
	if len(fields) == 0 {
		t.send(chatID, "Формат: /activate <секрет> [дней] — вручную продлить подписку.")
		return
	}
	if fields[0] != t.opts.ActivationSecret {
		t.send(chatID, "Неверный секрет.")
		return
	}

	days := t.engine.DefaultDays()
	if len(fields) > 1 {
		parsed, err := strconv.Atoi(fields[1])
		if err != nil || parsed <= 0 {
			t.send(chatID, "Число дней должно быть положительным.")
			return
		}
		days = parsed
	}

	user, err := t.engine.Extend(chatKey(chatID), days, time.Now())
	if err != nil {
		t.logger.Errorw("Failed to extend subscription", "error", err, "chat_id", chatID)
		t.send(chatID, "Извините, не удалось продлить подписку. Пожалуйста, попробуйте позже.")
		return
	}
	t.send(chatID, fmt.Sprintf("Подписка продлена на %d дней до %s.", days, formatExpiry(user.SubscriptionExpiresAt)))
}

func (t *TelegramBot) handleSetTexts(chatID int64, args string) {
	if strings.TrimSpace(args) == "" {
		t.send(chatID, "Формат: /set_texts Заголовок | Подзаголовок | Основной текст")
		return
	}

	texts, err := parseTexts(args)
	if err != nil {
		t.send(chatID, err.Error())
		return
	}
	t.updateTexts(chatID, func(models.Texts) models.Texts { return texts })
}

func (t *TelegramBot) handleSetField(chatID int64, args, usage string, apply func(models.Texts, string) models.Texts) {
	value := strings.TrimSpace(args)
	if value == "" {
		t.send(chatID, fmt.Sprintf("Формат: %s <текст>", usage))
		return
	}
	t.updateTexts(chatID, func(current models.Texts) models.Texts {
		return apply(current, value)
	})
}

// updateTexts requires an active subscription before applying a text change;
// a successful change stamps updatedAt and persists the store.
func (t *TelegramBot) updateTexts(chatID int64, apply func(models.Texts) models.Texts) {
	user, err := t.store.EnsureUser(chatKey(chatID))
	if err != nil {
		t.logger.Errorw("Failed to ensure user", "error", err, "chat_id", chatID)
		t.send(chatID, "Извините, произошла ошибка. Пожалуйста, попробуйте позже.")
		return
	}

	if !subscription.IsActive(user, time.Now()) {
		t.send(chatID, fmt.Sprintf("Ваша подписка не активна. Оформите или продлите её в боте: %s", t.link))
		return
	}

	_, err = t.store.Update(chatKey(chatID), func(user *models.User) {
		user.Texts = apply(user.Texts)
		now := time.Now().UTC()
		user.UpdatedAt = &now
	})
	if err != nil {
		t.logger.Errorw("Failed to save texts", "error", err, "chat_id", chatID)
		t.send(chatID, "Извините, не удалось сохранить изменения. Пожалуйста, попробуйте позже.")
		return
	}
	t.send(chatID, "Тексты обновлены. Проверьте приложение.")
}

func (t *TelegramBot) handlePreCheckout(query *tgbotapi.PreCheckoutQuery) {
	_, err := t.bot.Request(tgbotapi.PreCheckoutConfig{
		PreCheckoutQueryID: query.ID,
		OK:                 true,
	})
	if err != nil {
		t.logger.Errorw("Failed to answer pre checkout query", "error", err)
	}
}

func (t *TelegramBot) handleSuccessfulPayment(message *tgbotapi.Message) {
	chatID := message.Chat.ID

	user, err := t.engine.Extend(chatKey(chatID), t.engine.DefaultDays(), time.Now())
	if err != nil {
		t.logger.Errorw("Failed to extend subscription after payment", "error", err, "chat_id", chatID)
		t.send(chatID, "Оплата получена, но продлить подписку не удалось. Свяжитесь с администратором.")
		return
	}
	t.send(chatID, fmt.Sprintf("Оплата получена! Подписка активна до %s.", formatExpiry(user.SubscriptionExpiresAt)))
}

func (t *TelegramBot) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := t.bot.Send(msg); err != nil {
		t.logger.Errorw("Failed to send message", "error", err, "chat_id", chatID)
	}
}

// chatKey is the store identity for a chat.
func chatKey(chatID int64) string {
	return strconv.FormatInt(chatID, 10)
}

func formatExpiry(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
