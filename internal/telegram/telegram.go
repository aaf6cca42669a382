package telegram

import (
	"ai-master-bot/internal/models"
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

const (
	pollTimeout   = 60
	updatesBuffer = 256
)

type TelegramClient struct {
	bot     *tgbotapi.BotAPI
	logger  *zap.Logger
	updates chan models.Update
}

func NewTelegramClient(token string, debug bool, logger *zap.Logger) (*TelegramClient, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("error creating telegram client: %w", err)
	}
	bot.Debug = debug

	logger.Info("авторизован бот", zap.String("username", bot.Self.UserName))

	return &TelegramClient{
		bot:     bot,
		logger:  logger,
		updates: make(chan models.Update, updatesBuffer),
	}, nil
}

// UserName возвращает имя бота без @
func (t *TelegramClient) UserName() string {
	return t.bot.Self.UserName
}

// Updates - единый канал входящих обновлений для обоих режимов
func (t *TelegramClient) Updates() <-chan models.Update {
	return t.updates
}

func (t *TelegramClient) SendScreen(chatID int64, screen models.Screen) error {
	_, err := t.bot.Send(NewScreenMessage(chatID, screen))
	return err
}

// AnswerCallback убирает индикатор загрузки у кнопки, text показывается
// всплывающим уведомлением
func (t *TelegramClient) AnswerCallback(callbackID, text string) error {
	_, err := t.bot.Request(tgbotapi.NewCallback(callbackID, text))
	return err
}

// StartPolling запускает Long Polling. Обновления идут в Updates() до
// отмены контекста.
func (t *TelegramClient) StartPolling(ctx context.Context) error {
	// Удаляем вебхук перед запуском Long Polling
	if _, err := t.bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
		return fmt.Errorf("failed to delete webhook: %w", err)
	}
	waitStable(ctx)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := t.bot.GetUpdatesChan(u)

	go func() {
		defer t.bot.StopReceivingUpdates()
		for {
			select {
			case <-ctx.Done():
				return
			case update, ok := <-updates:
				if !ok {
					return
				}
				t.Push(ctx, update)
			}
		}
	}()

	t.logger.Info("запущен long polling")
	return nil
}

// SetWebhook регистрирует адрес вебхука в Telegram
func (t *TelegramClient) SetWebhook(url string) error {
	wh, err := tgbotapi.NewWebhook(url)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if _, err := t.bot.Request(wh); err != nil {
		return fmt.Errorf("failed to set webhook: %w", err)
	}

	t.logger.Info("вебхук установлен", zap.String("url", url))
	return nil
}

// Push переводит обновление Telegram во внутреннее и ставит в очередь.
// Возвращает false, если обновление не поддерживается или очередь не
// освободилась до отмены контекста.
func (t *TelegramClient) Push(ctx context.Context, update tgbotapi.Update) bool {
	converted, ok := ConvertUpdate(update)
	if !ok {
		return false
	}

	select {
	case t.updates <- converted:
		return true
	case <-ctx.Done():
		t.logger.Warn("обновление отброшено", zap.Int64("user_id", converted.UserID), zap.Error(ctx.Err()))
		return false
	}
}

// Close закрывает канал обновлений, после этого Push вызывать нельзя
func (t *TelegramClient) Close() {
	close(t.updates)
}

// ConvertUpdate извлекает из обновления Telegram сообщение или нажатие кнопки
func ConvertUpdate(update tgbotapi.Update) (models.Update, bool) {
	switch {
	case update.CallbackQuery != nil && update.CallbackQuery.From != nil:
		cb := update.CallbackQuery
		chatID := cb.From.ID
		if cb.Message != nil && cb.Message.Chat != nil {
			chatID = cb.Message.Chat.ID
		}
		return models.Update{
			UserID:     cb.From.ID,
			ChatID:     chatID,
			Kind:       models.KindButtonPress,
			Payload:    cb.Data,
			FirstName:  cb.From.FirstName,
			LastName:   cb.From.LastName,
			Username:   cb.From.UserName,
			CallbackID: cb.ID,
		}, true

	case update.Message != nil && update.Message.From != nil && update.Message.Chat != nil:
		msg := update.Message
		u := models.Update{
			UserID:    msg.From.ID,
			ChatID:    msg.Chat.ID,
			FirstName: msg.From.FirstName,
			LastName:  msg.From.LastName,
			Username:  msg.From.UserName,
		}
		if msg.IsCommand() {
			u.Kind = models.KindCommand
			u.Command = msg.Command()
			u.Payload = msg.CommandArguments()
		} else {
			u.Kind = models.KindFreeText
			u.Payload = msg.Text
		}
		return u, true
	}

	return models.Update{}, false
}

// NewScreenMessage собирает сообщение с HTML-разметкой и инлайн-клавиатурой
func NewScreenMessage(chatID int64, screen models.Screen) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, screen.Text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.DisableWebPagePreview = true

	if keyboard, ok := inlineKeyboard(screen.Buttons); ok {
		msg.ReplyMarkup = keyboard
	}
	return msg
}

func inlineKeyboard(rows [][]models.Button) (tgbotapi.InlineKeyboardMarkup, bool) {
	var keyboard [][]tgbotapi.InlineKeyboardButton
	for _, row := range rows {
		var buttons []tgbotapi.InlineKeyboardButton
		for _, b := range row {
			if b.URL != "" {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonURL(b.Text, b.URL))
			} else {
				buttons = append(buttons, tgbotapi.NewInlineKeyboardButtonData(b.Text, b.Data))
			}
		}
		if len(buttons) > 0 {
			keyboard = append(keyboard, tgbotapi.NewInlineKeyboardRow(buttons...))
		}
	}
	if len(keyboard) == 0 {
		return tgbotapi.InlineKeyboardMarkup{}, false
	}
	return tgbotapi.NewInlineKeyboardMarkup(keyboard...), true
}

// waitStable - короткая пауза после смены режима получения обновлений
func waitStable(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
	}
}
