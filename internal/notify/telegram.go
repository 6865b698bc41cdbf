package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/riteshkumar/greengrid/internal/models"
)

// TelegramNotifier forwards notices to a single chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

func NewTelegramNotifier(token string, chatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithEndpoint(token, tgbotapi.APIEndpoint, chatID, http.DefaultClient, logger)
}

// NewTelegramNotifierWithEndpoint is NewTelegramNotifier against a custom Bot
// API endpoint, in tgbotapi.APIEndpoint format.
func NewTelegramNotifierWithEndpoint(token, endpoint string, chatID int64, client *http.Client, logger *slog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("failed to connect telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

func (n *TelegramNotifier) Notify(ctx context.Context, notice models.Notice) {
	prefix := "ℹ️ "
	if notice.Level == models.NoticeError {
		prefix = "❌ "
	}
	if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, prefix+notice.Message)); err != nil {
		n.logger.Error("failed to send telegram notice",
			"chat_id", n.chatID,
			"error", err.Error(),
		)
	}
}
