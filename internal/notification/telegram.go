package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/josephadah/trading-ai/internal/model"
)

const telegramAPI = "https://api.telegram.org"

// TelegramNotifier sends alerts to one chat through the Bot API sendMessage
// method, formatted as MarkdownV2.
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	log      *slog.Logger
}

type telegramMessage struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

// NewTelegramNotifier creates a notifier for the bot token and target chat.
// A nil logger uses slog.Default().
func NewTelegramNotifier(botToken, chatID string, logger *slog.Logger) *TelegramNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  telegramAPI,
		client:   newHTTPClient(),
		log:      logger.With(slog.String("component", "telegram")),
	}
}

func (t *TelegramNotifier) Send(ctx context.Context, alert Alert) error {
	msg := telegramMessage{
		ChatID:    t.chatID,
		Text:      formatTelegram(alert),
		ParseMode: "MarkdownV2",
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", t.baseURL, t.botToken)
	status, body, err := postJSON(ctx, t.client, url, msg)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}

	var resp telegramResponse
	if len(body) > 0 && json.Unmarshal(body, &resp) == nil && !resp.OK && resp.Description != "" {
		return fmt.Errorf("telegram: status %d: %s", status, resp.Description)
	}
	if status != http.StatusOK {
		return fmt.Errorf("telegram: unexpected status %d", status)
	}
	t.log.Debug("sent alert", "title", alert.Title)
	return nil
}

// formatTelegram renders the alert as MarkdownV2 with a bold title. The
// leading marker follows the level, or the trade direction for signals.
func formatTelegram(alert Alert) string {
	return fmt.Sprintf("%s *%s*\n\n%s", alertEmoji(alert), escapeMarkdown(alert.Title), escapeMarkdown(alert.Message))
}

func alertEmoji(alert Alert) string {
	switch {
	case alert.Level == AlertCritical:
		return "🚨"
	case alert.Level == AlertWarning:
		return "⚠️"
	case alert.Signal != nil && alert.Signal.Direction == model.Short:
		return "📉"
	case alert.Signal != nil:
		return "📈"
	}
	return "ℹ️"
}

const markdownSpecials = "_*[]()~`>#+-=|{}.!\\"

// escapeMarkdown escapes the characters MarkdownV2 reserves.
func escapeMarkdown(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if strings.ContainsRune(markdownSpecials, r) {
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
