package notification

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/josephadah/trading-ai/internal/model"
)

// webhookPayload is the JSON body POSTed for every alert. Symbol and
// Direction are lifted out of the signal so simple consumers can route on
// them without decoding the nested object.
type webhookPayload struct {
	Level     AlertLevel    `json:"level"`
	Title     string        `json:"title"`
	Message   string        `json:"message"`
	TS        string        `json:"ts"`
	Symbol    string        `json:"symbol,omitempty"`
	Direction string        `json:"direction,omitempty"`
	Signal    *model.Signal `json:"signal,omitempty"`
}

// WebhookNotifier POSTs alerts as JSON to a generic HTTP endpoint.
type WebhookNotifier struct {
	url    string
	client *http.Client
	now    func() time.Time
	log    *slog.Logger
}

// NewWebhookNotifier creates a notifier posting to url. A nil logger uses
// slog.Default().
func NewWebhookNotifier(url string, logger *slog.Logger) *WebhookNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookNotifier{
		url:    url,
		client: newHTTPClient(),
		now:    time.Now,
		log:    logger.With(slog.String("component", "webhook")),
	}
}

func (w *WebhookNotifier) Send(ctx context.Context, alert Alert) error {
	p := webhookPayload{
		Level:   alert.Level,
		Title:   alert.Title,
		Message: alert.Message,
		TS:      w.now().UTC().Format(time.RFC3339Nano),
		Signal:  alert.Signal,
	}
	if alert.Signal != nil {
		p.Symbol = alert.Signal.Symbol
		p.Direction = string(alert.Signal.Direction)
	}

	status, _, err := postJSON(ctx, w.client, w.url, p)
	if err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("webhook: unexpected status %d", status)
	}
	w.log.Debug("sent alert", "title", alert.Title, "symbol", p.Symbol)
	return nil
}
