// Package notification delivers alerts about emitted signals to external
// channels (log, webhooks, Telegram).
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/josephadah/trading-ai/internal/model"
)

// AlertLevel represents the severity of an alert.
type AlertLevel string

const (
	AlertInfo     AlertLevel = "INFO"
	AlertWarning  AlertLevel = "WARNING"
	AlertCritical AlertLevel = "CRITICAL"
)

// Alert represents a notification to be sent.
type Alert struct {
	Level   AlertLevel    `json:"level"`
	Title   string        `json:"title"`
	Message string        `json:"message"`
	Signal  *model.Signal `json:"signal,omitempty"`
}

// Notifier is the interface for all notification backends.
type Notifier interface {
	// Send delivers an alert. Returns error if delivery fails.
	Send(ctx context.Context, alert Alert) error
}

// SignalAlert formats an emitted signal as an INFO alert. Prices use the
// instrument's decimals from reg.
func SignalAlert(sig model.Signal, reg *model.Registry) Alert {
	if reg == nil {
		reg = model.DefaultRegistry()
	}
	title := fmt.Sprintf("%s %s @ %s", sig.Direction, sig.Symbol, reg.FormatPrice(sig.Symbol, sig.EntryPrice))
	msg := fmt.Sprintf("%s %s\nSL %s (%.1f pips) | TP %s (%.1f pips) | RR %.2f\n%s",
		sig.Direction.Action(), sig.SignalTS.Format("2006-01-02"),
		reg.FormatPrice(sig.Symbol, sig.StopLoss), sig.StopPips,
		reg.FormatPrice(sig.Symbol, sig.TakeProfit), sig.TargetPips,
		sig.RiskReward, sig.ReasoningText())
	return Alert{Level: AlertInfo, Title: title, Message: msg, Signal: &sig}
}

// NotifySignals sends one alert per signal and returns the joined errors.
// Every signal is attempted even if an earlier one fails.
func NotifySignals(ctx context.Context, n Notifier, signals []model.Signal, reg *model.Registry) error {
	var errs []error
	for _, sig := range signals {
		if err := n.Send(ctx, SignalAlert(sig, reg)); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sig.Key(), err))
		}
	}
	return errors.Join(errs...)
}

// LogNotifier logs alerts (useful for development).
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a log-based notifier. A nil logger uses slog.Default().
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{log: logger.With(slog.String("component", "notify"))}
}

func (n *LogNotifier) Send(ctx context.Context, alert Alert) error {
	n.log.InfoContext(ctx, alert.Title, "level", string(alert.Level), "message", alert.Message)
	return nil
}

// Multi fans an alert out to every notifier.
type Multi []Notifier

func (m Multi) Send(ctx context.Context, alert Alert) error {
	var errs []error
	for _, n := range m {
		if err := n.Send(ctx, alert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Build returns a log notifier plus a webhook and/or Telegram notifier for
// whichever targets are configured.
func Build(webhookURL, telegramToken, telegramChatID string, logger *slog.Logger) Notifier {
	m := Multi{NewLogNotifier(logger)}
	if webhookURL != "" {
		m = append(m, NewWebhookNotifier(webhookURL, logger))
	}
	if telegramToken != "" && telegramChatID != "" {
		m = append(m, NewTelegramNotifier(telegramToken, telegramChatID, logger))
	}
	return m
}
