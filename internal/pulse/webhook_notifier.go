package pulse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/HerbHall/uptimewatch/internal/version"
)

// Compile-time interface guard.
var _ Notifier = (*WebhookNotifier)(nil)

// webhookPayload is the JSON body sent to webhook endpoints.
type webhookPayload struct {
	EventType string          `json:"event_type"`
	Target    TransitionEvent `json:"target"`
	Timestamp time.Time       `json:"timestamp"`
}

// WebhookNotifier delivers transitions via HTTP POST to a configured URL.
type WebhookNotifier struct {
	client *http.Client
	cfg    NotifierConfig
}

// NewWebhookNotifier creates a webhook notifier with the given config.
func NewWebhookNotifier(cfg NotifierConfig) *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// Notify posts ev to the configured webhook URL.
func (w *WebhookNotifier) Notify(ctx context.Context, ev TransitionEvent, eventType string) error {
	body, err := json.Marshal(webhookPayload{
		EventType: eventType,
		Target:    ev,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}
	if err := postJSON(ctx, w.client, w.cfg.URL, "Uptimewatch-Webhook/"+version.Short(), w.cfg.Secret, w.cfg.Headers, body); err != nil {
		return fmt.Errorf("webhook: %w", err)
	}
	return nil
}

// Type returns the notifier type identifier.
func (w *WebhookNotifier) Type() string {
	return "webhook"
}
