package pulse

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Notification event types.
const (
	EventDown      = "down"
	EventRecovered = "recovered"
)

// Notifier delivers a target transition to an external receiver.
type Notifier interface {
	// Notify sends ev. eventType is EventDown or EventRecovered.
	Notify(ctx context.Context, ev TransitionEvent, eventType string) error
	// Type returns the notifier type identifier ("webhook", "alertmanager").
	Type() string
}

// NotifierConfig is one entry of monitor.notifiers.
type NotifierConfig struct {
	Type    string            `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Secret  string            `mapstructure:"secret"` //nolint:gosec // G101: config field name, not a credential
	Headers map[string]string `mapstructure:"headers"`
	Timeout time.Duration     `mapstructure:"timeout"`
}

const defaultNotifyTimeout = 10 * time.Second

// BuildNotifier creates the notifier described by cfg.
func BuildNotifier(cfg NotifierConfig) (Notifier, error) {
	u, err := url.Parse(cfg.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid notifier url %q", cfg.URL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultNotifyTimeout
	}
	switch cfg.Type {
	case "", "webhook":
		return NewWebhookNotifier(cfg), nil
	case "alertmanager":
		return NewAlertmanagerNotifier(cfg), nil
	default:
		return nil, fmt.Errorf("unknown notifier type %q", cfg.Type)
	}
}

func buildNotifiers(cfgs []NotifierConfig) ([]Notifier, error) {
	var (
		out  []Notifier
		errs []error
	)
	for i, c := range cfgs {
		n, err := BuildNotifier(c)
		if err != nil {
			errs = append(errs, fmt.Errorf("notifiers[%d]: %w", i, err))
			continue
		}
		out = append(out, n)
	}
	return out, errors.Join(errs...)
}

// postJSON sends body to target. With a secret the body is signed with
// HMAC-SHA256 in the X-Signature header.
func postJSON(ctx context.Context, client *http.Client, target, userAgent, secret string, headers map[string]string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	if secret != "" {
		mac := hmac.New(sha256.New, []byte(secret))
		mac.Write(body)
		req.Header.Set("X-Signature", hex.EncodeToString(mac.Sum(nil)))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", target, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain body for connection reuse

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("POST %s: status %d", target, resp.StatusCode)
	}
	return nil
}
