package pulse

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func downEvent() TransitionEvent {
	return TransitionEvent{
		Slot:                0,
		Alias:               "api (HTTP:443)",
		Kind:                KindHTTP,
		MonitorURL:          "https://api.internal:443/health",
		Reason:              "unexpected status code: 503 (expected 200)",
		ConsecutiveFailures: 1,
		At:                  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestWebhookNotifier_Notify_Success(t *testing.T) {
	var received webhookPayload
	var headers http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(NotifierConfig{URL: srv.URL, Timeout: time.Second})

	if err := notifier.Notify(context.Background(), downEvent(), EventDown); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if received.EventType != EventDown {
		t.Errorf("event_type = %q, want %q", received.EventType, EventDown)
	}
	if received.Target.Alias != "api (HTTP:443)" {
		t.Errorf("target.alias = %q, want %q", received.Target.Alias, "api (HTTP:443)")
	}
	if received.Target.Reason != downEvent().Reason {
		t.Errorf("target.reason = %q", received.Target.Reason)
	}
	if headers.Get("Content-Type") != "application/json" {
		t.Errorf("Content-Type = %q, want %q", headers.Get("Content-Type"), "application/json")
	}
	if ua := headers.Get("User-Agent"); !strings.HasPrefix(ua, "Uptimewatch-Webhook/") {
		t.Errorf("User-Agent = %q, want Uptimewatch-Webhook/ prefix", ua)
	}
}

func TestWebhookNotifier_Notify_HMACSignature(t *testing.T) {
	secret := "test-secret-key"
	var receivedSig string
	var receivedBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedSig = r.Header.Get("X-Signature")
		receivedBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(NotifierConfig{URL: srv.URL, Secret: secret, Timeout: time.Second})

	if err := notifier.Notify(context.Background(), downEvent(), EventRecovered); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if receivedSig == "" {
		t.Fatal("expected X-Signature header, got empty")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(receivedBody)
	expectedSig := hex.EncodeToString(mac.Sum(nil))

	if receivedSig != expectedSig {
		t.Errorf("signature mismatch: got %q, want %q", receivedSig, expectedSig)
	}
}

func TestWebhookNotifier_Notify_CustomHeaders(t *testing.T) {
	var headers http.Header

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(NotifierConfig{
		URL:     srv.URL,
		Timeout: time.Second,
		Headers: map[string]string{"X-Custom-Header": "custom-value"},
	})

	if err := notifier.Notify(context.Background(), downEvent(), EventDown); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if headers.Get("X-Custom-Header") != "custom-value" {
		t.Errorf("X-Custom-Header = %q, want %q", headers.Get("X-Custom-Header"), "custom-value")
	}
}

func TestWebhookNotifier_Notify_Non2xxError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(NotifierConfig{URL: srv.URL, Timeout: time.Second})

	err := notifier.Notify(context.Background(), downEvent(), EventDown)
	if err == nil {
		t.Fatal("expected error for non-2xx status")
	}
	if !strings.Contains(err.Error(), "status 500") {
		t.Errorf("error = %v, want status 500", err)
	}
}

func TestWebhookNotifier_Notify_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(NotifierConfig{URL: srv.URL, Timeout: 50 * time.Millisecond})

	if err := notifier.Notify(context.Background(), downEvent(), EventDown); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestWebhookNotifier_Notify_ContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	notifier := NewWebhookNotifier(NotifierConfig{URL: srv.URL, Timeout: time.Second})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := notifier.Notify(ctx, downEvent(), EventDown); err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestBuildNotifier(t *testing.T) {
	tests := []struct {
		name     string
		cfg      NotifierConfig
		wantType string
		wantErr  string
	}{
		{"default type", NotifierConfig{URL: "http://hooks.local/x"}, "webhook", ""},
		{"webhook", NotifierConfig{Type: "webhook", URL: "https://hooks.local/x"}, "webhook", ""},
		{"alertmanager", NotifierConfig{Type: "alertmanager", URL: "http://am:9093/api/v2/alerts"}, "alertmanager", ""},
		{"unknown type", NotifierConfig{Type: "email", URL: "http://x"}, "", `unknown notifier type "email"`},
		{"bad scheme", NotifierConfig{URL: "ftp://x"}, "", "invalid notifier url"},
		{"missing url", NotifierConfig{Type: "webhook"}, "", "invalid notifier url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := BuildNotifier(tt.cfg)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n.Type() != tt.wantType {
				t.Errorf("Type() = %q, want %q", n.Type(), tt.wantType)
			}
		})
	}
}

func TestBuildNotifier_DefaultTimeout(t *testing.T) {
	n, err := BuildNotifier(NotifierConfig{URL: "http://hooks.local"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := n.(*WebhookNotifier).client.Timeout; got != defaultNotifyTimeout {
		t.Errorf("timeout = %v, want %v", got, defaultNotifyTimeout)
	}
}
