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
var _ Notifier = (*AlertmanagerNotifier)(nil)

// alertmanagerPayload matches the Prometheus Alertmanager webhook receiver format.
type alertmanagerPayload struct {
	Version string              `json:"version"`
	Status  string              `json:"status"`
	Alerts  []alertmanagerAlert `json:"alerts"`
}

type alertmanagerAlert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     time.Time         `json:"startsAt"`
	EndsAt       time.Time         `json:"endsAt"`
	GeneratorURL string            `json:"generatorURL"`
}

// AlertmanagerNotifier delivers transitions in Alertmanager webhook format.
type AlertmanagerNotifier struct {
	client *http.Client
	cfg    NotifierConfig
}

// NewAlertmanagerNotifier creates an Alertmanager-format notifier.
func NewAlertmanagerNotifier(cfg NotifierConfig) *AlertmanagerNotifier {
	return &AlertmanagerNotifier{
		client: &http.Client{Timeout: cfg.Timeout},
		cfg:    cfg,
	}
}

// Notify sends ev as a firing alert, or a resolved one for a recovery.
func (n *AlertmanagerNotifier) Notify(ctx context.Context, ev TransitionEvent, eventType string) error {
	alert := alertmanagerAlert{
		Status: "firing",
		Labels: map[string]string{
			"alertname":   "TargetDown",
			"monitor":     ev.Alias,
			"type":        string(ev.Kind),
			"monitor_url": ev.MonitorURL,
			"source":      "uptimewatch",
		},
		Annotations: map[string]string{
			"summary": fmt.Sprintf("%s is down: %s", ev.Alias, ev.Reason),
		},
		StartsAt:     ev.At,
		GeneratorURL: ev.MonitorURL,
	}
	if eventType == EventRecovered {
		alert.Status = "resolved"
		alert.EndsAt = ev.At
		alert.Annotations["summary"] = fmt.Sprintf("%s recovered after %d failed checks", ev.Alias, ev.ConsecutiveFailures)
	}

	body, err := json.Marshal(alertmanagerPayload{
		Version: "4",
		Status:  alert.Status,
		Alerts:  []alertmanagerAlert{alert},
	})
	if err != nil {
		return fmt.Errorf("marshal alertmanager payload: %w", err)
	}
	if err := postJSON(ctx, n.client, n.cfg.URL, "Uptimewatch-Alertmanager/"+version.Short(), n.cfg.Secret, n.cfg.Headers, body); err != nil {
		return fmt.Errorf("alertmanager: %w", err)
	}
	return nil
}

// Type returns the notifier type identifier.
func (n *AlertmanagerNotifier) Type() string {
	return "alertmanager"
}
