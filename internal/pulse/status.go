package pulse

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/HerbHall/uptimewatch/internal/assertion"
	"github.com/HerbHall/uptimewatch/internal/event"
	"go.uber.org/zap"
)

// Sample is one historical check result.
type Sample struct {
	At             time.Time `json:"at"`
	Healthy        bool      `json:"healthy"`
	ResponseTimeMs *float64  `json:"response_time_ms,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// TargetStatus is the live state of one target.
type TargetStatus struct {
	Slot       int    `json:"slot"`
	Alias      string `json:"alias"`
	Kind       Kind   `json:"kind"`
	MonitorURL string `json:"monitor_url"`
	Host       string `json:"host"`
	Port       int    `json:"port"`

	Healthy             bool       `json:"healthy"`
	ConsecutiveFailures int        `json:"consecutive_failures"`
	LastError           string     `json:"last_error,omitempty"`
	LastChecked         *time.Time `json:"last_checked,omitempty"`
	LastResponseTimeMs  *float64   `json:"last_response_time_ms,omitempty"`

	UptimePercentage      float64 `json:"uptime_percentage"`
	AverageResponseTimeMs float64 `json:"average_response_time_ms"`
	SampleCount           int     `json:"sample_count"`

	// HTTP only.
	StatusCode        int                `json:"status_code,omitempty"`
	CertDaysRemaining *int               `json:"cert_days_remaining,omitempty"`
	CertIsValid       *bool              `json:"cert_is_valid,omitempty"`
	Assertions        []assertion.Result `json:"assertions,omitempty"`

	// Service checks only.
	ServiceInfo string `json:"service_info,omitempty"`

	History     []Sample `json:"history,omitempty"`
	LastOutcome Outcome  `json:"-"`
}

// StatusStore holds one TargetStatus per target at a fixed slot. Slots are
// assigned from target order at construction and never change.
type StatusStore struct {
	mu       sync.Mutex
	statuses []TargetStatus
	byAlias  map[string]int

	window     time.Duration
	maxSamples int

	now    func() time.Time
	logger *zap.Logger
	bus    *event.Bus
}

// NewStatusStore allocates a healthy, empty slot for every target. Samples
// older than window are evicted and at most maxSamples are kept; a zero
// value disables that bound, and BuildTargets rejects disabling both. bus
// may be nil.
func NewStatusStore(targets []Target, window time.Duration, maxSamples int, logger *zap.Logger, bus *event.Bus) *StatusStore {
	s := &StatusStore{
		statuses:   make([]TargetStatus, len(targets)),
		byAlias:    make(map[string]int, len(targets)),
		window:     window,
		maxSamples: maxSamples,
		now:        time.Now,
		logger:     logger,
		bus:        bus,
	}
	for i, t := range targets {
		s.statuses[i] = TargetStatus{
			Slot:             i,
			Alias:            t.Alias,
			Kind:             t.Kind(),
			MonitorURL:       t.MonitorURL,
			Host:             t.Host,
			Port:             t.Port,
			Healthy:          true,
			UptimePercentage: 100,
		}
		if _, dup := s.byAlias[t.Alias]; !dup {
			s.byAlias[t.Alias] = i
		}
	}
	return s
}

// transition is a state change detected under the lock and reported after it.
type transition struct {
	topic string
	event TransitionEvent
}

// Apply records the outcome of one probe for slot.
func (s *StatusStore) Apply(slot int, out Outcome) error {
	if out == nil {
		return fmt.Errorf("slot %d: nil outcome", slot)
	}
	now := s.now()
	status := out.Status()

	sample := Sample{At: now, Healthy: status.Healthy}
	if !status.Healthy {
		sample.Error = status.Reason
	}
	if rt, ok := out.ResponseTime(); ok {
		ms := float64(rt) / float64(time.Millisecond)
		sample.ResponseTimeMs = &ms
	}

	s.mu.Lock()
	if slot < 0 || slot >= len(s.statuses) {
		s.mu.Unlock()
		return fmt.Errorf("slot %d out of range [0, %d)", slot, len(s.statuses))
	}
	ts := &s.statuses[slot]

	ts.History = s.evict(append(ts.History, sample), now)
	ts.UptimePercentage, ts.AverageResponseTimeMs = aggregate(ts.History)
	ts.SampleCount = len(ts.History)

	var tr *transition
	if status.Healthy {
		if ts.ConsecutiveFailures > 0 {
			tr = &transition{topic: TopicTargetRecovered, event: TransitionEvent{
				Slot: slot, Alias: ts.Alias, Kind: ts.Kind, MonitorURL: ts.MonitorURL,
				ConsecutiveFailures: ts.ConsecutiveFailures, At: now,
			}}
		}
		ts.ConsecutiveFailures = 0
		ts.LastError = ""
	} else {
		ts.ConsecutiveFailures++
		if ts.ConsecutiveFailures == 1 {
			tr = &transition{topic: TopicTargetDown, event: TransitionEvent{
				Slot: slot, Alias: ts.Alias, Kind: ts.Kind, MonitorURL: ts.MonitorURL, Reason: status.Reason,
				ConsecutiveFailures: 1, At: now,
			}}
		}
		ts.LastError = status.Reason
	}
	ts.Healthy = status.Healthy
	ts.LastChecked = &now
	ts.LastResponseTimeMs = sample.ResponseTimeMs
	ts.LastOutcome = out
	setOutcomeFields(ts, out)
	s.mu.Unlock()

	if tr != nil {
		s.report(tr)
	}
	return nil
}

// setOutcomeFields copies variant-specific fields, clearing the others.
func setOutcomeFields(ts *TargetStatus, out Outcome) {
	ts.StatusCode = 0
	ts.CertDaysRemaining = nil
	ts.CertIsValid = nil
	ts.Assertions = nil
	ts.ServiceInfo = ""

	switch o := out.(type) {
	case HTTPOutcome:
		ts.StatusCode = o.StatusCode
		ts.CertDaysRemaining = o.CertDaysRemaining
		ts.CertIsValid = o.CertIsValid
		ts.Assertions = o.Assertions
	case ServiceOutcome:
		ts.ServiceInfo = o.Info
	case TCPOutcome:
	}
}

func (s *StatusStore) report(tr *transition) {
	e := tr.event
	switch tr.topic {
	case TopicTargetDown:
		s.logger.Warn("target became unhealthy",
			zap.String("target", e.Alias),
			zap.String("kind", string(e.Kind)),
			zap.String("reason", e.Reason),
		)
	case TopicTargetRecovered:
		s.logger.Info("target recovered",
			zap.String("target", e.Alias),
			zap.String("kind", string(e.Kind)),
			zap.Int("failed_checks", e.ConsecutiveFailures),
		)
	}

	// Delivered on the target's check goroutine so a target's transitions reach
	// subscribers in the order they happened.
	if s.bus != nil {
		s.bus.Publish(context.Background(), event.Event{
			Topic:     tr.topic,
			Source:    "pulse",
			Timestamp: e.At,
			Payload:   e,
		})
	}
}

// evict drops samples older than the window, then trims to the count cap.
func (s *StatusStore) evict(history []Sample, now time.Time) []Sample {
	if s.window > 0 {
		cutoff := now.Add(-s.window)
		i := 0
		for i < len(history) && history[i].At.Before(cutoff) {
			i++
		}
		if i > 0 {
			history = slices.Delete(history, 0, i)
		}
	}
	if s.maxSamples > 0 && len(history) > s.maxSamples {
		history = slices.Delete(history, 0, len(history)-s.maxSamples)
	}
	return history
}

// aggregate returns uptime in percent (100 for no samples) and the mean
// response time of samples that carry one (0 when none do).
func aggregate(history []Sample) (uptime, avgMs float64) {
	if len(history) == 0 {
		return 100, 0
	}
	var healthy, timed int
	var sum float64
	for _, smp := range history {
		if smp.Healthy {
			healthy++
		}
		if smp.ResponseTimeMs != nil {
			sum += *smp.ResponseTimeMs
			timed++
		}
	}
	uptime = float64(healthy*100) / float64(len(history))
	if timed > 0 {
		avgMs = sum / float64(timed)
	}
	return uptime, avgMs
}

// Len returns the number of slots.
func (s *StatusStore) Len() int {
	return len(s.statuses)
}

// Snapshot returns a copy of every status in slot order, without history.
func (s *StatusStore) Snapshot() []TargetStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]TargetStatus, len(s.statuses))
	for i := range s.statuses {
		out[i] = s.statuses[i]
		out[i].History = nil
	}
	return out
}

// Get returns a copy of the status at slot, including its history.
func (s *StatusStore) Get(slot int) (TargetStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slot < 0 || slot >= len(s.statuses) {
		return TargetStatus{}, false
	}
	ts := s.statuses[slot]
	ts.History = slices.Clone(ts.History)
	return ts, true
}

// Lookup finds a status by alias. With duplicate aliases the first slot wins.
func (s *StatusStore) Lookup(alias string) (TargetStatus, bool) {
	slot, ok := s.byAlias[alias]
	if !ok {
		return TargetStatus{}, false
	}
	return s.Get(slot)
}
