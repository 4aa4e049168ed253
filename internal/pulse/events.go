package pulse

import "time"

// Event topics published by the status store.
const (
	TopicTargetDown      = "pulse.target.down"
	TopicTargetRecovered = "pulse.target.recovered"
)

// TransitionEvent is the payload of TopicTargetDown and TopicTargetRecovered.
// For a recovery, ConsecutiveFailures is the length of the streak that ended.
type TransitionEvent struct {
	Slot                int       `json:"slot"`
	Alias               string    `json:"alias"`
	Kind                Kind      `json:"kind"`
	MonitorURL          string    `json:"monitor_url"`
	Reason              string    `json:"reason,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
	At                  time.Time `json:"at"`
}
