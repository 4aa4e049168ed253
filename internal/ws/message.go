package ws

import "time"

// MessageType discriminates WebSocket messages.
type MessageType string

const (
	MessageTargetDown      MessageType = "target.down"
	MessageTargetRecovered MessageType = "target.recovered"
)

// Message is the envelope for all WebSocket messages. Data carries a
// pulse.TransitionEvent.
type Message struct {
	Type      MessageType `json:"type"`
	Alias     string      `json:"alias"`
	Timestamp time.Time   `json:"timestamp"`
	Data      any         `json:"data"`
}
