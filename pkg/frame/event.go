package frame

import (
	"fmt"
	"time"
)

// EventKind classifies an event in a frame's log.
type EventKind string

const (
	EventUserMessage      EventKind = "user_message"
	EventAssistantMessage EventKind = "assistant_message"
	EventToolCall         EventKind = "tool_call"
	EventToolResult       EventKind = "tool_result"
	EventDecision         EventKind = "decision"
	EventConstraint       EventKind = "constraint"
	EventArtifact         EventKind = "artifact"
	EventObservation      EventKind = "observation"
)

// EventKinds lists every valid event kind.
var EventKinds = []EventKind{
	EventUserMessage,
	EventAssistantMessage,
	EventToolCall,
	EventToolResult,
	EventDecision,
	EventConstraint,
	EventArtifact,
	EventObservation,
}

// ParseEventKind validates an event kind string.
func ParseEventKind(s string) (EventKind, error) {
	for _, k := range EventKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown event kind %q", s)
}

// Event is an append-only log entry scoped to a frame. Seq starts at 1 and
// increases by one per frame.
type Event struct {
	ID        string    `json:"event_id"`
	FrameID   string    `json:"frame_id"`
	RunID     string    `json:"run_id"`
	Seq       int       `json:"seq"`
	Kind      EventKind `json:"event_type"`
	Payload   Value     `json:"payload"`
	Timestamp time.Time `json:"ts"`
}
