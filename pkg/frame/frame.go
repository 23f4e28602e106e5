// Package frame defines the records that make up a session's call stack:
// frames, the events logged inside them, and the anchors pinned to them.
package frame

import (
	"fmt"
	"time"
)

// Kind classifies the unit of work a frame represents.
type Kind string

const (
	KindTask      Kind = "task"
	KindSubtask   Kind = "subtask"
	KindToolScope Kind = "tool_scope"
	KindReview    Kind = "review"
	KindWrite     Kind = "write"
	KindDebug     Kind = "debug"
)

// Kinds lists every valid frame kind.
var Kinds = []Kind{KindTask, KindSubtask, KindToolScope, KindReview, KindWrite, KindDebug}

// ParseKind validates a frame kind string.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown frame kind %q", s)
}

// State is the lifecycle state of a frame.
type State string

const (
	StateActive State = "active"
	StateClosed State = "closed"
)

// Frame is a nested unit of agent work.
type Frame struct {
	ID        string  `json:"frame_id"`
	RunID     string  `json:"run_id"`
	ProjectID string  `json:"project_id"`
	ParentID  *string `json:"parent_frame_id,omitempty"`
	Depth     int     `json:"depth"`
	Kind      Kind    `json:"kind"`
	Name      string  `json:"name"`
	State     State   `json:"state"`

	// Inputs are fixed at creation.
	Inputs Value `json:"inputs"`

	// Outputs stay empty until close and are set exactly once.
	Outputs Payload `json:"outputs"`

	DigestText *string `json:"digest_text,omitempty"`
	DigestData Payload `json:"digest_json"`

	CreatedAt time.Time  `json:"created_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
}

// IsActive reports whether the frame has not yet been closed.
func (f *Frame) IsActive() bool {
	return f.State == StateActive
}

// Parent returns the parent id or "" for a root frame.
func (f *Frame) Parent() string {
	if f.ParentID == nil {
		return ""
	}
	return *f.ParentID
}

// Duration is closed_at - created_at, or zero while the frame is active.
func (f *Frame) Duration() time.Duration {
	if f.ClosedAt == nil {
		return 0
	}
	return f.ClosedAt.Sub(f.CreatedAt)
}
