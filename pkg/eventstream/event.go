// Package eventstream defines the transport-neutral events emitted when a
// frame digest reaches a terminal state.
package eventstream

import (
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/frames/pkg/digest"
	"github.com/papercomputeco/frames/pkg/frame"
)

const (
	// SchemaVersionV1 is the first version of the event payload schema.
	SchemaVersionV1 = 1

	// EventTypeDigestCompleted is emitted once AI enrichment lands on a frame.
	EventTypeDigestCompleted = "frames.digest.completed"

	// EventTypeDigestFailed is emitted once enrichment exhausts its retries.
	EventTypeDigestFailed = "frames.digest.failed"
)

// DigestEvent is the payload published for a terminal digest transition.
type DigestEvent struct {
	SchemaVersion int           `json:"schema_version"`
	EventType     string        `json:"event_type"`
	EventID       string        `json:"event_id"`
	EmittedAt     time.Time     `json:"emitted_at"`
	RunID         string        `json:"run_id"`
	ProjectID     string        `json:"project_id,omitempty"`
	FrameID       string        `json:"frame_id"`
	FrameName     string        `json:"frame_name"`
	FrameKind     frame.Kind    `json:"frame_kind"`
	Status        digest.Status `json:"status"`
	Attempts      int           `json:"attempts"`
	Summary       string        `json:"summary,omitempty"`
	Error         string        `json:"error,omitempty"`
}

// NewDigestEvent builds the event for f given its terminal digest. The event
// type follows d.Status.
func NewDigestEvent(f *frame.Frame, d *digest.Digest, projectID string, now time.Time) *DigestEvent {
	ev := &DigestEvent{
		SchemaVersion: SchemaVersionV1,
		EventType:     EventTypeDigestCompleted,
		EventID:       uuid.NewString(),
		EmittedAt:     now.UTC(),
		RunID:         f.RunID,
		ProjectID:     projectID,
		FrameID:       f.ID,
		FrameName:     f.Name,
		FrameKind:     f.Kind,
		Status:        d.Status,
		Attempts:      d.Attempts,
		Error:         d.LastError,
	}
	if d.Status == digest.StatusFailed {
		ev.EventType = EventTypeDigestFailed
	}
	if d.AI != nil {
		ev.Summary = d.AI.Summary
	}
	return ev
}
