// Package digest compiles a closed frame into a compact digest: a
// deterministic section extracted from the frame's events and anchors, and an
// optional AI section filled in later by the scheduler.
package digest

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/papercomputeco/frames/pkg/frame"
)

// Status tracks enrichment progress of a digest.
type Status string

const (
	StatusDeterministicOnly Status = "deterministic_only"
	StatusPending           Status = "ai_pending"
	StatusProcessing        Status = "ai_processing"
	StatusComplete          Status = "complete"
	StatusFailed            Status = "ai_failed"
)

// ExitStatus is the outcome recorded for a frame.
type ExitStatus string

const (
	ExitSuccess   ExitStatus = "success"
	ExitFailure   ExitStatus = "failure"
	ExitPartial   ExitStatus = "partial"
	ExitCancelled ExitStatus = "cancelled"
)

// Digest is stored as a frame's digest_json and under outputs["digest"].
type Digest struct {
	Deterministic Deterministic `json:"deterministic"`
	AI            *AI           `json:"ai,omitempty"`
	Status        Status        `json:"status"`
	Attempts      int           `json:"attempts"`
	LastError     string        `json:"lastError,omitempty"`
}

// AI is the model-generated section of a digest.
type AI struct {
	Summary      string    `json:"summary"`
	Insight      string    `json:"insight,omitempty"`
	FlaggedIssue string    `json:"flaggedIssue,omitempty"`
	GeneratedAt  time.Time `json:"generatedAt"`
	Model        string    `json:"model,omitempty"`
	TokensUsed   int       `json:"tokensUsed"`
}

// Deterministic holds the facts extracted without any external call.
type Deterministic struct {
	FilesModified     []FileChange   `json:"filesModified"`
	TestsRun          []TestRun      `json:"testsRun"`
	ErrorsEncountered []ErrorEntry   `json:"errorsEncountered"`
	ToolCallCount     int            `json:"toolCallCount"`
	ToolCallsByType   map[string]int `json:"toolCallsByType"`
	Decisions         []string       `json:"decisions"`
	Constraints       []string       `json:"constraints"`
	Risks             []string       `json:"risks"`
	AnchorsByType     map[string]int `json:"anchorsByType"`
	ExitStatus        ExitStatus     `json:"exitStatus"`
	DurationSeconds   float64        `json:"durationSeconds"`
	EventCount        int            `json:"eventCount"`
}

type FileChange struct {
	Path         string `json:"path"`
	Operation    string `json:"operation"`
	LinesChanged *int   `json:"linesChanged,omitempty"`
}

type TestRun struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Count  int    `json:"count"`
}

type ErrorEntry struct {
	Type     string `json:"type"`
	Message  string `json:"message"`
	Count    int    `json:"count"`
	Resolved bool   `json:"resolved"`
}

// ErrorCount is the total number of errors, counting repeats.
func (d *Deterministic) ErrorCount() int {
	n := 0
	for _, e := range d.ErrorsEncountered {
		n += e.Count
	}
	return n
}

// TestCounts sums test outcomes by status.
func (d *Deterministic) TestCounts() (passed, failed, skipped int) {
	for _, t := range d.TestsRun {
		switch t.Status {
		case "passed":
			passed += t.Count
		case "failed":
			failed += t.Count
		case "skipped":
			skipped += t.Count
		}
	}
	return passed, failed, skipped
}

// Payload converts the digest to the JSON object stored on the frame.
func (d *Digest) Payload() (frame.Payload, error) {
	return toPayload(d)
}

// Payload converts the deterministic section to a JSON object.
func (d *Deterministic) Payload() (frame.Payload, error) {
	return toPayload(d)
}

// Decode reads a digest back from a frame's digest payload.
func Decode(p frame.Payload) (*Digest, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("encoding digest payload: %w", err)
	}
	var d Digest
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decoding digest: %w", err)
	}
	return &d, nil
}

// ExitStatusOverride returns a caller-supplied partial or cancelled exit
// status from close outputs. Other values are ignored.
func ExitStatusOverride(outputs frame.Payload) (ExitStatus, bool) {
	v, ok := outputs.FirstString("exitStatus", "exit_status")
	if !ok {
		return "", false
	}
	switch ExitStatus(v) {
	case ExitPartial, ExitCancelled:
		return ExitStatus(v), true
	}
	return "", false
}

func toPayload(v any) (frame.Payload, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding digest: %w", err)
	}
	return frame.DecodePayload(data)
}
