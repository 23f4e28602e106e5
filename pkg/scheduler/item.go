package scheduler

import (
	"time"

	"github.com/papercomputeco/frames/pkg/digest"
)

// Priority orders queued items. Higher runs first.
type Priority int

const (
	PriorityNormal Priority = iota
	PriorityHigh
)

func (p Priority) String() string {
	if p == PriorityHigh {
		return "high"
	}
	return "normal"
}

// ItemState is the in-queue state of an item. Terminal states remove the item.
type ItemState string

const (
	ItemPending    ItemState = "pending"
	ItemProcessing ItemState = "processing"
)

// Trigger records why a frame was enqueued.
type Trigger string

const (
	TriggerClose    Trigger = "close"
	TriggerRecovery Trigger = "recovery"
	TriggerManual   Trigger = "manual"
)

// Item is a queued frame awaiting enrichment.
type Item struct {
	FrameID       string
	Priority      Priority
	State         ItemState
	Trigger       Trigger
	Attempts      int
	EnqueuedAt    time.Time
	NextAttemptAt time.Time

	order uint64
}

func (it *Item) eligible(now time.Time) bool {
	return it.State == ItemPending && !now.Before(it.NextAttemptAt)
}

// PriorityFor computes the queue priority of a deterministic digest.
func (c Config) PriorityFor(d *digest.Deterministic, trigger Trigger) Priority {
	if trigger == TriggerClose && c.EscalateOnClose {
		return PriorityHigh
	}
	if d == nil {
		return PriorityNormal
	}
	if len(d.Decisions)+len(d.Risks) >= c.DecisionRiskThreshold {
		return PriorityHigh
	}
	if d.ErrorCount() >= c.ErrorThreshold {
		return PriorityHigh
	}
	return PriorityNormal
}
