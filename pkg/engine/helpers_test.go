package engine_test

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/papercomputeco/frames/pkg/digest"
	"github.com/papercomputeco/frames/pkg/frame"
	"github.com/papercomputeco/frames/pkg/scheduler"
	"github.com/papercomputeco/frames/pkg/storage"
)

// stalledClock always returns the same instant.
func stalledClock() time.Time {
	return time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
}

type recordingEnricher struct {
	mu        sync.Mutex
	enqueued  []string
	triggers  []scheduler.Trigger
	closed    []string
	toolCalls int
	userInput int
}

func (r *recordingEnricher) Enqueue(id string, _ *digest.Digest, trigger scheduler.Trigger) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.enqueued = append(r.enqueued, id)
	r.triggers = append(r.triggers, trigger)
	return true
}

func (r *recordingEnricher) ToolCall() {
	r.mu.Lock()
	r.toolCalls++
	r.mu.Unlock()
}

func (r *recordingEnricher) UserInput() {
	r.mu.Lock()
	r.userInput++
	r.mu.Unlock()
}

func (r *recordingEnricher) FrameClosed(_ context.Context, id string) {
	r.mu.Lock()
	r.closed = append(r.closed, id)
	r.mu.Unlock()
}

var errDiskFull = errors.New("disk full")

// brokenStore fails writes once broken is set. Event listing fails for the
// frame named by unreadable.
type brokenStore struct {
	storage.Driver
	broken     bool
	unreadable string
}

func (b *brokenStore) ListEvents(ctx context.Context, frameID string) ([]*frame.Event, error) {
	if frameID != "" && frameID == b.unreadable {
		return nil, errDiskFull
	}
	return b.Driver.ListEvents(ctx, frameID)
}

func (b *brokenStore) CreateFrame(ctx context.Context, f *frame.Frame) error {
	if b.broken {
		return errDiskFull
	}
	return b.Driver.CreateFrame(ctx, f)
}

func (b *brokenStore) AppendEvent(ctx context.Context, e *frame.Event) error {
	if b.broken {
		return errDiskFull
	}
	return b.Driver.AppendEvent(ctx, e)
}

func (b *brokenStore) GetFrame(ctx context.Context, id string) (*frame.Frame, error) {
	if b.broken {
		return nil, errDiskFull
	}
	return b.Driver.GetFrame(ctx, id)
}
