// Package stack maintains the ordered list of active frame ids for a run.
package stack

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/papercomputeco/frames/pkg/frame"
	"github.com/papercomputeco/frames/pkg/storage"
)

// Loader lists persisted frames. storage.Driver satisfies it.
type Loader interface {
	ListFrames(ctx context.Context, query storage.FrameQuery) ([]*frame.Frame, error)
}

// Getter fetches one persisted frame. storage.Driver satisfies it.
type Getter interface {
	GetFrame(ctx context.Context, id string) (*frame.Frame, error)
}

// Stack is the in-memory call stack. Index 0 is the root, the last element
// is the current frame.
type Stack struct {
	mu     sync.RWMutex
	ids    []string
	logger *slog.Logger
}

// New returns an empty stack.
func New(logger *slog.Logger) *Stack {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Stack{logger: logger}
}

// Push appends id. Pushing an id already on the stack is a no-op.
func (s *Stack) Push(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if slices.Contains(s.ids, id) {
		s.logger.Warn("frame already on stack", "frame_id", id)
		return
	}
	s.ids = append(s.ids, id)
}

// Pop removes the top frame, or with an id, that frame and every frame above
// it. It returns the first removed id and false when nothing was removed.
func (s *Stack) Pop(id ...string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.ids) == 0 {
		return "", false
	}

	if len(id) == 0 || id[0] == "" {
		top := s.ids[len(s.ids)-1]
		s.ids = s.ids[:len(s.ids)-1]
		return top, true
	}

	idx := slices.Index(s.ids, id[0])
	if idx < 0 {
		return "", false
	}

	removed := s.ids[idx:]
	if len(removed) > 1 {
		s.logger.Info("unwinding stack",
			"frame_id", id[0],
			"removed", len(removed),
		)
	}
	first := removed[0]
	s.ids = slices.Clone(s.ids[:idx])
	return first, true
}

// Current returns the top frame id.
func (s *Stack) Current() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.ids) == 0 {
		return "", false
	}
	return s.ids[len(s.ids)-1], true
}

// Depth is the number of frames on the stack.
func (s *Stack) Depth() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Frames returns a copy of the stack, root first.
func (s *Stack) Frames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.ids)
}

// Contains reports whether id is on the stack.
func (s *Stack) Contains(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Contains(s.ids, id)
}

// Rebuild replaces the stack with the active chain of a run as persisted.
// When the persisted state is ambiguous it degrades to the earliest-created
// candidate rather than failing.
func (s *Stack) Rebuild(ctx context.Context, loader Loader, runID string) error {
	active, err := loader.ListFrames(ctx, storage.FrameQuery{RunID: runID, State: frame.StateActive})
	if err != nil {
		return fmt.Errorf("loading active frames: %w", err)
	}

	ids := chain(active, s.logger)

	s.mu.Lock()
	s.ids = ids
	s.mu.Unlock()

	s.logger.Debug("stack rebuilt", "run_id", runID, "depth", len(ids))
	return nil
}

// chain walks parent->child links through the active set. frames must be
// ordered by creation time.
func chain(frames []*frame.Frame, logger *slog.Logger) []string {
	byID := make(map[string]*frame.Frame, len(frames))
	for _, f := range frames {
		byID[f.ID] = f
	}

	var roots []*frame.Frame
	children := make(map[string][]*frame.Frame)
	for _, f := range frames {
		parent := f.Parent()
		if _, ok := byID[parent]; parent == "" || !ok {
			roots = append(roots, f)
			continue
		}
		children[parent] = append(children[parent], f)
	}

	if len(roots) == 0 {
		if len(frames) > 0 {
			logger.Warn("no root among active frames, starting with empty stack", "active", len(frames))
		}
		return nil
	}
	if len(roots) > 1 {
		logger.Warn("multiple active roots, using earliest created",
			"roots", len(roots),
			"frame_id", roots[0].ID,
		)
	}

	var ids []string
	seen := make(map[string]bool)
	for cur := roots[0]; cur != nil && !seen[cur.ID]; {
		seen[cur.ID] = true
		ids = append(ids, cur.ID)

		next := children[cur.ID]
		if len(next) == 0 {
			break
		}
		if len(next) > 1 {
			logger.Warn("frame has multiple active children, following earliest created",
				"frame_id", cur.ID,
				"children", len(next),
			)
		}
		cur = next[0]
	}
	return ids
}

// Violation describes one broken stack invariant.
type Violation struct {
	FrameID string
	Reason  string
}

func (v Violation) String() string {
	return v.FrameID + ": " + v.Reason
}

// Validate checks the stack against persisted state. It never fails on an
// invariant; violations are returned for the caller to judge. The error is
// reserved for storage failures.
func (s *Stack) Validate(ctx context.Context, getter Getter) ([]Violation, error) {
	ids := s.Frames()

	var violations []Violation
	var below *frame.Frame
	for i, id := range ids {
		f, err := getter.GetFrame(ctx, id)
		if err != nil {
			var nf storage.NotFoundError
			if errors.As(err, &nf) {
				violations = append(violations, Violation{FrameID: id, Reason: "frame does not exist"})
				below = nil
				continue
			}
			return nil, fmt.Errorf("validating frame %s: %w", id, err)
		}

		if !f.IsActive() {
			violations = append(violations, Violation{FrameID: id, Reason: "frame is not active"})
		}

		switch {
		case i == 0:
			if parent := f.Parent(); parent != "" && slices.Contains(ids, parent) {
				violations = append(violations, Violation{
					FrameID: id,
					Reason:  fmt.Sprintf("bottom frame has parent %s which is also on the stack", parent),
				})
			}
		case below != nil:
			if f.Parent() != below.ID {
				violations = append(violations, Violation{
					FrameID: id,
					Reason:  fmt.Sprintf("parent is %q, frame below is %q", f.Parent(), below.ID),
				})
			}
			if f.Depth != below.Depth+1 {
				violations = append(violations, Violation{
					FrameID: id,
					Reason:  fmt.Sprintf("depth %d does not follow parent depth %d", f.Depth, below.Depth),
				})
			}
		}
		below = f
	}
	return violations, nil
}
