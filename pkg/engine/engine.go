// Package engine is the frame lifecycle engine: the only writer of frames,
// events and anchors for a run, and the owner of the run's frame stack.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/frames/pkg/digest"
	"github.com/papercomputeco/frames/pkg/frame"
	"github.com/papercomputeco/frames/pkg/scheduler"
	"github.com/papercomputeco/frames/pkg/stack"
	"github.com/papercomputeco/frames/pkg/storage"
)

// Enricher receives closed frames for AI enrichment along with the activity
// signals that drive its scheduling. *scheduler.Scheduler implements it.
type Enricher interface {
	Enqueue(frameID string, d *digest.Digest, trigger scheduler.Trigger) bool
	ToolCall()
	UserInput()
	FrameClosed(ctx context.Context, frameID string)
}

// CreateFrameRequest describes a new frame. An empty ParentID nests the frame
// under the current top of the stack.
type CreateFrameRequest struct {
	Kind     frame.Kind
	Name     string
	Inputs   frame.Value
	ParentID string
}

// AnchorRequest describes a new anchor. A nil Priority uses the default.
type AnchorRequest struct {
	Type     frame.AnchorType
	Text     string
	Priority *int
	Metadata frame.Value
}

// Engine serializes every mutation of one run behind a single mutex so each
// operation appears atomic to callers.
type Engine struct {
	mu sync.Mutex

	store     storage.Driver
	stack     *stack.Stack
	extractor *digest.Extractor
	enricher  Enricher
	logger    *slog.Logger

	now   func() time.Time
	last  time.Time
	newID func() string

	runID     string
	projectID string
}

// New creates an engine for runID over store, rebuilding the stack from the
// persisted active frames of the run. With an enricher, closed frames whose
// enrichment never finished are queued again. An empty runID starts a new run.
func New(ctx context.Context, store storage.Driver, runID string, opts ...Option) (*Engine, error) {
	if store == nil {
		return nil, errors.New("engine requires a store")
	}

	e := &Engine{
		store:  store,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
		newID:  uuid.NewString,
		runID:  runID,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.runID == "" {
		e.runID = e.newID()
	}
	if e.extractor == nil {
		e.extractor = digest.NewExtractor(e.logger)
	}
	e.stack = stack.New(e.logger)

	if err := e.stack.Rebuild(ctx, store, e.runID); err != nil {
		return nil, &StorageError{Op: "rebuild_stack", Err: err}
	}
	if e.enricher != nil {
		if err := e.recover(ctx); err != nil {
			return nil, err
		}
	}

	e.logger.Debug("engine ready", "run_id", e.runID, "depth", e.stack.Depth())
	return e, nil
}

// recover re-enqueues closed frames of the run that are still awaiting or
// undergoing enrichment.
func (e *Engine) recover(ctx context.Context) error {
	closed, err := e.store.ListFrames(ctx, storage.FrameQuery{RunID: e.runID, State: frame.StateClosed})
	if err != nil {
		return &StorageError{Op: "recover_digests", Err: err}
	}

	requeued := 0
	for _, f := range closed {
		d, err := digest.Decode(f.DigestData)
		if err != nil {
			e.logger.Warn("skipping unreadable digest", "frame_id", f.ID, "error", err)
			continue
		}
		if d.Status != digest.StatusPending && d.Status != digest.StatusProcessing {
			continue
		}
		if e.enricher.Enqueue(f.ID, d, scheduler.TriggerRecovery) {
			requeued++
		}
	}

	if requeued > 0 {
		e.logger.Info("requeued unfinished digests", "run_id", e.runID, "count", requeued)
	}
	return nil
}

// RunID returns the run this engine writes to.
func (e *Engine) RunID() string {
	return e.runID
}

// ProjectID returns the project tag applied to new frames.
func (e *Engine) ProjectID() string {
	return e.projectID
}

// tick returns a timestamp strictly after the previous one so creation order
// is total even when the clock stalls. Callers hold e.mu.
func (e *Engine) tick() time.Time {
	t := e.now().UTC().Truncate(time.Microsecond)
	if !t.After(e.last) {
		t = e.last.Add(time.Microsecond)
	}
	e.last = t
	return t
}

// CreateFrame persists a new active frame and pushes it onto the stack.
func (e *Engine) CreateFrame(ctx context.Context, req CreateFrameRequest) (string, error) {
	const op = "create_frame"

	kind, err := frame.ParseKind(string(req.Kind))
	if err != nil {
		return "", &ValidationError{Op: op, Field: "kind", Value: string(req.Kind), Reason: "unknown frame kind"}
	}
	if req.Name == "" {
		return "", &ValidationError{Op: op, Field: "name", Reason: "must not be empty"}
	}
	inputs, err := frame.NormalizeValue(req.Inputs)
	if err != nil {
		return "", &ValidationError{Op: op, Field: "inputs", Reason: err.Error()}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	parent, err := e.resolveParent(ctx, req.ParentID)
	if err != nil {
		return "", err
	}

	f := &frame.Frame{
		ID:         e.newID(),
		RunID:      e.runID,
		ProjectID:  e.projectID,
		Kind:       kind,
		Name:       req.Name,
		State:      frame.StateActive,
		Inputs:     inputs,
		Outputs:    frame.Payload{},
		DigestData: frame.Payload{},
		CreatedAt:  e.tick(),
	}
	if parent != nil {
		pid := parent.ID
		f.ParentID = &pid
		f.Depth = parent.Depth + 1
	}

	if err := e.store.CreateFrame(ctx, f); err != nil {
		return "", &StorageError{Op: op, FrameID: f.ID, Err: err}
	}
	e.stack.Push(f.ID)

	e.logger.Info("frame created",
		"frame_id", f.ID,
		"parent_frame_id", f.Parent(),
		"kind", string(f.Kind),
		"depth", f.Depth,
	)
	return f.ID, nil
}

// resolveParent returns the frame a new frame nests under, or nil for a root.
// An explicit parent must be the current top of the stack.
func (e *Engine) resolveParent(ctx context.Context, explicit string) (*frame.Frame, error) {
	const op = "create_frame"

	top, hasTop := e.stack.Current()
	id := explicit
	if id == "" {
		if !hasTop {
			return nil, nil
		}
		id = top
	}

	parent, err := e.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if !parent.IsActive() {
		return nil, &StateError{Op: op, FrameID: id, Err: ErrFrameClosed}
	}
	if explicit != "" && (!hasTop || top != explicit) {
		return nil, &StateError{Op: op, FrameID: explicit, Err: ErrParentNotCurrent}
	}
	return parent, nil
}

// CloseFrame closes frameID, or the current frame when frameID is empty, and
// then every active descendant. Closing a closed frame logs and succeeds.
func (e *Engine) CloseFrame(ctx context.Context, frameID string, outputs frame.Payload) error {
	const op = "close_frame"

	e.mu.Lock()
	defer e.mu.Unlock()

	target, err := e.target(op, frameID)
	if err != nil {
		return err
	}

	// Frames closed before a failure are durable and already queued, so they
	// are signalled either way.
	closed, err := e.closeFrame(ctx, target, outputs)
	if e.enricher != nil {
		for _, id := range closed {
			e.enricher.FrameClosed(ctx, id)
		}
	}
	return err
}

// closeFrame runs the close sequence for id and recurses into its active
// children, oldest first. It returns every frame it closed. Callers hold e.mu.
func (e *Engine) closeFrame(ctx context.Context, id string, outputs frame.Payload) ([]string, error) {
	const op = "close_frame"

	f, err := e.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if !f.IsActive() {
		e.logger.Warn("frame already closed", "frame_id", id)
		e.stack.Pop(id)
		return nil, nil
	}

	closedAt := e.tick()
	f.ClosedAt = &closedAt

	events, err := e.store.ListEvents(ctx, id)
	if err != nil {
		return nil, &StorageError{Op: op, FrameID: id, Err: err}
	}
	anchors, err := e.store.ListAnchors(ctx, id)
	if err != nil {
		return nil, &StorageError{Op: op, FrameID: id, Err: err}
	}

	det := e.extractor.Extract(f, events, anchors)
	if status, ok := digest.ExitStatusOverride(outputs); ok {
		det.ExitStatus = status
	}

	d := &digest.Digest{Deterministic: det, Status: digest.StatusDeterministicOnly}
	if e.enricher != nil {
		d.Status = digest.StatusPending
	}

	data, err := d.Payload()
	if err != nil {
		return nil, &StorageError{Op: op, FrameID: id, Err: err}
	}
	merged, err := mergeOutputs(outputs, &det, data)
	if err != nil {
		return nil, &ValidationError{Op: op, Field: "outputs", Reason: err.Error()}
	}

	ok, err := e.store.CloseFrame(ctx, id, storage.CloseRecord{
		Outputs:    merged,
		DigestText: digest.Render(f, &det),
		DigestData: data,
		ClosedAt:   closedAt,
	})
	if err != nil {
		return nil, &StorageError{Op: op, FrameID: id, Err: err}
	}
	if !ok {
		e.logger.Warn("frame already closed", "frame_id", id)
		e.stack.Pop(id)
		return nil, nil
	}

	if e.enricher != nil {
		e.enricher.Enqueue(id, d, scheduler.TriggerClose)
	}
	e.stack.Pop(id)

	e.logger.Info("frame closed",
		"frame_id", id,
		"exit_status", string(det.ExitStatus),
		"events", det.EventCount,
		"duration", f.Duration(),
	)

	closed := []string{id}
	children, err := e.store.ListFrames(ctx, storage.FrameQuery{
		RunID:    f.RunID,
		ParentID: id,
		State:    frame.StateActive,
	})
	if err != nil {
		return closed, &StorageError{Op: op, FrameID: id, Err: err}
	}
	for _, child := range children {
		sub, err := e.closeFrame(ctx, child.ID, nil)
		closed = append(closed, sub...)
		if err != nil {
			return closed, err
		}
	}
	return closed, nil
}

// mergeOutputs overlays the deterministic fields and the full digest on the
// caller's outputs. Digest keys win.
func mergeOutputs(outputs frame.Payload, det *digest.Deterministic, full frame.Payload) (frame.Payload, error) {
	merged, err := clonePayload(outputs)
	if err != nil {
		return nil, err
	}
	fields, err := det.Payload()
	if err != nil {
		return nil, err
	}
	maps.Copy(merged, fields)

	nested, err := full.Clone()
	if err != nil {
		return nil, err
	}
	merged[storage.DigestOutputKey] = map[string]any(nested)
	return merged, nil
}

// AddEvent appends an event to frameID, or the current frame when frameID is
// empty, and returns the new event id.
func (e *Engine) AddEvent(ctx context.Context, kind frame.EventKind, payload frame.Value, frameID string) (string, error) {
	const op = "add_event"

	if _, err := frame.ParseEventKind(string(kind)); err != nil {
		return "", &ValidationError{Op: op, Field: "kind", Value: string(kind), Reason: "unknown event kind"}
	}
	p, err := frame.NormalizeValue(payload)
	if err != nil {
		return "", &ValidationError{Op: op, Field: "payload", Reason: err.Error()}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := e.activeTarget(ctx, op, frameID)
	if err != nil {
		return "", err
	}

	last, err := e.store.MaxEventSeq(ctx, f.ID)
	if err != nil {
		return "", &StorageError{Op: op, FrameID: f.ID, Err: err}
	}

	ev := &frame.Event{
		ID:        e.newID(),
		FrameID:   f.ID,
		RunID:     f.RunID,
		Seq:       last + 1,
		Kind:      kind,
		Payload:   p,
		Timestamp: e.tick(),
	}
	if err := e.store.AppendEvent(ctx, ev); err != nil {
		return "", &StorageError{Op: op, FrameID: f.ID, Err: err}
	}

	if e.enricher != nil {
		switch kind {
		case frame.EventToolCall:
			e.enricher.ToolCall()
		case frame.EventUserMessage:
			e.enricher.UserInput()
		}
	}

	e.logger.Debug("event added", "frame_id", f.ID, "seq", ev.Seq, "kind", string(kind))
	return ev.ID, nil
}

// AddAnchor attaches an anchor to frameID, or the current frame when frameID
// is empty, and returns the new anchor id.
func (e *Engine) AddAnchor(ctx context.Context, req AnchorRequest, frameID string) (string, error) {
	const op = "add_anchor"

	typ, err := frame.ParseAnchorType(string(req.Type))
	if err != nil {
		return "", &ValidationError{Op: op, Field: "type", Value: string(req.Type), Reason: "unknown anchor type"}
	}
	if req.Text == "" {
		return "", &ValidationError{Op: op, Field: "text", Reason: "must not be empty"}
	}
	priority := frame.DefaultPriority
	if req.Priority != nil {
		priority = *req.Priority
	}
	if priority < frame.MinPriority || priority > frame.MaxPriority {
		return "", &ValidationError{
			Op:     op,
			Field:  "priority",
			Value:  fmt.Sprint(priority),
			Reason: fmt.Sprintf("must be between %d and %d", frame.MinPriority, frame.MaxPriority),
		}
	}
	meta, err := frame.NormalizeValue(req.Metadata)
	if err != nil {
		return "", &ValidationError{Op: op, Field: "metadata", Reason: err.Error()}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	f, err := e.activeTarget(ctx, op, frameID)
	if err != nil {
		return "", err
	}

	a := &frame.Anchor{
		ID:        e.newID(),
		FrameID:   f.ID,
		Type:      typ,
		Text:      req.Text,
		Priority:  priority,
		Metadata:  meta,
		CreatedAt: e.tick(),
	}
	if err := e.store.AddAnchor(ctx, a); err != nil {
		return "", &StorageError{Op: op, FrameID: f.ID, Err: err}
	}

	e.logger.Debug("anchor added", "frame_id", f.ID, "type", string(typ), "priority", priority)
	return a.ID, nil
}

// GetFrame returns a persisted frame.
func (e *Engine) GetFrame(ctx context.Context, id string) (*frame.Frame, error) {
	return e.load(ctx, "get_frame", id)
}

// GetFrameEvents returns a frame's events in sequence order.
func (e *Engine) GetFrameEvents(ctx context.Context, id string) ([]*frame.Event, error) {
	if _, err := e.load(ctx, "get_frame_events", id); err != nil {
		return nil, err
	}
	events, err := e.store.ListEvents(ctx, id)
	if err != nil {
		return nil, &StorageError{Op: "get_frame_events", FrameID: id, Err: err}
	}
	return events, nil
}

// GetFrameAnchors returns a frame's anchors by priority, then creation.
func (e *Engine) GetFrameAnchors(ctx context.Context, id string) ([]*frame.Anchor, error) {
	if _, err := e.load(ctx, "get_frame_anchors", id); err != nil {
		return nil, err
	}
	anchors, err := e.store.ListAnchors(ctx, id)
	if err != nil {
		return nil, &StorageError{Op: "get_frame_anchors", FrameID: id, Err: err}
	}
	return anchors, nil
}

// GetActiveFramePath returns the stacked frames, root first.
func (e *Engine) GetActiveFramePath(ctx context.Context) ([]*frame.Frame, error) {
	ids := e.stack.Frames()
	path := make([]*frame.Frame, 0, len(ids))
	for _, id := range ids {
		f, err := e.load(ctx, "get_active_frame_path", id)
		if err != nil {
			return nil, err
		}
		path = append(path, f)
	}
	return path, nil
}

// GetStackDepth returns the number of active frames on the stack.
func (e *Engine) GetStackDepth() int {
	return e.stack.Depth()
}

// GetCurrentFrameID returns the top of the stack.
func (e *Engine) GetCurrentFrameID() (string, bool) {
	return e.stack.Current()
}

// ValidateStack compares the stack against the store. Violations are data,
// not errors; the error reports storage failures only.
func (e *Engine) ValidateStack(ctx context.Context) ([]stack.Violation, error) {
	violations, err := e.stack.Validate(ctx, e.store)
	if err != nil {
		return nil, &StorageError{Op: "validate_stack", Err: err}
	}
	for _, v := range violations {
		e.logger.Warn("stack violation", "frame_id", v.FrameID, "reason", v.Reason)
	}
	return violations, nil
}

// target resolves an explicit id or the current frame.
func (e *Engine) target(op, frameID string) (string, error) {
	if frameID != "" {
		return frameID, nil
	}
	top, ok := e.stack.Current()
	if !ok {
		return "", &StateError{Op: op, Err: ErrNoActiveFrame}
	}
	return top, nil
}

// activeTarget resolves and loads the frame an event or anchor is written to.
func (e *Engine) activeTarget(ctx context.Context, op, frameID string) (*frame.Frame, error) {
	id, err := e.target(op, frameID)
	if err != nil {
		return nil, err
	}
	f, err := e.load(ctx, op, id)
	if err != nil {
		return nil, err
	}
	if !f.IsActive() {
		return nil, &StateError{Op: op, FrameID: id, Err: ErrFrameClosed}
	}
	return f, nil
}

func (e *Engine) load(ctx context.Context, op, id string) (*frame.Frame, error) {
	f, err := e.store.GetFrame(ctx, id)
	if err != nil {
		var nf storage.NotFoundError
		if errors.As(err, &nf) {
			return nil, &StateError{Op: op, FrameID: id, Err: ErrFrameNotFound}
		}
		return nil, &StorageError{Op: op, FrameID: id, Err: err}
	}
	return f, nil
}

func clonePayload(p frame.Payload) (frame.Payload, error) {
	if p == nil {
		return frame.Payload{}, nil
	}
	return p.Clone()
}
