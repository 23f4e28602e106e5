// Package inmemory provides a map-backed storage driver for tests and
// ephemeral sessions.
package inmemory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/papercomputeco/frames/pkg/frame"
	"github.com/papercomputeco/frames/pkg/storage"
)

// Driver implements storage.Driver using in-memory maps. Every record is
// copied on the way in and out so callers never share state with the store.
type Driver struct {
	// mu is a read write sync mutex guarding all three maps
	mu sync.RWMutex

	frames  map[string]*frame.Frame
	events  map[string][]*frame.Event
	anchors map[string][]*frame.Anchor
}

// NewDriver creates a new in-memory driver.
func NewDriver() *Driver {
	return &Driver{
		frames:  make(map[string]*frame.Frame),
		events:  make(map[string][]*frame.Event),
		anchors: make(map[string][]*frame.Anchor),
	}
}

func (d *Driver) CreateFrame(_ context.Context, f *frame.Frame) error {
	if f == nil {
		return errors.New("cannot store nil frame")
	}

	cp, err := copyFrame(f)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.frames[f.ID]; ok {
		return fmt.Errorf("frame %s already exists", f.ID)
	}
	d.frames[f.ID] = cp
	return nil
}

func (d *Driver) GetFrame(_ context.Context, id string) (*frame.Frame, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	f, ok := d.frames[id]
	if !ok {
		return nil, storage.NotFoundError{Kind: "frame", ID: id}
	}
	return copyFrame(f)
}

func (d *Driver) ListFrames(_ context.Context, query storage.FrameQuery) ([]*frame.Frame, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var result []*frame.Frame
	for _, f := range d.frames {
		if !query.Matches(f) {
			continue
		}
		cp, err := copyFrame(f)
		if err != nil {
			return nil, err
		}
		result = append(result, cp)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (d *Driver) CloseFrame(_ context.Context, id string, rec storage.CloseRecord) (bool, error) {
	outputs, err := rec.Outputs.Clone()
	if err != nil {
		return false, err
	}
	digestData, err := rec.DigestData.Clone()
	if err != nil {
		return false, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.frames[id]
	if !ok {
		return false, storage.NotFoundError{Kind: "frame", ID: id}
	}
	if f.State != frame.StateActive {
		return false, nil
	}

	text := rec.DigestText
	closedAt := rec.ClosedAt.UTC()
	f.State = frame.StateClosed
	f.Outputs = outputs
	f.DigestText = &text
	f.DigestData = digestData
	f.ClosedAt = &closedAt
	return true, nil
}

func (d *Driver) UpdateDigest(_ context.Context, id string, digest frame.Payload) error {
	data, err := digest.Clone()
	if err != nil {
		return err
	}
	nested, err := digest.Clone()
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	f, ok := d.frames[id]
	if !ok {
		return storage.NotFoundError{Kind: "frame", ID: id}
	}
	f.DigestData = data
	if f.Outputs == nil {
		f.Outputs = frame.Payload{}
	}
	f.Outputs[storage.DigestOutputKey] = map[string]any(nested)
	return nil
}

func (d *Driver) AppendEvent(_ context.Context, e *frame.Event) error {
	if e == nil {
		return errors.New("cannot store nil event")
	}
	cp, err := copyEvent(e)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.frames[e.FrameID]; !ok {
		return storage.NotFoundError{Kind: "frame", ID: e.FrameID}
	}
	for _, existing := range d.events[e.FrameID] {
		if existing.Seq == e.Seq {
			return fmt.Errorf("event seq %d already exists for frame %s", e.Seq, e.FrameID)
		}
	}
	d.events[e.FrameID] = append(d.events[e.FrameID], cp)
	return nil
}

func (d *Driver) MaxEventSeq(_ context.Context, frameID string) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	highest := 0
	for _, e := range d.events[frameID] {
		if e.Seq > highest {
			highest = e.Seq
		}
	}
	return highest, nil
}

func (d *Driver) ListEvents(_ context.Context, frameID string) ([]*frame.Event, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*frame.Event, 0, len(d.events[frameID]))
	for _, e := range d.events[frameID] {
		cp, err := copyEvent(e)
		if err != nil {
			return nil, err
		}
		result = append(result, cp)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Seq < result[j].Seq })
	return result, nil
}

func (d *Driver) AddAnchor(_ context.Context, a *frame.Anchor) error {
	if a == nil {
		return errors.New("cannot store nil anchor")
	}
	cp, err := copyAnchor(a)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.frames[a.FrameID]; !ok {
		return storage.NotFoundError{Kind: "frame", ID: a.FrameID}
	}
	d.anchors[a.FrameID] = append(d.anchors[a.FrameID], cp)
	return nil
}

func (d *Driver) ListAnchors(_ context.Context, frameID string) ([]*frame.Anchor, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	result := make([]*frame.Anchor, 0, len(d.anchors[frameID]))
	for _, a := range d.anchors[frameID] {
		cp, err := copyAnchor(a)
		if err != nil {
			return nil, err
		}
		result = append(result, cp)
	}
	frame.SortAnchors(result)
	return result, nil
}

// Close is a no-op for the in-memory driver.
func (d *Driver) Close() error {
	return nil
}

func copyFrame(f *frame.Frame) (*frame.Frame, error) {
	cp := *f
	var err error
	if cp.Inputs, err = frame.NormalizeValue(f.Inputs); err != nil {
		return nil, err
	}
	if cp.Outputs, err = f.Outputs.Clone(); err != nil {
		return nil, err
	}
	if cp.DigestData, err = f.DigestData.Clone(); err != nil {
		return nil, err
	}
	if f.ParentID != nil {
		parent := *f.ParentID
		cp.ParentID = &parent
	}
	if f.DigestText != nil {
		text := *f.DigestText
		cp.DigestText = &text
	}
	if f.ClosedAt != nil {
		closedAt := *f.ClosedAt
		cp.ClosedAt = &closedAt
	}
	return &cp, nil
}

func copyEvent(e *frame.Event) (*frame.Event, error) {
	cp := *e
	payload, err := frame.NormalizeValue(e.Payload)
	if err != nil {
		return nil, err
	}
	cp.Payload = payload
	return &cp, nil
}

func copyAnchor(a *frame.Anchor) (*frame.Anchor, error) {
	cp := *a
	metadata, err := frame.NormalizeValue(a.Metadata)
	if err != nil {
		return nil, err
	}
	cp.Metadata = metadata
	return &cp, nil
}

var _ storage.Driver = (*Driver)(nil)
