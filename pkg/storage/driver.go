// Package storage defines the record store for frames, events and anchors.
package storage

import (
	"context"
	"time"

	"github.com/papercomputeco/frames/pkg/frame"
)

// Driver persists frames, events and anchors. Events and anchors are
// append-only; a frame is mutable only through CloseFrame and UpdateDigest.
type Driver interface {
	// CreateFrame inserts a new frame. The frame id must be unique.
	CreateFrame(ctx context.Context, f *frame.Frame) error

	// GetFrame retrieves a frame by id. Returns NotFoundError when missing.
	GetFrame(ctx context.Context, id string) (*frame.Frame, error)

	// ListFrames returns frames matching the query ordered by creation time.
	ListFrames(ctx context.Context, query FrameQuery) ([]*frame.Frame, error)

	// CloseFrame transitions an active frame to closed and writes its outputs
	// and digest. Returns false without error if the frame was not active.
	CloseFrame(ctx context.Context, id string, rec CloseRecord) (bool, error)

	// UpdateDigest replaces the frame's structured digest, both in the digest
	// column and under the "digest" key of its outputs.
	UpdateDigest(ctx context.Context, id string, digest frame.Payload) error

	// AppendEvent inserts an event. (frame_id, seq) must be unique.
	AppendEvent(ctx context.Context, e *frame.Event) error

	// MaxEventSeq returns the highest sequence number for a frame, 0 if none.
	MaxEventSeq(ctx context.Context, frameID string) (int, error)

	// ListEvents returns a frame's events ordered by sequence number.
	ListEvents(ctx context.Context, frameID string) ([]*frame.Event, error)

	// AddAnchor inserts an anchor.
	AddAnchor(ctx context.Context, a *frame.Anchor) error

	// ListAnchors returns a frame's anchors by priority desc, creation asc.
	ListAnchors(ctx context.Context, frameID string) ([]*frame.Anchor, error)

	// Close closes the store and releases any resources.
	Close() error
}

// FrameQuery filters ListFrames. Zero values match everything.
type FrameQuery struct {
	RunID    string
	State    frame.State
	ParentID string
}

// Matches reports whether f satisfies the query.
func (q FrameQuery) Matches(f *frame.Frame) bool {
	if q.RunID != "" && f.RunID != q.RunID {
		return false
	}
	if q.State != "" && f.State != q.State {
		return false
	}
	if q.ParentID != "" && f.Parent() != q.ParentID {
		return false
	}
	return true
}

// CloseRecord carries everything written when a frame closes.
type CloseRecord struct {
	Outputs    frame.Payload
	DigestText string
	DigestData frame.Payload
	ClosedAt   time.Time
}

// DigestOutputKey is the outputs key under which the structured digest is kept.
const DigestOutputKey = "digest"
