package eventstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrNilDigestEvent     = errors.New("nil digest event")
	ErrInvalidDigestEvent = errors.New("invalid digest event")
)

// Publisher delivers digest events to a stream backend.
type Publisher interface {
	PublishDigest(ctx context.Context, event *DigestEvent) error
	Close() error
}

// Validate checks the fields every backend keys or routes on.
func (e *DigestEvent) Validate() error {
	if e == nil {
		return ErrNilDigestEvent
	}
	switch {
	case e.FrameID == "":
		return fmt.Errorf("%w: missing frame id", ErrInvalidDigestEvent)
	case e.EventType != EventTypeDigestCompleted && e.EventType != EventTypeDigestFailed:
		return fmt.Errorf("%w: unknown event type %q", ErrInvalidDigestEvent, e.EventType)
	}
	return nil
}

// Encode validates e and returns its JSON wire form.
func (e *DigestEvent) Encode() ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}
