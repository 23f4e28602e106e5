package engine

import (
	"errors"
	"fmt"
)

// Stack-state conditions. They are recoverable and distinct from storage
// failures; test with errors.Is.
var (
	ErrNoActiveFrame    = errors.New("no active frame")
	ErrFrameNotFound    = errors.New("frame not found")
	ErrFrameClosed      = errors.New("frame is closed")
	ErrParentNotCurrent = errors.New("parent is not the current frame")
)

// StateError reports an operation that the current stack state does not allow.
type StateError struct {
	Op      string
	FrameID string
	Err     error
}

func (e *StateError) Error() string {
	if e.FrameID == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.FrameID, e.Err)
}

func (e *StateError) Unwrap() error {
	return e.Err
}

// StorageError wraps a record store failure. It always reaches the caller.
type StorageError struct {
	Op      string
	FrameID string
	Err     error
}

func (e *StorageError) Error() string {
	if e.FrameID == "" {
		return fmt.Sprintf("%s: storage: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: storage: %v", e.Op, e.FrameID, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// ValidationError reports a rejected argument.
type ValidationError struct {
	Op     string
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s %q: %s", e.Op, e.Field, e.Value, e.Reason)
}
