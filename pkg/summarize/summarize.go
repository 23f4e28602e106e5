// Package summarize defines the collaborator that turns a closed frame and
// its deterministic digest into a short AI-written summary.
package summarize

import (
	"context"

	"github.com/papercomputeco/frames/pkg/digest"
	"github.com/papercomputeco/frames/pkg/frame"
)

// Request is everything a summarizer may look at for one frame.
type Request struct {
	Frame     *frame.Frame
	Events    []*frame.Event
	Anchors   []*frame.Anchor
	Digest    *digest.Deterministic
	MaxTokens int
}

// Result is the generated section of a digest.
type Result struct {
	Summary      string
	Insight      string
	FlaggedIssue string
	Model        string
	TokensUsed   int
}

// Summarizer produces a Result or fails. Implementations own their timeouts;
// callers do not retry beyond their own queue policy.
type Summarizer interface {
	Summarize(ctx context.Context, req Request) (*Result, error)
}

// Func adapts a plain function to Summarizer.
type Func func(ctx context.Context, req Request) (*Result, error)

func (f Func) Summarize(ctx context.Context, req Request) (*Result, error) {
	return f(ctx, req)
}
