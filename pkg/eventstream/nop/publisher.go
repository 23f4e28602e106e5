// Package nop provides a publisher that drops every event.
package nop

import (
	"context"

	"github.com/papercomputeco/frames/pkg/eventstream"
)

// Publisher stands in when eventstream.provider is "none".
type Publisher struct{}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// PublishDigest validates event and drops it.
func (p *Publisher) PublishDigest(_ context.Context, event *eventstream.DigestEvent) error {
	return event.Validate()
}

// Close is a no-op.
func (p *Publisher) Close() error {
	return nil
}

var _ eventstream.Publisher = (*Publisher)(nil)
