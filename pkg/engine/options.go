package engine

import (
	"log/slog"
	"time"

	"github.com/papercomputeco/frames/pkg/digest"
)

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithEnricher enables AI enrichment: closed frames are enqueued on it and
// activity is signalled to it.
func WithEnricher(en Enricher) Option {
	return func(e *Engine) { e.enricher = en }
}

// WithProjectID tags every frame created by the engine.
func WithProjectID(id string) Option {
	return func(e *Engine) { e.projectID = id }
}

// WithExtractor replaces the default deterministic extractor.
func WithExtractor(x *digest.Extractor) Option {
	return func(e *Engine) { e.extractor = x }
}

// WithIDGenerator overrides uuid generation for frame, event and anchor ids.
func WithIDGenerator(fn func() string) Option {
	return func(e *Engine) { e.newID = fn }
}
