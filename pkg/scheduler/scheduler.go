// Package scheduler owns the digest queue: it decides when closed frames are
// handed to the summarizer and records the outcome on each frame's digest.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/papercomputeco/frames/pkg/digest"
	"github.com/papercomputeco/frames/pkg/eventstream"
	"github.com/papercomputeco/frames/pkg/frame"
	"github.com/papercomputeco/frames/pkg/summarize"
)

// Store is the subset of the record store the scheduler reads and writes.
type Store interface {
	GetFrame(ctx context.Context, id string) (*frame.Frame, error)
	ListEvents(ctx context.Context, frameID string) ([]*frame.Event, error)
	ListAnchors(ctx context.Context, frameID string) ([]*frame.Anchor, error)
	UpdateDigest(ctx context.Context, id string, digest frame.Payload) error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithConfig replaces the default configuration.
func WithConfig(c Config) Option {
	return func(s *Scheduler) { s.cfg = c }
}

// WithLogger sets the scheduler logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = l }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// WithPublisher publishes a DigestEvent on every terminal transition.
func WithPublisher(p eventstream.Publisher) Option {
	return func(s *Scheduler) { s.publisher = p }
}

// WithProjectID tags published events.
func WithProjectID(id string) Option {
	return func(s *Scheduler) { s.projectID = id }
}

// Scheduler is the digest queue. All item state transitions happen here.
type Scheduler struct {
	cfg        Config
	store      Store
	summarizer summarize.Summarizer
	publisher  eventstream.Publisher
	logger     *slog.Logger
	now        func() time.Time
	projectID  string

	mu            sync.Mutex
	items         map[string]*Item
	order         uint64
	lastToolCall  time.Time
	lastUserInput time.Time

	// runMu serializes queue runs so an item is never picked twice.
	runMu sync.Mutex

	stats statsRecorder

	lifeMu sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
	wg     sync.WaitGroup
}

// New creates a scheduler over store. The idle loop does not run until Start.
func New(store Store, summarizer summarize.Summarizer, opts ...Option) (*Scheduler, error) {
	if store == nil {
		return nil, errors.New("scheduler requires a store")
	}
	if summarizer == nil {
		return nil, errors.New("scheduler requires a summarizer")
	}

	s := &Scheduler{
		cfg:        DefaultConfig(),
		store:      store,
		summarizer: summarizer,
		logger:     slog.New(slog.DiscardHandler),
		now:        time.Now,
		items:      make(map[string]*Item),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.cfg = s.cfg.withDefaults()

	now := s.now()
	s.lastToolCall = now
	s.lastUserInput = now
	return s, nil
}

// Config returns the effective configuration.
func (s *Scheduler) Config() Config {
	return s.cfg
}

// Enqueue adds a frame to the queue. d seeds the priority and the attempt
// count, so a frame recovered after a restart keeps its retry budget.
// Returns false if the frame is already queued.
func (s *Scheduler) Enqueue(frameID string, d *digest.Digest, trigger Trigger) bool {
	var det *digest.Deterministic
	attempts := 0
	if d != nil {
		det = &d.Deterministic
		attempts = d.Attempts
	}
	prio := s.cfg.PriorityFor(det, trigger)

	s.mu.Lock()
	if existing, ok := s.items[frameID]; ok {
		if prio > existing.Priority && existing.State == ItemPending {
			existing.Priority = prio
		}
		s.mu.Unlock()
		s.logger.Debug("frame already queued", "frame_id", frameID, "state", existing.State)
		return false
	}

	now := s.now()
	s.order++
	s.items[frameID] = &Item{
		FrameID:    frameID,
		Priority:   prio,
		State:      ItemPending,
		Trigger:    trigger,
		Attempts:   attempts,
		EnqueuedAt: now,
		order:      s.order,
	}
	s.mu.Unlock()

	s.stats.incEnqueued()
	s.logger.Debug("digest enqueued",
		"frame_id", frameID,
		"priority", prio.String(),
		"trigger", string(trigger),
	)
	return true
}

// Pending returns a snapshot of queued items in processing order.
func (s *Scheduler) Pending() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	items := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		items = append(items, *it)
	}
	slices.SortFunc(items, func(a, b Item) int {
		return compareItems(&a, &b)
	})
	return items
}

// Stats returns queue counters.
func (s *Scheduler) Stats() Stats {
	st := s.stats.snapshot()

	s.mu.Lock()
	for _, it := range s.items {
		switch it.State {
		case ItemPending:
			st.Pending++
		case ItemProcessing:
			st.Processing++
		}
	}
	s.mu.Unlock()
	return st
}

// compareItems orders by priority desc, then enqueue order asc.
func compareItems(a, b *Item) int {
	if a.Priority != b.Priority {
		return int(b.Priority) - int(a.Priority)
	}
	switch {
	case a.order < b.order:
		return -1
	case a.order > b.order:
		return 1
	}
	return 0
}

// ProcessQueue runs up to BatchSize eligible items and returns how many were
// attempted. Item failures are recorded on the item, never returned.
func (s *Scheduler) ProcessQueue(ctx context.Context) (int, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	batch := s.claim(s.cfg.BatchSize, "")
	if len(batch) == 0 {
		return 0, nil
	}

	s.logger.Debug("processing digest batch", "items", len(batch))

	// Cancellation is honoured between sub-batches only. A claimed item
	// finishes its AI call and persists its result.
	itemCtx := context.WithoutCancel(ctx)

	processed := 0
	for start := 0; start < len(batch); start += subBatchSize {
		if err := ctx.Err(); err != nil {
			s.release(batch[start:])
			return processed, err
		}

		end := min(start+subBatchSize, len(batch))
		g := new(errgroup.Group)
		g.SetLimit(s.cfg.Concurrency)
		for _, it := range batch[start:end] {
			g.Go(func() error {
				s.processItem(itemCtx, it)
				return nil
			})
		}
		_ = g.Wait()
		processed += end - start

		runtime.Gosched()
	}
	return processed, nil
}

// ProcessFrame runs the single queued item for frameID now, ignoring idle
// state and retry delay. Returns false if the frame is not queued.
func (s *Scheduler) ProcessFrame(ctx context.Context, frameID string) bool {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	batch := s.claim(1, frameID)
	if len(batch) == 0 {
		return false
	}
	s.processItem(ctx, batch[0])
	return true
}

// claim marks up to limit eligible items as processing. A non-empty frameID
// claims only that item, whatever its retry time.
func (s *Scheduler) claim(limit int, frameID string) []*Item {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var eligible []*Item
	if frameID != "" {
		if it, ok := s.items[frameID]; ok && it.State == ItemPending {
			eligible = append(eligible, it)
		}
	} else {
		for _, it := range s.items {
			if it.eligible(now) {
				eligible = append(eligible, it)
			}
		}
		slices.SortFunc(eligible, compareItems)
	}

	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	for _, it := range eligible {
		it.State = ItemProcessing
	}
	return eligible
}

// release returns claimed but unstarted items to pending.
func (s *Scheduler) release(items []*Item) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		it.State = ItemPending
	}
}

func (s *Scheduler) processItem(ctx context.Context, it *Item) {
	log := s.logger.With("frame_id", it.FrameID)

	f, err := s.store.GetFrame(ctx, it.FrameID)
	if err != nil {
		s.retryOrDrop(it, fmt.Errorf("loading frame: %w", err))
		return
	}
	d, err := digest.Decode(f.DigestData)
	if err != nil {
		s.retryOrDrop(it, err)
		return
	}

	d.Status = digest.StatusProcessing
	if err := s.persist(ctx, f.ID, d); err != nil {
		s.retryOrDrop(it, err)
		return
	}

	events, err := s.store.ListEvents(ctx, f.ID)
	if err != nil {
		s.fail(ctx, it, f, d, fmt.Errorf("loading events: %w", err))
		return
	}
	anchors, err := s.store.ListAnchors(ctx, f.ID)
	if err != nil {
		s.fail(ctx, it, f, d, fmt.Errorf("loading anchors: %w", err))
		return
	}

	res, err := s.summarizer.Summarize(ctx, summarize.Request{
		Frame:     f,
		Events:    events,
		Anchors:   anchors,
		Digest:    &d.Deterministic,
		MaxTokens: s.cfg.MaxTokens,
	})
	if err != nil {
		s.fail(ctx, it, f, d, err)
		return
	}

	d.Attempts++
	d.Status = digest.StatusComplete
	d.LastError = ""
	d.AI = &digest.AI{
		Summary:      res.Summary,
		Insight:      res.Insight,
		FlaggedIssue: res.FlaggedIssue,
		GeneratedAt:  s.now().UTC(),
		Model:        res.Model,
		TokensUsed:   res.TokensUsed,
	}
	if err := s.persist(ctx, f.ID, d); err != nil {
		d.Attempts--
		d.AI = nil
		s.fail(ctx, it, f, d, err)
		return
	}

	s.remove(it.FrameID)
	s.stats.incCompleted()
	log.Info("digest enriched", "model", res.Model, "tokens", res.TokensUsed, "attempts", d.Attempts)
	s.publish(ctx, f, d)
}

// fail records a failed attempt on the frame's digest and either schedules a
// retry or marks the digest ai_failed. The deterministic section is untouched.
func (s *Scheduler) fail(ctx context.Context, it *Item, f *frame.Frame, d *digest.Digest, cause error) {
	d.Attempts++
	d.LastError = cause.Error()

	terminal := d.Attempts >= s.cfg.MaxRetries
	if terminal {
		d.Status = digest.StatusFailed
	} else {
		d.Status = digest.StatusPending
	}

	if err := s.persist(ctx, f.ID, d); err != nil {
		s.logger.Error("recording digest failure", "frame_id", f.ID, "error", err)
	}

	if terminal {
		s.remove(it.FrameID)
		s.stats.incFailed()
		s.logger.Warn("digest enrichment failed",
			"frame_id", f.ID,
			"attempts", d.Attempts,
			"error", cause,
		)
		s.publish(ctx, f, d)
		return
	}

	s.requeue(it, d.Attempts)
	s.logger.Debug("digest enrichment will retry",
		"frame_id", f.ID,
		"attempts", d.Attempts,
		"error", cause,
	)
}

// retryOrDrop handles failures before the digest could be read. The retry
// budget is tracked on the item alone.
func (s *Scheduler) retryOrDrop(it *Item, cause error) {
	s.mu.Lock()
	it.Attempts++
	attempts := it.Attempts
	s.mu.Unlock()

	if attempts >= s.cfg.MaxRetries {
		s.remove(it.FrameID)
		s.stats.incFailed()
		s.logger.Error("dropping digest item", "frame_id", it.FrameID, "attempts", attempts, "error", cause)
		return
	}
	s.requeue(it, attempts)
	s.logger.Warn("digest item will retry", "frame_id", it.FrameID, "attempts", attempts, "error", cause)
}

func (s *Scheduler) requeue(it *Item, attempts int) {
	s.mu.Lock()
	it.State = ItemPending
	it.Attempts = attempts
	it.NextAttemptAt = s.now().Add(s.cfg.RetryDelay)
	s.mu.Unlock()
	s.stats.incRetried()
}

func (s *Scheduler) remove(frameID string) {
	s.mu.Lock()
	delete(s.items, frameID)
	s.mu.Unlock()
}

func (s *Scheduler) persist(ctx context.Context, frameID string, d *digest.Digest) error {
	p, err := d.Payload()
	if err != nil {
		return err
	}
	if err := s.store.UpdateDigest(ctx, frameID, p); err != nil {
		return fmt.Errorf("updating digest: %w", err)
	}
	return nil
}

func (s *Scheduler) publish(ctx context.Context, f *frame.Frame, d *digest.Digest) {
	if s.publisher == nil {
		return
	}
	ev := eventstream.NewDigestEvent(f, d, s.projectID, s.now())
	if err := s.publisher.PublishDigest(ctx, ev); err != nil {
		s.logger.Warn("publishing digest event", "frame_id", f.ID, "error", err)
	}
}

// Drain processes until the queue is empty, waiting out retry delays.
func (s *Scheduler) Drain(ctx context.Context) error {
	for {
		n, err := s.ProcessQueue(ctx)
		if err != nil {
			return err
		}

		next, ok := s.nextAttempt()
		if !ok {
			return nil
		}
		if n > 0 {
			continue
		}

		wait := next.Sub(s.now())
		if wait <= 0 {
			continue
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// nextAttempt reports the earliest retry time among pending items.
func (s *Scheduler) nextAttempt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next time.Time
	found := false
	for _, it := range s.items {
		if it.State != ItemPending {
			continue
		}
		if !found || it.NextAttemptAt.Before(next) {
			next = it.NextAttemptAt
			found = true
		}
	}
	return next, found
}

// ToolCall records tool activity.
func (s *Scheduler) ToolCall() {
	s.mu.Lock()
	s.lastToolCall = s.now()
	s.mu.Unlock()
}

// UserInput records user activity.
func (s *Scheduler) UserInput() {
	s.mu.Lock()
	s.lastUserInput = s.now()
	s.mu.Unlock()
}

// Interrupted resets both activity timers and demotes in-flight items to
// normal priority. In-flight calls are not cancelled.
func (s *Scheduler) Interrupted() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.lastToolCall = now
	s.lastUserInput = now
	for _, it := range s.items {
		if it.State == ItemProcessing {
			it.Priority = PriorityNormal
		}
	}
	s.logger.Debug("scheduler interrupted")
}

// FrameClosed processes frameID in the background when ProcessOnClose is set.
func (s *Scheduler) FrameClosed(ctx context.Context, frameID string) {
	if !s.cfg.ProcessOnClose {
		return
	}

	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.ProcessFrame(ctx, frameID)
	}()
}

// Idle reports whether either activity timer has passed its threshold.
func (s *Scheduler) Idle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	return now.Sub(s.lastToolCall) >= s.cfg.ToolIdle ||
		now.Sub(s.lastUserInput) >= s.cfg.UserIdle
}

// Start runs the idle check every CheckInterval until ctx is done or Stop is
// called. Calling Start twice is a no-op.
func (s *Scheduler) Start(ctx context.Context) {
	s.lifeMu.Lock()
	defer s.lifeMu.Unlock()
	if s.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go func(done chan struct{}) {
		defer close(done)
		ticker := time.NewTicker(s.cfg.CheckInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.tick(ctx)
			}
		}
	}(s.done)

	s.logger.Debug("scheduler started", "check_interval", s.cfg.CheckInterval)
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.Idle() {
		return
	}
	if _, ok := s.nextAttempt(); !ok {
		return
	}
	if _, err := s.ProcessQueue(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Warn("idle queue run", "error", err)
	}
}

// Stop cancels the idle loop and waits for it and any close-triggered work.
func (s *Scheduler) Stop() {
	s.lifeMu.Lock()
	cancel, done := s.cancel, s.done
	s.cancel, s.done = nil, nil
	s.lifeMu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
	s.wg.Wait()
	s.logger.Debug("scheduler stopped")
}
