package scheduler

import "sync"

// Stats is a consistent snapshot of queue counters.
type Stats struct {
	Enqueued   int64
	Completed  int64
	Failed     int64
	Retried    int64
	Pending    int
	Processing int
}

type statsRecorder struct {
	mu sync.Mutex
	s  Stats
}

func (r *statsRecorder) incEnqueued() {
	r.mu.Lock()
	r.s.Enqueued++
	r.mu.Unlock()
}

func (r *statsRecorder) incCompleted() {
	r.mu.Lock()
	r.s.Completed++
	r.mu.Unlock()
}

func (r *statsRecorder) incFailed() {
	r.mu.Lock()
	r.s.Failed++
	r.mu.Unlock()
}

func (r *statsRecorder) incRetried() {
	r.mu.Lock()
	r.s.Retried++
	r.mu.Unlock()
}

func (r *statsRecorder) snapshot() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.s
}
