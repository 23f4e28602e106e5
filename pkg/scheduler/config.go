package scheduler

import "time"

// Config controls batching, retry and idle detection.
type Config struct {
	// BatchSize caps the items pulled per ProcessQueue call.
	BatchSize int

	// MaxRetries is the number of failed attempts after which a digest is
	// marked ai_failed.
	MaxRetries int

	// RetryDelay is how long a failed item waits before it is eligible again.
	RetryDelay time.Duration

	// CheckInterval is the idle-check tick period used by Start.
	CheckInterval time.Duration

	// ToolIdle and UserIdle are the quiet periods after which queued work runs.
	ToolIdle time.Duration
	UserIdle time.Duration

	// MaxTokens is the budget handed to the summarizer.
	MaxTokens int

	// ProcessOnClose processes a frame as soon as it is closed.
	ProcessOnClose bool

	// EscalateOnClose forces close-triggered items to high priority.
	EscalateOnClose bool

	// DecisionRiskThreshold and ErrorThreshold decide high priority.
	DecisionRiskThreshold int
	ErrorThreshold        int

	// Concurrency caps in-flight summarizer calls within a sub-batch.
	Concurrency int
}

// subBatchSize is how many items run before the queue yields.
const subBatchSize = 10

// DefaultConfig returns the scheduler defaults.
func DefaultConfig() Config {
	return Config{
		BatchSize:             10,
		MaxRetries:            3,
		RetryDelay:            30 * time.Second,
		CheckInterval:         5 * time.Second,
		ToolIdle:              30 * time.Second,
		UserIdle:              60 * time.Second,
		MaxTokens:             512,
		DecisionRiskThreshold: 3,
		ErrorThreshold:        2,
		Concurrency:           2,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = d.MaxRetries
	}
	if c.RetryDelay < 0 {
		c.RetryDelay = 0
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = d.CheckInterval
	}
	if c.ToolIdle <= 0 {
		c.ToolIdle = d.ToolIdle
	}
	if c.UserIdle <= 0 {
		c.UserIdle = d.UserIdle
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.DecisionRiskThreshold <= 0 {
		c.DecisionRiskThreshold = d.DecisionRiskThreshold
	}
	if c.ErrorThreshold <= 0 {
		c.ErrorThreshold = d.ErrorThreshold
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 1
	}
	return c
}
