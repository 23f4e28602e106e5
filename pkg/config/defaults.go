package config

const (
	defaultStorageDriver = "sqlite"

	defaultBatchSize             = 10
	defaultMaxRetries            = 3
	defaultRetryDelay            = "30s"
	defaultCheckInterval         = "5s"
	defaultToolIdle              = "30s"
	defaultUserIdle              = "60s"
	defaultMaxTokens             = 512
	defaultDecisionRiskThreshold = 3
	defaultErrorThreshold        = 2
	defaultConcurrency           = 2

	defaultLLMProvider = "ollama"
	defaultLLMTimeout  = "30s"

	defaultEventStreamProvider = "none"
	defaultKafkaTopic          = "frames.digests"
	defaultRedisChannel        = "frames:digests"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Digest: DigestConfig{
			Enabled:               true,
			BatchSize:             defaultBatchSize,
			MaxRetries:            defaultMaxRetries,
			RetryDelay:            defaultRetryDelay,
			CheckInterval:         defaultCheckInterval,
			ToolIdle:              defaultToolIdle,
			UserIdle:              defaultUserIdle,
			MaxTokens:             defaultMaxTokens,
			DecisionRiskThreshold: defaultDecisionRiskThreshold,
			ErrorThreshold:        defaultErrorThreshold,
			Concurrency:           defaultConcurrency,
		},
		LLM: LLMConfig{
			Provider: defaultLLMProvider,
			Timeout:  defaultLLMTimeout,
		},
		EventStream: EventStreamConfig{
			Provider: defaultEventStreamProvider,
			Topic:    defaultKafkaTopic,
			Channel:  defaultRedisChannel,
		},
	}
}
