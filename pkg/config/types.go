package config

import (
	"fmt"
	"strconv"
	"time"
)

// Config represents the persistent frames configuration stored as config.toml
// in the .frames/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version     int               `toml:"version"`
	Storage     StorageConfig     `toml:"storage"`
	Session     SessionConfig     `toml:"session"`
	Digest      DigestConfig      `toml:"digest"`
	LLM         LLMConfig         `toml:"llm"`
	EventStream EventStreamConfig `toml:"eventstream"`
}

// StorageConfig selects the record store.
type StorageConfig struct {
	// Driver is "sqlite", "postgres" or "memory".
	Driver      string `toml:"driver,omitempty"`
	SQLitePath  string `toml:"sqlite_path,omitempty"`
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// SessionConfig tags the frames written by this checkout.
type SessionConfig struct {
	Project string `toml:"project,omitempty"`
}

// DigestConfig tunes the digest queue. Durations are Go duration strings.
type DigestConfig struct {
	Enabled               bool   `toml:"enabled"`
	ProcessOnClose        bool   `toml:"process_on_close"`
	EscalateOnClose       bool   `toml:"escalate_on_close"`
	BatchSize             int    `toml:"batch_size,omitempty"`
	MaxRetries            int    `toml:"max_retries,omitempty"`
	RetryDelay            string `toml:"retry_delay,omitempty"`
	CheckInterval         string `toml:"check_interval,omitempty"`
	ToolIdle              string `toml:"tool_idle,omitempty"`
	UserIdle              string `toml:"user_idle,omitempty"`
	MaxTokens             int    `toml:"max_tokens,omitempty"`
	DecisionRiskThreshold int    `toml:"decision_risk_threshold,omitempty"`
	ErrorThreshold        int    `toml:"error_threshold,omitempty"`
	Concurrency           int    `toml:"concurrency,omitempty"`
}

// LLMConfig selects the summarization provider.
type LLMConfig struct {
	Provider string `toml:"provider,omitempty"`
	Model    string `toml:"model,omitempty"`
	BaseURL  string `toml:"base_url,omitempty"`
	Timeout  string `toml:"timeout,omitempty"`
}

// EventStreamConfig selects where digest events are published.
type EventStreamConfig struct {
	// Provider is "none", "kafka" or "redis".
	Provider string `toml:"provider,omitempty"`

	// Brokers is a comma-separated Kafka broker list.
	Brokers  string `toml:"brokers,omitempty"`
	Topic    string `toml:"topic,omitempty"`
	RedisURL string `toml:"redis_url,omitempty"`
	Channel  string `toml:"channel,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func oneOfKey(name string, allowed []string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			for _, a := range allowed {
				if v == a {
					*field(c) = v
					return nil
				}
			}
			return fmt.Errorf("invalid value for %s: %q (allowed: %v)", name, v, allowed)
		},
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error {
			if _, err := time.ParseDuration(v); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = v
			return nil
		},
	}
}

var (
	storageDrivers       = []string{"sqlite", "postgres", "memory"}
	llmProviders         = []string{"openai", "anthropic", "ollama"}
	eventStreamProviders = []string{"none", "kafka", "redis"}
)

// configKeyOrder lists every supported key in TOML section order.
var configKeyOrder = []string{
	"storage.driver",
	"storage.sqlite_path",
	"storage.postgres_dsn",
	"session.project",
	"digest.enabled",
	"digest.process_on_close",
	"digest.escalate_on_close",
	"digest.batch_size",
	"digest.max_retries",
	"digest.retry_delay",
	"digest.check_interval",
	"digest.tool_idle",
	"digest.user_idle",
	"digest.max_tokens",
	"digest.decision_risk_threshold",
	"digest.error_threshold",
	"digest.concurrency",
	"llm.provider",
	"llm.model",
	"llm.base_url",
	"llm.timeout",
	"eventstream.provider",
	"eventstream.brokers",
	"eventstream.topic",
	"eventstream.redis_url",
	"eventstream.channel",
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver":       oneOfKey("storage.driver", storageDrivers, func(c *Config) *string { return &c.Storage.Driver }),
	"storage.sqlite_path":  stringKey(func(c *Config) *string { return &c.Storage.SQLitePath }),
	"storage.postgres_dsn": stringKey(func(c *Config) *string { return &c.Storage.PostgresDSN }),

	"session.project": stringKey(func(c *Config) *string { return &c.Session.Project }),

	"digest.enabled":                 boolKey("digest.enabled", func(c *Config) *bool { return &c.Digest.Enabled }),
	"digest.process_on_close":        boolKey("digest.process_on_close", func(c *Config) *bool { return &c.Digest.ProcessOnClose }),
	"digest.escalate_on_close":       boolKey("digest.escalate_on_close", func(c *Config) *bool { return &c.Digest.EscalateOnClose }),
	"digest.batch_size":              intKey("digest.batch_size", func(c *Config) *int { return &c.Digest.BatchSize }),
	"digest.max_retries":             intKey("digest.max_retries", func(c *Config) *int { return &c.Digest.MaxRetries }),
	"digest.retry_delay":             durationKey("digest.retry_delay", func(c *Config) *string { return &c.Digest.RetryDelay }),
	"digest.check_interval":          durationKey("digest.check_interval", func(c *Config) *string { return &c.Digest.CheckInterval }),
	"digest.tool_idle":               durationKey("digest.tool_idle", func(c *Config) *string { return &c.Digest.ToolIdle }),
	"digest.user_idle":               durationKey("digest.user_idle", func(c *Config) *string { return &c.Digest.UserIdle }),
	"digest.max_tokens":              intKey("digest.max_tokens", func(c *Config) *int { return &c.Digest.MaxTokens }),
	"digest.decision_risk_threshold": intKey("digest.decision_risk_threshold", func(c *Config) *int { return &c.Digest.DecisionRiskThreshold }),
	"digest.error_threshold":         intKey("digest.error_threshold", func(c *Config) *int { return &c.Digest.ErrorThreshold }),
	"digest.concurrency":             intKey("digest.concurrency", func(c *Config) *int { return &c.Digest.Concurrency }),

	"llm.provider": oneOfKey("llm.provider", llmProviders, func(c *Config) *string { return &c.LLM.Provider }),
	"llm.model":    stringKey(func(c *Config) *string { return &c.LLM.Model }),
	"llm.base_url": stringKey(func(c *Config) *string { return &c.LLM.BaseURL }),
	"llm.timeout":  durationKey("llm.timeout", func(c *Config) *string { return &c.LLM.Timeout }),

	"eventstream.provider":  oneOfKey("eventstream.provider", eventStreamProviders, func(c *Config) *string { return &c.EventStream.Provider }),
	"eventstream.brokers":   stringKey(func(c *Config) *string { return &c.EventStream.Brokers }),
	"eventstream.topic":     stringKey(func(c *Config) *string { return &c.EventStream.Topic }),
	"eventstream.redis_url": stringKey(func(c *Config) *string { return &c.EventStream.RedisURL }),
	"eventstream.channel":   stringKey(func(c *Config) *string { return &c.EventStream.Channel }),
}
