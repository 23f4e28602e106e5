// Package workspace wires the frames components together for one CLI
// invocation: config, logging, the record store, the digest scheduler and
// the engine for the current session's run.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/frames/cmd/frames/sqlitepath"
	"github.com/papercomputeco/frames/pkg/config"
	"github.com/papercomputeco/frames/pkg/credentials"
	"github.com/papercomputeco/frames/pkg/dotdir"
	"github.com/papercomputeco/frames/pkg/engine"
	"github.com/papercomputeco/frames/pkg/eventstream"
	"github.com/papercomputeco/frames/pkg/eventstream/kafka"
	"github.com/papercomputeco/frames/pkg/eventstream/nop"
	"github.com/papercomputeco/frames/pkg/eventstream/redis"
	"github.com/papercomputeco/frames/pkg/git"
	"github.com/papercomputeco/frames/pkg/logger"
	"github.com/papercomputeco/frames/pkg/scheduler"
	"github.com/papercomputeco/frames/pkg/storage"
	"github.com/papercomputeco/frames/pkg/storage/inmemory"
	"github.com/papercomputeco/frames/pkg/storage/postgres"
	"github.com/papercomputeco/frames/pkg/storage/sqlite"
	"github.com/papercomputeco/frames/pkg/summarize"
)

// Options controls how a Workspace is opened.
type Options struct {
	ConfigDir string
	Debug     bool

	// Config is the resolved configuration, normally config.FromViper.
	Config *config.Config

	// LogOutput receives human-readable logs. Defaults to os.Stderr.
	LogOutput io.Writer
}

// Workspace holds every long-lived component of a CLI invocation.
type Workspace struct {
	Config    *config.Config
	Logger    *slog.Logger
	Store     storage.Driver
	Session   *dotdir.SessionState
	Engine    *engine.Engine
	Scheduler *scheduler.Scheduler

	publisher eventstream.Publisher
	logFile   *os.File
}

// Open builds a Workspace. The session's run is created on first use.
func Open(ctx context.Context, opts Options) (*Workspace, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.NewDefaultConfig()
	}

	w := &Workspace{Config: cfg}

	log, logFile, err := NewLogger(opts.ConfigDir, opts.Debug, opts.LogOutput)
	if err != nil {
		return nil, err
	}
	w.Logger, w.logFile = log, logFile

	w.Store, err = OpenStore(ctx, cfg.Storage, opts.ConfigDir, w.Logger)
	if err != nil {
		w.Close()
		return nil, err
	}

	w.Session, err = CurrentSession(ctx, opts.ConfigDir, cfg.Session.Project)
	if err != nil {
		w.Close()
		return nil, err
	}

	engineOpts := []engine.Option{
		engine.WithLogger(w.Logger),
		engine.WithProjectID(w.Session.ProjectID),
	}

	if cfg.Digest.Enabled {
		w.publisher, err = NewPublisher(cfg.EventStream, w.Logger)
		if err != nil {
			w.Close()
			return nil, err
		}

		schedCfg, err := SchedulerConfig(cfg.Digest)
		if err != nil {
			w.Close()
			return nil, err
		}

		summarizer, err := NewSummarizer(cfg.LLM, opts.ConfigDir, w.Logger)
		if err != nil {
			w.Close()
			return nil, err
		}

		w.Scheduler, err = scheduler.New(w.Store, summarizer,
			scheduler.WithConfig(schedCfg),
			scheduler.WithLogger(w.Logger),
			scheduler.WithPublisher(w.publisher),
			scheduler.WithProjectID(w.Session.ProjectID),
		)
		if err != nil {
			w.Close()
			return nil, err
		}
		engineOpts = append(engineOpts, engine.WithEnricher(w.Scheduler))
	}

	w.Engine, err = engine.New(ctx, w.Store, w.Session.RunID, engineOpts...)
	if err != nil {
		w.Close()
		return nil, err
	}

	return w, nil
}

// Close waits for close-triggered digest work, then releases the publisher,
// the store and the log file.
func (w *Workspace) Close() error {
	var errs []error
	if w.Scheduler != nil {
		w.Scheduler.Stop()
	}
	if w.publisher != nil {
		errs = append(errs, w.publisher.Close())
	}
	if w.Store != nil {
		errs = append(errs, w.Store.Close())
	}
	if w.logFile != nil {
		errs = append(errs, w.logFile.Close())
	}
	return errors.Join(errs...)
}

// NewLogger fans out to a pretty handler on out and JSON lines appended to
// frames.log in the .frames directory.
func NewLogger(configDir string, debug bool, out io.Writer) (*slog.Logger, *os.File, error) {
	if out == nil {
		out = os.Stderr
	}

	pretty := logger.New(
		logger.WithDebug(debug),
		logger.WithFormat(logger.FormatPretty),
		logger.WithWriter(out),
	)

	path, err := dotdir.NewManager().Path(configDir, dotdir.LogFile)
	if err != nil {
		return nil, nil, err
	}
	structured, f, err := logger.OpenFile(path)
	if err != nil {
		return nil, nil, err
	}

	return logger.Tee(pretty, structured), f, nil
}

// OpenStore opens the configured record store.
func OpenStore(ctx context.Context, cfg config.StorageConfig, configDir string, log *slog.Logger) (storage.Driver, error) {
	switch cfg.Driver {
	case "", "sqlite":
		path, err := sqlitepath.ResolveSQLitePath(cfg.SQLitePath, configDir)
		if err != nil {
			return nil, err
		}
		d, err := sqlite.NewDriver(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		log.Debug("using SQLite storage", "path", path)
		return d, nil

	case "postgres":
		if cfg.PostgresDSN == "" {
			return nil, errors.New("storage.postgres_dsn is required for the postgres driver")
		}
		d, err := postgres.NewDriver(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("opening postgres store: %w", err)
		}
		log.Debug("using PostgreSQL storage")
		return d, nil

	case "memory":
		log.Debug("using in-memory storage")
		return inmemory.NewDriver(), nil

	default:
		return nil, fmt.Errorf("unknown storage driver: %q", cfg.Driver)
	}
}

// NewPublisher builds the digest event publisher for cfg.Provider.
func NewPublisher(cfg config.EventStreamConfig, log *slog.Logger) (eventstream.Publisher, error) {
	switch cfg.Provider {
	case "", "none":
		return nop.NewPublisher(), nil

	case "kafka":
		var brokers []string
		for _, b := range strings.Split(cfg.Brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				brokers = append(brokers, b)
			}
		}
		p, err := kafka.NewPublisher(kafka.Config{
			Brokers: brokers,
			Topic:   cfg.Topic,
			Logger:  log,
		})
		if err != nil {
			return nil, err
		}
		return p, nil

	case "redis":
		p, err := redis.NewPublisher(redis.Config{
			URL:     cfg.RedisURL,
			Channel: cfg.Channel,
			Retries: redis.DefaultRetries,
		})
		if err != nil {
			return nil, err
		}
		return p, nil

	default:
		return nil, fmt.Errorf("unknown eventstream provider: %q", cfg.Provider)
	}
}

// NewSummarizer builds the LLM summarizer, resolving keys from stored
// credentials and the environment.
func NewSummarizer(cfg config.LLMConfig, configDir string, log *slog.Logger) (summarize.Summarizer, error) {
	timeout, err := parseDuration("llm.timeout", cfg.Timeout)
	if err != nil {
		return nil, err
	}

	credMgr, err := credentials.NewManager(configDir)
	if err != nil {
		return nil, fmt.Errorf("loading credentials: %w", err)
	}

	call, err := summarize.NewCaller(summarize.CallerConfig{
		Provider: cfg.Provider,
		Model:    cfg.Model,
		BaseURL:  cfg.BaseURL,
		Timeout:  timeout,
		CredMgr:  credMgr,
		Logger:   log,
	})
	if err != nil {
		return nil, err
	}
	return summarize.NewLLMSummarizer(call), nil
}

// SchedulerConfig converts the digest section into a scheduler.Config.
func SchedulerConfig(d config.DigestConfig) (scheduler.Config, error) {
	c := scheduler.Config{
		BatchSize:             d.BatchSize,
		MaxRetries:            d.MaxRetries,
		MaxTokens:             d.MaxTokens,
		ProcessOnClose:        d.ProcessOnClose,
		EscalateOnClose:       d.EscalateOnClose,
		DecisionRiskThreshold: d.DecisionRiskThreshold,
		ErrorThreshold:        d.ErrorThreshold,
		Concurrency:           d.Concurrency,
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"digest.retry_delay", d.RetryDelay, &c.RetryDelay},
		{"digest.check_interval", d.CheckInterval, &c.CheckInterval},
		{"digest.tool_idle", d.ToolIdle, &c.ToolIdle},
		{"digest.user_idle", d.UserIdle, &c.UserIdle},
	}
	for _, dur := range durations {
		v, err := parseDuration(dur.key, dur.raw)
		if err != nil {
			return scheduler.Config{}, err
		}
		*dur.dst = v
	}

	return c, nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

// CurrentSession returns the pinned session, starting one if none exists.
func CurrentSession(ctx context.Context, configDir, project string) (*dotdir.SessionState, error) {
	ddm := dotdir.NewManager()

	state, err := ddm.LoadSession(configDir)
	if err != nil {
		return nil, err
	}
	if state != nil {
		return state, nil
	}

	return NewSession(ctx, configDir, project)
}

// NewSession pins a fresh run id, replacing any current session. An empty
// project defaults to the name of the enclosing git repository.
func NewSession(ctx context.Context, configDir, project string) (*dotdir.SessionState, error) {
	if project == "" {
		project = git.ProjectName(ctx, "")
	}
	state := &dotdir.SessionState{
		RunID:     uuid.NewString(),
		ProjectID: project,
		StartedAt: time.Now().UTC(),
	}
	if err := dotdir.NewManager().SaveSession(state, configDir); err != nil {
		return nil, err
	}
	return state, nil
}
