package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/matheus3301/lifechat/internal/analysis"
	"github.com/matheus3301/lifechat/internal/api"
	"github.com/matheus3301/lifechat/internal/autoreply"
	"github.com/matheus3301/lifechat/internal/bus"
	"github.com/matheus3301/lifechat/internal/config"
	"github.com/matheus3301/lifechat/internal/dispatch"
	"github.com/matheus3301/lifechat/internal/event"
	"github.com/matheus3301/lifechat/internal/instance"
	"github.com/matheus3301/lifechat/internal/lock"
	"github.com/matheus3301/lifechat/internal/logging"
	"github.com/matheus3301/lifechat/internal/notify"
	"github.com/matheus3301/lifechat/internal/presence"
	"github.com/matheus3301/lifechat/internal/store"
)

// Params holds the resolved instance configuration passed to the fx module.
type Params struct {
	InstanceName string
	SocketPath   string         // optional override for testing; empty = use default
	Config       *config.Config // optional; nil = load config.toml and the environment
	Debug        bool
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideConfig,
			provideLogger,
			provideLock,
			provideStore,
			provideBus,
			provideRedis,
			providePresence,
			provideQueue,
			provideClassifier,
			provideAnalysisClient,
			provideAnalyzer,
			providePipeline,
			provideOrchestrator,
			provideChatService,
			providePresenceService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideConfig(p Params) (*config.Config, error) {
	cfg := p.Config
	if cfg == nil {
		var err error
		if cfg, err = config.LoadOrDefault(instance.ConfigPath()); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := config.ApplyEnv(cfg, instance.EnvPath()); err != nil {
			return nil, fmt.Errorf("load environment: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func provideLogger(p Params) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if p.Debug {
		level = zapcore.DebugLevel
	}
	return logging.New(instance.LogPath(p.InstanceName), p.InstanceName, level)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := instance.EnsureDir(p.InstanceName); err != nil {
		return nil, err
	}
	logger.Info("acquiring instance lock")
	l, err := lock.Acquire(instance.LockPath(p.InstanceName), lock.Owner{
		Instance: p.InstanceName,
		Socket:   p.socketPath(),
	})
	if err != nil {
		return nil, err
	}
	logger.Info("instance lock acquired", zap.Time("started", l.Owner().Started))
	return l, nil
}

// provideStore depends on the lock so the database is never opened by a
// second daemon.
func provideStore(p Params, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := instance.DBPath(p.InstanceName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("schema migrated", zap.Uint("from", result.From), zap.Uint("version", result.Version))
	} else {
		logger.Info("schema up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideBus() *bus.Bus {
	return bus.New()
}

// provideRedis returns nil when presence lives in memory.
func provideRedis(cfg *config.Config, logger *zap.Logger) (*redis.Client, error) {
	if cfg.Presence.Backend != config.BackendRedis {
		return nil, nil
	}
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Redis.DB != 0 {
		opt.DB = cfg.Redis.DB
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	logger.Info("redis connected", zap.String("addr", opt.Addr), zap.Int("db", opt.DB))
	return rdb, nil
}

func providePresence(rdb *redis.Client) presence.Registry {
	if rdb != nil {
		return presence.NewRedis(rdb)
	}
	return presence.NewMemory()
}

func provideQueue(cfg *config.Config, rdb *redis.Client) notify.Queue {
	if rdb != nil {
		return notify.NewRedis(rdb, cfg.Notifications.Capacity)
	}
	return notify.NewMemory(cfg.Notifications.Capacity)
}

func provideClassifier() event.Classifier {
	return event.NewPatternClassifier()
}

func provideAnalysisClient(cfg *config.Config, logger *zap.Logger) *analysis.Client {
	a := cfg.Analysis
	if a.APIKey == "" {
		logger.Warn("no analysis api key configured, replies will use templates and weddings will not be answered")
	}
	return analysis.NewClient(analysis.Config{
		BaseURL:           a.BaseURL,
		APIKey:            a.APIKey,
		Model:             a.Model,
		MaxTokens:         a.MaxTokens,
		Temperature:       a.Temperature,
		Timeout:           a.Timeout.Duration,
		RequestsPerMinute: a.RequestsPerMinute,
	}, logger.Named("analysis"))
}

func provideAnalyzer(client *analysis.Client, db *store.DB, logger *zap.Logger) *analysis.Analyzer {
	return analysis.NewAnalyzer(client, db, client.Timeout(), logger.Named("analysis"))
}

func providePipeline(cfg *config.Config, db *store.DB, c event.Classifier, reg presence.Registry, q notify.Queue, b *bus.Bus, logger *zap.Logger) *dispatch.Pipeline {
	return dispatch.New(dispatch.Options{
		Store:         db,
		Classifier:    c,
		Presence:      reg,
		Queue:         q,
		Bus:           b,
		IntimacyDelta: cfg.Dispatch.IntimacyDelta,
		Logger:        logger.Named("dispatch"),
	})
}

// analysisSlack covers the history reads that precede the backend call.
const analysisSlack = 2 * time.Second

func provideOrchestrator(cfg *config.Config, db *store.DB, an *analysis.Analyzer, pipe *dispatch.Pipeline, b *bus.Bus, logger *zap.Logger) *autoreply.Orchestrator {
	return autoreply.New(autoreply.Options{
		Store:     db,
		Decider:   an,
		Poster:    pipe,
		Bus:       b,
		Workers:   cfg.AutoReply.Workers,
		QueueSize: cfg.AutoReply.QueueSize,
		Timeout:   cfg.Analysis.Timeout.Duration + analysisSlack,
		Logger:    logger.Named("autoreply"),
	})
}

func provideChatService(pipe *dispatch.Pipeline, an *analysis.Analyzer, logger *zap.Logger) *api.ChatService {
	return api.NewChatService(pipe, an, logger.Named("api"))
}

func providePresenceService(reg presence.Registry, q notify.Queue, db *store.DB, b *bus.Bus, logger *zap.Logger) *api.PresenceService {
	return api.NewPresenceService(reg, q, db, b, logger.Named("api"))
}

func registerLifecycle(lc fx.Lifecycle, srv *Server, orch *autoreply.Orchestrator, db *store.DB, rdb *redis.Client, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Workers outlive the start context.
			orch.Start(context.Background())

			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			srv.Stop(ctx)
			orch.Stop()
			if rdb != nil {
				if err := rdb.Close(); err != nil {
					logger.Warn("error closing redis", zap.Error(err))
				}
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
