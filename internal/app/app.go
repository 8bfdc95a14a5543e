// Package app wires configuration, storage, the relay engine and the
// telegram runtime into one runnable application.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/fanrelay/core/bootstrap"
	corecmd "github.com/m3rciful/fanrelay/core/cmd"
	coreconfig "github.com/m3rciful/fanrelay/core/config"
	"github.com/m3rciful/fanrelay/core/logger"
	"github.com/m3rciful/fanrelay/core/metrics"
	tg "github.com/m3rciful/fanrelay/core/telegram"
	tgsender "github.com/m3rciful/fanrelay/core/telegram/sender"
	"github.com/m3rciful/fanrelay/internal/bot"
	"github.com/m3rciful/fanrelay/internal/config"
	"github.com/m3rciful/fanrelay/internal/relay"
	"github.com/m3rciful/fanrelay/internal/scheduler"
	"github.com/m3rciful/fanrelay/internal/session"
	"github.com/m3rciful/fanrelay/internal/storage"
	"github.com/m3rciful/fanrelay/internal/storage/memory"
	"github.com/m3rciful/fanrelay/internal/storage/postgres"
	"github.com/m3rciful/fanrelay/internal/storage/sqlite"
	"github.com/m3rciful/fanrelay/migrations"
)

// App owns every long-lived dependency of the process.
type App struct {
	cfg       *config.Config
	store     storage.Store
	engine    *relay.Engine
	adapter   *bot.Adapter
	scheduler *scheduler.Scheduler
	metrics   *metrics.Server

	startOnce sync.Once
}

// Option customizes New.
type Option func(*bootstrap.Options)

// WithLoggerInit replaces logger.InitLogger.
func WithLoggerInit(fn func(*coreconfig.Config) error) Option {
	return func(o *bootstrap.Options) { o.LoggerInit = fn }
}

// Bootstrap adapts New to corecmd.Options.
func Bootstrap(ctx context.Context, carrier corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
	cfg, ok := carrier.(*config.Config)
	if !ok {
		return nil, fmt.Errorf("app: unexpected config type %T", carrier)
	}
	return New(ctx, cfg)
}

// LoadConfig adapts config.Load to corecmd.Options.
func LoadConfig(path string) (corecmd.ConfigCarrier, error) {
	return config.Load(path)
}

// New initializes logging and storage and builds the engine.
func New(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("app: nil config")
	}
	bopts := bootstrap.Options{Config: cfg.CoreConfig()}
	if cfg.Storage.Driver == storage.DriverPostgres {
		bopts.Database = &cfg.Database
		bopts.Migrations = migrations.FS
	}
	for _, opt := range opts {
		opt(&bopts)
	}
	res, err := bootstrap.Run(ctx, bopts)
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings() {
		logger.Warn(ctx, "app", "config.warning", slog.String("detail", w))
	}

	store, err := OpenStore(cfg.Storage, res.DB)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "store", "store.ready", slog.String("driver", cfg.Storage.Driver))

	a := &App{cfg: cfg, store: store, adapter: bot.New()}
	a.engine = relay.New(cfg.RelayEngineConfig(), store, session.NewMemory(), a.adapter)

	if cfg.Reminders.Schedule != "" {
		a.scheduler, err = scheduler.New(cfg.Reminders.Schedule, cfg.Reminders.Location(), cfg.Reminders.Timeout(), a.engine)
		if err != nil {
			_ = store.Close()
			return nil, err
		}
	}
	if cfg.Metrics.Listen != "" {
		a.metrics = metrics.Start(cfg.Metrics.Listen)
	}
	return a, nil
}

// OpenStore opens the configured driver. db is required for postgres.
func OpenStore(cfg config.StorageConfig, db *sqlx.DB) (storage.Store, error) {
	switch cfg.Driver {
	case storage.DriverPostgres:
		if db == nil {
			return nil, fmt.Errorf("app: postgres driver needs a database connection")
		}
		return postgres.New(db), nil
	case storage.DriverSQLite:
		return sqlite.Open(cfg.SQLitePath)
	case storage.DriverMemory:
		return memory.New(), nil
	}
	return nil, fmt.Errorf("app: unknown storage driver %q", cfg.Driver)
}

// Engine exposes the relay engine.
func (a *App) Engine() *relay.Engine { return a.engine }

// TelegramRunOptions describes the bot runtime for corecmd.Run.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	return tg.RunOptions{
		Config: a.cfg.CoreConfig(),
		DispatcherOptions: tgsender.Options{
			Workers:    8,
			MaxRetries: 2,
		},
		Middlewares: tg.DefaultMiddlewares(a.cfg.CoreConfig(), tg.Throttle{
			Exempt:    a.engine.IsAdmin,
			OnLimited: a.adapter.Throttled,
		}),
		Routes: a.adapter.Routes(a.engine),
		OnStart: func(ctx context.Context, rt tg.Runtime) error {
			if err := a.adapter.Attach(ctx, rt); err != nil {
				return err
			}
			a.startOnce.Do(func() {
				if a.scheduler != nil {
					a.scheduler.Start()
				}
			})
			return nil
		},
		OnStop: a.adapter.Detach,
	}, nil
}

// Close stops background work and releases the store.
func (a *App) Close() error {
	var errs []error
	if a.scheduler != nil {
		a.scheduler.Stop()
	}
	if a.adapter != nil {
		a.adapter.Close()
	}
	if a.metrics != nil {
		errs = append(errs, a.metrics.Shutdown(context.Background()))
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	return errors.Join(errs...)
}
