package monitor

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/solitary-pixels/hotspotx/pkg/api"
	"github.com/solitary-pixels/hotspotx/pkg/heartbeat"
	"github.com/solitary-pixels/hotspotx/pkg/logging"
	"github.com/solitary-pixels/hotspotx/pkg/notify"
	"github.com/solitary-pixels/hotspotx/pkg/redis"
	"github.com/solitary-pixels/hotspotx/pkg/snapshot"
	"github.com/solitary-pixels/hotspotx/pkg/status"
)

// App polls the fleet of one wallet on a schedule and notifies on status
// changes and periodic reports.
type App struct {
	Config Config

	Collector *heartbeat.Collector
	Detector  *status.Detector
	Sink      snapshot.Sink
	Notifier  notify.Notifier

	// Redis is nil unless the status backend or snapshot publishing needs it.
	Redis *redis.Client

	// Cron triggers RunCycle according to Config.CronSpec.
	Cron *cron.Cron

	// Server serves health and the last cycle result.
	Server *http.Server

	Logger *zap.Logger

	cycleMu sync.Mutex
	last    atomic.Pointer[CycleResult]
}

// Initialize loads the configuration and builds the App. Start-up errors are fatal.
func Initialize(ctx context.Context) *App {
	logger, err := logging.New()
	if err != nil {
		// nothing else to do here, we'll just log to stderr
		panic(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		logger.Fatal("Unable to load configuration", zap.Error(err))
	}

	app, err := New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("Unable to initialize monitor", zap.Error(err))
	}
	return app
}

// New wires every component described by cfg.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (_ *App, err error) {
	logger = logging.OrNop(logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	if cfg.UsesRedis() {
		rc, err := redis.NewClient(ctx, logger)
		if err != nil {
			return nil, fmt.Errorf("redis: %w", err)
		}
		app.Redis = rc
	}

	client := api.NewHTTPWithOpts(api.Opts{
		BaseURL: cfg.APIURL,
		Timeout: cfg.APITimeout,
		RPS:     cfg.APIRPS,
		From:    cfg.APIFrom,
		Logger:  logger,
	})

	opts := heartbeat.BuilderOpts{ActivityDepth: cfg.ActivityDepth}
	if cfg.ProbeLatency {
		opts.Prober = heartbeat.NewTCPProber(cfg.ProbePort, 0, 0)
	}
	builder := heartbeat.NewBuilder(client, opts, logger)
	app.Collector = heartbeat.NewCollector(client, builder, cfg.CollectWorkers, logger)

	var store status.Store
	switch cfg.StatusBackend {
	case BackendRedis:
		store = status.NewRedisStore(app.Redis.GetClient(), status.DefaultRedisKey)
	default:
		store = status.NewFileStore(filepath.Join(cfg.DataDir, "wallet_status", "wallet_status.json"))
	}
	app.Detector = status.NewDetector(store, cfg.StaleWindow(), logger)

	sinks := snapshot.Multi{snapshot.NewFileSink(cfg.DataDir, logger)}
	if cfg.PublishSnapshots {
		sinks = append(sinks, snapshot.NewStreamSink(app.Redis, snapshot.DefaultStream))
	}
	app.Sink = sinks

	po, err := notify.NewPushover(notify.PushoverOpts{
		ReportToken: cfg.Pushover.ReportToken,
		AlertToken:  cfg.Pushover.AlertToken,
		UserToken:   cfg.Pushover.UserToken,
		GroupToken:  cfg.Pushover.GroupToken,
		Endpoint:    cfg.Pushover.Endpoint,
	}, logger)
	switch {
	case errors.Is(err, notify.ErrNotConfigured):
		logger.Warn("Pushover tokens missing, notifications will only be logged")
		app.Notifier = notify.NewLogNotifier(logger)
	case err != nil:
		return nil, err
	default:
		app.Notifier = po
	}

	if !cfg.RunOnce {
		if err := app.SetupScheduler(ctx, cfg.CronSpec); err != nil {
			return nil, fmt.Errorf("invalid CRON_SPEC %q: %w", cfg.CronSpec, err)
		}
		app.SetupServer()
	}

	return app, nil
}

// Start runs the monitor until ctx is canceled. With RunOnce it runs a
// single cycle and returns its error.
func (a *App) Start(ctx context.Context) error {
	defer a.Close()

	if a.Config.RunOnce {
		_, err := a.RunCycle(ctx)
		return err
	}

	go func() {
		if err := a.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.Logger.Error("HTTP server stopped", zap.Error(err))
		}
	}()
	a.Logger.Info("Starting server", zap.String("addr", a.Server.Addr))

	a.StartCron()
	// First cycle right away instead of waiting for the next tick.
	go a.scheduled(ctx)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = a.Server.Shutdown(shutdownCtx)
	a.StopCron()
	a.Logger.Info("さようなら!")
	return nil
}

// Close releases the worker pool and the Redis connection.
func (a *App) Close() {
	if a.Collector != nil {
		a.Collector.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			a.Logger.Warn("Failed to close redis client", zap.Error(err))
		}
	}
	_ = a.Logger.Sync()
}

// SetupScheduler sets up the cron scheduler.
func (a *App) SetupScheduler(ctx context.Context, cronSpec string) error {
	logger := cronLogger{a.Logger.Sugar()}
	// Seconds field, optional
	a.Cron = cron.New(cron.WithSeconds(), cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)))

	_, err := a.Cron.AddFunc(cronSpec, func() { a.scheduled(ctx) })
	return err
}

// StartCron starts the cron scheduler.
func (a *App) StartCron() {
	a.Cron.Start()
	a.Logger.Info("[monitor] Cron started", zap.String("cronSpec", a.Config.CronSpec))
}

// StopCron stops the cron scheduler and waits for a running cycle.
func (a *App) StopCron() {
	if a.Cron != nil {
		<-a.Cron.Stop().Done()
	}
}

// scheduled runs one bounded cycle unless another one is still running.
func (a *App) scheduled(ctx context.Context) {
	if !a.cycleMu.TryLock() {
		a.Logger.Warn("[monitor] previous cycle still running, skipping")
		return
	}
	defer a.cycleMu.Unlock()

	rctx, cancel := context.WithTimeout(ctx, a.Config.CycleTimeout)
	defer cancel()
	if _, err := a.RunCycle(rctx); err != nil {
		a.Logger.Error("[monitor] cycle failed", zap.Error(err))
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
