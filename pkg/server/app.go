package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	domrepo "MacroPull/internal/domain/repository"
	"MacroPull/internal/scheduler"
	"MacroPull/pkg/cache"
	"MacroPull/pkg/config"
	xhttp "MacroPull/pkg/http"
	xlogger "MacroPull/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	httpServer *xhttp.Server
	scheduler  *scheduler.Scheduler
	publisher  domrepo.TablePublisher
	archive    domrepo.SeriesArchive
	store      cache.Store
	logger     *xlogger.Logger
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	httpServer *xhttp.Server,
	sched *scheduler.Scheduler,
	publisher domrepo.TablePublisher,
	archive domrepo.SeriesArchive,
	store cache.Store,
	logger *xlogger.Logger,
) *App {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &App{
		cfg:        cfg,
		httpServer: httpServer,
		scheduler:  sched,
		publisher:  publisher,
		archive:    archive,
		store:      store,
		logger:     logger,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext starts the ops server and the scheduler, then blocks until ctx
// is cancelled and shuts everything down.
func (a *App) RunContext(ctx context.Context) error {
	if a.cfg.Server.Enabled && a.httpServer != nil {
		if err := a.httpServer.Start(); err != nil {
			a.logger.Error("http server start error", xlogger.Error(err))
			return err
		}
	}

	if a.cfg.Scheduler.Enabled && a.scheduler != nil {
		if err := a.scheduler.Register(); err != nil {
			a.logger.Error("scheduler register error", xlogger.Error(err))
			a.shutdown()
			return err
		}
		a.scheduler.Start(ctx)
		if a.cfg.Scheduler.RunOnStart {
			go a.scheduler.RunNow(ctx)
		}
	}

	<-ctx.Done()
	a.logger.Info("shutdown signal received")
	a.shutdown()
	return nil
}

// shutdown stops the jobs first so nothing writes to a closed sink.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.scheduler != nil {
		if err := a.scheduler.Stop(ctx); err != nil {
			a.logger.Warn("scheduler stop error", xlogger.Error(err))
		}
	}

	if a.cfg.Server.Enabled && a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", xlogger.Error(err))
		}
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("publisher close error", xlogger.Error(err))
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.logger.Warn("archive close error", xlogger.Error(err))
		}
	}
	if c, ok := a.store.(io.Closer); ok {
		if err := c.Close(); err != nil {
			a.logger.Warn("cache close error", xlogger.Error(err))
		}
	}

	a.logger.Info("shutdown complete")
}
