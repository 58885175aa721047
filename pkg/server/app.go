package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	domrepo "ChartServer/internal/domain/repository"
	"ChartServer/internal/scheduler"
	"ChartServer/pkg/config"
	xhttp "ChartServer/pkg/http"
	xlogger "ChartServer/pkg/logger"
)

// App encapsulates the application lifecycle: the periodic drivers, the
// HTTP/WebSocket server, and the publish backend.
type App struct {
	cfg        *config.Config
	log        *xlogger.Logger
	scheduler  *scheduler.Scheduler
	publisher  domrepo.Publisher
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *xlogger.Logger,
	sched *scheduler.Scheduler,
	publisher domrepo.Publisher,
	httpServer *xhttp.Server,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		scheduler:  sched,
		publisher:  publisher,
		httpServer: httpServer,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	if err := a.scheduler.Register(); err != nil {
		return err
	}
	a.scheduler.Start()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", xlogger.Error(err))
		return err
	}

	a.log.Info("chart server running",
		xlogger.String("environment", a.cfg.Environment),
		xlogger.String("publisher", a.cfg.Publisher.Backend),
		xlogger.Int("port", a.cfg.Server.Port),
	)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	a.scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", xlogger.Error(err))
	}

	if err := a.publisher.Close(); err != nil {
		a.log.Warn("publisher close error", xlogger.Error(err))
	}

	a.log.Info("shutdown complete")
	return nil
}
