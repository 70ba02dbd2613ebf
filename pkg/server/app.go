package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"StockPulse/internal/scheduler"
	"StockPulse/internal/usecase"
	pkgch "StockPulse/pkg/clickhouse"
	"StockPulse/pkg/config"
	xhttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	session    *usecase.InstrumentSession
	refresher  *scheduler.ForecastRefresher
	recorder   *usecase.TickRecorder
	httpServer *xhttp.Server
	handler    xhttp.Handler
	chClient   *pkgch.Client
	producer   *pkgkafka.Producer
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	session *usecase.InstrumentSession,
	refresher *scheduler.ForecastRefresher,
	recorder *usecase.TickRecorder,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		session:   session,
		refresher: refresher,
		recorder:  recorder,
		handler:   handler,
		chClient:  chClient,
		producer:  producer,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ship aggregated error logs to the broker when one is wired.
	if a.producer != nil && a.cfg.Kafka.LogTopic != "" {
		a.log.AttachCollector(&applogger.CollectorConfig{
			FlushInterval:  30 * time.Second,
			CountThreshold: 64,
			Topic:          a.cfg.Kafka.LogTopic,
			Publisher:      a.producer,
		})
	}

	if err := a.session.Start(ctx); err != nil {
		a.log.Error("session start error", applogger.Error(err))
		return err
	}
	a.log.Info("session started")

	if a.refresher != nil {
		if err := a.refresher.Start(); err != nil {
			a.log.Error("refresher start error", applogger.Error(err))
			return err
		}
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.log),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.refresher != nil {
		a.refresher.Stop()
	}

	if err := a.session.Shutdown(ctx); err != nil {
		a.log.Warn("session stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Error("http shutdown error", applogger.Error(err))
		}
	}

	if a.recorder != nil {
		a.recorder.Close()
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.DetachCollector()
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
