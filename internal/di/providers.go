package di

import (
	"context"
	"fmt"
	"time"

	"StockPulse/internal/domain/models"
	drepo "StockPulse/internal/domain/repository"
	domsvc "StockPulse/internal/domain/service"
	"StockPulse/internal/handler/api"
	mid "StockPulse/internal/middleware"
	internalrepo "StockPulse/internal/repository"
	"StockPulse/internal/scheduler"
	"StockPulse/internal/service/directory"
	"StockPulse/internal/service/feed"
	"StockPulse/internal/service/forecast"
	"StockPulse/internal/service/history"
	"StockPulse/internal/usecase"
	"StockPulse/pkg/cache"
	pkgch "StockPulse/pkg/clickhouse"
	"StockPulse/pkg/config"
	xhttp "StockPulse/pkg/http"
	pkgkafka "StockPulse/pkg/kafka"
	applogger "StockPulse/pkg/logger"
	"StockPulse/pkg/metrics"
	"StockPulse/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	return applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() drepo.Metrics {
	return metrics.New()
}

// ProvideKafkaProducer creates a Kafka producer when the broker is needed,
// either as the recorder backend or as the log collector outlet.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if cfg.Recorder.Backend != "kafka" && cfg.Kafka.LogTopic == "" {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClickHouseClient creates a ClickHouse client when it is the
// recorder backend.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if cfg.Recorder.Backend != "clickhouse" {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stmts := append(
		[]string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database)},
		internalrepo.SchemaStatements(cfg.ClickHouse.Database+".live_ticks")...,
	)
	if err := client.InitSchema(ctx, stmts); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideCache creates the history cache: Redis when enabled, in-process
// memory otherwise.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if cfg.Redis.Enabled {
		return cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Addr),
			cache.WithRedisPassword(cfg.Redis.Password),
			cache.WithRedisDB(cfg.Redis.DB),
		)
	}
	return cache.NewMemoryCache(), nil
}

// ProvideHistoryProvider creates the HTTP history client behind a
// read-through cache.
func ProvideHistoryProvider(cfg *config.Config, c cache.Service, log *applogger.Logger) drepo.HistoryProvider {
	upstream := history.New(cfg.History.BaseURL, cfg.History.Timeout)
	return internalrepo.NewCachedHistoryProvider(upstream, c, cfg.History.CacheTTL, log)
}

// ProvideDirectory creates the configured instrument universe.
func ProvideDirectory(cfg *config.Config) (*directory.Static, error) {
	instruments := make([]models.Instrument, 0, len(cfg.Directory.Instruments))
	for _, in := range cfg.Directory.Instruments {
		instruments = append(instruments, models.Instrument{Symbol: in.Symbol, DisplayName: in.Name})
	}
	return directory.NewStatic(instruments)
}

// ProvideLiveFeed creates the WebSocket feed.
func ProvideLiveFeed(cfg *config.Config, log *applogger.Logger) drepo.LiveFeed {
	return feed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		log,
	)
}

// ProvideForecastProviders creates one client per configured model.
func ProvideForecastProviders(cfg *config.Config) []domsvc.ForecastProvider {
	return forecast.NewProviders(cfg.Forecast.ServiceURL, cfg.Forecast.Timeout)
}

// ProvideTickSink routes recorded ticks to the configured backend.
func ProvideTickSink(cfg *config.Config, producer *pkgkafka.Producer, chClient *pkgch.Client) drepo.TickSink {
	switch cfg.Recorder.Backend {
	case "kafka":
		return internalrepo.NewKafkaTickPublisher(producer, cfg.Kafka.Topic)
	case "clickhouse":
		return internalrepo.NewClickHouseTickStore(chClient.DB(), cfg.ClickHouse.Database+".live_ticks")
	default:
		return nil
	}
}

// ProvideTickRecorder creates the recorder use case.
func ProvideTickRecorder(sink drepo.TickSink, m drepo.Metrics, cfg *config.Config) *usecase.TickRecorder {
	backend := cfg.Recorder.Backend
	if backend == "" {
		backend = "none"
	}
	return usecase.NewTickRecorder(sink, m, backend)
}

// ProvideTickPipeline creates the buffering pipeline in front of the recorder.
func ProvideTickPipeline(recorder *usecase.TickRecorder, m drepo.Metrics, cfg *config.Config) *mid.TickPipeline {
	opts := []mid.PipelineOption{}
	if cfg.Recorder.MaxRPS > 0 {
		opts = append(opts, mid.WithMaxRPS(cfg.Recorder.MaxRPS))
	}
	if cfg.Recorder.BufferSize > 0 {
		opts = append(opts, mid.WithBufferSize(cfg.Recorder.BufferSize))
	}
	return mid.NewTickPipeline(recorder, m, opts...)
}

// ProvideOrchestrator creates the prediction fan-out.
func ProvideOrchestrator(providers []domsvc.ForecastProvider, m drepo.Metrics, log *applogger.Logger, cfg *config.Config) *usecase.PredictionOrchestrator {
	return usecase.NewPredictionOrchestrator(providers, cfg.Forecast.Timeout, m, log)
}

// ProvideSession creates the instrument session actor.
func ProvideSession(
	lf drepo.LiveFeed,
	hp drepo.HistoryProvider,
	dir *directory.Static,
	orch *usecase.PredictionOrchestrator,
	pipe *mid.TickPipeline,
	m drepo.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.InstrumentSession {
	return usecase.NewInstrumentSession(lf, hp, dir, orch, pipe, m, log, usecase.SessionOptions{
		BufferSize:  cfg.Session.BufferSize,
		MailboxSize: cfg.Session.MailboxSize,
		Period:      cfg.History.Period,
		Interval:    cfg.History.Interval,
		HorizonDays: cfg.Forecast.HorizonDays,
	})
}

// ProvideRefresher creates the cron-driven forecast refresher.
func ProvideRefresher(session *usecase.InstrumentSession, cfg *config.Config, log *applogger.Logger) *scheduler.ForecastRefresher {
	return scheduler.New(session, cfg.Forecast.RefreshSchedule, log)
}

// ProvideHandler creates the dashboard HTTP handler.
func ProvideHandler(
	log *applogger.Logger,
	session *usecase.InstrumentSession,
	hp drepo.HistoryProvider,
	dir *directory.Static,
	providers []domsvc.ForecastProvider,
	cfg *config.Config,
) xhttp.Handler {
	return api.NewDashboardHandler(log, session, hp, dir, providers, cfg.Forecast.PredictRPS)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	session *usecase.InstrumentSession,
	refresher *scheduler.ForecastRefresher,
	recorder *usecase.TickRecorder,
	handler xhttp.Handler,
	chClient *pkgch.Client,
	producer *pkgkafka.Producer,
) *server.App {
	return server.New(cfg, log, session, refresher, recorder, handler, chClient, producer)
}
