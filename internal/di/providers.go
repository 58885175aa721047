package di

import (
	"fmt"

	"ChartServer/internal/chartcache"
	domrepo "ChartServer/internal/domain/repository"
	"ChartServer/internal/handler/api"
	internalrepo "ChartServer/internal/repository"
	"ChartServer/internal/scheduler"
	"ChartServer/internal/stream"
	"ChartServer/internal/usecase"
	"ChartServer/pkg/config"
	xhttp "ChartServer/pkg/http"
	pkgkafka "ChartServer/pkg/kafka"
	xlogger "ChartServer/pkg/logger"
	"ChartServer/pkg/metrics"
	"ChartServer/pkg/server"

	"ChartServer/internal/market"

	"github.com/redis/go-redis/v9"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*xlogger.Logger, error) {
	return xlogger.New(&xlogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New()
}

// ProvideCache creates the tick/candle cache with every catalog instrument
// pre-allocated.
func ProvideCache(log *xlogger.Logger) *chartcache.Cache {
	return chartcache.New(log)
}

// ProvideHub creates the WebSocket fan-out hub.
func ProvideHub(log *xlogger.Logger) *stream.Hub {
	return stream.NewHub(log)
}

// ProvidePublisher selects the frame publish backend from config.
func ProvidePublisher(cfg *config.Config, hub *stream.Hub, m domrepo.Metrics, log *xlogger.Logger) (domrepo.Publisher, error) {
	switch cfg.Publisher.Backend {
	case "ws":
		return internalrepo.NewHubPublisher(hub, m), nil

	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
			pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.BatchBytes, cfg.Kafka.Producer.Linger),
			pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
			pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
			pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaPublisher(producer, cfg.Kafka.TickTopic, cfg.Kafka.CandleTopic, m, log), nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return internalrepo.NewRedisPublisher(client, cfg.Redis.ChannelPrefix, m), nil
	}

	return nil, fmt.Errorf("unknown publisher backend %q", cfg.Publisher.Backend)
}

// ProvideScheduler creates the periodic drivers.
func ProvideScheduler(
	cfg *config.Config,
	cache *chartcache.Cache,
	publisher domrepo.Publisher,
	m domrepo.Metrics,
	log *xlogger.Logger,
) *scheduler.Scheduler {
	return scheduler.New(cache, publisher, m, log, scheduler.Config{
		Symbol:         market.Symbol(cfg.Generator.Symbol),
		TickInterval:   cfg.Generator.Interval,
		RollupInterval: cfg.Rollup.Interval,
		StartPrice:     cfg.Generator.StartPrice,
		MinPrice:       cfg.Generator.MinPrice,
		MaxPrice:       cfg.Generator.MaxPrice,
	})
}

// ProvideChartsUseCase creates the read-side use case.
func ProvideChartsUseCase(cache *chartcache.Cache) *usecase.ChartsUseCase {
	return usecase.NewChartsUseCase(cache)
}

// ProvideHTTPHandler creates the Echo handler.
func ProvideHTTPHandler(log *xlogger.Logger, charts *usecase.ChartsUseCase, hub *stream.Hub) xhttp.Handler {
	return api.NewChartsEchoHandler(log, charts, hub)
}

// ProvideHTTPServer creates the Echo server with routes registered.
func ProvideHTTPServer(cfg *config.Config, handler xhttp.Handler, log *xlogger.Logger) *xhttp.Server {
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(handler,
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithLogger(log),
	)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *xlogger.Logger,
	sched *scheduler.Scheduler,
	publisher domrepo.Publisher,
	httpServer *xhttp.Server,
) *server.App {
	return server.New(cfg, log, sched, publisher, httpServer)
}
