package di

import (
	"context"
	"fmt"
	"time"

	"TapeWatch/internal/domain/repository"
	"TapeWatch/internal/handler/api"
	mid "TapeWatch/internal/middleware"
	internalrepo "TapeWatch/internal/repository"
	"TapeWatch/internal/service/profile"
	"TapeWatch/internal/service/snapshot"
	"TapeWatch/internal/service/tdx"
	"TapeWatch/internal/usecase"
	"TapeWatch/pkg/cache"
	pkgch "TapeWatch/pkg/clickhouse"
	"TapeWatch/pkg/config"
	pkghttp "TapeWatch/pkg/http"
	pkgkafka "TapeWatch/pkg/kafka"
	applogger "TapeWatch/pkg/logger"
	"TapeWatch/pkg/metrics"
	"TapeWatch/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	if cfg.Environment == "dev" {
		level = "debug"
	}
	return applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when the
// archive is disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
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
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + cfg.ClickHouse.Database,
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideAlertArchive creates the ClickHouse alert archive, or nil when
// the client is disabled.
func ProvideAlertArchive(chClient *pkgch.Client, cfg *config.Config) repository.AlertArchive {
	if chClient == nil {
		return nil
	}
	table := cfg.ClickHouse.Table
	if table == "" {
		table = cfg.ClickHouse.Database + ".run_alerts"
	}
	return internalrepo.NewClickHouseAlertArchive(chClient.DB(), table)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are
// configured.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if len(cfg.Kafka.Brokers) == 0 {
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

// ProvideAlertSink creates the Kafka alert sink, or nil when no producer or
// topic is configured.
func ProvideAlertSink(producer *pkgkafka.Producer, cfg *config.Config) repository.AlertSink {
	if producer == nil || cfg.Kafka.AlertTopic == "" {
		return nil
	}
	return internalrepo.NewKafkaAlertSink(producer, cfg.Kafka.AlertTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer for the broker-backed print
// source, or nil when the live stream source is configured.
func ProvideKafkaConsumer(cfg *config.Config, log *applogger.Logger) (*pkgkafka.Consumer, error) {
	if cfg.Source.Type != "kafka" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	consumer.WithConsumerHook(pkgkafka.NewHookChain(pkgkafka.TracingHook{
		Report: func(topic, traceID string, elapsed time.Duration, err error) {
			log.Warn("kafka message rejected",
				applogger.String("topic", topic),
				applogger.String("trace_id", traceID),
				applogger.Duration("elapsed", elapsed),
				applogger.Error(err))
		},
	}))
	return consumer, nil
}

// ProvidePrintWindow creates the in-memory session print window.
func ProvidePrintWindow(cfg *config.Config) *internalrepo.MemoryPrintWindow {
	return internalrepo.NewMemoryPrintWindow(cfg.Monitor.WindowCap)
}

// ProvideKafkaPrintsHandler registers the handler for the prints topic, or
// nil when the stream source is configured.
func ProvideKafkaPrintsHandler(window *internalrepo.MemoryPrintWindow, m repository.Metrics, cfg *config.Config) *usecase.KafkaPrintsHandler {
	if cfg.Source.Type != "kafka" {
		return nil
	}
	return usecase.NewKafkaPrintsHandler(cfg.Kafka.PrintsTopic, window, m)
}

// ProvideProfileCache builds the cache in front of the profile registry:
// layered memory/redis when redis is configured, plain memory otherwise.
func ProvideProfileCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}
	rc, err := cache.NewRedisCache(
		cache.WithRedisHost(cfg.Redis.Host),
		cache.WithRedisPort(cfg.Redis.Port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(rc), nil
}

// ProvideProfileRegistry builds and primes the security-profile registry.
// Priming happens here so a dead quote gateway fails startup instead of the
// first cycle. Explicit codes ride along as singleton blocks.
func ProvideProfileRegistry(c cache.Service, cfg *config.Config, log *applogger.Logger) (repository.ProfileRegistry, error) {
	lister := profile.NewGatewayLister(
		pkghttp.NewClient(pkghttp.WithTimeout(30*time.Second)),
		cfg.Gateway.RestURL,
		cfg.Gateway.Token,
	)
	blocks := append(append([]string{}, cfg.Gateway.Blocks...), cfg.Gateway.Codes...)
	ttl := cfg.Gateway.ProfileTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	reg := profile.NewRegistry(lister, c, ttl, blocks, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := reg.Prime(ctx); err != nil {
		return nil, fmt.Errorf("prime profiles: %w", err)
	}
	return reg, nil
}

// ProvidePrintStream creates the quote-gateway stream, or nil when the
// kafka source is configured. Subscribes the primed universe.
func ProvidePrintStream(cfg *config.Config, profiles repository.ProfileRegistry) repository.PrintStream {
	if cfg.Source.Type != "stream" {
		return nil
	}
	return tdx.New(
		cfg.Gateway.Token,
		cfg.Gateway.WebSocketURL,
		profiles.Codes(),
		cfg.Gateway.ReconnectDelay,
		cfg.Gateway.PingInterval,
	)
}

// ProvidePrintCollector creates the stream collector with its ingest
// pipeline, or nil for the kafka source.
func ProvidePrintCollector(
	stream repository.PrintStream,
	window *internalrepo.MemoryPrintWindow,
	m repository.Metrics,
) *usecase.PrintCollector {
	if stream == nil {
		return nil
	}
	pipe := mid.NewIngestPipeline(usecase.WindowProc{Window: window}, m,
		mid.WithMaxRPS(200),
		mid.WithBufferSize(2000),
	)
	return usecase.NewPrintCollector(stream, window, m, pipe)
}

// ProvideAggregator creates the alert aggregator.
func ProvideAggregator() *usecase.AlertAggregator {
	return usecase.NewAlertAggregator()
}

// ProvideSnapshotHub creates the per-security snapshot hub.
func ProvideSnapshotHub() *snapshot.Hub {
	return snapshot.NewHub()
}

// ProvideEventRing creates the recent-events ring.
func ProvideEventRing(cfg *config.Config) *usecase.EventRing {
	return usecase.NewEventRing(cfg.Monitor.EventRingSize)
}

// ProvideMonitor creates the monitoring cycle over the print window.
func ProvideMonitor(
	window *internalrepo.MemoryPrintWindow,
	profiles repository.ProfileRegistry,
	agg *usecase.AlertAggregator,
	hub *snapshot.Hub,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) (*usecase.Monitor, error) {
	return usecase.NewMonitor(window, profiles, agg, hub, m, log, usecase.MonitorOptions{
		Interval:        cfg.Monitor.Interval,
		Ratio:           cfg.Monitor.Ratio,
		Detector:        cfg.Monitor.Detector,
		Incremental:     cfg.Monitor.Incremental,
		ResetAfterAlert: cfg.Monitor.ResetAfterAlert,
		EventBuffer:     cfg.Monitor.EventBuffer,
	})
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.PrintCollector,
	monitor *usecase.Monitor,
	events *usecase.EventRing,
	agg *usecase.AlertAggregator,
	hub *snapshot.Hub,
	sink repository.AlertSink,
	archive repository.AlertArchive,
	producer *pkgkafka.Producer,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaPrintsHandler,
	chClient *pkgch.Client,
) *server.App {
	if producer != nil && cfg.Kafka.LogTopic != "" {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Kafka.LogTopic,
			Publisher:      producer,
		})
	}
	var handler pkgkafka.MessageHandler
	if kh != nil {
		handler = kh
	}
	app := server.New(cfg, log, collector, monitor, events, hub, sink, archive, consumer, handler, chClient)
	app.SetHTTPHandler(api.NewMonitorHandler(log, agg, monitor, hub, events, archive))
	return app
}
