package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TapeWatch/internal/domain/models"
	domrepo "TapeWatch/internal/domain/repository"
	"TapeWatch/internal/service/snapshot"
	"TapeWatch/internal/usecase"
	pkgch "TapeWatch/pkg/clickhouse"
	"TapeWatch/pkg/config"
	xhttp "TapeWatch/pkg/http"
	pkgkafka "TapeWatch/pkg/kafka"
	applogger "TapeWatch/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg         *config.Config
	log         *applogger.Logger
	collector   *usecase.PrintCollector
	monitor     *usecase.Monitor
	events      *usecase.EventRing
	hub         *snapshot.Hub
	sink        domrepo.AlertSink
	archive     domrepo.AlertArchive
	consumer    *pkgkafka.Consumer
	kh          pkgkafka.MessageHandler
	chClient    *pkgch.Client
	httpServer  *xhttp.Server
	httpHandler xhttp.Handler
}

// New creates a new App instance with all dependencies. collector, consumer,
// sink and archive may be nil depending on the configured source and sinks.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.PrintCollector,
	monitor *usecase.Monitor,
	events *usecase.EventRing,
	hub *snapshot.Hub,
	sink domrepo.AlertSink,
	archive domrepo.AlertArchive,
	consumer *pkgkafka.Consumer,
	kh pkgkafka.MessageHandler,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		collector: collector,
		monitor:   monitor,
		events:    events,
		hub:       hub,
		sink:      sink,
		archive:   archive,
		consumer:  consumer,
		kh:        kh,
		chClient:  chClient,
	}
}

// SetHTTPHandler allows DI to inject the HTTP handler.
func (a *App) SetHTTPHandler(h xhttp.Handler) { a.httpHandler = h }

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.httpHandler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Print ingest: live stream or Kafka, per source.type.
	if a.collector != nil {
		go func() {
			if err := a.collector.Start(ctx); err != nil {
				a.log.Error("collector error", applogger.Error(err))
			}
		}()
		a.log.Info("print collector started")
	}
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if a.archive != nil {
		if err := a.archive.Init(ctx); err != nil {
			a.log.Warn("alert archive init error", applogger.Error(err))
		}
	}

	// Event dispatch must be draining before the cycle loop starts so the
	// buffered channel never wedges the monitor.
	go a.dispatchEvents(ctx)
	if err := a.monitor.Start(ctx); err != nil {
		a.log.Error("monitor start error", applogger.Error(err))
		return err
	}
	a.log.Info("monitor started",
		applogger.Int("securities", a.monitor.SessionCount()),
		applogger.Duration("interval", a.cfg.Monitor.Interval))

	a.startSnapshotFeeds(ctx)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// startSnapshotFeeds runs a change-driven poll loop for each configured
// security, logging every new snapshot version. Handy for eyeballing
// liveness of a few codes without scraping the API.
func (a *App) startSnapshotFeeds(ctx context.Context) {
	if len(a.cfg.Monitor.FeedCodes) == 0 {
		return
	}
	interval := a.cfg.Monitor.FeedInterval
	if interval <= 0 {
		interval = time.Second
	}
	for _, code := range a.cfg.Monitor.FeedCodes {
		feed := snapshot.NewFeed(a.hub.Get(code), interval, func(_ context.Context, snap *models.Snapshot) {
			a.log.Debug("snapshot feed",
				applogger.String("code", snap.Code),
				applogger.Uint64("version", snap.Version),
				applogger.Int("prints", len(snap.Prints)))
		})
		go feed.Run(ctx)
	}
	a.log.Info("snapshot feeds started", applogger.Strings("codes", a.cfg.Monitor.FeedCodes))
}

// dispatchEvents fans monitor events out to the recent-events ring, the
// alert sink and the archive. Sink failures are logged and counted, never
// propagated back into the cycle.
func (a *App) dispatchEvents(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-a.monitor.Events():
			if !ok {
				return
			}
			a.events.Record(ev)
			if ev.Alert == nil {
				continue
			}
			if a.sink != nil {
				if err := a.sink.Publish(ctx, ev.Alert); err != nil {
					a.log.Warn("alert publish error", applogger.Error(err))
				}
			}
			if a.archive != nil {
				if err := a.archive.Store(ctx, ev.Alert); err != nil {
					a.log.Warn("alert archive error", applogger.Error(err))
				}
			}
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.collector != nil {
		if err := a.collector.Shutdown(ctx); err != nil {
			a.log.Warn("collector stop error", applogger.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.sink != nil {
		if err := a.sink.Close(); err != nil {
			a.log.Warn("alert sink close error", applogger.Error(err))
		}
	}
	if a.archive != nil {
		if err := a.archive.Close(); err != nil {
			a.log.Warn("alert archive close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
