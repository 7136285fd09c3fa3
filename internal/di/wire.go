//go:build wireinject
// +build wireinject

package di

import (
	"TapeWatch/pkg/config"
	"TapeWatch/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideProfileCache,

		// Repositories
		ProvideAlertArchive,
		ProvideAlertSink,
		ProvidePrintWindow,
		ProvideProfileRegistry,
		ProvidePrintStream,

		// Use cases
		ProvideKafkaPrintsHandler,
		ProvidePrintCollector,
		ProvideAggregator,
		ProvideSnapshotHub,
		ProvideEventRing,
		ProvideMonitor,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
