//go:build wireinject
// +build wireinject

package di

import (
	"TradePull/pkg/config"
	"TradePull/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire generates the implementation in wire_gen.go.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideCollector,
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideRedis,
		ProvideClickHouseClient,
		ProvideKafkaConsumer,

		// Repositories
		ProvideCandleStore,
		ProvideStatusBoard,
		ProvideLedger,

		// Exchange-facing services
		ProvideMarketData,
		ProvideMarketStream,
		ProvideExchange,
		ProvideDecisionEngine,
		ProvideUserDirectory,

		// Use cases
		ProvidePipeline,
		ProvideIngestor,
		ProvideBackfiller,
		ProvideScheduler,
		ProvideLedgerConsumer,

		// HTTP surface and application server
		ProvideOpsHandler,
		ProvideApp,
	)
	return &server.App{}, nil
}
