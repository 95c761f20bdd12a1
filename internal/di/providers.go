package di

import (
	"context"
	"fmt"
	"time"

	"TradePull/internal/domain/models"
	"TradePull/internal/domain/repository"
	"TradePull/internal/handler/api"
	mid "TradePull/internal/middleware"
	internalrepo "TradePull/internal/repository"
	"TradePull/internal/service/bybit"
	"TradePull/internal/service/decision"
	"TradePull/internal/service/users"
	"TradePull/internal/usecase"
	"TradePull/pkg/cache"
	pkgch "TradePull/pkg/clickhouse"
	"TradePull/pkg/config"
	pkghttp "TradePull/pkg/http"
	pkgkafka "TradePull/pkg/kafka"
	"TradePull/pkg/logger"
	"TradePull/pkg/metrics"
	"TradePull/pkg/server"
)

// ProvideCollector creates the in-memory warn/error collector.
func ProvideCollector() *logger.Collector {
	return logger.NewCollector(100)
}

// ProvideLogger creates the application logger with the collector
// attached.
func ProvideLogger(cfg *config.Config, collector *logger.Collector) (*logger.Logger, error) {
	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	log.AttachCollector(collector)
	return log, nil
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideRedis creates the Redis client, or nil when the memory store
// backend is configured.
func ProvideRedis(cfg *config.Config) (*cache.Redis, error) {
	if cfg.Store.Backend != "redis" {
		return nil, nil
	}
	redis, err := cache.NewRedis(
		cache.WithHost(cfg.Store.Redis.Host),
		cache.WithPort(cfg.Store.Redis.Port),
		cache.WithPassword(cfg.Store.Redis.Password),
		cache.WithDB(cfg.Store.Redis.DB),
		cache.WithPool(cfg.Store.Redis.PoolSize, cfg.Store.Redis.MinIdleConns, cfg.Store.Redis.PoolTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}
	return redis, nil
}

// ProvideCandleStore creates the configured candle store backend.
func ProvideCandleStore(cfg *config.Config, redis *cache.Redis) repository.CandleStore {
	if cfg.Store.Backend == "redis" && redis != nil {
		return internalrepo.NewRedisCandleStore(redis, int64(cfg.Store.MaxSeries))
	}
	return internalrepo.NewMemoryCandleStore(cfg.Store.MaxSeries)
}

// ProvideStatusBoard creates the status surface next to the store.
func ProvideStatusBoard(cfg *config.Config, redis *cache.Redis) repository.StatusBoard {
	if cfg.Store.Backend == "redis" && redis != nil {
		return internalrepo.NewRedisStatusBoard(redis)
	}
	return internalrepo.NewMemoryStatusBoard()
}

// ProvideMarketData creates the public market-data client.
func ProvideMarketData(cfg *config.Config) repository.MarketData {
	return bybit.NewMarketClient(cfg.Bybit.RESTURL, pkghttp.NewClient(pkghttp.WithTimeout(cfg.Bybit.Timeout)))
}

// ProvideMarketStream creates the kline WebSocket stream.
func ProvideMarketStream(cfg *config.Config, log *logger.Logger) repository.MarketStream {
	return bybit.NewStream(
		cfg.Bybit.WebSocketURL,
		cfg.Bybit.Symbol,
		cfg.Bybit.Interval,
		cfg.Bybit.Stream.PingInterval,
		log,
	)
}

// ProvideExchange creates the signed exchange client. Outside production
// it runs in simulated mode.
func ProvideExchange(cfg *config.Config, log *logger.Logger) repository.Exchange {
	return bybit.NewExchangeClient(
		cfg.Bybit.RESTURL,
		cfg.Bybit.RecvWindow,
		!cfg.Production(),
		pkghttp.NewClient(pkghttp.WithTimeout(cfg.Bybit.Timeout)),
		log,
	)
}

// ProvideDecisionEngine creates the decision engine over the external
// decision service.
func ProvideDecisionEngine(cfg *config.Config) *decision.Engine {
	source := decision.NewHTTPSource(
		cfg.Decision.ServiceURL,
		pkghttp.NewClient(pkghttp.WithTimeout(cfg.Decision.Timeout)),
	)
	return decision.NewEngine(source)
}

// ProvideUserDirectory creates the user directory client.
func ProvideUserDirectory(cfg *config.Config) repository.UserDirectory {
	if cfg.Users.DirectoryURL == "" {
		// no directory configured, run with an empty user list
		return users.NewStaticDirectory(nil)
	}
	return users.NewHTTPDirectory(
		cfg.Users.DirectoryURL,
		pkghttp.NewClient(pkghttp.WithTimeout(cfg.Users.Timeout)),
	)
}

// ProvideClickHouseClient creates the ClickHouse client and ensures the
// ledger schema. Returns nil when no component needs ClickHouse.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	needed := cfg.Ledger.Backend == "clickhouse" || cfg.Ledger.Kafka.Consumer.Enabled
	if !needed {
		return nil, nil
	}

	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.Ledger.ClickHouse.Host),
		pkgch.WithPort(cfg.Ledger.ClickHouse.Port),
		pkgch.WithDatabase(cfg.Ledger.ClickHouse.Database),
		pkgch.WithCredentials(cfg.Ledger.ClickHouse.User, cfg.Ledger.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithTimeouts(cfg.Ledger.ClickHouse.DialTimeout, cfg.Ledger.ClickHouse.ReadTimeout),
		pkgch.WithAsyncInsert(cfg.Ledger.ClickHouse.AsyncInsert),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	schema := internalrepo.LedgerSchema(cfg.Ledger.ClickHouse.Database, cfg.Ledger.ClickHouse.Table)
	if err := client.InitSchema(ctx, schema); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return client, nil
}

// ProvideLedger creates the configured ledger backend.
func ProvideLedger(cfg *config.Config, chClient *pkgch.Client) (repository.Ledger, error) {
	table := cfg.Ledger.ClickHouse.Database + "." + cfg.Ledger.ClickHouse.Table

	switch cfg.Ledger.Backend {
	case "clickhouse":
		return internalrepo.NewClickHouseLedger(chClient.DB(), table), nil
	case "kafka":
		producer, err := pkgkafka.NewProducer(
			pkgkafka.WithBrokers(cfg.Ledger.Kafka.Brokers),
			pkgkafka.WithCompression(cfg.Ledger.Kafka.Compression),
			pkgkafka.WithRequiredAcks(cfg.Ledger.Kafka.RequiredAcks),
			pkgkafka.WithMaxAttempts(cfg.Ledger.Kafka.MaxAttempts),
			pkgkafka.WithWriteTimeout(cfg.Ledger.Kafka.WriteTimeout),
			pkgkafka.WithHashByKey(true),
		)
		if err != nil {
			return nil, fmt.Errorf("kafka producer: %w", err)
		}
		return internalrepo.NewKafkaLedger(producer, cfg.Ledger.Kafka.Topic), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", cfg.Ledger.Backend)
	}
}

// ProvideKafkaConsumer creates the ledger audit consumer when enabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Ledger.Kafka.Consumer.Enabled {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Ledger.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Ledger.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Ledger.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerRetry(
			cfg.Ledger.Kafka.Consumer.RetryMax,
			cfg.Ledger.Kafka.Consumer.BackoffMin,
			cfg.Ledger.Kafka.Consumer.BackoffMax,
		),
		pkgkafka.WithConsumerDLQ(cfg.Ledger.Kafka.Consumer.DLQTopic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideLedgerConsumer creates the handler persisting published ledger
// entries to ClickHouse.
func ProvideLedgerConsumer(cfg *config.Config, chClient *pkgch.Client, m repository.Metrics, log *logger.Logger) *usecase.LedgerConsumer {
	if !cfg.Ledger.Kafka.Consumer.Enabled || chClient == nil {
		return nil
	}
	table := cfg.Ledger.ClickHouse.Database + "." + cfg.Ledger.ClickHouse.Table
	sink := internalrepo.NewClickHouseLedger(chClient.DB(), table)
	return usecase.NewLedgerConsumer(cfg.Ledger.Kafka.Topic, sink, m, log)
}

// ProvidePipeline creates the candle validation pipeline.
func ProvidePipeline(store repository.CandleStore, m repository.Metrics) *mid.CandlePipeline {
	return mid.NewCandlePipeline(store, m, mid.WithBufferSize(2000))
}

// ProvideIngestor creates the stream ingestor for the configured series.
func ProvideIngestor(
	cfg *config.Config,
	stream repository.MarketStream,
	pipe *mid.CandlePipeline,
	status repository.StatusBoard,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.StreamIngestor {
	return usecase.NewStreamIngestor(
		stream, pipe, status, m, log,
		models.SeriesKey{Symbol: cfg.Bybit.Symbol, Interval: cfg.Bybit.Interval},
		cfg.Bybit.Stream.ReconnectBaseDelay,
		cfg.Bybit.Stream.MaxReconnectAttempts,
	)
}

// ProvideBackfiller creates the historical backfill runner.
func ProvideBackfiller(
	cfg *config.Config,
	market repository.MarketData,
	store repository.CandleStore,
	status repository.StatusBoard,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.Backfiller {
	return usecase.NewBackfiller(
		market, store, status, m, log,
		cfg.Backfill.BatchLimit,
		cfg.Backfill.MaxRetries,
		cfg.Backfill.RetryDelay,
		cfg.Backfill.BatchRate,
	)
}

// ProvideScheduler creates the trading tick loop.
func ProvideScheduler(
	cfg *config.Config,
	store repository.CandleStore,
	engine *decision.Engine,
	exchange repository.Exchange,
	market repository.MarketData,
	directory repository.UserDirectory,
	ledger repository.Ledger,
	status repository.StatusBoard,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.TradingScheduler {
	return usecase.NewTradingScheduler(
		store, engine, exchange, market, directory, ledger, status, m, log,
		cfg.Scheduler.Interval,
		cfg.Scheduler.CandleWindow,
		models.SeriesKey{Symbol: cfg.Bybit.Symbol, Interval: cfg.Bybit.Interval},
		cfg.Scheduler.RunOnStart,
	)
}

// ProvideOpsHandler creates the operational HTTP handler.
func ProvideOpsHandler(
	log *logger.Logger,
	collector *logger.Collector,
	store repository.CandleStore,
	status repository.StatusBoard,
	ledger repository.Ledger,
	backfill *usecase.Backfiller,
	ingestor *usecase.StreamIngestor,
) *api.OpsHandler {
	return api.NewOpsHandler(log, collector, store, status, ledger, backfill, ingestor)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	backfill *usecase.Backfiller,
	ingestor *usecase.StreamIngestor,
	scheduler *usecase.TradingScheduler,
	consumer *pkgkafka.Consumer,
	ledgerConsumer *usecase.LedgerConsumer,
	ledger repository.Ledger,
	handler *api.OpsHandler,
	chClient *pkgch.Client,
	redis *cache.Redis,
) *server.App {
	return server.New(cfg, log, backfill, ingestor, scheduler, consumer, ledgerConsumer, ledger, handler, chClient, redis)
}
