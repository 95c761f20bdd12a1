package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"TradePull/internal/domain/models"
	"TradePull/internal/domain/repository"
	"TradePull/internal/handler/api"
	"TradePull/internal/usecase"
	"TradePull/pkg/cache"
	pkgch "TradePull/pkg/clickhouse"
	"TradePull/pkg/config"
	xhttp "TradePull/pkg/http"
	pkgkafka "TradePull/pkg/kafka"
	applogger "TradePull/pkg/logger"
)

// App encapsulates the application lifecycle: backfill at startup, then
// the stream ingestor, trading scheduler, optional ledger consumer and
// HTTP server run until a signal arrives.
type App struct {
	cfg            *config.Config
	log            *applogger.Logger
	backfill       *usecase.Backfiller
	ingestor       *usecase.StreamIngestor
	scheduler      *usecase.TradingScheduler
	consumer       *pkgkafka.Consumer
	ledgerConsumer *usecase.LedgerConsumer
	ledger         repository.Ledger
	handler        *api.OpsHandler
	chClient       *pkgch.Client
	redis          *cache.Redis
	httpServer     *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	backfill *usecase.Backfiller,
	ingestor *usecase.StreamIngestor,
	scheduler *usecase.TradingScheduler,
	consumer *pkgkafka.Consumer,
	ledgerConsumer *usecase.LedgerConsumer,
	ledger repository.Ledger,
	handler *api.OpsHandler,
	chClient *pkgch.Client,
	redis *cache.Redis,
) *App {
	return &App{
		cfg:            cfg,
		log:            log,
		backfill:       backfill,
		ingestor:       ingestor,
		scheduler:      scheduler,
		consumer:       consumer,
		ledgerConsumer: ledgerConsumer,
		ledger:         ledger,
		handler:        handler,
		chClient:       chClient,
		redis:          redis,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	key := models.SeriesKey{Symbol: a.cfg.Bybit.Symbol, Interval: a.cfg.Bybit.Interval}

	// fill history before live ingestion so the scheduler has a full
	// window from the first tick
	if n, err := a.backfill.Run(ctx, key, a.cfg.Backfill.TargetDepth); err != nil {
		a.log.Error("startup backfill failed", applogger.Error(err))
	} else {
		a.log.Info("startup backfill done",
			applogger.String("series", key.String()),
			applogger.Int("candles", n))
	}

	a.ingestor.Start(ctx)
	a.log.Info("stream ingestor started", applogger.String("series", key.String()))

	a.scheduler.Start(ctx)
	a.log.Info("trading scheduler started",
		applogger.Duration("interval", a.cfg.Scheduler.Interval))

	if a.consumer != nil && a.ledgerConsumer != nil {
		a.consumer.RegisterHandler(a.ledgerConsumer)
		if err := a.consumer.Start(); err != nil {
			a.log.Error("kafka consumer start failed", applogger.Error(err))
		} else {
			a.log.Info("ledger consumer started",
				applogger.String("topic", a.ledgerConsumer.Topic()))
		}
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithLogger(a.log),
	)
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start failed", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown stops components in reverse start order.
func (a *App) shutdown(ctx context.Context) error {
	a.scheduler.Stop()
	a.log.Info("scheduler stopped")

	a.ingestor.Stop()
	a.log.Info("ingestor stopped")

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if a.httpServer != nil {
		if err := a.httpServer.Stop(shutdownCtx); err != nil {
			a.log.Warn("http shutdown error", applogger.Error(err))
		}
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.ledger != nil {
		if err := a.ledger.Close(); err != nil {
			a.log.Warn("ledger close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
