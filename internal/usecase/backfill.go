package usecase

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"TradePull/internal/domain/models"
	drepo "TradePull/internal/domain/repository"
	"TradePull/pkg/logger"
	"TradePull/pkg/util"

	"golang.org/x/time/rate"
)

// Backfiller fills a candle series to a target depth by paging the REST
// kline endpoint backwards from now.
type Backfiller struct {
	market  drepo.MarketData
	store   drepo.CandleStore
	status  drepo.StatusBoard
	metrics drepo.Metrics
	log     *logger.Logger

	batchLimit int
	maxRetries int
	retryDelay time.Duration
	limiter    *rate.Limiter
}

// NewBackfiller creates a backfill runner. batchRate caps batch fetches
// per second.
func NewBackfiller(
	market drepo.MarketData,
	store drepo.CandleStore,
	status drepo.StatusBoard,
	metrics drepo.Metrics,
	log *logger.Logger,
	batchLimit, maxRetries int,
	retryDelay time.Duration,
	batchRate float64,
) *Backfiller {
	return &Backfiller{
		market:     market,
		store:      store,
		status:     status,
		metrics:    metrics,
		log:        log,
		batchLimit: batchLimit,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		limiter:    rate.NewLimiter(rate.Limit(batchRate), 1),
	}
}

// Run fills the series to targetDepth candles and writes them to the
// store oldest first, so the newest candle ends up at the head. Stops
// early without error when the exchange has no older data.
func (b *Backfiller) Run(ctx context.Context, key models.SeriesKey, targetDepth int) (int, error) {
	start := time.Now()
	collected, err := b.collect(ctx, key, targetDepth)
	if err != nil {
		return 0, err
	}

	for _, c := range collected {
		if err := b.store.Append(ctx, key, c); err != nil {
			return 0, fmt.Errorf("backfill store: %w", err)
		}
		b.metrics.RecordCandleStored(key.Symbol, key.Interval, "backfill")
	}

	_ = b.status.Set(ctx, map[string]string{
		models.StatusFieldBackfillDepth: strconv.Itoa(len(collected)),
	})
	b.metrics.RecordLatency("backfill", time.Since(start).Seconds())
	b.log.Info("backfill complete",
		logger.String("series", key.String()),
		logger.Int("candles", len(collected)),
		logger.Duration("took", time.Since(start)))
	return len(collected), nil
}

// collect pages backwards until targetDepth is reached or the exchange
// runs out of history. Result is oldest first, strictly increasing
// timestamps, at most targetDepth entries.
func (b *Backfiller) collect(ctx context.Context, key models.SeriesKey, targetDepth int) ([]models.Candle, error) {
	seen := make(map[int64]struct{}, targetDepth)
	var collected []models.Candle

	endCursor := util.NowMillis()

	for len(collected) < targetDepth {
		if err := b.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		batch, err := b.fetchBatch(ctx, key, endCursor)
		if err != nil {
			return nil, err
		}
		if len(batch) == 0 {
			// exchange has no older data, not an error
			break
		}

		// exchange returns newest first; dedup by timestamp, first seen
		// wins across batches
		oldest := batch[len(batch)-1].Timestamp
		for _, c := range batch {
			if _, dup := seen[c.Timestamp]; dup {
				continue
			}
			seen[c.Timestamp] = struct{}{}
			collected = append(collected, c)
		}

		endCursor = oldest - 1
	}

	sort.Slice(collected, func(i, j int) bool {
		return collected[i].Timestamp < collected[j].Timestamp
	})
	if len(collected) > targetDepth {
		collected = collected[len(collected)-targetDepth:]
	}
	return collected, nil
}

// fetchBatch retries transient failures with doubling backoff before
// giving up.
func (b *Backfiller) fetchBatch(ctx context.Context, key models.SeriesKey, end int64) ([]models.Candle, error) {
	delay := b.retryDelay
	var lastErr error

	for attempt := 1; attempt <= b.maxRetries; attempt++ {
		batch, err := b.market.GetKlines(ctx, key, b.batchLimit, 0, end)
		if err == nil {
			return batch, nil
		}
		lastErr = err
		b.metrics.RecordError("backfill_batch")
		b.log.Warn("backfill batch failed",
			logger.String("series", key.String()),
			logger.Int("attempt", attempt),
			logger.Error(err))

		if attempt == b.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return nil, fmt.Errorf("backfill batch after %d attempts: %w", b.maxRetries, lastErr)
}
