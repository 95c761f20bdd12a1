package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"TradePull/internal/domain/models"
	drepo "TradePull/internal/domain/repository"
	"TradePull/internal/repository"
	"TradePull/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordCandleStored(symbol, interval, source string)    {}
func (nopMetrics) RecordTrade(result string)                             {}
func (nopMetrics) RecordError(kind string)                               {}
func (nopMetrics) RecordLastPrice(symbol string, price float64)          {}
func (nopMetrics) RecordLatency(op string, seconds float64)              {}
func (nopMetrics) RecordStreamState(symbol, interval string, st float64) {}
func (nopMetrics) RecordUsersProcessed(n int)                            {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// fakeMarket serves a synthetic minute-candle history ending near now.
type fakeMarket struct {
	history  []models.Candle // oldest first
	failures int             // remaining transient failures
	calls    int
}

func newFakeMarket(depth int) *fakeMarket {
	base := time.Now().Add(-time.Duration(depth) * time.Minute).UnixMilli()
	history := make([]models.Candle, depth)
	for i := 0; i < depth; i++ {
		ts := base + int64(i)*60000
		history[i] = models.Candle{
			Timestamp: ts,
			Open:      "1",
			High:      "2",
			Low:       "0.5",
			Close:     "1.5",
			Volume:    "10",
		}
	}
	return &fakeMarket{history: history}
}

func (m *fakeMarket) GetKlines(ctx context.Context, key models.SeriesKey, limit int, start, end int64) ([]models.Candle, error) {
	m.calls++
	if m.failures > 0 {
		m.failures--
		return nil, fmt.Errorf("transient network error")
	}

	// newest first, at most limit entries with ts <= end
	var out []models.Candle
	for i := len(m.history) - 1; i >= 0 && len(out) < limit; i-- {
		if end > 0 && m.history[i].Timestamp > end {
			continue
		}
		out = append(out, m.history[i])
	}
	return out, nil
}

func (m *fakeMarket) GetPrice(ctx context.Context, symbol string) (string, error) {
	return "1.5", nil
}

func (m *fakeMarket) GetServerTime(ctx context.Context) (int64, error) {
	return time.Now().UnixMilli(), nil
}

func (m *fakeMarket) GetMinOrderQty(ctx context.Context, symbol string) (string, error) {
	return "0.000001", nil
}

func newTestBackfiller(t *testing.T, market *fakeMarket, store drepo.CandleStore) *Backfiller {
	t.Helper()
	return NewBackfiller(market, store, repository.NewMemoryStatusBoard(), nopMetrics{},
		testLogger(t), 100, 3, time.Millisecond, 10000)
}

func TestBackfillReachesTargetDepth(t *testing.T) {
	ctx := context.Background()
	key := models.SeriesKey{Symbol: "BTCUSDT", Interval: "1"}
	market := newFakeMarket(500)
	store := repository.NewMemoryCandleStore(5000)

	b := newTestBackfiller(t, market, store)
	n, err := b.Run(ctx, key, 250)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 250 {
		t.Fatalf("filled %d, want 250", n)
	}

	candles, err := store.Read(ctx, key, 5000)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(candles) != 250 {
		t.Fatalf("stored %d, want 250", len(candles))
	}

	// store is newest first; verify strictly decreasing, no duplicates
	for i := 1; i < len(candles); i++ {
		if candles[i].Timestamp >= candles[i-1].Timestamp {
			t.Fatalf("timestamps not strictly decreasing at %d: %d then %d",
				i, candles[i-1].Timestamp, candles[i].Timestamp)
		}
	}

	// newest stored candle is the newest in the source history
	newest := market.history[len(market.history)-1].Timestamp
	if candles[0].Timestamp != newest {
		t.Fatalf("head = %d, want %d", candles[0].Timestamp, newest)
	}
}

func TestBackfillStopsOnExhaustedHistory(t *testing.T) {
	ctx := context.Background()
	key := models.SeriesKey{Symbol: "BTCUSDT", Interval: "1"}
	market := newFakeMarket(120)
	store := repository.NewMemoryCandleStore(5000)

	b := newTestBackfiller(t, market, store)
	n, err := b.Run(ctx, key, 5000)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if n != 120 {
		t.Fatalf("filled %d, want 120", n)
	}
}

func TestBackfillRetriesTransientFailures(t *testing.T) {
	ctx := context.Background()
	key := models.SeriesKey{Symbol: "BTCUSDT", Interval: "1"}
	market := newFakeMarket(100)
	market.failures = 2
	store := repository.NewMemoryCandleStore(5000)

	b := newTestBackfiller(t, market, store)
	n, err := b.Run(ctx, key, 50)
	if err != nil {
		t.Fatalf("run should survive 2 transient failures: %v", err)
	}
	if n != 50 {
		t.Fatalf("filled %d, want 50", n)
	}
}

func TestBackfillFailsAfterRetryBudget(t *testing.T) {
	ctx := context.Background()
	key := models.SeriesKey{Symbol: "BTCUSDT", Interval: "1"}
	market := newFakeMarket(100)
	market.failures = 10
	store := repository.NewMemoryCandleStore(5000)

	b := newTestBackfiller(t, market, store)
	if _, err := b.Run(ctx, key, 50); err == nil {
		t.Fatal("expected failure after retry budget exhausted")
	}
}
