package middleware

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"TradePull/internal/domain/models"
	domrepo "TradePull/internal/domain/repository"
	"TradePull/internal/repository"
)

type nopMetrics struct{}

func (nopMetrics) RecordCandleStored(symbol, interval, source string)    {}
func (nopMetrics) RecordTrade(result string)                             {}
func (nopMetrics) RecordError(kind string)                               {}
func (nopMetrics) RecordLastPrice(symbol string, price float64)          {}
func (nopMetrics) RecordLatency(op string, seconds float64)              {}
func (nopMetrics) RecordStreamState(symbol, interval string, st float64) {}
func (nopMetrics) RecordUsersProcessed(n int)                            {}

func candle(ts int64) models.Candle {
	return models.Candle{Timestamp: ts, Open: "1", High: "2", Low: "0.5", Close: "1.5", Volume: "10"}
}

func TestPipelineCommitsValidCandle(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCandleStore(10)
	p := NewCandlePipeline(store, nopMetrics{})
	key := models.SeriesKey{Symbol: "BTCUSDT", Interval: "1"}

	if err := p.Process(ctx, key, candle(1000)); err != nil {
		t.Fatalf("process: %v", err)
	}

	got, err := store.Read(ctx, key, 1)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 1 || got[0].Timestamp != 1000 {
		t.Fatalf("stored = %+v", got)
	}
}

func TestPipelineRejectsMalformedCandle(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCandleStore(10)
	p := NewCandlePipeline(store, nopMetrics{})
	key := models.SeriesKey{Symbol: "BTCUSDT", Interval: "1"}

	bad := candle(1000)
	bad.Close = "not-a-price"
	if err := p.Process(ctx, key, bad); err == nil {
		t.Fatal("expected validation error")
	}

	if err := p.Process(ctx, key, models.Candle{Timestamp: 0, Open: "1", High: "1", Low: "1", Close: "1", Volume: "1"}); err == nil {
		t.Fatal("expected timestamp error")
	}

	n, _ := store.Count(ctx, key)
	if n != 0 {
		t.Fatalf("store should be empty, has %d", n)
	}
}

func TestPipelineDropsDuplicateAndStaleTimestamps(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCandleStore(10)
	p := NewCandlePipeline(store, nopMetrics{})
	key := models.SeriesKey{Symbol: "BTCUSDT", Interval: "1"}

	for _, ts := range []int64{1000, 2000, 2000, 1500, 3000} {
		if err := p.Process(ctx, key, candle(ts)); err != nil {
			t.Fatalf("process %d: %v", ts, err)
		}
	}

	got, err := store.Read(ctx, key, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	wants := []int64{3000, 2000, 1000}
	for i, w := range wants {
		if got[i].Timestamp != w {
			t.Fatalf("got[%d].Timestamp = %d, want %d", i, got[i].Timestamp, w)
		}
	}
}

// flakyStore fails appends until healed.
type flakyStore struct {
	inner domrepo.CandleStore

	mu      sync.Mutex
	failing bool
}

func (s *flakyStore) setFailing(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failing = v
}

func (s *flakyStore) Append(ctx context.Context, key models.SeriesKey, c models.Candle) error {
	s.mu.Lock()
	failing := s.failing
	s.mu.Unlock()
	if failing {
		return fmt.Errorf("append: %w", domrepo.ErrStoreUnavailable)
	}
	return s.inner.Append(ctx, key, c)
}

func (s *flakyStore) Read(ctx context.Context, key models.SeriesKey, count int) ([]models.Candle, error) {
	return s.inner.Read(ctx, key, count)
}

func (s *flakyStore) Count(ctx context.Context, key models.SeriesKey) (int64, error) {
	return s.inner.Count(ctx, key)
}

func (s *flakyStore) Health(ctx context.Context) error {
	return s.inner.Health(ctx)
}

func TestPipelineFlushesAfterRestart(t *testing.T) {
	ctx := context.Background()
	store := &flakyStore{inner: repository.NewMemoryCandleStore(10)}
	p := NewCandlePipeline(store, nopMetrics{})
	key := models.SeriesKey{Symbol: "BTCUSDT", Interval: "1"}

	p.Start(ctx)
	p.Stop()

	store.setFailing(true)
	if err := p.Process(ctx, key, candle(1000)); err == nil {
		t.Fatal("expected store error while failing")
	}
	store.setFailing(false)

	// a fresh Start must flush what the failed append buffered
	p.Start(ctx)
	defer p.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if n, _ := store.Count(ctx, key); n == 1 {
			got, err := store.Read(ctx, key, 1)
			if err != nil {
				t.Fatalf("read: %v", err)
			}
			if got[0].Timestamp != 1000 {
				t.Fatalf("flushed = %+v", got[0])
			}
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("buffered candle never flushed after restart")
}

func TestPipelineIsolatesSeries(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryCandleStore(10)
	p := NewCandlePipeline(store, nopMetrics{})

	k1 := models.SeriesKey{Symbol: "BTCUSDT", Interval: "1"}
	k2 := models.SeriesKey{Symbol: "ETHUSDT", Interval: "1"}

	if err := p.Process(ctx, k1, candle(5000)); err != nil {
		t.Fatalf("process k1: %v", err)
	}
	// same timestamp on a different series is fine
	if err := p.Process(ctx, k2, candle(5000)); err != nil {
		t.Fatalf("process k2: %v", err)
	}

	n2, _ := store.Count(ctx, k2)
	if n2 != 1 {
		t.Fatalf("k2 count = %d, want 1", n2)
	}
}
