package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"TradePull/internal/domain/models"
	mid "TradePull/internal/middleware"
	"TradePull/internal/repository"
)

// brokenStream never manages to connect.
type brokenStream struct {
	mu       sync.Mutex
	connects int
}

func (s *brokenStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	return fmt.Errorf("connection refused")
}

func (s *brokenStream) Subscribe(ctx context.Context) error { return nil }

func (s *brokenStream) Read(ctx context.Context) (<-chan models.Candle, <-chan error) {
	return nil, nil
}

func (s *brokenStream) Close() error      { return nil }
func (s *brokenStream) IsConnected() bool { return false }

func (s *brokenStream) attempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connects
}

// scriptedStream connects once and plays back candles, then fails.
type scriptedStream struct {
	candles []models.Candle

	mu        sync.Mutex
	connected bool
	connects  int
}

func (s *scriptedStream) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	if s.connects > 1 {
		return fmt.Errorf("connection refused")
	}
	s.connected = true
	return nil
}

func (s *scriptedStream) Subscribe(ctx context.Context) error { return nil }

func (s *scriptedStream) Read(ctx context.Context) (<-chan models.Candle, <-chan error) {
	candles := make(chan models.Candle, len(s.candles))
	errs := make(chan error, 1)
	for _, c := range s.candles {
		candles <- c
	}
	close(candles)
	return candles, errs
}

func (s *scriptedStream) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connected = false
	return nil
}

func (s *scriptedStream) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestIngestorReconnectAttemptsAreCapped(t *testing.T) {
	stream := &brokenStream{}
	store := repository.NewMemoryCandleStore(100)
	status := repository.NewMemoryStatusBoard()
	pipe := mid.NewCandlePipeline(store, nopMetrics{})
	key := models.SeriesKey{Symbol: "BTCUSDT", Interval: "1"}

	ing := NewStreamIngestor(stream, pipe, status, nopMetrics{}, testLogger(t), key, time.Millisecond, 3)
	ing.Start(context.Background())

	waitFor(t, 2*time.Second, ing.Failed)

	if got := stream.attempts(); got != 3 {
		t.Fatalf("connect attempts = %d, want 3", got)
	}

	// no further attempts after terminal failure
	time.Sleep(50 * time.Millisecond)
	if got := stream.attempts(); got != 3 {
		t.Fatalf("connect attempts after failure = %d, want 3", got)
	}

	snap, err := status.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap[models.StatusFieldStream] != models.StreamStatusFailed {
		t.Fatalf("stream status = %q, want %q", snap[models.StatusFieldStream], models.StreamStatusFailed)
	}
}

func TestIngestorCommitsStreamedCandles(t *testing.T) {
	stream := &scriptedStream{candles: []models.Candle{
		{Timestamp: 1000, Open: "1", High: "2", Low: "0.5", Close: "1.5", Volume: "10"},
		{Timestamp: 2000, Open: "1.5", High: "2.5", Low: "1", Close: "2", Volume: "12"},
	}}
	store := repository.NewMemoryCandleStore(100)
	status := repository.NewMemoryStatusBoard()
	pipe := mid.NewCandlePipeline(store, nopMetrics{})
	key := models.SeriesKey{Symbol: "BTCUSDT", Interval: "1"}

	ing := NewStreamIngestor(stream, pipe, status, nopMetrics{}, testLogger(t), key, time.Millisecond, 2)
	ing.Start(context.Background())

	waitFor(t, 2*time.Second, func() bool {
		n, _ := store.Count(context.Background(), key)
		return n == 2
	})

	ing.Stop()

	candles, err := store.Read(context.Background(), key, 10)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(candles) != 2 || candles[0].Timestamp != 2000 {
		t.Fatalf("stored = %+v", candles)
	}
}
