package repository

import (
	"context"
	"sync"

	"TradePull/internal/domain/models"
	"TradePull/internal/domain/repository"
)

// MemoryCandleStore is an in-process candle store with the same bounded,
// newest-first semantics as the Redis store. Used for development and
// tests; no external dependency.
type MemoryCandleStore struct {
	mu        sync.RWMutex
	series    map[models.SeriesKey][]models.Candle
	maxSeries int
}

// NewMemoryCandleStore creates an in-memory candle store.
func NewMemoryCandleStore(maxSeries int) repository.CandleStore {
	return &MemoryCandleStore{
		series:    make(map[models.SeriesKey][]models.Candle),
		maxSeries: maxSeries,
	}
}

func (s *MemoryCandleStore) Append(ctx context.Context, key models.SeriesKey, candle models.Candle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.series[key]
	list = append([]models.Candle{candle}, list...)
	if len(list) > s.maxSeries {
		list = list[:s.maxSeries]
	}
	s.series[key] = list
	return nil
}

func (s *MemoryCandleStore) Read(ctx context.Context, key models.SeriesKey, count int) ([]models.Candle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := s.series[key]
	if count > len(list) {
		count = len(list)
	}
	if count <= 0 {
		return nil, nil
	}
	out := make([]models.Candle, count)
	copy(out, list[:count])
	return out, nil
}

func (s *MemoryCandleStore) Count(ctx context.Context, key models.SeriesKey) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.series[key])), nil
}

func (s *MemoryCandleStore) Health(ctx context.Context) error {
	return nil
}
