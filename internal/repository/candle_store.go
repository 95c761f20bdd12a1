package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"TradePull/internal/domain/models"
	"TradePull/internal/domain/repository"
	"TradePull/pkg/cache"
)

// RedisCandleStore keeps each series as a bounded Redis list under
// series:<symbol>:<interval>, newest at index 0. The push and trim run
// in one transactional pipeline so concurrent writers never grow a
// series past maxSeries.
type RedisCandleStore struct {
	redis     *cache.Redis
	maxSeries int64
}

// NewRedisCandleStore creates a Redis-backed candle store.
func NewRedisCandleStore(redis *cache.Redis, maxSeries int64) repository.CandleStore {
	return &RedisCandleStore{redis: redis, maxSeries: maxSeries}
}

func seriesKey(key models.SeriesKey) string {
	return fmt.Sprintf("series:%s:%s", key.Symbol, key.Interval)
}

func (s *RedisCandleStore) Append(ctx context.Context, key models.SeriesKey, candle models.Candle) error {
	raw, err := json.Marshal(candle)
	if err != nil {
		return fmt.Errorf("encode candle: %w", err)
	}
	if err := s.redis.PushTrim(ctx, seriesKey(key), raw, s.maxSeries); err != nil {
		return fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisCandleStore) Read(ctx context.Context, key models.SeriesKey, count int) ([]models.Candle, error) {
	if count <= 0 {
		return nil, nil
	}
	rows, err := s.redis.ListRange(ctx, seriesKey(key), 0, int64(count)-1)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	}

	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		var c models.Candle
		if err := json.Unmarshal([]byte(row), &c); err != nil {
			return nil, fmt.Errorf("decode candle: %w", err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (s *RedisCandleStore) Count(ctx context.Context, key models.SeriesKey) (int64, error) {
	n, err := s.redis.ListLen(ctx, seriesKey(key))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", repository.ErrStoreUnavailable, err)
	}
	return n, nil
}

func (s *RedisCandleStore) Health(ctx context.Context) error {
	return s.redis.Health(ctx)
}
