package repository

import (
	"context"
	"errors"

	"TradePull/internal/domain/models"
)

// ErrStoreUnavailable wraps backing-store failures so callers can tell
// them apart from empty reads.
var ErrStoreUnavailable = errors.New("candle store unavailable")

// CandleStore is a bounded, newest-first buffer of candles per series.
type CandleStore interface {
	Append(ctx context.Context, key models.SeriesKey, candle models.Candle) error
	Read(ctx context.Context, key models.SeriesKey, count int) ([]models.Candle, error)
	Count(ctx context.Context, key models.SeriesKey) (int64, error)
	Health(ctx context.Context) error
}

// MarketStream is a persistent kline subscription for one series.
type MarketStream interface {
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	Read(ctx context.Context) (<-chan models.Candle, <-chan error)
	Close() error
	IsConnected() bool
}

// MarketData serves public, unsigned market endpoints.
type MarketData interface {
	GetKlines(ctx context.Context, key models.SeriesKey, limit int, start, end int64) ([]models.Candle, error)
	GetPrice(ctx context.Context, symbol string) (string, error)
	GetServerTime(ctx context.Context) (int64, error)
	GetMinOrderQty(ctx context.Context, symbol string) (string, error)
}

// Exchange executes signed account operations with one user's credentials.
type Exchange interface {
	GetBalance(ctx context.Context, creds models.UserProfile) (float64, error)
	PlaceOrder(ctx context.Context, creds models.UserProfile, symbol, side, qty string) (models.OrderResult, error)
	CancelOrder(ctx context.Context, creds models.UserProfile, symbol, orderID string) error
	GetOrderStatus(ctx context.Context, creds models.UserProfile, symbol, orderID string) (models.OrderResult, error)
	GetTradeHistory(ctx context.Context, creds models.UserProfile, symbol string, limit int) ([]models.OrderResult, error)
}

// DecisionSource produces an untrusted decision payload for a candle
// window and user profile. Validation happens downstream.
type DecisionSource interface {
	Generate(ctx context.Context, candles []models.Candle, user models.UserProfile) ([]byte, error)
}

// UserDirectory lists users with auto-trading enabled.
type UserDirectory interface {
	ActiveUsers(ctx context.Context) ([]models.UserProfile, error)
}

// Ledger is the append-only record of execution attempts.
type Ledger interface {
	Append(ctx context.Context, entry models.LedgerEntry) error
	Query(ctx context.Context, userID string, limit int) ([]models.LedgerEntry, error)
	Close() error
}

// StatusBoard publishes operational key/value fields.
type StatusBoard interface {
	Set(ctx context.Context, fields map[string]string) error
	Snapshot(ctx context.Context) (map[string]string, error)
}

// Metrics records pipeline counters.
type Metrics interface {
	RecordCandleStored(symbol, interval, source string)
	RecordTrade(result string)
	RecordError(kind string)
	RecordLastPrice(symbol string, price float64)
	RecordLatency(op string, seconds float64)
	RecordStreamState(symbol, interval string, state float64)
	RecordUsersProcessed(n int)
}
