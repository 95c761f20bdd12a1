package models

import (
	"fmt"
	"strconv"
)

// Candle is one OHLCV bucket for a symbol/interval series. Numeric fields
// stay decimal strings end to end so exchange precision survives storage.
type Candle struct {
	Timestamp int64  `json:"timestamp"`
	Open      string `json:"open"`
	High      string `json:"high"`
	Low       string `json:"low"`
	Close     string `json:"close"`
	Volume    string `json:"volume"`
}

// CandleFromRow builds a Candle from the exchange kline row layout
// [ts, open, high, low, close, volume, ...].
func CandleFromRow(row []string) (Candle, error) {
	if len(row) < 6 {
		return Candle{}, fmt.Errorf("kline row has %d fields, want at least 6", len(row))
	}
	ts, err := strconv.ParseInt(row[0], 10, 64)
	if err != nil {
		return Candle{}, fmt.Errorf("kline timestamp %q: %w", row[0], err)
	}
	return Candle{
		Timestamp: ts,
		Open:      row[1],
		High:      row[2],
		Low:       row[3],
		Close:     row[4],
		Volume:    row[5],
	}, nil
}

// SeriesKey identifies one candle series.
type SeriesKey struct {
	Symbol   string
	Interval string
}

func (k SeriesKey) String() string {
	return k.Symbol + ":" + k.Interval
}

// MarketStats summarizes a candle window for the decision service payload.
type MarketStats struct {
	Symbol      string `json:"symbol"`
	Interval    string `json:"interval"`
	CandleCount int    `json:"candle_count"`
	LatestClose string `json:"latest_close"`
	WindowHigh  string `json:"window_high"`
	WindowLow   string `json:"window_low"`
	WindowStart int64  `json:"window_start"`
	WindowEnd   int64  `json:"window_end"`
	ChangePct   string `json:"change_pct"`
	TotalVolume string `json:"total_volume"`
}
