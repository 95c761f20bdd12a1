package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"TradePull/internal/domain/models"
	drepo "TradePull/internal/domain/repository"
	pkghttp "TradePull/pkg/http"
)

const categorySpot = "spot"

// restEnvelope is the common Bybit v5 response wrapper. retCode 0 is
// success; anything else is a domain error carrying retMsg.
type restEnvelope struct {
	RetCode int             `json:"retCode"`
	RetMsg  string          `json:"retMsg"`
	Result  json.RawMessage `json:"result"`
}

func (e *restEnvelope) unwrap(dest interface{}) error {
	if e.RetCode != 0 {
		return fmt.Errorf("bybit error %d: %s", e.RetCode, e.RetMsg)
	}
	if dest == nil {
		return nil
	}
	if err := json.Unmarshal(e.Result, dest); err != nil {
		return fmt.Errorf("decode result: %w", err)
	}
	return nil
}

// MarketClient serves public, unsigned Bybit market endpoints.
type MarketClient struct {
	baseURL string
	http    *pkghttp.Client
}

// NewMarketClient creates a public market-data client.
func NewMarketClient(baseURL string, httpClient *pkghttp.Client) drepo.MarketData {
	return &MarketClient{baseURL: baseURL, http: httpClient}
}

// GetKlines fetches up to limit candles for a series, newest first as
// returned by the exchange. start/end are optional ms bounds (0 = unset).
func (c *MarketClient) GetKlines(ctx context.Context, key models.SeriesKey, limit int, start, end int64) ([]models.Candle, error) {
	params := map[string]string{
		"category": categorySpot,
		"symbol":   key.Symbol,
		"interval": key.Interval,
		"limit":    strconv.Itoa(limit),
	}
	if start > 0 {
		params["start"] = strconv.FormatInt(start, 10)
	}
	if end > 0 {
		params["end"] = strconv.FormatInt(end, 10)
	}

	var env restEnvelope
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         c.baseURL + "/v5/market/kline",
		QueryParams: params,
	}, &env)
	if err != nil {
		return nil, fmt.Errorf("kline fetch: %w", err)
	}

	var result struct {
		List [][]string `json:"list"`
	}
	if err := env.unwrap(&result); err != nil {
		return nil, err
	}

	candles := make([]models.Candle, 0, len(result.List))
	for _, row := range result.List {
		candle, err := models.CandleFromRow(row)
		if err != nil {
			return nil, err
		}
		candles = append(candles, candle)
	}
	return candles, nil
}

// GetPrice returns the last traded price for a symbol as a decimal string.
func (c *MarketClient) GetPrice(ctx context.Context, symbol string) (string, error) {
	var env restEnvelope
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.baseURL + "/v5/market/tickers",
		QueryParams: map[string]string{
			"category": categorySpot,
			"symbol":   symbol,
		},
	}, &env)
	if err != nil {
		return "", fmt.Errorf("ticker fetch: %w", err)
	}

	var result struct {
		List []struct {
			Symbol    string `json:"symbol"`
			LastPrice string `json:"lastPrice"`
		} `json:"list"`
	}
	if err := env.unwrap(&result); err != nil {
		return "", err
	}
	if len(result.List) == 0 {
		return "", fmt.Errorf("no ticker for %s", symbol)
	}
	return result.List[0].LastPrice, nil
}

// GetServerTime returns the exchange clock in Unix milliseconds.
func (c *MarketClient) GetServerTime(ctx context.Context) (int64, error) {
	var env restEnvelope
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.baseURL + "/v5/market/time",
	}, &env)
	if err != nil {
		return 0, fmt.Errorf("server time fetch: %w", err)
	}

	var result struct {
		TimeNano string `json:"timeNano"`
		TimeSec  string `json:"timeSecond"`
	}
	if err := env.unwrap(&result); err != nil {
		return 0, err
	}
	sec, err := strconv.ParseInt(result.TimeSec, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse server time %q: %w", result.TimeSec, err)
	}
	return sec * 1000, nil
}

// GetMinOrderQty returns the minimum base-asset order increment for a
// spot symbol.
func (c *MarketClient) GetMinOrderQty(ctx context.Context, symbol string) (string, error) {
	var env restEnvelope
	err := c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodGet,
		URL:    c.baseURL + "/v5/market/instruments-info",
		QueryParams: map[string]string{
			"category": categorySpot,
			"symbol":   symbol,
		},
	}, &env)
	if err != nil {
		return "", fmt.Errorf("instruments fetch: %w", err)
	}

	var result struct {
		List []struct {
			Symbol        string `json:"symbol"`
			LotSizeFilter struct {
				BasePrecision string `json:"basePrecision"`
				MinOrderQty   string `json:"minOrderQty"`
			} `json:"lotSizeFilter"`
		} `json:"list"`
	}
	if err := env.unwrap(&result); err != nil {
		return "", err
	}
	if len(result.List) == 0 {
		return "", fmt.Errorf("no instrument info for %s", symbol)
	}
	return result.List[0].LotSizeFilter.BasePrecision, nil
}
