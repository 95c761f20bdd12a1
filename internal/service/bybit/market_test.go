package bybit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"TradePull/internal/domain/models"
	pkghttp "TradePull/pkg/http"
)

func TestGetKlines(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v5/market/kline" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("category") != "spot" || q.Get("symbol") != "BTCUSDT" || q.Get("interval") != "1" {
			t.Errorf("query = %v", q)
		}
		if q.Get("limit") != "2" {
			t.Errorf("limit = %q", q.Get("limit"))
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"retCode": 0,
			"retMsg":  "OK",
			"result": map[string]interface{}{
				"list": [][]string{
					{"1700000120000", "2.0", "2.5", "1.9", "2.2", "10"},
					{"1700000060000", "1.0", "1.5", "0.9", "1.2", "20"},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewMarketClient(srv.URL, pkghttp.NewClient())
	key := models.SeriesKey{Symbol: "BTCUSDT", Interval: "1"}

	candles, err := client.GetKlines(context.Background(), key, 2, 0, 0)
	if err != nil {
		t.Fatalf("get klines: %v", err)
	}
	if len(candles) != 2 {
		t.Fatalf("len = %d, want 2", len(candles))
	}
	if candles[0].Timestamp != 1700000120000 || candles[0].Close != "2.2" {
		t.Fatalf("candles[0] = %+v", candles[0])
	}
	if candles[1].Timestamp != 1700000060000 || candles[1].Open != "1.0" {
		t.Fatalf("candles[1] = %+v", candles[1])
	}
}

func TestGetKlinesDomainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"retCode": 10001,
			"retMsg":  "params error",
			"result":  map[string]interface{}{},
		})
	}))
	defer srv.Close()

	client := NewMarketClient(srv.URL, pkghttp.NewClient())
	_, err := client.GetKlines(context.Background(), models.SeriesKey{Symbol: "X", Interval: "1"}, 10, 0, 0)
	if err == nil {
		t.Fatal("expected retCode error")
	}
}

func TestGetPrice(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"retCode": 0,
			"retMsg":  "OK",
			"result": map[string]interface{}{
				"list": []map[string]string{
					{"symbol": "BTCUSDT", "lastPrice": "50123.5"},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewMarketClient(srv.URL, pkghttp.NewClient())
	price, err := client.GetPrice(context.Background(), "BTCUSDT")
	if err != nil {
		t.Fatalf("get price: %v", err)
	}
	if price != "50123.5" {
		t.Fatalf("price = %q", price)
	}
}

func TestGetServerTime(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"retCode": 0,
			"retMsg":  "OK",
			"result":  map[string]string{"timeSecond": "1700000000", "timeNano": "1700000000123456789"},
		})
	}))
	defer srv.Close()

	client := NewMarketClient(srv.URL, pkghttp.NewClient())
	ms, err := client.GetServerTime(context.Background())
	if err != nil {
		t.Fatalf("server time: %v", err)
	}
	if ms != 1700000000000 {
		t.Fatalf("ms = %d", ms)
	}
}

func TestCandleFromRowShort(t *testing.T) {
	if _, err := models.CandleFromRow([]string{"1", "2"}); err == nil {
		t.Fatal("expected error for short row")
	}
}
