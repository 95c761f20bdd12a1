package bybit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"TradePull/internal/domain/models"
	pkghttp "TradePull/pkg/http"
	"TradePull/pkg/logger"
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func TestComputeOrderQuantity(t *testing.T) {
	cases := []struct {
		name      string
		balance   float64
		price     string
		increment string
		want      string
	}{
		{"standard sizing", 100, "50000", "0.000001", "0.0016"},
		{"floors to increment", 100, "50000", "0.0005", "0.0015"},
		{"rounds to zero", 100, "50000", "0.01", "0"},
		{"zero balance", 0, "50000", "0.000001", "0"},
		{"zero price", 100, "0", "0.000001", "0"},
		{"bad price", 100, "not-a-number", "0.000001", "0"},
		{"bad increment", 100, "50000", "", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ComputeOrderQuantity(tc.balance, tc.price, tc.increment)
			if got != tc.want {
				t.Fatalf("ComputeOrderQuantity(%v, %q, %q) = %q, want %q",
					tc.balance, tc.price, tc.increment, got, tc.want)
			}
		})
	}
}

func TestPlaceOrderSimulated(t *testing.T) {
	client := NewExchangeClient("http://unused", 5000, true, pkghttp.NewClient(), testLogger(t))

	res, err := client.PlaceOrder(context.Background(), models.UserProfile{}, "BTCUSDT", "Buy", "0.0016")
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if !res.Success || res.Status != "Filled" {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.OrderID == "" {
		t.Fatal("expected simulated order ID")
	}
}

func TestPlaceOrderZeroQuantitySkips(t *testing.T) {
	client := NewExchangeClient("http://unused", 5000, true, pkghttp.NewClient(), testLogger(t))

	res, err := client.PlaceOrder(context.Background(), models.UserProfile{}, "BTCUSDT", "Buy", "0")
	if err != nil {
		t.Fatalf("place order: %v", err)
	}
	if res.Success {
		t.Fatal("zero quantity must not produce a fill")
	}
	if res.Status != "skipped" {
		t.Fatalf("status = %q, want skipped", res.Status)
	}
}

func TestGetBalanceSignedRequest(t *testing.T) {
	creds := models.UserProfile{APIKey: "test-key", APISecret: "test-secret"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(headerAPIKey) != "test-key" {
			t.Errorf("api key header = %q", r.Header.Get(headerAPIKey))
		}
		if r.Header.Get(headerSignType) != "2" {
			t.Errorf("sign type header = %q", r.Header.Get(headerSignType))
		}
		ts := r.Header.Get(headerTimestamp)
		rw := r.Header.Get(headerRecvWindow)
		if ts == "" || rw != "5000" {
			t.Errorf("timestamp=%q recvWindow=%q", ts, rw)
		}

		params := map[string]string{}
		for k := range r.URL.Query() {
			params[k] = r.URL.Query().Get(k)
		}
		want := signGet(creds.APISecret, ts, creds.APIKey, rw, params)
		if got := r.Header.Get(headerSignature); got != want {
			t.Errorf("signature = %q, want %q", got, want)
		}

		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"retCode": 0,
			"retMsg":  "OK",
			"result": map[string]interface{}{
				"list": []map[string]interface{}{
					{"coin": []map[string]string{{
						"coin":                "USDT",
						"walletBalance":       "500",
						"availableToWithdraw": "123.45",
					}}},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewExchangeClient(srv.URL, 5000, false, pkghttp.NewClient(), testLogger(t))
	balance, err := client.GetBalance(context.Background(), creds)
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 123.45 {
		t.Fatalf("balance = %v, want 123.45", balance)
	}
}

func balanceServer(t *testing.T, coin map[string]string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"retCode": 0,
			"retMsg":  "OK",
			"result": map[string]interface{}{
				"list": []map[string]interface{}{
					{"coin": []map[string]string{coin}},
				},
			},
		})
	}))
}

func TestGetBalanceLockedFundsFailClosed(t *testing.T) {
	// most of the wallet is tied up in open orders; only the available
	// figure may fund new trades
	srv := balanceServer(t, map[string]string{
		"coin":                "USDT",
		"walletBalance":       "500",
		"availableToWithdraw": "1",
	})
	defer srv.Close()

	client := NewExchangeClient(srv.URL, 5000, false, pkghttp.NewClient(), testLogger(t))
	_, err := client.GetBalance(context.Background(), models.UserProfile{APIKey: "k", APISecret: "s"})
	if err != ErrInsufficientBalance {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestGetBalanceThresholdIsStrict(t *testing.T) {
	srv := balanceServer(t, map[string]string{
		"coin":                "USDT",
		"walletBalance":       "10",
		"availableToWithdraw": "10",
	})
	defer srv.Close()

	client := NewExchangeClient(srv.URL, 5000, false, pkghttp.NewClient(), testLogger(t))
	_, err := client.GetBalance(context.Background(), models.UserProfile{APIKey: "k", APISecret: "s"})
	if err != ErrInsufficientBalance {
		t.Fatalf("err = %v, want ErrInsufficientBalance at the boundary", err)
	}
}

func TestGetBalanceFallsBackToWalletBalance(t *testing.T) {
	srv := balanceServer(t, map[string]string{
		"coin":          "USDT",
		"walletBalance": "42.5",
	})
	defer srv.Close()

	client := NewExchangeClient(srv.URL, 5000, false, pkghttp.NewClient(), testLogger(t))
	balance, err := client.GetBalance(context.Background(), models.UserProfile{APIKey: "k", APISecret: "s"})
	if err != nil {
		t.Fatalf("get balance: %v", err)
	}
	if balance != 42.5 {
		t.Fatalf("balance = %v, want 42.5", balance)
	}
}

func TestGetBalanceFailsClosedBelowMinimum(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"retCode": 0,
			"retMsg":  "OK",
			"result": map[string]interface{}{
				"list": []map[string]interface{}{
					{"coin": []map[string]string{{"coin": "USDT", "walletBalance": "3.2"}}},
				},
			},
		})
	}))
	defer srv.Close()

	client := NewExchangeClient(srv.URL, 5000, false, pkghttp.NewClient(), testLogger(t))
	_, err := client.GetBalance(context.Background(), models.UserProfile{APIKey: "k", APISecret: "s"})
	if err != ErrInsufficientBalance {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
}

func TestExchangeDomainError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"retCode": 10003,
			"retMsg":  "API key is invalid",
			"result":  map[string]interface{}{},
		})
	}))
	defer srv.Close()

	client := NewExchangeClient(srv.URL, 5000, false, pkghttp.NewClient(), testLogger(t))
	_, err := client.GetBalance(context.Background(), models.UserProfile{APIKey: "bad", APISecret: "bad"})
	if err == nil {
		t.Fatal("expected domain error")
	}
}
