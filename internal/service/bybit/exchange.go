package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"TradePull/internal/domain/models"
	drepo "TradePull/internal/domain/repository"
	pkghttp "TradePull/pkg/http"
	"TradePull/pkg/logger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// Orders never commit more than this fraction of available balance.
	safetyFraction = "0.8"

	// Accounts must hold more than this many available USDT to trade.
	minBalanceUSDT = 10.0

	accountTypeUnified = "UNIFIED"
)

// ErrInsufficientBalance is returned when an account cannot fund a trade.
var ErrInsufficientBalance = fmt.Errorf("available balance not above %.0f USDT", minBalanceUSDT)

// ExchangeClient executes signed Bybit v5 account operations. Credentials
// are passed per call, one client serves all users.
type ExchangeClient struct {
	baseURL    string
	recvWindow int
	simulated  bool
	http       *pkghttp.Client
	log        *logger.Logger
}

// NewExchangeClient creates a signed exchange client. When simulated is
// true, order operations return synthetic fills without touching the
// exchange.
func NewExchangeClient(baseURL string, recvWindow int, simulated bool, httpClient *pkghttp.Client, log *logger.Logger) drepo.Exchange {
	return &ExchangeClient{
		baseURL:    baseURL,
		recvWindow: recvWindow,
		simulated:  simulated,
		http:       httpClient,
		log:        log,
	}
}

func (c *ExchangeClient) signedGet(ctx context.Context, creds models.UserProfile, path string, params map[string]string, dest *restEnvelope) error {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	rw := strconv.Itoa(c.recvWindow)
	sig := signGet(creds.APISecret, ts, creds.APIKey, rw, params)

	return c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method:      pkghttp.MethodGet,
		URL:         c.baseURL + path,
		QueryParams: params,
		Headers: map[string]string{
			headerAPIKey:     creds.APIKey,
			headerSignature:  sig,
			headerSignType:   signTypeHMAC,
			headerTimestamp:  ts,
			headerRecvWindow: rw,
		},
	}, dest)
}

func (c *ExchangeClient) signedPost(ctx context.Context, creds models.UserProfile, path string, body interface{}, dest *restEnvelope) error {
	// The exact bytes sent must match the signed payload, so the body is
	// marshaled once here.
	raw, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal body: %w", err)
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	rw := strconv.Itoa(c.recvWindow)
	sig := signPost(creds.APISecret, ts, creds.APIKey, rw, string(raw))

	return c.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    c.baseURL + path,
		Body:   raw,
		Headers: map[string]string{
			headerAPIKey:     creds.APIKey,
			headerSignature:  sig,
			headerSignType:   signTypeHMAC,
			headerTimestamp:  ts,
			headerRecvWindow: rw,
			"Content-Type":   "application/json",
		},
	}, dest)
}

// GetBalance returns the available USDT balance. Fails closed: balances
// below the minimum threshold come back as ErrInsufficientBalance.
func (c *ExchangeClient) GetBalance(ctx context.Context, creds models.UserProfile) (float64, error) {
	if c.simulated {
		return 1000, nil
	}

	var env restEnvelope
	err := c.signedGet(ctx, creds, "/v5/account/wallet-balance", map[string]string{
		"accountType": accountTypeUnified,
		"coin":        "USDT",
	}, &env)
	if err != nil {
		return 0, fmt.Errorf("wallet balance: %w", err)
	}

	var result struct {
		List []struct {
			Coin []struct {
				Coin                string `json:"coin"`
				WalletBalance       string `json:"walletBalance"`
				AvailableToWithdraw string `json:"availableToWithdraw"`
			} `json:"coin"`
		} `json:"list"`
	}
	if err := env.unwrap(&result); err != nil {
		return 0, err
	}

	var balance float64
	for _, acct := range result.List {
		for _, coin := range acct.Coin {
			if coin.Coin != "USDT" {
				continue
			}
			// funds locked in open orders are not spendable, so the
			// available figure drives sizing; walletBalance is only a
			// fallback when the exchange omits it
			raw := coin.AvailableToWithdraw
			if raw == "" {
				raw = coin.WalletBalance
			}
			balance, err = strconv.ParseFloat(raw, 64)
			if err != nil {
				return 0, fmt.Errorf("parse balance %q: %w", raw, err)
			}
		}
	}

	if balance <= minBalanceUSDT {
		return balance, ErrInsufficientBalance
	}
	return balance, nil
}

// ComputeOrderQuantity converts available balance into a base-asset
// quantity: the safety fraction of balance at the given price, floored
// to the instrument's minimum increment. Returns "0" when the result
// rounds to zero or the inputs are unusable; callers treat "0" as do
// not trade. Spot sizing ignores leverage.
func ComputeOrderQuantity(balance float64, price, minIncrement string) string {
	if balance <= 0 {
		return "0"
	}
	p, err := decimal.NewFromString(price)
	if err != nil || p.IsZero() || p.IsNegative() {
		return "0"
	}
	step, err := decimal.NewFromString(minIncrement)
	if err != nil || step.IsZero() || step.IsNegative() {
		return "0"
	}

	frac := decimal.RequireFromString(safetyFraction)
	spend := decimal.NewFromFloat(balance).Mul(frac)
	qty := spend.Div(p)

	// floor to the nearest step
	steps := qty.Div(step).Floor()
	qty = steps.Mul(step)
	if qty.IsZero() {
		return "0"
	}
	return qty.String()
}

// PlaceOrder submits a spot market order. Every order carries a
// client-generated orderLinkId so a retried submission cannot double
// fill.
func (c *ExchangeClient) PlaceOrder(ctx context.Context, creds models.UserProfile, symbol, side, qty string) (models.OrderResult, error) {
	if qty == "" || qty == "0" {
		return models.OrderResult{Status: "skipped", Side: side, Qty: qty, Error: "quantity rounds to zero"}, nil
	}

	linkID := uuid.NewString()

	if c.simulated {
		c.log.Info("simulated order fill",
			logger.String("symbol", symbol),
			logger.String("side", side),
			logger.String("qty", qty))
		return models.OrderResult{
			Success: true,
			OrderID: "sim-" + linkID,
			Status:  "Filled",
			Side:    side,
			Qty:     qty,
		}, nil
	}

	body := map[string]string{
		"category":    categorySpot,
		"symbol":      symbol,
		"side":        side,
		"orderType":   "Market",
		"qty":         qty,
		"timeInForce": "IOC",
		"orderLinkId": linkID,
	}

	var env restEnvelope
	if err := c.signedPost(ctx, creds, "/v5/order/create", body, &env); err != nil {
		return models.OrderResult{Status: "failed", Side: side, Qty: qty, Error: err.Error()}, err
	}

	var result struct {
		OrderID     string `json:"orderId"`
		OrderLinkID string `json:"orderLinkId"`
	}
	if err := env.unwrap(&result); err != nil {
		return models.OrderResult{Status: "rejected", Side: side, Qty: qty, Error: err.Error()}, err
	}

	return models.OrderResult{
		Success: true,
		OrderID: result.OrderID,
		Status:  "New",
		Side:    side,
		Qty:     qty,
	}, nil
}

// CancelOrder cancels an open order by ID.
func (c *ExchangeClient) CancelOrder(ctx context.Context, creds models.UserProfile, symbol, orderID string) error {
	if c.simulated {
		return nil
	}

	body := map[string]string{
		"category": categorySpot,
		"symbol":   symbol,
		"orderId":  orderID,
	}
	var env restEnvelope
	if err := c.signedPost(ctx, creds, "/v5/order/cancel", body, &env); err != nil {
		return fmt.Errorf("cancel order: %w", err)
	}
	return env.unwrap(nil)
}

// GetOrderStatus fetches the current state of an order.
func (c *ExchangeClient) GetOrderStatus(ctx context.Context, creds models.UserProfile, symbol, orderID string) (models.OrderResult, error) {
	if c.simulated {
		return models.OrderResult{Success: true, OrderID: orderID, Status: "Filled"}, nil
	}

	var env restEnvelope
	err := c.signedGet(ctx, creds, "/v5/order/realtime", map[string]string{
		"category": categorySpot,
		"symbol":   symbol,
		"orderId":  orderID,
	}, &env)
	if err != nil {
		return models.OrderResult{}, fmt.Errorf("order status: %w", err)
	}

	var result struct {
		List []struct {
			OrderID     string `json:"orderId"`
			OrderStatus string `json:"orderStatus"`
			Side        string `json:"side"`
			Qty         string `json:"qty"`
			AvgPrice    string `json:"avgPrice"`
		} `json:"list"`
	}
	if err := env.unwrap(&result); err != nil {
		return models.OrderResult{}, err
	}
	if len(result.List) == 0 {
		return models.OrderResult{}, fmt.Errorf("order %s not found", orderID)
	}

	o := result.List[0]
	return models.OrderResult{
		Success: true,
		OrderID: o.OrderID,
		Status:  o.OrderStatus,
		Side:    o.Side,
		Qty:     o.Qty,
		Price:   o.AvgPrice,
	}, nil
}

// GetTradeHistory returns recent executions for a symbol.
func (c *ExchangeClient) GetTradeHistory(ctx context.Context, creds models.UserProfile, symbol string, limit int) ([]models.OrderResult, error) {
	if c.simulated {
		return nil, nil
	}

	var env restEnvelope
	err := c.signedGet(ctx, creds, "/v5/execution/list", map[string]string{
		"category": categorySpot,
		"symbol":   symbol,
		"limit":    strconv.Itoa(limit),
	}, &env)
	if err != nil {
		return nil, fmt.Errorf("trade history: %w", err)
	}

	var result struct {
		List []struct {
			OrderID   string `json:"orderId"`
			Side      string `json:"side"`
			ExecQty   string `json:"execQty"`
			ExecPrice string `json:"execPrice"`
		} `json:"list"`
	}
	if err := env.unwrap(&result); err != nil {
		return nil, err
	}

	history := make([]models.OrderResult, 0, len(result.List))
	for _, e := range result.List {
		history = append(history, models.OrderResult{
			Success: true,
			OrderID: e.OrderID,
			Status:  "Filled",
			Side:    e.Side,
			Qty:     e.ExecQty,
			Price:   e.ExecPrice,
		})
	}
	return history, nil
}
