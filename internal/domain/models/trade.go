package models

import "time"

// Trade actions.
const (
	ActionBuy  = "buy"
	ActionSell = "sell"
	ActionHold = "hold"
)

// Risk levels carried on user profiles.
const (
	RiskLow    = "low"
	RiskMedium = "medium"
	RiskHigh   = "high"
)

// TradeDecision is a validated, clamped decision for one user on one tick.
// Immutable once produced by the decision validator.
type TradeDecision struct {
	Action     string             `json:"action"`
	Confidence float64            `json:"confidence"`
	Leverage   float64            `json:"leverage"`
	StopLoss   float64            `json:"stop_loss,omitempty"`
	TakeProfit float64            `json:"take_profit,omitempty"`
	Reason     string             `json:"reason"`
	Indicators map[string]float64 `json:"indicators,omitempty"`
}

// OrderResult records the outcome of one order attempt.
type OrderResult struct {
	Success bool   `json:"success"`
	OrderID string `json:"order_id,omitempty"`
	Status  string `json:"status"`
	Side    string `json:"side,omitempty"`
	Qty     string `json:"qty,omitempty"`
	Price   string `json:"price,omitempty"`
	Error   string `json:"error,omitempty"`
}

// LedgerEntry is the immutable record of one decision and execution
// attempt. Exactly one is appended per processed user per scheduler tick.
type LedgerEntry struct {
	UserID     string        `json:"user_id"`
	Symbol     string        `json:"symbol"`
	Interval   string        `json:"interval"`
	Decision   TradeDecision `json:"decision"`
	Order      OrderResult   `json:"order"`
	ExecutedAt time.Time     `json:"executed_at"`
}

// TickSummary aggregates one scheduler run for the status surface.
type TickSummary struct {
	UsersProcessed int       `json:"users_processed"`
	Succeeded      int       `json:"succeeded"`
	Held           int       `json:"held"`
	Failed         int       `json:"failed"`
	RanAt          time.Time `json:"ran_at"`
}
