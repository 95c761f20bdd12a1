package decision

import (
	"context"
	"fmt"

	"TradePull/internal/domain/models"
	drepo "TradePull/internal/domain/repository"
	pkghttp "TradePull/pkg/http"

	"github.com/shopspring/decimal"
)

// HTTPSource calls the external decision service over HTTP. The service
// receives the candle window plus market stats and the user's risk
// configuration, and answers with untrusted JSON.
type HTTPSource struct {
	serviceURL string
	http       *pkghttp.Client
}

// NewHTTPSource creates a decision source backed by the decision service.
func NewHTTPSource(serviceURL string, httpClient *pkghttp.Client) drepo.DecisionSource {
	return &HTTPSource{serviceURL: serviceURL, http: httpClient}
}

type generateRequest struct {
	Candles      []models.Candle    `json:"candles"`
	MarketStats  models.MarketStats `json:"market_stats"`
	RiskLevel    string             `json:"risk_level"`
	MaxLeverage  float64            `json:"max_leverage"`
	CustomPrompt string             `json:"custom_prompt,omitempty"`
}

// Generate posts the candle window and returns the raw response body.
// Candles must arrive oldest first.
func (s *HTTPSource) Generate(ctx context.Context, candles []models.Candle, user models.UserProfile) ([]byte, error) {
	if len(candles) == 0 {
		return nil, fmt.Errorf("empty candle window")
	}

	req := generateRequest{
		Candles:      candles,
		MarketStats:  ComputeMarketStats(user.PreferredSymbol, user.PreferredInterval, candles),
		RiskLevel:    user.RiskLevel,
		MaxLeverage:  user.MaxLeverage,
		CustomPrompt: user.CustomPrompt,
	}

	var raw []byte
	err := s.http.SendAndParse(ctx, &pkghttp.RequestOptions{
		Method: pkghttp.MethodPost,
		URL:    s.serviceURL,
		Body:   req,
	}, &raw)
	if err != nil {
		return nil, fmt.Errorf("decision service: %w", err)
	}
	return raw, nil
}

// ComputeMarketStats summarizes an oldest-first candle window.
func ComputeMarketStats(symbol, interval string, candles []models.Candle) models.MarketStats {
	stats := models.MarketStats{
		Symbol:      symbol,
		Interval:    interval,
		CandleCount: len(candles),
	}
	if len(candles) == 0 {
		return stats
	}

	first, last := candles[0], candles[len(candles)-1]
	stats.WindowStart = first.Timestamp
	stats.WindowEnd = last.Timestamp
	stats.LatestClose = last.Close

	var high, low decimal.Decimal
	var haveHigh, haveLow bool
	volume := decimal.Zero
	for _, c := range candles {
		if h, err := decimal.NewFromString(c.High); err == nil {
			if !haveHigh || h.GreaterThan(high) {
				high, haveHigh = h, true
			}
		}
		if l, err := decimal.NewFromString(c.Low); err == nil {
			if !haveLow || l.LessThan(low) {
				low, haveLow = l, true
			}
		}
		if v, err := decimal.NewFromString(c.Volume); err == nil {
			volume = volume.Add(v)
		}
	}
	if haveHigh {
		stats.WindowHigh = high.String()
	}
	if haveLow {
		stats.WindowLow = low.String()
	}
	stats.TotalVolume = volume.String()

	openPrice, errO := decimal.NewFromString(first.Open)
	closePrice, errC := decimal.NewFromString(last.Close)
	if errO == nil && errC == nil && !openPrice.IsZero() {
		change := closePrice.Sub(openPrice).Div(openPrice).Mul(decimal.NewFromInt(100))
		stats.ChangePct = change.Round(4).String()
	}
	return stats
}

// Engine pairs a decision source with validation. Any failure from the
// source degrades to a hold decision so one bad call never aborts a
// scheduler tick.
type Engine struct {
	source drepo.DecisionSource
}

// NewEngine creates a decision engine.
func NewEngine(source drepo.DecisionSource) *Engine {
	return &Engine{source: source}
}

// Decide produces a validated decision for one user and candle window.
func (e *Engine) Decide(ctx context.Context, candles []models.Candle, user models.UserProfile) Outcome {
	raw, err := e.source.Generate(ctx, candles, user)
	if err != nil {
		return Outcome{
			Decision: models.TradeDecision{
				Action: models.ActionHold,
				Reason: fmt.Sprintf("decision generation failed: %v", err),
			},
			Malformed: true,
		}
	}
	return Validate(raw, user)
}
