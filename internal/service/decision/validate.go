package decision

import (
	"encoding/json"
	"fmt"

	"TradePull/internal/domain/models"
)

// Confidence floors per risk level. Decisions below the floor are forced
// to hold.
var riskThresholds = map[string]float64{
	models.RiskLow:    0.8,
	models.RiskMedium: 0.7,
	models.RiskHigh:   0.6,
}

const defaultThreshold = 0.8

// Outcome is the tagged result of validating one untrusted payload.
// Malformed carries the raw text for diagnostics; Decision is always
// usable, degrading to hold.
type Outcome struct {
	Decision  models.TradeDecision
	Malformed bool
	Raw       string
}

// rawDecision mirrors the upstream payload before any clamping.
type rawDecision struct {
	Action     string             `json:"action"`
	Confidence float64            `json:"confidence"`
	Leverage   float64            `json:"leverage"`
	StopLoss   float64            `json:"stop_loss"`
	TakeProfit float64            `json:"take_profit"`
	Reason     string             `json:"reason"`
	Indicators map[string]float64 `json:"indicators"`
}

// Validate decodes an untrusted decision payload exactly once and clamps
// every field into range. Parse failures degrade to a hold decision with
// a descriptive reason; they never propagate.
func Validate(raw []byte, user models.UserProfile) Outcome {
	var rd rawDecision
	if err := json.Unmarshal(raw, &rd); err != nil {
		return Outcome{
			Decision: models.TradeDecision{
				Action: models.ActionHold,
				Reason: fmt.Sprintf("malformed decision payload: %v", err),
			},
			Malformed: true,
			Raw:       string(raw),
		}
	}

	d := models.TradeDecision{
		Action:     normalizeAction(rd.Action),
		Confidence: clamp(rd.Confidence, 0, 1),
		Leverage:   clamp(rd.Leverage, 1, 20),
		Reason:     rd.Reason,
		Indicators: rd.Indicators,
	}
	if user.MaxLeverage >= 1 && d.Leverage > user.MaxLeverage {
		d.Leverage = user.MaxLeverage
	}
	if rd.StopLoss != 0 {
		d.StopLoss = clamp(rd.StopLoss, 0.01, 0.1)
	}
	if rd.TakeProfit != 0 {
		d.TakeProfit = clamp(rd.TakeProfit, 0.01, 0.2)
	}

	// Risk-dependent confidence floor, applied after clamping so the
	// comparison is always against an in-range value.
	threshold, ok := riskThresholds[user.RiskLevel]
	if !ok {
		threshold = defaultThreshold
	}
	if d.Action != models.ActionHold && d.Confidence < threshold {
		d.Reason = fmt.Sprintf("%s (confidence %.2f below %s threshold %.2f, holding)",
			d.Reason, d.Confidence, user.RiskLevel, threshold)
		d.Action = models.ActionHold
	}

	return Outcome{Decision: d}
}

func normalizeAction(action string) string {
	switch action {
	case models.ActionBuy, models.ActionSell, models.ActionHold:
		return action
	default:
		return models.ActionHold
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
