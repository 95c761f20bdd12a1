package decision

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"TradePull/internal/domain/models"
)

func user(risk string, maxLev float64) models.UserProfile {
	return models.UserProfile{UserID: "u1", RiskLevel: risk, MaxLeverage: maxLev}
}

func TestValidateClampsConfidence(t *testing.T) {
	out := Validate([]byte(`{"action":"buy","confidence":1.5,"leverage":5}`), user(models.RiskHigh, 20))
	if out.Malformed {
		t.Fatal("payload should parse")
	}
	if out.Decision.Confidence != 1.0 {
		t.Fatalf("confidence = %v, want 1.0", out.Decision.Confidence)
	}
	if out.Decision.Action != models.ActionBuy {
		t.Fatalf("action = %q", out.Decision.Action)
	}
}

func TestValidateClampsLeverageToUserMax(t *testing.T) {
	out := Validate([]byte(`{"action":"buy","confidence":0.9,"leverage":50}`), user(models.RiskHigh, 10))
	if out.Decision.Leverage != 10 {
		t.Fatalf("leverage = %v, want 10", out.Decision.Leverage)
	}

	out = Validate([]byte(`{"action":"buy","confidence":0.9,"leverage":50}`), user(models.RiskHigh, 0))
	if out.Decision.Leverage != 20 {
		t.Fatalf("leverage without user max = %v, want 20", out.Decision.Leverage)
	}
}

func TestValidateClampsStopLossTakeProfit(t *testing.T) {
	out := Validate([]byte(`{"action":"buy","confidence":0.9,"stop_loss":0.5,"take_profit":0.9}`), user(models.RiskHigh, 20))
	if out.Decision.StopLoss != 0.1 {
		t.Fatalf("stop loss = %v, want 0.1", out.Decision.StopLoss)
	}
	if out.Decision.TakeProfit != 0.2 {
		t.Fatalf("take profit = %v, want 0.2", out.Decision.TakeProfit)
	}
}

func TestValidateRiskThresholdForcesHold(t *testing.T) {
	cases := []struct {
		risk       string
		confidence float64
		wantHold   bool
	}{
		{models.RiskLow, 0.79, true},
		{models.RiskLow, 0.81, false},
		{models.RiskMedium, 0.69, true},
		{models.RiskMedium, 0.71, false},
		{models.RiskHigh, 0.59, true},
		{models.RiskHigh, 0.61, false},
	}
	for _, tc := range cases {
		payload := fmt.Sprintf(`{"action":"buy","confidence":%v,"leverage":2}`, tc.confidence)
		out := Validate([]byte(payload), user(tc.risk, 20))
		isHold := out.Decision.Action == models.ActionHold
		if isHold != tc.wantHold {
			t.Fatalf("risk=%s confidence=%v: hold=%v, want %v", tc.risk, tc.confidence, isHold, tc.wantHold)
		}
		if tc.wantHold && !strings.Contains(out.Decision.Reason, "threshold") {
			t.Fatalf("hold reason not annotated: %q", out.Decision.Reason)
		}
	}
}

func TestValidateUnknownActionDefaultsToHold(t *testing.T) {
	out := Validate([]byte(`{"action":"yolo","confidence":0.99}`), user(models.RiskHigh, 20))
	if out.Decision.Action != models.ActionHold {
		t.Fatalf("action = %q, want hold", out.Decision.Action)
	}
}

func TestValidateMalformedPayload(t *testing.T) {
	out := Validate([]byte(`{not json`), user(models.RiskMedium, 20))
	if !out.Malformed {
		t.Fatal("expected malformed outcome")
	}
	if out.Decision.Action != models.ActionHold {
		t.Fatalf("action = %q, want hold", out.Decision.Action)
	}
	if out.Decision.Reason == "" {
		t.Fatal("expected non-empty reason")
	}
	if out.Raw != `{not json` {
		t.Fatalf("raw = %q", out.Raw)
	}
}

type failingSource struct{}

func (failingSource) Generate(ctx context.Context, candles []models.Candle, u models.UserProfile) ([]byte, error) {
	return nil, fmt.Errorf("upstream exploded")
}

func TestEngineDegradesToHoldOnSourceError(t *testing.T) {
	engine := NewEngine(failingSource{})
	out := engine.Decide(context.Background(), []models.Candle{{Timestamp: 1}}, user(models.RiskMedium, 20))
	if out.Decision.Action != models.ActionHold {
		t.Fatalf("action = %q, want hold", out.Decision.Action)
	}
	if !strings.Contains(out.Decision.Reason, "upstream exploded") {
		t.Fatalf("reason = %q", out.Decision.Reason)
	}
}

func TestComputeMarketStats(t *testing.T) {
	candles := []models.Candle{
		{Timestamp: 1000, Open: "100", High: "110", Low: "95", Close: "105", Volume: "10"},
		{Timestamp: 2000, Open: "105", High: "120", Low: "104", Close: "110", Volume: "5"},
	}
	stats := ComputeMarketStats("BTCUSDT", "1", candles)
	if stats.CandleCount != 2 {
		t.Fatalf("count = %d", stats.CandleCount)
	}
	if stats.WindowHigh != "120" || stats.WindowLow != "95" {
		t.Fatalf("high/low = %s/%s", stats.WindowHigh, stats.WindowLow)
	}
	if stats.LatestClose != "110" {
		t.Fatalf("latest close = %s", stats.LatestClose)
	}
	if stats.TotalVolume != "15" {
		t.Fatalf("volume = %s", stats.TotalVolume)
	}
	if stats.ChangePct != "10" {
		t.Fatalf("change pct = %s", stats.ChangePct)
	}
}
