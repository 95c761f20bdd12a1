package bybit

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"testing"
)

func hmacHex(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func TestSortedQueryString(t *testing.T) {
	got := sortedQueryString(map[string]string{
		"symbol":   "BTCUSDT",
		"category": "spot",
		"limit":    "10",
	})
	want := "category=spot&limit=10&symbol=BTCUSDT"
	if got != want {
		t.Fatalf("sortedQueryString = %q, want %q", got, want)
	}
}

func TestSignGetPayloadComposition(t *testing.T) {
	params := map[string]string{"coin": "USDT", "accountType": "UNIFIED"}
	got := signGet("secret", "1700000000000", "key", "5000", params)
	want := hmacHex("secret", "1700000000000key5000accountType=UNIFIED&coin=USDT")
	if got != want {
		t.Fatalf("signGet = %s, want %s", got, want)
	}
}

func TestSignPostPayloadComposition(t *testing.T) {
	body := `{"category":"spot","symbol":"BTCUSDT"}`
	got := signPost("secret", "1700000000000", "key", "5000", body)
	want := hmacHex("secret", "1700000000000key5000"+body)
	if got != want {
		t.Fatalf("signPost = %s, want %s", got, want)
	}
}

func TestSignatureIsLowercaseHex(t *testing.T) {
	sig := signPost("s", "1", "k", "5000", "{}")
	if len(sig) != 64 {
		t.Fatalf("signature length = %d, want 64", len(sig))
	}
	for _, r := range sig {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'f') {
			t.Fatalf("signature contains non-hex rune %q", r)
		}
	}
}
