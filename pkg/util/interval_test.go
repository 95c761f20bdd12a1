package util

import (
	"testing"
	"time"
)

func TestIntervalDuration(t *testing.T) {
	cases := []struct {
		code string
		want time.Duration
	}{
		{"1", time.Minute},
		{"5", 5 * time.Minute},
		{"60", time.Hour},
		{"D", 24 * time.Hour},
		{"W", 7 * 24 * time.Hour},
	}
	for _, tc := range cases {
		got, err := IntervalDuration(tc.code)
		if err != nil {
			t.Fatalf("IntervalDuration(%q) error: %v", tc.code, err)
		}
		if got != tc.want {
			t.Fatalf("IntervalDuration(%q) = %v, want %v", tc.code, got, tc.want)
		}
	}
}

func TestIntervalDurationUnknown(t *testing.T) {
	if _, err := IntervalDuration("7"); err == nil {
		t.Fatal("expected error for unknown interval")
	}
}

func TestMillisRoundTrip(t *testing.T) {
	ms := int64(1700000000000)
	if got := MillisToTime(ms).UnixMilli(); got != ms {
		t.Fatalf("round trip = %d, want %d", got, ms)
	}
}
