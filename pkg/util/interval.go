package util

import (
	"fmt"
	"time"
)

// IntervalDuration maps a Bybit kline interval code to its duration.
// Numeric codes are minutes; D, W and M are day, week and month.
func IntervalDuration(interval string) (time.Duration, error) {
	switch interval {
	case "1":
		return time.Minute, nil
	case "3":
		return 3 * time.Minute, nil
	case "5":
		return 5 * time.Minute, nil
	case "15":
		return 15 * time.Minute, nil
	case "30":
		return 30 * time.Minute, nil
	case "60":
		return time.Hour, nil
	case "120":
		return 2 * time.Hour, nil
	case "240":
		return 4 * time.Hour, nil
	case "360":
		return 6 * time.Hour, nil
	case "720":
		return 12 * time.Hour, nil
	case "D":
		return 24 * time.Hour, nil
	case "W":
		return 7 * 24 * time.Hour, nil
	case "M":
		return 30 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unknown interval %q", interval)
	}
}

// NowMillis returns the current wall clock as Unix milliseconds.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// MillisToTime converts Unix milliseconds to time.Time in UTC.
func MillisToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
