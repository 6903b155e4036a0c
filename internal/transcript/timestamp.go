package transcript

import (
	"math"
	"time"
)

// UnknownLabel is used when either bound of a range is missing.
const UnknownLabel = "unknown"

const clockLayout = "15:04:05.000"

// WallTime converts fractional unix seconds to local time, rounded to the microsecond.
func WallTime(sec float64) time.Time {
	whole, frac := math.Modf(sec)
	micros := int64(math.Round(frac * 1e6))
	return time.Unix(int64(whole), micros*int64(time.Microsecond)).Local()
}

// Seconds converts t to fractional unix seconds.
func Seconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

// FormatRange renders "HH:MM:SS.mmm-HH:MM:SS.mmm" in local time, or UnknownLabel.
func FormatRange(start, end *float64) string {
	if start == nil || end == nil {
		return UnknownLabel
	}
	return WallTime(*start).Format(clockLayout) + "-" + WallTime(*end).Format(clockLayout)
}
