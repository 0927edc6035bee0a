package datasource

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Timing feeds publish lap times either as "M'SS.mmm" or as plain decimal
// seconds. Parsing goes through decimal arithmetic so "1'32.456" survives
// the minute conversion without binary float drift before the final value.

// ParseLapTime converts a timing-feed lap time string to seconds.
func ParseLapTime(raw string) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("empty lap time")
	}

	var total decimal.Decimal

	if idx := strings.IndexByte(raw, '\''); idx >= 0 {
		minutes, err := decimal.NewFromString(raw[:idx])
		if err != nil {
			return 0, fmt.Errorf("invalid minutes in lap time %q: %w", raw, err)
		}
		seconds, err := decimal.NewFromString(raw[idx+1:])
		if err != nil {
			return 0, fmt.Errorf("invalid seconds in lap time %q: %w", raw, err)
		}
		total = minutes.Mul(decimal.NewFromInt(60)).Add(seconds)
	} else {
		seconds, err := decimal.NewFromString(raw)
		if err != nil {
			return 0, fmt.Errorf("invalid lap time %q: %w", raw, err)
		}
		total = seconds
	}

	if total.Sign() <= 0 {
		return 0, fmt.Errorf("non-positive lap time %q", raw)
	}

	value, _ := total.Float64()
	return value, nil
}

// FormatLapTime renders seconds back into the feed's "M'SS.mmm" notation.
func FormatLapTime(seconds float64) string {
	d := decimal.NewFromFloat(seconds)
	minutes := d.Div(decimal.NewFromInt(60)).Floor()
	remainder := d.Sub(minutes.Mul(decimal.NewFromInt(60)))
	return fmt.Sprintf("%s'%06.3f", minutes.String(), remainder.InexactFloat64())
}
