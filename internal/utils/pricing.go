package utils

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// ParseDate accepts either yyyy-mm-dd (interpreted as midnight UTC) or an
// RFC 3339 timestamp, and returns the instant in UTC.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("date is empty")
	}
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date format, expected yyyy-mm-dd or RFC 3339: %q", s)
	}
	return t.UTC(), nil
}

// StartOfDay truncates t to 00:00 UTC of the same calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RentalDays counts billable days between start and end, rounding partial
// days up. The result is never below one.
func RentalDays(start, end time.Time) int64 {
	hours := end.Sub(start).Hours()
	days := int64(math.Ceil(hours / 24))
	if days < 1 {
		return 1
	}
	return days
}

// TotalValue is dailyRate x days x quantity.
func TotalValue(dailyRate decimal.Decimal, start, end time.Time, quantity int32) decimal.Decimal {
	return dailyRate.
		Mul(decimal.NewFromInt(RentalDays(start, end))).
		Mul(decimal.NewFromInt32(quantity))
}
