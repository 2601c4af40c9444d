package dates

import (
	"fmt"
	"time"
)

// Ledger is the fixed reference timezone for every date in the ledger.
// All statements and payslips handled here are Australian; anchoring to
// UTC+10 keeps month bucketing stable no matter where the server runs.
var Ledger = time.FixedZone("AEST", 10*60*60)

// Date constructs a calendar date in the ledger timezone.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, Ledger)
}

// MonthBounds returns the inclusive first and last calendar dates of a
// "YYYY-MM" month token, accounting for month length and leap years.
func MonthBounds(month string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01", month, Ledger)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	start := Date(t.Year(), t.Month(), 1)
	// Day zero of the next month is the last day of this one.
	end := Date(t.Year(), t.Month()+1, 0)
	return start, end, nil
}

// MonthToken formats a date as its "YYYY-MM" month token using the
// ledger timezone's year/month components.
func MonthToken(t time.Time) string {
	return t.In(Ledger).Format("2006-01")
}

// SameMonth reports whether a date falls inside the given "YYYY-MM"
// month. The comparison uses year/month components in the ledger
// timezone, not string prefixes, so dates near midnight at month
// boundaries bucket correctly.
func SameMonth(t time.Time, month string) bool {
	return MonthToken(t) == month
}

// MonthsForTimeframe expands a timeframe token into an ordered,
// chronological list of "YYYY-MM" month tokens relative to now.
// Supported tokens: lastmonth, last3months, last6months, ytd.
func MonthsForTimeframe(timeframe string, now time.Time) ([]string, error) {
	now = now.In(Ledger)
	// Normalize to the first of the current month so AddDate arithmetic
	// cannot skip short months (e.g. Jan 31 minus one month).
	current := Date(now.Year(), now.Month(), 1)

	var count int
	switch timeframe {
	case "lastmonth":
		count = 1
	case "last3months":
		count = 3
	case "last6months":
		count = 6
	case "ytd":
		count = int(now.Month())
	default:
		return nil, fmt.Errorf("unknown timeframe %q", timeframe)
	}

	months := make([]string, 0, count)
	if timeframe == "ytd" {
		for m := time.January; m <= now.Month(); m++ {
			months = append(months, MonthToken(Date(now.Year(), m, 1)))
		}
		return months, nil
	}

	for i := count; i >= 1; i-- {
		months = append(months, MonthToken(current.AddDate(0, -i, 0)))
	}
	return months, nil
}
