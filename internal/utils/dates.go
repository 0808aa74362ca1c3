// internal/utils/dates.go
package utils

import "time"

// AddCalendarMonths adds months using calendar arithmetic. Overflowing days
// roll into the following month (Jan 31 + 1 month = Mar 2 or 3).
func AddCalendarMonths(t time.Time, months int) time.Time {
	return t.AddDate(0, months, 0)
}

// AddDays adds whole days.
func AddDays(t time.Time, days int) time.Time {
	return t.AddDate(0, 0, days)
}
