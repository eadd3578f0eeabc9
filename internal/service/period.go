package service

import (
	"fmt"
	"time"
)

// monthBounds expands a YYYY-MM period into its first and last calendar
// day, formatted as the SUSHI begin_date and end_date.
func monthBounds(yearMonth string) (begin string, end string, err error) {
	t, err := time.Parse("2006-01", yearMonth)
	if err != nil {
		return "", "", fmt.Errorf("invalid harvest period %q: %w", yearMonth, err)
	}
	begin = t.Format("2006-01-02")
	end = t.AddDate(0, 1, -1).Format("2006-01-02")
	return begin, end, nil
}

// sameDay reports whether a and b fall on the same calendar day.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
