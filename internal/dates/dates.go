package dates

import (
	"fmt"
	"strings"
	"time"
)

// Layout is the canonical form every date is normalized to at ingestion.
// All equality comparisons and override keys use this form.
const Layout = "2006-01-02"

// Accepted input shapes: yyyy-MM-dd, MM/dd/yyyy, M/d/yyyy, MM/dd/yy, M/d/yy.
// Go's non-padded layouts also match the padded variants.
var layouts = []string{
	Layout,
	"1/2/2006",
	"1/2/06",
}

// Parse reads a date in any accepted format and returns it at UTC midnight.
func Parse(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, l := range layouts {
		if t, err := time.Parse(l, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

func Format(t time.Time) string {
	return t.Format(Layout)
}

// Normalize converts a raw date string to the canonical yyyy-MM-dd form.
func Normalize(s string) (string, error) {
	t, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Format(t), nil
}

// AddMonthsClamped steps t forward by the given number of months. When the
// day of month does not exist in the target month (Jan 31 + 1 month), the
// result clamps to the target month's last day instead of rolling over.
// Clamping is sticky: the caller steps from the clamped date, so the day
// never grows back in later steps.
func AddMonthsClamped(t time.Time, months int) time.Time {
	y, m, d := t.Date()
	first := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, t.Location())
	if last := daysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return time.Date(first.Year(), first.Month(), d, 0, 0, 0, 0, t.Location())
}

// daysIn returns the number of days in the given month.
// Day 0 of the next month is the last day of this one.
func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
