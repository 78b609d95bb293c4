package workouts

import (
	"fmt"
	"time"
)

const dayLayout = "2006-01-02"

// the app's home timezone; days roll over at midnight JST
var jst = time.FixedZone("JST", 9*60*60)

// ValidDay reports whether s is a well-formed YYYY-MM-DD calendar day.
// The fixed-width zero-padded format makes lexicographic comparison of
// day strings equivalent to date comparison.
func ValidDay(s string) bool {
	if len(s) != len(dayLayout) {
		return false
	}
	_, err := time.Parse(dayLayout, s)
	return err == nil
}

// DayOf formats the timestamp as a JST calendar day.
func DayOf(t time.Time) string {
	return t.In(jst).Format(dayLayout)
}

// Today returns the current JST calendar day.
func Today() string {
	return DayOf(time.Now())
}

// MonthRange returns the first and last day of the month containing
// the given day, both inclusive.
func MonthRange(day string) (start, end string, err error) {
	t, err := time.ParseInLocation(dayLayout, day, jst)
	if err != nil {
		return "", "", fmt.Errorf("parse day %q: %w", day, err)
	}
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, jst)
	last := first.AddDate(0, 1, -1)
	return first.Format(dayLayout), last.Format(dayLayout), nil
}
