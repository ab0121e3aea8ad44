package util

import "time"

// DayKeyLayout is the layout used for settlement-date keys.
const DayKeyLayout = "2006-01-02"

// TruncateDay returns midnight UTC of the day t falls on.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays returns the UTC day n days after t.
func AddDays(t time.Time, n int) time.Time {
	return TruncateDay(t).AddDate(0, 0, n)
}

// DayKey formats the settlement day of t.
func DayKey(t time.Time) string {
	return TruncateDay(t).Format(DayKeyLayout)
}

// TimePointer converts a time.Time to a pointer to a time.Time.
func TimePointer(t time.Time) *time.Time {
	return &t
}
