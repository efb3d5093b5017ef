// Package localtime converts wall-clock UTC time into a user's local
// time from a whole-hour timezone offset. Pure functions, so scheduling
// logic can be tested without timers.
package localtime

import "time"

// At returns the user's local time for the given UTC instant
func At(utc time.Time, tzOffset int) time.Time {
	return utc.Add(time.Duration(tzOffset) * time.Hour)
}

// Day truncates a local time to its calendar date
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// DayAt returns the user's local calendar date for the given UTC instant
func DayAt(utc time.Time, tzOffset int) time.Time {
	return Day(At(utc, tzOffset))
}

// SameDay reports whether two instants fall on the same calendar date
func SameDay(a, b time.Time) bool {
	return Day(a).Equal(Day(b))
}

// InWindow reports whether the local hour falls inside [left, right)
func InWindow(local time.Time, left, right int) bool {
	hour := local.Hour()
	return hour >= left && hour < right
}

// ValidOffset reports whether a whole-hour offset is a real timezone
func ValidOffset(offset int) bool {
	return offset >= -12 && offset <= 14
}
