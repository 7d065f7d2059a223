package domain

import (
	"fmt"
	"time"
)

// DateLayout is the canonical YYYY-MM-DD date format used in storage.
const DateLayout = "2006-01-02"

// WeekStart returns Monday 00:00 of the week containing t, in t's location.
func WeekStart(t time.Time) time.Time {
	daysSinceMonday := (int(t.Weekday()) + 6) % 7
	monday := t.AddDate(0, 0, -daysSinceMonday)
	return time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, t.Location())
}

// PreviousWeekStart returns Monday of the week before the one containing t.
func PreviousWeekStart(t time.Time) time.Time {
	return WeekStart(t).AddDate(0, 0, -7)
}

// WeekEnd returns the Sunday that closes the week starting at weekStart.
func WeekEnd(weekStart time.Time) time.Time {
	return weekStart.AddDate(0, 0, 6)
}

// WeekKey builds the report key for a week, e.g. "2025_week_03".
func WeekKey(weekStart time.Time) string {
	year, week := weekStart.ISOWeek()
	return fmt.Sprintf("%d_week_%02d", year, week)
}

// ParseWeekStart parses a stored YYYY-MM-DD week start date.
func ParseWeekStart(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

// FormatWeekRange renders a human header like "Week of January 15-21, 2025".
func FormatWeekRange(weekStart time.Time) string {
	end := WeekEnd(weekStart)
	if weekStart.Month() == end.Month() {
		return fmt.Sprintf("Week of %s-%s", weekStart.Format("January 2"), end.Format("2, 2006"))
	}
	return fmt.Sprintf("Week of %s - %s", weekStart.Format("January 2"), end.Format("January 2, 2006"))
}
