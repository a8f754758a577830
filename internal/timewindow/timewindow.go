// Package timewindow computes calendar-day boundaries in a fixed UTC offset,
// independent of the host time zone.
package timewindow

import (
	"fmt"
	"time"

	"Mansoor88-6/activity-hub/internal/models"
)

// Zone returns a fixed zone for the given offset in minutes east of UTC.
func Zone(offsetMinutes int) *time.Location {
	sign := "+"
	m := offsetMinutes
	if m < 0 {
		sign = "-"
		m = -m
	}
	return time.FixedZone(fmt.Sprintf("UTC%s%02d:%02d", sign, m/60, m%60), offsetMinutes*60)
}

// DayBounds returns the half-open [start, end) of the calendar day that
// contains date when observed at offsetMinutes east of UTC. When date is nil
// the day containing now is used.
func DayBounds(offsetMinutes int, date *time.Time, now time.Time) models.TimeRange {
	ref := now
	if date != nil {
		ref = *date
	}
	local := ref.In(Zone(offsetMinutes))
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
	end := start.AddDate(0, 0, 1)
	return models.TimeRange{From: start.UTC(), To: end.UTC()}
}

// CalendarDay returns the bounds of a specific calendar date (year, month,
// day as written in the offset zone).
func CalendarDay(offsetMinutes int, year int, month time.Month, day int) models.TimeRange {
	start := time.Date(year, month, day, 0, 0, 0, 0, Zone(offsetMinutes))
	return models.TimeRange{From: start.UTC(), To: start.AddDate(0, 0, 1).UTC()}
}
