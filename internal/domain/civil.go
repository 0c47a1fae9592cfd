package domain

import (
	"errors"
	"time"
)

const (
	DateLayout      = "2006-01-02"
	TimeOfDayLayout = "15:04"
)

var (
	ErrInvalidDate      = errors.New("date must be YYYY-MM-DD")
	ErrInvalidTimeOfDay = errors.New("time must be HH:MM")
)

// ParseDate parses a calendar day. The result is midnight UTC so it round-trips
// through a DATE column unchanged.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return d, nil
}

func FormatDate(d time.Time) string {
	return d.Format(DateLayout)
}

// DateOf truncates t to its calendar day in t's own location.
func DateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseTimeOfDay validates and normalizes an HH:MM time of day ("9:05" -> "09:05").
func ParseTimeOfDay(s string) (string, error) {
	t, err := time.Parse(TimeOfDayLayout, s)
	if err != nil {
		return "", ErrInvalidTimeOfDay
	}
	return t.Format(TimeOfDayLayout), nil
}

// CivilTime combines a calendar day and an HH:MM time of day in loc.
func CivilTime(date time.Time, timeOfDay string, loc *time.Location) (time.Time, error) {
	t, err := time.Parse(TimeOfDayLayout, timeOfDay)
	if err != nil {
		return time.Time{}, ErrInvalidTimeOfDay
	}
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, loc), nil
}

func IsWeekend(d time.Time) bool {
	wd := d.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
