// Package daytime converts the wall-clock strings stored in business data
// ("HH:MM" times and "YYYY-MM-DD" dates) into arithmetic friendly values.
//
// All values are interpreted in a single implicit zone; no conversion between
// time zones is ever performed.
package daytime

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// DateLayout is the calendar day format used throughout the aggregate.
	DateLayout = "2006-01-02"
	// MinutesPerDay bounds every minute offset produced by ParseClock.
	MinutesPerDay = 24 * 60
)

var (
	// ErrInvalidClock is returned when a time of day is not "HH:MM".
	ErrInvalidClock = errors.New("daytime: invalid time of day")
	// ErrInvalidDate is returned when a date is not "YYYY-MM-DD".
	ErrInvalidDate = errors.New("daytime: invalid date")
)

// ParseClock converts "HH:MM" to minutes after midnight. "24:00" is accepted
// as the end of the day so closing times can reach midnight.
func ParseClock(value string) (int, error) {
	value = strings.TrimSpace(value)
	hh, mm, ok := strings.Cut(value, ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hours, err := strconv.Atoi(hh)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	minutes, err := strconv.Atoi(mm)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	total := hours*60 + minutes
	if total > MinutesPerDay {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return total, nil
}

// FormatClock renders minutes after midnight as zero padded "HH:MM".
func FormatClock(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseDate parses a "YYYY-MM-DD" calendar day at midnight in loc.
func ParseDate(value string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	day, err := time.ParseInLocation(DateLayout, strings.TrimSpace(value), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return day, nil
}

// FormatDate renders the calendar day of t as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Today returns the calendar day of now expressed in loc.
func Today(now time.Time, loc *time.Location) string {
	if loc != nil {
		now = now.In(loc)
	}
	return FormatDate(now)
}

// Weekday returns the day of week for a "YYYY-MM-DD" date, 0 = Sunday.
func Weekday(value string) (time.Weekday, error) {
	day, err := ParseDate(value, time.UTC)
	if err != nil {
		return 0, err
	}
	return day.Weekday(), nil
}

// AddDays shifts a "YYYY-MM-DD" date by n calendar days.
func AddDays(value string, n int) (string, error) {
	day, err := ParseDate(value, time.UTC)
	if err != nil {
		return "", err
	}
	return FormatDate(day.AddDate(0, 0, n)), nil
}

// Before reports whether date a falls strictly before date b. Both must be
// "YYYY-MM-DD"; the fixed width layout makes lexical order chronological.
func Before(a, b string) bool {
	return a < b
}

// Overlaps reports whether [s1,e1) and [s2,e2) share at least one minute.
// Ranges that only touch at an endpoint do not overlap.
func Overlaps(s1, e1, s2, e2 int) bool {
	return max(s1, s2) < min(e1, e2)
}
