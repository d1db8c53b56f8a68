package scheduler

import (
	"slices"
	"time"

	"github.com/example/bizdesk/internal/daytime"
)

// SlotInterval is the spacing in minutes between candidate booking slots.
const SlotInterval = 30

// Window is an opening period expressed as "HH:MM" wall-clock bounds.
type Window struct {
	Start string
	End   string
}

// DaySchedule configures the opening window of a single weekday.
type DaySchedule struct {
	Enabled bool
	Start   string
	End     string
}

// TimeRange is a recurring daily block such as a lunch break. It applies to
// every date regardless of the weekday schedule.
type TimeRange struct {
	Start string
	End   string
}

// Rules is the subset of business settings that drives availability.
type Rules struct {
	MeetingDuration int
	// Hours is the global opening window used when a weekday has no schedule
	// entry of its own or its entry carries no usable times.
	Hours Window
	// AvailableDays is the legacy open-weekday list, consulted only for
	// weekdays missing from DaySchedules.
	AvailableDays []time.Weekday
	DaySchedules  map[time.Weekday]DaySchedule
	BlockedDates  []string
	BlockedTimes  []TimeRange
}

// Meeting is the availability view of an agenda entry.
type Meeting struct {
	ID        string
	Date      string
	Time      string
	Duration  int
	Cancelled bool
}

// Engine answers availability questions for booking screens. It keeps no
// state between calls apart from the injected clock.
type Engine struct {
	now      func() time.Time
	location *time.Location
}

// NewEngine constructs an Engine. The location only decides which calendar
// day counts as today; slot arithmetic is zone-less wall-clock time.
func NewEngine(now func() time.Time, loc *time.Location) *Engine {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	return &Engine{now: now, location: loc}
}

// Today returns the current calendar day as "YYYY-MM-DD".
func (e *Engine) Today() string {
	return daytime.Today(e.now(), e.location)
}

// IsDateAvailable reports whether bookings may be placed on date. Unparsable
// dates, past dates and blocked dates are never available.
func (e *Engine) IsDateAvailable(date string, rules Rules) bool {
	weekday, err := daytime.Weekday(date)
	if err != nil {
		return false
	}
	if daytime.Before(date, e.Today()) {
		return false
	}
	if isBlockedDate(date, rules.BlockedDates) {
		return false
	}
	if schedule, ok := rules.DaySchedules[weekday]; ok {
		return schedule.Enabled
	}
	return slices.Contains(rules.AvailableDays, weekday)
}

// OpeningHours resolves the effective opening window of date in minutes.
// The weekday schedule wins when it is enabled and carries valid times; the
// global hours are used otherwise.
func (e *Engine) OpeningHours(date string, rules Rules) (openAt, closeAt int, ok bool) {
	weekday, err := daytime.Weekday(date)
	if err != nil {
		return 0, 0, false
	}
	if schedule, found := rules.DaySchedules[weekday]; found && schedule.Enabled {
		if openAt, closeAt, ok = parseWindow(schedule.Start, schedule.End); ok {
			return openAt, closeAt, true
		}
	}
	return parseWindow(rules.Hours.Start, rules.Hours.End)
}

// GenerateSlots lists the free start times on date in ascending order. The
// grid starts at the opening time and advances by SlotInterval while a full
// meeting still fits before closing. An empty, non-nil slice is returned when
// nothing is bookable.
func (e *Engine) GenerateSlots(date string, rules Rules, meetings []Meeting) []string {
	slots := make([]string, 0)
	if rules.MeetingDuration <= 0 || !e.IsDateAvailable(date, rules) {
		return slots
	}
	openAt, closeAt, ok := e.OpeningHours(date, rules)
	if !ok {
		return slots
	}

	occupied := occupiedRanges(date, rules, meetings)
	for start := openAt; start+rules.MeetingDuration <= closeAt; start += SlotInterval {
		if rangeFree(start, start+rules.MeetingDuration, occupied) {
			slots = append(slots, daytime.FormatClock(start))
		}
	}
	return slots
}

// IsSlotFree reports whether [start, start+duration) on date avoids every
// non-cancelled meeting of that date and every recurring blocked range. A zero
// duration falls back to the configured meeting duration.
func (e *Engine) IsSlotFree(date, start string, duration int, rules Rules, meetings []Meeting) bool {
	begin, err := daytime.ParseClock(start)
	if err != nil {
		return false
	}
	if duration <= 0 {
		duration = rules.MeetingDuration
	}
	if duration <= 0 {
		return false
	}
	return rangeFree(begin, begin+duration, occupiedRanges(date, rules, meetings))
}

// IsSlotOffered reports whether start is one of the slots GenerateSlots would
// produce for date.
func (e *Engine) IsSlotOffered(date, start string, rules Rules, meetings []Meeting) bool {
	minutes, err := daytime.ParseClock(start)
	if err != nil {
		return false
	}
	return slices.Contains(e.GenerateSlots(date, rules, meetings), daytime.FormatClock(minutes))
}

type minuteRange struct {
	start int
	end   int
}

func occupiedRanges(date string, rules Rules, meetings []Meeting) []minuteRange {
	ranges := make([]minuteRange, 0, len(meetings)+len(rules.BlockedTimes))
	for _, meeting := range meetings {
		if meeting.Cancelled || meeting.Date != date {
			continue
		}
		r, ok := meetingRange(meeting, rules.MeetingDuration)
		if !ok {
			continue
		}
		ranges = append(ranges, r)
	}
	for _, block := range rules.BlockedTimes {
		start, end, ok := parseWindow(block.Start, block.End)
		if !ok {
			continue
		}
		ranges = append(ranges, minuteRange{start: start, end: end})
	}
	return ranges
}

func meetingRange(meeting Meeting, defaultDuration int) (minuteRange, bool) {
	start, err := daytime.ParseClock(meeting.Time)
	if err != nil {
		return minuteRange{}, false
	}
	duration := meeting.Duration
	if duration <= 0 {
		duration = defaultDuration
	}
	if duration <= 0 {
		return minuteRange{}, false
	}
	return minuteRange{start: start, end: start + duration}, true
}

func rangeFree(start, end int, occupied []minuteRange) bool {
	for _, r := range occupied {
		if daytime.Overlaps(start, end, r.start, r.end) {
			return false
		}
	}
	return true
}

func parseWindow(startValue, endValue string) (int, int, bool) {
	start, err := daytime.ParseClock(startValue)
	if err != nil {
		return 0, 0, false
	}
	end, err := daytime.ParseClock(endValue)
	if err != nil {
		return 0, 0, false
	}
	if start >= end {
		return 0, 0, false
	}
	return start, end, true
}

func isBlockedDate(date string, blocked []string) bool {
	return slices.Contains(blocked, date)
}
