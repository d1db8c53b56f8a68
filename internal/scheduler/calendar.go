package scheduler

import (
	"errors"
	"time"

	"github.com/example/bizdesk/internal/daytime"
)

// MaxCalendarDays bounds the window a single Calendar call may expand.
const MaxCalendarDays = 93

// ErrInvalidWindow indicates the requested calendar window is empty or too large.
var ErrInvalidWindow = errors.New("scheduler: calendar window must span 1 to 93 days")

// Day summarises availability of one calendar day.
type Day struct {
	Date    string       `json:"date"`
	Weekday time.Weekday `json:"weekday"`
	Open    bool         `json:"open"`
	Slots   []string     `json:"slots"`
}

// Calendar expands availability over days consecutive dates starting at from.
// Closed days are included with Open=false so callers can render a full grid.
func (e *Engine) Calendar(from string, days int, rules Rules, meetings []Meeting) ([]Day, error) {
	if days <= 0 || days > MaxCalendarDays {
		return nil, ErrInvalidWindow
	}
	start, err := daytime.ParseDate(from, time.UTC)
	if err != nil {
		return nil, err
	}

	calendar := make([]Day, 0, days)
	for offset := range days {
		current := start.AddDate(0, 0, offset)
		date := daytime.FormatDate(current)
		slots := e.GenerateSlots(date, rules, meetings)
		calendar = append(calendar, Day{
			Date:    date,
			Weekday: current.Weekday(),
			Open:    e.IsDateAvailable(date, rules),
			Slots:   slots,
		})
	}
	return calendar, nil
}

// NextAvailable returns the first day on or after from that has at least one
// free slot, searching at most MaxCalendarDays ahead.
func (e *Engine) NextAvailable(from string, rules Rules, meetings []Meeting) (Day, bool) {
	calendar, err := e.Calendar(from, MaxCalendarDays, rules, meetings)
	if err != nil {
		return Day{}, false
	}
	for _, day := range calendar {
		if len(day.Slots) > 0 {
			return day, true
		}
	}
	return Day{}, false
}
