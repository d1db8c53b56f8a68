package application

import (
	"context"
	"sort"
	"time"

	"github.com/example/bizdesk/internal/daytime"
	"github.com/example/bizdesk/internal/scheduler"
)

var meetingRecords = collection[Meeting]{
	name:   "meeting",
	get:    func(d *StoredData) []Meeting { return d.Meetings },
	set:    func(d *StoredData, v []Meeting) { d.Meetings = v },
	id:     func(m *Meeting) *string { return &m.ID },
	stamps: func(m *Meeting) (*time.Time, *time.Time) { return &m.CreatedAt, &m.UpdatedAt },
}

func prepareMeeting(d *StoredData, m *Meeting) {
	if m.Status == "" {
		m.Status = MeetingScheduled
	}
	if m.Duration <= 0 {
		m.Duration = d.Settings.MeetingDuration
	}
	m.Time = normalizeMeetingTime(m.Time)
}

// normalizeMeetingTime zero pads valid times ("9:00" becomes "09:00") and
// leaves anything else untouched.
func normalizeMeetingTime(value string) string {
	minutes, err := daytime.ParseClock(value)
	if err != nil {
		return value
	}
	return daytime.FormatClock(minutes)
}

// AddMeeting appends an agenda entry without checking availability; the
// booking flow validates before calling it. Status defaults to scheduled and
// duration to the configured meeting length.
func (s *Store) AddMeeting(ctx context.Context, meeting Meeting) Meeting {
	created, _ := createRecord(s, ctx, meetingRecords, meeting, func(d *StoredData, m *Meeting) error {
		prepareMeeting(d, m)
		return nil
	})
	return created
}

// AddMeetingChecked appends meeting only if a user is bound and check accepts
// the aggregate it would be added to. Both run under the store lock, so
// nothing can claim the slot or unbind the workspace between the check and
// the insert. check may complete m but must not modify d. Without a bound
// user it fails with ErrWorkspaceOffline, since the meeting would never be
// saved.
func (s *Store) AddMeetingChecked(ctx context.Context, meeting Meeting, check func(d StoredData, m *Meeting) error) (Meeting, error) {
	return createRecord(s, ctx, meetingRecords, meeting, func(d *StoredData, m *Meeting) error {
		// mutate holds s.mu while this runs.
		if s.userID == "" {
			return ErrWorkspaceOffline
		}
		prepareMeeting(d, m)
		if check == nil {
			return nil
		}
		return check(*d, m)
	})
}

// UpdateMeeting merges patch into the meeting with id.
func (s *Store) UpdateMeeting(ctx context.Context, id string, patch func(*Meeting)) (Meeting, bool) {
	return updateRecord(s, ctx, meetingRecords, id, patch, func(_ *StoredData, _ Meeting, after *Meeting) {
		after.Time = normalizeMeetingTime(after.Time)
	})
}

// DeleteMeeting removes the meeting with id.
func (s *Store) DeleteMeeting(ctx context.Context, id string) bool {
	return deleteRecord(s, ctx, meetingRecords, id)
}

// Meeting returns the meeting with id.
func (s *Store) Meeting(id string) (Meeting, bool) {
	return findRecord(s, meetingRecords, id)
}

// Meetings returns every meeting in insertion order.
func (s *Store) Meetings() []Meeting {
	return listRecords(s, meetingRecords)
}

// SetMeetingStatus changes only the status of the meeting with id.
func (s *Store) SetMeetingStatus(ctx context.Context, id string, status MeetingStatus) (Meeting, bool) {
	return s.UpdateMeeting(ctx, id, func(m *Meeting) {
		m.Status = status
	})
}

// CancelMeeting marks the meeting cancelled, which frees its slot.
func (s *Store) CancelMeeting(ctx context.Context, id string) (Meeting, bool) {
	return s.SetMeetingStatus(ctx, id, MeetingCancelled)
}

// RescheduleMeeting moves the meeting to a new date and time and makes it
// scheduled again.
func (s *Store) RescheduleMeeting(ctx context.Context, id, date, clock string) (Meeting, bool) {
	return s.UpdateMeeting(ctx, id, func(m *Meeting) {
		m.Date = date
		m.Time = clock
		m.Status = MeetingScheduled
	})
}

// MeetingsOn returns the meetings of one date ordered by start time.
func (s *Store) MeetingsOn(date string) []Meeting {
	var out []Meeting
	for _, m := range s.Meetings() {
		if m.Date == date {
			out = append(out, m)
		}
	}
	sortMeetings(out)
	return out
}

// AvailabilityRules converts settings into the engine's rule set.
func (b BusinessSettings) AvailabilityRules() scheduler.Rules {
	rules := scheduler.Rules{
		MeetingDuration: b.MeetingDuration,
		Hours:           scheduler.Window{Start: b.AvailableHours.Start, End: b.AvailableHours.End},
		AvailableDays:   append([]time.Weekday(nil), b.AvailableDays...),
	}
	if len(b.DaySchedules) > 0 {
		rules.DaySchedules = make(map[time.Weekday]scheduler.DaySchedule, len(b.DaySchedules))
		for day, schedule := range b.DaySchedules {
			rules.DaySchedules[day] = scheduler.DaySchedule{
				Enabled: schedule.Enabled,
				Start:   schedule.StartTime,
				End:     schedule.EndTime,
			}
		}
	}
	for _, blocked := range b.BlockedDates {
		rules.BlockedDates = append(rules.BlockedDates, blocked.Date)
	}
	for _, slot := range b.BlockedTimeSlots {
		rules.BlockedTimes = append(rules.BlockedTimes, scheduler.TimeRange{Start: slot.StartTime, End: slot.EndTime})
	}
	return rules
}

func toSchedulerMeetings(meetings []Meeting) []scheduler.Meeting {
	out := make([]scheduler.Meeting, 0, len(meetings))
	for _, m := range meetings {
		out = append(out, toSchedulerMeeting(m))
	}
	return out
}

func toSchedulerMeeting(m Meeting) scheduler.Meeting {
	return scheduler.Meeting{
		ID:        m.ID,
		Date:      m.Date,
		Time:      m.Time,
		Duration:  m.Duration,
		Cancelled: m.Status == MeetingCancelled,
	}
}

// sortMeetings orders by date, then by start minute. Times stored before
// normalisation still sort correctly; unparsable times go last.
func sortMeetings(meetings []Meeting) {
	start := func(m Meeting) int {
		minutes, err := daytime.ParseClock(m.Time)
		if err != nil {
			return daytime.MinutesPerDay + 1
		}
		return minutes
	}
	sort.SliceStable(meetings, func(i, j int) bool {
		if meetings[i].Date != meetings[j].Date {
			return meetings[i].Date < meetings[j].Date
		}
		return start(meetings[i]) < start(meetings[j])
	})
}
