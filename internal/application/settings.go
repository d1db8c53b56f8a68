package application

import (
	"context"
	"maps"
	"slices"
	"time"
)

// Settings returns a copy of the business settings.
func (s *Store) Settings() BusinessSettings {
	var out BusinessSettings
	s.view(func(d *StoredData) {
		out = d.Settings.clone()
	})
	return out
}

// UpdateSettings applies patch to a private copy of the settings and
// checkpoints. A non-positive meeting duration keeps the previous value.
func (s *Store) UpdateSettings(ctx context.Context, patch func(*BusinessSettings)) BusinessSettings {
	var result BusinessSettings
	_, _ = s.mutate(ctx, "update_settings", func(d *StoredData, _ time.Time) error {
		next := d.Settings.clone()
		if patch != nil {
			patch(&next)
		}
		if next.MeetingDuration <= 0 {
			next.MeetingDuration = d.Settings.MeetingDuration
		}
		next.BlockedDates = nonNil(next.BlockedDates)
		next.BlockedTimeSlots = nonNil(next.BlockedTimeSlots)
		d.Settings = next
		result = next.clone()
		return nil
	})
	return result
}

// AddBlockedDate closes date for bookings. Blocking an already blocked date
// is a no-op that returns the existing entry.
func (s *Store) AddBlockedDate(ctx context.Context, date, reason string) BlockedDate {
	var result BlockedDate
	_, _ = s.mutate(ctx, "add_blocked_date", func(d *StoredData, _ time.Time) error {
		for _, blocked := range d.Settings.BlockedDates {
			if blocked.Date == date {
				result = blocked
				return errNoChange
			}
		}
		result = BlockedDate{ID: s.idGenerator(), Date: date, Reason: reason}
		d.Settings = d.Settings.clone()
		d.Settings.BlockedDates = append(d.Settings.BlockedDates, result)
		return nil
	})
	return result
}

// RemoveBlockedDate deletes the blocked date entry with id.
func (s *Store) RemoveBlockedDate(ctx context.Context, id string) bool {
	applied, _ := s.mutate(ctx, "remove_blocked_date", func(d *StoredData, _ time.Time) error {
		i := slices.IndexFunc(d.Settings.BlockedDates, func(b BlockedDate) bool { return b.ID == id })
		if i < 0 {
			return errNoChange
		}
		d.Settings = d.Settings.clone()
		d.Settings.BlockedDates = slices.Delete(d.Settings.BlockedDates, i, i+1)
		return nil
	})
	return applied
}

// AddBlockedTimeSlot adds a recurring daily block.
func (s *Store) AddBlockedTimeSlot(ctx context.Context, startTime, endTime, reason string) BlockedTimeSlot {
	var result BlockedTimeSlot
	_, _ = s.mutate(ctx, "add_blocked_time_slot", func(d *StoredData, _ time.Time) error {
		result = BlockedTimeSlot{ID: s.idGenerator(), StartTime: startTime, EndTime: endTime, Reason: reason}
		d.Settings = d.Settings.clone()
		d.Settings.BlockedTimeSlots = append(d.Settings.BlockedTimeSlots, result)
		return nil
	})
	return result
}

// RemoveBlockedTimeSlot deletes the recurring block with id.
func (s *Store) RemoveBlockedTimeSlot(ctx context.Context, id string) bool {
	applied, _ := s.mutate(ctx, "remove_blocked_time_slot", func(d *StoredData, _ time.Time) error {
		i := slices.IndexFunc(d.Settings.BlockedTimeSlots, func(b BlockedTimeSlot) bool { return b.ID == id })
		if i < 0 {
			return errNoChange
		}
		d.Settings = d.Settings.clone()
		d.Settings.BlockedTimeSlots = slices.Delete(d.Settings.BlockedTimeSlots, i, i+1)
		return nil
	})
	return applied
}

// SetDaySchedule replaces the schedule of one weekday.
func (s *Store) SetDaySchedule(ctx context.Context, day time.Weekday, schedule DaySchedule) BusinessSettings {
	return s.UpdateSettings(ctx, func(settings *BusinessSettings) {
		schedules := maps.Clone(settings.DaySchedules)
		if schedules == nil {
			schedules = make(map[time.Weekday]DaySchedule, 1)
		}
		schedules[day] = schedule
		settings.DaySchedules = schedules
	})
}
