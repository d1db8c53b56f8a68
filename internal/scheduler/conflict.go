package scheduler

import (
	"sort"

	"github.com/example/bizdesk/internal/daytime"
)

// Conflict details an overlapping meeting pair that callers can present to users.
type Conflict struct {
	MeetingID     string `json:"meetingId"`
	WithMeetingID string `json:"withMeetingId"`
	Date          string `json:"date"`
	OverlapStart  string `json:"overlapStart"`
	OverlapEnd    string `json:"overlapEnd"`
}

// DetectConflicts identifies existing meetings that overlap the candidate.
// Cancelled meetings on either side never conflict, and neither does a
// meeting with itself.
func DetectConflicts(existing []Meeting, candidate Meeting, defaultDuration int) []Conflict {
	if candidate.Cancelled {
		return nil
	}
	target, ok := meetingRange(candidate, defaultDuration)
	if !ok {
		return nil
	}

	var conflicts []Conflict
	for _, other := range existing {
		if other.Cancelled || other.Date != candidate.Date {
			continue
		}
		if other.ID != "" && other.ID == candidate.ID {
			continue
		}
		r, ok := meetingRange(other, defaultDuration)
		if !ok || !daytime.Overlaps(target.start, target.end, r.start, r.end) {
			continue
		}
		conflicts = append(conflicts, Conflict{
			MeetingID:     candidate.ID,
			WithMeetingID: other.ID,
			Date:          candidate.Date,
			OverlapStart:  daytime.FormatClock(max(target.start, r.start)),
			OverlapEnd:    daytime.FormatClock(min(target.end, r.end)),
		})
	}
	return conflicts
}

// FindConflicts reports every overlapping pair of active meetings, ordered by
// date and start time. Each pair is reported once.
func FindConflicts(meetings []Meeting, defaultDuration int) []Conflict {
	type entry struct {
		meeting Meeting
		r       minuteRange
	}

	byDate := make(map[string][]entry)
	for _, meeting := range meetings {
		if meeting.Cancelled {
			continue
		}
		r, ok := meetingRange(meeting, defaultDuration)
		if !ok {
			continue
		}
		byDate[meeting.Date] = append(byDate[meeting.Date], entry{meeting: meeting, r: r})
	}

	dates := make([]string, 0, len(byDate))
	for date := range byDate {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var conflicts []Conflict
	for _, date := range dates {
		entries := byDate[date]
		sort.SliceStable(entries, func(i, j int) bool {
			return entries[i].r.start < entries[j].r.start
		})
		for i := range entries {
			for j := i + 1; j < len(entries); j++ {
				// Sorted by start, so later entries cannot overlap either.
				if entries[j].r.start >= entries[i].r.end {
					break
				}
				conflicts = append(conflicts, Conflict{
					MeetingID:     entries[i].meeting.ID,
					WithMeetingID: entries[j].meeting.ID,
					Date:          date,
					OverlapStart:  daytime.FormatClock(entries[j].r.start),
					OverlapEnd:    daytime.FormatClock(min(entries[i].r.end, entries[j].r.end)),
				})
			}
		}
	}
	return conflicts
}
