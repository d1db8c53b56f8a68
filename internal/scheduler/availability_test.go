package scheduler

import (
	"slices"
	"testing"
	"time"
)

// Tuesday 2024-01-02; 2024-01-08 is the following Monday.
var referenceNow = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

const nextMonday = "2024-01-08"

func newTestEngine() *Engine {
	return NewEngine(func() time.Time { return referenceNow }, time.UTC)
}

func weekdayRules(duration int) Rules {
	schedules := make(map[time.Weekday]DaySchedule, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		enabled := day != time.Saturday && day != time.Sunday
		schedules[day] = DaySchedule{Enabled: enabled, Start: "09:00", End: "18:00"}
	}
	return Rules{
		MeetingDuration: duration,
		Hours:           Window{Start: "09:00", End: "18:00"},
		DaySchedules:    schedules,
	}
}

func TestEngine_GenerateSlots(t *testing.T) {
	t.Parallel()

	t.Run("full weekday at thirty minute meetings", func(t *testing.T) {
		t.Parallel()
		slots := newTestEngine().GenerateSlots(nextMonday, weekdayRules(30), nil)
		if len(slots) != 18 {
			t.Fatalf("expected 18 slots, got %d: %v", len(slots), slots)
		}
		if slots[0] != "09:00" || slots[len(slots)-1] != "17:30" {
			t.Fatalf("unexpected bounds %s..%s", slots[0], slots[len(slots)-1])
		}
		for i := 1; i < len(slots); i++ {
			if slots[i-1] >= slots[i] {
				t.Fatalf("slots not ascending: %v", slots)
			}
		}
	})

	t.Run("existing meeting removes overlapping starts only", func(t *testing.T) {
		t.Parallel()
		meetings := []Meeting{{ID: "m1", Date: nextMonday, Time: "10:00", Duration: 60}}
		slots := newTestEngine().GenerateSlots(nextMonday, weekdayRules(60), meetings)

		for _, want := range []string{"09:00", "11:00", "17:00"} {
			if !slices.Contains(slots, want) {
				t.Fatalf("expected %s to be offered, got %v", want, slots)
			}
		}
		for _, blocked := range []string{"09:30", "10:00", "10:30"} {
			if slices.Contains(slots, blocked) {
				t.Fatalf("expected %s to be excluded, got %v", blocked, slots)
			}
		}
		if len(slots) != 14 {
			t.Fatalf("expected 14 slots, got %d", len(slots))
		}
	})

	t.Run("meeting on another date does not interfere", func(t *testing.T) {
		t.Parallel()
		meetings := []Meeting{{ID: "m1", Date: "2024-01-09", Time: "10:00", Duration: 60}}
		slots := newTestEngine().GenerateSlots(nextMonday, weekdayRules(30), meetings)
		if len(slots) != 18 {
			t.Fatalf("expected other dates to be ignored, got %d slots", len(slots))
		}
	})

	t.Run("cancelled meeting frees its slot", func(t *testing.T) {
		t.Parallel()
		engine := newTestEngine()
		meetings := []Meeting{{ID: "m1", Date: nextMonday, Time: "10:00", Duration: 30}}
		if slices.Contains(engine.GenerateSlots(nextMonday, weekdayRules(30), meetings), "10:00") {
			t.Fatal("expected 10:00 to be occupied")
		}
		meetings[0].Cancelled = true
		if !slices.Contains(engine.GenerateSlots(nextMonday, weekdayRules(30), meetings), "10:00") {
			t.Fatal("expected cancelled meeting to free 10:00")
		}
	})

	t.Run("disabled weekday yields nothing", func(t *testing.T) {
		t.Parallel()
		rules := weekdayRules(30)
		rules.BlockedTimes = []TimeRange{{Start: "12:00", End: "13:00"}}
		slots := newTestEngine().GenerateSlots("2024-01-06", rules, nil)
		if slots == nil || len(slots) != 0 {
			t.Fatalf("expected empty non-nil slice for Saturday, got %#v", slots)
		}
	})

	t.Run("recurring block applies every open day", func(t *testing.T) {
		t.Parallel()
		rules := weekdayRules(60)
		rules.BlockedTimes = []TimeRange{{Start: "12:00", End: "13:00"}}
		for _, date := range []string{nextMonday, "2024-01-10"} {
			slots := newTestEngine().GenerateSlots(date, rules, nil)
			for _, excluded := range []string{"11:30", "12:00", "12:30"} {
				if slices.Contains(slots, excluded) {
					t.Fatalf("%s: expected %s to be blocked, got %v", date, excluded, slots)
				}
			}
			if !slices.Contains(slots, "11:00") || !slices.Contains(slots, "13:00") {
				t.Fatalf("%s: expected slots abutting the block, got %v", date, slots)
			}
		}
	})

	t.Run("meeting longer than the window yields nothing", func(t *testing.T) {
		t.Parallel()
		rules := weekdayRules(600)
		if slots := newTestEngine().GenerateSlots(nextMonday, rules, nil); len(slots) != 0 {
			t.Fatalf("expected no slots, got %v", slots)
		}
	})

	t.Run("weekday schedule hours override global hours", func(t *testing.T) {
		t.Parallel()
		rules := weekdayRules(60)
		rules.DaySchedules[time.Saturday] = DaySchedule{Enabled: true, Start: "10:00", End: "12:00"}
		slots := newTestEngine().GenerateSlots("2024-01-06", rules, nil)
		want := []string{"10:00", "10:30", "11:00"}
		if !slices.Equal(slots, want) {
			t.Fatalf("expected %v, got %v", want, slots)
		}
	})

	t.Run("enabled schedule without times uses global hours", func(t *testing.T) {
		t.Parallel()
		rules := weekdayRules(60)
		rules.Hours = Window{Start: "13:00", End: "15:00"}
		rules.DaySchedules[time.Saturday] = DaySchedule{Enabled: true}
		slots := newTestEngine().GenerateSlots("2024-01-06", rules, nil)
		want := []string{"13:00", "13:30", "14:00"}
		if !slices.Equal(slots, want) {
			t.Fatalf("expected %v, got %v", want, slots)
		}
	})

	t.Run("meeting without duration occupies the default length", func(t *testing.T) {
		t.Parallel()
		meetings := []Meeting{{ID: "m1", Date: nextMonday, Time: "09:00"}}
		slots := newTestEngine().GenerateSlots(nextMonday, weekdayRules(60), meetings)
		if slices.Contains(slots, "09:30") || !slices.Contains(slots, "10:00") {
			t.Fatalf("expected default duration to apply, got %v", slots)
		}
	})
}

func TestEngine_IsDateAvailable(t *testing.T) {
	t.Parallel()

	engine := newTestEngine()

	t.Run("past dates fail closed", func(t *testing.T) {
		t.Parallel()
		if engine.IsDateAvailable("2024-01-01", weekdayRules(30)) {
			t.Fatal("expected yesterday to be unavailable")
		}
		if !engine.IsDateAvailable("2024-01-02", weekdayRules(30)) {
			t.Fatal("expected today to be available")
		}
	})

	t.Run("blocked date is unavailable", func(t *testing.T) {
		t.Parallel()
		rules := weekdayRules(30)
		rules.BlockedDates = []string{nextMonday}
		if engine.IsDateAvailable(nextMonday, rules) {
			t.Fatal("expected blocked date to be unavailable")
		}
		if slots := engine.GenerateSlots(nextMonday, rules, nil); len(slots) != 0 {
			t.Fatalf("expected no slots on blocked date, got %v", slots)
		}
	})

	t.Run("malformed date is unavailable", func(t *testing.T) {
		t.Parallel()
		if engine.IsDateAvailable("next monday", weekdayRules(30)) {
			t.Fatal("expected malformed date to be rejected")
		}
	})

	t.Run("legacy days apply only when schedule entry is absent", func(t *testing.T) {
		t.Parallel()
		rules := weekdayRules(30)
		delete(rules.DaySchedules, time.Saturday)
		rules.AvailableDays = []time.Weekday{time.Saturday, time.Sunday}
		if !engine.IsDateAvailable("2024-01-06", rules) {
			t.Fatal("expected legacy list to open Saturday")
		}
		if engine.IsDateAvailable("2024-01-07", rules) {
			t.Fatal("expected explicit disabled Sunday schedule to win over legacy list")
		}
		slots := engine.GenerateSlots("2024-01-06", rules, nil)
		if len(slots) != 18 {
			t.Fatalf("expected legacy day to use global hours, got %v", slots)
		}
	})
}

func TestEngine_IsSlotFree(t *testing.T) {
	t.Parallel()

	engine := newTestEngine()
	rules := weekdayRules(60)
	meetings := []Meeting{{ID: "m1", Date: nextMonday, Time: "10:00", Duration: 60}}

	if !engine.IsSlotFree(nextMonday, "11:00", 60, rules, meetings) {
		t.Fatal("expected slot starting at meeting end to be free")
	}
	if !engine.IsSlotFree(nextMonday, "09:00", 60, rules, meetings) {
		t.Fatal("expected slot ending at meeting start to be free")
	}
	if engine.IsSlotFree(nextMonday, "10:30", 30, rules, meetings) {
		t.Fatal("expected contained slot to be occupied")
	}
	if engine.IsSlotFree(nextMonday, "09:30", 0, rules, meetings) {
		t.Fatal("expected default duration to reach into the meeting")
	}
	if engine.IsSlotFree(nextMonday, "nine", 30, rules, meetings) {
		t.Fatal("expected malformed time to be rejected")
	}

	rules.BlockedTimes = []TimeRange{{Start: "12:00", End: "13:00"}}
	if engine.IsSlotFree("2024-01-06", "12:30", 30, rules, nil) {
		t.Fatal("expected blocked range to apply regardless of date")
	}
}

func TestEngine_IsSlotOffered(t *testing.T) {
	t.Parallel()

	engine := newTestEngine()
	if !engine.IsSlotOffered(nextMonday, "9:00", weekdayRules(30), nil) {
		t.Fatal("expected 09:00 to be offered")
	}
	if engine.IsSlotOffered(nextMonday, "09:15", weekdayRules(30), nil) {
		t.Fatal("expected off-grid time to be rejected")
	}
}
