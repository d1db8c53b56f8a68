package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/example/bizdesk/internal/application"
	"github.com/example/bizdesk/internal/daytime"
)

// Settings returns the business settings.
func (h *WorkspaceHandler) Settings(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.store.Settings())
}

// UpdateSettings merges the body into the settings. Opening hours must be
// valid clock times with the start before the end.
func (h *WorkspaceHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var patch application.BusinessSettings
	body, err := readMergePatch(w, r, &patch)
	if err != nil {
		h.log(r.Context(), "UpdateSettings", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode settings patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	if details := validateSettingsPatch(patch); len(details) > 0 {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "入力内容に誤りがあります。",
			Errors:  details,
		})
		return
	}

	settings := h.store.UpdateSettings(r.Context(), func(s *application.BusinessSettings) {
		_ = jsonMerge(body, s)
	})
	h.log(r.Context(), "UpdateSettings").InfoContext(r.Context(), "settings updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, settings)
}

func validateSettingsPatch(patch application.BusinessSettings) map[string]string {
	details := make(map[string]string)
	if patch.MeetingDuration < 0 {
		details["meeting_duration"] = "打ち合わせ時間は正の整数で指定してください。"
	}
	if patch.AvailableHours.Start != "" || patch.AvailableHours.End != "" {
		if msg := validateWindow(patch.AvailableHours.Start, patch.AvailableHours.End); msg != "" {
			details["available_hours"] = msg
		}
	}
	for day, schedule := range patch.DaySchedules {
		if day < time.Sunday || day > time.Saturday {
			details["day_schedules"] = errInvalidWeekday.Error()
			continue
		}
		if msg := validateWindow(schedule.StartTime, schedule.EndTime); msg != "" {
			details["day_schedules"] = msg
		}
	}
	return details
}

func validateWindow(start, end string) string {
	startMinutes, err := daytime.ParseClock(start)
	if err != nil {
		return errInvalidTime.Error()
	}
	endMinutes, err := daytime.ParseClock(end)
	if err != nil {
		return errInvalidTime.Error()
	}
	if startMinutes >= endMinutes {
		return "終了時刻は開始時刻より後である必要があります。"
	}
	return ""
}

type blockedDateRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

// AddBlockedDate closes a day for bookings.
func (h *WorkspaceHandler) AddBlockedDate(w http.ResponseWriter, r *http.Request) {
	var req blockedDateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	date := strings.TrimSpace(req.Date)
	if _, err := daytime.Weekday(date); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	blocked := h.store.AddBlockedDate(r.Context(), date, strings.TrimSpace(req.Reason))
	h.log(r.Context(), "AddBlockedDate", "date", date).InfoContext(r.Context(), "date blocked")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, blocked)
}

// RemoveBlockedDate reopens a blocked day.
func (h *WorkspaceHandler) RemoveBlockedDate(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}
	if !h.store.RemoveBlockedDate(r.Context(), id) {
		h.responder.notFound(r.Context(), w)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type blockedSlotRequest struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Reason    string `json:"reason"`
}

// AddBlockedTimeSlot blocks a daily time range, e.g. a lunch break.
func (h *WorkspaceHandler) AddBlockedTimeSlot(w http.ResponseWriter, r *http.Request) {
	var req blockedSlotRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	start, end := strings.TrimSpace(req.StartTime), strings.TrimSpace(req.EndTime)
	if msg := validateWindow(start, end); msg != "" {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "入力内容に誤りがあります。",
			Errors:  map[string]string{"time_range": msg},
		})
		return
	}
	slot := h.store.AddBlockedTimeSlot(r.Context(), normalizeClock(start), normalizeClock(end), strings.TrimSpace(req.Reason))
	h.log(r.Context(), "AddBlockedTimeSlot", "start", slot.StartTime, "end", slot.EndTime).InfoContext(r.Context(), "time slot blocked")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, slot)
}

// RemoveBlockedTimeSlot deletes a daily block.
func (h *WorkspaceHandler) RemoveBlockedTimeSlot(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}
	if !h.store.RemoveBlockedTimeSlot(r.Context(), id) {
		h.responder.notFound(r.Context(), w)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// SetDaySchedule configures one weekday, addressed by number (0 is Sunday)
// or English name.
func (h *WorkspaceHandler) SetDaySchedule(w http.ResponseWriter, r *http.Request) {
	day, ok := parseWeekday(mux.Vars(r)["weekday"])
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidWeekday)
		return
	}
	var schedule application.DaySchedule
	if err := decodeJSON(w, r, &schedule); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if msg := validateWindow(schedule.StartTime, schedule.EndTime); msg != "" {
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "入力内容に誤りがあります。",
			Errors:  map[string]string{"time_range": msg},
		})
		return
	}
	schedule.StartTime = normalizeClock(schedule.StartTime)
	schedule.EndTime = normalizeClock(schedule.EndTime)
	settings := h.store.SetDaySchedule(r.Context(), time.Weekday(day), schedule)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, settings)
}

// normalizeClock pads an already validated clock time to HH:MM.
func normalizeClock(value string) string {
	minutes, err := daytime.ParseClock(value)
	if err != nil {
		return value
	}
	return daytime.FormatClock(minutes)
}
