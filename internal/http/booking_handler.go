package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/bizdesk/internal/application"
	"github.com/example/bizdesk/internal/daytime"
	"github.com/example/bizdesk/internal/scheduler"
)

type bookingService interface {
	IsDateAvailable(date string) bool
	AvailableSlots(date string) []string
	CheckSlot(date, clock string, duration int) bool
	Calendar(from string, days int) ([]scheduler.Day, error)
	NextAvailable(from string) (scheduler.Day, bool)
	Book(ctx context.Context, req application.BookingRequest) (application.Meeting, error)
	Conflicts() []scheduler.Conflict
	MeetingConflicts(id string) ([]scheduler.Conflict, error)
}

// BookingHandler answers availability questions and accepts bookings.
type BookingHandler struct {
	service   bookingService
	responder responder
	logger    *slog.Logger
}

func NewBookingHandler(service bookingService, logger *slog.Logger) *BookingHandler {
	base := defaultLogger(logger)
	return &BookingHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

type availabilityResponse struct {
	Date      string   `json:"date"`
	Available bool     `json:"available"`
	Slots     []string `json:"slots"`
}

// Slots lists the free start times of one date.
func (h *BookingHandler) Slots(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(mux.Vars(r)["date"])
	if _, err := daytime.Weekday(date); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		Date:      date,
		Available: h.service.IsDateAvailable(date),
		Slots:     h.service.AvailableSlots(date),
	})
}

type slotCheckResponse struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	Duration  int    `json:"duration,omitempty"`
	Available bool   `json:"available"`
}

// Check reports whether ?date=&time=[&duration=] could be booked.
func (h *BookingHandler) Check(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	date := strings.TrimSpace(query.Get("date"))
	if _, err := daytime.Weekday(date); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	minutes, err := daytime.ParseClock(strings.TrimSpace(query.Get("time")))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTime)
		return
	}
	duration, ok := intQuery(query.Get("duration"), 0)
	if !ok || duration < 0 {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidNumber)
		return
	}
	clock := daytime.FormatClock(minutes)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, slotCheckResponse{
		Date:      date,
		Time:      clock,
		Duration:  duration,
		Available: h.service.CheckSlot(date, clock, duration),
	})
}

// Calendar expands availability for ?from= (default today) over ?days=
// (default 7).
func (h *BookingHandler) Calendar(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from := strings.TrimSpace(query.Get("from"))
	if from != "" {
		if _, err := daytime.Weekday(from); err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
	}
	days, ok := intQuery(query.Get("days"), 7)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidNumber)
		return
	}
	calendar, err := h.service.Calendar(from, days)
	if err != nil {
		h.log(r.Context(), "Calendar", "from", from, "days", days).WarnContext(r.Context(), "calendar rejected", "error", err)
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, calendar)
}

// Next finds the first day with a free slot on or after ?from=.
func (h *BookingHandler) Next(w http.ResponseWriter, r *http.Request) {
	from := strings.TrimSpace(r.URL.Query().Get("from"))
	if from != "" {
		if _, err := daytime.Weekday(from); err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
	}
	day, found := h.service.NextAvailable(from)
	if !found {
		h.responder.writeJSON(r.Context(), w, http.StatusNotFound, errorResponse{
			ErrorCode: "NO_AVAILABILITY",
			Message:   "予約可能な日が見つかりません。",
		})
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, day)
}

// Book places a booking. Validation failures are answered with localized
// field errors.
func (h *BookingHandler) Book(w http.ResponseWriter, r *http.Request) {
	var req application.BookingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.log(r.Context(), "Book", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode booking", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	meeting, err := h.service.Book(r.Context(), req)
	if err != nil {
		h.log(r.Context(), "Book", "date", req.Date, "time", req.Time).WarnContext(r.Context(), "booking failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.log(r.Context(), "Book", "meeting_id", meeting.ID).InfoContext(r.Context(), "booking accepted")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, meeting)
}

// Conflicts lists every overlapping pair of active meetings.
func (h *BookingHandler) Conflicts(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.service.Conflicts())
}

// MeetingConflicts lists the meetings overlapping one meeting.
func (h *BookingHandler) MeetingConflicts(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}
	conflicts, err := h.service.MeetingConflicts(id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, conflicts)
}

func intQuery(value string, fallback int) (int, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback, true
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return n, true
}
