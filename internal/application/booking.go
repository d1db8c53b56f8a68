package application

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/example/bizdesk/internal/daytime"
	"github.com/example/bizdesk/internal/scheduler"
)

// BookingRequest is a self-service booking submitted by a client.
type BookingRequest struct {
	ClientName  string `json:"clientName"`
	ClientEmail string `json:"clientEmail"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	ServiceID   string `json:"serviceId,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// BookingService answers availability questions against the live aggregate
// and places validated bookings.
type BookingService struct {
	store  *Store
	engine *scheduler.Engine
	logger *slog.Logger
}

// NewBookingService wires the store and the availability engine.
func NewBookingService(store *Store, engine *scheduler.Engine, logger *slog.Logger) *BookingService {
	return &BookingService{
		store:  store,
		engine: engine,
		logger: defaultLogger(logger),
	}
}

func (b *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, b.logger, "BookingService", operation, attrs...)
}

func (b *BookingService) inputs() (scheduler.Rules, []scheduler.Meeting) {
	var (
		rules    scheduler.Rules
		meetings []scheduler.Meeting
	)
	b.store.view(func(d *StoredData) {
		rules = d.Settings.AvailabilityRules()
		meetings = toSchedulerMeetings(d.Meetings)
	})
	return rules, meetings
}

// IsDateAvailable reports whether date accepts bookings.
func (b *BookingService) IsDateAvailable(date string) bool {
	rules, _ := b.inputs()
	return b.engine.IsDateAvailable(date, rules)
}

// AvailableSlots lists the free start times of date.
func (b *BookingService) AvailableSlots(date string) []string {
	rules, meetings := b.inputs()
	return b.engine.GenerateSlots(date, rules, meetings)
}

// CheckSlot reports whether a meeting of duration minutes may start at clock
// on date. A zero duration uses the configured meeting length.
func (b *BookingService) CheckSlot(date, clock string, duration int) bool {
	rules, meetings := b.inputs()
	return b.engine.IsDateAvailable(date, rules) &&
		b.engine.IsSlotFree(date, clock, duration, rules, meetings)
}

// Calendar expands availability over a window of days starting at from.
func (b *BookingService) Calendar(from string, days int) ([]scheduler.Day, error) {
	if from == "" {
		from = b.engine.Today()
	}
	rules, meetings := b.inputs()
	return b.engine.Calendar(from, days, rules, meetings)
}

// NextAvailable finds the first bookable day on or after from.
func (b *BookingService) NextAvailable(from string) (scheduler.Day, bool) {
	if from == "" {
		from = b.engine.Today()
	}
	rules, meetings := b.inputs()
	return b.engine.NextAvailable(from, rules, meetings)
}

// Book validates req and adds the meeting. The slot is re-checked under the
// store lock, so two bookings can never claim the same slot. A client with the
// same e-mail address is linked to the meeting.
func (b *BookingService) Book(ctx context.Context, req BookingRequest) (Meeting, error) {
	if b == nil || b.store == nil {
		return Meeting{}, fmt.Errorf("BookingService is nil")
	}
	logger := b.loggerWith(ctx, "Book", "date", req.Date, "time", req.Time)

	vErr := &ValidationError{}
	validateBookingRequest(&req, vErr)
	if vErr.HasErrors() {
		logger.WarnContext(ctx, "booking rejected", "error", vErr, "error_kind", ErrorKind(vErr))
		return Meeting{}, vErr
	}

	meeting := Meeting{
		ClientName:  req.ClientName,
		ClientEmail: req.ClientEmail,
		ServiceID:   req.ServiceID,
		Date:        req.Date,
		Time:        req.Time,
		Status:      MeetingScheduled,
		Notes:       req.Notes,
	}
	created, err := b.store.AddMeetingChecked(ctx, meeting, func(d StoredData, m *Meeting) error {
		if err := b.checkBookable(d, *m); err != nil {
			return err
		}
		m.ClientID = clientIDByEmail(d.Clients, m.ClientEmail)
		return nil
	})
	if err != nil {
		logger.WarnContext(ctx, "booking rejected", "error", err, "error_kind", ErrorKind(err))
		return Meeting{}, err
	}
	logger.InfoContext(ctx, "booking created", "meeting_id", created.ID)
	return created, nil
}

func (b *BookingService) checkBookable(d StoredData, m Meeting) error {
	rules := d.Settings.AvailabilityRules()
	vErr := &ValidationError{}
	if !b.engine.IsDateAvailable(m.Date, rules) {
		vErr.add("date", "date is not available")
		return vErr
	}
	if !b.engine.IsSlotOffered(m.Date, m.Time, rules, toSchedulerMeetings(d.Meetings)) {
		vErr.add("time", "slot is not available")
		return vErr
	}
	return nil
}

func clientIDByEmail(clients []Client, email string) string {
	for _, c := range clients {
		if strings.EqualFold(c.Email, email) {
			return c.ID
		}
	}
	return ""
}

func validateBookingRequest(req *BookingRequest, vErr *ValidationError) {
	req.ClientName = strings.TrimSpace(req.ClientName)
	req.ClientEmail = strings.ToLower(strings.TrimSpace(req.ClientEmail))
	req.Date = strings.TrimSpace(req.Date)
	req.Time = strings.TrimSpace(req.Time)

	if req.ClientName == "" {
		vErr.add("client_name", "name is required")
	}
	if req.ClientEmail == "" {
		vErr.add("client_email", "email is required")
	} else if _, err := mail.ParseAddress(req.ClientEmail); err != nil {
		vErr.add("client_email", "email is invalid")
	}
	if req.Date == "" {
		vErr.add("date", "date is required")
	} else if _, err := daytime.Weekday(req.Date); err != nil {
		vErr.add("date", "date must be YYYY-MM-DD")
	}
	if req.Time == "" {
		vErr.add("time", "time is required")
	} else if minutes, err := daytime.ParseClock(req.Time); err != nil {
		vErr.add("time", "time must be HH:MM")
	} else {
		req.Time = daytime.FormatClock(minutes)
	}
}

// Conflicts lists overlapping meeting pairs across the agenda.
func (b *BookingService) Conflicts() []scheduler.Conflict {
	rules, meetings := b.inputs()
	conflicts := scheduler.FindConflicts(meetings, rules.MeetingDuration)
	if conflicts == nil {
		conflicts = []scheduler.Conflict{}
	}
	return conflicts
}

// MeetingConflicts lists the meetings overlapping the meeting with id.
func (b *BookingService) MeetingConflicts(id string) ([]scheduler.Conflict, error) {
	meeting, ok := b.store.Meeting(id)
	if !ok {
		return nil, ErrNotFound
	}
	rules, meetings := b.inputs()
	conflicts := scheduler.DetectConflicts(meetings, toSchedulerMeeting(meeting), rules.MeetingDuration)
	if conflicts == nil {
		conflicts = []scheduler.Conflict{}
	}
	return conflicts, nil
}
