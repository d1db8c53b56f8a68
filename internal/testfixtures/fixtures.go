package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/bizdesk/internal/application"
)

var (
	clientCounter  uint64
	meetingCounter uint64
)

var referenceTime = time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
// It falls on a Tuesday.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate is ReferenceTime as a calendar day.
const ReferenceDate = "2024-01-02"

// NextMonday is the first Monday after ReferenceTime.
const NextMonday = "2024-01-08"

// ---------------------------- Client fixtures ----------------------------

// ClientOption configures a generated client.
type ClientOption func(*application.Client)

// NewClient returns a deterministic client with optional overrides. The ID is
// left empty so the store assigns it.
func NewClient(opts ...ClientOption) application.Client {
	idx := atomic.AddUint64(&clientCounter, 1)
	client := application.Client{
		Name:   fmt.Sprintf("Client %03d", idx),
		Email:  fmt.Sprintf("client-%03d@example.com", idx),
		Status: application.ClientLead,
	}
	for _, opt := range opts {
		opt(&client)
	}
	return client
}

// WithClientName overrides the generated name.
func WithClientName(name string) ClientOption {
	return func(c *application.Client) { c.Name = name }
}

// WithClientEmail overrides the generated e-mail address.
func WithClientEmail(email string) ClientOption {
	return func(c *application.Client) { c.Email = email }
}

// WithClientTags sets the client tags.
func WithClientTags(tags ...string) ClientOption {
	return func(c *application.Client) { c.Tags = append([]string(nil), tags...) }
}

// ---------------------------- Meeting fixtures ---------------------------

// MeetingOption configures a generated meeting.
type MeetingOption func(*application.Meeting)

// NewMeeting returns a scheduled one hour meeting at 10:00 on NextMonday.
func NewMeeting(opts ...MeetingOption) application.Meeting {
	idx := atomic.AddUint64(&meetingCounter, 1)
	meeting := application.Meeting{
		ClientName:  fmt.Sprintf("Guest %03d", idx),
		ClientEmail: fmt.Sprintf("guest-%03d@example.com", idx),
		Date:        NextMonday,
		Time:        "10:00",
		Duration:    60,
		Status:      application.MeetingScheduled,
	}
	for _, opt := range opts {
		opt(&meeting)
	}
	return meeting
}

// WithMeetingAt sets the date and start time.
func WithMeetingAt(date, clock string) MeetingOption {
	return func(m *application.Meeting) {
		m.Date = date
		m.Time = clock
	}
}

// WithMeetingDuration sets the duration in minutes.
func WithMeetingDuration(minutes int) MeetingOption {
	return func(m *application.Meeting) { m.Duration = minutes }
}

// WithMeetingStatus sets the lifecycle status.
func WithMeetingStatus(status application.MeetingStatus) MeetingOption {
	return func(m *application.Meeting) { m.Status = status }
}

// --------------------------- Settings fixtures ---------------------------

// WeekdaySettings opens Monday to Friday 09:00-18:00 with the given meeting
// length and nothing blocked.
func WeekdaySettings(meetingDuration int) application.BusinessSettings {
	settings := application.DefaultSettings()
	settings.MeetingDuration = meetingDuration
	return settings
}

// DataWithStages returns an empty aggregate holding the named pipeline and
// project stages, with ids "<name>" so tests can refer to them directly.
func DataWithStages(pipeline []string, project []string) application.StoredData {
	data := application.EmptyData()
	for i, name := range pipeline {
		data.PipelineStages = append(data.PipelineStages, application.PipelineStage{ID: name, Name: name, Order: i})
	}
	for i, name := range project {
		data.ProjectStages = append(data.ProjectStages, application.ProjectStage{ID: name, Name: name, Order: i})
	}
	return data
}
