package application

import (
	"maps"
	"slices"
	"time"
)

// ClientStatus tracks where a client sits in the relationship lifecycle.
type ClientStatus string

const (
	ClientLead     ClientStatus = "lead"
	ClientActive   ClientStatus = "active"
	ClientInactive ClientStatus = "inactive"
)

// Client is a customer record (rendered as "Patient", "Student", ... depending
// on the business vertical).
type Client struct {
	ID        string       `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone,omitempty"`
	Company   string       `json:"company,omitempty"`
	Notes     string       `json:"notes,omitempty"`
	Tags      []string     `json:"tags,omitempty"`
	Status    ClientStatus `json:"status,omitempty"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Service is an offering from the business catalog.
type Service struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category,omitempty"`
	Price       float64   `json:"price"`
	Duration    int       `json:"duration,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// MeetingStatus is the lifecycle state of an agenda entry.
type MeetingStatus string

const (
	MeetingScheduled MeetingStatus = "scheduled"
	MeetingCompleted MeetingStatus = "completed"
	MeetingCancelled MeetingStatus = "cancelled"
)

// Meeting is an appointment on the business agenda. Date is "YYYY-MM-DD" and
// Time is "HH:MM" local wall-clock time.
type Meeting struct {
	ID          string        `json:"id"`
	ClientName  string        `json:"clientName"`
	ClientEmail string        `json:"clientEmail"`
	ClientID    string        `json:"clientId,omitempty"`
	ServiceID   string        `json:"serviceId,omitempty"`
	Date        string        `json:"date"`
	Time        string        `json:"time"`
	Duration    int           `json:"duration"`
	Status      MeetingStatus `json:"status"`
	Notes       string        `json:"notes,omitempty"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// PipelineStage is a column of the sales pipeline board.
type PipelineStage struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Order int    `json:"order"`
}

// Deal is a sales opportunity placed on a pipeline stage.
type Deal struct {
	ID                string    `json:"id"`
	Title             string    `json:"title"`
	ClientID          string    `json:"clientId,omitempty"`
	Value             float64   `json:"value"`
	StageID           string    `json:"stageId"`
	Probability       int       `json:"probability,omitempty"`
	ExpectedCloseDate string    `json:"expectedCloseDate,omitempty"`
	Notes             string    `json:"notes,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// ProjectStage is a column of the project board.
type ProjectStage struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
	Order int    `json:"order"`
}

// TaskPriority ranks project tasks.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// ProjectTask is a unit of client work placed on a project stage.
type ProjectTask struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	ClientID    string       `json:"clientId,omitempty"`
	StageID     string       `json:"stageId"`
	Priority    TaskPriority `json:"priority,omitempty"`
	DueDate     string       `json:"dueDate,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// TransactionType separates money in from money out.
type TransactionType string

const (
	TransactionIncome  TransactionType = "income"
	TransactionExpense TransactionType = "expense"
)

// Transaction is a ledger entry.
type Transaction struct {
	ID          string          `json:"id"`
	Type        TransactionType `json:"type"`
	Amount      float64         `json:"amount"`
	Category    string          `json:"category,omitempty"`
	Description string          `json:"description,omitempty"`
	Date        string          `json:"date"`
	ClientID    string          `json:"clientId,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// ActivityType classifies timeline entries.
type ActivityType string

const (
	ActivityCall    ActivityType = "call"
	ActivityEmail   ActivityType = "email"
	ActivityMeeting ActivityType = "meeting"
	ActivityNote    ActivityType = "note"
	ActivityTask    ActivityType = "task"
)

// Activity is a timeline entry attached to a client or deal.
type Activity struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	ClientID    string       `json:"clientId,omitempty"`
	DealID      string       `json:"dealId,omitempty"`
	Date        string       `json:"date,omitempty"`
	Completed   bool         `json:"completed"`
	CreatedAt   time.Time    `json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
}

// PurchaseStatus is the lifecycle state of a purchased package.
type PurchaseStatus string

const (
	PurchaseActive    PurchaseStatus = "active"
	PurchaseCompleted PurchaseStatus = "completed"
	PurchaseCancelled PurchaseStatus = "cancelled"
)

// PurchasedService records a client buying a service or session package.
type PurchasedService struct {
	ID            string         `json:"id"`
	ClientID      string         `json:"clientId"`
	ServiceID     string         `json:"serviceId"`
	PurchaseDate  string         `json:"purchaseDate"`
	Price         float64        `json:"price"`
	Status        PurchaseStatus `json:"status"`
	SessionsTotal int            `json:"sessionsTotal,omitempty"`
	SessionsUsed  int            `json:"sessionsUsed,omitempty"`
	Notes         string         `json:"notes,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// HoursRange is the global opening window.
type HoursRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// DaySchedule configures one weekday.
type DaySchedule struct {
	Enabled   bool   `json:"enabled"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// BlockedDate closes one calendar day for bookings.
type BlockedDate struct {
	ID     string `json:"id"`
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

// BlockedTimeSlot is a recurring daily block, e.g. a lunch break.
type BlockedTimeSlot struct {
	ID        string `json:"id"`
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
	Reason    string `json:"reason,omitempty"`
}

// BusinessSettings holds business metadata and booking configuration.
type BusinessSettings struct {
	BusinessName    string     `json:"businessName"`
	OwnerName       string     `json:"ownerName"`
	Email           string     `json:"email"`
	Phone           string     `json:"phone,omitempty"`
	Address         string     `json:"address,omitempty"`
	Currency        string     `json:"currency,omitempty"`
	Vertical        string     `json:"vertical,omitempty"`
	MeetingDuration int        `json:"meetingDuration"`
	AvailableHours  HoursRange `json:"availableHours"`
	// AvailableDays is the legacy weekday list kept for stored data that
	// predates per-day schedules.
	AvailableDays    []time.Weekday               `json:"availableDays,omitempty"`
	DaySchedules     map[time.Weekday]DaySchedule `json:"daySchedules,omitempty"`
	BlockedDates     []BlockedDate                `json:"blockedDates"`
	BlockedTimeSlots []BlockedTimeSlot            `json:"blockedTimeSlots"`
}

// StoredData is the aggregate: every collection plus settings. It is the
// unit of persistence and of undo/redo.
type StoredData struct {
	Clients           []Client           `json:"clients"`
	Services          []Service          `json:"services"`
	Meetings          []Meeting          `json:"meetings"`
	Deals             []Deal             `json:"deals"`
	PipelineStages    []PipelineStage    `json:"pipelineStages"`
	ProjectTasks      []ProjectTask      `json:"projectTasks"`
	ProjectStages     []ProjectStage     `json:"projectStages"`
	Transactions      []Transaction      `json:"transactions"`
	Activities        []Activity         `json:"activities"`
	PurchasedServices []PurchasedService `json:"purchasedServices"`
	Settings          BusinessSettings   `json:"settings"`
}

// Clone returns a deep copy that shares no mutable memory with d.
func (d StoredData) Clone() StoredData {
	out := StoredData{
		Clients:           cloneEach(d.Clients, Client.clone),
		Services:          slices.Clone(d.Services),
		Meetings:          slices.Clone(d.Meetings),
		Deals:             slices.Clone(d.Deals),
		PipelineStages:    slices.Clone(d.PipelineStages),
		ProjectTasks:      slices.Clone(d.ProjectTasks),
		ProjectStages:     slices.Clone(d.ProjectStages),
		Transactions:      slices.Clone(d.Transactions),
		Activities:        slices.Clone(d.Activities),
		PurchasedServices: slices.Clone(d.PurchasedServices),
		Settings:          d.Settings.clone(),
	}
	return out
}

func (c Client) clone() Client {
	c.Tags = slices.Clone(c.Tags)
	return c
}

func (s BusinessSettings) clone() BusinessSettings {
	s.AvailableDays = slices.Clone(s.AvailableDays)
	s.DaySchedules = maps.Clone(s.DaySchedules)
	s.BlockedDates = slices.Clone(s.BlockedDates)
	s.BlockedTimeSlots = slices.Clone(s.BlockedTimeSlots)
	return s
}

func cloneEach[T any](items []T, clone func(T) T) []T {
	if items == nil {
		return nil
	}
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = clone(item)
	}
	return out
}

// DefaultSettings returns the settings used when nothing has been configured:
// Monday to Friday 09:00-18:00 with one hour meetings.
func DefaultSettings() BusinessSettings {
	schedules := make(map[time.Weekday]DaySchedule, 7)
	for day := time.Sunday; day <= time.Saturday; day++ {
		schedules[day] = DaySchedule{
			Enabled:   day != time.Saturday && day != time.Sunday,
			StartTime: "09:00",
			EndTime:   "18:00",
		}
	}
	return BusinessSettings{
		BusinessName:     "My Business",
		Currency:         "USD",
		MeetingDuration:  60,
		AvailableHours:   HoursRange{Start: "09:00", End: "18:00"},
		AvailableDays:    []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		DaySchedules:     schedules,
		BlockedDates:     []BlockedDate{},
		BlockedTimeSlots: []BlockedTimeSlot{},
	}
}

// EmptyData returns an aggregate with empty collections and default settings.
func EmptyData() StoredData {
	return normalizeData(StoredData{Settings: DefaultSettings()})
}

// normalizeData replaces nil collections with empty ones and fills settings
// fields that older records may lack.
func normalizeData(d StoredData) StoredData {
	d.Clients = nonNil(d.Clients)
	d.Services = nonNil(d.Services)
	d.Meetings = nonNil(d.Meetings)
	d.Deals = nonNil(d.Deals)
	d.PipelineStages = nonNil(d.PipelineStages)
	d.ProjectTasks = nonNil(d.ProjectTasks)
	d.ProjectStages = nonNil(d.ProjectStages)
	d.Transactions = nonNil(d.Transactions)
	d.Activities = nonNil(d.Activities)
	d.PurchasedServices = nonNil(d.PurchasedServices)

	defaults := DefaultSettings()
	if d.Settings.MeetingDuration <= 0 {
		d.Settings.MeetingDuration = defaults.MeetingDuration
	}
	if d.Settings.AvailableHours.Start == "" || d.Settings.AvailableHours.End == "" {
		d.Settings.AvailableHours = defaults.AvailableHours
	}
	if len(d.Settings.DaySchedules) == 0 && len(d.Settings.AvailableDays) == 0 {
		d.Settings.DaySchedules = defaults.DaySchedules
	}
	d.Settings.BlockedDates = nonNil(d.Settings.BlockedDates)
	d.Settings.BlockedTimeSlots = nonNil(d.Settings.BlockedTimeSlots)
	return d
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
