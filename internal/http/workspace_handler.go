package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/bizdesk/internal/application"
	"github.com/example/bizdesk/internal/daytime"
)

// TerminologySource returns the UI vocabulary of a business vertical.
type TerminologySource interface {
	Terminology(vertical string) (map[string]string, error)
}

// WorkspaceHandler exposes the live aggregate: its collections, settings,
// history and the record specific actions beyond CRUD.
type WorkspaceHandler struct {
	store           *application.Store
	terms           TerminologySource
	defaultVertical string
	responder       responder
	logger          *slog.Logger
}

// NewWorkspaceHandler serves store. terms may be nil, in which case the
// terminology endpoint answers 404.
func NewWorkspaceHandler(store *application.Store, terms TerminologySource, defaultVertical string, logger *slog.Logger) *WorkspaceHandler {
	base := defaultLogger(logger)
	return &WorkspaceHandler{
		store:           store,
		terms:           terms,
		defaultVertical: defaultVertical,
		responder:       newResponder(base),
		logger:          base,
	}
}

func (h *WorkspaceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "WorkspaceHandler", operation, attrs...)
}

type dataResponse struct {
	Version uint64                 `json:"version"`
	UserID  string                 `json:"userId,omitempty"`
	History historyResponse        `json:"history"`
	Data    application.StoredData `json:"data"`
}

type historyResponse struct {
	CanUndo   bool `json:"canUndo"`
	CanRedo   bool `json:"canRedo"`
	UndoDepth int  `json:"undoDepth"`
	RedoDepth int  `json:"redoDepth"`
}

// Data returns the whole aggregate.
func (h *WorkspaceHandler) Data(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, dataResponse{
		Version: h.store.Version(),
		UserID:  h.store.UserID(),
		History: h.history(),
		Data:    h.store.Snapshot(),
	})
}

// Import replaces the aggregate with an uploaded snapshot. Both the
// versioned envelope and a bare aggregate are accepted. The import is
// undoable.
func (h *WorkspaceHandler) Import(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 16*maxBodyBytes))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	data, err := application.DecodeSnapshot(body)
	if err != nil {
		h.log(r.Context(), "Import", "error_kind", application.ErrorKind(err)).WarnContext(r.Context(), "snapshot import rejected", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	h.store.Replace(r.Context(), data)
	h.log(r.Context(), "Import").InfoContext(r.Context(), "snapshot imported")
	h.Data(w, r)
}

func (h *WorkspaceHandler) history() historyResponse {
	undo, redo := h.store.HistoryDepth()
	return historyResponse{CanUndo: undo > 0, CanRedo: redo > 0, UndoDepth: undo, RedoDepth: redo}
}

// History reports the undo and redo depth.
func (h *WorkspaceHandler) History(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.history())
}

// Undo steps back one snapshot. An empty stack answers 409.
func (h *WorkspaceHandler) Undo(w http.ResponseWriter, r *http.Request) {
	if !h.store.Undo(r.Context()) {
		h.responder.writeJSON(r.Context(), w, http.StatusConflict, errorResponse{
			ErrorCode: "HISTORY_EMPTY",
			Message:   "元に戻す操作がありません。",
		})
		return
	}
	h.Data(w, r)
}

// Redo reapplies the most recently undone snapshot. An empty stack answers 409.
func (h *WorkspaceHandler) Redo(w http.ResponseWriter, r *http.Request) {
	if !h.store.Redo(r.Context()) {
		h.responder.writeJSON(r.Context(), w, http.StatusConflict, errorResponse{
			ErrorCode: "HISTORY_EMPTY",
			Message:   "やり直す操作がありません。",
		})
		return
	}
	h.Data(w, r)
}

// ResetHistory clears both stacks and keeps the current aggregate.
func (h *WorkspaceHandler) ResetHistory(w http.ResponseWriter, r *http.Request) {
	h.store.ResetHistory(r.Context())
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.history())
}

// Terminology returns the vocabulary of the workspace's vertical, falling
// back to the configured default when the stored vertical is unknown.
func (h *WorkspaceHandler) Terminology(w http.ResponseWriter, r *http.Request) {
	if h.terms == nil {
		h.responder.notFound(r.Context(), w)
		return
	}
	vertical := h.store.Settings().Vertical
	if vertical == "" {
		vertical = h.defaultVertical
	}
	terms, err := h.terms.Terminology(vertical)
	if err != nil {
		h.log(r.Context(), "Terminology", "vertical", vertical).WarnContext(r.Context(), "unknown vertical, using default", "error", err)
		terms, err = h.terms.Terminology(h.defaultVertical)
	}
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, terms)
}

// Meetings lists the agenda. With ?date=YYYY-MM-DD only that day is
// returned, ordered by start time.
func (h *WorkspaceHandler) Meetings(w http.ResponseWriter, r *http.Request) {
	date := strings.TrimSpace(r.URL.Query().Get("date"))
	if date == "" {
		h.responder.writeJSON(r.Context(), w, http.StatusOK, h.store.Meetings())
		return
	}
	if _, err := daytime.Weekday(date); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	meetings := h.store.MeetingsOn(date)
	if meetings == nil {
		meetings = []application.Meeting{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meetings)
}

type rescheduleRequest struct {
	Date string `json:"date"`
	Time string `json:"time"`
}

// Reschedule moves a meeting to another date and time.
func (h *WorkspaceHandler) Reschedule(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}
	var req rescheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if _, err := daytime.Weekday(strings.TrimSpace(req.Date)); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
		return
	}
	minutes, err := daytime.ParseClock(strings.TrimSpace(req.Time))
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTime)
		return
	}

	meeting, found := h.store.RescheduleMeeting(r.Context(), id, strings.TrimSpace(req.Date), daytime.FormatClock(minutes))
	if !found {
		h.responder.notFound(r.Context(), w)
		return
	}
	h.log(r.Context(), "Reschedule", "meeting_id", id).InfoContext(r.Context(), "meeting rescheduled", "date", meeting.Date, "time", meeting.Time)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meeting)
}

type statusRequest struct {
	Status application.MeetingStatus `json:"status"`
}

// SetMeetingStatus changes only the lifecycle state of a meeting.
func (h *WorkspaceHandler) SetMeetingStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}
	var req statusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	switch req.Status {
	case application.MeetingScheduled, application.MeetingCompleted, application.MeetingCancelled:
	default:
		h.responder.writeJSON(r.Context(), w, http.StatusUnprocessableEntity, errorResponse{
			Message: "入力内容に誤りがあります。",
			Errors:  map[string]string{"status": "ステータスは scheduled, completed, cancelled のいずれかを指定してください。"},
		})
		return
	}
	meeting, found := h.store.SetMeetingStatus(r.Context(), id, req.Status)
	if !found {
		h.responder.notFound(r.Context(), w)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meeting)
}

// CancelMeeting frees the meeting's slot.
func (h *WorkspaceHandler) CancelMeeting(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}
	meeting, found := h.store.CancelMeeting(r.Context(), id)
	if !found {
		h.responder.notFound(r.Context(), w)
		return
	}
	h.log(r.Context(), "CancelMeeting", "meeting_id", id).InfoContext(r.Context(), "meeting cancelled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, meeting)
}

// ClientTimeline lists the activities of one client, newest first.
func (h *WorkspaceHandler) ClientTimeline(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}
	if _, found := h.store.Client(id); !found {
		h.responder.notFound(r.Context(), w)
		return
	}
	timeline := h.store.ClientTimeline(id)
	if timeline == nil {
		timeline = []application.Activity{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, timeline)
}

// UseSession consumes one session of a purchased package.
func (h *WorkspaceHandler) UseSession(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}
	purchase, used := h.store.UseSession(r.Context(), id)
	if used {
		h.responder.writeJSON(r.Context(), w, http.StatusOK, purchase)
		return
	}
	if _, found := h.store.PurchasedService(id); !found {
		h.responder.notFound(r.Context(), w)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusConflict, errorResponse{
		ErrorCode: "NO_SESSIONS_LEFT",
		Message:   "利用できるセッションが残っていません。",
	})
}

// PipelineValue totals deal values per stage.
func (h *WorkspaceHandler) PipelineValue(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.store.PipelineValue())
}

// LedgerSummary totals transactions, optionally bounded by ?from and ?to.
func (h *WorkspaceHandler) LedgerSummary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))
	for _, date := range []string{from, to} {
		if date == "" {
			continue
		}
		if _, err := daytime.Weekday(date); err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDate)
			return
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.store.LedgerSummary(from, to))
}

// mount registers every workspace route on the authenticated API router.
func (h *WorkspaceHandler) mount(api *mux.Router) {
	s := h.store
	logger := h.logger

	api.HandleFunc("/data", h.Data).Methods(http.MethodGet)
	api.HandleFunc("/data", h.Import).Methods(http.MethodPut)
	api.HandleFunc("/history", h.History).Methods(http.MethodGet)
	api.HandleFunc("/history/undo", h.Undo).Methods(http.MethodPost)
	api.HandleFunc("/history/redo", h.Redo).Methods(http.MethodPost)
	api.HandleFunc("/history/reset", h.ResetHistory).Methods(http.MethodPost)
	api.HandleFunc("/terminology", h.Terminology).Methods(http.MethodGet)

	api.HandleFunc("/settings", h.Settings).Methods(http.MethodGet)
	api.HandleFunc("/settings", h.UpdateSettings).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/settings/blocked-dates", h.AddBlockedDate).Methods(http.MethodPost)
	api.HandleFunc("/settings/blocked-dates/{id}", h.RemoveBlockedDate).Methods(http.MethodDelete)
	api.HandleFunc("/settings/blocked-slots", h.AddBlockedTimeSlot).Methods(http.MethodPost)
	api.HandleFunc("/settings/blocked-slots/{id}", h.RemoveBlockedTimeSlot).Methods(http.MethodDelete)
	api.HandleFunc("/settings/days/{weekday}", h.SetDaySchedule).Methods(http.MethodPut)

	api.HandleFunc("/clients/{id}/timeline", h.ClientTimeline).Methods(http.MethodGet)
	newRecordHandler("client", recordOps[application.Client]{
		create: s.AddClient, update: s.UpdateClient, remove: plainRemove(s.DeleteClient),
		find: s.Client, list: s.Clients,
	}, logger).mount(api, "/clients")

	newRecordHandler("activity", recordOps[application.Activity]{
		create: s.AddActivity, update: s.UpdateActivity, remove: plainRemove(s.DeleteActivity),
		find: s.Activity, list: s.Activities,
	}, logger).mount(api, "/activities")

	newRecordHandler("service", recordOps[application.Service]{
		create: s.AddService, update: s.UpdateService, remove: plainRemove(s.DeleteService),
		find: s.Service, list: s.Services,
	}, logger).mount(api, "/services")

	api.HandleFunc("/purchases/{id}/use-session", h.UseSession).Methods(http.MethodPost)
	newRecordHandler("purchased_service", recordOps[application.PurchasedService]{
		create: s.AddPurchasedService, update: s.UpdatePurchasedService, remove: plainRemove(s.DeletePurchasedService),
		find: s.PurchasedService, list: s.PurchasedServices,
	}, logger).mount(api, "/purchases")

	api.HandleFunc("/meetings", h.Meetings).Methods(http.MethodGet)
	api.HandleFunc("/meetings/{id}/cancel", h.CancelMeeting).Methods(http.MethodPost)
	api.HandleFunc("/meetings/{id}/reschedule", h.Reschedule).Methods(http.MethodPost)
	api.HandleFunc("/meetings/{id}/status", h.SetMeetingStatus).Methods(http.MethodPut)
	newRecordHandler("meeting", recordOps[application.Meeting]{
		create: s.AddMeeting, update: s.UpdateMeeting, remove: plainRemove(s.DeleteMeeting),
		find: s.Meeting, list: s.Meetings,
	}, logger).mount(api, "/meetings")

	pipeline := newBoardHandler("pipeline", boardOps[application.PipelineStage, application.Deal]{
		stages: s.PipelineStages, reorder: s.ReorderPipelineStages, move: s.MoveDeal, find: s.Deal,
	}, logger)
	api.HandleFunc("/pipeline-stages/order", pipeline.Reorder).Methods(http.MethodPut)
	api.HandleFunc("/pipeline/value", h.PipelineValue).Methods(http.MethodGet)
	newRecordHandler("pipeline_stage", recordOps[application.PipelineStage]{
		create: s.AddPipelineStage, update: s.UpdatePipelineStage, remove: s.DeletePipelineStage,
		find: findIn(s.PipelineStages, func(st application.PipelineStage) string { return st.ID }),
		list: s.PipelineStages,
	}, logger).mount(api, "/pipeline-stages")
	api.HandleFunc("/deals/{id}/move", pipeline.Move).Methods(http.MethodPost)
	newRecordHandler("deal", recordOps[application.Deal]{
		create: s.AddDeal, update: s.UpdateDeal, remove: plainRemove(s.DeleteDeal),
		find: s.Deal, list: s.Deals,
	}, logger).mount(api, "/deals")

	projects := newBoardHandler("projects", boardOps[application.ProjectStage, application.ProjectTask]{
		stages: s.ProjectStages, reorder: s.ReorderProjectStages, move: s.MoveTask, find: s.ProjectTask,
	}, logger)
	api.HandleFunc("/project-stages/order", projects.Reorder).Methods(http.MethodPut)
	newRecordHandler("project_stage", recordOps[application.ProjectStage]{
		create: s.AddProjectStage, update: s.UpdateProjectStage, remove: s.DeleteProjectStage,
		find: findIn(s.ProjectStages, func(st application.ProjectStage) string { return st.ID }),
		list: s.ProjectStages,
	}, logger).mount(api, "/project-stages")
	api.HandleFunc("/tasks/{id}/move", projects.Move).Methods(http.MethodPost)
	newRecordHandler("project_task", recordOps[application.ProjectTask]{
		create: s.AddProjectTask, update: s.UpdateProjectTask, remove: plainRemove(s.DeleteProjectTask),
		find: s.ProjectTask, list: s.ProjectTasks,
	}, logger).mount(api, "/tasks")

	api.HandleFunc("/ledger/summary", h.LedgerSummary).Methods(http.MethodGet)
	newRecordHandler("transaction", recordOps[application.Transaction]{
		create: s.AddTransaction, update: s.UpdateTransaction, remove: plainRemove(s.DeleteTransaction),
		find: s.Transaction, list: s.Transactions,
	}, logger).mount(api, "/transactions")
}

// findIn looks a record up by id in a listing.
func findIn[T any](list func() []T, idOf func(T) string) func(string) (T, bool) {
	return func(id string) (T, bool) {
		for _, item := range list() {
			if idOf(item) == id {
				return item, true
			}
		}
		var zero T
		return zero, false
	}
}

func parseWeekday(value string) (int, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	if n, err := strconv.Atoi(value); err == nil {
		return n, n >= 0 && n <= 6
	}
	names := []string{"sunday", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday"}
	for i, name := range names {
		if value == name || value == name[:3] {
			return i, true
		}
	}
	return 0, false
}
