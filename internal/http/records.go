package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/example/bizdesk/internal/application"
)

const maxBodyBytes = 1 << 20

// recordOps binds one store collection to the generic CRUD endpoints.
type recordOps[T any] struct {
	create func(ctx context.Context, item T) T
	update func(ctx context.Context, id string, patch func(*T)) (T, bool)
	remove func(ctx context.Context, id string) (bool, error)
	find   func(id string) (T, bool)
	list   func() []T
}

// plainRemove adapts a delete that cannot fail.
func plainRemove(fn func(ctx context.Context, id string) bool) func(ctx context.Context, id string) (bool, error) {
	return func(ctx context.Context, id string) (bool, error) {
		return fn(ctx, id), nil
	}
}

// recordHandler serves list, get, create, partial update and delete for one
// collection. Updates are JSON merge patches: fields absent from the body keep
// their stored value.
type recordHandler[T any] struct {
	kind      string
	ops       recordOps[T]
	responder responder
	logger    *slog.Logger
}

func newRecordHandler[T any](kind string, ops recordOps[T], logger *slog.Logger) *recordHandler[T] {
	base := defaultLogger(logger)
	return &recordHandler[T]{kind: kind, ops: ops, responder: newResponder(base), logger: base}
}

func (h *recordHandler[T]) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "RecordHandler", operation, append([]any{"kind", h.kind}, attrs...)...)
}

// mount registers the collection routes under path.
func (h *recordHandler[T]) mount(r *mux.Router, path string) {
	r.HandleFunc(path, h.List).Methods(http.MethodGet)
	r.HandleFunc(path, h.Create).Methods(http.MethodPost)
	r.HandleFunc(path+"/{id}", h.Get).Methods(http.MethodGet)
	r.HandleFunc(path+"/{id}", h.Update).Methods(http.MethodPut, http.MethodPatch)
	r.HandleFunc(path+"/{id}", h.Delete).Methods(http.MethodDelete)
}

func (h *recordHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.ops.list())
}

func (h *recordHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}
	item, found := h.ops.find(id)
	if !found {
		h.responder.notFound(r.Context(), w)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, item)
}

func (h *recordHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	var item T
	if err := decodeJSON(w, r, &item); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode record", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	created := h.ops.create(r.Context(), item)
	h.log(r.Context(), "Create").InfoContext(r.Context(), "record created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, created)
}

func (h *recordHandler[T]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}
	body, err := readMergePatch(w, r, new(T))
	if err != nil {
		h.log(r.Context(), "Update", "record_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode patch", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	updated, found := h.ops.update(r.Context(), id, func(item *T) {
		// The body already decoded cleanly into a zero value.
		_ = jsonMerge(body, item)
	})
	if !found {
		h.responder.notFound(r.Context(), w)
		return
	}
	h.log(r.Context(), "Update", "record_id", id).InfoContext(r.Context(), "record updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, updated)
}

func (h *recordHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}
	logger := h.log(r.Context(), "Delete", "record_id", id)
	removed, err := h.ops.remove(r.Context(), id)
	if err != nil {
		logger.WarnContext(r.Context(), "record deletion rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if !removed {
		h.responder.notFound(r.Context(), w)
		return
	}
	logger.InfoContext(r.Context(), "record deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// boardOps binds a stage collection and the records placed on it.
type boardOps[S any, R any] struct {
	stages  func() []S
	reorder func(ctx context.Context, stages []S) error
	move    func(ctx context.Context, itemID, stageID string) (R, bool, error)
	find    func(id string) (R, bool)
}

// boardHandler serves stage reordering and moving records between stages.
type boardHandler[S any, R any] struct {
	kind      string
	ops       boardOps[S, R]
	responder responder
	logger    *slog.Logger
}

func newBoardHandler[S any, R any](kind string, ops boardOps[S, R], logger *slog.Logger) *boardHandler[S, R] {
	base := defaultLogger(logger)
	return &boardHandler[S, R]{kind: kind, ops: ops, responder: newResponder(base), logger: base}
}

func (h *boardHandler[S, R]) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "BoardHandler", operation, append([]any{"kind", h.kind}, attrs...)...)
}

// Reorder accepts the complete stage list in its new order.
func (h *boardHandler[S, R]) Reorder(w http.ResponseWriter, r *http.Request) {
	var stages []S
	if err := decodeJSON(w, r, &stages); err != nil {
		h.log(r.Context(), "Reorder", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode stage order", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}
	if err := h.ops.reorder(r.Context(), stages); err != nil {
		h.log(r.Context(), "Reorder").WarnContext(r.Context(), "stage reorder rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, h.ops.stages())
}

// Move places one record on another stage. Moving onto the current stage
// returns the record unchanged.
func (h *boardHandler[S, R]) Move(w http.ResponseWriter, r *http.Request) {
	id, ok := recordID(r)
	if !ok {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidRecordID)
		return
	}
	var req moveRequest
	if err := decodeJSON(w, r, &req); err != nil || strings.TrimSpace(req.StageID) == "" {
		h.log(r.Context(), "Move", "record_id", id, "error_kind", "bad_request").ErrorContext(r.Context(), "invalid move request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Move", "record_id", id, "stage_id", req.StageID)
	moved, applied, err := h.ops.move(r.Context(), id, strings.TrimSpace(req.StageID))
	if err != nil {
		logger.WarnContext(r.Context(), "move rejected", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if !applied {
		current, found := h.ops.find(id)
		if !found {
			h.responder.notFound(r.Context(), w)
			return
		}
		moved = current
	}
	logger.InfoContext(r.Context(), "record moved", "applied", applied)
	h.responder.writeJSON(r.Context(), w, http.StatusOK, moved)
}

type moveRequest struct {
	StageID string `json:"stageId"`
}

func recordID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)["id"])
	return id, id != ""
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst)
}

// jsonMerge overlays the fields present in body onto dst.
func jsonMerge(body []byte, dst any) error {
	return json.Unmarshal(body, dst)
}

// readMergePatch returns the raw body after checking it is a JSON object that
// decodes into target.
func readMergePatch(w http.ResponseWriter, r *http.Request, target any) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	if fields == nil {
		return nil, errors.New("patch must be a JSON object")
	}
	if err := json.Unmarshal(body, target); err != nil {
		return nil, err
	}
	return body, nil
}
