package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/bizdesk/internal/persistence"
)

// BacklogReporter exposes the persistence write queue.
type BacklogReporter interface {
	Pending() (queued, failed int)
}

// HealthHandler reports whether the storage backend answers.
type HealthHandler struct {
	backend   persistence.Pinger
	backlog   BacklogReporter
	responder responder
	logger    *slog.Logger
}

// NewHealthHandler checks backend. backlog may be nil.
func NewHealthHandler(backend persistence.Pinger, backlog BacklogReporter, logger *slog.Logger) *HealthHandler {
	base := defaultLogger(logger)
	return &HealthHandler{backend: backend, backlog: backlog, responder: newResponder(base), logger: base}
}

type healthResponse struct {
	Status        string `json:"status"`
	QueuedWrites  int    `json:"queuedWrites"`
	FailedWrites  int    `json:"failedWrites"`
	StorageStatus string `json:"storage"`
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", StorageStatus: "ok"}
	if h.backlog != nil {
		resp.QueuedWrites, resp.FailedWrites = h.backlog.Pending()
	}
	if h.backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.backend.Ping(ctx); err != nil {
			handlerLogger(r.Context(), h.logger, "HealthHandler", "Check").ErrorContext(r.Context(), "storage ping failed", "error", err)
			resp.Status = "degraded"
			resp.StorageStatus = "unreachable"
			h.responder.writeJSON(r.Context(), w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, resp)
}
