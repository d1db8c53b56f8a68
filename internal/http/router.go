package http

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig collects the handlers served by NewRouter. Nil handlers leave
// their routes unregistered.
type RouterConfig struct {
	Sessions  *SessionHandler
	Workspace *WorkspaceHandler
	Booking   *BookingHandler
	Health    *HealthHandler
	// Realtime streams store changes over WebSocket.
	Realtime http.Handler
	Metrics  http.Handler
	// SessionGuard protects every route that reads or changes the workspace.
	SessionGuard func(http.Handler) http.Handler
	Middleware   []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(methodNotAllowed)

	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()

	// Public routes: login, health and the client facing booking page.
	if cfg.Health != nil {
		api.HandleFunc("/health", cfg.Health.Check).Methods(http.MethodGet)
	}
	if cfg.Sessions != nil {
		api.HandleFunc("/session", cfg.Sessions.Create).Methods(http.MethodPost)
	}
	if cfg.Booking != nil {
		api.HandleFunc("/availability/check", cfg.Booking.Check).Methods(http.MethodGet)
		api.HandleFunc("/availability/calendar", cfg.Booking.Calendar).Methods(http.MethodGet)
		api.HandleFunc("/availability/next", cfg.Booking.Next).Methods(http.MethodGet)
		api.HandleFunc("/availability/{date}", cfg.Booking.Slots).Methods(http.MethodGet)
		api.HandleFunc("/bookings", cfg.Booking.Book).Methods(http.MethodPost)
	}

	protected := api.NewRoute().Subrouter()
	if cfg.SessionGuard != nil {
		protected.Use(mux.MiddlewareFunc(cfg.SessionGuard))
	}
	if cfg.Sessions != nil {
		protected.HandleFunc("/session", cfg.Sessions.Current).Methods(http.MethodGet)
		protected.HandleFunc("/session", cfg.Sessions.Delete).Methods(http.MethodDelete)
	}
	if cfg.Realtime != nil {
		protected.Handle("/ws", cfg.Realtime).Methods(http.MethodGet)
	}
	if cfg.Booking != nil {
		protected.HandleFunc("/conflicts", cfg.Booking.Conflicts).Methods(http.MethodGet)
		protected.HandleFunc("/meetings/{id}/conflicts", cfg.Booking.MeetingConflicts).Methods(http.MethodGet)
	}
	if cfg.Workspace != nil {
		cfg.Workspace.mount(protected)
	}

	var handler http.Handler = r
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

func notFound(w http.ResponseWriter, r *http.Request) {
	newResponder(nil).notFound(r.Context(), w)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	newResponder(nil).writeJSON(r.Context(), w, http.StatusMethodNotAllowed, errorResponse{
		Message: "このメソッドは許可されていません。",
	})
}
