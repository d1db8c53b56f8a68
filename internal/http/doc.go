// Package http serves the workspace over a JSON API.
//
// Public endpoints:
//   - POST /api/session: logs in with {"email","name"} and returns
//     {"token","expires_at","user"}. The token is also set as the
//     `session_token` cookie and the `X-Session-Token` header. Logging in as
//     another user unloads the previous workspace and loads the new one.
//   - GET /api/health: storage reachability and the persistence backlog.
//   - GET /api/availability/{date}, /api/availability/check,
//     /api/availability/calendar, /api/availability/next and
//     POST /api/bookings: the client facing booking page.
//   - GET /metrics: Prometheus exposition.
//
// Every other /api route requires a session token of the user the workspace
// is bound to, sent as a bearer header, the cookie, or a `token` query
// parameter (for WebSocket handshakes):
//   - GET|DELETE /api/session, GET /api/ws (change feed).
//   - GET|PUT /api/data, /api/history with undo, redo and reset actions.
//   - CRUD under /api/clients, /activities, /services, /purchases, /meetings,
//     /pipeline-stages, /deals, /project-stages, /tasks and /transactions.
//     PUT and PATCH merge the body into the stored record.
//   - Record actions: /clients/{id}/timeline, /purchases/{id}/use-session,
//     /meetings/{id}/cancel|reschedule|status|conflicts, /deals/{id}/move,
//     /tasks/{id}/move, /pipeline-stages/order, /project-stages/order.
//   - /api/settings with blocked dates, blocked time slots and per-day
//     schedules, /api/terminology, /api/conflicts, /api/pipeline/value and
//     /api/ledger/summary.
//
// Errors are JSON {"error_code","message","errors"} with Japanese messages.
package http
