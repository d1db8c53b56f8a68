package http

import (
	"net/http"
	"testing"

	"github.com/example/bizdesk/internal/application"
	"github.com/example/bizdesk/internal/identity"
	"github.com/example/bizdesk/internal/testfixtures"
)

func TestSessionHandlers(t *testing.T) {
	t.Parallel()

	t.Run("login binds the workspace and issues a token via cookie and header", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(http.MethodPost, "/api/session", "", map[string]string{"email": "Owner@Example.com", "name": "Owner"})
		expectStatus(t, rec, http.StatusCreated)
		if rec.Header().Get("X-Session-Token") == "" {
			t.Fatalf("missing X-Session-Token header")
		}
		if len(rec.Result().Cookies()) == 0 || rec.Result().Cookies()[0].Name != sessionCookieName {
			t.Fatalf("missing session cookie")
		}
		var resp loginResponse
		decodeBody(t, rec, &resp)
		if resp.User.Email != "owner@example.com" {
			t.Fatalf("email = %q", resp.User.Email)
		}
		if got, want := h.store.UserID(), identity.UserIDForEmail("owner@example.com"); got != want {
			t.Fatalf("workspace bound to %q, want %q", got, want)
		}

		current := h.do(http.MethodGet, "/api/session", resp.Token, nil)
		expectStatus(t, current, http.StatusOK)
	})

	t.Run("rejects an invalid email with a localized field error", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(http.MethodPost, "/api/session", "", map[string]string{"email": "not-an-address"})
		expectStatus(t, rec, http.StatusUnprocessableEntity)
		var resp errorResponse
		decodeBody(t, rec, &resp)
		if resp.Errors["email"] != "メールアドレスの形式が不正です。" {
			t.Fatalf("errors = %v", resp.Errors)
		}
	})

	t.Run("logout unbinds the workspace", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)
		token := h.login("owner@example.com")

		expectStatus(t, h.do(http.MethodDelete, "/api/session", token, nil), http.StatusNoContent)
		if h.store.UserID() != "" {
			t.Fatalf("workspace still bound to %q", h.store.UserID())
		}
		expectStatus(t, h.do(http.MethodGet, "/api/data", token, nil), http.StatusUnauthorized)
	})
}

func TestRecordHandlers(t *testing.T) {
	t.Parallel()

	t.Run("create, merge patch, list and delete a client", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)
		token := h.login("owner@example.com")

		rec := h.do(http.MethodPost, "/api/clients", token, map[string]any{"name": "Ada", "email": "ada@example.com"})
		expectStatus(t, rec, http.StatusCreated)
		var created application.Client
		decodeBody(t, rec, &created)
		if created.ID == "" || created.Name != "Ada" {
			t.Fatalf("created = %+v", created)
		}

		rec = h.do(http.MethodPatch, "/api/clients/"+created.ID, token, map[string]any{"phone": "555-0100", "id": "hijack"})
		expectStatus(t, rec, http.StatusOK)
		var patched application.Client
		decodeBody(t, rec, &patched)
		if patched.ID != created.ID || patched.Name != "Ada" || patched.Phone != "555-0100" {
			t.Fatalf("patched = %+v", patched)
		}

		var listed []application.Client
		rec = h.do(http.MethodGet, "/api/clients", token, nil)
		expectStatus(t, rec, http.StatusOK)
		decodeBody(t, rec, &listed)
		if len(listed) != 1 {
			t.Fatalf("listed %d clients, want 1", len(listed))
		}

		expectStatus(t, h.do(http.MethodDelete, "/api/clients/"+created.ID, token, nil), http.StatusNoContent)
		expectStatus(t, h.do(http.MethodGet, "/api/clients/"+created.ID, token, nil), http.StatusNotFound)
	})

	t.Run("unknown ids answer 404 and leave the store untouched", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)
		token := h.login("owner@example.com")
		version := h.store.Version()

		expectStatus(t, h.do(http.MethodPut, "/api/deals/missing", token, map[string]any{"title": "x"}), http.StatusNotFound)
		expectStatus(t, h.do(http.MethodDelete, "/api/tasks/missing", token, nil), http.StatusNotFound)
		if h.store.Version() != version {
			t.Fatalf("version moved from %d to %d", version, h.store.Version())
		}
	})

	t.Run("malformed bodies answer 400", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)
		token := h.login("owner@example.com")

		expectStatus(t, h.do(http.MethodPost, "/api/services", token, "{"), http.StatusBadRequest)
		client := h.store.AddClient(t.Context(), testfixtures.NewClient())
		expectStatus(t, h.do(http.MethodPatch, "/api/clients/"+client.ID, token, "[1,2]"), http.StatusBadRequest)
	})
}

func TestBoardHandlers(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	token := h.login("owner@example.com")

	rec := h.do(http.MethodPost, "/api/deals", token, map[string]any{"title": "Retainer", "value": 1200})
	expectStatus(t, rec, http.StatusCreated)
	var deal application.Deal
	decodeBody(t, rec, &deal)
	if deal.StageID != "lead" {
		t.Fatalf("deal placed on %q, want lead", deal.StageID)
	}

	rec = h.do(http.MethodPost, "/api/deals/"+deal.ID+"/move", token, map[string]string{"stageId": "nowhere"})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = h.do(http.MethodPost, "/api/deals/"+deal.ID+"/move", token, map[string]string{"stageId": "won"})
	expectStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &deal)
	if deal.StageID != "won" {
		t.Fatalf("deal on %q after move", deal.StageID)
	}

	rec = h.do(http.MethodPut, "/api/pipeline-stages/order", token, []application.PipelineStage{{ID: "won"}})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = h.do(http.MethodPut, "/api/pipeline-stages/order", token, []application.PipelineStage{{ID: "won", Name: "won"}, {ID: "lead", Name: "lead"}})
	expectStatus(t, rec, http.StatusOK)
	var stages []application.PipelineStage
	decodeBody(t, rec, &stages)
	if stages[0].ID != "won" || stages[0].Order != 0 || stages[1].Order != 1 {
		t.Fatalf("stages = %+v", stages)
	}

	expectStatus(t, h.do(http.MethodDelete, "/api/pipeline-stages/lead", token, nil), http.StatusNoContent)
	rec = h.do(http.MethodDelete, "/api/pipeline-stages/won", token, nil)
	expectStatus(t, rec, http.StatusConflict)
	var resp errorResponse
	decodeBody(t, rec, &resp)
	if resp.ErrorCode != "STAGE_IN_USE" {
		t.Fatalf("error code = %q", resp.ErrorCode)
	}
}

func TestHistoryHandlers(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	token := h.login("owner@example.com")

	expectStatus(t, h.do(http.MethodPost, "/api/history/undo", token, nil), http.StatusConflict)
	expectStatus(t, h.do(http.MethodPost, "/api/clients", token, map[string]any{"name": "Ada"}), http.StatusCreated)

	rec := h.do(http.MethodPost, "/api/history/undo", token, nil)
	expectStatus(t, rec, http.StatusOK)
	var data dataResponse
	decodeBody(t, rec, &data)
	if len(data.Data.Clients) != 0 || !data.History.CanRedo {
		t.Fatalf("after undo: %d clients, history %+v", len(data.Data.Clients), data.History)
	}

	rec = h.do(http.MethodPost, "/api/history/redo", token, nil)
	expectStatus(t, rec, http.StatusOK)
	decodeBody(t, rec, &data)
	if len(data.Data.Clients) != 1 {
		t.Fatalf("after redo: %d clients", len(data.Data.Clients))
	}

	rec = h.do(http.MethodPost, "/api/history/reset", token, nil)
	expectStatus(t, rec, http.StatusOK)
	var history historyResponse
	decodeBody(t, rec, &history)
	if history.CanUndo || history.CanRedo {
		t.Fatalf("history after reset = %+v", history)
	}
}

func TestBookingHandlers(t *testing.T) {
	t.Parallel()

	t.Run("lists slots and books without a session", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)
		h.login("owner@example.com")

		rec := h.do(http.MethodGet, "/api/availability/"+testfixtures.NextMonday, "", nil)
		expectStatus(t, rec, http.StatusOK)
		var availability availabilityResponse
		decodeBody(t, rec, &availability)
		if !availability.Available || len(availability.Slots) != 17 {
			t.Fatalf("availability = %+v", availability)
		}

		booking := application.BookingRequest{
			ClientName:  "Grace",
			ClientEmail: "grace@example.com",
			Date:        testfixtures.NextMonday,
			Time:        "10:00",
		}
		expectStatus(t, h.do(http.MethodPost, "/api/bookings", "", booking), http.StatusCreated)

		rec = h.do(http.MethodPost, "/api/bookings", "", booking)
		expectStatus(t, rec, http.StatusUnprocessableEntity)
		var resp errorResponse
		decodeBody(t, rec, &resp)
		if resp.Errors["time"] != "指定された時間帯は予約できません。" {
			t.Fatalf("errors = %v", resp.Errors)
		}

		rec = h.do(http.MethodGet, "/api/availability/check?date="+testfixtures.NextMonday+"&time=10:00", "", nil)
		expectStatus(t, rec, http.StatusOK)
		var check slotCheckResponse
		decodeBody(t, rec, &check)
		if check.Available {
			t.Fatalf("booked slot reported free")
		}
	})

	t.Run("refuses bookings while nobody owns the workspace", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(http.MethodPost, "/api/bookings", "", application.BookingRequest{
			ClientName:  "Grace",
			ClientEmail: "grace@example.com",
			Date:        testfixtures.NextMonday,
			Time:        "10:00",
		})
		expectStatus(t, rec, http.StatusServiceUnavailable)
		var resp errorResponse
		decodeBody(t, rec, &resp)
		if resp.ErrorCode != "WORKSPACE_OFFLINE" {
			t.Fatalf("error code = %q", resp.ErrorCode)
		}

		h.login("owner@example.com")
		if meetings := h.store.Meetings(); len(meetings) != 0 {
			t.Fatalf("owner workspace gained meetings %+v", meetings)
		}
	})

	t.Run("localizes validation errors", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		rec := h.do(http.MethodPost, "/api/bookings", "", application.BookingRequest{ClientEmail: "bad", Date: "2024-13-01", Time: "9"})
		expectStatus(t, rec, http.StatusUnprocessableEntity)
		var resp errorResponse
		decodeBody(t, rec, &resp)
		want := map[string]string{
			"client_name":  "お名前は必須です。",
			"client_email": "メールアドレスの形式が不正です。",
			"date":         "日付は YYYY-MM-DD 形式で指定してください。",
			"time":         "時刻は HH:MM 形式で指定してください。",
		}
		for field, msg := range want {
			if resp.Errors[field] != msg {
				t.Fatalf("errors[%s] = %q, want %q", field, resp.Errors[field], msg)
			}
		}
	})

	t.Run("rejects calendar windows out of range", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		expectStatus(t, h.do(http.MethodGet, "/api/availability/calendar?days=0", "", nil), http.StatusBadRequest)
		expectStatus(t, h.do(http.MethodGet, "/api/availability/calendar?from=2024-01-06&days=3", "", nil), http.StatusOK)
	})

	t.Run("conflicts require a session", func(t *testing.T) {
		t.Parallel()
		h := newAPIHarness(t)

		expectStatus(t, h.do(http.MethodGet, "/api/conflicts", "", nil), http.StatusUnauthorized)
		token := h.login("owner@example.com")
		expectStatus(t, h.do(http.MethodGet, "/api/conflicts", token, nil), http.StatusOK)
		expectStatus(t, h.do(http.MethodGet, "/api/meetings/missing/conflicts", token, nil), http.StatusNotFound)
	})
}

func TestSettingsHandlers(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	token := h.login("owner@example.com")

	rec := h.do(http.MethodPatch, "/api/settings", token, map[string]any{"availableHours": map[string]string{"start": "18:00", "end": "09:00"}})
	expectStatus(t, rec, http.StatusUnprocessableEntity)

	rec = h.do(http.MethodPatch, "/api/settings", token, map[string]any{"businessName": "Studio"})
	expectStatus(t, rec, http.StatusOK)
	var settings application.BusinessSettings
	decodeBody(t, rec, &settings)
	if settings.BusinessName != "Studio" || settings.MeetingDuration != 60 {
		t.Fatalf("settings = %+v", settings)
	}

	expectStatus(t, h.do(http.MethodPost, "/api/settings/blocked-dates", token, map[string]string{"date": testfixtures.NextMonday}), http.StatusCreated)
	rec = h.do(http.MethodGet, "/api/availability/"+testfixtures.NextMonday, "", nil)
	var availability availabilityResponse
	decodeBody(t, rec, &availability)
	if availability.Available || len(availability.Slots) != 0 {
		t.Fatalf("blocked date still open: %+v", availability)
	}

	rec = h.do(http.MethodPut, "/api/settings/days/saturday", token, application.DaySchedule{Enabled: true, StartTime: "10:00", EndTime: "12:00"})
	expectStatus(t, rec, http.StatusOK)
	rec = h.do(http.MethodGet, "/api/availability/2024-01-06", "", nil)
	decodeBody(t, rec, &availability)
	if len(availability.Slots) != 3 {
		t.Fatalf("saturday slots = %v", availability.Slots)
	}

	expectStatus(t, h.do(http.MethodPut, "/api/settings/days/someday", token, application.DaySchedule{}), http.StatusBadRequest)
}

func TestTerminologyHandler(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)
	token := h.login("owner@example.com")

	rec := h.do(http.MethodGet, "/api/terminology", token, nil)
	expectStatus(t, rec, http.StatusOK)
	var terms map[string]string
	decodeBody(t, rec, &terms)
	if terms["vertical"] != "consulting" {
		t.Fatalf("terms = %v", terms)
	}
}

func TestRouterFallbacks(t *testing.T) {
	t.Parallel()

	h := newAPIHarness(t)

	expectStatus(t, h.do(http.MethodGet, "/api/bookings", "", nil), http.StatusMethodNotAllowed)
	expectStatus(t, h.do(http.MethodGet, "/api/nothing-here", "", nil), http.StatusNotFound)
	expectStatus(t, h.do(http.MethodGet, "/api/health", "", nil), http.StatusOK)
}
