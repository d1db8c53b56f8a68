package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/example/bizdesk/internal/application"
	"github.com/example/bizdesk/internal/identity"
	"github.com/example/bizdesk/internal/presets"
	"github.com/example/bizdesk/internal/testfixtures"
)

type apiHarness struct {
	t        *testing.T
	store    *application.Store
	provider *identity.Provider
	handler  http.Handler
}

func newAPIHarness(t *testing.T) *apiHarness {
	t.Helper()

	factory := testfixtures.NewServiceFactory()
	logger := testfixtures.DiscardLogger()
	store := factory.NewStore(testfixtures.StoreDeps{
		Defaults: func() application.StoredData {
			return testfixtures.DataWithStages([]string{"lead", "won"}, []string{"todo", "done"})
		},
	})

	provider, err := identity.NewProvider(identity.Config{
		Secret: "test-secret",
		TTL:    time.Hour,
		Now:    factory.Clock.NowFunc(),
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("NewProvider: %v", err)
	}
	provider.OnChange(func(ctx context.Context, user *identity.User) {
		if user == nil {
			store.SwitchUser(ctx, "")
			return
		}
		store.SwitchUser(ctx, user.ID)
	})

	catalog, err := presets.Builtin()
	if err != nil {
		t.Fatalf("presets.Builtin: %v", err)
	}

	handler := NewRouter(RouterConfig{
		Sessions:     NewSessionHandler(provider, logger),
		Workspace:    NewWorkspaceHandler(store, catalog, "consulting", logger),
		Booking:      NewBookingHandler(factory.NewBookingService(store), logger),
		Health:       NewHealthHandler(factory.Backend, nil, logger),
		SessionGuard: RequireSession(provider, store, logger),
		Middleware:   []func(http.Handler) http.Handler{RequestLogger(logger, nil)},
	})

	return &apiHarness{t: t, store: store, provider: provider, handler: handler}
}

func (h *apiHarness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			h.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.handler.ServeHTTP(rec, req)
	return rec
}

func (h *apiHarness) login(email string) string {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/session", "", map[string]string{"email": email})
	if rec.Code != http.StatusCreated {
		h.t.Fatalf("login status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp loginResponse
	decodeBody(h.t, rec, &resp)
	return resp.Token
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}
