package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/example/bizdesk/internal/config"
	"github.com/example/bizdesk/internal/identity"
	"github.com/example/bizdesk/internal/persistence"
	"github.com/example/bizdesk/internal/persistence/memory"
	"github.com/example/bizdesk/internal/testfixtures"
)

func TestOpenBackend(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
	}{
		{name: "memory", cfg: config.Config{StorageDriver: config.DriverMemory}},
		{name: "sqlite", cfg: config.Config{StorageDriver: config.DriverSQLite, SQLiteDSN: filepath.Join(t.TempDir(), "bizdesk.db")}},
		{name: "unknown driver", cfg: config.Config{StorageDriver: "redis"}, wantErr: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			storage, closeStorage, err := openBackend(ctx, tc.cfg, testfixtures.DiscardLogger())
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error for driver %q", tc.cfg.StorageDriver)
				}
				return
			}
			if err != nil {
				t.Fatalf("openBackend: %v", err)
			}
			defer closeStorage()

			if err := storage.Ping(ctx); err != nil {
				t.Fatalf("Ping: %v", err)
			}
			if err := storage.Set(ctx, "k", []byte("v")); err != nil {
				t.Fatalf("Set: %v", err)
			}
			got, err := storage.Get(ctx, "k")
			if err != nil || string(got) != "v" {
				t.Fatalf("Get = %q, %v", got, err)
			}
		})
	}
}

func TestAppPersistsWorkspaceOfLoggedInUser(t *testing.T) {
	t.Parallel()

	storage := memory.New()
	cfg := config.Config{
		SessionSecret:        "test-secret",
		SessionTTL:           time.Hour,
		StorageDriver:        config.DriverMemory,
		PersistRetryInterval: time.Minute,
		Location:             time.UTC,
		Vertical:             "consulting",
	}

	app, err := newApp(cfg, storage, testfixtures.DiscardLogger())
	if err != nil {
		t.Fatalf("newApp: %v", err)
	}
	server := httptest.NewServer(app.handler)
	defer server.Close()

	post := func(path, token, body string) *http.Response {
		t.Helper()
		req, err := http.NewRequest(http.MethodPost, server.URL+path, bytes.NewBufferString(body))
		if err != nil {
			t.Fatalf("NewRequest: %v", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("POST %s: %v", path, err)
		}
		return resp
	}

	resp := post("/api/session", "", `{"email":"owner@example.com"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("login status = %d", resp.StatusCode)
	}
	var login struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&login); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	resp.Body.Close()

	resp = post("/api/clients", login.Token, `{"name":"Acme"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create client status = %d", resp.StatusCode)
	}

	metricsResp, err := http.Get(server.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	body, _ := io.ReadAll(metricsResp.Body)
	metricsResp.Body.Close()
	if !strings.Contains(string(body), "store_mutations_total") {
		t.Fatalf("metrics output missing mutation counter")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.close(ctx); err != nil {
		t.Fatalf("close: %v", err)
	}

	key := persistence.DataKey(cfg.KeyPrefix, identity.UserIDForEmail("owner@example.com"))
	payload, err := storage.Get(ctx, key)
	if err != nil {
		t.Fatalf("stored snapshot %s: %v", key, err)
	}
	if !strings.Contains(string(payload), "Acme") {
		t.Fatalf("snapshot does not contain the created client: %s", payload)
	}
}
