package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/carepilot/carepilot/internal/config"
	"github.com/carepilot/carepilot/internal/platform/auth"
	"github.com/carepilot/carepilot/internal/platform/db"
	"github.com/carepilot/carepilot/internal/platform/middleware"
)

type pingHandler struct{}

func (pingHandler) RegisterRoutes(api *echo.Group) {
	api.GET("/ping", func(c echo.Context) error {
		return c.String(http.StatusOK, auth.EmailFromContext(c.Request().Context()))
	})
}

func newTestRouter(t *testing.T, env string) *echo.Echo {
	t.Helper()
	cfg := &config.Config{Env: env, SessionSigningKey: "test-key", CORSOrigins: []string{"*"}}
	metrics, err := middleware.NewMetrics(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	manager := db.NewManager(db.Settings{}, 2, 0, zerolog.Nop())
	t.Cleanup(manager.Close)
	return newRouter(cfg, zerolog.Nop(), metrics, manager, pingHandler{})
}

func TestRouter_Health(t *testing.T) {
	e := newTestRouter(t, "production")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
	if rec.Header().Get(echo.HeaderXRequestID) == "" {
		t.Error("expected request id header")
	}
}

func TestRouter_HealthDBWithoutCredentials(t *testing.T) {
	e := newTestRouter(t, "production")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestRouter_MetricsAfterRequest(t *testing.T) {
	e := newTestRouter(t, "production")
	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "carepilot_http_requests_total") {
		t.Errorf("expected request counter in output")
	}
}

func TestRouter_APIRequiresSession(t *testing.T) {
	e := newTestRouter(t, "production")

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/ping", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	token, err := auth.IssueToken([]byte("test-key"), "pat@example.com", auth.RolePatient, time.Hour)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if rec.Body.String() != "pat@example.com" {
		t.Errorf("expected session email, got %q", rec.Body.String())
	}
}

func TestOpenBlobStore_Unconfigured(t *testing.T) {
	store, err := openBlobStore(context.Background(), &config.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store != nil {
		t.Error("expected nil store without a connection string")
	}
}

func TestOpenBlobStore_BadConnectionString(t *testing.T) {
	_, err := openBlobStore(context.Background(), &config.Config{StorageConnectionString: "garbage"})
	if err == nil {
		t.Fatal("expected error for malformed connection string")
	}
}

func TestDBSettings(t *testing.T) {
	cfg := &config.Config{
		SQLServer:           "db.example.com",
		SQLPort:             5433,
		SQLDatabase:         "carepilot",
		SQLUser:             "app",
		SQLPassword:         "secret",
		SQLConnectionString: "postgres://other",
		DBSSLMode:           "require",
	}
	s := dbSettings(cfg)
	if s.Server != "db.example.com" || s.Port != 5433 || s.Database != "carepilot" {
		t.Errorf("unexpected server fields: %+v", s)
	}
	if s.User != "app" || s.Password != "secret" || s.SSLMode != "require" {
		t.Errorf("unexpected credential fields: %+v", s)
	}
	if s.ConnectionString != "postgres://other" {
		t.Errorf("expected connection string to be carried, got %q", s.ConnectionString)
	}
}

func TestMigrationFiles_DefaultsToEmbedded(t *testing.T) {
	if migrationFiles("") == nil {
		t.Fatal("expected embedded migrations")
	}
	if migrationFiles(t.TempDir()) == nil {
		t.Fatal("expected directory fs")
	}
}

func TestPrintMigrationStatus(t *testing.T) {
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	var buf bytes.Buffer
	printMigrationStatus(&buf, []db.MigrationStatus{
		{Version: 1, Name: "init", Applied: true, AppliedAt: &at},
		{Version: 2, Name: "oauth_columns"},
	})

	out := buf.String()
	if !strings.Contains(out, "applied    2026-01-02 03:04:05") {
		t.Errorf("missing applied row:\n%s", out)
	}
	if !strings.Contains(out, "pending    -") {
		t.Errorf("missing pending row:\n%s", out)
	}
}

func TestPrintCatalog(t *testing.T) {
	cat := db.NewCatalog(
		map[string]bool{"LabReport": true, "insurance_benefits_v2": true},
		map[string]bool{"email_address": true, "oauth_provider": true, "oauth_provider_id": true, "oauth_email": true},
	)
	var buf bytes.Buffer
	printCatalog(&buf, cat)

	out := buf.String()
	for _, want := range []string{"LabReport\n", "insurance_benefits_v2", "eob_records_v2", "oauth columns        true"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}
