package dashboard

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/carepilot/carepilot/internal/platform/auth"
)

func newTestEcho(email, role string) (*echo.Echo, *stubLabs) {
	l, a, cs := fixtureSources()
	e := echo.New()
	api := e.Group("/api")
	api.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), email, role)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(newTestService(l, a, cs)).RegisterRoutes(api)
	return e, l
}

func TestHandler_Get(t *testing.T) {
	e, _ := newTestEcho("pat@example.com", auth.RolePatient)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var d Dashboard
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if d.UserID != "pat@example.com" {
		t.Errorf("expected session user, got %q", d.UserID)
	}
	if len(d.NeedsAttention) == 0 || d.QuickAccess.LatestLab == nil {
		t.Errorf("expected populated dashboard, got %+v", d)
	}
}

func TestHandler_Get_PatientIsPinned(t *testing.T) {
	e, l := newTestEcho("pat@example.com", auth.RolePatient)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?user_id=other@example.com", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if l.userID != "pat@example.com" {
		t.Errorf("expected patient pinned to session, got %q", l.userID)
	}
}

func TestHandler_Get_DoctorMayNameUser(t *testing.T) {
	e, l := newTestEcho("doc@example.com", auth.RoleDoctor)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard?user_id=pat@example.com", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if l.userID != "pat@example.com" {
		t.Errorf("expected requested user, got %q", l.userID)
	}
}

func TestHandler_Get_NoSession(t *testing.T) {
	e, _ := newTestEcho("", auth.RolePatient)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/dashboard", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}
