package directory

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/carepilot/carepilot/internal/platform/auth"
)

func newTestEcho(role string) (*echo.Echo, *mockDoctorRepo) {
	svc, repo, _ := newTestService()
	e := echo.New()
	api := e.Group("/api")
	api.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), "user@example.com", role)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(svc).RegisterRoutes(api)
	return e, repo
}

func TestHandler_ListDoctors(t *testing.T) {
	e, repo := newTestEcho(auth.RolePatient)
	repo.doctors["d1"] = &Doctor{ID: "d1", Name: "Dr. A", AcceptsTelehealth: true, Languages: []string{"English"}}
	repo.doctors["d2"] = &Doctor{ID: "d2", Name: "Dr. B", Languages: []string{"French"}}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/doctors?telehealth=true&language=english", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Data  []Doctor `json:"data"`
		Total int      `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Data[0].ID != "d1" {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestHandler_ListDoctors_BadBool(t *testing.T) {
	e, _ := newTestEcho(auth.RolePatient)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/doctors?in_network=maybe", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_GetDoctor_NotFound(t *testing.T) {
	e, _ := newTestEcho(auth.RolePatient)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/doctors/nope", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_Directory_Empty(t *testing.T) {
	e, _ := newTestEcho(auth.RolePatient)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/doctors/directory", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"data":[]`) {
		t.Errorf("expected empty data array, got %s", rec.Body.String())
	}
}

func TestHandler_WritesRequireDoctor(t *testing.T) {
	e, _ := newTestEcho(auth.RolePatient)
	req := httptest.NewRequest(http.MethodPost, "/api/doctors", strings.NewReader(`{"id":"d1","name":"Dr. A"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("expected 403, got %d", rec.Code)
	}
}

func TestHandler_UnknownRouteIsNotFoundForPatients(t *testing.T) {
	e, _ := newTestEcho(auth.RolePatient)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/no-such-route", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_CreateAndReplaceSlots(t *testing.T) {
	e, repo := newTestEcho(auth.RoleDoctor)

	req := httptest.NewRequest(http.MethodPost, "/api/doctors", strings.NewReader(`{"id":"d1","name":"Dr. A","languages":["English"]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodPut, "/api/doctors/d1/slots",
		strings.NewReader(`{"slots":[{"date":"2026-03-02","time":"09:00","available":true}]}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(repo.doctors["d1"].Slots) != 1 {
		t.Errorf("expected slots to be stored, got %+v", repo.doctors["d1"].Slots)
	}

	req = httptest.NewRequest(http.MethodPatch, "/api/doctors/d1", strings.NewReader(`{"name":"Dr. Alpha"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || repo.doctors["d1"].Name != "Dr. Alpha" {
		t.Errorf("patch failed: %d %s", rec.Code, rec.Body.String())
	}
}
