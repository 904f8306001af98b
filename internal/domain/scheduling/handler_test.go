package scheduling

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/carepilot/carepilot/internal/platform/auth"
)

func newTestEcho(email, role string) (*echo.Echo, *mockAppointmentRepo) {
	repo := newMockAppointmentRepo()
	e := echo.New()
	api := e.Group("/api")
	api.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), email, role)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(NewService(repo)).RegisterRoutes(api)
	return e, repo
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHandler_CreateAppointment_UsesSessionEmail(t *testing.T) {
	e, repo := newTestEcho("pat@example.com", auth.RolePatient)
	rec := doJSON(e, http.MethodPost, "/api/appointments",
		`{"user_email":"someone-else@example.com","doctor_id":"doc_0001","appointment_date":"2026-11-02","appointment_time":"09:00"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.UserEmail != "pat@example.com" {
		t.Errorf("expected session email, got %q", got.UserEmail)
	}
	if _, ok := repo.appointments[got.ID]; !ok {
		t.Error("appointment not stored")
	}
}

func TestHandler_CreateAppointment_UnknownDoctorReadsBack(t *testing.T) {
	e, _ := newTestEcho("pat@example.com", auth.RolePatient)
	rec := doJSON(e, http.MethodPost, "/api/appointments",
		`{"doctor_id":"not-in-sql","appointment_date":"2026-11-03","appointment_time":"14:00","appointment_type":"telehealth"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created Appointment
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}

	rec = doJSON(e, http.MethodGet, "/api/appointments/"+created.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"doctor_id":"not-in-sql"`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_CreateAppointment_DoubleBooking(t *testing.T) {
	e, _ := newTestEcho("pat@example.com", auth.RolePatient)
	body := `{"doctor_id":"doc_0001","appointment_date":"2026-11-02","appointment_time":"09:00"}`
	if rec := doJSON(e, http.MethodPost, "/api/appointments", body); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	rec := doJSON(e, http.MethodPost, "/api/appointments", body)
	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandler_CreateAppointment_Invalid(t *testing.T) {
	e, _ := newTestEcho("pat@example.com", auth.RolePatient)
	rec := doJSON(e, http.MethodPost, "/api/appointments", `{"doctor_id":"doc","appointment_date":"tomorrow","appointment_time":"09:00"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_PatientCannotSeeOthers(t *testing.T) {
	e, repo := newTestEcho("pat@example.com", auth.RolePatient)
	repo.appointments["apt_other"] = &Appointment{
		ID: "apt_other", UserEmail: "other@example.com", DoctorID: "doc",
		AppointmentDate: "2026-11-02", AppointmentTime: "09:00", Status: StatusScheduled,
	}

	if rec := doJSON(e, http.MethodGet, "/api/appointments/apt_other", ""); rec.Code != http.StatusNotFound {
		t.Errorf("GET: expected 404, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodDelete, "/api/appointments/apt_other", ""); rec.Code != http.StatusNotFound {
		t.Errorf("DELETE: expected 404, got %d", rec.Code)
	}
	if _, ok := repo.appointments["apt_other"]; !ok {
		t.Error("appointment should not have been deleted")
	}

	rec := doJSON(e, http.MethodGet, "/api/appointments?user_email=other@example.com", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"total":0`) {
		t.Errorf("patient listing leaked other users: %s", rec.Body.String())
	}
}

func TestHandler_DoctorListsAll(t *testing.T) {
	e, repo := newTestEcho("doc@example.com", auth.RoleDoctor)
	for _, id := range []string{"apt_1", "apt_2"} {
		repo.appointments[id] = &Appointment{
			ID: id, UserEmail: id + "@example.com", DoctorID: "doc",
			AppointmentDate: "2026-11-02", AppointmentTime: "09:00", Status: StatusCompleted,
		}
	}
	rec := doJSON(e, http.MethodGet, "/api/appointments?doctor_id=doc", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"total":2`) {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_UpdateAndDelete(t *testing.T) {
	e, repo := newTestEcho("pat@example.com", auth.RolePatient)
	repo.appointments["apt_mine"] = &Appointment{
		ID: "apt_mine", UserEmail: "pat@example.com", DoctorID: "doc",
		AppointmentDate: "2026-11-02", AppointmentTime: "09:00", Status: StatusScheduled,
	}

	rec := doJSON(e, http.MethodPatch, "/api/appointments/apt_mine", `{"status":"cancelled"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if repo.appointments["apt_mine"].Status != StatusCancelled {
		t.Errorf("status not updated")
	}

	rec = doJSON(e, http.MethodDelete, "/api/appointments/apt_mine", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	if _, ok := repo.appointments["apt_mine"]; ok {
		t.Error("appointment still present")
	}
}
