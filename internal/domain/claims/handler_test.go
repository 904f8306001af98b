package claims

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/carepilot/carepilot/internal/platform/auth"
)

func newTestEcho(email, role string) (*echo.Echo, *mockEOBRepo) {
	svc, repo, _ := newTestService(nil)
	e := echo.New()
	api := e.Group("/api")
	api.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := auth.WithIdentity(c.Request().Context(), email, role)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	})
	NewHandler(svc).RegisterRoutes(api)
	return e, repo
}

func doJSON(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

const eobBody = `{
	"user_id": "someone-else@example.com",
	"claim_number": "CLM-1001",
	"member_name": "Jane Doe",
	"member_id": "W123456",
	"claim_date": "2026-02-10",
	"provider_name": "City Clinic",
	"insurance_provider": "Aetna",
	"total_billed": 1200,
	"total_benefits_approved": 400,
	"amount_you_owe": 800,
	"services": [{"service_description": "MRI", "service_date": "2026-02-10", "amount_billed": 1000, "covered": 220, "not_covered": 780}],
	"coverage_breakdown": {"total_billed": 1200, "amount_you_owe": 800},
	"discrepancies": ["Duplicate charge"]
}`

func TestHandler_UpsertAndGetEOB(t *testing.T) {
	e, repo := newTestEcho("pat@example.com", auth.RolePatient)

	rec := doJSON(e, http.MethodPost, "/api/eob", eobBody)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	stored, err := repo.GetByClaim(context.Background(), "CLM-1001", "pat@example.com")
	if err != nil {
		t.Fatalf("expected record pinned to session user: %v", err)
	}
	if cb := stored.CoverageBreakdown.Data(); cb == nil || cb.AmountYouOwe != 800 {
		t.Errorf("coverage breakdown not decoded: %+v", cb)
	}

	rec = doJSON(e, http.MethodGet, "/api/eob?claim_number=CLM-1001", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got EOBRecord
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.ClaimNumber != "CLM-1001" || len(got.Services) != 1 {
		t.Errorf("unexpected record %+v", got)
	}

	rec = doJSON(e, http.MethodGet, "/api/eob", "")
	var list struct {
		Total int `json:"total"`
	}
	_ = json.Unmarshal(rec.Body.Bytes(), &list)
	if list.Total != 1 {
		t.Errorf("expected 1 record, got %d", list.Total)
	}

	if rec := doJSON(e, http.MethodGet, "/api/eob?claim_number=CLM-404", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_UpsertEOB_Invalid(t *testing.T) {
	e, _ := newTestEcho("pat@example.com", auth.RolePatient)
	if rec := doJSON(e, http.MethodPost, "/api/eob", `{"total_billed": 10}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodPost, "/api/eob", `{"claim_number": `); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for malformed json, got %d", rec.Code)
	}
}

func TestHandler_CasesAndStatus(t *testing.T) {
	e, _ := newTestEcho("pat@example.com", auth.RolePatient)
	if rec := doJSON(e, http.MethodPost, "/api/eob", eobBody); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec := doJSON(e, http.MethodGet, "/api/cases", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Cases []Case `json:"cases"`
		Total int    `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Total != 1 || resp.Cases[0].Status != CaseInProgress || resp.Cases[0].Title != "Aetna - EOB for City Clinic" {
		t.Errorf("unexpected cases %+v", resp)
	}

	rec = doJSON(e, http.MethodPost, "/api/cases/update-status", `{"claim_number":"CLM-1001","status":"Appeal Sent"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var upd map[string]interface{}
	_ = json.Unmarshal(rec.Body.Bytes(), &upd)
	if upd["success"] != true || upd["status"] != "Appeal Sent" {
		t.Errorf("unexpected response %v", upd)
	}

	rec = doJSON(e, http.MethodGet, "/api/cases", "")
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Cases[0].Status != CaseAppealSent {
		t.Errorf("expected Appeal Sent, got %s", resp.Cases[0].Status)
	}

	if rec := doJSON(e, http.MethodPost, "/api/cases/update-status", `{"claim_number":"CLM-1001","status":"Bogus"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
	if rec := doJSON(e, http.MethodPost, "/api/cases/update-status", `{"claim_number":"CLM-2","status":"Resolved"}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_PatientCannotReadOthers(t *testing.T) {
	e, repo := newTestEcho("pat@example.com", auth.RolePatient)
	other := sampleEOB()
	other.UserID = "other@example.com"
	_ = repo.Upsert(context.Background(), other)

	if rec := doJSON(e, http.MethodGet, "/api/eob?claim_number=CLM-1001&user_id=other@example.com", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}

	doc, docRepo := newTestEcho("dr@example.com", auth.RoleDoctor)
	_ = docRepo.Upsert(context.Background(), other)
	if rec := doJSON(doc, http.MethodGet, "/api/eob?claim_number=CLM-1001&user_id=other@example.com", ""); rec.Code != http.StatusOK {
		t.Errorf("expected doctor to read record, got %d", rec.Code)
	}
}

func TestHandler_GenerateAppeal(t *testing.T) {
	e, _ := newTestEcho("pat@example.com", auth.RolePatient)
	if rec := doJSON(e, http.MethodPost, "/api/eob", eobBody); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec := doJSON(e, http.MethodPost, "/api/appeals/generate", `{"claim_number":"CLM-1001","additional_context":"Provider is in network."}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var d AppealDraft
	if err := json.Unmarshal(rec.Body.Bytes(), &d); err != nil {
		t.Fatal(err)
	}
	if d.Recipient != "Aetna" || !strings.Contains(d.Body, "Provider is in network.") || d.Metadata.Source != "template" {
		t.Errorf("unexpected draft %+v", d)
	}

	if rec := doJSON(e, http.MethodPost, "/api/appeals/generate", `{"claim_number":"CLM-404"}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHandler_Mailto(t *testing.T) {
	e, _ := newTestEcho("pat@example.com", auth.RolePatient)

	rec := doJSON(e, http.MethodPost, "/api/appeals/mailto", `{"recipient":"appeals@aetna.com","subject":"Appeal","body":"Hi\nthere"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp map[string]string
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["mailto"] != "mailto:appeals@aetna.com?subject=Appeal&body=Hi%0D%0Athere" {
		t.Errorf("unexpected mailto %q", resp["mailto"])
	}

	rec = doJSON(e, http.MethodPost, "/api/appeals/mailto", `{"recipient":"Aetna","subject":"Appeal"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", rec.Code)
	}
}
