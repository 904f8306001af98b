package claims

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepilot/carepilot/internal/platform/db"
	"github.com/carepilot/carepilot/internal/platform/events"
	"github.com/carepilot/carepilot/internal/platform/httperr"
)

// -- Mock Repository --

type mockEOBRepo struct {
	rows   map[string]*EOBRecord
	order  []string
	nextID int64
}

func newMockEOBRepo() *mockEOBRepo {
	return &mockEOBRepo{rows: make(map[string]*EOBRecord)}
}

func eobKey(claim, user string) string { return claim + "|" + user }

func (m *mockEOBRepo) Upsert(_ context.Context, r *EOBRecord) error {
	k := eobKey(r.ClaimNumber, r.UserID)
	if existing, ok := m.rows[k]; ok {
		r.ID, r.CaseStatus, r.CreatedAt = existing.ID, existing.CaseStatus, existing.CreatedAt
		r.UpdatedAt = time.Now()
		m.rows[k] = r
		return nil
	}
	m.nextID++
	r.ID, r.CreatedAt, r.UpdatedAt = m.nextID, time.Now(), time.Now()
	m.rows[k] = r
	m.order = append(m.order, k)
	return nil
}

func (m *mockEOBRepo) GetByClaim(_ context.Context, claim, user string) (*EOBRecord, error) {
	r, ok := m.rows[eobKey(claim, user)]
	if !ok {
		return nil, fmt.Errorf("get eob record: %w", db.ErrNotFound)
	}
	return r, nil
}

func (m *mockEOBRepo) ListByUser(_ context.Context, user string) ([]*EOBRecord, error) {
	result := []*EOBRecord{}
	for _, k := range m.order {
		if r := m.rows[k]; r.UserID == user {
			result = append(result, r)
		}
	}
	return result, nil
}

func (m *mockEOBRepo) UpdateCaseStatus(_ context.Context, claim, user, status string) error {
	r, ok := m.rows[eobKey(claim, user)]
	if !ok {
		return fmt.Errorf("update case status: %w", db.ErrNotFound)
	}
	r.CaseStatus = &status
	return nil
}

type stubGenerator struct {
	draft *AppealDraft
	err   error
	calls int
}

func (g *stubGenerator) Generate(_ context.Context, _ *EOBRecord, _ []string, _ string) (*AppealDraft, error) {
	g.calls++
	return g.draft, g.err
}

var testNow = time.Date(2026, 3, 15, 9, 0, 0, 0, time.UTC)

func newTestService(gen AppealGenerator) (*Service, *mockEOBRepo, *events.Memory) {
	repo := newMockEOBRepo()
	pub := events.NewMemory()
	svc := NewService(repo, gen, events.NewDispatcher(pub, zerolog.Nop(), time.Second), zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc, repo, pub
}

// -- Tests --

func TestService_UpsertEOB(t *testing.T) {
	svc, repo, pub := newTestService(nil)
	ctx := context.Background()

	first := sampleEOB()
	if err := svc.UpsertEOB(ctx, first); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateCaseStatus(ctx, "CLM-1001", "pat@example.com", CaseAppealSent); err != nil {
		t.Fatal(err)
	}

	second := sampleEOB()
	second.AmountYouOwe = 50
	if err := svc.UpsertEOB(ctx, second); err != nil {
		t.Fatal(err)
	}
	if len(repo.rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(repo.rows))
	}
	if second.ID != first.ID {
		t.Errorf("expected same id, got %d and %d", first.ID, second.ID)
	}
	if second.CaseStatus == nil || *second.CaseStatus != CaseAppealSent {
		t.Errorf("expected case status preserved, got %v", second.CaseStatus)
	}

	svc.events.Wait()
	evts := pub.Events()
	if len(evts) != 2 || evts[0].Type != events.TypeEOBUpserted || evts[0].Key != "CLM-1001" {
		t.Errorf("unexpected events %+v", evts)
	}
}

func TestService_UpsertEOB_Validation(t *testing.T) {
	svc, _, _ := newTestService(nil)
	for name, r := range map[string]*EOBRecord{
		"no user":         {ClaimNumber: "C1"},
		"no claim":        {UserID: "u", ClaimNumber: "  "},
		"negative billed": {UserID: "u", ClaimNumber: "C1", TotalBilled: -5},
	} {
		if err := svc.UpsertEOB(context.Background(), r); !errors.Is(err, httperr.ErrInvalid) {
			t.Errorf("%s: expected invalid, got %v", name, err)
		}
	}
}

func TestService_GetEOB_NotFound(t *testing.T) {
	svc, _, _ := newTestService(nil)
	if _, err := svc.GetEOB(context.Background(), "nope", "u"); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if _, err := svc.GetEOB(context.Background(), "", "u"); !errors.Is(err, httperr.ErrInvalid) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestService_UpdateCaseStatus(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()
	if err := svc.UpsertEOB(ctx, sampleEOB()); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateCaseStatus(ctx, "CLM-1001", "pat@example.com", "Closed"); !errors.Is(err, httperr.ErrInvalid) {
		t.Errorf("expected invalid, got %v", err)
	}
	if err := svc.UpdateCaseStatus(ctx, "CLM-9", "pat@example.com", CaseResolved); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
	if err := svc.UpdateCaseStatus(ctx, "CLM-1001", "other@example.com", CaseResolved); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected not found for another user, got %v", err)
	}
	if err := svc.UpdateCaseStatus(ctx, "CLM-1001", "pat@example.com", CaseAppealDrafted); err != nil {
		t.Fatal(err)
	}
	cases, err := svc.Cases(ctx, "pat@example.com")
	if err != nil {
		t.Fatal(err)
	}
	if len(cases) != 1 || cases[0].Status != CaseAppealDrafted {
		t.Errorf("expected user status to win, got %+v", cases)
	}
}

func TestToCase(t *testing.T) {
	tests := []struct {
		name       string
		rec        *EOBRecord
		wantStatus string
		wantAlert  string
		wantDate   string
	}{
		{
			name:       "paid in full",
			rec:        &EOBRecord{ClaimNumber: "C1", ClaimDate: strPtr("2026-01-02")},
			wantStatus: CaseResolved,
			wantDate:   "2026-01-02",
		},
		{
			name:       "balance owed",
			rec:        &EOBRecord{ClaimNumber: "C1", ClaimDate: strPtr("2026-01-02"), AmountYouOwe: 20},
			wantStatus: CaseNeedsReview,
			wantDate:   "2026-01-02",
		},
		{
			name:       "discrepancies",
			rec:        &EOBRecord{ClaimNumber: "C1", ClaimDate: strPtr("2026-01-02"), AmountYouOwe: 20, Discrepancies: []string{"x"}},
			wantStatus: CaseInProgress,
			wantAlert:  "Discrepancy found",
			wantDate:   "2026-01-02",
		},
		{
			name:       "no claim date",
			rec:        &EOBRecord{ClaimNumber: "C1"},
			wantStatus: CaseInProgress,
			wantDate:   "2026-03-15",
		},
		{
			name:       "high amount",
			rec:        &EOBRecord{ClaimNumber: "C1", ClaimDate: strPtr("2026-01-02"), AmountYouOwe: 1500, Discrepancies: []string{"x"}},
			wantStatus: CaseInProgress,
			wantAlert:  "High amount",
			wantDate:   "2026-01-02",
		},
		{
			name:       "stored alert",
			rec:        &EOBRecord{ClaimNumber: "C1", ClaimDate: strPtr("2026-01-02"), Alerts: []string{"Deductible met"}},
			wantStatus: CaseResolved,
			wantAlert:  "Deductible met",
			wantDate:   "2026-01-02",
		},
		{
			name:       "user status",
			rec:        &EOBRecord{ClaimNumber: "C1", AmountYouOwe: 20, CaseStatus: strPtr(CaseResolved)},
			wantStatus: CaseResolved,
			wantDate:   "2026-03-15",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := ToCase(tt.rec, "2026-03-15")
			if c.Status != tt.wantStatus {
				t.Errorf("status: got %q, want %q", c.Status, tt.wantStatus)
			}
			if c.Date != tt.wantDate {
				t.Errorf("date: got %q, want %q", c.Date, tt.wantDate)
			}
			gotAlert := ""
			if c.Alert != nil {
				gotAlert = *c.Alert
			}
			if gotAlert != tt.wantAlert {
				t.Errorf("alert: got %q, want %q", gotAlert, tt.wantAlert)
			}
			if c.ID != "eob-C1" || c.Type != "EOB" {
				t.Errorf("unexpected id/type %s/%s", c.ID, c.Type)
			}
		})
	}
}

func TestToCase_Title(t *testing.T) {
	c := ToCase(sampleEOB(), "2026-03-15")
	if c.Title != "Aetna - EOB for City Clinic" {
		t.Errorf("unexpected title %q", c.Title)
	}
	if c.ServicesCount != 2 || c.TotalBilled != 1200 || c.Provider != "City Clinic" {
		t.Errorf("unexpected case %+v", c)
	}

	c = ToCase(&EOBRecord{ClaimNumber: "C1"}, "2026-03-15")
	if c.Title != "Insurance - EOB for "+defaultProviderName || c.Provider != defaultProviderName {
		t.Errorf("unexpected defaults %q / %q", c.Title, c.Provider)
	}
}

func TestService_Cases_RequiresUser(t *testing.T) {
	svc, _, _ := newTestService(nil)
	if _, err := svc.Cases(context.Background(), " "); !errors.Is(err, httperr.ErrInvalid) {
		t.Errorf("expected invalid, got %v", err)
	}
}

func TestService_GenerateAppeal_Template(t *testing.T) {
	svc, _, _ := newTestService(nil)
	ctx := context.Background()
	if err := svc.UpsertEOB(ctx, sampleEOB()); err != nil {
		t.Fatal(err)
	}
	d, err := svc.GenerateAppeal(ctx, &AppealRequest{ClaimNumber: "CLM-1001", UserID: "pat@example.com"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Metadata.Source != "template" || d.Recipient != "Aetna" {
		t.Errorf("unexpected draft %+v", d.Metadata)
	}
	if !d.Metadata.GeneratedDate.Equal(testNow) {
		t.Errorf("expected generated date %v, got %v", testNow, d.Metadata.GeneratedDate)
	}

	if _, err := svc.GenerateAppeal(ctx, &AppealRequest{ClaimNumber: "CLM-404", UserID: "pat@example.com"}); !errors.Is(err, db.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestService_GenerateAppeal_InlineEOB(t *testing.T) {
	svc, repo, _ := newTestService(nil)
	eob := sampleEOB()
	eob.ClaimNumber, eob.UserID = "", ""
	d, err := svc.GenerateAppeal(context.Background(), &AppealRequest{
		ClaimNumber:      "CLM-77",
		UserID:           "pat@example.com",
		EOBData:          eob,
		DiscrepancyTypes: []string{"Duplicate Charges"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if d.Metadata.ClaimNumber != "CLM-77" {
		t.Errorf("expected claim from request, got %s", d.Metadata.ClaimNumber)
	}
	if len(d.Metadata.DiscrepancyTypes) != 1 || d.Metadata.DiscrepancyTypes[0] != "Duplicate Charges" {
		t.Errorf("expected caller's discrepancy types, got %v", d.Metadata.DiscrepancyTypes)
	}
	if len(repo.rows) != 0 {
		t.Errorf("inline eob must not be stored")
	}
}

func TestService_GenerateAppeal_FallsBack(t *testing.T) {
	gen := &stubGenerator{err: errors.New("timeout")}
	svc, _, _ := newTestService(gen)
	d, err := svc.GenerateAppeal(context.Background(), &AppealRequest{UserID: "u", EOBData: sampleEOB()})
	if err != nil {
		t.Fatal(err)
	}
	if gen.calls != 1 {
		t.Errorf("expected generator to be tried once, got %d", gen.calls)
	}
	if d.Metadata.Source != "template" {
		t.Errorf("expected template fallback, got %s", d.Metadata.Source)
	}
}

func TestService_GenerateAppeal_Remote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"subject":"Claim appeal","body":"Dear Aetna, please reconsider."}`))
	}))
	defer srv.Close()

	svc, _, _ := newTestService(NewAppealClient(srv.URL, time.Second))
	d, err := svc.GenerateAppeal(context.Background(), &AppealRequest{UserID: "pat@example.com", EOBData: sampleEOB()})
	if err != nil {
		t.Fatal(err)
	}
	if d.Metadata.Source != "service" || d.Body != "Dear Aetna, please reconsider." {
		t.Errorf("expected remote draft, got %+v", d)
	}
	if d.Subject != "Appeal Request - Jane Doe - Member ID: W123456 - Claim: CLM-1001" {
		t.Errorf("expected rebuilt subject, got %q", d.Subject)
	}
	if d.Recipient != "Aetna" || len(d.KeyPoints) == 0 {
		t.Errorf("expected recipient and key points filled, got %+v", d)
	}
}
