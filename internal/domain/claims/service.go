package claims

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/carepilot/carepilot/internal/platform/events"
	"github.com/carepilot/carepilot/internal/platform/httperr"
)

type Service struct {
	eobs    EOBRepository
	appeals AppealGenerator
	events  *events.Dispatcher
	logger  zerolog.Logger
	now     func() time.Time
}

// NewService wires the claims service. appeals may be nil, in which case
// every appeal is drafted from the local template.
func NewService(eobs EOBRepository, appeals AppealGenerator, dispatcher *events.Dispatcher, logger zerolog.Logger) *Service {
	return &Service{eobs: eobs, appeals: appeals, events: dispatcher, logger: logger, now: time.Now}
}

func (s *Service) UpsertEOB(ctx context.Context, rec *EOBRecord) error {
	rec.UserID = strings.TrimSpace(rec.UserID)
	rec.ClaimNumber = strings.TrimSpace(rec.ClaimNumber)
	if rec.UserID == "" {
		return httperr.Invalidf("user_id is required")
	}
	if rec.ClaimNumber == "" {
		return httperr.Invalidf("claim_number is required")
	}
	if rec.TotalBilled < 0 || rec.TotalBenefitsApproved < 0 || rec.AmountYouOwe < 0 {
		return httperr.Invalidf("amounts cannot be negative")
	}
	if err := s.eobs.Upsert(ctx, rec); err != nil {
		return err
	}
	s.events.Emit(events.New(events.TypeEOBUpserted, rec.ClaimNumber, rec.UserID, map[string]interface{}{
		"eob_id":         rec.ID,
		"amount_you_owe": rec.AmountYouOwe,
		"discrepancies":  len(rec.Discrepancies),
	}))
	return nil
}

func (s *Service) GetEOB(ctx context.Context, claimNumber, userID string) (*EOBRecord, error) {
	if claimNumber == "" || userID == "" {
		return nil, httperr.Invalidf("claim_number and user_id are required")
	}
	return s.eobs.GetByClaim(ctx, claimNumber, userID)
}

func (s *Service) ListEOBs(ctx context.Context, userID string) ([]*EOBRecord, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, httperr.Invalidf("user_id is required")
	}
	return s.eobs.ListByUser(ctx, userID)
}

// Cases renders the user's EOB records for the cases page.
func (s *Service) Cases(ctx context.Context, userID string) ([]*Case, error) {
	recs, err := s.ListEOBs(ctx, userID)
	if err != nil {
		return nil, err
	}
	today := s.now().Format("2006-01-02")
	cases := make([]*Case, 0, len(recs))
	for _, r := range recs {
		cases = append(cases, ToCase(r, today))
	}
	return cases, nil
}

func (s *Service) UpdateCaseStatus(ctx context.Context, claimNumber, userID, status string) error {
	if claimNumber == "" || userID == "" {
		return httperr.Invalidf("claim_number and user_id are required")
	}
	if !validCaseStatuses[status] {
		return httperr.Invalidf("invalid status: %s", status)
	}
	return s.eobs.UpdateCaseStatus(ctx, claimNumber, userID, status)
}

// GenerateAppeal drafts an appeal for a claim. The appeal service is tried
// first when configured; any failure there falls back to the local template.
func (s *Service) GenerateAppeal(ctx context.Context, req *AppealRequest) (*AppealDraft, error) {
	eob := req.EOBData
	if eob == nil {
		rec, err := s.GetEOB(ctx, req.ClaimNumber, req.UserID)
		if err != nil {
			return nil, err
		}
		eob = rec
	} else {
		if eob.ClaimNumber == "" {
			eob.ClaimNumber = req.ClaimNumber
		}
		if eob.UserID == "" {
			eob.UserID = req.UserID
		}
	}

	types := req.DiscrepancyTypes
	if len(types) == 0 {
		types = IdentifyDiscrepancyTypes(eob)
	}

	if s.appeals != nil {
		draft, err := s.appeals.Generate(ctx, eob, types, req.AdditionalContext)
		if err == nil {
			return completeDraft(draft, eob, types, s.now()), nil
		}
		s.logger.Warn().Err(err).Str("claim_number", eob.ClaimNumber).Msg("appeal service failed, using local draft")
	}
	return DraftAppeal(eob, types, req.AdditionalContext, s.now()), nil
}

func (s *Service) Mailto(req MailtoRequest) (string, error) {
	return MailtoURI(req)
}

// ToCase derives the case view. A user-set case_status wins over the
// derived status.
func ToCase(r *EOBRecord, today string) *Case {
	status := CaseResolved
	if r.AmountYouOwe > 0 {
		status = CaseNeedsReview
	}
	if len(r.Discrepancies) > 0 {
		status = CaseInProgress
	}
	claimDate := strOr(r.ClaimDate, "")
	if claimDate == "" {
		status = CaseInProgress
		claimDate = today
	}
	if r.CaseStatus != nil && *r.CaseStatus != "" {
		status = *r.CaseStatus
	}

	var alert *string
	switch {
	case r.AmountYouOwe > 1000:
		a := "High amount"
		alert = &a
	case len(r.Discrepancies) > 0:
		a := "Discrepancy found"
		alert = &a
	case len(r.Alerts) > 0:
		a := r.Alerts[0]
		alert = &a
	}

	provider := strOr(r.ProviderName, defaultProviderName)
	insurer := strOr(r.InsuranceProvider, "Insurance")
	title := insurer + " - Explanation of Benefits"
	if provider != "Unknown" {
		title = insurer + " - EOB for " + provider
	}

	return &Case{
		ID:                    "eob-" + r.ClaimNumber,
		Type:                  "EOB",
		Title:                 title,
		Amount:                r.AmountYouOwe,
		Status:                status,
		Date:                  claimDate,
		Alert:                 alert,
		Provider:              provider,
		Description:           "EOB for claim " + r.ClaimNumber,
		ClaimNumber:           r.ClaimNumber,
		TotalBilled:           r.TotalBilled,
		TotalBenefitsApproved: r.TotalBenefitsApproved,
		ServicesCount:         len(r.Services),
		MemberName:            r.MemberName,
		MemberID:              r.MemberID,
		GroupNumber:           r.GroupNumber,
		UpdatedAt:             r.UpdatedAt,
	}
}
