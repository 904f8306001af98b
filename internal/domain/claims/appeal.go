package claims

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	defaultProviderName = "Weill Cornell Medicine"
	maxListedIssues     = 5
)

var (
	ErrInvalidRecipient = errors.New("recipient is not a valid email address")

	recipientPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

// AppealGenerator produces an appeal draft for an EOB. The remote appeal
// service implements it; the local template is used when it is absent or
// fails.
type AppealGenerator interface {
	Generate(ctx context.Context, eob *EOBRecord, discrepancyTypes []string, additionalContext string) (*AppealDraft, error)
}

// AppealClient calls the external appeal service over HTTP.
type AppealClient struct {
	url    string
	client *http.Client
}

func NewAppealClient(serviceURL string, timeout time.Duration) *AppealClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AppealClient{url: serviceURL, client: &http.Client{Timeout: timeout}}
}

type appealPayload struct {
	ClaimNumber       string     `json:"claim_number"`
	UserID            string     `json:"user_id"`
	EOBData           *EOBRecord `json:"eob_data"`
	DiscrepancyTypes  []string   `json:"discrepancy_types,omitempty"`
	AdditionalContext string     `json:"additional_context,omitempty"`
}

func (c *AppealClient) Generate(ctx context.Context, eob *EOBRecord, discrepancyTypes []string, additionalContext string) (*AppealDraft, error) {
	body, err := json.Marshal(appealPayload{
		ClaimNumber:       eob.ClaimNumber,
		UserID:            eob.UserID,
		EOBData:           eob,
		DiscrepancyTypes:  discrepancyTypes,
		AdditionalContext: additionalContext,
	})
	if err != nil {
		return nil, fmt.Errorf("encode appeal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build appeal request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call appeal service: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read appeal response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("appeal service returned %d: %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var draft AppealDraft
	if err := json.Unmarshal(raw, &draft); err != nil {
		return nil, fmt.Errorf("decode appeal response: %w", err)
	}
	if strings.TrimSpace(draft.Body) == "" {
		return nil, errors.New("appeal service returned an empty body")
	}
	return &draft, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// IdentifyDiscrepancyTypes classifies the EOB's problems from its
// discrepancy notes and amounts.
func IdentifyDiscrepancyTypes(eob *EOBRecord) []string {
	var types []string
	text := strings.ToLower(strings.Join(eob.Discrepancies, " "))

	if strings.Contains(text, "duplicate") {
		types = append(types, "Duplicate Charges")
	}
	if strings.Contains(text, "mismatch") || strings.Contains(text, "amount") {
		types = append(types, "Amount Discrepancy")
	}
	if strings.Contains(text, "service") {
		types = append(types, "Service Coding Issue")
	}

	if eob.TotalBilled > 0 && eob.TotalBenefitsApproved == 0 {
		types = append(types, "Complete Denial")
	} else if eob.TotalBenefitsApproved < eob.TotalBilled*0.5 {
		types = append(types, "Underpayment")
	}
	if eob.AmountYouOwe > 1000 {
		types = append(types, "High Amount Owed")
	}

	if len(types) == 0 {
		types = append(types, "Billing Discrepancy")
	}
	return types
}

// overchargedServices lists services with uncovered charges or coverage
// under half the billed amount.
func overchargedServices(eob *EOBRecord) []ServiceDetail {
	var out []ServiceDetail
	for _, s := range eob.Services {
		if s.NotCovered > 0 || (s.AmountBilled > 0 && s.Covered < s.AmountBilled*0.5) {
			out = append(out, s)
		}
	}
	return out
}

func strOr(p *string, def string) string {
	if p == nil || strings.TrimSpace(*p) == "" {
		return def
	}
	return strings.TrimSpace(*p)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// appealRecipient is the insurer the appeal is addressed to.
func appealRecipient(eob *EOBRecord) string {
	return strOr(eob.InsuranceProvider, strOr(eob.PlanName, "Insurance Provider"))
}

func appealSubject(memberName, memberID, claimNumber string) string {
	return fmt.Sprintf("Appeal Request - %s - Member ID: %s - Claim: %s", memberName, memberID, claimNumber)
}

// DraftAppeal builds the appeal email locally from a fixed template.
func DraftAppeal(eob *EOBRecord, discrepancyTypes []string, additionalContext string, now time.Time) *AppealDraft {
	claimNumber := orDefault(eob.ClaimNumber, "Unknown")
	memberName := strOr(eob.MemberName, "Member")
	memberID := strOr(eob.MemberID, "N/A")
	recipient := appealRecipient(eob)
	if len(discrepancyTypes) == 0 {
		discrepancyTypes = IdentifyDiscrepancyTypes(eob)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Dear %s,\n\n", recipient)
	fmt.Fprintf(&b, "I am writing to appeal the decision regarding claim %s for %s (Member ID: %s). "+
		"After reviewing the Explanation of Benefits, I have identified the following issues that require your review:\n\n",
		claimNumber, memberName, memberID)

	discrepancies := eob.Discrepancies
	if len(discrepancies) > maxListedIssues {
		discrepancies = discrepancies[:maxListedIssues]
	}
	if len(discrepancies) > 0 {
		b.WriteString("Discrepancies Identified:\n")
		for _, d := range discrepancies {
			fmt.Fprintf(&b, "- %s\n", d)
		}
		b.WriteString("\n")
	}

	over := overchargedServices(eob)
	if len(over) > maxListedIssues {
		over = over[:maxListedIssues]
	}
	if len(over) > 0 {
		b.WriteString("Overcharged Services:\n")
		for _, s := range over {
			notCovered := s.NotCovered
			if notCovered <= 0 {
				notCovered = s.AmountBilled - s.Covered
			}
			fmt.Fprintf(&b, "- %s (%s): billed $%.2f, covered $%.2f, not covered $%.2f\n",
				orDefault(s.ServiceDescription, "Unknown service"), orDefault(s.ServiceDate, "date unknown"),
				s.AmountBilled, s.Covered, notCovered)
		}
		b.WriteString("\n")
	}

	if note := strings.TrimSpace(additionalContext); note != "" {
		fmt.Fprintf(&b, "Additional context: %s\n\n", note)
	}

	b.WriteString("I request that you review these discrepancies and overcharges and reconsider the coverage determination. " +
		"I believe there may have been errors in the processing of this claim.\n\n")
	b.WriteString("Thank you for your attention to this matter. I look forward to your prompt review and resolution.\n\n")
	fmt.Fprintf(&b, "Sincerely,\n%s", memberName)

	keyPoints := []string{fmt.Sprintf("Claim %s for %s", claimNumber, memberName)}
	if len(eob.Discrepancies) > 0 {
		keyPoints = append(keyPoints, "Discrepancies identified")
	} else {
		keyPoints = append(keyPoints, "Billing issues identified")
	}
	if len(over) > 0 {
		keyPoints = append(keyPoints, "Overcharged services")
	} else {
		keyPoints = append(keyPoints, "Service billing issues")
	}

	return &AppealDraft{
		Recipient: recipient,
		Subject:   appealSubject(memberName, memberID, claimNumber),
		Body:      b.String(),
		KeyPoints: keyPoints,
		Metadata: AppealMetadata{
			ClaimNumber:       claimNumber,
			MemberName:        memberName,
			MemberID:          memberID,
			GeneratedDate:     now,
			DiscrepancyTypes:  discrepancyTypes,
			InsuranceProvider: recipient,
			Provider:          strOr(eob.ProviderName, defaultProviderName),
			Source:            "template",
		},
	}
}

// completeDraft fills what the appeal service left out and rebuilds a
// subject that does not name the member, member id and claim.
func completeDraft(d *AppealDraft, eob *EOBRecord, discrepancyTypes []string, now time.Time) *AppealDraft {
	claimNumber := orDefault(eob.ClaimNumber, "Unknown")
	memberName := strOr(eob.MemberName, "Member")
	memberID := strOr(eob.MemberID, "")

	subj := d.Subject
	ok := subj != "" &&
		(memberName == "Member" || strings.Contains(strings.ToLower(subj), strings.ToLower(memberName))) &&
		(memberID == "" || strings.Contains(subj, memberID)) &&
		(claimNumber == "Unknown" || strings.Contains(subj, claimNumber))
	if !ok {
		d.Subject = appealSubject(memberName, memberID, claimNumber)
	}
	if strings.TrimSpace(d.Recipient) == "" {
		d.Recipient = appealRecipient(eob)
	}
	if len(d.KeyPoints) == 0 {
		d.KeyPoints = discrepancyTypes
	}
	d.Metadata = AppealMetadata{
		ClaimNumber:       claimNumber,
		MemberName:        memberName,
		MemberID:          memberID,
		GeneratedDate:     now,
		DiscrepancyTypes:  discrepancyTypes,
		InsuranceProvider: appealRecipient(eob),
		Provider:          strOr(eob.ProviderName, defaultProviderName),
		Source:            "service",
	}
	return d
}

var mailtoAddrEscaper = strings.NewReplacer("%", "%25", "?", "%3F", "&", "%26", "#", "%23")

// MailtoURI renders the draft as a mailto: link for the user's mail client.
// Header values are percent-encoded per RFC 6068 with CRLF line breaks.
func MailtoURI(req MailtoRequest) (string, error) {
	recipient := strings.TrimSpace(req.Recipient)
	if !recipientPattern.MatchString(recipient) {
		return "", ErrInvalidRecipient
	}
	var params []string
	if req.Subject != "" {
		params = append(params, "subject="+mailtoEscape(req.Subject))
	}
	if req.Body != "" {
		body := strings.ReplaceAll(strings.ReplaceAll(req.Body, "\r\n", "\n"), "\n", "\r\n")
		params = append(params, "body="+mailtoEscape(body))
	}
	uri := "mailto:" + mailtoAddrEscaper.Replace(recipient)
	if len(params) > 0 {
		uri += "?" + strings.Join(params, "&")
	}
	return uri, nil
}

func mailtoEscape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
