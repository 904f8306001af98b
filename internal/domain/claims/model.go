package claims

import (
	"time"

	"gorm.io/datatypes"
)

// EOBRecord maps to eob_records or eob_records_v2. The natural key is
// (claim_number, user_id).
type EOBRecord struct {
	ID                    int64                                  `db:"id" json:"id"`
	UserID                string                                 `db:"user_id" json:"user_id"`
	ClaimNumber           string                                 `db:"claim_number" json:"claim_number"`
	MemberName            *string                                `db:"member_name" json:"member_name,omitempty"`
	MemberAddress         *string                                `db:"member_address" json:"member_address,omitempty"`
	MemberID              *string                                `db:"member_id" json:"member_id,omitempty"`
	GroupNumber           *string                                `db:"group_number" json:"group_number,omitempty"`
	ClaimDate             *string                                `db:"claim_date" json:"claim_date,omitempty"`
	ProviderName          *string                                `db:"provider_name" json:"provider_name,omitempty"`
	ProviderNPI           *string                                `db:"provider_npi" json:"provider_npi,omitempty"`
	TotalBilled           float64                                `db:"total_billed" json:"total_billed"`
	TotalBenefitsApproved float64                                `db:"total_benefits_approved" json:"total_benefits_approved"`
	AmountYouOwe          float64                                `db:"amount_you_owe" json:"amount_you_owe"`
	Services              datatypes.JSONSlice[ServiceDetail]     `db:"services" json:"services"`
	CoverageBreakdown     datatypes.JSONType[*CoverageBreakdown] `db:"coverage_breakdown" json:"coverage_breakdown"`
	Alerts                datatypes.JSONSlice[string]            `db:"alerts" json:"alerts"`
	Discrepancies         datatypes.JSONSlice[string]            `db:"discrepancies" json:"discrepancies"`
	InsuranceProvider     *string                                `db:"insurance_provider" json:"insurance_provider,omitempty"`
	PlanName              *string                                `db:"plan_name" json:"plan_name,omitempty"`
	PolicyNumber          *string                                `db:"policy_number" json:"policy_number,omitempty"`
	SourceDocumentID      *string                                `db:"source_document_id" json:"source_document_id,omitempty"`
	CaseStatus            *string                                `db:"case_status" json:"case_status,omitempty"`
	CreatedAt             time.Time                              `db:"created_at" json:"created_at"`
	UpdatedAt             time.Time                              `db:"updated_at" json:"updated_at"`
}

type ServiceDetail struct {
	ServiceDescription string  `json:"service_description"`
	ServiceDate        string  `json:"service_date"`
	AmountBilled       float64 `json:"amount_billed"`
	NotCovered         float64 `json:"not_covered"`
	Covered            float64 `json:"covered"`
	CPTCode            *string `json:"cpt_code,omitempty"`
	ICD10Code          *string `json:"icd10_code,omitempty"`
}

type CoverageBreakdown struct {
	TotalBilled                  float64 `json:"total_billed"`
	TotalNotCovered              float64 `json:"total_not_covered"`
	TotalCoveredBeforeDeductions float64 `json:"total_covered_before_deductions"`
	TotalCoinsurance             float64 `json:"total_coinsurance"`
	TotalDeductions              float64 `json:"total_deductions"`
	TotalBenefitsApproved        float64 `json:"total_benefits_approved"`
	AmountYouOwe                 float64 `json:"amount_you_owe"`
	Notes                        *string `json:"notes,omitempty"`
}

// Case statuses. The first three are derived; the rest are only ever set by
// the user through case_status.
const (
	CaseResolved      = "Resolved"
	CaseNeedsReview   = "Needs Review"
	CaseInProgress    = "In Progress"
	CaseAppealDrafted = "Appeal Drafted"
	CaseAppealSent    = "Appeal Sent"
)

var validCaseStatuses = map[string]bool{
	CaseResolved:      true,
	CaseNeedsReview:   true,
	CaseInProgress:    true,
	CaseAppealDrafted: true,
	CaseAppealSent:    true,
}

// Case is the cases-page view of an EOB record.
type Case struct {
	ID                    string    `json:"id"`
	Type                  string    `json:"type"`
	Title                 string    `json:"title"`
	Amount                float64   `json:"amount"`
	Status                string    `json:"status"`
	Date                  string    `json:"date"`
	Alert                 *string   `json:"alert"`
	Provider              string    `json:"provider"`
	Description           string    `json:"description"`
	ClaimNumber           string    `json:"claim_number"`
	TotalBilled           float64   `json:"total_billed"`
	TotalBenefitsApproved float64   `json:"total_benefits_approved"`
	ServicesCount         int       `json:"services_count"`
	MemberName            *string   `json:"member_name,omitempty"`
	MemberID              *string   `json:"member_id,omitempty"`
	GroupNumber           *string   `json:"group_number,omitempty"`
	UpdatedAt             time.Time `json:"updated_at"`
}

// AppealRequest is the body of POST /appeals/generate. EOBData, when given,
// is used instead of loading the claim.
type AppealRequest struct {
	ClaimNumber       string     `json:"claim_number"`
	UserID            string     `json:"user_id"`
	EOBData           *EOBRecord `json:"eob_data,omitempty"`
	DiscrepancyTypes  []string   `json:"discrepancy_types,omitempty"`
	AdditionalContext string     `json:"additional_context,omitempty"`
}

// AppealDraft is an editable appeal email. It is never sent by the server.
type AppealDraft struct {
	Recipient string         `json:"recipient"`
	Subject   string         `json:"subject"`
	Body      string         `json:"body"`
	KeyPoints []string       `json:"key_points"`
	Metadata  AppealMetadata `json:"metadata"`
}

type AppealMetadata struct {
	ClaimNumber       string    `json:"claim_number"`
	MemberName        string    `json:"member_name"`
	MemberID          string    `json:"member_id"`
	GeneratedDate     time.Time `json:"generated_date"`
	DiscrepancyTypes  []string  `json:"discrepancy_types"`
	InsuranceProvider string    `json:"insurance_provider"`
	Provider          string    `json:"provider"`
	Source            string    `json:"source"`
}

type MailtoRequest struct {
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
}
