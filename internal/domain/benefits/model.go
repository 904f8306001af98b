package benefits

import (
	"time"

	"gorm.io/datatypes"
)

// InsuranceBenefits maps to insurance_benefits or insurance_benefits_v2. A
// plan is identified by (plan_name, policy_number, user_id), where a NULL
// policy number matches another NULL.
type InsuranceBenefits struct {
	ID                       int64                                `db:"id" json:"id"`
	UserID                   string                               `db:"user_id" json:"user_id"`
	PlanName                 string                               `db:"plan_name" json:"plan_name"`
	PolicyNumber             *string                              `db:"policy_number" json:"policy_number"`
	PlanType                 *string                              `db:"plan_type" json:"plan_type,omitempty"`
	InsuranceProvider        *string                              `db:"insurance_provider" json:"insurance_provider,omitempty"`
	GroupNumber              *string                              `db:"group_number" json:"group_number,omitempty"`
	EffectiveDate            *string                              `db:"effective_date" json:"effective_date,omitempty"`
	ExpirationDate           *string                              `db:"expiration_date" json:"expiration_date,omitempty"`
	OutOfPocketMaxIndividual *float64                             `db:"out_of_pocket_max_individual" json:"out_of_pocket_max_individual,omitempty"`
	OutOfPocketMaxFamily     *float64                             `db:"out_of_pocket_max_family" json:"out_of_pocket_max_family,omitempty"`
	NetworkType              *string                              `db:"network_type" json:"network_type,omitempty"`
	InNetworkRequired        *bool                                `db:"in_network_required" json:"in_network_required,omitempty"`
	Deductibles              datatypes.JSONSlice[Deductible]      `db:"deductibles" json:"deductibles"`
	Copays                   datatypes.JSONSlice[Copay]           `db:"copays" json:"copays"`
	Coinsurance              datatypes.JSONSlice[Coinsurance]     `db:"coinsurance" json:"coinsurance"`
	CoverageLimits           datatypes.JSONSlice[CoverageLimit]   `db:"coverage_limits" json:"coverage_limits"`
	Services                 datatypes.JSONSlice[ServiceCoverage] `db:"services" json:"services"`
	PreauthRequiredServices  datatypes.JSONSlice[string]          `db:"preauth_required_services" json:"preauth_required_services"`
	Exclusions               datatypes.JSONSlice[string]          `db:"exclusions" json:"exclusions"`
	SpecialPrograms          datatypes.JSONSlice[string]          `db:"special_programs" json:"special_programs"`
	Notes                    *string                              `db:"notes" json:"notes,omitempty"`
	SourceDocumentID         *string                              `db:"source_document_id" json:"source_document_id,omitempty"`
	CreatedAt                time.Time                            `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time                            `db:"updated_at" json:"updated_at"`
}

type Deductible struct {
	Amount    *float64 `json:"amount,omitempty"`
	Type      string   `json:"type,omitempty"`
	AppliesTo string   `json:"applies_to,omitempty"`
	Annual    bool     `json:"annual"`
	Network   string   `json:"network,omitempty"`
}

type Copay struct {
	Amount      *float64 `json:"amount,omitempty"`
	ServiceType string   `json:"service_type,omitempty"`
	Network     string   `json:"network,omitempty"`
}

type Coinsurance struct {
	Percentage *float64 `json:"percentage,omitempty"`
	AppliesTo  string   `json:"applies_to,omitempty"`
	Network    string   `json:"network,omitempty"`
}

type CoverageLimit struct {
	LimitType string   `json:"limit_type,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
	AppliesTo string   `json:"applies_to,omitempty"`
	Network   string   `json:"network,omitempty"`
}

type ServiceCoverage struct {
	ServiceName     string         `json:"service_name"`
	Covered         bool           `json:"covered"`
	RequiresPreauth bool           `json:"requires_preauth"`
	Copay           *Copay         `json:"copay,omitempty"`
	Coinsurance     *Coinsurance   `json:"coinsurance,omitempty"`
	CoverageLimit   *CoverageLimit `json:"coverage_limit,omitempty"`
	Notes           string         `json:"notes,omitempty"`
}
