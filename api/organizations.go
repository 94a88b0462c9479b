package api

import (
	"time"

	"github.com/gofrs/uuid"
)

type OrganizationType string

const (
	OrganizationTypeGovernment            = OrganizationType("Government")
	OrganizationTypeCSO                   = OrganizationType("Civil Society Organization")
	OrganizationTypeUNAgency              = OrganizationType("UN Agency")
	OrganizationTypeBilateralMultilateral = OrganizationType("Bilateral / Multilateral")
	OrganizationTypeAuditorFirm           = OrganizationType("Auditor Firm")
	OrganizationTypeTPMPartner            = OrganizationType("TPM Partner")
)

type PartnerRiskRating string

const (
	PartnerRiskRatingLow         = PartnerRiskRating("Low")
	PartnerRiskRatingMedium      = PartnerRiskRating("Medium")
	PartnerRiskRatingSignificant = PartnerRiskRating("Significant")
	PartnerRiskRatingHigh        = PartnerRiskRating("High")
	PartnerRiskRatingNonAssessed = PartnerRiskRating("Non-Assessed")
)

// Organization is the identity record synced from the ERP
// swagger:model
type Organization struct {
	ID           uuid.UUID        `json:"id"`
	VendorNumber string           `json:"vendor_number"`
	Name         string           `json:"name"`
	Type         OrganizationType `json:"organization_type"`
	CSOSubtype   string           `json:"cso_subtype,omitempty"`
	Hidden       bool             `json:"hidden"`
}

// HactValues is the closed schema for a partner's assurance counters.
// swagger:model
type HactValues struct {
	AssessmentsRequired         int `json:"assessments_required"`
	AssessmentsCompleted        int `json:"assessments_completed"`
	ProgrammaticVisitsPlanned   int `json:"programmatic_visits_planned"`
	ProgrammaticVisitsRequired  int `json:"programmatic_visits_required"`
	ProgrammaticVisitsCompleted int `json:"programmatic_visits_completed"`
	SpotChecksRequired          int `json:"spot_checks_required"`
	SpotChecksCompleted         int `json:"spot_checks_completed"`
	AuditsRequired              int `json:"audits_required"`
	AuditsCompleted             int `json:"audits_completed"`
}

// Partner is the programme-facing projection of an Organization
// swagger:model
type Partner struct {
	ID                 uuid.UUID         `json:"id"`
	Organization       Organization      `json:"organization"`
	RiskRating         PartnerRiskRating `json:"risk_rating"`
	LastAssessmentDate *time.Time        `json:"last_assessment_date,omitempty"`
	NetCtCy            string            `json:"net_ct_cy"`
	TotalCtCp          string            `json:"total_ct_cp"`
	Blocked            bool              `json:"blocked"`
	Deleted            bool              `json:"deleted_flag"`
	HactValues         HactValues        `json:"hact_values"`
}
