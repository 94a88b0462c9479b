package api

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type EngagementType string

const (
	EngagementTypeAudit           = EngagementType("audit")
	EngagementTypeSpotCheck       = EngagementType("sc")
	EngagementTypeMicroAssessment = EngagementType("ma")
	EngagementTypeSpecialAudit    = EngagementType("sa")
)

type EngagementStatus string

const (
	EngagementStatusPartnerContacted = EngagementStatus("partner_contacted")
	EngagementStatusReportSubmitted  = EngagementStatus("report_submitted")
	EngagementStatusFinal            = EngagementStatus("final")
	EngagementStatusCancelled        = EngagementStatus("cancelled")
)

type AuditOpinion string

const (
	AuditOpinionUnqualified = AuditOpinion("unqualified")
	AuditOpinionQualified   = AuditOpinion("qualified")
	AuditOpinionDisclaimer  = AuditOpinion("disclaimer_opinion")
	AuditOpinionAdverse     = AuditOpinion("adverse_opinion")
)

// Engagement is the wire representation of auditor-performed work on a Partner
// swagger:model
type Engagement struct {
	ID                uuid.UUID        `json:"id"`
	Type              EngagementType   `json:"engagement_type"`
	Status            EngagementStatus `json:"status"`
	PartnerID         uuid.UUID        `json:"partner_id"`
	PurchaseOrderID   uuid.UUID        `json:"purchase_order_id"`
	PurchaseOrderItem *uuid.UUID       `json:"po_item,omitempty"`

	Currency           string          `json:"currency"`
	ExchangeRate       decimal.Decimal `json:"exchange_rate"`
	TotalValue         decimal.Decimal `json:"total_value"`
	AuditedExpenditure decimal.Decimal `json:"audited_expenditure"`
	FinancialFindings  decimal.Decimal `json:"financial_findings"`
	AmountRefunded     decimal.Decimal `json:"amount_refunded"`

	AdditionalSupportingDocumentationProvided decimal.Decimal `json:"additional_supporting_documentation_provided"`
	JustificationProvidedAndAccepted          decimal.Decimal `json:"justification_provided_and_accepted"`
	WriteOffRequired                          decimal.Decimal `json:"write_off_required"`

	AuditOpinion      AuditOpinion `json:"audit_opinion,omitempty"`
	OverallRiskRating string       `json:"overall_risk_rating,omitempty"`

	PartnerContactedAt *time.Time `json:"partner_contacted_at,omitempty"`
	DateOfReportSubmit *time.Time `json:"date_of_report_submit,omitempty"`
	DateOfFinalReport  *time.Time `json:"date_of_final_report,omitempty"`
	DateOfCancel       *time.Time `json:"date_of_cancel,omitempty"`
	CancelComment      string     `json:"cancel_comment,omitempty"`

	Findings []Finding `json:"findings,omitempty"`

	AllowedTransitions []EngagementStatus `json:"allowed_transitions"`
	EditableFields     []string           `json:"editable_fields"`
	RequiredFields     []string           `json:"required_fields"`
}

type FindingPriority string

const (
	FindingPriorityHigh   = FindingPriority("high")
	FindingPriorityMedium = FindingPriority("medium")
	FindingPriorityLow    = FindingPriority("low")
)

// Finding is one observation recorded during an engagement
// swagger:model
type Finding struct {
	ID               uuid.UUID       `json:"id"`
	Priority         FindingPriority `json:"priority"`
	Category         string          `json:"category"`
	Recommendation   string          `json:"recommendation"`
	DeadlineOfAction *time.Time      `json:"deadline_of_action,omitempty"`
}

// EngagementCreateInput is the payload to create an Engagement
// swagger:model
type EngagementCreateInput struct {
	Type              EngagementType `json:"engagement_type"`
	PartnerID         uuid.UUID      `json:"partner_id"`
	PurchaseOrderID   uuid.UUID      `json:"purchase_order_id"`
	PurchaseOrderItem *uuid.UUID     `json:"po_item,omitempty"`
	Currency          string         `json:"currency"`
}

// EngagementUpdateInput carries a partial engagement; nil fields are left unchanged
// swagger:model
type EngagementUpdateInput struct {
	ExchangeRate       *decimal.Decimal `json:"exchange_rate,omitempty"`
	TotalValue         *decimal.Decimal `json:"total_value,omitempty"`
	AuditedExpenditure *decimal.Decimal `json:"audited_expenditure,omitempty"`
	FinancialFindings  *decimal.Decimal `json:"financial_findings,omitempty"`
	AmountRefunded     *decimal.Decimal `json:"amount_refunded,omitempty"`

	AdditionalSupportingDocumentationProvided *decimal.Decimal `json:"additional_supporting_documentation_provided,omitempty"`
	JustificationProvidedAndAccepted          *decimal.Decimal `json:"justification_provided_and_accepted,omitempty"`
	WriteOffRequired                          *decimal.Decimal `json:"write_off_required,omitempty"`

	AuditOpinion      *AuditOpinion `json:"audit_opinion,omitempty"`
	OverallRiskRating *string       `json:"overall_risk_rating,omitempty"`
}
