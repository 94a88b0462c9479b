package api

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type InterventionDocumentType string

const (
	InterventionTypePD   = InterventionDocumentType("PD")
	InterventionTypeSSFA = InterventionDocumentType("SSFA")
)

type InterventionStatus string

const (
	InterventionStatusDevelopment = InterventionStatus("development")
	InterventionStatusDraft       = InterventionStatus("draft")
	InterventionStatusReview      = InterventionStatus("review")
	InterventionStatusSignature   = InterventionStatus("signature")
	InterventionStatusSigned      = InterventionStatus("signed")
	InterventionStatusActive      = InterventionStatus("active")
	InterventionStatusEnded       = InterventionStatus("ended")
	InterventionStatusImplemented = InterventionStatus("implemented")
	InterventionStatusClosed      = InterventionStatus("closed")
	InterventionStatusSuspended   = InterventionStatus("suspended")
	InterventionStatusTerminated  = InterventionStatus("terminated")
	InterventionStatusCancelled   = InterventionStatus("cancelled")
	InterventionStatusExpired     = InterventionStatus("expired")
)

type CashTransferModality string

const (
	CashTransferModalityDirect        = CashTransferModality("direct")
	CashTransferModalityReimbursement = CashTransferModality("reimbursement")
	CashTransferModalityPayment       = CashTransferModality("payment")
)

// PlannedBudget carries the computed budget totals of an intervention
// swagger:model
type PlannedBudget struct {
	Currency            string          `json:"currency"`
	ExchangeRate        decimal.Decimal `json:"exchange_rate"`
	UnicefCashLocal     decimal.Decimal `json:"unicef_cash_local"`
	PartnerContribution decimal.Decimal `json:"partner_contribution_local"`
	UnfundedCashLocal   decimal.Decimal `json:"unfunded_cash_local"`
	InKindAmountLocal   decimal.Decimal `json:"in_kind_amount_local"`
	TotalSupplyLocal    decimal.Decimal `json:"total_supply_local"`
	TotalLocal          decimal.Decimal `json:"total_local"`
	TotalUnicefCashUSD  decimal.Decimal `json:"total_unicef_cash_usd"`
}

// ManagementBudgetLine is one of the three fixed management activity lines
// swagger:model
type ManagementBudgetLine struct {
	Kind         string          `json:"kind"`
	UnicefCash   decimal.Decimal `json:"unicef_cash"`
	PartnerCash  decimal.Decimal `json:"cso_cash"`
	UnfundedCash decimal.Decimal `json:"unfunded_cash"`
}

// Intervention is the wire representation of a PD/SSFA
// swagger:model
type Intervention struct {
	ID                   uuid.UUID                `json:"id"`
	ReferenceNumber      string                   `json:"reference_number"`
	DocumentType         InterventionDocumentType `json:"document_type"`
	Title                string                   `json:"title"`
	Status               InterventionStatus       `json:"status"`
	AgreementID          uuid.UUID                `json:"agreement_id"`
	Start                *time.Time               `json:"start,omitempty"`
	End                  *time.Time               `json:"end,omitempty"`
	DateSentToPartner    *time.Time               `json:"date_sent_to_partner,omitempty"`
	SignedByUnicefDate   *time.Time               `json:"signed_by_unicef_date,omitempty"`
	SignedByPartnerDate  *time.Time               `json:"signed_by_partner_date,omitempty"`
	UnicefCourt          bool                     `json:"unicef_court"`
	InAmendment          bool                     `json:"in_amendment"`
	ContingencyPD        bool                     `json:"contingency_pd"`
	CashTransferModality []CashTransferModality   `json:"cash_transfer_modalities"`
	PlannedBudget        PlannedBudget            `json:"planned_budget"`
	ResultLinks          []ResultLink             `json:"result_links"`
	TimeFrames           []InterventionTimeFrame  `json:"time_frames"`

	AllowedTransitions []InterventionStatus `json:"allowed_transitions"`
	EditableFields     []string             `json:"editable_fields"`
	RequiredFields     []string             `json:"required_fields"`
}

// InterventionTimeFrame is one derived quarter of the intervention's span
// swagger:model
type InterventionTimeFrame struct {
	ID      uuid.UUID `json:"id"`
	Quarter int       `json:"quarter"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`
}

// InterventionCreateInput is the payload to create an Intervention in development
// swagger:model
type InterventionCreateInput struct {
	DocumentType  InterventionDocumentType `json:"document_type"`
	Title         string                   `json:"title"`
	AgreementID   uuid.UUID                `json:"agreement_id"`
	Currency      string                   `json:"currency"`
	ContingencyPD bool                     `json:"contingency_pd"`
	Start         *time.Time               `json:"start,omitempty"`
	End           *time.Time               `json:"end,omitempty"`
}

// FundsReservationClaimInput attaches an ingested FRS header to an intervention
// swagger:model
type FundsReservationClaimInput struct {
	FrNumber string `json:"fr_number"`
}

// InterventionUpdateInput carries a partial intervention; nil fields are left unchanged
// swagger:model
type InterventionUpdateInput struct {
	Title                *string                 `json:"title,omitempty"`
	Start                *time.Time              `json:"start,omitempty"`
	End                  *time.Time              `json:"end,omitempty"`
	DateSentToPartner    *time.Time              `json:"date_sent_to_partner,omitempty"`
	SignedByUnicefDate   *time.Time              `json:"signed_by_unicef_date,omitempty"`
	SignedByPartnerDate  *time.Time              `json:"signed_by_partner_date,omitempty"`
	UnicefCourt          *bool                   `json:"unicef_court,omitempty"`
	ExchangeRate         *decimal.Decimal        `json:"exchange_rate,omitempty"`
	CashTransferModality *[]CashTransferModality `json:"cash_transfer_modalities,omitempty"`
	UnicefFocalPoints    *[]uuid.UUID            `json:"unicef_focal_points,omitempty"`
	PartnerFocalPoints   *[]uuid.UUID            `json:"partner_focal_points,omitempty"`
}
