package api

import (
	"time"

	"github.com/gofrs/uuid"
)

type AgreementType string

const (
	AgreementTypePCA  = AgreementType("PCA")
	AgreementTypeSSFA = AgreementType("SSFA")
	AgreementTypeMOU  = AgreementType("MOU")
)

type AgreementStatus string

const (
	AgreementStatusDraft      = AgreementStatus("draft")
	AgreementStatusSigned     = AgreementStatus("signed")
	AgreementStatusSuspended  = AgreementStatus("suspended")
	AgreementStatusTerminated = AgreementStatus("terminated")
	AgreementStatusEnded      = AgreementStatus("ended")
)

// Agreement is the wire representation of a contract between UNICEF and a Partner
// swagger:model
type Agreement struct {
	ID                  uuid.UUID       `json:"id"`
	ReferenceNumber     string          `json:"reference_number"`
	Type                AgreementType   `json:"agreement_type"`
	Status              AgreementStatus `json:"status"`
	PartnerID           uuid.UUID       `json:"partner_id"`
	CountryProgrammeID  *uuid.UUID      `json:"country_programme_id,omitempty"`
	Start               *time.Time      `json:"start,omitempty"`
	End                 *time.Time      `json:"end,omitempty"`
	SignedByUnicefDate  *time.Time      `json:"signed_by_unicef_date,omitempty"`
	SignedByPartnerDate *time.Time      `json:"signed_by_partner_date,omitempty"`
	SignedAgreementID   *uuid.UUID      `json:"signed_agreement_id,omitempty"`
	AuthorizedOfficers  []uuid.UUID     `json:"authorized_officers"`

	// AllowedTransitions lists the statuses the requesting user may move this document into
	AllowedTransitions []AgreementStatus `json:"allowed_transitions"`

	// EditableFields reflects the permission matrix for the requesting user
	EditableFields []string `json:"editable_fields"`
	RequiredFields []string `json:"required_fields"`
}

// AgreementCreateInput is the payload to create an Agreement in draft
// swagger:model
type AgreementCreateInput struct {
	Type               AgreementType `json:"agreement_type"`
	PartnerID          uuid.UUID     `json:"partner_id"`
	CountryProgrammeID *uuid.UUID    `json:"country_programme_id,omitempty"`
	Start              *time.Time    `json:"start,omitempty"`
	End                *time.Time    `json:"end,omitempty"`
}

// AgreementUpdateInput carries a partial agreement; nil fields are left unchanged
// swagger:model
type AgreementUpdateInput struct {
	CountryProgrammeID  *uuid.UUID   `json:"country_programme_id,omitempty"`
	Start               *time.Time   `json:"start,omitempty"`
	End                 *time.Time   `json:"end,omitempty"`
	SignedByUnicefDate  *time.Time   `json:"signed_by_unicef_date,omitempty"`
	SignedByPartnerDate *time.Time   `json:"signed_by_partner_date,omitempty"`
	SignedAgreementID   *uuid.UUID   `json:"signed_agreement_id,omitempty"`
	AuthorizedOfficers  *[]uuid.UUID `json:"authorized_officers,omitempty"`
}

// TransitionInput requests a document status change
// swagger:model
type TransitionInput struct {
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"`
}
