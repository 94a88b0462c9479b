package models

import (
	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

// Intervention field vocabulary, named by db column. Collection fields stand
// for their whole subtree; nested rows inherit the parent's edit mask.
const (
	FieldInterventionDocumentType       = "document_type"
	FieldInterventionTitle              = "title"
	FieldInterventionAgreement          = "agreement_id"
	FieldInterventionContingencyPD      = "contingency_pd"
	FieldInterventionStart              = "start"
	FieldInterventionEnd                = "end"
	FieldInterventionDateSentToPartner  = "date_sent_to_partner"
	FieldInterventionSignedByUnicef     = "signed_by_unicef_date"
	FieldInterventionSignedByPartner    = "signed_by_partner_date"
	FieldInterventionSignedPD           = "signed_pd_attachment_id"
	FieldInterventionPRCReview          = "prc_review_attachment_id"
	FieldInterventionUnicefCourt        = "unicef_court"
	FieldInterventionExchangeRate       = "exchange_rate"
	FieldInterventionModalities         = "cash_transfer_modalities"
	FieldInterventionUnicefFocalPoints  = "unicef_focal_points"
	FieldInterventionPartnerFocalPoints = "partner_focal_points"
	FieldInterventionResultLinks        = "result_links"
	FieldInterventionManagementBudget   = "management_budget"
	FieldInterventionSupplyItems        = "supply_items"
	FieldInterventionReferenceNumber    = "reference_number"
)

var interventionFields = []string{
	FieldInterventionDocumentType,
	FieldInterventionTitle,
	FieldInterventionAgreement,
	FieldInterventionContingencyPD,
	FieldInterventionStart,
	FieldInterventionEnd,
	FieldInterventionDateSentToPartner,
	FieldInterventionSignedByUnicef,
	FieldInterventionSignedByPartner,
	FieldInterventionSignedPD,
	FieldInterventionPRCReview,
	FieldInterventionUnicefCourt,
	FieldInterventionExchangeRate,
	FieldInterventionModalities,
	FieldInterventionUnicefFocalPoints,
	FieldInterventionPartnerFocalPoints,
	FieldInterventionResultLinks,
	FieldInterventionManagementBudget,
	FieldInterventionSupplyItems,
	FieldInterventionReferenceNumber,
}

// amendmentEditableInterventionFields lists the fields the rigid check relaxes
// inside an open amendment copy. Dates and signatures stay rigid there.
var amendmentEditableInterventionFields = map[string]struct{}{
	FieldInterventionResultLinks:      {},
	FieldInterventionManagementBudget: {},
	FieldInterventionSupplyItems:      {},
	FieldInterventionModalities:       {},
	FieldInterventionEnd:              {},
}

var interventionUnicefEditors = []Role{
	RolePartnershipManagerSenior,
	RolePartnershipManager,
	RoleSeniorManagement,
}

var interventionPartnerEditors = []Role{
	RolePartnerAuthorizedOfficer,
	RolePartnerFocalPoint,
}

func interventionPermissions() *permissionTable {
	development := string(api.InterventionStatusDevelopment)
	draft := string(api.InterventionStatusDraft)
	review := string(api.InterventionStatusReview)
	signature := string(api.InterventionStatusSignature)
	signed := string(api.InterventionStatusSigned)
	active := string(api.InterventionStatusActive)

	shapingStatuses := []string{development, draft}

	return &permissionTable{
		documentType: domain.TypeIntervention,
		statuses: []string{
			string(api.InterventionStatusDevelopment),
			string(api.InterventionStatusDraft),
			string(api.InterventionStatusReview),
			string(api.InterventionStatusSignature),
			string(api.InterventionStatusSigned),
			string(api.InterventionStatusActive),
			string(api.InterventionStatusEnded),
			string(api.InterventionStatusImplemented),
			string(api.InterventionStatusClosed),
			string(api.InterventionStatusSuspended),
			string(api.InterventionStatusTerminated),
			string(api.InterventionStatusCancelled),
			string(api.InterventionStatusExpired),
		},
		fields: interventionFields,
		rolePriority: []Role{
			RolePartnershipManagerSenior,
			RolePartnershipManager,
			RoleSeniorManagement,
			RolePRCReviewer,
			RoleRepresentativeOffice,
			RoleUnicefUser,
			RolePartnerAuthorizedOfficer,
			RolePartnerFocalPoint,
		},
		defaults: FieldPolicy{View: true},
		rules: []fieldRule{
			// while the document is being shaped, whoever holds the court edits
			{
				statuses:   shapingStatuses,
				roles:      interventionUnicefEditors,
				edit:       ruleEdit,
				conditions: []condition{condUnicefCourt},
			},
			{
				statuses:   shapingStatuses,
				roles:      interventionPartnerEditors,
				edit:       ruleEdit,
				conditions: []condition{condPartnerCourt, condIsFocalPoint},
			},
			// the partner never rewires the document's anchors
			{
				statuses: shapingStatuses,
				roles:    interventionPartnerEditors,
				fields: []string{
					FieldInterventionDocumentType,
					FieldInterventionAgreement,
					FieldInterventionContingencyPD,
					FieldInterventionUnicefFocalPoints,
				},
				edit: ruleNoEdit,
			},
			{
				statuses: shapingStatuses,
				fields: []string{
					FieldInterventionTitle,
					FieldInterventionAgreement,
					FieldInterventionDocumentType,
				},
				required: ruleRequired,
			},
			{
				statuses: []string{draft},
				fields: []string{
					FieldInterventionStart,
					FieldInterventionEnd,
					FieldInterventionPartnerFocalPoints,
					FieldInterventionResultLinks,
				},
				required: ruleRequired,
			},
			// review only moves paper: date stamps and the PRC verdict
			{
				statuses: []string{review},
				roles:    interventionUnicefEditors,
				fields:   []string{FieldInterventionDateSentToPartner},
				edit:     ruleEdit,
			},
			{
				statuses: []string{review},
				roles:    []Role{RolePRCReviewer},
				fields:   []string{FieldInterventionPRCReview},
				edit:     ruleEdit,
			},
			{
				statuses: []string{signature},
				roles:    interventionUnicefEditors,
				fields: []string{
					FieldInterventionSignedByUnicef,
					FieldInterventionSignedByPartner,
					FieldInterventionSignedPD,
				},
				edit:       ruleEdit,
				conditions: []condition{condNotFullySigned},
			},
			{
				statuses: []string{signature},
				fields: []string{
					FieldInterventionSignedByUnicef,
					FieldInterventionSignedByPartner,
					FieldInterventionSignedPD,
				},
				required: ruleRequired,
			},
			// after signing, the live document only takes focal point changes,
			// and only while no amendment is open
			{
				statuses:   []string{signed, active},
				roles:      interventionUnicefEditors,
				fields:     []string{FieldInterventionUnicefFocalPoints, FieldInterventionPartnerFocalPoints},
				edit:       ruleEdit,
				conditions: []condition{condNotInAmendment},
			},
			// derived, never written
			{
				fields: []string{FieldInterventionReferenceNumber},
				edit:   ruleNoEdit,
			},
		},
	}
}
