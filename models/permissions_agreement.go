package models

import (
	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

// Agreement field vocabulary, named by db column
const (
	FieldAgreementType               = "agreement_type"
	FieldAgreementPartner            = "partner_id"
	FieldAgreementCountryProgramme   = "country_programme_id"
	FieldAgreementStart              = "start"
	FieldAgreementEnd                = "end"
	FieldAgreementSignedByUnicef     = "signed_by_unicef_date"
	FieldAgreementSignedByPartner    = "signed_by_partner_date"
	FieldAgreementSignedAttachment   = "signed_agreement_id"
	FieldAgreementAuthorizedOfficers = "authorized_officers"
	FieldAgreementReferenceNumber    = "reference_number"
)

var agreementFields = []string{
	FieldAgreementType,
	FieldAgreementPartner,
	FieldAgreementCountryProgramme,
	FieldAgreementStart,
	FieldAgreementEnd,
	FieldAgreementSignedByUnicef,
	FieldAgreementSignedByPartner,
	FieldAgreementSignedAttachment,
	FieldAgreementAuthorizedOfficers,
	FieldAgreementReferenceNumber,
}

var agreementEditorRoles = []Role{
	RolePartnershipManagerSenior,
	RolePartnershipManager,
	RoleSeniorManagement,
}

func agreementPermissions() *permissionTable {
	draft := string(api.AgreementStatusDraft)
	signed := string(api.AgreementStatusSigned)

	return &permissionTable{
		documentType: domain.TypeAgreement,
		statuses: []string{
			string(api.AgreementStatusDraft),
			string(api.AgreementStatusSigned),
			string(api.AgreementStatusSuspended),
			string(api.AgreementStatusTerminated),
			string(api.AgreementStatusEnded),
		},
		fields: agreementFields,
		rolePriority: []Role{
			RolePartnershipManagerSenior,
			RolePartnershipManager,
			RoleSeniorManagement,
			RoleRepresentativeOffice,
			RoleUnicefUser,
			RolePartnerAuthorizedOfficer,
		},
		defaults: FieldPolicy{View: true},
		rules: []fieldRule{
			// while in draft, partnership roles shape the whole agreement
			{
				statuses: []string{draft},
				roles:    agreementEditorRoles,
				edit:     ruleEdit,
			},
			{
				statuses: []string{draft},
				roles:    agreementEditorRoles,
				fields: []string{
					FieldAgreementType,
					FieldAgreementPartner,
					FieldAgreementSignedByUnicef,
					FieldAgreementSignedByPartner,
					FieldAgreementSignedAttachment,
				},
				required: ruleRequired,
			},
			// the reference number is always derived, never written
			{
				fields: []string{FieldAgreementReferenceNumber},
				edit:   ruleNoEdit,
			},
			// once signed, only the end date and officer set stay open
			{
				statuses: []string{signed},
				roles:    agreementEditorRoles,
				fields:   []string{FieldAgreementEnd, FieldAgreementAuthorizedOfficers},
				edit:     ruleEdit,
			},
		},
	}
}
