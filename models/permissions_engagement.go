package models

import (
	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

// Engagement field vocabulary, named by db column
const (
	FieldEngagementType              = "engagement_type"
	FieldEngagementPartner           = "partner_id"
	FieldEngagementPurchaseOrder     = "purchase_order_id"
	FieldEngagementPOItem            = "po_item_id"
	FieldEngagementCurrency          = "currency"
	FieldEngagementExchangeRate      = "exchange_rate"
	FieldEngagementTotalValue        = "total_value"
	FieldEngagementAuditedExp        = "audited_expenditure"
	FieldEngagementFinancialFindings = "financial_findings"
	FieldEngagementAmountRefunded    = "amount_refunded"
	FieldEngagementAdditionalDocs    = "additional_supporting_documentation_provided"
	FieldEngagementJustification     = "justification_provided_and_accepted"
	FieldEngagementWriteOff          = "write_off_required"
	FieldEngagementAuditOpinion      = "audit_opinion"
	FieldEngagementOverallRisk       = "overall_risk_rating"
	FieldEngagementFindings          = "findings"
	FieldEngagementCancelComment     = "cancel_comment"
)

var engagementFields = []string{
	FieldEngagementType,
	FieldEngagementPartner,
	FieldEngagementPurchaseOrder,
	FieldEngagementPOItem,
	FieldEngagementCurrency,
	FieldEngagementExchangeRate,
	FieldEngagementTotalValue,
	FieldEngagementAuditedExp,
	FieldEngagementFinancialFindings,
	FieldEngagementAmountRefunded,
	FieldEngagementAdditionalDocs,
	FieldEngagementJustification,
	FieldEngagementWriteOff,
	FieldEngagementAuditOpinion,
	FieldEngagementOverallRisk,
	FieldEngagementFindings,
	FieldEngagementCancelComment,
}

// engagementFollowUpFields stay open to the UNICEF audit focal point after the
// report is in; edits there raise the follow-up-changed notification.
var engagementFollowUpFields = []string{
	FieldEngagementAmountRefunded,
	FieldEngagementAdditionalDocs,
	FieldEngagementJustification,
	FieldEngagementWriteOff,
}

func engagementPermissions() *permissionTable {
	partnerContacted := string(api.EngagementStatusPartnerContacted)
	reportSubmitted := string(api.EngagementStatusReportSubmitted)
	final := string(api.EngagementStatusFinal)

	return &permissionTable{
		documentType: domain.TypeEngagement,
		statuses: []string{
			string(api.EngagementStatusPartnerContacted),
			string(api.EngagementStatusReportSubmitted),
			string(api.EngagementStatusFinal),
			string(api.EngagementStatusCancelled),
		},
		fields: engagementFields,
		rolePriority: []Role{
			RoleUnicefAuditFocalPoint,
			RoleAuditorFirmStaff,
			RoleUnicefUser,
		},
		defaults: FieldPolicy{View: true},
		rules: []fieldRule{
			// fieldwork phase: the auditor firm fills in the report
			{
				statuses: []string{partnerContacted},
				roles:    []Role{RoleAuditorFirmStaff, RoleUnicefAuditFocalPoint},
				edit:     ruleEdit,
			},
			{
				statuses: []string{partnerContacted},
				fields: []string{
					FieldEngagementExchangeRate,
					FieldEngagementTotalValue,
					FieldEngagementFindings,
				},
				required: ruleRequired,
			},
			// the anchors are set at creation and stay put
			{
				fields: []string{
					FieldEngagementType,
					FieldEngagementPartner,
					FieldEngagementPurchaseOrder,
					FieldEngagementPOItem,
					FieldEngagementCurrency,
				},
				edit: ruleNoEdit,
			},
			// once reported, only UNICEF's follow-up columns move
			{
				statuses: []string{reportSubmitted, final},
				roles:    []Role{RoleUnicefAuditFocalPoint},
				fields:   engagementFollowUpFields,
				edit:     ruleEdit,
			},
		},
	}
}
