package messages

import (
	"fmt"

	"github.com/gobuffalo/pop/v6"

	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/log"
	"github.com/equitrack/partnership-api/models"
)

func engagementURL(engagement models.Engagement) string {
	return fmt.Sprintf("%s/ap/%s/%s/overview", domain.Env.UIURL, engagement.Type, engagement.ID)
}

func engagementPartnerName(tx *pop.Connection, engagement models.Engagement) string {
	var partner models.Partner
	if err := partner.FindByID(tx, engagement.PartnerID); err != nil {
		log.Errorf("error loading engagement partner for notification, %s", err)
		return "unknown partner"
	}
	partner.LoadOrganization(tx, false)
	return partner.Organization.Name
}

// EngagementCreated notifies the auditor firm staff that a new engagement has
// been assigned to them.
func EngagementCreated(tx *pop.Connection, engagement models.Engagement) {
	var recipients models.Users
	if err := recipients.AllWithRole(tx, engagement.CountryID, models.RoleAuditorFirmStaff); err != nil {
		log.Errorf("error loading auditor staff for notification, %s", err)
		return
	}

	subject := fmt.Sprintf("New %s engagement assigned", engagement.Type)
	body := fmt.Sprintf(
		"A %s engagement for partner %s has been created and assigned to your firm.\n\n"+
			"Open it at %s",
		engagement.Type, engagementPartnerName(tx, engagement), engagementURL(engagement))

	sendToUsers(domain.TemplateEngagementSubmitToAuditor, subject, body, recipients)
}

// EngagementReported notifies the UNICEF audit focal points that the auditor
// submitted the report.
func EngagementReported(tx *pop.Connection, engagement models.Engagement) {
	var recipients models.Users
	if err := recipients.AllWithRole(tx, engagement.CountryID, models.RoleUnicefAuditFocalPoint); err != nil {
		log.Errorf("error loading audit focal points for notification, %s", err)
		return
	}

	subject := fmt.Sprintf("Report submitted on %s engagement", engagement.Type)
	body := fmt.Sprintf(
		"The auditor submitted the report on the %s engagement for partner %s. "+
			"It is waiting for final review.\n\n"+
			"Open it at %s",
		engagement.Type, engagementPartnerName(tx, engagement), engagementURL(engagement))

	sendToUsers(domain.TemplateEngagementReported, subject, body, recipients)
}

// EngagementCancelled notifies the auditor firm staff that the engagement was
// cancelled and no further work is expected.
func EngagementCancelled(tx *pop.Connection, engagement models.Engagement) {
	var recipients models.Users
	if err := recipients.AllWithRole(tx, engagement.CountryID, models.RoleAuditorFirmStaff); err != nil {
		log.Errorf("error loading auditor staff for notification, %s", err)
		return
	}

	subject := fmt.Sprintf("%s engagement cancelled", engagement.Type)
	body := fmt.Sprintf(
		"The %s engagement for partner %s has been cancelled. Reason given: %s\n\n"+
			"View it at %s",
		engagement.Type, engagementPartnerName(tx, engagement), engagement.CancelComment,
		engagementURL(engagement))

	sendToUsers(domain.TemplateEngagementCancelled, subject, body, recipients)
}

// EngagementFollowUpChanged notifies the auditor firm staff that a follow-up
// field changed after the report was submitted.
func EngagementFollowUpChanged(tx *pop.Connection, engagement models.Engagement) {
	var recipients models.Users
	if err := recipients.AllWithRole(tx, engagement.CountryID, models.RoleAuditorFirmStaff); err != nil {
		log.Errorf("error loading auditor staff for notification, %s", err)
		return
	}

	subject := fmt.Sprintf("Follow-up updated on %s engagement", engagement.Type)
	body := fmt.Sprintf(
		"A follow-up field changed on the %s engagement for partner %s.\n\n"+
			"Review the change at %s",
		engagement.Type, engagementPartnerName(tx, engagement), engagementURL(engagement))

	sendToUsers(domain.TemplateEngagementFollowUpChanged, subject, body, recipients)
}
