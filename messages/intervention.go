package messages

import (
	"fmt"
	"time"

	"github.com/gobuffalo/pop/v6"

	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/log"
	"github.com/equitrack/partnership-api/models"
)

func interventionURL(intervention models.Intervention) string {
	return fmt.Sprintf("%s/pmp/interventions/%s/details", domain.Env.UIURL, intervention.ID)
}

// InterventionSentToPartner notifies the partner focal points that a document
// is waiting for their signature.
func InterventionSentToPartner(tx *pop.Connection, intervention models.Intervention) {
	recipients, err := intervention.FocalPointUsers(tx, models.FocalPointKindPartner)
	if err != nil {
		log.Errorf("error loading partner focal points for notification, %s", err)
		return
	}

	subject := fmt.Sprintf("Document %s ready for signature", intervention.ReferenceNumber)
	body := fmt.Sprintf(
		"The programme document %s (%s) has been sent to your organization for signature.\n\n"+
			"Review it at %s",
		intervention.ReferenceNumber, intervention.Title, interventionURL(intervention))

	sendToUsers(domain.TemplateInterventionSentToPartner, subject, body, recipients)
}

// InterventionRejected notifies the UNICEF focal points that the PRC sent the
// document back to draft.
func InterventionRejected(tx *pop.Connection, intervention models.Intervention) {
	recipients, err := intervention.FocalPointUsers(tx, models.FocalPointKindUnicef)
	if err != nil {
		log.Errorf("error loading unicef focal points for notification, %s", err)
		return
	}

	subject := fmt.Sprintf("Document %s returned to draft", intervention.ReferenceNumber)
	body := fmt.Sprintf(
		"The programme document %s (%s) was reviewed and returned to draft for revision.\n\n"+
			"See the review comments at %s",
		intervention.ReferenceNumber, intervention.Title, interventionURL(intervention))

	sendToUsers(domain.TemplateUnicefRejectedReview, subject, body, recipients)
}

// InterventionSigned notifies both focal point groups that all signatures are
// in place.
func InterventionSigned(tx *pop.Connection, intervention models.Intervention) {
	unicef, err := intervention.FocalPointUsers(tx, models.FocalPointKindUnicef)
	if err != nil {
		log.Errorf("error loading unicef focal points for notification, %s", err)
		return
	}
	partner, err := intervention.FocalPointUsers(tx, models.FocalPointKindPartner)
	if err != nil {
		log.Errorf("error loading partner focal points for notification, %s", err)
		return
	}

	subject := fmt.Sprintf("Document %s fully signed", intervention.ReferenceNumber)
	body := fmt.Sprintf(
		"All signatures are in place on programme document %s (%s). It becomes active on its start date.\n\n"+
			"View it at %s",
		intervention.ReferenceNumber, intervention.Title, interventionURL(intervention))

	sendToUsers(domain.TemplateInterventionSigned, subject, body, append(unicef, partner...))
}

// InterventionEndingSoon warns the UNICEF focal points that an active document
// approaches its end date. The day count is computed from the end date rather
// than carried in the event, so a delayed delivery stays accurate.
func InterventionEndingSoon(tx *pop.Connection, intervention models.Intervention, now time.Time) {
	if !intervention.End.Valid {
		return
	}

	recipients, err := intervention.FocalPointUsers(tx, models.FocalPointKindUnicef)
	if err != nil {
		log.Errorf("error loading unicef focal points for notification, %s", err)
		return
	}

	days := int(intervention.End.Time.Sub(now).Hours() / 24)
	subject := fmt.Sprintf("Document %s ends in %d days", intervention.ReferenceNumber, days)
	body := fmt.Sprintf(
		"The programme document %s (%s) reaches its end date on %s.\n\n"+
			"If an extension is needed, start an amendment at %s",
		intervention.ReferenceNumber, intervention.Title,
		intervention.End.Time.Format("2 January 2006"), interventionURL(intervention))

	sendToUsers(domain.TemplateInterventionEndingSoon, subject, body, recipients)
}
