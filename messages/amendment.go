package messages

import (
	"fmt"

	"github.com/gobuffalo/pop/v6"

	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/log"
	"github.com/equitrack/partnership-api/models"
)

// AmendmentAdded notifies the UNICEF focal points of the live document that an
// amendment has been opened against it.
func AmendmentAdded(tx *pop.Connection, amendment models.Amendment) {
	var intervention models.Intervention
	if err := intervention.FindByID(tx, amendment.DocumentID); err != nil {
		log.Errorf("error loading amended document for notification, %s", err)
		return
	}

	recipients, err := intervention.FocalPointUsers(tx, models.FocalPointKindUnicef)
	if err != nil {
		log.Errorf("error loading unicef focal points for notification, %s", err)
		return
	}

	subject := fmt.Sprintf("Amendment opened on document %s", intervention.ReferenceNumber)
	body := fmt.Sprintf(
		"A %s amendment covering %s has been opened on programme document %s (%s). "+
			"The live document is locked for the fields under amendment until it is merged.\n\n"+
			"View it at %s",
		amendment.Kind, amendment.Types, intervention.ReferenceNumber, intervention.Title,
		interventionURL(intervention))

	sendToUsers(domain.TemplateAmendmentAdded, subject, body, recipients)
}
