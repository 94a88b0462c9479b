package messages

import (
	"fmt"

	"github.com/gobuffalo/pop/v6"

	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/log"
	"github.com/equitrack/partnership-api/models"
)

// AgreementSuspended notifies the partner authorized officers that their
// agreement, and every programme document under it, is suspended.
func AgreementSuspended(tx *pop.Connection, agreement models.Agreement) {
	recipients, err := agreement.OfficerUsers(tx)
	if err != nil {
		log.Errorf("error loading agreement officers for notification, %s", err)
		return
	}

	subject := fmt.Sprintf("Agreement %s suspended", agreement.ReferenceNumber)
	body := fmt.Sprintf(
		"The agreement %s has been suspended. Programme documents under it are suspended with it "+
			"and no disbursements will be made until the suspension is lifted.\n\n"+
			"View the agreement at %s/pmp/agreements/%s/details",
		agreement.ReferenceNumber, domain.Env.UIURL, agreement.ID)

	sendToUsers(domain.TemplateAgreementSuspended, subject, body, recipients)
}
