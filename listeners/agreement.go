package listeners

import (
	"github.com/gobuffalo/events"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/log"
	"github.com/equitrack/partnership-api/messages"
	"github.com/equitrack/partnership-api/models"
)

// agreementSuspended pushes the suspension down to the signed and active
// documents under the agreement, then notifies the authorized officers.
func agreementSuspended(e events.Event) {
	if e.Kind != domain.EventApiAgreementSuspended {
		return
	}

	defer panicRecover(e.Kind)

	var agreement models.Agreement
	if err := findObject(e.Payload, &agreement, e.Kind); err != nil {
		return
	}

	serviceUser := models.GetServiceUser(models.DB)

	var interventions models.Interventions
	if err := interventions.AllLiveForAgreement(models.DB, agreement.ID); err != nil {
		log.Errorf("failed to load documents for suspended agreement %s, %s", agreement.ID, err)
		return
	}
	for _, intervention := range interventions {
		i := intervention
		err := i.Transition(models.DB, api.InterventionStatusSuspended,
			"agreement "+agreement.ReferenceNumber+" suspended", serviceUser)
		if err != nil {
			log.Errorf("failed to suspend document %s under agreement %s, %s", i.ID, agreement.ID, err)
		}
	}

	messages.AgreementSuspended(models.DB, agreement)
}
