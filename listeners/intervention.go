package listeners

import (
	"time"

	"github.com/gobuffalo/events"

	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/messages"
	"github.com/equitrack/partnership-api/models"
)

func interventionSentToPartner(e events.Event) {
	if e.Kind != domain.EventApiInterventionSentToPartner {
		return
	}

	defer panicRecover(e.Kind)

	var intervention models.Intervention
	if err := findObject(e.Payload, &intervention, e.Kind); err != nil {
		return
	}

	messages.InterventionSentToPartner(models.DB, intervention)
}

func interventionRejected(e events.Event) {
	if e.Kind != domain.EventApiInterventionRejected {
		return
	}

	defer panicRecover(e.Kind)

	var intervention models.Intervention
	if err := findObject(e.Payload, &intervention, e.Kind); err != nil {
		return
	}

	messages.InterventionRejected(models.DB, intervention)
}

func interventionSigned(e events.Event) {
	if e.Kind != domain.EventApiInterventionSigned {
		return
	}

	defer panicRecover(e.Kind)

	var intervention models.Intervention
	if err := findObject(e.Payload, &intervention, e.Kind); err != nil {
		return
	}

	messages.InterventionSigned(models.DB, intervention)
}

func interventionEndingSoon(e events.Event) {
	if e.Kind != domain.EventApiInterventionEndingSoon {
		return
	}

	defer panicRecover(e.Kind)

	var intervention models.Intervention
	if err := findObject(e.Payload, &intervention, e.Kind); err != nil {
		return
	}

	messages.InterventionEndingSoon(models.DB, intervention, time.Now().UTC())
}
