package listeners

import (
	"github.com/gobuffalo/events"

	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/messages"
	"github.com/equitrack/partnership-api/models"
)

func amendmentAdded(e events.Event) {
	if e.Kind != domain.EventApiAmendmentAdded {
		return
	}

	defer panicRecover(e.Kind)

	var amendment models.Amendment
	if err := findObject(e.Payload, &amendment, e.Kind); err != nil {
		return
	}

	messages.AmendmentAdded(models.DB, amendment)
}
