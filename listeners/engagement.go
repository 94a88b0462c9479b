package listeners

import (
	"time"

	"github.com/gobuffalo/events"

	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/log"
	"github.com/equitrack/partnership-api/messages"
	"github.com/equitrack/partnership-api/models"
)

func engagementCreated(e events.Event) {
	if e.Kind != domain.EventApiEngagementCreated {
		return
	}

	defer panicRecover(e.Kind)

	var engagement models.Engagement
	if err := findObject(e.Payload, &engagement, e.Kind); err != nil {
		return
	}

	messages.EngagementCreated(models.DB, engagement)
}

func engagementReportSubmitted(e events.Event) {
	if e.Kind != domain.EventApiEngagementSubmitted {
		return
	}

	defer panicRecover(e.Kind)

	var engagement models.Engagement
	if err := findObject(e.Payload, &engagement, e.Kind); err != nil {
		return
	}

	messages.EngagementReported(models.DB, engagement)
}

// engagementFinalized folds the finalized engagement into the partner's
// assurance counters and refreshes the risk rating.
func engagementFinalized(e events.Event) {
	if e.Kind != domain.EventApiEngagementFinalized {
		return
	}

	defer panicRecover(e.Kind)

	var engagement models.Engagement
	if err := findObject(e.Payload, &engagement, e.Kind); err != nil {
		return
	}

	var partner models.Partner
	if err := partner.FindByID(models.DB, engagement.PartnerID); err != nil {
		log.Errorf("failed to load partner for finalized engagement %s, %s", engagement.ID, err)
		return
	}

	if err := partner.RecomputeHactValues(models.DB, time.Now().UTC()); err != nil {
		log.Errorf("failed to recompute assurance values for partner %s, %s", partner.ID, err)
		return
	}
	if err := partner.RefreshRiskRating(models.DB); err != nil {
		log.Errorf("failed to refresh risk rating for partner %s, %s", partner.ID, err)
	}
}

func engagementCancelled(e events.Event) {
	if e.Kind != domain.EventApiEngagementCancelled {
		return
	}

	defer panicRecover(e.Kind)

	var engagement models.Engagement
	if err := findObject(e.Payload, &engagement, e.Kind); err != nil {
		return
	}

	messages.EngagementCancelled(models.DB, engagement)
}

func engagementFollowUpChanged(e events.Event) {
	if e.Kind != domain.EventApiEngagementFollowUpChanged {
		return
	}

	defer panicRecover(e.Kind)

	var engagement models.Engagement
	if err := findObject(e.Payload, &engagement, e.Kind); err != nil {
		return
	}

	messages.EngagementFollowUpChanged(models.DB, engagement)
}
