package listeners

import (
	"errors"
	"fmt"
	"time"

	"github.com/gobuffalo/events"
	"github.com/gobuffalo/nulls"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/log"
	"github.com/equitrack/partnership-api/models"
)

type apiListener struct {
	name     string
	listener func(events.Event)
}

//
// Register new listener functions here.  Remember, though, that these groupings just
// describe what we want.  They don't make it happen this way. The listeners
// themselves still need to verify the event kind
//
var apiListeners = map[string][]apiListener{
	domain.EventApiAgreementSuspended: {
		{
			name:     "agreement-suspended",
			listener: agreementSuspended,
		},
	},
	domain.EventApiInterventionSentToPartner: {
		{
			name:     "intervention-sent-to-partner",
			listener: interventionSentToPartner,
		},
	},
	domain.EventApiInterventionRejected: {
		{
			name:     "intervention-rejected",
			listener: interventionRejected,
		},
	},
	domain.EventApiInterventionSigned: {
		{
			name:     "intervention-signed",
			listener: interventionSigned,
		},
	},
	domain.EventApiInterventionEndingSoon: {
		{
			name:     "intervention-ending-soon",
			listener: interventionEndingSoon,
		},
	},
	domain.EventApiAmendmentAdded: {
		{
			name:     "amendment-added",
			listener: amendmentAdded,
		},
	},
	domain.EventApiEngagementCreated: {
		{
			name:     "engagement-created",
			listener: engagementCreated,
		},
	},
	domain.EventApiEngagementSubmitted: {
		{
			name:     "engagement-report-submitted",
			listener: engagementReportSubmitted,
		},
	},
	domain.EventApiEngagementFinalized: {
		{
			name:     "engagement-finalized-update-assurance",
			listener: engagementFinalized,
		},
	},
	domain.EventApiEngagementCancelled: {
		{
			name:     "engagement-cancelled",
			listener: engagementCancelled,
		},
	},
	domain.EventApiEngagementFollowUpChanged: {
		{
			name:     "engagement-follow-up-changed",
			listener: engagementFollowUpChanged,
		},
	},
}

// RegisterListeners registers all the listeners to be used by the app
func RegisterListeners() {
	for _, listeners := range apiListeners {
		for _, l := range listeners {
			_, err := events.NamedListen(l.name, l.listener)
			if err != nil {
				log.Errorf("failed registering listener: %s, err: %s", l.name, err)
			}
		}
	}
}

func getID(p events.Payload) (uuid.UUID, error) {
	i, ok := p[domain.EventPayloadID]
	if !ok {
		return uuid.UUID{}, fmt.Errorf("id not in event payload")
	}

	switch id := i.(type) {
	case string:
		return uuid.FromStringOrNil(id), nil
	case uuid.UUID:
		return id, nil
	case nulls.UUID:
		return id.UUID, nil
	default:
		return uuid.UUID{}, fmt.Errorf("id not a valid type: %T", id)
	}
}

// findObject loads the event's subject, retrying briefly since the emitting
// transaction may not have committed yet when the listener runs.
func findObject(payload events.Payload, object interface{}, listenerName string) error {
	id, err := getID(payload)
	if err != nil {
		err = errors.New("failed to get object ID from event payload: " + err.Error())
		log.Error(err)
		return err
	}

	var findErr error
	for i := 1; i <= domain.Env.ListenerMaxRetries; i++ {
		findErr = models.DB.Find(object, id)
		if findErr == nil {
			return nil
		}
		time.Sleep(getDelayDuration(i * i))
	}

	err = fmt.Errorf("failed to find object in %s, %s", listenerName, findErr)
	log.Error(err)
	return err
}

func panicRecover(name string) {
	if err := recover(); err != nil {
		log.Errorf("panic occurred in %s: %s", name, err)
	}
}

// getDelayDuration is a helper function to calculate delay in milliseconds before processing event
func getDelayDuration(multiplier int) time.Duration {
	return time.Duration(domain.Env.ListenerDelayMilliseconds) * time.Millisecond * time.Duration(multiplier)
}
