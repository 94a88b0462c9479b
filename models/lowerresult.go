package models

import (
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/fin"
)

type LowerResults []LowerResult

// LowerResult is a PD output under a result link, coded like "1.1"
type LowerResult struct {
	ID           uuid.UUID  `db:"id"`
	ResultLinkID uuid.UUID  `db:"result_link_id" validate:"required"`
	OriginID     nulls.UUID `db:"origin_id"`
	Code         string     `db:"code"`
	Ordinal      int        `db:"ordinal"`
	Name         string     `db:"name" validate:"required"`
	CreatedAt    time.Time  `db:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at"`

	Activities Activities        `has_many:"activities" validate:"-"`
	Indicators AppliedIndicators `has_many:"applied_indicators" validate:"-"`
}

func (lr *LowerResult) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(lr), nil
}

func (lr *LowerResult) GetID() uuid.UUID {
	return lr.ID
}

func (lr *LowerResult) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, lr, id)
}

// LoadActivities hydrates the Activities relation unless already loaded
func (lr *LowerResult) LoadActivities(tx *pop.Connection, reload bool) {
	if len(lr.Activities) == 0 || reload {
		if err := tx.Where("lower_result_id = ?", lr.ID).Order("ordinal asc").All(&lr.Activities); err != nil {
			panic("database error loading activities, " + err.Error())
		}
	}
}

// LoadIndicators hydrates the Indicators relation unless already loaded
func (lr *LowerResult) LoadIndicators(tx *pop.Connection, reload bool) {
	if len(lr.Indicators) == 0 || reload {
		if err := tx.Where("lower_result_id = ?", lr.ID).All(&lr.Indicators); err != nil {
			panic("database error loading applied indicators, " + err.Error())
		}
	}
}

// RecomputeActivityTotals reconciles every child activity that has items and
// returns the sum across activities per funding stream.
func (lr *LowerResult) RecomputeActivityTotals(tx *pop.Connection) (fin.Streams, error) {
	lr.LoadActivities(tx, true)

	var total fin.Streams
	for i := range lr.Activities {
		activity := &lr.Activities[i]
		streams, err := activity.RecomputeFromItems(tx)
		if err != nil {
			return fin.Streams{}, err
		}
		total = total.Add(streams)
	}
	return total, nil
}

// ConvertToAPI converts the subtree for the wire
func (lr *LowerResult) ConvertToAPI(tx *pop.Connection) api.LowerResult {
	lr.LoadActivities(tx, false)
	lr.LoadIndicators(tx, false)

	activities := make([]api.InterventionActivity, len(lr.Activities))
	for i := range lr.Activities {
		activities[i] = lr.Activities[i].ConvertToAPI(tx)
	}
	indicators := make([]api.AppliedIndicator, len(lr.Indicators))
	for i := range lr.Indicators {
		indicators[i] = lr.Indicators[i].ConvertToAPI()
	}
	return api.LowerResult{
		ID:         lr.ID,
		Code:       lr.Code,
		Name:       lr.Name,
		Activities: activities,
		Indicators: indicators,
	}
}
