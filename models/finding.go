package models

import (
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

type Findings []Finding

// Finding is one observation recorded by the auditor during an engagement
type Finding struct {
	ID               uuid.UUID           `db:"id"`
	EngagementID     uuid.UUID           `db:"engagement_id" validate:"required"`
	Priority         api.FindingPriority `db:"priority" validate:"required"`
	Category         string              `db:"category"`
	Recommendation   string              `db:"recommendation" validate:"required"`
	DeadlineOfAction nulls.Time          `db:"deadline_of_action"`
	CreatedAt        time.Time           `db:"created_at"`
	UpdatedAt        time.Time           `db:"updated_at"`
}

func (f *Finding) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(f), nil
}

func (f *Finding) GetID() uuid.UUID {
	return f.ID
}

func (f *Finding) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, f, id)
}

// AllForEngagement loads the findings of one engagement, oldest first
func (f *Findings) AllForEngagement(tx *pop.Connection, engagementID uuid.UUID) error {
	err := tx.Where("engagement_id = ?", engagementID).Order("created_at asc").All(f)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// ConvertToAPI turns the model into its wire representation
func (f *Finding) ConvertToAPI() api.Finding {
	return api.Finding{
		ID:               f.ID,
		Priority:         f.Priority,
		Category:         f.Category,
		Recommendation:   f.Recommendation,
		DeadlineOfAction: domain.TimePtr(f.DeadlineOfAction),
	}
}

func (f Findings) ConvertToAPI() []api.Finding {
	out := make([]api.Finding, len(f))
	for i := range f {
		out[i] = f[i].ConvertToAPI()
	}
	return out
}
