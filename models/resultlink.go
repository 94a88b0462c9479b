package models

import (
	"fmt"
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
)

type ResultLinks []ResultLink

// ResultLink attaches an intervention to one CP Output. It is the root of the
// coded tree: its code is its ordinal position among siblings.
type ResultLink struct {
	ID             uuid.UUID  `db:"id"`
	InterventionID uuid.UUID  `db:"intervention_id" validate:"required"`
	OriginID       nulls.UUID `db:"origin_id"`
	CPOutputID     uuid.UUID  `db:"cp_output_id" validate:"required"`
	Code           string     `db:"code"`
	Ordinal        int        `db:"ordinal"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`

	LowerResults LowerResults `has_many:"lower_results" validate:"-"`
}

func (r *ResultLink) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(r), nil
}

func (r *ResultLink) GetID() uuid.UUID {
	return r.ID
}

func (r *ResultLink) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, r, id)
}

func (r *ResultLinks) AllForIntervention(tx *pop.Connection, interventionID uuid.UUID) error {
	err := tx.Where("intervention_id = ?", interventionID).Order("ordinal asc").All(r)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// LoadLowerResults hydrates the LowerResults relation unless already loaded
func (r *ResultLink) LoadLowerResults(tx *pop.Connection, reload bool) {
	if len(r.LowerResults) == 0 || reload {
		if err := tx.Where("result_link_id = ?", r.ID).Order("ordinal asc").All(&r.LowerResults); err != nil {
			panic("database error loading lower results, " + err.Error())
		}
	}
}

// nextOrdinal returns max(sibling ordinal) + 1 for a parent column
func nextOrdinal(tx *pop.Connection, table, parentColumn string, parentID uuid.UUID) (int, error) {
	var row struct {
		Max int `db:"max"`
	}
	query := fmt.Sprintf("SELECT COALESCE(MAX(ordinal), 0) AS max FROM %s WHERE %s = ?", table, parentColumn)
	if err := tx.RawQuery(query, parentID).First(&row); err != nil {
		return 0, appErrorFromDB(err, api.ErrorQueryFailure)
	}
	return row.Max + 1, nil
}

// ConvertToAPI converts the subtree for the wire
func (r *ResultLink) ConvertToAPI(tx *pop.Connection) api.ResultLink {
	r.LoadLowerResults(tx, false)
	lowerResults := make([]api.LowerResult, len(r.LowerResults))
	for i := range r.LowerResults {
		lowerResults[i] = r.LowerResults[i].ConvertToAPI(tx)
	}
	return api.ResultLink{
		ID:           r.ID,
		CPOutputID:   r.CPOutputID,
		Code:         r.Code,
		LowerResults: lowerResults,
	}
}

func (r ResultLinks) ConvertToAPI(tx *pop.Connection) []api.ResultLink {
	out := make([]api.ResultLink, len(r))
	for i := range r {
		out[i] = r[i].ConvertToAPI(tx)
	}
	return out
}
