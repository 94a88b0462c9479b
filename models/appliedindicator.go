package models

import (
	"encoding/json"
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/log"
)

type AppliedIndicators []AppliedIndicator

// AppliedIndicator is one measurement under a PD output. Disaggregations and
// locations are closed string lists stored as JSON arrays.
type AppliedIndicator struct {
	ID                  uuid.UUID  `db:"id"`
	LowerResultID       uuid.UUID  `db:"lower_result_id" validate:"required"`
	OriginID            nulls.UUID `db:"origin_id"`
	Title               string     `db:"title" validate:"required"`
	BaselineV           string     `db:"baseline_v"`
	BaselineD           string     `db:"baseline_d"`
	TargetV             string     `db:"target_v"`
	TargetD             string     `db:"target_d"`
	MeansOfVerification string     `db:"means_of_verification"`
	Disaggregations     string     `db:"disaggregations"`
	Locations           string     `db:"locations"`
	IsHighFrequency     bool       `db:"is_high_frequency"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

func (ai *AppliedIndicator) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(ai), nil
}

func (ai *AppliedIndicator) Create(tx *pop.Connection) error {
	return create(tx, ai)
}

func (ai *AppliedIndicator) Update(tx *pop.Connection) error {
	return update(tx, ai)
}

// SetDisaggregations stores the list as a JSON array
func (ai *AppliedIndicator) SetDisaggregations(values []string) {
	ai.Disaggregations = marshalStringList(values)
}

// SetLocations stores the list as a JSON array
func (ai *AppliedIndicator) SetLocations(values []string) {
	ai.Locations = marshalStringList(values)
}

func marshalStringList(values []string) string {
	if len(values) == 0 {
		return ""
	}
	j, _ := json.Marshal(values)
	return string(j)
}

func unmarshalStringList(id uuid.UUID, column, stored string) []string {
	if stored == "" {
		return nil
	}
	var values []string
	if err := json.Unmarshal([]byte(stored), &values); err != nil {
		log.Errorf("applied indicator %s has malformed %s, %s", id, column, err)
		return nil
	}
	return values
}

// ConvertToAPI turns the model into its wire representation
func (ai *AppliedIndicator) ConvertToAPI() api.AppliedIndicator {
	return api.AppliedIndicator{
		ID:                  ai.ID,
		Title:               ai.Title,
		Baseline:            api.IndicatorValue{V: ai.BaselineV, D: ai.BaselineD},
		Target:              api.IndicatorValue{V: ai.TargetV, D: ai.TargetD},
		MeansOfVerification: ai.MeansOfVerification,
		Disaggregations:     unmarshalStringList(ai.ID, "disaggregations", ai.Disaggregations),
		Locations:           unmarshalStringList(ai.ID, "locations", ai.Locations),
		IsHighFrequency:     ai.IsHighFrequency,
	}
}
