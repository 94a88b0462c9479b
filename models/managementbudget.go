package models

import (
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/fin"
)

// The three fixed management activity kinds
const (
	ManagementKindInCountry   = "in_country"
	ManagementKindOperational = "operational"
	ManagementKindPlanning    = "planning"
)

var managementBudgetKinds = []string{
	ManagementKindInCountry,
	ManagementKindOperational,
	ManagementKindPlanning,
}

type ManagementBudgetLines []ManagementBudgetLine

// ManagementBudgetLine is one of the three fixed management activity lines of
// an intervention, each split across the funding streams.
type ManagementBudgetLine struct {
	ID             uuid.UUID       `db:"id"`
	InterventionID uuid.UUID       `db:"intervention_id" validate:"required"`
	OriginID       nulls.UUID      `db:"origin_id"`
	Kind           string          `db:"kind" validate:"required"`
	UnicefCash     decimal.Decimal `db:"unicef_cash"`
	CSOCash        decimal.Decimal `db:"cso_cash"`
	UnfundedCash   decimal.Decimal `db:"unfunded_cash"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (m *ManagementBudgetLine) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(m), nil
}

func (m *ManagementBudgetLine) Create(tx *pop.Connection) error {
	return create(tx, m)
}

func (m *ManagementBudgetLine) Update(tx *pop.Connection) error {
	return update(tx, m)
}

// CreateManagementBudget seeds the three fixed lines for a new intervention
func CreateManagementBudget(tx *pop.Connection, interventionID uuid.UUID) error {
	for _, kind := range managementBudgetKinds {
		line := ManagementBudgetLine{InterventionID: interventionID, Kind: kind}
		if err := line.Create(tx); err != nil {
			return err
		}
	}
	return nil
}

func (m *ManagementBudgetLines) AllForIntervention(tx *pop.Connection, interventionID uuid.UUID) error {
	err := tx.Where("intervention_id = ?", interventionID).Order("kind asc").All(m)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// Totals sums the three lines per funding stream
func (m ManagementBudgetLines) Totals() fin.Streams {
	var total fin.Streams
	for _, line := range m {
		total = total.Add(fin.Streams{
			Unicef:   line.UnicefCash,
			CSO:      line.CSOCash,
			Unfunded: line.UnfundedCash,
		})
	}
	return total
}

// ConvertToAPI converts the lines for the wire
func (m ManagementBudgetLines) ConvertToAPI() []api.ManagementBudgetLine {
	out := make([]api.ManagementBudgetLine, len(m))
	for i, line := range m {
		out[i] = api.ManagementBudgetLine{
			Kind:         line.Kind,
			UnicefCash:   line.UnicefCash,
			PartnerCash:  line.CSOCash,
			UnfundedCash: line.UnfundedCash,
		}
	}
	return out
}
