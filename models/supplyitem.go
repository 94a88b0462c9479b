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

// Supply lines are priced in kind when UNICEF provides the goods; partner
// provided lines count toward the supply total only.
const (
	SupplyProvidedByUnicef  = "unicef"
	SupplyProvidedByPartner = "partner"
)

type SupplyItems []SupplyItem

// SupplyItem is one line of an intervention's supply plan
type SupplyItem struct {
	ID             uuid.UUID       `db:"id"`
	InterventionID uuid.UUID       `db:"intervention_id" validate:"required"`
	OriginID       nulls.UUID      `db:"origin_id"`
	Title          string          `db:"title" validate:"required"`
	Unit           string          `db:"unit"`
	UnitNumber     decimal.Decimal `db:"unit_number"`
	UnitPrice      decimal.Decimal `db:"unit_price"`
	ProvidedBy     string          `db:"provided_by"`
	CreatedAt      time.Time       `db:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at"`
}

func (s *SupplyItem) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(s), nil
}

func (s *SupplyItem) Create(tx *pop.Connection) error {
	return create(tx, s)
}

func (s *SupplyItem) Update(tx *pop.Connection) error {
	return update(tx, s)
}

func (s *SupplyItem) Destroy(tx *pop.Connection) error {
	return destroy(tx, s)
}

// TotalPrice is the rounded line cost
func (s *SupplyItem) TotalPrice() decimal.Decimal {
	return fin.ItemTotal(s.UnitNumber, s.UnitPrice)
}

func (s *SupplyItems) AllForIntervention(tx *pop.Connection, interventionID uuid.UUID) error {
	err := tx.Where("intervention_id = ?", interventionID).Order("created_at asc").All(s)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// Total sums the supply plan
func (s SupplyItems) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s {
		total = total.Add(item.TotalPrice())
	}
	return total
}

// InKindTotal sums the UNICEF-provided lines. An empty provided_by counts as
// UNICEF, matching the column default.
func (s SupplyItems) InKindTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range s {
		if item.ProvidedBy == SupplyProvidedByPartner {
			continue
		}
		total = total.Add(item.TotalPrice())
	}
	return total
}
