package models

import (
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
)

type ActivityItems []ActivityItem

// ActivityItem is coded like "1.1.1.1". The struct-level validator refuses any
// item whose share split does not reconcile with no_units * unit_price.
type ActivityItem struct {
	ID           uuid.UUID       `db:"id"`
	ActivityID   uuid.UUID       `db:"activity_id" validate:"required"`
	OriginID     nulls.UUID      `db:"origin_id"`
	Code         string          `db:"code"`
	Ordinal      int             `db:"ordinal"`
	Name         string          `db:"name" validate:"required"`
	Unit         string          `db:"unit"`
	NoUnits      decimal.Decimal `db:"no_units"`
	UnitPrice    decimal.Decimal `db:"unit_price"`
	UnicefCash   decimal.Decimal `db:"unicef_cash"`
	CSOCash      decimal.Decimal `db:"cso_cash"`
	UnfundedCash decimal.Decimal `db:"unfunded_cash"`
	CreatedAt    time.Time       `db:"created_at"`
	UpdatedAt    time.Time       `db:"updated_at"`
}

func (i *ActivityItem) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(i), nil
}

func (i *ActivityItem) GetID() uuid.UUID {
	return i.ID
}

func (i *ActivityItem) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, i, id)
}

// ConvertToAPI turns the model into its wire representation
func (i *ActivityItem) ConvertToAPI() api.ActivityItem {
	return api.ActivityItem{
		ID:           i.ID,
		Code:         i.Code,
		Name:         i.Name,
		Unit:         i.Unit,
		NoUnits:      i.NoUnits,
		UnitPrice:    i.UnitPrice,
		UnicefCash:   i.UnicefCash,
		CSOCash:      i.CSOCash,
		UnfundedCash: i.UnfundedCash,
	}
}
