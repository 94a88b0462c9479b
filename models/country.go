package models

import (
	"time"

	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
)

type Countries []Country

// Country is a tenant. Every tenant-owned row carries a country_id
// discriminant and all engine queries are scoped by it.
type Country struct {
	ID        uuid.UUID `db:"id"`
	Name      string    `db:"name" validate:"required"`
	Code      string    `db:"code" validate:"required"` // short code used in reference numbers, e.g. "LEB"
	Schema    string    `db:"schema_name"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (c *Country) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(c), nil
}

func (c *Country) Create(tx *pop.Connection) error {
	return create(tx, c)
}

func (c *Country) GetID() uuid.UUID {
	return c.ID
}

func (c *Country) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, c, id)
}

func (c *Countries) All(tx *pop.Connection) error {
	return appErrorFromDB(tx.Order("name asc").All(c), api.ErrorQueryFailure)
}
