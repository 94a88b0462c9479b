package models

import (
	"time"

	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
)

var ValidOrganizationTypes = map[api.OrganizationType]struct{}{
	api.OrganizationTypeGovernment:            {},
	api.OrganizationTypeCSO:                   {},
	api.OrganizationTypeUNAgency:              {},
	api.OrganizationTypeBilateralMultilateral: {},
	api.OrganizationTypeAuditorFirm:           {},
	api.OrganizationTypeTPMPartner:            {},
}

type Organizations []Organization

// Organization is the identity record for any external party. Created by ERP
// sync or admin; vendor_number never changes once set.
type Organization struct {
	ID           uuid.UUID            `db:"id"`
	VendorNumber string               `db:"vendor_number" validate:"required"`
	Name         string               `db:"name" validate:"required"`
	Type         api.OrganizationType `db:"organization_type" validate:"organizationType"`
	CSOSubtype   string               `db:"cso_subtype"`
	Hidden       bool                 `db:"hidden"`
	CreatedAt    time.Time            `db:"created_at"`
	UpdatedAt    time.Time            `db:"updated_at"`
}

func (o *Organization) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(o), nil
}

func (o *Organization) Create(tx *pop.Connection) error {
	return create(tx, o)
}

func (o *Organization) Update(tx *pop.Connection) error {
	return update(tx, o)
}

func (o *Organization) GetID() uuid.UUID {
	return o.ID
}

func (o *Organization) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, o, id)
}

func (o *Organization) FindByVendorNumber(tx *pop.Connection, vendorNumber string) error {
	err := tx.Where("vendor_number = ?", vendorNumber).First(o)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// Hide soft-deletes the organization
func (o *Organization) Hide(tx *pop.Connection) error {
	o.Hidden = true
	return o.Update(tx)
}

// ConvertToAPI turns the model into its wire representation
func (o *Organization) ConvertToAPI() api.Organization {
	return api.Organization{
		ID:           o.ID,
		VendorNumber: o.VendorNumber,
		Name:         o.Name,
		Type:         o.Type,
		CSOSubtype:   o.CSOSubtype,
		Hidden:       o.Hidden,
	}
}
