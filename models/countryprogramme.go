package models

import (
	"time"

	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

type CountryProgrammes []CountryProgramme

// CountryProgramme is a time-bounded programmatic cycle. Agreements belong to one.
type CountryProgramme struct {
	ID        uuid.UUID `db:"id"`
	CountryID uuid.UUID `db:"country_id" validate:"required"`
	Name      string    `db:"name" validate:"required"`
	WBS       string    `db:"wbs"`
	FromDate  time.Time `db:"from_date" validate:"required"`
	ToDate    time.Time `db:"to_date" validate:"required"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (cp *CountryProgramme) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(cp), nil
}

func (cp *CountryProgramme) Create(tx *pop.Connection) error {
	return create(tx, cp)
}

func (cp *CountryProgramme) GetID() uuid.UUID {
	return cp.ID
}

func (cp *CountryProgramme) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, cp, id)
}

// IsActiveOn reports whether the given date falls within the programme cycle
func (cp *CountryProgramme) IsActiveOn(date time.Time) bool {
	d := domain.BeginningOfDay(date)
	return !d.Before(domain.BeginningOfDay(cp.FromDate)) && !d.After(domain.BeginningOfDay(cp.ToDate))
}

// IsExpiredOn reports whether the programme cycle has ended before the given date
func (cp *CountryProgramme) IsExpiredOn(date time.Time) bool {
	return domain.BeginningOfDay(cp.ToDate).Before(domain.BeginningOfDay(date))
}

// FindActiveForCountry loads the country programme covering the given date
func (cp *CountryProgramme) FindActiveForCountry(tx *pop.Connection, countryID uuid.UUID, date time.Time) error {
	err := tx.Where("country_id = ? AND from_date <= ? AND to_date >= ?",
		countryID, date, date).Order("from_date desc").First(cp)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}
