package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

// ReferenceCounter holds the last issued sequence for one (country, document
// type, year) triple. NextReferenceNumber takes a row lock before
// incrementing, so two concurrent creates can never draw the same value.
type ReferenceCounter struct {
	ID           uuid.UUID `db:"id"`
	CountryID    uuid.UUID `db:"country_id" validate:"required"`
	DocumentType string    `db:"document_type" validate:"required"`
	Year         int       `db:"year" validate:"required"`
	LastValue    int       `db:"last_value"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (r *ReferenceCounter) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(r), nil
}

// NextReferenceNumber issues the next number in the per (country, type, year)
// sequence and formats it as COUNTRY/TYPE/YEAR/SEQ. The counter row is created
// on first use; a unique constraint on the triple makes concurrent first use
// collapse into a retry.
func NextReferenceNumber(tx *pop.Connection, country Country, documentType string, year int) (string, error) {
	for attempt := 0; attempt < 2; attempt++ {
		var counter ReferenceCounter
		err := tx.RawQuery(
			"SELECT * FROM reference_counters WHERE country_id = ? AND document_type = ? AND year = ? FOR UPDATE",
			country.ID, documentType, year).First(&counter)
		if err == nil {
			counter.LastValue++
			if err := update(tx, &counter); err != nil {
				return "", err
			}
			return formatReferenceNumber(country.Code, documentType, year, counter.LastValue), nil
		}
		if domain.IsOtherThanNoRows(err) {
			return "", appErrorFromDB(err, api.ErrorQueryFailure)
		}

		counter = ReferenceCounter{
			CountryID:    country.ID,
			DocumentType: documentType,
			Year:         year,
			LastValue:    1,
		}
		createErr := create(tx, &counter)
		if createErr == nil {
			return formatReferenceNumber(country.Code, documentType, year, counter.LastValue), nil
		}

		// another transaction inserted the counter first; go back and lock its row
		var appErr *api.AppError
		if errors.As(createErr, &appErr) && appErr.Key == api.ErrorUniqueKeyViolation {
			continue
		}
		return "", api.NewAppError(createErr, api.ErrorReferenceNumberConflict, api.CategoryInternal)
	}
	return "", api.NewAppError(
		errors.New("reference counter insert raced twice"),
		api.ErrorReferenceNumberConflict, api.CategoryInternal)
}

func formatReferenceNumber(countryCode, documentType string, year, seq int) string {
	return fmt.Sprintf("%s/%s/%d/%04d", countryCode, documentType, year, seq)
}
