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

type FundsReservations []FundsReservation

// FundsReservation is an ERP commitment header. Rows arrive via sync keyed on
// fr_number; interventions claim them by setting intervention_id. A header can
// belong to at most one intervention at a time.
type FundsReservation struct {
	ID             uuid.UUID  `db:"id"`
	FrNumber       string     `db:"fr_number" validate:"required"`
	VendorCode     string     `db:"vendor_code"`
	InterventionID nulls.UUID `db:"intervention_id"`
	Currency       string     `db:"currency"`
	DocumentDate   nulls.Time `db:"document_date"`
	StartDate      nulls.Time `db:"start_date"`
	EndDate        nulls.Time `db:"end_date"`

	TotalAmt        decimal.Decimal `db:"total_amt"`
	InterventionAmt decimal.Decimal `db:"intervention_amt"`
	ActualAmt       decimal.Decimal `db:"actual_amt"`
	OutstandingAmt  decimal.Decimal `db:"outstanding_amt"`

	Completed bool      `db:"completed_flag"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (f *FundsReservation) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(f), nil
}

func (f *FundsReservation) Create(tx *pop.Connection) error {
	return create(tx, f)
}

func (f *FundsReservation) Update(tx *pop.Connection) error {
	return update(tx, f)
}

func (f *FundsReservation) GetID() uuid.UUID {
	return f.ID
}

func (f *FundsReservation) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, f, id)
}

func (f *FundsReservation) FindByFrNumber(tx *pop.Connection, frNumber string) error {
	err := tx.Where("fr_number = ?", frNumber).First(f)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// AllForIntervention loads the reservation headers claimed by an intervention
func (f *FundsReservations) AllForIntervention(tx *pop.Connection, interventionID uuid.UUID) error {
	err := tx.Where("intervention_id = ?", interventionID).Order("fr_number asc").All(f)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// InterventionAmts returns the headers' intervention amounts for aggregation
func (f FundsReservations) InterventionAmts() []decimal.Decimal {
	amts := make([]decimal.Decimal, len(f))
	for i, frs := range f {
		amts[i] = frs.InterventionAmt
	}
	return amts
}

// ActualAmtTotal sums the actual disbursed amounts across headers
func (f FundsReservations) ActualAmtTotal() decimal.Decimal {
	total := decimal.Zero
	for _, frs := range f {
		total = total.Add(frs.ActualAmt)
	}
	return total
}

// OutstandingAmtTotal sums the outstanding amounts across headers
func (f FundsReservations) OutstandingAmtTotal() decimal.Decimal {
	total := decimal.Zero
	for _, frs := range f {
		total = total.Add(frs.OutstandingAmt)
	}
	return total
}
