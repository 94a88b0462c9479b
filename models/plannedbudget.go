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

// PlannedBudget holds the computed totals of one intervention. Every column
// except currency and exchange_rate is derived; Recompute is the only writer.
type PlannedBudget struct {
	ID             uuid.UUID       `db:"id"`
	InterventionID uuid.UUID       `db:"intervention_id" validate:"required"`
	OriginID       nulls.UUID      `db:"origin_id"`
	Currency       string          `db:"currency"`
	ExchangeRate   decimal.Decimal `db:"exchange_rate"`

	UnicefCashLocal     decimal.Decimal `db:"unicef_cash_local"`
	PartnerContribution decimal.Decimal `db:"partner_contribution_local"`
	UnfundedCashLocal   decimal.Decimal `db:"unfunded_cash_local"`
	InKindAmountLocal   decimal.Decimal `db:"in_kind_amount_local"`
	TotalSupplyLocal    decimal.Decimal `db:"total_supply_local"`
	TotalLocal          decimal.Decimal `db:"total_local"`
	TotalUnicefCashUSD  decimal.Decimal `db:"total_unicef_cash_usd"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (b *PlannedBudget) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(b), nil
}

func (b *PlannedBudget) Create(tx *pop.Connection) error {
	return create(tx, b)
}

func (b *PlannedBudget) Update(tx *pop.Connection) error {
	return update(tx, b)
}

func (b *PlannedBudget) FindForIntervention(tx *pop.Connection, interventionID uuid.UUID) error {
	err := tx.Where("intervention_id = ?", interventionID).First(b)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// Recompute rebuilds every derived column from the intervention's activity
// tree, management budget and supply plan, then persists the result.
func (b *PlannedBudget) Recompute(tx *pop.Connection) error {
	var links ResultLinks
	if err := links.AllForIntervention(tx, b.InterventionID); err != nil {
		return err
	}

	var activityTotal fin.Streams
	for i := range links {
		link := &links[i]
		link.LoadLowerResults(tx, true)
		for j := range link.LowerResults {
			lr := &link.LowerResults[j]
			lrTotal, err := lr.RecomputeActivityTotals(tx)
			if err != nil {
				return err
			}
			activityTotal = activityTotal.Add(lrTotal)
		}
	}

	var mgmt ManagementBudgetLines
	if err := mgmt.AllForIntervention(tx, b.InterventionID); err != nil {
		return err
	}
	total := activityTotal.Add(mgmt.Totals())

	var supply SupplyItems
	if err := supply.AllForIntervention(tx, b.InterventionID); err != nil {
		return err
	}

	b.UnicefCashLocal = fin.Round(total.Unicef)
	b.PartnerContribution = fin.Round(total.CSO)
	b.UnfundedCashLocal = fin.Round(total.Unfunded)
	b.InKindAmountLocal = supply.InKindTotal()
	b.TotalSupplyLocal = supply.Total()
	b.TotalLocal = b.UnicefCashLocal.Add(b.PartnerContribution).Add(b.UnfundedCashLocal)
	b.TotalUnicefCashUSD = fin.ToUSD(b.UnicefCashLocal, b.ExchangeRate)
	return b.Update(tx)
}

// ConvertToAPI turns the model into its wire representation
func (b *PlannedBudget) ConvertToAPI() api.PlannedBudget {
	return api.PlannedBudget{
		Currency:            b.Currency,
		ExchangeRate:        b.ExchangeRate,
		UnicefCashLocal:     b.UnicefCashLocal,
		PartnerContribution: b.PartnerContribution,
		UnfundedCashLocal:   b.UnfundedCashLocal,
		InKindAmountLocal:   b.InKindAmountLocal,
		TotalSupplyLocal:    b.TotalSupplyLocal,
		TotalLocal:          b.TotalLocal,
		TotalUnicefCashUSD:  b.TotalUnicefCashUSD,
	}
}
