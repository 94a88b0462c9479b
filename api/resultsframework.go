package api

import (
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

// ResultLink attaches an intervention to one CP Output and owns its PD outputs
// swagger:model
type ResultLink struct {
	ID           uuid.UUID     `json:"id"`
	CPOutputID   uuid.UUID     `json:"cp_output_id"`
	Code         string        `json:"code"`
	LowerResults []LowerResult `json:"lower_results"`
}

// LowerResult is a PD output, coded like "1.1"
// swagger:model
type LowerResult struct {
	ID         uuid.UUID              `json:"id"`
	Code       string                 `json:"code"`
	Name       string                 `json:"name"`
	Activities []InterventionActivity `json:"activities"`
	Indicators []AppliedIndicator     `json:"applied_indicators"`
}

// InterventionActivity is coded like "1.1.1" and carries cash split across streams
// swagger:model
type InterventionActivity struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	UnicefCash   decimal.Decimal `json:"unicef_cash"`
	CSOCash      decimal.Decimal `json:"cso_cash"`
	UnfundedCash decimal.Decimal `json:"unfunded_cash"`
	IsActive     bool            `json:"is_active"`
	TimeFrames   []int           `json:"time_frames"`
	Items        []ActivityItem  `json:"items"`
}

// ActivityItem is coded like "1.1.1.1"; unit math must reconcile with the cash split
// swagger:model
type ActivityItem struct {
	ID           uuid.UUID       `json:"id"`
	Code         string          `json:"code"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	NoUnits      decimal.Decimal `json:"no_units"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnicefCash   decimal.Decimal `json:"unicef_cash"`
	CSOCash      decimal.Decimal `json:"cso_cash"`
	UnfundedCash decimal.Decimal `json:"unfunded_cash"`
}

// IndicatorValue is a baseline or target with numerator/denominator
// swagger:model
type IndicatorValue struct {
	V string `json:"v"`
	D string `json:"d"`
}

// AppliedIndicator is a measurement declared under a LowerResult
// swagger:model
type AppliedIndicator struct {
	ID                  uuid.UUID      `json:"id"`
	Title               string         `json:"title"`
	Baseline            IndicatorValue `json:"baseline"`
	Target              IndicatorValue `json:"target"`
	MeansOfVerification string         `json:"means_of_verification"`
	Disaggregations     []string       `json:"disaggregations"`
	Locations           []string       `json:"locations"`
	IsHighFrequency     bool           `json:"is_high_frequency"`
}

// ResultLinkCreateInput attaches a CP output to an intervention
// swagger:model
type ResultLinkCreateInput struct {
	CPOutputID uuid.UUID `json:"cp_output_id"`
}

// LowerResultCreateInput adds a PD output under a result link
// swagger:model
type LowerResultCreateInput struct {
	Name string `json:"name"`
}

// ActivityCreateInput adds an activity under a PD output
// swagger:model
type ActivityCreateInput struct {
	Name         string          `json:"name"`
	UnicefCash   decimal.Decimal `json:"unicef_cash"`
	CSOCash      decimal.Decimal `json:"cso_cash"`
	UnfundedCash decimal.Decimal `json:"unfunded_cash"`
	TimeFrames   []int           `json:"time_frames"`
}

// ActivityMoveInput reassigns an activity to another PD output
// swagger:model
type ActivityMoveInput struct {
	LowerResultID uuid.UUID `json:"lower_result_id"`
}

// ActivityItemInput adds or replaces one costed item under an activity
// swagger:model
type ActivityItemInput struct {
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	NoUnits      decimal.Decimal `json:"no_units"`
	UnitPrice    decimal.Decimal `json:"unit_price"`
	UnicefCash   decimal.Decimal `json:"unicef_cash"`
	CSOCash      decimal.Decimal `json:"cso_cash"`
	UnfundedCash decimal.Decimal `json:"unfunded_cash"`
}
