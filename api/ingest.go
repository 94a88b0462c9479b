package api

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrganizationRecord is one ERP sync record for an organization, keyed on
// vendor_number.
// swagger:model
type OrganizationRecord struct {
	VendorNumber string           `json:"vendor_number"`
	Name         string           `json:"name"`
	Type         OrganizationType `json:"organization_type"`
	CSOSubtype   string           `json:"cso_subtype,omitempty"`
	Blocked      bool             `json:"blocked"`
	Deleted      bool             `json:"deleted_flag"`
}

// PurchaseOrderRecord is one ERP sync record for a purchase order, keyed on
// order_number. Items are keyed on (order_number, number).
// swagger:model
type PurchaseOrderRecord struct {
	OrderNumber       string              `json:"order_number"`
	AuditorFirmVendor string              `json:"auditor_firm_vendor_number"`
	ContractStartDate *time.Time          `json:"contract_start_date,omitempty"`
	ContractEndDate   *time.Time          `json:"contract_end_date,omitempty"`
	Items             []PurchaseOrderItem `json:"items"`
}

// PurchaseOrderItem is one line of a purchase order
// swagger:model
type PurchaseOrderItem struct {
	Number string `json:"number"`
}

// FundsReservationRecord is one ERP sync record for a funds reservation header,
// keyed on fr_number.
// swagger:model
type FundsReservationRecord struct {
	FrNumber        string          `json:"fr_number"`
	VendorCode      string          `json:"vendor_code"`
	Currency        string          `json:"currency"`
	DocumentDate    *time.Time      `json:"document_date,omitempty"`
	StartDate       *time.Time      `json:"start_date,omitempty"`
	EndDate         *time.Time      `json:"end_date,omitempty"`
	TotalAmt        decimal.Decimal `json:"total_amt"`
	InterventionAmt decimal.Decimal `json:"intervention_amt"`
	ActualAmt       decimal.Decimal `json:"actual_amt"`
	OutstandingAmt  decimal.Decimal `json:"outstanding_amt"`
	Completed       bool            `json:"completed_flag"`
}
