package models

import (
	"errors"

	"github.com/gobuffalo/pop/v6"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

// ERP sync ingest. Each function is idempotent on the record's natural key:
// replaying the same record any number of times converges on the same row.

var partnerOrganizationTypes = map[api.OrganizationType]struct{}{
	api.OrganizationTypeGovernment:            {},
	api.OrganizationTypeCSO:                   {},
	api.OrganizationTypeUNAgency:              {},
	api.OrganizationTypeBilateralMultilateral: {},
}

// IngestOrganization upserts an organization keyed on vendor_number and keeps
// the country's partner projection in step with it.
func IngestOrganization(tx *pop.Connection, countryID uuid.UUID, record api.OrganizationRecord) (*Organization, error) {
	if record.VendorNumber == "" || record.Name == "" {
		return nil, api.NewAppError(errors.New("organization record missing vendor_number or name"),
			api.ErrorIngestInvalidRecord, api.CategoryUser)
	}
	if _, ok := ValidOrganizationTypes[record.Type]; !ok {
		return nil, api.NewAppError(errors.New("organization record has unknown type "+string(record.Type)),
			api.ErrorIngestInvalidRecord, api.CategoryUser)
	}

	var org Organization
	err := org.FindByVendorNumber(tx, record.VendorNumber)
	if err != nil {
		var appErr *api.AppError
		if !errors.As(err, &appErr) || appErr.Category != api.CategoryNotFound {
			return nil, err
		}
		org = Organization{
			VendorNumber: record.VendorNumber,
			Name:         record.Name,
			Type:         record.Type,
			CSOSubtype:   record.CSOSubtype,
		}
		if err := org.Create(tx); err != nil {
			return nil, err
		}
	} else {
		org.Name = record.Name
		org.Type = record.Type
		org.CSOSubtype = record.CSOSubtype
		if err := org.Update(tx); err != nil {
			return nil, err
		}
	}

	if _, ok := partnerOrganizationTypes[record.Type]; ok {
		if err := syncPartnerProjection(tx, countryID, org, record); err != nil {
			return nil, err
		}
	}
	return &org, nil
}

func syncPartnerProjection(tx *pop.Connection, countryID uuid.UUID, org Organization, record api.OrganizationRecord) error {
	var partner Partner
	err := partner.FindByOrganization(tx, countryID, org.ID)
	if err != nil {
		var appErr *api.AppError
		if !errors.As(err, &appErr) || appErr.Category != api.CategoryNotFound {
			return err
		}
		partner = Partner{
			CountryID:      countryID,
			OrganizationID: org.ID,
			Blocked:        record.Blocked,
			Deleted:        record.Deleted,
		}
		return partner.Create(tx)
	}

	partner.Blocked = record.Blocked
	partner.Deleted = record.Deleted
	return partner.Update(tx)
}

// IngestPurchaseOrder upserts a purchase order keyed on order_number and its
// items keyed on (order_number, number). The auditor firm must already be
// ingested as an organization.
func IngestPurchaseOrder(tx *pop.Connection, record api.PurchaseOrderRecord) (*PurchaseOrder, error) {
	if record.OrderNumber == "" || record.AuditorFirmVendor == "" {
		return nil, api.NewAppError(errors.New("purchase order record missing order_number or auditor firm vendor"),
			api.ErrorIngestInvalidRecord, api.CategoryUser)
	}

	var firm Organization
	if err := firm.FindByVendorNumber(tx, record.AuditorFirmVendor); err != nil {
		return nil, api.NewAppError(errors.New("purchase order references unknown auditor firm "+record.AuditorFirmVendor),
			api.ErrorIngestInvalidRecord, api.CategoryUser)
	}

	var po PurchaseOrder
	err := po.FindByOrderNumber(tx, record.OrderNumber)
	if err != nil {
		var appErr *api.AppError
		if !errors.As(err, &appErr) || appErr.Category != api.CategoryNotFound {
			return nil, err
		}
		po = PurchaseOrder{
			OrderNumber:   record.OrderNumber,
			AuditorFirmID: firm.ID,
		}
		po.ContractStartDate = domain.NullTimeFromPtr(record.ContractStartDate)
		po.ContractEndDate = domain.NullTimeFromPtr(record.ContractEndDate)
		if err := po.Create(tx); err != nil {
			return nil, err
		}
	} else {
		po.AuditorFirmID = firm.ID
		po.ContractStartDate = domain.NullTimeFromPtr(record.ContractStartDate)
		po.ContractEndDate = domain.NullTimeFromPtr(record.ContractEndDate)
		if err := po.Update(tx); err != nil {
			return nil, err
		}
	}

	po.LoadItems(tx, true)
	for _, item := range record.Items {
		if item.Number == "" {
			return nil, api.NewAppError(errors.New("purchase order item missing number"),
				api.ErrorIngestInvalidRecord, api.CategoryUser)
		}
		if po.hasItem(item.Number) {
			continue
		}
		poItem := POItem{PurchaseOrderID: po.ID, Number: item.Number}
		if err := poItem.Create(tx); err != nil {
			return nil, err
		}
	}
	return &po, nil
}

func (p *PurchaseOrder) hasItem(number string) bool {
	for _, item := range p.Items {
		if item.Number == number {
			return true
		}
	}
	return false
}

// IngestFundsReservation upserts a reservation header keyed on fr_number.
// Amount updates never detach the header from an intervention that claimed it.
func IngestFundsReservation(tx *pop.Connection, record api.FundsReservationRecord) (*FundsReservation, error) {
	if record.FrNumber == "" {
		return nil, api.NewAppError(errors.New("funds reservation record missing fr_number"),
			api.ErrorIngestInvalidRecord, api.CategoryUser)
	}

	var frs FundsReservation
	err := frs.FindByFrNumber(tx, record.FrNumber)
	if err != nil {
		var appErr *api.AppError
		if !errors.As(err, &appErr) || appErr.Category != api.CategoryNotFound {
			return nil, err
		}
		frs = FundsReservation{FrNumber: record.FrNumber}
	}

	frs.VendorCode = record.VendorCode
	frs.Currency = record.Currency
	frs.DocumentDate = domain.NullTimeFromPtr(record.DocumentDate)
	frs.StartDate = domain.NullTimeFromPtr(record.StartDate)
	frs.EndDate = domain.NullTimeFromPtr(record.EndDate)
	frs.TotalAmt = record.TotalAmt
	frs.InterventionAmt = record.InterventionAmt
	frs.ActualAmt = record.ActualAmt
	frs.OutstandingAmt = record.OutstandingAmt
	frs.Completed = record.Completed

	if frs.ID == uuid.Nil {
		if err := frs.Create(tx); err != nil {
			return nil, err
		}
		return &frs, nil
	}
	if err := frs.Update(tx); err != nil {
		return nil, err
	}
	return &frs, nil
}
