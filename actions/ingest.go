package actions

import (
	"errors"

	"github.com/gobuffalo/buffalo"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/models"
)

// ERP sync endpoints. Only the service user may call them; records are applied
// one by one so a bad record rejects the whole batch with its index.

func requireServiceUser(c buffalo.Context) (models.User, error) {
	user := models.CurrentUser(c)
	if !user.IsService {
		err := errors.New("ingest endpoints are restricted to the service user")
		return user, api.NewAppError(err, api.ErrorNotAuthorized, api.CategoryForbidden)
	}
	return user, nil
}

func ingestOrganizations(c buffalo.Context) error {
	tx := models.Tx(c)

	user, err := requireServiceUser(c)
	if err != nil {
		return reportError(c, err)
	}

	var records []api.OrganizationRecord
	if err := StrictBind(c, &records); err != nil {
		return reportError(c, err)
	}

	for i, record := range records {
		if _, err := models.IngestOrganization(tx, user.CountryID, record); err != nil {
			newExtra(c, "record_index", i)
			return reportError(c, err)
		}
	}

	return renderOk(c, map[string]int{"ingested": len(records)})
}

func ingestPurchaseOrders(c buffalo.Context) error {
	tx := models.Tx(c)

	if _, err := requireServiceUser(c); err != nil {
		return reportError(c, err)
	}

	var records []api.PurchaseOrderRecord
	if err := StrictBind(c, &records); err != nil {
		return reportError(c, err)
	}

	for i, record := range records {
		if _, err := models.IngestPurchaseOrder(tx, record); err != nil {
			newExtra(c, "record_index", i)
			return reportError(c, err)
		}
	}

	return renderOk(c, map[string]int{"ingested": len(records)})
}

func ingestFundsReservations(c buffalo.Context) error {
	tx := models.Tx(c)

	if _, err := requireServiceUser(c); err != nil {
		return reportError(c, err)
	}

	var records []api.FundsReservationRecord
	if err := StrictBind(c, &records); err != nil {
		return reportError(c, err)
	}

	for i, record := range records {
		if _, err := models.IngestFundsReservation(tx, record); err != nil {
			newExtra(c, "record_index", i)
			return reportError(c, err)
		}
	}

	return renderOk(c, map[string]int{"ingested": len(records)})
}
