package actions

import (
	"errors"

	"github.com/gobuffalo/buffalo"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/models"
)

func getReferencedAmendmentFromCtx(c buffalo.Context) *models.Amendment {
	amendment, ok := c.Value(domain.TypeAmendment).(*models.Amendment)
	if !ok {
		return nil
	}
	return amendment
}

// amendmentsView returns one amendment with its live diff
func amendmentsView(c buffalo.Context) error {
	tx := models.Tx(c)

	amendment := getReferencedAmendmentFromCtx(c)
	if amendment == nil {
		err := errors.New("amendment not found in context")
		return reportError(c, api.NewAppError(err, api.ErrorResourceNotFound, api.CategoryInternal))
	}

	return renderOk(c, amendment.ConvertToAPI(tx))
}

// amendmentsMerge folds the amendment copy back into the live document
func amendmentsMerge(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	amendment := getReferencedAmendmentFromCtx(c)
	if amendment == nil {
		err := errors.New("amendment not found in context")
		return reportError(c, api.NewAppError(err, api.ErrorResourceNotFound, api.CategoryInternal))
	}

	var input api.AmendmentMergeInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	if err := amendment.Merge(tx, input.SignedDate, input.SignedAttachment, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, amendment.ConvertToAPI(tx))
}
