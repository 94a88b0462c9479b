package actions

import (
	"errors"

	"github.com/gobuffalo/buffalo"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/models"
)

func getReferencedAgreementFromCtx(c buffalo.Context) *models.Agreement {
	agreement, ok := c.Value(domain.TypeAgreement).(*models.Agreement)
	if !ok {
		return nil
	}
	return agreement
}

// agreementsList returns the agreements of the caller's country
func agreementsList(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	var agreements models.Agreements
	if err := agreements.AllForCountry(tx, user.CountryID); err != nil {
		return reportError(c, err)
	}

	out := make([]api.Agreement, len(agreements))
	for i := range agreements {
		out[i] = agreements[i].ConvertToAPI(tx, user)
	}
	return renderOk(c, out)
}

// agreementsCreate creates an agreement in draft
func agreementsCreate(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	var input api.AgreementCreateInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	agreement := models.NewAgreementFromInput(input, user)
	if err := agreement.Create(tx, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, agreement.ConvertToAPI(tx, user))
}

// agreementsView returns one agreement
func agreementsView(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	agreement := getReferencedAgreementFromCtx(c)
	if agreement == nil {
		err := errors.New("agreement not found in context")
		return reportError(c, api.NewAppError(err, api.ErrorAgreementFromContext, api.CategoryInternal))
	}

	return renderOk(c, agreement.ConvertToAPI(tx, user))
}

// agreementsUpdate applies a partial update to one agreement
func agreementsUpdate(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	agreement := getReferencedAgreementFromCtx(c)
	if agreement == nil {
		err := errors.New("agreement not found in context")
		return reportError(c, api.NewAppError(err, api.ErrorAgreementFromContext, api.CategoryInternal))
	}

	var input api.AgreementUpdateInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	if err := agreement.UpdateFromInput(tx, input, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, agreement.ConvertToAPI(tx, user))
}

// agreementsTransition moves one agreement to a new status
func agreementsTransition(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	agreement := getReferencedAgreementFromCtx(c)
	if agreement == nil {
		err := errors.New("agreement not found in context")
		return reportError(c, api.NewAppError(err, api.ErrorAgreementFromContext, api.CategoryInternal))
	}

	var input api.TransitionInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	if err := agreement.Transition(tx, api.AgreementStatus(input.To), input.Reason, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, agreement.ConvertToAPI(tx, user))
}

// agreementsSnapshots returns the change history of one agreement
func agreementsSnapshots(c buffalo.Context) error {
	tx := models.Tx(c)

	agreement := getReferencedAgreementFromCtx(c)
	if agreement == nil {
		err := errors.New("agreement not found in context")
		return reportError(c, api.NewAppError(err, api.ErrorAgreementFromContext, api.CategoryInternal))
	}

	var snapshots models.Snapshots
	if err := snapshots.AllForTarget(tx, domain.TypeAgreement, agreement.ID); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, snapshots.ConvertToAPI())
}
