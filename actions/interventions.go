package actions

import (
	"errors"

	"github.com/gobuffalo/buffalo"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/models"
)

func getReferencedInterventionFromCtx(c buffalo.Context) *models.Intervention {
	intervention, ok := c.Value(domain.TypeIntervention).(*models.Intervention)
	if !ok {
		return nil
	}
	return intervention
}

func interventionCtxError() error {
	err := errors.New("intervention not found in context")
	return api.NewAppError(err, api.ErrorInterventionFromContext, api.CategoryInternal)
}

// interventionsList returns the interventions of the caller's country
func interventionsList(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	var interventions models.Interventions
	if err := interventions.AllForCountry(tx, user.CountryID); err != nil {
		return reportError(c, err)
	}

	out := make([]api.Intervention, len(interventions))
	for i := range interventions {
		out[i] = interventions[i].ConvertToAPI(tx, user)
	}
	return renderOk(c, out)
}

// interventionsCreate creates a PD or SSFA document
func interventionsCreate(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	var input api.InterventionCreateInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	intervention := models.NewInterventionFromInput(input, user)
	if err := intervention.Create(tx, input.Currency, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, intervention.ConvertToAPI(tx, user))
}

// interventionsView returns one intervention
func interventionsView(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	intervention := getReferencedInterventionFromCtx(c)
	if intervention == nil {
		return reportError(c, interventionCtxError())
	}

	return renderOk(c, intervention.ConvertToAPI(tx, user))
}

// interventionsUpdate applies a partial update to one intervention
func interventionsUpdate(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	intervention := getReferencedInterventionFromCtx(c)
	if intervention == nil {
		return reportError(c, interventionCtxError())
	}

	var input api.InterventionUpdateInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	if err := intervention.UpdateFromInput(tx, input, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, intervention.ConvertToAPI(tx, user))
}

// interventionsTransition moves one intervention to a new status
func interventionsTransition(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	intervention := getReferencedInterventionFromCtx(c)
	if intervention == nil {
		return reportError(c, interventionCtxError())
	}

	var input api.TransitionInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	if err := intervention.Transition(tx, api.InterventionStatus(input.To), input.Reason, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, intervention.ConvertToAPI(tx, user))
}

// interventionsSnapshots returns the change history of one intervention
func interventionsSnapshots(c buffalo.Context) error {
	tx := models.Tx(c)

	intervention := getReferencedInterventionFromCtx(c)
	if intervention == nil {
		return reportError(c, interventionCtxError())
	}

	var snapshots models.Snapshots
	if err := snapshots.AllForTarget(tx, domain.TypeIntervention, intervention.ID); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, snapshots.ConvertToAPI())
}

// interventionsClaimFundsReservation attaches an ingested FRS header to the
// intervention. Claiming writes no snapshot; FRS data is external.
func interventionsClaimFundsReservation(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	intervention := getReferencedInterventionFromCtx(c)
	if intervention == nil {
		return reportError(c, interventionCtxError())
	}

	var input api.FundsReservationClaimInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	if err := intervention.ClaimFundsReservation(tx, input.FrNumber); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, intervention.ConvertToAPI(tx, user))
}

// interventionsAmend forks the intervention into an editable amendment copy
func interventionsAmend(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	intervention := getReferencedInterventionFromCtx(c)
	if intervention == nil {
		return reportError(c, interventionCtxError())
	}

	var input api.AmendmentCreateInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	amendment, err := models.ForkIntervention(tx, intervention, input, user)
	if err != nil {
		return reportError(c, err)
	}

	return renderOk(c, amendment.ConvertToAPI(tx))
}

// interventionsAmendments lists the amendments of one intervention
func interventionsAmendments(c buffalo.Context) error {
	tx := models.Tx(c)

	intervention := getReferencedInterventionFromCtx(c)
	if intervention == nil {
		return reportError(c, interventionCtxError())
	}

	var amendments models.Amendments
	if err := amendments.AllForDocument(tx, intervention.ID); err != nil {
		return reportError(c, err)
	}

	out := make([]api.Amendment, len(amendments))
	for i := range amendments {
		out[i] = amendments[i].ConvertToAPI(tx)
	}
	return renderOk(c, out)
}
