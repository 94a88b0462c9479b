package actions

import (
	"errors"
	"time"

	"github.com/gobuffalo/buffalo"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/models"
)

func getReferencedEngagementFromCtx(c buffalo.Context) *models.Engagement {
	engagement, ok := c.Value(domain.TypeEngagement).(*models.Engagement)
	if !ok {
		return nil
	}
	return engagement
}

func engagementCtxError() error {
	err := errors.New("engagement not found in context")
	return api.NewAppError(err, api.ErrorEngagementFromContext, api.CategoryInternal)
}

// engagementsList returns the engagements of the caller's country
func engagementsList(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	var engagements models.Engagements
	if err := engagements.AllForCountry(tx, user.CountryID); err != nil {
		return reportError(c, err)
	}

	out := make([]api.Engagement, len(engagements))
	for i := range engagements {
		out[i] = engagements[i].ConvertToAPI(tx, user)
	}
	return renderOk(c, out)
}

// engagementsCreate creates an engagement in partner_contacted
func engagementsCreate(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	var input api.EngagementCreateInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	engagement := models.NewEngagementFromInput(input, user, time.Now().UTC())
	if err := engagement.Create(tx, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, engagement.ConvertToAPI(tx, user))
}

// engagementsView returns one engagement
func engagementsView(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	engagement := getReferencedEngagementFromCtx(c)
	if engagement == nil {
		return reportError(c, engagementCtxError())
	}

	return renderOk(c, engagement.ConvertToAPI(tx, user))
}

// engagementsUpdate applies a partial update to one engagement
func engagementsUpdate(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	engagement := getReferencedEngagementFromCtx(c)
	if engagement == nil {
		return reportError(c, engagementCtxError())
	}

	var input api.EngagementUpdateInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	if err := engagement.UpdateFromInput(tx, input, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, engagement.ConvertToAPI(tx, user))
}

// engagementsSetFindings replaces the findings list of one engagement
func engagementsSetFindings(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	engagement := getReferencedEngagementFromCtx(c)
	if engagement == nil {
		return reportError(c, engagementCtxError())
	}

	var inputs []api.Finding
	if err := StrictBind(c, &inputs); err != nil {
		return reportError(c, err)
	}

	if err := engagement.SetFindings(tx, user, inputs); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, engagement.ConvertToAPI(tx, user))
}

// engagementsTransition moves one engagement to a new status
func engagementsTransition(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	engagement := getReferencedEngagementFromCtx(c)
	if engagement == nil {
		return reportError(c, engagementCtxError())
	}

	var input api.TransitionInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	to := api.EngagementStatus(input.To)
	if err := engagement.Transition(tx, to, input.Reason, user, time.Now().UTC()); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, engagement.ConvertToAPI(tx, user))
}

// engagementsSnapshots returns the change history of one engagement
func engagementsSnapshots(c buffalo.Context) error {
	tx := models.Tx(c)

	engagement := getReferencedEngagementFromCtx(c)
	if engagement == nil {
		return reportError(c, engagementCtxError())
	}

	var snapshots models.Snapshots
	if err := snapshots.AllForTarget(tx, domain.TypeEngagement, engagement.ID); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, snapshots.ConvertToAPI())
}
