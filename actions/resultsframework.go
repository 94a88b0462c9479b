package actions

import (
	"errors"

	"github.com/gobuffalo/buffalo"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/models"
)

// Results framework handlers. The nested routes are keyed on tree node IDs, so
// each handler walks up to the owning intervention and authorizes against it.

func paramUUID(c buffalo.Context) (uuid.UUID, error) {
	id, err := uuid.FromString(c.Param("id"))
	if err != nil {
		return uuid.UUID{}, api.NewAppError(err, api.ErrorMustBeAValidUUID, api.CategoryUser)
	}
	return id, nil
}

func loadInterventionForEdit(c buffalo.Context, interventionID uuid.UUID) (*models.Intervention, error) {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	var intervention models.Intervention
	if err := intervention.FindByID(tx, interventionID); err != nil {
		return nil, err
	}
	if !intervention.IsActorAllowedTo(tx, user, models.PermissionUpdate, "") {
		err := errors.New("actor not allowed to edit this intervention's results framework")
		return nil, api.NewAppError(err, api.ErrorNotAuthorized, api.CategoryForbidden)
	}
	return &intervention, nil
}

// resultLinksCreate attaches a CP output to the intervention
func resultLinksCreate(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	intervention := getReferencedInterventionFromCtx(c)
	if intervention == nil {
		return reportError(c, interventionCtxError())
	}

	var input api.ResultLinkCreateInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	link, err := intervention.AddResultLink(tx, input, user)
	if err != nil {
		return reportError(c, err)
	}

	return renderOk(c, link.ConvertToAPI(tx))
}

// lowerResultsCreate appends a PD output under a result link
func lowerResultsCreate(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	linkID, err := paramUUID(c)
	if err != nil {
		return reportError(c, err)
	}

	var link models.ResultLink
	if err := link.FindByID(tx, linkID); err != nil {
		return reportError(c, err)
	}

	intervention, err := loadInterventionForEdit(c, link.InterventionID)
	if err != nil {
		return reportError(c, err)
	}

	var input api.LowerResultCreateInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	lr, err := intervention.AddLowerResult(tx, &link, input, user)
	if err != nil {
		return reportError(c, err)
	}

	return renderOk(c, lr.ConvertToAPI(tx))
}

// lowerResultsDestroy removes a PD output subtree and renumbers its siblings
func lowerResultsDestroy(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	lrID, err := paramUUID(c)
	if err != nil {
		return reportError(c, err)
	}

	var lr models.LowerResult
	if err := lr.FindByID(tx, lrID); err != nil {
		return reportError(c, err)
	}

	var link models.ResultLink
	if err := link.FindByID(tx, lr.ResultLinkID); err != nil {
		return reportError(c, err)
	}

	intervention, err := loadInterventionForEdit(c, link.InterventionID)
	if err != nil {
		return reportError(c, err)
	}

	if err := intervention.DeleteLowerResult(tx, &lr, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, intervention.ConvertToAPI(tx, models.CurrentUser(c)))
}

// activitiesCreate appends an activity under a PD output
func activitiesCreate(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	lrID, err := paramUUID(c)
	if err != nil {
		return reportError(c, err)
	}

	var lr models.LowerResult
	if err := lr.FindByID(tx, lrID); err != nil {
		return reportError(c, err)
	}

	var link models.ResultLink
	if err := link.FindByID(tx, lr.ResultLinkID); err != nil {
		return reportError(c, err)
	}

	intervention, err := loadInterventionForEdit(c, link.InterventionID)
	if err != nil {
		return reportError(c, err)
	}

	var input api.ActivityCreateInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	activity, err := intervention.AddActivity(tx, &lr, input, user)
	if err != nil {
		return reportError(c, err)
	}

	return renderOk(c, activity.ConvertToAPI(tx))
}

func loadActivityIntervention(c buffalo.Context) (*models.Activity, *models.Intervention, error) {
	tx := models.Tx(c)

	activityID, err := paramUUID(c)
	if err != nil {
		return nil, nil, err
	}

	var activity models.Activity
	if err := activity.FindByID(tx, activityID); err != nil {
		return nil, nil, err
	}

	var lr models.LowerResult
	if err := lr.FindByID(tx, activity.LowerResultID); err != nil {
		return nil, nil, err
	}
	var link models.ResultLink
	if err := link.FindByID(tx, lr.ResultLinkID); err != nil {
		return nil, nil, err
	}

	intervention, err := loadInterventionForEdit(c, link.InterventionID)
	if err != nil {
		return nil, nil, err
	}
	return &activity, intervention, nil
}

// activitiesDestroy removes an activity and renumbers its trailing siblings
func activitiesDestroy(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	activity, intervention, err := loadActivityIntervention(c)
	if err != nil {
		return reportError(c, err)
	}

	if err := intervention.DeleteActivity(tx, activity, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, intervention.ConvertToAPI(tx, user))
}

// activitiesMove reassigns an activity to another PD output
func activitiesMove(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	activity, intervention, err := loadActivityIntervention(c)
	if err != nil {
		return reportError(c, err)
	}

	var input api.ActivityMoveInput
	if err := StrictBind(c, &input); err != nil {
		return reportError(c, err)
	}

	var target models.LowerResult
	if err := target.FindByID(tx, input.LowerResultID); err != nil {
		return reportError(c, err)
	}
	var targetLink models.ResultLink
	if err := targetLink.FindByID(tx, target.ResultLinkID); err != nil {
		return reportError(c, err)
	}
	if targetLink.InterventionID != intervention.ID {
		err := errors.New("target PD output belongs to another intervention")
		return reportError(c, api.NewAppError(err, api.ErrorValidation, api.CategoryUser))
	}

	if err := intervention.MoveActivity(tx, activity, &target, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, activity.ConvertToAPI(tx))
}

// activityItemsSet replaces an activity's costed items
func activityItemsSet(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	activity, intervention, err := loadActivityIntervention(c)
	if err != nil {
		return reportError(c, err)
	}

	var inputs []api.ActivityItemInput
	if err := StrictBind(c, &inputs); err != nil {
		return reportError(c, err)
	}

	if err := intervention.SetActivityItems(tx, activity, inputs, user); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, activity.ConvertToAPI(tx))
}
