package models

import (
	"errors"
	"fmt"

	"github.com/gobuffalo/pop/v6"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/fin"
)

// Results framework operations. Every mutation here runs inside the caller's
// transaction, keeps the dotted codes consistent, recomputes the budget, and
// writes one snapshot on the owning intervention.

// AddResultLink attaches a CP output at the end of the intervention's list
func (i *Intervention) AddResultLink(tx *pop.Connection, input api.ResultLinkCreateInput, user User) (*ResultLink, error) {
	if err := i.requireTreeEdit(tx, user); err != nil {
		return nil, err
	}

	ordinal, err := nextOrdinal(tx, "result_links", "intervention_id", i.ID)
	if err != nil {
		return nil, err
	}

	link := ResultLink{
		InterventionID: i.ID,
		CPOutputID:     input.CPOutputID,
		Ordinal:        ordinal,
		Code:           fmt.Sprintf("%d", ordinal),
	}
	if err := create(tx, &link); err != nil {
		return nil, err
	}

	changes := rowAdded(diffPath("", "result_links", link.ID), &link)
	if err := i.snapshotUpdate(tx, user, changes); err != nil {
		return nil, err
	}
	return &link, nil
}

// AddLowerResult appends a PD output under a result link
func (i *Intervention) AddLowerResult(tx *pop.Connection, link *ResultLink, input api.LowerResultCreateInput, user User) (*LowerResult, error) {
	if err := i.requireTreeEdit(tx, user); err != nil {
		return nil, err
	}
	if link.InterventionID != i.ID {
		return nil, api.NewAppError(errors.New("result link belongs to another intervention"),
			api.ErrorValidation, api.CategoryUser)
	}

	ordinal, err := nextOrdinal(tx, "lower_results", "result_link_id", link.ID)
	if err != nil {
		return nil, err
	}

	lr := LowerResult{
		ResultLinkID: link.ID,
		Ordinal:      ordinal,
		Code:         fmt.Sprintf("%s.%d", link.Code, ordinal),
		Name:         input.Name,
	}
	if err := create(tx, &lr); err != nil {
		return nil, err
	}

	prefix := diffPath("", "result_links", link.ID)
	changes := rowAdded(diffPath(prefix, "lower_results", lr.ID), &lr)
	if err := i.snapshotUpdate(tx, user, changes); err != nil {
		return nil, err
	}
	return &lr, nil
}

// AddActivity appends an activity under a PD output and links its quarters
func (i *Intervention) AddActivity(tx *pop.Connection, lr *LowerResult, input api.ActivityCreateInput, user User) (*Activity, error) {
	if err := i.requireTreeEdit(tx, user); err != nil {
		return nil, err
	}

	ordinal, err := nextOrdinal(tx, "activities", "lower_result_id", lr.ID)
	if err != nil {
		return nil, err
	}

	activity := Activity{
		LowerResultID: lr.ID,
		Ordinal:       ordinal,
		Code:          fmt.Sprintf("%s.%d", lr.Code, ordinal),
		Name:          input.Name,
		UnicefCash:    fin.Round(input.UnicefCash),
		CSOCash:       fin.Round(input.CSOCash),
		UnfundedCash:  fin.Round(input.UnfundedCash),
		IsActive:      true,
	}
	if err := create(tx, &activity); err != nil {
		return nil, err
	}

	if len(input.TimeFrames) > 0 {
		frameIDs, err := i.frameIDsForQuarters(tx, input.TimeFrames)
		if err != nil {
			return nil, err
		}
		if err := LinkActivityToFrames(tx, &activity, frameIDs); err != nil {
			return nil, err
		}
	}

	if err := i.RecomputeBudget(tx); err != nil {
		return nil, err
	}

	var link ResultLink
	if err := link.FindByID(tx, lr.ResultLinkID); err != nil {
		return nil, err
	}
	prefix := diffPath(diffPath("", "result_links", link.ID), "lower_results", lr.ID)
	changes := rowAdded(diffPath(prefix, "activities", activity.ID), &activity)
	if err := i.snapshotUpdate(tx, user, changes); err != nil {
		return nil, err
	}
	return &activity, nil
}

// SetActivityItems replaces an activity's costed items in one unit of work.
// Activity cash is recomputed from the new items, never taken from input.
func (i *Intervention) SetActivityItems(tx *pop.Connection, activity *Activity, inputs []api.ActivityItemInput, user User) error {
	if err := i.requireTreeEdit(tx, user); err != nil {
		return err
	}

	activity.LoadItems(tx, true)
	for _, item := range activity.Items {
		old := item
		if err := destroy(tx, &old); err != nil {
			return err
		}
	}

	for n, input := range inputs {
		split, err := itemSplit(input)
		if err != nil {
			return err
		}
		item := ActivityItem{
			ActivityID:   activity.ID,
			Ordinal:      n + 1,
			Code:         fmt.Sprintf("%s.%d", activity.Code, n+1),
			Name:         input.Name,
			Unit:         input.Unit,
			NoUnits:      input.NoUnits,
			UnitPrice:    input.UnitPrice,
			UnicefCash:   split.Unicef,
			CSOCash:      split.CSO,
			UnfundedCash: split.Unfunded,
		}
		if err := create(tx, &item); err != nil {
			return err
		}
	}
	activity.Items = nil

	if _, err := activity.RecomputeFromItems(tx); err != nil {
		return err
	}
	if err := i.RecomputeBudget(tx); err != nil {
		return err
	}

	changes := []api.FieldChange{{
		Path: fmt.Sprintf("activities[%s].items", activity.ID),
		Old:  "",
		New:  fmt.Sprintf("%d items", len(inputs)),
	}}
	return i.snapshotUpdate(tx, user, changes)
}

// itemSplit settles an item's cash streams. A priced item must split its
// no_units * unit_price cost across the streams; rounding drift up to one cent
// is absorbed into the largest share. Unpriced items carry their cash as given.
func itemSplit(input api.ActivityItemInput) (fin.Streams, error) {
	shares := fin.Streams{
		Unicef:   input.UnicefCash,
		CSO:      input.CSOCash,
		Unfunded: input.UnfundedCash,
	}

	total := fin.ItemTotal(input.NoUnits, input.UnitPrice)
	if total.IsZero() {
		return fin.Streams{
			Unicef:   fin.Round(shares.Unicef),
			CSO:      fin.Round(shares.CSO),
			Unfunded: fin.Round(shares.Unfunded),
		}, nil
	}

	oneCent := decimal.New(1, -domain.MoneyPrecision)
	if total.Sub(shares.Total()).Abs().GreaterThan(oneCent) {
		return fin.Streams{}, api.NewAppError(
			fmt.Errorf("item cash %s does not match no_units * unit_price = %s", shares.Total(), total),
			api.ErrorValidation, api.CategoryUser)
	}
	return fin.ReconcileShares(total, shares), nil
}

// DeleteActivity removes an activity, renumbers its trailing siblings and
// cascades the code rename down their subtrees. One snapshot records every
// leaf whose code changed.
func (i *Intervention) DeleteActivity(tx *pop.Connection, activity *Activity, user User) error {
	if err := i.requireTreeEdit(tx, user); err != nil {
		return err
	}

	var lr LowerResult
	if err := lr.FindByID(tx, activity.LowerResultID); err != nil {
		return err
	}

	removed := rowRemoved(fmt.Sprintf("activities[%s]", activity.ID), activity)
	if err := tx.RawQuery("DELETE FROM activity_time_frames WHERE activity_id = ?", activity.ID).Exec(); err != nil {
		return appErrorFromDB(err, api.ErrorDestroyFailure)
	}
	activity.LoadItems(tx, true)
	for _, item := range activity.Items {
		old := item
		if err := destroy(tx, &old); err != nil {
			return err
		}
	}
	if err := destroy(tx, activity); err != nil {
		return err
	}

	renames, err := renumberActivities(tx, &lr)
	if err != nil {
		return err
	}

	if err := i.RecomputeBudget(tx); err != nil {
		return err
	}
	return i.snapshotUpdate(tx, user, append(removed, renames...))
}

// DeleteLowerResult removes a PD output subtree and renumbers its siblings
func (i *Intervention) DeleteLowerResult(tx *pop.Connection, lr *LowerResult, user User) error {
	if err := i.requireTreeEdit(tx, user); err != nil {
		return err
	}

	var link ResultLink
	if err := link.FindByID(tx, lr.ResultLinkID); err != nil {
		return err
	}

	removed := rowRemoved(fmt.Sprintf("lower_results[%s]", lr.ID), lr)
	lr.LoadActivities(tx, true)
	for n := range lr.Activities {
		activity := lr.Activities[n]
		if err := tx.RawQuery("DELETE FROM activity_time_frames WHERE activity_id = ?", activity.ID).Exec(); err != nil {
			return appErrorFromDB(err, api.ErrorDestroyFailure)
		}
		activity.LoadItems(tx, true)
		for _, item := range activity.Items {
			old := item
			if err := destroy(tx, &old); err != nil {
				return err
			}
		}
		if err := destroy(tx, &activity); err != nil {
			return err
		}
	}
	lr.LoadIndicators(tx, true)
	for _, indicator := range lr.Indicators {
		old := indicator
		if err := destroy(tx, &old); err != nil {
			return err
		}
	}
	if err := destroy(tx, lr); err != nil {
		return err
	}

	renames, err := renumberLowerResults(tx, &link)
	if err != nil {
		return err
	}

	if err := i.RecomputeBudget(tx); err != nil {
		return err
	}
	return i.snapshotUpdate(tx, user, append(removed, renames...))
}

// MoveActivity reassigns an activity to another PD output, appending it at
// the end and renumbering both subtrees.
func (i *Intervention) MoveActivity(tx *pop.Connection, activity *Activity, target *LowerResult, user User) error {
	if err := i.requireTreeEdit(tx, user); err != nil {
		return err
	}

	var source LowerResult
	if err := source.FindByID(tx, activity.LowerResultID); err != nil {
		return err
	}

	ordinal, err := nextOrdinal(tx, "activities", "lower_result_id", target.ID)
	if err != nil {
		return err
	}

	oldCode := activity.Code
	activity.LowerResultID = target.ID
	activity.Ordinal = ordinal
	activity.Code = fmt.Sprintf("%s.%d", target.Code, ordinal)
	if err := update(tx, activity); err != nil {
		return err
	}

	changes := []api.FieldChange{{
		Path: fmt.Sprintf("activities[%s].code", activity.ID),
		Old:  oldCode,
		New:  activity.Code,
	}}
	itemRenames, err := recodeActivityItems(tx, activity)
	if err != nil {
		return err
	}
	changes = append(changes, itemRenames...)

	renames, err := renumberActivities(tx, &source)
	if err != nil {
		return err
	}
	return i.snapshotUpdate(tx, user, append(changes, renames...))
}

// renumberActivities closes ordinal gaps under a PD output and cascades code
// renames to the items below. Returns one FieldChange per changed code.
func renumberActivities(tx *pop.Connection, lr *LowerResult) ([]api.FieldChange, error) {
	lr.LoadActivities(tx, true)

	var changes []api.FieldChange
	for n := range lr.Activities {
		activity := &lr.Activities[n]
		wantOrdinal := n + 1
		wantCode := fmt.Sprintf("%s.%d", lr.Code, wantOrdinal)
		if activity.Ordinal == wantOrdinal && activity.Code == wantCode {
			continue
		}

		changes = append(changes, api.FieldChange{
			Path: fmt.Sprintf("activities[%s].code", activity.ID),
			Old:  activity.Code,
			New:  wantCode,
		})
		activity.Ordinal = wantOrdinal
		activity.Code = wantCode
		if err := update(tx, activity); err != nil {
			return nil, err
		}

		itemChanges, err := recodeActivityItems(tx, activity)
		if err != nil {
			return nil, err
		}
		changes = append(changes, itemChanges...)
	}
	return changes, nil
}

// renumberLowerResults closes ordinal gaps under a result link and cascades
// down through activities and items.
func renumberLowerResults(tx *pop.Connection, link *ResultLink) ([]api.FieldChange, error) {
	link.LoadLowerResults(tx, true)

	var changes []api.FieldChange
	for n := range link.LowerResults {
		lr := &link.LowerResults[n]
		wantOrdinal := n + 1
		wantCode := fmt.Sprintf("%s.%d", link.Code, wantOrdinal)
		if lr.Ordinal != wantOrdinal || lr.Code != wantCode {
			changes = append(changes, api.FieldChange{
				Path: fmt.Sprintf("lower_results[%s].code", lr.ID),
				Old:  lr.Code,
				New:  wantCode,
			})
			lr.Ordinal = wantOrdinal
			lr.Code = wantCode
			if err := update(tx, lr); err != nil {
				return nil, err
			}
		}

		activityChanges, err := renumberActivities(tx, lr)
		if err != nil {
			return nil, err
		}
		changes = append(changes, activityChanges...)
	}
	return changes, nil
}

func recodeActivityItems(tx *pop.Connection, activity *Activity) ([]api.FieldChange, error) {
	activity.LoadItems(tx, true)

	var changes []api.FieldChange
	for n := range activity.Items {
		item := &activity.Items[n]
		wantCode := fmt.Sprintf("%s.%d", activity.Code, item.Ordinal)
		if item.Code == wantCode {
			continue
		}
		changes = append(changes, api.FieldChange{
			Path: fmt.Sprintf("items[%s].code", item.ID),
			Old:  item.Code,
			New:  wantCode,
		})
		item.Code = wantCode
		if err := update(tx, item); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

// frameIDsForQuarters resolves quarter indexes to this intervention's frames
func (i *Intervention) frameIDsForQuarters(tx *pop.Connection, quarters []int) ([]uuid.UUID, error) {
	var frames TimeFrames
	if err := frames.AllForIntervention(tx, i.ID); err != nil {
		return nil, err
	}
	byQuarter := make(map[int]uuid.UUID, len(frames))
	for _, frame := range frames {
		byQuarter[frame.Quarter] = frame.ID
	}

	ids := make([]uuid.UUID, 0, len(quarters))
	for _, q := range quarters {
		id, ok := byQuarter[q]
		if !ok {
			return nil, api.NewAppError(fmt.Errorf("quarter %d is outside the intervention's span", q),
				api.ErrorValidation, api.CategoryUser)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// requireTreeEdit gates results framework mutations on the permission mask
func (i *Intervention) requireTreeEdit(tx *pop.Connection, user User) error {
	mask := i.permissionMask(tx, user)
	if i.isAmendmentCopy() {
		if _, ok := amendmentEditableInterventionFields[FieldInterventionResultLinks]; ok {
			return nil
		}
	}
	if !mask.CanEdit(FieldInterventionResultLinks) {
		return api.NewAppError(errors.New("result links cannot be edited in this state"),
			api.ErrorPermissionDenied, api.CategoryForbidden)
	}
	return nil
}

// snapshotUpdate appends one update snapshot on the intervention
func (i *Intervention) snapshotUpdate(tx *pop.Connection, user User, changes []api.FieldChange) error {
	if len(changes) == 0 {
		return nil
	}
	return RecordSnapshot(tx, i.CountryID, domain.TypeIntervention, i.ID,
		api.SnapshotActionUpdate, user.ID, changes, "", "")
}
