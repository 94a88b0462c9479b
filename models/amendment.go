package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gobuffalo/events"
	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/fin"
	"github.com/equitrack/partnership-api/log"
)

type Amendments []Amendment

// Amendment records a fork of a signed intervention into an editable copy.
// The copy is an ordinary intervention row whose satellites carry origin_id
// back-pointers; merge folds the copy back into the live document and deletes
// it.
type Amendment struct {
	ID                 uuid.UUID         `db:"id"`
	CountryID          uuid.UUID         `db:"country_id" validate:"required"`
	DocumentID         uuid.UUID         `db:"document_id" validate:"required"`
	AmendedCopyID      nulls.UUID        `db:"amended_copy_id"`
	Types              string            `db:"types"`
	Kind               api.AmendmentKind `db:"kind" validate:"required"`
	Merged             bool              `db:"merged"`
	SignedDate         nulls.Time        `db:"signed_date"`
	SignedAttachmentID nulls.UUID        `db:"signed_attachment_id"`
	CreatedAt          time.Time         `db:"created_at"`
	UpdatedAt          time.Time         `db:"updated_at"`
}

func (a *Amendment) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(a), nil
}

func (a *Amendment) GetID() uuid.UUID {
	return a.ID
}

func (a *Amendment) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, a, id)
}

// FindLocked loads the amendment under a row lock
func (a *Amendment) FindLocked(tx *pop.Connection, id uuid.UUID) error {
	return findLocked(tx, a, "amendments", id)
}

// IsActorAllowedTo implements document-level authorization
func (a *Amendment) IsActorAllowedTo(tx *pop.Connection, user User, perm Permission, sub SubResource) bool {
	if user.IsService {
		return true
	}
	if user.CountryID != a.CountryID && a.ID != uuid.Nil {
		return false
	}

	switch perm {
	case PermissionView, PermissionList:
		return user.IsUnicefUser(tx)
	default:
		return user.HasRole(tx, interventionUnicefEditors...)
	}
}

// AllForDocument loads the amendments of one document, oldest first
func (a *Amendments) AllForDocument(tx *pop.Connection, documentID uuid.UUID) error {
	err := tx.Where("document_id = ?", documentID).Order("created_at asc").All(a)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// TypeList unmarshals the stored amendment type list
func (a *Amendment) TypeList() []api.AmendmentType {
	if a.Types == "" {
		return nil
	}
	var out []api.AmendmentType
	if err := json.Unmarshal([]byte(a.Types), &out); err != nil {
		log.Errorf("amendment %s has malformed types, %s", a.ID, err)
		return nil
	}
	return out
}

// amendmentStatuses are the live-document statuses a fork can start from
var amendmentStatuses = map[api.InterventionStatus]struct{}{
	api.InterventionStatusSigned: {},
	api.InterventionStatusActive: {},
}

// ForkIntervention deep-copies the document into an editable amendment copy.
// The live document keeps serving reads and is flagged in_amendment; a second
// fork while one is open is refused.
func ForkIntervention(tx *pop.Connection, live *Intervention, input api.AmendmentCreateInput, user User) (*Amendment, error) {
	if err := live.FindLocked(tx, live.ID); err != nil {
		return nil, err
	}

	report := api.ValidationReport{}
	if live.InAmendment {
		report.Add(ValidationCodeAmendmentOpen, "in_amendment", "an amendment is already open on this document")
		return nil, reportError(report.Finalize(), api.ErrorAmendmentAlreadyOpen)
	}
	if _, ok := amendmentStatuses[live.Status]; !ok {
		transitionError(&report, string(live.Status), string(live.Status), "only signed or active documents can be amended")
		return nil, reportError(report.Finalize(), api.ErrorValidationFailed)
	}

	copyDoc := *live
	copyDoc.ID = uuid.UUID{}
	copyDoc.OriginID = nulls.NewUUID(live.ID)
	copyDoc.InAmendment = false
	copyDoc.Agreement = Agreement{}
	copyDoc.FocalPoints = nil
	if err := create(tx, &copyDoc); err != nil {
		return nil, err
	}

	if err := copyInterventionSatellites(tx, live.ID, copyDoc.ID); err != nil {
		return nil, err
	}

	live.InAmendment = true
	if err := update(tx, live); err != nil {
		return nil, err
	}

	kind := input.Kind
	if kind == "" {
		kind = api.AmendmentKindNormal
	}
	types, err := json.Marshal(input.Types)
	if err != nil {
		return nil, api.NewAppError(err, api.ErrorInvalidRequestBody, api.CategoryUser)
	}
	amendment := Amendment{
		CountryID:     live.CountryID,
		DocumentID:    live.ID,
		AmendedCopyID: nulls.NewUUID(copyDoc.ID),
		Types:         string(types),
		Kind:          kind,
	}
	if err := create(tx, &amendment); err != nil {
		return nil, err
	}

	emitEvent(events.Event{
		Kind:    domain.EventApiAmendmentAdded,
		Message: "amendment opened",
		Payload: events.Payload{domain.EventPayloadID: amendment.ID},
	})
	return &amendment, nil
}

// copyInterventionSatellites clones the budget rows, supply plan, quarter
// frames and the whole results tree under a new owner, writing origin_id
// back-pointers so the merge diff can match rows across the fork.
func copyInterventionSatellites(tx *pop.Connection, fromID, toID uuid.UUID) error {
	var budget PlannedBudget
	if err := budget.FindForIntervention(tx, fromID); err != nil {
		return err
	}
	budgetCopy := budget
	budgetCopy.ID = uuid.UUID{}
	budgetCopy.InterventionID = toID
	budgetCopy.OriginID = nulls.NewUUID(budget.ID)
	if err := create(tx, &budgetCopy); err != nil {
		return err
	}

	var mgmt ManagementBudgetLines
	if err := mgmt.AllForIntervention(tx, fromID); err != nil {
		return err
	}
	for _, line := range mgmt {
		lineCopy := line
		lineCopy.ID = uuid.UUID{}
		lineCopy.InterventionID = toID
		lineCopy.OriginID = nulls.NewUUID(line.ID)
		if err := create(tx, &lineCopy); err != nil {
			return err
		}
	}

	var supply SupplyItems
	if err := supply.AllForIntervention(tx, fromID); err != nil {
		return err
	}
	for _, item := range supply {
		itemCopy := item
		itemCopy.ID = uuid.UUID{}
		itemCopy.InterventionID = toID
		itemCopy.OriginID = nulls.NewUUID(item.ID)
		if err := create(tx, &itemCopy); err != nil {
			return err
		}
	}

	var frames TimeFrames
	if err := frames.AllForIntervention(tx, fromID); err != nil {
		return err
	}
	frameIDs := make(map[uuid.UUID]uuid.UUID, len(frames))
	for _, frame := range frames {
		frameCopy := frame
		frameCopy.ID = uuid.UUID{}
		frameCopy.InterventionID = toID
		if err := create(tx, &frameCopy); err != nil {
			return err
		}
		frameIDs[frame.ID] = frameCopy.ID
	}

	var links ResultLinks
	if err := links.AllForIntervention(tx, fromID); err != nil {
		return err
	}
	for n := range links {
		if err := copyResultLink(tx, &links[n], toID, frameIDs); err != nil {
			return err
		}
	}
	return nil
}

func copyResultLink(tx *pop.Connection, link *ResultLink, toID uuid.UUID, frameIDs map[uuid.UUID]uuid.UUID) error {
	linkCopy := *link
	linkCopy.ID = uuid.UUID{}
	linkCopy.InterventionID = toID
	linkCopy.OriginID = nulls.NewUUID(link.ID)
	linkCopy.LowerResults = nil
	if err := create(tx, &linkCopy); err != nil {
		return err
	}

	link.LoadLowerResults(tx, true)
	for n := range link.LowerResults {
		lr := &link.LowerResults[n]
		lrCopy := *lr
		lrCopy.ID = uuid.UUID{}
		lrCopy.ResultLinkID = linkCopy.ID
		lrCopy.OriginID = nulls.NewUUID(lr.ID)
		lrCopy.Activities = nil
		lrCopy.Indicators = nil
		if err := create(tx, &lrCopy); err != nil {
			return err
		}

		lr.LoadActivities(tx, true)
		for m := range lr.Activities {
			if err := copyActivity(tx, &lr.Activities[m], lrCopy.ID, frameIDs); err != nil {
				return err
			}
		}

		lr.LoadIndicators(tx, true)
		for _, indicator := range lr.Indicators {
			indicatorCopy := indicator
			indicatorCopy.ID = uuid.UUID{}
			indicatorCopy.LowerResultID = lrCopy.ID
			indicatorCopy.OriginID = nulls.NewUUID(indicator.ID)
			if err := create(tx, &indicatorCopy); err != nil {
				return err
			}
		}
	}
	return nil
}

func copyActivity(tx *pop.Connection, activity *Activity, toLowerResultID uuid.UUID, frameIDs map[uuid.UUID]uuid.UUID) error {
	activityCopy := *activity
	activityCopy.ID = uuid.UUID{}
	activityCopy.LowerResultID = toLowerResultID
	activityCopy.OriginID = nulls.NewUUID(activity.ID)
	activityCopy.Items = nil
	if err := create(tx, &activityCopy); err != nil {
		return err
	}

	activity.LoadItems(tx, true)
	for _, item := range activity.Items {
		itemCopy := item
		itemCopy.ID = uuid.UUID{}
		itemCopy.ActivityID = activityCopy.ID
		itemCopy.OriginID = nulls.NewUUID(item.ID)
		if err := create(tx, &itemCopy); err != nil {
			return err
		}
	}

	var joins []ActivityTimeFrame
	err := tx.Where("activity_id = ?", activity.ID).All(&joins)
	if err != nil {
		return appErrorFromDB(err, api.ErrorQueryFailure)
	}
	for _, join := range joins {
		newFrameID, ok := frameIDs[join.TimeFrameID]
		if !ok {
			continue
		}
		joinCopy := ActivityTimeFrame{ActivityID: activityCopy.ID, TimeFrameID: newFrameID}
		if err := create(tx, &joinCopy); err != nil {
			return err
		}
	}
	return nil
}

// Diff computes the field-level changes between the live document and its
// amendment copy. Paths address rows by the live document's ids so they stay
// stable across the fork; rows new in the copy use their own ids.
func (a *Amendment) Diff(tx *pop.Connection) ([]api.FieldChange, error) {
	if !a.AmendedCopyID.Valid {
		return nil, nil
	}

	var live, copyDoc Intervention
	if err := live.FindByID(tx, a.DocumentID); err != nil {
		return nil, err
	}
	if err := copyDoc.FindByID(tx, a.AmendedCopyID.UUID); err != nil {
		return nil, err
	}

	// the flag is bookkeeping on the live row, not an amendment change
	liveCmp := live
	liveCmp.InAmendment = copyDoc.InAmendment

	changes := diffScalars("", &liveCmp, &copyDoc)

	var liveBudget, copyBudget PlannedBudget
	if err := liveBudget.FindForIntervention(tx, live.ID); err != nil {
		return nil, err
	}
	if err := copyBudget.FindForIntervention(tx, copyDoc.ID); err != nil {
		return nil, err
	}
	changes = append(changes, diffScalars("planned_budget", &liveBudget, &copyBudget)...)

	mgmtChanges, err := diffManagementLines(tx, live.ID, copyDoc.ID)
	if err != nil {
		return nil, err
	}
	changes = append(changes, mgmtChanges...)

	supplyChanges, err := diffSupplyItems(tx, live.ID, copyDoc.ID)
	if err != nil {
		return nil, err
	}
	changes = append(changes, supplyChanges...)

	treeChanges, err := diffResultTrees(tx, live.ID, copyDoc.ID)
	if err != nil {
		return nil, err
	}
	return append(changes, treeChanges...), nil
}

func diffManagementLines(tx *pop.Connection, liveID, copyID uuid.UUID) ([]api.FieldChange, error) {
	var liveLines, copyLines ManagementBudgetLines
	if err := liveLines.AllForIntervention(tx, liveID); err != nil {
		return nil, err
	}
	if err := copyLines.AllForIntervention(tx, copyID); err != nil {
		return nil, err
	}

	byKind := make(map[string]ManagementBudgetLine, len(liveLines))
	for _, line := range liveLines {
		byKind[line.Kind] = line
	}

	var changes []api.FieldChange
	for _, copyLine := range copyLines {
		liveLine, ok := byKind[copyLine.Kind]
		if !ok {
			continue
		}
		changes = append(changes, diffScalars("management_budget."+copyLine.Kind, &liveLine, &copyLine)...)
	}
	return changes, nil
}

func diffSupplyItems(tx *pop.Connection, liveID, copyID uuid.UUID) ([]api.FieldChange, error) {
	var liveItems, copyItems SupplyItems
	if err := liveItems.AllForIntervention(tx, liveID); err != nil {
		return nil, err
	}
	if err := copyItems.AllForIntervention(tx, copyID); err != nil {
		return nil, err
	}

	liveByID := make(map[uuid.UUID]SupplyItem, len(liveItems))
	for _, item := range liveItems {
		liveByID[item.ID] = item
	}

	var changes []api.FieldChange
	for _, copyItem := range copyItems {
		if copyItem.OriginID.Valid {
			liveItem, ok := liveByID[copyItem.OriginID.UUID]
			if ok {
				delete(liveByID, copyItem.OriginID.UUID)
				changes = append(changes, diffScalars(diffPath("", "supply_items", liveItem.ID), &liveItem, &copyItem)...)
				continue
			}
		}
		changes = append(changes, rowAdded(diffPath("", "supply_items", copyItem.ID), &copyItem)...)
	}
	for _, liveItem := range liveByID {
		item := liveItem
		changes = append(changes, rowRemoved(diffPath("", "supply_items", item.ID), &item)...)
	}
	return changes, nil
}

func diffResultTrees(tx *pop.Connection, liveID, copyID uuid.UUID) ([]api.FieldChange, error) {
	var liveLinks, copyLinks ResultLinks
	if err := liveLinks.AllForIntervention(tx, liveID); err != nil {
		return nil, err
	}
	if err := copyLinks.AllForIntervention(tx, copyID); err != nil {
		return nil, err
	}

	liveByID := make(map[uuid.UUID]*ResultLink, len(liveLinks))
	for n := range liveLinks {
		liveByID[liveLinks[n].ID] = &liveLinks[n]
	}

	var changes []api.FieldChange
	for n := range copyLinks {
		copyLink := &copyLinks[n]
		if copyLink.OriginID.Valid {
			if liveLink, ok := liveByID[copyLink.OriginID.UUID]; ok {
				delete(liveByID, copyLink.OriginID.UUID)
				prefix := diffPath("", "result_links", liveLink.ID)
				changes = append(changes, diffScalars(prefix, liveLink, copyLink)...)
				lrChanges, err := diffLowerResults(tx, prefix, liveLink, copyLink)
				if err != nil {
					return nil, err
				}
				changes = append(changes, lrChanges...)
				continue
			}
		}
		prefix := diffPath("", "result_links", copyLink.ID)
		changes = append(changes, rowAdded(prefix, copyLink)...)
		lrChanges, err := diffLowerResults(tx, prefix, &ResultLink{}, copyLink)
		if err != nil {
			return nil, err
		}
		changes = append(changes, lrChanges...)
	}
	for _, liveLink := range liveByID {
		changes = append(changes, rowRemoved(diffPath("", "result_links", liveLink.ID), liveLink)...)
	}
	return changes, nil
}

func diffLowerResults(tx *pop.Connection, prefix string, liveLink, copyLink *ResultLink) ([]api.FieldChange, error) {
	liveByID := map[uuid.UUID]*LowerResult{}
	if liveLink.ID != uuid.Nil {
		liveLink.LoadLowerResults(tx, true)
		for n := range liveLink.LowerResults {
			liveByID[liveLink.LowerResults[n].ID] = &liveLink.LowerResults[n]
		}
	}
	copyLink.LoadLowerResults(tx, true)

	var changes []api.FieldChange
	for n := range copyLink.LowerResults {
		copyLR := &copyLink.LowerResults[n]
		if copyLR.OriginID.Valid {
			if liveLR, ok := liveByID[copyLR.OriginID.UUID]; ok {
				delete(liveByID, copyLR.OriginID.UUID)
				lrPrefix := diffPath(prefix, "lower_results", liveLR.ID)
				changes = append(changes, diffScalars(lrPrefix, liveLR, copyLR)...)
				actChanges, err := diffActivities(tx, lrPrefix, liveLR, copyLR)
				if err != nil {
					return nil, err
				}
				changes = append(changes, actChanges...)
				continue
			}
		}
		lrPrefix := diffPath(prefix, "lower_results", copyLR.ID)
		changes = append(changes, rowAdded(lrPrefix, copyLR)...)
		actChanges, err := diffActivities(tx, lrPrefix, &LowerResult{}, copyLR)
		if err != nil {
			return nil, err
		}
		changes = append(changes, actChanges...)
	}
	for _, liveLR := range liveByID {
		changes = append(changes, rowRemoved(diffPath(prefix, "lower_results", liveLR.ID), liveLR)...)
	}
	return changes, nil
}

func diffActivities(tx *pop.Connection, prefix string, liveLR, copyLR *LowerResult) ([]api.FieldChange, error) {
	liveByID := map[uuid.UUID]*Activity{}
	if liveLR.ID != uuid.Nil {
		liveLR.LoadActivities(tx, true)
		for n := range liveLR.Activities {
			liveByID[liveLR.Activities[n].ID] = &liveLR.Activities[n]
		}
	}
	copyLR.LoadActivities(tx, true)

	var changes []api.FieldChange
	for n := range copyLR.Activities {
		copyAct := &copyLR.Activities[n]
		if copyAct.OriginID.Valid {
			if liveAct, ok := liveByID[copyAct.OriginID.UUID]; ok {
				delete(liveByID, copyAct.OriginID.UUID)
				actPrefix := diffPath(prefix, "activities", liveAct.ID)
				changes = append(changes, diffScalars(actPrefix, liveAct, copyAct)...)
				changes = append(changes, diffActivityItems(tx, actPrefix, liveAct, copyAct)...)
				continue
			}
		}
		actPrefix := diffPath(prefix, "activities", copyAct.ID)
		changes = append(changes, rowAdded(actPrefix, copyAct)...)
		changes = append(changes, diffActivityItems(tx, actPrefix, &Activity{}, copyAct)...)
	}
	for _, liveAct := range liveByID {
		changes = append(changes, rowRemoved(diffPath(prefix, "activities", liveAct.ID), liveAct)...)
	}
	return changes, nil
}

func diffActivityItems(tx *pop.Connection, prefix string, liveAct, copyAct *Activity) []api.FieldChange {
	liveByID := map[uuid.UUID]*ActivityItem{}
	if liveAct.ID != uuid.Nil {
		liveAct.LoadItems(tx, true)
		for n := range liveAct.Items {
			liveByID[liveAct.Items[n].ID] = &liveAct.Items[n]
		}
	}
	copyAct.LoadItems(tx, true)

	var changes []api.FieldChange
	for n := range copyAct.Items {
		copyItem := &copyAct.Items[n]
		if copyItem.OriginID.Valid {
			if liveItem, ok := liveByID[copyItem.OriginID.UUID]; ok {
				delete(liveByID, copyItem.OriginID.UUID)
				changes = append(changes, diffScalars(diffPath(prefix, "items", liveItem.ID), liveItem, copyItem)...)
				continue
			}
		}
		changes = append(changes, rowAdded(diffPath(prefix, "items", copyItem.ID), copyItem)...)
	}
	for _, liveItem := range liveByID {
		changes = append(changes, rowRemoved(diffPath(prefix, "items", liveItem.ID), liveItem)...)
	}
	return changes
}

// Merge folds the amendment copy back into the live document. The amendable
// scalars and the whole satellite graph come over from the copy, the copy is
// deleted, and one update snapshot carries the materialized diff.
func (a *Amendment) Merge(tx *pop.Connection, signedDate time.Time, signedAttachmentID uuid.UUID, user User) error {
	if err := a.FindLocked(tx, a.ID); err != nil {
		return err
	}

	report := api.ValidationReport{}
	if a.Merged {
		report.Add(ValidationCodeAmendmentMerged, "merged", "this amendment is already merged")
		return reportError(report.Finalize(), api.ErrorAmendmentAlreadyMerged)
	}
	if !a.AmendedCopyID.Valid {
		report.Add(ValidationCodeFailed, "amended_copy_id", "this amendment has no copy to merge")
		return reportError(report.Finalize(), api.ErrorValidationFailed)
	}
	if signedAttachmentID == uuid.Nil {
		report.Add(ValidationCodeFailed, "signed_attachment", "a signed amendment attachment is required")
	}
	if signedDate.IsZero() {
		report.Add(ValidationCodeFailed, "signed_date", "the amendment signature date is required")
	}
	if !report.Finalize().OK {
		return reportError(report, api.ErrorValidationFailed)
	}

	var live Intervention
	if err := live.FindLocked(tx, a.DocumentID); err != nil {
		return err
	}
	var copyDoc Intervention
	if err := copyDoc.FindByID(tx, a.AmendedCopyID.UUID); err != nil {
		return err
	}
	if err := validateMergedState(tx, &live, &copyDoc); err != nil {
		return err
	}

	changes, err := a.Diff(tx)
	if err != nil {
		return err
	}

	live.End = copyDoc.End
	live.CashTransferModalities = copyDoc.CashTransferModalities
	live.InAmendment = false
	if err := update(tx, &live); err != nil {
		return err
	}

	if err := mergeSatellites(tx, &live, &copyDoc); err != nil {
		return err
	}
	if err := destroy(tx, &copyDoc); err != nil {
		return err
	}

	if err := live.RecomputeBudget(tx); err != nil {
		return err
	}

	a.Merged = true
	a.SignedDate = nulls.NewTime(signedDate)
	a.SignedAttachmentID = nulls.NewUUID(signedAttachmentID)
	if err := update(tx, a); err != nil {
		return err
	}

	if err := RecordSnapshot(tx, live.CountryID, domain.TypeIntervention, live.ID,
		api.SnapshotActionUpdate, user.ID, changes, "", ""); err != nil {
		return err
	}

	emitEvent(events.Event{
		Kind:    domain.EventApiAmendmentMerged,
		Message: "amendment merged",
		Payload: events.Payload{domain.EventPayloadID: a.ID},
	})
	return nil
}

// validateMergedState checks the copy's content as if it were already the live
// document. The always-on rules run against the merged scalars, and while the
// document is signed or active the funds reservations must reconcile with the
// copy's recomputed budget.
func validateMergedState(tx *pop.Connection, live, copyDoc *Intervention) error {
	merged := *live
	merged.End = copyDoc.End
	merged.CashTransferModalities = copyDoc.CashTransferModalities

	report := api.ValidationReport{}
	merged.validateBasics(tx, &report)

	var copyBudget PlannedBudget
	if err := copyBudget.FindForIntervention(tx, copyDoc.ID); err != nil {
		return err
	}
	if err := copyBudget.Recompute(tx); err != nil {
		return err
	}

	if live.Status == api.InterventionStatusSigned || live.Status == api.InterventionStatusActive {
		var frs FundsReservations
		if err := frs.AllForIntervention(tx, live.ID); err != nil {
			panic("database error loading funds reservations, " + err.Error())
		}
		delta := fin.FundsDelta(frs.InterventionAmts(), copyBudget.UnicefCashLocal)
		if !delta.IsZero() {
			report.Add(ValidationCodeFundsMismatch, "planned_budget.unicef_cash_local",
				fmt.Sprintf("funds reservations do not reconcile with the amended budget, delta=%s",
					delta.StringFixed(domain.MoneyPrecision)))
		}
	}

	if report.Finalize().OK {
		return nil
	}
	for _, e := range report.Errors {
		if e.Code == ValidationCodeFundsMismatch {
			return reportError(report, api.ErrorFundsMismatch)
		}
	}
	return reportError(report, api.ErrorValidationFailed)
}

// mergeSatellites swaps the live document's satellite graph for the copy's.
// The live rows are deleted and the copy's rows are reparented, with their
// origin back-pointers cleared so a later amendment starts clean.
func mergeSatellites(tx *pop.Connection, live, copyDoc *Intervention) error {
	var liveBudget, copyBudget PlannedBudget
	if err := liveBudget.FindForIntervention(tx, live.ID); err != nil {
		return err
	}
	if err := copyBudget.FindForIntervention(tx, copyDoc.ID); err != nil {
		return err
	}
	liveBudget.Currency = copyBudget.Currency
	liveBudget.ExchangeRate = copyBudget.ExchangeRate
	if err := update(tx, &liveBudget); err != nil {
		return err
	}
	if err := destroy(tx, &copyBudget); err != nil {
		return err
	}

	var liveLines, copyLines ManagementBudgetLines
	if err := liveLines.AllForIntervention(tx, live.ID); err != nil {
		return err
	}
	if err := copyLines.AllForIntervention(tx, copyDoc.ID); err != nil {
		return err
	}
	liveByKind := make(map[string]ManagementBudgetLine, len(liveLines))
	for _, line := range liveLines {
		liveByKind[line.Kind] = line
	}
	for _, copyLine := range copyLines {
		if liveLine, ok := liveByKind[copyLine.Kind]; ok {
			liveLine.UnicefCash = copyLine.UnicefCash
			liveLine.CSOCash = copyLine.CSOCash
			liveLine.UnfundedCash = copyLine.UnfundedCash
			if err := update(tx, &liveLine); err != nil {
				return err
			}
		}
		toDelete := copyLine
		if err := destroy(tx, &toDelete); err != nil {
			return err
		}
	}

	var liveSupply, copySupply SupplyItems
	if err := liveSupply.AllForIntervention(tx, live.ID); err != nil {
		return err
	}
	for _, item := range liveSupply {
		old := item
		if err := destroy(tx, &old); err != nil {
			return err
		}
	}
	if err := copySupply.AllForIntervention(tx, copyDoc.ID); err != nil {
		return err
	}
	for _, item := range copySupply {
		moved := item
		moved.InterventionID = live.ID
		moved.OriginID = nulls.UUID{}
		if err := update(tx, &moved); err != nil {
			return err
		}
	}

	if err := deleteResultTree(tx, live.ID); err != nil {
		return err
	}
	if err := reparentResultTree(tx, copyDoc.ID, live.ID); err != nil {
		return err
	}

	// the copy's frames carry the activity links, so they replace the live set
	if err := tx.RawQuery("DELETE FROM time_frames WHERE intervention_id = ?", live.ID).Exec(); err != nil {
		return appErrorFromDB(err, api.ErrorDestroyFailure)
	}
	err := tx.RawQuery("UPDATE time_frames SET intervention_id = ? WHERE intervention_id = ?",
		live.ID, copyDoc.ID).Exec()
	return appErrorFromDB(err, api.ErrorUpdateFailure)
}

func deleteResultTree(tx *pop.Connection, interventionID uuid.UUID) error {
	var links ResultLinks
	if err := links.AllForIntervention(tx, interventionID); err != nil {
		return err
	}
	for n := range links {
		link := &links[n]
		link.LoadLowerResults(tx, true)
		for m := range link.LowerResults {
			lr := &link.LowerResults[m]
			lr.LoadActivities(tx, true)
			for _, activity := range lr.Activities {
				if err := tx.RawQuery("DELETE FROM activity_time_frames WHERE activity_id = ?", activity.ID).Exec(); err != nil {
					return appErrorFromDB(err, api.ErrorDestroyFailure)
				}
				if err := tx.RawQuery("DELETE FROM activity_items WHERE activity_id = ?", activity.ID).Exec(); err != nil {
					return appErrorFromDB(err, api.ErrorDestroyFailure)
				}
				old := activity
				if err := destroy(tx, &old); err != nil {
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
		}
		if err := destroy(tx, link); err != nil {
			return err
		}
	}
	return nil
}

// reparentResultTree moves the copy's tree under the live document and clears
// the origin back-pointers at every level.
func reparentResultTree(tx *pop.Connection, fromID, toID uuid.UUID) error {
	var links ResultLinks
	if err := links.AllForIntervention(tx, fromID); err != nil {
		return err
	}
	for n := range links {
		link := &links[n]
		link.InterventionID = toID
		link.OriginID = nulls.UUID{}
		if err := update(tx, link); err != nil {
			return err
		}

		link.LoadLowerResults(tx, true)
		for m := range link.LowerResults {
			lr := &link.LowerResults[m]
			lr.OriginID = nulls.UUID{}
			if err := update(tx, lr); err != nil {
				return err
			}

			lr.LoadActivities(tx, true)
			for k := range lr.Activities {
				activity := &lr.Activities[k]
				activity.OriginID = nulls.UUID{}
				if err := update(tx, activity); err != nil {
					return err
				}
				activity.LoadItems(tx, true)
				for _, item := range activity.Items {
					moved := item
					moved.OriginID = nulls.UUID{}
					if err := update(tx, &moved); err != nil {
						return err
					}
				}
			}

			lr.LoadIndicators(tx, true)
			for _, indicator := range lr.Indicators {
				moved := indicator
				moved.OriginID = nulls.UUID{}
				if err := update(tx, &moved); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ConvertToAPI turns the model into its wire representation, with the current
// diff for an open amendment.
func (a *Amendment) ConvertToAPI(tx *pop.Connection) api.Amendment {
	out := api.Amendment{
		ID:         a.ID,
		DocumentID: a.DocumentID,
		Types:      a.TypeList(),
		Kind:       a.Kind,
		Merged:     a.Merged,
		SignedDate: domain.TimePtr(a.SignedDate),
	}
	if a.AmendedCopyID.Valid {
		id := a.AmendedCopyID.UUID
		out.AmendedCopyID = &id
	}
	if a.SignedAttachmentID.Valid {
		id := a.SignedAttachmentID.UUID
		out.SignedAttachment = &id
	}
	if !a.Merged && a.AmendedCopyID.Valid {
		changes, err := a.Diff(tx)
		if err != nil {
			log.Errorf("error computing amendment diff for %s, %s", a.ID, err)
		} else {
			out.Changes = changes
		}
	}
	return out
}
