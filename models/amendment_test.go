package models

import (
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

func (ms *ModelSuite) signedInterventionFixture(agreement Agreement, user User) Intervention {
	now := time.Now().UTC()
	i := CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -60), now.AddDate(0, 0, 120))
	i.Status = api.InterventionStatusSigned
	ms.NoError(update(ms.DB, &i))
	return i
}

func (ms *ModelSuite) Test_AmendmentFork() {
	_, _, agreement, user := ms.interventionTestFixtures()
	live := ms.signedInterventionFixture(agreement, user)
	CreateResultTreeFixture(ms.DB, live, decimal.NewFromInt(1000))

	amendment, err := ForkIntervention(ms.DB, &live, api.AmendmentCreateInput{
		Types: []api.AmendmentType{api.AmendmentTypeBudget},
	}, user)
	ms.NoError(err)
	ms.True(live.InAmendment, "the live document must be flagged in_amendment")
	ms.True(amendment.AmendedCopyID.Valid)
	ms.Equal(api.AmendmentKindNormal, amendment.Kind, "kind must default to normal")

	var copyDoc Intervention
	ms.NoError(copyDoc.FindByID(ms.DB, amendment.AmendedCopyID.UUID))
	ms.True(copyDoc.OriginID.Valid)
	ms.Equal(live.ID, copyDoc.OriginID.UUID)
	ms.False(copyDoc.InAmendment)

	// the copy carries its own satellite graph
	var budget PlannedBudget
	ms.NoError(budget.FindForIntervention(ms.DB, copyDoc.ID))
	var lines ManagementBudgetLines
	ms.NoError(lines.AllForIntervention(ms.DB, copyDoc.ID))
	ms.Len(lines, 3)
	var links ResultLinks
	ms.NoError(links.AllForIntervention(ms.DB, copyDoc.ID))
	ms.Len(links, 1)

	// a second fork while one is open is refused
	_, err = ForkIntervention(ms.DB, &live, api.AmendmentCreateInput{
		Types: []api.AmendmentType{api.AmendmentTypeDates},
	}, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorAmendmentAlreadyOpen, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_AmendmentFork_OnlySignedOrActive() {
	_, _, agreement, user := ms.interventionTestFixtures()
	now := time.Now().UTC()
	draft := CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -60), now.AddDate(0, 0, 120))

	_, err := ForkIntervention(ms.DB, &draft, api.AmendmentCreateInput{
		Types: []api.AmendmentType{api.AmendmentTypeOther},
	}, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidationFailed, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_AmendmentDiff() {
	_, _, agreement, user := ms.interventionTestFixtures()
	live := ms.signedInterventionFixture(agreement, user)
	_, _, liveActivity := CreateResultTreeFixture(ms.DB, live, decimal.NewFromInt(1000))

	amendment, err := ForkIntervention(ms.DB, &live, api.AmendmentCreateInput{
		Types: []api.AmendmentType{api.AmendmentTypeDates, api.AmendmentTypeBudget},
	}, user)
	ms.NoError(err)

	var copyDoc Intervention
	ms.NoError(copyDoc.FindByID(ms.DB, amendment.AmendedCopyID.UUID))
	newEnd := copyDoc.End.Time.AddDate(0, 3, 0)
	newEndInput := newEnd
	ms.NoError(copyDoc.UpdateFromInput(ms.DB, api.InterventionUpdateInput{End: &newEndInput}, user))

	var copyActivity Activity
	ms.NoError(ms.DB.Where("origin_id = ?", liveActivity.ID).First(&copyActivity))
	copyActivity.UnicefCash = decimal.NewFromInt(1500)
	ms.NoError(update(ms.DB, &copyActivity))

	changes, err := amendment.Diff(ms.DB)
	ms.NoError(err)

	paths := make([]string, len(changes))
	for n, c := range changes {
		paths[n] = c.Path
	}
	ms.Contains(paths, "end")

	// tree paths address rows by their live IDs
	found := false
	for _, p := range paths {
		if strings.Contains(p, liveActivity.ID.String()) && strings.HasSuffix(p, "unicef_cash") {
			found = true
		}
	}
	ms.True(found, "expected an activity cash change addressed by the live row ID, got %v", paths)
}

func (ms *ModelSuite) Test_AmendmentDiff_NoChanges() {
	_, _, agreement, user := ms.interventionTestFixtures()
	live := ms.signedInterventionFixture(agreement, user)
	CreateResultTreeFixture(ms.DB, live, decimal.NewFromInt(1000))

	amendment, err := ForkIntervention(ms.DB, &live, api.AmendmentCreateInput{
		Types: []api.AmendmentType{api.AmendmentTypeOther},
	}, user)
	ms.NoError(err)

	changes, err := amendment.Diff(ms.DB)
	ms.NoError(err)
	ms.Empty(changes, "an untouched fork must produce an empty diff")
}

func (ms *ModelSuite) Test_AmendmentMerge() {
	_, _, agreement, user := ms.interventionTestFixtures()
	live := ms.signedInterventionFixture(agreement, user)
	_, _, liveActivity := CreateResultTreeFixture(ms.DB, live, decimal.NewFromInt(1000))

	amendment, err := ForkIntervention(ms.DB, &live, api.AmendmentCreateInput{
		Types: []api.AmendmentType{api.AmendmentTypeBudget},
	}, user)
	ms.NoError(err)
	copyID := amendment.AmendedCopyID.UUID

	var copyActivity Activity
	ms.NoError(ms.DB.Where("origin_id = ?", liveActivity.ID).First(&copyActivity))
	copyActivity.UnicefCash = decimal.NewFromInt(1500)
	ms.NoError(update(ms.DB, &copyActivity))

	// the extra funds are reserved before the amendment is countersigned
	CreateFundsReservationFixture(ms.DB, live, decimal.NewFromInt(1500))

	signedAttachment := CreateAttachmentFixture(ms.DB, user, domain.AttachmentCodeInterventionAmendment)
	signedDate := time.Now().UTC()
	ms.NoError(amendment.Merge(ms.DB, signedDate, signedAttachment.ID, user))
	ms.True(amendment.Merged)

	ms.NoError(live.FindByID(ms.DB, live.ID))
	ms.False(live.InAmendment, "merge must clear the in_amendment flag")

	// the copy is gone and the live document carries the new tree
	var gone Intervention
	err = gone.FindByID(ms.DB, copyID)
	ms.EqualAppError(api.AppError{Key: api.ErrorNoRows, Category: api.CategoryNotFound}, err)

	var budget PlannedBudget
	ms.NoError(budget.FindForIntervention(ms.DB, live.ID))
	ms.True(budget.UnicefCashLocal.Equal(decimal.NewFromInt(1500)),
		"budget must be recomputed from the merged tree, got %s", budget.UnicefCashLocal)

	var links ResultLinks
	ms.NoError(links.AllForIntervention(ms.DB, live.ID))
	ms.Len(links, 1)

	// a second merge is refused
	err = amendment.Merge(ms.DB, signedDate, signedAttachment.ID, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorAmendmentAlreadyMerged, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_AmendmentMerge_FundsMismatch() {
	_, _, agreement, user := ms.interventionTestFixtures()
	live := ms.signedInterventionFixture(agreement, user)
	_, _, liveActivity := CreateResultTreeFixture(ms.DB, live, decimal.NewFromInt(1000))
	CreateFundsReservationFixture(ms.DB, live, decimal.NewFromInt(1000))

	amendment, err := ForkIntervention(ms.DB, &live, api.AmendmentCreateInput{
		Types: []api.AmendmentType{api.AmendmentTypeBudget},
	}, user)
	ms.NoError(err)

	// the copy raises the budget past the reserved funds
	var copyActivity Activity
	ms.NoError(ms.DB.Where("origin_id = ?", liveActivity.ID).First(&copyActivity))
	copyActivity.UnicefCash = decimal.NewFromInt(1500)
	ms.NoError(update(ms.DB, &copyActivity))

	signedAttachment := CreateAttachmentFixture(ms.DB, user, domain.AttachmentCodeInterventionAmendment)
	err = amendment.Merge(ms.DB, time.Now().UTC(), signedAttachment.ID, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorFundsMismatch, Category: api.CategoryUser}, err)
	report := ms.validationReport(err)
	ms.True(hasValidationCode(report, ValidationCodeFundsMismatch))

	// the live document is untouched
	ms.NoError(amendment.FindByID(ms.DB, amendment.ID))
	ms.False(amendment.Merged)
	var budget PlannedBudget
	ms.NoError(budget.FindForIntervention(ms.DB, live.ID))
	ms.True(budget.UnicefCashLocal.Equal(decimal.NewFromInt(1000)), "got %s", budget.UnicefCashLocal)
}

func (ms *ModelSuite) Test_AmendmentMerge_RequiresEvidence() {
	_, _, agreement, user := ms.interventionTestFixtures()
	live := ms.signedInterventionFixture(agreement, user)
	CreateResultTreeFixture(ms.DB, live, decimal.NewFromInt(1000))

	amendment, err := ForkIntervention(ms.DB, &live, api.AmendmentCreateInput{
		Types: []api.AmendmentType{api.AmendmentTypeOther},
	}, user)
	ms.NoError(err)

	err = amendment.Merge(ms.DB, time.Time{}, uuid.Nil, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidationFailed, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_AmendmentCopy_RigidStart() {
	_, _, agreement, user := ms.interventionTestFixtures()
	live := ms.signedInterventionFixture(agreement, user)
	CreateResultTreeFixture(ms.DB, live, decimal.NewFromInt(1000))

	amendment, err := ForkIntervention(ms.DB, &live, api.AmendmentCreateInput{
		Types: []api.AmendmentType{api.AmendmentTypeDates},
	}, user)
	ms.NoError(err)

	var copyDoc Intervention
	ms.NoError(copyDoc.FindByID(ms.DB, amendment.AmendedCopyID.UUID))

	// the start date stays rigid even on the amendment copy
	newStart := copyDoc.Start.Time.AddDate(0, 1, 0)
	err = copyDoc.UpdateFromInput(ms.DB, api.InterventionUpdateInput{Start: &newStart}, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidationFailed, Category: api.CategoryUser}, err)
	report := ms.validationReport(err)
	ms.True(hasValidationCode(report, ValidationCodeRigidField))

	// the end date is amendable
	newEnd := copyDoc.End.Time.AddDate(0, 3, 0)
	ms.NoError(copyDoc.UpdateFromInput(ms.DB, api.InterventionUpdateInput{End: &newEnd}, user))
}
