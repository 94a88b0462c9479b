package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

func (ms *ModelSuite) draftInterventionFixture(agreement Agreement, user User) Intervention {
	now := time.Now().UTC()
	return CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -60), now.AddDate(0, 0, 120))
}

func (ms *ModelSuite) Test_ResultTree_DottedCodes() {
	_, _, agreement, user := ms.interventionTestFixtures()
	intervention := ms.draftInterventionFixture(agreement, user)

	link1, err := intervention.AddResultLink(ms.DB, api.ResultLinkCreateInput{CPOutputID: domain.GetUUID()}, user)
	ms.NoError(err)
	ms.Equal("1", link1.Code)

	link2, err := intervention.AddResultLink(ms.DB, api.ResultLinkCreateInput{CPOutputID: domain.GetUUID()}, user)
	ms.NoError(err)
	ms.Equal("2", link2.Code)

	lr1, err := intervention.AddLowerResult(ms.DB, link1, api.LowerResultCreateInput{Name: "nutrition"}, user)
	ms.NoError(err)
	ms.Equal("1.1", lr1.Code)

	lr2, err := intervention.AddLowerResult(ms.DB, link1, api.LowerResultCreateInput{Name: "immunization"}, user)
	ms.NoError(err)
	ms.Equal("1.2", lr2.Code)

	activity, err := intervention.AddActivity(ms.DB, lr1, api.ActivityCreateInput{
		Name:       "outreach sessions",
		UnicefCash: decimal.NewFromInt(500),
		TimeFrames: []int{1, 2},
	}, user)
	ms.NoError(err)
	ms.Equal("1.1.1", activity.Code)
	ms.Len(activity.timeFrameQuarters(ms.DB), 2)

	// a lower result under the second link starts its own branch
	other, err := intervention.AddLowerResult(ms.DB, link2, api.LowerResultCreateInput{Name: "wash"}, user)
	ms.NoError(err)
	ms.Equal("2.1", other.Code)
}

func (ms *ModelSuite) Test_ResultTree_CrossDocumentLink() {
	_, _, agreement, user := ms.interventionTestFixtures()
	intervention := ms.draftInterventionFixture(agreement, user)
	other := ms.draftInterventionFixture(agreement, user)
	foreignLink, _, _ := CreateResultTreeFixture(ms.DB, other, decimal.NewFromInt(100))

	_, err := intervention.AddLowerResult(ms.DB, &foreignLink, api.LowerResultCreateInput{Name: "stray"}, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidation, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_ResultTree_BudgetRecompute() {
	_, _, agreement, user := ms.interventionTestFixtures()
	intervention := ms.draftInterventionFixture(agreement, user)

	link, err := intervention.AddResultLink(ms.DB, api.ResultLinkCreateInput{CPOutputID: domain.GetUUID()}, user)
	ms.NoError(err)
	lr, err := intervention.AddLowerResult(ms.DB, link, api.LowerResultCreateInput{Name: "health"}, user)
	ms.NoError(err)

	_, err = intervention.AddActivity(ms.DB, lr, api.ActivityCreateInput{
		Name:         "training",
		UnicefCash:   decimal.NewFromInt(700),
		CSOCash:      decimal.NewFromInt(200),
		UnfundedCash: decimal.NewFromInt(50),
	}, user)
	ms.NoError(err)
	_, err = intervention.AddActivity(ms.DB, lr, api.ActivityCreateInput{
		Name:       "supervision",
		UnicefCash: decimal.NewFromInt(300),
	}, user)
	ms.NoError(err)

	var budget PlannedBudget
	ms.NoError(budget.FindForIntervention(ms.DB, intervention.ID))
	ms.True(budget.UnicefCashLocal.Equal(decimal.NewFromInt(1000)), "got %s", budget.UnicefCashLocal)
	ms.True(budget.PartnerContribution.Equal(decimal.NewFromInt(200)), "got %s", budget.PartnerContribution)
	ms.True(budget.UnfundedCashLocal.Equal(decimal.NewFromInt(50)), "got %s", budget.UnfundedCashLocal)
	ms.True(budget.TotalLocal.Equal(decimal.NewFromInt(1250)), "got %s", budget.TotalLocal)

	// only UNICEF-provided supply counts as in kind
	unicefSupply := SupplyItem{
		InterventionID: intervention.ID,
		Title:          "vaccine kits",
		UnitNumber:     decimal.NewFromInt(10),
		UnitPrice:      decimal.NewFromInt(30),
		ProvidedBy:     SupplyProvidedByUnicef,
	}
	MustCreate(ms.DB, &unicefSupply)
	partnerSupply := SupplyItem{
		InterventionID: intervention.ID,
		Title:          "cold boxes",
		UnitNumber:     decimal.NewFromInt(5),
		UnitPrice:      decimal.NewFromInt(20),
		ProvidedBy:     SupplyProvidedByPartner,
	}
	MustCreate(ms.DB, &partnerSupply)

	ms.NoError(intervention.RecomputeBudget(ms.DB))
	ms.NoError(budget.FindForIntervention(ms.DB, intervention.ID))
	ms.True(budget.InKindAmountLocal.Equal(decimal.NewFromInt(300)), "got %s", budget.InKindAmountLocal)
	ms.True(budget.TotalSupplyLocal.Equal(decimal.NewFromInt(400)), "got %s", budget.TotalSupplyLocal)
}

func (ms *ModelSuite) Test_SetActivityItems() {
	_, _, agreement, user := ms.interventionTestFixtures()
	intervention := ms.draftInterventionFixture(agreement, user)
	_, _, activity := CreateResultTreeFixture(ms.DB, intervention, decimal.NewFromInt(250))

	err := intervention.SetActivityItems(ms.DB, &activity, []api.ActivityItemInput{
		{
			Name:       "facilitator fees",
			Unit:       "day",
			NoUnits:    decimal.NewFromInt(10),
			UnitPrice:  decimal.NewFromInt(40),
			UnicefCash: decimal.NewFromInt(400),
		},
		{
			Name:       "venue rental",
			Unit:       "day",
			NoUnits:    decimal.NewFromInt(10),
			UnitPrice:  decimal.NewFromInt(60),
			UnicefCash: decimal.NewFromInt(600),
		},
	}, user)
	ms.NoError(err)

	// item totals override whatever cash the activity carried
	ms.True(activity.UnicefCash.Equal(decimal.NewFromInt(1000)), "got %s", activity.UnicefCash)

	activity.LoadItems(ms.DB, true)
	ms.Len(activity.Items, 2)
	ms.Equal("1.1.1.1", activity.Items[0].Code)
	ms.Equal("1.1.1.2", activity.Items[1].Code)

	var budget PlannedBudget
	ms.NoError(budget.FindForIntervention(ms.DB, intervention.ID))
	ms.True(budget.UnicefCashLocal.Equal(decimal.NewFromInt(1000)), "got %s", budget.UnicefCashLocal)

	// replacing the list discards the old items
	ms.NoError(intervention.SetActivityItems(ms.DB, &activity, []api.ActivityItemInput{
		{Name: "lump sum", UnicefCash: decimal.NewFromInt(100)},
	}, user))
	activity.LoadItems(ms.DB, true)
	ms.Len(activity.Items, 1)
	ms.True(activity.UnicefCash.Equal(decimal.NewFromInt(100)), "got %s", activity.UnicefCash)
}

func (ms *ModelSuite) Test_SetActivityItems_SettlesSplit() {
	_, _, agreement, user := ms.interventionTestFixtures()
	intervention := ms.draftInterventionFixture(agreement, user)
	_, _, activity := CreateResultTreeFixture(ms.DB, intervention, decimal.NewFromInt(250))

	third := decimal.RequireFromString("33.333")
	ms.NoError(intervention.SetActivityItems(ms.DB, &activity, []api.ActivityItemInput{
		{
			Name:         "split three ways",
			Unit:         "each",
			NoUnits:      decimal.NewFromInt(3),
			UnitPrice:    decimal.RequireFromString("33.3333"),
			UnicefCash:   third,
			CSOCash:      third,
			UnfundedCash: third,
		},
	}, user))

	activity.LoadItems(ms.DB, true)
	ms.Len(activity.Items, 1)
	item := activity.Items[0]

	// the rounded shares settle on the largest one so they sum to the item cost
	ms.True(item.UnicefCash.Equal(decimal.RequireFromString("33.34")), "got %s", item.UnicefCash)
	ms.True(item.CSOCash.Equal(decimal.RequireFromString("33.33")), "got %s", item.CSOCash)
	ms.True(item.UnfundedCash.Equal(decimal.RequireFromString("33.33")), "got %s", item.UnfundedCash)

	sum := item.UnicefCash.Add(item.CSOCash).Add(item.UnfundedCash)
	ms.True(sum.Equal(decimal.NewFromInt(100)), "got %s", sum)
}

func (ms *ModelSuite) Test_SetActivityItems_SplitMismatch() {
	_, _, agreement, user := ms.interventionTestFixtures()
	intervention := ms.draftInterventionFixture(agreement, user)
	_, _, activity := CreateResultTreeFixture(ms.DB, intervention, decimal.NewFromInt(250))

	// cash streams short of no_units * unit_price by more than rounding drift
	err := intervention.SetActivityItems(ms.DB, &activity, []api.ActivityItemInput{
		{
			Name:       "underfunded",
			Unit:       "each",
			NoUnits:    decimal.NewFromInt(10),
			UnitPrice:  decimal.NewFromInt(10),
			UnicefCash: decimal.NewFromInt(50),
		},
	}, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidation, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_DeleteActivity_Renumbers() {
	_, _, agreement, user := ms.interventionTestFixtures()
	intervention := ms.draftInterventionFixture(agreement, user)
	_, lr, first := CreateResultTreeFixture(ms.DB, intervention, decimal.NewFromInt(100))

	second, err := intervention.AddActivity(ms.DB, &lr, api.ActivityCreateInput{
		Name: "second", UnicefCash: decimal.NewFromInt(200),
	}, user)
	ms.NoError(err)
	third, err := intervention.AddActivity(ms.DB, &lr, api.ActivityCreateInput{
		Name: "third", UnicefCash: decimal.NewFromInt(300),
	}, user)
	ms.NoError(err)
	ms.NoError(intervention.SetActivityItems(ms.DB, third, []api.ActivityItemInput{
		{Name: "supplies", UnicefCash: decimal.NewFromInt(300)},
	}, user))

	ms.NoError(intervention.DeleteActivity(ms.DB, second, user))

	// trailing siblings close the gap, item codes follow
	ms.NoError(third.FindByID(ms.DB, third.ID))
	ms.Equal("1.1.2", third.Code)
	ms.Equal(2, third.Ordinal)
	third.LoadItems(ms.DB, true)
	ms.Len(third.Items, 1)
	ms.Equal("1.1.2.1", third.Items[0].Code)

	ms.NoError(first.FindByID(ms.DB, first.ID))
	ms.Equal("1.1.1", first.Code)

	var budget PlannedBudget
	ms.NoError(budget.FindForIntervention(ms.DB, intervention.ID))
	ms.True(budget.UnicefCashLocal.Equal(decimal.NewFromInt(400)), "got %s", budget.UnicefCashLocal)
}

func (ms *ModelSuite) Test_DeleteLowerResult_Renumbers() {
	_, _, agreement, user := ms.interventionTestFixtures()
	intervention := ms.draftInterventionFixture(agreement, user)
	link, lr1, _ := CreateResultTreeFixture(ms.DB, intervention, decimal.NewFromInt(100))

	lr2, err := intervention.AddLowerResult(ms.DB, &link, api.LowerResultCreateInput{Name: "second"}, user)
	ms.NoError(err)
	survivor, err := intervention.AddActivity(ms.DB, lr2, api.ActivityCreateInput{
		Name: "kept", UnicefCash: decimal.NewFromInt(200),
	}, user)
	ms.NoError(err)

	ms.NoError(intervention.DeleteLowerResult(ms.DB, &lr1, user))

	ms.NoError(lr2.FindByID(ms.DB, lr2.ID))
	ms.Equal("1.1", lr2.Code)
	ms.Equal(1, lr2.Ordinal)
	ms.NoError(survivor.FindByID(ms.DB, survivor.ID))
	ms.Equal("1.1.1", survivor.Code)

	var budget PlannedBudget
	ms.NoError(budget.FindForIntervention(ms.DB, intervention.ID))
	ms.True(budget.UnicefCashLocal.Equal(decimal.NewFromInt(200)), "got %s", budget.UnicefCashLocal)
}

func (ms *ModelSuite) Test_MoveActivity() {
	_, _, agreement, user := ms.interventionTestFixtures()
	intervention := ms.draftInterventionFixture(agreement, user)
	link, lr1, moved := CreateResultTreeFixture(ms.DB, intervention, decimal.NewFromInt(100))
	ms.NoError(intervention.SetActivityItems(ms.DB, &moved, []api.ActivityItemInput{
		{Name: "per diem", UnicefCash: decimal.NewFromInt(100)},
	}, user))

	lr2, err := intervention.AddLowerResult(ms.DB, &link, api.LowerResultCreateInput{Name: "target"}, user)
	ms.NoError(err)
	_, err = intervention.AddActivity(ms.DB, lr2, api.ActivityCreateInput{
		Name: "existing", UnicefCash: decimal.NewFromInt(50),
	}, user)
	ms.NoError(err)

	ms.NoError(intervention.MoveActivity(ms.DB, &moved, lr2, user))
	ms.Equal(lr2.ID, moved.LowerResultID)
	ms.Equal("1.2.2", moved.Code, "moved activity must append after the target's children")
	moved.LoadItems(ms.DB, true)
	ms.Equal("1.2.2.1", moved.Items[0].Code)

	// the source subtree holds no activities now
	lr1.LoadActivities(ms.DB, true)
	ms.Empty(lr1.Activities)
}

func (ms *ModelSuite) Test_ResultTree_UnknownQuarter() {
	_, _, agreement, user := ms.interventionTestFixtures()
	intervention := ms.draftInterventionFixture(agreement, user)
	_, lr, _ := CreateResultTreeFixture(ms.DB, intervention, decimal.NewFromInt(100))

	_, err := intervention.AddActivity(ms.DB, &lr, api.ActivityCreateInput{
		Name:       "out of range",
		UnicefCash: decimal.NewFromInt(10),
		TimeFrames: []int{99},
	}, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidation, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_ResultTree_EditGate() {
	_, _, agreement, user := ms.interventionTestFixtures()
	signed := ms.signedInterventionFixture(agreement, user)

	_, err := signed.AddResultLink(ms.DB, api.ResultLinkCreateInput{CPOutputID: domain.GetUUID()}, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorPermissionDenied, Category: api.CategoryForbidden}, err)

	// the amendment copy of the same document stays editable
	amendment, err := ForkIntervention(ms.DB, &signed, api.AmendmentCreateInput{
		Types: []api.AmendmentType{api.AmendmentTypeBudget},
	}, user)
	ms.NoError(err)
	var copyDoc Intervention
	ms.NoError(copyDoc.FindByID(ms.DB, amendment.AmendedCopyID.UUID))
	_, err = copyDoc.AddResultLink(ms.DB, api.ResultLinkCreateInput{CPOutputID: domain.GetUUID()}, user)
	ms.NoError(err)
}

func (ms *ModelSuite) Test_ResultTree_SnapshotPerMutation() {
	_, _, agreement, user := ms.interventionTestFixtures()
	intervention := ms.draftInterventionFixture(agreement, user)

	before, err := CountForTarget(ms.DB, domain.TypeIntervention, intervention.ID)
	ms.NoError(err)

	link, err := intervention.AddResultLink(ms.DB, api.ResultLinkCreateInput{CPOutputID: domain.GetUUID()}, user)
	ms.NoError(err)
	_, err = intervention.AddLowerResult(ms.DB, link, api.LowerResultCreateInput{Name: "tracked"}, user)
	ms.NoError(err)

	after, err := CountForTarget(ms.DB, domain.TypeIntervention, intervention.ID)
	ms.NoError(err)
	ms.Equal(before+2, after, "each tree mutation must leave one snapshot")
}
