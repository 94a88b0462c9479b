package models

import (
	"fmt"
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

func (ms *ModelSuite) interventionTestFixtures() (Country, Partner, Agreement, User) {
	country := CreateCountryFixture(ms.DB)
	now := time.Now().UTC()
	cp := CreateCountryProgrammeFixture(ms.DB, country, now.AddDate(-1, 0, 0), now.AddDate(2, 0, 0))
	partner := CreatePartnerFixture(ms.DB, country)
	agreement := CreateAgreementFixture(ms.DB, country, partner, cp)
	f := CreateUserFixtures(ms.DB, country, 1, RoleUnicefUser, RolePartnershipManager)
	return country, partner, agreement, f.Users[0]
}

func (ms *ModelSuite) Test_InterventionCreate() {
	_, _, agreement, user := ms.interventionTestFixtures()

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -60)
	end := now.AddDate(0, 0, 120)
	intervention := CreateInterventionFixture(ms.DB, agreement, user, start, end)

	var budget PlannedBudget
	ms.NoError(budget.FindForIntervention(ms.DB, intervention.ID))
	ms.Equal("USD", budget.Currency)
	ms.True(budget.ExchangeRate.Equal(decimal.NewFromInt(1)), "exchange rate must default to 1")

	var lines ManagementBudgetLines
	ms.NoError(lines.AllForIntervention(ms.DB, intervention.ID))
	ms.Len(lines, 3, "one management line per kind")

	var frames TimeFrames
	ms.NoError(frames.AllForIntervention(ms.DB, intervention.ID))
	ms.Len(frames, len(domain.QuartersInRange(start, end)), "one frame per quarter in the date range")

	n, err := CountForTarget(ms.DB, domain.TypeIntervention, intervention.ID)
	ms.NoError(err)
	ms.Equal(1, n, "create must leave exactly one snapshot")
}

func (ms *ModelSuite) Test_InterventionCreate_PDRequiresPCA() {
	country, partner, _, user := ms.interventionTestFixtures()

	mou := Agreement{
		CountryID: country.ID,
		Type:      api.AgreementTypeMOU,
		Status:    api.AgreementStatusSigned,
		PartnerID: partner.ID,
	}
	MustCreate(ms.DB, &mou)

	pd := Intervention{
		CountryID:    country.ID,
		DocumentType: api.InterventionTypePD,
		Title:        "PD under MOU",
		Status:       api.InterventionStatusDraft,
		AgreementID:  mou.ID,
		UnicefCourt:  true,
	}
	err := pd.Create(ms.DB, "USD", user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidationFailed, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_InterventionLifecycle() {
	country, _, agreement, user := ms.interventionTestFixtures()

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -60)
	end := now.AddDate(0, 0, 120)
	intervention := CreateInterventionFixture(ms.DB, agreement, user, start, end)

	cash := decimal.NewFromInt(1000)
	CreateResultTreeFixture(ms.DB, intervention, cash)
	CreateFundsReservationFixture(ms.DB, intervention, cash)

	ms.NoError(intervention.Transition(ms.DB, api.InterventionStatusReview, "", user))

	prc := CreateAttachmentFixture(ms.DB, user, domain.AttachmentCodePRCReview)
	intervention.DateSentToPartner = nulls.NewTime(now.AddDate(0, 0, -100))
	intervention.PRCReviewAttachmentID = nulls.NewUUID(prc.ID)
	ms.NoError(update(ms.DB, &intervention))
	ms.NoError(intervention.Transition(ms.DB, api.InterventionStatusSignature, "", user))

	signedPD := CreateAttachmentFixture(ms.DB, user, domain.AttachmentCodeSignedPD)
	signedDate := start.AddDate(0, 0, -10)
	intervention.SignedByUnicefDate = nulls.NewTime(signedDate)
	intervention.SignedByPartnerDate = nulls.NewTime(signedDate)
	intervention.SignedPDAttachmentID = nulls.NewUUID(signedPD.ID)
	ms.NoError(update(ms.DB, &intervention))
	ms.NoError(intervention.Transition(ms.DB, api.InterventionStatusSigned, "", user))

	want := fmt.Sprintf("%s/PD/%d/0001", country.Code, signedDate.Year())
	ms.Equal(want, intervention.ReferenceNumber, "incorrect reference number")

	ms.NoError(intervention.Transition(ms.DB, api.InterventionStatusActive, "", user))
	ms.Equal(api.InterventionStatusActive, intervention.Status)

	n, err := CountForTarget(ms.DB, domain.TypeIntervention, intervention.ID)
	ms.NoError(err)
	ms.Equal(5, n, "create plus four transitions must leave five snapshots")
}

func (ms *ModelSuite) Test_InterventionReferenceNumber_OwnSequence() {
	country, _, agreement, user := ms.interventionTestFixtures()

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -60)
	intervention := CreateInterventionFixture(ms.DB, agreement, user, start, now.AddDate(0, 0, 120))

	cash := decimal.NewFromInt(1000)
	CreateResultTreeFixture(ms.DB, intervention, cash)
	CreateFundsReservationFixture(ms.DB, intervention, cash)

	signedPD := CreateAttachmentFixture(ms.DB, user, domain.AttachmentCodeSignedPD)
	signedDate := start.AddDate(0, 0, -10)
	intervention.Status = api.InterventionStatusSignature
	intervention.DateSentToPartner = nulls.NewTime(signedDate)
	intervention.SignedByUnicefDate = nulls.NewTime(signedDate)
	intervention.SignedByPartnerDate = nulls.NewTime(signedDate)
	intervention.SignedPDAttachmentID = nulls.NewUUID(signedPD.ID)
	ms.NoError(update(ms.DB, &intervention))

	// the agreement sequence must not bleed into the PD sequence
	agreementRef, err := NextReferenceNumber(ms.DB, country, string(agreement.Type), signedDate.Year())
	ms.NoError(err)
	ms.Equal(fmt.Sprintf("%s/PCA/%d/0001", country.Code, signedDate.Year()), agreementRef)

	ms.NoError(intervention.Transition(ms.DB, api.InterventionStatusSigned, "", user))
	want := fmt.Sprintf("%s/PD/%d/0001", country.Code, signedDate.Year())
	ms.Equal(want, intervention.ReferenceNumber, "PD must draw from its own sequence")
}

func (ms *ModelSuite) Test_InterventionTransition_FundsMismatch() {
	_, _, agreement, user := ms.interventionTestFixtures()

	now := time.Now().UTC()
	start := now.AddDate(0, 0, -60)
	intervention := CreateInterventionFixture(ms.DB, agreement, user, start, now.AddDate(0, 0, 120))

	CreateResultTreeFixture(ms.DB, intervention, decimal.NewFromInt(1000))
	CreateFundsReservationFixture(ms.DB, intervention, decimal.NewFromInt(800))

	signedPD := CreateAttachmentFixture(ms.DB, user, domain.AttachmentCodeSignedPD)
	signedDate := start.AddDate(0, 0, -10)
	intervention.Status = api.InterventionStatusSignature
	intervention.DateSentToPartner = nulls.NewTime(signedDate)
	intervention.SignedByUnicefDate = nulls.NewTime(signedDate)
	intervention.SignedByPartnerDate = nulls.NewTime(signedDate)
	intervention.SignedPDAttachmentID = nulls.NewUUID(signedPD.ID)
	ms.NoError(update(ms.DB, &intervention))

	err := intervention.Transition(ms.DB, api.InterventionStatusSigned, "", user)
	ms.EqualAppError(api.AppError{Key: api.ErrorFundsMismatch, Category: api.CategoryUser}, err)
	report := ms.validationReport(err)
	ms.True(hasValidationCode(report, ValidationCodeFundsMismatch))
}

func (ms *ModelSuite) Test_InterventionTransition_Closed() {
	_, _, agreement, user := ms.interventionTestFixtures()

	now := time.Now().UTC()
	intervention := CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -300), now.AddDate(0, 0, -10))
	intervention.Status = api.InterventionStatusActive
	ms.NoError(update(ms.DB, &intervention))

	cash := decimal.NewFromInt(5000)
	CreateResultTreeFixture(ms.DB, intervention, cash)
	frs := CreateFundsReservationFixture(ms.DB, intervention, cash)
	frs.ActualAmt = cash
	frs.OutstandingAmt = decimal.Zero
	ms.NoError(update(ms.DB, &frs))

	ms.NoError(intervention.Transition(ms.DB, api.InterventionStatusEnded, "", user))
	ms.NoError(intervention.Transition(ms.DB, api.InterventionStatusClosed, "", user))
	ms.Equal(api.InterventionStatusClosed, intervention.Status)
}

func (ms *ModelSuite) Test_InterventionTransition_ClosedNeedsFinalReview() {
	_, _, agreement, user := ms.interventionTestFixtures()

	now := time.Now().UTC()
	intervention := CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -300), now.AddDate(0, 0, -10))
	intervention.Status = api.InterventionStatusEnded
	ms.NoError(update(ms.DB, &intervention))

	// actual disbursement at the final review threshold
	cash := decimal.NewFromInt(int64(domain.Env.FinalReviewThreshold))
	CreateResultTreeFixture(ms.DB, intervention, cash)
	frs := CreateFundsReservationFixture(ms.DB, intervention, cash)
	frs.ActualAmt = cash
	frs.OutstandingAmt = decimal.Zero
	ms.NoError(update(ms.DB, &frs))

	err := intervention.Transition(ms.DB, api.InterventionStatusClosed, "", user)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)

	review := CreateAttachmentFixture(ms.DB, user, domain.AttachmentCodeFinalPartnershipReview)
	intervention.FinalReviewAttachmentID = nulls.NewUUID(review.ID)
	ms.NoError(update(ms.DB, &intervention))
	ms.NoError(intervention.Transition(ms.DB, api.InterventionStatusClosed, "", user))
}

func (ms *ModelSuite) Test_InterventionTransition_PartnerRoleGate() {
	country, partner, agreement, user := ms.interventionTestFixtures()

	now := time.Now().UTC()
	intervention := CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -60), now.AddDate(0, 0, 120))
	CreateResultTreeFixture(ms.DB, intervention, decimal.NewFromInt(1000))
	CreateFundsReservationFixture(ms.DB, intervention, decimal.NewFromInt(1000))

	partnerUser := CreateUserFixtures(ms.DB, country, 1, RolePartnerFocalPoint).Users[0]
	partnerUser.OrganizationID = nulls.NewUUID(partner.OrganizationID)
	ms.NoError(partnerUser.Update(ms.DB))

	// a partner editor who is not a focal point cannot move the document
	err := intervention.Transition(ms.DB, api.InterventionStatusReview, "", partnerUser)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)

	ms.NoError(intervention.setFocalPoints(ms.DB, FocalPointKindPartner, []uuid.UUID{partnerUser.ID}))
	ms.NoError(intervention.Transition(ms.DB, api.InterventionStatusReview, "", partnerUser))
}

func (ms *ModelSuite) Test_InterventionUpdate_RigidFields() {
	_, _, agreement, user := ms.interventionTestFixtures()

	now := time.Now().UTC()
	intervention := CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -60), now.AddDate(0, 0, 120))
	intervention.Status = api.InterventionStatusSigned
	ms.NoError(update(ms.DB, &intervention))

	// the title is frozen once signed
	title := "Renamed after signature"
	err := intervention.UpdateFromInput(ms.DB, api.InterventionUpdateInput{Title: &title}, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidationFailed, Category: api.CategoryUser}, err)
	report := ms.validationReport(err)
	ms.True(hasValidationCode(report, ValidationCodeRigidField))
}

func (ms *ModelSuite) Test_InterventionUpdate_Draft() {
	_, _, agreement, user := ms.interventionTestFixtures()

	now := time.Now().UTC()
	intervention := CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -60), now.AddDate(0, 0, 120))

	title := "Updated title"
	newEnd := now.AddDate(0, 0, 240)
	ms.NoError(intervention.UpdateFromInput(ms.DB, api.InterventionUpdateInput{Title: &title, End: &newEnd}, user))
	ms.Equal(title, intervention.Title)

	// a date change re-syncs the quarter calendar
	var frames TimeFrames
	ms.NoError(frames.AllForIntervention(ms.DB, intervention.ID))
	ms.Len(frames, len(domain.QuartersInRange(intervention.Start.Time, newEnd)))
}

func (ms *ModelSuite) Test_InterventionAllowedTransitions() {
	_, _, agreement, user := ms.interventionTestFixtures()

	now := time.Now().UTC()
	intervention := CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -60), now.AddDate(0, 0, 120))

	// a PD with no funds reservation cannot go to review yet
	allowed := intervention.AllowedTransitions(ms.DB, user)
	ms.NotContains(allowed, api.InterventionStatusReview)
	ms.Contains(allowed, api.InterventionStatusCancelled)

	CreateFundsReservationFixture(ms.DB, intervention, decimal.NewFromInt(1000))
	allowed = intervention.AllowedTransitions(ms.DB, user)
	ms.Contains(allowed, api.InterventionStatusReview)
}

func (ms *ModelSuite) Test_InterventionClaimFundsReservation() {
	_, _, agreement, user := ms.interventionTestFixtures()

	now := time.Now().UTC()
	docA := CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -60), now.AddDate(0, 0, 120))
	docB := CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -60), now.AddDate(0, 0, 120))

	frs := FundsReservation{
		FrNumber: randStr(10),
		Currency: "USD",
		TotalAmt: decimal.NewFromInt(1000),
	}
	MustCreate(ms.DB, &frs)

	ms.NoError(docA.ClaimFundsReservation(ms.DB, frs.FrNumber))

	// a header claimed by another document is refused
	err := docB.ClaimFundsReservation(ms.DB, frs.FrNumber)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidation, Category: api.CategoryUser}, err)

	// re-claiming by the same document is a no-op
	ms.NoError(docA.ClaimFundsReservation(ms.DB, frs.FrNumber))
}
