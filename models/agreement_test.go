package models

import (
	"fmt"
	"time"

	"github.com/gobuffalo/nulls"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

func (ms *ModelSuite) agreementTestFixtures() (Country, CountryProgramme, Partner, User) {
	country := CreateCountryFixture(ms.DB)
	now := time.Now().UTC()
	cp := CreateCountryProgrammeFixture(ms.DB, country, now.AddDate(-1, 0, 0), now.AddDate(2, 0, 0))
	partner := CreatePartnerFixture(ms.DB, country)
	f := CreateUserFixtures(ms.DB, country, 1, RoleUnicefUser, RolePartnershipManager)
	return country, cp, partner, f.Users[0]
}

func draftPCA(country Country, partner Partner, cp CountryProgramme) Agreement {
	return Agreement{
		CountryID:          country.ID,
		Type:               api.AgreementTypePCA,
		Status:             api.AgreementStatusDraft,
		PartnerID:          partner.ID,
		CountryProgrammeID: nulls.NewUUID(cp.ID),
		Start:              nulls.NewTime(cp.FromDate),
		End:                nulls.NewTime(cp.ToDate),
	}
}

func (ms *ModelSuite) Test_AgreementCreate() {
	country, cp, partner, user := ms.agreementTestFixtures()

	agreement := draftPCA(country, partner, cp)
	ms.NoError(agreement.Create(ms.DB, user))

	n, err := CountForTarget(ms.DB, domain.TypeAgreement, agreement.ID)
	ms.NoError(err)
	ms.Equal(1, n, "create must leave exactly one snapshot")
}

func (ms *ModelSuite) Test_AgreementCreate_NonCSOPartner() {
	country, cp, _, user := ms.agreementTestFixtures()

	org := Organization{
		VendorNumber: randStr(10),
		Name:         "Gov Org " + randStr(8),
		Type:         api.OrganizationTypeGovernment,
	}
	MustCreate(ms.DB, &org)
	partner := Partner{
		CountryID:      country.ID,
		OrganizationID: org.ID,
		RiskRating:     api.PartnerRiskRatingNonAssessed,
	}
	MustCreate(ms.DB, &partner)

	agreement := draftPCA(country, partner, cp)
	err := agreement.Create(ms.DB, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidationFailed, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_AgreementCreate_OnePCAPerProgramme() {
	country, cp, partner, user := ms.agreementTestFixtures()
	CreateAgreementFixture(ms.DB, country, partner, cp)

	second := draftPCA(country, partner, cp)
	err := second.Create(ms.DB, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidationFailed, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_AgreementTransition_SignedRequirements() {
	country, cp, partner, user := ms.agreementTestFixtures()

	agreement := draftPCA(country, partner, cp)
	ms.NoError(agreement.Create(ms.DB, user))

	// no signature dates or attachment yet
	err := agreement.Transition(ms.DB, api.AgreementStatusSigned, "", user)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)
	report := ms.validationReport(err)
	ms.True(hasValidationCode(report, ValidationCodeTransition))

	attachment := CreateAttachmentFixture(ms.DB, user, domain.AttachmentCodeAgreement)
	signedDate := cp.FromDate.AddDate(0, 1, 0)
	agreement.SignedByUnicefDate = nulls.NewTime(signedDate)
	agreement.SignedByPartnerDate = nulls.NewTime(signedDate)
	agreement.SignedAgreementID = nulls.NewUUID(attachment.ID)
	ms.NoError(update(ms.DB, &agreement))

	ms.NoError(agreement.Transition(ms.DB, api.AgreementStatusSigned, "", user))
	ms.Equal(api.AgreementStatusSigned, agreement.Status)

	want := fmt.Sprintf("%s/PCA/%d/0001", country.Code, signedDate.Year())
	ms.Equal(want, agreement.ReferenceNumber, "incorrect reference number")

	n, err := CountForTarget(ms.DB, domain.TypeAgreement, agreement.ID)
	ms.NoError(err)
	ms.Equal(2, n, "create and transition must each leave a snapshot")
}

func (ms *ModelSuite) Test_AgreementTransition_ReferenceSequence() {
	country, cp, partner, user := ms.agreementTestFixtures()
	attachment := CreateAttachmentFixture(ms.DB, user, domain.AttachmentCodeAgreement)
	signedDate := cp.FromDate.AddDate(0, 1, 0)

	partner2 := CreatePartnerFixture(ms.DB, country)
	for n, p := range []Partner{partner, partner2} {
		agreement := draftPCA(country, p, cp)
		agreement.SignedByUnicefDate = nulls.NewTime(signedDate)
		agreement.SignedByPartnerDate = nulls.NewTime(signedDate)
		agreement.SignedAgreementID = nulls.NewUUID(attachment.ID)
		ms.NoError(agreement.Create(ms.DB, user))
		ms.NoError(agreement.Transition(ms.DB, api.AgreementStatusSigned, "", user))

		want := fmt.Sprintf("%s/PCA/%d/%04d", country.Code, signedDate.Year(), n+1)
		ms.Equal(want, agreement.ReferenceNumber, "sequence must increment per signed agreement")
	}
}

func (ms *ModelSuite) Test_AgreementTransition_NotDeclared() {
	country, cp, partner, user := ms.agreementTestFixtures()
	agreement := CreateAgreementFixture(ms.DB, country, partner, cp)
	agreement.Status = api.AgreementStatusTerminated
	ms.NoError(update(ms.DB, &agreement))

	// terminated is terminal
	err := agreement.Transition(ms.DB, api.AgreementStatusSigned, "", user)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)

	// draft cannot jump straight to ended
	second := draftPCA(country, CreatePartnerFixture(ms.DB, country), cp)
	ms.NoError(second.Create(ms.DB, user))
	err = second.Transition(ms.DB, api.AgreementStatusEnded, "", user)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_AgreementTransition_RoleGate() {
	country, cp, partner, _ := ms.agreementTestFixtures()
	agreement := CreateAgreementFixture(ms.DB, country, partner, cp)

	plain := CreateUserFixtures(ms.DB, country, 1, RoleUnicefUser).Users[0]
	err := agreement.Transition(ms.DB, api.AgreementStatusSuspended, "late reporting", plain)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)

	manager := CreateUserFixtures(ms.DB, country, 1, RolePartnershipManager).Users[0]
	ms.NoError(agreement.Transition(ms.DB, api.AgreementStatusSuspended, "late reporting", manager))
	ms.Equal(api.AgreementStatusSuspended, agreement.Status)
}

func (ms *ModelSuite) Test_AgreementTransition_SuspendedNeedsReason() {
	country, cp, partner, user := ms.agreementTestFixtures()
	agreement := CreateAgreementFixture(ms.DB, country, partner, cp)

	err := agreement.Transition(ms.DB, api.AgreementStatusSuspended, "", user)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_AgreementUpdate_RigidFields() {
	country, cp, partner, user := ms.agreementTestFixtures()
	agreement := CreateAgreementFixture(ms.DB, country, partner, cp)

	// start is frozen once signed
	newStart := cp.FromDate.AddDate(0, 2, 0)
	err := agreement.UpdateFromInput(ms.DB, api.AgreementUpdateInput{Start: &newStart}, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidationFailed, Category: api.CategoryUser}, err)
	report := ms.validationReport(err)
	ms.True(hasValidationCode(report, ValidationCodeRigidField))

	// the end date stays open to partnership roles
	newEnd := cp.ToDate.AddDate(0, 6, 0)
	ms.NoError(agreement.UpdateFromInput(ms.DB, api.AgreementUpdateInput{End: &newEnd}, user))
	ms.True(agreement.End.Valid)
	ms.True(agreement.End.Time.Equal(newEnd), "end date was not updated")
}

func (ms *ModelSuite) Test_AgreementAllowedTransitions() {
	country, cp, partner, user := ms.agreementTestFixtures()
	agreement := CreateAgreementFixture(ms.DB, country, partner, cp)

	allowed := agreement.AllowedTransitions(ms.DB, user)
	ms.Contains(allowed, api.AgreementStatusSuspended)
	ms.Contains(allowed, api.AgreementStatusTerminated)
	// the end date has not passed
	ms.NotContains(allowed, api.AgreementStatusEnded)
}
