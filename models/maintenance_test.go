package models

import (
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
)

func (ms *ModelSuite) Test_Maintenance_ActivatesSignedDocs() {
	_, _, agreement, user := ms.interventionTestFixtures()
	country := Country{}
	ms.NoError(country.FindByID(ms.DB, agreement.CountryID))
	CreateServiceUserFixture(ms.DB, country)

	now := time.Now().UTC()
	doc := CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -5), now.AddDate(0, 0, 120))
	CreateResultTreeFixture(ms.DB, doc, decimal.NewFromInt(1000))
	CreateFundsReservationFixture(ms.DB, doc, decimal.NewFromInt(1000))
	doc.Status = api.InterventionStatusSigned
	ms.NoError(update(ms.DB, &doc))

	ms.NoError(RunDailyMaintenance(ms.DB, now))

	ms.NoError(doc.FindByID(ms.DB, doc.ID))
	ms.Equal(api.InterventionStatusActive, doc.Status)

	// a second run leaves it alone
	ms.NoError(RunDailyMaintenance(ms.DB, now))
	ms.NoError(doc.FindByID(ms.DB, doc.ID))
	ms.Equal(api.InterventionStatusActive, doc.Status)
}

func (ms *ModelSuite) Test_Maintenance_EndsDocsPastEndDate() {
	_, _, agreement, user := ms.interventionTestFixtures()
	country := Country{}
	ms.NoError(country.FindByID(ms.DB, agreement.CountryID))
	CreateServiceUserFixture(ms.DB, country)

	now := time.Now().UTC()
	doc := CreateInterventionFixture(ms.DB, agreement, user, now.AddDate(0, 0, -200), now.AddDate(0, 0, -10))
	doc.Status = api.InterventionStatusActive
	ms.NoError(update(ms.DB, &doc))

	ms.NoError(RunDailyMaintenance(ms.DB, now))

	ms.NoError(doc.FindByID(ms.DB, doc.ID))
	ms.Equal(api.InterventionStatusEnded, doc.Status)
}

func (ms *ModelSuite) Test_Maintenance_EndsAgreementsPastEndDate() {
	country, cp, partner, _ := ms.agreementTestFixtures()
	CreateServiceUserFixture(ms.DB, country)

	now := time.Now().UTC()
	agreement := CreateAgreementFixture(ms.DB, country, partner, cp)
	agreement.End = nulls.NewTime(now.AddDate(0, 0, -1))
	ms.NoError(update(ms.DB, &agreement))

	// an agreement still running stays signed
	running := CreateAgreementFixture(ms.DB, country, CreatePartnerFixture(ms.DB, country), cp)

	ms.NoError(RunDailyMaintenance(ms.DB, now))

	ms.NoError(agreement.FindByID(ms.DB, agreement.ID))
	ms.Equal(api.AgreementStatusEnded, agreement.Status)
	ms.NoError(running.FindByID(ms.DB, running.ID))
	ms.Equal(api.AgreementStatusSigned, running.Status)
}

func (ms *ModelSuite) Test_Maintenance_ExpiresDevelopmentDocs() {
	country := CreateCountryFixture(ms.DB)
	CreateServiceUserFixture(ms.DB, country)
	now := time.Now().UTC()

	expiredCP := CreateCountryProgrammeFixture(ms.DB, country, now.AddDate(-5, 0, 0), now.AddDate(0, 0, -30))
	partner := CreatePartnerFixture(ms.DB, country)
	agreement := CreateAgreementFixture(ms.DB, country, partner, expiredCP)
	user := CreateUserFixtures(ms.DB, country, 1, RoleUnicefUser, RolePartnershipManager).Users[0]

	doc := CreateInterventionFixture(ms.DB, agreement, user,
		expiredCP.FromDate.AddDate(1, 0, 0), expiredCP.ToDate)
	doc.Status = api.InterventionStatusDevelopment
	ms.NoError(update(ms.DB, &doc))

	ms.NoError(RunDailyMaintenance(ms.DB, now))

	ms.NoError(doc.FindByID(ms.DB, doc.ID))
	ms.Equal(api.InterventionStatusExpired, doc.Status)
}

func (ms *ModelSuite) Test_Maintenance_ProgrammeRollover() {
	country := CreateCountryFixture(ms.DB)
	CreateServiceUserFixture(ms.DB, country)
	now := time.Now().UTC()

	expiredCP := CreateCountryProgrammeFixture(ms.DB, country, now.AddDate(-5, 0, 0), now.AddDate(0, 0, -30))
	activeCP := CreateCountryProgrammeFixture(ms.DB, country, now.AddDate(0, 0, -29), now.AddDate(4, 0, 0))
	partner := CreatePartnerFixture(ms.DB, country)
	oldAgreement := CreateAgreementFixture(ms.DB, country, partner, expiredCP)
	newAgreement := CreateAgreementFixture(ms.DB, country, partner, activeCP)
	user := CreateUserFixtures(ms.DB, country, 1, RoleUnicefUser, RolePartnershipManager).Users[0]

	doc := CreateInterventionFixture(ms.DB, oldAgreement, user,
		expiredCP.FromDate.AddDate(1, 0, 0), expiredCP.ToDate.AddDate(1, 0, 0))

	ms.NoError(RunDailyMaintenance(ms.DB, now))

	ms.NoError(doc.FindByID(ms.DB, doc.ID))
	ms.Equal(newAgreement.ID, doc.AgreementID, "document must move to the active programme's agreement")
	ms.Equal(api.InterventionStatusDraft, doc.Status, "rollover must not touch the status")
}

func (ms *ModelSuite) Test_Maintenance_RolloverNeedsReplacement() {
	country := CreateCountryFixture(ms.DB)
	CreateServiceUserFixture(ms.DB, country)
	now := time.Now().UTC()

	expiredCP := CreateCountryProgrammeFixture(ms.DB, country, now.AddDate(-5, 0, 0), now.AddDate(0, 0, -30))
	partner := CreatePartnerFixture(ms.DB, country)
	agreement := CreateAgreementFixture(ms.DB, country, partner, expiredCP)
	user := CreateUserFixtures(ms.DB, country, 1, RoleUnicefUser, RolePartnershipManager).Users[0]

	doc := CreateInterventionFixture(ms.DB, agreement, user,
		expiredCP.FromDate.AddDate(1, 0, 0), expiredCP.ToDate.AddDate(1, 0, 0))

	ms.NoError(RunDailyMaintenance(ms.DB, now))

	// no signed agreement under an active programme, the document stays put
	ms.NoError(doc.FindByID(ms.DB, doc.ID))
	ms.Equal(agreement.ID, doc.AgreementID)
}

func (ms *ModelSuite) Test_Maintenance_RecomputesPartnerAssurance() {
	country, partner, _ := ms.engagementTestFixtures()
	CreateServiceUserFixture(ms.DB, country)
	now := time.Now().UTC()

	ms.finalEngagement(partner, api.EngagementTypeSpotCheck, now.AddDate(0, -1, 0), "")
	ms.finalEngagement(partner, api.EngagementTypeMicroAssessment, now.AddDate(0, -2, 0), "significant")

	ms.NoError(RunDailyMaintenance(ms.DB, now))

	ms.NoError(partner.FindByID(ms.DB, partner.ID))
	ms.Equal(1, partner.SpotChecksCompleted)
	ms.Equal(1, partner.AssessmentsCompleted)
	ms.Equal(api.PartnerRiskRating("significant"), partner.RiskRating)
}
