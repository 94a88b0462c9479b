package models

import (
	"time"

	"github.com/gobuffalo/nulls"

	"github.com/equitrack/partnership-api/api"
)

// finalEngagement stages a finalized engagement with the given final report date
func (ms *ModelSuite) finalEngagement(partner Partner, eType api.EngagementType,
	finalDate time.Time, riskRating string) Engagement {

	e := CreateEngagementFixture(ms.DB, partner, eType)
	e.Status = api.EngagementStatusFinal
	e.DateOfFinalReport = nulls.NewTime(finalDate)
	e.OverallRiskRating = riskRating
	ms.NoError(update(ms.DB, &e))
	return e
}

func (ms *ModelSuite) Test_PartnerRecomputeHactValues() {
	_, partner, _ := ms.engagementTestFixtures()
	now := time.Now().UTC()
	thisYear := time.Date(now.Year(), 6, 1, 0, 0, 0, 0, time.UTC)
	lastYear := thisYear.AddDate(-1, 0, 0)

	// this year's completed work
	ms.finalEngagement(partner, api.EngagementTypeAudit, thisYear, "")
	ms.finalEngagement(partner, api.EngagementTypeSpecialAudit, thisYear, "")
	ms.finalEngagement(partner, api.EngagementTypeSpotCheck, thisYear, "")

	// last year's work stays out of the yearly counters
	ms.finalEngagement(partner, api.EngagementTypeAudit, lastYear, "")
	ms.finalEngagement(partner, api.EngagementTypeSpotCheck, lastYear, "")

	// micro assessments count regardless of year
	ms.finalEngagement(partner, api.EngagementTypeMicroAssessment, lastYear, "medium")

	// unfinished work never counts
	CreateEngagementFixture(ms.DB, partner, api.EngagementTypeAudit)

	ms.NoError(partner.RecomputeHactValues(ms.DB, now))
	ms.Equal(2, partner.AuditsCompleted, "audits and special audits this year")
	ms.Equal(1, partner.SpotChecksCompleted, "spot checks this year")
	ms.Equal(1, partner.AssessmentsCompleted, "micro assessments, any year")
}

func (ms *ModelSuite) Test_PartnerRecomputeHactValues_OtherPartnerExcluded() {
	country, partner, _ := ms.engagementTestFixtures()
	now := time.Now().UTC()

	other := CreatePartnerFixture(ms.DB, country)
	ms.finalEngagement(other, api.EngagementTypeAudit, now, "")

	ms.NoError(partner.RecomputeHactValues(ms.DB, now))
	ms.Equal(0, partner.AuditsCompleted)
}

func (ms *ModelSuite) Test_PartnerRefreshRiskRating() {
	_, partner, _ := ms.engagementTestFixtures()
	now := time.Now().UTC()

	older := now.AddDate(-2, 0, 0)
	newer := now.AddDate(0, -1, 0)
	ms.finalEngagement(partner, api.EngagementTypeMicroAssessment, older, "high")
	ms.finalEngagement(partner, api.EngagementTypeMicroAssessment, newer, "low")

	ms.NoError(partner.RefreshRiskRating(ms.DB))
	ms.Equal(api.PartnerRiskRating("low"), partner.RiskRating, "the latest assessment must win")
	ms.True(partner.LastAssessmentDate.Valid)
	ms.True(partner.LastAssessmentDate.Time.Equal(newer))
}

func (ms *ModelSuite) Test_PartnerRefreshRiskRating_NoAssessment() {
	_, partner, _ := ms.engagementTestFixtures()

	ms.NoError(partner.RefreshRiskRating(ms.DB))
	ms.Equal(api.PartnerRiskRatingNonAssessed, partner.RiskRating)
	ms.False(partner.LastAssessmentDate.Valid)
}

func (ms *ModelSuite) Test_PartnerRefreshRiskRating_EmptyRatingKeepsOld() {
	_, partner, _ := ms.engagementTestFixtures()
	now := time.Now().UTC()

	// a finalized assessment without a rating still moves the assessment date
	ms.finalEngagement(partner, api.EngagementTypeMicroAssessment, now.AddDate(0, -1, 0), "")

	ms.NoError(partner.RefreshRiskRating(ms.DB))
	ms.Equal(api.PartnerRiskRatingNonAssessed, partner.RiskRating)
	ms.True(partner.LastAssessmentDate.Valid)
}

func (ms *ModelSuite) Test_PartnerMarkDeleted() {
	country := CreateCountryFixture(ms.DB)
	partner := CreatePartnerFixture(ms.DB, country)

	ms.NoError(partner.MarkDeleted(ms.DB))

	var reloaded Partner
	ms.NoError(reloaded.FindByID(ms.DB, partner.ID))
	ms.True(reloaded.Deleted)
}
