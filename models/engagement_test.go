package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

func (ms *ModelSuite) engagementTestFixtures() (Country, Partner, User) {
	country := CreateCountryFixture(ms.DB)
	partner := CreatePartnerFixture(ms.DB, country)
	f := CreateUserFixtures(ms.DB, country, 1, RoleUnicefUser, RoleUnicefAuditFocalPoint)
	return country, partner, f.Users[0]
}

// fillReport stages the columns checkReportComplete looks at
func (ms *ModelSuite) fillReport(e *Engagement, user User) {
	rate := decimal.NewFromInt(1)
	value := decimal.NewFromInt(5000)
	ms.NoError(e.UpdateFromInput(ms.DB, api.EngagementUpdateInput{
		ExchangeRate: &rate,
		TotalValue:   &value,
	}, user))
	ms.NoError(e.SetFindings(ms.DB, user, []api.Finding{
		{Priority: api.FindingPriorityHigh, Category: "financial", Recommendation: "recover the balance"},
	}))
}

func (ms *ModelSuite) Test_EngagementCreate() {
	_, partner, user := ms.engagementTestFixtures()
	_, po, item := CreateAuditorFirmFixture(ms.DB)

	// the purchase order belongs to the auditor firm, not to any of the
	// partner's agreements
	itemID := item.ID
	e := NewEngagementFromInput(api.EngagementCreateInput{
		Type:              api.EngagementTypeSpotCheck,
		PartnerID:         partner.ID,
		PurchaseOrderID:   po.ID,
		PurchaseOrderItem: &itemID,
		Currency:          "USD",
	}, user, time.Now().UTC())
	ms.NoError(e.Create(ms.DB, user))
	ms.Equal(api.EngagementStatusPartnerContacted, e.Status)
	ms.True(e.PartnerContactedAt.Valid)

	n, err := CountForTarget(ms.DB, domain.TypeEngagement, e.ID)
	ms.NoError(err)
	ms.Equal(1, n, "create must leave exactly one snapshot")
}

func (ms *ModelSuite) Test_EngagementCreate_PurchaseOrderLink() {
	_, partner, user := ms.engagementTestFixtures()

	// a purchase order with a non-auditor organization is refused
	cso := Organization{
		VendorNumber: randStr(10),
		Name:         "Not An Auditor " + randStr(8),
		Type:         api.OrganizationTypeCSO,
	}
	MustCreate(ms.DB, &cso)
	csoPO := PurchaseOrder{OrderNumber: randStr(10), AuditorFirmID: cso.ID}
	MustCreate(ms.DB, &csoPO)

	e := NewEngagementFromInput(api.EngagementCreateInput{
		Type:            api.EngagementTypeAudit,
		PartnerID:       partner.ID,
		PurchaseOrderID: csoPO.ID,
		Currency:        "USD",
	}, user, time.Now().UTC())
	err := e.Create(ms.DB, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidationFailed, Category: api.CategoryUser}, err)

	// an item hanging off another firm's purchase order is refused
	_, po, _ := CreateAuditorFirmFixture(ms.DB)
	_, _, strayItem := CreateAuditorFirmFixture(ms.DB)
	strayID := strayItem.ID
	e = NewEngagementFromInput(api.EngagementCreateInput{
		Type:              api.EngagementTypeAudit,
		PartnerID:         partner.ID,
		PurchaseOrderID:   po.ID,
		PurchaseOrderItem: &strayID,
		Currency:          "USD",
	}, user, time.Now().UTC())
	err = e.Create(ms.DB, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidationFailed, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_EngagementLifecycle() {
	_, partner, user := ms.engagementTestFixtures()
	e := CreateEngagementFixture(ms.DB, partner, api.EngagementTypeSpotCheck)
	ms.fillReport(&e, user)

	now := time.Now().UTC()
	ms.NoError(e.Transition(ms.DB, api.EngagementStatusReportSubmitted, "", user, now))
	ms.True(e.DateOfReportSubmit.Valid, "report submission must stamp its date")

	ms.NoError(e.Transition(ms.DB, api.EngagementStatusFinal, "", user, now))
	ms.True(e.DateOfFinalReport.Valid, "finalization must stamp its date")

	// one snapshot per transition plus the report update and the findings
	n, err := CountForTarget(ms.DB, domain.TypeEngagement, e.ID)
	ms.NoError(err)
	ms.Equal(4, n)
}

func (ms *ModelSuite) Test_EngagementTransition_ReportIncomplete() {
	_, partner, user := ms.engagementTestFixtures()
	e := CreateEngagementFixture(ms.DB, partner, api.EngagementTypeSpotCheck)

	now := time.Now().UTC()
	err := e.Transition(ms.DB, api.EngagementStatusReportSubmitted, "", user, now)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)
	report := ms.validationReport(err)
	ms.True(hasValidationCode(report, ValidationCodeTransition))
}

func (ms *ModelSuite) Test_EngagementTransition_AuditNeedsOpinion() {
	_, partner, user := ms.engagementTestFixtures()
	e := CreateEngagementFixture(ms.DB, partner, api.EngagementTypeAudit)
	ms.fillReport(&e, user)

	now := time.Now().UTC()
	err := e.Transition(ms.DB, api.EngagementStatusReportSubmitted, "", user, now)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)

	opinion := api.AuditOpinionQualified
	ms.NoError(e.UpdateFromInput(ms.DB, api.EngagementUpdateInput{AuditOpinion: &opinion}, user))
	ms.NoError(e.Transition(ms.DB, api.EngagementStatusReportSubmitted, "", user, now))
}

func (ms *ModelSuite) Test_EngagementTransition_MicroAssessmentNeedsRiskRating() {
	_, partner, user := ms.engagementTestFixtures()
	e := CreateEngagementFixture(ms.DB, partner, api.EngagementTypeMicroAssessment)
	ms.fillReport(&e, user)

	now := time.Now().UTC()
	err := e.Transition(ms.DB, api.EngagementStatusReportSubmitted, "", user, now)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)

	rating := "medium"
	ms.NoError(e.UpdateFromInput(ms.DB, api.EngagementUpdateInput{OverallRiskRating: &rating}, user))
	ms.NoError(e.Transition(ms.DB, api.EngagementStatusReportSubmitted, "", user, now))
}

func (ms *ModelSuite) Test_EngagementTransition_CancelNeedsComment() {
	_, partner, user := ms.engagementTestFixtures()
	e := CreateEngagementFixture(ms.DB, partner, api.EngagementTypeSpotCheck)

	now := time.Now().UTC()
	err := e.Transition(ms.DB, api.EngagementStatusCancelled, "", user, now)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)

	ms.NoError(e.Transition(ms.DB, api.EngagementStatusCancelled, "partner unreachable", user, now))
	ms.Equal("partner unreachable", e.CancelComment)
	ms.True(e.DateOfCancel.Valid)
}

func (ms *ModelSuite) Test_EngagementTransition_Terminal() {
	_, partner, user := ms.engagementTestFixtures()
	e := CreateEngagementFixture(ms.DB, partner, api.EngagementTypeSpotCheck)

	now := time.Now().UTC()
	ms.NoError(e.Transition(ms.DB, api.EngagementStatusCancelled, "duplicate record", user, now))

	err := e.Transition(ms.DB, api.EngagementStatusReportSubmitted, "", user, now)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)
}

func (ms *ModelSuite) Test_EngagementTransition_RoleGate() {
	country, partner, focal := ms.engagementTestFixtures()
	e := CreateEngagementFixture(ms.DB, partner, api.EngagementTypeSpotCheck)
	ms.fillReport(&e, focal)

	now := time.Now().UTC()

	// the auditor firm can submit the report but cannot finalize
	auditor := CreateUserFixtures(ms.DB, country, 1, RoleAuditorFirmStaff).Users[0]
	ms.NoError(e.Transition(ms.DB, api.EngagementStatusReportSubmitted, "", auditor, now))

	err := e.Transition(ms.DB, api.EngagementStatusFinal, "", auditor, now)
	ms.EqualAppError(api.AppError{Key: api.ErrorTransitionNotAllowed, Category: api.CategoryUser}, err)

	ms.NoError(e.Transition(ms.DB, api.EngagementStatusFinal, "", focal, now))
}

func (ms *ModelSuite) Test_EngagementUpdate_RoleGate() {
	country, partner, focal := ms.engagementTestFixtures()
	e := CreateEngagementFixture(ms.DB, partner, api.EngagementTypeSpotCheck)

	// a plain UNICEF user can view but not edit the report columns
	plain := CreateUserFixtures(ms.DB, country, 1, RoleUnicefUser).Users[0]
	value := decimal.NewFromInt(100)
	err := e.UpdateFromInput(ms.DB, api.EngagementUpdateInput{TotalValue: &value}, plain)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidationFailed, Category: api.CategoryUser}, err)
	report := ms.validationReport(err)
	ms.True(hasValidationCode(report, ValidationCodeRigidField))

	ms.NoError(e.UpdateFromInput(ms.DB, api.EngagementUpdateInput{TotalValue: &value}, focal))
	ms.True(e.TotalValue.Equal(value))
}

func (ms *ModelSuite) Test_EngagementUpdate_FollowUpAfterReport() {
	_, partner, user := ms.engagementTestFixtures()
	e := CreateEngagementFixture(ms.DB, partner, api.EngagementTypeSpotCheck)
	ms.fillReport(&e, user)
	ms.NoError(e.Transition(ms.DB, api.EngagementStatusReportSubmitted, "", user, time.Now().UTC()))

	// after submission the report columns are frozen
	value := decimal.NewFromInt(9000)
	err := e.UpdateFromInput(ms.DB, api.EngagementUpdateInput{TotalValue: &value}, user)
	ms.EqualAppError(api.AppError{Key: api.ErrorValidationFailed, Category: api.CategoryUser}, err)
	report := ms.validationReport(err)
	ms.True(hasValidationCode(report, ValidationCodeRigidField))

	// the follow-up columns stay open to the audit focal point
	refunded := decimal.NewFromInt(250)
	ms.NoError(e.UpdateFromInput(ms.DB, api.EngagementUpdateInput{AmountRefunded: &refunded}, user))
	ms.True(e.AmountRefunded.Equal(refunded))
}

func (ms *ModelSuite) Test_EngagementSetFindings_Replaces() {
	_, partner, user := ms.engagementTestFixtures()
	e := CreateEngagementFixture(ms.DB, partner, api.EngagementTypeSpotCheck)

	ms.NoError(e.SetFindings(ms.DB, user, []api.Finding{
		{Priority: api.FindingPriorityHigh, Category: "financial", Recommendation: "recover"},
		{Priority: api.FindingPriorityLow, Category: "procurement", Recommendation: "re-tender"},
	}))
	e.LoadFindings(ms.DB, true)
	ms.Len(e.Findings, 2)

	ms.NoError(e.SetFindings(ms.DB, user, []api.Finding{
		{Priority: api.FindingPriorityMedium, Category: "reporting", Recommendation: "retrain staff"},
	}))
	e.LoadFindings(ms.DB, true)
	ms.Len(e.Findings, 1)
	ms.Equal(api.FindingPriorityMedium, e.Findings[0].Priority)
}

func (ms *ModelSuite) Test_EngagementAllowedTransitions() {
	_, partner, user := ms.engagementTestFixtures()
	e := CreateEngagementFixture(ms.DB, partner, api.EngagementTypeSpotCheck)

	allowed := e.AllowedTransitions(ms.DB, user)
	ms.Contains(allowed, api.EngagementStatusCancelled)
	// the report is not complete yet
	ms.NotContains(allowed, api.EngagementStatusReportSubmitted)

	ms.fillReport(&e, user)
	allowed = e.AllowedTransitions(ms.DB, user)
	ms.Contains(allowed, api.EngagementStatusReportSubmitted)
}
