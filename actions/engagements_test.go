package actions

import (
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/models"
)

func (as *ActionSuite) engagementFixtures() (models.Partner, models.User) {
	country := models.CreateCountryFixture(as.DB)
	partner := models.CreatePartnerFixture(as.DB, country)
	focal := models.CreateUserFixtures(as.DB, country, 1,
		models.RoleUnicefUser, models.RoleUnicefAuditFocalPoint).Users[0]
	return partner, focal
}

func (as *ActionSuite) Test_EngagementsCreate() {
	partner, focal := as.engagementFixtures()
	_, po, _ := models.CreateAuditorFirmFixture(as.DB)

	input := api.EngagementCreateInput{
		Type:            api.EngagementTypeSpotCheck,
		PartnerID:       partner.ID,
		PurchaseOrderID: po.ID,
		Currency:        "USD",
	}
	res := as.authedJSON(focal, "/engagements").Post(input)
	as.Equal(http.StatusOK, res.Code)
	as.verifyResponseData([]string{string(api.EngagementStatusPartnerContacted), partner.ID.String()},
		res.Body.String(), "engagements create")
}

func (as *ActionSuite) Test_EngagementsUpdateAndFindings() {
	partner, focal := as.engagementFixtures()
	e := models.CreateEngagementFixture(as.DB, partner, api.EngagementTypeSpotCheck)

	rate := decimal.NewFromInt(1)
	value := decimal.NewFromInt(5000)
	update := api.EngagementUpdateInput{ExchangeRate: &rate, TotalValue: &value}
	res := as.authedJSON(focal, fmt.Sprintf("/engagements/%s", e.ID)).Put(update)
	as.Equal(http.StatusOK, res.Code)

	findings := []api.Finding{
		{Priority: api.FindingPriorityHigh, Category: "financial", Recommendation: "recover the balance"},
	}
	res = as.authedJSON(focal, fmt.Sprintf("/engagements/%s/findings", e.ID)).Put(findings)
	as.Equal(http.StatusOK, res.Code)

	// the report is complete, submission goes through
	input := api.TransitionInput{To: string(api.EngagementStatusReportSubmitted)}
	res = as.authedJSON(focal, fmt.Sprintf("/engagements/%s/transition", e.ID)).Post(input)
	as.Equal(http.StatusOK, res.Code)
	as.Contains(res.Body.String(), string(api.EngagementStatusReportSubmitted))
}

func (as *ActionSuite) Test_EngagementsTransition_CancelNeedsComment() {
	partner, focal := as.engagementFixtures()
	e := models.CreateEngagementFixture(as.DB, partner, api.EngagementTypeSpotCheck)

	input := api.TransitionInput{To: string(api.EngagementStatusCancelled)}
	res := as.authedJSON(focal, fmt.Sprintf("/engagements/%s/transition", e.ID)).Post(input)
	as.Equal(http.StatusBadRequest, res.Code)

	input.Reason = "partner unreachable"
	res = as.authedJSON(focal, fmt.Sprintf("/engagements/%s/transition", e.ID)).Post(input)
	as.Equal(http.StatusOK, res.Code)
	as.Contains(res.Body.String(), string(api.EngagementStatusCancelled))
}
