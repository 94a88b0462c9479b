package actions

import (
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/models"
)

func (as *ActionSuite) interventionFixtures() (models.Agreement, models.User) {
	country, cp, partner, user := as.agreementFixtures()
	agreement := models.CreateAgreementFixture(as.DB, country, partner, cp)
	return agreement, user
}

func (as *ActionSuite) Test_InterventionsCreate() {
	agreement, user := as.interventionFixtures()
	now := time.Now().UTC()
	start := now.AddDate(0, 1, 0)
	end := now.AddDate(1, 0, 0)

	input := api.InterventionCreateInput{
		DocumentType: api.InterventionTypePD,
		Title:        "Community health programme",
		AgreementID:  agreement.ID,
		Currency:     "KES",
		Start:        &start,
		End:          &end,
	}
	res := as.authedJSON(user, "/interventions").Post(input)
	as.Equal(http.StatusOK, res.Code)
	as.verifyResponseData([]string{string(api.InterventionStatusDraft), "KES"},
		res.Body.String(), "interventions create")
}

func (as *ActionSuite) Test_InterventionsTransition_NotAllowed() {
	agreement, user := as.interventionFixtures()
	now := time.Now().UTC()
	doc := models.CreateInterventionFixture(as.DB, agreement, user,
		now.AddDate(0, 0, -30), now.AddDate(0, 0, 120))

	// no funds reservation claimed yet
	input := api.TransitionInput{To: string(api.InterventionStatusReview)}
	res := as.authedJSON(user, fmt.Sprintf("/interventions/%s/transition", doc.ID)).Post(input)
	as.Equal(http.StatusBadRequest, res.Code)
	as.Contains(res.Body.String(), string(api.ErrorTransitionNotAllowed))
}

func (as *ActionSuite) Test_InterventionsClaimFundsReservation() {
	agreement, user := as.interventionFixtures()
	now := time.Now().UTC()
	doc := models.CreateInterventionFixture(as.DB, agreement, user,
		now.AddDate(0, 0, -30), now.AddDate(0, 0, 120))

	frs := models.FundsReservation{
		FrNumber:        "FR-2026-0001",
		VendorCode:      "V0001",
		Currency:        "USD",
		TotalAmt:        decimal.NewFromInt(1000),
		InterventionAmt: decimal.NewFromInt(1000),
		OutstandingAmt:  decimal.NewFromInt(1000),
	}
	models.MustCreate(as.DB, &frs)

	input := api.FundsReservationClaimInput{FrNumber: frs.FrNumber}
	res := as.authedJSON(user, fmt.Sprintf("/interventions/%s/funds-reservations", doc.ID)).Post(input)
	as.Equal(http.StatusOK, res.Code)
	as.Contains(res.Body.String(), frs.FrNumber)
}

func (as *ActionSuite) Test_InterventionsAmendFlow() {
	agreement, user := as.interventionFixtures()
	now := time.Now().UTC()
	doc := models.CreateInterventionFixture(as.DB, agreement, user,
		now.AddDate(0, 0, -60), now.AddDate(0, 0, 120))
	models.CreateResultTreeFixture(as.DB, doc, decimal.NewFromInt(1000))
	doc.Status = api.InterventionStatusSigned
	models.MustUpdate(as.DB, &doc)

	input := api.AmendmentCreateInput{Types: []api.AmendmentType{api.AmendmentTypeBudget}}
	res := as.authedJSON(user, fmt.Sprintf("/interventions/%s/amend", doc.ID)).Post(input)
	as.Equal(http.StatusOK, res.Code)
	as.Contains(res.Body.String(), string(api.AmendmentTypeBudget))

	res = as.authedJSON(user, fmt.Sprintf("/interventions/%s/amendments", doc.ID)).Get()
	as.Equal(http.StatusOK, res.Code)
	as.Contains(res.Body.String(), string(api.AmendmentKindNormal))
}
