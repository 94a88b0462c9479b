package actions

import (
	"fmt"
	"net/http"
	"time"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/models"
)

func (as *ActionSuite) agreementFixtures() (models.Country, models.CountryProgramme, models.Partner, models.User) {
	country := models.CreateCountryFixture(as.DB)
	now := time.Now().UTC()
	cp := models.CreateCountryProgrammeFixture(as.DB, country, now.AddDate(-1, 0, 0), now.AddDate(2, 0, 0))
	partner := models.CreatePartnerFixture(as.DB, country)
	user := models.CreateUserFixtures(as.DB, country, 1,
		models.RoleUnicefUser, models.RolePartnershipManager).Users[0]
	return country, cp, partner, user
}

func (as *ActionSuite) Test_AgreementsList() {
	country, cp, partner, user := as.agreementFixtures()
	agreement := models.CreateAgreementFixture(as.DB, country, partner, cp)

	// another country's agreement stays out of the caller's list
	otherCountry := models.CreateCountryFixture(as.DB)
	otherCP := models.CreateCountryProgrammeFixture(as.DB, otherCountry,
		cp.FromDate, cp.ToDate)
	foreign := models.CreateAgreementFixture(as.DB, otherCountry,
		models.CreatePartnerFixture(as.DB, otherCountry), otherCP)

	res := as.authedJSON(user, "/agreements").Get()
	as.Equal(http.StatusOK, res.Code)

	body := res.Body.String()
	as.Contains(body, agreement.ID.String())
	as.NotContains(body, foreign.ID.String())
}

func (as *ActionSuite) Test_AgreementsCreate() {
	_, cp, partner, user := as.agreementFixtures()

	input := api.AgreementCreateInput{
		Type:               api.AgreementTypePCA,
		PartnerID:          partner.ID,
		CountryProgrammeID: &cp.ID,
		Start:              &cp.FromDate,
		End:                &cp.ToDate,
	}
	res := as.authedJSON(user, "/agreements").Post(input)
	as.Equal(http.StatusOK, res.Code)
	as.verifyResponseData([]string{string(api.AgreementStatusDraft), partner.ID.String()},
		res.Body.String(), "agreements create")
}

func (as *ActionSuite) Test_AgreementsCreate_EditorRoleRequired() {
	country, cp, partner, _ := as.agreementFixtures()
	plain := models.CreateUserFixtures(as.DB, country, 1, models.RoleUnicefUser).Users[0]

	input := api.AgreementCreateInput{
		Type:               api.AgreementTypePCA,
		PartnerID:          partner.ID,
		CountryProgrammeID: &cp.ID,
		Start:              &cp.FromDate,
		End:                &cp.ToDate,
	}
	res := as.authedJSON(plain, "/agreements").Post(input)
	as.Equal(http.StatusForbidden, res.Code)
}

func (as *ActionSuite) Test_AgreementsView() {
	country, cp, partner, user := as.agreementFixtures()
	agreement := models.CreateAgreementFixture(as.DB, country, partner, cp)

	res := as.authedJSON(user, fmt.Sprintf("/agreements/%s", agreement.ID)).Get()
	as.Equal(http.StatusOK, res.Code)
	as.verifyResponseData([]string{agreement.ID.String()}, res.Body.String(), "agreements view")
}

func (as *ActionSuite) Test_AgreementsView_NotFound() {
	_, _, _, user := as.agreementFixtures()

	res := as.authedJSON(user, fmt.Sprintf("/agreements/%s", domain.GetUUID())).Get()
	as.Equal(http.StatusNotFound, res.Code)
}

func (as *ActionSuite) Test_AgreementsTransition() {
	country, cp, partner, user := as.agreementFixtures()
	agreement := models.CreateAgreementFixture(as.DB, country, partner, cp)

	input := api.TransitionInput{To: string(api.AgreementStatusSuspended), Reason: "late reporting"}
	res := as.authedJSON(user, fmt.Sprintf("/agreements/%s/transition", agreement.ID)).Post(input)
	as.Equal(http.StatusOK, res.Code)
	as.Contains(res.Body.String(), string(api.AgreementStatusSuspended))
}

func (as *ActionSuite) Test_AgreementsTransition_NotAllowed() {
	country, cp, partner, user := as.agreementFixtures()
	agreement := models.CreateAgreementFixture(as.DB, country, partner, cp)

	// the end date has not passed
	input := api.TransitionInput{To: string(api.AgreementStatusEnded)}
	res := as.authedJSON(user, fmt.Sprintf("/agreements/%s/transition", agreement.ID)).Post(input)
	as.Equal(http.StatusBadRequest, res.Code)
	as.Contains(res.Body.String(), string(api.ErrorTransitionNotAllowed))
}

func (as *ActionSuite) Test_AgreementsSnapshots() {
	country, cp, partner, user := as.agreementFixtures()
	agreement := models.CreateAgreementFixture(as.DB, country, partner, cp)
	as.NoError(agreement.Transition(as.DB, api.AgreementStatusSuspended, "late reporting", user))

	res := as.authedJSON(user, fmt.Sprintf("/agreements/%s/snapshots", agreement.ID)).Get()
	as.Equal(http.StatusOK, res.Code)
	as.Contains(res.Body.String(), string(api.SnapshotActionTransition))
}
