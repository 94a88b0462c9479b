package actions

import (
	"net/http"

	"github.com/equitrack/partnership-api/models"
)

func (as *ActionSuite) Test_AuthN_MissingToken() {
	res := as.JSON("/users/me").Get()
	as.Equal(http.StatusUnauthorized, res.Code)
}

func (as *ActionSuite) Test_AuthN_InvalidToken() {
	req := as.JSON("/users/me")
	req.Headers["Authorization"] = "Bearer not-a-real-token"
	res := req.Get()
	as.Equal(http.StatusUnauthorized, res.Code)
}

func (as *ActionSuite) Test_AuthN_ValidToken() {
	country := models.CreateCountryFixture(as.DB)
	user := models.CreateUserFixtures(as.DB, country, 1, models.RoleUnicefUser).Users[0]

	res := as.authedJSON(user, "/users/me").Get()
	as.Equal(http.StatusOK, res.Code)
	as.verifyResponseData([]string{user.Email}, res.Body.String(), "users me")
}

func (as *ActionSuite) Test_AuthZ_Forbidden() {
	country := models.CreateCountryFixture(as.DB)
	auditor := models.CreateUserFixtures(as.DB, country, 1, models.RoleAuditorFirmStaff).Users[0]

	res := as.authedJSON(auditor, "/agreements").Get()
	as.Equal(http.StatusForbidden, res.Code)
}
