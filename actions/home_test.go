package actions

import (
	"net/http"

	"github.com/equitrack/partnership-api/domain"
)

func (as *ActionSuite) Test_HomeHandler() {
	res := as.JSON("/").Get()

	as.Equal(http.StatusOK, res.Code)
	as.Contains(res.Body.String(), domain.Env.AppName)
}
