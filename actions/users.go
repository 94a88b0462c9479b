package actions

import (
	"github.com/gobuffalo/buffalo"

	"github.com/equitrack/partnership-api/models"
)

// usersMe returns the authenticated user's own record
func usersMe(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)
	return renderOk(c, user.ConvertToAPI(tx))
}
