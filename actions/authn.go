package actions

import (
	"errors"
	"fmt"

	"github.com/gobuffalo/buffalo"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/models"
)

// AuthN resolves the bearer token to a user and stores it in the context
func AuthN(next buffalo.Handler) buffalo.Handler {
	return func(c buffalo.Context) error {
		bearerToken := domain.GetBearerTokenFromRequest(c.Request())
		if bearerToken == "" {
			err := errors.New("no bearer token provided")
			return reportError(c, api.NewAppError(err, api.ErrorNotAuthorized, api.CategoryUnauthorized))
		}

		tx := models.Tx(c)

		var userAccessToken models.UserAccessToken
		if err := userAccessToken.FindByBearerToken(tx, bearerToken); err != nil {
			var appErr *api.AppError
			if errors.As(err, &appErr) && appErr.Category == api.CategoryInternal {
				return reportError(c, appErr)
			}
			err = errors.New("invalid bearer token")
			return reportError(c, api.NewAppError(err, api.ErrorNotAuthorized, api.CategoryUnauthorized))
		}

		isExpired, err := userAccessToken.DeleteIfExpired(tx)
		if err != nil {
			return reportError(c, err)
		}

		if isExpired {
			err = errors.New("expired bearer token")
			return reportError(c, api.NewAppError(err, api.ErrorNotAuthorized, api.CategoryUnauthorized))
		}

		user, err := userAccessToken.GetUser(tx)
		if err != nil {
			err = fmt.Errorf("error finding user by access token, %s", err.Error())
			return reportError(c, err)
		}
		c.Set(domain.ContextKeyCurrentUser, user)

		if err := userAccessToken.Bump(tx); err != nil {
			return reportError(c, err)
		}

		newExtra(c, "user_id", user.ID)
		newExtra(c, "email", user.Email)

		return next(c)
	}
}
