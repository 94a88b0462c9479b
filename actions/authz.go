package actions

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gobuffalo/buffalo"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/models"
)

// authableResources maps a path root to a constructor for the document type
// that answers authorization questions about it. Fresh instances per request
// since FindByID loads state into the receiver.
var authableResources = map[string]func() models.Authable{
	domain.TypeAgreement:    func() models.Authable { return &models.Agreement{} },
	domain.TypeIntervention: func() models.Authable { return &models.Intervention{} },
	domain.TypeEngagement:   func() models.Authable { return &models.Engagement{} },
	domain.TypeAmendment:    func() models.Authable { return &models.Amendment{} },
	domain.TypePartner:      func() models.Authable { return &models.Partner{} },
	domain.TypeUser:         func() models.Authable { return &models.User{} },
}

// AuthZ guards document routes. It loads the addressed resource, checks the
// actor against it, and leaves the loaded resource in the context for the
// handler. Roots without a registered Authable do their own checks downstream.
func AuthZ(next buffalo.Handler) buffalo.Handler {
	return func(c buffalo.Context) error {
		user, ok := c.Value(domain.ContextKeyCurrentUser).(models.User)
		if !ok {
			err := errors.New("user must be authenticated to proceed")
			return reportError(c, api.NewAppError(err, api.ErrorNotAuthorized, api.CategoryUnauthorized))
		}

		pathParts := strings.Split(strings.TrimLeft(c.Request().URL.Path, "/"), "/")

		newResource, isAuthable := authableResources[pathParts[0]]
		if !isAuthable {
			return next(c)
		}
		resource := newResource()

		id := c.Param("id")
		if id != "" {
			resourceID, err := uuid.FromString(id)
			if err != nil {
				return reportError(c, api.NewAppError(err, api.ErrorMustBeAValidUUID, api.CategoryUser))
			}

			if err := resource.FindByID(models.Tx(c), resourceID); err != nil {
				appErr := api.NewAppError(err, api.ErrorResourceNotFound, api.CategoryNotFound)
				if domain.IsOtherThanNoRows(err) {
					appErr.Category = api.CategoryInternal
				}
				return reportError(c, appErr)
			}
		}

		var sub models.SubResource
		if len(pathParts) > 2 {
			sub = models.SubResource(pathParts[2])
		}

		var p models.Permission
		switch c.Request().Method {
		case http.MethodGet:
			p = models.PermissionList
			if id != "" {
				p = models.PermissionView
			}
		case http.MethodPost:
			p = models.PermissionCreate
			if id != "" {
				p = models.PermissionUpdate
			}
		case http.MethodPut:
			p = models.PermissionUpdate
		case http.MethodDelete:
			p = models.PermissionDelete
		default:
			p = models.PermissionDenied
		}

		if !resource.IsActorAllowedTo(models.Tx(c), user, p, sub) {
			err := fmt.Errorf("actor not allowed to perform that action on this resource")
			appErr := api.NewAppError(err, api.ErrorNotAuthorized, api.CategoryForbidden)
			newExtra(c, "perms", fmt.Sprintf("%T, %v, %s", resource, p, sub))
			return reportError(c, appErr)
		}

		c.Set(pathParts[0], resource)

		return next(c)
	}
}
