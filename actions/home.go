package actions

import (
	"fmt"

	"github.com/gobuffalo/buffalo"

	"github.com/equitrack/partnership-api/domain"
)

// HomeHandler serves an unauthenticated liveness message
func HomeHandler(c buffalo.Context) error {
	message := fmt.Sprintf("Welcome to the %s Partnership API", domain.Env.AppName)
	return renderOk(c, map[string]string{"message": message})
}
