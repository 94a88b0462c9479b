package api

import (
	"github.com/gofrs/uuid"
)

// User is the wire representation of the authenticated user
// swagger:model
type User struct {
	ID             uuid.UUID  `json:"id"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	CountryID      uuid.UUID  `json:"country_id"`
	OrganizationID *uuid.UUID `json:"organization_id,omitempty"`
	Roles          []string   `json:"roles"`
}
