package models

import (
	"strings"
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
)

// Role names the groups a user can hold. Order of precedence per document type
// is declared in the permission tables, not here.
type Role string

const (
	RoleUnicefUser               = Role("unicef_user")
	RolePartnershipManager       = Role("partnership_manager")
	RolePartnershipManagerSenior = Role("partnership_manager_senior")
	RoleSeniorManagement         = Role("senior_management")
	RolePRCReviewer              = Role("prc_reviewer")
	RoleRepresentativeOffice     = Role("representative_office")
	RolePartnerAuthorizedOfficer = Role("partner_authorized_officer")
	RolePartnerFocalPoint        = Role("partner_focal_point")
	RoleAuditorFirmStaff         = Role("auditor_firm_staff")
	RoleUnicefAuditFocalPoint    = Role("unicef_audit_focal_point")
)

var validRoles = map[Role]struct{}{
	RoleUnicefUser:               {},
	RolePartnershipManager:       {},
	RolePartnershipManagerSenior: {},
	RoleSeniorManagement:         {},
	RolePRCReviewer:              {},
	RoleRepresentativeOffice:     {},
	RolePartnerAuthorizedOfficer: {},
	RolePartnerFocalPoint:        {},
	RoleAuditorFirmStaff:         {},
	RoleUnicefAuditFocalPoint:    {},
}

type Users []User

// User is the local projection of a directory entry. The identity provider is
// external; this table only carries what the state engines need.
type User struct {
	ID             uuid.UUID  `db:"id"`
	Email          string     `db:"email" validate:"required,email"`
	FirstName      string     `db:"first_name"`
	LastName       string     `db:"last_name"`
	CountryID      uuid.UUID  `db:"country_id" validate:"required"`
	OrganizationID nulls.UUID `db:"organization_id"`
	IsService      bool       `db:"is_service"`
	CreatedAt      time.Time  `db:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at"`

	Roles UserRoles `has_many:"user_roles" validate:"-"`
}

type UserRoles []UserRole

type UserRole struct {
	ID        uuid.UUID `db:"id"`
	UserID    uuid.UUID `db:"user_id" validate:"required"`
	Role      Role      `db:"role" validate:"appRole"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Validate gets run every time you call a "pop.Validate*" method.
func (u *User) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(u), nil
}

func (u *UserRole) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(u), nil
}

func (u *User) Create(tx *pop.Connection) error {
	u.Email = strings.ToLower(u.Email)
	return create(tx, u)
}

func (u *User) Update(tx *pop.Connection) error {
	return update(tx, u)
}

func (u *User) GetID() uuid.UUID {
	return u.ID
}

func (u *User) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, u, id)
}

// IsActorAllowedTo implements document-level authorization. Users may only
// read their own record.
func (u *User) IsActorAllowedTo(tx *pop.Connection, user User, perm Permission, sub SubResource) bool {
	switch perm {
	case PermissionView:
		return u.ID == user.ID
	default:
		return false
	}
}

func (u *User) FindByEmail(tx *pop.Connection, email string) error {
	err := tx.Where("email = ?", strings.ToLower(email)).First(u)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// Name joins the user's first and last names
func (u *User) Name() string {
	return strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
}

// LoadRoles hydrates the Roles relation unless already loaded
func (u *User) LoadRoles(tx *pop.Connection, reload bool) {
	if len(u.Roles) == 0 || reload {
		if err := tx.Where("user_id = ?", u.ID).All(&u.Roles); err != nil {
			panic("database error loading user roles, " + err.Error())
		}
	}
}

// HasRole reports whether the user holds any of the given roles
func (u *User) HasRole(tx *pop.Connection, roles ...Role) bool {
	u.LoadRoles(tx, false)
	for _, have := range u.Roles {
		for _, want := range roles {
			if have.Role == want {
				return true
			}
		}
	}
	return false
}

// RoleNames returns the user's roles as a plain slice
func (u *User) RoleNames(tx *pop.Connection) []Role {
	u.LoadRoles(tx, false)
	names := make([]Role, len(u.Roles))
	for i, r := range u.Roles {
		names[i] = r.Role
	}
	return names
}

// IsUnicefUser reports whether the user belongs to UNICEF rather than a partner
// or auditor organization.
func (u *User) IsUnicefUser(tx *pop.Connection) bool {
	return u.HasRole(tx, RoleUnicefUser, RolePartnershipManager, RolePartnershipManagerSenior,
		RoleSeniorManagement, RolePRCReviewer, RoleRepresentativeOffice, RoleUnicefAuditFocalPoint)
}

// AddRole grants a role if not already held
func (u *User) AddRole(tx *pop.Connection, role Role) error {
	if u.HasRole(tx, role) {
		return nil
	}
	ur := UserRole{UserID: u.ID, Role: role}
	if err := create(tx, &ur); err != nil {
		return err
	}
	u.LoadRoles(tx, true)
	return nil
}

// AllByIDs loads the given users, silently skipping unknown IDs
func (u *Users) AllByIDs(tx *pop.Connection, ids []uuid.UUID) error {
	if len(ids) == 0 {
		*u = Users{}
		return nil
	}
	err := tx.Where("id in (?)", ids).All(u)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// AllWithRole loads the users of one country holding the given role
func (u *Users) AllWithRole(tx *pop.Connection, countryID uuid.UUID, role Role) error {
	err := tx.Where("country_id = ? AND id IN (SELECT user_id FROM user_roles WHERE role = ?)",
		countryID, role).All(u)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// ConvertToAPI turns the model into its wire representation
func (u *User) ConvertToAPI(tx *pop.Connection) api.User {
	roles := u.RoleNames(tx)
	roleNames := make([]string, len(roles))
	for i, r := range roles {
		roleNames[i] = string(r)
	}

	out := api.User{
		ID:        u.ID,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		CountryID: u.CountryID,
		Roles:     roleNames,
	}
	if u.OrganizationID.Valid {
		id := u.OrganizationID.UUID
		out.OrganizationID = &id
	}
	return out
}

// GetServiceUser returns the system actor used by background jobs
func GetServiceUser(tx *pop.Connection) User {
	var u User
	if err := tx.Where("is_service = true").First(&u); err != nil {
		panic("no service user found, " + err.Error())
	}
	return u
}
