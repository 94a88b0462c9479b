package models

import (
	"fmt"
	"time"

	"github.com/gobuffalo/events"
	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

var ValidAgreementTypes = map[api.AgreementType]struct{}{
	api.AgreementTypePCA:  {},
	api.AgreementTypeSSFA: {},
	api.AgreementTypeMOU:  {},
}

var ValidAgreementStatuses = map[api.AgreementStatus]struct{}{
	api.AgreementStatusDraft:      {},
	api.AgreementStatusSigned:     {},
	api.AgreementStatusSuspended:  {},
	api.AgreementStatusTerminated: {},
	api.AgreementStatusEnded:      {},
}

type Agreements []Agreement

// Agreement is a contract between UNICEF and a Partner. Its reference number
// is assigned once at the signed transition and never reissued.
type Agreement struct {
	ID                  uuid.UUID           `db:"id"`
	CountryID           uuid.UUID           `db:"country_id" validate:"required"`
	ReferenceNumber     string              `db:"reference_number"`
	Type                api.AgreementType   `db:"agreement_type" validate:"agreementType"`
	Status              api.AgreementStatus `db:"status" validate:"agreementStatus"`
	PartnerID           uuid.UUID           `db:"partner_id" validate:"required"`
	CountryProgrammeID  nulls.UUID          `db:"country_programme_id"`
	Start               nulls.Time          `db:"start"`
	End                 nulls.Time          `db:"end"`
	SignedByUnicefDate  nulls.Time          `db:"signed_by_unicef_date"`
	SignedByPartnerDate nulls.Time          `db:"signed_by_partner_date"`
	SignedAgreementID   nulls.UUID          `db:"signed_agreement_id"`
	CreatedAt           time.Time           `db:"created_at"`
	UpdatedAt           time.Time           `db:"updated_at"`

	Partner  Partner           `belongs_to:"partner" validate:"-"`
	Officers AgreementOfficers `has_many:"agreement_officers" validate:"-"`
}

type AgreementOfficers []AgreementOfficer

// AgreementOfficer joins an agreement to one partner authorized officer
type AgreementOfficer struct {
	ID          uuid.UUID `db:"id"`
	AgreementID uuid.UUID `db:"agreement_id" validate:"required"`
	UserID      uuid.UUID `db:"user_id" validate:"required"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

// agreementStatusTransitions declares the reachable statuses. This table is
// the single source of transition truth; the metadata surface reads it too.
func agreementStatusTransitions() map[api.AgreementStatus][]api.AgreementStatus {
	return map[api.AgreementStatus][]api.AgreementStatus{
		api.AgreementStatusDraft:     {api.AgreementStatusSigned},
		api.AgreementStatusSigned:    {api.AgreementStatusSuspended, api.AgreementStatusTerminated, api.AgreementStatusEnded},
		api.AgreementStatusSuspended: {api.AgreementStatusSigned, api.AgreementStatusTerminated, api.AgreementStatusEnded},
	}
}

func (a *Agreement) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(a), nil
}

func (o *AgreementOfficer) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(o), nil
}

func (a *Agreement) GetID() uuid.UUID {
	return a.ID
}

func (a *Agreement) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, a, id)
}

// FindLocked loads the agreement under a row lock, serializing writes to it
func (a *Agreement) FindLocked(tx *pop.Connection, id uuid.UUID) error {
	return findLocked(tx, a, "agreements", id)
}

// AllForCountry loads the agreements of one country, oldest first
func (a *Agreements) AllForCountry(tx *pop.Connection, countryID uuid.UUID) error {
	err := tx.Where("country_id = ?", countryID).Order("created_at asc").All(a)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// IsActorAllowedTo implements document-level authorization. Field-level
// authorization is the permission mask's job.
func (a *Agreement) IsActorAllowedTo(tx *pop.Connection, user User, perm Permission, sub SubResource) bool {
	if user.IsService {
		return true
	}
	if user.CountryID != a.CountryID && a.ID != uuid.Nil {
		return false
	}

	switch perm {
	case PermissionView, PermissionList:
		if user.IsUnicefUser(tx) {
			return true
		}
		return a.isPartnerActor(tx, user)
	case PermissionCreate, PermissionUpdate, PermissionDelete:
		return user.HasRole(tx, agreementEditorRoles...)
	default:
		return false
	}
}

func (a *Agreement) isPartnerActor(tx *pop.Connection, user User) bool {
	if !user.OrganizationID.Valid {
		return false
	}
	a.LoadPartner(tx, false)
	return a.Partner.OrganizationID == user.OrganizationID.UUID
}

// NewAgreementFromInput builds a draft agreement for the user's country
func NewAgreementFromInput(input api.AgreementCreateInput, user User) Agreement {
	a := Agreement{
		CountryID: user.CountryID,
		Type:      input.Type,
		Status:    api.AgreementStatusDraft,
		PartnerID: input.PartnerID,
		Start:     domain.NullTimeFromPtr(input.Start),
		End:       domain.NullTimeFromPtr(input.End),
	}
	if input.CountryProgrammeID != nil {
		a.CountryProgrammeID = nulls.NewUUID(*input.CountryProgrammeID)
	}
	return a
}

// Create persists a new draft and records its create snapshot
func (a *Agreement) Create(tx *pop.Connection, user User) error {
	report := api.ValidationReport{}
	a.validateBasics(tx, &report)
	if !report.Finalize().OK {
		return reportError(report, api.ErrorValidationFailed)
	}

	if err := create(tx, a); err != nil {
		return err
	}
	return RecordSnapshot(tx, a.CountryID, domain.TypeAgreement, a.ID,
		api.SnapshotActionCreate, user.ID, rowAdded("", a), "", string(a.Status))
}

// UpdateFromInput applies a partial update under the permission mask. Fields
// outside the mask are rejected, not silently stripped.
func (a *Agreement) UpdateFromInput(tx *pop.Connection, input api.AgreementUpdateInput, user User) error {
	if err := a.FindLocked(tx, a.ID); err != nil {
		return err
	}

	old := *a
	a.applyUpdateInput(tx, input)

	mask := a.permissionMask(tx, user)
	changes := diffScalars("", &old, a)
	changedFields := make([]string, len(changes))
	for i, c := range changes {
		changedFields[i] = c.Path
	}
	if input.AuthorizedOfficers != nil {
		changedFields = append(changedFields, FieldAgreementAuthorizedOfficers)
	}

	report := api.ValidationReport{}
	checkRigidFields(&report, mask, changedFields, nil, false)
	a.validateBasics(tx, &report)
	if !report.Finalize().OK {
		*a = old
		return reportError(report, api.ErrorValidationFailed)
	}

	if err := update(tx, a); err != nil {
		return err
	}
	if input.AuthorizedOfficers != nil {
		if err := a.setOfficers(tx, *input.AuthorizedOfficers); err != nil {
			return err
		}
	}
	if len(changedFields) == 0 {
		return nil
	}
	return RecordSnapshot(tx, a.CountryID, domain.TypeAgreement, a.ID,
		api.SnapshotActionUpdate, user.ID, changes, "", "")
}

func (a *Agreement) applyUpdateInput(tx *pop.Connection, input api.AgreementUpdateInput) {
	if input.CountryProgrammeID != nil {
		a.CountryProgrammeID = nulls.NewUUID(*input.CountryProgrammeID)
	}
	if input.Start != nil {
		a.Start = nulls.NewTime(*input.Start)
	}
	if input.End != nil {
		a.End = nulls.NewTime(*input.End)
	}
	if input.SignedByUnicefDate != nil {
		a.SignedByUnicefDate = nulls.NewTime(*input.SignedByUnicefDate)
	}
	if input.SignedByPartnerDate != nil {
		a.SignedByPartnerDate = nulls.NewTime(*input.SignedByPartnerDate)
	}
	if input.SignedAgreementID != nil {
		a.SignedAgreementID = nulls.NewUUID(*input.SignedAgreementID)
	}
}

func (a *Agreement) setOfficers(tx *pop.Connection, userIDs []uuid.UUID) error {
	var existing AgreementOfficers
	if err := tx.Where("agreement_id = ?", a.ID).All(&existing); err != nil {
		return appErrorFromDB(err, api.ErrorQueryFailure)
	}
	for _, officer := range existing {
		o := officer
		if err := destroy(tx, &o); err != nil {
			return err
		}
	}
	for _, id := range userIDs {
		officer := AgreementOfficer{AgreementID: a.ID, UserID: id}
		if err := create(tx, &officer); err != nil {
			return err
		}
	}
	a.Officers = nil
	return nil
}

// validateBasics runs the always-on rules for any save
func (a *Agreement) validateBasics(tx *pop.Connection, report *api.ValidationReport) {
	var partner Partner
	if err := partner.FindByID(tx, a.PartnerID); err != nil {
		report.Add(ValidationCodeFailed, FieldAgreementPartner, "partner not found")
		return
	}
	if partner.CountryID != a.CountryID {
		report.Add(ValidationCodeFailed, FieldAgreementPartner, "partner belongs to another country")
	}
	if partner.Deleted || partner.Blocked {
		report.Add(ValidationCodeFailed, FieldAgreementPartner, "partner is blocked or deleted")
	}

	partner.LoadOrganization(tx, false)
	if a.Type == api.AgreementTypePCA || a.Type == api.AgreementTypeSSFA {
		if partner.Organization.Type != api.OrganizationTypeCSO {
			report.Add(ValidationCodeFailed, FieldAgreementType,
				fmt.Sprintf("%s agreements require a CSO partner", a.Type))
		}
	}

	if a.Type == api.AgreementTypePCA && a.CountryProgrammeID.Valid {
		a.checkOnePCAPerProgramme(tx, report)
	}

	if a.Start.Valid && a.End.Valid && a.End.Time.Before(a.Start.Time) {
		report.Add(ValidationCodeFailed, FieldAgreementEnd, "end date is before start date")
	}
}

// one live PCA per (partner, country programme)
func (a *Agreement) checkOnePCAPerProgramme(tx *pop.Connection, report *api.ValidationReport) {
	n, err := tx.Where(
		"partner_id = ? AND country_programme_id = ? AND agreement_type = ? AND id != ? AND status IN (?, ?)",
		a.PartnerID, a.CountryProgrammeID.UUID, api.AgreementTypePCA, a.ID,
		api.AgreementStatusDraft, api.AgreementStatusSigned).Count(&Agreement{})
	if err != nil {
		panic("database error counting PCAs, " + err.Error())
	}
	if n > 0 {
		report.Add(ValidationCodeFailed, FieldAgreementType,
			"partner already has a PCA for this country programme")
	}
}

// Transition moves the agreement to a new status after running the transition
// predicates. The caller holds the row lock.
func (a *Agreement) Transition(tx *pop.Connection, to api.AgreementStatus, reason string, user User) error {
	if err := a.FindLocked(tx, a.ID); err != nil {
		return err
	}
	from := a.Status

	report := api.ValidationReport{}
	if !statusReachable(agreementStatusTransitions(), from, to) {
		transitionError(&report, string(from), string(to), "transition not declared")
		return reportError(report.Finalize(), api.ErrorTransitionNotAllowed)
	}

	a.validateTransition(tx, to, reason, user, &report)
	if !report.Finalize().OK {
		return reportError(report, api.ErrorTransitionNotAllowed)
	}

	if to == api.AgreementStatusSigned && a.ReferenceNumber == "" {
		if err := a.assignReferenceNumber(tx); err != nil {
			return err
		}
	}

	a.Status = to
	if err := update(tx, a); err != nil {
		return err
	}
	if err := RecordSnapshot(tx, a.CountryID, domain.TypeAgreement, a.ID,
		api.SnapshotActionTransition, user.ID, nil, string(from), string(to)); err != nil {
		return err
	}

	a.emitTransitionEvent(to)
	return nil
}

func (a *Agreement) validateTransition(tx *pop.Connection, to api.AgreementStatus, reason string,
	user User, report *api.ValidationReport) {

	if !user.IsService && !user.HasRole(tx, agreementEditorRoles...) {
		transitionError(report, string(a.Status), string(to), "caller's role cannot request this transition")
		return
	}

	switch to {
	case api.AgreementStatusSigned:
		if !a.SignedByUnicefDate.Valid || !a.SignedByPartnerDate.Valid {
			transitionError(report, string(a.Status), string(to), "both signature dates are required")
		}
		if !a.SignedAgreementID.Valid {
			transitionError(report, string(a.Status), string(to), "signed agreement attachment is required")
		}
		a.validateBasics(tx, report)
	case api.AgreementStatusSuspended, api.AgreementStatusTerminated:
		if reason == "" {
			transitionError(report, string(a.Status), string(to), "a reason is required")
		}
	case api.AgreementStatusEnded:
		if !a.End.Valid || !a.End.Time.Before(time.Now().UTC()) {
			transitionError(report, string(a.Status), string(to), "end date has not passed")
		}
	}
}

func (a *Agreement) assignReferenceNumber(tx *pop.Connection) error {
	var country Country
	if err := country.FindByID(tx, a.CountryID); err != nil {
		return err
	}
	year := time.Now().UTC().Year()
	if a.SignedByUnicefDate.Valid {
		year = a.SignedByUnicefDate.Time.Year()
	}
	ref, err := NextReferenceNumber(tx, country, string(a.Type), year)
	if err != nil {
		return err
	}
	a.ReferenceNumber = ref
	return nil
}

func (a *Agreement) emitTransitionEvent(to api.AgreementStatus) {
	kinds := map[api.AgreementStatus]string{
		api.AgreementStatusSigned:     domain.EventApiAgreementSigned,
		api.AgreementStatusSuspended:  domain.EventApiAgreementSuspended,
		api.AgreementStatusTerminated: domain.EventApiAgreementTerminated,
		api.AgreementStatusEnded:      domain.EventApiAgreementEnded,
	}
	if kind, ok := kinds[to]; ok {
		emitEvent(events.Event{
			Kind:    kind,
			Message: "agreement status change",
			Payload: events.Payload{domain.EventPayloadID: a.ID},
		})
	}
}

// AllowedTransitions lists the statuses this user could move the agreement
// into, by asking the same table and predicates the transition path uses.
func (a *Agreement) AllowedTransitions(tx *pop.Connection, user User) []api.AgreementStatus {
	out := []api.AgreementStatus{}
	for _, to := range agreementStatusTransitions()[a.Status] {
		report := api.ValidationReport{}
		a.validateTransition(tx, to, "transition preview", user, &report)
		if report.Finalize().OK {
			out = append(out, to)
		}
	}
	return out
}

func (a *Agreement) permissionMask(tx *pop.Connection, user User) PermissionMask {
	return PermissionMaskFor(domain.TypeAgreement, string(a.Status), user.RoleNames(tx), PermContext{
		UserID:          user.ID.String(),
		SignedByUnicef:  a.SignedByUnicefDate.Valid,
		SignedByPartner: a.SignedByPartnerDate.Valid,
	})
}

// LoadPartner hydrates the Partner relation unless already loaded
func (a *Agreement) LoadPartner(tx *pop.Connection, reload bool) {
	if a.Partner.ID == uuid.Nil || reload {
		if err := tx.Load(a, "Partner"); err != nil {
			panic("database error loading agreement partner, " + err.Error())
		}
	}
}

// LoadOfficers hydrates the Officers relation unless already loaded
func (a *Agreement) LoadOfficers(tx *pop.Connection, reload bool) {
	if len(a.Officers) == 0 || reload {
		if err := tx.Where("agreement_id = ?", a.ID).All(&a.Officers); err != nil {
			panic("database error loading agreement officers, " + err.Error())
		}
	}
}

// OfficerUsers loads the users behind the agreement's authorized officers
func (a *Agreement) OfficerUsers(tx *pop.Connection) (Users, error) {
	a.LoadOfficers(tx, true)
	ids := make([]uuid.UUID, len(a.Officers))
	for i, o := range a.Officers {
		ids[i] = o.UserID
	}
	var users Users
	err := users.AllByIDs(tx, ids)
	return users, err
}

// ConvertToAPI applies the view mask and adds the computed metadata fields
func (a *Agreement) ConvertToAPI(tx *pop.Connection, user User) api.Agreement {
	a.LoadOfficers(tx, false)
	officers := make([]uuid.UUID, len(a.Officers))
	for i, o := range a.Officers {
		officers[i] = o.UserID
	}

	mask := a.permissionMask(tx, user)
	out := api.Agreement{
		ID:                  a.ID,
		ReferenceNumber:     a.ReferenceNumber,
		Type:                a.Type,
		Status:              a.Status,
		PartnerID:           a.PartnerID,
		Start:               domain.TimePtr(a.Start),
		End:                 domain.TimePtr(a.End),
		SignedByUnicefDate:  domain.TimePtr(a.SignedByUnicefDate),
		SignedByPartnerDate: domain.TimePtr(a.SignedByPartnerDate),
		AuthorizedOfficers:  officers,
		AllowedTransitions:  a.AllowedTransitions(tx, user),
		EditableFields:      mask.EditableFields(),
		RequiredFields:      mask.RequiredFields(),
	}
	if a.CountryProgrammeID.Valid {
		id := a.CountryProgrammeID.UUID
		out.CountryProgrammeID = &id
	}
	if a.SignedAgreementID.Valid {
		id := a.SignedAgreementID.UUID
		out.SignedAgreementID = &id
	}
	return out
}

// statusReachable consults a transition table
func statusReachable[S comparable](table map[S][]S, from, to S) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}
