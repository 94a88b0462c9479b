package models

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gobuffalo/events"
	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/fin"
	"github.com/equitrack/partnership-api/log"
)

var ValidInterventionDocumentTypes = map[api.InterventionDocumentType]struct{}{
	api.InterventionTypePD:   {},
	api.InterventionTypeSSFA: {},
}

var ValidInterventionStatuses = map[api.InterventionStatus]struct{}{
	api.InterventionStatusDevelopment: {},
	api.InterventionStatusDraft:       {},
	api.InterventionStatusReview:      {},
	api.InterventionStatusSignature:   {},
	api.InterventionStatusSigned:      {},
	api.InterventionStatusActive:      {},
	api.InterventionStatusEnded:       {},
	api.InterventionStatusImplemented: {},
	api.InterventionStatusClosed:      {},
	api.InterventionStatusSuspended:   {},
	api.InterventionStatusTerminated:  {},
	api.InterventionStatusCancelled:   {},
	api.InterventionStatusExpired:     {},
}

// Focal point kinds on the intervention join table
const (
	FocalPointKindUnicef  = "unicef"
	FocalPointKindPartner = "partner"
)

type Interventions []Intervention

// Intervention is a PD or SSFA under an agreement. Amendment copies are
// ordinary rows with origin_id pointing at the live document.
type Intervention struct {
	ID              uuid.UUID                    `db:"id"`
	CountryID       uuid.UUID                    `db:"country_id" validate:"required"`
	ReferenceNumber string                       `db:"reference_number"`
	DocumentType    api.InterventionDocumentType `db:"document_type" validate:"documentType"`
	Title           string                       `db:"title" validate:"required"`
	Status          api.InterventionStatus       `db:"status" validate:"interventionStatus"`
	AgreementID     uuid.UUID                    `db:"agreement_id" validate:"required"`
	OriginID        nulls.UUID                   `db:"origin_id"`

	Start               nulls.Time `db:"start"`
	End                 nulls.Time `db:"end"`
	DateSentToPartner   nulls.Time `db:"date_sent_to_partner"`
	SignedByUnicefDate  nulls.Time `db:"signed_by_unicef_date"`
	SignedByPartnerDate nulls.Time `db:"signed_by_partner_date"`

	SignedPDAttachmentID    nulls.UUID `db:"signed_pd_attachment_id"`
	PRCReviewAttachmentID   nulls.UUID `db:"prc_review_attachment_id"`
	TerminationAttachmentID nulls.UUID `db:"termination_attachment_id"`
	FinalReviewAttachmentID nulls.UUID `db:"final_review_attachment_id"`

	UnicefCourt            bool   `db:"unicef_court"`
	InAmendment            bool   `db:"in_amendment"`
	ContingencyPD          bool   `db:"contingency_pd"`
	CashTransferModalities string `db:"cash_transfer_modalities"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Agreement   Agreement               `belongs_to:"agreement" validate:"-"`
	FocalPoints InterventionFocalPoints `has_many:"intervention_focal_points" validate:"-"`
}

type InterventionFocalPoints []InterventionFocalPoint

// InterventionFocalPoint joins an intervention to one focal point user
type InterventionFocalPoint struct {
	ID             uuid.UUID `db:"id"`
	InterventionID uuid.UUID `db:"intervention_id" validate:"required"`
	UserID         uuid.UUID `db:"user_id" validate:"required"`
	Kind           string    `db:"kind" validate:"required"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// interventionStatusTransitions declares the reachable statuses. The single
// source of transition truth; AllowedTransitions reads the same table.
func interventionStatusTransitions() map[api.InterventionStatus][]api.InterventionStatus {
	return map[api.InterventionStatus][]api.InterventionStatus{
		api.InterventionStatusDevelopment: {api.InterventionStatusDraft, api.InterventionStatusCancelled, api.InterventionStatusExpired},
		api.InterventionStatusDraft:       {api.InterventionStatusReview, api.InterventionStatusCancelled},
		api.InterventionStatusReview:      {api.InterventionStatusDraft, api.InterventionStatusSignature, api.InterventionStatusCancelled},
		api.InterventionStatusSignature:   {api.InterventionStatusSigned, api.InterventionStatusCancelled},
		api.InterventionStatusSigned:      {api.InterventionStatusActive, api.InterventionStatusSuspended, api.InterventionStatusTerminated},
		api.InterventionStatusActive:      {api.InterventionStatusEnded, api.InterventionStatusSuspended, api.InterventionStatusTerminated},
		api.InterventionStatusSuspended:   {api.InterventionStatusActive, api.InterventionStatusTerminated},
		api.InterventionStatusEnded:       {api.InterventionStatusImplemented, api.InterventionStatusClosed},
		api.InterventionStatusImplemented: {api.InterventionStatusClosed},
	}
}

func (i *Intervention) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(i), nil
}

func (fp *InterventionFocalPoint) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(fp), nil
}

func (i *Intervention) GetID() uuid.UUID {
	return i.ID
}

func (i *Intervention) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, i, id)
}

// FindLocked loads the intervention under a row lock
func (i *Intervention) FindLocked(tx *pop.Connection, id uuid.UUID) error {
	return findLocked(tx, i, "interventions", id)
}

// AllForCountry loads the interventions of one country, amendment copies
// excluded.
func (i *Interventions) AllForCountry(tx *pop.Connection, countryID uuid.UUID) error {
	err := tx.Where("country_id = ? AND origin_id IS NULL", countryID).Order("created_at asc").All(i)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// AllLiveForAgreement loads the signed and active documents under an
// agreement, skipping amendment copies.
func (i *Interventions) AllLiveForAgreement(tx *pop.Connection, agreementID uuid.UUID) error {
	statuses := []api.InterventionStatus{api.InterventionStatusSigned, api.InterventionStatusActive}
	err := tx.Where("agreement_id = ? AND origin_id IS NULL AND status IN (?)",
		agreementID, statuses).All(i)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

func (i *Intervention) isAmendmentCopy() bool {
	return i.OriginID.Valid
}

// IsActorAllowedTo implements document-level authorization
func (i *Intervention) IsActorAllowedTo(tx *pop.Connection, user User, perm Permission, sub SubResource) bool {
	if user.IsService {
		return true
	}
	if user.CountryID != i.CountryID && i.ID != uuid.Nil {
		return false
	}

	switch perm {
	case PermissionView, PermissionList:
		if user.IsUnicefUser(tx) {
			return true
		}
		return i.isPartnerActor(tx, user)
	case PermissionCreate, PermissionUpdate, PermissionDelete:
		if user.HasRole(tx, interventionUnicefEditors...) {
			return true
		}
		return user.HasRole(tx, interventionPartnerEditors...) && i.isPartnerActor(tx, user)
	default:
		return false
	}
}

func (i *Intervention) isPartnerActor(tx *pop.Connection, user User) bool {
	if !user.OrganizationID.Valid {
		return false
	}
	i.LoadAgreement(tx, false)
	i.Agreement.LoadPartner(tx, false)
	return i.Agreement.Partner.OrganizationID == user.OrganizationID.UUID
}

// NewInterventionFromInput builds an intervention for the user's country.
// Contingency PDs start in development; everything else starts in draft.
func NewInterventionFromInput(input api.InterventionCreateInput, user User) Intervention {
	status := api.InterventionStatusDraft
	if input.ContingencyPD {
		status = api.InterventionStatusDevelopment
	}
	return Intervention{
		CountryID:     user.CountryID,
		DocumentType:  input.DocumentType,
		Title:         input.Title,
		Status:        status,
		AgreementID:   input.AgreementID,
		ContingencyPD: input.ContingencyPD,
		UnicefCourt:   true,
		Start:         domain.NullTimeFromPtr(input.Start),
		End:           domain.NullTimeFromPtr(input.End),
	}
}

// Create persists a new intervention with its budget satellites and records
// the create snapshot.
func (i *Intervention) Create(tx *pop.Connection, currency string, user User) error {
	report := api.ValidationReport{}
	i.validateBasics(tx, &report)
	if !report.Finalize().OK {
		return reportError(report, api.ErrorValidationFailed)
	}

	if err := create(tx, i); err != nil {
		return err
	}

	budget := PlannedBudget{
		InterventionID: i.ID,
		Currency:       currency,
		ExchangeRate:   decimal.NewFromInt(1),
	}
	if err := budget.Create(tx); err != nil {
		return err
	}
	if err := CreateManagementBudget(tx, i.ID); err != nil {
		return err
	}
	if i.Start.Valid && i.End.Valid {
		if err := SyncTimeFrames(tx, i.ID, i.Start.Time, i.End.Time); err != nil {
			return err
		}
	}

	return RecordSnapshot(tx, i.CountryID, domain.TypeIntervention, i.ID,
		api.SnapshotActionCreate, user.ID, rowAdded("", i), "", string(i.Status))
}

// UpdateFromInput applies a partial update under the permission mask. A date
// change re-syncs the quarter calendar; any budget-adjacent change recomputes
// the totals.
func (i *Intervention) UpdateFromInput(tx *pop.Connection, input api.InterventionUpdateInput, user User) error {
	if err := i.FindLocked(tx, i.ID); err != nil {
		return err
	}

	old := *i
	if err := i.applyUpdateInput(input); err != nil {
		return err
	}

	mask := i.permissionMask(tx, user)
	changes := diffScalars("", &old, i)
	changedFields := make([]string, len(changes))
	for n, c := range changes {
		changedFields[n] = c.Path
	}
	if input.UnicefFocalPoints != nil {
		changedFields = append(changedFields, FieldInterventionUnicefFocalPoints)
	}
	if input.PartnerFocalPoints != nil {
		changedFields = append(changedFields, FieldInterventionPartnerFocalPoints)
	}
	if input.ExchangeRate != nil {
		changedFields = append(changedFields, FieldInterventionExchangeRate)
	}

	report := api.ValidationReport{}
	checkRigidFields(&report, mask, changedFields, amendmentEditableInterventionFields, i.isAmendmentCopy())
	i.validateBasics(tx, &report)
	if !report.Finalize().OK {
		*i = old
		return reportError(report, api.ErrorValidationFailed)
	}

	if err := update(tx, i); err != nil {
		return err
	}

	if input.UnicefFocalPoints != nil {
		if err := i.setFocalPoints(tx, FocalPointKindUnicef, *input.UnicefFocalPoints); err != nil {
			return err
		}
	}
	if input.PartnerFocalPoints != nil {
		if err := i.setFocalPoints(tx, FocalPointKindPartner, *input.PartnerFocalPoints); err != nil {
			return err
		}
	}

	datesChanged := !old.Start.Time.Equal(i.Start.Time) || !old.End.Time.Equal(i.End.Time) ||
		old.Start.Valid != i.Start.Valid || old.End.Valid != i.End.Valid
	if datesChanged && i.Start.Valid && i.End.Valid {
		if err := SyncTimeFrames(tx, i.ID, i.Start.Time, i.End.Time); err != nil {
			return err
		}
	}
	if input.ExchangeRate != nil {
		var budget PlannedBudget
		if err := budget.FindForIntervention(tx, i.ID); err != nil {
			return err
		}
		budget.ExchangeRate = *input.ExchangeRate
		if err := update(tx, &budget); err != nil {
			return err
		}
		if err := budget.Recompute(tx); err != nil {
			return err
		}
	}

	if len(changedFields) == 0 {
		return nil
	}
	return RecordSnapshot(tx, i.CountryID, domain.TypeIntervention, i.ID,
		api.SnapshotActionUpdate, user.ID, changes, "", "")
}

func (i *Intervention) applyUpdateInput(input api.InterventionUpdateInput) error {
	if input.Title != nil {
		i.Title = *input.Title
	}
	if input.Start != nil {
		i.Start = nulls.NewTime(*input.Start)
	}
	if input.End != nil {
		i.End = nulls.NewTime(*input.End)
	}
	if input.DateSentToPartner != nil {
		i.DateSentToPartner = nulls.NewTime(*input.DateSentToPartner)
	}
	if input.SignedByUnicefDate != nil {
		i.SignedByUnicefDate = nulls.NewTime(*input.SignedByUnicefDate)
	}
	if input.SignedByPartnerDate != nil {
		i.SignedByPartnerDate = nulls.NewTime(*input.SignedByPartnerDate)
	}
	if input.UnicefCourt != nil {
		i.UnicefCourt = *input.UnicefCourt
	}
	if input.CashTransferModality != nil {
		j, err := json.Marshal(*input.CashTransferModality)
		if err != nil {
			return api.NewAppError(err, api.ErrorInvalidRequestBody, api.CategoryUser)
		}
		i.CashTransferModalities = string(j)
	}
	return nil
}

// Modalities unmarshals the stored cash transfer modality list
func (i *Intervention) Modalities() []api.CashTransferModality {
	if i.CashTransferModalities == "" {
		return nil
	}
	var out []api.CashTransferModality
	if err := json.Unmarshal([]byte(i.CashTransferModalities), &out); err != nil {
		log.Errorf("intervention %s has malformed modalities, %s", i.ID, err)
		return nil
	}
	return out
}

func (i *Intervention) setFocalPoints(tx *pop.Connection, kind string, userIDs []uuid.UUID) error {
	if err := tx.RawQuery("DELETE FROM intervention_focal_points WHERE intervention_id = ? AND kind = ?",
		i.ID, kind).Exec(); err != nil {
		return appErrorFromDB(err, api.ErrorDestroyFailure)
	}
	for _, id := range userIDs {
		fp := InterventionFocalPoint{InterventionID: i.ID, UserID: id, Kind: kind}
		if err := create(tx, &fp); err != nil {
			return err
		}
	}
	i.FocalPoints = nil
	return nil
}

// LoadAgreement hydrates the Agreement relation unless already loaded
func (i *Intervention) LoadAgreement(tx *pop.Connection, reload bool) {
	if i.Agreement.ID == uuid.Nil || reload {
		if err := tx.Load(i, "Agreement"); err != nil {
			panic("database error loading intervention agreement, " + err.Error())
		}
	}
}

// LoadFocalPoints hydrates the FocalPoints relation unless already loaded
func (i *Intervention) LoadFocalPoints(tx *pop.Connection, reload bool) {
	if len(i.FocalPoints) == 0 || reload {
		if err := tx.Where("intervention_id = ?", i.ID).All(&i.FocalPoints); err != nil {
			panic("database error loading intervention focal points, " + err.Error())
		}
	}
}

func (i *Intervention) focalPointIDs(tx *pop.Connection, kind string) []uuid.UUID {
	i.LoadFocalPoints(tx, false)
	var ids []uuid.UUID
	for _, fp := range i.FocalPoints {
		if fp.Kind == kind {
			ids = append(ids, fp.UserID)
		}
	}
	return ids
}

// FocalPointUsers loads the users behind the focal points of one kind
func (i *Intervention) FocalPointUsers(tx *pop.Connection, kind string) (Users, error) {
	var users Users
	err := users.AllByIDs(tx, i.focalPointIDs(tx, kind))
	return users, err
}

func (i *Intervention) isFocalPoint(tx *pop.Connection, user User) bool {
	i.LoadFocalPoints(tx, false)
	for _, fp := range i.FocalPoints {
		if fp.UserID == user.ID {
			return true
		}
	}
	return false
}

// validateBasics runs the always-on rules for any save
func (i *Intervention) validateBasics(tx *pop.Connection, report *api.ValidationReport) {
	var agreement Agreement
	if err := agreement.FindByID(tx, i.AgreementID); err != nil {
		report.Add(ValidationCodeFailed, FieldInterventionAgreement, "agreement not found")
		return
	}
	if agreement.CountryID != i.CountryID {
		report.Add(ValidationCodeFailed, FieldInterventionAgreement, "agreement belongs to another country")
	}

	if i.DocumentType == api.InterventionTypePD && agreement.Type != api.AgreementTypePCA {
		report.Add(ValidationCodeFailed, FieldInterventionDocumentType, "a PD requires a PCA agreement")
	}
	if i.DocumentType == api.InterventionTypeSSFA {
		i.checkSingleSSFAIntervention(tx, report, agreement)
	}

	if i.Start.Valid && i.End.Valid && i.End.Time.Before(i.Start.Time) {
		report.Add(ValidationCodeFailed, FieldInterventionEnd, "end date is before start date")
	}

	if i.Start.Valid {
		if later := i.laterSignatureDate(); later != nil && i.Start.Time.Before(*later) {
			report.Add(ValidationCodeFailed, FieldInterventionStart, "start date is before the later signature date")
		}
		if !i.ContingencyPD && agreement.Start.Valid && i.Start.Time.Before(agreement.Start.Time) {
			report.Add(ValidationCodeFailed, FieldInterventionStart, "start date is before the agreement start")
		}
	}
}

// an SSFA agreement carries at most one intervention
func (i *Intervention) checkSingleSSFAIntervention(tx *pop.Connection, report *api.ValidationReport, agreement Agreement) {
	if agreement.Type != api.AgreementTypeSSFA {
		report.Add(ValidationCodeFailed, FieldInterventionDocumentType, "an SSFA document requires an SSFA agreement")
		return
	}
	n, err := tx.Where("agreement_id = ? AND id != ? AND origin_id IS NULL", agreement.ID, i.ID).
		Count(&Intervention{})
	if err != nil {
		panic("database error counting SSFA interventions, " + err.Error())
	}
	if n > 0 {
		report.Add(ValidationCodeFailed, FieldInterventionAgreement, "SSFA agreement already has a document")
	}
}

func (i *Intervention) laterSignatureDate() *time.Time {
	if !i.SignedByUnicefDate.Valid && !i.SignedByPartnerDate.Valid {
		return nil
	}
	if !i.SignedByPartnerDate.Valid {
		t := i.SignedByUnicefDate.Time
		return &t
	}
	if !i.SignedByUnicefDate.Valid {
		t := i.SignedByPartnerDate.Time
		return &t
	}
	later := i.SignedByUnicefDate.Time
	if i.SignedByPartnerDate.Time.After(later) {
		later = i.SignedByPartnerDate.Time
	}
	return &later
}

// Transition moves the intervention to a new status after running the
// transition predicates and applies the side effects of the move.
func (i *Intervention) Transition(tx *pop.Connection, to api.InterventionStatus, reason string, user User) error {
	if err := i.FindLocked(tx, i.ID); err != nil {
		return err
	}
	from := i.Status

	report := api.ValidationReport{}
	if !statusReachable(interventionStatusTransitions(), from, to) {
		transitionError(&report, string(from), string(to), "transition not declared")
		return reportError(report.Finalize(), api.ErrorTransitionNotAllowed)
	}

	i.validateTransition(tx, to, reason, user, &report)
	if !report.Finalize().OK {
		return i.transitionFailure(report)
	}

	if to == api.InterventionStatusSigned && i.ReferenceNumber == "" {
		if err := i.assignReferenceNumber(tx); err != nil {
			return err
		}
	}

	i.Status = to
	if err := update(tx, i); err != nil {
		return err
	}
	if err := RecordSnapshot(tx, i.CountryID, domain.TypeIntervention, i.ID,
		api.SnapshotActionTransition, user.ID, nil, string(from), string(to)); err != nil {
		return err
	}

	i.emitTransitionEvent(to)
	return nil
}

// transitionFailure picks the most specific error key for the report
func (i *Intervention) transitionFailure(report api.ValidationReport) error {
	for _, e := range report.Errors {
		if e.Code == ValidationCodeFundsMismatch {
			return reportError(report, api.ErrorFundsMismatch)
		}
	}
	return reportError(report, api.ErrorTransitionNotAllowed)
}

func (i *Intervention) validateTransition(tx *pop.Connection, to api.InterventionStatus, reason string,
	user User, report *api.ValidationReport) {

	if !i.canRequestTransition(tx, to, user) {
		transitionError(report, string(i.Status), string(to), "caller's role cannot request this transition")
		return
	}

	switch to {
	case api.InterventionStatusDraft:
		i.checkReadyForDraft(tx, report)
	case api.InterventionStatusReview:
		i.checkReadyForReview(tx, report)
	case api.InterventionStatusSignature:
		if !i.DateSentToPartner.Valid {
			transitionError(report, string(i.Status), string(to), "document has not been sent to the partner")
		}
		if i.DocumentType == api.InterventionTypePD && !i.ContingencyPD && !i.PRCReviewAttachmentID.Valid {
			transitionError(report, string(i.Status), string(to), "PRC review attachment is required")
		}
	case api.InterventionStatusSigned:
		i.checkReadyForSigned(tx, report)
	case api.InterventionStatusActive:
		if !i.Start.Valid || i.Start.Time.After(time.Now().UTC()) {
			transitionError(report, string(i.Status), string(to), "start date has not been reached")
		}
		i.checkFundsReconcile(tx, report, to)
	case api.InterventionStatusEnded:
		if !i.End.Valid || !i.End.Time.Before(time.Now().UTC()) {
			transitionError(report, string(i.Status), string(to), "end date has not passed")
		}
	case api.InterventionStatusExpired:
		if !i.countryProgrammeExpired(tx, time.Now().UTC()) {
			transitionError(report, string(i.Status), string(to), "country programme has not ended")
		}
	case api.InterventionStatusClosed:
		i.checkReadyForClosed(tx, report)
	case api.InterventionStatusSuspended, api.InterventionStatusCancelled:
		if reason == "" {
			transitionError(report, string(i.Status), string(to), "a reason is required")
		}
	case api.InterventionStatusTerminated:
		if !i.TerminationAttachmentID.Valid {
			transitionError(report, string(i.Status), string(to), "termination attachment is required")
		}
	}
}

// canRequestTransition is the role gate per target status
func (i *Intervention) canRequestTransition(tx *pop.Connection, to api.InterventionStatus, user User) bool {
	if user.IsService {
		return true
	}
	switch to {
	case api.InterventionStatusDraft, api.InterventionStatusReview:
		return user.HasRole(tx, interventionUnicefEditors...) ||
			(i.isFocalPoint(tx, user) && user.HasRole(tx, interventionPartnerEditors...))
	default:
		return user.HasRole(tx, interventionUnicefEditors...)
	}
}

func (i *Intervention) checkReadyForDraft(tx *pop.Connection, report *api.ValidationReport) {
	if len(i.focalPointIDs(tx, FocalPointKindPartner)) == 0 {
		transitionError(report, string(i.Status), string(api.InterventionStatusDraft), "partner focal points are required")
	}
	var links ResultLinks
	if err := links.AllForIntervention(tx, i.ID); err != nil || len(links) == 0 {
		transitionError(report, string(i.Status), string(api.InterventionStatusDraft), "output tree is empty")
	}
}

func (i *Intervention) checkReadyForReview(tx *pop.Connection, report *api.ValidationReport) {
	if i.DocumentType != api.InterventionTypePD {
		return
	}
	var frs FundsReservations
	if err := frs.AllForIntervention(tx, i.ID); err != nil {
		panic("database error loading funds reservations, " + err.Error())
	}
	if len(frs) == 0 {
		transitionError(report, string(i.Status), string(api.InterventionStatusReview), "a funds reservation link is required")
	}
}

func (i *Intervention) checkReadyForSigned(tx *pop.Connection, report *api.ValidationReport) {
	if !i.SignedByUnicefDate.Valid || !i.SignedByPartnerDate.Valid {
		transitionError(report, string(i.Status), string(api.InterventionStatusSigned), "both signature dates are required")
	}
	if !i.SignedPDAttachmentID.Valid {
		transitionError(report, string(i.Status), string(api.InterventionStatusSigned), "signed document attachment is required")
	}
	i.checkFundsReconcile(tx, report, api.InterventionStatusSigned)
	i.validateBasics(tx, report)
}

// checkFundsReconcile enforces Σ frs.intervention_amt == unicef_cash_local
func (i *Intervention) checkFundsReconcile(tx *pop.Connection, report *api.ValidationReport, to api.InterventionStatus) {
	var budget PlannedBudget
	if err := budget.FindForIntervention(tx, i.ID); err != nil {
		transitionError(report, string(i.Status), string(to), "planned budget not found")
		return
	}
	var frs FundsReservations
	if err := frs.AllForIntervention(tx, i.ID); err != nil {
		panic("database error loading funds reservations, " + err.Error())
	}

	delta := fin.FundsDelta(frs.InterventionAmts(), budget.UnicefCashLocal)
	if !delta.IsZero() {
		report.Add(ValidationCodeFundsMismatch, "planned_budget.unicef_cash_local",
			fmt.Sprintf("funds reservations do not reconcile with the budget, delta=%s",
				delta.StringFixed(domain.MoneyPrecision)))
	}
}

func (i *Intervention) checkReadyForClosed(tx *pop.Connection, report *api.ValidationReport) {
	to := string(api.InterventionStatusClosed)
	if !i.End.Valid || !i.End.Time.Before(time.Now().UTC()) {
		transitionError(report, string(i.Status), to, "end date has not passed")
	}

	var budget PlannedBudget
	if err := budget.FindForIntervention(tx, i.ID); err != nil {
		transitionError(report, string(i.Status), to, "planned budget not found")
		return
	}
	var frs FundsReservations
	if err := frs.AllForIntervention(tx, i.ID); err != nil {
		panic("database error loading funds reservations, " + err.Error())
	}

	actual := frs.ActualAmtTotal()
	if !actual.Equal(budget.UnicefCashLocal) {
		report.Add(ValidationCodeFundsMismatch, "planned_budget.unicef_cash_local",
			fmt.Sprintf("actual disbursement does not match the budget, delta=%s",
				budget.UnicefCashLocal.Sub(actual).StringFixed(domain.MoneyPrecision)))
	}
	if !frs.OutstandingAmtTotal().IsZero() {
		transitionError(report, string(i.Status), to, "outstanding funds remain on the reservations")
	}

	threshold := decimal.NewFromInt(int64(domain.Env.FinalReviewThreshold))
	if actual.GreaterThanOrEqual(threshold) && !i.FinalReviewAttachmentID.Valid {
		transitionError(report, string(i.Status), to, "final partnership review attachment is required")
	}
}

// countryProgrammeExpired reports whether the agreement's country programme
// cycle ended before the given date. Documents under an agreement with no
// programme attached never expire this way.
func (i *Intervention) countryProgrammeExpired(tx *pop.Connection, date time.Time) bool {
	i.LoadAgreement(tx, false)
	if !i.Agreement.CountryProgrammeID.Valid {
		return false
	}
	var cp CountryProgramme
	if err := cp.FindByID(tx, i.Agreement.CountryProgrammeID.UUID); err != nil {
		return false
	}
	return cp.IsExpiredOn(date)
}

func (i *Intervention) assignReferenceNumber(tx *pop.Connection) error {
	var country Country
	if err := country.FindByID(tx, i.CountryID); err != nil {
		return err
	}
	year := time.Now().UTC().Year()
	if i.SignedByUnicefDate.Valid {
		year = i.SignedByUnicefDate.Time.Year()
	}
	ref, err := NextReferenceNumber(tx, country, string(i.DocumentType), year)
	if err != nil {
		return err
	}
	i.ReferenceNumber = ref
	return nil
}

func (i *Intervention) emitTransitionEvent(to api.InterventionStatus) {
	kinds := map[api.InterventionStatus]string{
		api.InterventionStatusReview:     domain.EventApiInterventionReview,
		api.InterventionStatusDraft:      domain.EventApiInterventionRejected,
		api.InterventionStatusSignature:  domain.EventApiInterventionSentToPartner,
		api.InterventionStatusSigned:     domain.EventApiInterventionSigned,
		api.InterventionStatusActive:     domain.EventApiInterventionActive,
		api.InterventionStatusEnded:      domain.EventApiInterventionEnded,
		api.InterventionStatusSuspended:  domain.EventApiInterventionSuspended,
		api.InterventionStatusTerminated: domain.EventApiInterventionTerminated,
		api.InterventionStatusClosed:     domain.EventApiInterventionClosed,
	}
	if kind, ok := kinds[to]; ok {
		emitEvent(events.Event{
			Kind:    kind,
			Message: "intervention status change",
			Payload: events.Payload{domain.EventPayloadID: i.ID},
		})
	}
}

// AllowedTransitions lists the statuses this user could move the document
// into, by running the same predicates the transition path runs.
func (i *Intervention) AllowedTransitions(tx *pop.Connection, user User) []api.InterventionStatus {
	out := []api.InterventionStatus{}
	for _, to := range interventionStatusTransitions()[i.Status] {
		report := api.ValidationReport{}
		i.validateTransition(tx, to, "transition preview", user, &report)
		if report.Finalize().OK {
			out = append(out, to)
		}
	}
	return out
}

func (i *Intervention) permissionMask(tx *pop.Connection, user User) PermissionMask {
	return PermissionMaskFor(domain.TypeIntervention, string(i.Status), user.RoleNames(tx), PermContext{
		UserID:          user.ID.String(),
		InAmendment:     i.InAmendment,
		UnicefCourt:     i.UnicefCourt,
		ContingencyPD:   i.ContingencyPD,
		SignedByUnicef:  i.SignedByUnicefDate.Valid,
		SignedByPartner: i.SignedByPartnerDate.Valid,
		IsFocalPoint:    i.isFocalPoint(tx, user),
	})
}

// RecomputeBudget rebuilds the derived budget totals
func (i *Intervention) RecomputeBudget(tx *pop.Connection) error {
	var budget PlannedBudget
	if err := budget.FindForIntervention(tx, i.ID); err != nil {
		return err
	}
	return budget.Recompute(tx)
}

// ClaimFundsReservation attaches an ingested FRS header to this intervention.
// A header claimed by another document is refused.
func (i *Intervention) ClaimFundsReservation(tx *pop.Connection, frNumber string) error {
	var frs FundsReservation
	if err := frs.FindByFrNumber(tx, frNumber); err != nil {
		return err
	}
	if frs.InterventionID.Valid && frs.InterventionID.UUID != i.ID {
		return api.NewAppError(fmt.Errorf("funds reservation %s is claimed by another document", frNumber),
			api.ErrorValidation, api.CategoryUser)
	}
	frs.InterventionID = nulls.NewUUID(i.ID)
	return frs.Update(tx)
}

// ConvertToAPI applies the view mask and adds the computed metadata fields
func (i *Intervention) ConvertToAPI(tx *pop.Connection, user User) api.Intervention {
	var budget PlannedBudget
	if err := budget.FindForIntervention(tx, i.ID); err != nil {
		panic("database error loading planned budget, " + err.Error())
	}
	var links ResultLinks
	if err := links.AllForIntervention(tx, i.ID); err != nil {
		panic("database error loading result links, " + err.Error())
	}
	var frames TimeFrames
	if err := frames.AllForIntervention(tx, i.ID); err != nil {
		panic("database error loading time frames, " + err.Error())
	}

	mask := i.permissionMask(tx, user)
	return api.Intervention{
		ID:                   i.ID,
		ReferenceNumber:      i.ReferenceNumber,
		DocumentType:         i.DocumentType,
		Title:                i.Title,
		Status:               i.Status,
		AgreementID:          i.AgreementID,
		Start:                domain.TimePtr(i.Start),
		End:                  domain.TimePtr(i.End),
		DateSentToPartner:    domain.TimePtr(i.DateSentToPartner),
		SignedByUnicefDate:   domain.TimePtr(i.SignedByUnicefDate),
		SignedByPartnerDate:  domain.TimePtr(i.SignedByPartnerDate),
		UnicefCourt:          i.UnicefCourt,
		InAmendment:          i.InAmendment,
		ContingencyPD:        i.ContingencyPD,
		CashTransferModality: i.Modalities(),
		PlannedBudget:        budget.ConvertToAPI(),
		ResultLinks:          links.ConvertToAPI(tx),
		TimeFrames:           frames.ConvertToAPI(),
		AllowedTransitions:   i.AllowedTransitions(tx, user),
		EditableFields:       mask.EditableFields(),
		RequiredFields:       mask.RequiredFields(),
	}
}
