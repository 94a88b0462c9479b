package models

import (
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
)

var ValidEngagementTypes = map[api.EngagementType]struct{}{
	api.EngagementTypeAudit:           {},
	api.EngagementTypeSpotCheck:       {},
	api.EngagementTypeMicroAssessment: {},
	api.EngagementTypeSpecialAudit:    {},
}

var ValidEngagementStatuses = map[api.EngagementStatus]struct{}{
	api.EngagementStatusPartnerContacted: {},
	api.EngagementStatusReportSubmitted:  {},
	api.EngagementStatusFinal:            {},
	api.EngagementStatusCancelled:        {},
}

type Engagements []Engagement

// Engagement is one piece of auditor-performed assurance work on a partner.
// The purchase order ties it to the auditor firm under contract. Finalized
// engagements feed the partner's HACT counters and, for micro assessments,
// its risk rating.
type Engagement struct {
	ID              uuid.UUID            `db:"id"`
	CountryID       uuid.UUID            `db:"country_id" validate:"required"`
	Type            api.EngagementType   `db:"engagement_type" validate:"engagementType"`
	Status          api.EngagementStatus `db:"status" validate:"engagementStatus"`
	PartnerID       uuid.UUID            `db:"partner_id" validate:"required"`
	PurchaseOrderID uuid.UUID            `db:"purchase_order_id" validate:"required"`
	POItemID        nulls.UUID           `db:"po_item_id"`

	Currency           string          `db:"currency" validate:"required"`
	ExchangeRate       decimal.Decimal `db:"exchange_rate"`
	TotalValue         decimal.Decimal `db:"total_value"`
	AuditedExpenditure decimal.Decimal `db:"audited_expenditure"`
	FinancialFindings  decimal.Decimal `db:"financial_findings"`
	AmountRefunded     decimal.Decimal `db:"amount_refunded"`

	AdditionalDocsProvided decimal.Decimal `db:"additional_supporting_documentation_provided"`
	Justification          decimal.Decimal `db:"justification_provided_and_accepted"`
	WriteOffRequired       decimal.Decimal `db:"write_off_required"`

	AuditOpinion      string `db:"audit_opinion"`
	OverallRiskRating string `db:"overall_risk_rating"`

	PartnerContactedAt nulls.Time `db:"partner_contacted_at"`
	DateOfReportSubmit nulls.Time `db:"date_of_report_submit"`
	DateOfFinalReport  nulls.Time `db:"date_of_final_report"`
	DateOfCancel       nulls.Time `db:"date_of_cancel"`
	CancelComment      string     `db:"cancel_comment"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Findings Findings `has_many:"findings" validate:"-"`
}

// engagementStatusTransitions declares the reachable statuses
func engagementStatusTransitions() map[api.EngagementStatus][]api.EngagementStatus {
	return map[api.EngagementStatus][]api.EngagementStatus{
		api.EngagementStatusPartnerContacted: {api.EngagementStatusReportSubmitted, api.EngagementStatusCancelled},
		api.EngagementStatusReportSubmitted:  {api.EngagementStatusFinal, api.EngagementStatusCancelled},
	}
}

func (e *Engagement) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(e), nil
}

func (e *Engagement) GetID() uuid.UUID {
	return e.ID
}

func (e *Engagement) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, e, id)
}

// FindLocked loads the engagement under a row lock
func (e *Engagement) FindLocked(tx *pop.Connection, id uuid.UUID) error {
	return findLocked(tx, e, "engagements", id)
}

// AllForCountry loads the engagements of one country, oldest first
func (e *Engagements) AllForCountry(tx *pop.Connection, countryID uuid.UUID) error {
	err := tx.Where("country_id = ?", countryID).Order("created_at asc").All(e)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// IsActorAllowedTo implements document-level authorization
func (e *Engagement) IsActorAllowedTo(tx *pop.Connection, user User, perm Permission, sub SubResource) bool {
	if user.IsService {
		return true
	}
	if user.CountryID != e.CountryID && e.ID != uuid.Nil {
		return false
	}

	switch perm {
	case PermissionView, PermissionList:
		return user.IsUnicefUser(tx) || user.HasRole(tx, RoleAuditorFirmStaff)
	case PermissionCreate:
		return user.HasRole(tx, RoleUnicefAuditFocalPoint)
	case PermissionUpdate, PermissionDelete:
		return user.HasRole(tx, RoleUnicefAuditFocalPoint, RoleAuditorFirmStaff)
	default:
		return false
	}
}

// NewEngagementFromInput builds an engagement in partner_contacted
func NewEngagementFromInput(input api.EngagementCreateInput, user User, now time.Time) Engagement {
	e := Engagement{
		CountryID:          user.CountryID,
		Type:               input.Type,
		Status:             api.EngagementStatusPartnerContacted,
		PartnerID:          input.PartnerID,
		PurchaseOrderID:    input.PurchaseOrderID,
		Currency:           input.Currency,
		PartnerContactedAt: nulls.NewTime(now),
	}
	if input.PurchaseOrderItem != nil {
		e.POItemID = nulls.NewUUID(*input.PurchaseOrderItem)
	}
	return e
}

// Create persists a new engagement and records the create snapshot
func (e *Engagement) Create(tx *pop.Connection, user User) error {
	report := api.ValidationReport{}
	e.validateBasics(tx, &report)
	if !report.Finalize().OK {
		return reportError(report, api.ErrorValidationFailed)
	}

	if err := create(tx, e); err != nil {
		return err
	}
	if err := RecordSnapshot(tx, e.CountryID, domain.TypeEngagement, e.ID,
		api.SnapshotActionCreate, user.ID, rowAdded("", e), "", string(e.Status)); err != nil {
		return err
	}

	emitEvent(events.Event{
		Kind:    domain.EventApiEngagementCreated,
		Message: "engagement created",
		Payload: events.Payload{domain.EventPayloadID: e.ID},
	})
	return nil
}

func (e *Engagement) validateBasics(tx *pop.Connection, report *api.ValidationReport) {
	var partner Partner
	if err := partner.FindByID(tx, e.PartnerID); err != nil {
		report.Add(ValidationCodeFailed, FieldEngagementPartner, "partner not found")
		return
	}
	if partner.CountryID != e.CountryID {
		report.Add(ValidationCodeFailed, FieldEngagementPartner, "partner belongs to another country")
	}
	if partner.Deleted {
		report.Add(ValidationCodeFailed, FieldEngagementPartner, "partner is marked deleted")
	}

	var po PurchaseOrder
	if err := po.FindByID(tx, e.PurchaseOrderID); err != nil {
		report.Add(ValidationCodeFailed, FieldEngagementPurchaseOrder, "purchase order not found")
		return
	}
	var firm Organization
	if err := firm.FindByID(tx, po.AuditorFirmID); err != nil || firm.Type != api.OrganizationTypeAuditorFirm {
		report.Add(ValidationCodeFailed, FieldEngagementPurchaseOrder, "purchase order is not with an auditor firm")
	}

	if e.POItemID.Valid {
		var item POItem
		if err := item.FindByID(tx, e.POItemID.UUID); err != nil {
			report.Add(ValidationCodeFailed, FieldEngagementPOItem, "purchase order item not found")
		} else if item.PurchaseOrderID != e.PurchaseOrderID {
			report.Add(ValidationCodeFailed, FieldEngagementPOItem, "item belongs to another purchase order")
		}
	}
}

// UpdateFromInput applies a partial update under the permission mask. Touching
// a follow-up column after the report is in raises the follow-up notification.
func (e *Engagement) UpdateFromInput(tx *pop.Connection, input api.EngagementUpdateInput, user User) error {
	if err := e.FindLocked(tx, e.ID); err != nil {
		return err
	}

	old := *e
	e.applyUpdateInput(input)

	mask := e.permissionMask(tx, user)
	changes := diffScalars("", &old, e)
	changedFields := make([]string, len(changes))
	for n, c := range changes {
		changedFields[n] = c.Path
	}

	report := api.ValidationReport{}
	checkRigidFields(&report, mask, changedFields, nil, false)
	if !report.Finalize().OK {
		*e = old
		return reportError(report, api.ErrorValidationFailed)
	}

	if err := update(tx, e); err != nil {
		return err
	}

	if len(changedFields) == 0 {
		return nil
	}
	if err := RecordSnapshot(tx, e.CountryID, domain.TypeEngagement, e.ID,
		api.SnapshotActionUpdate, user.ID, changes, "", ""); err != nil {
		return err
	}

	if e.Status != api.EngagementStatusPartnerContacted && e.followUpTouched(changedFields) {
		emitEvent(events.Event{
			Kind:    domain.EventApiEngagementFollowUpChanged,
			Message: "engagement follow-up change",
			Payload: events.Payload{domain.EventPayloadID: e.ID},
		})
	}
	return nil
}

func (e *Engagement) applyUpdateInput(input api.EngagementUpdateInput) {
	if input.ExchangeRate != nil {
		e.ExchangeRate = *input.ExchangeRate
	}
	if input.TotalValue != nil {
		e.TotalValue = *input.TotalValue
	}
	if input.AuditedExpenditure != nil {
		e.AuditedExpenditure = *input.AuditedExpenditure
	}
	if input.FinancialFindings != nil {
		e.FinancialFindings = *input.FinancialFindings
	}
	if input.AmountRefunded != nil {
		e.AmountRefunded = *input.AmountRefunded
	}
	if input.AdditionalSupportingDocumentationProvided != nil {
		e.AdditionalDocsProvided = *input.AdditionalSupportingDocumentationProvided
	}
	if input.JustificationProvidedAndAccepted != nil {
		e.Justification = *input.JustificationProvidedAndAccepted
	}
	if input.WriteOffRequired != nil {
		e.WriteOffRequired = *input.WriteOffRequired
	}
	if input.AuditOpinion != nil {
		e.AuditOpinion = string(*input.AuditOpinion)
	}
	if input.OverallRiskRating != nil {
		e.OverallRiskRating = *input.OverallRiskRating
	}
}

func (e *Engagement) followUpTouched(changedFields []string) bool {
	for _, f := range changedFields {
		if domain.IsStringInSlice(f, engagementFollowUpFields) {
			return true
		}
	}
	return false
}

// SetFindings replaces the findings list
func (e *Engagement) SetFindings(tx *pop.Connection, user User, inputs []api.Finding) error {
	if err := e.FindLocked(tx, e.ID); err != nil {
		return err
	}

	mask := e.permissionMask(tx, user)
	report := api.ValidationReport{}
	checkRigidFields(&report, mask, []string{FieldEngagementFindings}, nil, false)
	if !report.Finalize().OK {
		return reportError(report, api.ErrorValidationFailed)
	}

	if err := tx.RawQuery("DELETE FROM findings WHERE engagement_id = ?", e.ID).Exec(); err != nil {
		return appErrorFromDB(err, api.ErrorDestroyFailure)
	}
	for _, in := range inputs {
		f := Finding{
			EngagementID:     e.ID,
			Priority:         in.Priority,
			Category:         in.Category,
			Recommendation:   in.Recommendation,
			DeadlineOfAction: domain.NullTimeFromPtr(in.DeadlineOfAction),
		}
		if err := create(tx, &f); err != nil {
			return err
		}
	}
	e.Findings = nil

	change := []api.FieldChange{{
		Path: FieldEngagementFindings,
		New:  fmt.Sprintf("%d findings", len(inputs)),
	}}
	return RecordSnapshot(tx, e.CountryID, domain.TypeEngagement, e.ID,
		api.SnapshotActionUpdate, user.ID, change, "", "")
}

// LoadFindings hydrates the Findings relation unless already loaded
func (e *Engagement) LoadFindings(tx *pop.Connection, reload bool) {
	if len(e.Findings) == 0 || reload {
		if err := e.Findings.AllForEngagement(tx, e.ID); err != nil {
			panic("database error loading engagement findings, " + err.Error())
		}
	}
}

// Transition moves the engagement to a new status, stamping the matching date
// column. Finalizing triggers the partner assurance recompute via its event.
func (e *Engagement) Transition(tx *pop.Connection, to api.EngagementStatus, comment string, user User, now time.Time) error {
	if err := e.FindLocked(tx, e.ID); err != nil {
		return err
	}
	from := e.Status

	report := api.ValidationReport{}
	if !statusReachable(engagementStatusTransitions(), from, to) {
		transitionError(&report, string(from), string(to), "transition not declared")
		return reportError(report.Finalize(), api.ErrorTransitionNotAllowed)
	}

	e.validateTransition(tx, to, comment, user, &report)
	if !report.Finalize().OK {
		return reportError(report, api.ErrorTransitionNotAllowed)
	}

	e.Status = to
	switch to {
	case api.EngagementStatusReportSubmitted:
		e.DateOfReportSubmit = nulls.NewTime(now)
	case api.EngagementStatusFinal:
		e.DateOfFinalReport = nulls.NewTime(now)
	case api.EngagementStatusCancelled:
		e.DateOfCancel = nulls.NewTime(now)
		e.CancelComment = comment
	}

	if err := update(tx, e); err != nil {
		return err
	}
	if err := RecordSnapshot(tx, e.CountryID, domain.TypeEngagement, e.ID,
		api.SnapshotActionTransition, user.ID, nil, string(from), string(to)); err != nil {
		return err
	}

	e.emitTransitionEvent(to)
	return nil
}

func (e *Engagement) validateTransition(tx *pop.Connection, to api.EngagementStatus, comment string,
	user User, report *api.ValidationReport) {

	if !e.canRequestTransition(tx, to, user) {
		transitionError(report, string(e.Status), string(to), "caller's role cannot request this transition")
		return
	}

	switch to {
	case api.EngagementStatusReportSubmitted:
		e.checkReportComplete(tx, report)
	case api.EngagementStatusCancelled:
		if comment == "" {
			transitionError(report, string(e.Status), string(to), "a cancel comment is required")
		}
	}
}

func (e *Engagement) canRequestTransition(tx *pop.Connection, to api.EngagementStatus, user User) bool {
	if user.IsService {
		return true
	}
	switch to {
	case api.EngagementStatusReportSubmitted:
		return user.HasRole(tx, RoleAuditorFirmStaff, RoleUnicefAuditFocalPoint)
	default:
		return user.HasRole(tx, RoleUnicefAuditFocalPoint)
	}
}

// checkReportComplete enforces the report fields before submission
func (e *Engagement) checkReportComplete(tx *pop.Connection, report *api.ValidationReport) {
	to := string(api.EngagementStatusReportSubmitted)
	if e.ExchangeRate.IsZero() {
		transitionError(report, string(e.Status), to, "exchange rate is required")
	}
	if !e.TotalValue.IsPositive() {
		transitionError(report, string(e.Status), to, "total value is required")
	}

	e.LoadFindings(tx, true)
	if len(e.Findings) == 0 {
		transitionError(report, string(e.Status), to, "at least one finding is required")
	}

	switch e.Type {
	case api.EngagementTypeAudit, api.EngagementTypeSpecialAudit:
		if e.AuditOpinion == "" {
			transitionError(report, string(e.Status), to, "audit opinion is required")
		}
	case api.EngagementTypeMicroAssessment:
		if e.OverallRiskRating == "" {
			transitionError(report, string(e.Status), to, "overall risk rating is required")
		}
	}
}

func (e *Engagement) emitTransitionEvent(to api.EngagementStatus) {
	kinds := map[api.EngagementStatus]string{
		api.EngagementStatusReportSubmitted: domain.EventApiEngagementSubmitted,
		api.EngagementStatusFinal:           domain.EventApiEngagementFinalized,
		api.EngagementStatusCancelled:       domain.EventApiEngagementCancelled,
	}
	if kind, ok := kinds[to]; ok {
		emitEvent(events.Event{
			Kind:    kind,
			Message: "engagement status change",
			Payload: events.Payload{domain.EventPayloadID: e.ID},
		})
	}
}

// AllowedTransitions lists the statuses this user could move the engagement into
func (e *Engagement) AllowedTransitions(tx *pop.Connection, user User) []api.EngagementStatus {
	out := []api.EngagementStatus{}
	for _, to := range engagementStatusTransitions()[e.Status] {
		report := api.ValidationReport{}
		e.validateTransition(tx, to, "transition preview", user, &report)
		if report.Finalize().OK {
			out = append(out, to)
		}
	}
	return out
}

func (e *Engagement) permissionMask(tx *pop.Connection, user User) PermissionMask {
	return PermissionMaskFor(domain.TypeEngagement, string(e.Status), user.RoleNames(tx), PermContext{
		UserID: user.ID.String(),
	})
}

// ConvertToAPI applies the view mask and adds the computed metadata fields
func (e *Engagement) ConvertToAPI(tx *pop.Connection, user User) api.Engagement {
	e.LoadFindings(tx, false)
	mask := e.permissionMask(tx, user)

	out := api.Engagement{
		ID:                 e.ID,
		Type:               e.Type,
		Status:             e.Status,
		PartnerID:          e.PartnerID,
		PurchaseOrderID:    e.PurchaseOrderID,
		Currency:           e.Currency,
		ExchangeRate:       e.ExchangeRate,
		TotalValue:         e.TotalValue,
		AuditedExpenditure: e.AuditedExpenditure,
		FinancialFindings:  e.FinancialFindings,
		AmountRefunded:     e.AmountRefunded,

		AdditionalSupportingDocumentationProvided: e.AdditionalDocsProvided,
		JustificationProvidedAndAccepted:          e.Justification,
		WriteOffRequired:                          e.WriteOffRequired,

		AuditOpinion:      api.AuditOpinion(e.AuditOpinion),
		OverallRiskRating: e.OverallRiskRating,

		PartnerContactedAt: domain.TimePtr(e.PartnerContactedAt),
		DateOfReportSubmit: domain.TimePtr(e.DateOfReportSubmit),
		DateOfFinalReport:  domain.TimePtr(e.DateOfFinalReport),
		DateOfCancel:       domain.TimePtr(e.DateOfCancel),
		CancelComment:      e.CancelComment,

		Findings: e.Findings.ConvertToAPI(),

		AllowedTransitions: e.AllowedTransitions(tx, user),
		EditableFields:     mask.EditableFields(),
		RequiredFields:     mask.RequiredFields(),
	}
	if e.POItemID.Valid {
		id := e.POItemID.UUID
		out.PurchaseOrderItem = &id
	}
	return out
}
