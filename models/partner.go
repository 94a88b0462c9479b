package models

import (
	"time"

	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

type Partners []Partner

// Partner is the programme-facing projection of an Organization within one
// country. Its assurance counters are derived values with one canonical query
// each, recomputed by RecomputeHactValues. Nothing else writes them.
type Partner struct {
	ID             uuid.UUID             `db:"id"`
	CountryID      uuid.UUID             `db:"country_id" validate:"required"`
	OrganizationID uuid.UUID             `db:"organization_id" validate:"required"`
	RiskRating     api.PartnerRiskRating `db:"risk_rating"`

	LastAssessmentDate nulls.Time      `db:"last_assessment_date"`
	NetCtCy            decimal.Decimal `db:"net_ct_cy"`
	TotalCtCp          decimal.Decimal `db:"total_ct_cp"`
	Blocked            bool            `db:"blocked"`
	Deleted            bool            `db:"deleted_flag"`

	AssessmentsRequired         int `db:"hact_assessments_required"`
	AssessmentsCompleted        int `db:"hact_assessments_completed"`
	ProgrammaticVisitsPlanned   int `db:"hact_visits_planned"`
	ProgrammaticVisitsRequired  int `db:"hact_visits_required"`
	ProgrammaticVisitsCompleted int `db:"hact_visits_completed"`
	SpotChecksRequired          int `db:"hact_spot_checks_required"`
	SpotChecksCompleted         int `db:"hact_spot_checks_completed"`
	AuditsRequired              int `db:"hact_audits_required"`
	AuditsCompleted             int `db:"hact_audits_completed"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Organization Organization `belongs_to:"organization" validate:"-"`
}

func (p *Partner) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(p), nil
}

func (p *Partner) Create(tx *pop.Connection) error {
	if p.RiskRating == "" {
		p.RiskRating = api.PartnerRiskRatingNonAssessed
	}
	return create(tx, p)
}

func (p *Partner) Update(tx *pop.Connection) error {
	return update(tx, p)
}

func (p *Partner) GetID() uuid.UUID {
	return p.ID
}

func (p *Partner) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, p, id)
}

// IsActorAllowedTo implements document-level authorization. Partner rows are
// read-only through the API; writes come from the ERP ingest.
func (p *Partner) IsActorAllowedTo(tx *pop.Connection, user User, perm Permission, sub SubResource) bool {
	if user.IsService {
		return true
	}
	if user.CountryID != p.CountryID && p.ID != uuid.Nil {
		return false
	}

	switch perm {
	case PermissionView, PermissionList:
		return user.IsUnicefUser(tx)
	default:
		return false
	}
}

// AllForCountry loads the partners of one country, soft-deleted rows included
func (p *Partners) AllForCountry(tx *pop.Connection, countryID uuid.UUID) error {
	err := tx.Where("country_id = ?", countryID).Order("created_at asc").All(p)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// FindByOrganization loads the partner record for an organization in one country
func (p *Partner) FindByOrganization(tx *pop.Connection, countryID, organizationID uuid.UUID) error {
	err := tx.Where("country_id = ? AND organization_id = ?", countryID, organizationID).First(p)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// LoadOrganization hydrates the Organization relation unless already loaded
func (p *Partner) LoadOrganization(tx *pop.Connection, reload bool) {
	if p.Organization.ID == uuid.Nil || reload {
		if err := tx.Load(p, "Organization"); err != nil {
			panic("database error loading partner organization, " + err.Error())
		}
	}
}

// MarkDeleted soft-deletes the partner. Documents keep their references.
func (p *Partner) MarkDeleted(tx *pop.Connection) error {
	p.Deleted = true
	return p.Update(tx)
}

// RecomputeHactValues rebuilds the assurance counters from engagements. The
// count windows are calendar-year: audits and spot checks count when final with
// a final report dated this year, micro assessments when final with a final
// report at all (the latest one also sets last_assessment_date).
func (p *Partner) RecomputeHactValues(tx *pop.Connection, now time.Time) error {
	yearStart := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := yearStart.AddDate(1, 0, 0)

	audits, err := tx.Where(
		"partner_id = ? AND status = ? AND engagement_type IN (?, ?) AND date_of_final_report >= ? AND date_of_final_report < ?",
		p.ID, api.EngagementStatusFinal, api.EngagementTypeAudit, api.EngagementTypeSpecialAudit, yearStart, yearEnd).
		Count(&Engagement{})
	if err != nil {
		return appErrorFromDB(err, api.ErrorQueryFailure)
	}

	spotChecks, err := tx.Where(
		"partner_id = ? AND status = ? AND engagement_type = ? AND date_of_final_report >= ? AND date_of_final_report < ?",
		p.ID, api.EngagementStatusFinal, api.EngagementTypeSpotCheck, yearStart, yearEnd).
		Count(&Engagement{})
	if err != nil {
		return appErrorFromDB(err, api.ErrorQueryFailure)
	}

	assessments, err := tx.Where(
		"partner_id = ? AND status = ? AND engagement_type = ? AND date_of_final_report IS NOT NULL",
		p.ID, api.EngagementStatusFinal, api.EngagementTypeMicroAssessment).
		Count(&Engagement{})
	if err != nil {
		return appErrorFromDB(err, api.ErrorQueryFailure)
	}

	p.AuditsCompleted = audits
	p.SpotChecksCompleted = spotChecks
	p.AssessmentsCompleted = assessments
	return p.Update(tx)
}

// RefreshRiskRating applies the most recent finalized micro assessment to the
// partner's rating and assessment date. No-op when none exists.
func (p *Partner) RefreshRiskRating(tx *pop.Connection) error {
	var ma Engagement
	err := tx.Where("partner_id = ? AND status = ? AND engagement_type = ?",
		p.ID, api.EngagementStatusFinal, api.EngagementTypeMicroAssessment).
		Order("date_of_final_report desc").First(&ma)
	if err != nil {
		if domain.IsOtherThanNoRows(err) {
			return appErrorFromDB(err, api.ErrorQueryFailure)
		}
		return nil
	}

	if ma.OverallRiskRating != "" {
		p.RiskRating = api.PartnerRiskRating(ma.OverallRiskRating)
	}
	p.LastAssessmentDate = ma.DateOfFinalReport
	return p.Update(tx)
}

// ConvertToAPI turns the model into its wire representation
func (p *Partner) ConvertToAPI(tx *pop.Connection) api.Partner {
	p.LoadOrganization(tx, false)

	out := api.Partner{
		ID:           p.ID,
		Organization: p.Organization.ConvertToAPI(),
		RiskRating:   p.RiskRating,
		NetCtCy:      p.NetCtCy.StringFixed(domain.MoneyPrecision),
		TotalCtCp:    p.TotalCtCp.StringFixed(domain.MoneyPrecision),
		Blocked:      p.Blocked,
		Deleted:      p.Deleted,
		HactValues: api.HactValues{
			AssessmentsRequired:         p.AssessmentsRequired,
			AssessmentsCompleted:        p.AssessmentsCompleted,
			ProgrammaticVisitsPlanned:   p.ProgrammaticVisitsPlanned,
			ProgrammaticVisitsRequired:  p.ProgrammaticVisitsRequired,
			ProgrammaticVisitsCompleted: p.ProgrammaticVisitsCompleted,
			SpotChecksRequired:          p.SpotChecksRequired,
			SpotChecksCompleted:         p.SpotChecksCompleted,
			AuditsRequired:              p.AuditsRequired,
			AuditsCompleted:             p.AuditsCompleted,
		},
	}
	if p.LastAssessmentDate.Valid {
		t := p.LastAssessmentDate.Time
		out.LastAssessmentDate = &t
	}
	return out
}
