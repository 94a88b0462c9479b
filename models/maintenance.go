package models

import (
	"time"

	"github.com/gobuffalo/events"
	"github.com/gobuffalo/pop/v6"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/log"
)

// RunDailyMaintenance applies every date-driven rule once, acting as the
// service user. Each rule is idempotent, so a second run on the same day is a
// no-op apart from the notification emits.
func RunDailyMaintenance(tx *pop.Connection, now time.Time) error {
	actor := GetServiceUser(tx)

	endAgreementsPastEndDate(tx, now, actor)
	activateInterventionsDue(tx, now, actor)
	endInterventionsPastEndDate(tx, now, actor)
	expireDocsPastCountryProgramme(tx, now, actor)
	reparentDocsForProgrammeRollover(tx, now, actor)
	emitEndingSoonNotices(tx, now)
	recomputePartnerAssurance(tx, now)

	var attachments Attachments
	if err := attachments.DeleteUnlinked(tx); err != nil {
		log.Errorf("maintenance: attachment cleanup failed, %s", err)
	}
	return nil
}

// endAgreementsPastEndDate moves signed agreements whose end date passed into
// ended. Suspended agreements stay suspended until a user resolves them.
func endAgreementsPastEndDate(tx *pop.Connection, now time.Time, actor User) {
	var agreements Agreements
	if err := tx.Where(`status = ? AND "end" IS NOT NULL AND "end" < ?`,
		api.AgreementStatusSigned, now).All(&agreements); err != nil {
		log.Errorf("maintenance: failed to load agreements past end date, %s", err)
		return
	}
	for _, agreement := range agreements {
		a := agreement
		if err := a.Transition(tx, api.AgreementStatusEnded, "end date passed", actor); err != nil {
			log.Errorf("maintenance: failed to end agreement %s, %s", a.ID, err)
		}
	}
}

// activateInterventionsDue moves signed documents whose start date arrived into
// active. The transition predicates still run, so a document whose funds no
// longer reconcile stays signed and gets logged.
func activateInterventionsDue(tx *pop.Connection, now time.Time, actor User) {
	var interventions Interventions
	if err := tx.Where("status = ? AND origin_id IS NULL AND start IS NOT NULL AND start <= ?",
		api.InterventionStatusSigned, now).All(&interventions); err != nil {
		log.Errorf("maintenance: failed to load documents due for activation, %s", err)
		return
	}
	for _, intervention := range interventions {
		i := intervention
		if err := i.Transition(tx, api.InterventionStatusActive, "start date reached", actor); err != nil {
			log.Errorf("maintenance: failed to activate document %s, %s", i.ID, err)
		}
	}
}

func endInterventionsPastEndDate(tx *pop.Connection, now time.Time, actor User) {
	var interventions Interventions
	if err := tx.Where(`status = ? AND origin_id IS NULL AND "end" IS NOT NULL AND "end" < ?`,
		api.InterventionStatusActive, now).All(&interventions); err != nil {
		log.Errorf("maintenance: failed to load documents past end date, %s", err)
		return
	}
	for _, intervention := range interventions {
		i := intervention
		if err := i.Transition(tx, api.InterventionStatusEnded, "end date passed", actor); err != nil {
			log.Errorf("maintenance: failed to end document %s, %s", i.ID, err)
		}
	}
}

// expireDocsPastCountryProgramme expires documents still in development once
// their agreement's country programme cycle has ended.
func expireDocsPastCountryProgramme(tx *pop.Connection, now time.Time, actor User) {
	var interventions Interventions
	if err := tx.Where("status = ? AND origin_id IS NULL",
		api.InterventionStatusDevelopment).All(&interventions); err != nil {
		log.Errorf("maintenance: failed to load development documents, %s", err)
		return
	}
	for _, intervention := range interventions {
		i := intervention
		if !i.countryProgrammeExpired(tx, now) {
			continue
		}
		if err := i.Transition(tx, api.InterventionStatusExpired, "country programme ended", actor); err != nil {
			log.Errorf("maintenance: failed to expire document %s, %s", i.ID, err)
		}
	}
}

// reparentDocsForProgrammeRollover moves documents whose agreement's country
// programme expired onto the partner's agreement under the active programme,
// when one exists. The document keeps its status; only the agreement FK moves.
func reparentDocsForProgrammeRollover(tx *pop.Connection, now time.Time, actor User) {
	var interventions Interventions
	statuses := []api.InterventionStatus{api.InterventionStatusDraft,
		api.InterventionStatusSigned, api.InterventionStatusActive}
	if err := tx.Where("status IN (?) AND origin_id IS NULL", statuses).All(&interventions); err != nil {
		log.Errorf("maintenance: failed to load documents for rollover check, %s", err)
		return
	}

	for _, intervention := range interventions {
		i := intervention
		if !i.countryProgrammeExpired(tx, now) {
			continue
		}

		var replacement Agreement
		err := tx.Where(`partner_id = ? AND status = ? AND id != ? AND country_programme_id IN
			(SELECT id FROM country_programmes WHERE country_id = ? AND from_date <= ? AND to_date >= ?)`,
			i.Agreement.PartnerID, api.AgreementStatusSigned, i.AgreementID,
			i.CountryID, now, now).First(&replacement)
		if err != nil {
			continue // no active replacement agreement, leave the document alone
		}

		old := i
		i.AgreementID = replacement.ID
		if err := update(tx, &i); err != nil {
			log.Errorf("maintenance: failed to reassign document %s to agreement %s, %s",
				i.ID, replacement.ID, err)
			continue
		}
		if err := RecordSnapshot(tx, i.CountryID, domain.TypeIntervention, i.ID,
			api.SnapshotActionUpdate, actor.ID, diffScalars("", &old, &i), "", ""); err != nil {
			log.Errorf("maintenance: failed to record rollover snapshot for document %s, %s", i.ID, err)
		}
	}
}

// emitEndingSoonNotices raises the ending-soon event for active documents whose
// end date lands exactly 15 or 30 days out.
func emitEndingSoonNotices(tx *pop.Connection, now time.Time) {
	for _, days := range []int{domain.EndingSoonDays15, domain.EndingSoonDays30} {
		dayStart := domain.BeginningOfDay(now.AddDate(0, 0, days))
		dayEnd := dayStart.AddDate(0, 0, 1)

		var interventions Interventions
		if err := tx.Where(`status = ? AND origin_id IS NULL AND "end" >= ? AND "end" < ?`,
			api.InterventionStatusActive, dayStart, dayEnd).All(&interventions); err != nil {
			log.Errorf("maintenance: failed to load documents ending in %d days, %s", days, err)
			continue
		}
		for _, i := range interventions {
			emitEvent(events.Event{
				Kind:    domain.EventApiInterventionEndingSoon,
				Message: "intervention ending soon",
				Payload: events.Payload{domain.EventPayloadID: i.ID},
			})
		}
	}
}

// recomputePartnerAssurance rebuilds every partner's assurance counters and
// risk rating. Covers the year rollover, where required counts reset.
func recomputePartnerAssurance(tx *pop.Connection, now time.Time) {
	var partners Partners
	if err := tx.Where("deleted_flag = FALSE").All(&partners); err != nil {
		log.Errorf("maintenance: failed to load partners for assurance recompute, %s", err)
		return
	}
	for _, partner := range partners {
		p := partner
		if err := p.RecomputeHactValues(tx, now); err != nil {
			log.Errorf("maintenance: failed to recompute assurance values for partner %s, %s", p.ID, err)
			continue
		}
		if err := p.RefreshRiskRating(tx); err != nil {
			log.Errorf("maintenance: failed to refresh risk rating for partner %s, %s", p.ID, err)
		}
	}
}
