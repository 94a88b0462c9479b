package models

import (
	"fmt"
	"time"

	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

type TimeFrames []TimeFrame

// TimeFrame is one derived quarter of an intervention's span. The quarter
// index always matches the frame's ordinal position in the date range.
type TimeFrame struct {
	ID             uuid.UUID `db:"id"`
	InterventionID uuid.UUID `db:"intervention_id" validate:"required"`
	Quarter        int       `db:"quarter" validate:"required,min=1"`
	StartDate      time.Time `db:"start_date"`
	EndDate        time.Time `db:"end_date"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// ActivityTimeFrame joins an activity to the quarters it spans
type ActivityTimeFrame struct {
	ID          uuid.UUID `db:"id"`
	ActivityID  uuid.UUID `db:"activity_id" validate:"required"`
	TimeFrameID uuid.UUID `db:"time_frame_id" validate:"required"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (t *TimeFrame) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(t), nil
}

func (t *ActivityTimeFrame) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(t), nil
}

func (t *TimeFrames) AllForIntervention(tx *pop.Connection, interventionID uuid.UUID) error {
	err := tx.Where("intervention_id = ?", interventionID).Order("quarter asc").All(t)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// SyncTimeFrames reconciles the frame rows with the quarter calendar of the
// given date range. Surviving quarters keep their rows (and activity links)
// with refreshed dates; frames past the new end are removed along with their
// activity links; missing quarters are appended. Runs whenever an
// intervention's dates change.
func SyncTimeFrames(tx *pop.Connection, interventionID uuid.UUID, start, end time.Time) error {
	quarters := domain.QuartersInRange(start, end)

	var existing TimeFrames
	if err := existing.AllForIntervention(tx, interventionID); err != nil {
		return err
	}

	byQuarter := make(map[int]TimeFrame, len(existing))
	for _, frame := range existing {
		byQuarter[frame.Quarter] = frame
	}

	for _, q := range quarters {
		frame, ok := byQuarter[q.Index]
		if !ok {
			frame = TimeFrame{
				InterventionID: interventionID,
				Quarter:        q.Index,
				StartDate:      q.Start,
				EndDate:        q.End,
			}
			if err := create(tx, &frame); err != nil {
				return err
			}
			continue
		}

		delete(byQuarter, q.Index)
		if domain.SameDate(frame.StartDate, q.Start) && domain.SameDate(frame.EndDate, q.End) {
			continue
		}
		frame.StartDate = q.Start
		frame.EndDate = q.End
		if err := update(tx, &frame); err != nil {
			return err
		}
	}

	// whatever is left fell off the new span
	for _, frame := range byQuarter {
		if err := tx.RawQuery("DELETE FROM activity_time_frames WHERE time_frame_id = ?", frame.ID).Exec(); err != nil {
			return appErrorFromDB(err, api.ErrorDestroyFailure)
		}
		f := frame
		if err := destroy(tx, &f); err != nil {
			return err
		}
	}
	return nil
}

// LinkActivityToFrames replaces an activity's quarter selection. Every frame
// must belong to the activity's intervention.
func LinkActivityToFrames(tx *pop.Connection, activity *Activity, frameIDs []uuid.UUID) error {
	var frames TimeFrames
	if err := frames.AllForIntervention(tx, activity.interventionID(tx)); err != nil {
		return err
	}
	valid := make(map[uuid.UUID]struct{}, len(frames))
	for _, frame := range frames {
		valid[frame.ID] = struct{}{}
	}
	for _, id := range frameIDs {
		if _, ok := valid[id]; !ok {
			return api.NewAppError(fmt.Errorf("time frame %s does not belong to this intervention", id),
				api.ErrorValidation, api.CategoryUser)
		}
	}

	if err := tx.RawQuery("DELETE FROM activity_time_frames WHERE activity_id = ?", activity.ID).Exec(); err != nil {
		return appErrorFromDB(err, api.ErrorDestroyFailure)
	}
	for _, id := range frameIDs {
		link := ActivityTimeFrame{ActivityID: activity.ID, TimeFrameID: id}
		if err := create(tx, &link); err != nil {
			return err
		}
	}
	return nil
}

// ConvertToAPI converts the frames for the wire
func (t TimeFrames) ConvertToAPI() []api.InterventionTimeFrame {
	out := make([]api.InterventionTimeFrame, len(t))
	for i, frame := range t {
		out[i] = api.InterventionTimeFrame{
			ID:      frame.ID,
			Quarter: frame.Quarter,
			Start:   frame.StartDate,
			End:     frame.EndDate,
		}
	}
	return out
}
