package models

import (
	"encoding/json"
	"time"

	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/log"
)

var ValidSnapshotActions = map[api.SnapshotAction]struct{}{
	api.SnapshotActionCreate:     {},
	api.SnapshotActionUpdate:     {},
	api.SnapshotActionTransition: {},
}

type Snapshots []Snapshot

// Snapshot is one append-only audit row. Rows are only ever inserted, in the
// same transaction as the mutation they record, so the log and the document
// can never disagree.
type Snapshot struct {
	ID         uuid.UUID          `db:"id"`
	CountryID  uuid.UUID          `db:"country_id" validate:"required"`
	TargetType string             `db:"target_type" validate:"required"`
	TargetID   uuid.UUID          `db:"target_id" validate:"required"`
	Action     api.SnapshotAction `db:"action" validate:"snapshotAction"`
	ByUserID   uuid.UUID          `db:"by_user_id" validate:"required"`
	Diff       string             `db:"diff"`
	FromStatus string             `db:"from_status"`
	ToStatus   string             `db:"to_status"`
	CreatedAt  time.Time          `db:"created_at"`
	UpdatedAt  time.Time          `db:"updated_at"`
}

func (s *Snapshot) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(s), nil
}

func (s *Snapshot) Create(tx *pop.Connection) error {
	return create(tx, s)
}

func (s *Snapshot) GetID() uuid.UUID {
	return s.ID
}

func (s *Snapshot) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, s, id)
}

// RecordSnapshot appends one audit row for a document mutation
func RecordSnapshot(tx *pop.Connection, countryID uuid.UUID, targetType string, targetID uuid.UUID,
	action api.SnapshotAction, byUserID uuid.UUID, diff []api.FieldChange, fromStatus, toStatus string) error {

	s := Snapshot{
		CountryID:  countryID,
		TargetType: targetType,
		TargetID:   targetID,
		Action:     action,
		ByUserID:   byUserID,
		FromStatus: fromStatus,
		ToStatus:   toStatus,
	}
	if len(diff) > 0 {
		j, err := json.Marshal(diff)
		if err != nil {
			return api.NewAppError(err, api.ErrorCreateFailure, api.CategoryInternal)
		}
		s.Diff = string(j)
	}
	return s.Create(tx)
}

// AllForTarget loads the history feed for one document, newest first
func (s *Snapshots) AllForTarget(tx *pop.Connection, targetType string, targetID uuid.UUID) error {
	err := tx.Where("target_type = ? AND target_id = ?", targetType, targetID).
		Order("created_at desc").All(s)
	return appErrorFromDB(err, api.ErrorQueryFailure)
}

// CountForTarget returns the number of audit rows for one document
func CountForTarget(tx *pop.Connection, targetType string, targetID uuid.UUID) (int, error) {
	n, err := tx.Where("target_type = ? AND target_id = ?", targetType, targetID).Count(&Snapshot{})
	return n, appErrorFromDB(err, api.ErrorQueryFailure)
}

// APIDiff unmarshals the stored diff for the wire
func (s *Snapshot) APIDiff() []api.FieldChange {
	if s.Diff == "" {
		return nil
	}
	var diff []api.FieldChange
	if err := json.Unmarshal([]byte(s.Diff), &diff); err != nil {
		log.Errorf("snapshot %s has malformed diff, %s", s.ID, err)
		return nil
	}
	return diff
}

// ConvertToAPI turns the model into its wire representation
func (s *Snapshot) ConvertToAPI() api.Snapshot {
	return api.Snapshot{
		ID:         s.ID,
		TargetType: s.TargetType,
		TargetID:   s.TargetID,
		Action:     s.Action,
		ByUserID:   s.ByUserID,
		Diff:       s.APIDiff(),
		FromStatus: s.FromStatus,
		ToStatus:   s.ToStatus,
		CreatedAt:  s.CreatedAt,
	}
}

// ConvertToAPI converts the history feed for the wire
func (s Snapshots) ConvertToAPI() api.Snapshots {
	out := make(api.Snapshots, len(s))
	for i, snapshot := range s {
		out[i] = snapshot.ConvertToAPI()
	}
	return out
}
