package api

import (
	"time"

	"github.com/gofrs/uuid"
)

type SnapshotAction string

const (
	SnapshotActionCreate     = SnapshotAction("create")
	SnapshotActionUpdate     = SnapshotAction("update")
	SnapshotActionTransition = SnapshotAction("transition")
)

// Snapshot is one append-only audit record of a document mutation
// swagger:model
type Snapshot struct {
	ID         uuid.UUID      `json:"id"`
	TargetType string         `json:"target_type"`
	TargetID   uuid.UUID      `json:"target_id"`
	Action     SnapshotAction `json:"action"`
	ByUserID   uuid.UUID      `json:"by_user"`
	Diff       []FieldChange  `json:"diff"`
	FromStatus string         `json:"from_status,omitempty"`
	ToStatus   string         `json:"to_status,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Snapshots is a history feed, newest first
// swagger:model
type Snapshots []Snapshot
