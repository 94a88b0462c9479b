package api

import (
	"time"

	"github.com/gofrs/uuid"
)

type AmendmentType string

const (
	AmendmentTypeDates      = AmendmentType("dates")
	AmendmentTypeResults    = AmendmentType("results")
	AmendmentTypeBudget     = AmendmentType("budget")
	AmendmentTypeAdminError = AmendmentType("admin_error")
	AmendmentTypeOther      = AmendmentType("other")
)

type AmendmentKind string

const (
	AmendmentKindNormal      = AmendmentKind("normal")
	AmendmentKindContingency = AmendmentKind("contingency")
)

// FieldChange is one entry in a structural diff between a document and its
// amendment copy. Paths are stable across forks, e.g.
// result_links[<id>].lower_results[<id>].activities[<id>].items[<id>].unit_price
type FieldChange struct {
	Path string `json:"path"`
	Old  string `json:"old"`
	New  string `json:"new"`
}

// Amendment records a fork of a document into an editable copy
// swagger:model
type Amendment struct {
	ID               uuid.UUID       `json:"id"`
	DocumentID       uuid.UUID       `json:"document_id"`
	AmendedCopyID    *uuid.UUID      `json:"amended_copy_id,omitempty"`
	Types            []AmendmentType `json:"types"`
	Kind             AmendmentKind   `json:"kind"`
	Merged           bool            `json:"merged"`
	SignedDate       *time.Time      `json:"signed_date,omitempty"`
	SignedAttachment *uuid.UUID      `json:"signed_attachment,omitempty"`
	Changes          []FieldChange   `json:"changes,omitempty"`
}

// AmendmentCreateInput is the payload to fork a document
// swagger:model
type AmendmentCreateInput struct {
	Types []AmendmentType `json:"types"`
	Kind  AmendmentKind   `json:"kind"`
}

// AmendmentMergeInput carries the signature evidence required to merge
// swagger:model
type AmendmentMergeInput struct {
	SignedDate       time.Time `json:"signed_date"`
	SignedAttachment uuid.UUID `json:"signed_attachment"`
}
