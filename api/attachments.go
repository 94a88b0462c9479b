package api

import (
	"time"

	"github.com/gofrs/uuid"
)

// Attachment is the wire representation of a stored file. The body itself
// lives in the attachment store; only the handle and metadata travel here.
// swagger:model
type Attachment struct {
	ID            uuid.UUID `json:"id"`
	URL           string    `json:"url"`
	URLExpiration time.Time `json:"url_expiration"`
	Name          string    `json:"name"`
	Size          int       `json:"size"`
	ContentType   string    `json:"content_type"`
	Code          string    `json:"code"`
	CreatedByID   uuid.UUID `json:"created_by_id"`
}
