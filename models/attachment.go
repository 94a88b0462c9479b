package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/gobuffalo/pop/v6"
	"github.com/gobuffalo/validate/v3"
	"github.com/gofrs/uuid"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/log"
	"github.com/equitrack/partnership-api/storage"
)

const minimumAttachmentLifespan = time.Minute * 5

// validAttachmentCodes is the fixed vocabulary accepted by the store. Codes
// tell documents what an attachment is for; everything else is opaque.
var validAttachmentCodes = map[string]struct{}{
	domain.AttachmentCodeAgreement:              {},
	domain.AttachmentCodeAgreementAmendment:     {},
	domain.AttachmentCodeSignedPD:               {},
	domain.AttachmentCodeInterventionAmendment:  {},
	domain.AttachmentCodePRCReview:              {},
	domain.AttachmentCodeEngagement:             {},
	domain.AttachmentCodeEngagementReport:       {},
	domain.AttachmentCodePartnerAssessment:      {},
	domain.AttachmentCodeFinalPartnershipReview: {},
	domain.AttachmentCodeTermination:            {},
}

type Attachments []Attachment

// Attachment is a stored file handle plus its semantic code. The body lives in
// the object store keyed by Path().
type Attachment struct {
	ID            uuid.UUID `db:"id"`
	URL           string    `db:"url" validate:"required"`
	URLExpiration time.Time `db:"url_expiration"`
	Name          string    `db:"name" validate:"required"`
	Size          int       `db:"size" validate:"required,min=0"`
	ContentType   string    `db:"content_type" validate:"required"`
	Code          string    `db:"code" validate:"required"`
	Linked        bool      `db:"linked"`
	CreatedByID   uuid.UUID `db:"created_by_id" validate:"required"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`

	Content []byte `db:"-"`
}

// Validate gets run every time you call a "pop.Validate*" method.
func (a *Attachment) Validate(tx *pop.Connection) (*validate.Errors, error) {
	return validateModel(a), nil
}

// Store pushes the content into the object store and saves the metadata row
func (a *Attachment) Store(tx *pop.Connection) error {
	if len(a.Content) > domain.Env.MaxFileSize {
		err := fmt.Errorf("file too large (%d bytes), max is %d bytes", len(a.Content), domain.Env.MaxFileSize)
		return api.NewAppError(err, api.ErrorStoreFileTooLarge, api.CategoryUser)
	}

	if a.Name == "" {
		return api.NewAppError(errors.New("filename is missing"), api.ErrorFilenameRequired, api.CategoryUser)
	}

	if _, ok := validAttachmentCodes[a.Code]; !ok {
		return api.NewAppError(fmt.Errorf("unknown attachment code %q", a.Code),
			api.ErrorAttachmentCode, api.CategoryUser)
	}

	a.ID = domain.GetUUID()

	url, err := storage.Put(a.Path(), a.ContentType, a.Content)
	if err != nil {
		err = fmt.Errorf("error storing attachment %s: %w", a.ID, err)
		return api.NewAppError(err, api.ErrorUnableToStoreFile, api.CategoryInternal)
	}

	a.URL = url.URL
	a.URLExpiration = url.Expiration
	a.Size = len(a.Content)
	if err = a.Create(tx); err != nil {
		err = fmt.Errorf("error creating attachment %s: %w", a.ID, err)
		return api.NewAppError(err, api.ErrorUnableToStoreFile, api.CategoryInternal)
	}

	return nil
}

func (a *Attachment) Create(tx *pop.Connection) error {
	return create(tx, a)
}

func (a *Attachment) Update(tx *pop.Connection) error {
	return update(tx, a)
}

func (a *Attachment) GetID() uuid.UUID {
	return a.ID
}

func (a *Attachment) FindByID(tx *pop.Connection, id uuid.UUID) error {
	return find(tx, a, id)
}

// RefreshURL ensures the presigned URL is good for at least a few minutes
func (a *Attachment) RefreshURL(tx *pop.Connection) error {
	if a.URLExpiration.After(time.Now().Add(minimumAttachmentLifespan)) {
		return nil
	}

	newURL, err := storage.SignedURL(a.Path())
	if err != nil {
		return err
	}
	a.URL = newURL.URL
	a.URLExpiration = newURL.Expiration
	return a.Update(tx)
}

// SetLinked marks the attachment as claimed by a document. An attachment can
// only be claimed once.
// The struct need not be hydrated; only the ID is needed.
func (a *Attachment) SetLinked(tx *pop.Connection) error {
	if err := tx.Reload(a); err != nil {
		panic(fmt.Sprintf("failed to load attachment for setting linked flag, %s", err))
	}
	if a.Linked {
		err := fmt.Errorf("cannot link attachment, it is already linked")
		return api.NewAppError(err, api.ErrorAttachmentAlreadyLinked, api.CategoryUser)
	}
	a.Linked = true
	if err := tx.UpdateColumns(a, "linked", "updated_at"); err != nil {
		return appErrorFromDB(err, api.ErrorUpdateFailure)
	}
	return nil
}

// ClearLinked marks the attachment as unclaimed. Only the ID is needed.
func (a *Attachment) ClearLinked(tx *pop.Connection) error {
	a.Linked = false
	return tx.UpdateColumns(a, "linked", "updated_at")
}

// DeleteUnlinked removes attachments that no document ever claimed
func (a *Attachments) DeleteUnlinked(tx *pop.Connection) error {
	var attachments Attachments
	if err := tx.Select("id", "name").
		Where("linked = FALSE AND updated_at < ?", time.Now().Add(-4*domain.DurationWeek)).
		All(&attachments); err != nil {
		return err
	}
	log.Info("unlinked attachments:", len(attachments))
	if len(attachments) == 0 {
		return nil
	}

	nRemovedFromDB := 0
	nRemovedFromStore := 0
	for _, attachment := range attachments {
		if err := storage.Remove(attachment.Path()); err != nil {
			log.Errorf("error removing from object store, id='%s', %s", attachment.ID.String(), err)
			continue
		}
		nRemovedFromStore++

		a := attachment
		if err := tx.Destroy(&a); err != nil {
			log.Errorf("attachment %s destroy error, %s", attachment.ID, err)
			continue
		}
		nRemovedFromDB++
	}

	if nRemovedFromDB < len(attachments) || nRemovedFromStore < len(attachments) {
		log.Error("not all unlinked attachments were removed")
	}
	log.Infof("removed %d from object store, %d from attachment table", nRemovedFromStore, nRemovedFromDB)
	return nil
}

// ConvertToAPI converts a models.Attachment to an api.Attachment
func (a *Attachment) ConvertToAPI(tx *pop.Connection) api.Attachment {
	if a == nil {
		return api.Attachment{}
	}

	if err := a.RefreshURL(tx); err != nil {
		panic(err.Error())
	}
	return api.Attachment{
		ID:            a.ID,
		URL:           a.URL,
		URLExpiration: a.URLExpiration,
		Name:          a.Name,
		Size:          a.Size,
		ContentType:   a.ContentType,
		Code:          a.Code,
		CreatedByID:   a.CreatedByID,
	}
}

// Path combines the ID and the filename to make the complete store key
func (a *Attachment) Path() string {
	return fmt.Sprintf("%s/%s", a.ID.String(), a.Name)
}
