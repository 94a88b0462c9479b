package actions

import (
	"fmt"
	"io"

	"github.com/gobuffalo/buffalo"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/models"
)

// fileFieldName is the multipart field name for the file upload
const fileFieldName = "file"

// codeFieldName is the multipart field carrying the attachment code
const codeFieldName = "code"

// uploadHandler responds to POST requests at /upload. The attachment starts
// unlinked; a document claims it later by ID.
func uploadHandler(c buffalo.Context) error {
	user := models.CurrentUser(c)

	f, err := c.File(fileFieldName)
	if err != nil {
		err := fmt.Errorf("error getting uploaded file from context ... %w", err)
		return reportError(c, api.NewAppError(err, api.ErrorReceivingFile, api.CategoryInternal))
	}

	if f.Size > int64(domain.Env.MaxFileSize) {
		err := fmt.Errorf("file upload size (%v) greater than max (%v)", f.Size, domain.Env.MaxFileSize)
		return reportError(c, api.NewAppError(err, api.ErrorStoreFileTooLarge, api.CategoryUser))
	}

	content, err := io.ReadAll(f)
	if err != nil {
		err := fmt.Errorf("error reading uploaded file ... %w", err)
		return reportError(c, api.NewAppError(err, api.ErrorUnableToReadFile, api.CategoryInternal))
	}

	attachment := models.Attachment{
		Name:        f.Filename,
		ContentType: f.Header.Get("Content-Type"),
		Code:        c.Request().FormValue(codeFieldName),
		CreatedByID: user.ID,
		Content:     content,
	}
	if err := attachment.Store(models.Tx(c)); err != nil {
		return reportError(c, err)
	}

	return renderOk(c, attachment.ConvertToAPI(models.Tx(c)))
}
