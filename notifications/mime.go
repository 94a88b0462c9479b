package notifications

import (
	"bytes"
	"fmt"
	"mime/multipart"
	"net/textproto"

	"github.com/equitrack/partnership-api/log"
)

// rawEmail generates a single-part MIME message. Bodies are plain text; no
// HTML rendering happens in this service.
func rawEmail(to, from, subject, body string) []byte {
	b := &bytes.Buffer{}

	b.WriteString("From: " + from + "\n")
	b.WriteString("To: " + to + "\n")
	b.WriteString("Subject: " + subject + "\n")
	b.WriteString("MIME-Version: 1.0\n")

	writer := multipart.NewWriter(b)
	b.WriteString(`Content-Type: multipart/alternative; type="text/plain"; boundary="` +
		writer.Boundary() + `"` + "\n\n")

	w, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Type":        {"text/plain; charset=utf-8"},
		"Content-Disposition": {"inline"},
	})
	if err != nil {
		log.Errorf("failed to create MIME text part, %s", err)
	} else {
		_, _ = fmt.Fprint(w, body)
	}

	if err = writer.Close(); err != nil {
		log.Errorf("failed to close MIME part, %s", err)
	}

	return b.Bytes()
}
