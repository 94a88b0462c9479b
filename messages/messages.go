package messages

import (
	"github.com/equitrack/partnership-api/log"
	"github.com/equitrack/partnership-api/models"
	"github.com/equitrack/partnership-api/notifications"
)

// sendToUsers dispatches one copy of the message to every recipient. A failed
// send is logged and does not stop delivery to the remaining recipients.
func sendToUsers(template, subject, body string, users models.Users) {
	for _, u := range users {
		msg := notifications.NewEmailMessage()
		msg.Template = template
		msg.Subject = subject
		msg.Body = body
		msg.ToName = u.Name()
		msg.ToEmail = u.Email

		if err := notifications.Send(msg); err != nil {
			log.Errorf("error sending '%s' notification to %s, %s", template, u.Email, err)
		}
	}
}
