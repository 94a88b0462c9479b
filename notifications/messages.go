package notifications

import (
	"github.com/equitrack/partnership-api/domain"
)

// Message is one outbound notification. Template names the notification kind
// for the sink; Body carries the already-rendered text.
type Message struct {
	Template  string
	Data      map[string]interface{}
	FromName  string
	FromEmail string
	ToName    string
	ToEmail   string
	Subject   string
	Body      string
}

// NewEmailMessage returns a message with the FromEmail, the Data.appName and
// Data.uiURL already set.
func NewEmailMessage() Message {
	return Message{
		FromEmail: domain.EmailFromAddress(nil),
		Data: map[string]interface{}{
			"appName": domain.Env.AppName,
			"uiURL":   domain.Env.UIURL,
		},
	}
}
