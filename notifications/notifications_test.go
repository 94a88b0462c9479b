package notifications

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/equitrack/partnership-api/domain"
)

// TestSuite establishes a test suite for notification tests
type TestSuite struct {
	suite.Suite
	*require.Assertions
}

func (ts *TestSuite) SetupTest() {
	ts.Assertions = require.New(ts.T())
}

// Test_TestSuite runs the test suite
func Test_TestSuite(t *testing.T) {
	ts := &TestSuite{}
	suite.Run(t, ts)
}

func (ts *TestSuite) TestRawEmail() {
	raw := rawEmail(
		"to@example.com",
		domain.EmailFromAddress(nil),
		"test subject",
		"Plain text body.\n\nSecond paragraph.")

	got := string(raw)
	ts.Contains(got, "To: to@example.com")
	ts.Contains(got, "Subject: test subject")
	ts.Contains(got, "text/plain; charset=utf-8")
	ts.Contains(got, "Second paragraph.")
}

func (ts *TestSuite) TestDummyEmailService() {
	testEmailer := NewDummyEmailService()

	msg := NewEmailMessage()
	msg.Template = "test-template"
	msg.Subject = "a subject"
	msg.ToName = "A Recipient"
	msg.ToEmail = "recipient@example.org"

	ts.NoError(testEmailer.Send(msg))
	ts.Equal(1, testEmailer.GetNumberOfMessagesSent())
	ts.Equal("recipient@example.org", testEmailer.GetLastToEmail())

	testEmailer.DeleteSentMessages()
	ts.Equal(0, testEmailer.GetNumberOfMessagesSent())
}
