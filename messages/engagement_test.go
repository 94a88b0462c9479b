package messages

import (
	"testing"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/models"
	"github.com/equitrack/partnership-api/notifications"
)

func (ts *TestSuite) engagementFixtures() (models.Engagement, models.User, models.User) {
	country := models.CreateCountryFixture(ts.DB)
	partner := models.CreatePartnerFixture(ts.DB, country)
	engagement := models.CreateEngagementFixture(ts.DB, partner, api.EngagementTypeAudit)

	auditor := models.CreateUserFixtures(ts.DB, country, 1, models.RoleAuditorFirmStaff).Users[0]
	focal := models.CreateUserFixtures(ts.DB, country, 1,
		models.RoleUnicefUser, models.RoleUnicefAuditFocalPoint).Users[0]
	return engagement, auditor, focal
}

func (ts *TestSuite) Test_EngagementCreated() {
	t := ts.T()
	engagement, auditor, _ := ts.engagementFixtures()

	testEmailer := notifications.DummyEmailService{}

	tests := []testData{
		{
			name:                "new engagement assigned to the firm",
			wantToEmails:        []string{auditor.Email},
			wantSubjectsContain: []string{"engagement assigned"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testEmailer.DeleteSentMessages()
			EngagementCreated(ts.DB, engagement)
			validateEmails(ts, tt, testEmailer)
		})
	}
}

func (ts *TestSuite) Test_EngagementReported() {
	t := ts.T()
	engagement, _, focal := ts.engagementFixtures()

	testEmailer := notifications.DummyEmailService{}

	tests := []testData{
		{
			name:                "report waits for final review",
			wantToEmails:        []string{focal.Email},
			wantSubjectsContain: []string{"Report submitted"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testEmailer.DeleteSentMessages()
			EngagementReported(ts.DB, engagement)
			validateEmails(ts, tt, testEmailer)
		})
	}
}
