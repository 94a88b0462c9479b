package domain

import (
	"context"
	"database/sql"
	"log"
	"math/rand"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gobuffalo/buffalo"
	"github.com/gobuffalo/envy"
	"github.com/gobuffalo/nulls"
	"github.com/gofrs/uuid"
	"github.com/kelseyhightower/envconfig"
)

// BuffaloContextType is a custom type used as a value key passed to context.WithValue as per the recommendations
// in the function docs for that function: https://golang.org/pkg/context/#WithValue
type BuffaloContextType string

// BuffaloContext is the key for the call to context.WithValue
const BuffaloContext = BuffaloContextType("BuffaloContext")

// Context keys
const (
	ContextKeyCurrentUser = "current_user"
	ContextKeyExtras      = "extras"
	ContextKeyTx          = "tx"

	EventPayloadID = "id"

	TypeAgreement    = "agreements"
	TypeAmendment    = "amendments"
	TypeEngagement   = "engagements"
	TypeIntervention = "interventions"
	TypeOrganization = "organizations"
	TypePartner      = "partners"
	TypeSnapshot     = "snapshots"
	TypeUser         = "users"
)

const (
	DateFormat    = "2006-01-02"
	LocalizedDate = "2 January 2006"

	DurationDay  = time.Duration(time.Hour * 24)
	DurationWeek = time.Duration(DurationDay * 7)

	// MoneyPrecision is the number of decimal places kept on monetary values
	MoneyPrecision = 2

	// Days before an intervention's end date at which "ending soon" notices go out
	EndingSoonDays15 = 15
	EndingSoonDays30 = 30
)

// Event Kinds
const (
	EventApiAgreementSigned     = "api:agreement:signed"
	EventApiAgreementSuspended  = "api:agreement:suspended"
	EventApiAgreementTerminated = "api:agreement:terminated"
	EventApiAgreementEnded      = "api:agreement:ended"

	EventApiInterventionSentToPartner = "api:intervention:senttopartner"
	EventApiInterventionReview        = "api:intervention:review"
	EventApiInterventionRejected      = "api:intervention:rejected"
	EventApiInterventionSigned        = "api:intervention:signed"
	EventApiInterventionActive        = "api:intervention:active"
	EventApiInterventionEnded         = "api:intervention:ended"
	EventApiInterventionSuspended     = "api:intervention:suspended"
	EventApiInterventionTerminated    = "api:intervention:terminated"
	EventApiInterventionClosed        = "api:intervention:closed"
	EventApiInterventionEndingSoon    = "api:intervention:endingsoon"

	EventApiAmendmentAdded  = "api:amendment:added"
	EventApiAmendmentMerged = "api:amendment:merged"

	EventApiEngagementCreated         = "api:engagement:created"
	EventApiEngagementSubmitted       = "api:engagement:submitted"
	EventApiEngagementFinalized       = "api:engagement:finalized"
	EventApiEngagementCancelled       = "api:engagement:cancelled"
	EventApiEngagementFollowUpChanged = "api:engagement:followupchanged"
)

// Attachment codes, the fixed vocabulary accepted by the attachment store
const (
	AttachmentCodeAgreement              = "partners_agreement"
	AttachmentCodeAgreementAmendment     = "partners_agreement_amendment"
	AttachmentCodeSignedPD               = "partners_intervention_signed_pd"
	AttachmentCodeInterventionAmendment  = "partners_intervention_amendment_signed"
	AttachmentCodePRCReview              = "partners_intervention_prc_review"
	AttachmentCodeEngagement             = "audit_engagement"
	AttachmentCodeEngagementReport       = "audit_report"
	AttachmentCodePartnerAssessment      = "partners_partner_assessment"
	AttachmentCodeFinalPartnershipReview = "partners_intervention_final_review"
	AttachmentCodeTermination            = "partners_intervention_termination"
)

// Notification template names, addressed to the notification sink
const (
	TemplateAmendmentAdded            = "partners/intervention/amendment/added"
	TemplateInterventionSentToPartner = "partners/intervention/send_to_partner"
	TemplateUnicefRejectedReview      = "partners/intervention/unicef_rejected_reviewed"
	TemplateInterventionSigned        = "partners/intervention/signed"
	TemplateInterventionEndingSoon    = "partners/intervention/ending_soon"
	TemplateAgreementSuspended        = "partners/agreement/suspended"
	TemplateEngagementSubmitToAuditor = "audit/engagement/submit_to_auditor"
	TemplateEngagementReported        = "audit/engagement/reported_by_auditor"
	TemplateEngagementFollowUpChanged = "audit/engagement/follow-up-changed"
	TemplateEngagementCancelled       = "audit/engagement/cancelled"
)

// Env Holds the values of environment variables
var Env struct {
	GoEnv         string `ignored:"true"`
	ApiBaseURL    string `required:"true" split_words:"true"`
	AppName       string `default:"eTools" split_words:"true"`
	ServerPort    int    `default:"3000" split_words:"true"`
	SessionSecret string `required:"true" split_words:"true"`
	UIURL         string `default:"http://missing.ui.url"`

	ListenerDelayMilliseconds int `default:"1000" split_words:"true"`
	ListenerMaxRetries        int `default:"10" split_words:"true"`

	SentryDSN string `default:"" split_words:"true"`

	AwsRegion           string `split_words:"true"`
	AwsS3Endpoint       string `split_words:"true"`
	AwsS3DisableSSL     bool   `split_words:"true"`
	AwsS3Bucket         string `split_words:"true"`
	AwsS3ACL            string `default:"private" split_words:"true"`
	AwsS3URLLifeMinutes int    `default:"10" split_words:"true"`
	AwsAccessKeyID      string `split_words:"true"`
	AwsSecretAccessKey  string `split_words:"true"`

	EmailFromAddress string `required:"true" split_words:"true"`
	EmailService     string `default:"ses" split_words:"true"`
	SupportEmail     string `default:"" split_words:"true"`

	MaxFileSize int `default:"10485760" split_words:"true"`

	// FinalReviewThreshold is the actual-amount level above which closing an
	// intervention requires a Final Partnership Review attachment.
	FinalReviewThreshold int `default:"100000" split_words:"true"`
}

func init() {
	readEnv()
}

// readEnv loads environment data into `Env`
func readEnv() {
	if err := envconfig.Process("", &Env); err != nil {
		log.Fatal("error loading env vars: " + err.Error())
	}

	// Doing this separately to avoid needing two environment variables for the same thing
	Env.GoEnv = envy.Get("GO_ENV", "development")
}

func getBuffaloContext(ctx context.Context) buffalo.Context {
	bc, ok := ctx.Value(BuffaloContext).(buffalo.Context)
	if ok {
		return bc
	}

	// Doesn't have a BuffaloContext value, so it must be the actual BuffaloContext
	return ctx.(buffalo.Context)
}

// NewExtra Sets a new key-value pair in the `extras` entry of the context
func NewExtra(ctx context.Context, key string, e interface{}) {
	c := getBuffaloContext(ctx)
	extras := getExtras(c)
	extras[key] = e
	c.Set(ContextKeyExtras, extras)
}

func getExtras(c buffalo.Context) map[string]interface{} {
	extras, _ := c.Value(ContextKeyExtras).(map[string]interface{})
	if extras == nil {
		extras = map[string]interface{}{}
	}

	return extras
}

// GetUUID creates a new, unique version 4 (random) UUID and returns it.
// Errors are ignored.
func GetUUID() uuid.UUID {
	id, _ := uuid.NewV4()
	return id
}

// GetBearerTokenFromRequest obtains the token from an Authorization header beginning
// with "Bearer". If not found, an empty string is returned.
func GetBearerTokenFromRequest(r *http.Request) string {
	authorizationHeader := r.Header.Get("Authorization")
	if authorizationHeader == "" {
		return ""
	}

	re := regexp.MustCompile(`^(?i)Bearer (.*)$`)
	matches := re.FindSubmatch([]byte(authorizationHeader))
	if len(matches) < 2 {
		return ""
	}

	return string(matches[1])
}

// IsOtherThanNoRows returns false if the error is nil or is just reporting that there
// were no rows in the result set for a sql query.
func IsOtherThanNoRows(err error) bool {
	if err == nil {
		return false
	}

	if strings.Contains(err.Error(), sql.ErrNoRows.Error()) {
		return false
	}

	return true
}

// IsStringInSlice iterates over a slice of strings, looking for the given
// string. If found, true is returned. Otherwise, false is returned.
func IsStringInSlice(needle string, haystack []string) bool {
	for _, hs := range haystack {
		if needle == hs {
			return true
		}
	}

	return false
}

// EmailFromAddress combines a name with the configured from address for use in an email From
// header. If name is nil, only the App Name will be used.
func EmailFromAddress(name *string) string {
	addr := Env.AppName + " <" + Env.EmailFromAddress + ">"
	if name != nil {
		addr = *name + " via " + addr
	}
	return addr
}

// RandomInsecureIntInRange is for non-cryptographic uses like jittering job start times
func RandomInsecureIntInRange(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min)
}

// BeginningOfDay returns the given time with the clock zeroed out, in UTC
func BeginningOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// NullTimeFromPtr converts an optional wire time into a nullable column value
func NullTimeFromPtr(t *time.Time) nulls.Time {
	if t == nil {
		return nulls.Time{}
	}
	return nulls.NewTime(*t)
}

// TimePtr converts a nullable column value into an optional wire time
func TimePtr(t nulls.Time) *time.Time {
	if !t.Valid {
		return nil
	}
	out := t.Time
	return &out
}
