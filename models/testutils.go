//go:build development
// +build development

// This build tag ensures that this file will not be included unless
// the `development` tag is explicitly requested (which should be never)

package models

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gobuffalo/buffalo"
	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"
	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
)

// Fixtures is a struct of slices of the models likely to be used in tests
type Fixtures struct {
	Agreements
	AgreementOfficers
	Attachments
	Countries
	CountryProgrammes
	Engagements
	Findings
	FundsReservations
	Interventions
	Organizations
	Partners
	POItems
	PurchaseOrders
	Users
	UserAccessTokens
}

// TestBuffaloContext is a buffalo context for model tests
type TestBuffaloContext struct {
	buffalo.DefaultContext
	params map[any]any
}

// Value returns the value associated with the given key in the test context
func (b *TestBuffaloContext) Value(key any) any {
	return b.params[key]
}

// Set sets the value to be associated with the given key in the test context
func (b *TestBuffaloContext) Set(key string, val any) {
	b.params[key] = val
}

// CreateTestContext sets the given user as the current user in a new test context
func CreateTestContext(user User) buffalo.Context {
	ctx := &TestBuffaloContext{
		params: map[any]any{},
	}
	ctx.Set(domain.ContextKeyCurrentUser, user)
	return ctx
}

const chars = "abcdefghijklmnopqrstuvwxyz123456789"

func randStr(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = chars[rand.Intn(len(chars))]
	}
	return string(b)
}

// MustCreate saves a record to the database with validation. Panics if any error occurs.
func MustCreate(tx *pop.Connection, f any) {
	// Use `create` instead of `tx.Create` to check validation rules
	if err := create(tx, f); err != nil {
		panic(fmt.Sprintf("error creating %T fixture, %s", f, err))
	}
}

// MustUpdate saves changes to a record with validation. Panics if any error occurs.
func MustUpdate(tx *pop.Connection, f any) {
	if err := update(tx, f); err != nil {
		panic(fmt.Sprintf("error updating %T fixture, %s", f, err))
	}
}

// DestroyAll removes all rows from all tables, children first
func DestroyAll() {
	var snapshots Snapshots
	destroyTable(&snapshots)
	var amendments Amendments
	destroyTable(&amendments)

	// results framework, leaves first
	var activityTimeFrames []ActivityTimeFrame
	destroyTable(&activityTimeFrames)
	var activityItems ActivityItems
	destroyTable(&activityItems)
	var activities Activities
	destroyTable(&activities)
	var indicators AppliedIndicators
	destroyTable(&indicators)
	var lowerResults LowerResults
	destroyTable(&lowerResults)
	var resultLinks ResultLinks
	destroyTable(&resultLinks)
	var timeFrames TimeFrames
	destroyTable(&timeFrames)

	// intervention satellites
	var supplyItems SupplyItems
	destroyTable(&supplyItems)
	var budgetLines ManagementBudgetLines
	destroyTable(&budgetLines)
	var budgets []PlannedBudget
	destroyTable(&budgets)
	var focalPoints InterventionFocalPoints
	destroyTable(&focalPoints)
	var frs FundsReservations
	destroyTable(&frs)

	// amendment copies reference their live document, so they go first
	destroyInterventionCopies()
	var interventions Interventions
	destroyTable(&interventions)

	var findings Findings
	destroyTable(&findings)
	var engagements Engagements
	destroyTable(&engagements)

	var officers AgreementOfficers
	destroyTable(&officers)
	var agreements Agreements
	destroyTable(&agreements)
	var counters []ReferenceCounter
	destroyTable(&counters)

	var poItems POItems
	destroyTable(&poItems)
	var purchaseOrders PurchaseOrders
	destroyTable(&purchaseOrders)

	var partners Partners
	destroyTable(&partners)
	var attachments Attachments
	destroyTable(&attachments)

	var tokens UserAccessTokens
	destroyTable(&tokens)
	var userRoles UserRoles
	destroyTable(&userRoles)
	var users Users
	destroyTable(&users)

	var organizations Organizations
	destroyTable(&organizations)
	var programmes CountryProgrammes
	destroyTable(&programmes)
	var countries Countries
	destroyTable(&countries)
}

func destroyInterventionCopies() {
	var copies Interventions
	if err := DB.Where("origin_id IS NOT NULL").All(&copies); err != nil {
		panic(err.Error())
	}
	if err := DB.Destroy(&copies); err != nil {
		panic(err.Error())
	}
}

func destroyTable(i any) {
	if err := DB.All(i); err != nil {
		panic(err.Error())
	}
	if err := DB.Destroy(i); err != nil {
		panic(err.Error())
	}
}

// CreateCountryFixture generates a country record for testing
func CreateCountryFixture(tx *pop.Connection) Country {
	country := Country{
		Name:   "Country " + randStr(8),
		Code:   randStr(3),
		Schema: randStr(10),
	}
	MustCreate(tx, &country)
	return country
}

// CreateCountryProgrammeFixture generates a country programme covering the given window
func CreateCountryProgrammeFixture(tx *pop.Connection, country Country, from, to time.Time) CountryProgramme {
	cp := CountryProgramme{
		CountryID: country.ID,
		Name:      "Programme " + randStr(8),
		WBS:       randStr(10),
		FromDate:  from,
		ToDate:    to,
	}
	MustCreate(tx, &cp)
	return cp
}

// CreateUserFixtures generates any number of user records for testing, all
// holding the given roles. The access token for each user is the user's email
// address, hashed.
func CreateUserFixtures(tx *pop.Connection, country Country, n int, roles ...Role) Fixtures {
	unique := randStr(8)

	users := make(Users, n)
	tokens := make(UserAccessTokens, n)
	for i := range users {
		users[i].Email = fmt.Sprintf("user%d_%s@example.com", i, unique)
		users[i].FirstName = "first" + unique
		users[i].LastName = fmt.Sprintf("last%d", i)
		users[i].CountryID = country.ID
		MustCreate(tx, &users[i])

		for _, role := range roles {
			if err := users[i].AddRole(tx, role); err != nil {
				panic("error adding role to user fixture, " + err.Error())
			}
		}

		tokens[i].UserID = users[i].ID
		tokens[i].TokenHash = HashAccessToken(users[i].Email)
		tokens[i].ExpiresAt = time.Now().UTC().Add(time.Hour)
		MustCreate(tx, &tokens[i])
	}

	return Fixtures{
		Countries:        Countries{country},
		Users:            users,
		UserAccessTokens: tokens,
	}
}

// CreateServiceUserFixture generates the internal service account used by the
// maintenance pass and the ERP ingest
func CreateServiceUserFixture(tx *pop.Connection, country Country) User {
	user := User{
		Email:     fmt.Sprintf("service_%s@example.com", randStr(8)),
		FirstName: "Service",
		LastName:  "Account",
		CountryID: country.ID,
		IsService: true,
	}
	MustCreate(tx, &user)
	return user
}

// CreatePartnerFixture generates a CSO organization and its partner record
func CreatePartnerFixture(tx *pop.Connection, country Country) Partner {
	org := Organization{
		VendorNumber: randStr(10),
		Name:         "Partner Org " + randStr(8),
		Type:         api.OrganizationTypeCSO,
		CSOSubtype:   "National",
	}
	MustCreate(tx, &org)

	partner := Partner{
		CountryID:      country.ID,
		OrganizationID: org.ID,
		RiskRating:     api.PartnerRiskRatingNonAssessed,
	}
	MustCreate(tx, &partner)
	partner.Organization = org
	return partner
}

// CreateAuditorFirmFixture generates an auditor firm organization with one
// purchase order and line item
func CreateAuditorFirmFixture(tx *pop.Connection) (Organization, PurchaseOrder, POItem) {
	firm := Organization{
		VendorNumber: randStr(10),
		Name:         "Auditor Firm " + randStr(8),
		Type:         api.OrganizationTypeAuditorFirm,
	}
	MustCreate(tx, &firm)

	po := PurchaseOrder{
		OrderNumber:   randStr(10),
		AuditorFirmID: firm.ID,
	}
	MustCreate(tx, &po)

	item := POItem{
		PurchaseOrderID: po.ID,
		Number:          "10",
	}
	MustCreate(tx, &item)
	return firm, po, item
}

// CreateAgreementFixture generates a signed PCA between the partner and UNICEF,
// spanning the country programme window
func CreateAgreementFixture(tx *pop.Connection, country Country, partner Partner, cp CountryProgramme) Agreement {
	agreement := Agreement{
		CountryID:           country.ID,
		Type:                api.AgreementTypePCA,
		Status:              api.AgreementStatusSigned,
		PartnerID:           partner.ID,
		CountryProgrammeID:  nulls.NewUUID(cp.ID),
		Start:               nulls.NewTime(cp.FromDate),
		End:                 nulls.NewTime(cp.ToDate),
		SignedByUnicefDate:  nulls.NewTime(cp.FromDate),
		SignedByPartnerDate: nulls.NewTime(cp.FromDate),
	}
	MustCreate(tx, &agreement)
	return agreement
}

// CreateInterventionFixture generates a draft PD under the agreement with its
// budget satellites, created the way the API path creates it
func CreateInterventionFixture(tx *pop.Connection, agreement Agreement, user User, start, end time.Time) Intervention {
	i := Intervention{
		CountryID:    agreement.CountryID,
		DocumentType: api.InterventionTypePD,
		Title:        "Intervention " + randStr(8),
		Status:       api.InterventionStatusDraft,
		AgreementID:  agreement.ID,
		UnicefCourt:  true,
		Start:        nulls.NewTime(start),
		End:          nulls.NewTime(end),
	}
	if err := i.Create(tx, "USD", user); err != nil {
		panic("error creating intervention fixture, " + err.Error())
	}
	return i
}

// CreateResultTreeFixture generates one output, one lower result and one
// activity carrying the given UNICEF cash, and recomputes the budget totals
func CreateResultTreeFixture(tx *pop.Connection, intervention Intervention, unicefCash decimal.Decimal) (ResultLink, LowerResult, Activity) {
	link := ResultLink{
		InterventionID: intervention.ID,
		CPOutputID:     domain.GetUUID(),
		Code:           "1",
		Ordinal:        1,
	}
	MustCreate(tx, &link)

	lr := LowerResult{
		ResultLinkID: link.ID,
		Code:         "1.1",
		Ordinal:      1,
		Name:         "Lower result " + randStr(6),
	}
	MustCreate(tx, &lr)

	activity := Activity{
		LowerResultID: lr.ID,
		Code:          "1.1.1",
		Ordinal:       1,
		Name:          "Activity " + randStr(6),
		UnicefCash:    unicefCash,
		IsActive:      true,
	}
	MustCreate(tx, &activity)

	if err := intervention.RecomputeBudget(tx); err != nil {
		panic("error recomputing budget for fixture, " + err.Error())
	}
	return link, lr, activity
}

// CreateFundsReservationFixture generates an FRS header claimed by the intervention
func CreateFundsReservationFixture(tx *pop.Connection, intervention Intervention, amount decimal.Decimal) FundsReservation {
	frs := FundsReservation{
		FrNumber:        randStr(10),
		VendorCode:      randStr(10),
		InterventionID:  nulls.NewUUID(intervention.ID),
		Currency:        "USD",
		TotalAmt:        amount,
		InterventionAmt: amount,
		OutstandingAmt:  amount,
	}
	MustCreate(tx, &frs)
	return frs
}

// CreateEngagementFixture generates an engagement in partner_contacted under
// a fresh auditor firm purchase order
func CreateEngagementFixture(tx *pop.Connection, partner Partner, eType api.EngagementType) Engagement {
	_, po, _ := CreateAuditorFirmFixture(tx)
	e := Engagement{
		CountryID:          partner.CountryID,
		Type:               eType,
		Status:             api.EngagementStatusPartnerContacted,
		PartnerID:          partner.ID,
		PurchaseOrderID:    po.ID,
		Currency:           "USD",
		PartnerContactedAt: nulls.NewTime(time.Now().UTC()),
	}
	MustCreate(tx, &e)
	return e
}

// CreateAttachmentFixture generates an attachment metadata row without touching
// the object store
func CreateAttachmentFixture(tx *pop.Connection, user User, code string) Attachment {
	a := Attachment{
		URL:           "https://files.example.com/" + randStr(16),
		URLExpiration: time.Now().UTC().Add(time.Hour),
		Name:          randStr(8) + ".pdf",
		Size:          1024,
		ContentType:   "application/pdf",
		Code:          code,
		CreatedByID:   user.ID,
	}
	MustCreate(tx, &a)
	return a
}
