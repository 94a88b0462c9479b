package grifts

import (
	"fmt"
	"time"

	"github.com/gobuffalo/grift/grift"
	"github.com/gobuffalo/nulls"
	"github.com/gobuffalo/pop/v6"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/models"
)

var _ = grift.Namespace("db", func() {
	grift.Desc("seed", "Seeds a database")
	_ = grift.Add("seed", func(c *grift.Context) error {
		countUsers := models.Users{}
		count, err := models.DB.Count(countUsers)
		if err != nil {
			return err
		}

		if count > 1 {
			fmt.Printf("\nINFO: It appears that the grifts have already been run, "+
				"since there are already %v users.\n", count)
			return nil
		}

		return models.DB.Transaction(func(tx *pop.Connection) error {
			country, err := createCountryFixture(tx)
			if err != nil {
				return err
			}

			cp, err := createCountryProgrammeFixture(tx, country)
			if err != nil {
				return err
			}

			partner, auditorOrg, err := createOrganizationFixtures(tx, country)
			if err != nil {
				return err
			}

			users, err := createUserFixtures(tx, country, partner, auditorOrg)
			if err != nil {
				return err
			}

			return createAgreementFixture(tx, country, cp, partner, users)
		})
	})
})

func createCountryFixture(tx *pop.Connection) (models.Country, error) {
	country := models.Country{
		Name:   "Lebanon",
		Code:   "LEB",
		Schema: "lebanon",
	}
	if err := country.Create(tx); err != nil {
		return country, err
	}
	return country, nil
}

func createCountryProgrammeFixture(tx *pop.Connection, country models.Country) (models.CountryProgramme, error) {
	year := time.Now().UTC().Year()
	cp := models.CountryProgramme{
		CountryID: country.ID,
		Name:      fmt.Sprintf("Country Programme %d-%d", year, year+3),
		WBS:       "0060/A0/07",
		FromDate:  time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC),
		ToDate:    time.Date(year+3, 12, 31, 0, 0, 0, 0, time.UTC),
	}
	if err := cp.Create(tx); err != nil {
		return cp, err
	}
	return cp, nil
}

func createOrganizationFixtures(tx *pop.Connection, country models.Country) (models.Partner, models.Organization, error) {
	partnerOrg := models.Organization{
		VendorNumber: "2500001234",
		Name:         "Hope and Relief Foundation",
		Type:         api.OrganizationTypeCSO,
		CSOSubtype:   "National",
	}
	if err := partnerOrg.Create(tx); err != nil {
		return models.Partner{}, models.Organization{}, err
	}

	partner := models.Partner{
		CountryID:      country.ID,
		OrganizationID: partnerOrg.ID,
	}
	if err := partner.Create(tx); err != nil {
		return partner, models.Organization{}, err
	}

	auditorOrg := models.Organization{
		VendorNumber: "2500009876",
		Name:         "Sterling and Shaw Auditors",
		Type:         api.OrganizationTypeAuditorFirm,
	}
	if err := auditorOrg.Create(tx); err != nil {
		return partner, auditorOrg, err
	}

	return partner, auditorOrg, nil
}

func createUserFixtures(tx *pop.Connection, country models.Country,
	partner models.Partner, auditorOrg models.Organization) ([]models.User, error) {

	partner.LoadOrganization(tx, false)

	fixUsers := []models.User{
		{
			Email:     "clark.kent@example.org",
			FirstName: "Clark",
			LastName:  "Kent",
			CountryID: country.ID,
		},
		{
			Email:     "diana.prince@example.org",
			FirstName: "Diana",
			LastName:  "Prince",
			CountryID: country.ID,
		},
		{
			Email:          "bruce.wayne@example.org",
			FirstName:      "Bruce",
			LastName:       "Wayne",
			CountryID:      country.ID,
			OrganizationID: nulls.NewUUID(partner.OrganizationID),
		},
		{
			Email:          "selina.kyle@example.org",
			FirstName:      "Selina",
			LastName:       "Kyle",
			CountryID:      country.ID,
			OrganizationID: nulls.NewUUID(auditorOrg.ID),
		},
		{
			Email:     "service@example.org",
			FirstName: "Service",
			LastName:  "Account",
			CountryID: country.ID,
			IsService: true,
		},
	}

	roles := [][]models.Role{
		{models.RoleUnicefUser, models.RolePartnershipManager},
		{models.RoleUnicefUser, models.RoleUnicefAuditFocalPoint},
		{models.RolePartnerAuthorizedOfficer, models.RolePartnerFocalPoint},
		{models.RoleAuditorFirmStaff},
		nil,
	}

	for i := range fixUsers {
		if err := fixUsers[i].Create(tx); err != nil {
			return nil, err
		}
		for _, role := range roles[i] {
			if err := fixUsers[i].AddRole(tx, role); err != nil {
				return nil, err
			}
		}

		uat, err := fixUsers[i].CreateAccessToken(tx)
		if err != nil {
			return nil, err
		}
		fmt.Printf("%s: bearer token %s\n", fixUsers[i].Email, uat.AccessToken)
	}

	return fixUsers, nil
}

func createAgreementFixture(tx *pop.Connection, country models.Country,
	cp models.CountryProgramme, partner models.Partner, users []models.User) error {

	agreement := models.Agreement{
		CountryID:          country.ID,
		Type:               api.AgreementTypePCA,
		Status:             api.AgreementStatusDraft,
		PartnerID:          partner.ID,
		CountryProgrammeID: nulls.NewUUID(cp.ID),
		Start:              nulls.NewTime(cp.FromDate),
		End:                nulls.NewTime(cp.ToDate),
	}
	if err := agreement.Create(tx, users[0]); err != nil {
		return err
	}

	officer := models.AgreementOfficer{
		AgreementID: agreement.ID,
		UserID:      users[2].ID,
	}
	return tx.Create(&officer)
}
