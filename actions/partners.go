package actions

import (
	"errors"

	"github.com/gobuffalo/buffalo"

	"github.com/equitrack/partnership-api/api"
	"github.com/equitrack/partnership-api/domain"
	"github.com/equitrack/partnership-api/models"
)

func getReferencedPartnerFromCtx(c buffalo.Context) *models.Partner {
	partner, ok := c.Value(domain.TypePartner).(*models.Partner)
	if !ok {
		return nil
	}
	return partner
}

// partnersList returns the partners of the caller's country with their HACT
// counters.
func partnersList(c buffalo.Context) error {
	tx := models.Tx(c)
	user := models.CurrentUser(c)

	var partners models.Partners
	if err := partners.AllForCountry(tx, user.CountryID); err != nil {
		return reportError(c, err)
	}

	out := make([]api.Partner, len(partners))
	for i := range partners {
		out[i] = partners[i].ConvertToAPI(tx)
	}
	return renderOk(c, out)
}

// partnersView returns one partner
func partnersView(c buffalo.Context) error {
	tx := models.Tx(c)

	partner := getReferencedPartnerFromCtx(c)
	if partner == nil {
		err := errors.New("partner not found in context")
		return reportError(c, api.NewAppError(err, api.ErrorResourceNotFound, api.CategoryInternal))
	}

	return renderOk(c, partner.ConvertToAPI(tx))
}
