// Package fin holds the pure money math for intervention budgets. Nothing in
// here touches the database; callers pass amounts in and persist the results.
package fin

import (
	"github.com/shopspring/decimal"

	"github.com/equitrack/partnership-api/domain"
)

// Streams is a cash amount split across the three funding streams.
type Streams struct {
	Unicef   decimal.Decimal
	CSO      decimal.Decimal
	Unfunded decimal.Decimal
}

func (s Streams) Total() decimal.Decimal {
	return s.Unicef.Add(s.CSO).Add(s.Unfunded)
}

func (s Streams) Add(other Streams) Streams {
	return Streams{
		Unicef:   s.Unicef.Add(other.Unicef),
		CSO:      s.CSO.Add(other.CSO),
		Unfunded: s.Unfunded.Add(other.Unfunded),
	}
}

func (s Streams) Equal(other Streams) bool {
	return s.Unicef.Equal(other.Unicef) && s.CSO.Equal(other.CSO) && s.Unfunded.Equal(other.Unfunded)
}

// Round rounds to the monetary precision, half away from zero.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(domain.MoneyPrecision)
}

// ItemTotal is the rounded cost of an activity item: no_units * unit_price.
func ItemTotal(noUnits, unitPrice decimal.Decimal) decimal.Decimal {
	return Round(noUnits.Mul(unitPrice))
}

// Sum adds up a list of amounts.
func Sum(amounts []decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// SumStreams totals each stream across the given splits.
func SumStreams(splits []Streams) Streams {
	var total Streams
	for _, s := range splits {
		total = total.Add(s)
	}
	return total
}

// ReconcileShares adjusts the given split so the three streams sum exactly to
// total. Any remainder after rounding each share is placed on the largest
// share; ties break in stream order unicef, cso, unfunded.
func ReconcileShares(total decimal.Decimal, shares Streams) Streams {
	out := Streams{
		Unicef:   Round(shares.Unicef),
		CSO:      Round(shares.CSO),
		Unfunded: Round(shares.Unfunded),
	}

	remainder := Round(total).Sub(out.Total())
	if remainder.IsZero() {
		return out
	}

	switch largestStream(out) {
	case streamUnicef:
		out.Unicef = out.Unicef.Add(remainder)
	case streamCSO:
		out.CSO = out.CSO.Add(remainder)
	default:
		out.Unfunded = out.Unfunded.Add(remainder)
	}
	return out
}

type stream int

const (
	streamUnicef stream = iota
	streamCSO
	streamUnfunded
)

func largestStream(s Streams) stream {
	largest := streamUnicef
	max := s.Unicef
	if s.CSO.GreaterThan(max) {
		largest, max = streamCSO, s.CSO
	}
	if s.Unfunded.GreaterThan(max) {
		largest = streamUnfunded
	}
	return largest
}

// ToLocal converts a USD amount to local currency using the stored rate.
func ToLocal(usd, exchangeRate decimal.Decimal) decimal.Decimal {
	return Round(usd.Mul(exchangeRate))
}

// ToUSD converts a local-currency amount to USD using the stored rate.
// A zero rate yields zero rather than dividing by zero.
func ToUSD(local, exchangeRate decimal.Decimal) decimal.Decimal {
	if exchangeRate.IsZero() {
		return decimal.Zero
	}
	return Round(local.Div(exchangeRate))
}

// FundsDelta is the difference between the sum of FRS intervention amounts and
// the budget's unicef cash. Zero means the funds reconcile.
func FundsDelta(frsAmounts []decimal.Decimal, unicefCashLocal decimal.Decimal) decimal.Decimal {
	return unicefCashLocal.Sub(Sum(frsAmounts))
}
