package billing

import (
	"github.com/shopspring/decimal"
)

// All monetary amounts carry two decimal places, rounded half-up at the
// point a value is persisted. Summation runs at full precision; only the
// stored results go through RoundMoney.
const moneyPlaces = 2

// RoundMoney rounds d to the stored precision. decimal.Round rounds half
// away from zero, which is half-up for the non-negative amounts billing
// deals in.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(moneyPlaces)
}

// ParseAmount parses a decimal string supplied by a caller. Amounts are
// exchanged as fixed-precision decimal strings, never binary floats.
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, validationErr("amount", "not a valid decimal: "+s)
	}
	// Compare by value so trailing zeros ("1.230") stay valid.
	if !d.Round(moneyPlaces).Equal(d) {
		return decimal.Zero, validationErr("amount", "more than two decimal places: "+s)
	}
	return d, nil
}

// clampZero floors a computed amount at zero.
func clampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
