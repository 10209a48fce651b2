package domain

import "github.com/shopspring/decimal"

func init() {
	// amounts travel as plain JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// ClampZero returns d, or zero when d is negative.
func ClampZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
