package shared

import "github.com/shopspring/decimal"

// Round2 rounds an amount to two decimal places, half away from zero.
// All persisted subtotal/tax/total figures go through this so fractional
// cents are resolved the same way everywhere.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal computes quantity × unit price rounded to cents.
func LineTotal(quantity, unitPrice decimal.Decimal) decimal.Decimal {
	return Round2(quantity.Mul(unitPrice))
}

// TaxAmount computes the fixed-rate tax over a subtotal, rounded to cents.
// The rate is expressed as a percentage (21 means 21%).
func TaxAmount(subtotal decimal.Decimal, ratePercent decimal.Decimal) decimal.Decimal {
	return Round2(subtotal.Mul(ratePercent).Div(decimal.NewFromInt(100)))
}
