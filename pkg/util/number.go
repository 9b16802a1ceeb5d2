package util

import (
	"github.com/shopspring/decimal"
)

var million = decimal.NewFromInt(1_000_000)

// FormatMoney renders v with two decimal places, rounding half away from zero.
func FormatMoney(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}

// Convert multiplies a USD amount by a rate and renders the result like FormatMoney.
// The product is computed in decimal so 2000 * 0.9 renders as 1800.00.
func Convert(usd, rate float64) string {
	return decimal.NewFromFloat(usd).Mul(decimal.NewFromFloat(rate)).Round(2).StringFixed(2)
}

// FormatMillions renders v in millions with two decimal places and an M suffix.
func FormatMillions(v float64) string {
	return decimal.NewFromFloat(v).Div(million).Round(2).StringFixed(2) + "M"
}
