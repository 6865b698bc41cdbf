package utils

import "github.com/shopspring/decimal"

// Decimal places kept for each ledger quantity.
const (
	EnergyPlaces = 3
	CreditPlaces = 6
	CarbonPlaces = 3
	CashPlaces   = 2
)

// Round rounds v half away from zero on its shortest decimal representation,
// so 1.0005 rounds to 1.001 rather than drifting on the binary value.
func Round(v float64, places int32) float64 {
	return decimal.NewFromFloat(v).Round(places).InexactFloat64()
}

// Add sums a and b in decimal space and rounds the result.
func Add(a, b float64, places int32) float64 {
	return decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(places).InexactFloat64()
}

// Sub subtracts b from a in decimal space and rounds the result.
func Sub(a, b float64, places int32) float64 {
	return decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(places).InexactFloat64()
}

// Mul multiplies a by b in decimal space and rounds the result.
func Mul(a, b float64, places int32) float64 {
	return decimal.NewFromFloat(a).Mul(decimal.NewFromFloat(b)).Round(places).InexactFloat64()
}
