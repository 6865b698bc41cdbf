package service

import (
	"math"

	"github.com/riteshkumar/greengrid/internal/utils"
)

const (
	CreditsPerKwh  = 0.001
	CarbonKgPerKwh = 0.8

	MaxScore          = 1000
	EligibilityCutoff = 300
)

// Mint converts a metered amount of energy into credit and carbon-offset
// deltas. Credits keep 6 decimals, carbon 3.
func Mint(kwh float64) (creditDelta, carbonDelta float64) {
	creditDelta = utils.Mul(kwh, CreditsPerKwh, utils.CreditPlaces)
	carbonDelta = utils.Mul(kwh, CarbonKgPerKwh, utils.CarbonPlaces)
	return creditDelta, carbonDelta
}

// Score is min(1000, round(ln(1+energy)*200 + credits*50)).
func Score(energyTotalKwh, creditBalance float64) int {
	raw := math.Round(math.Log1p(energyTotalKwh)*200 + creditBalance*50)
	if raw > MaxScore {
		return MaxScore
	}
	return int(raw)
}

func Eligible(score int) bool {
	return score > EligibilityCutoff
}
