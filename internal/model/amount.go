package model

import "github.com/shopspring/decimal"

// AmountPlaces is the number of decimal places every monetary value keeps.
const AmountPlaces = 6

// RoundAmount rounds v to AmountPlaces decimals to bound float drift.
func RoundAmount(v float64) float64 {
	return decimal.NewFromFloat(v).Round(AmountPlaces).InexactFloat64()
}
