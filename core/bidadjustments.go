package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ApplySeatAdjustments multiplies each candidate price by its seat's adjustment factor.
// Seat lookups are case-insensitive; factors <= 0 are ignored.
func ApplySeatAdjustments(candidates []Candidate, adjustmentFactors map[string]float64) []Candidate {
	result := make([]Candidate, len(candidates))

	for i, c := range candidates {
		result[i] = c

		factor, exists := adjustmentFactors[strings.ToLower(c.Seat)]
		if !exists || factor <= 0 {
			continue
		}

		// Use decimal arithmetic for precise calculation
		adjusted := decimal.NewFromFloat(c.Price).Mul(decimal.NewFromFloat(factor))
		result[i].Price, _ = adjusted.Float64()
	}

	return result
}

// NormalizeAdjustmentFactors lower-cases seat keys so that configuration written with
// mixed case matches ApplySeatAdjustments lookups.
func NormalizeAdjustmentFactors(factors map[string]float64) map[string]float64 {
	if len(factors) == 0 {
		return nil
	}
	normalized := make(map[string]float64, len(factors))
	for seat, factor := range factors {
		normalized[strings.ToLower(seat)] = factor
	}
	return normalized
}
