package core

import (
	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 4 // 4 decimal places for CPM values (0.0001 precision)

// BidMeetsFloor returns true if the bid price meets or exceeds the floor price.
// Uses decimal arithmetic with monetaryPrecision to avoid floating-point errors.
func BidMeetsFloor(bidPrice, floorPrice float64) bool {
	bidPriceDecimal := decimal.NewFromFloat(bidPrice).Round(monetaryPrecision)
	floorDecimal := decimal.NewFromFloat(floorPrice).Round(monetaryPrecision)

	return bidPriceDecimal.GreaterThanOrEqual(floorDecimal)
}

// EnforceBidFloor filters candidates against a single impression floor.
// Non-positive prices are always rejected, even with a zero floor.
func EnforceBidFloor(candidates []Candidate, floor float64) (eligible []Candidate, rejected []RejectedCandidate) {
	eligible = make([]Candidate, 0, len(candidates))
	rejected = make([]RejectedCandidate, 0)

	for _, c := range candidates {
		if c.Price <= 0 {
			rejected = append(rejected, RejectedCandidate{Candidate: c, Reason: RejectReasonInvalidPrice})
			continue
		}
		if BidMeetsFloor(c.Price, floor) {
			eligible = append(eligible, c)
		} else {
			rejected = append(rejected, RejectedCandidate{Candidate: c, Reason: RejectReasonBelowFloor})
		}
	}

	return eligible, rejected
}
