package validation

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/prebid/openrtb/v20/openrtb2"
)

func TestValidateBidResponse(t *testing.T) {
	tests := []struct {
		name     string
		response *openrtb2.BidResponse
		expected []string
	}{
		{
			name: "valid response",
			response: &openrtb2.BidResponse{
				ID:  "r1",
				Cur: "USD",
				SeatBid: []openrtb2.SeatBid{{
					Seat: "s1",
					Bid:  []openrtb2.Bid{{ID: "b1", ImpID: "imp1", Price: 1.5}},
				}},
			},
			expected: nil,
		},
		{
			name:     "no-bid response carries only an id",
			response: &openrtb2.BidResponse{ID: "r1"},
			expected: nil,
		},
		{
			name:     "missing response",
			response: nil,
			expected: []string{DiagnosticMissingResponse},
		},
		{
			name: "every rule broken is reported",
			response: &openrtb2.BidResponse{
				SeatBid: []openrtb2.SeatBid{
					{Seat: "s1"},
					{Seat: "s2", Bid: []openrtb2.Bid{{Price: -1}}},
				},
			},
			expected: []string{
				DiagnosticResponseNoID,
				"seatbid 0 must have one or more bids",
				"seatbid 1 bid 0 must have a non-empty id",
				"seatbid 1 bid 0 must name an impression",
				"seatbid 1 bid 0 has a negative price",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := ValidateBidResponse(tt.response)
			check.Equal(t, tt.expected, report.Diagnostics)
			check.Equal(t, len(tt.expected) == 0, report.IsValid())
		})
	}
}
