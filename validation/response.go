package validation

import (
	"fmt"

	"github.com/prebid/openrtb/v20/openrtb2"
)

const (
	DiagnosticMissingResponse = "bid response is missing"
	DiagnosticResponseNoID    = "bid response must have a non-empty id"
)

// ValidateBidResponse runs the local structural checks on resp. Like ValidateBidRequest it
// reports every violated rule.
func ValidateBidResponse(resp *openrtb2.BidResponse) Report {
	var report Report
	if resp == nil {
		report.Diagnostics = append(report.Diagnostics, DiagnosticMissingResponse)
		return report
	}

	if resp.ID == "" {
		report.Diagnostics = append(report.Diagnostics, DiagnosticResponseNoID)
	}
	for i, seatBid := range resp.SeatBid {
		if len(seatBid.Bid) == 0 {
			report.Diagnostics = append(report.Diagnostics, fmt.Sprintf("seatbid %d must have one or more bids", i))
		}
		for j, bid := range seatBid.Bid {
			if bid.ID == "" {
				report.Diagnostics = append(report.Diagnostics, fmt.Sprintf("seatbid %d bid %d must have a non-empty id", i, j))
			}
			if bid.ImpID == "" {
				report.Diagnostics = append(report.Diagnostics, fmt.Sprintf("seatbid %d bid %d must name an impression", i, j))
			}
			if bid.Price < 0 {
				report.Diagnostics = append(report.Diagnostics, fmt.Sprintf("seatbid %d bid %d has a negative price", i, j))
			}
		}
	}

	return report
}
