package validation

import (
	"github.com/prebid/openrtb/v20/openrtb2"
)

// Report is the outcome of a validation pass. Every violated rule contributes one diagnostic.
type Report struct {
	Diagnostics []string `json:"diagnostics"`
}

// IsValid returns true if no rule was violated.
func (r Report) IsValid() bool {
	return len(r.Diagnostics) == 0
}

const (
	DiagnosticMissingRequest = "bid request is missing"
	DiagnosticMissingID      = "bid request must have a non-empty id"
	DiagnosticNoImpressions  = "bid request must have one or more impressions"
	DiagnosticNoContext      = "bid request must have a site or an app object"
	DiagnosticSiteAndApp     = "bid request must not have both site and app objects"
)

// ValidateBidRequest runs the local structural checks on req. All checks run, so a request
// that breaks several rules reports each of them.
func ValidateBidRequest(req *openrtb2.BidRequest) Report {
	var report Report
	if req == nil {
		report.Diagnostics = append(report.Diagnostics, DiagnosticMissingRequest)
		return report
	}

	if req.ID == "" {
		report.Diagnostics = append(report.Diagnostics, DiagnosticMissingID)
	}
	if len(req.Imp) == 0 {
		report.Diagnostics = append(report.Diagnostics, DiagnosticNoImpressions)
	}
	if req.Site == nil && req.App == nil {
		report.Diagnostics = append(report.Diagnostics, DiagnosticNoContext)
	}
	if req.Site != nil && req.App != nil {
		report.Diagnostics = append(report.Diagnostics, DiagnosticSiteAndApp)
	}

	return report
}
