package validation

import (
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/prebid/openrtb/v20/openrtb2"
)

func TestValidateBidRequest(t *testing.T) {
	tests := []struct {
		name     string
		request  *openrtb2.BidRequest
		expected []string
	}{
		{
			name: "valid site request",
			request: &openrtb2.BidRequest{
				ID:   "r1",
				Imp:  []openrtb2.Imp{{ID: "1"}},
				Site: &openrtb2.Site{Domain: "news.example"},
			},
			expected: nil,
		},
		{
			name:     "missing request",
			request:  nil,
			expected: []string{DiagnosticMissingRequest},
		},
		{
			name:     "every rule broken is reported",
			request:  &openrtb2.BidRequest{Imp: []openrtb2.Imp{}},
			expected: []string{DiagnosticMissingID, DiagnosticNoImpressions, DiagnosticNoContext},
		},
		{
			name: "app request with no impressions",
			request: &openrtb2.BidRequest{
				ID:  "r2",
				Imp: []openrtb2.Imp{},
				App: &openrtb2.App{Bundle: "com.example.app"},
			},
			expected: []string{DiagnosticNoImpressions},
		},
		{
			name: "site and app together",
			request: &openrtb2.BidRequest{
				ID:   "r3",
				Imp:  []openrtb2.Imp{{ID: "1"}},
				Site: &openrtb2.Site{},
				App:  &openrtb2.App{},
			},
			expected: []string{DiagnosticSiteAndApp},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := ValidateBidRequest(tt.request)
			check.Equal(t, tt.expected, report.Diagnostics)
			check.Equal(t, len(tt.expected) == 0, report.IsValid())
		})
	}
}
