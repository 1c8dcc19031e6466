package validation

import (
	"strings"
	"testing"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/prebid/openrtb/v20/openrtb2"
)

func TestSchemaValidator_Valid(t *testing.T) {
	validator, err := NewSchemaValidator()
	assert.NoError(t, err)

	report := validator.Validate(&openrtb2.BidRequest{
		ID:    "r1",
		Imp:   []openrtb2.Imp{{ID: "1", BidFloor: 0.5, Banner: &openrtb2.Banner{}}},
		Site:  &openrtb2.Site{Domain: "news.example"},
		TMax:  120,
		Cur:   []string{"USD"},
		BSeat: []string{"s1"},
	})

	check.True(t, report.IsValid())
}

func TestSchemaValidator_Invalid(t *testing.T) {
	validator, err := NewSchemaValidator()
	assert.NoError(t, err)

	report := validator.Validate(&openrtb2.BidRequest{
		ID:   "r1",
		Imp:  []openrtb2.Imp{{BidFloor: 1.0}},
		Site: &openrtb2.Site{},
		Cur:  []string{"usd"},
	})

	check.False(t, report.IsValid())
	check.Equal(t, 2, len(report.Diagnostics))
	joined := strings.Join(report.Diagnostics, "\n")
	check.True(t, strings.Contains(joined, "imp.0"))
	check.True(t, strings.Contains(joined, "cur.0"))
}

func TestSchemaValidator_ValidateJSON(t *testing.T) {
	validator, err := NewSchemaValidator()
	assert.NoError(t, err)

	check.True(t, validator.ValidateJSON([]byte(`{"id":"r1","imp":[{"id":"1"}],"app":{"bundle":"b"}}`)).IsValid())
	check.False(t, validator.ValidateJSON([]byte(`{"id":"r1","imp":[{"id":"1"}],"tmax":-5}`)).IsValid())
	check.False(t, validator.ValidateJSON([]byte(`{"id":`)).IsValid())
}

func TestNewSchemaValidatorFromBytes_BadSchema(t *testing.T) {
	_, err := NewSchemaValidatorFromBytes([]byte(`{"type": 12}`))
	check.Error(t, err)
}

func TestResponseSchemaValidator_Valid(t *testing.T) {
	validator, err := NewResponseSchemaValidator()
	assert.NoError(t, err)

	report := validator.ValidateResponse(&openrtb2.BidResponse{
		ID:    "r1",
		BidID: "resp-1",
		Cur:   "USD",
		SeatBid: []openrtb2.SeatBid{{
			Seat: "s1",
			Bid: []openrtb2.Bid{{
				ID:      "b1",
				ImpID:   "imp1",
				Price:   2.5,
				AdM:     "<div/>",
				NURL:    "https://a.example/win",
				CrID:    "cr-1",
				ADomain: []string{"a.example"},
			}},
		}},
	})

	check.True(t, report.IsValid())
}

func TestResponseSchemaValidator_Invalid(t *testing.T) {
	validator, err := NewResponseSchemaValidator()
	assert.NoError(t, err)

	report := validator.ValidateResponse(&openrtb2.BidResponse{
		ID:  "r1",
		Cur: "usd",
		SeatBid: []openrtb2.SeatBid{{
			Seat: "s1",
			Bid:  []openrtb2.Bid{{ID: "b1", Price: -1}},
		}},
	})

	check.False(t, report.IsValid())
	joined := strings.Join(report.Diagnostics, "\n")
	check.True(t, strings.Contains(joined, "cur"))
	check.True(t, strings.Contains(joined, "seatbid.0.bid.0.impid"))
	check.True(t, strings.Contains(joined, "seatbid.0.bid.0.price"))
}

func TestResponseSchemaValidator_ValidateJSON(t *testing.T) {
	validator, err := NewResponseSchemaValidator()
	assert.NoError(t, err)

	check.True(t, validator.ValidateJSON([]byte(`{"id":"r1"}`)).IsValid())
	check.True(t, validator.ValidateJSON([]byte(`{"id":"r1","seatbid":[{"bid":[{"id":"b1","impid":"1","price":0.1}]}]}`)).IsValid())
	check.False(t, validator.ValidateJSON([]byte(`{"id":"r1","seatbid":[{"seat":"s1","bid":[]}]}`)).IsValid())
	check.False(t, validator.ValidateJSON([]byte(`{"seatbid":[]}`)).IsValid())

	report := validator.ValidateJSON([]byte(`{"id":`))
	assert.Equal(t, 1, len(report.Diagnostics))
	check.True(t, strings.HasPrefix(report.Diagnostics[0], "bid response is not valid json"))
}

func TestNewResponseSchemaValidatorFromBytes_BadSchema(t *testing.T) {
	_, err := NewResponseSchemaValidatorFromBytes([]byte(`{"type": 12}`))
	check.Error(t, err)
}
