package reqcontext

import (
	"math"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/prebid/openrtb/v20/openrtb2"

	"github.com/cloudx-io/opendsp/dspapi"
)

var testTimeouts = Timeouts{DefaultRequest: 200 * time.Millisecond, Offer: 80 * time.Millisecond}

func mustRoster(t *testing.T, advertisers ...dspapi.Advertiser) *dspapi.Roster {
	t.Helper()
	roster, err := dspapi.NewRoster(advertisers)
	assert.NoError(t, err)
	return roster
}

func TestNew_Timeouts(t *testing.T) {
	exchange := dspapi.Exchange{OrgName: "ssp1"}

	withTMax := New(&openrtb2.BidRequest{ID: "r1", TMax: 50}, exchange, nil, testTimeouts)
	check.Equal(t, 50*time.Millisecond, withTMax.RequestTimeout())
	check.Equal(t, 80*time.Millisecond, withTMax.OfferTimeout())

	withoutTMax := New(&openrtb2.BidRequest{ID: "r2"}, exchange, nil, testTimeouts)
	check.Equal(t, 200*time.Millisecond, withoutTMax.RequestTimeout())

	nilRequest := New(nil, exchange, nil, testTimeouts)
	check.Equal(t, 200*time.Millisecond, nilRequest.RequestTimeout())
	check.Equal(t, "ssp1", nilRequest.SSPName())
}

func TestNew_TMaxCapped(t *testing.T) {
	exchange := dspapi.Exchange{OrgName: "ssp1"}
	capped := Timeouts{DefaultRequest: 200 * time.Millisecond, Offer: 80 * time.Millisecond, MaxRequest: time.Second}

	tests := []struct {
		name     string
		tmax     int64
		timeouts Timeouts
		expected time.Duration
	}{
		{name: "below cap", tmax: 300, timeouts: capped, expected: 300 * time.Millisecond},
		{name: "at cap", tmax: 1000, timeouts: capped, expected: time.Second},
		{name: "above cap", tmax: 60000, timeouts: capped, expected: time.Second},
		{name: "max int64 capped", tmax: math.MaxInt64, timeouts: capped, expected: time.Second},
		{name: "max int64 uncapped", tmax: math.MaxInt64, timeouts: testTimeouts, expected: time.Duration(math.MaxInt64)},
		{name: "overflow boundary uncapped", tmax: math.MaxInt64/int64(time.Millisecond) + 1, timeouts: testTimeouts, expected: time.Duration(math.MaxInt64)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := New(&openrtb2.BidRequest{ID: "r1", TMax: tt.tmax}, exchange, nil, tt.timeouts)
			check.Equal(t, tt.expected, rc.RequestTimeout())
			check.True(t, rc.RequestTimeout() > 0)
		})
	}
}

func TestGetUnblockedSeats_ExcludesSeat(t *testing.T) {
	roster := mustRoster(t,
		dspapi.Advertiser{LandingPage: "a.example", Seats: map[string]string{"ssp1": "s1"}},
		dspapi.Advertiser{LandingPage: "b.example", Seats: map[string]string{"ssp1": "s2"}},
	)
	req := &openrtb2.BidRequest{ID: "r1", BSeat: []string{"s1"}}

	rc := New(req, dspapi.Exchange{OrgName: "ssp1"}, roster, testTimeouts)

	check.Equal(t, map[string]string{"s2": "b.example"}, rc.GetUnblockedSeats("ssp1"))
	check.True(t, rc.IsExcluded("s1"))
	check.False(t, rc.IsExcluded("s2"))
}

func TestGetUnblockedSeats_Empty(t *testing.T) {
	req := &openrtb2.BidRequest{ID: "r1"}

	emptyRoster := New(req, dspapi.Exchange{OrgName: "ssp1"}, mustRoster(t), testTimeouts)
	check.Equal(t, map[string]string{}, emptyRoster.GetUnblockedSeats("ssp1"))

	nilRoster := New(req, dspapi.Exchange{OrgName: "ssp1"}, nil, testTimeouts)
	check.Equal(t, map[string]string{}, nilRoster.GetUnblockedSeats("ssp1"))

	otherExchange := New(req, dspapi.Exchange{OrgName: "ssp1"}, mustRoster(t,
		dspapi.Advertiser{LandingPage: "a.example", Seats: map[string]string{"ssp2": "s1"}},
		dspapi.Advertiser{LandingPage: "b.example"},
	), testTimeouts)
	check.Equal(t, map[string]string{}, otherExchange.GetUnblockedSeats("ssp1"))
}

func TestGetAdvertiser(t *testing.T) {
	roster := mustRoster(t, dspapi.Advertiser{LandingPage: "a.example", Name: "Advertiser A"})
	rc := New(&openrtb2.BidRequest{ID: "r1"}, dspapi.Exchange{OrgName: "ssp1"}, roster, testTimeouts)

	advertiser, ok := rc.GetAdvertiser("a.example")
	assert.True(t, ok)
	check.Equal(t, "Advertiser A", advertiser.Name)

	_, ok = rc.GetAdvertiser("b.example")
	check.False(t, ok)
}

func TestEligibleSeats(t *testing.T) {
	roster := mustRoster(t,
		dspapi.Advertiser{LandingPage: "a.example", Seats: map[string]string{"ssp1": "s1"}},
		dspapi.Advertiser{LandingPage: "b.example", Seats: map[string]string{"ssp1": "s2"}},
		dspapi.Advertiser{LandingPage: "c.example", Seats: map[string]string{"ssp1": "s3"}, BlockList: []string{"news.example"}},
		dspapi.Advertiser{LandingPage: "d.example", Seats: map[string]string{"ssp1": "s4"}},
	)
	req := &openrtb2.BidRequest{
		ID:    "r1",
		Site:  &openrtb2.Site{Domain: "news.example"},
		BSeat: []string{"s4"},
		BAdv:  []string{"A.example"},
	}

	rc := New(req, dspapi.Exchange{OrgName: "ssp1"}, roster, testTimeouts)

	check.Equal(t, map[string]string{"s2": "b.example"}, rc.EligibleSeats())
}

func TestOfferTimerFlag(t *testing.T) {
	rc := New(&openrtb2.BidRequest{ID: "r1"}, dspapi.Exchange{OrgName: "ssp1"}, nil, testTimeouts)
	check.False(t, rc.OfferTimerActive())

	rc.SetOfferTimerActive(true)
	check.True(t, rc.OfferTimerActive())
}

func TestPublisherOf(t *testing.T) {
	check.Equal(t, "news.example", PublisherOf(&openrtb2.BidRequest{Site: &openrtb2.Site{Domain: "news.example"}}))
	check.Equal(t, "com.example.app", PublisherOf(&openrtb2.BidRequest{App: &openrtb2.App{Bundle: "com.example.app"}}))
	check.Equal(t, "", PublisherOf(&openrtb2.BidRequest{}))
}
