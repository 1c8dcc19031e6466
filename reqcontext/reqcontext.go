// Package reqcontext binds an inbound bid request to the exchange that sent it, the
// advertiser roster the catalog resolved for that exchange, and the timeouts that govern
// the request's transaction.
package reqcontext

import (
	"math"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prebid/openrtb/v20/openrtb2"

	"github.com/cloudx-io/opendsp/dspapi"
)

// Timeouts are the platform defaults applied while building a RequestContext.
type Timeouts struct {
	// DefaultRequest is used when the request carries no tmax
	DefaultRequest time.Duration
	// Offer bounds bid solicitation and cannot be overridden by the request
	Offer time.Duration
	// MaxRequest caps the request's tmax; zero leaves it uncapped
	MaxRequest time.Duration
}

// RequestContext is built once per inbound request and is read-only afterwards, except
// for the offer-timer flag.
type RequestContext struct {
	request  *openrtb2.BidRequest
	exchange dspapi.Exchange
	roster   *dspapi.Roster
	excluded map[string]struct{}

	requestTimeout time.Duration
	offerTimeout   time.Duration

	offerTimerActive atomic.Bool
}

// New builds the context for req. The request timeout is req.TMax milliseconds when
// positive, capped at timeouts.MaxRequest, and the platform default otherwise.
func New(req *openrtb2.BidRequest, exchange dspapi.Exchange, roster *dspapi.Roster, timeouts Timeouts) *RequestContext {
	rc := &RequestContext{
		request:        req,
		exchange:       exchange,
		roster:         roster,
		excluded:       make(map[string]struct{}),
		requestTimeout: timeouts.DefaultRequest,
		offerTimeout:   timeouts.Offer,
	}
	if req != nil {
		if req.TMax > 0 {
			rc.requestTimeout = tmaxTimeout(req.TMax, timeouts.MaxRequest)
		}
		for _, seat := range req.BSeat {
			rc.excluded[seat] = struct{}{}
		}
	}
	return rc
}

// tmaxTimeout compares in milliseconds so that a huge tmax cannot overflow the
// Duration product.
func tmaxTimeout(tmax int64, limit time.Duration) time.Duration {
	if limit > 0 && tmax >= limit.Milliseconds() {
		return limit
	}
	if tmax > math.MaxInt64/int64(time.Millisecond) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(tmax) * time.Millisecond
}

// Request returns the request this context was built for. It may be nil.
func (rc *RequestContext) Request() *openrtb2.BidRequest {
	return rc.request
}

// Exchange returns the resolved exchange identity.
func (rc *RequestContext) Exchange() dspapi.Exchange {
	return rc.exchange
}

// SSPName returns the exchange's organization name.
func (rc *RequestContext) SSPName() string {
	return rc.exchange.OrgName
}

func (rc *RequestContext) RequestTimeout() time.Duration {
	return rc.requestTimeout
}

func (rc *RequestContext) OfferTimeout() time.Duration {
	return rc.offerTimeout
}

func (rc *RequestContext) SetOfferTimerActive(active bool) {
	rc.offerTimerActive.Store(active)
}

func (rc *RequestContext) OfferTimerActive() bool {
	return rc.offerTimerActive.Load()
}

// IsExcluded reports whether seatID is barred from bidding on this request.
func (rc *RequestContext) IsExcluded(seatID string) bool {
	_, ok := rc.excluded[seatID]
	return ok
}

// GetAdvertiser looks up the roster entry for landingPage.
func (rc *RequestContext) GetAdvertiser(landingPage string) (*dspapi.Advertiser, bool) {
	return rc.roster.Get(landingPage)
}

// GetUnblockedSeats maps seat id to landing page for every advertiser holding a seat on
// exchangeName whose seat is not excluded by the request. Advertisers without a seat on
// that exchange are skipped.
func (rc *RequestContext) GetUnblockedSeats(exchangeName string) map[string]string {
	seats := make(map[string]string)
	for _, landingPage := range rc.roster.LandingPages() {
		advertiser, _ := rc.roster.Get(landingPage)
		seatID := advertiser.Seat(exchangeName)
		if seatID == "" || rc.IsExcluded(seatID) {
			continue
		}
		seats[seatID] = advertiser.LandingPage
	}
	return seats
}

// EligibleSeats narrows the unblocked seats on the context's own exchange to advertisers
// the request allows and who allow the request's publisher.
func (rc *RequestContext) EligibleSeats() map[string]string {
	seats := rc.GetUnblockedSeats(rc.SSPName())
	if len(seats) == 0 {
		return seats
	}

	blockedAdvertisers := make(map[string]struct{})
	publisher := ""
	if rc.request != nil {
		for _, domain := range rc.request.BAdv {
			blockedAdvertisers[strings.ToLower(domain)] = struct{}{}
		}
		publisher = PublisherOf(rc.request)
	}

	for seatID, landingPage := range seats {
		if _, blocked := blockedAdvertisers[strings.ToLower(landingPage)]; blocked {
			delete(seats, seatID)
			continue
		}
		if advertiser, ok := rc.roster.Get(landingPage); ok && advertiser.Blocks(publisher) {
			delete(seats, seatID)
		}
	}
	return seats
}

// PublisherOf returns the site domain or app bundle identifying where the ad would run.
func PublisherOf(req *openrtb2.BidRequest) string {
	switch {
	case req.Site != nil && req.Site.Domain != "":
		return req.Site.Domain
	case req.App != nil && req.App.Bundle != "":
		return req.App.Bundle
	default:
		return ""
	}
}
