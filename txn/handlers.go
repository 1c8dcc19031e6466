package txn

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/prebid/openrtb/v20/openrtb2"

	"github.com/cloudx-io/opendsp/core"
	"github.com/cloudx-io/opendsp/dspapi"
	"github.com/cloudx-io/opendsp/validation"
)

func (e *Engine) handleNewRequest(_ context.Context, tx *Transaction) Event {
	requestID := ""
	if req := tx.Request(); req != nil {
		requestID = req.ID
	}
	glog.V(2).Infof("txn %s: new request %q from %s, timeout %s", tx.id, requestID, tx.rctx.SSPName(), tx.rctx.RequestTimeout())
	return EventNewRequest
}

// handleValidate runs the local checks first; the structural validator only sees requests
// that pass them, so each broken local rule is reported exactly once.
func (e *Engine) handleValidate(_ context.Context, tx *Transaction) Event {
	req := tx.Request()

	report := validation.ValidateBidRequest(req)
	if report.IsValid() && e.validator != nil {
		report = e.validator.Validate(req)
	}

	if !report.IsValid() {
		glog.V(1).Infof("txn %s: request rejected: %s", tx.id, strings.Join(report.Diagnostics, "; "))
		tx.addDiagnostics(report.Diagnostics...)
		return EventFormatError
	}
	return EventSelectBids
}

func (e *Engine) handleSelectBids(ctx context.Context, tx *Transaction) Event {
	rctx := tx.rctx
	req := tx.Request()

	if !e.supportsCurrency(req.Cur) {
		glog.V(2).Infof("txn %s: no accepted currency in %v", tx.id, req.Cur)
		return EventNotSupported
	}

	seats := rctx.EligibleSeats()
	if len(seats) == 0 {
		glog.V(2).Infof("txn %s: no eligible seats on %s", tx.id, rctx.SSPName())
		return EventNoMatchingBids
	}

	offers, err := e.solicit(ctx, tx, seats)
	if err != nil {
		if ctx.Err() != nil {
			// The request deadline already settled the transaction.
			return EventNoMatchingBids
		}
		if errors.Is(err, context.DeadlineExceeded) {
			glog.V(1).Infof("txn %s: bid source overran offer timeout %s", tx.id, rctx.OfferTimeout())
			return EventOfferExpired
		}
		glog.Warningf("txn %s: bid source failed: %v", tx.id, err)
		return EventNoMatchingBids
	}

	candidates, byID := e.candidatesFor(tx, seats, offers)
	if len(candidates) == 0 {
		return EventNoMatchingBids
	}

	impOrder := make([]string, 0, len(req.Imp))
	impFloors := make(map[string]float64, len(req.Imp))
	for _, imp := range req.Imp {
		impOrder = append(impOrder, imp.ID)
		impFloors[imp.ID] = imp.BidFloor
	}

	exchange := rctx.Exchange()
	selection := core.SelectWinningOffers(
		candidates,
		core.NormalizeAdjustmentFactors(exchange.AdjustmentFactors),
		impFloors,
		e.randSource,
	)

	e.reportSelection(tx, impOrder, selection)

	winners := selection.Winners(impOrder)
	if len(winners) == 0 {
		glog.V(2).Infof("txn %s: %d offers, none cleared the floors", tx.id, len(candidates))
		return EventNoMatchingBids
	}

	tx.setOffered(e.buildResponse(req, winners, byID))
	return EventBidsOffered
}

// reportSelection logs the per-impression outcome and counts the offers that selection
// rejected.
func (e *Engine) reportSelection(tx *Transaction, impOrder []string, selection *core.SelectionResult) {
	rejected := make(map[string]int)
	for _, impID := range impOrder {
		res, ok := selection.Impressions[impID]
		if !ok {
			continue
		}
		for _, r := range res.Rejected {
			rejected[r.Reason]++
		}
		if glog.V(2) {
			winner, runnerUp := "-", "-"
			if res.Winner != nil {
				winner = fmt.Sprintf("%s@%.4f", res.Winner.Seat, res.Winner.Price)
			}
			if res.RunnerUp != nil {
				runnerUp = fmt.Sprintf("%s@%.4f", res.RunnerUp.Seat, res.RunnerUp.Price)
			}
			glog.Infof("txn %s: imp %s: %d eligible, %d rejected, winner %s, runner-up %s",
				tx.id, impID, len(res.Eligible), len(res.Rejected), winner, runnerUp)
		}
	}
	for reason, count := range rejected {
		e.recorder.RecordRejectedOffers(tx.rctx.SSPName(), reason, count)
	}
}

func (e *Engine) supportsCurrency(accepted []string) bool {
	if len(accepted) == 0 {
		return true
	}
	for _, cur := range accepted {
		if strings.EqualFold(cur, e.currency) {
			return true
		}
	}
	return false
}

// solicit asks the bid source for offers, bounded by the offer timeout. The offer-timer
// flag is raised for the duration of the call.
func (e *Engine) solicit(ctx context.Context, tx *Transaction, seats map[string]string) ([]dspapi.Offer, error) {
	rctx := tx.rctx

	offerCtx, cancel := ctx, context.CancelFunc(func() {})
	if timeout := rctx.OfferTimeout(); timeout > 0 {
		offerCtx, cancel = e.clock.WithTimeout(ctx, timeout)
	}
	defer cancel()

	rctx.SetOfferTimerActive(true)
	defer rctx.SetOfferTimerActive(false)

	offers, err := e.bidSource.SolicitBids(offerCtx, seats, tx.Request())
	if err == nil && offerCtx.Err() != nil {
		err = offerCtx.Err()
	}
	return offers, err
}

// candidatesFor keeps the offers that name an eligible (seat, landing page) pair, a known
// impression and the platform currency, and assigns each a bid id.
func (e *Engine) candidatesFor(tx *Transaction, seats map[string]string, offers []dspapi.Offer) ([]core.Candidate, map[string]dspapi.Offer) {
	imps := make(map[string]struct{}, len(tx.Request().Imp))
	for _, imp := range tx.Request().Imp {
		imps[imp.ID] = struct{}{}
	}

	candidates := make([]core.Candidate, 0, len(offers))
	byID := make(map[string]dspapi.Offer, len(offers))
	for _, offer := range offers {
		if landingPage, ok := seats[offer.Seat]; !ok || landingPage != offer.LandingPage {
			glog.V(2).Infof("txn %s: dropping offer from ineligible seat %q (%s)", tx.id, offer.Seat, offer.LandingPage)
			continue
		}
		if _, ok := imps[offer.ImpID]; !ok {
			glog.V(2).Infof("txn %s: dropping offer for unknown impression %q", tx.id, offer.ImpID)
			continue
		}
		if offer.Currency != "" && !strings.EqualFold(offer.Currency, e.currency) {
			glog.V(2).Infof("txn %s: dropping offer in %s", tx.id, offer.Currency)
			continue
		}

		id := uuid.NewString()
		byID[id] = offer
		candidates = append(candidates, core.Candidate{
			ID:       id,
			ImpID:    offer.ImpID,
			Seat:     offer.Seat,
			Price:    offer.Price,
			Currency: e.currency,
		})
	}
	return candidates, byID
}

// buildResponse groups the winning offers by seat. Bids carry the price the seat offered;
// exchange adjustment factors only influence ranking.
func (e *Engine) buildResponse(req *openrtb2.BidRequest, winners []core.Candidate, offers map[string]dspapi.Offer) *openrtb2.BidResponse {
	resp := &openrtb2.BidResponse{
		ID:    req.ID,
		BidID: uuid.NewString(),
		Cur:   e.currency,
	}

	seatIndex := make(map[string]int)
	for _, winner := range winners {
		offer := offers[winner.ID]
		bid := openrtb2.Bid{
			ID:    winner.ID,
			ImpID: winner.ImpID,
			Price: offer.Price,
			AdM:   offer.AdMarkup,
			NURL:  offer.NoticeURL,
			CrID:  offer.CreativeID,
		}
		if offer.LandingPage != "" {
			bid.ADomain = []string{offer.LandingPage}
		}

		idx, ok := seatIndex[winner.Seat]
		if !ok {
			idx = len(resp.SeatBid)
			seatIndex[winner.Seat] = idx
			resp.SeatBid = append(resp.SeatBid, openrtb2.SeatBid{Seat: winner.Seat})
		}
		resp.SeatBid[idx].Bid = append(resp.SeatBid[idx].Bid, bid)
	}
	return resp
}
