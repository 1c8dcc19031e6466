package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang/glog"
	"github.com/julienschmidt/httprouter"

	"github.com/cloudx-io/opendsp/catalog"
	"github.com/cloudx-io/opendsp/dspapi"
	"github.com/cloudx-io/opendsp/metrics"
	"github.com/cloudx-io/opendsp/reqcontext"
	"github.com/cloudx-io/opendsp/txn"
)

const maxRequestBytes = 1 << 20

// TransactionHeader carries the transaction id on every bid response.
const TransactionHeader = "X-Transaction-Id"

func (s *Server) handleBid(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	sspName := r.URL.Query().Get("ssp_name")
	if sspName == "" {
		s.reject(w, metrics.RejectMissingSSP, http.StatusBadRequest, "Missing ssp_name")
		return
	}

	exchange, roster, err := s.catalog.Resolve(r.Context(), sspName)
	if err != nil {
		if errors.Is(err, catalog.ErrUnknownExchange) {
			s.reject(w, metrics.RejectUnknownExchange, http.StatusUnauthorized, "Unknown Sender")
			return
		}
		glog.Errorf("Failed to resolve exchange %q: %v", sspName, err)
		http.Error(w, "Catalog unavailable", http.StatusInternalServerError)
		return
	}

	contentType := r.Header.Get("Content-Type")
	if contentType == "" {
		contentType = dspapi.ContentTypeJSON
	}
	if !exchange.Accepts(contentType) {
		s.reject(w, metrics.RejectUnsupportedMedia, http.StatusUnsupportedMediaType, "Unsupported content type")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		s.reject(w, metrics.RejectUndecodable, http.StatusBadRequest, "Failed to read request")
		return
	}
	req, err := dspapi.DecodeBidRequest(contentType, body)
	if err != nil {
		glog.V(1).Infof("Undecodable request from %s: %v", sspName, err)
		s.reject(w, metrics.RejectUndecodable, http.StatusBadRequest, "Malformed bid request")
		return
	}

	rctx := reqcontext.New(req, *exchange, roster, s.timeouts)
	tx := txn.New(rctx)
	w.Header().Set(TransactionHeader, tx.ID())

	result, err := s.engine.Execute(tx)
	if err != nil {
		http.Error(w, "Internal error", http.StatusInternalServerError)
		return
	}

	switch result.Outcome() {
	case txn.OutcomeBid:
		if !s.responseValid(sspName, result) {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		payload, err := dspapi.EncodeBidResponse(contentType, result.Response)
		if err != nil {
			glog.Errorf("txn %s: failed to encode response: %v", result.TransactionID, err)
			http.Error(w, "Internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", contentType)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(payload); err != nil {
			glog.Warningf("txn %s: failed to write response: %v", result.TransactionID, err)
		}
	case txn.OutcomeFormatError:
		http.Error(w, strings.Join(result.Diagnostics, "\n"), http.StatusBadRequest)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

func (s *Server) responseValid(sspName string, result txn.Result) bool {
	if s.responseCheck == nil {
		return true
	}
	report := s.responseCheck.ValidateResponse(result.Response)
	if report.IsValid() {
		return true
	}
	glog.Errorf("txn %s: dropping invalid bid response: %s", result.TransactionID, strings.Join(report.Diagnostics, "; "))
	bids := 0
	for _, seatBid := range result.Response.SeatBid {
		bids += len(seatBid.Bid)
	}
	s.recorder.RecordRejectedOffers(sspName, metrics.RejectInvalidResponse, bids)
	return false
}

func (s *Server) reject(w http.ResponseWriter, reason string, status int, message string) {
	s.recorder.RecordRejectedRequest(reason)
	http.Error(w, message, status)
}

type statusResponse struct {
	Status     string `json:"status"`
	InFlight   int    `json:"in_flight"`
	MaxWorkers int    `json:"max_workers"`
	Uptime     string `json:"uptime"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.Header().Set("Content-Type", dspapi.ContentTypeJSON)
	if err := json.NewEncoder(w).Encode(statusResponse{
		Status:     "ok",
		InFlight:   len(s.slots),
		MaxWorkers: cap(s.slots),
		Uptime:     time.Since(s.startedAt).Round(time.Second).String(),
	}); err != nil {
		glog.Errorf("Failed to encode status: %v", err)
	}
}
