package bidsource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/prebid/openrtb/v20/openrtb2"

	"github.com/cloudx-io/opendsp/dspapi"
)

// ErrUpstreamStatus is wrapped into errors for upstream replies other than 200 and 204.
var ErrUpstreamStatus = errors.New("unexpected upstream status")

const maxResponseBytes = 1 << 20

// Solicitation is the body POSTed to an HTTP bid source.
type Solicitation struct {
	Request *openrtb2.BidRequest `json:"request"`
	// Seats maps seat id to landing page
	Seats map[string]string `json:"seats"`
}

// HTTP forwards solicitations to a decisioning service. The service answers 200 with a
// JSON array of offers, or 204 when it has none.
type HTTP struct {
	client   *http.Client
	endpoint string
}

// NewHTTP builds an HTTP source. A nil client uses http.DefaultClient; the deadline comes
// from the context passed to SolicitBids.
func NewHTTP(client *http.Client, endpoint string) *HTTP {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTP{client: client, endpoint: endpoint}
}

func (h *HTTP) SolicitBids(ctx context.Context, seats map[string]string, req *openrtb2.BidRequest) ([]dspapi.Offer, error) {
	body, err := json.Marshal(Solicitation{Request: req, Seats: seats})
	if err != nil {
		return nil, fmt.Errorf("failed to encode solicitation: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, h.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build solicitation: %w", err)
	}
	httpReq.Header.Set("Content-Type", dspapi.ContentTypeJSON)

	resp, err := h.client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("bid source request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNoContent:
		return nil, nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrUpstreamStatus, resp.StatusCode)
	}

	var offers []dspapi.Offer
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&offers); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("failed to decode offers: %w", err)
	}
	return offers, nil
}
