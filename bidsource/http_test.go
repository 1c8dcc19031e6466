package bidsource

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/prebid/openrtb/v20/openrtb2"
)

func TestHTTP_SolicitBids(t *testing.T) {
	var received Solicitation
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		check.Equal(t, http.MethodPost, r.Method)
		check.Equal(t, "application/json", r.Header.Get("Content-Type"))
		check.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Write([]byte(`[{"seat":"s1","landing_page":"a.example","imp_id":"imp1","price":1.25}]`))
	}))
	defer server.Close()

	source := NewHTTP(server.Client(), server.URL)
	offers, err := source.SolicitBids(context.Background(), map[string]string{"s1": "a.example"}, &openrtb2.BidRequest{ID: "r1"})

	assert.NoError(t, err)
	assert.Equal(t, 1, len(offers))
	check.Equal(t, 1.25, offers[0].Price)
	check.Equal(t, "r1", received.Request.ID)
	check.Equal(t, map[string]string{"s1": "a.example"}, received.Seats)
}

func TestHTTP_NoContent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	offers, err := NewHTTP(nil, server.URL).SolicitBids(context.Background(), nil, &openrtb2.BidRequest{})

	assert.NoError(t, err)
	check.Equal(t, 0, len(offers))
}

func TestHTTP_UpstreamStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	_, err := NewHTTP(nil, server.URL).SolicitBids(context.Background(), nil, &openrtb2.BidRequest{})

	check.True(t, errors.Is(err, ErrUpstreamStatus))
}

func TestHTTP_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewHTTP(nil, server.URL).SolicitBids(ctx, nil, &openrtb2.BidRequest{})

	check.True(t, errors.Is(err, context.DeadlineExceeded))
}
