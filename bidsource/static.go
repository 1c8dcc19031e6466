// Package bidsource provides the collaborators that answer bid solicitations on behalf
// of advertiser seats.
package bidsource

import (
	"context"
	"strings"

	"github.com/prebid/openrtb/v20/openrtb2"

	"github.com/cloudx-io/opendsp/dspapi"
)

// Campaign is a fixed-price offer an advertiser makes on every matching impression.
type Campaign struct {
	LandingPage string  `json:"landing_page" mapstructure:"landing_page"`
	ImpID       string  `json:"imp_id,omitempty" mapstructure:"imp_id"`
	Price       float64 `json:"price" mapstructure:"price"`
	CreativeID  string  `json:"creative_id,omitempty" mapstructure:"creative_id"`
	AdMarkup    string  `json:"adm,omitempty" mapstructure:"adm"`
	NoticeURL   string  `json:"nurl,omitempty" mapstructure:"nurl"`
}

// Static answers from a fixed campaign list. A campaign without ImpID bids on every
// impression of the request.
type Static struct {
	campaigns []Campaign
	currency  string
}

func NewStatic(campaigns []Campaign, currency string) *Static {
	return &Static{campaigns: campaigns, currency: currency}
}

func (s *Static) SolicitBids(ctx context.Context, seats map[string]string, req *openrtb2.BidRequest) ([]dspapi.Offer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bySite := make(map[string]string, len(seats))
	for seatID, landingPage := range seats {
		bySite[strings.ToLower(landingPage)] = seatID
	}

	var offers []dspapi.Offer
	for _, campaign := range s.campaigns {
		seatID, ok := bySite[strings.ToLower(campaign.LandingPage)]
		if !ok {
			continue
		}
		for _, imp := range req.Imp {
			if campaign.ImpID != "" && campaign.ImpID != imp.ID {
				continue
			}
			offers = append(offers, dspapi.Offer{
				Seat:        seatID,
				LandingPage: seats[seatID],
				ImpID:       imp.ID,
				Price:       campaign.Price,
				Currency:    s.currency,
				CreativeID:  campaign.CreativeID,
				AdMarkup:    campaign.AdMarkup,
				NoticeURL:   campaign.NoticeURL,
			})
		}
	}
	return offers, nil
}
