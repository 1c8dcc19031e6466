package dspapi

import (
	"slices"
	"strings"
	"time"
)

// Content types an exchange may use to exchange bid requests and responses.
const (
	ContentTypeJSON = "application/json"
	ContentTypeCBOR = "application/cbor"
)

// Advertiser is a buyer engaged in real time bidding through one or more exchanges.
type Advertiser struct {
	// LandingPage is the advertiser's landing-page domain and its key in a Roster
	LandingPage string `json:"landing_page" yaml:"landing_page"`

	Name      string    `json:"name" yaml:"name"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`

	// BlockList holds publisher domains or app bundles the advertiser refuses to buy
	BlockList []string `json:"block_list,omitempty" yaml:"block_list,omitempty"`

	// Seats maps an exchange name to the seat id that exchange assigned to the advertiser
	Seats map[string]string `json:"seats" yaml:"seats"`
}

// Seat returns the seat id held on exchangeName, or "" if the advertiser has none there.
func (a *Advertiser) Seat(exchangeName string) string {
	if a == nil || a.Seats == nil {
		return ""
	}
	return a.Seats[exchangeName]
}

// Blocks reports whether the advertiser's block list contains publisher (case-insensitive).
func (a *Advertiser) Blocks(publisher string) bool {
	if publisher == "" {
		return false
	}
	return slices.ContainsFunc(a.BlockList, func(entry string) bool {
		return strings.EqualFold(entry, publisher)
	})
}

// Exchange identifies the supply-side counterpart that submits bid requests.
type Exchange struct {
	OrgName     string `json:"org_name" yaml:"org_name"`
	DisplayName string `json:"display_name,omitempty" yaml:"display_name,omitempty"`

	// ContentTypes lists accepted request content types; empty means JSON only
	ContentTypes []string `json:"content_types,omitempty" yaml:"content_types,omitempty"`

	// AdjustmentFactors are per-seat price multipliers applied before floors
	AdjustmentFactors map[string]float64 `json:"adjustment_factors,omitempty" yaml:"adjustment_factors,omitempty"`
}

// Accepts reports whether the exchange is configured to send contentType.
// Media type parameters such as charset are ignored.
func (e *Exchange) Accepts(contentType string) bool {
	mt := mediaType(contentType)
	if len(e.ContentTypes) == 0 {
		return mt == ContentTypeJSON
	}
	for _, accepted := range e.ContentTypes {
		if strings.EqualFold(accepted, mt) {
			return true
		}
	}
	return false
}

// Offer is a priced proposal returned by a bid source for one impression on behalf of a seat.
type Offer struct {
	Seat        string  `json:"seat"`
	LandingPage string  `json:"landing_page"`
	ImpID       string  `json:"imp_id"`
	Price       float64 `json:"price"`
	Currency    string  `json:"currency,omitempty"`
	CreativeID  string  `json:"creative_id,omitempty"`
	AdMarkup    string  `json:"adm,omitempty"`
	NoticeURL   string  `json:"nurl,omitempty"`
}
