package dspapi

import (
	"fmt"
	"maps"
	"slices"
)

// RosterConflictError is returned when a set of advertisers cannot form a roster because
// two entries share a landing page or a seat id on the same exchange.
type RosterConflictError struct {
	Message string
}

func (err *RosterConflictError) Error() string {
	return err.Message
}

// Roster is an immutable, validated set of advertisers keyed by landing page.
// Within any one exchange, each seat id belongs to exactly one advertiser.
type Roster struct {
	advertisers map[string]*Advertiser
	// seatOwners maps exchange name -> seat id -> landing page
	seatOwners map[string]map[string]string
}

// NewRoster validates advertisers and builds a roster. Advertisers are copied; later
// changes to the inputs do not affect the roster.
func NewRoster(advertisers []Advertiser) (*Roster, error) {
	r := &Roster{
		advertisers: make(map[string]*Advertiser, len(advertisers)),
		seatOwners:  make(map[string]map[string]string),
	}

	for i := range advertisers {
		a := advertisers[i]
		if a.LandingPage == "" {
			return nil, &RosterConflictError{Message: fmt.Sprintf("advertiser %q has no landing page", a.Name)}
		}
		if _, exists := r.advertisers[a.LandingPage]; exists {
			return nil, &RosterConflictError{Message: fmt.Sprintf("duplicate landing page %q", a.LandingPage)}
		}

		for exchangeName, seatID := range a.Seats {
			if seatID == "" {
				continue
			}
			owners, ok := r.seatOwners[exchangeName]
			if !ok {
				owners = make(map[string]string)
				r.seatOwners[exchangeName] = owners
			}
			if owner, taken := owners[seatID]; taken {
				return nil, &RosterConflictError{Message: fmt.Sprintf(
					"seat %q on exchange %q is assigned to both %q and %q", seatID, exchangeName, owner, a.LandingPage)}
			}
			owners[seatID] = a.LandingPage
		}

		a.Seats = maps.Clone(a.Seats)
		a.BlockList = slices.Clone(a.BlockList)
		r.advertisers[a.LandingPage] = &a
	}

	return r, nil
}

// Len returns the number of advertisers.
func (r *Roster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.advertisers)
}

// Get returns the advertiser registered under landingPage.
func (r *Roster) Get(landingPage string) (*Advertiser, bool) {
	if r == nil {
		return nil, false
	}
	a, ok := r.advertisers[landingPage]
	return a, ok
}

// LandingPages returns every landing page in sorted order.
func (r *Roster) LandingPages() []string {
	if r == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(r.advertisers))
}
