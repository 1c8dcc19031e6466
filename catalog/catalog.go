// Package catalog resolves the exchange that sent a request and the advertiser roster
// available to bid on it.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudx-io/opendsp/dspapi"
)

// ErrUnknownExchange is returned by Resolve for an organization with no catalog entry.
var ErrUnknownExchange = errors.New("unknown exchange")

// Catalog is the read-mostly source of exchanges and advertisers. Implementations must be
// safe for concurrent use and must never hand out a roster that is later mutated.
type Catalog interface {
	Resolve(ctx context.Context, orgName string) (*dspapi.Exchange, *dspapi.Roster, error)
}

// Document is the serialized form of a catalog.
type Document struct {
	Exchanges   []dspapi.Exchange   `json:"exchanges" yaml:"exchanges"`
	Advertisers []dspapi.Advertiser `json:"advertisers" yaml:"advertisers"`
}

// Snapshot is an immutable, validated catalog.
type Snapshot struct {
	exchanges map[string]dspapi.Exchange
	roster    *dspapi.Roster
}

var _ Catalog = (*Snapshot)(nil)

// NewSnapshot validates doc. Exchanges need a unique organization name and the
// advertisers must form a valid roster.
func NewSnapshot(doc Document) (*Snapshot, error) {
	exchanges := make(map[string]dspapi.Exchange, len(doc.Exchanges))
	for i, exchange := range doc.Exchanges {
		if exchange.OrgName == "" {
			return nil, fmt.Errorf("exchange %d: missing org_name", i)
		}
		if _, dup := exchanges[exchange.OrgName]; dup {
			return nil, fmt.Errorf("exchange %q listed more than once", exchange.OrgName)
		}
		exchanges[exchange.OrgName] = exchange
	}

	roster, err := dspapi.NewRoster(doc.Advertisers)
	if err != nil {
		return nil, fmt.Errorf("failed to build roster: %w", err)
	}

	return &Snapshot{exchanges: exchanges, roster: roster}, nil
}

// Resolve returns a copy of the exchange entry and the shared roster.
func (s *Snapshot) Resolve(_ context.Context, orgName string) (*dspapi.Exchange, *dspapi.Roster, error) {
	exchange, ok := s.exchanges[orgName]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownExchange, orgName)
	}
	return &exchange, s.roster, nil
}

// Exchanges returns the number of exchanges in the snapshot.
func (s *Snapshot) Exchanges() int {
	return len(s.exchanges)
}

// Roster returns the snapshot's advertiser roster.
func (s *Snapshot) Roster() *dspapi.Roster {
	return s.roster
}
