package txn

import "fmt"

// State is a position in the bid transaction state machine.
type State int

const (
	StateClosed State = iota
	StateWaitNew
	StateWaitOpen
	StateFormatError
	StateNoBid
	StateWaitBidsOffered
	StateRequestExpired
	StateOfferExpired
)

var stateNames = map[State]string{
	StateClosed:          "CLOSED",
	StateWaitNew:         "WAIT_NEW",
	StateWaitOpen:        "WAIT_OPEN",
	StateFormatError:     "FORMAT_ERROR",
	StateNoBid:           "NOBID",
	StateWaitBidsOffered: "WAIT_BIDS_OFFERED",
	StateRequestExpired:  "REQUEST_EXPIRED",
	StateOfferExpired:    "OFFER_EXPIRED",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// IsTerminal reports whether the state ends the transaction.
func (s State) IsTerminal() bool {
	switch s {
	case StateFormatError, StateNoBid, StateWaitBidsOffered, StateRequestExpired, StateOfferExpired:
		return true
	default:
		return false
	}
}

// Event triggers a transition out of the current state.
type Event int

const (
	EventNone Event = iota
	EventNewRequest
	EventFormatError
	EventRequestExpired
	EventSelectBids
	EventNotSupported
	EventNoMatchingBids
	EventBidsOffered
	EventOfferExpired
)

var eventNames = map[Event]string{
	EventNone:           "None",
	EventNewRequest:     "NewRequest",
	EventFormatError:    "FormatError",
	EventRequestExpired: "RequestExpired",
	EventSelectBids:     "SelectBids",
	EventNotSupported:   "NotSupported",
	EventNoMatchingBids: "NoMatchingBids",
	EventBidsOffered:    "BidsOffered",
	EventOfferExpired:   "OfferExpired",
}

func (e Event) String() string {
	if name, ok := eventNames[e]; ok {
		return name
	}
	return fmt.Sprintf("Event(%d)", int(e))
}

// Outcome classifies a terminal state for the caller.
type Outcome int

const (
	OutcomeBid Outcome = iota
	OutcomeNoBid
	OutcomeFormatError
	OutcomeExpired
)

func (o Outcome) String() string {
	switch o {
	case OutcomeBid:
		return "bid"
	case OutcomeNoBid:
		return "nobid"
	case OutcomeFormatError:
		return "format_error"
	case OutcomeExpired:
		return "expired"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}
