package txn

import (
	"cmp"
	"maps"
	"slices"
)

// Transition is an event labelled with the state it was raised in. It is the key of the
// transition table.
type Transition struct {
	From  State
	Event Event
}

// Table maps (state, event) to the next state. A Table is never mutated once handed to
// an Engine.
type Table map[Transition]State

// DefaultTable returns the bid transaction state machine.
func DefaultTable() Table {
	return Table{
		{StateClosed, EventNewRequest}: StateWaitNew,

		{StateWaitNew, EventFormatError}:    StateFormatError,
		{StateWaitNew, EventRequestExpired}: StateRequestExpired,
		{StateWaitNew, EventSelectBids}:     StateWaitOpen,

		{StateWaitOpen, EventFormatError}:    StateFormatError,
		{StateWaitOpen, EventRequestExpired}: StateRequestExpired,
		{StateWaitOpen, EventNotSupported}:   StateNoBid,
		{StateWaitOpen, EventNoMatchingBids}: StateNoBid,
		{StateWaitOpen, EventBidsOffered}:    StateWaitBidsOffered,
		{StateWaitOpen, EventOfferExpired}:   StateOfferExpired,
	}
}

// Lookup returns the state reached by t.
func (tbl Table) Lookup(t Transition) (State, bool) {
	next, ok := tbl[t]
	return next, ok
}

// Transitions lists every registered transition ordered by state then event.
func (tbl Table) Transitions() []Transition {
	return slices.SortedFunc(maps.Keys(tbl), func(a, b Transition) int {
		if c := cmp.Compare(a.From, b.From); c != 0 {
			return c
		}
		return cmp.Compare(a.Event, b.Event)
	})
}
