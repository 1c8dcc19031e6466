package txn

import "fmt"

// TransactionFaultCode identifies internal invariant violations.
const TransactionFaultCode = 999

// TransactionFault reports an internal invariant violation: an unregistered transition,
// a missing state handler, a second terminal write, or a handler panic. It is fatal to the
// transaction that raised it and to no other.
type TransactionFault struct {
	TransactionID string
	State         State
	Event         Event
	Message       string
}

func (err *TransactionFault) Error() string {
	return fmt.Sprintf("transaction %s fault in state %s on event %s: %s", err.TransactionID, err.State, err.Event, err.Message)
}

func (err *TransactionFault) Code() int {
	return TransactionFaultCode
}
