package txn

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prebid/openrtb/v20/openrtb2"

	"github.com/cloudx-io/opendsp/reqcontext"
)

// Transaction binds one inbound request to its context, its state, its deadline and its
// eventual result. A Transaction is executed at most once.
type Transaction struct {
	id        string
	rctx      *reqcontext.RequestContext
	createdAt time.Time

	mu          sync.Mutex
	state       State
	started     bool
	terminal    bool
	startedAt   time.Time
	elapsed     time.Duration
	deadline    *Deadline
	offered     *openrtb2.BidResponse
	response    *openrtb2.BidResponse
	diagnostics []string
	fault       *TransactionFault
	cancel      context.CancelFunc
	done        chan struct{}
}

// New creates a transaction in the CLOSED state for the request held by rctx.
func New(rctx *reqcontext.RequestContext) *Transaction {
	return &Transaction{
		id:        uuid.NewString(),
		rctx:      rctx,
		createdAt: time.Now(),
		state:     StateClosed,
		done:      make(chan struct{}),
	}
}

func (tx *Transaction) ID() string {
	return tx.id
}

// Request returns the bid request being processed. It may be nil.
func (tx *Transaction) Request() *openrtb2.BidRequest {
	return tx.rctx.Request()
}

func (tx *Transaction) Context() *reqcontext.RequestContext {
	return tx.rctx
}

func (tx *Transaction) CreatedAt() time.Time {
	return tx.createdAt
}

// State returns the current state.
func (tx *Transaction) State() State {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.state
}

// Terminal reports whether a terminal result has been recorded.
func (tx *Transaction) Terminal() bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.terminal
}

// Deadline returns the armed deadline handle, or nil before WAIT_NEW was entered.
func (tx *Transaction) Deadline() *Deadline {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return tx.deadline
}

// Done is closed once the transaction is terminal.
func (tx *Transaction) Done() <-chan struct{} {
	return tx.done
}

// Result returns the terminal result. Before the transaction is terminal it reports the
// current state with no response.
func (tx *Transaction) Result() Result {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return Result{
		TransactionID: tx.id,
		State:         tx.state,
		Response:      tx.response,
		Diagnostics:   slices.Clone(tx.diagnostics),
		Elapsed:       tx.elapsed,
	}
}

// Err returns the fault that aborted the transaction, if any.
func (tx *Transaction) Err() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.fault == nil {
		return nil
	}
	return tx.fault
}

func (tx *Transaction) addDiagnostics(diagnostics ...string) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.diagnostics = append(tx.diagnostics, diagnostics...)
}

func (tx *Transaction) setOffered(resp *openrtb2.BidResponse) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.offered = resp
}

// Result is the terminal outcome of a transaction. Response is non-nil only when the
// transaction ended in WAIT_BIDS_OFFERED.
type Result struct {
	TransactionID string
	State         State
	Response      *openrtb2.BidResponse
	Diagnostics   []string
	Elapsed       time.Duration
}

// Outcome classifies the terminal state.
func (r Result) Outcome() Outcome {
	switch r.State {
	case StateWaitBidsOffered:
		return OutcomeBid
	case StateFormatError:
		return OutcomeFormatError
	case StateRequestExpired, StateOfferExpired:
		return OutcomeExpired
	default:
		return OutcomeNoBid
	}
}
