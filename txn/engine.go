package txn

import (
	"context"
	"fmt"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/prebid/openrtb/v20/openrtb2"

	"github.com/cloudx-io/opendsp/core"
	"github.com/cloudx-io/opendsp/dspapi"
	"github.com/cloudx-io/opendsp/metrics"
	"github.com/cloudx-io/opendsp/reqcontext"
	"github.com/cloudx-io/opendsp/validation"
)

// StructuralValidator checks a request against the protocol's structural rules.
type StructuralValidator interface {
	Validate(req *openrtb2.BidRequest) validation.Report
}

// BidSource solicits offers for the given seats (seat id -> landing page). It must give
// up once ctx is done; ctx carries the offer timeout.
type BidSource interface {
	SolicitBids(ctx context.Context, seats map[string]string, req *openrtb2.BidRequest) ([]dspapi.Offer, error)
}

// DefaultCurrency is used when no currency option is given.
const DefaultCurrency = "USD"

type handlerFunc func(ctx context.Context, tx *Transaction) Event

// Engine drives transactions through the transition table. An Engine holds no
// per-transaction state and may execute any number of transactions concurrently.
type Engine struct {
	table    Table
	handlers map[State]handlerFunc
	onEnter  map[State]func(tx *Transaction)

	validator  StructuralValidator
	bidSource  BidSource
	clock      clock.Clock
	recorder   metrics.Recorder
	currency   string
	randSource core.RandSource
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for deadlines and timing.
func WithClock(clk clock.Clock) Option {
	return func(e *Engine) { e.clock = clk }
}

func WithRecorder(recorder metrics.Recorder) Option {
	return func(e *Engine) { e.recorder = recorder }
}

// WithCurrency sets the only currency the platform bids in.
func WithCurrency(currency string) Option {
	return func(e *Engine) { e.currency = currency }
}

// WithRandSource sets the tie-breaking source used during offer selection.
func WithRandSource(randSource core.RandSource) Option {
	return func(e *Engine) { e.randSource = randSource }
}

// WithTable replaces the transition table.
func WithTable(table Table) Option {
	return func(e *Engine) { e.table = table }
}

// NewEngine builds an engine over the given collaborators. validator may be nil, in
// which case only the local checks run.
func NewEngine(validator StructuralValidator, bidSource BidSource, opts ...Option) *Engine {
	e := &Engine{
		table:     DefaultTable(),
		validator: validator,
		bidSource: bidSource,
		clock:     clock.New(),
		recorder:  metrics.NilRecorder{},
		currency:  DefaultCurrency,
	}
	for _, opt := range opts {
		opt(e)
	}

	e.handlers = map[State]handlerFunc{
		StateClosed:   e.handleNewRequest,
		StateWaitNew:  e.handleValidate,
		StateWaitOpen: e.handleSelectBids,
	}
	e.onEnter = map[State]func(tx *Transaction){
		StateWaitNew: e.armDeadline,
	}
	return e
}

// Handle creates a transaction for rctx and executes it.
func (e *Engine) Handle(rctx *reqcontext.RequestContext) (Result, error) {
	return e.Execute(New(rctx))
}

// Execute runs tx to a terminal state and returns its result. It returns when the
// transaction completes normally, when its request deadline fires, or when a fault
// aborts it. The error is always a *TransactionFault.
func (e *Engine) Execute(tx *Transaction) (Result, error) {
	tx.mu.Lock()
	if tx.started {
		state := tx.state
		tx.mu.Unlock()
		return tx.Result(), &TransactionFault{TransactionID: tx.id, State: state, Message: "transaction executed twice"}
	}
	tx.started = true
	tx.startedAt = e.clock.Now()
	ctx, cancel := context.WithCancel(context.Background())
	tx.cancel = cancel
	tx.mu.Unlock()

	go e.run(ctx, tx)

	<-tx.done
	return tx.Result(), tx.Err()
}

// Expire delivers RequestExpired to tx, labelled with the state tx is in at the moment of
// delivery. It is a no-op once tx holds a terminal result.
func (e *Engine) Expire(tx *Transaction) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.terminal {
		return
	}

	t := Transition{From: tx.state, Event: EventRequestExpired}
	next, ok := e.table.Lookup(t)
	if !ok {
		e.failLocked(tx, &TransactionFault{TransactionID: tx.id, State: t.From, Event: t.Event, Message: "unregistered transition"})
		return
	}

	glog.V(1).Infof("txn %s: request deadline fired in %s", tx.id, t.From)
	e.recorder.RecordDeadlineFired(tx.rctx.SSPName())
	tx.state = next
	e.finishLocked(tx)
}

func (e *Engine) run(ctx context.Context, tx *Transaction) {
	var state State
	defer func() {
		if r := recover(); r != nil {
			e.fail(tx, &TransactionFault{TransactionID: tx.id, State: state, Message: fmt.Sprintf("handler panic: %v", r)})
		}
	}()

	for {
		tx.mu.Lock()
		if tx.terminal {
			tx.mu.Unlock()
			return
		}
		state = tx.state
		tx.mu.Unlock()

		handler, ok := e.handlers[state]
		if !ok {
			e.fail(tx, &TransactionFault{TransactionID: tx.id, State: state, Message: "no handler registered for non-terminal state"})
			return
		}

		event := handler(ctx, tx)
		if !e.apply(tx, Transition{From: state, Event: event}) {
			return
		}
	}
}

// apply performs one table transition and reports whether the run loop should continue.
func (e *Engine) apply(tx *Transaction, t Transition) bool {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.terminal {
		glog.V(2).Infof("txn %s: discarding %s raised in %s, already terminal in %s", tx.id, t.Event, t.From, tx.state)
		return false
	}

	next, ok := e.table.Lookup(t)
	if !ok {
		e.failLocked(tx, &TransactionFault{TransactionID: tx.id, State: t.From, Event: t.Event, Message: "unregistered transition"})
		return false
	}

	glog.V(2).Infof("txn %s: %s --%s--> %s", tx.id, t.From, t.Event, next)
	tx.state = next
	if enter, ok := e.onEnter[next]; ok {
		enter(tx)
	}

	if next.IsTerminal() {
		e.finishLocked(tx)
		return false
	}
	return true
}

func (e *Engine) fail(tx *Transaction, fault *TransactionFault) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.terminal {
		glog.Warningf("txn %s: fault after terminal state %s ignored: %v", tx.id, tx.state, fault)
		return
	}
	e.failLocked(tx, fault)
}

func (e *Engine) failLocked(tx *Transaction, fault *TransactionFault) {
	glog.Errorf("%v", fault)
	e.recorder.RecordFault(tx.rctx.SSPName())
	tx.fault = fault
	e.finishLocked(tx)
}

// finishLocked records the terminal result. The caller holds tx.mu.
func (e *Engine) finishLocked(tx *Transaction) {
	if tx.terminal {
		glog.Errorf("txn %s: second terminal write in %s rejected", tx.id, tx.state)
		e.recorder.RecordFault(tx.rctx.SSPName())
		return
	}

	tx.terminal = true
	if tx.state == StateWaitBidsOffered && tx.fault == nil {
		tx.response = tx.offered
	}
	tx.elapsed = e.clock.Since(tx.startedAt)

	if tx.deadline != nil {
		tx.deadline.Cancel()
	}
	if tx.cancel != nil {
		tx.cancel()
	}

	e.recorder.RecordTransaction(tx.rctx.SSPName(), tx.state.String(), tx.elapsed)
	glog.V(1).Infof("txn %s: finished in %s after %s", tx.id, tx.state, tx.elapsed)
	close(tx.done)
}

// armDeadline runs on entry to WAIT_NEW with tx.mu held, so an immediate expiry
// observes WAIT_NEW rather than CLOSED.
func (e *Engine) armDeadline(tx *Transaction) {
	if tx.deadline != nil {
		return
	}
	tx.deadline = ArmDeadline(e.clock, tx.rctx.RequestTimeout(), func() {
		e.Expire(tx)
	})
}
