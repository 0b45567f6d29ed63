// Package sim is a simulated broker. It matches orders against replayed
// market events and books the resulting executions in a ledger.
//
// Every order is run by an Executor, a small state machine that owns the
// order's state. The Engine drives the executors once per event.
package sim

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/order"
	"github.com/rustyeddy/tradesim/pricing"
)

var (
	ErrUnsupportedOrder = errors.New("unsupported order kind")
	ErrAlreadyClosed    = errors.New("order already closed")
	ErrOrderNotFound    = errors.New("order not found")
	ErrDuplicateOrder   = errors.New("duplicate order id")
)

// Executor runs one order. Execute is called for every event while the
// order is open and returns the fills it produced.
type Executor interface {
	Order() order.Order
	State() order.State
	Execute(evt market.Event, pe pricing.Engine) ([]ledger.Execution, error)
	Cancel() error
	Status() ledger.OrderStatus
}

// ExecutorFactory builds the executor for one order kind.
type ExecutorFactory func(o order.Order) (Executor, error)

var (
	registryMu sync.RWMutex
	registry   = map[order.Kind]ExecutorFactory{}
)

func init() {
	RegisterExecutor(order.KindMarket, newSingleFactory)
	RegisterExecutor(order.KindLimit, newSingleFactory)
	RegisterExecutor(order.KindStop, newSingleFactory)
	RegisterExecutor(order.KindStopLimit, newSingleFactory)
	RegisterExecutor(order.KindTrail, newSingleFactory)
	RegisterExecutor(order.KindTrailLimit, newSingleFactory)
	RegisterExecutor(order.KindOCO, newOCOFactory)
	RegisterExecutor(order.KindOTO, newOTOFactory)
	RegisterExecutor(order.KindBracket, newBracketFactory)
}

// RegisterExecutor installs the factory used for orders of kind k,
// replacing any previous one.
func RegisterExecutor(k order.Kind, f ExecutorFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[k] = f
}

// NewExecutor returns a fresh executor in state INITIAL for o.
func NewExecutor(o order.Order) (Executor, error) {
	if o == nil {
		return nil, fmt.Errorf("%w: nil order", ErrUnsupportedOrder)
	}
	registryMu.RLock()
	f, ok := registry[o.Kind()]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedOrder, o.Kind())
	}
	return f(o)
}

// lifecycle is the state shared by all executors.
type lifecycle struct {
	state    order.State
	filled   market.Size
	traded   market.Size
	openedAt time.Time
	closedAt time.Time
	lastSeen time.Time
}

// transition moves to next or panics: an illegal step is a bug in the
// executor, not a market condition.
func (l *lifecycle) transition(next order.State, t time.Time) {
	if !l.state.CanTransition(next) {
		panic(fmt.Sprintf("sim: illegal order transition %s -> %s", l.state, next))
	}
	l.state = next
	if next.IsClosed() {
		l.closedAt = t
	}
}

// accept moves INITIAL to ACCEPTED; later calls only advance the clock.
func (l *lifecycle) accept(t time.Time) {
	if t.After(l.lastSeen) {
		l.lastSeen = t
	}
	if l.state == order.Initial {
		l.openedAt = t
		l.transition(order.Accepted, t)
	}
}

func (l *lifecycle) cancel() error {
	if l.state.IsClosed() {
		return fmt.Errorf("cancel: %w (%s)", ErrAlreadyClosed, l.state)
	}
	if l.state == order.Initial {
		l.openedAt = l.lastSeen
		l.transition(order.Accepted, l.lastSeen)
	}
	l.transition(order.Cancelled, l.lastSeen)
	return nil
}

// record adds execs to the unsigned traded volume.
func (l *lifecycle) record(execs ...ledger.Execution) {
	for _, e := range execs {
		l.traded = l.traded.Add(e.Size.Abs())
	}
}

func (l *lifecycle) status(o order.Order) ledger.OrderStatus {
	return ledger.OrderStatus{
		Order:    o,
		State:    l.state,
		Filled:   l.filled,
		Traded:   l.traded,
		OpenedAt: l.openedAt,
		ClosedAt: l.closedAt,
	}
}
