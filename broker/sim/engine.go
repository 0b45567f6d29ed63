package sim

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/rustyeddy/tradesim/broker"
	"github.com/rustyeddy/tradesim/journal"
	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/order"
	"github.com/rustyeddy/tradesim/pricing"
)

// Engine is the matching engine of one run. It owns the executors of all
// placed orders, the ledger they book into and the last seen prices.
//
// The mutex only guards against accidental sharing. A run drives its engine
// from a single goroutine and runs never share an engine.
type Engine struct {
	mu      sync.Mutex
	ledger  *ledger.Ledger
	pricing pricing.Engine
	prices  *pricing.PriceStore
	journal journal.Journal
	log     *zap.Logger

	open   []Executor
	byID   map[string]Executor
	closed []ledger.OrderStatus
}

var _ broker.Broker = (*Engine)(nil)

type EngineOption func(*Engine)

func WithJournal(j journal.Journal) EngineOption { return func(e *Engine) { e.journal = j } }

func WithLogger(l *zap.Logger) EngineOption {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func NewEngine(l *ledger.Ledger, pe pricing.Engine, opts ...EngineOption) *Engine {
	if pe == nil {
		pe = pricing.NoCost{}
	}
	e := &Engine{
		ledger:  l,
		pricing: pe,
		prices:  pricing.NewPriceStore(),
		log:     zap.NewNop(),
		byID:    map[string]Executor{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Prices() *pricing.PriceStore { return e.prices }

// Place validates and registers orders. Either all orders are accepted for
// evaluation or none is.
func (e *Engine) Place(orders ...order.Order) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	execs := make([]Executor, 0, len(orders))
	seen := map[string]bool{}
	for _, o := range orders {
		if o == nil {
			return nil, fmt.Errorf("place: %w: nil order", ErrUnsupportedOrder)
		}
		if err := o.Validate(); err != nil {
			return nil, fmt.Errorf("place %s: %w", o.ID(), err)
		}
		if _, dup := e.byID[o.ID()]; dup || seen[o.ID()] {
			return nil, fmt.Errorf("place: %w: %q", ErrDuplicateOrder, o.ID())
		}
		seen[o.ID()] = true
		x, err := NewExecutor(o)
		if err != nil {
			return nil, fmt.Errorf("place %s: %w", o.ID(), err)
		}
		execs = append(execs, x)
	}

	ids := make([]string, 0, len(execs))
	for _, x := range execs {
		id := x.Order().ID()
		e.byID[id] = x
		e.open = append(e.open, x)
		ids = append(ids, id)
		e.log.Debug("order placed",
			zap.String("id", id),
			zap.String("kind", string(x.Order().Kind())),
			zap.Stringer("asset", x.Order().Asset()))
	}
	return ids, nil
}

// Cancel cancels an open order. Cancelling a closed order is an error.
func (e *Engine) Cancel(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	x, ok := e.byID[id]
	if !ok {
		return fmt.Errorf("cancel: %w: %q", ErrOrderNotFound, id)
	}
	if err := x.Cancel(); err != nil {
		return err
	}
	e.sweepLocked()
	return nil
}

// Executor returns the executor running the order with the given ID.
func (e *Engine) Executor(id string) (Executor, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	x, ok := e.byID[id]
	return x, ok
}

// Process evaluates all open orders against evt, books their executions
// and returns the account after the event.
func (e *Engine) Process(evt market.Event) (ledger.Account, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.prices.Update(evt)

	for _, x := range e.open {
		execs, err := x.Execute(evt, e.pricing)
		if err != nil {
			return ledger.Account{}, fmt.Errorf("execute %s: %w", x.Order().ID(), err)
		}
		for _, ex := range execs {
			if err := e.bookLocked(ex); err != nil {
				return ledger.Account{}, err
			}
		}
		switch x.State() {
		case order.Rejected, order.Expired:
			e.log.Warn("order closed without fill",
				zap.String("id", x.Order().ID()),
				zap.Stringer("state", x.State()))
		}
	}
	e.ledger.MarkToMarket(evt)
	e.sweepLocked()

	acct := e.snapshotLocked()
	if err := e.recordEquityLocked(acct); err != nil {
		return acct, err
	}
	return acct, nil
}

// PlaceAndProcess places orders and immediately processes evt.
func (e *Engine) PlaceAndProcess(orders []order.Order, evt market.Event) (ledger.Account, error) {
	if _, err := e.Place(orders...); err != nil {
		return ledger.Account{}, err
	}
	return e.Process(evt)
}

func (e *Engine) Account() ledger.Account {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) bookLocked(ex ledger.Execution) error {
	realized, err := e.ledger.ApplyExecution(ex)
	if err != nil {
		return fmt.Errorf("book %s: %w", ex.OrderID, err)
	}
	e.log.Debug("execution",
		zap.String("order", ex.OrderID),
		zap.Stringer("asset", ex.Asset),
		zap.Stringer("size", ex.Size),
		zap.Float64("price", ex.Price),
		zap.Float64("realized", realized))

	if e.journal == nil {
		return nil
	}
	return e.journal.RecordExecution(journal.ExecutionRecord{
		OrderID:  ex.OrderID,
		Symbol:   ex.Asset.Symbol,
		Exchange: ex.Asset.Exchange,
		Size:     ex.Size.String(),
		Price:    ex.Price,
		Currency: ex.Asset.Currency,
		Realized: realized,
		Time:     ex.Time,
	})
}

func (e *Engine) recordEquityLocked(acct ledger.Account) error {
	if e.journal == nil {
		return nil
	}
	equity, err := acct.Equity()
	if err != nil {
		e.log.Warn("equity not journaled", zap.Error(err))
		return nil
	}
	exposure, _ := acct.Exposure()
	cash, _ := ledger.ConvertWallet(e.ledger.Rates(), acct.Cash, acct.BaseCurrency, acct.LastUpdate)
	realized, _ := ledger.ConvertWallet(e.ledger.Rates(), acct.Realized, acct.BaseCurrency, acct.LastUpdate)
	return e.journal.RecordEquity(journal.EquitySnapshot{
		Time:     acct.LastUpdate,
		Currency: acct.BaseCurrency,
		Cash:     cash.Value,
		Equity:   equity.Value,
		Exposure: exposure.Value,
		Realized: realized.Value,
	})
}

// sweepLocked moves closed executors off the open list, keeping placement
// order for the rest.
func (e *Engine) sweepLocked() {
	open := e.open[:0]
	for _, x := range e.open {
		if x.State().IsOpen() {
			open = append(open, x)
			continue
		}
		e.closed = append(e.closed, x.Status())
	}
	for i := len(open); i < len(e.open); i++ {
		e.open[i] = nil
	}
	e.open = open
}

func (e *Engine) snapshotLocked() ledger.Account {
	open := make([]ledger.OrderStatus, 0, len(e.open))
	for _, x := range e.open {
		open = append(open, x.Status())
	}
	return e.ledger.Snapshot(open, e.closed[:len(e.closed):len(e.closed)])
}
