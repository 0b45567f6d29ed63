package sim

import (
	"fmt"
	"time"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/order"
	"github.com/rustyeddy/tradesim/pricing"
)

// follow mirrors the state of the child that decides the composite.
func (l *lifecycle) follow(child order.State, t time.Time) {
	switch {
	case child == order.Completed:
		l.transition(order.Completed, t)
	case child == order.PartiallyFilled:
		l.transition(order.PartiallyFilled, t)
	case child.IsClosed():
		l.closeAs(child, t)
	}
}

// closeAs closes the composite because a child closed without completing.
// A composite that already filled cannot be rejected; it expires instead.
func (l *lifecycle) closeAs(s order.State, t time.Time) {
	if s == order.Rejected && l.state != order.Accepted {
		s = order.Expired
	}
	l.transition(s, t)
}

func cancelOpen(legs ...Executor) {
	for _, leg := range legs {
		if leg.State().IsOpen() {
			_ = leg.Cancel()
		}
	}
}

// bothClosed picks the state of an OCO whose legs both closed without a
// fill. Expiry wins over rejection: only when both legs were rejected was
// the composite itself unacceptable.
func bothClosed(a, b order.State) order.State {
	if a == order.Rejected && b == order.Rejected {
		return order.Rejected
	}
	return order.Expired
}

func sizeOf(execs []ledger.Execution) market.Size {
	total := market.ZeroSize
	for _, e := range execs {
		total = total.Add(e.Size)
	}
	return total
}

// ocoExecutor evaluates both legs until one of them fills. That leg cancels
// the other and from then on alone decides the state of the composite.
type ocoExecutor struct {
	lifecycle
	order  order.Order
	legs   [2]Executor
	active Executor
}

func newOCOFactory(o order.Order) (Executor, error) {
	v, ok := o.(order.OCO)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedOrder, o)
	}
	return newOCO(o, v.First, v.Second)
}

func newOCO(o order.Order, first, second order.SingleOrder) (*ocoExecutor, error) {
	a, err := NewExecutor(first)
	if err != nil {
		return nil, err
	}
	b, err := NewExecutor(second)
	if err != nil {
		return nil, err
	}
	return &ocoExecutor{order: o, legs: [2]Executor{a, b}}, nil
}

func (x *ocoExecutor) Order() order.Order { return x.order }
func (x *ocoExecutor) State() order.State { return x.state }
func (x *ocoExecutor) Status() ledger.OrderStatus { return x.status(x.order) }

func (x *ocoExecutor) Cancel() error {
	if x.state.IsClosed() {
		return fmt.Errorf("cancel: %w (%s)", ErrAlreadyClosed, x.state)
	}
	cancelOpen(x.legs[:]...)
	return x.cancel()
}

func (x *ocoExecutor) Execute(evt market.Event, pe pricing.Engine) ([]ledger.Execution, error) {
	if x.state.IsClosed() {
		return nil, nil
	}
	x.accept(evt.Time)

	if x.active != nil {
		execs, err := x.active.Execute(evt, pe)
		if err != nil {
			return nil, err
		}
		x.filled = x.filled.Add(sizeOf(execs))
		x.record(execs...)
		x.follow(x.active.State(), evt.Time)
		return execs, nil
	}

	for i, leg := range x.legs {
		if leg.State().IsClosed() {
			continue
		}
		execs, err := leg.Execute(evt, pe)
		if err != nil {
			return nil, err
		}
		if len(execs) == 0 {
			continue
		}
		x.active = leg
		cancelOpen(x.legs[1-i])
		x.filled = x.filled.Add(sizeOf(execs))
		x.record(execs...)
		x.follow(leg.State(), evt.Time)
		return execs, nil
	}

	if x.legs[0].State().IsClosed() && x.legs[1].State().IsClosed() {
		x.closeAs(bothClosed(x.legs[0].State(), x.legs[1].State()), evt.Time)
	}
	return nil, nil
}

// chainExecutor runs first until it completes and only then starts then.
// It implements both OTO and Bracket, the latter chaining the entry to an
// OCO of the exits. Filled tracks first only; fills of then show up in
// Traded.
type chainExecutor struct {
	lifecycle
	order order.Order
	first Executor
	then  Executor
}

func newOTOFactory(o order.Order) (Executor, error) {
	v, ok := o.(order.OTO)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedOrder, o)
	}
	first, err := NewExecutor(v.Primary)
	if err != nil {
		return nil, err
	}
	then, err := NewExecutor(v.Secondary)
	if err != nil {
		return nil, err
	}
	return &chainExecutor{order: o, first: first, then: then}, nil
}

func newBracketFactory(o order.Order) (Executor, error) {
	v, ok := o.(order.Bracket)
	if !ok {
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedOrder, o)
	}
	entry, err := NewExecutor(v.Entry)
	if err != nil {
		return nil, err
	}
	exits, err := newOCO(o, v.TakeProfit, v.StopLoss)
	if err != nil {
		return nil, err
	}
	return &chainExecutor{order: o, first: entry, then: exits}, nil
}

func (x *chainExecutor) Order() order.Order { return x.order }
func (x *chainExecutor) State() order.State { return x.state }
func (x *chainExecutor) Status() ledger.OrderStatus { return x.status(x.order) }

func (x *chainExecutor) Cancel() error {
	if x.state.IsClosed() {
		return fmt.Errorf("cancel: %w (%s)", ErrAlreadyClosed, x.state)
	}
	cancelOpen(x.first, x.then)
	return x.cancel()
}

func (x *chainExecutor) Execute(evt market.Event, pe pricing.Engine) ([]ledger.Execution, error) {
	if x.state.IsClosed() {
		return nil, nil
	}
	x.accept(evt.Time)

	var out []ledger.Execution
	if x.first.State().IsOpen() {
		execs, err := x.first.Execute(evt, pe)
		if err != nil {
			return nil, err
		}
		out = append(out, execs...)
		x.filled = x.filled.Add(sizeOf(execs))
		x.record(execs...)

		switch s := x.first.State(); {
		case s == order.Completed:
		case s == order.PartiallyFilled:
			x.transition(order.PartiallyFilled, evt.Time)
			return out, nil
		case s.IsOpen():
			return out, nil
		default:
			cancelOpen(x.then)
			x.closeAs(s, evt.Time)
			return out, nil
		}
	}

	// The first leg is complete, so the composite has filled in part.
	x.transition(order.PartiallyFilled, evt.Time)

	execs, err := x.then.Execute(evt, pe)
	if err != nil {
		return nil, err
	}
	out = append(out, execs...)
	x.record(execs...)
	if s := x.then.State(); s.IsClosed() {
		x.closeAs(s, evt.Time)
	}
	return out, nil
}
