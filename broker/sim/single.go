package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/order"
	"github.com/rustyeddy/tradesim/pricing"
)

// level bounds the fill price of a triggered order. An unlimited level
// fills at whatever the pricing engine says.
type level struct {
	limit   float64
	limited bool
}

var atMarket = level{}

// rule decides per evaluation whether an order may fill at price.
type rule interface {
	check(price float64, buy bool) (level, bool)
}

type marketRule struct{}

func (marketRule) check(float64, bool) (level, bool) { return atMarket, true }

type limitRule struct{ limit float64 }

func (r limitRule) check(price float64, buy bool) (level, bool) {
	if buy && price <= r.limit || !buy && price >= r.limit {
		return level{limit: r.limit, limited: true}, true
	}
	return level{}, false
}

func stopCrossed(price, stop float64, buy bool) bool {
	if buy {
		return price >= stop
	}
	return price <= stop
}

type stopRule struct{ stop float64 }

func (r stopRule) check(price float64, buy bool) (level, bool) {
	return atMarket, stopCrossed(price, r.stop, buy)
}

// stopLimitRule stays dormant until the stop is crossed and is a limit
// order from then on.
type stopLimitRule struct {
	stop, limit float64
	triggered   bool
}

func (r *stopLimitRule) check(price float64, buy bool) (level, bool) {
	if !r.triggered {
		if !stopCrossed(price, r.stop, buy) {
			return level{}, false
		}
		r.triggered = true
	}
	return limitRule{r.limit}.check(price, buy)
}

// trailRule follows the best price since acceptance: the lowest for a buy,
// the highest for a sell. The stop sits pct away from that extreme.
type trailRule struct {
	pct       float64
	offset    float64
	withLimit bool

	extreme   float64
	triggered bool
	limit     float64
}

func (r *trailRule) stop(buy bool) float64 {
	if buy {
		return r.extreme * (1 + r.pct)
	}
	return r.extreme * (1 - r.pct)
}

func (r *trailRule) check(price float64, buy bool) (level, bool) {
	if r.triggered {
		return limitRule{r.limit}.check(price, buy)
	}
	if r.extreme == 0 || buy && price < r.extreme || !buy && price > r.extreme {
		r.extreme = price
	}
	stop := r.stop(buy)
	if !stopCrossed(price, stop, buy) {
		return level{}, false
	}
	if !r.withLimit {
		return atMarket, true
	}
	r.triggered = true
	if buy {
		r.limit = stop + r.offset
	} else {
		r.limit = stop - r.offset
	}
	return limitRule{r.limit}.check(price, buy)
}

func newSingleFactory(o order.Order) (Executor, error) {
	var r rule
	switch v := o.(type) {
	case order.Market:
		r = marketRule{}
	case order.Limit:
		r = limitRule{limit: v.Limit}
	case order.Stop:
		r = stopRule{stop: v.Stop}
	case order.StopLimit:
		r = &stopLimitRule{stop: v.Stop, limit: v.Limit}
	case order.Trail:
		r = &trailRule{pct: v.TrailPercentage}
	case order.TrailLimit:
		r = &trailRule{pct: v.TrailPercentage, offset: v.LimitOffset, withLimit: true}
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedOrder, o)
	}
	return &singleExecutor{order: o.(order.SingleOrder), rule: r}, nil
}

// singleExecutor runs Market, Limit, Stop, StopLimit, Trail and TrailLimit
// orders. The kind specific part is the rule.
type singleExecutor struct {
	lifecycle
	order order.SingleOrder
	rule  rule
}

func (x *singleExecutor) Order() order.Order { return x.order }
func (x *singleExecutor) State() order.State { return x.state }
func (x *singleExecutor) Status() ledger.OrderStatus { return x.status(x.order) }
func (x *singleExecutor) Cancel() error { return x.cancel() }

func (x *singleExecutor) remaining() market.Size { return x.order.Size().Sub(x.filled) }

func (x *singleExecutor) Execute(evt market.Event, pe pricing.Engine) ([]ledger.Execution, error) {
	if x.state.IsClosed() {
		return nil, nil
	}
	x.accept(evt.Time)

	tif := x.order.TIF()
	if tif.Expired(x.openedAt, evt.Time) {
		x.transition(order.Expired, evt.Time)
		return nil, nil
	}

	item, ok := evt.Item(x.order.Asset())
	if !ok {
		return nil, nil
	}
	if v, ok := pe.(pricing.Validator); ok {
		if err := v.Supports(item); err != nil {
			if x.state == order.Accepted {
				x.transition(order.Rejected, evt.Time)
			}
			return nil, nil
		}
	}

	var out []ledger.Execution
	if e, ok := x.fill(item, evt.Time, pe); ok {
		out = append(out, e)
	}
	if tif.Immediate() && x.state.IsOpen() {
		x.transition(order.Expired, evt.Time)
	}
	return out, nil
}

func (x *singleExecutor) fill(item market.PriceItem, t time.Time, pe pricing.Engine) (ledger.Execution, bool) {
	buy := x.order.Buy()
	rem := x.remaining()
	p := pe.Pricing(item, t)

	// Rules trigger on the market price; p only decides what the fill costs.
	ref := pricing.Reference(pe, item)
	price := p.Price(rem)
	if !usable(ref) || !usable(price) {
		return ledger.Execution{}, false
	}
	lvl, ok := x.rule.check(ref, buy)
	if !ok {
		return ledger.Execution{}, false
	}

	size := rem
	if book, ok := item.(market.OrderBook); ok {
		size = rem.MinAbs(depth(book, buy, lvl))
		if size.IsZero() {
			return ledger.Execution{}, false
		}
		if x.order.TIF().AllOrNone() && !size.Equal(rem) {
			return ledger.Execution{}, false
		}
		price = p.Price(size)
	}

	if lvl.limited {
		if buy {
			price = math.Min(price, lvl.limit)
		} else {
			price = math.Max(price, lvl.limit)
		}
	}

	x.filled = x.filled.Add(size)
	x.traded = x.traded.Add(size.Abs())
	if x.filled.Equal(x.order.Size()) {
		x.transition(order.Completed, t)
	} else {
		x.transition(order.PartiallyFilled, t)
	}
	return ledger.Execution{
		OrderID: x.order.ID(),
		Asset:   x.order.Asset(),
		Size:    size,
		Price:   price,
		Time:    t,
	}, true
}

func usable(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}

// depth is the size visible on the side of the book a trade takes, up to
// the limit when there is one.
func depth(book market.OrderBook, buy bool, lvl level) market.Size {
	var total float64
	for _, e := range book.Side(buy) {
		if lvl.limited && (buy && e.Limit > lvl.limit || !buy && e.Limit < lvl.limit) {
			continue
		}
		total += math.Abs(e.Size)
	}
	return market.SizeFromFloat(total)
}
