package sim

import (
	"math"
	"testing"
	"time"

	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/order"
	"github.com/rustyeddy/tradesim/pricing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	t0   = time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC)
	aapl = market.NewStock("AAPL", "USD")
	msft = market.NewStock("MSFT", "USD")
)

func at(i int) time.Time { return t0.Add(time.Duration(i) * time.Minute) }

func tick(i int, price float64) market.Event {
	return market.NewEvent(at(i), map[market.Asset]market.PriceItem{
		aapl: market.TradePrice{Value: price},
	})
}

func book(i int, asks, bids []market.OrderBookEntry) market.Event {
	return market.NewEvent(at(i), map[market.Asset]market.PriceItem{
		aapl: market.OrderBook{Asks: asks, Bids: bids},
	})
}

// run feeds prices to x one event per minute and collects every execution.
func run(t *testing.T, x Executor, prices ...float64) []ledger.Execution {
	t.Helper()
	return runWith(t, x, pricing.NoCost{}, prices...)
}

func runWith(t *testing.T, x Executor, pe pricing.Engine, prices ...float64) []ledger.Execution {
	t.Helper()
	var out []ledger.Execution
	for i, p := range prices {
		execs, err := x.Execute(tick(i, p), pe)
		require.NoError(t, err)
		out = append(out, execs...)
	}
	return out
}

func newExec(t *testing.T, o order.Order) Executor {
	t.Helper()
	x, err := NewExecutor(o)
	require.NoError(t, err)
	require.Equal(t, order.Initial, x.State())
	return x
}

func TestMarketFillsOnFirstEvaluation(t *testing.T) {
	t.Parallel()

	o, err := order.NewMarket(aapl, market.NewSize(10))
	require.NoError(t, err)
	x := newExec(t, o)

	execs := run(t, x, 100)
	require.Len(t, execs, 1)
	assert.Equal(t, 100.0, execs[0].Price)
	assert.True(t, execs[0].Size.Equal(market.NewSize(10)))
	assert.Equal(t, o.ID(), execs[0].OrderID)
	assert.Equal(t, order.Completed, x.State())

	st := x.Status()
	assert.Equal(t, at(0), st.OpenedAt)
	assert.Equal(t, at(0), st.ClosedAt)

	more, err := x.Execute(tick(1, 101), pricing.NoCost{})
	require.NoError(t, err)
	assert.Empty(t, more)
}

func TestSingleOrderRules(t *testing.T) {
	t.Parallel()

	mk := func(o order.Order, err error) order.Order {
		require.NoError(t, err)
		return o
	}

	tests := []struct {
		name      string
		order     order.Order
		prices    []float64
		wantPrice float64
		wantState order.State
		engine    pricing.Engine
	}{
		{"limit buy waits for price", mk(order.NewLimit(aapl, market.NewSize(1), 100)), []float64{105, 101, 99}, 99, order.Completed, nil},
		{"limit buy never fills above", mk(order.NewLimit(aapl, market.NewSize(1), 100)), []float64{105, 100.01}, 0, order.Accepted, nil},
		{"limit sell", mk(order.NewLimit(aapl, market.NewSize(-1), 100)), []float64{95, 101}, 101, order.Completed, nil},
		{"stop sell", mk(order.NewStop(aapl, market.NewSize(-1), 95)), []float64{100, 96, 94}, 94, order.Completed, nil},
		{"stop buy", mk(order.NewStop(aapl, market.NewSize(1), 105)), []float64{100, 106}, 106, order.Completed, nil},
		{"stop limit dormant then limit", mk(order.NewStopLimit(aapl, market.NewSize(1), 105, 106)), []float64{100, 107, 105.5}, 105.5, order.Completed, nil},
		{"stop limit not triggered", mk(order.NewStopLimit(aapl, market.NewSize(1), 105, 106)), []float64{100, 104, 103}, 0, order.Accepted, nil},
		{"trail sell follows the high", mk(order.NewTrail(aapl, market.NewSize(-1), 0.1)), []float64{100, 120, 110, 107}, 107, order.Completed, nil},
		{"trail buy follows the low", mk(order.NewTrail(aapl, market.NewSize(1), 0.1)), []float64{100, 80, 85, 88.5}, 88.5, order.Completed, nil},
		{"trail limit waits for limit", mk(order.NewTrailLimit(aapl, market.NewSize(1), 0.1, 1)), []float64{100, 90, 101, 100}, 100, order.Completed, nil},

		// Triggers use the market price, the spread only moves the fill.
		{"spread limit buy at market below limit", mk(order.NewLimit(aapl, market.NewSize(1), 100)), []float64{99.96}, 100, order.Completed, pricing.Spread{BasisPoints: 10}},
		{"spread limit sell at market above limit", mk(order.NewLimit(aapl, market.NewSize(-1), 100)), []float64{100.04}, 100, order.Completed, pricing.Spread{BasisPoints: 10}},
		{"spread stop sell not crossed", mk(order.NewStop(aapl, market.NewSize(-1), 95)), []float64{100, 95.02}, 0, order.Accepted, pricing.Spread{BasisPoints: 10}},
		{"spread stop buy not crossed", mk(order.NewStop(aapl, market.NewSize(1), 105)), []float64{100, 104.98}, 0, order.Accepted, pricing.Spread{BasisPoints: 10}},
		{"spread stop limit not triggered", mk(order.NewStopLimit(aapl, market.NewSize(-1), 95, 94)), []float64{100, 95.02}, 0, order.Accepted, pricing.Spread{BasisPoints: 10}},
		{"spread trail sell not crossed", mk(order.NewTrail(aapl, market.NewSize(-1), 0.1)), []float64{100, 90.02}, 0, order.Accepted, pricing.Spread{BasisPoints: 10}},
		{"spread trail limit buy not crossed", mk(order.NewTrailLimit(aapl, market.NewSize(1), 0.1, 1)), []float64{100, 109.98}, 0, order.Accepted, pricing.Spread{BasisPoints: 10}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			pe := tt.engine
			if pe == nil {
				pe = pricing.NoCost{}
			}
			x := newExec(t, tt.order)
			execs := runWith(t, x, pe, tt.prices...)
			assert.Equal(t, tt.wantState, x.State())
			if tt.wantPrice == 0 {
				assert.Empty(t, execs)
				return
			}
			require.Len(t, execs, 1)
			assert.Equal(t, tt.wantPrice, execs[0].Price)
		})
	}
}

func TestLimitPriceNeverWorseThanLimit(t *testing.T) {
	t.Parallel()

	o, _ := order.NewLimit(aapl, market.NewSize(1), 100)
	x := newExec(t, o)

	execs, err := x.Execute(tick(0, 99.9), pricing.Spread{BasisPoints: 10})
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.LessOrEqual(t, execs[0].Price, 100.0)
}

func TestMissingPriceIsNoop(t *testing.T) {
	t.Parallel()

	o, _ := order.NewMarket(msft, market.NewSize(1))
	x := newExec(t, o)

	execs := run(t, x, 100, 101)
	assert.Empty(t, execs)
	assert.Equal(t, order.Accepted, x.State())
}

func TestRejectedWhenPricingCannotPrice(t *testing.T) {
	t.Parallel()

	o, _ := order.NewMarket(aapl, market.NewSize(1))
	x := newExec(t, o)

	execs, err := x.Execute(book(0, nil, nil), pricing.NoCost{})
	require.NoError(t, err)
	assert.Empty(t, execs)
	assert.Equal(t, order.Rejected, x.State())
	assert.ErrorIs(t, x.Cancel(), ErrAlreadyClosed)
}

func TestCancel(t *testing.T) {
	t.Parallel()

	o, _ := order.NewLimit(aapl, market.NewSize(1), 90)
	x := newExec(t, o)
	run(t, x, 100)

	require.NoError(t, x.Cancel())
	assert.Equal(t, order.Cancelled, x.State())
	assert.ErrorIs(t, x.Cancel(), ErrAlreadyClosed)

	// Cancelling before the first evaluation is allowed.
	y := newExec(t, o)
	require.NoError(t, y.Cancel())
	assert.Equal(t, order.Cancelled, y.State())

	m, _ := order.NewMarket(aapl, market.NewSize(1))
	z := newExec(t, m)
	run(t, z, 100)
	assert.ErrorIs(t, z.Cancel(), ErrAlreadyClosed)
}

func TestTimeInForce(t *testing.T) {
	t.Parallel()

	day, _ := order.NewLimit(aapl, market.NewSize(1), 90, order.WithTIF(order.Day()))
	x := newExec(t, day)
	_, err := x.Execute(tick(0, 100), pricing.NoCost{})
	require.NoError(t, err)
	next := market.NewEvent(t0.Add(24*time.Hour), map[market.Asset]market.PriceItem{aapl: market.TradePrice{Value: 80}})
	execs, err := x.Execute(next, pricing.NoCost{})
	require.NoError(t, err)
	assert.Empty(t, execs)
	assert.Equal(t, order.Expired, x.State())

	ioc, _ := order.NewLimit(aapl, market.NewSize(1), 90, order.WithTIF(order.IOC()))
	y := newExec(t, ioc)
	assert.Empty(t, run(t, y, 100))
	assert.Equal(t, order.Expired, y.State())

	gtd, _ := order.NewLimit(aapl, market.NewSize(1), 90, order.WithTIF(order.GTD(at(1))))
	z := newExec(t, gtd)
	assert.Empty(t, run(t, z, 100, 100, 80))
	assert.Equal(t, order.Expired, z.State())
}

func TestPartialFillsAgainstBookDepth(t *testing.T) {
	t.Parallel()

	o, _ := order.NewMarket(aapl, market.NewSize(10))
	x := newExec(t, o)

	asks := []market.OrderBookEntry{{Size: 4, Limit: 100}, {Size: 3, Limit: 101}}
	bids := []market.OrderBookEntry{{Size: 5, Limit: 99}}

	execs, err := x.Execute(book(0, asks, bids), pricing.NoCost{})
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.True(t, execs[0].Size.Equal(market.NewSize(7)))
	assert.Equal(t, 99.5, execs[0].Price)
	assert.Equal(t, order.PartiallyFilled, x.State())

	execs, err = x.Execute(book(1, []market.OrderBookEntry{{Size: 5, Limit: 100}}, bids), pricing.NoCost{})
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.True(t, execs[0].Size.Equal(market.NewSize(3)))
	assert.Equal(t, order.Completed, x.State())
	assert.True(t, x.Status().Filled.Equal(market.NewSize(10)))
	assert.True(t, x.Status().Traded.Equal(market.NewSize(10)))
}

func TestLimitDepthStopsAtLimit(t *testing.T) {
	t.Parallel()

	o, _ := order.NewLimit(aapl, market.NewSize(10), 100)
	x := newExec(t, o)

	asks := []market.OrderBookEntry{{Size: 4, Limit: 100}, {Size: 30, Limit: 101}}
	bids := []market.OrderBookEntry{{Size: 5, Limit: 99}}
	execs, err := x.Execute(book(0, asks, bids), pricing.NoCost{})
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.True(t, execs[0].Size.Equal(market.NewSize(4)))
	assert.Equal(t, order.PartiallyFilled, x.State())
}

func TestFillOrKillNeedsFullDepth(t *testing.T) {
	t.Parallel()

	o, _ := order.NewMarket(aapl, market.NewSize(10), order.WithTIF(order.FOK()))
	x := newExec(t, o)

	asks := []market.OrderBookEntry{{Size: 4, Limit: 100}}
	bids := []market.OrderBookEntry{{Size: 5, Limit: 99}}
	execs, err := x.Execute(book(0, asks, bids), pricing.NoCost{})
	require.NoError(t, err)
	assert.Empty(t, execs)
	assert.Equal(t, order.Expired, x.State())
}

func TestOCOStopFirst(t *testing.T) {
	t.Parallel()

	limit, _ := order.NewLimit(aapl, market.NewSize(-1), 110)
	stop, _ := order.NewStop(aapl, market.NewSize(-1), 90)
	oco, err := order.NewOCO(limit, stop)
	require.NoError(t, err)

	x := newExec(t, oco)
	execs := run(t, x, 100, 89, 111, 120)

	require.Len(t, execs, 1)
	assert.Equal(t, stop.ID(), execs[0].OrderID)
	assert.Equal(t, order.Completed, x.State())

	legs := x.(*ocoExecutor).legs
	assert.Equal(t, order.Cancelled, legs[0].State())
	assert.Equal(t, order.Completed, legs[1].State())
}

func TestOCOBothLegsClosedWithoutFill(t *testing.T) {
	t.Parallel()

	nan := market.NewEvent(at(1), map[market.Asset]market.PriceItem{
		aapl: market.TradePrice{Value: math.NaN()},
	})

	tests := []struct {
		name   string
		first  order.TimeInForce
		events []market.Event
		want   order.State
	}{
		{"both rejected", order.GTC(), []market.Event{nan}, order.Rejected},
		{"one expired one rejected", order.GTD(at(0)), []market.Event{tick(0, 100), nan}, order.Expired},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			limit, _ := order.NewLimit(aapl, market.NewSize(-1), 110, order.WithTIF(tt.first))
			stop, _ := order.NewStop(aapl, market.NewSize(-1), 90)
			oco, err := order.NewOCO(limit, stop)
			require.NoError(t, err)

			x := newExec(t, oco)
			for _, evt := range tt.events {
				execs, err := x.Execute(evt, pricing.NoCost{})
				require.NoError(t, err)
				assert.Empty(t, execs)
			}
			assert.Equal(t, tt.want, x.State())
			assert.True(t, x.Status().Traded.IsZero())
		})
	}
}

func TestOCOCancel(t *testing.T) {
	t.Parallel()

	limit, _ := order.NewLimit(aapl, market.NewSize(-1), 110)
	stop, _ := order.NewStop(aapl, market.NewSize(-1), 90)
	oco, _ := order.NewOCO(limit, stop)

	x := newExec(t, oco)
	run(t, x, 100)
	require.NoError(t, x.Cancel())

	legs := x.(*ocoExecutor).legs
	assert.Equal(t, order.Cancelled, legs[0].State())
	assert.Equal(t, order.Cancelled, legs[1].State())
	assert.ErrorIs(t, x.Cancel(), ErrAlreadyClosed)
}

func TestOTOFollowUpStaysDormant(t *testing.T) {
	t.Parallel()

	entry, _ := order.NewLimit(aapl, market.NewSize(1), 95)
	exit, _ := order.NewLimit(aapl, market.NewSize(-1), 105)
	oto, err := order.NewOTO(entry, exit)
	require.NoError(t, err)

	x := newExec(t, oto)
	chain := x.(*chainExecutor)

	// The exit would fill at 106 but is not evaluated before the entry fills.
	assert.Empty(t, run(t, x, 106))
	assert.Equal(t, order.Initial, chain.then.State())

	execs, err := x.Execute(tick(1, 94), pricing.NoCost{})
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, order.Accepted, chain.then.State())
	assert.Equal(t, order.PartiallyFilled, x.State())

	execs, err = x.Execute(tick(2, 106), pricing.NoCost{})
	require.NoError(t, err)
	require.Len(t, execs, 1)
	assert.Equal(t, exit.ID(), execs[0].OrderID)
	assert.Equal(t, order.Completed, x.State())
}

func TestBracketTakeProfitFirst(t *testing.T) {
	t.Parallel()

	b, err := order.NewMarketBracket(aapl, market.NewSize(10), 110, 90)
	require.NoError(t, err)

	x := newExec(t, b)
	execs := run(t, x, 100, 105, 111, 85)

	require.Len(t, execs, 2)
	assert.Equal(t, b.Entry.ID(), execs[0].OrderID)
	assert.Equal(t, b.TakeProfit.ID(), execs[1].OrderID)
	assert.Equal(t, 111.0, execs[1].Price)
	assert.Equal(t, order.Completed, x.State())

	exits := x.(*chainExecutor).then.(*ocoExecutor)
	assert.Equal(t, order.Completed, exits.legs[0].State())
	assert.Equal(t, order.Cancelled, exits.legs[1].State())

	st := x.Status()
	assert.True(t, st.Filled.Equal(market.NewSize(10)), "filled %s", st.Filled)
	assert.True(t, st.Traded.Equal(market.NewSize(20)), "traded %s", st.Traded)
}

func TestBracketCancelCancelsAllLegs(t *testing.T) {
	t.Parallel()

	entry, _ := order.NewLimit(aapl, market.NewSize(10), 95)
	tp, _ := order.NewLimit(aapl, market.NewSize(-10), 110)
	sl, _ := order.NewStop(aapl, market.NewSize(-10), 90)
	b, err := order.NewBracket(entry, tp, sl)
	require.NoError(t, err)

	x := newExec(t, b)
	run(t, x, 100)
	require.NoError(t, x.Cancel())

	chain := x.(*chainExecutor)
	exits := chain.then.(*ocoExecutor)
	assert.Equal(t, order.Cancelled, chain.first.State())
	assert.Equal(t, order.Cancelled, exits.State())
	assert.Equal(t, order.Cancelled, exits.legs[0].State())
	assert.Equal(t, order.Cancelled, exits.legs[1].State())
}

func TestNewExecutorUnsupported(t *testing.T) {
	t.Parallel()

	_, err := NewExecutor(nil)
	assert.ErrorIs(t, err, ErrUnsupportedOrder)
}

func TestIllegalTransitionPanics(t *testing.T) {
	t.Parallel()

	l := lifecycle{state: order.Completed}
	assert.Panics(t, func() { l.transition(order.Accepted, t0) })
}
