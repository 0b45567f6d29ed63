package backtest

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rustyeddy/tradesim/broker/sim"
	"github.com/rustyeddy/tradesim/feed"
	"github.com/rustyeddy/tradesim/ledger"
	"github.com/rustyeddy/tradesim/market"
	"github.com/rustyeddy/tradesim/order"
	"github.com/rustyeddy/tradesim/pricing"
	"github.com/rustyeddy/tradesim/strategies"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

var (
	aapl = market.NewStock("AAPL", "USD")
	t0   = time.Date(2024, 1, 2, 9, 30, 0, 0, time.UTC)
)

func at(i int) time.Time { return t0.Add(time.Duration(i) * time.Minute) }

func historic(prices ...float64) *feed.HistoricFeed {
	f := feed.NewHistoricFeed()
	for i, px := range prices {
		f.Add(aapl, feed.Observation{Time: at(i), Item: market.TradePrice{Value: px}})
	}
	return f
}

func newEngine() *sim.Engine {
	l := ledger.New("USD", ledger.WithDeposit(market.Amount{Currency: "USD", Value: 10000}))
	return sim.NewEngine(l, pricing.NoCost{})
}

type failingFeed struct{ err error }

func (f failingFeed) Play(_ context.Context, ch *feed.EventChannel) error {
	ch.Close()
	return f.err
}

func TestRunnerValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		r    *Runner
		want string
	}{
		{"missing engine", &Runner{Feed: historic(1), Policy: strategies.Noop{}}, "Engine is required"},
		{"missing feed", &Runner{Engine: newEngine(), Policy: strategies.Noop{}}, "Feed is required"},
		{"missing policy", &Runner{Engine: newEngine(), Feed: historic(1)}, "Policy is required"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := tt.r.Run(context.Background())
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRunnerBracketRun(t *testing.T) {
	t.Parallel()

	r := &Runner{
		Name:   "bracket",
		Feed:   historic(100, 105, 106, 120, 121),
		Engine: newEngine(),
		Policy: &strategies.OpenOnce{Asset: aapl, Size: market.NewSize(10), TakeProfitPct: 0.10, StopLossPct: 0.05},
		Logger: zaptest.NewLogger(t),
	}

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, res.Events)
	assert.Equal(t, at(0), res.Start)
	assert.Equal(t, at(4), res.End)
	assert.Equal(t, 2, res.Executions)
	assert.Empty(t, res.Account.Positions)
	assert.Empty(t, res.Account.OpenOrders)
	assert.Len(t, res.Equity, 5)
	assert.Equal(t, "USD", res.Currency)
	assert.InDelta(t, 10000, res.StartEquity, 1e-9)
	assert.Greater(t, res.EndEquity, res.StartEquity)
	assert.InDelta(t, res.Account.Cash.Get("USD"), res.EndEquity, 1e-9)

	rec := res.Record("run-1", "open-once", "inline")
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, 5, rec.Events)
	assert.InDelta(t, res.NetPL(), rec.NetPL(), 1e-9)

	var buf bytes.Buffer
	res.Print(&buf)
	assert.Contains(t, buf.String(), "Executions:    2")
}

func TestRunnerDrawdown(t *testing.T) {
	t.Parallel()

	r := &Runner{
		Feed:   historic(100, 100, 90, 95, 80),
		Engine: newEngine(),
		Policy: &strategies.OpenOnce{Asset: aapl, Size: market.NewSize(100)},
	}

	res, err := r.Run(context.Background())
	require.NoError(t, err)

	// Long 100 from 100: equity 10000, 10000, 9000, 9500, 8000.
	require.Len(t, res.Equity, 5)
	assert.InDelta(t, 8000, res.EndEquity, 1e-9)
	assert.InDelta(t, 20, res.MaxDrawdownPct, 1e-9)
}

func TestRunnerMaxEventsAndTimeframe(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		opts       Options
		wantEvents int
		wantStart  time.Time
	}{
		{"all", Options{}, 6, at(0)},
		{"max events", Options{MaxEvents: 2, Capacity: 1}, 2, at(0)},
		{"timeframe", Options{From: at(1), To: at(3)}, 2, at(1)},
		{"from only", Options{From: at(4)}, 2, at(4)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := &Runner{
				Feed:    historic(1, 2, 3, 4, 5, 6),
				Engine:  newEngine(),
				Policy:  strategies.Noop{},
				Options: tt.opts,
			}
			res, err := r.Run(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.wantEvents, res.Events)
			assert.Equal(t, tt.wantStart, res.Start)
		})
	}
}

func TestRunnerFeedError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	r := &Runner{Feed: failingFeed{err: boom}, Engine: newEngine(), Policy: strategies.Noop{}}

	_, err := r.Run(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestRunnerPolicyErrorReleasesFeed(t *testing.T) {
	t.Parallel()

	bad := errors.New("bad policy")
	r := &Runner{
		Feed:    historic(1, 2, 3, 4, 5, 6, 7, 8),
		Engine:  newEngine(),
		Options: Options{Capacity: 1},
		Policy: strategies.PolicyFunc(func(context.Context, market.Event, ledger.Account) ([]order.Order, error) {
			return nil, bad
		}),
	}

	res, err := r.Run(context.Background())
	assert.ErrorIs(t, err, bad)
	assert.Equal(t, 1, res.Events)
}

func TestRunnerCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{Feed: feed.NewLiveFeed(0), Engine: newEngine(), Policy: strategies.Noop{}}
	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRunAll(t *testing.T) {
	t.Parallel()

	shared := historic(100, 104, 99, 111, 120)
	runs := make([]*Runner, 0, 4)
	for i := 0; i < 3; i++ {
		runs = append(runs, &Runner{
			Name:   "open-once",
			Feed:   shared,
			Engine: newEngine(),
			Policy: &strategies.OpenOnce{Asset: aapl, Size: market.NewSize(10)},
		})
	}
	runs = append(runs, &Runner{Name: "broken", Feed: shared, Policy: strategies.Noop{}})

	results, err := RunAll(context.Background(), runs, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
	require.Len(t, results, 4)

	for _, res := range results[:3] {
		assert.Equal(t, 5, res.Events)
		assert.Equal(t, 1, res.Executions)
		assert.InDelta(t, results[0].EndEquity, res.EndEquity, 1e-9)
	}
	assert.Equal(t, 0, results[3].Events)
}
