package order

import (
	"testing"
	"time"

	"github.com/rustyeddy/tradesim/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	aapl = market.NewStock("AAPL", "USD")
	msft = market.NewStock("MSFT", "USD")
)

func TestSingleOrderValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		build   func() error
		wantErr error
	}{
		{"market ok", func() error { _, err := NewMarket(aapl, market.NewSize(10)); return err }, nil},
		{"market zero size", func() error { _, err := NewMarket(aapl, market.ZeroSize); return err }, ErrZeroSize},
		{"limit ok", func() error { _, err := NewLimit(aapl, market.NewSize(-1), 100); return err }, nil},
		{"limit zero price", func() error { _, err := NewLimit(aapl, market.NewSize(1), 0); return err }, ErrInvalidPrice},
		{"stop negative price", func() error { _, err := NewStop(aapl, market.NewSize(1), -5); return err }, ErrInvalidPrice},
		{"stop limit ok", func() error { _, err := NewStopLimit(aapl, market.NewSize(1), 101, 102); return err }, nil},
		{"trail ok", func() error { _, err := NewTrail(aapl, market.NewSize(-1), 0.05); return err }, nil},
		{"trail out of range", func() error { _, err := NewTrail(aapl, market.NewSize(-1), 1.5); return err }, ErrInvalidTrail},
		{"trail limit negative offset", func() error { _, err := NewTrailLimit(aapl, market.NewSize(1), 0.01, -1); return err }, ErrInvalidPrice},
		{"trail limit zero size", func() error { _, err := NewTrailLimit(aapl, market.ZeroSize, 0.01, 1); return err }, ErrZeroSize},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.build()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSingleOrderAccessors(t *testing.T) {
	t.Parallel()

	o, err := NewLimit(aapl, market.NewSize(-3), 99.5, WithTag("exit"), WithID("L1"), WithTIF(Day()))
	require.NoError(t, err)

	assert.Equal(t, "L1", o.ID())
	assert.Equal(t, aapl, o.Asset())
	assert.Equal(t, KindLimit, o.Kind())
	assert.Equal(t, "exit", o.Tag())
	assert.Equal(t, Day(), o.TIF())
	assert.False(t, o.Buy())
	assert.True(t, o.Size().Equal(market.NewSize(-3)))

	m, err := NewMarket(aapl, market.NewSize(1))
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID())
	assert.Equal(t, GTC(), m.TIF())
}

func TestCompositeAssetMismatch(t *testing.T) {
	t.Parallel()

	a, _ := NewLimit(aapl, market.NewSize(-1), 110)
	b, _ := NewStop(msft, market.NewSize(-1), 90)

	_, err := NewOCO(a, b)
	assert.ErrorIs(t, err, ErrAssetMismatch)

	_, err = NewOTO(a, b)
	assert.ErrorIs(t, err, ErrAssetMismatch)

	_, err = NewOCO(a, nil)
	assert.ErrorIs(t, err, ErrMissingLeg)
}

func TestBracketLegsMustOffsetEntry(t *testing.T) {
	t.Parallel()

	entry, _ := NewMarket(aapl, market.NewSize(10))
	tp, _ := NewLimit(aapl, market.NewSize(-10), 110)
	sl, _ := NewStop(aapl, market.NewSize(-10), 90)
	badSL, _ := NewStop(aapl, market.NewSize(-5), 90)
	otherSL, _ := NewStop(msft, market.NewSize(-10), 90)

	b, err := NewBracket(entry, tp, sl)
	require.NoError(t, err)
	assert.Equal(t, KindBracket, b.Kind())
	assert.Equal(t, aapl, b.Asset())
	assert.Len(t, Legs(b), 3)

	_, err = NewBracket(entry, tp, badSL)
	assert.ErrorIs(t, err, ErrBracketSize)

	_, err = NewBracket(entry, tp, otherSL)
	assert.ErrorIs(t, err, ErrAssetMismatch)
}

func TestNewMarketBracket(t *testing.T) {
	t.Parallel()

	b, err := NewMarketBracket(aapl, market.NewSize(-4), 90, 110)
	require.NoError(t, err)
	assert.Equal(t, KindMarket, b.Entry.Kind())
	assert.Equal(t, KindLimit, b.TakeProfit.Kind())
	assert.Equal(t, KindStop, b.StopLoss.Kind())
	assert.True(t, b.TakeProfit.Size().Equal(market.NewSize(4)))

	_, err = NewMarketBracket(aapl, market.ZeroSize, 90, 110)
	assert.ErrorIs(t, err, ErrZeroSize)
}

func TestStateTransitions(t *testing.T) {
	t.Parallel()

	assert.True(t, Initial.CanTransition(Accepted))
	assert.False(t, Initial.CanTransition(Completed))
	assert.True(t, Accepted.CanTransition(Rejected))
	assert.True(t, PartiallyFilled.CanTransition(PartiallyFilled))
	assert.False(t, PartiallyFilled.CanTransition(Rejected))
	assert.False(t, Completed.CanTransition(Cancelled))
	assert.False(t, Cancelled.CanTransition(Completed))

	assert.True(t, PartiallyFilled.IsOpen())
	assert.True(t, Expired.IsClosed())
	assert.Equal(t, "PARTIALLY_FILLED", PartiallyFilled.String())
	assert.Equal(t, "State(42)", State(42).String())
}

func TestTimeInForceExpiry(t *testing.T) {
	t.Parallel()

	open := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)

	assert.False(t, GTC().Expired(open, open.Add(1000*time.Hour)))
	assert.False(t, Day().Expired(open, open.Add(time.Hour)))
	assert.True(t, Day().Expired(open, open.Add(24*time.Hour)))
	assert.False(t, GTD(open.Add(time.Hour)).Expired(open, open.Add(time.Hour)))
	assert.True(t, GTD(open.Add(time.Hour)).Expired(open, open.Add(2*time.Hour)))

	assert.True(t, IOC().Immediate())
	assert.True(t, FOK().AllOrNone())
	assert.False(t, IOC().AllOrNone())
	assert.Equal(t, "GTC", TimeInForce{}.String())
}
