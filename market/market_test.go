package market

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriceItemReferencePrices(t *testing.T) {
	t.Parallel()

	bar := PriceBar{Open: 10, High: 12, Low: 9, Close: 11, Vol: 100}
	quote := PriceQuote{Ask: 101, AskSize: 5, Bid: 99, BidSize: 7}
	book := OrderBook{
		Asks: []OrderBookEntry{{Size: 3, Limit: 101}, {Size: 10, Limit: 102}},
		Bids: []OrderBookEntry{{Size: 4, Limit: 99}},
	}
	trade := TradePrice{Value: 50, Size: 2}

	tests := []struct {
		name string
		item PriceItem
		pt   PriceType
		want float64
	}{
		{"bar default is close", bar, DefaultPrice, 11},
		{"bar open", bar, OpenPrice, 10},
		{"bar high", bar, HighPrice, 12},
		{"bar low", bar, LowPrice, 9},
		{"bar mid", bar, MidPrice, 10.5},
		{"quote default is mid", quote, DefaultPrice, 100},
		{"quote ask", quote, AskPrice, 101},
		{"quote bid", quote, BidPrice, 99},
		{"book mid", book, DefaultPrice, 100},
		{"book ask", book, AskPrice, 101},
		{"book bid", book, BidPrice, 99},
		{"trade any type", trade, OpenPrice, 50},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, tt.item.Price(tt.pt), 1e-12)
		})
	}
}

func TestOrderBookEmptyPriceIsNaN(t *testing.T) {
	t.Parallel()
	assert.True(t, math.IsNaN(OrderBook{}.Price(DefaultPrice)))
	assert.Equal(t, 0.0, OrderBook{}.Spread())
}

func TestParsePriceType(t *testing.T) {
	t.Parallel()

	pt, err := ParsePriceType("open")
	require.NoError(t, err)
	assert.Equal(t, OpenPrice, pt)

	pt, err = ParsePriceType("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPrice, pt)

	_, err = ParsePriceType("nope")
	assert.Error(t, err)
}

func TestSizeArithmeticIsExact(t *testing.T) {
	t.Parallel()

	a, err := SizeFromString("0.1")
	require.NoError(t, err)
	b, err := SizeFromString("0.2")
	require.NoError(t, err)
	want, err := SizeFromString("0.3")
	require.NoError(t, err)

	assert.True(t, a.Add(b).Equal(want))
	assert.True(t, a.Sub(a).IsZero())
	assert.Equal(t, -1, NewSize(-5).Sign())
	assert.True(t, NewSize(-5).Abs().Equal(NewSize(5)))
	assert.True(t, NewSize(-5).MinAbs(NewSize(3)).Equal(NewSize(-3)))
	assert.True(t, NewSize(2).MinAbs(NewSize(-9)).Equal(NewSize(2)))
	assert.True(t, NewSize(2).SameDirection(NewSize(7)))
	assert.False(t, NewSize(2).SameDirection(NewSize(-7)))
	assert.False(t, ZeroSize.SameDirection(NewSize(1)))

	_, err = SizeFromString("ten")
	assert.Error(t, err)
}

func TestSizeTextRoundTrip(t *testing.T) {
	t.Parallel()

	var s Size
	require.NoError(t, s.UnmarshalText([]byte("-12.5")))
	b, err := s.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "-12.5", string(b))
}

func TestAssetIdentity(t *testing.T) {
	t.Parallel()

	a := NewStock("aapl", "USD")
	b := Asset{Symbol: "AAPL", Type: Stock, Currency: "EUR"}
	assert.True(t, a.Equal(b))
	assert.Equal(t, a.Key(), b.Key())
	assert.Equal(t, 1.0, b.ContractSize())

	fx, err := NewForex("eur/usd")
	require.NoError(t, err)
	assert.Equal(t, "EUR_USD", fx.Symbol)
	assert.Equal(t, "USD", fx.Currency)
	base, quote, ok := fx.Pair()
	assert.True(t, ok)
	assert.Equal(t, "EUR", base)
	assert.Equal(t, "USD", quote)

	_, err = NewForex("EURUSD")
	assert.Error(t, err)
}

func TestEventLookup(t *testing.T) {
	t.Parallel()

	a := NewStock("AAPL", "USD")
	b := NewStock("MSFT", "USD")
	now := time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC)
	evt := NewEvent(now, map[Asset]PriceItem{
		b: TradePrice{Value: 300},
		a: TradePrice{Value: 180},
	})

	p, ok := evt.Price(a, DefaultPrice)
	assert.True(t, ok)
	assert.Equal(t, 180.0, p)

	_, ok = evt.Price(NewStock("IBM", "USD"), DefaultPrice)
	assert.False(t, ok)

	assert.Equal(t, []Asset{a, b}, evt.Assets())
	assert.True(t, EmptyEvent(now).IsEmpty())
}

func TestWallet(t *testing.T) {
	t.Parallel()

	w := NewWallet(Amount{"USD", 100}, Amount{"EUR", 50})
	w.Withdraw(Amount{"USD", 30})
	assert.Equal(t, 70.0, w.Get("USD"))

	w.Withdraw(Amount{"EUR", 50})
	assert.Equal(t, []string{"USD"}, w.Currencies())

	c := w.Clone()
	c.Deposit(Amount{"USD", 1})
	assert.Equal(t, 70.0, w.Get("USD"))
	assert.Equal(t, []Amount{{"USD", 71}}, c.Amounts())
}
